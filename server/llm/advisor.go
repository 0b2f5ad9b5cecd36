package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"card-room/server/agent"
)

const systemPrompt = `You are a poker table coach. You are shown the acting seat's view of a
no-limit hold'em hand and the action the seat has already committed to.
You may not change the action. You may suggest a different raise-to
amount inside the stated legal band, and you may add one short comment
(table talk, at most a sentence). Respond with JSON only.`

// Advice is the model's optional refinement of an already-chosen
// action: a resize inside the legal raise band and/or a comment. It
// never carries an action of its own.
type Advice struct {
	Amount  *int
	Comment string
	Raw     string
}

// Advisor calls an OpenAI-compatible chat-completions endpoint with a
// strict JSON schema. A nil Advisor is valid and means advice is
// disabled; every method is a no-op on it.
type Advisor struct {
	cfg     apiConfig
	client  *http.Client
	log     *log.Logger
	timeout time.Duration
}

// NewAdvisor resolves the endpoint from the environment. model may be
// empty, deferring to OPENAI_MODEL/OPENROUTER_MODEL.
func NewAdvisor(model string, logger *log.Logger) (*Advisor, error) {
	cfg, err := resolveAPIConfig(model)
	if err != nil {
		return nil, err
	}
	timeout := 6 * time.Second
	if v := strings.TrimSpace(os.Getenv("LLM_ADVISOR_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			timeout = d
		}
	}
	return &Advisor{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout + time.Second},
		log:     logger,
		timeout: timeout,
	}, nil
}

// NewAdvisorFromEnv is NewAdvisor that treats a missing key or model as
// "advice off" rather than an error.
func NewAdvisorFromEnv(model string, logger *log.Logger) *Advisor {
	a, err := NewAdvisor(model, logger)
	if err != nil {
		logger.Debug("llm advice disabled", "reason", err)
		return nil
	}
	return a
}

func (a *Advisor) Enabled() bool { return a != nil }

// Advise asks the model to annotate the intended action. The call is
// bounded by the advisor timeout on top of ctx; any error means the
// caller proceeds with the action it already has.
func (a *Advisor) Advise(ctx context.Context, obs agent.Observation, intended agent.ActionOut) (Advice, error) {
	if a == nil {
		return Advice{}, errors.New("advisor disabled")
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	schema := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"amount": map[string]any{
				"type":        []any{"integer", "null"},
				"minimum":     obs.MinRaiseTo,
				"maximum":     obs.MaxRaiseTo,
				"description": "Alternative raise-to amount, or null to keep the chosen size",
			},
			"comment": map[string]any{
				"type":        "string",
				"description": "One short line of table talk, or empty",
			},
		},
		"required": []string{"comment"},
	}

	user, err := buildUserPrompt(obs, intended)
	if err != nil {
		return Advice{}, err
	}
	raw, err := a.complete(ctx, systemPrompt, user, schema)
	if err != nil {
		return Advice{}, err
	}
	return parseAdvice(raw, obs.MinRaiseTo, obs.MaxRaiseTo)
}

func buildUserPrompt(obs agent.Observation, intended agent.ActionOut) (string, error) {
	payload := map[string]any{
		"observation": obs,
		"intended":    intended,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (a *Advisor) complete(ctx context.Context, system, user string, schema map[string]any) (string, error) {
	payload := map[string]any{
		"model": a.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "table_advice",
				"strict": true,
				"schema": schema,
			},
		},
	}
	applyTuningFromEnv(payload)

	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(a.cfg.HeaderName, a.cfg.HeaderPrefix+a.cfg.APIKey)
	for k, v := range a.cfg.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	body := buf.String()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("llm http %d: %s", resp.StatusCode, truncate(body, 800))
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(body), &cc); err != nil {
		return "", err
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	return cc.Choices[0].Message.Content, nil
}

// parseAdvice reads the structured reply, tolerating prose around the
// JSON object and string-typed numbers. Out-of-band amounts are dropped
// rather than clamped.
func parseAdvice(raw string, minTo, maxTo int) (Advice, error) {
	adv := Advice{Raw: strings.TrimSpace(raw)}
	if adv.Raw == "" {
		return adv, errors.New("empty response")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(adv.Raw), &parsed); err != nil {
		cleaned := extractJSONObject(adv.Raw)
		if cleaned == "" {
			return adv, err
		}
		if err2 := json.Unmarshal([]byte(cleaned), &parsed); err2 != nil {
			return adv, err
		}
	}

	if v, ok := parsed["comment"].(string); ok {
		adv.Comment = strings.TrimSpace(v)
	}
	if rawAmt, ok := parsed["amount"]; ok && rawAmt != nil {
		var n int
		switch t := rawAmt.(type) {
		case float64:
			n = int(t)
		case json.Number:
			v, err := t.Int64()
			if err != nil {
				return adv, nil
			}
			n = int(v)
		case string:
			v, err := strconv.Atoi(strings.TrimSpace(t))
			if err != nil {
				return adv, nil
			}
			n = v
		default:
			return adv, nil
		}
		if n >= minTo && n <= maxTo {
			adv.Amount = &n
		}
	}
	return adv, nil
}

func applyTuningFromEnv(m map[string]any) {
	if v := firstNonEmpty(os.Getenv("OPENAI_TEMPERATURE"), os.Getenv("OPENROUTER_TEMPERATURE")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["temperature"] = f
		}
	}
	if v := firstNonEmpty(os.Getenv("OPENAI_TOP_P"), os.Getenv("OPENROUTER_TOP_P")); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			m["top_p"] = f
		}
	}
	if v := firstNonEmpty(os.Getenv("OPENAI_MAX_OUTPUT_TOKENS"), os.Getenv("OPENROUTER_MAX_OUTPUT_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			m["max_tokens"] = n
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
