package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"card-room/server/engine"
	"card-room/server/store"
)

// Router exposes the read surface plus the minimal seat controls:
// join, act, leave. Game state is only ever touched through the table
// runners, so handlers stay free of locking.
func Router(reg *Registry, db *store.DB, logger *log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/api/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]any{"ok": true, "tables": reg.Names()})
	})

	r.Get("/api/tables", func(w http.ResponseWriter, req *http.Request) {
		type row struct {
			Name  string `json:"name"`
			Stage string `json:"stage"`
			Hand  int    `json:"hand_no"`
			Seats int    `json:"seats"`
			Pot   int    `json:"pot"`
		}
		var out []row
		for _, name := range reg.Names() {
			t := reg.Get(name)
			if t == nil {
				continue
			}
			snap, err := t.Snapshot("")
			if err != nil {
				continue
			}
			out = append(out, row{
				Name:  name,
				Stage: snap.Stage,
				Hand:  snap.HandNo,
				Seats: len(snap.Seats),
				Pot:   snap.Pot,
			})
		}
		writeJSON(w, map[string]any{"tables": out})
	})

	r.Route("/api/tables/{table}", func(r chi.Router) {
		r.Use(tableCtx(reg))

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			t := tableFrom(req)
			snap, err := t.Snapshot(req.URL.Query().Get("seat"))
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, snap)
		})

		r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, map[string]any{"seats": tableFrom(req).Stats()})
		})

		r.Get("/leaders", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, map[string]any{"leaders": tableFrom(req).Leaders()})
		})

		r.Post("/join", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Name  string `json:"name"`
				BuyIn int    `json:"buy_in"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.Name == "" {
				http.Error(w, "name required", http.StatusBadRequest)
				return
			}
			seatID, err := tableFrom(req).Join(body.Name, body.BuyIn)
			if err != nil {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, map[string]any{"seat": seatID})
		})

		r.Post("/seats/{seat}/act", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Action string `json:"action"`
				To     int    `json:"to"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			t := tableFrom(req)
			seatID := chi.URLParam(req, "seat")
			rej, err := t.Act(seatID, engine.ActionKind(body.Action), body.To)
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			if rej != nil {
				w.WriteHeader(http.StatusUnprocessableEntity)
				writeJSON(w, rej)
				return
			}
			snap, _ := t.Snapshot(seatID)
			writeJSON(w, snap)
		})

		r.Post("/seats/{seat}/presence", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				Connected bool `json:"connected"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				http.Error(w, "bad body", http.StatusBadRequest)
				return
			}
			tableFrom(req).SetConnected(chi.URLParam(req, "seat"), body.Connected)
			writeJSON(w, map[string]any{"ok": true})
		})

		r.Delete("/seats/{seat}", func(w http.ResponseWriter, req *http.Request) {
			if err := tableFrom(req).Leave(chi.URLParam(req, "seat")); err != nil {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			writeJSON(w, map[string]any{"ok": true})
		})

		if db != nil {
			r.Get("/hands", func(w http.ResponseWriter, req *http.Request) {
				t := tableFrom(req)
				limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
				hands, err := db.RecentHands(req.Context(), t.sessionID, limit)
				if err != nil {
					http.Error(w, err.Error(), http.StatusInternalServerError)
					return
				}
				writeJSON(w, map[string]any{"hands": hands})
			})
		}
	})

	if db != nil {
		r.Get("/api/leaderboard", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			rows, err := db.Leaderboard(req.Context(), limit)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(w, map[string]any{"leaderboard": rows})
		})
	}

	return r
}

type ctxKey int

const tableKey ctxKey = 0

// tableCtx resolves {table} once for the whole subtree.
func tableCtx(reg *Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			t := reg.Get(chi.URLParam(req, "table"))
			if t == nil {
				http.Error(w, "no such table", http.StatusNotFound)
				return
			}
			next.ServeHTTP(w, req.WithContext(withTable(req, t)))
		})
	}
}

func withTable(req *http.Request, t *Runner) context.Context {
	return context.WithValue(req.Context(), tableKey, t)
}

func tableFrom(req *http.Request) *Runner {
	return req.Context().Value(tableKey).(*Runner)
}

func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			next.ServeHTTP(ww, req)
			logger.Debug("http",
				"method", req.Method, "path", req.URL.Path,
				"status", ww.Status(), "dur", time.Since(start))
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
