package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-room/server/engine"
)

func testServer(t *testing.T) (*httptest.Server, *Runner, *quartz.Mock) {
	t.Helper()
	mock := quartz.NewMock(t)
	r := startRunner(t, 3, mock)
	reg := NewRegistry()
	reg.Add(r)
	srv := httptest.NewServer(Router(reg, nil, log.New(io.Discard)))
	t.Cleanup(srv.Close)
	return srv, r, mock
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	srv, _, _ := testServer(t)
	var body struct {
		OK     bool     `json:"ok"`
		Tables []string `json:"tables"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/health", &body))
	assert.True(t, body.OK)
	assert.Equal(t, []string{"felt"}, body.Tables)
}

func TestTableListAndSnapshot(t *testing.T) {
	srv, r, _ := testServer(t)
	waitForHand(t, r, 1)

	var list struct {
		Tables []struct {
			Name  string `json:"name"`
			Hand  int    `json:"hand_no"`
			Seats int    `json:"seats"`
		} `json:"tables"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tables", &list))
	require.Len(t, list.Tables, 1)
	assert.Equal(t, "felt", list.Tables[0].Name)
	assert.Equal(t, 3, list.Tables[0].Seats)

	var snap engine.Snapshot
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tables/felt", &snap))
	assert.Equal(t, "felt", snap.TableID)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/tables/nope", nil))
}

func TestStatsAndLeadersEndpoints(t *testing.T) {
	srv, r, _ := testServer(t)
	waitForHand(t, r, 1)

	var stats struct {
		Seats []SeatLine `json:"seats"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tables/felt/stats", &stats))
	require.NotEmpty(t, stats.Seats)

	var leaders struct {
		Leaders []LeaderEntry `json:"leaders"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/tables/felt/leaders", &leaders))
	require.Len(t, leaders.Leaders, 3)
}

func TestJoinAndActOverHTTP(t *testing.T) {
	srv, r, mock := testServer(t)
	waitForHand(t, r, 1)

	resp, err := http.Post(srv.URL+"/api/tables/felt/join", "application/json",
		strings.NewReader(`{"name": "human", "buy_in": 2000}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var joined struct {
		Seat string `json:"seat"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&joined))
	require.NotEmpty(t, joined.Seat)

	// Joining deals the next hand; the automated seats play on until
	// action reaches the human.
	var snap engine.Snapshot
	require.Eventually(t, func() bool {
		snap, err = r.Snapshot(joined.Seat)
		if err != nil {
			return false
		}
		if snap.Actor == joined.Seat {
			return true
		}
		// A hand can end before the human acts (everyone folded to
		// them); nudge the pause timer so the next one deals.
		if snap.Stage == "waiting" || snap.Stage == "showdown" {
			mock.Advance(time.Second)
		}
		return false
	}, 5*time.Second, 10*time.Millisecond, "action never reached the joined seat")

	require.NotEmpty(t, snap.Legal)
	body, err := json.Marshal(map[string]any{
		"action": snap.Legal[0].Kind,
		"to":     snap.Legal[0].Amount,
	})
	require.NoError(t, err)
	actResp, err := http.Post(srv.URL+"/api/tables/felt/seats/"+joined.Seat+"/act",
		"application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	defer actResp.Body.Close()
	assert.Equal(t, http.StatusOK, actResp.StatusCode)
}

func TestActRejectionsOverHTTP(t *testing.T) {
	srv, r, _ := testServer(t)
	waitForHand(t, r, 1)

	actResp, err := http.Post(srv.URL+"/api/tables/felt/seats/ghost/act",
		"application/json", strings.NewReader(`{"action": "check"}`))
	require.NoError(t, err)
	defer actResp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, actResp.StatusCode)
	var rej engine.Rejection
	require.NoError(t, json.NewDecoder(actResp.Body).Decode(&rej))
	assert.Equal(t, engine.RejectUnknownSeat, rej.Reason)

	badResp, err := http.Post(srv.URL+"/api/tables/felt/join", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}
