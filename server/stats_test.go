package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-room/server/engine"
)

func playStatsHand(t *TableStats) {
	t.OnHandStarted(engine.HandStarted{
		HandNo: 1,
		InHand: []string{"a", "b", "c"},
	})
	t.OnAction(engine.PreFlop, engine.Action{Seat: "a", Kind: engine.Raise, Amount: 60})
	t.OnAction(engine.PreFlop, engine.Action{Seat: "b", Kind: engine.Call})
	t.OnAction(engine.PreFlop, engine.Action{Seat: "c", Kind: engine.Fold})
	t.OnStage(engine.StageChanged{Stage: engine.Flop}, []string{"a", "b"})
	t.OnAction(engine.Flop, engine.Action{Seat: "a", Kind: engine.Raise, Amount: 80})
	t.OnAction(engine.Flop, engine.Action{Seat: "b", Kind: engine.Fold})
	t.OnHandFinished(engine.HandFinished{
		HandNo:      1,
		Uncontested: true,
		Winner:      "a",
		Deltas:      map[string]int{"a": 80, "b": -60, "c": -20},
	})
}

func TestTableStatsCountsVPIPAndPFR(t *testing.T) {
	ts := NewTableStats(20)
	ts.SetName("a", "ada")
	playStatsHand(ts)

	lines := ts.View()
	require.Len(t, lines, 3)
	byID := map[string]SeatLine{}
	for _, l := range lines {
		byID[l.Seat] = l
	}

	a := byID["a"]
	assert.Equal(t, "ada", a.Name)
	assert.Equal(t, 1, a.Hands)
	assert.Equal(t, 100.0, a.VPIPPct)
	assert.Equal(t, 100.0, a.PFRPct)
	assert.Equal(t, 80, a.NetChips)
	assert.InDelta(t, (80.0/20.0)*100, a.BBPer100, 1e-9)

	b := byID["b"]
	assert.Equal(t, 100.0, b.VPIPPct, "a call is voluntary money")
	assert.Zero(t, b.PFRPct)

	c := byID["c"]
	assert.Zero(t, c.VPIPPct, "folding puts in nothing voluntarily")
	assert.Equal(t, -20, c.NetChips)
}

func TestTableStatsAggressionFactor(t *testing.T) {
	ts := NewTableStats(20)
	playStatsHand(ts)

	byID := map[string]SeatLine{}
	for _, l := range ts.View() {
		byID[l.Seat] = l
	}
	assert.Equal(t, 2.0, byID["a"].AF, "two raises, no calls")
	assert.Equal(t, 0.0, byID["b"].AF, "one call, no aggression")
}

func TestTableStatsShowdownCounters(t *testing.T) {
	ts := NewTableStats(20)
	ts.OnHandStarted(engine.HandStarted{HandNo: 1, InHand: []string{"a", "b"}})
	ts.OnStage(engine.StageChanged{Stage: engine.Flop}, []string{"a", "b"})
	ts.OnShowdown(engine.ShowdownResult{
		Hands: map[string]engine.HandValue{"a": {}, "b": {}},
		Pots: []engine.PotResult{
			{Amount: 100, Winners: []string{"a"}, Share: 100},
		},
	})
	ts.OnHandFinished(engine.HandFinished{
		HandNo: 1,
		Deltas: map[string]int{"a": 50, "b": -50},
	})

	byID := map[string]SeatLine{}
	for _, l := range ts.View() {
		byID[l.Seat] = l
	}
	assert.Equal(t, 100.0, byID["a"].WTSDPct)
	assert.Equal(t, 100.0, byID["a"].WSDPct)
	assert.Equal(t, 0.0, byID["b"].WSDPct)
	assert.Less(t, byID["a"].WSDLow, byID["a"].WSDHigh)
}

func TestWilsonCI95(t *testing.T) {
	low, hi := WilsonCI95(0, 0, 0)
	assert.Equal(t, 0.0, low)
	assert.Equal(t, 1.0, hi)

	low, hi = WilsonCI95(50, 0, 100)
	assert.Greater(t, low, 0.39)
	assert.Less(t, hi, 0.61)
	assert.Less(t, low, 0.5)
	assert.Greater(t, hi, 0.5)

	// More evidence tightens the interval.
	low2, hi2 := WilsonCI95(500, 0, 1000)
	assert.Greater(t, low2, low)
	assert.Less(t, hi2, hi)
}

func TestBootstrapCI95(t *testing.T) {
	vals := make([]float64, 200)
	for i := range vals {
		vals[i] = float64(i % 5)
	}
	low, hi := BootstrapCI95(vals, 500)
	assert.LessOrEqual(t, low, hi)
	assert.Greater(t, low, 1.0, "mean is 2, interval should be near it")
	assert.Less(t, hi, 3.0)

	low, hi = BootstrapCI95(nil, 500)
	assert.Zero(t, low)
	assert.Zero(t, hi)
}

func TestSeatLineWinrateInterval(t *testing.T) {
	ts := NewTableStats(20)
	playStatsHand(ts)

	byID := map[string]SeatLine{}
	for _, l := range ts.View() {
		byID[l.Seat] = l
	}
	// After one hand every resample is that hand, so the interval
	// collapses onto the observed rate.
	a := byID["a"]
	assert.InDelta(t, a.BBPer100, a.BB100Low, 1e-9)
	assert.InDelta(t, a.BBPer100, a.BB100High, 1e-9)

	// Mixed results spread the interval around the mean.
	for i := 0; i < 30; i++ {
		delta := 40
		if i%2 == 0 {
			delta = -40
		}
		ts.OnHandStarted(engine.HandStarted{HandNo: i + 2, InHand: []string{"a", "b"}})
		ts.OnHandFinished(engine.HandFinished{HandNo: i + 2, Deltas: map[string]int{"a": delta, "b": -delta}})
	}
	for _, l := range ts.View() {
		byID[l.Seat] = l
	}
	a = byID["a"]
	assert.Less(t, a.BB100Low, a.BB100High)
	assert.LessOrEqual(t, a.BB100Low, a.BBPer100)
	assert.GreaterOrEqual(t, a.BB100High, a.BBPer100)
}

func TestRatingsPairwiseUpdate(t *testing.T) {
	r := NewRatings(1500, 24)
	out := r.UpdateHand(map[string]int{"ada": 120, "bix": -70, "cyd": -50}, 120, 20)
	require.Len(t, out, 3)
	assert.Greater(t, out["ada"], 1500.0)
	assert.Less(t, out["bix"], 1500.0)
	assert.Less(t, out["cyd"], 1500.0)

	// Zero-sum within the hand.
	sum := 0.0
	for _, v := range out {
		sum += v
	}
	assert.InDelta(t, 3*1500.0, sum, 1e-6)
}

func TestRatingsFavoriteGainsLessFromWinning(t *testing.T) {
	r := NewRatings(1500, 24)
	r.Seed("shark", 1900)
	r.Seed("fish", 1100)
	out := r.UpdateHand(map[string]int{"shark": 40, "fish": -40}, 40, 20)

	even := NewRatings(1500, 24)
	outEven := even.UpdateHand(map[string]int{"a": 40, "b": -40}, 40, 20)

	gainShark := out["shark"] - 1900
	gainEven := outEven["a"] - 1500
	assert.Less(t, gainShark, gainEven, "expected winner gains less")
	assert.InDelta(t, 1100-out["fish"], gainShark, 1e-9, "pairwise updates are zero-sum")
}

func TestRatingsViewSorted(t *testing.T) {
	r := NewRatings(1500, 24)
	r.Seed("low", 1400)
	r.Seed("high", 1600)
	view := r.View()
	require.Len(t, view, 2)
	assert.Equal(t, "high", view[0].Name)
	assert.Equal(t, "low", view[1].Name)

	assert.Equal(t, 1400.0, r.Get("low"))
	assert.Equal(t, 1500.0, r.Get("new"), "unknown names start at the default")
}
