package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rigged builds a table mid-showdown with explicit contributions; tests
// drive buildPots/payPot directly.
func rigged(t *testing.T, totals []int, folded []bool) *Game {
	t.Helper()
	g := newTable(t, 1000, 1000, 1000, 1000, 1000)
	g.Seats = g.Seats[:len(totals)]
	g.Dealer = 0
	for i, s := range g.Seats {
		s.SittingOut = false // seats join sitting out; the fixture deals them in
		s.TotalBet = totals[i]
		s.Folded = folded[i]
		g.Pot += totals[i]
	}
	return g
}

func potAmounts(pots []pot) []int {
	out := make([]int, len(pots))
	for i, p := range pots {
		out[i] = p.amount
	}
	return out
}

func TestSidePotLevels(t *testing.T) {
	// Three all-ins at 50/150/300 and a caller capped at 300: three pots,
	// shrinking eligibility, conserving every chip.
	g := rigged(t,
		[]int{50, 150, 300, 300},
		[]bool{false, false, false, false})

	pots := g.buildPots()
	require.Len(t, pots, 3)
	assert.Equal(t, []int{200, 300, 300}, potAmounts(pots))
	assert.Len(t, pots[0].eligible, 4)
	assert.Len(t, pots[1].eligible, 3)
	assert.Len(t, pots[2].eligible, 2)

	sum := 0
	for _, p := range pots {
		sum += p.amount
	}
	assert.Equal(t, 800, sum, "side pots conserve total contributions")
}

func TestSidePotsMergeIdenticalEligibleSets(t *testing.T) {
	// A folded seat's partial contribution creates a level, but the
	// eligible set does not change, so the slices merge into one pot.
	g := rigged(t,
		[]int{50, 100, 100},
		[]bool{true, false, false})

	pots := g.buildPots()
	require.Len(t, pots, 1)
	assert.Equal(t, 250, pots[0].amount)
	assert.Equal(t, []int{1, 2}, pots[0].eligible)
}

func TestSidePotFallbackWhenAllFoldedAtLevel(t *testing.T) {
	// Nobody alive reached the 200 level; the slice goes back to its
	// contributor rather than vanishing.
	g := rigged(t,
		[]int{200, 100, 100},
		[]bool{true, false, false})

	pots := g.buildPots()
	require.Len(t, pots, 2)
	assert.Equal(t, 300, pots[0].amount)
	assert.Equal(t, []int{1, 2}, pots[0].eligible)
	assert.Equal(t, 100, pots[1].amount)
	assert.Equal(t, []int{0}, pots[1].eligible, "returned to the folded contributor")
}

func TestPayPotOddChipGoesFirstFromDealersLeft(t *testing.T) {
	g := rigged(t, []int{17, 17, 17}, []bool{false, false, false})
	g.Dealer = 2

	board := cards(t, "Ah", "Kd", "Qs", "Jc", "Th")
	g.Board = board
	// Distinct junk hole cards: everyone plays the board and ties.
	g.Seats[0].Hole = cards(t, "2c", "3d")
	g.Seats[1].Hole = cards(t, "2h", "3s")
	g.Seats[2].Hole = cards(t, "4c", "5d")
	hands := map[string]HandValue{}
	for _, s := range g.Seats {
		v, err := Evaluate(append(append([]Card{}, s.Hole...), board...))
		require.NoError(t, err)
		hands[s.ID] = v
	}

	res := g.payPot(pot{amount: 51, eligible: []int{0, 1, 2}}, hands)
	assert.Len(t, res.Winners, 3)
	assert.Equal(t, 17, res.Share)
	assert.Equal(t, 0, res.OddChips)

	// With a 52-chip pot, the odd chip lands on the first tied winner
	// clockwise from the dealer's left: seat 0 when the button is 2.
	res = g.payPot(pot{amount: 52, eligible: []int{0, 1, 2}}, hands)
	assert.Equal(t, 1, res.OddChips)
	assert.Equal(t, "alice", res.Winners[0])
}

func TestShowdownSidePotsPayTheRightWinners(t *testing.T) {
	g := newTable(t, 100, 300, 300)
	_, err := g.StartHand()
	require.NoError(t, err)

	// alice (dealer) all-in 100, both others call then bob shoves the
	// side pot and carol calls: everyone ends all-in.
	mustAct(t, g, "alice", AllIn, 0)
	mustAct(t, g, "bob", Call, 0)
	mustAct(t, g, "carol", Call, 0)
	assert.Equal(t, Flop, g.Stage)
	mustAct(t, g, "bob", AllIn, 0)
	events := mustAct(t, g, "carol", Call, 0)

	var sd ShowdownResult
	found := false
	for _, e := range events {
		if s, ok := e.(ShowdownResult); ok {
			sd = s
			found = true
		}
	}
	require.True(t, found)

	require.Len(t, sd.Pots, 2)
	assert.Equal(t, 300, sd.Pots[0].Amount)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, sd.Pots[0].Eligible)
	assert.Equal(t, 400, sd.Pots[1].Amount)
	assert.ElementsMatch(t, []string{"bob", "carol"}, sd.Pots[1].Eligible)

	assert.Equal(t, 700, totalChips(g))
	assert.Zero(t, g.Pot)
}
