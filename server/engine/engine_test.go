package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T, stacks ...int) *Game {
	t.Helper()
	g := New("t1", Config{SB: 10, BB: 20}, 42)
	names := []string{"alice", "bob", "carol", "dave", "erin"}
	for i, chips := range stacks {
		_, err := g.AddSeat(names[i], names[i], chips)
		require.NoError(t, err)
	}
	return g
}

func mustAct(t *testing.T, g *Game, seat string, kind ActionKind, amount int) []Event {
	t.Helper()
	events, rej := g.HandleAction(seat, kind, amount)
	require.Nil(t, rej, "%s %s %d rejected: %+v", seat, kind, amount, rej)
	checkPotInvariant(t, g)
	return events
}

// pot == sum(totalBet) after every mutation, until payout zeroes both.
func checkPotInvariant(t *testing.T, g *Game) {
	t.Helper()
	sum := 0
	for _, s := range g.Seats {
		sum += s.TotalBet
	}
	if g.Stage >= PreFlop && g.Stage <= River {
		assert.Equal(t, sum, g.Pot, "pot out of sync with contributions")
	}
}

func totalChips(g *Game) int {
	sum := g.Pot
	for _, s := range g.Seats {
		sum += s.Chips
	}
	return sum
}

func hasEvent(events []Event, name string) bool {
	for _, e := range events {
		if e.EventName() == name {
			return true
		}
	}
	return false
}

func TestStartHandRequiresTwoFundedSeats(t *testing.T) {
	g := newTable(t, 1000)
	_, err := g.StartHand()
	assert.ErrorIs(t, err, ErrNotEnoughSeats)
	assert.Equal(t, Waiting, g.Stage)
	assert.Equal(t, 0, g.HandNo)

	g = newTable(t, 1000, 0)
	_, err = g.StartHand()
	assert.ErrorIs(t, err, ErrNotEnoughSeats)

	g = newTable(t, 1000, 1000)
	g.SetDisconnected("bob", true)
	_, err = g.StartHand()
	assert.ErrorIs(t, err, ErrNotEnoughSeats)

	g.SetDisconnected("bob", false)
	_, err = g.StartHand()
	assert.NoError(t, err)
}

func TestStartHandHeadsUpBlindsAndOrder(t *testing.T) {
	g := newTable(t, 1000, 1000)
	events, err := g.StartHand()
	require.NoError(t, err)

	require.IsType(t, HandStarted{}, events[0])
	hs := events[0].(HandStarted)
	// Heads-up: the dealer posts the small blind and acts first preflop.
	assert.Equal(t, hs.Dealer, hs.SmallBlind)
	assert.Equal(t, "alice", hs.SmallBlind)
	assert.Equal(t, "bob", hs.BigBlind)
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)

	assert.Equal(t, 30, g.Pot)
	assert.Equal(t, 20, g.CurBet)
	assert.Equal(t, PreFlop, g.Stage)
	for _, s := range g.Seats {
		assert.Len(t, s.Hole, 2)
	}
	checkPotInvariant(t, g)
}

func TestThreeHandedBlindsClockwiseOfDealer(t *testing.T) {
	g := newTable(t, 1000, 1000, 1000)
	events, err := g.StartHand()
	require.NoError(t, err)

	hs := events[0].(HandStarted)
	assert.Equal(t, "alice", hs.Dealer)
	assert.Equal(t, "bob", hs.SmallBlind)
	assert.Equal(t, "carol", hs.BigBlind)
	// First to act preflop is the seat after the big blind.
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)
}

func TestZeroStackSeatSitsOut(t *testing.T) {
	g := newTable(t, 1000, 1000, 0)
	_, err := g.StartHand()
	require.NoError(t, err)

	carol := g.SeatByID("carol")
	assert.True(t, carol.SittingOut)
	assert.Empty(t, carol.Hole)
	assert.Zero(t, carol.TotalBet)
}

// End-to-end checkdown: both seats see all
// five streets for the minimum, and the 40-chip pot settles with chips
// conserved.
func TestHeadsUpCheckdown(t *testing.T) {
	g := newTable(t, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "alice", Call, 0) // 10 more to match the big blind
	events := mustAct(t, g, "bob", Check, 0)
	assert.True(t, hasEvent(events, "stage_changed"))
	assert.Equal(t, Flop, g.Stage)
	assert.Equal(t, 40, g.Pot)

	// Big blind acts first on every postflop street heads-up.
	for _, stage := range []Stage{Turn, River, ShowdownStage} {
		assert.Equal(t, "bob", g.Seats[g.Actor].ID)
		mustAct(t, g, "bob", Check, 0)
		events = mustAct(t, g, "alice", Check, 0)
		if stage == ShowdownStage {
			assert.True(t, hasEvent(events, "showdown"))
			assert.True(t, hasEvent(events, "hand_finished"))
		}
		assert.Equal(t, stage, g.Stage)
	}

	assert.Len(t, g.Board, 5)
	assert.Equal(t, 2000, totalChips(g))
	assert.Zero(t, g.Pot)
}

func TestUncontestedFoldAwardsPotWithoutShowdown(t *testing.T) {
	g := newTable(t, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	events := mustAct(t, g, "alice", Fold, 0)
	require.True(t, hasEvent(events, "hand_finished"))
	assert.False(t, hasEvent(events, "showdown"))

	var fin HandFinished
	for _, e := range events {
		if f, ok := e.(HandFinished); ok {
			fin = f
		}
	}
	assert.True(t, fin.Uncontested)
	assert.Equal(t, "bob", fin.Winner)
	assert.Equal(t, 1010, g.SeatByID("bob").Chips)
	assert.Equal(t, 990, g.SeatByID("alice").Chips)
	assert.Equal(t, Waiting, g.Stage)
	assert.Equal(t, 2000, totalChips(g))
}

func TestRejections(t *testing.T) {
	g := newTable(t, 1000, 1000)

	_, rej := g.HandleAction("alice", Check, 0)
	require.NotNil(t, rej)
	assert.Equal(t, RejectBadStage, rej.Reason)

	_, err := g.StartHand()
	require.NoError(t, err)
	potBefore := g.Pot

	_, rej = g.HandleAction("mallory", Call, 0)
	assert.Equal(t, RejectUnknownSeat, rej.Reason)

	_, rej = g.HandleAction("bob", Check, 0)
	assert.Equal(t, RejectOutOfTurn, rej.Reason)

	_, rej = g.HandleAction("alice", Check, 0)
	assert.Equal(t, RejectCannotCheck, rej.Reason)

	_, rej = g.HandleAction("alice", Raise, 25)
	assert.Equal(t, RejectRaiseTooSmall, rej.Reason)

	_, rej = g.HandleAction("alice", Raise, 5000)
	assert.Equal(t, RejectShortStacked, rej.Reason)

	// None of the rejected attempts touched the pot or the turn.
	assert.Equal(t, potBefore, g.Pot)
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)

	mustAct(t, g, "alice", Call, 0)
	_, rej = g.HandleAction("bob", Call, 0)
	assert.Equal(t, RejectNothingToCall, rej.Reason)
}

func TestRaiseReopensAction(t *testing.T) {
	g := newTable(t, 1000, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "alice", Raise, 60) // raise-to 60, increment 40
	assert.Equal(t, 40, g.LastRaise)
	mustAct(t, g, "bob", Call, 0)
	mustAct(t, g, "carol", Raise, 100) // exactly the min re-raise
	assert.Equal(t, 40, g.LastRaise)

	// Both earlier callers owe a fresh decision.
	assert.False(t, g.SeatByID("alice").Acted)
	assert.False(t, g.SeatByID("bob").Acted)
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)
	assert.Equal(t, PreFlop, g.Stage)
}

func TestShortAllInDoesNotReopenAction(t *testing.T) {
	g := newTable(t, 130, 1000, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "dave", Raise, 100) // increment 80

	// Alice's all-in adds only 30 over the bet, under the 80 increment:
	// the bet level moves but dave's turn is spent and the increment
	// stays where the full raise left it.
	mustAct(t, g, "alice", AllIn, 0)
	assert.True(t, g.SeatByID("alice").AllIn)
	assert.Equal(t, 130, g.CurBet)
	assert.Equal(t, 80, g.LastRaise, "short all-in leaves the increment alone")
	assert.True(t, g.SeatByID("dave").Acted, "short all-in does not re-open action")
	assert.Equal(t, PreFlop, g.Stage)
	assert.Equal(t, "bob", g.Seats[g.Actor].ID)

	// The blinds finish the street; it closes without dave acting again.
	mustAct(t, g, "bob", Call, 0)
	events := mustAct(t, g, "carol", Call, 0)
	assert.True(t, hasEvent(events, "stage_changed"))
	assert.Equal(t, Flop, g.Stage)
	assert.Equal(t, 3130, totalChips(g))
}

func TestQualifyingAllInReopensAction(t *testing.T) {
	g := newTable(t, 1000, 1000, 200)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "alice", Raise, 100) // increment 80
	mustAct(t, g, "bob", Call, 0)

	// Carol's all-in to 200 raises by 100 >= 80: action re-opens.
	mustAct(t, g, "carol", AllIn, 0)
	assert.Equal(t, PreFlop, g.Stage)
	assert.Equal(t, 100, g.LastRaise)
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)
	assert.False(t, g.SeatByID("alice").Acted)
	assert.False(t, g.SeatByID("bob").Acted)
}

func TestAllInShowdownRunsOutRemainingStreets(t *testing.T) {
	g := newTable(t, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "alice", AllIn, 0)
	events := mustAct(t, g, "bob", Call, 0)

	stageChanges := 0
	for _, e := range events {
		if _, ok := e.(StageChanged); ok {
			stageChanges++
		}
	}
	assert.Equal(t, 3, stageChanges, "flop, turn and river dealt with no further input")
	assert.True(t, hasEvent(events, "showdown"))
	assert.Len(t, g.Board, 5)
	assert.Equal(t, ShowdownStage, g.Stage)
	assert.Equal(t, 2000, totalChips(g))
}

func TestBlindsCanForceImmediateRunout(t *testing.T) {
	g := newTable(t, 5, 20)
	events, err := g.StartHand()
	require.NoError(t, err)

	// Both blinds are all-in before anyone can act.
	assert.True(t, hasEvent(events, "showdown"))
	assert.Equal(t, 25, totalChips(g))
	assert.Equal(t, ShowdownStage, g.Stage)
}

func TestDealerRotatesBetweenHands(t *testing.T) {
	g := newTable(t, 1000, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)
	assert.Equal(t, "alice", g.Seats[g.Dealer].ID)

	mustAct(t, g, "alice", Fold, 0)
	mustAct(t, g, "bob", Fold, 0)

	_, err = g.StartHand()
	require.NoError(t, err)
	assert.Equal(t, "bob", g.Seats[g.Dealer].ID)
}

func TestBigBlindGetsOption(t *testing.T) {
	g := newTable(t, 1000, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	mustAct(t, g, "alice", Call, 0)
	mustAct(t, g, "bob", Call, 0)
	// Everyone has matched, but the big blind still owes a decision.
	assert.Equal(t, PreFlop, g.Stage)
	assert.Equal(t, "carol", g.Seats[g.Actor].ID)

	mustAct(t, g, "carol", Raise, 40)
	assert.Equal(t, "alice", g.Seats[g.Actor].ID)
	assert.Equal(t, PreFlop, g.Stage)
}

func TestSeatManagementOnlyBetweenHands(t *testing.T) {
	g := newTable(t, 1000, 1000)
	_, err := g.StartHand()
	require.NoError(t, err)

	_, err = g.AddSeat("carol", "carol", 500)
	assert.ErrorIs(t, err, ErrHandInProgress)
	assert.ErrorIs(t, g.RemoveSeat("bob"), ErrHandInProgress)

	mustAct(t, g, "alice", Fold, 0)
	s, err := g.AddSeat("carol", "carol", 500)
	require.NoError(t, err)
	assert.True(t, s.SittingOut)

	_, err = g.AddSeat("carol", "carol", 500)
	assert.ErrorIs(t, err, ErrDuplicateSeat)
}
