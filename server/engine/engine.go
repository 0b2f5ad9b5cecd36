package engine

import (
	"errors"
	"fmt"
)

type Config struct {
	SB       int
	BB       int
	MaxSeats int
}

var (
	ErrHandInProgress = errors.New("hand in progress")
	ErrNotEnoughSeats = errors.New("need at least two funded, connected seats")
	ErrTableFull      = errors.New("table full")
	ErrDuplicateSeat  = errors.New("seat id already in use")
)

// Game is the betting state machine for one table. It performs no locking:
// exactly one caller at a time may mutate it, and snapshots must be taken
// between mutations, never during.
type Game struct {
	TableID string
	Cfg     Config
	Seats   []*Seat
	Deck    *Deck
	Board   []Card

	Stage      Stage
	Pot        int
	CurBet     int
	LastRaise  int // size of the last raise increment, min re-raise
	LastRaiser int // seat index, -1 when no raise is open this street
	Dealer     int // seat index, -1 before the first hand
	Actor      int // seat index whose turn it is, -1 when nobody acts
	HandNo     int

	startChips map[string]int
}

func New(tableID string, cfg Config, seed int64) *Game {
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 9
	}
	return &Game{
		TableID:    tableID,
		Cfg:        cfg,
		Deck:       NewDeck(seed),
		Stage:      Waiting,
		Dealer:     -1,
		Actor:      -1,
		LastRaiser: -1,
	}
}

// AddSeat joins a player between hands. The new seat sits out until the
// next StartHand.
func (g *Game) AddSeat(id, name string, chips int) (*Seat, error) {
	if g.Stage != Waiting && g.Stage != ShowdownStage {
		return nil, ErrHandInProgress
	}
	if len(g.Seats) >= g.Cfg.MaxSeats {
		return nil, ErrTableFull
	}
	if g.seatIndex(id) != -1 {
		return nil, ErrDuplicateSeat
	}
	s := &Seat{ID: id, Name: name, Index: len(g.Seats), Chips: chips, SittingOut: true}
	g.Seats = append(g.Seats, s)
	return s, nil
}

// RemoveSeat drops a player between hands, re-indexing the rest.
func (g *Game) RemoveSeat(id string) error {
	if g.Stage != Waiting && g.Stage != ShowdownStage {
		return ErrHandInProgress
	}
	i := g.seatIndex(id)
	if i == -1 {
		return fmt.Errorf("no seat %q", id)
	}
	g.Seats = append(g.Seats[:i], g.Seats[i+1:]...)
	for j, s := range g.Seats {
		s.Index = j
	}
	if g.Dealer >= len(g.Seats) {
		g.Dealer = len(g.Seats) - 1
	}
	return nil
}

// SetDisconnected records connection state. It never mutates the hand;
// the orchestration layer folds a disconnected actor through HandleAction.
func (g *Game) SetDisconnected(id string, down bool) {
	if i := g.seatIndex(id); i != -1 {
		g.Seats[i].Disconnected = down
	}
}

func (g *Game) SeatByID(id string) *Seat {
	if i := g.seatIndex(id); i != -1 {
		return g.Seats[i]
	}
	return nil
}

func (g *Game) seatIndex(id string) int {
	for i, s := range g.Seats {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// StartHand deals the next hand. It refuses, with no state change, unless
// at least two seats are funded and connected.
func (g *Game) StartHand() ([]Event, error) {
	if g.Stage != Waiting && g.Stage != ShowdownStage {
		return nil, ErrHandInProgress
	}
	eligible := 0
	for _, s := range g.Seats {
		if s.eligible() {
			eligible++
		}
	}
	if eligible < 2 {
		return nil, ErrNotEnoughSeats
	}

	g.HandNo++
	g.Board = nil
	g.Pot = 0
	g.CurBet = 0
	g.Deck.Reset()
	g.startChips = make(map[string]int, len(g.Seats))
	for _, s := range g.Seats {
		s.resetForHand(!s.eligible())
		g.startChips[s.ID] = s.Chips
	}

	g.Dealer = g.nextWhere(g.Dealer+1, (*Seat).live)
	inHand := 0
	for _, s := range g.Seats {
		if !s.SittingOut {
			inHand++
		}
	}

	var sbIdx, bbIdx int
	if inHand == 2 {
		sbIdx = g.Dealer
		bbIdx = g.nextWhere(sbIdx+1, (*Seat).live)
	} else {
		sbIdx = g.nextWhere(g.Dealer+1, (*Seat).live)
		bbIdx = g.nextWhere(sbIdx+1, (*Seat).live)
	}
	g.postBlind(g.Seats[sbIdx], g.Cfg.SB)
	g.postBlind(g.Seats[bbIdx], g.Cfg.BB)

	order := g.handOrder()
	for _, i := range order {
		g.Seats[i].Hole = g.Deck.Deal(2)
	}

	g.Stage = PreFlop
	g.LastRaise = g.Cfg.BB
	g.LastRaiser = bbIdx

	started := HandStarted{
		HandNo:     g.HandNo,
		Dealer:     g.Seats[g.Dealer].ID,
		SmallBlind: g.Seats[sbIdx].ID,
		BigBlind:   g.Seats[bbIdx].ID,
		Blinds:     [2]int{g.Cfg.SB, g.Cfg.BB},
		InHand:     g.seatIDs(order),
	}
	events := []Event{started}

	// Blinds can put everyone all-in before anyone acts.
	next := g.nextPending(bbIdx + 1)
	if next == -1 {
		g.Actor = -1
		return append(events, g.closeRound()...), nil
	}
	g.Actor = next
	return events, nil
}

// HandleAction applies one action for the acting seat. Illegal attempts
// return a Rejection and mutate nothing.
func (g *Game) HandleAction(seatID string, kind ActionKind, amount int) ([]Event, *Rejection) {
	i := g.seatIndex(seatID)
	if i == -1 {
		return nil, reject(RejectUnknownSeat, seatID)
	}
	if g.Stage < PreFlop || g.Stage > River {
		return nil, reject(RejectBadStage, g.Stage.String())
	}
	s := g.Seats[i]
	if s.SittingOut || s.Folded || s.AllIn {
		return nil, reject(RejectNotInHand, seatID)
	}
	if i != g.Actor {
		return nil, reject(RejectOutOfTurn, seatID)
	}

	rec := Action{Seat: seatID, Kind: kind}
	switch kind {
	case Fold:
		s.Folded = true

	case Check:
		if s.Bet != g.CurBet {
			return nil, reject(RejectCannotCheck, fmt.Sprintf("%d to call", g.CurBet-s.Bet))
		}

	case Call:
		need := g.CurBet - s.Bet
		if need <= 0 {
			return nil, reject(RejectNothingToCall, "")
		}
		rec.Amount = g.commit(s, need)
		rec.AllIn = s.AllIn

	case Raise:
		maxTo := s.Bet + s.Chips
		if amount <= g.CurBet {
			return nil, reject(RejectRaiseTooSmall, fmt.Sprintf("must exceed %d", g.CurBet))
		}
		if amount > maxTo {
			return nil, reject(RejectShortStacked, fmt.Sprintf("max raise-to %d", maxTo))
		}
		minTo := g.CurBet + g.LastRaise
		if amount < minTo && amount != maxTo {
			return nil, reject(RejectRaiseTooSmall, fmt.Sprintf("min raise-to %d", minTo))
		}
		prev := g.CurBet
		g.commit(s, amount-s.Bet)
		g.maybeReopen(i, s.Bet-prev)
		rec.Amount = amount
		rec.AllIn = s.AllIn

	case AllIn:
		if s.Chips == 0 {
			return nil, reject(RejectNotInHand, "no chips behind")
		}
		prev := g.CurBet
		g.commit(s, s.Chips)
		if s.Bet > prev {
			g.maybeReopen(i, s.Bet-prev)
		}
		rec.Amount = s.Bet
		rec.AllIn = true

	default:
		return nil, reject(RejectUnknownKind, string(kind))
	}
	s.Acted = true

	events := []Event{ActionApplied{Action: rec, Pot: g.Pot, Stage: g.Stage}}
	return append(events, g.afterAction()...), nil
}

// maybeReopen re-opens betting when a raise or all-in increases the bet
// by at least the last raise increment. A short all-in does not: seats
// that already acted stay closed.
func (g *Game) maybeReopen(actor, increase int) {
	if increase < g.LastRaise {
		return
	}
	g.LastRaise = increase
	g.LastRaiser = actor
	for j, o := range g.Seats {
		if j != actor && o.actionable() {
			o.Acted = false
		}
	}
}

func (g *Game) afterAction() []Event {
	if g.countWhere((*Seat).live) <= 1 {
		return g.awardUncontested()
	}
	if next := g.nextPending(g.Actor + 1); next != -1 {
		g.Actor = next
		return nil
	}
	return g.closeRound()
}

// closeRound runs when no seat has a pending decision on this street.
func (g *Game) closeRound() []Event {
	if g.countWhere((*Seat).actionable) <= 1 {
		return g.runOut()
	}
	if g.Stage == River {
		return g.showdown()
	}
	events := []Event{g.advanceStage()}
	g.Actor = g.nextWhere(g.Dealer+1, (*Seat).actionable)
	return events
}

// runOut deals the remaining streets with no further input, then shows
// down.
func (g *Game) runOut() []Event {
	g.Actor = -1
	var events []Event
	for g.Stage < River {
		events = append(events, g.advanceStage())
	}
	return append(events, g.showdown()...)
}

func (g *Game) advanceStage() Event {
	for _, s := range g.Seats {
		s.Bet = 0
		s.Acted = false
	}
	g.CurBet = 0
	g.LastRaise = g.Cfg.BB
	g.LastRaiser = -1

	g.Deck.Burn()
	n := 1
	if g.Stage == PreFlop {
		n = 3
	}
	revealed := g.Deck.Deal(n)
	g.Board = append(g.Board, revealed...)
	g.Stage++
	board := make([]Card, len(g.Board))
	copy(board, g.Board)
	return StageChanged{Stage: g.Stage, Revealed: revealed, Board: board}
}

func (g *Game) awardUncontested() []Event {
	g.Actor = -1
	w := g.nextWhere(g.Dealer+1, (*Seat).live)
	winner := g.Seats[w]
	winner.Chips += g.Pot
	g.Pot = 0
	g.Stage = Waiting
	return []Event{g.handFinished(true, winner.ID)}
}

func (g *Game) handFinished(uncontested bool, winner string) Event {
	fin := HandFinished{
		HandNo:      g.HandNo,
		Uncontested: uncontested,
		Winner:      winner,
		Stacks:      make(map[string]int, len(g.Seats)),
		Deltas:      make(map[string]int, len(g.Seats)),
	}
	for _, s := range g.Seats {
		fin.Stacks[s.ID] = s.Chips
		fin.Deltas[s.ID] = s.Chips - g.startChips[s.ID]
	}
	return fin
}

// commit moves up to amt chips from the seat into the pot, clamping to
// the stack and flagging all-in when it empties.
func (g *Game) commit(s *Seat, amt int) int {
	if amt >= s.Chips {
		amt = s.Chips
		s.AllIn = true
	}
	s.Chips -= amt
	s.Bet += amt
	s.TotalBet += amt
	g.Pot += amt
	if s.Bet > g.CurBet {
		g.CurBet = s.Bet
	}
	return amt
}

func (g *Game) postBlind(s *Seat, amt int) {
	g.commit(s, amt)
}

// handOrder returns in-hand seat indexes clockwise from the dealer's
// left, dealer last.
func (g *Game) handOrder() []int {
	n := len(g.Seats)
	order := make([]int, 0, n)
	for k := 1; k <= n; k++ {
		i := (g.Dealer + k) % n
		if !g.Seats[i].SittingOut {
			order = append(order, i)
		}
	}
	return order
}

func (g *Game) seatIDs(idxs []int) []string {
	out := make([]string, len(idxs))
	for i, j := range idxs {
		out[i] = g.Seats[j].ID
	}
	return out
}

// nextWhere scans clockwise from the given index (wrapping) for a seat
// matching pred, returning -1 if none.
func (g *Game) nextWhere(from int, pred func(*Seat) bool) int {
	n := len(g.Seats)
	if n == 0 {
		return -1
	}
	for k := 0; k < n; k++ {
		i := ((from + k) % n + n) % n
		if pred(g.Seats[i]) {
			return i
		}
	}
	return -1
}

// nextPending finds the next seat that still owes a decision this street.
func (g *Game) nextPending(from int) int {
	return g.nextWhere(from, func(s *Seat) bool {
		return s.actionable() && !s.Acted
	})
}

func (g *Game) countWhere(pred func(*Seat) bool) int {
	n := 0
	for _, s := range g.Seats {
		if pred(s) {
			n++
		}
	}
	return n
}
