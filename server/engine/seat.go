package engine

// Seat is a player at the table. Index is the stable ordering key; all
// per-hand fields are cleared by StartHand.
type Seat struct {
	ID    string
	Name  string
	Index int
	Chips int

	Bet      int // contribution to the current street
	TotalBet int // cumulative contribution this hand, drives side pots
	Hole     []Card

	Folded       bool
	AllIn        bool
	Acted        bool
	SittingOut   bool
	Disconnected bool
}

// eligible reports whether the seat can be dealt into the next hand.
func (s *Seat) eligible() bool {
	return s.Chips > 0 && !s.Disconnected
}

// live: dealt in and not folded. Live seats contest the pot.
func (s *Seat) live() bool {
	return !s.SittingOut && !s.Folded
}

// actionable: live and still able to make decisions.
func (s *Seat) actionable() bool {
	return s.live() && !s.AllIn
}

func (s *Seat) resetForHand(sittingOut bool) {
	s.Bet = 0
	s.TotalBet = 0
	s.Hole = nil
	s.Folded = false
	s.AllIn = false
	s.Acted = false
	s.SittingOut = sittingOut
}
