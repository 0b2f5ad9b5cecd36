package engine

// LegalAction is one legal move for the acting seat, with its numeric
// bounds. Amount is the exact cost of a call; Min/Max bound a raise-to.
type LegalAction struct {
	Kind   ActionKind `json:"action"`
	Amount int        `json:"amount,omitempty"`
	Min    int        `json:"min,omitempty"`
	Max    int        `json:"max,omitempty"`
}

// SeatView is one seat as visible to a particular observer; Hole is empty
// unless it is the observer's own seat or the hand reached showdown.
type SeatView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Index      int      `json:"index"`
	Chips      int      `json:"chips"`
	Bet        int      `json:"bet"`
	TotalBet   int      `json:"total_bet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	SittingOut bool     `json:"sitting_out"`
	Hole       []string `json:"hole,omitempty"`
}

// Snapshot is a read-only view of the game for one seat. It is rebuilt
// from scratch on every call and safe to hand across the orchestration
// boundary.
type Snapshot struct {
	TableID  string        `json:"table_id"`
	HandNo   int           `json:"hand_no"`
	Stage    string        `json:"stage"`
	Board    []string      `json:"board"`
	Pot      int           `json:"pot"`
	CurBet   int           `json:"current_bet"`
	SB       int           `json:"sb"`
	BB       int           `json:"bb"`
	Dealer   string        `json:"dealer,omitempty"`
	Actor    string        `json:"actor,omitempty"`
	Seats    []SeatView    `json:"seats"`
	Hero     string        `json:"hero,omitempty"` // the seat this view is for
	Hole     []string      `json:"hole,omitempty"`
	ToCall   int           `json:"to_call"`
	Legal    []LegalAction `json:"legal_actions,omitempty"`
	Position string        `json:"position,omitempty"`
}

// Snapshot builds the view for forSeatID ("" for a spectator). Other
// seats' hole cards are redacted except at showdown.
func (g *Game) Snapshot(forSeatID string) Snapshot {
	snap := Snapshot{
		TableID: g.TableID,
		HandNo:  g.HandNo,
		Stage:   g.Stage.String(),
		Board:   cardStrings(g.Board),
		Pot:     g.Pot,
		CurBet:  g.CurBet,
		SB:      g.Cfg.SB,
		BB:      g.Cfg.BB,
		Hero:    forSeatID,
	}
	if g.Dealer >= 0 && g.Dealer < len(g.Seats) {
		snap.Dealer = g.Seats[g.Dealer].ID
	}
	if g.Actor != -1 {
		snap.Actor = g.Seats[g.Actor].ID
	}

	reveal := g.Stage == ShowdownStage
	for _, s := range g.Seats {
		view := SeatView{
			ID:         s.ID,
			Name:       s.Name,
			Index:      s.Index,
			Chips:      s.Chips,
			Bet:        s.Bet,
			TotalBet:   s.TotalBet,
			Folded:     s.Folded,
			AllIn:      s.AllIn,
			SittingOut: s.SittingOut,
		}
		if s.ID == forSeatID || (reveal && s.live()) {
			view.Hole = cardStrings(s.Hole)
		}
		snap.Seats = append(snap.Seats, view)
	}

	if i := g.seatIndex(forSeatID); i != -1 {
		s := g.Seats[i]
		snap.Hole = cardStrings(s.Hole)
		if toCall := g.CurBet - s.Bet; toCall > 0 {
			snap.ToCall = toCall
		}
		snap.Legal = g.LegalActions(forSeatID)
		snap.Position = g.position(i)
	}
	return snap
}

// LegalActions enumerates the legal moves for a seat right now. Empty
// unless it is that seat's turn in a betting stage.
func (g *Game) LegalActions(seatID string) []LegalAction {
	i := g.seatIndex(seatID)
	if i == -1 || i != g.Actor || g.Stage < PreFlop || g.Stage > River {
		return nil
	}
	s := g.Seats[i]
	if !s.actionable() {
		return nil
	}

	legal := []LegalAction{{Kind: Fold}}
	toCall := g.CurBet - s.Bet
	if toCall <= 0 {
		legal = append(legal, LegalAction{Kind: Check})
	} else {
		amt := toCall
		if amt > s.Chips {
			amt = s.Chips
		}
		legal = append(legal, LegalAction{Kind: Call, Amount: amt})
	}
	maxTo := s.Bet + s.Chips
	if maxTo > g.CurBet {
		minTo := g.CurBet + g.LastRaise
		if minTo > maxTo {
			minTo = maxTo // all-in for less than a full raise
		}
		legal = append(legal, LegalAction{Kind: Raise, Min: minTo, Max: maxTo})
	}
	if s.Chips > 0 {
		legal = append(legal, LegalAction{Kind: AllIn, Amount: s.Chips})
	}
	return legal
}

// position labels a seat's table position for the decision layer: the
// blinds, then early/middle/late thirds of the remaining order, with the
// button always late.
func (g *Game) position(i int) string {
	order := g.handOrder() // clockwise from dealer's left, dealer last
	pos := -1
	for k, j := range order {
		if j == i {
			pos = k
			break
		}
	}
	if pos == -1 {
		return ""
	}
	n := len(order)
	if n == 2 {
		if i == g.Dealer {
			return "late"
		}
		return "blind"
	}
	switch {
	case pos < 2:
		return "blind"
	case i == g.Dealer || pos >= n-2:
		return "late"
	case pos-2 < (n-4+1)/2:
		return "early"
	default:
		return "middle"
	}
}
