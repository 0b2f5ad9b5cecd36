package engine

// Event is a domain event produced by a mutation. The engine never calls
// out; it returns its events and the orchestration layer relays them.
type Event interface {
	EventName() string
}

// HandStarted is emitted once per StartHand, after blinds and hole cards.
type HandStarted struct {
	HandNo     int
	Dealer     string   // seat id on the button
	SmallBlind string   // seat id, amount posted in Blinds
	BigBlind   string
	Blinds     [2]int
	InHand     []string // seat ids dealt in, clockwise from the dealer's left
}

func (HandStarted) EventName() string { return "hand_started" }

// ActionApplied is emitted for every accepted action, including forced
// street-closing consequences.
type ActionApplied struct {
	Action Action
	Pot    int
	Stage  Stage
}

func (ActionApplied) EventName() string { return "action_applied" }

// StageChanged is emitted when the hand moves to a new street. Revealed
// holds only the newly dealt community cards; Board is the full board.
type StageChanged struct {
	Stage    Stage
	Revealed []Card
	Board    []Card
}

func (StageChanged) EventName() string { return "stage_changed" }

// PotResult is one resolved pot at showdown.
type PotResult struct {
	Amount   int
	Eligible []string // seat ids
	Winners  []string // seat ids with the maximal hand
	Share    int      // even share per winner
	OddChips int      // leftover given to Winners[0]
}

// ShowdownResult carries the full reveal: every contested seat's hole
// cards and best hand, plus the pot breakdown.
type ShowdownResult struct {
	Hands map[string]HandValue // seat id -> best hand (live seats)
	Holes map[string][]Card    // seat id -> hole cards (all dealt-in seats)
	Board []Card
	Pots  []PotResult
}

func (ShowdownResult) EventName() string { return "showdown" }

// HandFinished is emitted after payout, uncontested or not.
type HandFinished struct {
	HandNo     int
	Uncontested bool
	Winner     string         // sole winner when uncontested, else ""
	Stacks     map[string]int // seat id -> chips after payout
	Deltas     map[string]int // seat id -> net chips for the hand
}

func (HandFinished) EventName() string { return "hand_finished" }
