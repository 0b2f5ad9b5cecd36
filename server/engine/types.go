package engine

// Stage is the hand's betting state. Waiting and ShowdownStage are the
// only stages in which no seat may act.
type Stage int

const (
	Waiting Stage = iota
	PreFlop
	Flop
	Turn
	River
	ShowdownStage
)

func (s Stage) String() string {
	return [...]string{"waiting", "preflop", "flop", "turn", "river", "showdown"}[s]
}

type ActionKind string

const (
	Fold  ActionKind = "fold"
	Check ActionKind = "check"
	Call  ActionKind = "call"
	Raise ActionKind = "raise"
	AllIn ActionKind = "allin"
)

// Action is a completed, accepted action as recorded in the hand history.
type Action struct {
	Seat   string     `json:"seat"`
	Kind   ActionKind `json:"action"`
	Amount int        `json:"to,omitempty"` // raise-to / chips moved, depending on kind
	AllIn  bool       `json:"all_in,omitempty"`
}

// RejectReason classifies why HandleAction refused an action. Rejections
// leave the game untouched; the caller re-prompts.
type RejectReason string

const (
	RejectUnknownSeat  RejectReason = "unknown_seat"
	RejectBadStage     RejectReason = "bad_stage"
	RejectOutOfTurn    RejectReason = "out_of_turn"
	RejectNotInHand    RejectReason = "not_in_hand"
	RejectCannotCheck  RejectReason = "cannot_check"
	RejectNothingToCall RejectReason = "nothing_to_call"
	RejectRaiseTooSmall RejectReason = "raise_too_small"
	RejectShortStacked RejectReason = "short_stacked"
	RejectUnknownKind  RejectReason = "unknown_action"
)

// Rejection is the structured refusal returned for illegal actions.
type Rejection struct {
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail,omitempty"`
}

func reject(r RejectReason, detail string) *Rejection {
	return &Rejection{Reason: r, Detail: detail}
}
