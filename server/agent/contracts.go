package agent

import (
	"fmt"

	"card-room/server/engine"
)

// Observation is the JSON view of one seat's decision point, as sent to
// the advisory model and logged with every automated action.
type Observation struct {
	TableID    string         `json:"table_id"`
	HandNo     int            `json:"hand_no"`
	Seat       string         `json:"seat"`
	Position   string         `json:"position"`
	Street     string         `json:"street"`
	HoleCards  []string       `json:"hole_cards"`
	Board      []string       `json:"board"`
	Stacks     map[string]int `json:"stacks"` // chips behind, per live seat
	Blinds     map[string]int `json:"blinds"`
	Pot        int            `json:"pot"`
	ToCall     int            `json:"to_call"`
	MinRaiseTo int            `json:"min_raise_to"` // absolute raise-to
	MaxRaiseTo int            `json:"max_raise_to"` // absolute raise-to (all-in)
	Legal      []string       `json:"legal_actions"`
	Equity     *float64       `json:"equity,omitempty"` // estimated showdown equity, when computed
}

// ActionOut is a decided action flowing back through the orchestration
// boundary. Provenance records how it was produced; it has no effect on
// legality.
type ActionOut struct {
	Action     string `json:"action"`
	Amount     *int   `json:"amount,omitempty"`     // raise-to; required for raise
	Provenance string `json:"provenance,omitempty"` // sampled | advised | fallback
	Comment    string `json:"comment,omitempty"`
}

const (
	ProvenanceSampled  = "sampled"
	ProvenanceAdvised  = "advised"
	ProvenanceFallback = "fallback"
)

// BuildObservation flattens a seat snapshot into the observation wire
// form.
func BuildObservation(snap engine.Snapshot) Observation {
	o := Observation{
		TableID:   snap.TableID,
		HandNo:    snap.HandNo,
		Seat:      snap.Hero,
		Position:  snap.Position,
		Street:    snap.Stage,
		HoleCards: snap.Hole,
		Board:     snap.Board,
		Stacks:    map[string]int{},
		Blinds:    map[string]int{"sb": snap.SB, "bb": snap.BB},
		Pot:       snap.Pot,
		ToCall:    snap.ToCall,
	}
	for _, s := range snap.Seats {
		if !s.SittingOut && !s.Folded {
			o.Stacks[s.ID] = s.Chips
		}
	}
	for _, la := range snap.Legal {
		o.Legal = append(o.Legal, string(la.Kind))
		if la.Kind == engine.Raise {
			o.MinRaiseTo = la.Min
			o.MaxRaiseTo = la.Max
		}
	}
	return o
}

// Validate checks a decided action against the observation it was made
// from, using the same rules the engine enforces.
func Validate(o Observation, a ActionOut) error {
	ok := false
	for _, la := range o.Legal {
		if la == a.Action {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("illegal action %q (legal: %v)", a.Action, o.Legal)
	}
	if a.Action == string(engine.Raise) {
		if a.Amount == nil {
			return fmt.Errorf("raise requires an amount")
		}
		if *a.Amount < o.MinRaiseTo || *a.Amount > o.MaxRaiseTo {
			return fmt.Errorf("raise-to %d outside [%d, %d]", *a.Amount, o.MinRaiseTo, o.MaxRaiseTo)
		}
	}
	return nil
}
