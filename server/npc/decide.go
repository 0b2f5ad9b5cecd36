package npc

import (
	"fmt"
	"math/rand"

	"card-room/server/agent"
	"card-room/server/engine"
)

// Decision is the sampled action for the acting seat, plus enough
// context for the advisory layer to nudge it and for callers to log the
// mix it was drawn from.
type Decision struct {
	Kind       engine.ActionKind
	Amount     int // raise-to when Kind is Raise
	Provenance string
	Comment    string

	// Mix is the normalized action distribution the decision was sampled
	// from; illegal actions carry weight zero.
	Mix map[engine.ActionKind]float64

	Strength float64

	// RaiseMin/RaiseMax bound any advisory resize of a sampled raise.
	RaiseMin int
	RaiseMax int
}

// Quality tiers over the 0..1 strength estimate, strongest first. Each
// tier carries the base fold/check/call/raise weights.
var tiers = []struct {
	floor   float64
	weights [4]float64 // fold, check, call, raise
}{
	{0.8, [4]float64{0.01, 0.15, 0.24, 0.60}},
	{0.7, [4]float64{0.05, 0.20, 0.35, 0.40}},
	{0.5, [4]float64{0.15, 0.35, 0.30, 0.20}},
	{0.3, [4]float64{0.35, 0.35, 0.22, 0.08}},
	{0.0, [4]float64{0.55, 0.35, 0.07, 0.03}},
}

var postflopStrength = map[engine.HandCategory]float64{
	engine.HighCard:      0.15,
	engine.OnePair:       0.35,
	engine.TwoPair:       0.55,
	engine.Trips:         0.70,
	engine.Straight:      0.80,
	engine.Flush:         0.85,
	engine.FullHouse:     0.92,
	engine.Quads:         0.97,
	engine.StraightFlush: 1.0,
	engine.RoyalFlush:    1.0,
}

// HandStrength estimates the hero's hand quality on a 0..1 scale.
// Preflop it is a closed-form score over ranks, suitedness and
// connectedness; postflop it is a lookup on the made-hand category.
func HandStrength(snap engine.Snapshot) float64 {
	hole := parseAll(snap.Hole)
	if len(hole) != 2 {
		return 0
	}
	if len(snap.Board) == 0 {
		return preflopStrength(hole[0], hole[1])
	}
	hv, err := engine.Evaluate(append(hole, parseAll(snap.Board)...))
	if err != nil {
		return 0
	}
	return postflopStrength[hv.Category()]
}

func preflopStrength(a, b engine.Card) float64 {
	hi, lo := a.Rank, b.Rank
	if lo > hi {
		hi, lo = lo, hi
	}
	s := float64(hi)/14*0.35 + float64(lo)/14*0.15
	switch {
	case hi == lo:
		s += 0.35
	case hi-lo == 1:
		s += 0.07
	case hi-lo == 2:
		s += 0.03
	}
	if a.Suit == b.Suit && hi != lo {
		s += 0.08
	}
	if s > 1 {
		s = 1
	}
	return s
}

func parseAll(ss []string) []engine.Card {
	out := make([]engine.Card, 0, len(ss))
	for _, s := range ss {
		c, err := engine.ParseCard(s)
		if err != nil {
			return nil
		}
		out = append(out, c)
	}
	return out
}

// Weights computes the final normalized action mix for the snapshot
// without sampling from it. Exposed separately so the distribution
// itself can be inspected.
func Weights(snap engine.Snapshot, p Personality) (map[engine.ActionKind]float64, float64) {
	strength := HandStrength(snap)

	var w [4]float64
	for _, t := range tiers {
		if strength >= t.floor {
			w = t.weights
			break
		}
	}

	w[0] *= p.FoldMult
	w[1] *= p.CheckMult
	w[2] *= p.CallMult
	w[3] *= p.RaiseMult

	if snap.Position == "late" {
		w[3] *= 1.25
	}

	if snap.ToCall > 0 && snap.Pot+snap.ToCall > 0 {
		price := float64(snap.ToCall) / float64(snap.Pot+snap.ToCall)
		switch {
		case price > 0.4:
			w[0] *= 1 + price
		case price < 0.15:
			w[2] *= 1.3
		}
	}

	// Under five big blinds the middle of the range disappears: the
	// check/call mass is split between shove and fold.
	if hero := heroSeat(snap); hero != nil && snap.BB > 0 && hero.Chips+hero.Bet < 5*snap.BB {
		denom := w[0] + w[3]
		if denom <= 0 {
			w[0], denom = 1, 1
		}
		mid := w[1] + w[2]
		w[0] += mid * w[0] / denom
		w[3] += mid * w[3] / denom
		w[1], w[2] = 0, 0
	}

	// Mass on illegal actions moves to the nearest legal sibling. The
	// engine never offers both a check and a call, so exactly one of the
	// two shifts is a no-op.
	hasCheck, hasCall, hasRaise := legalKinds(snap.Legal)
	if !hasCheck {
		w[2] += w[1]
		w[1] = 0
	}
	if !hasCall {
		w[1] += w[2]
		w[2] = 0
	}
	if !hasRaise {
		switch {
		case hasCall:
			w[2] += w[3]
		case hasCheck:
			w[1] += w[3]
		default:
			w[0] += w[3]
		}
		w[3] = 0
	}
	if !hasCheck && !hasCall {
		w[0] += w[1] + w[2]
		w[1], w[2] = 0, 0
	}

	sum := w[0] + w[1] + w[2] + w[3]
	if sum <= 0 {
		w = [4]float64{1, 0, 0, 0}
		sum = 1
	}
	mix := map[engine.ActionKind]float64{
		engine.Fold:  w[0] / sum,
		engine.Check: w[1] / sum,
		engine.Call:  w[2] / sum,
		engine.Raise: w[3] / sum,
	}
	return mix, strength
}

// Decide samples an action for the acting seat from the
// personality-adjusted mix, sizes any raise, and falls back through
// check, call, fold if the sample is not in the legal set.
func Decide(snap engine.Snapshot, p Personality, rng *rand.Rand) Decision {
	mix, strength := Weights(snap, p)

	d := Decision{
		Provenance: agent.ProvenanceSampled,
		Mix:        mix,
		Strength:   strength,
	}

	r := rng.Float64()
	cum := 0.0
	for _, k := range []engine.ActionKind{engine.Fold, engine.Check, engine.Call, engine.Raise} {
		cum += mix[k]
		if r < cum {
			d.Kind = k
			break
		}
	}
	if d.Kind == "" {
		d.Kind = engine.Raise // float drift on the last bucket
	}

	if d.Kind == engine.Raise {
		min, max, ok := raiseBand(snap.Legal)
		if !ok {
			d.Kind = engine.Fold // mix should have been zero; be safe
		} else {
			d.Amount = sizeRaise(snap, p, rng, min, max)
			d.RaiseMin, d.RaiseMax = min, max
		}
	}

	if !legal(snap.Legal, d.Kind) {
		for _, k := range []engine.ActionKind{engine.Check, engine.Call, engine.Fold} {
			if legal(snap.Legal, k) {
				d.Kind = k
				d.Amount = 0
				d.Provenance = agent.ProvenanceFallback
				break
			}
		}
	}
	return d
}

// sizeRaise picks a pot-fraction tier from the personality's table,
// jitters it, rounds to the big blind and clamps into the legal band.
func sizeRaise(snap engine.Snapshot, p Personality, rng *rand.Rand, min, max int) int {
	frac := 0.75
	total := 0.0
	for _, t := range p.Sizing {
		total += t.Weight
	}
	if total > 0 {
		r := rng.Float64() * total
		for _, t := range p.Sizing {
			r -= t.Weight
			if r < 0 {
				frac = t.PotFraction
				break
			}
		}
	}

	jitter := p.JitterLow + rng.Float64()*(p.JitterHigh-p.JitterLow)
	to := float64(snap.CurBet) + frac*float64(snap.Pot+snap.ToCall)*jitter

	amt := int(to)
	if snap.BB > 0 {
		amt = (amt + snap.BB/2) / snap.BB * snap.BB
	}
	if amt < min {
		amt = min
	}
	if amt > max {
		amt = max
	}
	return amt
}

// ApplyAdvice folds an advisory result into a sampled decision. Advice
// may attach a comment and, for a raise, resize it inside the legal
// band; it can never change the action kind, and out-of-band amounts
// are ignored.
func ApplyAdvice(d Decision, amount *int, comment string) Decision {
	advised := false
	if comment != "" {
		d.Comment = comment
		advised = true
	}
	if d.Kind == engine.Raise && amount != nil &&
		*amount >= d.RaiseMin && *amount <= d.RaiseMax {
		d.Amount = *amount
		advised = true
	}
	if advised && d.Provenance == agent.ProvenanceSampled {
		d.Provenance = agent.ProvenanceAdvised
	}
	return d
}

// Action converts a decision into the engine's action form for seatID.
func (d Decision) Action(seatID string) engine.Action {
	a := engine.Action{Seat: seatID, Kind: d.Kind}
	if d.Kind == engine.Raise {
		a.Amount = d.Amount
	}
	return a
}

func (d Decision) String() string {
	if d.Kind == engine.Raise {
		return fmt.Sprintf("raise to %d (%s)", d.Amount, d.Provenance)
	}
	return fmt.Sprintf("%s (%s)", d.Kind, d.Provenance)
}

func heroSeat(snap engine.Snapshot) *engine.SeatView {
	for i := range snap.Seats {
		if snap.Seats[i].ID == snap.Hero && snap.Hero != "" {
			return &snap.Seats[i]
		}
	}
	return nil
}

func legalKinds(legal []engine.LegalAction) (check, call, raise bool) {
	for _, l := range legal {
		switch l.Kind {
		case engine.Check:
			check = true
		case engine.Call:
			call = true
		case engine.Raise:
			raise = true
		}
	}
	return
}

func legal(legalSet []engine.LegalAction, k engine.ActionKind) bool {
	for _, l := range legalSet {
		if l.Kind == k {
			return true
		}
	}
	return false
}

func raiseBand(legal []engine.LegalAction) (min, max int, ok bool) {
	for _, l := range legal {
		if l.Kind == engine.Raise {
			return l.Min, l.Max, true
		}
	}
	return 0, 0, false
}
