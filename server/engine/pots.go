package engine

import "sort"

// pot is one slice of the chips at stake, restricted to the seats whose
// hand contribution reached its level.
type pot struct {
	amount   int
	eligible []int // seat indexes
}

// buildPots groups contributions by distinct levels, ascending, and
// merges slices whose eligible sets coincide. Conservation: the pot
// amounts always sum to the chips contributed this hand.
func (g *Game) buildPots() []pot {
	levelSet := map[int]bool{}
	for _, s := range g.Seats {
		if s.TotalBet > 0 {
			levelSet[s.TotalBet] = true
		}
	}
	levels := make([]int, 0, len(levelSet))
	for l := range levelSet {
		levels = append(levels, l)
	}
	sort.Ints(levels)

	var pots []pot
	prev := 0
	for _, level := range levels {
		p := pot{}
		for i, s := range g.Seats {
			if s.TotalBet < level {
				continue
			}
			p.amount += level - prev
			if s.live() {
				p.eligible = append(p.eligible, i)
			}
		}
		if len(p.eligible) == 0 {
			// Everybody at this level folded; return the slice to its
			// contributors rather than lose it.
			for i, s := range g.Seats {
				if s.TotalBet >= level {
					p.eligible = append(p.eligible, i)
				}
			}
		}
		if len(pots) > 0 && sameSeats(pots[len(pots)-1].eligible, p.eligible) {
			pots[len(pots)-1].amount += p.amount
		} else {
			pots = append(pots, p)
		}
		prev = level
	}
	return pots
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// showdown resolves every pot against the hand comparator and pays the
// winners. Odd chips go to the first tied winner clockwise from the
// dealer's left, chosen independently per pot.
func (g *Game) showdown() []Event {
	g.Stage = ShowdownStage
	g.Actor = -1

	hands := map[string]HandValue{}
	holes := map[string][]Card{}
	for _, s := range g.Seats {
		if s.SittingOut {
			continue
		}
		holes[s.ID] = s.Hole
		v, err := Evaluate(append(append([]Card{}, s.Hole...), g.Board...))
		if err == nil {
			hands[s.ID] = v
		}
	}

	result := ShowdownResult{
		Hands: hands,
		Holes: holes,
		Board: append([]Card{}, g.Board...),
	}
	for _, p := range g.buildPots() {
		result.Pots = append(result.Pots, g.payPot(p, hands))
	}
	g.Pot = 0

	return []Event{result, g.handFinished(false, "")}
}

func (g *Game) payPot(p pot, hands map[string]HandValue) PotResult {
	var winners []int
	var best HandValue
	for _, i := range g.seatOrderFromDealer(p.eligible) {
		v, ok := hands[g.Seats[i].ID]
		if !ok {
			continue
		}
		switch {
		case len(winners) == 0:
			winners = []int{i}
			best = v
		default:
			switch CompareHands(v, best) {
			case 1:
				winners = []int{i}
				best = v
			case 0:
				winners = append(winners, i)
			}
		}
	}
	if len(winners) == 0 {
		// Defensive: eligible seats always hold cards once dealt in.
		winners = p.eligible
	}

	share := p.amount / len(winners)
	odd := p.amount % len(winners)
	for _, i := range winners {
		g.Seats[i].Chips += share
	}
	// winners is already in seating order from the dealer's left, so the
	// remainder lands on the first of them.
	g.Seats[winners[0]].Chips += odd

	return PotResult{
		Amount:   p.amount,
		Eligible: g.seatIDs(p.eligible),
		Winners:  g.seatIDs(winners),
		Share:    share,
		OddChips: odd,
	}
}

// seatOrderFromDealer reorders seat indexes clockwise starting at the
// dealer's left.
func (g *Game) seatOrderFromDealer(idxs []int) []int {
	n := len(g.Seats)
	out := make([]int, 0, len(idxs))
	for k := 1; k <= n; k++ {
		i := (g.Dealer + k) % n
		for _, j := range idxs {
			if j == i {
				out = append(out, i)
				break
			}
		}
	}
	return out
}
