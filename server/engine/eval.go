package engine

import (
	"fmt"
	"sort"
)

// HandCategory is the coarse strength class of a 5-card hand. Categories
// 1..9 are the comparable range; RoyalFlush is a display label for an
// ace-high straight flush and never appears inside a comparison tuple.
type HandCategory int

const (
	HighCard HandCategory = iota + 1
	OnePair
	TwoPair
	Trips
	Straight
	Flush
	FullHouse
	Quads
	StraightFlush
	RoyalFlush
)

func (c HandCategory) String() string {
	switch c {
	case HighCard:
		return "high card"
	case OnePair:
		return "pair"
	case TwoPair:
		return "two pair"
	case Trips:
		return "three of a kind"
	case Straight:
		return "straight"
	case Flush:
		return "flush"
	case FullHouse:
		return "full house"
	case Quads:
		return "four of a kind"
	case StraightFlush:
		return "straight flush"
	case RoyalFlush:
		return "royal flush"
	}
	return "unknown"
}

// HandValue is the total order over hands: Tuple compares
// lexicographically, category first, then tiebreak ranks. Best holds the
// literal five cards that produced the tuple.
type HandValue struct {
	Tuple []int
	Best  []Card
}

// Category labels the value for display, promoting an ace-high straight
// flush to RoyalFlush.
func (v HandValue) Category() HandCategory {
	if len(v.Tuple) == 0 {
		return 0
	}
	c := HandCategory(v.Tuple[0])
	if c == StraightFlush && len(v.Tuple) > 1 && v.Tuple[1] == 14 {
		return RoyalFlush
	}
	return c
}

// CompareHands orders two hand values: -1, 0 or 1 as a is worse than,
// equal to, or better than b. Ties are true ties.
func CompareHands(a, b HandValue) int {
	for i := 0; i < len(a.Tuple) && i < len(b.Tuple); i++ {
		if a.Tuple[i] != b.Tuple[i] {
			if a.Tuple[i] < b.Tuple[i] {
				return -1
			}
			return 1
		}
	}
	// Equal prefixes of differing length cannot happen between valid
	// 5-card tuples of the same category.
	return 0
}

// Evaluate scores 5 to 7 cards by trying every 5-card subset and keeping
// the best.
func Evaluate(cards []Card) (HandValue, error) {
	n := len(cards)
	if n < 5 || n > 7 {
		return HandValue{}, fmt.Errorf("evaluate needs 5-7 cards, got %d", n)
	}
	if n == 5 {
		five := make([]Card, 5)
		copy(five, cards)
		return HandValue{Tuple: evaluate5(five), Best: five}, nil
	}

	var best HandValue
	idx := [5]int{}
	var rec func(start, k int)
	rec = func(start, k int) {
		if k == 5 {
			five := make([]Card, 5)
			for i, ci := range idx {
				five[i] = cards[ci]
			}
			v := HandValue{Tuple: evaluate5(five), Best: five}
			if best.Tuple == nil || CompareHands(v, best) > 0 {
				best = v
			}
			return
		}
		for i := start; i <= n-(5-k); i++ {
			idx[k] = i
			rec(i+1, k+1)
		}
	}
	rec(0, 0)
	return best, nil
}

// evaluate5 builds the comparison tuple for exactly five cards.
func evaluate5(cards []Card) []int {
	ranks := make([]int, 5)
	flush := true
	for i, c := range cards {
		ranks[i] = c.Rank
		if c.Suit != cards[0].Suit {
			flush = false
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ranks)))

	straightHigh := straightHighCard(ranks)

	if flush && straightHigh > 0 {
		return []int{int(StraightFlush), straightHigh}
	}

	// Rank groups sorted by count desc, then rank desc.
	counts := map[int]int{}
	for _, r := range ranks {
		counts[r]++
	}
	type group struct{ rank, count int }
	groups := make([]group, 0, len(counts))
	for r, c := range counts {
		groups = append(groups, group{r, c})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	switch {
	case groups[0].count == 4:
		return []int{int(Quads), groups[0].rank, groups[1].rank}
	case groups[0].count == 3 && groups[1].count == 2:
		return []int{int(FullHouse), groups[0].rank, groups[1].rank}
	case flush:
		return append([]int{int(Flush)}, ranks...)
	case straightHigh > 0:
		return []int{int(Straight), straightHigh}
	case groups[0].count == 3:
		return []int{int(Trips), groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2 && groups[1].count == 2:
		return []int{int(TwoPair), groups[0].rank, groups[1].rank, groups[2].rank}
	case groups[0].count == 2:
		return []int{int(OnePair), groups[0].rank, groups[1].rank, groups[2].rank, groups[3].rank}
	default:
		return append([]int{int(HighCard)}, ranks...)
	}
}

// straightHighCard reports the high card of a straight over desc-sorted
// ranks, or 0. The wheel A-2-3-4-5 scores as a 5-high straight.
func straightHighCard(desc []int) int {
	run := true
	for i := 1; i < 5; i++ {
		if desc[i] != desc[i-1]-1 {
			run = false
			break
		}
	}
	if run {
		return desc[0]
	}
	if desc[0] == 14 && desc[1] == 5 && desc[2] == 4 && desc[3] == 3 && desc[4] == 2 {
		return 5
	}
	return 0
}
