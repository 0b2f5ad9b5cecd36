// Package judge estimates showdown equity for a known hand against
// unknown opponent ranges. It is used to enrich advisory prompts and to
// sanity-check decision mixes; nothing in the betting engine depends on
// it.
package judge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	poker "github.com/paulhankin/poker"

	"card-room/server/engine"
)

// Estimate is the outcome distribution of one seat's hand at showdown.
type Estimate struct {
	Win        float64
	Tie        float64
	Lose       float64
	Iterations int
	Exact      bool
}

// Equity is the scalar form: wins plus half of split pots.
func (e Estimate) Equity() float64 { return e.Win + e.Tie/2 }

func (e Estimate) String() string {
	return fmt.Sprintf("%.1f%% (w %.1f t %.1f over %d)", e.Equity()*100, e.Win*100, e.Tie*100, e.Iterations)
}

// scoreSign orients the third-party evaluator: +1 when a larger Eval7
// result is the stronger hand, -1 otherwise. Fixed once at startup by
// comparing a royal flush to unconnected low cards.
var scoreSign = func() int {
	royal := lib7([]engine.Card{
		{Rank: 14, Suit: 's'}, {Rank: 13, Suit: 's'}, {Rank: 12, Suit: 's'},
		{Rank: 11, Suit: 's'}, {Rank: 10, Suit: 's'}, {Rank: 3, Suit: 'd'}, {Rank: 2, Suit: 'c'},
	})
	junk := lib7([]engine.Card{
		{Rank: 2, Suit: 'c'}, {Rank: 4, Suit: 'd'}, {Rank: 6, Suit: 'h'},
		{Rank: 8, Suit: 's'}, {Rank: 10, Suit: 'c'}, {Rank: 12, Suit: 'd'}, {Rank: 3, Suit: 'h'},
	})
	if royal > junk {
		return 1
	}
	return -1
}()

// Equity estimates hole's showdown equity on board against the given
// number of random opponent hands. With a complete board and one
// opponent the answer is exact; otherwise iters Monte Carlo rollouts
// are run. rng may be nil for a time-seeded source.
func Equity(ctx context.Context, hole, board []engine.Card, opponents, iters int, rng *rand.Rand) (Estimate, error) {
	if len(hole) != 2 {
		return Estimate{}, fmt.Errorf("need exactly 2 hole cards, got %d", len(hole))
	}
	if len(board) > 5 {
		return Estimate{}, fmt.Errorf("board has %d cards", len(board))
	}
	if opponents < 1 {
		return Estimate{}, errors.New("need at least one opponent")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	used := map[engine.Card]bool{}
	for _, c := range append(append([]engine.Card{}, hole...), board...) {
		if used[c] {
			return Estimate{}, fmt.Errorf("duplicate card %s", c)
		}
		used[c] = true
	}
	stub := make([]engine.Card, 0, 52)
	for _, suit := range []byte{'c', 'd', 'h', 's'} {
		for rank := 2; rank <= 14; rank++ {
			c := engine.Card{Rank: rank, Suit: suit}
			if !used[c] {
				stub = append(stub, c)
			}
		}
	}

	if len(board) == 5 && opponents == 1 {
		return exactRiver(ctx, hole, board, stub)
	}
	if iters <= 0 {
		iters = 2000
	}
	return monteCarlo(ctx, hole, board, stub, opponents, iters, rng)
}

// exactRiver enumerates every villain combo on a complete board.
func exactRiver(ctx context.Context, hole, board, stub []engine.Card) (Estimate, error) {
	heroScore := scoreSign * int(lib7(append(append([]engine.Card{}, hole...), board...)))

	var win, tie, total int
	for i := 0; i < len(stub); i++ {
		if i%8 == 0 && ctx.Err() != nil {
			return Estimate{}, ctx.Err()
		}
		for j := i + 1; j < len(stub); j++ {
			total++
			cards := append([]engine.Card{stub[i], stub[j]}, board...)
			vScore := scoreSign * int(lib7(cards))
			switch {
			case heroScore > vScore:
				win++
			case heroScore == vScore:
				tie++
			}
		}
	}
	if total == 0 {
		return Estimate{}, errors.New("no villain combos")
	}
	return Estimate{
		Win:        float64(win) / float64(total),
		Tie:        float64(tie) / float64(total),
		Lose:       float64(total-win-tie) / float64(total),
		Iterations: total,
		Exact:      true,
	}, nil
}

func monteCarlo(ctx context.Context, hole, board, stub []engine.Card, opponents, iters int, rng *rand.Rand) (Estimate, error) {
	need := 2*opponents + (5 - len(board))
	if need > len(stub) {
		return Estimate{}, fmt.Errorf("not enough cards for %d opponents", opponents)
	}

	var win, tie int
	draw := make([]engine.Card, len(stub))
	for it := 0; it < iters; it++ {
		if it%64 == 0 && ctx.Err() != nil {
			return Estimate{}, ctx.Err()
		}
		// Partial Fisher-Yates: only the first `need` positions matter.
		copy(draw, stub)
		for i := 0; i < need; i++ {
			j := i + rng.Intn(len(draw)-i)
			draw[i], draw[j] = draw[j], draw[i]
		}

		fullBoard := append(append([]engine.Card{}, board...), draw[2*opponents:need]...)
		heroScore := scoreSign * int(lib7(append(append([]engine.Card{}, hole...), fullBoard...)))

		best := heroScore
		heroBest, split := true, 1
		for o := 0; o < opponents; o++ {
			v := append([]engine.Card{draw[2*o], draw[2*o+1]}, fullBoard...)
			vScore := scoreSign * int(lib7(v))
			switch {
			case vScore > best:
				best = vScore
				heroBest = false
			case vScore == best:
				split++
			}
		}
		if heroBest {
			if split > 1 {
				tie++
			} else {
				win++
			}
		}
	}
	return Estimate{
		Win:        float64(win) / float64(iters),
		Tie:        float64(tie) / float64(iters),
		Lose:       float64(iters-win-tie) / float64(iters),
		Iterations: iters,
	}, nil
}

func lib7(cards []engine.Card) int16 {
	var a [7]poker.Card
	for i, c := range cards {
		a[i] = toLib(c)
	}
	return poker.Eval7(&a)
}

func toLib(c engine.Card) poker.Card {
	var s poker.Suit
	switch c.Suit {
	case 'c':
		s = poker.Club
	case 'd':
		s = poker.Diamond
	case 'h':
		s = poker.Heart
	default:
		s = poker.Spade
	}
	r := poker.Rank(c.Rank)
	if c.Rank == 14 {
		r = poker.Rank(1)
	}
	pc, err := poker.MakeCard(s, r)
	if err != nil {
		panic(err)
	}
	return pc
}
