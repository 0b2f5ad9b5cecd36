package engine

import (
	"math/rand"
	"time"
)

// Deck is a shuffled 52-card source owned by a single game. It is rebuilt
// and re-permuted at the start of every hand.
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// NewDeck seeds the deck's permutation source. A zero seed falls back to
// the wall clock.
func NewDeck(seed int64) *Deck {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	d := &Deck{rng: rand.New(rand.NewSource(seed))}
	d.Reset()
	return d
}

// Reset rebuilds the full 52 cards and Fisher-Yates shuffles them.
func (d *Deck) Reset() {
	d.cards = d.cards[:0]
	for s := 0; s < 4; s++ {
		for r := 2; r <= 14; r++ {
			d.cards = append(d.cards, Card{Rank: r, Suit: "cdhs"[s]})
		}
	}
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.Intn(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Deal removes and returns the top n cards.
func (d *Deck) Deal(n int) []Card {
	out := make([]Card, n)
	copy(out, d.cards[:n])
	d.cards = d.cards[n:]
	return out
}

// Burn discards the top card.
func (d *Deck) Burn() {
	d.cards = d.cards[1:]
}

// Remaining reports how many cards are left.
func (d *Deck) Remaining() int { return len(d.cards) }
