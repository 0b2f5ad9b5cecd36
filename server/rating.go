package main

import (
	"math"
	"sort"
	"sync"
)

// Ratings maintains a table-local Elo pool. Every finished hand is
// scored pairwise between the dealt-in seats with a soft result derived
// from the chip margin, tempered by pot size and annealed over hands.
type Ratings struct {
	mu    sync.Mutex
	start float64
	k     float64
	hands int
	table map[string]float64
}

func NewRatings(start, k float64) *Ratings {
	return &Ratings{start: start, k: k, table: map[string]float64{}}
}

func (r *Ratings) get(name string) float64 {
	if v, ok := r.table[name]; ok {
		return v
	}
	r.table[name] = r.start
	return r.start
}

// Seed installs a persisted rating without counting a hand.
func (r *Ratings) Seed(name string, elo float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.table[name] = elo
}

func (r *Ratings) Get(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(name)
}

// UpdateHand applies one hand's deltas (net chips per player) and
// returns the new ratings of the participants.
func (r *Ratings) UpdateHand(deltas map[string]int, pot, bb int) map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(deltas))
	for n := range deltas {
		names = append(names, n)
	}
	sort.Strings(names)
	if len(names) < 2 {
		return nil
	}

	adj := map[string]float64{}
	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			a, b := names[i], names[j]
			ra, rb := r.get(a), r.get(b)
			ea := 1.0 / (1.0 + math.Pow(10, (rb-ra)/400.0))

			// soft score from the chip margin, normalized in big blinds
			margin := deltas[a] - deltas[b]
			lambdaBB := 6.0
			sa := 0.5 + 0.5*math.Tanh(float64(margin)/(lambdaBB*float64(bb)))

			kEff := r.k * potScale(pot, bb) * marginScale(margin, bb) * decay(r.hands)
			kEff /= float64(len(names) - 1) // spread across opponents

			d := kEff * (sa - ea)
			adj[a] += d
			adj[b] -= d
		}
	}

	out := map[string]float64{}
	for n, d := range adj {
		r.table[n] += d
		out[n] = r.table[n]
	}
	r.hands++
	return out
}

// View lists all known ratings, strongest first.
func (r *Ratings) View() []LeaderEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LeaderEntry, 0, len(r.table))
	for n, v := range r.table {
		out = append(out, LeaderEntry{Name: n, Elo: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Elo != out[j].Elo {
			return out[i].Elo > out[j].Elo
		}
		return out[i].Name < out[j].Name
	})
	return out
}

type LeaderEntry struct {
	Name string  `json:"name"`
	Elo  float64 `json:"elo"`
}

// ---- helpers ----

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func potScale(pot, bb int) float64 {
	if bb <= 0 || pot <= 0 {
		return 1.0
	}
	scale := float64(pot) / (2.0 * float64(bb)) // ~2bb baseline
	return clamp(scale, 0.5, 3.0)
}

func marginScale(margin, bb int) float64 {
	if bb <= 0 {
		return 1.0
	}
	m := math.Abs(float64(margin)) / float64(bb)
	return 1.0 + 0.35*math.Tanh(m/8.0) // <= ~1.35
}

func decay(hands int) float64 {
	return 1.0 / (1.0 + 0.01*float64(hands)) // slow anneal
}
