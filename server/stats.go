package main

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"card-room/server/engine"
)

// SeatStats accumulates one seat's per-hand counters over a session.
type SeatStats struct {
	Hands        int
	VPIP         int
	PFR          int
	SawFlop      int
	Showdowns    int
	ShowdownWins int
	HandsWon     int
	Calls        int
	Aggr         int
	NetChips     int

	// per-hand result in big blinds, feeding the winrate interval
	HandBB []float64
}

// AF is the aggression factor: aggressive actions per call.
func (s *SeatStats) AF() float64 {
	if s.Calls == 0 {
		if s.Aggr == 0 {
			return 0
		}
		return float64(s.Aggr)
	}
	return float64(s.Aggr) / float64(s.Calls)
}

func (s *SeatStats) BBPer100(bb int) float64 {
	if s.Hands == 0 || bb <= 0 {
		return 0
	}
	return (float64(s.NetChips) / float64(bb)) / (float64(s.Hands) / 100.0)
}

func pct(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return 100 * float64(part) / float64(whole)
}

// SeatLine is the JSON row exposed by the stats endpoint.
type SeatLine struct {
	Seat        string  `json:"seat"`
	Name        string  `json:"name"`
	Hands       int     `json:"hands"`
	VPIPPct     float64 `json:"vpip_pct"`
	PFRPct      float64 `json:"pfr_pct"`
	AF          float64 `json:"af"`
	WTSDPct     float64 `json:"wtsd_pct"` // went to showdown, of flops seen
	WSDPct      float64 `json:"wsd_pct"`  // won at showdown
	WSDLow      float64 `json:"wsd_ci_low"`
	WSDHigh     float64 `json:"wsd_ci_high"`
	NetChips    int     `json:"net_chips"`
	BBPer100    float64 `json:"bb_per_100"`
	BB100Low    float64 `json:"bb_per_100_ci_low"`
	BB100High   float64 `json:"bb_per_100_ci_high"`
}

// TableStats tracks every seat at one table. The runner feeds it engine
// events; the HTTP layer reads it through View, hence the lock.
type TableStats struct {
	mu    sync.Mutex
	bb    int
	seats map[string]*SeatStats
	names map[string]string

	// scratch for the hand in progress
	inHand    map[string]bool
	voluntary map[string]bool
	raisedPre map[string]bool
	sawFlop   map[string]bool
}

func NewTableStats(bb int) *TableStats {
	return &TableStats{
		bb:    bb,
		seats: map[string]*SeatStats{},
		names: map[string]string{},
	}
}

func (t *TableStats) seat(id string) *SeatStats {
	s, ok := t.seats[id]
	if !ok {
		s = &SeatStats{}
		t.seats[id] = s
	}
	return s
}

func (t *TableStats) SetName(seatID, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[seatID] = name
}

func (t *TableStats) OnHandStarted(ev engine.HandStarted) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inHand = map[string]bool{}
	t.voluntary = map[string]bool{}
	t.raisedPre = map[string]bool{}
	t.sawFlop = map[string]bool{}
	for _, id := range ev.InHand {
		t.inHand[id] = true
	}
}

func (t *TableStats) OnAction(stage engine.Stage, a engine.Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch a.Kind {
	case engine.Call:
		t.seat(a.Seat).Calls++
		if stage == engine.PreFlop {
			t.voluntary[a.Seat] = true
		}
	case engine.Raise, engine.AllIn:
		t.seat(a.Seat).Aggr++
		if stage == engine.PreFlop {
			t.voluntary[a.Seat] = true
			t.raisedPre[a.Seat] = true
		}
	}
}

func (t *TableStats) OnStage(ev engine.StageChanged, live []string) {
	if ev.Stage != engine.Flop {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range live {
		t.sawFlop[id] = true
	}
}

func (t *TableStats) OnShowdown(ev engine.ShowdownResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range ev.Hands {
		t.seat(id).Showdowns++
	}
	won := map[string]bool{}
	for _, p := range ev.Pots {
		for _, w := range p.Winners {
			won[w] = true
		}
	}
	for id := range won {
		t.seat(id).ShowdownWins++
	}
}

func (t *TableStats) OnHandFinished(ev engine.HandFinished) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id := range t.inHand {
		s := t.seat(id)
		s.Hands++
		if t.voluntary[id] {
			s.VPIP++
		}
		if t.raisedPre[id] {
			s.PFR++
		}
		if t.sawFlop[id] {
			s.SawFlop++
		}
		if t.bb > 0 {
			s.HandBB = append(s.HandBB, float64(ev.Deltas[id])/float64(t.bb))
		}
	}
	for id, delta := range ev.Deltas {
		s := t.seat(id)
		s.NetChips += delta
		if delta > 0 {
			s.HandsWon++
		}
	}
	t.inHand, t.voluntary, t.raisedPre, t.sawFlop = nil, nil, nil, nil
}

// View renders the accumulated stats, most hands first.
func (t *TableStats) View() []SeatLine {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]SeatLine, 0, len(t.seats))
	for id, s := range t.seats {
		low, high := WilsonCI95(s.ShowdownWins, 0, s.Showdowns)
		bbLow, bbHigh := BootstrapCI95(s.HandBB, 1000)
		out = append(out, SeatLine{
			Seat:      id,
			Name:      t.names[id],
			Hands:     s.Hands,
			VPIPPct:   pct(s.VPIP, s.Hands),
			PFRPct:    pct(s.PFR, s.Hands),
			AF:        s.AF(),
			WTSDPct:   pct(s.Showdowns, s.SawFlop),
			WSDPct:    pct(s.ShowdownWins, s.Showdowns),
			WSDLow:    low,
			WSDHigh:   high,
			NetChips:  s.NetChips,
			BBPer100:  s.BBPer100(t.bb),
			BB100Low:  100 * bbLow,
			BB100High: 100 * bbHigh,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Hands != out[j].Hands {
			return out[i].Hands > out[j].Hands
		}
		return out[i].Seat < out[j].Seat
	})
	return out
}

// WilsonCI95 bounds a Bernoulli rate from wins/ties/total.
func WilsonCI95(wins, ties, total int) (low, hi float64) {
	if total <= 0 {
		return 0, 1
	}
	z := 1.96
	n := float64(total)
	p := (float64(wins) + 0.5*float64(ties)) / n
	den := 1 + (z*z)/n
	center := p + (z*z)/(2*n)
	half := z * math.Sqrt((p*(1-p))/n+(z*z)/(4*n*n))
	return (center - half) / den, (center + half) / den
}

// BootstrapCI95 bounds the mean of vals by resampling.
func BootstrapCI95(vals []float64, B int) (low, hi float64) {
	n := len(vals)
	if n == 0 || B <= 1 {
		return 0, 0
	}
	res := make([]float64, B)
	for b := 0; b < B; b++ {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[rand.Intn(n)]
		}
		res[b] = sum / float64(n)
	}
	sort.Float64s(res)
	l := int(0.025 * float64(B-1))
	h := int(0.975 * float64(B-1))
	return res[l], res[h]
}
