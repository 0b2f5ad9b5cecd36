package main

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"card-room/server/agent"
	"card-room/server/config"
	"card-room/server/engine"
	"card-room/server/judge"
	"card-room/server/llm"
	"card-room/server/npc"
	"card-room/server/store"
)

const equityIters = 1500

// npcSeat is one automated seat's play profile.
type npcSeat struct {
	personality npc.Personality
	advised     bool
}

// Deps are the shared services a table runner draws on. DB and Advisor
// may be nil; the table then runs without persistence or advice.
type Deps struct {
	Log     *log.Logger
	Clock   quartz.Clock
	DB      *store.DB
	Advisor *llm.Advisor
	Seed    int64
}

// Runner owns one table. All game state is touched only from the Run
// loop; the public methods post closures into it and wait for the
// reply, so callers never race the engine.
type Runner struct {
	name string
	cfg  config.Table
	game *engine.Game

	log     *log.Logger
	clock   quartz.Clock
	db      *store.DB
	advisor *llm.Advisor
	stats   *TableStats
	ratings *Ratings
	rng     *rand.Rand

	agents map[string]npcSeat
	cmds   chan func()
	done   chan struct{} // closed when the Run loop exits

	// ctx is written once at the top of Run and read only from the loop
	// and the goroutines it spawns; the public surface waits on done.
	ctx       context.Context
	sessionID int64
	handID    int64
	seq       int
	turnSeq   int
	turnTimer *quartz.Timer
	stage     engine.Stage
	pendingSD *engine.ShowdownResult
}

func NewRunner(tcfg config.Table, deps Deps) *Runner {
	seed := deps.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := deps.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Runner{
		name: tcfg.Name,
		cfg:  tcfg,
		game: engine.New(tcfg.Name, engine.Config{
			SB:       tcfg.SmallBlind,
			BB:       tcfg.BigBlind,
			MaxSeats: tcfg.MaxSeats,
		}, seed),
		log:     deps.Log.WithPrefix("table/" + tcfg.Name),
		clock:   clock,
		db:      deps.DB,
		advisor: deps.Advisor,
		stats:   NewTableStats(tcfg.BigBlind),
		ratings: NewRatings(1500, 24),
		rng:     rand.New(rand.NewSource(seed ^ 0x5eed)),
		agents:  map[string]npcSeat{},
		cmds:    make(chan func(), 64),
		done:    make(chan struct{}),
		ctx:     context.Background(), // replaced when Run starts
	}
}

// SeatNPC adds an automated seat. Must be called before Run.
func (r *Runner) SeatNPC(n config.NPC) error {
	p, ok := npc.ByName(n.Personality)
	if !ok {
		p = npc.Default()
	}
	buyIn := n.BuyIn
	if buyIn == 0 {
		buyIn = r.cfg.BuyIn
	}
	id := uuid.NewString()
	if _, err := r.game.AddSeat(id, n.Name, buyIn); err != nil {
		return err
	}
	r.agents[id] = npcSeat{personality: p, advised: n.Advised}
	r.stats.SetName(id, n.Name)
	r.seedRating(n.Name)
	return nil
}

// Run drives the table until ctx ends. It opens a session row, starts
// dealing as soon as two seats are funded, and replays every accepted
// command in arrival order.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	r.ctx = ctx
	if r.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		id, err := r.db.CreateSession(dbCtx, r.name, r.cfg.SmallBlind, r.cfg.BigBlind, r.cfg.MaxSeats)
		cancel()
		if err != nil {
			r.log.Warn("session row not created; continuing without persistence", "err", err)
			r.db = nil
		} else {
			r.sessionID = id
		}
	}
	r.log.Info("table up", "sb", r.cfg.SmallBlind, "bb", r.cfg.BigBlind, "seats", r.cfg.MaxSeats)

	r.post(r.startHand)
	for {
		select {
		case <-ctx.Done():
			r.stopTurnTimer()
			if r.db != nil {
				dbCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				_ = r.db.EndSession(dbCtx, r.sessionID)
				cancel()
			}
			r.log.Info("table down")
			return ctx.Err()
		case fn := <-r.cmds:
			fn()
		}
	}
}

// errTableClosed reports a call against a table whose Run loop has
// already exited.
var errTableClosed = errors.New("table closed")

// post queues fn for the loop without waiting.
func (r *Runner) post(fn func()) {
	select {
	case r.cmds <- fn:
	case <-r.done:
	}
}

/* -----------------------------
   Public surface
------------------------------*/

// Join seats a human player and returns the new seat id.
func (r *Runner) Join(name string, buyIn int) (string, error) {
	if buyIn <= 0 {
		buyIn = r.cfg.BuyIn
	}
	id := uuid.NewString()
	type res struct{ err error }
	ch := make(chan res, 1)
	r.post(func() {
		_, err := r.game.AddSeat(id, name, buyIn)
		if err == nil {
			r.stats.SetName(id, name)
			r.seedRating(name)
			r.log.Info("player joined", "seat", id, "name", name, "buy_in", buyIn)
			r.startHand()
		}
		ch <- res{err}
	})
	select {
	case out := <-ch:
		return id, out.err
	case <-r.done:
		return "", errTableClosed
	}
}

// SetConnected flips a seat's connection state. Dropping the acting
// seat checks or folds it immediately; a reconnected seat is dealt
// back in on the next hand.
func (r *Runner) SetConnected(seatID string, connected bool) {
	r.post(func() {
		r.game.SetDisconnected(seatID, !connected)
		if !connected && r.actorID() == seatID {
			r.log.Info("actor disconnected", "seat", r.seatName(seatID))
			events := r.forceAction(seatID)
			r.afterEvents(events, "", "")
		}
	})
}

func (r *Runner) Leave(seatID string) error {
	ch := make(chan error, 1)
	r.post(func() { ch <- r.game.RemoveSeat(seatID) })
	select {
	case err := <-ch:
		return err
	case <-r.done:
		return errTableClosed
	}
}

// Act submits a player action. A nil rejection means it was applied.
func (r *Runner) Act(seatID string, kind engine.ActionKind, amount int) (*engine.Rejection, error) {
	ch := make(chan *engine.Rejection, 1)
	r.post(func() {
		events, rej := r.game.HandleAction(seatID, kind, amount)
		if rej == nil {
			r.afterEvents(events, "", "")
		}
		ch <- rej
	})
	select {
	case rej := <-ch:
		return rej, nil
	case <-r.done:
		return nil, errTableClosed
	}
}

// Snapshot returns seatID's view ("" for a spectator).
func (r *Runner) Snapshot(seatID string) (engine.Snapshot, error) {
	ch := make(chan engine.Snapshot, 1)
	r.post(func() { ch <- r.game.Snapshot(seatID) })
	select {
	case snap := <-ch:
		return snap, nil
	case <-r.done:
		return engine.Snapshot{}, errTableClosed
	}
}

func (r *Runner) Stats() []SeatLine      { return r.stats.View() }
func (r *Runner) Leaders() []LeaderEntry { return r.ratings.View() }

/* -----------------------------
   Hand lifecycle (loop only)
------------------------------*/

func (r *Runner) startHand() {
	if r.stage >= engine.PreFlop && r.stage <= engine.River {
		return // already dealing
	}
	events, err := r.game.StartHand()
	if err != nil {
		// not enough funded seats yet; retry quietly
		r.clock.AfterFunc(5*time.Second, func() { r.post(r.startHand) })
		return
	}
	r.afterEvents(events, "", "")
}

func (r *Runner) scheduleNextHand() {
	pause := time.Duration(r.cfg.HandPauseMS) * time.Millisecond
	if pause <= 0 {
		pause = 1500 * time.Millisecond
	}
	r.clock.AfterFunc(pause, func() { r.post(r.startHand) })
}

// afterEvents relays a mutation's events into logging, stats and the
// store, then moves the table forward: next actor prompt or next hand.
func (r *Runner) afterEvents(events []engine.Event, provenance, comment string) {
	r.stopTurnTimer()
	for _, ev := range events {
		switch e := ev.(type) {
		case engine.HandStarted:
			r.stage = engine.PreFlop
			r.seq = 0
			r.stats.OnHandStarted(e)
			r.log.Info("hand started", "hand", e.HandNo, "dealer", r.seatName(e.Dealer), "in_hand", len(e.InHand))
			r.persistHandStart(e)

		case engine.ActionApplied:
			r.stage = e.Stage
			r.stats.OnAction(e.Stage, e.Action)
			r.log.Debug("action",
				"seat", r.seatName(e.Action.Seat), "kind", e.Action.Kind,
				"to", e.Action.Amount, "pot", e.Pot, "provenance", provenance)
			r.persistAction(e, provenance, comment)
			provenance, comment = "", "" // only the triggering action carries them

		case engine.StageChanged:
			r.stage = e.Stage
			r.stats.OnStage(e, r.liveSeats())
			r.log.Info("street", "stage", e.Stage, "board", cardNames(e.Board))

		case engine.ShowdownResult:
			sd := e
			r.pendingSD = &sd
			r.stats.OnShowdown(e)
			for _, p := range e.Pots {
				r.log.Info("pot", "amount", p.Amount, "winners", r.seatNames(p.Winners), "share", p.Share, "odd", p.OddChips)
			}

		case engine.HandFinished:
			r.stage = r.game.Stage
			r.stats.OnHandFinished(e)
			elos := r.ratings.UpdateHand(r.deltasByName(e.Deltas), potFromDeltas(e.Deltas), r.cfg.BigBlind)
			r.log.Info("hand finished", "hand", e.HandNo, "uncontested", e.Uncontested, "winner", r.seatName(e.Winner))
			r.persistHandFinish(e, elos)
			r.pendingSD = nil
			r.scheduleNextHand()
			return
		}
	}
	r.promptActor()
}

// promptActor hands the turn to whoever acts next: schedule an NPC
// decision, or arm the turn clock for a human seat.
func (r *Runner) promptActor() {
	if r.stage < engine.PreFlop || r.stage > engine.River {
		return
	}
	actorID := r.actorID()
	if actorID == "" {
		return
	}
	r.turnSeq++
	seq := r.turnSeq

	if prof, ok := r.agents[actorID]; ok {
		snap := r.game.Snapshot(actorID)
		d := npc.Decide(snap, prof.personality, r.rng)
		if prof.advised && r.advisor.Enabled() {
			eqSeed := r.rng.Int63()
			// seat lookups belong to the loop; hand the goroutine a copy
			name := r.seatName(actorID)
			go r.advise(seq, actorID, name, snap, d, eqSeed)
			// hard stop if the advisory path stalls
			r.armTurnTimer(seq, actorID)
			return
		}
		r.applyDecision(seq, actorID, d)
		return
	}
	r.armTurnTimer(seq, actorID)
}

// advise runs off-loop: equity enrichment plus the model call, then the
// (possibly nudged) decision is posted back.
func (r *Runner) advise(seq int, seatID, seatName string, snap engine.Snapshot, d npc.Decision, eqSeed int64) {
	obs := agent.BuildObservation(snap)
	hole := parseCards(snap.Hole)
	board := parseCards(snap.Board)
	opponents := len(obs.Stacks) - 1
	if len(hole) == 2 && opponents >= 1 {
		eqCtx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
		if est, err := judge.Equity(eqCtx, hole, board, opponents, equityIters, rand.New(rand.NewSource(eqSeed))); err == nil {
			eq := est.Equity()
			obs.Equity = &eq
		}
		cancel()
	}

	out := agent.ActionOut{Action: string(d.Kind), Provenance: d.Provenance}
	if d.Kind == engine.Raise {
		amt := d.Amount
		out.Amount = &amt
	}
	adv, err := r.advisor.Advise(r.ctx, obs, out)
	if err != nil {
		r.log.Debug("advice unavailable", "seat", seatName, "err", err)
	} else {
		d = npc.ApplyAdvice(d, adv.Amount, adv.Comment)
	}
	r.post(func() { r.applyDecision(seq, seatID, d) })
}

// applyDecision plays a sampled decision if the turn is still live.
func (r *Runner) applyDecision(seq int, seatID string, d npc.Decision) {
	if seq != r.turnSeq || r.actorID() != seatID {
		return // superseded by a timeout or a reset
	}
	r.stopTurnTimer()
	a := d.Action(seatID)
	events, rej := r.game.HandleAction(seatID, a.Kind, a.Amount)
	if rej != nil {
		r.log.Warn("decision rejected, falling back", "seat", r.seatName(seatID), "kind", a.Kind, "reason", rej.Reason)
		events = r.forceAction(seatID)
		r.afterEvents(events, agent.ProvenanceFallback, "")
		return
	}
	if d.Comment != "" {
		r.log.Info("table talk", "seat", r.seatName(seatID), "say", d.Comment)
	}
	r.afterEvents(events, d.Provenance, d.Comment)
}

func (r *Runner) armTurnTimer(seq int, seatID string) {
	wait := time.Duration(r.cfg.TurnTimeMS) * time.Millisecond
	if wait <= 0 {
		wait = 15 * time.Second
	}
	r.turnTimer = r.clock.AfterFunc(wait, func() {
		r.post(func() {
			if seq != r.turnSeq || r.actorID() != seatID {
				return
			}
			r.log.Info("turn clock expired", "seat", r.seatName(seatID))
			events := r.forceAction(seatID)
			r.afterEvents(events, "", "")
		})
	})
}

// forceAction plays the safest legal move: check, else fold.
func (r *Runner) forceAction(seatID string) []engine.Event {
	for _, k := range []engine.ActionKind{engine.Check, engine.Fold} {
		if events, rej := r.game.HandleAction(seatID, k, 0); rej == nil {
			return events
		}
	}
	return nil
}

func (r *Runner) stopTurnTimer() {
	if r.turnTimer != nil {
		r.turnTimer.Stop()
		r.turnTimer = nil
	}
}

/* -----------------------------
   Persistence (loop only, best effort)
------------------------------*/

func (r *Runner) dbCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func (r *Runner) persistHandStart(e engine.HandStarted) {
	if r.db == nil {
		return
	}
	ctx, cancel := r.dbCtx()
	defer cancel()
	id, err := r.db.InsertHand(ctx, r.sessionID, e.HandNo, e.Dealer)
	if err != nil {
		r.log.Warn("hand row not written", "err", err)
		return
	}
	r.handID = id
}

func (r *Runner) persistAction(e engine.ActionApplied, provenance, comment string) {
	if r.db == nil || r.handID == 0 {
		return
	}
	r.seq++
	var amt *int
	if e.Action.Amount > 0 {
		v := e.Action.Amount
		amt = &v
	}
	toCall := 0
	if s := r.game.SeatByID(e.Action.Seat); s != nil {
		if d := r.game.CurBet - s.Bet; d > 0 {
			toCall = d
		}
	}
	ctx, cancel := r.dbCtx()
	defer cancel()
	if err := r.db.InsertHandAction(ctx, r.handID, store.HandAction{
		Seq:        r.seq,
		Street:     e.Stage.String(),
		SeatID:     e.Action.Seat,
		Action:     string(e.Action.Kind),
		Amount:     amt,
		Pot:        e.Pot,
		ToCall:     toCall,
		Provenance: provenance,
		Comment:    comment,
	}); err != nil {
		r.log.Warn("action row not written", "err", err)
	}
}

func (r *Runner) persistHandFinish(e engine.HandFinished, elos map[string]float64) {
	if r.db == nil || r.handID == 0 {
		return
	}
	ctx, cancel := r.dbCtx()
	defer cancel()

	var winner *string
	if e.Winner != "" {
		winner = &e.Winner
	}
	pot := potFromDeltas(e.Deltas)
	if err := r.db.FinishHand(ctx, r.handID, cardNames(r.game.Board), pot, e.Uncontested, winner); err != nil {
		r.log.Warn("hand close not written", "err", err)
	}

	results := make([]store.SeatResult, 0, len(e.Deltas))
	for seatID, delta := range e.Deltas {
		res := store.SeatResult{
			SeatID:     seatID,
			PlayerName: r.seatName(seatID),
			Delta:      delta,
			StackAfter: e.Stacks[seatID],
		}
		if r.pendingSD != nil {
			if hv, ok := r.pendingSD.Hands[seatID]; ok {
				res.Shown = true
				res.Hole = cardNames(r.pendingSD.Holes[seatID])
				res.HandDesc = hv.Category().String()
			}
		}
		results = append(results, res)
	}
	if err := r.db.InsertSeatResults(ctx, r.handID, results); err != nil {
		r.log.Warn("seat results not written", "err", err)
	}

	for seatID, delta := range e.Deltas {
		name := r.seatName(seatID)
		if elo, ok := elos[name]; ok {
			if err := r.db.UpdateRating(ctx, name, elo, 1, delta); err != nil {
				r.log.Warn("rating not written", "name", name, "err", err)
			}
		}
	}
	r.handID = 0
}

func (r *Runner) seedRating(name string) {
	if r.db == nil {
		return
	}
	ctx, cancel := r.dbCtx()
	defer cancel()
	if elo, _, err := r.db.GetOrInitRating(ctx, name); err == nil {
		r.ratings.Seed(name, elo)
	}
}

/* -----------------------------
   Small lookups (loop only)
------------------------------*/

func (r *Runner) actorID() string {
	snap := r.game.Snapshot("")
	return snap.Actor
}

func (r *Runner) seatName(seatID string) string {
	if s := r.game.SeatByID(seatID); s != nil {
		return s.Name
	}
	return seatID
}

func (r *Runner) seatNames(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.seatName(id)
	}
	return out
}

func (r *Runner) liveSeats() []string {
	var out []string
	for _, s := range r.game.Seats {
		if !s.SittingOut && !s.Folded {
			out = append(out, s.ID)
		}
	}
	return out
}

func (r *Runner) deltasByName(deltas map[string]int) map[string]int {
	out := make(map[string]int, len(deltas))
	for id, d := range deltas {
		out[r.seatName(id)] += d
	}
	return out
}

func potFromDeltas(deltas map[string]int) int {
	pot := 0
	for _, d := range deltas {
		if d < 0 {
			pot -= d
		}
	}
	return pot
}

func cardNames(cs []engine.Card) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}
	return out
}

func parseCards(ss []string) []engine.Card {
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
