// Package store persists sessions, hands and actions to Postgres. The
// betting engine never touches it; the table runner writes through it
// after each event, and the HTTP layer reads from it.
package store

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema embed.FS

type DB struct{ *pgxpool.Pool }

func Open(dsn string) (*DB, error) {
	p, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &DB{p}, nil
}

func (db *DB) Close(ctx context.Context)      { db.Pool.Close() }
func (db *DB) Ping(ctx context.Context) error { return db.Pool.Ping(ctx) }

func Migrate(ctx context.Context, db *DB) error {
	sqlBytes, err := schema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, string(sqlBytes))
	return err
}

/* -----------------------------
   Sessions
------------------------------*/

// CreateSession records a table coming up and returns its id.
func (db *DB) CreateSession(ctx context.Context, tableID string, sb, bb, maxSeats int) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO sessions(table_id, sb, bb, max_seats)
        VALUES ($1,$2,$3,$4)
        RETURNING id
    `, tableID, sb, bb, maxSeats).Scan(&id)
	return id, err
}

func (db *DB) EndSession(ctx context.Context, sessionID int64) error {
	_, err := db.Exec(ctx, `UPDATE sessions SET ended_at = now() WHERE id = $1`, sessionID)
	return err
}

/* -----------------------------
   Hands
------------------------------*/

// InsertHand opens a hand row when cards go in the air.
func (db *DB) InsertHand(ctx context.Context, sessionID int64, handNo int, dealerSeat string) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO hands(session_id, hand_no, dealer_seat)
        VALUES ($1,$2,$3)
        ON CONFLICT (session_id, hand_no) DO UPDATE SET dealer_seat = EXCLUDED.dealer_seat
        RETURNING id
    `, sessionID, handNo, dealerSeat).Scan(&id)
	return id, err
}

// FinishHand closes the hand row with its outcome.
func (db *DB) FinishHand(ctx context.Context, handID int64, board []string, pot int, uncontested bool, winnerSeat *string) error {
	var winner any
	if winnerSeat != nil && *winnerSeat != "" {
		winner = *winnerSeat
	}
	_, err := db.Exec(ctx, `
        UPDATE hands
           SET board = $2,
               pot = $3,
               uncontested = $4,
               winner_seat = $5,
               ended_at = now()
         WHERE id = $1
    `, handID, board, pot, uncontested, winner)
	return err
}

/* -----------------------------
   Actions
------------------------------*/

// HandAction is one accepted action as written to the history.
type HandAction struct {
	Seq        int
	Street     string
	SeatID     string
	Action     string
	Amount     *int
	Pot        int
	ToCall     int
	Provenance string
	Comment    string
}

func (db *DB) InsertHandAction(ctx context.Context, handID int64, a HandAction) error {
	var amt, prov, comment any
	if a.Amount != nil {
		amt = *a.Amount
	}
	if a.Provenance != "" {
		prov = a.Provenance
	}
	if a.Comment != "" {
		comment = a.Comment
	}
	_, err := db.Exec(ctx, `
        INSERT INTO hand_actions(
            hand_id, seq, street, seat_id, action, amount,
            pot, to_call, provenance, comment
        ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (hand_id, seq) DO NOTHING
    `, handID, a.Seq, a.Street, a.SeatID, a.Action, amt,
		a.Pot, a.ToCall, prov, comment)
	return err
}

/* -----------------------------
   Seat results
------------------------------*/

// SeatResult is one seat's outcome for a finished hand.
type SeatResult struct {
	SeatID     string
	PlayerName string
	Hole       []string
	Delta      int
	StackAfter int
	Shown      bool
	HandDesc   string
}

// InsertSeatResults writes every seat's result for a hand atomically.
func (db *DB) InsertSeatResults(ctx context.Context, handID int64, results []SeatResult) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // safe if already committed

	for _, r := range results {
		var hole any
		if r.Shown && len(r.Hole) > 0 {
			hole = r.Hole
		}
		var desc any
		if r.HandDesc != "" {
			desc = r.HandDesc
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO seat_results(
                hand_id, seat_id, player_name, hole,
                delta, stack_after, shown, hand_desc
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
            ON CONFLICT (hand_id, seat_id) DO UPDATE SET
                delta = EXCLUDED.delta,
                stack_after = EXCLUDED.stack_after,
                shown = EXCLUDED.shown,
                hole = EXCLUDED.hole,
                hand_desc = EXCLUDED.hand_desc
        `, handID, r.SeatID, r.PlayerName, hole,
			r.Delta, r.StackAfter, r.Shown, desc); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

/* -----------------------------
   Ratings
------------------------------*/

// GetOrInitRating fetches a player's rating row, creating it at the
// default 1500 when absent.
func (db *DB) GetOrInitRating(ctx context.Context, name string) (elo float64, hands int, err error) {
	if _, e := db.Exec(ctx, `
        INSERT INTO player_ratings(name) VALUES ($1)
        ON CONFLICT (name) DO NOTHING
    `, name); e != nil {
		return 0, 0, e
	}
	err = db.QueryRow(ctx, `
        SELECT elo, hands FROM player_ratings WHERE name = $1
    `, name).Scan(&elo, &hands)
	return
}

// UpdateRating persists a new rating and increments career counters.
func (db *DB) UpdateRating(ctx context.Context, name string, elo float64, handsInc, netChipsInc int) error {
	_, err := db.Exec(ctx, `
        UPDATE player_ratings
           SET elo = $2,
               hands = hands + $3,
               net_chips = net_chips + $4,
               updated_at = now()
         WHERE name = $1
    `, name, elo, handsInc, netChipsInc)
	return err
}

/* -----------------------------
   Read side
------------------------------*/

// HandSummary is the listing row returned to the HTTP layer.
type HandSummary struct {
	ID          int64     `json:"id"`
	HandNo      int       `json:"hand_no"`
	DealerSeat  string    `json:"dealer_seat"`
	Board       []string  `json:"board,omitempty"`
	Pot         int       `json:"pot"`
	Uncontested bool      `json:"uncontested"`
	WinnerSeat  string    `json:"winner_seat,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// RecentHands lists the latest finished hands of a session, newest
// first.
func (db *DB) RecentHands(ctx context.Context, sessionID int64, limit int) ([]HandSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
        SELECT id, hand_no, dealer_seat, board, pot, uncontested, winner_seat, started_at
          FROM hands
         WHERE session_id = $1 AND ended_at IS NOT NULL
         ORDER BY hand_no DESC
         LIMIT $2
    `, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HandSummary
	for rows.Next() {
		var h HandSummary
		var winner *string
		if err := rows.Scan(&h.ID, &h.HandNo, &h.DealerSeat, &h.Board,
			&h.Pot, &h.Uncontested, &winner, &h.StartedAt); err != nil {
			return nil, err
		}
		if winner != nil {
			h.WinnerSeat = *winner
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Leaderboard lists player ratings, strongest first.
type LeaderboardRow struct {
	Name     string  `json:"name"`
	Elo      float64 `json:"elo"`
	Hands    int     `json:"hands"`
	NetChips int64   `json:"net_chips"`
}

func (db *DB) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
        SELECT name, elo, hands, net_chips
          FROM player_ratings
         ORDER BY elo DESC, hands DESC
         LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Name, &r.Elo, &r.Hands, &r.NetChips); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PlayerRating reads a single rating row without creating it.
func (db *DB) PlayerRating(ctx context.Context, name string) (*LeaderboardRow, error) {
	var r LeaderboardRow
	err := db.QueryRow(ctx, `
        SELECT name, elo, hands, net_chips FROM player_ratings WHERE name = $1
    `, name).Scan(&r.Name, &r.Elo, &r.Hands, &r.NetChips)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
