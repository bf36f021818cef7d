// Package repository implements all database queries for tournaments and
// registrations. It uses pgx directly (no ORM) so locking and isolation are
// explicit in the SQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/database"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

const tournamentColumns = `t.id, t.title, t.game, t.format, t.entry_fee, t.prize_pool, t.rules, t.max_capacity, t.starts_at, t.created_at`

// liveCountsSQL aggregates, per tournament, the registrations that occupy
// capacity at instant $1.
const liveCountsSQL = `
SELECT tournament_id, COUNT(*) AS live
FROM registrations
WHERE status = 'CONFIRMED' OR (status = 'RESERVED' AND reserved_until > $1)
GROUP BY tournament_id`

// TournamentRepository handles persistence for tournaments.
type TournamentRepository struct {
	db *pgxpool.Pool
}

// NewTournamentRepository constructs a TournamentRepository.
func NewTournamentRepository(db *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{db: db}
}

// Create inserts a new tournament. A missing ID is generated.
func (r *TournamentRepository) Create(ctx context.Context, t *model.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.Exec(ctx, `
INSERT INTO tournaments (id, title, game, format, entry_fee, prize_pool, rules, max_capacity, starts_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Game, t.Format, t.EntryFee, t.PrizePool, t.Rules, t.MaxCapacity, t.StartsAt, t.CreatedAt,
	)
	if err != nil {
		if database.IsInvalidText(err) {
			return model.ErrInvalidID
		}
		return fmt.Errorf("insert tournament: %w", err)
	}
	return nil
}

// ListSummaries returns every tournament with its live count at now, newest
// first.
func (r *TournamentRepository) ListSummaries(ctx context.Context, now time.Time) ([]model.TournamentSummary, error) {
	return r.querySummaries(ctx, `
SELECT `+tournamentColumns+`, COALESCE(l.live, 0)
FROM tournaments t
LEFT JOIN (`+liveCountsSQL+`) l ON l.tournament_id = t.id
ORDER BY t.created_at DESC`, now)
}

// ListUpcomingSummaries returns tournaments starting after now, soonest
// first.
func (r *TournamentRepository) ListUpcomingSummaries(ctx context.Context, now time.Time) ([]model.TournamentSummary, error) {
	return r.querySummaries(ctx, `
SELECT `+tournamentColumns+`, COALESCE(l.live, 0)
FROM tournaments t
LEFT JOIN (`+liveCountsSQL+`) l ON l.tournament_id = t.id
WHERE t.starts_at > $1
ORDER BY t.starts_at ASC`, now)
}

// GetSummary returns a single tournament with its live count, or
// model.ErrTournamentNotFound.
func (r *TournamentRepository) GetSummary(ctx context.Context, id string, now time.Time) (model.TournamentSummary, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+tournamentColumns+`, COALESCE(l.live, 0)
FROM tournaments t
LEFT JOIN (`+liveCountsSQL+`) l ON l.tournament_id = t.id
WHERE t.id = $2`, now, id)

	var t model.Tournament
	var live int
	if err := row.Scan(tournamentDest(&t, &live)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TournamentSummary{}, model.ErrTournamentNotFound
		}
		if database.IsInvalidText(err) {
			return model.TournamentSummary{}, model.ErrInvalidID
		}
		return model.TournamentSummary{}, fmt.Errorf("get tournament: %w", err)
	}
	return model.NewTournamentSummary(t, live), nil
}

func (r *TournamentRepository) querySummaries(ctx context.Context, sql string, now time.Time) ([]model.TournamentSummary, error) {
	rows, err := r.db.Query(ctx, sql, now)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	var out []model.TournamentSummary
	for rows.Next() {
		var t model.Tournament
		var live int
		if err := rows.Scan(tournamentDest(&t, &live)...); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		out = append(out, model.NewTournamentSummary(t, live))
	}
	return out, rows.Err()
}

func tournamentDest(t *model.Tournament, extra ...any) []any {
	dest := []any{
		&t.ID, &t.Title, &t.Game, &t.Format, &t.EntryFee, &t.PrizePool, &t.Rules,
		&t.MaxCapacity, &t.StartsAt, &t.CreatedAt,
	}
	return append(dest, extra...)
}
