package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/database"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// Index names from migrations/0002_registrations.sql.
const (
	oneActiveIndex = "registrations_one_active_idx"
	oneSlotIndex   = "registrations_one_slot_idx"
)

const registrationColumns = `id, tournament_id, owner_id, team, status, reserved_until, slot_number, created_at, updated_at`

// RegistrationRepository handles persistence for registrations.
//
// ─────────────────────────────────────────────────────────────────────────────
// CONCURRENCY
// ─────────────────────────────────────────────────────────────────────────────
//
// Capacity and slot decisions are read-then-write: count live rows (or read
// used slot numbers), decide, then insert (or update). Two requests reading
// the same snapshot would both pass the check and over-book the tournament
// or hand out the same slot twice.
//
// Callers therefore run every decision inside WithTx and lock the tournament
// row first with GetTournamentForUpdate. All decisions for one tournament
// queue behind that row lock, and because the transaction is READ COMMITTED
// each statement after the lock sees what the previous holder committed.
// SERIALIZABLE would take its snapshot before the lock wait. The partial
// unique indexes on
// (owner_id, tournament_id) and (tournament_id, slot_number) are the last
// line: a racing writer that slips past gets a unique violation, and a
// deadlock surfaces as model.ErrConcurrencyConflict with nothing persisted.
//
// ─────────────────────────────────────────────────────────────────────────────
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// WithTx runs fn in a transaction. Serialization failures and deadlocks are
// reported as model.ErrConcurrencyConflict.
func (r *RegistrationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := database.WithTx(ctx, r.db, fn)
	if err != nil && database.IsSerializationFailure(err) {
		return fmt.Errorf("%w: %w", model.ErrConcurrencyConflict, err)
	}
	return err
}

// GetTournamentForUpdate reads a tournament and locks its row until the
// surrounding transaction ends.
func (r *RegistrationRepository) GetTournamentForUpdate(ctx context.Context, id string) (model.Tournament, error) {
	var t model.Tournament
	err := r.conn(ctx).QueryRow(ctx, `
SELECT `+tournamentColumns+`
FROM tournaments t
WHERE t.id = $1
FOR UPDATE`, id,
	).Scan(tournamentDest(&t)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Tournament{}, model.ErrTournamentNotFound
		}
		if database.IsInvalidText(err) {
			return model.Tournament{}, model.ErrInvalidID
		}
		return model.Tournament{}, fmt.Errorf("lock tournament row: %w", err)
	}
	return t, nil
}

// CountLiveRegistrations counts confirmed registrations plus reservations
// whose window is still open at now.
func (r *RegistrationRepository) CountLiveRegistrations(ctx context.Context, tournamentID string, now time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
SELECT COUNT(*)
FROM registrations
WHERE tournament_id = $1
  AND (status = 'CONFIRMED' OR (status = 'RESERVED' AND reserved_until > $2))`,
		tournamentID, now,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count live registrations: %w", err)
	}
	return n, nil
}

// FindActiveRegistration returns the owner's non-rejected registration for
// the tournament, or nil.
func (r *RegistrationRepository) FindActiveRegistration(ctx context.Context, ownerID, tournamentID string) (*model.Registration, error) {
	row := r.conn(ctx).QueryRow(ctx, `
SELECT `+registrationColumns+`
FROM registrations
WHERE owner_id = $1 AND tournament_id = $2 AND status <> 'REJECTED'
LIMIT 1`, ownerID, tournamentID)

	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active registration: %w", err)
	}
	return &reg, nil
}

// InsertReservedRegistration stores a new RESERVED registration.
func (r *RegistrationRepository) InsertReservedRegistration(ctx context.Context, reg model.Registration) error {
	team := reg.Team
	if len(team) == 0 {
		team = []byte(`{}`)
	}
	_, err := r.conn(ctx).Exec(ctx, `
INSERT INTO registrations (id, tournament_id, owner_id, team, status, reserved_until, slot_number, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8)`,
		reg.ID, reg.TournamentID, reg.OwnerID, []byte(team), string(model.StatusReserved), reg.ReservedUntil,
		reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		switch {
		case database.IsUniqueViolation(err, oneActiveIndex):
			return model.ErrDuplicateRegistration
		case database.IsForeignKeyViolation(err):
			return model.ErrTournamentNotFound
		case database.IsInvalidText(err):
			return model.ErrInvalidID
		}
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// GetRegistration reads a registration without locking it.
func (r *RegistrationRepository) GetRegistration(ctx context.Context, id string) (model.Registration, error) {
	return r.getRegistration(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

// GetRegistrationForUpdate reads a registration and locks its row.
func (r *RegistrationRepository) GetRegistrationForUpdate(ctx context.Context, id string) (model.Registration, error) {
	return r.getRegistration(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
}

func (r *RegistrationRepository) getRegistration(ctx context.Context, sql, id string) (model.Registration, error) {
	reg, err := scanRegistration(r.conn(ctx).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Registration{}, model.ErrRegistrationNotFound
		}
		if database.IsInvalidText(err) {
			return model.Registration{}, model.ErrInvalidID
		}
		return model.Registration{}, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ListConfirmedSlotNumbers returns the slot numbers held by confirmed
// registrations, ascending.
func (r *RegistrationRepository) ListConfirmedSlotNumbers(ctx context.Context, tournamentID string) ([]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
SELECT slot_number
FROM registrations
WHERE tournament_id = $1 AND status = 'CONFIRMED'
ORDER BY slot_number ASC`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list confirmed slots: %w", err)
	}
	slots, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, fmt.Errorf("scan confirmed slots: %w", err)
	}
	return slots, nil
}

// UpdateRegistrationStatus applies tr only if the row is still in tr.From.
// A row that moved on returns model.ErrInvalidState.
func (r *RegistrationRepository) UpdateRegistrationStatus(ctx context.Context, tr model.Transition) (model.Registration, error) {
	row := r.conn(ctx).QueryRow(ctx, `
UPDATE registrations
SET status = $3, slot_number = $4, reserved_until = $5, updated_at = $6
WHERE id = $1 AND status = $2
RETURNING `+registrationColumns,
		tr.ID, string(tr.From), string(tr.To), tr.SlotNumber, tr.ReservedUntil, tr.At,
	)
	reg, err := scanRegistration(row)
	if err == nil {
		return reg, nil
	}

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, getErr := r.GetRegistration(ctx, tr.ID); getErr != nil {
			return model.Registration{}, getErr
		}
		return model.Registration{}, fmt.Errorf("%w: registration %s is no longer %s", model.ErrInvalidState, tr.ID, tr.From)
	case database.IsUniqueViolation(err, oneSlotIndex):
		return model.Registration{}, fmt.Errorf("%w: slot %d taken", model.ErrConcurrencyConflict, derefInt(tr.SlotNumber))
	case database.IsUniqueViolation(err, oneActiveIndex):
		return model.Registration{}, model.ErrDuplicateRegistration
	case database.IsInvalidText(err):
		return model.Registration{}, model.ErrInvalidID
	}
	return model.Registration{}, fmt.Errorf("update registration status: %w", err)
}

// ExpireReservations rejects the tournament's reservations whose window
// closed at or before now.
func (r *RegistrationRepository) ExpireReservations(ctx context.Context, tournamentID string, now time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
UPDATE registrations
SET status = 'REJECTED', reserved_until = NULL, updated_at = $2
WHERE tournament_id = $1 AND status = 'RESERVED' AND reserved_until <= $2`,
		tournamentID, now,
	)
	if err != nil {
		if database.IsInvalidText(err) {
			return 0, model.ErrInvalidID
		}
		return 0, fmt.Errorf("expire reservations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ExpireAllReservations is ExpireReservations across every tournament.
func (r *RegistrationRepository) ExpireAllReservations(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
UPDATE registrations
SET status = 'REJECTED', reserved_until = NULL, updated_at = $1
WHERE status = 'RESERVED' AND reserved_until <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("expire all reservations: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListByOwner returns the owner's registrations, newest first.
func (r *RegistrationRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Registration, error) {
	rows, err := r.conn(ctx).Query(ctx, `
SELECT `+registrationColumns+`
FROM registrations
WHERE owner_id = $1
ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner registrations: %w", err)
	}
	return collectRegistrations(rows)
}

// List returns registrations in the given status, optionally restricted to
// one tournament. The reserved queue is oldest first so admins work through
// it in arrival order; other statuses are newest first.
func (r *RegistrationRepository) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	order := "DESC"
	if f.Status == model.StatusReserved {
		order = "ASC"
	}
	var tournamentID *string
	if f.TournamentID != "" {
		tournamentID = &f.TournamentID
	}
	rows, err := r.conn(ctx).Query(ctx, `
SELECT `+registrationColumns+`
FROM registrations
WHERE status = $1 AND ($2::uuid IS NULL OR tournament_id = $2::uuid)
ORDER BY created_at `+order, string(f.Status), tournamentID)
	if err != nil {
		if database.IsInvalidText(err) {
			return nil, model.ErrInvalidID
		}
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return collectRegistrations(rows)
}

func (r *RegistrationRepository) conn(ctx context.Context) database.Querier {
	return database.Conn(ctx, r.db)
}

func collectRegistrations(rows pgx.Rows) ([]model.Registration, error) {
	defer rows.Close()
	var out []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, reg)
	}
	if err := rows.Err(); err != nil {
		if database.IsInvalidText(err) {
			return nil, model.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return out, nil
}

func scanRegistration(row pgx.Row) (model.Registration, error) {
	var reg model.Registration
	var status string
	var team []byte
	err := row.Scan(
		&reg.ID, &reg.TournamentID, &reg.OwnerID, &team, &status,
		&reg.ReservedUntil, &reg.SlotNumber, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return model.Registration{}, err
	}
	reg.Status = model.RegistrationStatus(status)
	reg.Team = team
	return reg, nil
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
