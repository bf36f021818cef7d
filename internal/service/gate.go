package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/clock"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// DefaultReservationWindow is how long a new registration holds capacity
// while waiting for an admin decision.
const DefaultReservationWindow = 15 * time.Minute

// CapacityGate admits registration requests while the tournament has
// capacity and creates them in the RESERVED state.
type CapacityGate struct {
	store   RegistrationStore
	clock   clock.Clock
	window  time.Duration
	retries int
}

type GateOption func(*CapacityGate)

// WithReservationWindow overrides how long new reservations stay live.
func WithReservationWindow(d time.Duration) GateOption {
	return func(g *CapacityGate) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithGateConflictRetries sets how many times a transaction that lost a race
// is rerun before ErrConcurrencyConflict is returned.
func WithGateConflictRetries(n int) GateOption {
	return func(g *CapacityGate) {
		if n >= 0 {
			g.retries = n
		}
	}
}

func NewCapacityGate(store RegistrationStore, clk clock.Clock, opts ...GateOption) *CapacityGate {
	g := &CapacityGate{
		store:   store,
		clock:   clk,
		window:  DefaultReservationWindow,
		retries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ReservationWindow reports the configured window.
func (g *CapacityGate) ReservationWindow() time.Duration {
	return g.window
}

type ReserveInput struct {
	TournamentID string
	OwnerID      string
	// Team is stored as given.
	Team json.RawMessage
}

// TryReserve admits a registration for in.OwnerID if the tournament exists,
// the owner has no reserved or confirmed registration for it, and fewer than
// MaxCapacity registrations are live. The checks and the insert commit
// atomically.
//
// An expired reservation belonging to the same owner is rejected in the same
// transaction rather than reported as a duplicate.
func (g *CapacityGate) TryReserve(ctx context.Context, in ReserveInput) (model.Registration, error) {
	in.TournamentID = strings.TrimSpace(in.TournamentID)
	in.OwnerID = strings.TrimSpace(in.OwnerID)
	if in.TournamentID == "" {
		return model.Registration{}, fmt.Errorf("%w: tournament id is required", model.ErrValidation)
	}
	if in.OwnerID == "" {
		return model.Registration{}, fmt.Errorf("%w: owner id is required", model.ErrValidation)
	}

	var result model.Registration
	err := runTx(ctx, g.store, g.retries, func(txCtx context.Context) error {
		result = model.Registration{}
		now := g.clock.Now()

		t, err := g.store.GetTournamentForUpdate(txCtx, in.TournamentID)
		if err != nil {
			return err
		}

		existing, err := g.store.FindActiveRegistration(txCtx, in.OwnerID, t.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			if !existing.IsExpired(now) {
				return model.ErrDuplicateRegistration
			}
			if _, err := g.store.UpdateRegistrationStatus(txCtx, expireTransition(existing.ID, now)); err != nil {
				return err
			}
		}

		live, err := g.store.CountLiveRegistrations(txCtx, t.ID, now)
		if err != nil {
			return err
		}
		if live >= t.MaxCapacity {
			return model.ErrCapacityExceeded
		}

		until := now.Add(g.window)
		reg := model.Registration{
			ID:            uuid.NewString(),
			TournamentID:  t.ID,
			OwnerID:       in.OwnerID,
			Team:          in.Team,
			Status:        model.StatusReserved,
			ReservedUntil: &until,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := g.store.InsertReservedRegistration(txCtx, reg); err != nil {
			return err
		}
		result = reg
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}
	return result, nil
}

// ExpireStaleReservations rejects the tournament's reservations whose window
// has closed and returns how many were rejected. Expired reservations already
// do not count toward capacity; this only clears them so the owners can
// register again and dead rows do not pile up.
func (g *CapacityGate) ExpireStaleReservations(ctx context.Context, tournamentID string) (int, error) {
	tournamentID = strings.TrimSpace(tournamentID)
	if tournamentID == "" {
		return 0, fmt.Errorf("%w: tournament id is required", model.ErrValidation)
	}
	return g.store.ExpireReservations(ctx, tournamentID, g.clock.Now())
}

// ExpireAllStaleReservations is ExpireStaleReservations for every tournament.
func (g *CapacityGate) ExpireAllStaleReservations(ctx context.Context) (int, error) {
	return g.store.ExpireAllReservations(ctx, g.clock.Now())
}

func expireTransition(id string, now time.Time) model.Transition {
	return model.Transition{
		ID:   id,
		From: model.StatusReserved,
		To:   model.StatusRejected,
		At:   now,
	}
}
