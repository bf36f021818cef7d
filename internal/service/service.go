// Package service implements the registration core: the capacity gate that
// admits teams with a time-boxed reservation, the slot allocator that
// confirms them into numbered slots, and the catalogue read side.
//
// Services hold no mutable state between calls. Every decision re-reads the
// store inside a transaction, so any number of instances can serve the same
// database.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// RegistrationStore is the transactional store the gate and allocator
// operate on. Methods called with the context handed to WithTx's callback
// run inside that transaction.
type RegistrationStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetTournamentForUpdate(ctx context.Context, id string) (model.Tournament, error)
	CountLiveRegistrations(ctx context.Context, tournamentID string, now time.Time) (int, error)
	FindActiveRegistration(ctx context.Context, ownerID, tournamentID string) (*model.Registration, error)
	InsertReservedRegistration(ctx context.Context, reg model.Registration) error

	GetRegistration(ctx context.Context, id string) (model.Registration, error)
	GetRegistrationForUpdate(ctx context.Context, id string) (model.Registration, error)
	ListConfirmedSlotNumbers(ctx context.Context, tournamentID string) ([]int, error)
	UpdateRegistrationStatus(ctx context.Context, tr model.Transition) (model.Registration, error)

	ExpireReservations(ctx context.Context, tournamentID string, now time.Time) (int, error)
	ExpireAllReservations(ctx context.Context, now time.Time) (int, error)
}

const defaultConflictRetries = 1

type txRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// runTx runs fn in a transaction and reruns it up to retries more times when
// the store reports a concurrency conflict. fn must reset any captured
// results on entry since a rolled-back attempt may have set them.
func runTx(ctx context.Context, store txRunner, retries int, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		err = store.WithTx(ctx, fn)
		if !errors.Is(err, model.ErrConcurrencyConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}
