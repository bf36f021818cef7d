package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/clock"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// SlotAllocator applies admin decisions: approving a reservation binds it to
// the lowest free slot number, rejecting releases whatever it held.
type SlotAllocator struct {
	store   RegistrationStore
	clock   clock.Clock
	retries int
}

type AllocatorOption func(*SlotAllocator)

// WithAllocatorConflictRetries sets how many times a transaction that lost a
// race is rerun before ErrConcurrencyConflict is returned.
func WithAllocatorConflictRetries(n int) AllocatorOption {
	return func(a *SlotAllocator) {
		if n >= 0 {
			a.retries = n
		}
	}
}

func NewSlotAllocator(store RegistrationStore, clk clock.Clock, opts ...AllocatorOption) *SlotAllocator {
	a := &SlotAllocator{
		store:   store,
		clock:   clk,
		retries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Approve confirms a RESERVED registration into the smallest slot number not
// held by another confirmed registration of the same tournament.
//
// A reservation whose window already closed no longer holds capacity, so it
// is confirmed only if the tournament still has room for it.
func (a *SlotAllocator) Approve(ctx context.Context, registrationID string) (model.Registration, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return model.Registration{}, fmt.Errorf("%w: registration id is required", model.ErrValidation)
	}

	var result model.Registration
	err := runTx(ctx, a.store, a.retries, func(txCtx context.Context) error {
		result = model.Registration{}
		now := a.clock.Now()

		reg, t, err := a.lock(txCtx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status != model.StatusReserved {
			return fmt.Errorf("%w: cannot approve a %s registration", model.ErrInvalidState, reg.Status)
		}

		if reg.IsExpired(now) {
			live, err := a.store.CountLiveRegistrations(txCtx, t.ID, now)
			if err != nil {
				return err
			}
			if live >= t.MaxCapacity {
				return model.ErrCapacityExceeded
			}
		}

		used, err := a.store.ListConfirmedSlotNumbers(txCtx, t.ID)
		if err != nil {
			return err
		}
		slot := NextSlot(used)

		updated, err := a.store.UpdateRegistrationStatus(txCtx, model.Transition{
			ID:         reg.ID,
			From:       model.StatusReserved,
			To:         model.StatusConfirmed,
			SlotNumber: &slot,
			At:         now,
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}
	return result, nil
}

// Reject moves a RESERVED or CONFIRMED registration to REJECTED, releasing
// its slot number for reuse. Rejecting an already rejected registration
// returns it unchanged.
func (a *SlotAllocator) Reject(ctx context.Context, registrationID string) (model.Registration, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return model.Registration{}, fmt.Errorf("%w: registration id is required", model.ErrValidation)
	}

	var result model.Registration
	err := runTx(ctx, a.store, a.retries, func(txCtx context.Context) error {
		result = model.Registration{}

		reg, _, err := a.lock(txCtx, registrationID)
		if err != nil {
			return err
		}
		if reg.Status == model.StatusRejected {
			result = reg
			return nil
		}

		updated, err := a.store.UpdateRegistrationStatus(txCtx, model.Transition{
			ID:   reg.ID,
			From: reg.Status,
			To:   model.StatusRejected,
			At:   a.clock.Now(),
		})
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return model.Registration{}, err
	}
	return result, nil
}

// lock takes the tournament row lock before the registration row lock, the
// same order TryReserve uses, so approvals, rejections and reservations of a
// tournament never wait on each other in a cycle.
func (a *SlotAllocator) lock(ctx context.Context, registrationID string) (model.Registration, model.Tournament, error) {
	peek, err := a.store.GetRegistration(ctx, registrationID)
	if err != nil {
		return model.Registration{}, model.Tournament{}, err
	}
	t, err := a.store.GetTournamentForUpdate(ctx, peek.TournamentID)
	if err != nil {
		return model.Registration{}, model.Tournament{}, err
	}
	reg, err := a.store.GetRegistrationForUpdate(ctx, registrationID)
	if err != nil {
		return model.Registration{}, model.Tournament{}, err
	}
	return reg, t, nil
}
