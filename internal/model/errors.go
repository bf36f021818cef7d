package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

var (
	ErrTournamentNotFound   = fmt.Errorf("tournament %w", ErrNotFound)
	ErrRegistrationNotFound = fmt.Errorf("registration %w", ErrNotFound)
)

var (
	// ErrDuplicateRegistration is returned when the owner already holds a
	// reserved or confirmed registration for the tournament.
	ErrDuplicateRegistration = errors.New("already registered for this tournament")

	// ErrCapacityExceeded is returned when every slot is confirmed or
	// reserved.
	ErrCapacityExceeded = errors.New("tournament is full")

	// ErrInvalidState is returned for an illegal status transition.
	ErrInvalidState = errors.New("invalid registration state")

	// ErrConcurrencyConflict is returned when a transaction lost a race and
	// was rolled back. Nothing was persisted; the operation may be retried.
	ErrConcurrencyConflict = errors.New("concurrent update conflict")

	ErrInvalidID  = errors.New("invalid id")
	ErrValidation = errors.New("validation failed")
)
