// Package model defines the core domain types for tournament registration
// and slot allocation.
package model

import (
	"encoding/json"
	"time"
)

// Tournament is a competition with a fixed number of team slots.
type Tournament struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Game        string    `json:"game"`
	Format      string    `json:"format"`
	EntryFee    int       `json:"entry_fee"`
	PrizePool   string    `json:"prize_pool"`
	Rules       string    `json:"rules,omitempty"`
	MaxCapacity int       `json:"max_capacity"`
	StartsAt    time.Time `json:"starts_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// TournamentSummary is a tournament together with its currently free capacity.
type TournamentSummary struct {
	Tournament
	LiveCount      int `json:"live_count"`
	RemainingSlots int `json:"remaining_slots"`
}

// NewTournamentSummary derives the remaining capacity from a live count.
func NewTournamentSummary(t Tournament, live int) TournamentSummary {
	remaining := t.MaxCapacity - live
	if remaining < 0 {
		remaining = 0
	}
	return TournamentSummary{Tournament: t, LiveCount: live, RemainingSlots: remaining}
}

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusReserved  RegistrationStatus = "RESERVED"
	StatusConfirmed RegistrationStatus = "CONFIRMED"
	StatusRejected  RegistrationStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case StatusReserved, StatusConfirmed, StatusRejected:
		return true
	}
	return false
}

// Registration is a team's claim on a tournament slot.
//
// ReservedUntil is set only while Status is RESERVED and SlotNumber only
// while Status is CONFIRMED.
type Registration struct {
	ID            string             `json:"id"`
	TournamentID  string             `json:"tournament_id"`
	OwnerID       string             `json:"owner_id"`
	Team          json.RawMessage    `json:"team"`
	Status        RegistrationStatus `json:"status"`
	ReservedUntil *time.Time         `json:"reserved_until,omitempty"`
	SlotNumber    *int               `json:"slot_number,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// IsLive reports whether the registration counts toward tournament capacity
// at the given instant.
func (r *Registration) IsLive(now time.Time) bool {
	switch r.Status {
	case StatusConfirmed:
		return true
	case StatusReserved:
		return r.ReservedUntil != nil && r.ReservedUntil.After(now)
	}
	return false
}

// IsExpired reports whether a reservation's window has elapsed.
func (r *Registration) IsExpired(now time.Time) bool {
	return r.Status == StatusReserved && (r.ReservedUntil == nil || !r.ReservedUntil.After(now))
}

// TeamMember is one player on a submitted roster.
type TeamMember struct {
	Name   string `json:"name" validate:"required,max=100"`
	GameID string `json:"game_id" validate:"required,max=100"`
}

// Team is the roster submitted with a registration.
type Team struct {
	Name    string       `json:"name" validate:"required,notblank,max=100"`
	Members []TeamMember `json:"members" validate:"required,min=1,max=10,dive"`
}

// CreateTournamentRequest is the payload for creating a new tournament.
type CreateTournamentRequest struct {
	Title       string    `json:"title" validate:"required,notblank,max=200"`
	Game        string    `json:"game" validate:"required,max=100"`
	Format      string    `json:"format" validate:"required,max=50"`
	EntryFee    int       `json:"entry_fee" validate:"gte=0"`
	PrizePool   string    `json:"prize_pool" validate:"max=100"`
	Rules       string    `json:"rules" validate:"max=10000"`
	MaxCapacity int       `json:"max_capacity" validate:"required,gt=0,lte=100000"`
	StartsAt    time.Time `json:"starts_at" validate:"required"`
}

// RegisterRequest is the payload for registering a team in a tournament.
type RegisterRequest struct {
	TournamentID string `json:"tournament_id" validate:"required,uuid"`
	Team         Team   `json:"team"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Transition is a compare-and-set status change: it applies only while the
// registration is still in From.
type Transition struct {
	ID            string
	From          RegistrationStatus
	To            RegistrationStatus
	SlotNumber    *int
	ReservedUntil *time.Time
	At            time.Time
}

// RegistrationFilter selects registrations for admin listings.
type RegistrationFilter struct {
	Status       RegistrationStatus
	TournamentID string
}
