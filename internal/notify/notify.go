// Package notify tells the outside world about admin decisions on
// registrations.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// DecisionEvent is published after a registration is approved or rejected.
type DecisionEvent struct {
	RegistrationID string                   `json:"registration_id"`
	TournamentID   string                   `json:"tournament_id"`
	OwnerID        string                   `json:"owner_id"`
	Status         model.RegistrationStatus `json:"status"`
	SlotNumber     *int                     `json:"slot_number,omitempty"`
	DecidedAt      time.Time                `json:"decided_at"`
}

// NewDecisionEvent builds the event for a registration that was just decided.
func NewDecisionEvent(reg model.Registration) DecisionEvent {
	return DecisionEvent{
		RegistrationID: reg.ID,
		TournamentID:   reg.TournamentID,
		OwnerID:        reg.OwnerID,
		Status:         reg.Status,
		SlotNumber:     reg.SlotNumber,
		DecidedAt:      reg.UpdatedAt,
	}
}

type Notifier interface {
	RegistrationDecided(ctx context.Context, ev DecisionEvent) error
	Close() error
}

// LogNotifier writes decisions to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) RegistrationDecided(_ context.Context, ev DecisionEvent) error {
	e := n.log.Info().
		Str("registration_id", ev.RegistrationID).
		Str("tournament_id", ev.TournamentID).
		Str("owner_id", ev.OwnerID).
		Str("status", string(ev.Status))
	if ev.SlotNumber != nil {
		e = e.Int("slot", *ev.SlotNumber)
	}
	e.Msg("registration decided")
	return nil
}

func (n *LogNotifier) Close() error { return nil }
