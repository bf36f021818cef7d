// Package worker runs background jobs alongside the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer rejects reservations whose window has closed.
type Expirer interface {
	ExpireAllStaleReservations(ctx context.Context) (int, error)
}

// Sweeper periodically clears expired reservations so their owners can
// register again and the pending queue only shows live reservations.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(expirer Expirer, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		expirer:  expirer,
		interval: interval,
		log:      log.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps every interval until ctx is cancelled. A non-positive interval
// disables the sweeper.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("reservation sweeper disabled")
		return
	}
	s.log.Info().Dur("interval", s.interval).Msg("reservation sweeper started")

	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reservation sweeper stopped")
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass and returns how many reservations expired.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.expirer.ExpireAllStaleReservations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("expire stale reservations")
		}
		return 0
	}
	if n > 0 {
		s.log.Info().Int("expired", n).Msg("expired stale reservations")
	}
	return n
}
