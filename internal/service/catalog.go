package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/clock"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// MaxTournamentCapacity bounds max_capacity on creation.
const MaxTournamentCapacity = 100_000

type TournamentStore interface {
	Create(ctx context.Context, t *model.Tournament) error
	ListSummaries(ctx context.Context, now time.Time) ([]model.TournamentSummary, error)
	ListUpcomingSummaries(ctx context.Context, now time.Time) ([]model.TournamentSummary, error)
	GetSummary(ctx context.Context, id string, now time.Time) (model.TournamentSummary, error)
}

type RegistrationLister interface {
	GetRegistration(ctx context.Context, id string) (model.Registration, error)
	ListByOwner(ctx context.Context, ownerID string) ([]model.Registration, error)
	List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
}

// CatalogService serves tournament and registration reads plus tournament
// creation.
type CatalogService struct {
	tournaments   TournamentStore
	registrations RegistrationLister
	clock         clock.Clock
}

// NewCatalogService constructs a CatalogService with its dependencies.
func NewCatalogService(tournaments TournamentStore, registrations RegistrationLister, clk clock.Clock) *CatalogService {
	return &CatalogService{tournaments: tournaments, registrations: registrations, clock: clk}
}

// CreateTournament validates the request and stores a new tournament.
func (s *CatalogService) CreateTournament(ctx context.Context, req model.CreateTournamentRequest) (model.Tournament, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Game = strings.TrimSpace(req.Game)
	req.Format = strings.TrimSpace(req.Format)
	switch {
	case req.Title == "":
		return model.Tournament{}, fmt.Errorf("%w: title is required", model.ErrValidation)
	case req.Game == "":
		return model.Tournament{}, fmt.Errorf("%w: game is required", model.ErrValidation)
	case req.Format == "":
		return model.Tournament{}, fmt.Errorf("%w: format is required", model.ErrValidation)
	case req.MaxCapacity <= 0:
		return model.Tournament{}, fmt.Errorf("%w: max_capacity must be a positive integer", model.ErrValidation)
	case req.MaxCapacity > MaxTournamentCapacity:
		return model.Tournament{}, fmt.Errorf("%w: max_capacity cannot exceed %d", model.ErrValidation, MaxTournamentCapacity)
	case req.EntryFee < 0:
		return model.Tournament{}, fmt.Errorf("%w: entry_fee cannot be negative", model.ErrValidation)
	case req.StartsAt.IsZero():
		return model.Tournament{}, fmt.Errorf("%w: starts_at is required", model.ErrValidation)
	}

	t := model.Tournament{
		Title:       req.Title,
		Game:        req.Game,
		Format:      req.Format,
		EntryFee:    req.EntryFee,
		PrizePool:   strings.TrimSpace(req.PrizePool),
		Rules:       req.Rules,
		MaxCapacity: req.MaxCapacity,
		StartsAt:    req.StartsAt.UTC(),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.tournaments.Create(ctx, &t); err != nil {
		return model.Tournament{}, err
	}
	return t, nil
}

// ListTournaments returns every tournament with its remaining capacity.
func (s *CatalogService) ListTournaments(ctx context.Context) ([]model.TournamentSummary, error) {
	return s.tournaments.ListSummaries(ctx, s.clock.Now())
}

// ListActiveTournaments returns tournaments that have not started yet.
func (s *CatalogService) ListActiveTournaments(ctx context.Context) ([]model.TournamentSummary, error) {
	return s.tournaments.ListUpcomingSummaries(ctx, s.clock.Now())
}

func (s *CatalogService) GetTournament(ctx context.Context, id string) (model.TournamentSummary, error) {
	if strings.TrimSpace(id) == "" {
		return model.TournamentSummary{}, fmt.Errorf("%w: tournament id is required", model.ErrValidation)
	}
	return s.tournaments.GetSummary(ctx, id, s.clock.Now())
}

func (s *CatalogService) GetRegistration(ctx context.Context, id string) (model.Registration, error) {
	if strings.TrimSpace(id) == "" {
		return model.Registration{}, fmt.Errorf("%w: registration id is required", model.ErrValidation)
	}
	return s.registrations.GetRegistration(ctx, id)
}

// ListOwnerRegistrations returns everything the owner has registered.
func (s *CatalogService) ListOwnerRegistrations(ctx context.Context, ownerID string) ([]model.Registration, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner id is required", model.ErrValidation)
	}
	return s.registrations.ListByOwner(ctx, ownerID)
}

// ListRegistrations returns registrations in one status. An empty status
// means the pending (RESERVED) queue.
func (s *CatalogService) ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	f.Status = model.RegistrationStatus(strings.ToUpper(strings.TrimSpace(string(f.Status))))
	if f.Status == "" {
		f.Status = model.StatusReserved
	}
	if !f.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, f.Status)
	}
	f.TournamentID = strings.TrimSpace(f.TournamentID)
	return s.registrations.List(ctx, f)
}
