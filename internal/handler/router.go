package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/notify"
)

// Catalog is everything the routes read or create through the catalogue.
type Catalog interface {
	TournamentReader
	OwnerRegistrations
	AdminCatalog
}

// Gate admits registrations and clears stale reservations.
type Gate interface {
	Reserver
	ReservationExpirer
}

// Deps are the collaborators NewRouter wires into routes.
type Deps struct {
	Catalog   Catalog
	Gate      Gate
	Allocator Decider
	Notifier  notify.Notifier
	DB        Pinger

	// RateLimit guards POST /api/registrations. Nil disables it.
	RateLimit func(http.Handler) http.Handler

	AdminToken  string
	CORSOrigins []string
	Log         zerolog.Logger
}

// NewRouter builds the full HTTP API.
func NewRouter(d Deps) http.Handler {
	tournaments := NewTournamentHandler(d.Catalog)
	registrations := NewRegistrationHandler(d.Gate, d.Catalog)
	admin := NewAdminHandler(d.Catalog, d.Allocator, d.Gate, d.Notifier)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(d.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(d.CORSOrigins))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", HealthCheck(d.DB))

	r.Route("/api", func(r chi.Router) {
		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", tournaments.ListTournaments)
			r.Get("/active", tournaments.ListActiveTournaments)
			r.Get("/{id}", tournaments.GetTournament)
		})

		r.Route("/registrations", func(r chi.Router) {
			r.Use(RequireOwner)
			r.Get("/me", registrations.MyRegistrations)
			r.Group(func(r chi.Router) {
				if d.RateLimit != nil {
					r.Use(d.RateLimit)
				}
				r.Post("/", registrations.Register)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin(d.AdminToken))
			r.Post("/tournaments", admin.CreateTournament)
			r.Post("/tournaments/{id}/expire", admin.ExpireReservations)
			r.Get("/registrations", admin.ListRegistrations)
			r.Post("/registrations/{id}/approve", admin.Approve)
			r.Post("/registrations/{id}/reject", admin.Reject)
		})
	})

	return r
}
