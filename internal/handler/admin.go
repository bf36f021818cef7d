package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/notify"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/validator"
)

type AdminCatalog interface {
	CreateTournament(ctx context.Context, req model.CreateTournamentRequest) (model.Tournament, error)
	ListRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error)
}

type Decider interface {
	Approve(ctx context.Context, registrationID string) (model.Registration, error)
	Reject(ctx context.Context, registrationID string) (model.Registration, error)
}

type ReservationExpirer interface {
	ExpireStaleReservations(ctx context.Context, tournamentID string) (int, error)
}

// AdminHandler serves tournament management and registration decisions.
type AdminHandler struct {
	catalog  AdminCatalog
	decider  Decider
	expirer  ReservationExpirer
	notifier notify.Notifier
}

func NewAdminHandler(catalog AdminCatalog, decider Decider, expirer ReservationExpirer, notifier notify.Notifier) *AdminHandler {
	return &AdminHandler{catalog: catalog, decider: decider, expirer: expirer, notifier: notifier}
}

// CreateTournament handles POST /api/admin/tournaments
func (h *AdminHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req model.CreateTournamentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
		return
	}
	if err := validator.Validate(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	t, err := h.catalog.CreateTournament(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListRegistrations handles GET /api/admin/registrations?status=&tournament_id=
// Without a status it lists the pending (RESERVED) queue.
func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.RegistrationFilter{
		Status:       model.RegistrationStatus(q.Get("status")),
		TournamentID: strings.TrimSpace(q.Get("tournament_id")),
	}
	if f.TournamentID != "" {
		if _, err := uuid.Parse(f.TournamentID); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidID, "tournament_id must be a UUID")
			return
		}
	}

	regs, err := h.catalog.ListRegistrations(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRegistrations(w, regs)
}

// Approve handles POST /api/admin/registrations/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.decider.Approve)
}

// Reject handles POST /api/admin/registrations/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.decider.Reject)
}

func (h *AdminHandler) decide(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (model.Registration, error)) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reg, err := fn(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	log := zerolog.Ctx(r.Context())
	ev := log.Info().
		Str("registration_id", reg.ID).
		Str("tournament_id", reg.TournamentID).
		Str("status", string(reg.Status))
	if reg.SlotNumber != nil {
		ev = ev.Int("slot", *reg.SlotNumber)
	}
	ev.Msg("registration decided")

	// The decision is committed; a failed notification must not undo it.
	if err := h.notifier.RegistrationDecided(r.Context(), notify.NewDecisionEvent(reg)); err != nil {
		log.Warn().Err(err).Str("registration_id", reg.ID).Msg("decision notification failed")
	}

	writeJSON(w, http.StatusOK, reg)
}

type expireResponse struct {
	TournamentID string `json:"tournament_id"`
	Expired      int    `json:"expired"`
}

// ExpireReservations handles POST /api/admin/tournaments/{id}/expire
func (h *AdminHandler) ExpireReservations(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.expirer.ExpireStaleReservations(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expireResponse{TournamentID: id, Expired: n})
}
