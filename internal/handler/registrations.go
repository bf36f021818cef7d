package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/service"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/validator"
)

type Reserver interface {
	TryReserve(ctx context.Context, in service.ReserveInput) (model.Registration, error)
}

type OwnerRegistrations interface {
	ListOwnerRegistrations(ctx context.Context, ownerID string) ([]model.Registration, error)
}

// RegistrationHandler serves the team-owner side of registration.
type RegistrationHandler struct {
	gate    Reserver
	catalog OwnerRegistrations
}

func NewRegistrationHandler(gate Reserver, catalog OwnerRegistrations) *RegistrationHandler {
	return &RegistrationHandler{gate: gate, catalog: catalog}
}

// Register handles POST /api/registrations
// Reserves capacity for the caller's team. The reservation holds a place
// until an admin decides on it or its window closes.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body: "+err.Error())
		return
	}
	if err := validator.Validate(r.Context(), req); err != nil {
		writeServiceError(w, r, err)
		return
	}

	team, err := json.Marshal(req.Team)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	reg, err := h.gate.TryReserve(r.Context(), service.ReserveInput{
		TournamentID: req.TournamentID,
		OwnerID:      OwnerFromContext(r.Context()),
		Team:         team,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, reg)
}

// MyRegistrations handles GET /api/registrations/me
func (h *RegistrationHandler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.catalog.ListOwnerRegistrations(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRegistrations(w, regs)
}

func writeRegistrations(w http.ResponseWriter, regs []model.Registration) {
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}
