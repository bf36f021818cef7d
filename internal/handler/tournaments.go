package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// TournamentReader is the part of the catalogue the public routes need.
type TournamentReader interface {
	ListTournaments(ctx context.Context) ([]model.TournamentSummary, error)
	ListActiveTournaments(ctx context.Context) ([]model.TournamentSummary, error)
	GetTournament(ctx context.Context, id string) (model.TournamentSummary, error)
}

// TournamentHandler serves the public tournament catalogue.
type TournamentHandler struct {
	svc TournamentReader
}

func NewTournamentHandler(svc TournamentReader) *TournamentHandler {
	return &TournamentHandler{svc: svc}
}

// ListTournaments handles GET /api/tournaments
// Returns every tournament with its remaining capacity.
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListTournaments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSummaries(w, list)
}

// ListActiveTournaments handles GET /api/tournaments/active
// Returns tournaments that have not started yet, soonest first.
func (h *TournamentHandler) ListActiveTournaments(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActiveTournaments(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeSummaries(w, list)
}

// GetTournament handles GET /api/tournaments/{id}
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.GetTournament(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func writeSummaries(w http.ResponseWriter, list []model.TournamentSummary) {
	// Return an empty array rather than null for better client compatibility.
	if list == nil {
		list = []model.TournamentSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}
