package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

func TestWriteServiceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err            error
		expectedStatus int
		expectedCode   string
	}{
		{fmt.Errorf("%w: bad", model.ErrValidation), http.StatusBadRequest, codeValidationFailed},
		{model.ErrInvalidID, http.StatusBadRequest, codeInvalidID},
		{model.ErrTournamentNotFound, http.StatusNotFound, codeTournamentNotFound},
		{model.ErrRegistrationNotFound, http.StatusNotFound, codeRegistrationNotFound},
		{model.ErrDuplicateRegistration, http.StatusConflict, codeDuplicateRegistration},
		{model.ErrCapacityExceeded, http.StatusConflict, codeCapacityExceeded},
		{fmt.Errorf("%w: cannot approve", model.ErrInvalidState), http.StatusConflict, codeInvalidState},
		{fmt.Errorf("%w: serialization", model.ErrConcurrencyConflict), http.StatusConflict, codeConcurrencyConflict},
		{errBoom, http.StatusInternalServerError, codeInternalError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.expectedCode, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}
			var body model.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("body is not an error envelope: %v", err)
			}
			if body.Code != tt.expectedCode {
				t.Fatalf("expected code %q, got %q", tt.expectedCode, body.Code)
			}
			if tt.expectedStatus == http.StatusInternalServerError && strings.Contains(body.Error, "boom") {
				t.Fatal("internal errors must not leak")
			}
		})
	}
}

func TestTournamentRoutes(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	ts.catalog.summaries = []model.TournamentSummary{
		model.NewTournamentSummary(model.Tournament{ID: testTournamentID, Title: "Cup", MaxCapacity: 4}, 1),
	}
	ts.catalog.summary = ts.catalog.summaries[0]

	rec := ts.do(t, http.MethodGet, "/api/tournaments", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"remaining_slots":3`) {
		t.Fatalf("list: unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/tournaments/active", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("active: expected 200, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/tournaments/"+testTournamentID, "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Cup"`) {
		t.Fatalf("get: unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rec = ts.do(t, http.MethodGet, "/api/tournaments/not-a-uuid", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestTournamentRoutes_EmptyListIsArray(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	rec := ts.do(t, http.MethodGet, "/api/tournaments", "", nil)
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("expected [], got %s", got)
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	until := time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC)
	validBody := `{"tournament_id":"` + testTournamentID + `","team":{"name":"Rooks","members":[{"name":"Ann","game_id":"ann#1"}]}}`

	tests := []struct {
		name           string
		body           string
		owner          string
		serviceErr     error
		expectedStatus int
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           validBody,
			owner:          "u1",
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"status":"RESERVED"`,
		},
		{
			name:           "missing owner",
			body:           validBody,
			expectedStatus: http.StatusUnauthorized,
			expectedSubstr: codeOwnerRequired,
		},
		{
			name:           "invalid json",
			body:           `{"tournament_id":`,
			owner:          "u1",
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "unknown field",
			body:           `{"tournament_id":"` + testTournamentID + `","slot":1}`,
			owner:          "u1",
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeInvalidRequestBody,
		},
		{
			name:           "no members",
			body:           `{"tournament_id":"` + testTournamentID + `","team":{"name":"Rooks","members":[]}}`,
			owner:          "u1",
			expectedStatus: http.StatusBadRequest,
			expectedSubstr: codeValidationFailed,
		},
		{
			name:           "tournament not found",
			body:           validBody,
			owner:          "u1",
			serviceErr:     model.ErrTournamentNotFound,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "duplicate",
			body:           validBody,
			owner:          "u1",
			serviceErr:     model.ErrDuplicateRegistration,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeDuplicateRegistration,
		},
		{
			name:           "full",
			body:           validBody,
			owner:          "u1",
			serviceErr:     model.ErrCapacityExceeded,
			expectedStatus: http.StatusConflict,
			expectedSubstr: codeCapacityExceeded,
		},
		{
			name:           "internal error",
			body:           validBody,
			owner:          "u1",
			serviceErr:     errBoom,
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ts := newTestServer(nil)
			ts.gate.reg = model.Registration{ID: testRegID, Status: model.StatusReserved, ReservedUntil: &until}
			ts.gate.err = tt.serviceErr

			var headers map[string]string
			if tt.owner != "" {
				headers = ownerHeaders(tt.owner)
			}
			rec := ts.do(t, http.MethodPost, "/api/registrations", tt.body, headers)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			if tt.expectedSubstr != "" && !strings.Contains(rec.Body.String(), tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, rec.Body.String())
			}
		})
	}
}

func TestRegister_PassesOwnerAndTeam(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	body := `{"tournament_id":"` + testTournamentID + `","team":{"name":"Rooks","members":[{"name":"Ann","game_id":"ann#1"}]}}`
	rec := ts.do(t, http.MethodPost, "/api/registrations", body, ownerHeaders(" u1 "))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ts.gate.got.OwnerID != "u1" || ts.gate.got.TournamentID != testTournamentID {
		t.Fatalf("unexpected input %+v", ts.gate.got)
	}
	var team model.Team
	if err := json.Unmarshal(ts.gate.got.Team, &team); err != nil || team.Name != "Rooks" || len(team.Members) != 1 {
		t.Fatalf("unexpected team %s (%v)", ts.gate.got.Team, err)
	}
}

func TestRegister_RateLimited(t *testing.T) {
	t.Parallel()

	block := func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
	}
	ts := newTestServer(block)

	rec := ts.do(t, http.MethodPost, "/api/registrations", `{}`, ownerHeaders("u1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	// Reads are not limited.
	rec = ts.do(t, http.MethodGet, "/api/registrations/me", "", ownerHeaders("u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMyRegistrations(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	ts.catalog.regs = []model.Registration{{ID: testRegID, OwnerID: "u1", Status: model.StatusConfirmed}}

	rec := ts.do(t, http.MethodGet, "/api/registrations/me", "", ownerHeaders("u1"))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), testRegID) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if ts.catalog.gotOwner != "u1" {
		t.Fatalf("expected owner u1, got %q", ts.catalog.gotOwner)
	}
}

func TestNotFoundIsJSON(t *testing.T) {
	t.Parallel()

	ts := newTestServer(nil)
	rec := ts.do(t, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"code":"not_found"`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	HealthCheck(stubPinger{})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthCheck(stubPinger{err: errors.New("down")})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
