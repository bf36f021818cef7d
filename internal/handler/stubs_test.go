package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/notify"
	"github.com/Shivanand-hulikatti/tournament-slots/internal/service"
)

const (
	testAdminToken   = "s3cret"
	testTournamentID = "0b8f6c1e-6a57-4a57-9d0c-1f7c5d7f2c11"
	testRegID        = "7d3c2d8e-1d1e-4a7c-8c3c-2a2f0f6f1b22"
)

type stubCatalog struct {
	summaries []model.TournamentSummary
	summary   model.TournamentSummary
	created   model.Tournament
	regs      []model.Registration
	err       error

	gotFilter model.RegistrationFilter
	gotOwner  string
	gotCreate model.CreateTournamentRequest
}

func (s *stubCatalog) ListTournaments(context.Context) ([]model.TournamentSummary, error) {
	return s.summaries, s.err
}

func (s *stubCatalog) ListActiveTournaments(context.Context) ([]model.TournamentSummary, error) {
	return s.summaries, s.err
}

func (s *stubCatalog) GetTournament(_ context.Context, id string) (model.TournamentSummary, error) {
	return s.summary, s.err
}

func (s *stubCatalog) ListOwnerRegistrations(_ context.Context, owner string) ([]model.Registration, error) {
	s.gotOwner = owner
	return s.regs, s.err
}

func (s *stubCatalog) CreateTournament(_ context.Context, req model.CreateTournamentRequest) (model.Tournament, error) {
	s.gotCreate = req
	return s.created, s.err
}

func (s *stubCatalog) ListRegistrations(_ context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	s.gotFilter = f
	return s.regs, s.err
}

type stubGate struct {
	reg     model.Registration
	expired int
	err     error
	got     service.ReserveInput
}

func (s *stubGate) TryReserve(_ context.Context, in service.ReserveInput) (model.Registration, error) {
	s.got = in
	return s.reg, s.err
}

func (s *stubGate) ExpireStaleReservations(context.Context, string) (int, error) {
	return s.expired, s.err
}

type stubAllocator struct {
	reg model.Registration
	err error
}

func (s *stubAllocator) Approve(context.Context, string) (model.Registration, error) {
	return s.reg, s.err
}

func (s *stubAllocator) Reject(context.Context, string) (model.Registration, error) {
	return s.reg, s.err
}

type recordingNotifier struct {
	events []notify.DecisionEvent
	err    error
}

func (n *recordingNotifier) RegistrationDecided(_ context.Context, ev notify.DecisionEvent) error {
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Close() error { return nil }

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	catalog   *stubCatalog
	gate      *stubGate
	allocator *stubAllocator
	notifier  *recordingNotifier
	handler   http.Handler
}

func newTestServer(rateLimit func(http.Handler) http.Handler) *testServer {
	ts := &testServer{
		catalog:   &stubCatalog{},
		gate:      &stubGate{},
		allocator: &stubAllocator{},
		notifier:  &recordingNotifier{},
	}
	ts.handler = NewRouter(Deps{
		Catalog:     ts.catalog,
		Gate:        ts.gate,
		Allocator:   ts.allocator,
		Notifier:    ts.notifier,
		DB:          stubPinger{},
		RateLimit:   rateLimit,
		AdminToken:  testAdminToken,
		CORSOrigins: []string{"http://localhost:5173"},
		Log:         zerolog.Nop(),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func ownerHeaders(owner string) map[string]string {
	return map[string]string{OwnerHeader: owner}
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

var errBoom = errors.New("boom")
