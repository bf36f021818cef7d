package service

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/tournament-slots/internal/model"
)

// fakeStore is an in-memory RegistrationStore. Transactions are serialized
// behind txMu and rolled back on error, which is what the tournament row lock
// gives the real store.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	tournaments map[string]model.Tournament
	regs        map[string]model.Registration
	seq         int

	// conflicts makes the next n WithTx calls fail before running fn.
	conflicts int
	txCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tournaments: make(map[string]model.Tournament),
		regs:        make(map[string]model.Registration),
	}
}

func (f *fakeStore) addTournament(id string, capacity int) model.Tournament {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := model.Tournament{ID: id, Title: "T " + id, Game: "chess", Format: "solo", MaxCapacity: capacity}
	f.tournaments[id] = t
	return t
}

// addRegistration stores reg as-is, assigning an id if it has none.
func (f *fakeStore) addRegistration(reg model.Registration) model.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reg.ID == "" {
		f.seq++
		reg.ID = fmt.Sprintf("reg-%d", f.seq)
	}
	f.regs[reg.ID] = reg
	return reg
}

func (f *fakeStore) get(id string) model.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[id]
}

func (f *fakeStore) all() []model.Registration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Registration, 0, len(f.regs))
	for _, r := range f.regs {
		out = append(out, r)
	}
	return out
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	f.txCalls++
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return fmt.Errorf("%w: injected", model.ErrConcurrencyConflict)
	}
	snapshot := maps.Clone(f.regs)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.regs = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStore) GetTournamentForUpdate(_ context.Context, id string) (model.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tournaments[id]
	if !ok {
		return model.Tournament{}, model.ErrTournamentNotFound
	}
	return t, nil
}

func (f *fakeStore) CountLiveRegistrations(_ context.Context, tournamentID string, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, r := range f.regs {
		if r.TournamentID == tournamentID && r.IsLive(now) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) FindActiveRegistration(_ context.Context, ownerID, tournamentID string) (*model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.regs {
		if r.OwnerID == ownerID && r.TournamentID == tournamentID && r.Status != model.StatusRejected {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertReservedRegistration(_ context.Context, reg model.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tournaments[reg.TournamentID]; !ok {
		return model.ErrTournamentNotFound
	}
	for _, r := range f.regs {
		if r.OwnerID == reg.OwnerID && r.TournamentID == reg.TournamentID && r.Status != model.StatusRejected {
			return model.ErrDuplicateRegistration
		}
	}
	f.regs[reg.ID] = reg
	return nil
}

func (f *fakeStore) GetRegistration(_ context.Context, id string) (model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[id]
	if !ok {
		return model.Registration{}, model.ErrRegistrationNotFound
	}
	return r, nil
}

func (f *fakeStore) GetRegistrationForUpdate(ctx context.Context, id string) (model.Registration, error) {
	return f.GetRegistration(ctx, id)
}

func (f *fakeStore) ListConfirmedSlotNumbers(_ context.Context, tournamentID string) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, r := range f.regs {
		if r.TournamentID == tournamentID && r.Status == model.StatusConfirmed && r.SlotNumber != nil {
			out = append(out, *r.SlotNumber)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateRegistrationStatus(_ context.Context, tr model.Transition) (model.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.regs[tr.ID]
	if !ok {
		return model.Registration{}, model.ErrRegistrationNotFound
	}
	if r.Status != tr.From {
		return model.Registration{}, fmt.Errorf("%w: registration %s is no longer %s", model.ErrInvalidState, tr.ID, tr.From)
	}
	if tr.To == model.StatusConfirmed && tr.SlotNumber != nil {
		for _, other := range f.regs {
			if other.ID != r.ID && other.TournamentID == r.TournamentID && other.Status == model.StatusConfirmed &&
				other.SlotNumber != nil && *other.SlotNumber == *tr.SlotNumber {
				return model.Registration{}, fmt.Errorf("%w: slot %d taken", model.ErrConcurrencyConflict, *tr.SlotNumber)
			}
		}
	}
	r.Status = tr.To
	r.SlotNumber = tr.SlotNumber
	r.ReservedUntil = tr.ReservedUntil
	r.UpdatedAt = tr.At
	f.regs[r.ID] = r
	return r, nil
}

func (f *fakeStore) ExpireReservations(_ context.Context, tournamentID string, now time.Time) (int, error) {
	return f.expire(now, func(r model.Registration) bool { return r.TournamentID == tournamentID }), nil
}

func (f *fakeStore) ExpireAllReservations(_ context.Context, now time.Time) (int, error) {
	return f.expire(now, func(model.Registration) bool { return true }), nil
}

func (f *fakeStore) expire(now time.Time, match func(model.Registration) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, r := range f.regs {
		if match(r) && r.IsExpired(now) {
			r.Status = model.StatusRejected
			r.ReservedUntil = nil
			r.UpdatedAt = now
			f.regs[id] = r
			n++
		}
	}
	return n
}
