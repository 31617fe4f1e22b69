package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

type fakeTxKey struct{}

// fakeStore backs both the slot registry and the reservation repository.
// WithTx serialises transactions and restores the previous state when fn fails.
type fakeStore struct {
	mu       sync.Mutex
	slots    map[string]domain.Slot
	holds    map[string]domain.Hold
	bookings map[string]domain.Booking

	failUpdateHoldStatus error
}

func newFakeStore(slots ...domain.Slot) *fakeStore {
	f := &fakeStore{
		slots:    make(map[string]domain.Slot),
		holds:    make(map[string]domain.Hold),
		bookings: make(map[string]domain.Booking),
	}
	for _, s := range slots {
		if s.Status == "" {
			s.Status = domain.SlotStatusAvailable
		}
		if s.TempStatus == "" {
			s.TempStatus = domain.TempStatusNormal
		}
		f.slots[s.ID] = s
	}
	return f
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, holds, bookings := cloneMap(f.slots), cloneMap(f.holds), cloneMap(f.bookings)
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.slots, f.holds, f.bookings = slots, holds, bookings
		return err
	}
	return nil
}

func (f *fakeStore) guard(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeStore) Get(ctx context.Context, id string) (domain.Slot, error) {
	defer f.guard(ctx)()
	s, ok := f.slots[id]
	if !ok {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return s, nil
}

func (f *fakeStore) GetForUpdate(ctx context.Context, id string) (domain.Slot, error) {
	return f.Get(ctx, id)
}

func (f *fakeStore) List(ctx context.Context) ([]domain.Slot, error) {
	defer f.guard(ctx)()
	out := make([]domain.Slot, 0, len(f.slots))
	for _, s := range f.slots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeStore) mutateSlot(ctx context.Context, id string, fn func(*domain.Slot)) error {
	defer f.guard(ctx)()
	s, ok := f.slots[id]
	if !ok {
		return domain.ErrSlotNotFound
	}
	fn(&s)
	s.Version++
	f.slots[id] = s
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id string, status domain.SlotStatus) error {
	return f.mutateSlot(ctx, id, func(s *domain.Slot) { s.Status = status })
}

func (f *fakeStore) AttachHold(ctx context.Context, id, holdID string) error {
	return f.mutateSlot(ctx, id, func(s *domain.Slot) { s.ActiveHoldID = holdID })
}

func (f *fakeStore) DetachHold(ctx context.Context, id string) error {
	return f.mutateSlot(ctx, id, func(s *domain.Slot) { s.ActiveHoldID = "" })
}

func (f *fakeStore) AttachBooking(ctx context.Context, id, bookingID string) error {
	return f.mutateSlot(ctx, id, func(s *domain.Slot) { s.ActiveBookingID = bookingID })
}

func (f *fakeStore) UpdateTelemetry(ctx context.Context, id string, temperature float64, status domain.TempStatus) error {
	return f.mutateSlot(ctx, id, func(s *domain.Slot) {
		s.Temperature = temperature
		s.TempStatus = status
	})
}

func (f *fakeStore) CreateHold(ctx context.Context, hold domain.Hold) error {
	defer f.guard(ctx)()
	for _, h := range f.holds {
		if h.SlotID == hold.SlotID && h.Status == domain.HoldStatusPending {
			return domain.ErrSlotAlreadyReserved
		}
	}
	f.holds[hold.ID] = hold
	return nil
}

func (f *fakeStore) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	defer f.guard(ctx)()
	h, ok := f.holds[id]
	if !ok {
		return domain.Hold{}, domain.ErrReservationNotFound
	}
	return h, nil
}

func (f *fakeStore) GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	return f.GetHold(ctx, id)
}

func (f *fakeStore) FindPendingHold(ctx context.Context, slotID string) (*domain.Hold, error) {
	defer f.guard(ctx)()
	for _, h := range f.holds {
		if h.SlotID == slotID && h.Status == domain.HoldStatusPending {
			return &h, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus) error {
	defer f.guard(ctx)()
	if f.failUpdateHoldStatus != nil {
		return f.failUpdateHoldStatus
	}
	h, ok := f.holds[id]
	if !ok {
		return domain.ErrReservationNotFound
	}
	h.Status = status
	f.holds[id] = h
	return nil
}

func (f *fakeStore) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	defer f.guard(ctx)()
	var out []domain.Hold
	for _, h := range f.holds {
		if h.Status == domain.HoldStatusPending && h.ExpiresAt.Before(now) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CreateBooking(ctx context.Context, booking domain.Booking) error {
	defer f.guard(ctx)()
	for _, b := range f.bookings {
		if b.HoldID == booking.HoldID {
			return domain.ErrReservationNotPending
		}
	}
	f.bookings[booking.ID] = booking
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	defer f.guard(ctx)()
	b, ok := f.bookings[id]
	if !ok {
		return domain.Booking{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeStore) slot(id string) domain.Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.slots[id]
}

func (f *fakeStore) hold(id string) domain.Hold {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holds[id]
}

func (f *fakeStore) putHold(h domain.Hold) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.holds[h.ID] = h
}

func (f *fakeStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

type fakeLedgerRepo struct {
	mu      sync.Mutex
	entries []domain.LedgerEntry

	failInsert error
}

func (f *fakeLedgerRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.entries)
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.entries = f.entries[:n]
		return err
	}
	return nil
}

func (f *fakeLedgerRepo) LockTail(context.Context) error { return nil }

func (f *fakeLedgerRepo) Tail(context.Context) (*domain.LedgerEntry, error) {
	if len(f.entries) == 0 {
		return nil, nil
	}
	e := f.entries[len(f.entries)-1]
	return &e, nil
}

func (f *fakeLedgerRepo) Insert(_ context.Context, entry domain.LedgerEntry) (int64, error) {
	if f.failInsert != nil {
		return 0, f.failInsert
	}
	for _, e := range f.entries {
		if e.PreviousHash == entry.PreviousHash {
			return 0, domain.ErrLedgerTailConflict
		}
	}
	entry.Seq = int64(len(f.entries) + 1)
	f.entries = append(f.entries, entry)
	return entry.Seq, nil
}

func (f *fakeLedgerRepo) ListAll(context.Context) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LedgerEntry(nil), f.entries...), nil
}

func (f *fakeLedgerRepo) ListRecent(_ context.Context, limit int) ([]domain.LedgerEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.LedgerEntry, 0, limit)
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeLedgerRepo) tamper(i int, fn func(*domain.LedgerEntry)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(&f.entries[i])
}

type failingAppender struct {
	calls int
}

func (a *failingAppender) Append(context.Context, AppendInput) (domain.LedgerEntry, error) {
	a.calls++
	return domain.LedgerEntry{}, errors.New("ledger unavailable")
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *recordingPublisher) count(t domain.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func (p *recordingPublisher) last(t domain.EventType) (domain.Event, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == t {
			return p.events[i], true
		}
	}
	return domain.Event{}, false
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
