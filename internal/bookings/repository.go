package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/events"
)

// Tx is the unit of work used for every booking write. Implementations must
// make LockSlot exclusive per (vet, date) until the transaction ends.
type Tx interface {
	LockSlot(ctx context.Context, vetID string, date availability.Date) error
	ListActiveForVetOnDate(ctx context.Context, vetID string, date availability.Date) ([]Booking, error)
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	Insert(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	Emit(ctx context.Context, aggregate string, evt events.CanonicalEvent) error
}

// Repository persists bookings.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	ListActiveForVetOnDate(ctx context.Context, vetID string, date availability.Date) ([]Booking, error)
	CountActiveForPet(ctx context.Context, petID string) (int, error)
	ListNeedingMeeting(ctx context.Context, from availability.Date, limit int) ([]Booking, error)
	SetPaymentStatus(ctx context.Context, id string, status PaymentStatus) error
}

// InMemoryRepository is used by tests and local runs without Postgres. It
// serialises every transaction and enforces the overlap constraint on write.
type InMemoryRepository struct {
	txMu     sync.Mutex
	mu       sync.RWMutex
	bookings map[string]Booking
	events   []events.Envelope
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{bookings: make(map[string]Booking)}
}

// Events returns the envelopes committed so far.
func (r *InMemoryRepository) Events() []events.Envelope {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]events.Envelope(nil), r.events...)
}

func (r *InMemoryRepository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &memoryTx{repo: r, staged: make(map[string]Booking)}
	if err := fn(tx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, b := range tx.staged {
		r.bookings[id] = b
	}
	r.events = append(r.events, tx.events...)
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking", id)
	}
	return &b, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Booking, 0)
	for _, b := range r.bookings {
		if f.matches(&b) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) ListActiveForVetOnDate(_ context.Context, vetID string, date availability.Date) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.activeOn(vetID, date, nil), nil
}

func (r *InMemoryRepository) activeOn(vetID string, date availability.Date, staged map[string]Booking) []Booking {
	out := make([]Booking, 0)
	seen := make(map[string]bool, len(staged))
	for id, b := range staged {
		seen[id] = true
		if b.VetID == vetID && b.BookingDate == date && b.Active() {
			out = append(out, b)
		}
	}
	for id, b := range r.bookings {
		if seen[id] {
			continue
		}
		if b.VetID == vetID && b.BookingDate == date && b.Active() {
			out = append(out, b)
		}
	}
	sortBookings(out)
	return out
}

func (r *InMemoryRepository) CountActiveForPet(_ context.Context, petID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range r.bookings {
		if b.PetID == petID && !b.Status.Terminal() {
			n++
		}
	}
	return n, nil
}

func (r *InMemoryRepository) ListNeedingMeeting(_ context.Context, from availability.Date, limit int) ([]Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Booking, 0)
	for _, b := range r.bookings {
		if b.NeedsMeeting() && !b.BookingDate.Before(from) {
			out = append(out, b)
		}
	}
	sortBookings(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InMemoryRepository) SetPaymentStatus(_ context.Context, id string, status PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return apperr.NotFound("booking", id)
	}
	b.PaymentStatus = status
	b.UpdatedAt = time.Now().UTC()
	r.bookings[id] = b
	return nil
}

type memoryTx struct {
	repo   *InMemoryRepository
	staged map[string]Booking
	events []events.Envelope
}

// LockSlot is a no-op: InTx already holds the repository-wide lock.
func (t *memoryTx) LockSlot(context.Context, string, availability.Date) error { return nil }

func (t *memoryTx) ListActiveForVetOnDate(_ context.Context, vetID string, date availability.Date) ([]Booking, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	return t.repo.activeOn(vetID, date, t.staged), nil
}

func (t *memoryTx) GetForUpdate(_ context.Context, id string) (*Booking, error) {
	if b, ok := t.staged[id]; ok {
		return &b, nil
	}
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()
	b, ok := t.repo.bookings[id]
	if !ok {
		return nil, apperr.NotFound("booking", id)
	}
	return &b, nil
}

func (t *memoryTx) Insert(ctx context.Context, b *Booking) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := t.checkOverlap(ctx, b); err != nil {
		return err
	}
	t.staged[b.ID] = *b
	return nil
}

func (t *memoryTx) Update(ctx context.Context, b *Booking) error {
	if _, err := t.GetForUpdate(ctx, b.ID); err != nil {
		return err
	}
	if err := t.checkOverlap(ctx, b); err != nil {
		return err
	}
	t.staged[b.ID] = *b
	return nil
}

// checkOverlap mirrors the bookings_no_overlap exclusion constraint.
func (t *memoryTx) checkOverlap(ctx context.Context, b *Booking) error {
	if !b.Active() {
		return nil
	}
	existing, _ := t.ListActiveForVetOnDate(ctx, b.VetID, b.BookingDate)
	for _, other := range existing {
		if other.ID != b.ID && other.Window().Overlaps(b.Window()) {
			return apperr.Conflict("vet %s already has a booking overlapping %s on %s", b.VetID, b.Window(), b.BookingDate)
		}
	}
	return nil
}

func (t *memoryTx) Emit(_ context.Context, aggregate string, evt events.CanonicalEvent) error {
	env, err := events.NewEnvelope(aggregate, "", evt)
	if err != nil {
		return err
	}
	t.events = append(t.events, env)
	return nil
}

func sortBookings(bs []Booking) {
	sort.SliceStable(bs, func(i, j int) bool {
		a, b := bs[i], bs[j]
		if a.BookingDate != b.BookingDate {
			return a.BookingDate.Before(b.BookingDate)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.ID < b.ID
	})
}
