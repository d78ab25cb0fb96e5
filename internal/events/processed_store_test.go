package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestProcessedStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newProcessedStoreWithExec(mock)

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("notify-worker", "evt").WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	processed, err := store.AlreadyProcessed(context.Background(), "notify-worker", "evt")
	if err != nil || !processed {
		t.Fatalf("expected existing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectQuery("SELECT 1 FROM processed_events").WithArgs("notify-worker", "evt-miss").WillReturnError(pgx.ErrNoRows)
	processed, err = store.AlreadyProcessed(context.Background(), "notify-worker", "evt-miss")
	if err != nil || processed {
		t.Fatalf("expected missing row, got processed=%v err=%v", processed, err)
	}

	mock.ExpectExec("INSERT INTO processed_events").WithArgs("notify-worker", "evt-new").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	ok, err := store.MarkProcessed(context.Background(), "notify-worker", "evt-new")
	if err != nil || !ok {
		t.Fatalf("expected mark processed success, got %v %v", ok, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type memoryMarker struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memoryMarker) AlreadyProcessed(_ context.Context, consumer, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[consumer+"/"+id], nil
}

func (m *memoryMarker) MarkProcessed(_ context.Context, consumer, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen == nil {
		m.seen = map[string]bool{}
	}
	key := consumer + "/" + id
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

func TestIdempotentHandlerRunsOnce(t *testing.T) {
	calls := 0
	next := DeliveryHandlerFunc(func(context.Context, OutboxEntry) error {
		calls++
		return nil
	})
	h := NewIdempotentHandler("notify-worker", &memoryMarker{}, next, nil)
	entry := OutboxEntry{ID: uuid.New(), EventType: TypeBookingCreated}

	for i := 0; i < 3; i++ {
		if err := h.Handle(context.Background(), entry); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected downstream called once, got %d", calls)
	}
}

func TestIdempotentHandlerRetriesAfterFailure(t *testing.T) {
	calls := 0
	next := DeliveryHandlerFunc(func(context.Context, OutboxEntry) error {
		calls++
		if calls == 1 {
			return errors.New("sendgrid 503")
		}
		return nil
	})
	marker := &memoryMarker{}
	h := NewIdempotentHandler("email-lambda", marker, next, nil)
	entry := OutboxEntry{ID: uuid.New(), EventType: TypeBookingStatusChanged}

	if err := h.Handle(context.Background(), entry); err == nil {
		t.Fatal("expected first delivery to fail")
	}
	if seen, _ := marker.AlreadyProcessed(context.Background(), "email-lambda", entry.ID.String()); seen {
		t.Fatal("failed delivery must not be recorded as processed")
	}
	if err := h.Handle(context.Background(), entry); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if err := h.Handle(context.Background(), entry); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one failure and one success, got %d calls", calls)
	}
}

func TestIdempotentHandlersAreScopedByConsumer(t *testing.T) {
	calls := map[string]int{}
	marker := &memoryMarker{}
	entry := OutboxEntry{ID: uuid.New(), EventType: TypeBookingCreated}
	for _, consumer := range []string{"notify-worker", "email-lambda"} {
		consumer := consumer
		h := NewIdempotentHandler(consumer, marker, DeliveryHandlerFunc(func(context.Context, OutboxEntry) error {
			calls[consumer]++
			return nil
		}), nil)
		if err := h.Handle(context.Background(), entry); err != nil {
			t.Fatalf("%s: %v", consumer, err)
		}
	}
	if calls["notify-worker"] != 1 || calls["email-lambda"] != 1 {
		t.Fatalf("expected each consumer to run once, got %v", calls)
	}
}

func TestMemoryProcessedStore(t *testing.T) {
	store := NewMemoryProcessedStore()
	ctx := context.Background()

	if seen, _ := store.AlreadyProcessed(ctx, "notify-worker", "evt"); seen {
		t.Fatalf("expected unseen event")
	}
	if ok, _ := store.MarkProcessed(ctx, "notify-worker", "evt"); !ok {
		t.Fatalf("expected first mark to insert")
	}
	if ok, _ := store.MarkProcessed(ctx, "notify-worker", "evt"); ok {
		t.Fatalf("expected second mark to be a no-op")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "notify-worker", "evt"); !seen {
		t.Fatalf("expected event to be recorded")
	}
	if seen, _ := store.AlreadyProcessed(ctx, "email-lambda", "evt"); seen {
		t.Fatalf("expected consumers to be scoped")
	}
}
