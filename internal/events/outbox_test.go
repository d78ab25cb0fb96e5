package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestOutboxStoreFlow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newOutboxStoreWithExec(mock)

	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), "booking:b-1", TypeBookingCreated, "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	if _, err := store.Insert(context.Background(), "booking:b-1", sampleCreated()); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	now := time.Now().UTC()
	id := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "aggregate", "event_type", "correlation_id", "payload", "attempts", "created_at"}).
		AddRow(id, "booking:b-1", TypeBookingCreated, "", []byte(`{"booking":{"booking_id":"b-1"}}`), 0, now)
	mock.ExpectQuery("SELECT id").WithArgs(int32(10), maxAttempts).WillReturnRows(rows)

	entries, err := store.FetchPending(context.Background(), 10)
	if err != nil {
		t.Fatalf("fetch pending failed: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != id {
		t.Fatalf("unexpected entries: %#v", entries)
	}
	if env := entries[0].Envelope(); env.EventID != id || env.EventType != TypeBookingCreated {
		t.Fatalf("unexpected envelope: %#v", env)
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.MarkDelivered(context.Background(), id)
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if !ok {
		t.Fatal("expected mark delivered to report success")
	}

	mock.ExpectExec("UPDATE outbox").WithArgs(id, "boom").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	if err := store.MarkFailed(context.Background(), id, errors.New("boom")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type fakePendingStore struct {
	entries   []OutboxEntry
	delivered []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakePendingStore) FetchPending(context.Context, int32) ([]OutboxEntry, error) {
	return f.entries, nil
}

func (f *fakePendingStore) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	f.delivered = append(f.delivered, id)
	return true, nil
}

func (f *fakePendingStore) MarkFailed(_ context.Context, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func TestDelivererDrainMarksOutcomes(t *testing.T) {
	good, bad := uuid.New(), uuid.New()
	store := &fakePendingStore{entries: []OutboxEntry{
		{ID: good, EventType: TypeBookingCreated},
		{ID: bad, EventType: "unknown.v1"},
	}}
	handler := DeliveryHandlerFunc(func(_ context.Context, entry OutboxEntry) error {
		if entry.EventType == "unknown.v1" {
			return errors.New("unhandled")
		}
		return nil
	})

	d := NewDeliverer(store, handler, nil).WithBatchSize(5).WithInterval(time.Millisecond)
	if n := d.drain(context.Background()); n != 1 {
		t.Fatalf("expected 1 delivered, got %d", n)
	}
	if len(store.delivered) != 1 || store.delivered[0] != good {
		t.Fatalf("unexpected delivered: %v", store.delivered)
	}
	if len(store.failed) != 1 || store.failed[0] != bad {
		t.Fatalf("unexpected failed: %v", store.failed)
	}
}

func TestDelivererStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	d := NewDeliverer(&fakePendingStore{}, DeliveryHandlerFunc(func(context.Context, OutboxEntry) error { return nil }), nil).
		WithInterval(time.Millisecond)
	go func() {
		d.Start(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop")
	}
}
