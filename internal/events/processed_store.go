package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records events a consumer has already acted on.
type ProcessedStore struct {
	pool rowQuerier
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{pool: pool}
}

func newProcessedStoreWithExec(exec rowQuerier) *ProcessedStore {
	if exec == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{pool: exec}
}

// AlreadyProcessed checks if consumer has seen this event id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE consumer = $1 AND event_id = $2`
	var exists int
	if err := s.pool.QueryRow(ctx, query, consumer, eventID).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts an event id for the consumer, returning false if it already exists.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (consumer, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.pool.Exec(ctx, query, consumer, eventID)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// ProcessedMarker is the subset of ProcessedStore used for de-duplication.
type ProcessedMarker interface {
	AlreadyProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
}

// MemoryProcessedStore is the process-local ProcessedMarker used without Postgres.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

func (s *MemoryProcessedStore) AlreadyProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[consumer+"/"+eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, consumer, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := consumer + "/" + eventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}

// IdempotentHandler skips entries the named consumer already handled. The
// outbox is at-least-once: an entry whose MarkDelivered failed is fetched again.
type IdempotentHandler struct {
	consumer string
	store    ProcessedMarker
	next     DeliveryHandler
	logger   *logging.Logger
}

func NewIdempotentHandler(consumer string, store ProcessedMarker, next DeliveryHandler, logger *logging.Logger) *IdempotentHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &IdempotentHandler{consumer: consumer, store: store, next: next, logger: logger}
}

func (h *IdempotentHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	eventID := entry.ID.String()
	seen, err := h.store.AlreadyProcessed(ctx, h.consumer, eventID)
	if err != nil {
		return err
	}
	if seen {
		h.logger.Debug("skipping already processed event", "consumer", h.consumer, "event_id", eventID)
		return nil
	}
	if err := h.next.Handle(ctx, entry); err != nil {
		return err
	}
	if _, err := h.store.MarkProcessed(ctx, h.consumer, eventID); err != nil {
		h.logger.Warn("failed to record processed event", "consumer", h.consumer, "event_id", eventID, "error", err)
	}
	return nil
}
