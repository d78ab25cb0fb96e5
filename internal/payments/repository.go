package payments

import (
	"context"
	"sort"
	"sync"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

// Repository persists transactions.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	List(ctx context.Context) ([]Transaction, error)
	ListForBookings(ctx context.Context, bookingIDs []string) ([]Transaction, error)
	// LatestSettledForBooking returns the newest completed/success
	// transaction for a booking, or NotFound.
	LatestSettledForBooking(ctx context.Context, bookingID string) (*Transaction, error)
	MarkRefunded(ctx context.Context, id string, amount int64) error
}

type InMemoryRepository struct {
	mu  sync.RWMutex
	txs map[string]Transaction
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{txs: make(map[string]Transaction)}
}

func (r *InMemoryRepository) Create(_ context.Context, tx *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.ProviderPaymentID != "" {
		for _, existing := range r.txs {
			if existing.Provider == tx.Provider && existing.ProviderPaymentID == tx.ProviderPaymentID {
				return &apperr.Error{Kind: apperr.KindConflict, Message: "payment " + tx.ProviderPaymentID, Err: ErrDuplicatePayment}
			}
		}
	}
	r.txs[tx.ID] = *tx
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, apperr.NotFound("transaction", id)
	}
	return &tx, nil
}

func (r *InMemoryRepository) List(_ context.Context) ([]Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Transaction, 0, len(r.txs))
	for _, tx := range r.txs {
		out = append(out, tx)
	}
	sortTransactions(out)
	return out, nil
}

func (r *InMemoryRepository) ListForBookings(ctx context.Context, bookingIDs []string) ([]Transaction, error) {
	want := make(map[string]struct{}, len(bookingIDs))
	for _, id := range bookingIDs {
		want[id] = struct{}{}
	}
	all, _ := r.List(ctx)
	out := all[:0]
	for _, tx := range all {
		if _, ok := want[tx.BookingID]; ok && tx.BookingID != "" {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) LatestSettledForBooking(ctx context.Context, bookingID string) (*Transaction, error) {
	all, _ := r.List(ctx)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].BookingID == bookingID && all[i].Status.Settled() {
			tx := all[i]
			return &tx, nil
		}
	}
	return nil, apperr.NotFound("settled transaction for booking", bookingID)
}

func (r *InMemoryRepository) MarkRefunded(_ context.Context, id string, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return apperr.NotFound("transaction", id)
	}
	tx.Status = StatusRefunded
	tx.RefundAmount = amount
	r.txs[id] = tx
	return nil
}

func sortTransactions(txs []Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].CreatedAt.Before(txs[j].CreatedAt)
		}
		return txs[i].ID < txs[j].ID
	})
}
