package prescriptions

import (
	"context"
	"sort"
	"sync"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

type Repository interface {
	Create(ctx context.Context, p *Prescription) error
	Get(ctx context.Context, id string) (*Prescription, error)
	List(ctx context.Context, f Filter) ([]Prescription, error)
	// UpdateStatus moves a prescription from one status to another and
	// reports false if it was no longer in from.
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

type InMemoryRepository struct {
	mu   sync.RWMutex
	rows map[string]Prescription
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{rows: make(map[string]Prescription)}
}

func (r *InMemoryRepository) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[p.ID] = *p
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.rows[id]
	if !ok {
		return nil, apperr.NotFound("prescription", id)
	}
	return &p, nil
}

func (r *InMemoryRepository) List(_ context.Context, f Filter) ([]Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Prescription, 0)
	for _, p := range r.rows {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(_ context.Context, id string, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.rows[id]
	if !ok {
		return false, apperr.NotFound("prescription", id)
	}
	if p.Status != from {
		return false, nil
	}
	p.Status = to
	r.rows[id] = p
	return true, nil
}
