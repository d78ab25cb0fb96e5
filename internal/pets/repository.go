package pets

import (
	"context"
	"sort"
	"sync"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

// Repository persists pets.
type Repository interface {
	Create(ctx context.Context, p *Pet) error
	Get(ctx context.Context, id string) (*Pet, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Pet, error)
	ListAll(ctx context.Context) ([]Pet, error)
	Update(ctx context.Context, p *Pet) error
	Delete(ctx context.Context, id string) error
}

type InMemoryRepository struct {
	mu   sync.RWMutex
	pets map[string]Pet
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{pets: make(map[string]Pet)}
}

func (r *InMemoryRepository) Create(_ context.Context, p *Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pets[p.ID] = *p
	return nil
}

func (r *InMemoryRepository) Get(_ context.Context, id string) (*Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pets[id]
	if !ok {
		return nil, apperr.NotFound("pet", id)
	}
	return &p, nil
}

func (r *InMemoryRepository) ListByOwner(ctx context.Context, ownerID string) ([]Pet, error) {
	all, _ := r.ListAll(ctx)
	out := all[:0]
	for _, p := range all {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) ListAll(_ context.Context) ([]Pet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Pet, 0, len(r.pets))
	for _, p := range r.pets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *InMemoryRepository) Update(_ context.Context, p *Pet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[p.ID]; !ok {
		return apperr.NotFound("pet", p.ID)
	}
	r.pets[p.ID] = *p
	return nil
}

func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pets[id]; !ok {
		return apperr.NotFound("pet", id)
	}
	delete(r.pets, id)
	return nil
}
