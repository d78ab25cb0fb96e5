package profiles

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
)

// Repository persists profiles and vet profiles.
type Repository interface {
	CreateProfile(ctx context.Context, p *Profile, vet *VetProfile) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
	UpdateProfile(ctx context.Context, p *Profile) error
	ListProfiles(ctx context.Context) ([]Profile, error)
	GetVet(ctx context.Context, id string) (*VetProfile, error)
	UpdateVet(ctx context.Context, v *VetProfile) error
	ListVets(ctx context.Context, f VetFilter) ([]VetProfile, error)
	// DecideApproval moves a pending vet to status. It reports false when the
	// vet was no longer pending.
	DecideApproval(ctx context.Context, id string, status ApprovalStatus, by string, at time.Time) (bool, error)
}

// InMemoryRepository keeps profiles in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	vets     map[string]VetProfile
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{profiles: make(map[string]Profile), vets: make(map[string]VetProfile)}
}

func (r *InMemoryRepository) CreateProfile(_ context.Context, p *Profile, vet *VetProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; ok {
		return &apperr.Error{Kind: apperr.KindConflict, Message: "profile " + p.ID, Err: ErrProfileExists}
	}
	r.profiles[p.ID] = *p
	if vet != nil {
		r.vets[vet.ID] = *vet
	}
	return nil
}

func (r *InMemoryRepository) GetProfile(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, apperr.NotFound("profile", id)
	}
	return &p, nil
}

func (r *InMemoryRepository) UpdateProfile(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.profiles[p.ID]; !ok {
		return apperr.NotFound("profile", p.ID)
	}
	r.profiles[p.ID] = *p
	return nil
}

func (r *InMemoryRepository) ListProfiles(_ context.Context) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) || (out[i].CreatedAt.Equal(out[j].CreatedAt) && out[i].ID < out[j].ID) })
	return out, nil
}

func (r *InMemoryRepository) GetVet(_ context.Context, id string) (*VetProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.vets[id]
	if !ok {
		return nil, apperr.NotFound("vet", id)
	}
	return &v, nil
}

func (r *InMemoryRepository) UpdateVet(_ context.Context, v *VetProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vets[v.ID]; !ok {
		return apperr.NotFound("vet", v.ID)
	}
	r.vets[v.ID] = *v
	return nil
}

func (r *InMemoryRepository) ListVets(_ context.Context, f VetFilter) ([]VetProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]VetProfile, 0)
	for _, v := range r.vets {
		if f.Status != "" && v.ApprovalStatus != f.Status {
			continue
		}
		if f.Specialization != "" && v.Specialization != f.Specialization {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name || (out[i].Name == out[j].Name && out[i].ID < out[j].ID) })
	return out, nil
}

func (r *InMemoryRepository) DecideApproval(_ context.Context, id string, status ApprovalStatus, by string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vets[id]
	if !ok {
		return false, apperr.NotFound("vet", id)
	}
	if v.ApprovalStatus != ApprovalPending {
		return false, nil
	}
	v.ApprovalStatus = status
	v.ApprovedBy = by
	v.ApprovedAt = &at
	v.UpdatedAt = at
	r.vets[id] = v
	return true, nil
}
