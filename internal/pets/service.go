package pets

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// BookingIndex answers the booking questions pet management depends on.
type BookingIndex interface {
	CountActiveForPet(ctx context.Context, petID string) (int, error)
	IsPatient(ctx context.Context, vetID, petID string) (bool, error)
}

// Service manages owner-scoped pets.
type Service struct {
	repo     Repository
	bookings BookingIndex
	now      func() time.Time
	logger   *logging.Logger
}

func NewService(repo Repository, idx BookingIndex, logger *logging.Logger) *Service {
	if repo == nil {
		panic("pets: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, bookings: idx, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) Create(ctx context.Context, actor auth.Principal, in Input) (*Pet, error) {
	if actor.Role != auth.RolePetOwner {
		return nil, apperr.Forbidden("only pet owners register pets")
	}
	now := s.now()
	p := &Pet{ID: uuid.NewString(), OwnerID: actor.UserID, CreatedAt: now, UpdatedAt: now}
	in.apply(p)
	if err := validate(p); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("pet created", "pet_id", p.ID, "owner_id", p.OwnerID)
	return p, nil
}

// Get returns a pet to its owner, an admin, or a vet who has a booking for it.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Pet, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canRead(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the caller's pets; admins may pass an owner id or see all.
func (s *Service) List(ctx context.Context, actor auth.Principal, ownerID string) ([]Pet, error) {
	switch {
	case actor.IsAdmin() && ownerID == "":
		return s.repo.ListAll(ctx)
	case actor.IsAdmin():
		return s.repo.ListByOwner(ctx, ownerID)
	case actor.Role == auth.RolePetOwner:
		return s.repo.ListByOwner(ctx, actor.UserID)
	default:
		return nil, apperr.Forbidden("%s cannot list pets", actor.Role)
	}
}

func (s *Service) Update(ctx context.Context, actor auth.Principal, id string, in Input) (*Pet, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := validate(p); err != nil {
		return nil, err
	}
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a pet unless it still has pending or confirmed bookings.
func (s *Service) Delete(ctx context.Context, actor auth.Principal, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if s.bookings != nil {
		n, err := s.bookings.CountActiveForPet(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return &apperr.Error{Kind: apperr.KindConflict, Message: "pet " + id, Err: ErrPetHasActiveBookings}
		}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("pet deleted", "pet_id", id, "actor_id", actor.UserID)
	return nil
}

// LookupPet serves the booking flow's ownership check.
func (s *Service) LookupPet(ctx context.Context, petID string) (bookings.PetRef, error) {
	p, err := s.repo.Get(ctx, petID)
	if err != nil {
		return bookings.PetRef{}, err
	}
	return bookings.PetRef{ID: p.ID, OwnerID: p.OwnerID, Name: p.Name}, nil
}

func (s *Service) owned(ctx context.Context, actor auth.Principal, id string) (*Pet, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.OwnerID != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("pet %s belongs to another owner", id)
	}
	return p, nil
}

func (s *Service) canRead(ctx context.Context, actor auth.Principal, p *Pet) error {
	if actor.IsAdmin() || p.OwnerID == actor.UserID {
		return nil
	}
	if actor.Role == auth.RoleVet && s.bookings != nil {
		ok, err := s.bookings.IsPatient(ctx, actor.UserID, p.ID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return apperr.Forbidden("pet %s is not visible to this user", p.ID)
}

func validate(p *Pet) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.Type == "" {
		return apperr.Validation("type is required")
	}
	if p.Age != nil && *p.Age < 0 {
		return apperr.Validation("age must not be negative")
	}
	if p.Weight != nil && *p.Weight <= 0 {
		return apperr.Validation("weight must be positive")
	}
	return nil
}
