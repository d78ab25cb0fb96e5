package prescriptions

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// PetLookup resolves a pet and its owner.
type PetLookup interface {
	LookupPet(ctx context.Context, petID string) (bookings.PetRef, error)
}

// PatientChecker reports whether a vet has consulted on a pet.
type PatientChecker interface {
	IsPatient(ctx context.Context, vetID, petID string) (bool, error)
}

// Service lets vets prescribe and owners read their pets' prescriptions.
type Service struct {
	repo     Repository
	pets     PetLookup
	patients PatientChecker
	loc      *time.Location
	now      func() time.Time
	logger   *logging.Logger
}

func NewService(repo Repository, pets PetLookup, patients PatientChecker, loc *time.Location, logger *logging.Logger) *Service {
	if repo == nil || pets == nil || patients == nil {
		panic("prescriptions: repository, pet lookup and patient checker required")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, pets: pets, patients: patients, loc: loc, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create records a new active prescription. The vet must have seen the pet.
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*Prescription, error) {
	if actor.Role != auth.RoleVet {
		return nil, apperr.Forbidden("only vets write prescriptions")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	pet, err := s.pets.LookupPet(ctx, req.PetID)
	if err != nil {
		return nil, err
	}
	ok, err := s.patients.IsPatient(ctx, actor.UserID, pet.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apperr.Error{Kind: apperr.KindForbidden, Message: "pet " + pet.ID, Err: ErrNoConsultation}
	}

	now := s.now()
	p := &Prescription{
		ID:             uuid.NewString(),
		VetID:          actor.UserID,
		PetID:          pet.ID,
		PetOwnerID:     pet.OwnerID,
		MedicationName: strings.TrimSpace(req.MedicationName),
		Dosage:         strings.TrimSpace(req.Dosage),
		Frequency:      strings.TrimSpace(req.Frequency),
		Duration:       strings.TrimSpace(req.Duration),
		Diagnosis:      strings.TrimSpace(req.Diagnosis),
		Instructions:   strings.TrimSpace(req.Instructions),
		Status:         StatusActive,
		PrescribedDate: availability.DateOf(now.In(s.loc)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("prescription created", "prescription_id", p.ID, "pet_id", p.PetID, "vet_id", p.VetID)
	return p, nil
}

// ListForPet returns a pet's prescriptions, scoped to the caller.
func (s *Service) ListForPet(ctx context.Context, actor auth.Principal, petID string) ([]Prescription, error) {
	f := Filter{PetID: petID}
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RolePetOwner:
		f.PetOwnerID = actor.UserID
	case auth.RoleVet:
		f.VetID = actor.UserID
	default:
		return nil, apperr.Forbidden("%s cannot read prescriptions", actor.Role)
	}
	return s.repo.List(ctx, f)
}

// List returns every prescription visible to the caller.
func (s *Service) List(ctx context.Context, actor auth.Principal, status Status) ([]Prescription, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.Validation("unknown status %q", status)
	}
	f := Filter{Status: status}
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RolePetOwner:
		f.PetOwnerID = actor.UserID
	case auth.RoleVet:
		f.VetID = actor.UserID
	default:
		return nil, apperr.Forbidden("%s cannot read prescriptions", actor.Role)
	}
	return s.repo.List(ctx, f)
}

// UpdateStatus closes an active prescription. Only the prescribing vet or
// an admin may do so, and only active → completed|discontinued is allowed.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Principal, id string, to Status) (*Prescription, error) {
	if !to.Valid() {
		return nil, apperr.Validation("unknown status %q", to)
	}
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (actor.Role != auth.RoleVet || p.VetID != actor.UserID) {
		return nil, apperr.Forbidden("only the prescribing vet may change prescription %s", id)
	}
	if p.Status != StatusActive || to == StatusActive {
		return nil, apperr.InvalidTransition("prescription", string(p.Status), string(to))
	}
	ok, err := s.repo.UpdateStatus(ctx, id, StatusActive, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		latest, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition("prescription", string(latest.Status), string(to))
	}
	p.Status = to
	p.UpdatedAt = s.now()
	s.logger.Info("prescription status changed", "prescription_id", id, "status", to)
	return p, nil
}

func (r CreateRequest) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"pet_id":          r.PetID,
		"medication_name": r.MedicationName,
		"dosage":          r.Dosage,
		"frequency":       r.Frequency,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
