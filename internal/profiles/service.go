package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Service manages profiles and the vet approval workflow.
type Service struct {
	repo   Repository
	now    func() time.Time
	logger *logging.Logger
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	if repo == nil {
		panic("profiles: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }, logger: logger}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Register creates the caller's profile. Vets also get a pending VetProfile.
func (s *Service) Register(ctx context.Context, actor auth.Principal, req RegisterRequest) (*Profile, error) {
	if actor.UserID == "" || actor.Role == "" {
		return nil, apperr.Forbidden("authentication required")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.FullName == "" {
		return nil, apperr.Validation("full_name is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, apperr.Validation("email %q is invalid", req.Email)
	}
	if req.ConsultationFee < 0 {
		return nil, apperr.Validation("consultation_fee must not be negative")
	}

	now := s.now()
	p := &Profile{
		ID:          actor.UserID,
		FullName:    req.FullName,
		Email:       req.Email,
		UserType:    actor.Role,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Address:     strings.TrimSpace(req.Address),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var vet *VetProfile
	if actor.Role == auth.RoleVet {
		vet = &VetProfile{
			ID:              actor.UserID,
			Name:            req.FullName,
			Specialization:  strings.TrimSpace(req.Specialization),
			ConsultationFee: req.ConsultationFee,
			ApprovalStatus:  ApprovalPending,
			ClinicImages:    []string{},
			CreatedAt:       now,
			UpdatedAt:       now,
		}
	}
	if err := s.repo.CreateProfile(ctx, p, vet); err != nil {
		return nil, err
	}
	s.logger.Info("profile registered", "profile_id", p.ID, "user_type", p.UserType)
	return p, nil
}

// GetProfile returns the caller's own profile, or any profile for admins.
func (s *Service) GetProfile(ctx context.Context, actor auth.Principal, id string) (*Profile, error) {
	if id != actor.UserID && !actor.IsAdmin() {
		return nil, apperr.Forbidden("profile %s belongs to another user", id)
	}
	return s.repo.GetProfile(ctx, id)
}

// UpdateProfileRequest edits contact details. Nil fields are kept.
type UpdateProfileRequest struct {
	FullName    *string `json:"full_name,omitempty"`
	PhoneNumber *string `json:"phone_number,omitempty"`
	Address     *string `json:"address,omitempty"`
}

func (s *Service) UpdateMe(ctx context.Context, actor auth.Principal, req UpdateProfileRequest) (*Profile, error) {
	p, err := s.repo.GetProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, apperr.Validation("full_name must not be empty")
		}
		p.FullName = name
	}
	if req.PhoneNumber != nil {
		p.PhoneNumber = strings.TrimSpace(*req.PhoneNumber)
	}
	if req.Address != nil {
		p.Address = strings.TrimSpace(*req.Address)
	}
	p.UpdatedAt = s.now()
	if err := s.repo.UpdateProfile(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// GetVet returns the public view of an approved vet. Admins and the vet
// themself see every field regardless of status.
func (s *Service) GetVet(ctx context.Context, actor auth.Principal, id string) (*VetProfile, error) {
	v, err := s.repo.GetVet(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || actor.UserID == id {
		return v, nil
	}
	if v.ApprovalStatus != ApprovalApproved {
		return nil, apperr.NotFound("vet", id)
	}
	pub := v.Public()
	return &pub, nil
}

func (s *Service) UpdateMyVet(ctx context.Context, actor auth.Principal, req UpdateVetRequest) (*VetProfile, error) {
	if actor.Role != auth.RoleVet {
		return nil, &apperr.Error{Kind: apperr.KindForbidden, Message: "update practice profile", Err: ErrNotVet}
	}
	v, err := s.repo.GetVet(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	req.apply(v)
	if v.Name == "" {
		return nil, apperr.Validation("name must not be empty")
	}
	if v.ConsultationFee < 0 {
		return nil, apperr.Validation("consultation_fee must not be negative")
	}
	v.UpdatedAt = s.now()
	if err := s.repo.UpdateVet(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// ListApprovedVets is the public directory.
func (s *Service) ListApprovedVets(ctx context.Context, specialization string) ([]VetProfile, error) {
	vets, err := s.repo.ListVets(ctx, VetFilter{Status: ApprovalApproved, Specialization: specialization})
	if err != nil {
		return nil, err
	}
	for i := range vets {
		vets[i] = vets[i].Public()
	}
	return vets, nil
}

// ListVets returns every vet for the admin review queue.
func (s *Service) ListVets(ctx context.Context, actor auth.Principal, f VetFilter) ([]VetProfile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown approval status %q", f.Status)
	}
	return s.repo.ListVets(ctx, f)
}

func (s *Service) Approve(ctx context.Context, actor auth.Principal, vetID string) (*VetProfile, error) {
	return s.decide(ctx, actor, vetID, ApprovalApproved)
}

func (s *Service) Reject(ctx context.Context, actor auth.Principal, vetID string) (*VetProfile, error) {
	return s.decide(ctx, actor, vetID, ApprovalRejected)
}

func (s *Service) decide(ctx context.Context, actor auth.Principal, vetID string, status ApprovalStatus) (*VetProfile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	current, err := s.repo.GetVet(ctx, vetID)
	if err != nil {
		return nil, err
	}
	if current.ApprovalStatus != ApprovalPending {
		return nil, apperr.InvalidTransition("vet", string(current.ApprovalStatus), string(status))
	}
	ok, err := s.repo.DecideApproval(ctx, vetID, status, actor.UserID, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another admin.
		latest, err := s.repo.GetVet(ctx, vetID)
		if err != nil {
			return nil, err
		}
		return nil, apperr.InvalidTransition("vet", string(latest.ApprovalStatus), string(status))
	}
	s.logger.Info("vet approval decided", "vet_id", vetID, "status", status, "admin_id", actor.UserID)
	return s.repo.GetVet(ctx, vetID)
}

// EnsureBookable reports NotFound unless the vet exists and is approved.
func (s *Service) EnsureBookable(ctx context.Context, vetID string) error {
	v, err := s.repo.GetVet(ctx, vetID)
	if err != nil {
		return err
	}
	if v.ApprovalStatus != ApprovalApproved {
		return apperr.NotFound("vet", vetID)
	}
	return nil
}

// Contact resolves a profile for notifications.
func (s *Service) Contact(ctx context.Context, id string) (Contact, error) {
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Contact{ID: id}, err
		}
		return Contact{}, fmt.Errorf("profiles: contact: %w", err)
	}
	return p.Contact(), nil
}

// ListProfiles feeds the admin dashboard and user management.
func (s *Service) ListProfiles(ctx context.Context, actor auth.Principal) ([]Profile, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	return s.repo.ListProfiles(ctx)
}
