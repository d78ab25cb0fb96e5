package availability

import (
	"context"
	"fmt"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// BusyLister returns the windows already taken by non-cancelled bookings.
type BusyLister interface {
	BusyWindows(ctx context.Context, vetID string, date Date) ([]Window, error)
}

// VetDirectory confirms a vet exists and may receive bookings.
type VetDirectory interface {
	EnsureBookable(ctx context.Context, vetID string) error
}

// Service answers slot queries and manages weekly rules.
type Service struct {
	rules  RuleStore
	busy   BusyLister
	vets   VetDirectory
	calc   Calculator
	logger *logging.Logger
}

func NewService(rules RuleStore, busy BusyLister, vets VetDirectory, calc Calculator, logger *logging.Logger) *Service {
	if rules == nil {
		panic("availability: rule store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{rules: rules, busy: busy, vets: vets, calc: calc, logger: logger}
}

// Calculator exposes the configured calculator to the booking flow.
func (s *Service) Calculator() Calculator { return s.calc }

// Slots returns the bookable slots for vetID on date.
func (s *Service) Slots(ctx context.Context, vetID string, date Date) ([]Window, error) {
	if s.vets != nil {
		if err := s.vets.EnsureBookable(ctx, vetID); err != nil {
			return nil, err
		}
	}
	rules, err := s.rules.ListForVet(ctx, vetID)
	if err != nil {
		return nil, fmt.Errorf("availability: load rules: %w", err)
	}
	if len(rules) == 0 {
		s.logger.Debug("vet has no availability rules", "vet_id", vetID)
		return []Window{}, nil
	}
	var busy []Window
	if s.busy != nil {
		busy, err = s.busy.BusyWindows(ctx, vetID, date)
		if err != nil {
			return nil, fmt.Errorf("availability: load bookings: %w", err)
		}
	}
	return s.calc.Slots(date, rules, busy), nil
}

// CheckBookable validates a requested window against fresh busy data.
// Overlap with an existing booking is a conflict; anything else outside the
// open windows is a validation failure.
func (s *Service) CheckBookable(ctx context.Context, vetID string, date Date, want Window, busy []Window) error {
	if !want.Valid() {
		return apperr.Validation("start_time must be before end_time")
	}
	if overlapsAny(want, busy) {
		return apperr.Conflict("vet %s already has a booking overlapping %s on %s", vetID, want, date)
	}
	rules, err := s.rules.ListForVet(ctx, vetID)
	if err != nil {
		return fmt.Errorf("availability: load rules: %w", err)
	}
	if !s.calc.Bookable(date, want, rules, busy) {
		return apperr.Validation("%s on %s is outside the vet's availability or already elapsed", want, date)
	}
	return nil
}

// Rules lists a vet's weekly rules.
func (s *Service) Rules(ctx context.Context, vetID string) ([]Rule, error) {
	return s.rules.ListForVet(ctx, vetID)
}

// ReplaceRules validates and stores a vet's full weekly schedule.
func (s *Service) ReplaceRules(ctx context.Context, vetID string, rules []Rule) ([]Rule, error) {
	for i, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return nil, apperr.Validation("rule %d: %v", i, ErrInvalidDayOfWeek)
		}
		if !r.Window().Valid() {
			return nil, apperr.Validation("rule %d: %v", i, ErrInvalidWindow)
		}
	}
	stored, err := s.rules.ReplaceForVet(ctx, vetID, rules)
	if err != nil {
		return nil, err
	}
	s.logger.Info("availability rules replaced", "vet_id", vetID, "count", len(stored))
	return stored, nil
}
