package bookings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/internal/refunds"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

var bookingsTracer = otel.Tracer("vetcare.internal.bookings")

// PetRef is the slice of a pet the booking flow needs.
type PetRef struct {
	ID      string
	OwnerID string
	Name    string
}

// PetDirectory resolves pets for ownership checks.
type PetDirectory interface {
	LookupPet(ctx context.Context, petID string) (PetRef, error)
}

// VetDirectory confirms a vet is approved.
type VetDirectory interface {
	EnsureBookable(ctx context.Context, vetID string) error
}

// ParticipantDirectory fills in names and emails for notification events.
type ParticipantDirectory interface {
	Participants(ctx context.Context, ownerID, vetID, petID string) (events.Participants, error)
}

// Refunder marks a booking's captured payment as refunded and returns the
// refunded amount.
type Refunder interface {
	RefundBooking(ctx context.Context, bookingID string, percent int) (int64, error)
}

// MeetingProvisioner creates a video room for a booking.
type MeetingProvisioner interface {
	Provision(ctx context.Context, b Booking) (Meeting, error)
}

// Service owns the booking lifecycle.
type Service struct {
	repo     Repository
	avail    *availability.Service
	locker   SlotLocker
	pets     PetDirectory
	vets     VetDirectory
	people   ParticipantDirectory
	refunder Refunder
	meetings MeetingProvisioner
	policy   refunds.Policy
	loc      *time.Location
	metrics  *metrics.BookingMetrics
	now      func() time.Time
	logger   *logging.Logger
}

// NewService constructs a bookings service. Collaborators are attached with
// the With* setters; missing optional ones are skipped.
func NewService(repo Repository, avail *availability.Service, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if avail == nil {
		panic("bookings: availability service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc := avail.Calculator().Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		repo:   repo,
		avail:  avail,
		locker: NewLocalSlotLocker(),
		policy: refunds.DefaultPolicy(),
		loc:    loc,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

func (s *Service) WithLocker(l SlotLocker) *Service {
	if l != nil {
		s.locker = l
	}
	return s
}

func (s *Service) WithDirectories(pets PetDirectory, vets VetDirectory, people ParticipantDirectory) *Service {
	s.pets, s.vets, s.people = pets, vets, people
	return s
}

func (s *Service) WithRefunds(policy refunds.Policy, refunder Refunder) *Service {
	s.policy = policy
	s.refunder = refunder
	return s
}

func (s *Service) WithMeetings(p MeetingProvisioner) *Service {
	s.meetings = p
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// CreateRequest is the ingress shape for a new booking.
type CreateRequest struct {
	PetOwnerID       string `json:"pet_owner_id,omitempty"`
	VetID            string `json:"vet_id"`
	PetID            string `json:"pet_id"`
	BookingDate      string `json:"booking_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	ConsultationType string `json:"consultation_type"`
	Notes            string `json:"notes,omitempty"`
}

func (r CreateRequest) parse() (*Booking, error) {
	var missing []string
	for name, v := range map[string]string{
		"vet_id": r.VetID, "pet_id": r.PetID, "booking_date": r.BookingDate,
		"start_time": r.StartTime, "end_time": r.EndTime, "consultation_type": r.ConsultationType,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	date, err := availability.ParseDate(r.BookingDate)
	if err != nil {
		return nil, apperr.Validation("booking_date: %v", err)
	}
	start, end, err := parseWindow(r.StartTime, r.EndTime)
	if err != nil {
		return nil, err
	}
	ctype := ConsultationType(strings.TrimSpace(r.ConsultationType))
	if !ctype.Valid() {
		return nil, apperr.Validation("consultation_type must be video or in_person, got %q", r.ConsultationType)
	}
	return &Booking{
		PetOwnerID:       strings.TrimSpace(r.PetOwnerID),
		VetID:            strings.TrimSpace(r.VetID),
		PetID:            strings.TrimSpace(r.PetID),
		BookingDate:      date,
		StartTime:        start,
		EndTime:          end,
		ConsultationType: ctype,
		Notes:            strings.TrimSpace(r.Notes),
	}, nil
}

func parseWindow(startRaw, endRaw string) (availability.Clock, availability.Clock, error) {
	start, err := availability.ParseClock(startRaw)
	if err != nil {
		return 0, 0, apperr.Validation("start_time: %v", err)
	}
	end, err := availability.ParseClock(endRaw)
	if err != nil {
		return 0, 0, apperr.Validation("end_time: %v", err)
	}
	if start >= end {
		return 0, 0, apperr.Validation("start_time %s must be before end_time %s", start, end)
	}
	return start, end, nil
}

// Create books a slot for a pet owner. The whole check-and-insert runs under
// the slot lock and the transaction-scoped advisory lock.
func (s *Service) Create(ctx context.Context, actor auth.Principal, req CreateRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()

	b, err := req.parse()
	if err != nil {
		return nil, err
	}
	switch {
	case actor.Role == auth.RolePetOwner:
		b.PetOwnerID = actor.UserID
	case actor.IsAdmin() && b.PetOwnerID != "":
	case actor.IsAdmin():
		return nil, apperr.Validation("pet_owner_id is required when an admin books")
	default:
		return nil, apperr.Forbidden("%s cannot create bookings", roleLabel(actor.Role))
	}
	span.SetAttributes(
		attribute.String("vetcare.vet_id", b.VetID),
		attribute.String("vetcare.booking_date", b.BookingDate.String()),
	)

	if err := s.checkPet(ctx, b.PetID, b.PetOwnerID); err != nil {
		return nil, err
	}
	if s.vets != nil {
		if err := s.vets.EnsureBookable(ctx, b.VetID); err != nil {
			return nil, err
		}
	}
	participants := s.participants(ctx, b)

	release, err := s.lock(ctx, b.VetID, b.BookingDate)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer release()

	now := s.now()
	b.Status = StatusPending
	b.PaymentStatus = PaymentUnpaid
	b.CreatedAt, b.UpdatedAt = now, now

	err = s.repo.InTx(ctx, func(tx Tx) error {
		if err := tx.LockSlot(ctx, b.VetID, b.BookingDate); err != nil {
			return err
		}
		busy, err := tx.ListActiveForVetOnDate(ctx, b.VetID, b.BookingDate)
		if err != nil {
			return err
		}
		if err := s.avail.CheckBookable(ctx, b.VetID, b.BookingDate, b.Window(), windows(busy, "")); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.metrics.ObserveConflict("precheck")
			}
			return err
		}
		if err := tx.Insert(ctx, b); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.metrics.ObserveConflict("constraint")
			}
			return err
		}
		return tx.Emit(ctx, aggregate(b.ID), events.BookingCreatedV1{
			Booking:      b.snapshot(),
			Participants: participants,
			OccurredAt:   now,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("vetcare.booking_id", b.ID))
	s.metrics.ObserveTransition("create", string(b.Status), string(actor.Role))
	s.logger.Info("booking created", "booking_id", b.ID, "vet_id", b.VetID, "pet_owner_id", b.PetOwnerID,
		"date", b.BookingDate.String(), "start", b.StartTime.String())
	return b, nil
}

// Confirm moves a pending booking to confirmed and requests a video room.
func (s *Service) Confirm(ctx context.Context, actor auth.Principal, id string) (*Booking, error) {
	change, err := s.changeStatus(ctx, actor, id, ActionConfirm, func(cur Status) (Status, error) {
		return Transition(cur, ActionConfirm, actor.Role)
	}, CancelOptions{})
	if err != nil {
		return nil, err
	}
	b := change.booking
	s.provisionMeeting(ctx, &b)
	return &b, nil
}

// Complete marks a confirmed consultation as done.
func (s *Service) Complete(ctx context.Context, actor auth.Principal, id string) (*Booking, error) {
	change, err := s.changeStatus(ctx, actor, id, ActionComplete, func(cur Status) (Status, error) {
		return Transition(cur, ActionComplete, actor.Role)
	}, CancelOptions{})
	if err != nil {
		return nil, err
	}
	return &change.booking, nil
}

// CancelOptions carries the no-show evidence for the refund policy. The
// policy ignores the evidence on owner-initiated cancellations.
type CancelOptions struct {
	Reason           string `json:"reason,omitempty"`
	NoShow           bool   `json:"no_show,omitempty"`
	TechnicalFailure bool   `json:"technical_failure,omitempty"`
}

// CancelResult is the cancelled booking plus the refund decision.
type CancelResult struct {
	Booking       Booking `json:"booking"`
	RefundPercent int     `json:"refund_percent"`
	RefundAmount  int64   `json:"refund_amount"`
}

// Cancel cancels a pending or confirmed booking and refunds per policy.
func (s *Service) Cancel(ctx context.Context, actor auth.Principal, id string, opts CancelOptions) (*CancelResult, error) {
	change, err := s.changeStatus(ctx, actor, id, ActionCancel, func(cur Status) (Status, error) {
		return Transition(cur, ActionCancel, actor.Role)
	}, opts)
	if err != nil {
		return nil, err
	}
	return s.settleRefund(ctx, change), nil
}

// AdminSetStatus forces a status change, bypassing actor rules.
func (s *Service) AdminSetStatus(ctx context.Context, actor auth.Principal, id string, target Status) (*CancelResult, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("only admins can force a status change")
	}
	change, err := s.changeStatus(ctx, actor, id, actionFor(target), func(cur Status) (Status, error) {
		if err := AdminTransition(cur, target); err != nil {
			return cur, err
		}
		return target, nil
	}, CancelOptions{})
	if err != nil {
		return nil, err
	}
	if target == StatusConfirmed {
		s.provisionMeeting(ctx, &change.booking)
	}
	return s.settleRefund(ctx, change), nil
}

type statusChange struct {
	booking       Booking
	from          Status
	refundPercent int
}

func (s *Service) changeStatus(ctx context.Context, actor auth.Principal, id string, action Action, decide func(Status) (Status, error), opts CancelOptions) (*statusChange, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings."+string(action))
	defer span.End()
	span.SetAttributes(
		attribute.String("vetcare.booking_id", id),
		attribute.String("vetcare.actor_role", string(actor.Role)),
	)

	var change statusChange
	err := s.repo.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, b); err != nil {
			return err
		}
		next, err := decide(b.Status)
		if err != nil {
			return err
		}
		now := s.now()
		change.from = b.Status
		b.Status = next
		b.UpdatedAt = now
		if next == StatusCancelled {
			change.refundPercent = s.policy.Percent(refunds.Cancellation{
				Initiator:        initiatorFor(actor.Role),
				StartsAt:         b.StartsAt(s.loc),
				CancelledAt:      now,
				NoShow:           opts.NoShow,
				TechnicalFailure: opts.TechnicalFailure,
			})
		}
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		change.booking = *b
		return tx.Emit(ctx, aggregate(b.ID), events.BookingStatusChangedV1{
			Booking:       b.snapshot(),
			Participants:  s.participants(ctx, b),
			From:          string(change.from),
			To:            string(next),
			ActorID:       actor.UserID,
			ActorRole:     string(actor.Role),
			RefundPercent: change.refundPercent,
			OccurredAt:    now,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveTransition(string(action), string(change.booking.Status), string(actor.Role))
	s.logger.Info("booking status changed", "booking_id", id, "from", change.from, "to", change.booking.Status,
		"actor_id", actor.UserID, "actor_role", actor.Role)
	return &change, nil
}

// settleRefund applies the refund decision to the booking's payment. A
// failure here is logged; the cancellation itself already committed.
func (s *Service) settleRefund(ctx context.Context, change *statusChange) *CancelResult {
	res := &CancelResult{Booking: change.booking, RefundPercent: change.refundPercent}
	b := &res.Booking
	if b.Status != StatusCancelled || change.refundPercent == 0 || b.PaymentStatus != PaymentPaid || s.refunder == nil {
		return res
	}
	amount, err := s.refunder.RefundBooking(ctx, b.ID, change.refundPercent)
	if err != nil {
		s.logger.Error("refund failed after cancellation", "booking_id", b.ID, "percent", change.refundPercent, "error", err)
		return res
	}
	res.RefundAmount = amount
	status := PaymentRefunded
	if change.refundPercent < 100 {
		status = PaymentPartiallyRefunded
	}
	if err := s.repo.SetPaymentStatus(ctx, b.ID, status); err != nil {
		s.logger.Error("failed to record refund on booking", "booking_id", b.ID, "error", err)
		return res
	}
	b.PaymentStatus = status
	return res
}

// RescheduleRequest moves a booking to a new date and time.
type RescheduleRequest struct {
	BookingDate string `json:"booking_date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
}

// Reschedule mutates date and times in place. Status is unchanged.
func (s *Service) Reschedule(ctx context.Context, actor auth.Principal, id string, req RescheduleRequest) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("vetcare.booking_id", id))

	date, err := availability.ParseDate(req.BookingDate)
	if err != nil {
		return nil, apperr.Validation("booking_date: %v", err)
	}
	start, end, err := parseWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, current); err != nil {
		return nil, err
	}
	if _, err := Transition(current.Status, ActionReschedule, actor.Role); err != nil {
		return nil, err
	}

	release, err := s.lock(ctx, current.VetID, date)
	if err != nil {
		return nil, err
	}
	defer release()

	var updated Booking
	err = s.repo.InTx(ctx, func(tx Tx) error {
		if err := tx.LockSlot(ctx, current.VetID, date); err != nil {
			return err
		}
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if _, err := Transition(b.Status, ActionReschedule, actor.Role); err != nil {
			return err
		}
		want := availability.Window{Start: start, End: end}
		busy, err := tx.ListActiveForVetOnDate(ctx, b.VetID, date)
		if err != nil {
			return err
		}
		if err := s.avail.CheckBookable(ctx, b.VetID, date, want, windows(busy, b.ID)); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.metrics.ObserveConflict("precheck")
			}
			return err
		}
		prevDate, prevStart, prevEnd := b.BookingDate, b.StartTime, b.EndTime
		b.BookingDate, b.StartTime, b.EndTime = date, start, end
		b.MeetingID, b.MeetingURL, b.HostMeetingURL = "", "", ""
		b.UpdatedAt = s.now()
		if err := tx.Update(ctx, b); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				s.metrics.ObserveConflict("constraint")
			}
			return err
		}
		updated = *b
		return tx.Emit(ctx, aggregate(b.ID), events.BookingRescheduledV1{
			Booking:       b.snapshot(),
			Participants:  s.participants(ctx, b),
			PreviousDate:  prevDate.String(),
			PreviousStart: prevStart.String(),
			PreviousEnd:   prevEnd.String(),
			ActorID:       actor.UserID,
			OccurredAt:    b.UpdatedAt,
		})
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.metrics.ObserveTransition(string(ActionReschedule), string(updated.Status), string(actor.Role))
	s.logger.Info("booking rescheduled", "booking_id", id, "date", date.String(), "start", start.String(), "actor_id", actor.UserID)
	s.provisionMeeting(ctx, &updated)
	return &updated, nil
}

// Get returns a booking visible to actor.
func (s *Service) Get(ctx context.Context, actor auth.Principal, id string) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Lookup returns a booking without an actor check, for internal callers.
func (s *Service) Lookup(ctx context.Context, id string) (*Booking, error) {
	return s.repo.Get(ctx, id)
}

// List scopes f to what actor may see.
func (s *Service) List(ctx context.Context, actor auth.Principal, f Filter) ([]Booking, error) {
	switch actor.Role {
	case auth.RoleAdmin:
	case auth.RolePetOwner:
		f.PetOwnerID = actor.UserID
	case auth.RoleVet:
		f.VetID = actor.UserID
	default:
		return nil, apperr.Forbidden("%s cannot list bookings", roleLabel(actor.Role))
	}
	return s.repo.List(ctx, f)
}

// BusyLister adapts a Repository to availability.BusyLister so the
// availability service can be built before the booking service.
type BusyLister struct {
	Repo Repository
}

func (l BusyLister) BusyWindows(ctx context.Context, vetID string, date availability.Date) ([]availability.Window, error) {
	bs, err := l.Repo.ListActiveForVetOnDate(ctx, vetID, date)
	if err != nil {
		return nil, err
	}
	return windows(bs, ""), nil
}

// BusyWindows returns the windows taken on the vet's day.
func (s *Service) BusyWindows(ctx context.Context, vetID string, date availability.Date) ([]availability.Window, error) {
	return BusyLister{Repo: s.repo}.BusyWindows(ctx, vetID, date)
}

// CountActiveForPet reports pending or confirmed bookings for a pet.
func (s *Service) CountActiveForPet(ctx context.Context, petID string) (int, error) {
	return s.repo.CountActiveForPet(ctx, petID)
}

// IsPatient reports whether vetID has any booking for petID.
func (s *Service) IsPatient(ctx context.Context, vetID, petID string) (bool, error) {
	bs, err := s.repo.List(ctx, Filter{VetID: vetID, PetID: petID, Limit: 1})
	if err != nil {
		return false, err
	}
	return len(bs) > 0, nil
}

// SetPaymentStatus records the payment side of a booking.
func (s *Service) SetPaymentStatus(ctx context.Context, id string, status PaymentStatus) error {
	if err := s.repo.SetPaymentStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("booking payment status updated", "booking_id", id, "payment_status", status)
	return nil
}

// PendingMeetings lists confirmed video bookings from today on without a room.
func (s *Service) PendingMeetings(ctx context.Context, limit int) ([]Booking, error) {
	today := availability.DateOf(s.now().In(s.loc))
	bs, err := s.repo.ListNeedingMeeting(ctx, today, limit)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := bs[:0]
	for _, b := range bs {
		if b.EndsAt(s.loc).After(now) {
			out = append(out, b)
		}
	}
	return out, nil
}

// AttachMeeting stores a provisioned room on the booking and writes a
// meeting-ready event in the same transaction. It returns ErrMeetingNotNeeded
// when the booking changed while the room was being created.
func (s *Service) AttachMeeting(ctx context.Context, id string, m Meeting) error {
	err := s.repo.InTx(ctx, func(tx Tx) error {
		b, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !b.NeedsMeeting() {
			return ErrMeetingNotNeeded
		}
		now := s.now()
		b.MeetingID, b.MeetingURL, b.HostMeetingURL = m.ID, m.URL, m.HostURL
		b.UpdatedAt = now
		if err := tx.Update(ctx, b); err != nil {
			return err
		}
		return tx.Emit(ctx, aggregate(b.ID), events.BookingMeetingReadyV1{
			Booking:        b.snapshot(),
			Participants:   s.participants(ctx, b),
			MeetingID:      m.ID,
			HostMeetingURL: m.HostURL,
			OccurredAt:     now,
		})
	})
	if err != nil {
		return fmt.Errorf("bookings: attach meeting: %w", err)
	}
	s.logger.Info("meeting attached", "booking_id", id, "meeting_id", m.ID)
	return nil
}

// Location is the clinic timezone used to resolve booking instants.
func (s *Service) Location() *time.Location { return s.loc }

// provisionMeeting never fails the caller: the retry worker picks up
// bookings that are left without a room.
func (s *Service) provisionMeeting(ctx context.Context, b *Booking) {
	if s.meetings == nil || !b.NeedsMeeting() {
		return
	}
	m, err := s.meetings.Provision(ctx, *b)
	if err != nil {
		s.metrics.ObserveExternalFailure("meeting")
		s.logger.Warn("meeting provisioning failed; will retry", "booking_id", b.ID, "error", err)
		return
	}
	if err := s.AttachMeeting(ctx, b.ID, m); err != nil {
		if errors.Is(err, ErrMeetingNotNeeded) {
			s.logger.Info("meeting discarded; booking changed", "booking_id", b.ID, "meeting_id", m.ID)
			return
		}
		s.logger.Warn("failed to store meeting", "booking_id", b.ID, "error", err)
		return
	}
	b.MeetingID, b.MeetingURL, b.HostMeetingURL = m.ID, m.URL, m.HostURL
}

func (s *Service) checkPet(ctx context.Context, petID, ownerID string) error {
	if s.pets == nil {
		return nil
	}
	pet, err := s.pets.LookupPet(ctx, petID)
	if err != nil {
		return err
	}
	if pet.OwnerID != ownerID {
		return &apperr.Error{Kind: apperr.KindForbidden, Message: "pet " + petID, Err: ErrPetNotOwned}
	}
	return nil
}

func (s *Service) participants(ctx context.Context, b *Booking) events.Participants {
	if s.people == nil {
		return events.Participants{}
	}
	p, err := s.people.Participants(ctx, b.PetOwnerID, b.VetID, b.PetID)
	if err != nil {
		s.logger.Warn("participant lookup failed", "booking_id", b.ID, "error", err)
	}
	return p
}

func (s *Service) lock(ctx context.Context, vetID string, date availability.Date) (func(), error) {
	started := time.Now()
	release, err := s.locker.Acquire(ctx, vetID, date)
	s.metrics.ObserveLockWait(time.Since(started).Seconds())
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			s.metrics.ObserveConflict("lock")
		}
		return nil, err
	}
	return release, nil
}

func authorize(actor auth.Principal, b *Booking) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Role == auth.RolePetOwner && actor.UserID == b.PetOwnerID:
		return nil
	case actor.Role == auth.RoleVet && actor.UserID == b.VetID:
		return nil
	}
	return &apperr.Error{Kind: apperr.KindForbidden, Message: "booking " + b.ID, Err: ErrNotParticipant}
}

func initiatorFor(role auth.Role) refunds.Initiator {
	switch role {
	case auth.RolePetOwner:
		return refunds.InitiatorPetOwner
	case auth.RoleVet:
		return refunds.InitiatorVet
	default:
		return refunds.InitiatorPlatform
	}
}

func windows(bs []Booking, excludeID string) []availability.Window {
	out := make([]availability.Window, 0, len(bs))
	for _, b := range bs {
		if b.ID == excludeID || !b.Active() {
			continue
		}
		out = append(out, b.Window())
	}
	return out
}

func aggregate(bookingID string) string { return events.BookingAggregate(bookingID) }
