package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/auth"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/internal/refunds"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

var paymentsTracer = otel.Tracer("vetcare.internal.payments")

// BookingLedger is the booking surface payments reads and updates.
type BookingLedger interface {
	Lookup(ctx context.Context, id string) (*bookings.Booking, error)
	SetPaymentStatus(ctx context.Context, id string, status bookings.PaymentStatus) error
	List(ctx context.Context, actor auth.Principal, f bookings.Filter) ([]bookings.Booking, error)
}

// Service records provider payments, settles refunds and reports earnings.
type Service struct {
	repo          Repository
	bookings      BookingLedger
	reconciler    Reconciler
	currency      string
	signingSecret string
	allowUnsigned bool
	loc           *time.Location
	now           func() time.Time
	logger        *logging.Logger
}

func NewService(repo Repository, ledger BookingLedger, platformFee int64, logger *logging.Logger) *Service {
	if repo == nil || ledger == nil {
		panic("payments: repository and booking ledger required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:       repo,
		bookings:   ledger,
		reconciler: Reconciler{PlatformFee: platformFee},
		currency:   "INR",
		loc:        time.UTC,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

func (s *Service) WithCurrency(code string) *Service {
	if code != "" {
		s.currency = strings.ToUpper(code)
	}
	return s
}

// WithSigningSecret sets the key checkout signatures are verified with.
// Settled payments are rejected while no secret is set.
func (s *Service) WithSigningSecret(secret string) *Service {
	s.signingSecret = secret
	return s
}

// AllowUnsignedPayments accepts settled payments without a signature when no
// secret is configured. Only local development enables it.
func (s *Service) AllowUnsignedPayments() *Service {
	s.allowUnsigned = true
	return s
}

func (s *Service) signatureValid(req RecordRequest) bool {
	if s.signingSecret == "" && s.allowUnsigned {
		return true
	}
	return VerifySignature(s.signingSecret, req.ProviderOrderID, req.ProviderPaymentID, req.Signature)
}

func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// RecordPayment stores a provider payment for a booking. A settled payment
// marks the booking paid.
func (s *Service) RecordPayment(ctx context.Context, actor auth.Principal, req RecordRequest) (*Transaction, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.record")
	defer span.End()
	span.SetAttributes(attribute.String("vetcare.booking_id", req.BookingID))

	if req.Status == "" {
		req.Status = StatusCompleted
	}
	switch {
	case req.BookingID == "":
		return nil, apperr.Validation("booking_id is required")
	case req.Amount <= 0:
		return nil, apperr.Validation("amount must be positive")
	case strings.TrimSpace(req.Provider) == "":
		return nil, apperr.Validation("provider is required")
	case req.Status == StatusRefunded || !req.Status.Valid():
		return nil, apperr.Validation("status %q cannot be recorded", req.Status)
	}

	b, err := s.bookings.Lookup(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && b.PetOwnerID != actor.UserID {
		return nil, apperr.Forbidden("booking %s belongs to another owner", b.ID)
	}
	if b.Status == bookings.StatusCancelled {
		return nil, apperr.InvalidTransition("booking payment", string(b.Status), "paid")
	}
	if req.Status.Settled() && !s.signatureValid(req) {
		return nil, &apperr.Error{Kind: apperr.KindValidation, Message: "payment " + req.ProviderPaymentID, Err: ErrInvalidSignature}
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	now := s.now()
	tx := &Transaction{
		ID:                uuid.NewString(),
		BookingID:         b.ID,
		Amount:            req.Amount,
		Currency:          currency,
		Status:            req.Status,
		Provider:          strings.ToLower(strings.TrimSpace(req.Provider)),
		ProviderPaymentID: strings.TrimSpace(req.ProviderPaymentID),
		ProviderOrderID:   strings.TrimSpace(req.ProviderOrderID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, err
	}
	if tx.Status.Settled() {
		if err := s.bookings.SetPaymentStatus(ctx, b.ID, bookings.PaymentPaid); err != nil {
			return nil, err
		}
	}
	s.logger.Info("payment recorded", "transaction_id", tx.ID, "booking_id", b.ID, "status", tx.Status, "amount", tx.Amount)
	return tx, nil
}

// RefundBooking refunds percent of the booking's settled payment and
// returns the refunded amount. No settled payment means nothing to refund.
func (s *Service) RefundBooking(ctx context.Context, bookingID string, percent int) (int64, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.refund")
	defer span.End()
	span.SetAttributes(attribute.String("vetcare.booking_id", bookingID), attribute.Int("vetcare.refund_percent", percent))

	tx, err := s.repo.LatestSettledForBooking(ctx, bookingID)
	if errors.Is(err, apperr.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	amount := refunds.Amount(tx.Amount, percent)
	if amount == 0 {
		return 0, nil
	}
	if err := s.repo.MarkRefunded(ctx, tx.ID, amount); err != nil {
		return 0, err
	}
	s.logger.Info("payment refunded", "transaction_id", tx.ID, "booking_id", bookingID, "percent", percent, "amount", amount)
	return amount, nil
}

// Stats is the admin reconciliation view.
func (s *Service) Stats(ctx context.Context, actor auth.Principal) (Stats, error) {
	if !actor.IsAdmin() {
		return Stats{}, apperr.Forbidden("admin role required")
	}
	txs, err := s.repo.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	return s.reconciler.Stats(txs, s.now(), s.loc), nil
}

// ListTransactions returns every transaction for admins.
func (s *Service) ListTransactions(ctx context.Context, actor auth.Principal) ([]Transaction, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("admin role required")
	}
	return s.repo.List(ctx)
}

// Earnings lists a vet's per-booking payouts.
type Earnings struct {
	Splits     []Split `json:"splits"`
	TotalGross int64   `json:"total_gross"`
	TotalFees  int64   `json:"total_fees"`
	TotalNet   int64   `json:"total_net"`
}

func (s *Service) Earnings(ctx context.Context, actor auth.Principal) (*Earnings, error) {
	if actor.Role != auth.RoleVet {
		return nil, apperr.Forbidden("only vets have earnings")
	}
	bs, err := s.bookings.List(ctx, actor, bookings.Filter{VetID: actor.UserID})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(bs))
	for _, b := range bs {
		ids = append(ids, b.ID)
	}
	txs, err := s.repo.ListForBookings(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := &Earnings{Splits: s.reconciler.Splits(txs)}
	for _, sp := range out.Splits {
		out.TotalGross += sp.Amount
		out.TotalFees += sp.PlatformFee
		out.TotalNet += sp.VetEarning
	}
	return out, nil
}
