package bootstrap

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/bookings"
	appconfig "github.com/wolfman30/vetcare-platform/internal/config"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/internal/payments"
	"github.com/wolfman30/vetcare-platform/internal/pets"
	"github.com/wolfman30/vetcare-platform/internal/prescriptions"
	"github.com/wolfman30/vetcare-platform/internal/profiles"
	"github.com/wolfman30/vetcare-platform/internal/refunds"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// Repositories is the storage layer for one process. Postgres in production,
// in-memory in tests and local runs.
type Repositories struct {
	Profiles      profiles.Repository
	Pets          pets.Repository
	Rules         availability.RuleStore
	Bookings      bookings.Repository
	Prescriptions prescriptions.Repository
	Payments      payments.Repository
}

// InMemoryRepositories returns a fully in-memory storage layer.
func InMemoryRepositories() Repositories {
	return Repositories{
		Profiles:      profiles.NewInMemoryRepository(),
		Pets:          pets.NewInMemoryRepository(),
		Rules:         availability.NewInMemoryRuleStore(),
		Bookings:      bookings.NewInMemoryRepository(),
		Prescriptions: prescriptions.NewInMemoryRepository(),
		Payments:      payments.NewInMemoryRepository(),
	}
}

// PostgresRepositories backs every repository with the shared pool.
func PostgresRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Profiles:      profiles.NewPostgresRepository(pool),
		Pets:          pets.NewPostgresRepository(pool),
		Rules:         availability.NewPostgresRuleStore(pool),
		Bookings:      bookings.NewPostgresRepository(pool),
		Prescriptions: prescriptions.NewPostgresRepository(pool),
		Payments:      payments.NewPostgresRepository(pool),
	}
}

// Options carries the optional collaborators of the service graph.
type Options struct {
	Locker   bookings.SlotLocker
	Meetings bookings.MeetingProvisioner
	Metrics  *metrics.BookingMetrics
	Now      func() time.Time
}

// Services is the wired domain layer.
type Services struct {
	Profiles      *profiles.Service
	Pets          *pets.Service
	Availability  *availability.Service
	Bookings      *bookings.Service
	Prescriptions *prescriptions.Service
	Payments      *payments.Service
	Location      *time.Location
}

// BuildServices wires the domain services. Bookings and pets reference each
// other, so bookings receives its directories after pets exists.
func BuildServices(repos Repositories, policy appconfig.Policy, cfg *appconfig.Config, opts Options, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}
	loc := policy.Location()

	profileSvc := profiles.NewService(repos.Profiles, logger.Component("profiles"))
	calc := availability.NewCalculator(policy.SlotDuration, loc)
	if opts.Now != nil {
		profileSvc.WithClock(opts.Now)
		calc.Now = opts.Now
	}
	availSvc := availability.NewService(repos.Rules, bookings.BusyLister{Repo: repos.Bookings}, profileSvc, calc, logger.Component("availability"))

	bookingSvc := bookings.NewService(repos.Bookings, availSvc, logger.Component("bookings")).
		WithLocker(opts.Locker).
		WithMetrics(opts.Metrics)
	if opts.Now != nil {
		bookingSvc.WithClock(opts.Now)
	}

	petSvc := pets.NewService(repos.Pets, bookingSvc, logger.Component("pets"))
	prescriptionSvc := prescriptions.NewService(repos.Prescriptions, petSvc, bookingSvc, loc, logger.Component("prescriptions"))
	if opts.Now != nil {
		petSvc.WithClock(opts.Now)
		prescriptionSvc.WithClock(opts.Now)
	}

	paymentSvc := payments.NewService(repos.Payments, bookingSvc, policy.PlatformFee, logger.Component("payments")).
		WithLocation(loc)
	if policy.Currency != "" {
		paymentSvc.WithCurrency(policy.Currency)
	}
	if cfg != nil {
		paymentSvc.WithSigningSecret(cfg.PaymentSigningSecret)
		if cfg.PaymentSigningSecret == "" {
			if cfg.IsDevelopment() {
				logger.Warn("PAYMENT_SIGNING_SECRET not set; accepting unsigned payments in development")
				paymentSvc.AllowUnsignedPayments()
			} else {
				logger.Warn("PAYMENT_SIGNING_SECRET not set; settled payments will be rejected")
			}
		}
	}
	if opts.Now != nil {
		paymentSvc.WithClock(opts.Now)
	}

	refundPolicy := refunds.Policy{
		FullNotice:     policy.RefundFullNotice,
		PartialNotice:  policy.RefundPartialNotice,
		PartialPercent: policy.RefundPartialPercent,
	}
	if err := refundPolicy.Validate(); err != nil {
		logger.Warn("invalid refund policy; using default", "error", err)
		refundPolicy = refunds.DefaultPolicy()
	}

	bookingSvc.
		WithDirectories(petSvc, profileSvc, ParticipantDirectory{Profiles: profileSvc, Pets: petSvc}).
		WithRefunds(refundPolicy, paymentSvc)
	if opts.Meetings != nil {
		bookingSvc.WithMeetings(opts.Meetings)
	}

	return &Services{
		Profiles:      profileSvc,
		Pets:          petSvc,
		Availability:  availSvc,
		Bookings:      bookingSvc,
		Prescriptions: prescriptionSvc,
		Payments:      paymentSvc,
		Location:      loc,
	}
}
