package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/vetcare-platform/internal/apperr"
	"github.com/wolfman30/vetcare-platform/internal/events"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

var tracer = otel.Tracer("vetcare.internal.notify")

// BookingConfirmation is the payload accepted by the booking-confirmation function.
type BookingConfirmation struct {
	ClientEmail      string `json:"clientEmail"`
	ClientName       string `json:"clientName"`
	VetEmail         string `json:"vetEmail"`
	VetName          string `json:"vetName"`
	BookingID        string `json:"bookingId"`
	BookingDate      string `json:"bookingDate"`
	StartTime        string `json:"startTime"`
	EndTime          string `json:"endTime"`
	ConsultationType string `json:"consultationType"`
	PetName          string `json:"petName"`
	OwnerName        string `json:"ownerName"`
	Notes            string `json:"notes"`
}

// ContactRequest is a public contact form submission.
type ContactRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	RecaptchaToken string `json:"recaptchaToken"`
}

// recipientConsumer scopes per-recipient send records in the processed store.
const recipientConsumer = "notify-recipient"

type eventIDKey struct{}

// Service renders and sends the platform's transactional email. Event-driven
// sends are recorded per recipient, so a redelivered event only mails the
// recipients that failed last time.
type Service struct {
	sender       EmailSender
	sent         events.ProcessedMarker
	metrics      *metrics.BookingMetrics
	captcha      CaptchaVerifier
	contactInbox string
	appURL       string
	logger       *logging.Logger
}

func NewService(sender EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if sender == nil {
		sender = NewStubEmailSender(logger)
	}
	return &Service{sender: sender, sent: events.NewMemoryProcessedStore(), logger: logger}
}

// WithSentLog replaces the process-local send record, typically with the
// Postgres processed_events store shared by every worker.
func (s *Service) WithSentLog(log events.ProcessedMarker) *Service {
	if log != nil {
		s.sent = log
	}
	return s
}

func (s *Service) WithMetrics(m *metrics.BookingMetrics) *Service {
	s.metrics = m
	return s
}

// WithCaptcha enables token verification on contact submissions.
func (s *Service) WithCaptcha(v CaptchaVerifier) *Service {
	s.captcha = v
	return s
}

func (s *Service) WithContactInbox(email string) *Service {
	s.contactInbox = strings.TrimSpace(email)
	return s
}

// WithAppURL sets the link included in booking emails.
func (s *Service) WithAppURL(url string) *Service {
	s.appURL = strings.TrimRight(strings.TrimSpace(url), "/")
	return s
}

// SendBookingConfirmation mails the client and the vet about a new booking request.
// Each recipient is attempted independently.
func (s *Service) SendBookingConfirmation(ctx context.Context, req BookingConfirmation) error {
	ctx, span := tracer.Start(ctx, "notify.booking_confirmation")
	defer span.End()
	span.SetAttributes(attribute.String("booking.id", req.BookingID))

	if strings.TrimSpace(req.ClientEmail) == "" && strings.TrimSpace(req.VetEmail) == "" {
		return apperr.Validation("clientEmail or vetEmail is required")
	}
	if strings.TrimSpace(req.BookingDate) == "" || strings.TrimSpace(req.StartTime) == "" {
		return apperr.Validation("bookingDate and startTime are required")
	}

	var errs []error
	if req.ClientEmail != "" {
		v := s.bookingView(req)
		v.Subject = "Your VetCare appointment request"
		v.Greeting = greeting(req.ClientName)
		v.Lines = []string{
			fmt.Sprintf("Your appointment request with %s has been received.", nameOr(req.VetName, "your vet")),
			"You will receive another email once the vet confirms it.",
		}
		v.add("Vet", req.VetName)
		errs = append(errs, s.send(ctx, TemplateBookingRequestClient, req.ClientEmail, req.ClientName, v))
	}
	if req.VetEmail != "" {
		v := s.bookingView(req)
		v.Subject = "New appointment request"
		v.Greeting = greeting(req.VetName)
		v.Lines = []string{
			fmt.Sprintf("%s has requested an appointment.", nameOr(req.OwnerName, nameOr(req.ClientName, "A pet owner"))),
			"Please confirm or decline it from your dashboard.",
		}
		v.add("Owner", nameOr(req.OwnerName, req.ClientName))
		errs = append(errs, s.send(ctx, TemplateBookingRequestVet, req.VetEmail, req.VetName, v))
	}
	return errors.Join(errs...)
}

func (s *Service) bookingView(req BookingConfirmation) mailView {
	v := mailView{}
	v.add("Booking", req.BookingID)
	v.add("Date", req.BookingDate)
	v.add("Time", timeRange(req.StartTime, req.EndTime))
	v.add("Type", displayType(req.ConsultationType))
	v.add("Pet", req.PetName)
	v.add("Notes", req.Notes)
	if s.appURL != "" && req.BookingID != "" {
		v.LinkText = "View appointment"
		v.LinkURL = s.appURL + "/bookings/" + req.BookingID
	}
	return v
}

// SubmitContact verifies the captcha token and forwards the message to the contact inbox.
func (s *Service) SubmitContact(ctx context.Context, req ContactRequest, remoteIP string) error {
	ctx, span := tracer.Start(ctx, "notify.contact")
	defer span.End()

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", req.Name}, {"email", req.Email}, {"message", req.Message},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validation("missing required fields: %s", strings.Join(missing, ", "))
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apperr.Validation("invalid email address")
	}
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, req.RecaptchaToken, remoteIP); err != nil {
			if errors.Is(err, ErrCaptchaFailed) || errors.Is(err, ErrCaptchaLowScore) {
				s.logger.Info("contact captcha rejected", "error", err)
				return apperr.Forbidden("captcha verification failed")
			}
			s.metrics.ObserveExternalFailure("recaptcha")
			return apperr.External("recaptcha", err)
		}
	}
	if s.contactInbox == "" {
		return fmt.Errorf("notify: contact inbox not configured")
	}

	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "General enquiry"
	}
	v := mailView{
		Subject:  "Contact form: " + subject,
		Greeting: "New contact form submission:",
		Lines:    strings.Split(strings.TrimSpace(req.Message), "\n"),
	}
	v.add("Name", req.Name)
	v.add("Email", req.Email)
	v.add("Subject", subject)

	msg, err := s.compose(s.contactInbox, "", v)
	if err != nil {
		return err
	}
	msg.ReplyTo = req.Email
	return s.deliver(ctx, TemplateContact, msg)
}

// Handle implements events.DeliveryHandler for booking events.
func (s *Service) Handle(ctx context.Context, entry events.OutboxEntry) error {
	return s.HandleEnvelope(ctx, entry.Envelope())
}

// HandleEnvelope renders the email for a booking event. Unknown event types are ignored.
func (s *Service) HandleEnvelope(ctx context.Context, env events.Envelope) error {
	evt, err := env.Decode()
	if errors.Is(err, events.ErrUnknownEventType) {
		s.logger.Debug("notify: ignoring event", "event_type", env.EventType, "event_id", env.EventID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	ctx = context.WithValue(ctx, eventIDKey{}, env.EventID)
	switch e := evt.(type) {
	case *events.BookingCreatedV1:
		return s.SendBookingConfirmation(ctx, confirmationFromSnapshot(e.Booking, e.Participants))
	case *events.BookingStatusChangedV1:
		return s.statusChanged(ctx, *e)
	case *events.BookingRescheduledV1:
		return s.rescheduled(ctx, *e)
	case *events.BookingMeetingReadyV1:
		return s.meetingReady(ctx, *e)
	default:
		return nil
	}
}

func confirmationFromSnapshot(b events.BookingSnapshot, p events.Participants) BookingConfirmation {
	return BookingConfirmation{
		ClientEmail:      p.ClientEmail,
		ClientName:       p.ClientName,
		VetEmail:         p.VetEmail,
		VetName:          p.VetName,
		BookingID:        b.BookingID,
		BookingDate:      b.BookingDate,
		StartTime:        b.StartTime,
		EndTime:          b.EndTime,
		ConsultationType: b.ConsultationType,
		PetName:          p.PetName,
		OwnerName:        p.ClientName,
		Notes:            b.Notes,
	}
}

func (s *Service) statusChanged(ctx context.Context, evt events.BookingStatusChangedV1) error {
	p := evt.Participants
	v := s.bookingView(confirmationFromSnapshot(evt.Booking, p))
	v.Greeting = greeting(p.ClientName)

	var template string
	notifyVet := false
	switch evt.To {
	case "confirmed":
		template = TemplateBookingConfirmed
		v.Subject = "Your appointment is confirmed"
		v.Lines = []string{fmt.Sprintf("%s has confirmed your appointment.", nameOr(p.VetName, "Your vet"))}
		if evt.Booking.MeetingURL != "" {
			v.LinkText = "Join video consultation"
			v.LinkURL = evt.Booking.MeetingURL
		}
	case "cancelled":
		template = TemplateBookingCancelled
		v.Subject = "Your appointment was cancelled"
		v.Lines = []string{"Your appointment has been cancelled."}
		if evt.RefundPercent > 0 {
			v.Lines = append(v.Lines, fmt.Sprintf("A refund of %d%% of the consultation fee will be issued.", evt.RefundPercent))
		}
		notifyVet = evt.ActorRole != "vet"
	case "completed":
		template = TemplateBookingCompleted
		v.Subject = "Thank you for visiting"
		v.Lines = []string{fmt.Sprintf("Your appointment with %s is complete.", nameOr(p.VetName, "your vet"))}
	default:
		return nil
	}

	var errs []error
	if p.ClientEmail != "" {
		errs = append(errs, s.send(ctx, template, p.ClientEmail, p.ClientName, v))
	}
	if notifyVet && p.VetEmail != "" {
		vv := v
		vv.Greeting = greeting(p.VetName)
		vv.Subject = "An appointment was cancelled"
		vv.Lines = []string{fmt.Sprintf("%s cancelled their appointment.", nameOr(p.ClientName, "The pet owner"))}
		errs = append(errs, s.send(ctx, template, p.VetEmail, p.VetName, vv))
	}
	return errors.Join(errs...)
}

func (s *Service) rescheduled(ctx context.Context, evt events.BookingRescheduledV1) error {
	p := evt.Participants
	v := s.bookingView(confirmationFromSnapshot(evt.Booking, p))
	v.Subject = "Your appointment was rescheduled"
	v.Lines = []string{fmt.Sprintf("The appointment previously on %s at %s has moved.",
		evt.PreviousDate, timeRange(evt.PreviousStart, evt.PreviousEnd))}

	var errs []error
	for _, r := range []struct{ email, name string }{
		{p.ClientEmail, p.ClientName}, {p.VetEmail, p.VetName},
	} {
		if r.email == "" {
			continue
		}
		rv := v
		rv.Greeting = greeting(r.name)
		errs = append(errs, s.send(ctx, TemplateBookingRescheduled, r.email, r.name, rv))
	}
	return errors.Join(errs...)
}

func (s *Service) meetingReady(ctx context.Context, evt events.BookingMeetingReadyV1) error {
	p := evt.Participants
	v := s.bookingView(confirmationFromSnapshot(evt.Booking, p))
	v.Subject = "Your video consultation link"
	v.Lines = []string{"The video room for your appointment is ready."}

	var errs []error
	if p.ClientEmail != "" && evt.Booking.MeetingURL != "" {
		cv := v
		cv.Greeting = greeting(p.ClientName)
		cv.LinkText, cv.LinkURL = "Join video consultation", evt.Booking.MeetingURL
		errs = append(errs, s.send(ctx, TemplateMeetingReady, p.ClientEmail, p.ClientName, cv))
	}
	if p.VetEmail != "" {
		vv := v
		vv.Greeting = greeting(p.VetName)
		vv.LinkText, vv.LinkURL = "Start video consultation", nameOr(evt.HostMeetingURL, evt.Booking.MeetingURL)
		if vv.LinkURL != "" {
			errs = append(errs, s.send(ctx, TemplateMeetingReady, p.VetEmail, p.VetName, vv))
		}
	}
	return errors.Join(errs...)
}

// send skips recipients that already received this template for the event
// being handled. Direct calls without an event are always sent.
func (s *Service) send(ctx context.Context, template, to, toName string, v mailView) error {
	msg, err := s.compose(to, toName, v)
	if err != nil {
		return err
	}
	eventID, ok := ctx.Value(eventIDKey{}).(uuid.UUID)
	if !ok || eventID == uuid.Nil {
		return s.deliver(ctx, template, msg)
	}
	key := recipientKey(eventID, template, to)
	seen, err := s.sent.AlreadyProcessed(ctx, recipientConsumer, key)
	if err != nil {
		s.logger.Warn("notify: send record unavailable", "event_id", eventID, "error", err)
	} else if seen {
		s.logger.Debug("notify: recipient already mailed", "event_id", eventID, "template", template, "to", to)
		return nil
	}
	if err := s.deliver(ctx, template, msg); err != nil {
		return err
	}
	if _, err := s.sent.MarkProcessed(ctx, recipientConsumer, key); err != nil {
		s.logger.Warn("notify: failed to record send", "event_id", eventID, "template", template, "error", err)
	}
	return nil
}

// recipientKey is a stable id for one template sent to one address for one event.
func recipientKey(eventID uuid.UUID, template, to string) string {
	return uuid.NewSHA1(eventID, []byte(template+"|"+strings.ToLower(strings.TrimSpace(to)))).String()
}

func (s *Service) compose(to, toName string, v mailView) (EmailMessage, error) {
	text, html, err := render(v)
	if err != nil {
		return EmailMessage{}, err
	}
	return EmailMessage{To: to, ToName: toName, Subject: v.Subject, Body: text, HTML: html}, nil
}

func (s *Service) deliver(ctx context.Context, template string, msg EmailMessage) error {
	err := s.sender.Send(ctx, msg)
	s.metrics.ObserveEmail(template, err == nil)
	if err != nil {
		s.metrics.ObserveExternalFailure("email")
		s.logger.Warn("notify: email failed", "template", template, "to", msg.To, "error", err)
		return fmt.Errorf("notify: send %s: %w", template, err)
	}
	return nil
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
