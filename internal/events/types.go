package events

import "time"

const (
	TypeBookingCreated       = "booking.created.v1"
	TypeBookingStatusChanged = "booking.status_changed.v1"
	TypeBookingRescheduled   = "booking.rescheduled.v1"
	TypeBookingMeetingReady  = "booking.meeting_ready.v1"
)

// Participants carries the contact details notification consumers need, so
// they never have to read back from the database.
type Participants struct {
	ClientEmail string `json:"client_email,omitempty"`
	ClientName  string `json:"client_name,omitempty"`
	VetEmail    string `json:"vet_email,omitempty"`
	VetName     string `json:"vet_name,omitempty"`
	PetName     string `json:"pet_name,omitempty"`
}

// BookingSnapshot is the booking as it looked when the event was written.
type BookingSnapshot struct {
	BookingID        string `json:"booking_id"`
	PetOwnerID       string `json:"pet_owner_id"`
	VetID            string `json:"vet_id"`
	PetID            string `json:"pet_id"`
	BookingDate      string `json:"booking_date"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	ConsultationType string `json:"consultation_type"`
	Status           string `json:"status"`
	Notes            string `json:"notes,omitempty"`
	MeetingURL       string `json:"meeting_url,omitempty"`
}

type BookingCreatedV1 struct {
	Booking      BookingSnapshot `json:"booking"`
	Participants Participants    `json:"participants"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

func (BookingCreatedV1) EventType() string { return TypeBookingCreated }

type BookingStatusChangedV1 struct {
	Booking       BookingSnapshot `json:"booking"`
	Participants  Participants    `json:"participants"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	ActorID       string          `json:"actor_id"`
	ActorRole     string          `json:"actor_role"`
	RefundPercent int             `json:"refund_percent,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func (BookingStatusChangedV1) EventType() string { return TypeBookingStatusChanged }

type BookingRescheduledV1 struct {
	Booking       BookingSnapshot `json:"booking"`
	Participants  Participants    `json:"participants"`
	PreviousDate  string          `json:"previous_date"`
	PreviousStart string          `json:"previous_start"`
	PreviousEnd   string          `json:"previous_end"`
	ActorID       string          `json:"actor_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func (BookingRescheduledV1) EventType() string { return TypeBookingRescheduled }

// BookingMeetingReadyV1 is written once a video room is attached to a booking.
type BookingMeetingReadyV1 struct {
	Booking        BookingSnapshot `json:"booking"`
	Participants   Participants    `json:"participants"`
	MeetingID      string          `json:"meeting_id"`
	HostMeetingURL string          `json:"host_meeting_url,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func (BookingMeetingReadyV1) EventType() string { return TypeBookingMeetingReady }
