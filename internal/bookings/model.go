package bookings

import (
	"time"

	"github.com/wolfman30/vetcare-platform/internal/availability"
	"github.com/wolfman30/vetcare-platform/internal/events"
)

// Status is the booking lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ConsultationType is the appointment modality.
type ConsultationType string

const (
	ConsultationVideo    ConsultationType = "video"
	ConsultationInPerson ConsultationType = "in_person"
)

func (c ConsultationType) Valid() bool {
	return c == ConsultationVideo || c == ConsultationInPerson
}

// PaymentStatus tracks the money side of a booking.
type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

// Booking is one consultation between a pet owner and a vet.
type Booking struct {
	ID               string             `json:"id"`
	PetOwnerID       string             `json:"pet_owner_id"`
	VetID            string             `json:"vet_id"`
	PetID            string             `json:"pet_id"`
	BookingDate      availability.Date  `json:"booking_date"`
	StartTime        availability.Clock `json:"start_time"`
	EndTime          availability.Clock `json:"end_time"`
	ConsultationType ConsultationType   `json:"consultation_type"`
	Status           Status             `json:"status"`
	Notes            string             `json:"notes,omitempty"`
	MeetingID        string             `json:"meeting_id,omitempty"`
	MeetingURL       string             `json:"meeting_url,omitempty"`
	HostMeetingURL   string             `json:"host_meeting_url,omitempty"`
	PaymentStatus    PaymentStatus      `json:"payment_status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Window is the booked time-of-day range.
func (b *Booking) Window() availability.Window {
	return availability.Window{Start: b.StartTime, End: b.EndTime}
}

// StartsAt resolves the booking start in the clinic timezone.
func (b *Booking) StartsAt(loc *time.Location) time.Time {
	return b.StartTime.On(b.BookingDate, loc)
}

// EndsAt resolves the booking end in the clinic timezone.
func (b *Booking) EndsAt(loc *time.Location) time.Time {
	return b.EndTime.On(b.BookingDate, loc)
}

// Active reports whether the booking still holds its slot.
func (b *Booking) Active() bool { return b.Status != StatusCancelled }

// NeedsMeeting reports whether a video room should exist but does not.
func (b *Booking) NeedsMeeting() bool {
	return b.ConsultationType == ConsultationVideo && b.Status == StatusConfirmed && b.MeetingURL == ""
}

// Involves reports whether userID is the owner or the vet on the booking.
func (b *Booking) Involves(userID string) bool {
	return userID != "" && (b.PetOwnerID == userID || b.VetID == userID)
}

// Meeting is a provisioned video room.
type Meeting struct {
	ID      string `json:"meeting_id"`
	URL     string `json:"meeting_url"`
	HostURL string `json:"host_meeting_url,omitempty"`
}

func (b *Booking) snapshot() events.BookingSnapshot {
	return events.BookingSnapshot{
		BookingID:        b.ID,
		PetOwnerID:       b.PetOwnerID,
		VetID:            b.VetID,
		PetID:            b.PetID,
		BookingDate:      b.BookingDate.String(),
		StartTime:        b.StartTime.String(),
		EndTime:          b.EndTime.String(),
		ConsultationType: string(b.ConsultationType),
		Status:           string(b.Status),
		Notes:            b.Notes,
		MeetingURL:       b.MeetingURL,
	}
}

// Filter narrows list queries. Zero fields are ignored.
type Filter struct {
	PetOwnerID string
	VetID      string
	PetID      string
	Status     Status
	From       availability.Date
	To         availability.Date
	Limit      int
}

func (f Filter) matches(b *Booking) bool {
	if f.PetOwnerID != "" && b.PetOwnerID != f.PetOwnerID {
		return false
	}
	if f.VetID != "" && b.VetID != f.VetID {
		return false
	}
	if f.PetID != "" && b.PetID != f.PetID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && b.BookingDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(b.BookingDate) {
		return false
	}
	return true
}
