// Package dashboard rolls materialised marketplace collections up into the
// admin analytics view. Aggregation is pure; loading lives in SQLLoader.
package dashboard

import "time"

type User struct {
	ID        string
	UserType  string
	CreatedAt time.Time
}

type Vet struct {
	ID             string
	Name           string
	Specialization string
	ApprovalStatus string
	CreatedAt      time.Time
}

type Pet struct {
	ID        string
	Type      string
	CreatedAt time.Time
}

// Appointment is a booking row. BookingDate is YYYY-MM-DD.
type Appointment struct {
	ID               string
	VetID            string
	ConsultationType string
	Status           string
	BookingDate      string
	CreatedAt        time.Time
}

type Prescription struct {
	ID        string
	Status    string
	CreatedAt time.Time
}

type Transaction struct {
	ID        string
	Amount    int64
	Status    string
	CreatedAt time.Time
}

// Snapshot is everything the aggregator reads.
type Snapshot struct {
	Users         []User
	Vets          []Vet
	Pets          []Pet
	Appointments  []Appointment
	Prescriptions []Prescription
	Transactions  []Transaction
}

// Bucket is one histogram category.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
	Color string `json:"color"`
}

// VetRank is one row of the performance ranking.
type VetRank struct {
	VetID          string `json:"vet_id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
	Appointments   int    `json:"appointments"`
	Completed      int    `json:"completed"`
}

// TrendPoint is one day of the trailing series.
type TrendPoint struct {
	Date          string `json:"date"`
	Users         int    `json:"users"`
	Appointments  int    `json:"appointments"`
	Prescriptions int    `json:"prescriptions"`
	Revenue       int64  `json:"revenue"`
}

type Totals struct {
	Users           int   `json:"users"`
	Vets            int   `json:"vets"`
	ApprovedVets    int   `json:"approved_vets"`
	PendingVets     int   `json:"pending_vets"`
	Pets            int   `json:"pets"`
	Appointments    int   `json:"appointments"`
	Prescriptions   int   `json:"prescriptions"`
	Transactions    int   `json:"transactions"`
	Revenue         int64 `json:"revenue"`
	PlatformRevenue int64 `json:"platform_revenue"`
}

// Overview is the GET /admin/dashboard payload.
type Overview struct {
	Totals             Totals       `json:"totals"`
	UsersByType        []Bucket     `json:"users_by_type"`
	AppointmentTypes   []Bucket     `json:"appointment_types"`
	AppointmentStatus  []Bucket     `json:"appointment_status"`
	PetTypes           []Bucket     `json:"pet_types"`
	VetSpecializations []Bucket     `json:"vet_specializations"`
	TopVets            []VetRank    `json:"top_vets"`
	Trend              []TrendPoint `json:"trend"`
	GeneratedAt        time.Time    `json:"generated_at"`
}
