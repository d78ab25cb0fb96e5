package prescriptions

import (
	"time"

	"github.com/wolfman30/vetcare-platform/internal/availability"
)

type Status string

const (
	StatusActive       Status = "active"
	StatusCompleted    Status = "completed"
	StatusDiscontinued Status = "discontinued"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusDiscontinued
}

// Prescription links a vet and a pet; it carries no booking reference.
type Prescription struct {
	ID             string            `json:"id"`
	VetID          string            `json:"vet_id"`
	PetID          string            `json:"pet_id"`
	PetOwnerID     string            `json:"pet_owner_id"`
	MedicationName string            `json:"medication_name"`
	Dosage         string            `json:"dosage"`
	Frequency      string            `json:"frequency"`
	Duration       string            `json:"duration,omitempty"`
	Diagnosis      string            `json:"diagnosis,omitempty"`
	Instructions   string            `json:"instructions,omitempty"`
	Status         Status            `json:"status"`
	PrescribedDate availability.Date `json:"prescribed_date"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type CreateRequest struct {
	PetID          string `json:"pet_id"`
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	Duration       string `json:"duration,omitempty"`
	Diagnosis      string `json:"diagnosis,omitempty"`
	Instructions   string `json:"instructions,omitempty"`
}

// Filter narrows listings; empty fields match everything.
type Filter struct {
	VetID      string
	PetID      string
	PetOwnerID string
	Status     Status
}

func (f Filter) matches(p Prescription) bool {
	return (f.VetID == "" || p.VetID == f.VetID) &&
		(f.PetID == "" || p.PetID == f.PetID) &&
		(f.PetOwnerID == "" || p.PetOwnerID == f.PetOwnerID) &&
		(f.Status == "" || p.Status == f.Status)
}
