package profiles

import (
	"strings"
	"time"

	"github.com/wolfman30/vetcare-platform/internal/auth"
)

// ApprovalStatus gates whether a vet is publicly bookable.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

func (s ApprovalStatus) Valid() bool {
	return s == ApprovalPending || s == ApprovalApproved || s == ApprovalRejected
}

// Profile is one authenticated identity.
type Profile struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	UserType    auth.Role `json:"user_type"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	Address     string    `json:"address,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// VetProfile extends a vet's Profile 1:1.
type VetProfile struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Specialization    string         `json:"specialization,omitempty"`
	ConsultationFee   int64          `json:"consultation_fee"`
	ApprovalStatus    ApprovalStatus `json:"approval_status"`
	BankAccountName   string         `json:"bank_account_name,omitempty"`
	BankAccountNumber string         `json:"bank_account_number,omitempty"`
	BankIFSC          string         `json:"bank_ifsc,omitempty"`
	TaxID             string         `json:"tax_id,omitempty"`
	ClinicImages      []string       `json:"clinic_images"`
	ApprovedAt        *time.Time     `json:"approved_at,omitempty"`
	ApprovedBy        string         `json:"approved_by,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// Public strips banking and tax fields for the directory listing.
func (v VetProfile) Public() VetProfile {
	v.BankAccountName, v.BankAccountNumber, v.BankIFSC, v.TaxID = "", "", "", ""
	return v
}

// Contact is the minimal identity used in notifications.
type Contact struct {
	ID    string
	Name  string
	Email string
}

func (p Profile) Contact() Contact {
	return Contact{ID: p.ID, Name: p.FullName, Email: p.Email}
}

// RegisterRequest creates the caller's profile after signup.
type RegisterRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number,omitempty"`
	Address         string `json:"address,omitempty"`
	Specialization  string `json:"specialization,omitempty"`
	ConsultationFee int64  `json:"consultation_fee,omitempty"`
}

// UpdateVetRequest edits a vet's own practice details. Nil fields are kept.
type UpdateVetRequest struct {
	Name              *string  `json:"name,omitempty"`
	Specialization    *string  `json:"specialization,omitempty"`
	ConsultationFee   *int64   `json:"consultation_fee,omitempty"`
	BankAccountName   *string  `json:"bank_account_name,omitempty"`
	BankAccountNumber *string  `json:"bank_account_number,omitempty"`
	BankIFSC          *string  `json:"bank_ifsc,omitempty"`
	TaxID             *string  `json:"tax_id,omitempty"`
	ClinicImages      []string `json:"clinic_images,omitempty"`
}

func (u UpdateVetRequest) apply(v *VetProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&v.Name, u.Name)
	set(&v.Specialization, u.Specialization)
	set(&v.BankAccountName, u.BankAccountName)
	set(&v.BankAccountNumber, u.BankAccountNumber)
	set(&v.BankIFSC, u.BankIFSC)
	set(&v.TaxID, u.TaxID)
	if u.ConsultationFee != nil {
		v.ConsultationFee = *u.ConsultationFee
	}
	if u.ClinicImages != nil {
		v.ClinicImages = u.ClinicImages
	}
}

// VetFilter narrows vet listings.
type VetFilter struct {
	Status         ApprovalStatus
	Specialization string
}
