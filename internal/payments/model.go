package payments

import "time"

// Status is a transaction's provider-side outcome. "success" is a legacy
// synonym of "completed" kept for imported rows.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusSuccess, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Settled reports whether money was captured.
func (s Status) Settled() bool { return s == StatusCompleted || s == StatusSuccess }

// Transaction is one provider payment. BookingID is empty for payments not
// tied to a consultation.
type Transaction struct {
	ID                string    `json:"id"`
	BookingID         string    `json:"booking_id,omitempty"`
	Amount            int64     `json:"amount"`
	RefundAmount      int64     `json:"refund_amount,omitempty"`
	Currency          string    `json:"currency"`
	Status            Status    `json:"status"`
	Provider          string    `json:"provider"`
	ProviderPaymentID string    `json:"provider_payment_id,omitempty"`
	ProviderOrderID   string    `json:"provider_order_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RecordRequest is the POST /payments body sent after provider checkout.
type RecordRequest struct {
	BookingID         string `json:"booking_id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency,omitempty"`
	Status            Status `json:"status,omitempty"`
	Provider          string `json:"provider"`
	ProviderPaymentID string `json:"provider_payment_id"`
	ProviderOrderID   string `json:"provider_order_id,omitempty"`
	Signature         string `json:"signature,omitempty"`
}
