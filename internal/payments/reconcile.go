package payments

import "time"

// Reconciler derives vet payouts and platform stats from transactions.
type Reconciler struct {
	PlatformFee int64
}

// VetEarning is amount minus the flat platform fee. It reports false for
// transactions that produce no payout: unsettled, or not tied to a booking.
func (r Reconciler) VetEarning(tx Transaction) (int64, bool) {
	if !tx.Status.Settled() || tx.BookingID == "" {
		return 0, false
	}
	return tx.Amount - r.PlatformFee, true
}

// Split is one booking's payout line.
type Split struct {
	TransactionID string    `json:"transaction_id"`
	BookingID     string    `json:"booking_id"`
	Amount        int64     `json:"amount"`
	PlatformFee   int64     `json:"platform_fee"`
	VetEarning    int64     `json:"vet_earning"`
	CreatedAt     time.Time `json:"created_at"`
}

// Splits returns payout lines in input order.
func (r Reconciler) Splits(txs []Transaction) []Split {
	out := make([]Split, 0, len(txs))
	for _, tx := range txs {
		earning, ok := r.VetEarning(tx)
		if !ok {
			continue
		}
		out = append(out, Split{
			TransactionID: tx.ID,
			BookingID:     tx.BookingID,
			Amount:        tx.Amount,
			PlatformFee:   r.PlatformFee,
			VetEarning:    earning,
			CreatedAt:     tx.CreatedAt,
		})
	}
	return out
}

// Stats is the admin transaction summary.
type Stats struct {
	TotalAmount         int64 `json:"total_amount"`
	TotalCount          int   `json:"total_count"`
	PendingCount        int   `json:"pending_count"`
	CompletedCount      int   `json:"completed_count"`
	FailedCount         int   `json:"failed_count"`
	RefundedCount       int   `json:"refunded_count"`
	CurrentMonthAmount  int64 `json:"current_month_amount"`
	PreviousMonthAmount int64 `json:"previous_month_amount"`
	PlatformFees        int64 `json:"platform_fees"`
}

// Stats summarises txs relative to now. Months are calendar months in loc.
func (r Reconciler) Stats(txs []Transaction, now time.Time, loc *time.Location) Stats {
	if loc == nil {
		loc = time.UTC
	}
	current := monthStart(now.In(loc))
	previous := current.AddDate(0, -1, 0)

	var s Stats
	for _, tx := range txs {
		s.TotalAmount += tx.Amount
		s.TotalCount++
		switch {
		case tx.Status == StatusPending:
			s.PendingCount++
		case tx.Status.Settled():
			s.CompletedCount++
		case tx.Status == StatusFailed:
			s.FailedCount++
		case tx.Status == StatusRefunded:
			s.RefundedCount++
		}
		month := monthStart(tx.CreatedAt.In(loc))
		if month.Equal(current) {
			s.CurrentMonthAmount += tx.Amount
		} else if month.Equal(previous) {
			s.PreviousMonthAmount += tx.Amount
		}
	}
	s.PlatformFees = int64(s.CompletedCount) * r.PlatformFee
	return s
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
