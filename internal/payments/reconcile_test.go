package payments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVetEarning(t *testing.T) {
	r := Reconciler{PlatformFee: 121}

	earning, ok := r.VetEarning(Transaction{BookingID: "b1", Amount: 500, Status: StatusCompleted})
	require.True(t, ok)
	assert.Equal(t, int64(379), earning)

	earning, ok = r.VetEarning(Transaction{BookingID: "b1", Amount: 500, Status: StatusSuccess})
	require.True(t, ok)
	assert.Equal(t, int64(379), earning)

	_, ok = r.VetEarning(Transaction{Amount: 500, Status: StatusCompleted})
	assert.False(t, ok, "no booking, no split")
	_, ok = r.VetEarning(Transaction{BookingID: "b1", Amount: 500, Status: StatusPending})
	assert.False(t, ok)
	_, ok = r.VetEarning(Transaction{BookingID: "b1", Amount: 500, Status: StatusRefunded})
	assert.False(t, ok)
}

func TestStats_TenCompletedPayments(t *testing.T) {
	r := Reconciler{PlatformFee: 121}
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	txs := make([]Transaction, 10)
	for i := range txs {
		txs[i] = Transaction{ID: string(rune('a' + i)), BookingID: "b", Amount: 500, Status: StatusCompleted, CreatedAt: now}
	}
	s := r.Stats(txs, now, time.UTC)
	assert.Equal(t, int64(1210), s.PlatformFees)
	assert.Equal(t, int64(5000), s.TotalAmount)
	assert.Equal(t, 10, s.CompletedCount)
	assert.Equal(t, int64(5000), s.CurrentMonthAmount)
}

func TestStats_MonthsAndStatuses(t *testing.T) {
	r := Reconciler{PlatformFee: 100}
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	txs := []Transaction{
		{ID: "1", BookingID: "b1", Amount: 300, Status: StatusSuccess, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Amount: 200, Status: StatusPending, CreatedAt: time.Date(2024, 12, 31, 23, 59, 0, 0, time.UTC)},
		{ID: "3", BookingID: "b3", Amount: 100, Status: StatusFailed, CreatedAt: time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "4", BookingID: "b4", Amount: 50, Status: StatusRefunded, CreatedAt: time.Date(2024, 11, 30, 0, 0, 0, 0, time.UTC)},
	}
	s := r.Stats(txs, now, time.UTC)
	assert.Equal(t, Stats{
		TotalAmount:         650,
		TotalCount:          4,
		PendingCount:        1,
		CompletedCount:      1,
		FailedCount:         1,
		RefundedCount:       1,
		CurrentMonthAmount:  300,
		PreviousMonthAmount: 300,
		PlatformFees:        100,
	}, s)
}

func TestStats_MonthBoundaryFollowsLocation(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	r := Reconciler{PlatformFee: 0}
	now := time.Date(2025, 3, 5, 0, 0, 0, 0, loc)
	// 2025-02-28 20:00 UTC is 2025-03-01 01:30 in IST.
	txs := []Transaction{{ID: "1", Amount: 10, Status: StatusCompleted, CreatedAt: time.Date(2025, 2, 28, 20, 0, 0, 0, time.UTC)}}
	s := r.Stats(txs, now, loc)
	assert.Equal(t, int64(10), s.CurrentMonthAmount)
	assert.Zero(t, s.PreviousMonthAmount)
}

func TestSplits_SkipUnbookedAndUnsettled(t *testing.T) {
	r := Reconciler{PlatformFee: 121}
	splits := r.Splits([]Transaction{
		{ID: "1", BookingID: "b1", Amount: 500, Status: StatusCompleted},
		{ID: "2", Amount: 900, Status: StatusCompleted},
		{ID: "3", BookingID: "b3", Amount: 700, Status: StatusFailed},
		{ID: "4", BookingID: "b4", Amount: 1000, Status: StatusSuccess},
	})
	require.Len(t, splits, 2)
	assert.Equal(t, "b1", splits[0].BookingID)
	assert.Equal(t, int64(379), splits[0].VetEarning)
	assert.Equal(t, int64(879), splits[1].VetEarning)
}

func TestVerifySignature(t *testing.T) {
	// hex(HMAC-SHA256("secret", "order_1|pay_1"))
	sig := "b9a8b3c0b3a6d5f7"
	assert.False(t, VerifySignature("", "o", "p", ""), "nothing verifies without a secret")
	assert.False(t, VerifySignature("secret", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("secret", "", "pay_1", sig))
	assert.True(t, VerifySignature("secret", "order_1", "pay_1", sign("secret", "order_1", "pay_1")))
}
