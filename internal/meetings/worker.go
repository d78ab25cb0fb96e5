package meetings

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/vetcare-platform/internal/bookings"
	"github.com/wolfman30/vetcare-platform/internal/observability/metrics"
	"github.com/wolfman30/vetcare-platform/pkg/logging"
)

// BookingSource lists bookings still waiting for a room and stores results.
type BookingSource interface {
	PendingMeetings(ctx context.Context, limit int) ([]bookings.Booking, error)
	AttachMeeting(ctx context.Context, id string, m bookings.Meeting) error
}

// RetryWorker provisions rooms for confirmed video bookings whose first
// attempt failed.
type RetryWorker struct {
	source      BookingSource
	provisioner bookings.MeetingProvisioner
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	interval    time.Duration
	batchSize   int
}

func NewRetryWorker(source BookingSource, provisioner bookings.MeetingProvisioner, logger *logging.Logger) *RetryWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryWorker{
		source:      source,
		provisioner: provisioner,
		logger:      logger,
		interval:    5 * time.Minute,
		batchSize:   20,
	}
}

func (w *RetryWorker) WithInterval(interval time.Duration) *RetryWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

func (w *RetryWorker) WithBatchSize(size int) *RetryWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

func (w *RetryWorker) WithMetrics(m *metrics.BookingMetrics) *RetryWorker {
	w.metrics = m
	return w
}

// Start runs until ctx is cancelled.
func (w *RetryWorker) Start(ctx context.Context) {
	if w.source == nil || w.provisioner == nil {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce provisions one batch and returns how many rooms were attached.
func (w *RetryWorker) RunOnce(ctx context.Context) int {
	pending, err := w.source.PendingMeetings(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("meeting retry: list pending failed", "error", err)
		return 0
	}
	attached := 0
	for _, b := range pending {
		if ctx.Err() != nil {
			break
		}
		m, err := w.provisioner.Provision(ctx, b)
		if err != nil {
			w.metrics.ObserveExternalFailure("meeting")
			w.logger.Warn("meeting retry: provision failed", "booking_id", b.ID, "error", err)
			continue
		}
		if err := w.source.AttachMeeting(ctx, b.ID, m); err != nil {
			if errors.Is(err, bookings.ErrMeetingNotNeeded) {
				w.logger.Info("meeting retry: booking changed; room discarded", "booking_id", b.ID, "meeting_id", m.ID)
				continue
			}
			w.logger.Error("meeting retry: attach failed", "booking_id", b.ID, "meeting_id", m.ID, "error", err)
			continue
		}
		attached++
	}
	if len(pending) > 0 {
		w.logger.Info("meeting retry pass complete", "pending", len(pending), "attached", attached)
	}
	return attached
}
