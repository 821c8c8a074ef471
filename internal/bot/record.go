package bot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

// RetryPolicy spaces out attempts to write a booking that has already been
// paid for.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
}

var defaultRecordRetry = RetryPolicy{
	MaxAttempts:  5,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     8 * time.Second,
	Factor:       2,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRecordRetry.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultRecordRetry.InitialDelay
	}
	if p.Factor <= 0 {
		p.Factor = defaultRecordRetry.Factor
	}
	return p
}

// NextDelay returns the wait after a failed attempt (1-based).
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	p = p.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Factor, float64(attempt-1)))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// unrecorded holds paid bookings whose row could not be written. A later run
// of the same task writes the row instead of going back to the site.
type unrecorded struct {
	mu sync.Mutex
	m  map[int64]domain.Booking
}

func (u *unrecorded) put(b domain.Booking) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.m == nil {
		u.m = make(map[int64]domain.Booking)
	}
	u.m[b.TaskID] = b
}

func (u *unrecorded) take(taskID int64) (domain.Booking, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	b, ok := u.m[taskID]
	delete(u.m, taskID)
	return b, ok
}

// record inserts b, retrying failures other than ErrDuplicate. ctx should not
// be cancelled by shutdown: the booking has been paid for.
func (r *run) record(ctx context.Context, b domain.Booking) error {
	policy := r.o.RecordRetry.withDefaults()
	for attempt := 1; ; attempt++ {
		_, err := r.o.Stores.Bookings.Insert(ctx, b)
		if err == nil || errors.Is(err, internaltypes.ErrDuplicate) || attempt >= policy.MaxAttempts {
			return err
		}
		r.log.Warn(ctx, fmt.Sprintf("Could not record booking (attempt %d of %d)", attempt, policy.MaxAttempts), err)

		t := time.NewTimer(policy.NextDelay(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
}

// recordLater parks b for the next run of the task and stops the task, so the
// worker does not go back to the site for a slot that is already paid for.
func (r *run) recordLater(ctx context.Context, b domain.Booking, err error) *stop {
	r.o.unrecorded.put(b)
	if terr := r.o.Stores.Tasks.Transition(ctx, r.task.ID, domain.StatusRunning, domain.StatusStopped); terr != nil {
		r.log.Error(ctx, "Could not stop task after failing to record its booking", terr)
	}
	return &stop{
		outcome: OutcomeUnrecorded,
		msg: fmt.Sprintf("Payment was taken but booking %s could not be recorded for task %d; the task will not book again",
			b.Reference, r.task.ID),
		err: err,
	}
}

// flushUnrecorded writes a booking parked by an earlier run of this task.
func (r *run) flushUnrecorded(ctx context.Context) (Outcome, bool) {
	b, ok := r.o.unrecorded.take(r.task.ID)
	if !ok {
		return "", false
	}
	r.phase = PhaseRecord
	if err := r.record(ctx, b); err != nil && !errors.Is(err, internaltypes.ErrDuplicate) {
		r.o.unrecorded.put(b)
		r.log.Error(ctx, "Payment was taken but the booking still could not be recorded", err)
		return OutcomeUnrecorded, true
	}
	if err := r.o.Stores.Tasks.Transition(ctx, r.task.ID, domain.StatusRunning, domain.StatusSuccess); err != nil {
		r.log.Error(ctx, "Booking recorded but task status could not be set to SUCCESS", err)
	}
	r.log.Info(ctx, fmt.Sprintf("Recorded booking %s from an earlier run", b.Reference))
	return OutcomeRepaired, true
}
