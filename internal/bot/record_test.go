package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
)

// flakyBookings fails the first fails inserts.
type flakyBookings struct {
	store.BookingStore
	fails int
	calls int
}

func (b *flakyBookings) Insert(ctx context.Context, bk domain.Booking) (int64, error) {
	b.calls++
	if b.fails > 0 {
		b.fails--
		return 0, errors.New("connection reset by peer")
	}
	return b.BookingStore.Insert(ctx, bk)
}

// unstoppableTasks refuses to move a task to STOPPED.
type unstoppableTasks struct {
	store.TaskStore
}

func (t unstoppableTasks) Transition(ctx context.Context, id int64, from, to domain.Status) error {
	if to == domain.StatusStopped {
		return errors.New("connection refused")
	}
	return t.TaskStore.Transition(ctx, id, from, to)
}

func withFlakyBookings(f *fixture, fails, attempts int) *flakyBookings {
	fb := &flakyBookings{BookingStore: f.orch.Stores.Bookings, fails: fails}
	f.orch.Stores.Bookings = fb
	f.orch.RecordRetry = RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond}
	return fb
}

func TestRunRetriesBookingInsert(t *testing.T) {
	fs := newFakeSite(testProfile(), "07:00")
	f := newFixture(t, fs)
	fb := withFlakyBookings(f, 2, 3)

	require.Equal(t, OutcomeBooked, f.run(t), f.logs.String())
	assert.Equal(t, 3, fb.calls)
	assert.Equal(t, 1, fs.payNow.Clicks)
	assert.Equal(t, domain.StatusSuccess, f.stored(t).Status)

	_, err := f.mem.Stores().Bookings.ForTask(context.Background(), f.task.ID)
	require.NoError(t, err)
	assert.Len(t, f.messages(domain.LevelWarn), 2)
}

func TestRunUnrecordedBookingStopsTask(t *testing.T) {
	fs := newFakeSite(testProfile(), "07:00")
	f := newFixture(t, fs)
	fb := withFlakyBookings(f, 100, 2)

	require.Equal(t, OutcomeUnrecorded, f.run(t), f.logs.String())
	assert.Equal(t, 2, fb.calls)
	assert.Equal(t, domain.StatusStopped, f.stored(t).Status)

	errs := f.messages(domain.LevelError)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[len(errs)-1], "Payment was taken")

	// The scheduler never picks a STOPPED task up again; a direct run is
	// skipped before the site is touched.
	assert.Equal(t, OutcomeSkipped, f.orch.Run(context.Background(), f.stored(t)))
	assert.Equal(t, 1, fs.payNow.Clicks)
	assert.Len(t, fs.sess.Navigations, 1)
}

func TestRunUnrecordedBookingWrittenByNextRun(t *testing.T) {
	fs := newFakeSite(testProfile(), "07:00")
	f := newFixture(t, fs)
	fb := withFlakyBookings(f, 2, 2)
	f.orch.Stores.Tasks = unstoppableTasks{f.orch.Stores.Tasks}

	require.Equal(t, OutcomeUnrecorded, f.run(t), f.logs.String())
	require.Equal(t, domain.StatusRunning, f.stored(t).Status)

	require.Equal(t, OutcomeRepaired, f.orch.Run(context.Background(), f.stored(t)), f.logs.String())
	assert.Equal(t, 3, fb.calls)
	assert.Equal(t, 1, fs.payNow.Clicks)
	assert.Len(t, fs.sess.Navigations, 1)
	assert.Equal(t, domain.StatusSuccess, f.stored(t).Status)

	b, err := f.mem.Stores().Bookings.ForTask(context.Background(), f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, PlaceholderReference, b.Reference)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond}
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(0))
	assert.Equal(t, 100*time.Millisecond, p.NextDelay(1))
	assert.Equal(t, 200*time.Millisecond, p.NextDelay(2))
	assert.Equal(t, 300*time.Millisecond, p.NextDelay(3))
}
