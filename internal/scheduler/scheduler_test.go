package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/bot"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
)

var base = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

type recordingRunner struct {
	seen  []domain.Task
	panic bool
}

func (r *recordingRunner) Run(ctx context.Context, t domain.Task) bot.Outcome {
	r.seen = append(r.seen, t)
	if r.panic {
		panic("boom")
	}
	return bot.OutcomeSoftStop
}

func (r *recordingRunner) ids() []int64 {
	var out []int64
	for _, t := range r.seen {
		out = append(out, t.ID)
	}
	return out
}

func task(status domain.Status, created time.Time, lastChecked *time.Time) domain.Task {
	return domain.Task{
		AccountID:        1,
		PaymentProfileID: 1,
		Facility:         "hendon",
		TargetDate:       time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Duration:         40,
		Status:           status,
		CreatedAt:        created,
		LastCheckedAt:    lastChecked,
	}
}

func ago(d time.Duration) *time.Time {
	t := base.Add(-d)
	return &t
}

func newScheduler(mem *store.Memory, r Runner) *Scheduler {
	stores := mem.Stores()
	return &Scheduler{
		Tasks:    stores.Tasks,
		Runner:   r,
		Interval: time.Millisecond,
		Log:      audit.New(zerolog.Nop(), stores.Logs, "Scheduler"),
		Metrics:  NewMetrics(prometheus.NewRegistry()),
		Now:      func() time.Time { return base },
	}
}

func TestCycleDueness(t *testing.T) {
	mem := store.NewMemory()
	pending := mem.PutTask(task(domain.StatusPending, base.Add(-4*time.Hour), nil))
	neverChecked := mem.PutTask(task(domain.StatusRunning, base.Add(-3*time.Hour), nil))
	cooledDown := mem.PutTask(task(domain.StatusRunning, base.Add(-2*time.Hour), ago(300*time.Second)))
	mem.PutTask(task(domain.StatusRunning, base.Add(-time.Hour), ago(299*time.Second)))
	mem.PutTask(task(domain.StatusSuccess, base.Add(-5*time.Hour), nil))
	mem.PutTask(task(domain.StatusStopped, base.Add(-5*time.Hour), nil))

	r := &recordingRunner{}
	s := newScheduler(mem, r)

	n, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int64{pending, neverChecked, cooledDown}, r.ids())
}

func TestCycleClaimsPending(t *testing.T) {
	mem := store.NewMemory()
	id := mem.PutTask(task(domain.StatusPending, base, nil))

	r := &recordingRunner{}
	_, err := newScheduler(mem, r).Cycle(context.Background())
	require.NoError(t, err)

	require.Len(t, r.seen, 1)
	assert.Equal(t, domain.StatusRunning, r.seen[0].Status)
	got, err := mem.Stores().Tasks.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, got.Status)
}

type stoppingTasks struct {
	store.TaskStore
	mem *store.Memory
}

// ListActive returns a snapshot, then stops every task before the claim.
func (s stoppingTasks) ListActive(ctx context.Context) ([]domain.Task, error) {
	ts, err := s.TaskStore.ListActive(ctx)
	for _, t := range ts {
		s.mem.SetStatus(t.ID, domain.StatusStopped)
	}
	return ts, err
}

func TestCycleSkipsTaskStoppedBeforeClaim(t *testing.T) {
	mem := store.NewMemory()
	mem.PutTask(task(domain.StatusPending, base, nil))

	r := &recordingRunner{}
	s := newScheduler(mem, r)
	s.Tasks = stoppingTasks{TaskStore: mem.Stores().Tasks, mem: mem}

	n, err := s.Cycle(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, r.seen)
}

func TestCycleRecoversRunnerPanic(t *testing.T) {
	mem := store.NewMemory()
	mem.PutTask(task(domain.StatusRunning, base.Add(-time.Hour), nil))
	mem.PutTask(task(domain.StatusRunning, base, nil))

	r := &recordingRunner{panic: true}
	n, err := newScheduler(mem, r).Cycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var crashed int
	for _, e := range mem.LogEntries() {
		if e.Level == domain.LevelError {
			crashed++
		}
	}
	assert.Equal(t, 2, crashed)
}

type brokenTasks struct{ store.TaskStore }

func (brokenTasks) ListActive(context.Context) ([]domain.Task, error) {
	return nil, errors.New("connection refused")
}

func TestRunSurvivesCycleErrors(t *testing.T) {
	mem := store.NewMemory()
	s := newScheduler(mem, &recordingRunner{})
	s.Tasks = brokenTasks{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.GreaterOrEqual(t, testutil.ToFloat64(s.Metrics.CycleErrors), 2.0)

	var logged int
	for _, e := range mem.LogEntries() {
		if e.Level == domain.LevelError && e.Source == "Scheduler" {
			logged++
		}
	}
	assert.GreaterOrEqual(t, logged, 2)
}

func TestRunStopsOnCancel(t *testing.T) {
	mem := store.NewMemory()
	mem.PutTask(task(domain.StatusPending, base, nil))
	r := &recordingRunner{}
	s := newScheduler(mem, r)
	s.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(s.Metrics.Dispatched) == 1
	}, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
