package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/bot"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
)

// Runner makes one booking attempt for a task.
type Runner interface {
	Run(ctx context.Context, t domain.Task) bot.Outcome
}

// Scheduler polls for active tasks and runs the due ones, one at a time.
// There is no lease on a task: running two schedulers against one database
// would race on PENDING tasks.
type Scheduler struct {
	Tasks    store.TaskStore
	Runner   Runner
	Interval time.Duration
	Cooldown time.Duration
	Log      *audit.Logger
	Metrics  *Metrics
	Now      func() time.Time
}

type Metrics struct {
	Cycles      prometheus.Counter
	CycleErrors prometheus.Counter
	Dispatched  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Cycles: f.NewCounter(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "scheduler_cycles_total",
			Help:      "Poll cycles run.",
		}),
		CycleErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "scheduler_cycle_errors_total",
			Help:      "Poll cycles that failed.",
		}),
		Dispatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: "betterbot",
			Name:      "scheduler_dispatched_total",
			Help:      "Tasks handed to the orchestrator.",
		}),
	}
}

// Run polls until ctx is cancelled. Each cycle is followed by a full
// Interval of sleep, whether it succeeded or not.
func (s *Scheduler) Run(ctx context.Context) error {
	s.Log.Info(ctx, "Worker started. Polling for tasks...")
	for {
		n, err := s.Cycle(ctx)
		if s.Metrics != nil {
			s.Metrics.Cycles.Inc()
			s.Metrics.Dispatched.Add(float64(n))
		}
		if err != nil && ctx.Err() == nil {
			if s.Metrics != nil {
				s.Metrics.CycleErrors.Inc()
			}
			s.Log.Error(ctx, "Worker loop error", err)
		}

		t := time.NewTimer(s.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Cycle runs every due task once and reports how many it dispatched.
func (s *Scheduler) Cycle(ctx context.Context) (dispatched int, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	tasks, err := s.Tasks.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active tasks: %w", err)
	}

	for _, t := range tasks {
		if ctx.Err() != nil {
			return dispatched, nil
		}
		if !domain.Due(t, s.now(), s.cooldown()) {
			continue
		}
		if t.Status == domain.StatusPending {
			if err := s.Tasks.Transition(ctx, t.ID, domain.StatusPending, domain.StatusRunning); err != nil {
				s.Log.ForTask(t.ID, "").Warn(ctx, "Could not claim task", err)
				continue
			}
			t.Status = domain.StatusRunning
		}
		s.dispatch(ctx, t)
		dispatched++
	}
	return dispatched, nil
}

// dispatch shields the loop from a runner that panics.
func (s *Scheduler) dispatch(ctx context.Context, t domain.Task) {
	defer func() {
		if p := recover(); p != nil {
			s.Log.ForTask(t.ID, "").Error(ctx, "Task run crashed", fmt.Errorf("panic: %v", p))
		}
	}()
	s.Runner.Run(ctx, t)
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) cooldown() time.Duration {
	if s.Cooldown > 0 {
		return s.Cooldown
	}
	return domain.Cooldown
}
