// Package store holds the persistence the booking core reads and writes.
// Postgres implementations live next to an in-memory one used by tests.
package store

import (
	"context"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

type TaskStore interface {
	// ListActive returns PENDING and RUNNING tasks, oldest first.
	ListActive(ctx context.Context) ([]domain.Task, error)
	Get(ctx context.Context, id int64) (domain.Task, error)
	Create(ctx context.Context, t domain.Task) (int64, error)
	// Transition moves a task from -> to. It fails with ErrInvalidTransition
	// for an edge outside the status table and with ErrStaleStatus when the
	// task is no longer in from.
	Transition(ctx context.Context, id int64, from, to domain.Status) error
	// Touch records a check at the given time. LastCheckedAt never moves back.
	Touch(ctx context.Context, id int64, at time.Time) error
}

type AccountStore interface {
	Get(ctx context.Context, id int64) (domain.Account, error)
}

type PaymentStore interface {
	Get(ctx context.Context, id int64) (domain.PaymentProfile, error)
}

type BookingStore interface {
	// Insert fails with ErrDuplicate if the task already has a booking.
	Insert(ctx context.Context, b domain.Booking) (int64, error)
	// ForTask returns the booking for a task, or ErrNotFound.
	ForTask(ctx context.Context, taskID int64) (domain.Booking, error)
}

type LogStore interface {
	Append(ctx context.Context, e domain.LogEntry) error
}

// Stores bundles everything the worker needs.
type Stores struct {
	Tasks    TaskStore
	Accounts AccountStore
	Payments PaymentStore
	Bookings BookingStore
	Logs     LogStore
}
