package store

import (
	"context"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/db"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
)

type Bookings struct{ db *db.DB }

func NewBookings(d *db.DB) *Bookings { return &Bookings{db: d} }

func (r *Bookings) Insert(ctx context.Context, b domain.Booking) (int64, error) {
	if b.BookedAt.IsZero() {
		b.BookedAt = time.Now().UTC()
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO booking(task_id,reference_number,court_name,price,booked_at)
VALUES ($1,$2,$3,$4,$5)
RETURNING id`, b.TaskID, b.Reference, b.Resource, b.Price, b.BookedAt).Scan(&id)
	return id, db.Wrap(err)
}

func (r *Bookings) ForTask(ctx context.Context, taskID int64) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.QueryRow(ctx, `
SELECT id,task_id,reference_number,court_name,price,booked_at
FROM booking WHERE task_id=$1`, taskID).
		Scan(&b.ID, &b.TaskID, &b.Reference, &b.Resource, &b.Price, &b.BookedAt)
	if err != nil {
		return domain.Booking{}, db.Wrap(err)
	}
	return b, nil
}

type Logs struct{ db *db.DB }

func NewLogs(d *db.DB) *Logs { return &Logs{db: d} }

func (r *Logs) Append(ctx context.Context, e domain.LogEntry) error {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `INSERT INTO system_log(level,source,message,task_id,timestamp) VALUES ($1,$2,$3,$4,$5)`,
		string(e.Level), e.Source, e.Message, e.TaskID, e.Timestamp)
	return err
}

// NewPostgres wires every store to one database.
func NewPostgres(d *db.DB) Stores {
	return Stores{
		Tasks:    NewTasks(d),
		Accounts: NewAccounts(d),
		Payments: NewPayments(d),
		Bookings: NewBookings(d),
		Logs:     NewLogs(d),
	}
}
