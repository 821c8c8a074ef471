package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shuaiyuancn/2026-better-booking/internal/db"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
)

const taskColumns = `id,user_account_id,payment_profile_id,leisure_centre,target_date::date,duration,target_time_start,status,last_checked_at,created_at`

type Tasks struct{ db *db.DB }

func NewTasks(d *db.DB) *Tasks { return &Tasks{db: d} }

func scanTask(row db.Row) (domain.Task, error) {
	var t domain.Task
	var status string
	var preferred *string
	var lastChecked *time.Time
	if err := row.Scan(&t.ID, &t.AccountID, &t.PaymentProfileID, &t.Facility, &t.TargetDate, &t.Duration,
		&preferred, &status, &lastChecked, &t.CreatedAt); err != nil {
		return domain.Task{}, err
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Task{}, err
	}
	t.Status = st
	if preferred != nil {
		t.PreferredStart = *preferred
	}
	t.LastCheckedAt = lastChecked
	return t, nil
}

func (r *Tasks) ListActive(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+taskColumns+`
FROM task
WHERE status IN ('PENDING','RUNNING')
ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, db.Wrap(err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Tasks) Get(ctx context.Context, id int64) (domain.Task, error) {
	t, err := scanTask(r.db.QueryRow(ctx, `SELECT `+taskColumns+` FROM task WHERE id=$1`, id))
	if err != nil {
		return domain.Task{}, db.Wrap(err)
	}
	return t, nil
}

func (r *Tasks) Create(ctx context.Context, t domain.Task) (int64, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}
	var preferred *string
	if t.PreferredStart != "" {
		preferred = &t.PreferredStart
	}
	var id int64
	err := r.db.QueryRow(ctx, `
INSERT INTO task(user_account_id,payment_profile_id,leisure_centre,target_date,duration,target_time_start,status)
VALUES ($1,$2,$3,$4,$5,$6,'PENDING')
RETURNING id`,
		t.AccountID, t.PaymentProfileID, t.Facility, t.TargetDate, t.Duration, preferred,
	).Scan(&id)
	return id, db.Wrap(err)
}

func (r *Tasks) Transition(ctx context.Context, id int64, from, to domain.Status) error {
	if err := domain.Transition(from, to); err != nil {
		return err
	}
	n, err := r.db.Exec(ctx, `UPDATE task SET status=$3 WHERE id=$1 AND status=$2`, id, string(from), string(to))
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %d: %w (expected %s)", id, internaltypes.ErrStaleStatus, from)
	}
	return nil
}

func (r *Tasks) Touch(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `
UPDATE task
SET last_checked_at = GREATEST(COALESCE(last_checked_at, $2), $2)
WHERE id=$1`, id, at.UTC())
	return err
}

// ListByAccount returns every task of an account, newest first.
func (r *Tasks) ListByAccount(ctx context.Context, accountID int64) ([]domain.Task, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+taskColumns+`
FROM task
WHERE user_account_id=$1
ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, db.Wrap(err)
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
