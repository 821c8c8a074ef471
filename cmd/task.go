package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shuaiyuancn/2026-better-booking/internal/config"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/internaltypes"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage booking tasks",
	}
	cmd.AddCommand(newTaskCreateCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskStopCmd())
	return cmd
}

// taskFlags holds the task create flags.
type taskFlags struct {
	accountID int64
	paymentID int64
	facility  string
	date      string
	duration  int
	start     string
}

func (s taskFlags) task() (domain.Task, error) {
	d, err := time.Parse(domain.DateLayout, s.date)
	if err != nil {
		return domain.Task{}, fmt.Errorf("invalid --date (want YYYY-MM-DD)")
	}
	t := domain.Task{
		AccountID:        s.accountID,
		PaymentProfileID: s.paymentID,
		Facility:         s.facility,
		TargetDate:       d,
		Duration:         s.duration,
		PreferredStart:   s.start,
		Status:           domain.StatusPending,
	}
	if f, ok := domain.LookupFacility(s.facility); ok {
		t.Facility = f.Key
	}
	return t, t.Validate()
}

func newTaskCreateCmd() *cobra.Command {
	var f taskFlags

	c := &cobra.Command{
		Use:   "create",
		Short: "Queue a PENDING booking task",
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := f.task()
			if err != nil {
				return err
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, _, err := openDB(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer d.Close()

			id, err := store.NewTasks(d).Create(ctx, t)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created task id=%d facility=%s date=%s duration=%d\n",
				id, t.Facility, t.Date(), t.Duration)
			return nil
		},
	}

	c.Flags().Int64Var(&f.accountID, "account-id", 0, "account id (from DB)")
	c.Flags().Int64Var(&f.paymentID, "payment-id", 0, "payment profile id (from DB)")
	c.Flags().StringVar(&f.facility, "facility", "", "leisure centre: "+facilityKeys())
	c.Flags().StringVar(&f.date, "date", "", "target date YYYY-MM-DD")
	c.Flags().IntVar(&f.duration, "duration", 60, "session length in minutes (40 or 60)")
	c.Flags().StringVar(&f.start, "start", "", "preferred start time HH:MM (default: first available)")

	_ = c.MarkFlagRequired("account-id")
	_ = c.MarkFlagRequired("payment-id")
	_ = c.MarkFlagRequired("facility")
	_ = c.MarkFlagRequired("date")
	return c
}

func newTaskListCmd() *cobra.Command {
	var accountID int64
	c := &cobra.Command{
		Use:   "list",
		Short: "List tasks for an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, _, err := openDB(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer d.Close()

			return listTasks(ctx, cmd.OutOrStdout(), store.NewTasks(d), store.NewBookings(d), accountID)
		},
	}
	c.Flags().Int64Var(&accountID, "account-id", 0, "account id")
	_ = c.MarkFlagRequired("account-id")
	return c
}

func newTaskStopCmd() *cobra.Command {
	var id int64
	c := &cobra.Command{
		Use:   "stop",
		Short: "Stop a PENDING or RUNNING task",
		Long: `Stop a task so the worker no longer picks it up. A run already in progress
is not interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			d, _, err := openDB(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer d.Close()

			tasks := store.NewTasks(d)
			t, err := tasks.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("task %d: %w", id, err)
			}
			if err := tasks.Transition(ctx, id, t.Status, domain.StatusStopped); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stopped task id=%d (was %s)\n", id, t.Status)
			return nil
		},
	}
	c.Flags().Int64Var(&id, "id", 0, "task id")
	_ = c.MarkFlagRequired("id")
	return c
}

type taskLister interface {
	ListByAccount(ctx context.Context, accountID int64) ([]domain.Task, error)
}

// listTasks prints one line per task. A booking on a task that is not
// SUCCESS, left by a stop that raced a successful run, is flagged.
func listTasks(ctx context.Context, w io.Writer, tasks taskLister, bookings store.BookingStore, accountID int64) error {
	ts, err := tasks.ListByAccount(ctx, accountID)
	if err != nil {
		return err
	}
	for _, t := range ts {
		line := formatTask(t)
		b, err := bookings.ForTask(ctx, t.ID)
		switch {
		case errors.Is(err, internaltypes.ErrNotFound):
		case err != nil:
			return fmt.Errorf("booking for task %d: %w", t.ID, err)
		default:
			line += " booking=" + b.Reference
			if t.Status != domain.StatusSuccess {
				line += " MISMATCH(booked but " + string(t.Status) + ")"
			}
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

func formatTask(t domain.Task) string {
	start := t.PreferredStart
	if start == "" {
		start = "any"
	}
	checked := "never"
	if t.LastCheckedAt != nil {
		checked = t.LastCheckedAt.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("id=%d facility=%s date=%s duration=%d start=%s status=%s last_checked=%s",
		t.ID, t.Facility, t.Date(), t.Duration, start, t.Status, checked)
}

func facilityKeys() string {
	var keys []string
	for _, f := range domain.Facilities() {
		keys = append(keys, f.Key)
	}
	return strings.Join(keys, ", ")
}
