package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

func NewRootCmd() *cobra.Command {
	var migrateUp bool

	root := &cobra.Command{
		Use:   "betterbot",
		Short: "Worker that books badminton courts on bookings.better.org.uk for queued tasks",
		Long: `With no subcommand, betterbot polls the task table and runs a browser booking
attempt for every due task until interrupted.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), migrateUp)
		},
	}
	root.Flags().BoolVar(&migrateUp, "migrate", true, "apply database migrations on startup")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newAccountCmd())
	root.AddCommand(newTaskCmd())
	root.AddCommand(newProbeCmd())

	return root
}

// Execute runs the CLI. SIGINT and SIGTERM cancel the command context, which
// lets the worker finish its current step and exit.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
