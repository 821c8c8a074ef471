package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shuaiyuancn/2026-better-booking/internal/bot"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/config"
	"github.com/shuaiyuancn/2026-better-booking/internal/domain"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
)

func newProbeCmd() *cobra.Command {
	var (
		facility string
		date     string
		duration int
		start    string
	)

	c := &cobra.Command{
		Use:   "probe",
		Short: "Load an availability page and list its slots without booking",
		Long: `Load the availability page a task would use and print the slot links found
with the current site profile. Nothing is clicked and no login happens.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := time.Parse(domain.DateLayout, date)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD)")
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			profile := site.Default()
			if cfg.SiteProfile != "" {
				if profile, err = site.Load(cfg.SiteProfile); err != nil {
					return err
				}
			}

			t := domain.Task{Facility: facility, TargetDate: d, Duration: duration, PreferredStart: start}
			l := browser.RodLauncher{Headless: cfg.Headless, Bin: cfg.BrowserBin, NoSandbox: cfg.NoSandbox}
			res, err := bot.Probe(cmd.Context(), l, profile, t)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, res.URL)
			switch {
			case res.NoResults:
				fmt.Fprintln(out, "no results at this centre")
			case len(res.Slots) == 0:
				fmt.Fprintln(out, "no slots visible")
			}
			for _, s := range res.Slots {
				mark := " "
				if s == res.Match {
					mark = "*"
				}
				fmt.Fprintf(out, "%s %s\n", mark, s)
			}
			return nil
		},
	}

	c.Flags().StringVar(&facility, "facility", "hendon", "leisure centre: "+facilityKeys())
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD")
	c.Flags().IntVar(&duration, "duration", 60, "session length in minutes (40 or 60)")
	c.Flags().StringVar(&start, "start", "", "preferred start time HH:MM; the slot a run would pick is starred")
	_ = c.MarkFlagRequired("date")
	return c
}
