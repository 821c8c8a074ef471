package cmd

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/shuaiyuancn/2026-better-booking/internal/audit"
	"github.com/shuaiyuancn/2026-better-booking/internal/bot"
	"github.com/shuaiyuancn/2026-better-booking/internal/browser"
	"github.com/shuaiyuancn/2026-better-booking/internal/config"
	"github.com/shuaiyuancn/2026-better-booking/internal/logging"
	"github.com/shuaiyuancn/2026-better-booking/internal/scheduler"
	"github.com/shuaiyuancn/2026-better-booking/internal/site"
	"github.com/shuaiyuancn/2026-better-booking/internal/store"
	"github.com/shuaiyuancn/2026-better-booking/internal/vault"
	"github.com/shuaiyuancn/2026-better-booking/internal/web"
)

func runWorker(ctx context.Context, migrateUp bool) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	cfg.App.Version = Version

	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	v, err := vault.New(cfg.FernetKey)
	if err != nil {
		return err
	}

	profile := site.Default()
	if cfg.SiteProfile != "" {
		if profile, err = site.Load(cfg.SiteProfile); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.SiteProfile).Msg("site profile loaded")
	}

	d, applied, err := openDB(ctx, cfg, migrateUp)
	if err != nil {
		return err
	}
	defer d.Close()
	for _, name := range applied {
		logger.Info().Str("migration", name).Msg("migration applied")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	stores := store.NewPostgres(d)
	orch := &bot.Orchestrator{
		Stores: stores,
		Vault:  v,
		Launcher: browser.RodLauncher{
			Headless:  cfg.Headless,
			Bin:       cfg.BrowserBin,
			NoSandbox: cfg.NoSandbox,
		},
		Profile:      profile,
		Log:          audit.New(*logger, stores.Logs, "BookingBot"),
		Metrics:      bot.NewMetrics(reg),
		ArtifactsDir: cfg.ArtifactsDir,
	}
	s := &scheduler.Scheduler{
		Tasks:    stores.Tasks,
		Runner:   orch,
		Interval: cfg.PollInterval,
		Log:      audit.New(*logger, stores.Logs, "Scheduler"),
		Metrics:  scheduler.NewMetrics(reg),
	}

	if cfg.MetricsAddr != "" {
		ops := &web.Server{DB: d, Registry: reg}
		go func() {
			if err := web.Start(ctx, cfg.MetricsAddr, ops.Routes(), logger); err != nil {
				logger.Error().Err(err).Msg("ops server stopped")
			}
		}()
	}

	logger.Info().
		Dur("poll_interval", cfg.PollInterval).
		Bool("headless", cfg.Headless).
		Str("artifacts_dir", cfg.ArtifactsDir).
		Msg("worker starting")

	err = s.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info().Msg("shutdown signal received, worker stopped")
		return nil
	}
	return err
}
