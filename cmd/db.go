package cmd

import (
	"context"
	"fmt"

	"github.com/shuaiyuancn/2026-better-booking/internal/config"
	"github.com/shuaiyuancn/2026-better-booking/internal/db"
	"github.com/shuaiyuancn/2026-better-booking/internal/migrate"
)

// openDB connects and pings, applying migrations first when migrateUp is set.
func openDB(ctx context.Context, cfg config.Config, migrateUp bool) (*db.DB, []string, error) {
	d, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Ping(ctx); err != nil {
		d.Close()
		return nil, nil, fmt.Errorf("db ping: %w", err)
	}
	if !migrateUp {
		return d, nil, nil
	}
	applied, err := migrate.Up(ctx, d)
	if err != nil {
		d.Close()
		return nil, nil, err
	}
	return d, applied, nil
}
