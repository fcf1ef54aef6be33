package postgres

import (
	"context"
	"fmt"
	"github.com/jackc/pgx/v5/pgxpool"
	"log"
	"time"
)

// Connect opens a pool and waits for the server to answer, retrying while
// the database container is still starting.
func Connect(ctx context.Context, dsn, appName string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 16
	cfg.MinConns = 1
	cfg.HealthCheckPeriod = 30 * time.Second
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	for i := 0; ; i++ {
		err = pool.Ping(ctx)
		if err == nil {
			return pool, nil
		}
		if i == 4 || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres ping: %w", err)
		}
		wait := time.Duration(i+1) * time.Second
		log.Printf("postgres not ready, retrying in %v: %v", wait, err)
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}
}
