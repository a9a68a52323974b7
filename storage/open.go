package storage

import (
	"context"
	"fmt"

	"portal_leads/config"
)

// Backend bundles the selected lead log with its optional run recorder.
type Backend struct {
	Leads LeadLog
	Runs  RunRecorder
	close func() error
}

func (b *Backend) Close() error {
	if b == nil || b.close == nil {
		return nil
	}
	return b.close()
}

// Open builds the backend named by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig) (*Backend, error) {
	switch cfg.Backend {
	case config.StoreFile, "":
		return &Backend{Leads: NewFileLog(cfg.LeadFile)}, nil

	case config.StoreSQLite:
		s, err := NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		return &Backend{Leads: s, Runs: s, close: s.Close}, nil

	case config.StorePostgres:
		s, err := NewPostgresStore(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Backend{Leads: s, Runs: s, close: func() error { s.Close(); return nil }}, nil

	case config.StoreRedis:
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("open redis: %w", err)
		}
		return &Backend{Leads: s, close: s.Close}, nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
