package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"fuelcoach-go/internal/config"
	log "github.com/sirupsen/logrus"
)

// Build constructs and initializes the backend selected by cfg.
func Build(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	var backend Backend
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "sqlite":
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.BaseDir, "client.db")
		}
		backend = NewSQLiteBackend(path)
	case "file":
		backend = NewFileBackend(filepath.Join(cfg.BaseDir, "state"))
	case "redis":
		backend = NewRedisBackend(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case "memory":
		backend = NewMemoryBackend()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	if err := backend.Initialize(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("initialize %s backend: %w", backend.Name(), err)
	}
	log.WithField("backend", backend.Name()).Debug("storage backend ready")
	return NewInstrumentedBackend(backend), nil
}
