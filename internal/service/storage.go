package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xu2799/it-platform-frontend/internal/adapter/outbound/memory"
	"github.com/xu2799/it-platform-frontend/internal/adapter/outbound/state"
	"github.com/xu2799/it-platform-frontend/internal/config"
	"github.com/xu2799/it-platform-frontend/internal/port/outbound"
)

// OpenStore opens the durable credential store selected by cfg. The
// returned close function releases it and is never nil.
func OpenStore(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (outbound.CredentialStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case config.StorageFile, "":
		s := state.NewFileStateStore(cfg.Path, logger)
		logger.Debug("using file storage", "path", s.Path(), "exists", s.Exists())
		return s, noop, nil
	case config.StorageSQLite:
		s, err := state.OpenSQLiteStore(ctx, cfg.Path, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open sqlite storage: %w", err)
		}
		logger.Debug("using sqlite storage", "path", cfg.Path)
		return s, s.Close, nil
	case config.StorageMemory:
		logger.Debug("using in-memory storage, the session will not survive the process")
		return memory.NewCredentialStore(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
