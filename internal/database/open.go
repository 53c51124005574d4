package database

import (
	"context"
	"fmt"

	"course-rag/internal/config"
	"course-rag/internal/embedding"

	"go.uber.org/zap"
)

// Open connects the backend selected by configuration. Postgres schemas are
// created when missing.
func Open(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) (Backend, error) {
	switch cfg.Store.Backend {
	case config.BackendChromem:
		return NewChromemStore(ChromemConfig{
			Path:        cfg.Store.Path,
			Compress:    cfg.Store.Compress,
			Concurrency: cfg.Embedding.MaxConcurrent,
		}, embedder, logger)

	case config.BackendPostgres:
		db, err := NewDB(ctx, cfg.Store.PostgresDSN.Value(), embedder, cfg.Embedding.Dimensions, logger)
		if err != nil {
			return nil, err
		}
		db.MaxConcurrent = cfg.Embedding.MaxConcurrent
		if err := db.Initialize(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}
}
