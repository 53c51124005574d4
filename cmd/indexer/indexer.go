package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-rag/internal/config"
	"course-rag/internal/database"
	"course-rag/internal/embedding"
	"course-rag/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath   string
	skipExisting bool
	batchSize    int
)

var rootCmd = &cobra.Command{
	Use:   "indexer <file-or-directory>...",
	Short: "Index pre-chunked course files into the vector store",
	Long: `indexer loads course JSON files (title, instructor, course_link, lessons
and chunks) into the configured store. Each course is upserted into the catalog
and its chunks are embedded into the content index.`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.Flags().BoolVar(&skipExisting, "skip-existing", true, "skip courses already in the catalog")
	rootCmd.Flags().IntVar(&batchSize, "batch-size", 64, "chunks stored per batch")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	embedder, err := embedding.NewOllamaEmbedder(cfg.Embedding.Host, cfg.Embedding.Model)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder.MaxRetries = cfg.Embedding.MaxRetries
	embedder.Timeout = cfg.Embedding.Timeout.Duration()
	embedder.MaxConcurrent = cfg.Embedding.MaxConcurrent

	backend, err := database.Open(ctx, cfg, embedder, logger.Named("database"))
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}
	defer backend.Close()

	var files []string
	for _, arg := range args {
		found, err := collectFiles(arg)
		if err != nil {
			return err
		}
		files = append(files, found...)
	}
	logger.Info("indexing course files", zap.Int("files", len(files)), zap.String("store", cfg.Store.Backend))

	ix := &indexer{backend: backend, batchSize: batchSize, skipExisting: skipExisting, logger: logger}
	startTime := time.Now()
	stats, err := ix.indexFiles(ctx, files)
	if err != nil {
		return err
	}

	logger.Info("indexing complete",
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("courses_added", ix.added),
		zap.Int("courses_skipped", ix.skipped),
		zap.Int("chunks", stats.total),
		zap.Float64("avg_chunk_length", stats.averageLength()),
		zap.Int("chunks_without_lesson", stats.noLesson),
	)
	for title, count := range stats.perCourse {
		logger.Info("course chunks", zap.String("course", title), zap.Int("chunks", count))
	}
	return nil
}

// indexer writes course files into a backend
type indexer struct {
	backend      database.Backend
	batchSize    int
	skipExisting bool
	logger       *zap.Logger

	added   int
	skipped int
}

func (ix *indexer) indexFiles(ctx context.Context, files []string) (*chunkStats, error) {
	existing := make(map[string]bool)
	if ix.skipExisting {
		titles, err := ix.backend.Catalog().Titles(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing courses: %w", err)
		}
		for _, t := range titles {
			existing[t] = true
		}
	}

	stats := newChunkStats()
	for _, path := range files {
		course, chunks, err := loadCourseFile(path)
		if err != nil {
			ix.logger.Warn("skipping unreadable course file", zap.String("path", path), zap.Error(err))
			continue
		}
		if existing[course.Title] {
			ix.logger.Info("course already indexed", zap.String("course", course.Title))
			ix.skipped++
			continue
		}

		if err := ix.backend.AddCourse(ctx, *course); err != nil {
			return nil, err
		}
		for start := 0; start < len(chunks); start += ix.batchSize {
			end := min(start+ix.batchSize, len(chunks))
			if err := ix.backend.AddChunks(ctx, chunks[start:end]); err != nil {
				return nil, err
			}
			ix.logger.Debug("stored chunks",
				zap.String("course", course.Title),
				zap.Int("stored", end),
				zap.Int("total", len(chunks)),
			)
		}

		existing[course.Title] = true
		ix.added++
		stats.add(chunks)
		ix.logger.Info("indexed course",
			zap.String("course", course.Title),
			zap.Int("lessons", len(course.Lessons)),
			zap.Int("chunks", len(chunks)),
		)
	}
	return stats, nil
}
