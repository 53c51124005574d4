package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course-rag/internal/config"
	"course-rag/internal/database"
	"course-rag/internal/embedding"
	"course-rag/internal/llm"
	"course-rag/internal/logging"
	"course-rag/internal/orchestrator"
	"course-rag/internal/rag"
	"course-rag/internal/retrieval"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "courseqa",
	Short: "Ask questions about indexed course materials",
	Long: `courseqa answers questions about course materials. The model searches
course content and course outlines with tools before answering.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.AddCommand(askCmd, coursesCmd, outlineCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// app holds everything a command needs
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	backend database.Backend
	store   *retrieval.Store
	system  *rag.System
	metrics *http.Server
}

func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.NewOllamaEmbedder(cfg.Embedding.Host, cfg.Embedding.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	embedder.MaxRetries = cfg.Embedding.MaxRetries
	embedder.Timeout = cfg.Embedding.Timeout.Duration()
	embedder.MaxConcurrent = cfg.Embedding.MaxConcurrent

	backend, err := database.Open(ctx, cfg, embedder, logger.Named("database"))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, backend: backend}

	registry := prometheus.NewRegistry()
	metrics := orchestrator.NewMetrics(registry)
	if cfg.Metrics.Addr != "" {
		a.metrics = serveMetrics(cfg.Metrics.Addr, registry, logger)
	}

	a.store = retrieval.NewStore(backend.Catalog(), backend.Content(), cfg.Store.MaxResults, logger.Named("retrieval"))
	a.system, err = rag.New(a.store, client, rag.Options{
		MaxHistory: cfg.Session.MaxHistory,
		Metrics:    metrics,
	}, logger)
	if err != nil {
		a.close()
		return nil, err
	}

	logger.Info("course QA ready",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.String("store", cfg.Store.Backend),
	)
	return a, nil
}

func serveMetrics(addr string, registry *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}

func (a *app) close() {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.metrics.Shutdown(ctx)
	}
	a.backend.Close()
	_ = a.logger.Sync()
}
