package rag

import (
	"context"
	"fmt"
	"sync"

	"course-rag/internal/llm"
	"course-rag/internal/models"
	"course-rag/internal/orchestrator"
	"course-rag/internal/retrieval"
	"course-rag/internal/session"
	"course-rag/internal/tools"

	"go.uber.org/zap"
)

// questionPrefix frames the user question for the model
const questionPrefix = "Answer this question about course materials: "

// Responder produces an answer, optionally using tools through a dispatcher
type Responder interface {
	Respond(ctx context.Context, query, history string, specs []llm.ToolSpec, d orchestrator.Dispatcher) (string, error)
}

// Analyzer reports catalog statistics
type Analyzer interface {
	Analytics(ctx context.Context) (*models.Analytics, error)
}

// System answers course questions with tool-augmented retrieval and keeps
// per-session history
type System struct {
	// mu serializes queries; tool sources are shared by the registry
	mu sync.Mutex

	responder Responder
	registry  *tools.Registry
	sessions  *session.Manager
	analyzer  Analyzer
	logger    *zap.Logger
}

// Options configures New
type Options struct {
	MaxHistory int
	Metrics    *orchestrator.Metrics
}

// New wires the search and outline tools over a retrieval store and an
// orchestrator over the LLM client
func New(store *retrieval.Store, client llm.Client, opts Options, logger *zap.Logger) (*System, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := tools.NewRegistry(logger.Named("tools"))
	if err := registry.Register(tools.NewCourseSearchTool(store)); err != nil {
		return nil, fmt.Errorf("failed to register search tool: %w", err)
	}
	if err := registry.Register(tools.NewCourseOutlineTool(store)); err != nil {
		return nil, fmt.Errorf("failed to register outline tool: %w", err)
	}

	responder := orchestrator.New(client, opts.Metrics, logger.Named("orchestrator"))
	return NewSystem(responder, registry, session.NewManager(opts.MaxHistory), store, logger), nil
}

// NewSystem assembles a system from its parts
func NewSystem(responder Responder, registry *tools.Registry, sessions *session.Manager, analyzer Analyzer, logger *zap.Logger) *System {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &System{
		responder: responder,
		registry:  registry,
		sessions:  sessions,
		analyzer:  analyzer,
		logger:    logger,
	}
}

// Sessions exposes the history store
func (s *System) Sessions() *session.Manager {
	return s.sessions
}

// Query answers a question. With a session id, prior exchanges are passed to
// the model and the new exchange is recorded.
func (s *System) Query(ctx context.Context, query, sessionID string) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.registry.ClearSources()

	var history string
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	text, err := s.responder.Respond(ctx, questionPrefix+query, history, s.registry.Specs(), s.registry)
	if err != nil {
		s.logger.Error("query failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	sources := s.registry.CollectSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, text)
	}

	s.logger.Info("query answered",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(sources)),
	)
	return &models.Answer{
		Text:      text,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// Analytics reports the indexed courses
func (s *System) Analytics(ctx context.Context) (*models.Analytics, error) {
	return s.analyzer.Analytics(ctx)
}
