package tools

import (
	"context"
	"fmt"
	"sync"

	"course-rag/internal/llm"
	"course-rag/internal/models"

	"go.uber.org/zap"
)

// Registry holds the tools offered to the model and the sources produced by
// their latest executions
type Registry struct {
	mu      sync.Mutex
	tools   map[string]Tool
	order   []string
	sources map[string][]models.Source
	latest  string
	logger  *zap.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:   make(map[string]Tool),
		sources: make(map[string][]models.Source),
		logger:  logger,
	}
}

// Register adds a tool under its spec name. A second tool with the same name
// replaces the first but keeps its position.
func (r *Registry) Register(tool Tool) error {
	name := tool.Spec().Name
	if name == "" {
		return fmt.Errorf("tool must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
	r.logger.Debug("registered tool", zap.String("tool", name))
	return nil
}

// Specs returns the tool specs in registration order
func (r *Registry) Specs() []llm.ToolSpec {
	r.mu.Lock()
	defer r.mu.Unlock()

	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Dispatch runs the named tool. An unknown name is reported as text with a
// nil error so the model sees it as an ordinary tool result; errors from the
// tool itself are returned unchanged.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.tools[name]
	r.mu.Unlock()
	if !ok {
		r.logger.Warn("tool not found", zap.String("tool", name))
		return fmt.Sprintf("Tool '%s' not found", name), nil
	}

	result, err := tool.Execute(ctx, Arguments(args))
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	r.sources[name] = result.Sources
	if len(result.Sources) > 0 {
		r.latest = name
	}
	r.mu.Unlock()

	return result.Text, nil
}

// CollectSources returns the sources of the tool that most recently produced
// any
func (r *Registry) CollectSources() []models.Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	src := r.sources[r.latest]
	out := make([]models.Source, len(src))
	copy(out, src)
	return out
}

// ClearSources forgets all recorded sources
func (r *Registry) ClearSources() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sources = make(map[string][]models.Source)
	r.latest = ""
}
