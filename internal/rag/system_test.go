package rag

import (
	"context"
	"errors"
	"testing"

	"course-rag/internal/llm"
	"course-rag/internal/models"
	"course-rag/internal/orchestrator"
	"course-rag/internal/session"
	"course-rag/internal/tools"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sourceTool struct {
	sources []models.Source
}

func (s *sourceTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{Name: "search_course_content", InputSchema: llm.Schema{Type: "object"}}
}

func (s *sourceTool) Execute(ctx context.Context, args tools.Arguments) (tools.Result, error) {
	return tools.Result{Text: "found", Sources: s.sources}, nil
}

// fakeResponder calls the search tool once when told to, then answers
type fakeResponder struct {
	answer   string
	err      error
	useTool  bool
	query    string
	history  string
	specs    []llm.ToolSpec
	dispatch orchestrator.Dispatcher
}

func (f *fakeResponder) Respond(ctx context.Context, query, history string, specs []llm.ToolSpec, d orchestrator.Dispatcher) (string, error) {
	f.query, f.history, f.specs, f.dispatch = query, history, specs, d
	if f.useTool {
		if _, err := d.Dispatch(ctx, "search_course_content", map[string]any{"query": query}); err != nil {
			return "", err
		}
	}
	return f.answer, f.err
}

type fakeAnalyzer struct{}

func (fakeAnalyzer) Analytics(ctx context.Context) (*models.Analytics, error) {
	return &models.Analytics{TotalCourses: 3, CourseTitles: []string{"Course 1", "Course 2", "Course 3"}}, nil
}

func newTestSystem(t *testing.T, responder *fakeResponder, sources []models.Source) *System {
	t.Helper()
	registry := tools.NewRegistry(nil)
	require.NoError(t, registry.Register(&sourceTool{sources: sources}))
	return NewSystem(responder, registry, session.NewManager(2), fakeAnalyzer{}, nil)
}

func TestQueryReturnsAnswerAndSources(t *testing.T) {
	responder := &fakeResponder{answer: "AI generated response about MCP", useTool: true}
	sys := newTestSystem(t, responder, []models.Source{{Text: "MCP Course - Lesson 1", Link: "https://example.com"}})

	answer, err := sys.Query(context.Background(), "What is MCP?", "")
	require.NoError(t, err)

	assert.Equal(t, "Answer this question about course materials: What is MCP?", responder.query)
	assert.Equal(t, "", responder.history)
	require.Len(t, responder.specs, 1)
	assert.Equal(t, "search_course_content", responder.specs[0].Name)
	assert.NotNil(t, responder.dispatch)

	assert.Equal(t, "AI generated response about MCP", answer.Text)
	assert.Equal(t, []models.Source{{Text: "MCP Course - Lesson 1", Link: "https://example.com"}}, answer.Sources)
}

func TestQueryClearsSourcesBetweenQueries(t *testing.T) {
	responder := &fakeResponder{answer: "first", useTool: true}
	sys := newTestSystem(t, responder, []models.Source{{Text: "Course"}})

	_, err := sys.Query(context.Background(), "q1", "")
	require.NoError(t, err)

	responder.useTool = false
	responder.answer = "No sources found"
	answer, err := sys.Query(context.Background(), "q2", "")
	require.NoError(t, err)
	assert.Equal(t, "No sources found", answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestQueryWithSessionHistory(t *testing.T) {
	responder := &fakeResponder{answer: "Contextual response"}
	sys := newTestSystem(t, responder, nil)
	id := sys.Sessions().Create()
	sys.Sessions().AddExchange(id, "Earlier question", "Earlier answer")

	answer, err := sys.Query(context.Background(), "Follow up question", id)
	require.NoError(t, err)

	assert.Equal(t, "User: Earlier question\nAssistant: Earlier answer", responder.history)
	assert.Equal(t, id, answer.SessionID)
	assert.Equal(t,
		"User: Earlier question\nAssistant: Earlier answer\nUser: Follow up question\nAssistant: Contextual response",
		sys.Sessions().History(id))
}

func TestQueryPropagatesResponderError(t *testing.T) {
	responder := &fakeResponder{err: errors.New("AI API failed"), useTool: true}
	sys := newTestSystem(t, responder, []models.Source{{Text: "leak"}})
	id := sys.Sessions().Create()

	_, err := sys.Query(context.Background(), "Test question", id)
	assert.EqualError(t, err, "AI API failed")
	assert.Equal(t, "", sys.Sessions().History(id))

	responder.err, responder.useTool = nil, false
	answer, err := sys.Query(context.Background(), "next", "")
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
}

func TestAnalytics(t *testing.T) {
	sys := newTestSystem(t, &fakeResponder{}, nil)

	analytics, err := sys.Analytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, analytics.TotalCourses)
	assert.Equal(t, []string{"Course 1", "Course 2", "Course 3"}, analytics.CourseTitles)
}
