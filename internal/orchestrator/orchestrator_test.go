package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"course-rag/internal/llm"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// scriptedLLM replays responses in order and records every request
type scriptedLLM struct {
	replies  []reply
	requests []llm.Request
}

type reply struct {
	resp *llm.Response
	err  error
}

func (s *scriptedLLM) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i >= len(s.replies) {
		return nil, errors.New("unexpected llm call")
	}
	return s.replies[i].resp, s.replies[i].err
}

func text(t string) reply {
	return reply{resp: &llm.Response{Text: t, StopReason: "end_turn"}}
}

func toolUse(t string, calls ...llm.ToolCall) reply {
	return reply{resp: &llm.Response{Text: t, ToolCalls: calls, StopReason: "tool_use"}}
}

func failure(msg string) reply {
	return reply{err: errors.New(msg)}
}

func searchCall(id, query string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: "search_course_content", Arguments: map[string]any{"query": query}}
}

type dispatchRecord struct {
	name string
	args map[string]any
}

type stubDispatcher struct {
	outputs map[string]string
	errs    map[string]error
	calls   []dispatchRecord
}

func (s *stubDispatcher) Dispatch(ctx context.Context, name string, args map[string]any) (string, error) {
	s.calls = append(s.calls, dispatchRecord{name, args})
	if err := s.errs[name]; err != nil {
		return "", err
	}
	return s.outputs[name], nil
}

var testTools = []llm.ToolSpec{{
	Name:        "search_course_content",
	Description: "search",
	InputSchema: llm.Schema{Type: "object", Required: []string{"query"}},
}}

func newTestOrchestrator(client llm.Client) (*Orchestrator, *Metrics) {
	metrics := NewMetrics(prometheus.NewRegistry())
	return New(client, metrics, nil), metrics
}

func TestRespondWithoutTools(t *testing.T) {
	client := &scriptedLLM{replies: []reply{text("plain answer")}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "What is 2+2?", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "plain answer", answer)
	require.Len(t, client.requests, 1)
	assert.Empty(t, client.requests[0].Tools)
	assert.Equal(t, SystemPrompt, client.requests[0].System)
	assert.Equal(t, []llm.Message{{Role: llm.RoleUser, Content: "What is 2+2?"}}, client.requests[0].Messages)
}

func TestRespondHistoryInSystemPrompt(t *testing.T) {
	client := &scriptedLLM{replies: []reply{text("ok")}}
	o, _ := newTestOrchestrator(client)

	_, err := o.Respond(context.Background(), "q", "User: hi\nAssistant: hello", testTools, &stubDispatcher{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(client.requests[0].System, SystemPrompt))
	assert.True(t, strings.HasSuffix(client.requests[0].System, "\n\nPrevious conversation:\nUser: hi\nAssistant: hello"))
}

func TestRespondDirectAnswerWithTools(t *testing.T) {
	client := &scriptedLLM{replies: []reply{text("direct")}}
	d := &stubDispatcher{}
	o, metrics := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "direct", answer)
	require.Len(t, client.requests, 1)
	assert.Equal(t, testTools, client.requests[0].Tools)
	assert.Equal(t, llm.ToolChoiceAuto, client.requests[0].ToolChoice)
	assert.Empty(t, d.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("answered")))
}

func TestRespondOneToolRound(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("searching", searchCall("call_1", "mcp")),
		text("MCP is a protocol."),
	}}
	d := &stubDispatcher{outputs: map[string]string{"search_course_content": "[MCP - Lesson 1]\ncontent"}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "What is MCP?", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "MCP is a protocol.", answer)
	require.Len(t, client.requests, 2)

	second := client.requests[1]
	assert.Equal(t, testTools, second.Tools)
	require.Len(t, second.Messages, 3)
	assert.Equal(t, llm.RoleAssistant, second.Messages[1].Role)
	assert.Equal(t, "searching", second.Messages[1].Content)
	assert.Equal(t, []llm.ToolResult{{
		Type:      "tool_result",
		ToolUseID: "call_1",
		Content:   "[MCP - Lesson 1]\ncontent",
	}}, second.Messages[2].ToolResults)
	assert.Equal(t, []dispatchRecord{{"search_course_content", map[string]any{"query": "mcp"}}}, d.calls)
}

func TestRespondRoundCapForcesFinalCallWithoutTools(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("", searchCall("a", "first")),
		toolUse("", searchCall("b", "second")),
		text("final answer"),
	}}
	d := &stubDispatcher{outputs: map[string]string{"search_course_content": "result"}}
	o, metrics := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "compare", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "final answer", answer)
	require.Len(t, client.requests, 3)
	assert.NotEmpty(t, client.requests[1].Tools)
	assert.Empty(t, client.requests[2].Tools)
	assert.Empty(t, client.requests[2].ToolChoice)
	assert.Len(t, client.requests[2].Messages, 5)
	assert.Len(t, d.calls, 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("round_cap")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallsTotal.WithLabelValues("final_no_tools", "ok")))
}

func TestRespondMultipleCallsInOneRound(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("", searchCall("a", "one"), llm.ToolCall{ID: "b", Name: "get_course_outline", Arguments: map[string]any{"course_name": "MCP"}}),
		text("done"),
	}}
	d := &stubDispatcher{outputs: map[string]string{
		"search_course_content": "search out",
		"get_course_outline":    "outline out",
	}}
	o, _ := newTestOrchestrator(client)

	_, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	require.Len(t, d.calls, 2)
	assert.Equal(t, "search_course_content", d.calls[0].name)
	assert.Equal(t, "get_course_outline", d.calls[1].name)
	results := client.requests[1].Messages[2].ToolResults
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ToolUseID)
	assert.Equal(t, "outline out", results[1].Content)
}

func TestRespondToolFaultReturnsRequestingText(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	client := &scriptedLLM{replies: []reply{
		toolUse("Let me look that up.", searchCall("a", "x"), searchCall("b", "y")),
		text("never"),
	}}
	d := &stubDispatcher{errs: map[string]error{"search_course_content": errors.New("chroma down")}}
	o := New(client, nil, zap.New(core))

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "Let me look that up.", answer)
	assert.Len(t, client.requests, 1)
	assert.Len(t, d.calls, 1)
	assert.Equal(t, 1, logs.FilterMessage("tool execution failed").Len())
}

func TestRespondToolFaultInSecondRound(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("round one", searchCall("a", "x")),
		toolUse("round two", llm.ToolCall{ID: "b", Name: "broken"}),
	}}
	d := &stubDispatcher{
		outputs: map[string]string{"search_course_content": "ok"},
		errs:    map[string]error{"broken": errors.New("boom")},
	}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "round two", answer)
	assert.Len(t, client.requests, 2)
}

func TestRespondToolFaultWithoutText(t *testing.T) {
	client := &scriptedLLM{replies: []reply{toolUse("", searchCall("a", "x"))}}
	d := &stubDispatcher{errs: map[string]error{"search_course_content": errors.New("boom")}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, FallbackToolFailed, answer)
}

func TestRespondMalformedArgumentsIsToolFault(t *testing.T) {
	malformed := llm.ToolCall{
		ID:           "a",
		Name:         "search_course_content",
		Arguments:    map[string]any{},
		RawArguments: `{"query": "mcp"`,
		ArgumentsErr: llm.ErrMalformedArguments,
	}
	client := &scriptedLLM{replies: []reply{toolUse("Let me search.", malformed), text("never")}}
	d := &stubDispatcher{}
	o, metrics := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "Let me search.", answer)
	assert.Len(t, client.requests, 1)
	assert.Empty(t, d.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ToolCallsTotal.WithLabelValues("search_course_content", "error")))
}

func TestRespondMalformedOpenAIArguments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": "Let me search.",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "search_course_content", "arguments": "{\"query\": \"mcp\""}
					}]
				}
			}]
		}`))
	}))
	defer server.Close()

	client := llm.NewOpenAIClient(server.URL, "test-key", "gpt-4o-mini", llm.DefaultOptions)
	d := &stubDispatcher{}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "Let me search.", answer)
	assert.Empty(t, d.calls)
}

func TestRespondNoResults(t *testing.T) {
	client := &scriptedLLM{replies: []reply{toolUse("partial", llm.ToolCall{ID: "a"})}}
	d := &stubDispatcher{}
	o, metrics := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "partial", answer)
	assert.Len(t, client.requests, 1)
	assert.Empty(t, d.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("no_results")))
}

func TestRespondFirstCallErrorPropagates(t *testing.T) {
	for _, tools := range [][]llm.ToolSpec{nil, testTools} {
		client := &scriptedLLM{replies: []reply{failure("connection refused")}}
		o, _ := newTestOrchestrator(client)

		_, err := o.Respond(context.Background(), "q", "", tools, &stubDispatcher{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	}
}

func TestRespondSecondCallErrorFallsBack(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("", searchCall("a", "x")),
		failure("timeout"),
	}}
	d := &stubDispatcher{outputs: map[string]string{"search_course_content": "ok"}}
	o, metrics := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, FallbackProcessing, answer)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallsTotal.WithLabelValues("round_2", "error")))
}

func TestRespondFinalCallErrorFallsBack(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("", searchCall("a", "x")),
		toolUse("", searchCall("b", "y")),
		failure("overloaded"),
	}}
	d := &stubDispatcher{outputs: map[string]string{"search_course_content": "ok"}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, FallbackFinal, answer)
	assert.Len(t, client.requests, 3)
}

func TestRespondUnknownToolIsOrdinaryResult(t *testing.T) {
	client := &scriptedLLM{replies: []reply{
		toolUse("", llm.ToolCall{ID: "a", Name: "nope"}),
		text("answer"),
	}}
	d := &stubDispatcher{outputs: map[string]string{"nope": "Tool 'nope' not found"}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "answer", answer)
	assert.Equal(t, "Tool 'nope' not found", client.requests[1].Messages[2].ToolResults[0].Content)
}

func TestRespondNeverExceedsThreeCalls(t *testing.T) {
	replies := make([]reply, 10)
	for i := range replies {
		replies[i] = toolUse("more", searchCall("id", "again"))
	}
	client := &scriptedLLM{replies: replies}
	d := &stubDispatcher{outputs: map[string]string{"search_course_content": "ok"}}
	o, _ := newTestOrchestrator(client)

	answer, err := o.Respond(context.Background(), "q", "", testTools, d)
	require.NoError(t, err)
	assert.Equal(t, "more", answer)
	assert.Len(t, client.requests, 3)
	assert.Len(t, d.calls, MaxToolRounds)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "round_1", stateRound1.String())
	assert.Equal(t, "final_no_tools", stateFinalNoTools.String())
	assert.Equal(t, "done", stateDone.String())
}
