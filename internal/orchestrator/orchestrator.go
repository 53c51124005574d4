package orchestrator

import (
	"context"
	"fmt"
	"time"

	"course-rag/internal/llm"

	"go.uber.org/zap"
)

// Fixed replies. FallbackProcessing and FallbackFinal replace a failed round 2
// or final call; FallbackToolFailed answers a tool fault whose requesting
// response carried no text.
const (
	FallbackProcessing = "An error occurred while processing your request."
	FallbackFinal      = "An error occurred while generating the final response."
	FallbackToolFailed = "Tool execution failed"
)

// MaxToolRounds is the number of tool-enabled rounds before the final call
const MaxToolRounds = 2

// Dispatcher executes a tool call by name
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, args map[string]any) (string, error)
}

// state is a step of the conversation loop
type state int

const (
	stateRound1 state = iota
	stateRound2
	stateFinalNoTools
	stateDone
)

func (s state) String() string {
	switch s {
	case stateRound1:
		return "round_1"
	case stateRound2:
		return "round_2"
	case stateFinalNoTools:
		return "final_no_tools"
	case stateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// exit names the rule that ended a query
type exit string

const (
	exitNoTools    exit = "no_tools"
	exitAnswered   exit = "answered"
	exitToolFault  exit = "tool_fault"
	exitNoResults  exit = "no_results"
	exitRoundCap   exit = "round_cap"
	exitLLMError   exit = "llm_error"
	exitLLMDegrade exit = "llm_fallback"
)

// Orchestrator drives the bounded exchange between the model and its tools.
// It keeps no state between queries.
type Orchestrator struct {
	client  llm.Client
	metrics *Metrics
	logger  *zap.Logger
}

// New creates an orchestrator. metrics may be nil.
func New(client llm.Client, metrics *Metrics, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		client:  client,
		metrics: metrics,
		logger:  logger,
	}
}

// dispatchOutcome is the tagged result of running one round's tool calls
type dispatchOutcome struct {
	results []llm.ToolResult
	fault   error
}

// Respond answers a query. Without tools or a dispatcher it makes one call.
// Otherwise it runs up to two tool rounds and, if the model still wants
// tools, one last call with tools withheld. At most three LLM calls are made.
//
// Only a failure of the first call is returned as an error; later failures
// become a fixed fallback reply.
func (o *Orchestrator) Respond(ctx context.Context, query, history string, tools []llm.ToolSpec, d Dispatcher) (string, error) {
	system := systemContent(history)
	messages := []llm.Message{{Role: llm.RoleUser, Content: query}}

	if len(tools) == 0 || d == nil {
		resp, err := o.complete(ctx, stateRound1, llm.Request{System: system, Messages: messages})
		if err != nil {
			o.metrics.recordExit(exitLLMError)
			return "", fmt.Errorf("failed to generate response: %w", err)
		}
		o.metrics.recordExit(exitNoTools)
		return resp.Text, nil
	}

	current := stateRound1
	for current != stateDone {
		switch current {
		case stateRound1, stateRound2:
			resp, err := o.complete(ctx, current, llm.Request{
				System:     system,
				Messages:   messages,
				Tools:      tools,
				ToolChoice: llm.ToolChoiceAuto,
			})
			if err != nil {
				if current == stateRound1 {
					o.metrics.recordExit(exitLLMError)
					return "", fmt.Errorf("failed to generate response: %w", err)
				}
				o.logger.Warn("llm call failed after tool round", zap.Stringer("state", current), zap.Error(err))
				o.metrics.recordExit(exitLLMDegrade)
				return FallbackProcessing, nil
			}
			messages = append(messages, resp.Message())

			if !resp.WantsTools() {
				o.metrics.recordExit(exitAnswered)
				return resp.Text, nil
			}

			outcome := o.dispatch(ctx, resp.ToolCalls, d)
			if outcome.fault != nil {
				o.logger.Warn("tool execution failed", zap.Stringer("state", current), zap.Error(outcome.fault))
				o.metrics.recordExit(exitToolFault)
				return currentText(resp), nil
			}
			if len(outcome.results) == 0 {
				o.metrics.recordExit(exitNoResults)
				return currentText(resp), nil
			}
			messages = append(messages, llm.Message{Role: llm.RoleUser, ToolResults: outcome.results})

			if current == stateRound1 {
				current = stateRound2
			} else {
				current = stateFinalNoTools
			}

		case stateFinalNoTools:
			resp, err := o.complete(ctx, current, llm.Request{System: system, Messages: messages})
			if err != nil {
				o.logger.Warn("final llm call failed", zap.Error(err))
				o.metrics.recordExit(exitLLMDegrade)
				return FallbackFinal, nil
			}
			o.metrics.recordExit(exitRoundCap)
			return resp.Text, nil
		}
	}
	return "", nil
}

func (o *Orchestrator) complete(ctx context.Context, s state, req llm.Request) (*llm.Response, error) {
	start := time.Now()
	resp, err := o.client.Complete(ctx, req)
	o.metrics.recordLLMCall(s, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("llm call completed",
		zap.Stringer("state", s),
		zap.Int("tool_calls", len(resp.ToolCalls)),
		zap.String("stop_reason", resp.StopReason),
	)
	return resp, nil
}

// dispatch runs the calls in the order the model emitted them and stops at
// the first fault. Calls without a name are skipped.
func (o *Orchestrator) dispatch(ctx context.Context, calls []llm.ToolCall, d Dispatcher) dispatchOutcome {
	var out dispatchOutcome
	for _, call := range calls {
		if call.Name == "" {
			o.logger.Warn("skipping tool call without a name", zap.String("call_id", call.ID))
			continue
		}
		if call.ArgumentsErr != nil {
			o.metrics.recordToolCall(call.Name, call.ArgumentsErr)
			out.fault = fmt.Errorf("tool %s: %w", call.Name, call.ArgumentsErr)
			return out
		}
		content, err := d.Dispatch(ctx, call.Name, call.Arguments)
		o.metrics.recordToolCall(call.Name, err)
		if err != nil {
			out.fault = fmt.Errorf("tool %s: %w", call.Name, err)
			return out
		}
		out.results = append(out.results, llm.NewToolResult(call.ID, content))
	}
	return out
}

// currentText is the text of the response that requested the tools
func currentText(resp *llm.Response) string {
	if resp.Text == "" {
		return FallbackToolFailed
	}
	return resp.Text
}
