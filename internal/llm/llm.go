package llm

import (
	"context"
	"errors"
)

// ErrMalformedArguments marks a tool call whose arguments could not be decoded
var ErrMalformedArguments = errors.New("malformed tool arguments")

// Role identifies the speaker of a conversation message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ToolChoiceAuto lets the model decide whether to call tools
const ToolChoiceAuto = "auto"

// ToolResultType tags the tool result envelope
const ToolResultType = "tool_result"

// Property is one argument of a tool's input schema
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Schema is a JSON-schema object describing tool arguments
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ToolSpec is the description of a tool presented to the model
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema Schema `json:"input_schema"`
}

// ToolCall is a tool invocation requested by the model. ID is opaque and is
// echoed back unchanged in the matching ToolResult.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`

	// RawArguments keeps the undecoded argument text when decoding failed
	RawArguments string `json:"-"`
	// ArgumentsErr is set when the model sent arguments that are not a JSON object
	ArgumentsErr error `json:"-"`
}

// ToolResult is the envelope carrying a tool's output back to the model
type ToolResult struct {
	Type      string `json:"type"`
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
}

// NewToolResult builds a tool_result envelope for the given call id
func NewToolResult(callID, content string) ToolResult {
	return ToolResult{Type: ToolResultType, ToolUseID: callID, Content: content}
}

// Message is one conversation turn. Assistant turns may carry ToolCalls; a
// user turn answering them carries ToolResults instead of Content.
type Message struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// Request is a single completion request. Tools empty means no tools offered.
type Request struct {
	System     string
	Messages   []Message
	Tools      []ToolSpec
	ToolChoice string
}

// Response is the model's reply to a Request
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// WantsTools reports whether the model requested tool execution
func (r *Response) WantsTools() bool {
	return len(r.ToolCalls) > 0
}

// Message converts the response into the assistant turn to append to a conversation
func (r *Response) Message() Message {
	return Message{
		Role:      RoleAssistant,
		Content:   r.Text,
		ToolCalls: r.ToolCalls,
	}
}

// Client is a chat model that supports tool calling
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Options are the sampling settings shared by every provider
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions is deterministic sampling with a bounded answer length
var DefaultOptions = Options{
	Temperature: 0,
	MaxTokens:   800,
}
