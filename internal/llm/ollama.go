package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"course-rag/internal/embedding"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
)

// OllamaClient handles chat completions with tools against the Ollama API
type OllamaClient struct {
	Client  *api.Client
	Model   string
	Options Options
}

// NewOllamaClient creates a new Ollama chat client. An empty host falls back
// to OLLAMA_HOST.
func NewOllamaClient(host string, model string, opts Options) (*OllamaClient, error) {
	hostURL, err := embedding.ResolveHost(host)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(hostURL, http.DefaultClient)

	return &OllamaClient{
		Client:  client,
		Model:   model,
		Options: opts,
	}, nil
}

// Complete sends the conversation to Ollama and returns the reply
func (o *OllamaClient) Complete(ctx context.Context, req Request) (*Response, error) {
	tools, err := ollamaTools(req.Tools)
	if err != nil {
		return nil, err
	}

	stream := false
	chatReq := api.ChatRequest{
		Model:    o.Model,
		Messages: ollamaMessages(req),
		Tools:    tools,
		Stream:   &stream,
		Options: map[string]interface{}{
			"temperature": o.Options.Temperature,
			"num_predict": o.Options.MaxTokens,
		},
	}

	var content strings.Builder
	var toolCalls []api.ToolCall
	var doneReason string
	err = o.Client.Chat(ctx, &chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		toolCalls = append(toolCalls, resp.Message.ToolCalls...)
		if resp.Done {
			doneReason = resp.DoneReason
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate response: %w", err)
	}

	out := &Response{
		Text:       content.String(),
		StopReason: doneReason,
	}
	// Ollama does not assign call ids
	for _, tc := range toolCalls {
		args := make(map[string]any, len(tc.Function.Arguments))
		for k, v := range tc.Function.Arguments {
			args[k] = v
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        uuid.NewString(),
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return out, nil
}

func ollamaMessages(req Request) []api.Message {
	msgs := make([]api.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, api.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		if len(m.ToolResults) > 0 {
			for _, r := range m.ToolResults {
				msgs = append(msgs, api.Message{Role: "tool", Content: r.Content})
			}
			continue
		}
		msg := api.Message{Role: string(m.Role), Content: m.Content}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
				Function: api.ToolCallFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// ollamaFunction is the wire shape of an Ollama function tool
type ollamaFunction struct {
	Type     string `json:"type"`
	Function struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Parameters  Schema `json:"parameters"`
	} `json:"function"`
}

// ollamaTools converts tool specs through their JSON form, which is what the
// Ollama API accepts
func ollamaTools(specs []ToolSpec) (api.Tools, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	wire := make([]ollamaFunction, len(specs))
	for i, s := range specs {
		wire[i].Type = "function"
		wire[i].Function.Name = s.Name
		wire[i].Function.Description = s.Description
		wire[i].Function.Parameters = s.InputSchema
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tools: %w", err)
	}
	var tools api.Tools
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, fmt.Errorf("failed to convert tools: %w", err)
	}
	return tools, nil
}
