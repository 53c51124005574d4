package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// OpenAIClient handles chat completions with tools against an
// OpenAI-compatible endpoint
type OpenAIClient struct {
	client  *openai.Client
	model   string
	options Options
}

// NewOpenAIClient creates a client. An empty baseURL keeps the OpenAI default.
func NewOpenAIClient(baseURL, apiKey, model string, opts Options) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		options: opts,
	}
}

// Complete sends the conversation and returns the first choice
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	messages, err := openaiMessages(req)
	if err != nil {
		return nil, err
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.options.MaxTokens,
		Temperature: openaiTemperature(c.options.Temperature),
	}
	if len(req.Tools) > 0 {
		chatReq.Tools = openaiTools(req.Tools)
		if req.ToolChoice != "" {
			chatReq.ToolChoice = req.ToolChoice
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	choice := resp.Choices[0]
	out := &Response{
		Text:       choice.Message.Content,
		StopReason: string(choice.FinishReason),
	}
	for _, tc := range choice.Message.ToolCalls {
		if tc.Type != "" && tc.Type != openai.ToolTypeFunction {
			continue
		}
		call := ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: map[string]any{},
		}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &call.Arguments); err != nil {
				call.Arguments = map[string]any{}
				call.RawArguments = tc.Function.Arguments
				call.ArgumentsErr = fmt.Errorf("%w: %v", ErrMalformedArguments, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, call)
	}
	return out, nil
}

// openaiTemperature maps zero onto the smallest float, since go-openai drops a
// zero temperature from the request
func openaiTemperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func openaiMessages(req Request) ([]openai.ChatCompletionMessage, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		if len(m.ToolResults) > 0 {
			for _, r := range m.ToolResults {
				msgs = append(msgs, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    r.Content,
					ToolCallID: r.ToolUseID,
				})
			}
			continue
		}

		msg := openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		for _, tc := range m.ToolCalls {
			args := []byte(tc.RawArguments)
			if tc.ArgumentsErr == nil {
				var err error
				if args, err = json.Marshal(tc.Arguments); err != nil {
					return nil, fmt.Errorf("failed to encode arguments for tool %s: %w", tc.Name, err)
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(args),
				},
			})
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func openaiTools(specs []ToolSpec) []openai.Tool {
	tools := make([]openai.Tool, 0, len(specs))
	for _, s := range specs {
		props := make(map[string]jsonschema.Definition, len(s.InputSchema.Properties))
		for name, p := range s.InputSchema.Properties {
			props[name] = jsonschema.Definition{
				Type:        jsonschema.DataType(p.Type),
				Description: p.Description,
			}
		}
		f := openai.FunctionDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters: jsonschema.Definition{
				Type:       jsonschema.DataType(s.InputSchema.Type),
				Properties: props,
				Required:   s.InputSchema.Required,
			},
		}
		tools = append(tools, openai.Tool{
			Type:     openai.ToolTypeFunction,
			Function: &f,
		})
	}
	return tools
}
