package tools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"course-rag/internal/llm"
	"course-rag/internal/models"
)

// ErrInvalidArguments is returned when a tool call carries missing or
// mistyped arguments
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Arguments are the decoded arguments of a tool call
type Arguments map[string]any

// Result is what a tool hands back: the text shown to the model and the
// sources to cite next to the answer
type Result struct {
	Text    string
	Sources []models.Source
}

// Tool is a capability the model can invoke by name
type Tool interface {
	Spec() llm.ToolSpec
	Execute(ctx context.Context, args Arguments) (Result, error)
}

// String returns a required string argument
func (a Arguments) String(name string) (string, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: missing %s", ErrInvalidArguments, name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidArguments, name, v)
	}
	return s, nil
}

// OptionalString returns a string argument or "" when absent
func (a Arguments) OptionalString(name string) (string, error) {
	if v, ok := a[name]; !ok || v == nil {
		return "", nil
	}
	return a.String(name)
}

// OptionalInt returns an integer argument or nil when absent. Models send
// numbers as JSON floats and occasionally as numeric strings.
func (a Arguments) OptionalInt(name string) (*int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return nil, nil
	}

	var n int
	switch val := v.(type) {
	case int:
		n = val
	case int64:
		n = int(val)
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidArguments, name, val)
		}
		n = int(val)
	case string:
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidArguments, name, val)
		}
		n = parsed
	default:
		return nil, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidArguments, name, v)
	}
	return &n, nil
}
