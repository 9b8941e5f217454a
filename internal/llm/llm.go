// Package llm defines the completion service used for analysis, intent
// routing and formatting, with OpenAI and Anthropic backends.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/sensei/internal/config"
)

// Role is the speaker of a prior turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one prior message sent as conversation context.
type Turn struct {
	Role    Role
	Content string
}

// Request is a single completion call. History is chronological and sent
// between the system instruction and the user content. JSON asks the
// backend to constrain output to a JSON object where supported.
type Request struct {
	System      string
	User        string
	History     []Turn
	JSON        bool
	Temperature *float64
	MaxTokens   int
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f(ctx, req).
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// ErrUnconfigured is returned by the completer used when no API key is set.
var ErrUnconfigured = errors.New("llm: no API key configured")

// ErrEmpty is returned when the backend answers with no text.
var ErrEmpty = errors.New("llm: empty completion")

// Unconfigured always fails with ErrUnconfigured, so callers with a local
// fallback keep working without credentials.
type Unconfigured struct{}

// Complete implements Completer.
func (Unconfigured) Complete(context.Context, Request) (string, error) {
	return "", ErrUnconfigured
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 { return &v }

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call made through c. A non-positive d returns c
// unchanged.
func WithTimeout(c Completer, d time.Duration) Completer {
	if d <= 0 {
		return c
	}
	return &timeoutCompleter{next: c, timeout: d}
}

func (t *timeoutCompleter) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.next.Complete(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("llm: timed out after %s: %w", t.timeout, err)
	}
	return out, err
}

// New builds the completer selected by cfg.Provider, wrapped with the
// configured timeout. A missing API key yields Unconfigured.
func New(cfg config.LLMConfig) (Completer, error) {
	key := cfg.APIKey()
	if key == "" {
		return Unconfigured{}, nil
	}
	var c Completer
	switch cfg.Provider {
	case "openai":
		c = NewOpenAI(OpenAIOpts{
			APIKey:      key,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	case "anthropic":
		c = NewAnthropic(AnthropicOpts{
			APIKey:      key,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	return WithTimeout(c, cfg.Timeout), nil
}
