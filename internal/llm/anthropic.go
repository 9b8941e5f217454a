package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/zulandar/sensei/internal/logger"
)

const defaultAnthropicMaxTokens = 1024

// jsonInstruction is appended to the system prompt for JSON requests; the
// messages API has no response-format switch.
const jsonInstruction = "Respond with a single JSON object and nothing else."

// AnthropicOpts configures an AnthropicClient.
type AnthropicOpts struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	MaxRetries  int
}

// AnthropicClient completes requests with the messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropic creates an AnthropicClient.
func NewAnthropic(opts AnthropicOpts) *AnthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		client:      anthropic.NewClient(reqOpts...),
		model:       opts.Model,
		maxTokens:   maxTokens,
		temperature: opts.Temperature,
	}
}

// Complete implements Completer.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, t := range req.History {
		switch t.Role {
		case RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		}
	}
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)))

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	system := req.System
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	temp := c.temperature
	if req.Temperature != nil {
		temp = *req.Temperature
	}
	params.Temperature = anthropic.Float(temp)

	logger.Debug("anthropic request", "model", c.model, "messages", len(messages), "json", req.JSON)
	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llm: anthropic: %w", err)
	}
	var b strings.Builder
	for _, block := range message.Content {
		b.WriteString(block.Text)
	}
	if b.Len() == 0 {
		return "", ErrEmpty
	}
	return b.String(), nil
}
