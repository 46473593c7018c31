package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// Client is a TextGenerator implementation backed by an OpenAI-compatible
// chat-completions endpoint.
type Client struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	maxPromptSize int
	logger        *zap.Logger
}

// NewClient creates a new OpenAI gateway client. A non-empty baseURL points
// the client at an OpenAI-compatible endpoint such as OpenRouter.
func NewClient(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxPromptSize int,
	logger *zap.Logger,
) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &Client{
		client:        openai.NewClientWithConfig(cfg),
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxPromptSize: maxPromptSize,
		logger:        logger,
	}
}

// truncate caps a message body so oversized email content cannot blow the
// request past the model's context window.
func (c *Client) truncate(content string) string {
	if c.maxPromptSize <= 0 || len(content) <= c.maxPromptSize {
		return content
	}

	truncated := content[:c.maxPromptSize]
	c.logger.Debug("Prompt content truncated",
		zap.Int("original_size", len(content)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", c.maxPromptSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// Generate sends the role-tagged messages to the chat-completions endpoint
// and returns the completion text.
func (c *Client) Generate(ctx context.Context, messages []core.Message, opts core.GenerateOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.modelName
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    mapRole(m.Role),
			Content: c.truncate(m.Content),
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chatMessages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion: %w", core.ErrMalformed)
	}

	return resp.Choices[0].Message.Content, nil
}

func mapRole(role core.Role) string {
	switch role {
	case core.RoleSystem:
		return openai.ChatMessageRoleSystem
	case core.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

// classifyError maps provider failures onto the core error taxonomy.
func classifyError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 429:
			return fmt.Errorf("openai: %v: %w", apiErr.Message, core.ErrRateLimited)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("openai: %v: %w", apiErr.Message, core.ErrNetwork)
		default:
			return fmt.Errorf("openai: %v: %w", apiErr.Message, core.ErrMalformed)
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == 429 {
		return fmt.Errorf("openai: %v: %w", err, core.ErrRateLimited)
	}

	// Anything else is a transport-level failure.
	return fmt.Errorf("openai: %v: %w", err, core.ErrNetwork)
}
