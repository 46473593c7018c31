package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// Client is a TextGenerator implementation backed by Google Gemini
type Client struct {
	client        *genai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	maxPromptSize int
	logger        *zap.Logger
}

// NewClient creates a new Gemini gateway client
func NewClient(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxPromptSize int,
	logger *zap.Logger,
) (*Client, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxPromptSize: maxPromptSize,
		logger:        logger,
	}, nil
}

// Close closes the Gemini client
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

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

// Generate sends the role-tagged messages to Gemini. System messages become
// the model's system instruction; the remaining messages are concatenated
// into the user prompt since each triage call is a single turn.
func (c *Client) Generate(ctx context.Context, messages []core.Message, opts core.GenerateOptions) (string, error) {
	modelName := opts.Model
	if modelName == "" {
		modelName = c.modelName
	}

	model := c.client.GenerativeModel(modelName)

	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}
	model.SetTemperature(temperature)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))

	if opts.JSONMode {
		model.ResponseMIMEType = "application/json"
	}

	var system []genai.Part
	var prompt []string
	for _, m := range messages {
		content := c.truncate(m.Content)
		if m.Role == core.RoleSystem {
			system = append(system, genai.Text(content))
			continue
		}
		prompt = append(prompt, content)
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(prompt, "\n\n")))
	if err != nil {
		return "", classifyError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty completion: %w", core.ErrMalformed)
	}

	if text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		return string(text), nil
	}
	return fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0]), nil
}

// classifyError maps provider failures onto the core error taxonomy.
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("gemini: %v: %w", apiErr.Message, core.ErrRateLimited)
		case apiErr.Code >= 500:
			return fmt.Errorf("gemini: %v: %w", apiErr.Message, core.ErrNetwork)
		default:
			return fmt.Errorf("gemini: %v: %w", apiErr.Message, core.ErrMalformed)
		}
	}
	return fmt.Errorf("gemini: %v: %w", err, core.ErrNetwork)
}
