package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// Client is a TextGenerator implementation backed by Amazon Bedrock
type Client struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float32
	maxPromptSize int
	logger        *zap.Logger
}

// NewClient creates a new Bedrock gateway client
func NewClient(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	maxPromptSize int,
	logger *zap.Logger,
) *Client {
	return &Client{
		client:        client,
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxPromptSize: maxPromptSize,
		logger:        logger,
	}
}

func (c *Client) isAnthropicModel(modelID string) bool {
	return strings.HasPrefix(modelID, "anthropic.")
}

func (c *Client) isAmazonTitanModel(modelID string) bool {
	return strings.HasPrefix(modelID, "amazon.titan")
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

// Generate invokes the configured Bedrock model. Messages collapse into a
// single prompt string since the completion-style model APIs used here are
// single turn.
func (c *Client) Generate(ctx context.Context, messages []core.Message, opts core.GenerateOptions) (string, error) {
	modelID := opts.Model
	if modelID == "" {
		modelID = c.modelID
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}

	var parts []string
	for _, m := range messages {
		parts = append(parts, c.truncate(m.Content))
	}
	prompt := strings.Join(parts, "\n\n")

	var payload []byte
	var err error

	if c.isAnthropicModel(modelID) {
		prompt = fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt)
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": maxTokens,
			"temperature":          temperature,
		})
	} else if c.isAmazonTitanModel(modelID) {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": maxTokens,
				"temperature":   temperature,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  maxTokens,
			"temperature": temperature,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", classifyError(err)
	}

	return c.extractText(modelID, resp.Body)
}

func (c *Client) extractText(modelID string, body []byte) (string, error) {
	if c.isAnthropicModel(modelID) {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(body, &claudeResp); err != nil {
			return "", fmt.Errorf("unmarshal Claude response: %v: %w", err, core.ErrMalformed)
		}
		return claudeResp.Completion, nil
	}

	if c.isAmazonTitanModel(modelID) {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(body, &titanResp); err != nil {
			return "", fmt.Errorf("unmarshal Titan response: %v: %w", err, core.ErrMalformed)
		}
		if len(titanResp.Results) == 0 {
			return "", fmt.Errorf("empty Titan response: %w", core.ErrMalformed)
		}
		return titanResp.Results[0].OutputText, nil
	}

	var genericResp struct {
		Output   string `json:"output"`
		Text     string `json:"text"`
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &genericResp); err != nil {
		return "", fmt.Errorf("unmarshal generic response: %v: %w", err, core.ErrMalformed)
	}

	switch {
	case genericResp.Output != "":
		return genericResp.Output, nil
	case genericResp.Text != "":
		return genericResp.Text, nil
	case genericResp.Response != "":
		return genericResp.Response, nil
	default:
		return string(body), nil
	}
}

// classifyError maps provider failures onto the core error taxonomy.
func classifyError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "Throttling") || strings.Contains(msg, "TooManyRequests") {
		return fmt.Errorf("bedrock: %v: %w", err, core.ErrRateLimited)
	}
	if strings.Contains(msg, "ValidationException") {
		return fmt.Errorf("bedrock: %v: %w", err, core.ErrMalformed)
	}
	return fmt.Errorf("bedrock: %v: %w", err, core.ErrNetwork)
}
