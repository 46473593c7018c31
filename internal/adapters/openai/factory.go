package openai

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/config"
)

// Factory creates OpenAI gateway clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new OpenAI factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateClient creates a new OpenAI client from the configuration
func (f *Factory) CreateClient() *Client {
	c := f.cfg.GetOpenAI()
	return NewClient(
		c.APIKey,
		c.BaseURL,
		c.ModelName,
		c.MaxTokens,
		c.Temperature,
		c.MaxPromptSize,
		f.logger,
	)
}
