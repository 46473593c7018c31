package gemini

import (
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/config"
)

// Factory creates Gemini gateway clients
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Gemini factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{cfg: cfg, logger: logger}
}

// CreateClient creates a new Gemini client from the configuration
func (f *Factory) CreateClient() (*Client, error) {
	c := f.cfg.GetGemini()
	return NewClient(
		c.APIKey,
		c.ModelName,
		c.MaxTokens,
		c.Temperature,
		c.MaxPromptSize,
		f.logger,
	)
}
