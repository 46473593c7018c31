package factory

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/adapters/bedrock"
	"github.com/mikey/llm-phish-triage/internal/adapters/gemini"
	"github.com/mikey/llm-phish-triage/internal/adapters/openai"
	"github.com/mikey/llm-phish-triage/internal/config"
	"github.com/mikey/llm-phish-triage/internal/core"
)

// LLMFactory creates text-generation gateway clients
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{cfg: cfg, logger: logger}
}

// CreateTextGenerator creates a gateway client based on the configuration
func (f *LLMFactory) CreateTextGenerator() (core.TextGenerator, error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateClient(), nil
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateClient()
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateClient()
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}
