package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/adapters/httpapi"
	"github.com/mikey/llm-phish-triage/internal/agents"
	"github.com/mikey/llm-phish-triage/internal/config"
	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/factory"
	"github.com/mikey/llm-phish-triage/internal/logging"
)

// providerModel returns the model identifier of the configured provider so
// agents can carry it in their gateway options.
func providerModel(cfg *config.Config) string {
	switch cfg.GetLLM().Provider {
	case "gemini":
		return cfg.GetGemini().ModelName
	case "bedrock":
		return cfg.GetBedrock().ModelID
	default:
		return cfg.GetOpenAI().ModelName
	}
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}

	// Register text-generation gateway
	if err := container.Provide(func(f *factory.LLMFactory) (core.TextGenerator, error) {
		return f.CreateTextGenerator()
	}); err != nil {
		return nil, err
	}

	// Register conversation store
	if err := container.Provide(func(f *factory.StoreFactory) (core.ConversationStore, error) {
		return f.CreateConversationStore()
	}); err != nil {
		return nil, err
	}

	// Register orchestrator with its agents
	if err := container.Provide(func(
		cfg *config.Config,
		gen core.TextGenerator,
		store core.ConversationStore,
		logger *zap.Logger,
	) *core.Orchestrator {
		model := providerModel(cfg)
		return core.NewOrchestrator(
			store,
			agents.NewMetadataAgent(gen, model, logger),
			agents.NewAnalysisAgent(gen, model, logger),
			agents.NewQuestionAgent(gen, model, logger),
			agents.NewResponseAgent(gen, model, logger),
			agents.NewRiskAgent(gen, model, logger),
			cfg.GetTriage().MaxQuestions,
			logger,
		)
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(httpapi.NewServer); err != nil {
		return nil, err
	}

	return container, nil
}
