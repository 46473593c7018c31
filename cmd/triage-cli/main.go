package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/adapters/store"
	"github.com/mikey/llm-phish-triage/internal/agents"
	"github.com/mikey/llm-phish-triage/internal/config"
	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/factory"
	"github.com/mikey/llm-phish-triage/internal/logging"
)

var (
	// LLM provider flags
	provider    = flag.String("provider", "openai", "LLM provider (openai, gemini, bedrock)")
	maxTokens   = flag.Int("max-tokens", 1000, "Maximum tokens for LLM response")
	temperature = flag.Float64("temperature", 0.1, "Temperature for LLM generation")

	// OpenAI flags
	openaiAPIKey    = flag.String("openai-api-key", "", "API key for OpenAI")
	openaiBaseURL   = flag.String("openai-base-url", "", "Base URL for OpenAI-compatible endpoints")
	openaiModelName = flag.String("openai-model", "gpt-4", "OpenAI model name")

	// Gemini flags
	geminiAPIKey    = flag.String("gemini-api-key", "", "API key for Google Gemini")
	geminiModelName = flag.String("gemini-model", "gemini-pro", "Gemini model name")

	// Bedrock flags
	bedrockRegion  = flag.String("bedrock-region", "us-east-1", "AWS region for Bedrock")
	bedrockModelID = flag.String("bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Input flags
	inputFile = flag.String("file", "", "Input email file (use stdin if not specified)")
	verbose   = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog   = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg := createConfigFromFlags()

	email, err := readEmail(*inputFile)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	gen, err := factory.NewLLMFactory(cfg, logger).CreateTextGenerator()
	if err != nil {
		logger.Fatal("Failed to create gateway client", zap.Error(err))
	}

	convStore := store.NewMemoryStore(time.Hour, time.Hour, logger)
	defer convStore.Stop()

	model := cfg.GetOpenAI().ModelName
	switch *provider {
	case "gemini":
		model = cfg.GetGemini().ModelName
	case "bedrock":
		model = cfg.GetBedrock().ModelID
	}

	orchestrator := core.NewOrchestrator(
		convStore,
		agents.NewMetadataAgent(gen, model, logger),
		agents.NewAnalysisAgent(gen, model, logger),
		agents.NewQuestionAgent(gen, model, logger),
		agents.NewResponseAgent(gen, model, logger),
		agents.NewRiskAgent(gen, model, logger),
		core.DefaultMaxQuestions,
		logger,
	)

	ctx := context.Background()
	reply, err := orchestrator.Start(ctx, email, "", nil)
	if err != nil {
		logger.Fatal("Failed to start triage", zap.Error(err))
	}

	stdin := bufio.NewReader(os.Stdin)
	for !reply.IsFinal {
		fmt.Printf("\n%s\n\n> ", reply.Questions)

		answer, err := stdin.ReadString('\n')
		if err != nil {
			logger.Fatal("Failed to read answer", zap.Error(err))
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			continue
		}

		reply, err = orchestrator.Continue(ctx, reply.ConversationID, answer, nil)
		if err != nil {
			logger.Fatal("Failed to continue triage", zap.Error(err))
		}
	}

	printVerdict(reply.Result)

	if closer, ok := gen.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close gateway client", zap.Error(err))
		}
	}
}

// createConfigFromFlags builds a configuration from the command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("llm.provider", *provider)

	v.Set("openai.api_key", *openaiAPIKey)
	v.Set("openai.base_url", *openaiBaseURL)
	v.Set("openai.model_name", *openaiModelName)
	v.Set("openai.max_tokens", *maxTokens)
	v.Set("openai.temperature", *temperature)

	v.Set("gemini.api_key", *geminiAPIKey)
	v.Set("gemini.model_name", *geminiModelName)
	v.Set("gemini.max_tokens", *maxTokens)
	v.Set("gemini.temperature", *temperature)

	v.Set("bedrock.region", *bedrockRegion)
	v.Set("bedrock.model_id", *bedrockModelID)
	v.Set("bedrock.max_tokens", *maxTokens)
	v.Set("bedrock.temperature", *temperature)

	return config.NewFromViper(v)
}

// readEmail parses an RFC 5322 message from the file or stdin into the raw
// triage input.
func readEmail(path string) (core.EmailInput, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return core.EmailInput{}, fmt.Errorf("open email file: %w", err)
		}
		defer f.Close()
		r = f
	}

	msg, err := mail.ReadMessage(r)
	if err != nil {
		return core.EmailInput{}, fmt.Errorf("parse email: %w", err)
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return core.EmailInput{}, fmt.Errorf("read email body: %w", err)
	}

	return core.EmailInput{
		Subject: msg.Header.Get("Subject"),
		Sender:  msg.Header.Get("From"),
		Content: string(body),
	}, nil
}

func printVerdict(result *core.TriageResult) {
	fmt.Printf("\n=== Triage verdict ===\n")
	fmt.Printf("Risk score: %.2f (%s)\n", result.Score, result.Analysis.OverallRisk)
	fmt.Printf("Action: %s\n", result.Recommendation.Action)
	fmt.Printf("Explanation: %s\n", result.Recommendation.Explanation)
	if len(result.Recommendation.AdditionalSteps) > 0 {
		fmt.Println("Next steps:")
		for _, step := range result.Recommendation.AdditionalSteps {
			fmt.Printf("  - %s\n", step)
		}
	}

	if detail, err := json.MarshalIndent(result.Analysis, "", "  "); err == nil {
		fmt.Printf("\nDetails:\n%s\n", detail)
	}
}
