package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the configuration for the LLM provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI-compatible endpoints
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	ModelName     string
	MaxTokens     int
	Temperature   float32
	MaxPromptSize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey        string
	ModelName     string
	MaxTokens     int
	Temperature   float32
	MaxPromptSize int
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region        string
	ModelID       string
	MaxTokens     int
	Temperature   float32
	MaxPromptSize int
}

// TriageConfig represents the conversation settings
type TriageConfig struct {
	MaxQuestions int
}

// StoreConfig represents the conversation store configuration
type StoreConfig struct {
	Type          string
	TTL           time.Duration
	CleanupFreq   time.Duration
	SQLitePath    string
	MySQLDSN      string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:        c.GetString("openai.api_key"),
		BaseURL:       c.GetString("openai.base_url"),
		ModelName:     c.GetString("openai.model_name"),
		MaxTokens:     c.GetInt("openai.max_tokens"),
		Temperature:   float32(c.GetFloat64("openai.temperature")),
		MaxPromptSize: c.GetInt("openai.max_prompt_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:        c.GetString("gemini.api_key"),
		ModelName:     c.GetString("gemini.model_name"),
		MaxTokens:     c.GetInt("gemini.max_tokens"),
		Temperature:   float32(c.GetFloat64("gemini.temperature")),
		MaxPromptSize: c.GetInt("gemini.max_prompt_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:        c.GetString("bedrock.region"),
		ModelID:       c.GetString("bedrock.model_id"),
		MaxTokens:     c.GetInt("bedrock.max_tokens"),
		Temperature:   float32(c.GetFloat64("bedrock.temperature")),
		MaxPromptSize: c.GetInt("bedrock.max_prompt_size"),
	}
}

// GetTriage returns the triage configuration
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		MaxQuestions: c.GetInt("triage.max_questions"),
	}
}

// GetStore returns the conversation store configuration
func (c *Config) GetStore() (StoreConfig, error) {
	ttl, err := c.GetDuration("store.ttl")
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid store ttl: %w", err)
	}
	cleanupFreq, err := c.GetDuration("store.cleanup_frequency")
	if err != nil {
		return StoreConfig{}, fmt.Errorf("invalid store cleanup frequency: %w", err)
	}

	return StoreConfig{
		Type:          c.GetString("store.type"),
		TTL:           ttl,
		CleanupFreq:   cleanupFreq,
		SQLitePath:    c.GetString("store.sqlite_path"),
		MySQLDSN:      c.GetString("store.mysql_dsn"),
		RedisAddr:     c.GetString("store.redis_addr"),
		RedisPassword: c.GetString("store.redis_password"),
		RedisDB:       c.GetInt("store.redis_db"),
	}, nil
}
