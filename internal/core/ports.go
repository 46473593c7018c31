package core

import (
	"context"
)

// Role tags a message in a gateway prompt
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry in a gateway prompt
type Message struct {
	Role    Role
	Content string
}

// GenerateOptions carries the sampling configuration for a gateway call.
// Zero values fall back to the adapter's configured defaults.
type GenerateOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// TextGenerator is the external text-generation gateway. Implementations
// classify failures into ErrRateLimited, ErrMalformed or ErrNetwork so the
// agents can decide whether to retry or degrade.
type TextGenerator interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
}

// ConversationStore persists conversation state keyed by conversation id.
// Get returns ErrConversationNotFound for unknown ids. Implementations must
// support independent read-modify-write per key; serialization of concurrent
// writes to the same key is the orchestrator's job.
type ConversationStore interface {
	Get(ctx context.Context, id string) (*Conversation, error)
	Put(ctx context.Context, conv *Conversation) error
	Delete(ctx context.Context, id string) error
}

// MetadataExtractor turns raw email fields into a validated Metadata record
type MetadataExtractor interface {
	Extract(ctx context.Context, email EmailInput) (*Metadata, error)
}

// ContentAnalyzer produces the four-section risk analysis for an email
type ContentAnalyzer interface {
	Analyze(ctx context.Context, metadata *Metadata, preScan map[string]interface{}) (*Analysis, error)
}

// QuestionGenerator produces the categorized question set for an analysis.
// Every category in Categories is guaranteed at least one question.
type QuestionGenerator interface {
	Generate(ctx context.Context, analysis *Analysis) (QuestionSet, error)
}

// ResponseProcessor judges a user answer in context. It never fails: on any
// upstream or parse error it returns a conservative fallback judgment.
type ResponseProcessor interface {
	Process(ctx context.Context, answer string, current Question, category string, analysis *Analysis, history []TranscriptEntry) *ResponseJudgment
}

// RiskScorer computes the final verdict. It never fails: malformed gateway
// output degrades to heuristic score extraction, never to an error.
type RiskScorer interface {
	Score(ctx context.Context, analysis *Analysis, responses []string, judgment *ResponseJudgment) *TriageResult
}
