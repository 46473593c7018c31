package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/jsonx"
)

const metadataSystemPrompt = `You are an email metadata expert. Extract and validate key information from the email.

Rules:
1. Extract subject, sender, and content
2. Validate email format and structure
3. Identify any missing or malformed data
4. Return a structured metadata object with the following format:
{
    "subject": {
        "text": "original subject",
        "is_valid": true/false,
        "issues": ["list of issues if any"]
    },
    "sender": {
        "email": "sender@domain.com",
        "name": "sender name",
        "domain": "domain.com",
        "is_valid": true/false,
        "issues": ["list of issues if any"]
    },
    "content": {
        "text": "email content",
        "length": number of characters,
        "has_links": true/false,
        "has_attachments": true/false
    }
}

IMPORTANT: You must return ONLY a valid JSON object. Do not include any text before or after the JSON object. Do not use markdown formatting.`

var metadataSchema = jsonx.Schema{
	"subject": {"text", "is_valid", "issues"},
	"sender":  {"email", "name", "domain", "is_valid", "issues"},
	"content": {"text", "length", "has_links", "has_attachments"},
}

// MetadataAgent extracts a validated metadata record from raw email fields
type MetadataAgent struct {
	gen    core.TextGenerator
	model  string
	logger *zap.Logger
}

// NewMetadataAgent creates a new metadata extraction agent
func NewMetadataAgent(gen core.TextGenerator, model string, logger *zap.Logger) *MetadataAgent {
	return &MetadataAgent{gen: gen, model: model, logger: logger}
}

// Extract asks the gateway for structured metadata and falls back to a
// locally computed record when the gateway fails or returns unusable text.
// The local fallback is purely computational, so Extract effectively always
// succeeds.
func (a *MetadataAgent) Extract(ctx context.Context, email core.EmailInput) (*core.Metadata, error) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: metadataSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf(
			"Extract metadata from this email:\n\nSubject: %s\nSender: %s\nContent: %s",
			email.Subject, email.Sender, email.Content)},
	}

	opts := core.GenerateOptions{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   500,
		JSONMode:    true,
	}

	raw, err := generate(ctx, a.gen, messages, opts, a.logger)
	if err != nil {
		a.logger.Warn("Metadata extraction call failed, using local fallback", zap.Error(err))
		return fallbackMetadata(email), nil
	}

	var metadata core.Metadata
	if err := jsonx.Decode(raw, &metadata, metadataSchema); err != nil {
		a.logger.Warn("Metadata response unusable, using local fallback", zap.Error(err))
		return fallbackMetadata(email), nil
	}

	return &metadata, nil
}

// fallbackMetadata derives metadata directly from the input without any
// remote call.
func fallbackMetadata(email core.EmailInput) *core.Metadata {
	domain := ""
	if at := strings.LastIndex(email.Sender, "@"); at >= 0 {
		domain = email.Sender[at+1:]
	}

	lower := strings.ToLower(email.Content)
	hasLinks := strings.Contains(lower, "http") || strings.Contains(lower, "www.")

	return &core.Metadata{
		Subject: core.SubjectMetadata{
			Text:    email.Subject,
			IsValid: true,
			Issues:  []string{},
		},
		Sender: core.SenderMetadata{
			Email:   email.Sender,
			Name:    email.Sender,
			Domain:  domain,
			IsValid: true,
			Issues:  []string{},
		},
		Content: core.ContentMetadata{
			Text:           email.Content,
			Length:         len(email.Content),
			HasLinks:       hasLinks,
			HasAttachments: false,
		},
	}
}
