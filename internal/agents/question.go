package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/jsonx"
)

const questionSystemPrompt = `You are an email analysis expert. Generate contextual questions about the email.

IMPORTANT: You must return ONLY a valid JSON object with no additional text or formatting.

Rules:
1. Generate questions specific to the analysis
2. Focus on understanding the email better
3. Ground each question in concrete findings, not generic templates
4. Format questions with context
5. Return a structured questions object with the following format:
{
    "subject": [
        {
            "context": "context about the subject",
            "question": "specific question about the subject"
        }
    ],
    "sender": [
        {
            "context": "context about the sender",
            "question": "specific question about the sender"
        }
    ],
    "content": [
        {
            "context": "context about the content",
            "question": "specific question about the content"
        }
    ]
}

DO NOT:
- Add any text before or after the JSON object
- Use markdown formatting
- Include any explanations or additional text
- Wrap the JSON in code blocks

The response must be a single, valid JSON object that can be parsed directly.`

var questionSchema = jsonx.Schema{
	core.CategorySubject: nil,
	core.CategorySender:  nil,
	core.CategoryContent: nil,
}

// QuestionAgent generates the categorized question set for an analysis
type QuestionAgent struct {
	gen    core.TextGenerator
	model  string
	logger *zap.Logger
}

// NewQuestionAgent creates a new question generation agent
func NewQuestionAgent(gen core.TextGenerator, model string, logger *zap.Logger) *QuestionAgent {
	return &QuestionAgent{gen: gen, model: model, logger: logger}
}

// Generate produces at least one question per category, grounded in the
// concrete findings of the analysis. Parse failures go through the repair
// chain; whatever survives is sanitized so that no category is ever left
// empty — missing or malformed categories get a synthesized question built
// from the analysis explanations.
func (a *QuestionAgent) Generate(ctx context.Context, analysis *core.Analysis) (core.QuestionSet, error) {
	analysisJSON, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal analysis: %w", err)
	}

	messages := []core.Message{
		{Role: core.RoleSystem, Content: questionSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf(
			"Generate questions based on this analysis:\n\n%s", analysisJSON)},
	}

	opts := core.GenerateOptions{
		Model:       a.model,
		Temperature: 0.7,
		MaxTokens:   1000,
		JSONMode:    true,
	}

	questions := core.QuestionSet{}

	raw, genErr := generate(ctx, a.gen, messages, opts, a.logger)
	if genErr != nil {
		a.logger.Warn("Question generation call failed, synthesizing questions", zap.Error(genErr))
	} else if decodeErr := jsonx.Decode(raw, &questions, questionSchema); decodeErr != nil {
		a.logger.Warn("Question response unusable, synthesizing questions", zap.Error(decodeErr))
		questions = core.QuestionSet{}
	}

	return sanitizeQuestionSet(questions, analysis), nil
}

// sanitizeQuestionSet enforces the invariant that every category has at
// least one well-formed question. Entries without a question text are
// dropped; a category left empty gets a single synthesized entry.
func sanitizeQuestionSet(questions core.QuestionSet, analysis *core.Analysis) core.QuestionSet {
	out := core.QuestionSet{}
	for _, category := range core.Categories {
		var kept []core.Question
		for _, q := range questions[category] {
			if q.Question == "" {
				continue
			}
			if q.Context == "" {
				q.Context = defaultContexts[category]
			}
			kept = append(kept, q)
		}
		if len(kept) == 0 {
			kept = []core.Question{synthesizeQuestion(category, analysis)}
		}
		out[category] = kept
	}
	return out
}

var defaultContexts = map[string]string{
	core.CategorySubject: "Let's examine the subject line",
	core.CategorySender:  "Let's look at the sender information",
	core.CategoryContent: "Let's analyze the email content",
}

// synthesizeQuestion builds a placeholder question from the analysis
// explanation for a category whose generated questions were missing or
// malformed.
func synthesizeQuestion(category string, analysis *core.Analysis) core.Question {
	switch category {
	case core.CategorySubject:
		return core.Question{
			Context:  "Looking at the subject: " + orDefault(analysis.Subject.Explanation, defaultContexts[category]),
			Question: "What aspects of the subject line seem unusual or concerning to you?",
		}
	case core.CategorySender:
		return core.Question{
			Context:  "Regarding the sender: " + orDefault(analysis.Sender.Explanation, defaultContexts[category]),
			Question: "What do you notice about the sender's email address and domain?",
		}
	default:
		return core.Question{
			Context:  "About the content: " + orDefault(analysis.Content.Explanation, defaultContexts[category]),
			Question: "What specific elements in the email content raise concerns for you?",
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
