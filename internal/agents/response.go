package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/jsonx"
)

const responseSystemPrompt = `You are an email security expert analyzing user responses to verify email authenticity.

Your job is to:
1. Analyze the user's response in context
2. Determine if the response indicates potential risks
3. Decide if more questions are needed
4. Prepare data for final risk assessment

Rules for response analysis:
1. Consider the current question and its context
2. Look for red flags in the response
3. Identify if the response is clear and complete
4. Determine if follow-up questions are needed

Return a structured analysis with this format:
{
    "response_analysis": {
        "is_complete": true/false,
        "indicates_risk": true/false,
        "confidence": 0.0 to 1.0,
        "key_findings": ["list of findings"],
        "explanation": "detailed explanation"
    },
    "follow_up": {
        "needed": true/false,
        "reason": "explanation if follow-up needed",
        "suggested_questions": ["list of follow-up questions if needed"]
    },
    "risk_indicators": {
        "level": "low/medium/high",
        "factors": ["list of risk factors"],
        "explanation": "detailed explanation"
    }
}`

var responseSchema = jsonx.Schema{
	"response_analysis": {"is_complete", "indicates_risk", "confidence", "key_findings", "explanation"},
	"follow_up":         {"needed", "reason", "suggested_questions"},
	"risk_indicators":   {"level", "factors", "explanation"},
}

// ResponseAgent judges user answers in the context of the conversation
type ResponseAgent struct {
	gen    core.TextGenerator
	model  string
	logger *zap.Logger
}

// NewResponseAgent creates a new response processing agent
func NewResponseAgent(gen core.TextGenerator, model string, logger *zap.Logger) *ResponseAgent {
	return &ResponseAgent{gen: gen, model: model, logger: logger}
}

// Process judges one user answer. It never fails: any gateway or parse error
// yields a fixed conservative judgment that keeps the conversation alive.
func (a *ResponseAgent) Process(ctx context.Context, answer string, current core.Question, category string, analysis *core.Analysis, history []core.TranscriptEntry) *core.ResponseJudgment {
	historyJSON, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		historyJSON = []byte("[]")
	}

	messages := []core.Message{
		{Role: core.RoleSystem, Content: responseSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf(
			`Analyze this user response in context:

Current Question:
Category: %s
Context: %s
Question: %s

User Response: %s

Email Analysis:
Subject: %s
Sender: %s
Content: %s

Conversation History:
%s

Analyze the response and determine if it indicates any security risks or needs follow-up questions.`,
			category, current.Context, current.Question, answer,
			analysis.Subject.Explanation, analysis.Sender.Explanation, analysis.Content.Explanation,
			historyJSON)},
	}

	opts := core.GenerateOptions{
		Model:       a.model,
		Temperature: 0.3,
		MaxTokens:   1000,
		JSONMode:    true,
	}

	raw, err := generate(ctx, a.gen, messages, opts, a.logger)
	if err != nil {
		a.logger.Warn("Response processing call failed, using fallback judgment", zap.Error(err))
		return fallbackJudgment()
	}

	var judgment core.ResponseJudgment
	if err := jsonx.Decode(raw, &judgment, responseSchema); err != nil {
		a.logger.Warn("Response judgment unusable, using fallback", zap.Error(err))
		return fallbackJudgment()
	}

	return &judgment
}

// fallbackJudgment is the last line of defense keeping the conversation
// alive when an answer cannot be judged.
func fallbackJudgment() *core.ResponseJudgment {
	return &core.ResponseJudgment{
		ResponseAnalysis: core.ResponseAnalysis{
			IsComplete:    false,
			IndicatesRisk: false,
			Confidence:    0.0,
			KeyFindings:   []string{"Unable to process response"},
			Explanation:   "Error occurred while processing the response",
		},
		FollowUp: core.FollowUp{
			Needed:             true,
			Reason:             "Error in processing, need to verify response",
			SuggestedQuestions: []string{"Could you please clarify your response?"},
		},
		RiskIndicators: core.RiskIndicators{
			Level:       "low",
			Factors:     []string{"Processing error"},
			Explanation: "Unable to determine risk level due to processing error",
		},
	}
}
