package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/jsonx"
)

const analysisSystemPrompt = `You are an email security expert. Analyze the email content for suspicious patterns.

Rules:
1. Identify unusual patterns in subject, sender, and content
2. Look for phishing indicators
3. Analyze relationships between different parts
4. Return a structured analysis object with the following format:
{
    "subject_analysis": {
        "suspicious_patterns": ["list of patterns"],
        "risk_level": "low/medium/high",
        "explanation": "detailed explanation"
    },
    "sender_analysis": {
        "domain_risk": "low/medium/high",
        "suspicious_elements": ["list of elements"],
        "explanation": "detailed explanation"
    },
    "content_analysis": {
        "suspicious_elements": ["list of elements"],
        "risk_level": "low/medium/high",
        "explanation": "detailed explanation"
    },
    "overall_analysis": {
        "risk_level": "low/medium/high",
        "key_findings": ["list of findings"],
        "recommendations": ["list of recommendations"]
    }
}

IMPORTANT: You must return ONLY a valid JSON object. Do not include any text before or after the JSON object. Do not use markdown formatting.`

var analysisSchema = jsonx.Schema{
	"subject_analysis": {"suspicious_patterns", "risk_level", "explanation"},
	"sender_analysis":  {"domain_risk", "suspicious_elements", "explanation"},
	"content_analysis": {"suspicious_elements", "risk_level", "explanation"},
	"overall_analysis": {"risk_level", "key_findings", "recommendations"},
}

// AnalysisAgent produces the four-section risk analysis for an email
type AnalysisAgent struct {
	gen    core.TextGenerator
	model  string
	logger *zap.Logger
}

// NewAnalysisAgent creates a new content analysis agent
func NewAnalysisAgent(gen core.TextGenerator, model string, logger *zap.Logger) *AnalysisAgent {
	return &AnalysisAgent{gen: gen, model: model, logger: logger}
}

// Analyze asks the gateway for the structured analysis. Any failure yields a
// conservative low-risk default rather than an error: the pipeline must
// always have some analysis to work with.
func (a *AnalysisAgent) Analyze(ctx context.Context, metadata *core.Metadata, preScan map[string]interface{}) (*core.Analysis, error) {
	messages := []core.Message{
		{Role: core.RoleSystem, Content: analysisSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf(
			`Analyze this email:

Subject: %s
Sender: %s (%s)
Content: %s

Focus on:
1. Unusual patterns in the subject line
2. Suspicious sender information
3. Specific content elements that seem out of place
4. Relationships between different parts of the email`,
			metadata.Subject.Text, metadata.Sender.Email, metadata.Sender.Name, metadata.Content.Text)},
	}

	opts := core.GenerateOptions{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   1000,
		JSONMode:    true,
	}

	analysis := conservativeAnalysis()

	raw, err := generate(ctx, a.gen, messages, opts, a.logger)
	if err != nil {
		a.logger.Warn("Content analysis call failed, using conservative default", zap.Error(err))
	} else if decodeErr := jsonx.Decode(raw, analysis, analysisSchema); decodeErr != nil {
		a.logger.Warn("Analysis response unusable, using conservative default", zap.Error(decodeErr))
		analysis = conservativeAnalysis()
	}

	if preScan != nil {
		analysis.InitialScan = preScan
	}
	return analysis, nil
}

// conservativeAnalysis is the substitute when the gateway output cannot be
// used: low risk everywhere with placeholder explanations.
func conservativeAnalysis() *core.Analysis {
	return &core.Analysis{
		Subject: core.SubjectAnalysis{
			SuspiciousPatterns: []string{},
			RiskLevel:          "low",
			Explanation:        "Unable to analyze subject",
		},
		Sender: core.SenderAnalysis{
			DomainRisk:         "low",
			SuspiciousElements: []string{},
			Explanation:        "Unable to analyze sender",
		},
		Content: core.ContentAnalysis{
			SuspiciousElements: []string{},
			RiskLevel:          "low",
			Explanation:        "Unable to analyze content",
		},
		Overall: core.OverallAnalysis{
			RiskLevel:       "low",
			KeyFindings:     []string{"Analysis in progress"},
			Recommendations: []string{"Please try again"},
		},
	}
}
