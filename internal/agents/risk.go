package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
	"github.com/mikey/llm-phish-triage/internal/jsonx"
)

const riskSystemPrompt = `You are a cybersecurity expert calculating a final risk score.

Rules:
1. Consider initial analysis
2. Evaluate user responses
3. Consider response analysis if available
4. Calculate risk score (0-1)
5. Provide detailed analysis
6. Give clear recommendations
7. Return a structured response with the following format:
{
    "score": 0.0 to 1.0,
    "analysis": {
        "subject_risk": "low/medium/high",
        "sender_risk": "low/medium/high",
        "content_risk": "low/medium/high",
        "overall_risk": "low/medium/high",
        "key_findings": ["list of findings"],
        "user_response_analysis": "analysis of user responses",
        "response_risk_factors": ["list of risk factors from responses"]
    },
    "recommendation": {
        "action": "recommended action",
        "explanation": "detailed explanation",
        "additional_steps": ["list of steps"]
    }
}`

var riskSchema = jsonx.Schema{
	"score": nil,
	"analysis": {
		"subject_risk", "sender_risk", "content_risk", "overall_risk",
		"key_findings", "user_response_analysis", "response_risk_factors",
	},
	"recommendation": {"action", "explanation", "additional_steps"},
}

// scoreLinePattern matches a "risk score: X" line in free-text output.
var scoreLinePattern = regexp.MustCompile(`(?i)risk\s+score[:\s]+(-?\d+(?:\.\d+)?)`)

// riskPhrases is scanned in order; the first phrase found in the lowercased
// text decides the score. Priority order, not document order, decides ties.
var riskPhrases = []struct {
	score   float64
	phrases []string
}{
	{0.9, []string{"high risk", "severe", "critical"}},
	{0.8, []string{"very suspicious", "likely phishing"}},
	{0.7, []string{"suspicious"}},
	{0.6, []string{"concerning"}},
	{0.5, []string{"moderate risk"}},
	{0.4, []string{"potential risk"}},
	{0.2, []string{"low risk"}},
	{0.1, []string{"safe", "legitimate"}},
}

// RiskAgent computes the final verdict from the analysis and user responses
type RiskAgent struct {
	gen    core.TextGenerator
	model  string
	logger *zap.Logger
}

// NewRiskAgent creates a new risk scoring agent
func NewRiskAgent(gen core.TextGenerator, model string, logger *zap.Logger) *RiskAgent {
	return &RiskAgent{gen: gen, model: model, logger: logger}
}

// Score produces the final verdict. A numeric score in [0,1] is always
// returned: well-formed JSON is preferred, then a "risk score: X" line, then
// the ordered phrase table, then the 0.5 medium default.
func (a *RiskAgent) Score(ctx context.Context, analysis *core.Analysis, responses []string, judgment *core.ResponseJudgment) *core.TriageResult {
	analysisJSON, _ := json.MarshalIndent(analysis, "", "  ")
	responsesJSON, _ := json.MarshalIndent(responses, "", "  ")
	judgmentText := "Not available"
	if judgment != nil {
		if b, err := json.MarshalIndent(judgment, "", "  "); err == nil {
			judgmentText = string(b)
		}
	}

	messages := []core.Message{
		{Role: core.RoleSystem, Content: riskSystemPrompt},
		{Role: core.RoleUser, Content: fmt.Sprintf(
			"Calculate risk score based on:\n\nInitial Analysis: %s\nUser Responses: %s\nResponse Analysis: %s",
			analysisJSON, responsesJSON, judgmentText)},
	}

	opts := core.GenerateOptions{
		Model:       a.model,
		Temperature: 0.1,
		MaxTokens:   1000,
		JSONMode:    true,
	}

	raw, err := generate(ctx, a.gen, messages, opts, a.logger)
	if err != nil {
		a.logger.Warn("Risk scoring call failed, using heuristic verdict", zap.Error(err))
		return a.heuristicResult("", analysis, judgment)
	}

	var result core.TriageResult
	if err := jsonx.Decode(raw, &result, riskSchema); err != nil || result.Score < 0 || result.Score > 1 {
		a.logger.Warn("Risk scoring response unusable, extracting score heuristically",
			zap.Error(err), zap.Float64("score", result.Score))
		return a.heuristicResult(raw, analysis, judgment)
	}

	result.IsFinal = true
	return &result
}

// heuristicResult builds a verdict from free-text output, falling back to
// the stored analysis for the category breakdown.
func (a *RiskAgent) heuristicResult(raw string, analysis *core.Analysis, judgment *core.ResponseJudgment) *core.TriageResult {
	score := ExtractScore(raw)

	factors := []string{}
	responseAnalysis := "User responses could not be fully evaluated"
	if judgment != nil {
		factors = append(factors, judgment.RiskIndicators.Factors...)
		if judgment.ResponseAnalysis.Explanation != "" {
			responseAnalysis = judgment.ResponseAnalysis.Explanation
		}
	}

	return &core.TriageResult{
		Score: score,
		Analysis: core.RiskBreakdown{
			SubjectRisk:          analysis.Subject.RiskLevel,
			SenderRisk:           analysis.Sender.DomainRisk,
			ContentRisk:          analysis.Content.RiskLevel,
			OverallRisk:          riskLevelForScore(score),
			KeyFindings:          analysis.Overall.KeyFindings,
			UserResponseAnalysis: responseAnalysis,
			ResponseRiskFactors:  factors,
		},
		Recommendation: recommendationForScore(score),
		IsFinal:        true,
	}
}

// ExtractScore pulls a numeric score out of free-text scorer output: first a
// "risk score: X" line clamped to [0,1], then the ordered risk-phrase table,
// then the 0.5 medium default.
func ExtractScore(text string) float64 {
	if m := scoreLinePattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return clamp(v)
		}
	}

	lower := strings.ToLower(text)
	for _, entry := range riskPhrases {
		for _, phrase := range entry.phrases {
			if strings.Contains(lower, phrase) {
				return entry.score
			}
		}
	}
	return 0.5
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func riskLevelForScore(score float64) string {
	switch {
	case score >= 0.7:
		return "high"
	case score >= 0.4:
		return "medium"
	default:
		return "low"
	}
}

func recommendationForScore(score float64) core.Recommendation {
	switch {
	case score >= 0.7:
		return core.Recommendation{
			Action:      "Do not interact with this email",
			Explanation: "The accumulated signals indicate a high likelihood of phishing",
			AdditionalSteps: []string{
				"Report the email to your security team",
				"Delete the email without clicking any links",
				"Verify the sender through a separate channel if the message claims to be from a known contact",
			},
		}
	case score >= 0.4:
		return core.Recommendation{
			Action:      "Treat this email with caution",
			Explanation: "Some signals are concerning but not conclusive",
			AdditionalSteps: []string{
				"Verify the sender before responding",
				"Do not open attachments or follow links until verified",
			},
		}
	default:
		return core.Recommendation{
			Action:      "No immediate action required",
			Explanation: "The email shows no strong phishing indicators",
			AdditionalSteps: []string{
				"Remain alert for unusual follow-up messages",
			},
		}
	}
}
