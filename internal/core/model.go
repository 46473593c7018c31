package core

import (
	"time"
)

// EmailInput is the raw email under triage. It is captured once when a
// conversation starts and never mutated afterwards.
type EmailInput struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// SubjectMetadata describes the validated subject line
type SubjectMetadata struct {
	Text    string   `json:"text"`
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// SenderMetadata describes the validated sender address
type SenderMetadata struct {
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	Domain  string   `json:"domain"`
	IsValid bool     `json:"is_valid"`
	Issues  []string `json:"issues"`
}

// ContentMetadata describes the email body
type ContentMetadata struct {
	Text           string `json:"text"`
	Length         int    `json:"length"`
	HasLinks       bool   `json:"has_links"`
	HasAttachments bool   `json:"has_attachments"`
}

// Metadata is the structured record derived from an EmailInput. It is
// produced once per conversation and read-only afterwards.
type Metadata struct {
	Subject SubjectMetadata `json:"subject"`
	Sender  SenderMetadata  `json:"sender"`
	Content ContentMetadata `json:"content"`
}

// SubjectAnalysis is the risk assessment of the subject line
type SubjectAnalysis struct {
	SuspiciousPatterns []string `json:"suspicious_patterns"`
	RiskLevel          string   `json:"risk_level"`
	Explanation        string   `json:"explanation"`
}

// SenderAnalysis is the risk assessment of the sender
type SenderAnalysis struct {
	DomainRisk         string   `json:"domain_risk"`
	SuspiciousElements []string `json:"suspicious_elements"`
	Explanation        string   `json:"explanation"`
}

// ContentAnalysis is the risk assessment of the email body
type ContentAnalysis struct {
	SuspiciousElements []string `json:"suspicious_elements"`
	RiskLevel          string   `json:"risk_level"`
	Explanation        string   `json:"explanation"`
}

// OverallAnalysis aggregates the per-section assessments
type OverallAnalysis struct {
	RiskLevel       string   `json:"risk_level"`
	KeyFindings     []string `json:"key_findings"`
	Recommendations []string `json:"recommendations"`
}

// Analysis is the four-section risk analysis of an email. Immutable after
// creation; later stages reference it rather than copy it.
type Analysis struct {
	Subject SubjectAnalysis `json:"subject_analysis"`
	Sender  SenderAnalysis  `json:"sender_analysis"`
	Content ContentAnalysis `json:"content_analysis"`
	Overall OverallAnalysis `json:"overall_analysis"`

	// InitialScan carries an external pre-scan result when one was supplied
	// alongside the email.
	InitialScan map[string]interface{} `json:"initial_scan,omitempty"`
}

// Question is a single context+question pair shown to the user
type Question struct {
	Context  string `json:"context"`
	Question string `json:"question"`
}

// QuestionSet maps a category to its ordered question queue. Queues only ever
// grow: the response processor may append follow-ups, nothing is removed.
type QuestionSet map[string][]Question

// Question categories, visited in this order, wrapping round-robin.
const (
	CategorySubject = "subject"
	CategorySender  = "sender"
	CategoryContent = "content"
)

// Categories is the fixed category rotation.
var Categories = []string{CategorySubject, CategorySender, CategoryContent}

// DefaultMaxQuestions is the answer budget before final scoring (two per category).
const DefaultMaxQuestions = 6

// TranscriptEntry is one question/answer exchange in the conversation log
type TranscriptEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

// ResponseAnalysis is the judgment of a single user answer
type ResponseAnalysis struct {
	IsComplete    bool     `json:"is_complete"`
	IndicatesRisk bool     `json:"indicates_risk"`
	Confidence    float64  `json:"confidence"`
	KeyFindings   []string `json:"key_findings"`
	Explanation   string   `json:"explanation"`
}

// FollowUp indicates whether the current category needs more questions
type FollowUp struct {
	Needed             bool     `json:"needed"`
	Reason             string   `json:"reason"`
	SuggestedQuestions []string `json:"suggested_questions"`
}

// RiskIndicators summarizes risk signals found in a user answer
type RiskIndicators struct {
	Level       string   `json:"level"`
	Factors     []string `json:"factors"`
	Explanation string   `json:"explanation"`
}

// ResponseJudgment is the full output of the response processor for one answer
type ResponseJudgment struct {
	ResponseAnalysis ResponseAnalysis `json:"response_analysis"`
	FollowUp         FollowUp         `json:"follow_up"`
	RiskIndicators   RiskIndicators   `json:"risk_indicators"`
}

// RiskBreakdown is the category-level risk summary in the final verdict
type RiskBreakdown struct {
	SubjectRisk          string   `json:"subject_risk"`
	SenderRisk           string   `json:"sender_risk"`
	ContentRisk          string   `json:"content_risk"`
	OverallRisk          string   `json:"overall_risk"`
	KeyFindings          []string `json:"key_findings"`
	UserResponseAnalysis string   `json:"user_response_analysis"`
	ResponseRiskFactors  []string `json:"response_risk_factors"`
}

// Recommendation is the suggested course of action in the final verdict
type Recommendation struct {
	Action          string   `json:"action"`
	Explanation     string   `json:"explanation"`
	AdditionalSteps []string `json:"additional_steps"`
}

// TriageResult is the final verdict for a conversation. Score is always in [0,1].
type TriageResult struct {
	Score          float64        `json:"score"`
	Analysis       RiskBreakdown  `json:"analysis"`
	Recommendation Recommendation `json:"recommendation"`
	IsFinal        bool           `json:"is_final"`
}

// Conversation is the per-identifier mutable state of one triage dialogue
type Conversation struct {
	ID       string     `json:"id"`
	Email    EmailInput `json:"email"`
	Metadata *Metadata  `json:"metadata"`
	Analysis *Analysis  `json:"analysis"`

	Questions QuestionSet `json:"all_questions"`
	Phase     Phase       `json:"phase"`

	QuestionsAsked int `json:"questions_asked"`
	MaxQuestions   int `json:"max_questions"`

	UserResponses []string          `json:"user_responses"`
	Messages      []TranscriptEntry `json:"messages"`
	LastQuestion  string            `json:"last_question"`

	Result *TriageResult `json:"result,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Reply is what the orchestrator hands back to the caller: either the next
// formatted question or, once the budget is exhausted, the final verdict.
type Reply struct {
	ConversationID  string        `json:"conversation_id"`
	Questions       string        `json:"questions,omitempty"`
	CurrentCategory string        `json:"current_category,omitempty"`
	Result          *TriageResult `json:"result,omitempty"`
	IsFinal         bool          `json:"is_final"`
}
