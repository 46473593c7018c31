package core

import (
	"fmt"
)

// PhaseKind is the conversation lifecycle stage
type PhaseKind string

const (
	// PhaseAwaitingAnswer means a question is out and the next user answer
	// is consumed against CategoryIndex/QuestionIndex.
	PhaseAwaitingAnswer PhaseKind = "awaiting_answer"
	// PhaseFinalizing means the answer budget is exhausted and the next
	// step is final scoring.
	PhaseFinalizing PhaseKind = "finalizing"
	// PhaseDone means the final verdict has been produced.
	PhaseDone PhaseKind = "done"
)

// Phase is the tagged conversation state. Keeping the cursors inside the
// phase value means the category and question index cannot drift apart: the
// only way to move either is through NextPhase.
type Phase struct {
	Kind          PhaseKind `json:"kind"`
	CategoryIndex int       `json:"category_index"`
	QuestionIndex int       `json:"question_index"`
}

// InitialPhase is the state of a freshly started conversation: awaiting an
// answer to the first subject question.
func InitialPhase() Phase {
	return Phase{Kind: PhaseAwaitingAnswer}
}

// Category returns the category the phase cursor points at.
func (p Phase) Category() string {
	return Categories[p.CategoryIndex%len(Categories)]
}

// NextPhase is the pure transition function applied after an answer has been
// consumed. It advances the question cursor, rolls over to the next category
// round-robin when the current queue is drained, and short-circuits to
// finalizing once questionsAsked has reached the budget.
func NextPhase(p Phase, questions QuestionSet, questionsAsked, budget int) Phase {
	if p.Kind != PhaseAwaitingAnswer {
		return p
	}
	if questionsAsked >= budget {
		return Phase{Kind: PhaseFinalizing}
	}

	qi := p.QuestionIndex + 1
	ci := p.CategoryIndex
	if qi >= len(questions[Categories[ci%len(Categories)]]) {
		qi = 0
		ci = (ci + 1) % len(Categories)
	}
	return Phase{Kind: PhaseAwaitingAnswer, CategoryIndex: ci, QuestionIndex: qi}
}

// CurrentQuestion returns the question the phase cursor points at. The
// question generator guarantees every category has at least one entry, so an
// empty queue here means the conversation state was corrupted externally.
func CurrentQuestion(p Phase, questions QuestionSet) (Question, error) {
	queue := questions[p.Category()]
	if len(queue) == 0 {
		return Question{}, fmt.Errorf("no questions for category %q", p.Category())
	}
	idx := p.QuestionIndex
	if idx >= len(queue) {
		idx = len(queue) - 1
	}
	return queue[idx], nil
}

var categoryEmoji = map[string]string{
	CategorySubject: "🔎",
	CategorySender:  "📧",
	CategoryContent: "📨",
}

// FormatQuestion renders a question for display with its category emoji.
func FormatQuestion(category string, q Question) string {
	emoji, ok := categoryEmoji[category]
	if !ok {
		emoji = categoryEmoji[CategoryContent]
	}
	return fmt.Sprintf("%s %s\n❓ %s", emoji, q.Context, q.Question)
}
