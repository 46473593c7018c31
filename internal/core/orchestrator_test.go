package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
)

// mapStore is a minimal ConversationStore for orchestrator tests.
type mapStore struct {
	conversations map[string]*Conversation
}

func newMapStore() *mapStore {
	return &mapStore{conversations: make(map[string]*Conversation)}
}

func (s *mapStore) Get(ctx context.Context, id string) (*Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	return conv, nil
}

func (s *mapStore) Put(ctx context.Context, conv *Conversation) error {
	s.conversations[conv.ID] = conv
	return nil
}

func (s *mapStore) Delete(ctx context.Context, id string) error {
	delete(s.conversations, id)
	return nil
}

// stubAgents implements all five pipeline stages with canned outputs.
type stubAgents struct {
	judgment *ResponseJudgment
	score    float64
}

func (a *stubAgents) Extract(ctx context.Context, email EmailInput) (*Metadata, error) {
	return &Metadata{
		Subject: SubjectMetadata{Text: email.Subject, IsValid: true},
		Sender:  SenderMetadata{Email: email.Sender, IsValid: true},
		Content: ContentMetadata{Text: email.Content, Length: len(email.Content)},
	}, nil
}

func (a *stubAgents) Analyze(ctx context.Context, metadata *Metadata, preScan map[string]interface{}) (*Analysis, error) {
	return &Analysis{
		Subject:     SubjectAnalysis{RiskLevel: "medium", Explanation: "urgency in subject"},
		Sender:      SenderAnalysis{DomainRisk: "high", Explanation: "lookalike domain"},
		Content:     ContentAnalysis{RiskLevel: "medium", Explanation: "credential request"},
		Overall:     OverallAnalysis{RiskLevel: "medium", KeyFindings: []string{"lookalike domain"}},
		InitialScan: preScan,
	}, nil
}

func (a *stubAgents) Generate(ctx context.Context, analysis *Analysis) (QuestionSet, error) {
	return QuestionSet{
		CategorySubject: {
			{Context: "s1", Question: "subject one?"},
			{Context: "s2", Question: "subject two?"},
		},
		CategorySender: {
			{Context: "f1", Question: "sender one?"},
			{Context: "f2", Question: "sender two?"},
		},
		CategoryContent: {
			{Context: "c1", Question: "content one?"},
			{Context: "c2", Question: "content two?"},
		},
	}, nil
}

func (a *stubAgents) Process(ctx context.Context, answer string, current Question, category string, analysis *Analysis, history []TranscriptEntry) *ResponseJudgment {
	if a.judgment != nil {
		return a.judgment
	}
	return &ResponseJudgment{
		ResponseAnalysis: ResponseAnalysis{IsComplete: true, Confidence: 0.8},
		RiskIndicators:   RiskIndicators{Level: "low"},
	}
}

func (a *stubAgents) Score(ctx context.Context, analysis *Analysis, responses []string, judgment *ResponseJudgment) *TriageResult {
	return &TriageResult{
		Score: a.score,
		Analysis: RiskBreakdown{
			SubjectRisk: analysis.Subject.RiskLevel,
			SenderRisk:  analysis.Sender.DomainRisk,
			ContentRisk: analysis.Content.RiskLevel,
			OverallRisk: "high",
		},
		Recommendation: Recommendation{Action: "Do not interact with this email"},
		IsFinal:        true,
	}
}

func newTestOrchestrator(agents *stubAgents, store ConversationStore) *Orchestrator {
	return NewOrchestrator(store, agents, agents, agents, agents, agents, 6, zap.NewNop())
}

func testEmail() EmailInput {
	return EmailInput{
		Subject: "Urgent: verify your account",
		Sender:  "security@paypa1.com",
		Content: "Click here to verify: http://paypa1.com/verify",
	}
}

func TestOrchestratorFullConversation(t *testing.T) {
	agents := &stubAgents{score: 0.8}
	store := newMapStore()
	o := newTestOrchestrator(agents, store)
	ctx := context.Background()

	reply, err := o.Start(ctx, testEmail(), "", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if reply.ConversationID == "" {
		t.Fatal("Start did not assign a conversation id")
	}
	if reply.IsFinal {
		t.Fatal("Start returned a final reply")
	}
	if reply.CurrentCategory != CategorySubject {
		t.Errorf("first category = %q, want subject", reply.CurrentCategory)
	}
	if !strings.Contains(reply.Questions, "subject one?") {
		t.Errorf("first question = %q, want first subject question", reply.Questions)
	}

	// Six answers exhaust the default budget. The category rotation with two
	// questions per category is subject, subject, sender, sender, content,
	// content; the sixth answer triggers scoring.
	wantCategories := []string{CategorySubject, CategorySender, CategorySender, CategoryContent, CategoryContent}
	for i := 0; i < 6; i++ {
		reply, err = o.Continue(ctx, reply.ConversationID, "my answer", nil)
		if err != nil {
			t.Fatalf("Continue %d: %v", i+1, err)
		}
		if i < 5 {
			if reply.IsFinal {
				t.Fatalf("Continue %d returned final before budget", i+1)
			}
			if reply.CurrentCategory != wantCategories[i] {
				t.Errorf("Continue %d: category = %q, want %q", i+1, reply.CurrentCategory, wantCategories[i])
			}
		}
	}

	if !reply.IsFinal {
		t.Fatal("sixth answer did not finalize the conversation")
	}
	if reply.Result == nil {
		t.Fatal("final reply has no result")
	}
	if reply.Result.Score != 0.8 {
		t.Errorf("score = %v, want 0.8", reply.Result.Score)
	}

	// The stored conversation carries the full transcript.
	conv, err := o.GetHistory(ctx, reply.ConversationID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(conv.UserResponses) != 6 {
		t.Errorf("stored responses = %d, want 6", len(conv.UserResponses))
	}
	if len(conv.Messages) != 6 {
		t.Errorf("stored transcript entries = %d, want 6", len(conv.Messages))
	}
	if conv.Phase.Kind != PhaseDone {
		t.Errorf("stored phase = %q, want done", conv.Phase.Kind)
	}
}

func TestOrchestratorUnknownConversation(t *testing.T) {
	o := newTestOrchestrator(&stubAgents{}, newMapStore())

	_, err := o.Continue(context.Background(), "no-such-id", "answer", nil)
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("Continue unknown id: err = %v, want ErrConversationNotFound", err)
	}

	_, err = o.GetHistory(context.Background(), "no-such-id")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("GetHistory unknown id: err = %v, want ErrConversationNotFound", err)
	}
}

func TestOrchestratorContinueAfterDone(t *testing.T) {
	agents := &stubAgents{score: 0.9}
	o := newTestOrchestrator(agents, newMapStore())
	ctx := context.Background()

	reply, err := o.Start(ctx, testEmail(), "fixed-id", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if reply.ConversationID != "fixed-id" {
		t.Fatalf("caller-supplied id was replaced: %q", reply.ConversationID)
	}

	for i := 0; i < 6; i++ {
		if reply, err = o.Continue(ctx, "fixed-id", "answer", nil); err != nil {
			t.Fatalf("Continue %d: %v", i+1, err)
		}
	}
	if !reply.IsFinal {
		t.Fatal("conversation did not finalize")
	}

	// Another answer after the verdict replays the stored result.
	again, err := o.Continue(ctx, "fixed-id", "one more", nil)
	if err != nil {
		t.Fatalf("Continue after done: %v", err)
	}
	if !again.IsFinal || again.Result == nil || again.Result.Score != 0.9 {
		t.Errorf("replayed reply = %+v, want stored final verdict", again)
	}
}

func TestOrchestratorInjectsSingleFollowUp(t *testing.T) {
	agents := &stubAgents{
		score: 0.5,
		judgment: &ResponseJudgment{
			ResponseAnalysis: ResponseAnalysis{IsComplete: false, IndicatesRisk: true},
			FollowUp: FollowUp{
				Needed:             true,
				Reason:             "answer was vague",
				SuggestedQuestions: []string{"Can you be more specific?", "Anything else?"},
			},
			RiskIndicators: RiskIndicators{Level: "medium"},
		},
	}
	store := newMapStore()
	o := newTestOrchestrator(agents, store)
	ctx := context.Background()

	reply, err := o.Start(ctx, testEmail(), "", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	reply, err = o.Continue(ctx, reply.ConversationID, "not sure", nil)
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}

	// A risky answer prefixes the next question with an acknowledgement.
	if !strings.HasPrefix(reply.Questions, "Based on your previous response") {
		t.Errorf("risky answer did not add acknowledgement prefix: %q", reply.Questions)
	}

	// Only the first suggested follow-up is appended to the current category.
	conv, err := o.GetHistory(ctx, reply.ConversationID)
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	subject := conv.Questions[CategorySubject]
	if len(subject) != 3 {
		t.Fatalf("subject queue length = %d, want 3 (2 generated + 1 follow-up)", len(subject))
	}
	if subject[2].Question != "Can you be more specific?" {
		t.Errorf("injected follow-up = %q", subject[2].Question)
	}
}

func TestOrchestratorTranscriptOverride(t *testing.T) {
	var seenHistory []TranscriptEntry
	agents := &recordingAgents{stubAgents: stubAgents{score: 0.5}, seen: &seenHistory}
	o := NewOrchestrator(newMapStore(), agents, agents, agents, agents, agents, 6, zap.NewNop())
	ctx := context.Background()

	reply, err := o.Start(ctx, testEmail(), "", nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	override := []TranscriptEntry{{Question: "earlier question", Answer: "earlier answer"}}
	if _, err := o.Continue(ctx, reply.ConversationID, "answer", override); err != nil {
		t.Fatalf("Continue: %v", err)
	}

	if len(seenHistory) != 1 || seenHistory[0].Question != "earlier question" {
		t.Errorf("processor saw history %+v, want caller transcript", seenHistory)
	}
}

// recordingAgents captures the history handed to the response processor.
type recordingAgents struct {
	stubAgents
	seen *[]TranscriptEntry
}

func (a *recordingAgents) Process(ctx context.Context, answer string, current Question, category string, analysis *Analysis, history []TranscriptEntry) *ResponseJudgment {
	*a.seen = history
	return a.stubAgents.Process(ctx, answer, current, category, analysis, history)
}
