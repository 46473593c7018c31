package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/adapters/store"
	"github.com/mikey/llm-phish-triage/internal/core"
)

// fixedAgents backs the orchestrator with canned pipeline outputs so the
// handlers can be exercised without a gateway.
type fixedAgents struct{}

func (fixedAgents) Extract(ctx context.Context, email core.EmailInput) (*core.Metadata, error) {
	return &core.Metadata{
		Subject: core.SubjectMetadata{Text: email.Subject, IsValid: true},
		Sender:  core.SenderMetadata{Email: email.Sender, IsValid: true},
	}, nil
}

func (fixedAgents) Analyze(ctx context.Context, metadata *core.Metadata, preScan map[string]interface{}) (*core.Analysis, error) {
	return &core.Analysis{InitialScan: preScan}, nil
}

func (fixedAgents) Generate(ctx context.Context, analysis *core.Analysis) (core.QuestionSet, error) {
	return core.QuestionSet{
		core.CategorySubject: {{Context: "c", Question: "subject?"}},
		core.CategorySender:  {{Context: "c", Question: "sender?"}},
		core.CategoryContent: {{Context: "c", Question: "content?"}},
	}, nil
}

func (fixedAgents) Process(ctx context.Context, answer string, current core.Question, category string, analysis *core.Analysis, history []core.TranscriptEntry) *core.ResponseJudgment {
	return &core.ResponseJudgment{}
}

func (fixedAgents) Score(ctx context.Context, analysis *core.Analysis, responses []string, judgment *core.ResponseJudgment) *core.TriageResult {
	return &core.TriageResult{Score: 0.6, IsFinal: true}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	convStore := store.NewMemoryStore(time.Minute, time.Minute, zap.NewNop())
	t.Cleanup(convStore.Stop)

	agents := fixedAgents{}
	orchestrator := core.NewOrchestrator(convStore, agents, agents, agents, agents, agents, 2, zap.NewNop())
	return NewServer(orchestrator, zap.NewNop())
}

func postJSON(t *testing.T, s *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStartAndContinue(t *testing.T) {
	s := newTestServer(t)

	rec := postJSON(t, s, "/triage/start", map[string]interface{}{
		"email": map[string]string{
			"subject": "Urgent",
			"sender":  "a@b.com",
			"content": "click here",
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var reply core.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode start reply: %v", err)
	}
	if reply.ConversationID == "" || reply.Questions == "" || reply.IsFinal {
		t.Fatalf("unexpected start reply: %+v", reply)
	}

	// Budget of 2: first answer gets another question, second finalizes.
	rec = postJSON(t, s, "/triage/"+reply.ConversationID+"/continue", map[string]string{"answer": "yes"})
	if rec.Code != http.StatusOK {
		t.Fatalf("continue status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode continue reply: %v", err)
	}
	if reply.IsFinal {
		t.Fatal("finalized before the budget was reached")
	}

	rec = postJSON(t, s, "/triage/"+reply.ConversationID+"/continue", map[string]string{"answer": "no"})
	if rec.Code != http.StatusOK {
		t.Fatalf("final continue status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("decode final reply: %v", err)
	}
	if !reply.IsFinal || reply.Result == nil || reply.Result.Score != 0.6 {
		t.Fatalf("unexpected final reply: %+v", reply)
	}

	// History remains readable after finalization.
	req := httptest.NewRequest(http.MethodGet, "/triage/"+reply.ConversationID+"/history", nil)
	histRec := httptest.NewRecorder()
	s.ServeHTTP(histRec, req)
	if histRec.Code != http.StatusOK {
		t.Fatalf("history status = %d", histRec.Code)
	}
	var conv core.Conversation
	if err := json.Unmarshal(histRec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(conv.UserResponses) != 2 {
		t.Errorf("history responses = %d, want 2", len(conv.UserResponses))
	}
}

func TestStartRejectsEmptyEmail(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/triage/start", map[string]interface{}{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestContinueUnknownConversation(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/triage/no-such-id/continue", map[string]string{"answer": "yes"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestContinueRejectsEmptyAnswer(t *testing.T) {
	s := newTestServer(t)
	rec := postJSON(t, s, "/triage/some-id/continue", map[string]string{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMethodChecks(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/triage/start", nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /triage/start status = %d, want 405", rec.Code)
	}

	rec = postJSON(t, s, "/triage/some-id/history", map[string]string{})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST history status = %d, want 405", rec.Code)
	}
}
