// Package httpapi is the thin JSON front door over the orchestrator. It
// carries no triage logic: decode the request, call the orchestrator, encode
// the reply.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mikey/llm-phish-triage/internal/core"
)

// Server exposes the orchestrator over HTTP
type Server struct {
	orchestrator *core.Orchestrator
	logger       *zap.Logger
	mux          *http.ServeMux
}

// NewServer creates a new HTTP server around the orchestrator
func NewServer(orchestrator *core.Orchestrator, logger *zap.Logger) *Server {
	s := &Server{
		orchestrator: orchestrator,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/triage/start", s.handleStart)

	// /triage/{id}/continue and /triage/{id}/history
	s.mux.HandleFunc("/triage/", s.handleConversation)

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type startRequest struct {
	Email          core.EmailInput        `json:"email"`
	ConversationID string                 `json:"conversation_id,omitempty"`
	PreScan        map[string]interface{} `json:"pre_scan,omitempty"`
}

type continueRequest struct {
	Answer     string                 `json:"answer"`
	Transcript []core.TranscriptEntry `json:"transcript,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"message": "triage service is running",
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email.Sender == "" && req.Email.Subject == "" && req.Email.Content == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	reply, err := s.orchestrator.Start(r.Context(), req.Email, req.ConversationID, req.PreScan)
	if err != nil {
		s.logger.Error("Failed to start triage", zap.Error(err))
		http.Error(w, "unable to process, please retry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/triage/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id, action := parts[0], parts[1]

	switch action {
	case "continue":
		s.handleContinue(w, r, id)
	case "history":
		s.handleHistory(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleContinue(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req continueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Answer == "" {
		http.Error(w, "answer is required", http.StatusBadRequest)
		return
	}

	reply, err := s.orchestrator.Continue(r.Context(), id, req.Answer, req.Transcript)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to continue triage", zap.Error(err), zap.String("conversation_id", id))
		http.Error(w, "unable to process, please retry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conv, err := s.orchestrator.GetHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrConversationNotFound) {
			http.Error(w, "conversation not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to load history", zap.Error(err), zap.String("conversation_id", id))
		http.Error(w, "unable to process, please retry", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
