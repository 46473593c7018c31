package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Orchestrator sequences the triage pipeline and owns conversation state
// through an injected ConversationStore. Requests for different conversation
// ids proceed independently; requests for the same id are serialized through
// a per-id lock.
type Orchestrator struct {
	store     ConversationStore
	extractor MetadataExtractor
	analyzer  ContentAnalyzer
	questions QuestionGenerator
	responses ResponseProcessor
	scorer    RiskScorer
	logger    *zap.Logger

	maxQuestions int
	locks        sync.Map // conversation id -> *sync.Mutex
}

// NewOrchestrator creates a new triage orchestrator
func NewOrchestrator(
	store ConversationStore,
	extractor MetadataExtractor,
	analyzer ContentAnalyzer,
	questions QuestionGenerator,
	responses ResponseProcessor,
	scorer RiskScorer,
	maxQuestions int,
	logger *zap.Logger,
) *Orchestrator {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return &Orchestrator{
		store:        store,
		extractor:    extractor,
		analyzer:     analyzer,
		questions:    questions,
		responses:    responses,
		scorer:       scorer,
		maxQuestions: maxQuestions,
		logger:       logger,
	}
}

func (o *Orchestrator) lock(id string) func() {
	v, _ := o.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Start begins a new conversation for an email and returns the first
// formatted question. An empty conversationID is replaced with a fresh one.
// The optional preScan result is attached to the analysis.
func (o *Orchestrator) Start(ctx context.Context, email EmailInput, conversationID string, preScan map[string]interface{}) (*Reply, error) {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	unlock := o.lock(conversationID)
	defer unlock()

	log := o.logger.With(zap.String("conversation_id", conversationID))
	log.Info("Starting email triage",
		zap.String("sender", email.Sender),
		zap.Int("content_length", len(email.Content)))

	metadata, err := o.extractor.Extract(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("metadata extraction: %w", err)
	}

	analysis, err := o.analyzer.Analyze(ctx, metadata, preScan)
	if err != nil {
		return nil, fmt.Errorf("content analysis: %w", err)
	}

	questions, err := o.questions.Generate(ctx, analysis)
	if err != nil {
		return nil, fmt.Errorf("question generation: %w", err)
	}

	now := time.Now()
	conv := &Conversation{
		ID:           conversationID,
		Email:        email,
		Metadata:     metadata,
		Analysis:     analysis,
		Questions:    questions,
		Phase:        InitialPhase(),
		MaxQuestions: o.maxQuestions,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	first, err := CurrentQuestion(conv.Phase, conv.Questions)
	if err != nil {
		return nil, err
	}
	conv.LastQuestion = first.Question

	if err := o.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("store conversation: %w", err)
	}

	log.Info("Conversation started", zap.String("category", conv.Phase.Category()))
	return &Reply{
		ConversationID:  conversationID,
		Questions:       FormatQuestion(conv.Phase.Category(), first),
		CurrentCategory: conv.Phase.Category(),
	}, nil
}

// Continue consumes one user answer and returns either the next question or
// the final verdict once the answer budget is exhausted. An unknown
// conversation id is rejected with ErrConversationNotFound. The optional
// transcript, when non-empty, is given to the response processor in place of
// the stored message log.
func (o *Orchestrator) Continue(ctx context.Context, conversationID, answer string, transcript []TranscriptEntry) (*Reply, error) {
	unlock := o.lock(conversationID)
	defer unlock()

	conv, err := o.store.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	log := o.logger.With(zap.String("conversation_id", conversationID))

	if conv.Phase.Kind == PhaseDone {
		log.Debug("Conversation already finalized, returning stored verdict")
		return &Reply{ConversationID: conversationID, Result: conv.Result, IsFinal: true}, nil
	}

	category := conv.Phase.Category()
	current, err := CurrentQuestion(conv.Phase, conv.Questions)
	if err != nil {
		return nil, err
	}

	history := conv.Messages
	if len(transcript) > 0 {
		history = transcript
	}

	judgment := o.responses.Process(ctx, answer, current, category, conv.Analysis, history)

	// At most one suggested follow-up is injected per answer, so queue
	// growth stays bounded by the answer budget.
	if judgment.FollowUp.Needed && len(judgment.FollowUp.SuggestedQuestions) > 0 {
		conv.Questions[category] = append(conv.Questions[category], Question{
			Context:  judgment.FollowUp.Reason,
			Question: judgment.FollowUp.SuggestedQuestions[0],
		})
		log.Debug("Injected follow-up question", zap.String("category", category))
	}

	conv.UserResponses = append(conv.UserResponses, answer)
	conv.QuestionsAsked++
	conv.Messages = append(conv.Messages, TranscriptEntry{
		Question: conv.LastQuestion,
		Answer:   answer,
		Category: category,
	})

	conv.Phase = NextPhase(conv.Phase, conv.Questions, conv.QuestionsAsked, conv.MaxQuestions)
	conv.UpdatedAt = time.Now()

	if conv.Phase.Kind == PhaseFinalizing {
		log.Info("Answer budget exhausted, scoring",
			zap.Int("questions_asked", conv.QuestionsAsked))

		result := o.scorer.Score(ctx, conv.Analysis, conv.UserResponses, judgment)
		conv.Result = result
		conv.Phase = Phase{Kind: PhaseDone}
		if err := o.store.Put(ctx, conv); err != nil {
			return nil, fmt.Errorf("store conversation: %w", err)
		}

		log.Info("Triage complete", zap.Float64("score", result.Score))
		return &Reply{ConversationID: conversationID, Result: result, IsFinal: true}, nil
	}

	next, err := CurrentQuestion(conv.Phase, conv.Questions)
	if err != nil {
		return nil, err
	}
	conv.LastQuestion = next.Question

	if err := o.store.Put(ctx, conv); err != nil {
		return nil, fmt.Errorf("store conversation: %w", err)
	}

	formatted := FormatQuestion(conv.Phase.Category(), next)
	if judgment.ResponseAnalysis.IndicatesRisk {
		formatted = "Based on your previous response, let's take a closer look.\n\n" + formatted
	}

	log.Debug("Next question emitted",
		zap.String("category", conv.Phase.Category()),
		zap.Int("questions_asked", conv.QuestionsAsked))

	return &Reply{
		ConversationID:  conversationID,
		Questions:       formatted,
		CurrentCategory: conv.Phase.Category(),
	}, nil
}

// GetHistory returns the stored conversation state for read-only inspection.
func (o *Orchestrator) GetHistory(ctx context.Context, conversationID string) (*Conversation, error) {
	return o.store.Get(ctx, conversationID)
}
