package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/config"
	"github.com/notewise-app/notewise/internal/events"
	"github.com/notewise-app/notewise/internal/llm"
	"github.com/notewise-app/notewise/internal/metrics"
	"github.com/notewise-app/notewise/internal/quota"
)

const publishTimeout = 2 * time.Second

// QuotaGate is the part of the quota service the pipeline depends on.
type QuotaGate interface {
	CheckAndConsume(ctx context.Context, userID uuid.UUID) (quota.Decision, error)
	Refund(ctx context.Context, userID uuid.UUID) (int, error)
}

// UsagePublisher receives one event per generation attempt.
type UsagePublisher interface {
	PublishUsage(ctx context.Context, ev events.UsageEvent) error
}

type Request struct {
	Operation Operation
	Content   string
	UserID    uuid.UUID
	// NoteID is set when the request comes from a stored note.
	NoteID uuid.UUID
	// Save, when set, persists the result. A Save error refunds the use like
	// any other failure after consumption.
	Save func(ctx context.Context, res *Result) error
}

type Result struct {
	Operation     Operation   `json:"-"`
	Summary       string      `json:"summary,omitempty"`
	Flashcards    []Flashcard `json:"flashcards,omitempty"`
	RemainingUses int         `json:"remaining_uses"`
}

// Service runs the generation pipeline: identity, content validation,
// quota consumption, provider call and output validation.
type Service struct {
	gate       QuotaGate
	client     llm.Client
	publisher  UsagePublisher
	thresholds Thresholds
}

// NewService builds the pipeline. publisher may be nil.
func NewService(gate QuotaGate, client llm.Client, publisher UsagePublisher, cfg config.GenerationConfig) *Service {
	return &Service{
		gate:      gate,
		client:    client,
		publisher: publisher,
		thresholds: Thresholds{
			Summary:    cfg.MinWordsSummary,
			Flashcards: cfg.MinWordsFlashcards,
		},
	}
}

// Generate produces the requested artifact. Every returned error is a *Error.
// Once a use has been consumed, any failure gives it back before returning.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	res, err := s.generate(ctx, req)
	if err != nil {
		e := Classify(err)
		metrics.GenerationsTotal.WithLabelValues(string(req.Operation), e.Kind.String()).Inc()
		return nil, e
	}
	metrics.GenerationsTotal.WithLabelValues(string(req.Operation), "ok").Inc()
	return res, nil
}

func (s *Service) generate(ctx context.Context, req Request) (*Result, error) {
	if req.UserID == uuid.Nil {
		return nil, &Error{Kind: KindUnauthenticated, Message: "No authorization token was found."}
	}
	if !req.Operation.Valid() {
		return nil, &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf("unknown operation %q", req.Operation)}
	}

	if err := ValidateContent(req.Operation, req.Content, s.thresholds); err != nil {
		s.emit(ctx, req, events.OutcomeRejected, Classify(err).Kind.String(), nil)
		return nil, err
	}

	decision, err := s.gate.CheckAndConsume(ctx, req.UserID)
	if err != nil {
		e := Classify(err)
		if e.Kind == KindInternal {
			e = internalError("quota check failed", err)
		}
		s.emit(ctx, req, events.OutcomeRejected, e.Kind.String(), nil)
		return nil, e
	}
	if !decision.Allowed {
		s.emit(ctx, req, events.OutcomeDenied, KindResourceExhausted.String(), &decision.RemainingUses)
		msg := fmt.Sprintf("You've used all your free usages for the day. More become available at %s.",
			decision.NextResetAt.UTC().Format(time.RFC3339))
		return nil, &Error{Kind: KindResourceExhausted, Message: msg, NextResetAt: decision.NextResetAt}
	}

	res, err := s.produce(ctx, req)
	if err == nil {
		res.RemainingUses = decision.RemainingUses
		if req.Save != nil {
			if serr := req.Save(ctx, res); serr != nil {
				err = internalError(fmt.Sprintf("failed to save %s", req.Operation), serr)
			}
		}
	}
	if err != nil {
		s.refund(ctx, req, err)
		return nil, err
	}

	s.emit(ctx, req, events.OutcomeGenerated, "", &res.RemainingUses)
	slog.Info("generated study artifact",
		"operation", req.Operation, "user_id", req.UserID, "remaining_uses", res.RemainingUses)
	return res, nil
}

// produce runs everything after consumption. Any error it returns is Internal.
func (s *Service) produce(ctx context.Context, req Request) (*Result, error) {
	prompt, err := BuildPrompt(req.Operation, PlainText(req.Content))
	if err != nil {
		return nil, internalError("failed to build prompt", err)
	}

	raw, err := s.client.Generate(ctx, llm.Request{
		System:      prompt.System,
		User:        prompt.User,
		MaxTokens:   req.Operation.maxTokens(),
		Temperature: req.Operation.temperature(),
	})
	if err != nil {
		return nil, internalError(fmt.Sprintf("failed to generate %s", req.Operation), err)
	}

	res := &Result{Operation: req.Operation}
	switch req.Operation {
	case OpSummary:
		res.Summary, err = ParseSummary(raw)
	case OpFlashcards:
		res.Flashcards, err = ParseFlashcards(raw)
	}
	if err != nil {
		slog.Warn("provider output rejected",
			"operation", req.Operation, "user_id", req.UserID, "error", err, "raw", raw)
		e := internalError(fmt.Sprintf("failed to parse %s", req.Operation), err)
		e.Diagnostic = raw
		return nil, e
	}
	return res, nil
}

// refund returns the consumed use. It runs detached from ctx cancellation so
// a client that disconnects mid-call still gets its use back.
func (s *Service) refund(ctx context.Context, req Request, cause error) {
	rctx := context.WithoutCancel(ctx)
	remaining, err := s.gate.Refund(rctx, req.UserID)
	if err != nil {
		slog.Error("refunding quota after failed generation",
			"error", err, "cause", cause, "user_id", req.UserID, "operation", req.Operation)
		s.emit(rctx, req, events.OutcomeFailed, KindInternal.String(), nil)
		return
	}
	slog.Info("refunded quota after failed generation",
		"cause", cause, "user_id", req.UserID, "operation", req.Operation, "remaining_uses", remaining)
	s.emit(rctx, req, events.OutcomeRefunded, KindInternal.String(), &remaining)
}

// emit publishes a usage event. Publishing never fails the request.
func (s *Service) emit(ctx context.Context, req Request, outcome events.Outcome, kind string, remaining *int) {
	if s.publisher == nil {
		return
	}

	ev := events.UsageEvent{
		ID:            uuid.New(),
		UserID:        req.UserID,
		Operation:     string(req.Operation),
		Outcome:       outcome,
		Kind:          kind,
		RemainingUses: remaining,
		Timestamp:     time.Now().UTC(),
	}
	if req.NoteID != uuid.Nil {
		noteID := req.NoteID
		ev.NoteID = &noteID
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishUsage(pctx, ev); err != nil {
		slog.Warn("publishing usage event", "error", err, "user_id", req.UserID, "outcome", outcome)
	}
}
