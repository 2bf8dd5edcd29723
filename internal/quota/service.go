package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notewise-app/notewise/internal/config"
	"github.com/notewise-app/notewise/internal/metrics"
)

// Service is the quota gate in front of every generation request.
type Service struct {
	store Store
	cfg   config.QuotaConfig
}

func NewService(store Store, cfg config.QuotaConfig) *Service {
	return &Service{store: store, cfg: cfg}
}

// LimitsFrom extracts the store limits from the quota config.
func LimitsFrom(cfg config.QuotaConfig) Limits {
	return Limits{MaxDailyUses: cfg.MaxDailyUses, Window: cfg.Window}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Provision creates the user's record if missing. New accounts start one use
// short of the maximum when sign-up is charged.
func (s *Service) Provision(ctx context.Context, userID uuid.UUID) error {
	initial := s.cfg.MaxDailyUses
	if s.cfg.ChargeSignup {
		initial--
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.Provision(ctx, userID, initial)
}

// CheckAndConsume takes one use from the user's allowance. A denial is not
// an error: it is reported through Decision.Allowed.
func (s *Service) CheckAndConsume(ctx context.Context, userID uuid.UUID) (Decision, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	d, err := s.store.Consume(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.QuotaDecisionsTotal.WithLabelValues("not_found").Inc()
		}
		return Decision{}, err
	}

	switch {
	case !d.Allowed:
		metrics.QuotaDecisionsTotal.WithLabelValues("denied").Inc()
		slog.Info("quota exhausted", "user_id", userID, "next_reset_at", d.NextResetAt)
	case d.Reset:
		metrics.QuotaDecisionsTotal.WithLabelValues("reset").Inc()
		slog.Debug("quota window reset", "user_id", userID, "remaining", d.RemainingUses)
	default:
		metrics.QuotaDecisionsTotal.WithLabelValues("allowed").Inc()
	}
	return d, nil
}

// Refund gives back a use taken by CheckAndConsume.
func (s *Service) Refund(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	remaining, err := s.store.Refund(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("refunding quota for %s: %w", userID, err)
	}
	metrics.QuotaRefundsTotal.Inc()
	return remaining, nil
}

// Status reports the allowance as the next consume would see it.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.statusOf(rec), nil
}

func (s *Service) statusOf(rec *Record) *Status {
	now := rec.ObservedAt
	if now.IsZero() {
		now = time.Now()
	}
	next := rec.LastResetAt.Add(s.cfg.Window)

	st := &Status{
		RemainingUses: rec.RemainingUses,
		MaxDailyUses:  s.cfg.MaxDailyUses,
		LastResetAt:   rec.LastResetAt.UTC(),
		NextResetAt:   next.UTC(),
	}
	if rec.RemainingUses == 0 {
		if now.Before(next) {
			st.Exhausted = true
		} else {
			// The next consume refills the allowance.
			st.RemainingUses = s.cfg.MaxDailyUses
		}
	}
	return st
}
