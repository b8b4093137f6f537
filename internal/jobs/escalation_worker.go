package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/coverwise/marketcore/internal/core"
)

// EscalationWorker moves flagged claims that sit in submitted for too long
// into review, so a reviewer queue picks them up even when nobody triages
// manually.
type EscalationWorker struct {
	BaseWorker
	claims        core.ClaimService
	escalateAfter time.Duration
	clock         func() time.Time
}

// NewEscalationWorker creates a new escalation worker.
func NewEscalationWorker(
	claims core.ClaimService,
	interval time.Duration,
	escalateAfter time.Duration,
	log *slog.Logger,
) *EscalationWorker {
	return &EscalationWorker{
		BaseWorker:    NewBaseWorker("escalation", interval, log),
		claims:        claims,
		escalateAfter: escalateAfter,
		clock:         time.Now,
	}
}

// Start begins the worker polling loop.
func (w *EscalationWorker) Start(ctx context.Context) {
	w.Poll(ctx, w.escalateStale)
}

// Name returns the worker name.
func (w *EscalationWorker) Name() string {
	return w.name
}

// escalateStale finds flagged submitted claims older than the cutoff and
// begins review on each (limit 20 per poll).
func (w *EscalationWorker) escalateStale(ctx context.Context) error {
	claims, err := w.claims.FindByStatus(ctx, core.ClaimStatusSubmitted, 20)
	if err != nil {
		return err
	}

	cutoff := w.clock().Add(-w.escalateAfter)
	actor := core.Actor{ID: "escalation-worker", Role: core.RoleSystem}

	for _, c := range claims {
		if len(c.Flags) == 0 || !c.CreatedAt.Before(cutoff) {
			continue
		}
		if !hasUnresolved(c) {
			continue
		}

		_, _, err := w.claims.Transition(ctx, c.ID, core.TransitionInput{
			Action: core.ActionBeginReview,
			Actor:  actor,
			Reason: "auto-escalated: unresolved flags past review deadline",
		})
		if err != nil {
			// A concurrent reviewer may have moved the claim already.
			if errors.Is(err, core.ErrInvalidTransition) {
				continue
			}
			w.log.Error("failed to escalate claim", "claim_id", c.ID, "err", err)
			continue
		}
		w.log.Info("claim escalated to review", "claim_id", c.ID)
	}

	return nil
}

func hasUnresolved(c core.Claim) bool {
	for _, f := range c.Flags {
		if !f.Resolved {
			return true
		}
	}
	return false
}
