package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coverwise/marketcore/internal/platform/ids"
)

// ClaimService owns the claim lifecycle: submission (including synchronous
// fraud evaluation) and the submitted → under_review → {approved, rejected}
// state machine. Every successful mutation appends exactly one audit entry
// in the same store write that changes the claim.
type ClaimService interface {
	Submit(ctx context.Context, in ClaimInput) (Claim, error)
	Get(ctx context.Context, id string) (Claim, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Claim, error)
	FindByStatus(ctx context.Context, status ClaimStatus, limit int) ([]Claim, error)
	Transition(ctx context.Context, claimID string, in TransitionInput) (Claim, AuditEntry, error)
	ResolveFlag(ctx context.Context, claimID string, flagIndex int, actor Actor, reason string) (Claim, error)
}

// ClaimServiceOptions carries the tunable policy knobs.
type ClaimServiceOptions struct {
	// ReviewBypass sends claims with an unresolved high-severity flag
	// straight to under_review instead of submitted.
	ReviewBypass bool

	// HistoryLimit bounds how many prior claims feed fraud evaluation.
	HistoryLimit int
}

type claimService struct {
	claims   ClaimRepo
	catalog  CatalogRepo
	profiles ProfileRepo
	rules    *FraudRules
	opts     ClaimServiceOptions
	clock    func() time.Time
	locks    keyedMutex
}

func NewClaimService(claims ClaimRepo, catalog CatalogRepo, profiles ProfileRepo, rules *FraudRules, opts ClaimServiceOptions) ClaimService {
	if rules == nil {
		rules = NewFraudRules(0, 0)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 100
	}
	return &claimService{
		claims:   claims,
		catalog:  catalog,
		profiles: profiles,
		rules:    rules,
		opts:     opts,
		clock:    time.Now,
	}
}

func (s *claimService) Submit(ctx context.Context, in ClaimInput) (Claim, error) {
	// 1) Validate before any computation
	if err := in.Validate(); err != nil {
		return Claim{}, err
	}

	now := s.clock()
	if in.IncidentDate.After(now) {
		return Claim{}, fmt.Errorf("%w: incident_date is in the future", ErrValidation)
	}

	// 2) Resolve referenced policy and user
	if _, err := s.catalog.Get(ctx, in.PolicyID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Claim{}, fmt.Errorf("%w: policy %q", ErrNotFound, in.PolicyID)
		}
		return Claim{}, fmt.Errorf("%w: policy catalog: %v", ErrUnavailable, err)
	}
	if _, err := s.profiles.Get(ctx, in.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Claim{}, fmt.Errorf("%w: user %q", ErrNotFound, in.UserID)
		}
		return Claim{}, fmt.Errorf("%w: profile store: %v", ErrUnavailable, err)
	}

	// 3) Load the user's claim history for fraud evaluation
	history, err := s.claims.ListByUser(ctx, in.UserID, s.opts.HistoryLimit)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: claim store: %v", ErrUnavailable, err)
	}

	claim := Claim{
		ID:           ids.New(),
		UserID:       in.UserID,
		PolicyID:     in.PolicyID,
		Amount:       in.Amount,
		IncidentDate: in.IncidentDate,
		Description:  in.Description,
		Documents:    in.Documents,
		Status:       ClaimStatusSubmitted,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// 4) Fraud rules run synchronously at submission
	claim.Flags = s.rules.Evaluate(claim, history)
	if s.opts.ReviewBypass && claim.HasUnresolvedHigh() {
		claim.Status = ClaimStatusUnderReview
	}

	claim.Audit = []AuditEntry{{
		Actor:  in.UserID,
		Action: ActionSubmit,
		At:     now,
	}}

	// 5) Honor a caller deadline before committing anything
	if err := ctx.Err(); err != nil {
		return Claim{}, err
	}

	if err := s.claims.Create(ctx, claim); err != nil {
		if errors.Is(err, ErrConflict) {
			return Claim{}, err
		}
		return Claim{}, fmt.Errorf("%w: claim store: %v", ErrUnavailable, err)
	}
	return claim, nil
}

func (s *claimService) Get(ctx context.Context, id string) (Claim, error) {
	if id == "" {
		return Claim{}, fmt.Errorf("%w: missing claim ID", ErrValidation)
	}
	return s.claims.Get(ctx, id)
}

func (s *claimService) ListByUser(ctx context.Context, userID string, limit int) ([]Claim, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrValidation)
	}
	if limit <= 0 {
		limit = 50
	}
	return s.claims.ListByUser(ctx, userID, limit)
}

func (s *claimService) FindByStatus(ctx context.Context, status ClaimStatus, limit int) ([]Claim, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.claims.FindByStatus(ctx, status, limit)
}

func (s *claimService) Transition(ctx context.Context, claimID string, in TransitionInput) (Claim, AuditEntry, error) {
	// 1) Static validation
	if claimID == "" {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: missing claim ID", ErrValidation)
	}
	if in.Actor.ID == "" {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: missing actor", ErrValidation)
	}
	switch in.Action {
	case ActionBeginReview, ActionApprove, ActionReject:
	default:
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: unknown action %q", ErrValidation, in.Action)
	}
	if in.Action == ActionReject && in.Reason == "" {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: rejection requires a reason", ErrMissingReason)
	}
	if in.Action == ActionApprove && in.Reason == "" {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: approval requires a reason", ErrValidation)
	}
	if !in.Actor.CanReview() {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: actor %q lacks reviewer capability", ErrInvalidTransition, in.Actor.ID)
	}

	// 2) Serialize transitions per claim; different claims never contend
	unlock := s.locks.lock(claimID)
	defer unlock()

	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return Claim{}, AuditEntry{}, err
	}
	if claim.Status.Terminal() {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: claim is already %s", ErrInvalidTransition, claim.Status)
	}

	// 3) Resolve the target state
	var target ClaimStatus
	var approvedAmount *float64
	switch in.Action {
	case ActionBeginReview:
		target = ClaimStatusUnderReview
	case ActionApprove:
		target = ClaimStatusApproved
		// approved from submitted only when the claim carries no flags at all
		if claim.Status == ClaimStatusSubmitted && len(claim.Flags) > 0 {
			return Claim{}, AuditEntry{}, fmt.Errorf("%w: flagged claim requires review before approval", ErrInvalidTransition)
		}
		amount := claim.Amount
		if in.ApprovedAmount != nil {
			if *in.ApprovedAmount <= 0 || *in.ApprovedAmount > claim.Amount {
				return Claim{}, AuditEntry{}, fmt.Errorf("%w: approved amount must be in (0, %.2f]", ErrValidation, claim.Amount)
			}
			amount = *in.ApprovedAmount
		}
		approvedAmount = &amount
	case ActionReject:
		target = ClaimStatusRejected
	}
	if !claim.Status.CanTransitionTo(target) {
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: cannot %s a claim in %s", ErrInvalidTransition, in.Action, claim.Status)
	}

	now := s.clock()
	entry := AuditEntry{
		Actor:  in.Actor.ID,
		Action: in.Action,
		At:     now,
		Reason: in.Reason,
	}

	// 4) Abort before the commit if the caller's deadline already passed
	if err := ctx.Err(); err != nil {
		return Claim{}, AuditEntry{}, err
	}

	// 5) Conditional write: a concurrent winner makes this stale
	err = s.claims.AppendTransition(ctx, claimID, claim.Status, target, approvedAmount, entry)
	if err != nil {
		if errors.Is(err, ErrStaleClaim) {
			current, getErr := s.claims.Get(ctx, claimID)
			if getErr == nil {
				return Claim{}, AuditEntry{}, fmt.Errorf("%w: claim is already %s", ErrInvalidTransition, current.Status)
			}
			return Claim{}, AuditEntry{}, fmt.Errorf("%w: claim changed state", ErrInvalidTransition)
		}
		if errors.Is(err, ErrNotFound) {
			return Claim{}, AuditEntry{}, err
		}
		return Claim{}, AuditEntry{}, fmt.Errorf("%w: claim store: %v", ErrUnavailable, err)
	}

	claim.Status = target
	claim.ApprovedAmount = approvedAmount
	claim.UpdatedAt = now
	claim.Audit = append(claim.Audit, entry)
	return claim, entry, nil
}

func (s *claimService) ResolveFlag(ctx context.Context, claimID string, flagIndex int, actor Actor, reason string) (Claim, error) {
	if claimID == "" {
		return Claim{}, fmt.Errorf("%w: missing claim ID", ErrValidation)
	}
	if !actor.CanReview() {
		return Claim{}, fmt.Errorf("%w: actor %q lacks reviewer capability", ErrInvalidTransition, actor.ID)
	}

	unlock := s.locks.lock(claimID)
	defer unlock()

	claim, err := s.claims.Get(ctx, claimID)
	if err != nil {
		return Claim{}, err
	}
	if flagIndex < 0 || flagIndex >= len(claim.Flags) {
		return Claim{}, fmt.Errorf("%w: flag index %d out of range", ErrValidation, flagIndex)
	}
	if claim.Flags[flagIndex].Resolved {
		return Claim{}, fmt.Errorf("%w: flag already resolved", ErrConflict)
	}

	now := s.clock()
	entry := AuditEntry{
		Actor:  actor.ID,
		Action: ActionFlagResolve,
		At:     now,
		Reason: reason,
	}

	if err := ctx.Err(); err != nil {
		return Claim{}, err
	}

	if err := s.claims.ResolveFlag(ctx, claimID, flagIndex, actor.ID, entry); err != nil {
		if errors.Is(err, ErrStaleClaim) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return Claim{}, err
		}
		return Claim{}, fmt.Errorf("%w: claim store: %v", ErrUnavailable, err)
	}

	claim.Flags[flagIndex].Resolved = true
	claim.Flags[flagIndex].ResolvedBy = actor.ID
	claim.UpdatedAt = now
	claim.Audit = append(claim.Audit, entry)
	return claim, nil
}

// keyedMutex gives each claim ID its own lock. Entries are reference-counted
// and removed once the last holder releases, so the map stays bounded by the
// number of in-flight transitions.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*claimLock
}

type claimLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(id string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*claimLock)
	}
	l, ok := k.locks[id]
	if !ok {
		l = &claimLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
