package core

import (
	"context"
	"fmt"
	"time"
)

type ClaimStatus string

const (
	ClaimStatusSubmitted   ClaimStatus = "submitted"
	ClaimStatusUnderReview ClaimStatus = "under_review"
	ClaimStatusApproved    ClaimStatus = "approved"
	ClaimStatusRejected    ClaimStatus = "rejected"
)

type ClaimAction string

const (
	ActionSubmit      ClaimAction = "submit"
	ActionBeginReview ClaimAction = "begin_review"
	ActionApprove     ClaimAction = "approve"
	ActionReject      ClaimAction = "reject"
	ActionFlagResolve ClaimAction = "flag_resolve"
)

type ActorRole string

const (
	RoleUser     ActorRole = "user"
	RoleReviewer ActorRole = "reviewer"
	RoleAdmin    ActorRole = "admin"
	RoleSystem   ActorRole = "system"
)

// Actor identifies who is acting on a claim.
type Actor struct {
	ID   string    `json:"id"`
	Role ActorRole `json:"role"`
}

// CanReview reports whether the actor may drive review transitions.
func (a Actor) CanReview() bool {
	switch a.Role {
	case RoleReviewer, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

type FraudFlagKind string

const (
	FlagHighAmount        FraudFlagKind = "high_amount"
	FlagDuplicateDocument FraudFlagKind = "duplicate_document"
	FlagRapidResubmission FraudFlagKind = "rapid_resubmission"
)

type FraudSeverity string

const (
	SeverityLow    FraudSeverity = "low"
	SeverityMedium FraudSeverity = "medium"
	SeverityHigh   FraudSeverity = "high"
)

// FraudFlag is a machine-raised suspicion marker. Once created it is never
// removed, only marked resolved by an explicit reviewer action.
type FraudFlag struct {
	Kind       FraudFlagKind `json:"kind"`
	Severity   FraudSeverity `json:"severity"`
	Detail     string        `json:"detail"`
	Resolved   bool          `json:"resolved"`
	ResolvedBy string        `json:"resolved_by,omitempty"`
}

// DocumentRef points at an uploaded supporting document. Fingerprint is a
// content hash computed by the upload pipeline; duplicate detection compares
// fingerprints, never filenames.
type DocumentRef struct {
	Fingerprint string `json:"fingerprint"`
	Name        string `json:"name,omitempty"`
}

// AuditEntry records one action on a claim. Append-only: entries are never
// mutated or deleted.
type AuditEntry struct {
	Actor  string      `json:"actor"`
	Action ClaimAction `json:"action"`
	At     time.Time   `json:"at"`
	Reason string      `json:"reason,omitempty"`
}

type Claim struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	PolicyID       string        `json:"policy_id"`
	Amount         float64       `json:"amount"`
	IncidentDate   time.Time     `json:"incident_date"`
	Description    string        `json:"description"`
	Documents      []DocumentRef `json:"documents"`
	Status         ClaimStatus   `json:"status"`
	ApprovedAmount *float64      `json:"approved_amount,omitempty"`
	Flags          []FraudFlag   `json:"flags"`
	Audit          []AuditEntry  `json:"audit"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Terminal reports whether no further transitions are permitted.
func (s ClaimStatus) Terminal() bool {
	return s == ClaimStatusApproved || s == ClaimStatusRejected
}

// CanTransitionTo checks if a status transition is valid.
func (s ClaimStatus) CanTransitionTo(next ClaimStatus) bool {
	transitions := map[ClaimStatus][]ClaimStatus{
		ClaimStatusSubmitted:   {ClaimStatusUnderReview, ClaimStatusApproved, ClaimStatusRejected},
		ClaimStatusUnderReview: {ClaimStatusApproved, ClaimStatusRejected},
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// HasUnresolvedHigh reports whether any unresolved high-severity flag exists.
func (c Claim) HasUnresolvedHigh() bool {
	for _, f := range c.Flags {
		if !f.Resolved && f.Severity == SeverityHigh {
			return true
		}
	}
	return false
}

// ClaimInput is the submission payload before normalization.
type ClaimInput struct {
	UserID       string        `json:"user_id"`
	PolicyID     string        `json:"policy_id"`
	Amount       float64       `json:"amount"`
	IncidentDate time.Time     `json:"incident_date"`
	Description  string        `json:"description"`
	Documents    []DocumentRef `json:"documents"`
}

func (in ClaimInput) Validate() error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if in.PolicyID == "" {
		return fmt.Errorf("%w: policy_id is required", ErrValidation)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0", ErrValidation)
	}
	if in.IncidentDate.IsZero() {
		return fmt.Errorf("%w: incident_date is required", ErrValidation)
	}
	for i, d := range in.Documents {
		if d.Fingerprint == "" {
			return fmt.Errorf("%w: document %d has no fingerprint", ErrValidation, i)
		}
	}
	return nil
}

// TransitionInput drives one lifecycle transition.
type TransitionInput struct {
	Action         ClaimAction `json:"action"`
	Actor          Actor       `json:"actor"`
	Reason         string      `json:"reason,omitempty"`
	ApprovedAmount *float64    `json:"approved_amount,omitempty"`
}

// ClaimRepo persists claims with their flag and audit sub-collections.
// AppendTransition and ResolveFlag must be atomic single writes conditional
// on the claim's current state, so concurrent writers serialize at the store
// even across processes.
type ClaimRepo interface {
	Create(ctx context.Context, c Claim) error
	Get(ctx context.Context, id string) (Claim, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Claim, error)
	FindByStatus(ctx context.Context, status ClaimStatus, limit int) ([]Claim, error)

	// AppendTransition sets the status (and approved amount, if non-nil) and
	// appends exactly one audit entry, conditional on status still being
	// `from`. Returns ErrStaleClaim when the condition fails.
	AppendTransition(ctx context.Context, id string, from, to ClaimStatus, approvedAmount *float64, entry AuditEntry) error

	// ResolveFlag marks the flag at flagIndex resolved and appends the audit
	// entry, conditional on the flag being unresolved.
	ResolveFlag(ctx context.Context, id string, flagIndex int, resolvedBy string, entry AuditEntry) error
}

var (
	ErrClaimNotFound = fmt.Errorf("%w: claim not found", ErrNotFound)

	// ErrStaleClaim signals that a conditional write lost a race: the claim
	// changed state between read and write.
	ErrStaleClaim = fmt.Errorf("%w: claim state changed concurrently", ErrConflict)
)
