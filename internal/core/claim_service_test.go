package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testClock = func() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestClaimService(t *testing.T, repo *fakeClaims) ClaimService {
	t.Helper()
	catalog := newFakeCatalog(Policy{ID: "pol-1", Type: PolicyTypeHealth, Name: "P", Provider: "X", Premium: 1000})
	profiles := newFakeProfiles(UserProfile{ID: "u1"})
	svc := NewClaimService(repo, catalog, profiles, nil, ClaimServiceOptions{ReviewBypass: true})
	svc.(*claimService).clock = testClock
	return svc
}

func validInput() ClaimInput {
	return ClaimInput{
		UserID:       "u1",
		PolicyID:     "pol-1",
		Amount:       2500,
		IncidentDate: testClock().Add(-48 * time.Hour),
		Description:  "windshield damage",
	}
}

func TestSubmitCleanClaim(t *testing.T) {
	repo := newFakeClaims()
	svc := newTestClaimService(t, repo)

	claim, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)

	assert.NotEmpty(t, claim.ID)
	assert.Equal(t, ClaimStatusSubmitted, claim.Status)
	assert.Empty(t, claim.Flags)
	require.Len(t, claim.Audit, 1)
	assert.Equal(t, ActionSubmit, claim.Audit[0].Action)
	assert.Equal(t, "u1", claim.Audit[0].Actor)

	stored, err := repo.Get(context.Background(), claim.ID)
	require.NoError(t, err)
	assert.Equal(t, claim.Status, stored.Status)
	assert.Len(t, stored.Audit, 1)
}

func TestSubmitHighAmountStartsInReview(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())

	in := validInput()
	in.Amount = 550_000
	claim, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, claim.Flags, 1)
	assert.Equal(t, FlagHighAmount, claim.Flags[0].Kind)
	assert.Equal(t, ClaimStatusUnderReview, claim.Status)
	// Still exactly one audit entry: the bypass is part of submission.
	assert.Len(t, claim.Audit, 1)
}

func TestSubmitHighAmountWithoutBypassStaysSubmitted(t *testing.T) {
	repo := newFakeClaims()
	catalog := newFakeCatalog(Policy{ID: "pol-1", Premium: 1000})
	profiles := newFakeProfiles(UserProfile{ID: "u1"})
	svc := NewClaimService(repo, catalog, profiles, nil, ClaimServiceOptions{ReviewBypass: false})
	svc.(*claimService).clock = testClock

	in := validInput()
	in.Amount = 550_000
	claim, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.Len(t, claim.Flags, 1)
	assert.Equal(t, ClaimStatusSubmitted, claim.Status)
}

func TestSubmitValidation(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	in := validInput()
	in.Amount = 0
	_, err := svc.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validInput()
	in.IncidentDate = testClock().Add(time.Hour)
	_, err = svc.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrValidation)

	in = validInput()
	in.PolicyID = "ghost"
	_, err = svc.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)

	in = validInput()
	in.UserID = "ghost"
	_, err = svc.Submit(ctx, in)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitRapidResubmissionFlagged(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	first, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	assert.Empty(t, first.Flags)

	second, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	require.Len(t, second.Flags, 1)
	assert.Equal(t, FlagRapidResubmission, second.Flags[0].Kind)
	// Medium severity does not trigger the review bypass.
	assert.Equal(t, ClaimStatusSubmitted, second.Status)
}

func reviewer() Actor { return Actor{ID: "rev-1", Role: RoleReviewer} }

func TestTransitionFullLifecycle(t *testing.T) {
	repo := newFakeClaims()
	svc := newTestClaimService(t, repo)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	claim, entry, err := svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionBeginReview,
		Actor:  reviewer(),
	})
	require.NoError(t, err)
	assert.Equal(t, ClaimStatusUnderReview, claim.Status)
	assert.Equal(t, ActionBeginReview, entry.Action)

	claim, entry, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove,
		Actor:  reviewer(),
		Reason: "documents verified",
	})
	require.NoError(t, err)
	assert.Equal(t, ClaimStatusApproved, claim.Status)
	require.NotNil(t, claim.ApprovedAmount)
	assert.Equal(t, 2500.0, *claim.ApprovedAmount)
	assert.Equal(t, "documents verified", entry.Reason)

	stored, err := repo.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Audit, 3)
}

func TestTransitionRejectRequiresReason(t *testing.T) {
	repo := newFakeClaims()
	svc := newTestClaimService(t, repo)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionReject,
		Actor:  reviewer(),
	})
	assert.ErrorIs(t, err, ErrMissingReason)

	// A refused transition leaves the claim untouched: no status change, no
	// audit entry.
	stored, err := repo.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, ClaimStatusSubmitted, stored.Status)
	assert.Len(t, stored.Audit, 1)
}

func TestTransitionApproveRequiresReason(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove,
		Actor:  reviewer(),
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionRequiresReviewerRole(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionBeginReview,
		Actor:  Actor{ID: "u1", Role: RoleUser},
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionTerminalClaim(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionReject, Actor: reviewer(), Reason: "no supporting documents",
	})
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove, Actor: reviewer(), Reason: "changed my mind",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionBeginReview, Actor: reviewer(),
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionFlaggedClaimCannotSkipReview(t *testing.T) {
	repo := newFakeClaims()
	catalog := newFakeCatalog(Policy{ID: "pol-1", Premium: 1000})
	profiles := newFakeProfiles(UserProfile{ID: "u1"})
	// Bypass off so the flagged claim stays in submitted.
	svc := NewClaimService(repo, catalog, profiles, nil, ClaimServiceOptions{ReviewBypass: false})
	svc.(*claimService).clock = testClock
	ctx := context.Background()

	in := validInput()
	in.Amount = 600_000
	claim, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	require.Equal(t, ClaimStatusSubmitted, claim.Status)
	require.NotEmpty(t, claim.Flags)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove, Actor: reviewer(), Reason: "looks fine",
	})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionApprovedAmountBounds(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	_, _, err = svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove, Actor: reviewer(), Reason: "partial",
		ApprovedAmount: f64(3000),
	})
	assert.ErrorIs(t, err, ErrValidation)

	got, _, err := svc.Transition(ctx, claim.ID, TransitionInput{
		Action: ActionApprove, Actor: reviewer(), Reason: "partial",
		ApprovedAmount: f64(1800),
	})
	require.NoError(t, err)
	require.NotNil(t, got.ApprovedAmount)
	assert.Equal(t, 1800.0, *got.ApprovedAmount)
}

func TestTransitionUnknownClaim(t *testing.T) {
	svc := newTestClaimService(t, newFakeClaims())

	_, _, err := svc.Transition(context.Background(), "ghost", TransitionInput{
		Action: ActionBeginReview, Actor: reviewer(),
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentTransitionsSingleWinner(t *testing.T) {
	repo := newFakeClaims()
	svc := newTestClaimService(t, repo)
	ctx := context.Background()

	claim, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			action := ActionApprove
			reason := "approved concurrently"
			if i%2 == 0 {
				action = ActionReject
				reason = "rejected concurrently"
			}
			_, _, errs[i] = svc.Transition(ctx, claim.ID, TransitionInput{
				Action: action, Actor: reviewer(), Reason: reason,
			})
		}(i)
	}
	wg.Wait()

	var wins int
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrInvalidTransition)
		}
	}
	assert.Equal(t, 1, wins, "exactly one transition may win")

	stored, err := repo.Get(ctx, claim.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.Terminal())
	// One submit entry plus exactly one transition entry.
	assert.Len(t, stored.Audit, 2)
}

func TestResolveFlag(t *testing.T) {
	repo := newFakeClaims()
	svc := newTestClaimService(t, repo)
	ctx := context.Background()

	in := validInput()
	in.Amount = 600_000
	claim, err := svc.Submit(ctx, in)
	require.NoError(t, err)
	require.Len(t, claim.Flags, 1)

	got, err := svc.ResolveFlag(ctx, claim.ID, 0, reviewer(), "verified with provider")
	require.NoError(t, err)
	assert.True(t, got.Flags[0].Resolved)
	assert.Equal(t, "rev-1", got.Flags[0].ResolvedBy)

	stored, err := repo.Get(ctx, claim.ID)
	require.NoError(t, err)
	require.Len(t, stored.Audit, 2)
	assert.Equal(t, ActionFlagResolve, stored.Audit[1].Action)

	// Resolution is idempotent only in the sense that a second attempt is
	// rejected, never double-recorded.
	_, err = svc.ResolveFlag(ctx, claim.ID, 0, reviewer(), "again")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.ResolveFlag(ctx, claim.ID, 7, reviewer(), "nope")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.ResolveFlag(ctx, claim.ID, 0, Actor{ID: "u1", Role: RoleUser}, "self-serve")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStatusStateMachine(t *testing.T) {
	cases := []struct {
		from, to ClaimStatus
		ok       bool
	}{
		{ClaimStatusSubmitted, ClaimStatusUnderReview, true},
		{ClaimStatusSubmitted, ClaimStatusApproved, true},
		{ClaimStatusSubmitted, ClaimStatusRejected, true},
		{ClaimStatusUnderReview, ClaimStatusApproved, true},
		{ClaimStatusUnderReview, ClaimStatusRejected, true},
		{ClaimStatusUnderReview, ClaimStatusSubmitted, false},
		{ClaimStatusApproved, ClaimStatusRejected, false},
		{ClaimStatusApproved, ClaimStatusUnderReview, false},
		{ClaimStatusRejected, ClaimStatusApproved, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.False(t, ClaimStatusSubmitted.Terminal())
	assert.False(t, ClaimStatusUnderReview.Terminal())
	assert.True(t, ClaimStatusApproved.Terminal())
	assert.True(t, ClaimStatusRejected.Terminal())
}
