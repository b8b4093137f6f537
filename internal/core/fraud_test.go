package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFraudHighAmount(t *testing.T) {
	rules := NewFraudRules(0, 0)

	flags := rules.Evaluate(Claim{ID: "c1", Amount: 600_000}, nil)
	require.Len(t, flags, 1)
	assert.Equal(t, FlagHighAmount, flags[0].Kind)
	assert.Equal(t, SeverityHigh, flags[0].Severity)
	assert.False(t, flags[0].Resolved)

	// At the threshold is not above it.
	assert.Empty(t, rules.Evaluate(Claim{ID: "c2", Amount: 500_000}, nil))
	assert.Empty(t, rules.Evaluate(Claim{ID: "c3", Amount: 100}, nil))
}

func TestFraudHighAmountCustomThreshold(t *testing.T) {
	rules := NewFraudRules(10_000, 0)

	assert.Len(t, rules.Evaluate(Claim{ID: "c1", Amount: 10_001}, nil), 1)
	assert.Empty(t, rules.Evaluate(Claim{ID: "c2", Amount: 10_000}, nil))
}

func TestFraudDuplicateDocument(t *testing.T) {
	rules := NewFraudRules(0, 0)

	history := []Claim{
		{ID: "old-1", Documents: []DocumentRef{{Fingerprint: "A", Name: "invoice.pdf"}}},
		{ID: "old-2", Documents: []DocumentRef{{Fingerprint: "B"}}},
	}

	// Same fingerprint under a different filename still counts.
	c := Claim{ID: "new", Documents: []DocumentRef{
		{Fingerprint: "A", Name: "renamed.pdf"},
		{Fingerprint: "C"},
	}}
	flags := rules.Evaluate(c, history)
	require.Len(t, flags, 1)
	assert.Equal(t, FlagDuplicateDocument, flags[0].Kind)
	assert.Equal(t, SeverityHigh, flags[0].Severity)
	assert.Contains(t, flags[0].Detail, "old-1")

	// One flag per duplicated document, in document order.
	c = Claim{ID: "new2", Documents: []DocumentRef{
		{Fingerprint: "B"},
		{Fingerprint: "A"},
	}}
	flags = rules.Evaluate(c, history)
	require.Len(t, flags, 2)
	assert.Contains(t, flags[0].Detail, "old-2")
	assert.Contains(t, flags[1].Detail, "old-1")
}

func TestFraudDuplicateIgnoresSelf(t *testing.T) {
	rules := NewFraudRules(0, 0)

	c := Claim{ID: "c1", Documents: []DocumentRef{{Fingerprint: "A"}}}
	// The claim itself appearing in history must not self-flag.
	assert.Empty(t, rules.Evaluate(c, []Claim{c}))
}

func TestFraudRapidResubmission(t *testing.T) {
	rules := NewFraudRules(0, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	prior := Claim{ID: "old", PolicyID: "pol-1", CreatedAt: now.Add(-6 * time.Hour)}
	c := Claim{ID: "new", PolicyID: "pol-1", CreatedAt: now}

	flags := rules.Evaluate(c, []Claim{prior})
	require.Len(t, flags, 1)
	assert.Equal(t, FlagRapidResubmission, flags[0].Kind)
	assert.Equal(t, SeverityMedium, flags[0].Severity)

	// Outside the cooldown.
	prior.CreatedAt = now.Add(-25 * time.Hour)
	assert.Empty(t, rules.Evaluate(c, []Claim{prior}))

	// Different policy never counts.
	prior = Claim{ID: "old", PolicyID: "pol-2", CreatedAt: now.Add(-time.Hour)}
	assert.Empty(t, rules.Evaluate(c, []Claim{prior}))
}

func TestFraudRapidResubmissionIgnoresIncompleteRecords(t *testing.T) {
	rules := NewFraudRules(0, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Records without a policy reference must not match each other: two empty
	// PolicyIDs are not the same policy.
	c := Claim{ID: "new", CreatedAt: now}
	prior := Claim{ID: "old", CreatedAt: now.Add(-time.Hour)}
	assert.Empty(t, rules.Evaluate(c, []Claim{prior}))

	// A zero timestamp on either side carries no resubmission signal.
	c = Claim{ID: "new", PolicyID: "pol-1", CreatedAt: now}
	prior = Claim{ID: "old", PolicyID: "pol-1"}
	assert.Empty(t, rules.Evaluate(c, []Claim{prior}))

	c = Claim{ID: "new", PolicyID: "pol-1"}
	prior = Claim{ID: "old", PolicyID: "pol-1", CreatedAt: now.Add(-time.Hour)}
	assert.Empty(t, rules.Evaluate(c, []Claim{prior}))
}

func TestFraudRulesUnion(t *testing.T) {
	rules := NewFraudRules(0, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	history := []Claim{{
		ID:        "old",
		PolicyID:  "pol-1",
		CreatedAt: now.Add(-2 * time.Hour),
		Documents: []DocumentRef{{Fingerprint: "A"}},
	}}
	c := Claim{
		ID:        "new",
		PolicyID:  "pol-1",
		Amount:    750_000,
		CreatedAt: now,
		Documents: []DocumentRef{{Fingerprint: "A"}},
	}

	flags := rules.Evaluate(c, history)
	require.Len(t, flags, 3)

	// Fixed rule order keeps the output deterministic.
	assert.Equal(t, FlagHighAmount, flags[0].Kind)
	assert.Equal(t, FlagDuplicateDocument, flags[1].Kind)
	assert.Equal(t, FlagRapidResubmission, flags[2].Kind)
}
