package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestPriceScoreSaturation(t *testing.T) {
	// At or below 20% of the reference the price factor is maxed out.
	assert.Equal(t, 100.0, priceScore(100, 1000))
	assert.Equal(t, 100.0, priceScore(200, 1000))

	// At or above 2x the reference it bottoms out.
	assert.Equal(t, 0.0, priceScore(2000, 1000))
	assert.Equal(t, 0.0, priceScore(5000, 1000))

	// Mid-range premiums land in the mid fifties.
	assert.InDelta(t, 54.4, priceScore(800, 1000), 0.1)

	// No reference means neutral.
	assert.Equal(t, NeutralSubScore, priceScore(800, 0))
}

func TestPriceScoreMonotonic(t *testing.T) {
	prev := 101.0
	for premium := 100.0; premium <= 2100; premium += 50 {
		score := priceScore(premium, 1000)
		assert.LessOrEqual(t, score, prev, "premium %.0f", premium)
		prev = score
	}
}

func TestScoreMissingOptionalFieldsAreNeutral(t *testing.T) {
	scorer := NewScorer(0)

	// Premium 12000 against a 15000 budget: every other factor neutral.
	p := Policy{ID: "p1", Type: PolicyTypeHealth, Name: "Bare", Provider: "X", Premium: 12000, TermMonths: 12}
	prof := UserProfile{ID: "u1", BudgetCeiling: f64(15000)}

	b, reasons := scorer.Score(p, prof, 15000)

	assert.Equal(t, NeutralSubScore, b.Coverage)
	assert.Equal(t, NeutralSubScore, b.Claim)
	assert.Equal(t, NeutralSubScore, b.Rating)
	assert.InDelta(t, 50.7, b.Total, 0.15)

	// The only reason is the budget fit; neutral factors stay silent.
	assert.Contains(t, reasons, "fits within your budget")
	assert.NotContains(t, reasons, "broad coverage relative to comparable policies")
	assert.NotContains(t, reasons, "thin coverage relative to comparable policies")
}

func TestScoreSaturatesAtMaximum(t *testing.T) {
	scorer := NewScorer(1_000_000)

	// Every factor at its ceiling: coverage maxed on magnitude and breadth,
	// perfect approval history, top rating, premium at the price floor.
	p := Policy{
		ID:      "best",
		Premium: 2000,
		Coverage: map[string]float64{
			"a": 400000, "b": 300000, "c": 200000, "d": 100000, "e": 50000,
		},
		ClaimApprovalRate: f64(1.0),
		ProviderRating:    f64(5.0),
	}

	b, _ := scorer.Score(p, UserProfile{}, 10000)

	assert.Equal(t, 100.0, b.Coverage)
	assert.Equal(t, 100.0, b.Claim)
	assert.Equal(t, 100.0, b.Rating)
	assert.Equal(t, 100.0, b.Price)
	assert.Equal(t, 100.0, b.Total)
}

func TestScoreBoundsAndDeterminism(t *testing.T) {
	scorer := NewScorer(0)
	policies := []Policy{
		{ID: "a", Premium: 100, Coverage: map[string]float64{"x": 2_000_000}},
		{ID: "b", Premium: 50000, ClaimApprovalRate: f64(0.1), ProviderRating: f64(1.0)},
		{ID: "c", Premium: 9000, Coverage: map[string]float64{"x": 100000, "y": 50000}, ClaimApprovalRate: f64(0.95), ProviderRating: f64(4.8)},
	}
	prof := UserProfile{ID: "u1"}

	for _, p := range policies {
		b1, r1 := scorer.Score(p, prof, 10000)
		b2, r2 := scorer.Score(p, prof, 10000)

		assert.GreaterOrEqual(t, b1.Total, 0.0)
		assert.LessOrEqual(t, b1.Total, 100.0)
		assert.Equal(t, b1, b2, "scoring must be deterministic")
		assert.Equal(t, r1, r2)
	}
}

func TestScoreCoverageFactor(t *testing.T) {
	scorer := NewScorer(1_000_000)

	// Full magnitude and full breadth.
	broad := Policy{ID: "broad", Premium: 1000, Coverage: map[string]float64{
		"a": 400000, "b": 300000, "c": 200000, "d": 100000, "e": 50000,
	}}
	b, _ := scorer.Score(broad, UserProfile{}, 0)
	assert.Equal(t, 100.0, b.Coverage)

	// A single small entry scores low on both magnitude and breadth.
	thin := Policy{ID: "thin", Premium: 1000, Coverage: map[string]float64{"a": 10000}}
	b, _ = scorer.Score(thin, UserProfile{}, 0)
	assert.Less(t, b.Coverage, 10.0)

	// Negative amounts are ignored rather than subtracted.
	weird := Policy{ID: "weird", Premium: 1000, Coverage: map[string]float64{"a": 100000, "b": -50000}}
	b, _ = scorer.Score(weird, UserProfile{}, 0)
	assert.Greater(t, b.Coverage, 0.0)
}

func TestScoreReasonsOrderedByContribution(t *testing.T) {
	scorer := NewScorer(1_000_000)

	p := Policy{
		ID:      "p1",
		Premium: 1000,
		Coverage: map[string]float64{
			"a": 400000, "b": 300000, "c": 200000, "d": 100000, "e": 50000,
		},
		ClaimApprovalRate: f64(0.95),
		ProviderRating:    f64(4.5),
	}

	// priceRef makes the ratio 0.1, so every factor fires its positive reason.
	_, reasons := scorer.Score(p, UserProfile{}, 10000)

	require.Len(t, reasons, MaxReasons)
	assert.Equal(t, []string{
		"broad coverage relative to comparable policies", // 0.35 * 100
		"strong history of approved claims",              // 0.30 * 95
		"highly rated provider",                          // 0.20 * 90
		"priced well below comparable policies",          // 0.15 * 100
	}, reasons)
}

func TestScoreNegativeReasons(t *testing.T) {
	scorer := NewScorer(1_000_000)

	p := Policy{
		ID:                "p1",
		Premium:           30000,
		Coverage:          map[string]float64{"a": 5000},
		ClaimApprovalRate: f64(0.2),
		ProviderRating:    f64(1.0),
	}

	_, reasons := scorer.Score(p, UserProfile{}, 10000)

	assert.Contains(t, reasons, "thin coverage relative to comparable policies")
	assert.Contains(t, reasons, "weak claim approval history")
	assert.Contains(t, reasons, "provider rated below average")
	assert.Contains(t, reasons, "expensive relative to comparable policies")
}
