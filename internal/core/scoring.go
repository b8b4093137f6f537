package core

import (
	"math"
	"sort"
)

// Weighting of the four scoring factors. Must sum to 1.
const (
	WeightCoverage = 0.35
	WeightClaim    = 0.30
	WeightRating   = 0.20
	WeightPrice    = 0.15
)

const (
	// NeutralSubScore is used whenever an optional policy field is absent.
	// Incomplete catalog entries degrade instead of failing.
	NeutralSubScore = 50.0

	// DefaultCoverageCeiling is the reference against which the summed
	// coverage amounts are normalized.
	DefaultCoverageCeiling = 1_000_000.0

	// coverageBreadthRef is the entry count treated as full breadth.
	coverageBreadthRef = 5.0

	// Price saturation: premium <= 20% of the reference scores 100,
	// premium >= 2x the reference scores 0.
	priceFloorRatio = 0.2
	priceCeilRatio  = 2.0

	// MaxReasons caps the explanation list per result.
	MaxReasons = 4

	reasonHighThreshold = 70.0
	reasonLowThreshold  = 30.0
)

// ScoreBreakdown carries the normalized sub-scores and the weighted total.
// All values are in [0,100]; Total is rounded to one decimal.
type ScoreBreakdown struct {
	Coverage float64 `json:"coverage"`
	Claim    float64 `json:"claim"`
	Rating   float64 `json:"rating"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

// Scorer computes an explainable score for one (policy, profile) pair.
// It is a pure function of its inputs: no I/O, no hidden state, safe for
// concurrent use.
type Scorer struct {
	coverageCeiling float64
}

func NewScorer(coverageCeiling float64) *Scorer {
	if coverageCeiling <= 0 {
		coverageCeiling = DefaultCoverageCeiling
	}
	return &Scorer{coverageCeiling: coverageCeiling}
}

// Score returns the weighted score and up to MaxReasons human-readable
// reasons, ordered by descending weighted contribution. priceRef is the
// premium reference: the profile's budget ceiling when set, otherwise the
// candidate set's median premium. A non-positive priceRef yields a neutral
// price sub-score.
func (s *Scorer) Score(p Policy, prof UserProfile, priceRef float64) (ScoreBreakdown, []string) {
	b := ScoreBreakdown{
		Coverage: s.coverageScore(p),
		Claim:    claimScore(p),
		Rating:   ratingScore(p),
		Price:    priceScore(p.Premium, priceRef),
	}
	total := WeightCoverage*b.Coverage + WeightClaim*b.Claim + WeightRating*b.Rating + WeightPrice*b.Price
	b.Total = round1(total)

	return b, buildReasons(b, p, prof)
}

func (s *Scorer) coverageScore(p Policy) float64 {
	if len(p.Coverage) == 0 {
		return NeutralSubScore
	}
	var total float64
	for _, amount := range p.Coverage {
		if amount > 0 {
			total += amount
		}
	}
	magnitude := clamp01(total / s.coverageCeiling)
	breadth := clamp01(float64(len(p.Coverage)) / coverageBreadthRef)
	return 100 * (0.6*magnitude + 0.4*breadth)
}

func claimScore(p Policy) float64 {
	if p.ClaimApprovalRate == nil {
		return NeutralSubScore
	}
	return 100 * clamp01(*p.ClaimApprovalRate)
}

func ratingScore(p Policy) float64 {
	if p.ProviderRating == nil {
		return NeutralSubScore
	}
	return 100 * clamp01(*p.ProviderRating/5.0)
}

// priceScore maps premium/reference monotonically onto [0,100]: saturated at
// 100 below priceFloorRatio, 0 above priceCeilRatio, with a concave decay in
// between so that mid-range premiums (ratio 0.8) land near the mid fifties.
func priceScore(premium, priceRef float64) float64 {
	if priceRef <= 0 {
		return NeutralSubScore
	}
	ratio := premium / priceRef
	switch {
	case ratio <= priceFloorRatio:
		return 100
	case ratio >= priceCeilRatio:
		return 0
	}
	remain := 1 - (ratio-priceFloorRatio)/(priceCeilRatio-priceFloorRatio)
	return 100 * math.Pow(remain, 1.5)
}

type reason struct {
	contribution float64
	order        int // fixed factor order for deterministic ties
	text         string
}

func buildReasons(b ScoreBreakdown, p Policy, prof UserProfile) []string {
	var rs []reason

	add := func(sub, weight float64, order int, text string) {
		rs = append(rs, reason{contribution: sub * weight, order: order, text: text})
	}

	switch {
	case b.Coverage >= reasonHighThreshold:
		add(b.Coverage, WeightCoverage, 0, "broad coverage relative to comparable policies")
	case b.Coverage <= reasonLowThreshold:
		add(b.Coverage, WeightCoverage, 0, "thin coverage relative to comparable policies")
	}

	switch {
	case b.Claim >= reasonHighThreshold:
		add(b.Claim, WeightClaim, 1, "strong history of approved claims")
	case b.Claim <= reasonLowThreshold:
		add(b.Claim, WeightClaim, 1, "weak claim approval history")
	}

	switch {
	case b.Rating >= reasonHighThreshold:
		add(b.Rating, WeightRating, 2, "highly rated provider")
	case b.Rating <= reasonLowThreshold:
		add(b.Rating, WeightRating, 2, "provider rated below average")
	}

	switch {
	case b.Price >= reasonHighThreshold:
		add(b.Price, WeightPrice, 3, "priced well below comparable policies")
	case prof.BudgetCeiling != nil && p.Premium <= *prof.BudgetCeiling:
		add(b.Price, WeightPrice, 3, "fits within your budget")
	case b.Price <= reasonLowThreshold:
		add(b.Price, WeightPrice, 3, "expensive relative to comparable policies")
	}

	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].contribution != rs[j].contribution {
			return rs[i].contribution > rs[j].contribution
		}
		return rs[i].order < rs[j].order
	})

	out := make([]string, 0, len(rs))
	for _, r := range rs {
		if len(out) == MaxReasons {
			break
		}
		out = append(out, r.text)
	}
	return out
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
