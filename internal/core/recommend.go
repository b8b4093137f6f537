package core

import (
	"context"
	"fmt"
)

// RecommendationResult is the ephemeral output of one ranking request.
// It is never persisted.
type RecommendationResult struct {
	Policy    Policy         `json:"policy"`
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
	Reasons   []string       `json:"reasons"`
	Rank      int            `json:"rank"`
}

// RecommendationOverrides carries request-time filter overrides. A set field
// replaces the stored profile value for that field entirely; overrides never
// partially merge with stale profile values.
type RecommendationOverrides struct {
	Type   *PolicyType `json:"type,omitempty"`
	Budget *float64    `json:"budget,omitempty"`
}

// RecommendationService ranks catalog policies for one user. Pure read path:
// a function of (profile, overrides, catalog snapshot), no writes.
type RecommendationService interface {
	Recommend(ctx context.Context, userID string, ov RecommendationOverrides) ([]RecommendationResult, error)
}

func (ov RecommendationOverrides) Validate() error {
	if ov.Budget != nil && *ov.Budget <= 0 {
		return fmt.Errorf("%w: budget must be > 0", ErrValidation)
	}
	if ov.Type != nil {
		if _, err := ParsePolicyType(string(*ov.Type)); err != nil {
			return err
		}
	}
	return nil
}
