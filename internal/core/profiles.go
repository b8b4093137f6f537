package core

import (
	"context"
	"fmt"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// UserProfile holds stored preferences read from the profile store.
// PreferredType and BudgetCeiling are optional; request-time overrides take
// precedence field by field (see RecommendationService).
type UserProfile struct {
	ID            string      `json:"id"`
	RiskLevel     RiskLevel   `json:"risk_level"`
	Dependents    int         `json:"dependents"`
	PreferredType *PolicyType `json:"preferred_type,omitempty"`
	BudgetCeiling *float64    `json:"budget_ceiling,omitempty"`
}

type ProfileRepo interface {
	Get(ctx context.Context, id string) (UserProfile, error)
	Upsert(ctx context.Context, p UserProfile) error
}

func (p UserProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing profile id", ErrValidation)
	}
	switch p.RiskLevel {
	case RiskLevelLow, RiskLevelMedium, RiskLevelHigh:
	default:
		return fmt.Errorf("%w: unknown risk level %q", ErrValidation, p.RiskLevel)
	}
	if p.Dependents < 0 {
		return fmt.Errorf("%w: dependents must be non-negative", ErrValidation)
	}
	if p.BudgetCeiling != nil && *p.BudgetCeiling <= 0 {
		return fmt.Errorf("%w: budget ceiling must be > 0", ErrValidation)
	}
	return nil
}

var ErrProfileNotFound = fmt.Errorf("%w: user profile not found", ErrNotFound)
