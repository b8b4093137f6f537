package core

import (
	"context"
	"fmt"
)

type PolicyType string

const (
	PolicyTypeHealth PolicyType = "health"
	PolicyTypeLife   PolicyType = "life"
	PolicyTypeAuto   PolicyType = "auto"
	PolicyTypeHome   PolicyType = "home"
	PolicyTypeTravel PolicyType = "travel"
)

// ParsePolicyType validates a raw type string from a request or catalog row.
func ParsePolicyType(s string) (PolicyType, error) {
	switch t := PolicyType(s); t {
	case PolicyTypeHealth, PolicyTypeLife, PolicyTypeAuto, PolicyTypeHome, PolicyTypeTravel:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown policy type %q", ErrValidation, s)
}

// Policy is one catalog entry. Optional fields are explicit pointers so that
// scoring never branches on "does this field exist"; the store layer
// normalizes whatever shape the catalog row had into this struct.
// A Policy is immutable for the duration of a scoring run.
type Policy struct {
	ID         string             `json:"id"`
	Type       PolicyType         `json:"type"`
	Name       string             `json:"name"`
	Provider   string             `json:"provider"`
	Premium    float64            `json:"premium"` // per term, non-negative
	Coverage   map[string]float64 `json:"coverage"`
	TermMonths int                `json:"term_months"`
	Deductible *float64           `json:"deductible,omitempty"`

	// Historical signals used by scoring; both optional.
	ClaimApprovalRate *float64 `json:"claim_approval_rate,omitempty"` // [0,1]
	ProviderRating    *float64 `json:"provider_rating,omitempty"`    // [0,5]
}

type CatalogRepo interface {
	List(ctx context.Context) ([]Policy, error)
	Get(ctx context.Context, id string) (Policy, error)
	UpsertByID(ctx context.Context, p Policy) error
}

func (p Policy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing policy id", ErrValidation)
	}
	if _, err := ParsePolicyType(string(p.Type)); err != nil {
		return err
	}
	if p.Premium < 0 {
		return fmt.Errorf("%w: premium must be non-negative", ErrValidation)
	}
	if p.TermMonths <= 0 {
		return fmt.Errorf("%w: term must be > 0 months", ErrValidation)
	}
	if p.Provider == "" {
		return fmt.Errorf("%w: missing provider", ErrValidation)
	}
	return nil
}

var ErrPolicyNotFound = fmt.Errorf("%w: policy not found", ErrNotFound)
