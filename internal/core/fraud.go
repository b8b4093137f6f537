package core

import (
	"fmt"
	"time"
)

const (
	// DefaultHighAmountThreshold is the absolute claimed amount above which a
	// claim is flagged for mandatory review.
	DefaultHighAmountThreshold = 500_000.0

	// DefaultResubmissionCooldown is the window within which a second claim
	// against the same policy counts as a rapid resubmission.
	DefaultResubmissionCooldown = 24 * time.Hour
)

// FraudRules evaluates a claim against the fixed heuristic rule set. Each
// rule fires independently; the output is the union of everything that fired,
// in fixed rule order so identical input yields identical output. Evaluation
// never mutates the claim and raises every flag unresolved; resolution is a
// reviewer action, never automatic.
type FraudRules struct {
	highAmountThreshold  float64
	resubmissionCooldown time.Duration
}

func NewFraudRules(highAmountThreshold float64, resubmissionCooldown time.Duration) *FraudRules {
	if highAmountThreshold <= 0 {
		highAmountThreshold = DefaultHighAmountThreshold
	}
	if resubmissionCooldown <= 0 {
		resubmissionCooldown = DefaultResubmissionCooldown
	}
	return &FraudRules{
		highAmountThreshold:  highAmountThreshold,
		resubmissionCooldown: resubmissionCooldown,
	}
}

// Evaluate runs all rules against the claim. history holds the user's prior
// claims; the claim under evaluation is skipped if present.
func (r *FraudRules) Evaluate(c Claim, history []Claim) []FraudFlag {
	var flags []FraudFlag
	flags = append(flags, r.highAmount(c)...)
	flags = append(flags, r.duplicateDocuments(c, history)...)
	flags = append(flags, r.rapidResubmission(c, history)...)
	return flags
}

func (r *FraudRules) highAmount(c Claim) []FraudFlag {
	if c.Amount <= r.highAmountThreshold {
		return nil
	}
	return []FraudFlag{{
		Kind:     FlagHighAmount,
		Severity: SeverityHigh,
		Detail:   fmt.Sprintf("claimed amount %.2f exceeds threshold %.2f", c.Amount, r.highAmountThreshold),
	}}
}

// duplicateDocuments compares content fingerprints, not filenames, against
// every document attached to the user's prior claims. One flag per duplicated
// document, in document order.
func (r *FraudRules) duplicateDocuments(c Claim, history []Claim) []FraudFlag {
	seen := make(map[string]string) // fingerprint -> prior claim ID
	for _, prior := range history {
		if prior.ID == c.ID {
			continue
		}
		for _, d := range prior.Documents {
			if _, ok := seen[d.Fingerprint]; !ok {
				seen[d.Fingerprint] = prior.ID
			}
		}
	}

	var flags []FraudFlag
	for _, d := range c.Documents {
		if priorID, ok := seen[d.Fingerprint]; ok {
			flags = append(flags, FraudFlag{
				Kind:     FlagDuplicateDocument,
				Severity: SeverityHigh,
				Detail:   fmt.Sprintf("document fingerprint %s already attached to claim %s", d.Fingerprint, priorID),
			})
		}
	}
	return flags
}

// rapidResubmission only considers fully populated records: a claim with no
// policy reference or no timestamp carries no resubmission signal.
func (r *FraudRules) rapidResubmission(c Claim, history []Claim) []FraudFlag {
	if c.PolicyID == "" || c.CreatedAt.IsZero() {
		return nil
	}
	for _, prior := range history {
		if prior.ID == c.ID || prior.PolicyID != c.PolicyID {
			continue
		}
		if prior.CreatedAt.IsZero() {
			continue
		}
		gap := c.CreatedAt.Sub(prior.CreatedAt)
		if gap >= 0 && gap < r.resubmissionCooldown {
			return []FraudFlag{{
				Kind:     FlagRapidResubmission,
				Severity: SeverityMedium,
				Detail:   fmt.Sprintf("claim against policy %s within %s of claim %s", c.PolicyID, r.resubmissionCooldown, prior.ID),
			}}
		}
	}
	return nil
}
