package dynamo

import (
	"time"

	"github.com/coverwise/marketcore/internal/core"
)

// Times are stored as RFC3339 strings so GSI range conditions sort correctly.

type PolicyItem struct {
	ID                string             `dynamodbav:"id"`
	Type              string             `dynamodbav:"type"`
	Name              string             `dynamodbav:"name"`
	Provider          string             `dynamodbav:"provider"`
	Premium           float64            `dynamodbav:"premium"`
	Coverage          map[string]float64 `dynamodbav:"coverage,omitempty"`
	TermMonths        int                `dynamodbav:"term_months"`
	Deductible        *float64           `dynamodbav:"deductible,omitempty"`
	ClaimApprovalRate *float64           `dynamodbav:"claim_approval_rate,omitempty"`
	ProviderRating    *float64           `dynamodbav:"provider_rating,omitempty"`
}

func toPolicyItem(p core.Policy) PolicyItem {
	return PolicyItem{
		ID:                p.ID,
		Type:              string(p.Type),
		Name:              p.Name,
		Provider:          p.Provider,
		Premium:           p.Premium,
		Coverage:          p.Coverage,
		TermMonths:        p.TermMonths,
		Deductible:        p.Deductible,
		ClaimApprovalRate: p.ClaimApprovalRate,
		ProviderRating:    p.ProviderRating,
	}
}

func fromPolicyItem(it PolicyItem) core.Policy {
	return core.Policy{
		ID:                it.ID,
		Type:              core.PolicyType(it.Type),
		Name:              it.Name,
		Provider:          it.Provider,
		Premium:           it.Premium,
		Coverage:          it.Coverage,
		TermMonths:        it.TermMonths,
		Deductible:        it.Deductible,
		ClaimApprovalRate: it.ClaimApprovalRate,
		ProviderRating:    it.ProviderRating,
	}
}

type ProfileItem struct {
	ID            string   `dynamodbav:"id"`
	RiskLevel     string   `dynamodbav:"risk_level"`
	Dependents    int      `dynamodbav:"dependents"`
	PreferredType *string  `dynamodbav:"preferred_type,omitempty"`
	BudgetCeiling *float64 `dynamodbav:"budget_ceiling,omitempty"`
}

func toProfileItem(p core.UserProfile) ProfileItem {
	var preferred *string
	if p.PreferredType != nil {
		s := string(*p.PreferredType)
		preferred = &s
	}
	return ProfileItem{
		ID:            p.ID,
		RiskLevel:     string(p.RiskLevel),
		Dependents:    p.Dependents,
		PreferredType: preferred,
		BudgetCeiling: p.BudgetCeiling,
	}
}

func fromProfileItem(it ProfileItem) core.UserProfile {
	var preferred *core.PolicyType
	if it.PreferredType != nil {
		t := core.PolicyType(*it.PreferredType)
		preferred = &t
	}
	return core.UserProfile{
		ID:            it.ID,
		RiskLevel:     core.RiskLevel(it.RiskLevel),
		Dependents:    it.Dependents,
		PreferredType: preferred,
		BudgetCeiling: it.BudgetCeiling,
	}
}

type DocumentItem struct {
	Fingerprint string `dynamodbav:"fingerprint"`
	Name        string `dynamodbav:"name,omitempty"`
}

type FlagItem struct {
	Kind       string `dynamodbav:"kind"`
	Severity   string `dynamodbav:"severity"`
	Detail     string `dynamodbav:"detail"`
	Resolved   bool   `dynamodbav:"resolved"`
	ResolvedBy string `dynamodbav:"resolved_by,omitempty"`
}

type AuditItem struct {
	Actor  string `dynamodbav:"actor"`
	Action string `dynamodbav:"action"`
	At     string `dynamodbav:"at"`
	Reason string `dynamodbav:"reason,omitempty"`
}

type ClaimItem struct {
	ID             string         `dynamodbav:"id"`
	UserID         string         `dynamodbav:"user_id"`
	PolicyID       string         `dynamodbav:"policy_id"`
	Amount         float64        `dynamodbav:"amount"`
	IncidentDate   string         `dynamodbav:"incident_date"`
	Description    string         `dynamodbav:"description,omitempty"`
	Documents      []DocumentItem `dynamodbav:"documents,omitempty"`
	Status         string         `dynamodbav:"status"`
	ApprovedAmount *float64       `dynamodbav:"approved_amount,omitempty"`
	Flags          []FlagItem     `dynamodbav:"flags,omitempty"`
	Audit          []AuditItem    `dynamodbav:"audit"`
	CreatedAt      string         `dynamodbav:"created_at"`
	UpdatedAt      string         `dynamodbav:"updated_at"`
}

func toClaimItem(c core.Claim) ClaimItem {
	it := ClaimItem{
		ID:             c.ID,
		UserID:         c.UserID,
		PolicyID:       c.PolicyID,
		Amount:         c.Amount,
		IncidentDate:   c.IncidentDate.UTC().Format(time.RFC3339),
		Description:    c.Description,
		Status:         string(c.Status),
		ApprovedAmount: c.ApprovedAmount,
		CreatedAt:      c.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:      c.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	for _, d := range c.Documents {
		it.Documents = append(it.Documents, DocumentItem{Fingerprint: d.Fingerprint, Name: d.Name})
	}
	for _, f := range c.Flags {
		it.Flags = append(it.Flags, FlagItem{
			Kind:       string(f.Kind),
			Severity:   string(f.Severity),
			Detail:     f.Detail,
			Resolved:   f.Resolved,
			ResolvedBy: f.ResolvedBy,
		})
	}
	if it.Audit == nil {
		it.Audit = []AuditItem{}
	}
	for _, e := range c.Audit {
		it.Audit = append(it.Audit, toAuditItem(e))
	}
	return it
}

func fromClaimItem(it ClaimItem) core.Claim {
	c := core.Claim{
		ID:             it.ID,
		UserID:         it.UserID,
		PolicyID:       it.PolicyID,
		Amount:         it.Amount,
		IncidentDate:   parseTime(it.IncidentDate),
		Description:    it.Description,
		Status:         core.ClaimStatus(it.Status),
		ApprovedAmount: it.ApprovedAmount,
		CreatedAt:      parseTime(it.CreatedAt),
		UpdatedAt:      parseTime(it.UpdatedAt),
	}
	for _, d := range it.Documents {
		c.Documents = append(c.Documents, core.DocumentRef{Fingerprint: d.Fingerprint, Name: d.Name})
	}
	for _, f := range it.Flags {
		c.Flags = append(c.Flags, core.FraudFlag{
			Kind:       core.FraudFlagKind(f.Kind),
			Severity:   core.FraudSeverity(f.Severity),
			Detail:     f.Detail,
			Resolved:   f.Resolved,
			ResolvedBy: f.ResolvedBy,
		})
	}
	for _, e := range it.Audit {
		c.Audit = append(c.Audit, core.AuditEntry{
			Actor:  e.Actor,
			Action: core.ClaimAction(e.Action),
			At:     parseTime(e.At),
			Reason: e.Reason,
		})
	}
	return c
}

func toAuditItem(e core.AuditEntry) AuditItem {
	return AuditItem{
		Actor:  e.Actor,
		Action: string(e.Action),
		At:     e.At.UTC().Format(time.RFC3339Nano),
		Reason: e.Reason,
	}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
