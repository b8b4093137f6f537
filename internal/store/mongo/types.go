package mongo

import (
	"strconv"
	"time"

	"github.com/coverwise/marketcore/internal/core"
)

const (
	ColCatalog  = "catalog_policies"
	ColProfiles = "user_profiles"
	ColClaims   = "claims"
)

// PolicyDoc tolerates the loosely-shaped catalog rows upstream systems
// write: coverage values may be numbers or numeric strings. fromPolicyDoc
// normalizes everything into the strict core.Policy shape.
type PolicyDoc struct {
	ID                string                 `bson:"_id"`
	Type              string                 `bson:"type"`
	Name              string                 `bson:"name"`
	Provider          string                 `bson:"provider"`
	Premium           float64                `bson:"premium"`
	Coverage          map[string]interface{} `bson:"coverage,omitempty"`
	TermMonths        int                    `bson:"term_months"`
	Deductible        *float64               `bson:"deductible,omitempty"`
	ClaimApprovalRate *float64               `bson:"claim_approval_rate,omitempty"`
	ProviderRating    *float64               `bson:"provider_rating,omitempty"`
}

func fromPolicyDoc(d PolicyDoc) core.Policy {
	return core.Policy{
		ID:                d.ID,
		Type:              core.PolicyType(d.Type),
		Name:              d.Name,
		Provider:          d.Provider,
		Premium:           d.Premium,
		Coverage:          normalizeCoverage(d.Coverage),
		TermMonths:        d.TermMonths,
		Deductible:        d.Deductible,
		ClaimApprovalRate: d.ClaimApprovalRate,
		ProviderRating:    d.ProviderRating,
	}
}

func toPolicyDoc(p core.Policy) PolicyDoc {
	coverage := make(map[string]interface{}, len(p.Coverage))
	for k, v := range p.Coverage {
		coverage[k] = v
	}
	return PolicyDoc{
		ID:                p.ID,
		Type:              string(p.Type),
		Name:              p.Name,
		Provider:          p.Provider,
		Premium:           p.Premium,
		Coverage:          coverage,
		TermMonths:        p.TermMonths,
		Deductible:        p.Deductible,
		ClaimApprovalRate: p.ClaimApprovalRate,
		ProviderRating:    p.ProviderRating,
	}
}

// normalizeCoverage keeps numeric values (including numeric strings) and
// drops anything else, so scoring never sees a mixed-type map.
func normalizeCoverage(raw map[string]interface{}) map[string]float64 {
	if raw == nil {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case float32:
			out[k] = float64(n)
		case int32:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case int:
			out[k] = float64(n)
		case string:
			if f, err := strconv.ParseFloat(n, 64); err == nil {
				out[k] = f
			}
		}
	}
	return out
}

type ProfileDoc struct {
	ID            string   `bson:"_id"`
	RiskLevel     string   `bson:"risk_level"`
	Dependents    int      `bson:"dependents"`
	PreferredType *string  `bson:"preferred_type,omitempty"`
	BudgetCeiling *float64 `bson:"budget_ceiling,omitempty"`
}

func fromProfileDoc(d ProfileDoc) core.UserProfile {
	var preferred *core.PolicyType
	if d.PreferredType != nil {
		t := core.PolicyType(*d.PreferredType)
		preferred = &t
	}
	return core.UserProfile{
		ID:            d.ID,
		RiskLevel:     core.RiskLevel(d.RiskLevel),
		Dependents:    d.Dependents,
		PreferredType: preferred,
		BudgetCeiling: d.BudgetCeiling,
	}
}

func toProfileDoc(p core.UserProfile) ProfileDoc {
	var preferred *string
	if p.PreferredType != nil {
		s := string(*p.PreferredType)
		preferred = &s
	}
	return ProfileDoc{
		ID:            p.ID,
		RiskLevel:     string(p.RiskLevel),
		Dependents:    p.Dependents,
		PreferredType: preferred,
		BudgetCeiling: p.BudgetCeiling,
	}
}

type DocumentDoc struct {
	Fingerprint string `bson:"fingerprint"`
	Name        string `bson:"name,omitempty"`
}

type FlagDoc struct {
	Kind       string `bson:"kind"`
	Severity   string `bson:"severity"`
	Detail     string `bson:"detail"`
	Resolved   bool   `bson:"resolved"`
	ResolvedBy string `bson:"resolved_by,omitempty"`
}

type AuditDoc struct {
	Actor  string    `bson:"actor"`
	Action string    `bson:"action"`
	At     time.Time `bson:"at"`
	Reason string    `bson:"reason,omitempty"`
}

type ClaimDoc struct {
	ID             string        `bson:"_id"`
	UserID         string        `bson:"user_id"`
	PolicyID       string        `bson:"policy_id"`
	Amount         float64       `bson:"amount"`
	IncidentDate   time.Time     `bson:"incident_date"`
	Description    string        `bson:"description,omitempty"`
	Documents      []DocumentDoc `bson:"documents,omitempty"`
	Status         string        `bson:"status"`
	ApprovedAmount *float64      `bson:"approved_amount,omitempty"`
	Flags          []FlagDoc     `bson:"flags,omitempty"`
	Audit          []AuditDoc    `bson:"audit"`
	CreatedAt      time.Time     `bson:"created_at"`
	UpdatedAt      time.Time     `bson:"updated_at"`
}

func toClaimDoc(c core.Claim) ClaimDoc {
	doc := ClaimDoc{
		ID:             c.ID,
		UserID:         c.UserID,
		PolicyID:       c.PolicyID,
		Amount:         c.Amount,
		IncidentDate:   c.IncidentDate,
		Description:    c.Description,
		Status:         string(c.Status),
		ApprovedAmount: c.ApprovedAmount,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	for _, d := range c.Documents {
		doc.Documents = append(doc.Documents, DocumentDoc{Fingerprint: d.Fingerprint, Name: d.Name})
	}
	for _, f := range c.Flags {
		doc.Flags = append(doc.Flags, FlagDoc{
			Kind:       string(f.Kind),
			Severity:   string(f.Severity),
			Detail:     f.Detail,
			Resolved:   f.Resolved,
			ResolvedBy: f.ResolvedBy,
		})
	}
	for _, e := range c.Audit {
		doc.Audit = append(doc.Audit, toAuditDoc(e))
	}
	return doc
}

func fromClaimDoc(d ClaimDoc) core.Claim {
	c := core.Claim{
		ID:             d.ID,
		UserID:         d.UserID,
		PolicyID:       d.PolicyID,
		Amount:         d.Amount,
		IncidentDate:   d.IncidentDate,
		Description:    d.Description,
		Status:         core.ClaimStatus(d.Status),
		ApprovedAmount: d.ApprovedAmount,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, doc := range d.Documents {
		c.Documents = append(c.Documents, core.DocumentRef{Fingerprint: doc.Fingerprint, Name: doc.Name})
	}
	for _, f := range d.Flags {
		c.Flags = append(c.Flags, core.FraudFlag{
			Kind:       core.FraudFlagKind(f.Kind),
			Severity:   core.FraudSeverity(f.Severity),
			Detail:     f.Detail,
			Resolved:   f.Resolved,
			ResolvedBy: f.ResolvedBy,
		})
	}
	for _, e := range d.Audit {
		c.Audit = append(c.Audit, core.AuditEntry{
			Actor:  e.Actor,
			Action: core.ClaimAction(e.Action),
			At:     e.At,
			Reason: e.Reason,
		})
	}
	return c
}

func toAuditDoc(e core.AuditEntry) AuditDoc {
	return AuditDoc{
		Actor:  e.Actor,
		Action: string(e.Action),
		At:     e.At,
		Reason: e.Reason,
	}
}
