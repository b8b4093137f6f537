package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

type recommendationService struct {
	catalog  CatalogRepo
	profiles ProfileRepo
	scorer   *Scorer
}

func NewRecommendationService(catalog CatalogRepo, profiles ProfileRepo, scorer *Scorer) RecommendationService {
	if scorer == nil {
		scorer = NewScorer(0)
	}
	return &recommendationService{
		catalog:  catalog,
		profiles: profiles,
		scorer:   scorer,
	}
}

func (s *recommendationService) Recommend(ctx context.Context, userID string, ov RecommendationOverrides) ([]RecommendationResult, error) {
	// 1) Validate inputs before touching any collaborator
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user ID", ErrValidation)
	}
	if err := ov.Validate(); err != nil {
		return nil, err
	}

	// 2) Load stored profile
	prof, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %q", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("%w: profile store: %v", ErrUnavailable, err)
	}

	// 3) Overlay overrides: a set override wins wholesale over the stored
	// preference for that field.
	effective := prof
	if ov.Type != nil {
		effective.PreferredType = ov.Type
	}
	if ov.Budget != nil {
		effective.BudgetCeiling = ov.Budget
	}

	// 4) Pull catalog snapshot
	candidates, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: policy catalog: %v", ErrUnavailable, err)
	}

	// 5) Hard filters before any scoring
	filtered := candidates[:0:0]
	for _, p := range candidates {
		if effective.PreferredType != nil && p.Type != *effective.PreferredType {
			continue
		}
		if effective.BudgetCeiling != nil && p.Premium > *effective.BudgetCeiling {
			continue
		}
		filtered = append(filtered, p)
	}
	if len(filtered) == 0 {
		return []RecommendationResult{}, nil
	}

	// 6) Price reference: budget ceiling when set, else the candidate set's
	// median premium.
	priceRef := medianPremium(filtered)
	if effective.BudgetCeiling != nil {
		priceRef = *effective.BudgetCeiling
	}

	// 7) Score and sort (descending score, ascending premium, then policy ID
	// for determinism)
	results := make([]RecommendationResult, 0, len(filtered))
	for _, p := range filtered {
		breakdown, reasons := s.scorer.Score(p, effective, priceRef)
		results = append(results, RecommendationResult{
			Policy:    p,
			Score:     breakdown.Total,
			Breakdown: breakdown,
			Reasons:   reasons,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Policy.Premium != results[j].Policy.Premium {
			return results[i].Policy.Premium < results[j].Policy.Premium
		}
		return results[i].Policy.ID < results[j].Policy.ID
	})

	for i := range results {
		results[i].Rank = i + 1
	}
	return results, nil
}

func medianPremium(policies []Policy) float64 {
	premiums := make([]float64, len(policies))
	for i, p := range policies {
		premiums[i] = p.Premium
	}
	sort.Float64s(premiums)
	mid := len(premiums) / 2
	if len(premiums)%2 == 0 {
		return (premiums[mid-1] + premiums[mid]) / 2
	}
	return premiums[mid]
}
