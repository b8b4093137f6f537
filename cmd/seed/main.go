package main

import (
	"context"
	"fmt"
	"time"

	"github.com/coverwise/marketcore/internal/core"
	"github.com/coverwise/marketcore/internal/platform/config"
	"github.com/coverwise/marketcore/internal/platform/logging"
	"github.com/coverwise/marketcore/internal/store/dynamo"
	"github.com/coverwise/marketcore/internal/store/mongo"
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		catalogRepo core.CatalogRepo
		profileRepo core.ProfileRepo
	)

	switch cfg.DBType {
	case "mongo":
		client, err := mongo.NewClient(cfg)
		if err != nil {
			log.Error("failed to connect to MongoDB", "err", err)
			return
		}
		defer client.Close(ctx)

		catalogRepo = mongo.NewCatalogRepo(client.DB, 5*time.Second)
		profileRepo = mongo.NewProfileRepo(client.DB, 5*time.Second)

	case "dynamodb":
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			log.Error("failed to connect to DynamoDB", "err", err)
			return
		}
		if err := dynamo.EnsureTables(ctx, client.DB, log); err != nil {
			log.Error("failed to ensure tables", "err", err)
			return
		}

		catalogRepo = dynamo.NewCatalogRepo(client)
		profileRepo = dynamo.NewProfileRepo(client)

	default:
		log.Error("unsupported DB_TYPE", "db_type", cfg.DBType)
		return
	}

	log.Info("seeding catalog")
	seedCatalog(ctx, catalogRepo)

	log.Info("seeding profiles")
	seedProfiles(ctx, profileRepo)

	log.Info("done seeding")
}

func seedCatalog(ctx context.Context, repo core.CatalogRepo) {
	policies := []core.Policy{
		{
			ID:       "health-secure-basic",
			Type:     core.PolicyTypeHealth,
			Name:     "SecureHealth Basic",
			Provider: "Meridian Mutual",
			Premium:  9600,
			Coverage: map[string]float64{
				"hospitalization": 300000,
				"outpatient":      50000,
				"prescription":    20000,
			},
			TermMonths:        12,
			Deductible:        ptr(1500.0),
			ClaimApprovalRate: ptr(0.88),
			ProviderRating:    ptr(4.1),
		},
		{
			ID:       "health-secure-plus",
			Type:     core.PolicyTypeHealth,
			Name:     "SecureHealth Plus",
			Provider: "Meridian Mutual",
			Premium:  15600,
			Coverage: map[string]float64{
				"hospitalization": 600000,
				"outpatient":      120000,
				"prescription":    40000,
				"dental":          15000,
				"maternity":       80000,
			},
			TermMonths:        12,
			Deductible:        ptr(750.0),
			ClaimApprovalRate: ptr(0.91),
			ProviderRating:    ptr(4.4),
		},
		{
			ID:       "life-term-20",
			Type:     core.PolicyTypeLife,
			Name:     "Term Life 20-Year",
			Provider: "Granite Assurance",
			Premium:  6000,
			Coverage: map[string]float64{
				"death_benefit": 750000,
			},
			TermMonths:        240,
			ClaimApprovalRate: ptr(0.96),
			ProviderRating:    ptr(4.6),
		},
		{
			ID:       "auto-roadguard-standard",
			Type:     core.PolicyTypeAuto,
			Name:     "RoadGuard Standard",
			Provider: "Pinnacle P&C",
			Premium:  11400,
			Coverage: map[string]float64{
				"collision":       80000,
				"liability":       250000,
				"theft":           40000,
				"roadside_assist": 5000,
			},
			TermMonths:        12,
			Deductible:        ptr(500.0),
			ClaimApprovalRate: ptr(0.82),
			ProviderRating:    ptr(3.8),
		},
		{
			ID:       "home-shield-complete",
			Type:     core.PolicyTypeHome,
			Name:     "HomeShield Complete",
			Provider: "Pinnacle P&C",
			Premium:  13200,
			Coverage: map[string]float64{
				"dwelling":          500000,
				"personal_property": 150000,
				"liability":         300000,
				"flood":             100000,
			},
			TermMonths:        12,
			Deductible:        ptr(1000.0),
			ClaimApprovalRate: ptr(0.85),
			ProviderRating:    ptr(4.0),
		},
		{
			ID:       "travel-voyager-annual",
			Type:     core.PolicyTypeTravel,
			Name:     "Voyager Annual Multi-Trip",
			Provider: "Atlas Cover",
			Premium:  2400,
			Coverage: map[string]float64{
				"medical_emergency": 150000,
				"trip_cancellation": 10000,
				"baggage":           3000,
			},
			TermMonths:     12,
			ProviderRating: ptr(4.2),
		},
	}

	for _, p := range policies {
		if err := repo.UpsertByID(ctx, p); err != nil {
			fmt.Printf("failed to seed %s: %v\n", p.ID, err)
		} else {
			fmt.Printf("seeded: %s\n", p.Name)
		}
	}
}

func seedProfiles(ctx context.Context, repo core.ProfileRepo) {
	profiles := []core.UserProfile{
		{
			ID:            "user-demo-1",
			RiskLevel:     core.RiskLevelLow,
			Dependents:    2,
			PreferredType: ptrType(core.PolicyTypeHealth),
			BudgetCeiling: ptr(15000.0),
		},
		{
			ID:         "user-demo-2",
			RiskLevel:  core.RiskLevelMedium,
			Dependents: 0,
		},
		{
			ID:            "user-demo-3",
			RiskLevel:     core.RiskLevelHigh,
			Dependents:    4,
			PreferredType: ptrType(core.PolicyTypeLife),
			BudgetCeiling: ptr(8000.0),
		},
	}

	for _, p := range profiles {
		if err := repo.Upsert(ctx, p); err != nil {
			fmt.Printf("failed to seed %s: %v\n", p.ID, err)
		} else {
			fmt.Printf("seeded: %s\n", p.ID)
		}
	}
}

func ptr(f float64) *float64 {
	return &f
}

func ptrType(t core.PolicyType) *core.PolicyType {
	return &t
}
