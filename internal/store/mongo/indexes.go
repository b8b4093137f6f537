package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensureCatalogIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure catalog indexes: %w", err)
	}
	if err := ensureClaimsIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure claims indexes: %w", err)
	}
	return nil
}

func ensureCatalogIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColCatalog)
	models := []mongo.IndexModel{
		newIndex("type", 1, "catalog_type", false),
		newIndex("premium", 1, "catalog_premium", false),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureClaimsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColClaims)
	models := []mongo.IndexModel{
		newIndex("user_id", 1, "claims_user_id", false),
		newIndex("status", 1, "claims_status", false),
		newIndex("policy_id", 1, "claims_policy_id", false),
		newIndex("created_at", 1, "claims_created_at", false),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func newIndex(field string, asc int32, name string, unique bool) mongo.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts = opts.SetUnique(true)
	}
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: asc}},
		Options: opts,
	}
}
