package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/coverwise/marketcore/internal/core"
)

type ProfileRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewProfileRepo(db *mongodrv.Database, opTimeout time.Duration) *ProfileRepoMongo {
	return &ProfileRepoMongo{
		coll:      db.Collection(ColProfiles),
		opTimeout: opTimeout,
	}
}

func (repo *ProfileRepoMongo) Get(ctx context.Context, id string) (core.UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc ProfileDoc
	err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.UserProfile{}, core.ErrProfileNotFound
		}
		return core.UserProfile{}, fmt.Errorf("profiles.findOne: %w", err)
	}
	return fromProfileDoc(doc), nil
}

func (repo *ProfileRepoMongo) Upsert(ctx context.Context, p core.UserProfile) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	doc := toProfileDoc(p)
	opts := options.Replace().SetUpsert(true)
	if _, err := repo.coll.ReplaceOne(ctx, bson.M{"_id": p.ID}, doc, opts); err != nil {
		return fmt.Errorf("profiles.upsert: %w", err)
	}
	return nil
}
