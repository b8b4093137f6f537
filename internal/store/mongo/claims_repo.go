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

type ClaimRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewClaimRepo(db *mongodrv.Database, opTimeout time.Duration) *ClaimRepoMongo {
	return &ClaimRepoMongo{
		coll:      db.Collection(ColClaims),
		opTimeout: opTimeout,
	}
}

func (repo *ClaimRepoMongo) Create(ctx context.Context, c core.Claim) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	doc := toClaimDoc(c)
	_, err := repo.coll.InsertOne(ctx, doc)
	if err != nil {
		var we mongodrv.WriteException
		if errors.As(err, &we) {
			for _, e := range we.WriteErrors {
				if e.Code == 11000 {
					return core.ErrConflict
				}
			}
		}
		return fmt.Errorf("claims.insert: %w", err)
	}
	return nil
}

func (repo *ClaimRepoMongo) Get(ctx context.Context, id string) (core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	var doc ClaimDoc
	err := repo.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Claim{}, core.ErrClaimNotFound
		}
		return core.Claim{}, fmt.Errorf("claims.findOne: %w", err)
	}
	return fromClaimDoc(doc), nil
}

func (repo *ClaimRepoMongo) ListByUser(ctx context.Context, userID string, limit int) ([]core.Claim, error) {
	return repo.find(ctx, bson.M{"user_id": userID}, limit)
}

func (repo *ClaimRepoMongo) FindByStatus(ctx context.Context, status core.ClaimStatus, limit int) ([]core.Claim, error) {
	return repo.find(ctx, bson.M{"status": string(status)}, limit)
}

func (repo *ClaimRepoMongo) find(ctx context.Context, filter bson.M, limit int) ([]core.Claim, error) {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("claims.find: %w", err)
	}
	defer cursor.Close(ctx)

	var claims []core.Claim
	for cursor.Next(ctx) {
		var doc ClaimDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("claims.decode: %w", err)
		}
		claims = append(claims, fromClaimDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("claims.cursor: %w", err)
	}
	return claims, nil
}

// AppendTransition is a single conditional write: status change, optional
// approved amount, and the audit append either all land or none do. The
// status filter is the CAS guard that serializes concurrent writers.
func (repo *ClaimRepoMongo) AppendTransition(ctx context.Context, id string, from, to core.ClaimStatus, approvedAmount *float64, entry core.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	set := bson.M{
		"status":     string(to),
		"updated_at": entry.At,
	}
	if approvedAmount != nil {
		set["approved_amount"] = *approvedAmount
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"audit": toAuditDoc(entry)},
	}

	result, err := repo.coll.UpdateOne(ctx, bson.M{"_id": id, "status": string(from)}, update)
	if err != nil {
		return fmt.Errorf("claims.transition: %w", err)
	}
	if result.MatchedCount == 0 {
		return repo.staleOrMissing(ctx, id)
	}
	return nil
}

// ResolveFlag flips one flag and appends the audit entry atomically,
// conditional on the flag still being unresolved.
func (repo *ClaimRepoMongo) ResolveFlag(ctx context.Context, id string, flagIndex int, resolvedBy string, entry core.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, repo.opTimeout)
	defer cancel()

	resolvedField := fmt.Sprintf("flags.%d.resolved", flagIndex)
	filter := bson.M{"_id": id, resolvedField: false}
	update := bson.M{
		"$set": bson.M{
			resolvedField: true,
			fmt.Sprintf("flags.%d.resolved_by", flagIndex): resolvedBy,
			"updated_at": entry.At,
		},
		"$push": bson.M{"audit": toAuditDoc(entry)},
	}

	result, err := repo.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("claims.resolveFlag: %w", err)
	}
	if result.MatchedCount == 0 {
		return repo.staleOrMissing(ctx, id)
	}
	return nil
}

func (repo *ClaimRepoMongo) staleOrMissing(ctx context.Context, id string) error {
	count, err := repo.coll.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("claims.exists: %w", err)
	}
	if count == 0 {
		return core.ErrClaimNotFound
	}
	return core.ErrStaleClaim
}
