package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/coverwise/marketcore/internal/core"
)

type ClaimRepoDynamo struct {
	client *dynamodb.Client
	table  string
}

func NewClaimRepo(client *Client) *ClaimRepoDynamo {
	return &ClaimRepoDynamo{
		client: client.DB,
		table:  TableClaims,
	}
}

func (repo *ClaimRepoDynamo) Create(ctx context.Context, c core.Claim) error {
	item, err := attributevalue.MarshalMap(toClaimItem(c))
	if err != nil {
		return fmt.Errorf("claims.marshal: %w", err)
	}

	cond := expression.AttributeNotExists(expression.Name("id"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("claims.expression: %w", err)
	}

	_, err = repo.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(repo.table),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return core.ErrConflict
		}
		return fmt.Errorf("claims.putItem: %w", err)
	}
	return nil
}

func (repo *ClaimRepoDynamo) Get(ctx context.Context, id string) (core.Claim, error) {
	out, err := repo.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(repo.table),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return core.Claim{}, fmt.Errorf("claims.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Claim{}, core.ErrClaimNotFound
	}

	var it ClaimItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return core.Claim{}, fmt.Errorf("claims.unmarshal: %w", err)
	}
	return fromClaimItem(it), nil
}

func (repo *ClaimRepoDynamo) ListByUser(ctx context.Context, userID string, limit int) ([]core.Claim, error) {
	return repo.queryIndex(ctx, GSIClaimsUser, "user_id", userID, limit)
}

func (repo *ClaimRepoDynamo) FindByStatus(ctx context.Context, status core.ClaimStatus, limit int) ([]core.Claim, error) {
	return repo.queryIndex(ctx, GSIClaimsStatus, "status", string(status), limit)
}

func (repo *ClaimRepoDynamo) queryIndex(ctx context.Context, index, keyAttr, keyValue string, limit int) ([]core.Claim, error) {
	keyCond := expression.Key(keyAttr).Equal(expression.Value(keyValue))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("claims.expression: %w", err)
	}

	var claims []core.Claim
	paginator := dynamodb.NewQueryPaginator(repo.client, &dynamodb.QueryInput{
		TableName:                 aws.String(repo.table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("claims.query: %w", err)
		}
		for _, raw := range page.Items {
			var it ClaimItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("claims.unmarshal: %w", err)
			}
			claims = append(claims, fromClaimItem(it))
		}
	}

	// Hash-only GSIs return items unordered. Sort oldest-first like the
	// mongo store and trim to the limit afterwards.
	sort.Slice(claims, func(i, j int) bool { return claims[i].CreatedAt.Before(claims[j].CreatedAt) })
	if limit > 0 && len(claims) > limit {
		claims = claims[:limit]
	}
	return claims, nil
}

// AppendTransition is a single conditional UpdateItem: the status change,
// optional approved amount, and audit append either all land or none do.
// The condition on the current status is the CAS guard.
func (repo *ClaimRepoDynamo) AppendTransition(ctx context.Context, id string, from, to core.ClaimStatus, approvedAmount *float64, entry core.AuditEntry) error {
	upd := expression.
		Set(expression.Name("status"), expression.Value(string(to))).
		Set(expression.Name("updated_at"), expression.Value(entry.At.UTC().Format(time.RFC3339Nano))).
		Set(expression.Name("audit"), expression.ListAppend(
			expression.Name("audit"),
			expression.Value([]AuditItem{toAuditItem(entry)}),
		))
	if approvedAmount != nil {
		upd = upd.Set(expression.Name("approved_amount"), expression.Value(*approvedAmount))
	}

	cond := expression.AttributeExists(expression.Name("id")).
		And(expression.Name("status").Equal(expression.Value(string(from))))

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("claims.expression: %w", err)
	}

	_, err = repo.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(repo.table),
		Key:                       idKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return repo.staleOrMissing(ctx, id)
		}
		return fmt.Errorf("claims.transition: %w", err)
	}
	return nil
}

// ResolveFlag flips one flag in place and appends the audit entry, conditional
// on the flag still being unresolved.
func (repo *ClaimRepoDynamo) ResolveFlag(ctx context.Context, id string, flagIndex int, resolvedBy string, entry core.AuditEntry) error {
	flagPath := fmt.Sprintf("flags[%d]", flagIndex)

	upd := expression.
		Set(expression.Name(flagPath+".resolved"), expression.Value(true)).
		Set(expression.Name(flagPath+".resolved_by"), expression.Value(resolvedBy)).
		Set(expression.Name("updated_at"), expression.Value(entry.At.UTC().Format(time.RFC3339Nano))).
		Set(expression.Name("audit"), expression.ListAppend(
			expression.Name("audit"),
			expression.Value([]AuditItem{toAuditItem(entry)}),
		))

	cond := expression.AttributeExists(expression.Name("id")).
		And(expression.Name(flagPath + ".resolved").Equal(expression.Value(false)))

	expr, err := expression.NewBuilder().WithUpdate(upd).WithCondition(cond).Build()
	if err != nil {
		return fmt.Errorf("claims.expression: %w", err)
	}

	_, err = repo.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(repo.table),
		Key:                       idKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return repo.staleOrMissing(ctx, id)
		}
		return fmt.Errorf("claims.resolveFlag: %w", err)
	}
	return nil
}

func (repo *ClaimRepoDynamo) staleOrMissing(ctx context.Context, id string) error {
	out, err := repo.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(repo.table),
		Key:                  idKey(id),
		ProjectionExpression: aws.String("id"),
		ConsistentRead:       aws.Bool(true),
	})
	if err != nil {
		return fmt.Errorf("claims.exists: %w", err)
	}
	if out.Item == nil {
		return core.ErrClaimNotFound
	}
	return core.ErrStaleClaim
}
