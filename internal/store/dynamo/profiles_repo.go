package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/coverwise/marketcore/internal/core"
)

type ProfileRepoDynamo struct {
	client *dynamodb.Client
	table  string
}

func NewProfileRepo(client *Client) *ProfileRepoDynamo {
	return &ProfileRepoDynamo{
		client: client.DB,
		table:  TableProfiles,
	}
}

func (repo *ProfileRepoDynamo) Get(ctx context.Context, id string) (core.UserProfile, error) {
	out, err := repo.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(repo.table),
		Key:       idKey(id),
	})
	if err != nil {
		return core.UserProfile{}, fmt.Errorf("profiles.getItem: %w", err)
	}
	if out.Item == nil {
		return core.UserProfile{}, core.ErrProfileNotFound
	}

	var it ProfileItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return core.UserProfile{}, fmt.Errorf("profiles.unmarshal: %w", err)
	}
	return fromProfileItem(it), nil
}

func (repo *ProfileRepoDynamo) Upsert(ctx context.Context, p core.UserProfile) error {
	item, err := attributevalue.MarshalMap(toProfileItem(p))
	if err != nil {
		return fmt.Errorf("profiles.marshal: %w", err)
	}

	_, err = repo.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(repo.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("profiles.putItem: %w", err)
	}
	return nil
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}
