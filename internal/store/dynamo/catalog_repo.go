package dynamo

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/coverwise/marketcore/internal/core"
)

type CatalogRepoDynamo struct {
	client *dynamodb.Client
	table  string
}

func NewCatalogRepo(client *Client) *CatalogRepoDynamo {
	return &CatalogRepoDynamo{
		client: client.DB,
		table:  TableCatalog,
	}
}

func (repo *CatalogRepoDynamo) List(ctx context.Context) ([]core.Policy, error) {
	var policies []core.Policy

	paginator := dynamodb.NewScanPaginator(repo.client, &dynamodb.ScanInput{
		TableName: aws.String(repo.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog.scan: %w", err)
		}
		for _, raw := range page.Items {
			var it PolicyItem
			if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
				return nil, fmt.Errorf("catalog.unmarshal: %w", err)
			}
			policies = append(policies, fromPolicyItem(it))
		}
	}

	// Scans return items in arbitrary order. Sort by id so both stores list
	// the catalog identically.
	sort.Slice(policies, func(i, j int) bool { return policies[i].ID < policies[j].ID })
	return policies, nil
}

func (repo *CatalogRepoDynamo) Get(ctx context.Context, id string) (core.Policy, error) {
	out, err := repo.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(repo.table),
		Key:       idKey(id),
	})
	if err != nil {
		return core.Policy{}, fmt.Errorf("catalog.getItem: %w", err)
	}
	if out.Item == nil {
		return core.Policy{}, core.ErrPolicyNotFound
	}

	var it PolicyItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return core.Policy{}, fmt.Errorf("catalog.unmarshal: %w", err)
	}
	return fromPolicyItem(it), nil
}

func (repo *CatalogRepoDynamo) UpsertByID(ctx context.Context, p core.Policy) error {
	item, err := attributevalue.MarshalMap(toPolicyItem(p))
	if err != nil {
		return fmt.Errorf("catalog.marshal: %w", err)
	}

	_, err = repo.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(repo.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("catalog.putItem: %w", err)
	}
	return nil
}
