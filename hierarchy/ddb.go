package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/pointgo/geo"
	"golang.org/x/sync/errgroup"
)

// DDBClient is the interface for the DynamoDB operations the store
// needs. *dynamodb.Client satisfies it.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DDBStore persists a hierarchy to DynamoDB, one item per chunk, so
// multiple builder processes can share hierarchy state without racing
// on a single blob.
//
// Table schema:
//   - Partition key: index_id (string) - identifies the build
//   - Sort key: dxyz (string) - the chunk identity "d-x-y-z"
//   - Attribute: np (number) - persisted point count
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name pointgo-hierarchy \
//	  --attribute-definitions AttributeName=index_id,AttributeType=S AttributeName=dxyz,AttributeType=S \
//	  --key-schema AttributeName=index_id,KeyType=HASH AttributeName=dxyz,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBStore struct {
	client  DDBClient
	table   string
	indexID string
}

// NewDDBStore creates a DynamoDB-backed hierarchy store.
func NewDDBStore(client DDBClient, table, indexID string) *DDBStore {
	return &DDBStore{
		client:  client,
		table:   table,
		indexID: indexID,
	}
}

// Save writes every hierarchy entry as its own item. A chunk's count
// only ever grows, so each put carries a conditional write guarding
// against regression: a stale writer racing a process that already
// recorded a larger count loses, and its put becomes a no-op.
func (s *DDBStore) Save(ctx context.Context, h *Hierarchy) error {
	type entry struct {
		d  geo.Dxyz
		np uint64
	}
	var entries []entry
	h.Each(func(d geo.Dxyz, np uint64) {
		entries = append(entries, entry{d, np})
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(16)

	for _, e := range entries {
		d, np := e.d, e.np
		g.Go(func() error {
			count := strconv.FormatUint(np, 10)
			_, err := s.client.PutItem(gctx, &dynamodb.PutItemInput{
				TableName: aws.String(s.table),
				Item: map[string]types.AttributeValue{
					"index_id": &types.AttributeValueMemberS{Value: s.indexID},
					"dxyz":     &types.AttributeValueMemberS{Value: d.String()},
					"np":       &types.AttributeValueMemberN{Value: count},
				},
				ConditionExpression: aws.String("attribute_not_exists(np) OR np <= :np"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":np": &types.AttributeValueMemberN{Value: count},
				},
			})
			var ccf *types.ConditionalCheckFailedException
			if errors.As(err, &ccf) {
				// Another process already recorded a larger count.
				return nil
			}
			if err != nil {
				return fmt.Errorf("hierarchy: ddb put %s: %w", d, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Load replaces h's contents with the items stored for this build.
func (s *DDBStore) Load(ctx context.Context, h *Hierarchy) error {
	in := make(map[string]uint64)

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.table),
			KeyConditionExpression: aws.String("index_id = :id"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":id": &types.AttributeValueMemberS{Value: s.indexID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return fmt.Errorf("hierarchy: ddb query: %w", err)
		}

		for _, item := range out.Items {
			key, ok := item["dxyz"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			nattr, ok := item["np"].(*types.AttributeValueMemberN)
			if !ok {
				continue
			}
			np, err := strconv.ParseUint(nattr.Value, 10, 64)
			if err != nil {
				return fmt.Errorf("hierarchy: ddb bad count for %s: %w", key.Value, err)
			}
			in[key.Value] = np
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	return h.replace(in)
}
