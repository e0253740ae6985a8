package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"playreviews/internal/domain"
)

// DynamoDBAPI is the subset of the DynamoDB client the state store uses.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error)
}

var ErrTableNotFound = errors.New("dynamo: state table not found")

// NewClient loads the default AWS credential chain for region (us-east-1 when empty).
func NewClient(ctx context.Context, region string) (*dyn.Client, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return dyn.NewFromConfig(cfg), nil
}

// stateItem is one row of the state table; state_key is the partition key.
type stateItem struct {
	StateKey  string `dynamodbav:"state_key"`
	Payload   string `dynamodbav:"payload"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

type StateStore struct {
	client    DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStateStore(client DynamoDBAPI, tableName string) *StateStore {
	return &StateStore{client: client, tableName: tableName, nowFunc: time.Now}
}

func (s *StateStore) Load(ctx context.Context) (domain.State, error) {
	items, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	st := make(domain.State, len(items))
	for _, it := range items {
		st[it.StateKey] = []byte(it.Payload)
	}
	return st, nil
}

// Save writes every entry and deletes the ones no longer present. DynamoDB has no
// multi-item atomicity at this size, so a failed Save may leave a partial update;
// each entry is still written whole.
func (s *StateStore) Save(ctx context.Context, st domain.State) error {
	existing, err := s.scan(ctx)
	if err != nil {
		return err
	}
	now := s.nowFunc().UTC().Format(time.RFC3339)
	for k, v := range st {
		item, err := attributevalue.MarshalMap(stateItem{StateKey: k, Payload: string(v), UpdatedAt: now})
		if err != nil {
			return fmt.Errorf("marshal state item: %w", err)
		}
		if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{TableName: &s.tableName, Item: item}); err != nil {
			return classify(fmt.Errorf("put item %q: %w", k, err))
		}
	}
	for _, it := range existing {
		if _, ok := st[it.StateKey]; ok {
			continue
		}
		_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &s.tableName,
			Key:       map[string]types.AttributeValue{"state_key": &types.AttributeValueMemberS{Value: it.StateKey}},
		})
		if err != nil {
			return classify(fmt.Errorf("delete item %q: %w", it.StateKey, err))
		}
	}
	return nil
}

func (s *StateStore) scan(ctx context.Context) ([]stateItem, error) {
	var (
		out   []stateItem
		start map[string]types.AttributeValue
	)
	for {
		resp, err := s.client.Scan(ctx, &dyn.ScanInput{
			TableName:         &s.tableName,
			ExclusiveStartKey: start,
			ConsistentRead:    sdkaws.Bool(true),
		})
		if err != nil {
			return nil, classify(fmt.Errorf("scan %s: %w", s.tableName, err))
		}
		var page []stateItem
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal state items: %w", err)
		}
		out = append(out, page...)
		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		start = resp.LastEvaluatedKey
	}
}

func classify(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) && ae.ErrorCode() == "ResourceNotFoundException" {
		return fmt.Errorf("%w: %w", ErrTableNotFound, err)
	}
	return err
}
