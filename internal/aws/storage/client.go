package storage

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDBAPI is the slice of the DynamoDB surface the store uses.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

type Client struct {
	dynamodb DynamoDBAPI
	cfg      Config
}

type Config struct {
	DuelsTableName                *string
	ChallengesTableName           *string
	HealthDataTableName           *string
	ApplicationEndpointsTableName *string
}

func NewClient(dynamoClient DynamoDBAPI, cfg Config) *Client {
	if cfg.DuelsTableName == nil {
		cfg.DuelsTableName = aws.String("Duels")
	}
	if cfg.ChallengesTableName == nil {
		cfg.ChallengesTableName = aws.String("Challenges")
	}
	if cfg.HealthDataTableName == nil {
		cfg.HealthDataTableName = aws.String("HealthData")
	}
	if cfg.ApplicationEndpointsTableName == nil {
		cfg.ApplicationEndpointsTableName = aws.String("ApplicationEndpoints")
	}
	return &Client{
		dynamodb: dynamoClient,
		cfg:      cfg,
	}
}

// ErrConditionFailed is returned when a conditional update loses to a
// concurrent writer. Callers use it to detect already-settled records.
var ErrConditionFailed = errors.New("conditional update failed")

func isConditionFailed(err error) bool {
	var conditionErr *types.ConditionalCheckFailedException
	return errors.As(err, &conditionErr)
}
