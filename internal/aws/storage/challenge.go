package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
)

var ErrChallengeNotFound = fmt.Errorf("challenge not found")

func (client *Client) GetChallenge(
	ctx context.Context,
	challengeId string,
) (entities.Challenge, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.ChallengesTableName,
		Key: map[string]types.AttributeValue{
			"ChallengeId": &types.AttributeValueMemberS{
				Value: challengeId,
			},
		},
	})
	if err != nil {
		return entities.Challenge{}, err
	}
	if output.Item == nil {
		return entities.Challenge{}, ErrChallengeNotFound
	}
	var challenge entities.Challenge
	if err := attributevalue.UnmarshalMap(output.Item, &challenge); err != nil {
		return entities.Challenge{}, err
	}
	return challenge, nil
}

func (client *Client) PutChallenge(ctx context.Context, challenge entities.Challenge) error {
	av, err := attributevalue.MarshalMap(challenge)
	if err != nil {
		return fmt.Errorf("failed to marshal challenge: %w", err)
	}
	_, err = client.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: client.cfg.ChallengesTableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put challenge: %w", err)
	}
	return nil
}
