package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
)

var ErrDuelNotFound = fmt.Errorf("duel not found")

// DuelUpdateOptions describes a partial update of a Duel record. Nil
// fields are left untouched. Expect* fields turn the update into a
// conditional write; a lost condition surfaces as ErrConditionFailed.
type DuelUpdateOptions struct {
	User2            *string
	Status           *entities.DuelStatus
	User1Score       *float64
	User2Score       *float64
	Winner           *string
	StakingDeadline  *time.Time
	DuelStartTime    *time.Time
	DuelEndTime      *time.Time
	User1StakeStatus *entities.StakeStatus
	User2StakeStatus *entities.StakeStatus

	ExpectStatus           []entities.DuelStatus
	ExpectUser1StakeStatus *entities.StakeStatus
	ExpectUser2StakeStatus *entities.StakeStatus
}

func (client *Client) CreateDuel(ctx context.Context, duel entities.Duel) error {
	av, err := attributevalue.MarshalMap(duel)
	if err != nil {
		return fmt.Errorf("failed to marshal duel: %w", err)
	}
	_, err = client.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           client.cfg.DuelsTableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(DuelId)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConditionFailed
		}
		return fmt.Errorf("failed to put duel: %w", err)
	}
	return nil
}

func (client *Client) GetDuel(ctx context.Context, duelId string) (entities.Duel, error) {
	output, err := client.dynamodb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: client.cfg.DuelsTableName,
		Key: map[string]types.AttributeValue{
			"DuelId": &types.AttributeValueMemberS{
				Value: duelId,
			},
		},
	})
	if err != nil {
		return entities.Duel{}, err
	}
	if output.Item == nil {
		return entities.Duel{}, ErrDuelNotFound
	}
	var duel entities.Duel
	if err := attributevalue.UnmarshalMap(output.Item, &duel); err != nil {
		return entities.Duel{}, err
	}
	return duel, nil
}

// UpdateDuel applies a partial update and returns the record as written,
// so callers can evaluate completion against a consistent post-write
// read of both score fields.
func (client *Client) UpdateDuel(
	ctx context.Context,
	duelId string,
	opts DuelUpdateOptions,
) (entities.Duel, error) {
	updateExpression := []string{}
	conditionExpression := []string{}
	expressionAttributeValues := map[string]types.AttributeValue{}

	if opts.User2 != nil {
		updateExpression = append(updateExpression, "User2 = :user2")
		expressionAttributeValues[":user2"] = &types.AttributeValueMemberS{
			Value: *opts.User2,
		}
	}
	if opts.Status != nil {
		updateExpression = append(updateExpression, "DuelStatus = :status")
		expressionAttributeValues[":status"] = &types.AttributeValueMemberS{
			Value: string(*opts.Status),
		}
	}
	if opts.User1Score != nil {
		updateExpression = append(updateExpression, "User1Score = :user1Score")
		expressionAttributeValues[":user1Score"] = &types.AttributeValueMemberN{
			Value: formatFloat(*opts.User1Score),
		}
	}
	if opts.User2Score != nil {
		updateExpression = append(updateExpression, "User2Score = :user2Score")
		expressionAttributeValues[":user2Score"] = &types.AttributeValueMemberN{
			Value: formatFloat(*opts.User2Score),
		}
	}
	if opts.Winner != nil {
		updateExpression = append(updateExpression, "Winner = :winner")
		expressionAttributeValues[":winner"] = &types.AttributeValueMemberS{
			Value: *opts.Winner,
		}
	}
	if opts.StakingDeadline != nil {
		updateExpression = append(updateExpression, "StakingDeadline = :stakingDeadline")
		expressionAttributeValues[":stakingDeadline"] = &types.AttributeValueMemberS{
			Value: opts.StakingDeadline.Format(time.RFC3339Nano),
		}
	}
	if opts.DuelStartTime != nil {
		updateExpression = append(updateExpression, "DuelStartTime = :duelStartTime")
		expressionAttributeValues[":duelStartTime"] = &types.AttributeValueMemberS{
			Value: opts.DuelStartTime.Format(time.RFC3339Nano),
		}
	}
	if opts.DuelEndTime != nil {
		updateExpression = append(updateExpression, "DuelEndTime = :duelEndTime")
		expressionAttributeValues[":duelEndTime"] = &types.AttributeValueMemberS{
			Value: opts.DuelEndTime.Format(time.RFC3339Nano),
		}
	}
	if opts.User1StakeStatus != nil {
		updateExpression = append(updateExpression, "User1StakeStatus = :user1StakeStatus")
		expressionAttributeValues[":user1StakeStatus"] = &types.AttributeValueMemberS{
			Value: string(*opts.User1StakeStatus),
		}
	}
	if opts.User2StakeStatus != nil {
		updateExpression = append(updateExpression, "User2StakeStatus = :user2StakeStatus")
		expressionAttributeValues[":user2StakeStatus"] = &types.AttributeValueMemberS{
			Value: string(*opts.User2StakeStatus),
		}
	}

	if len(opts.ExpectStatus) > 0 {
		placeholders := make([]string, 0, len(opts.ExpectStatus))
		for i, status := range opts.ExpectStatus {
			placeholder := fmt.Sprintf(":expectStatus%d", i)
			placeholders = append(placeholders, placeholder)
			expressionAttributeValues[placeholder] = &types.AttributeValueMemberS{
				Value: string(status),
			}
		}
		conditionExpression = append(
			conditionExpression,
			fmt.Sprintf("DuelStatus IN (%s)", strings.Join(placeholders, ", ")),
		)
	}
	if opts.ExpectUser1StakeStatus != nil {
		conditionExpression = append(conditionExpression, "User1StakeStatus = :expectUser1StakeStatus")
		expressionAttributeValues[":expectUser1StakeStatus"] = &types.AttributeValueMemberS{
			Value: string(*opts.ExpectUser1StakeStatus),
		}
	}
	if opts.ExpectUser2StakeStatus != nil {
		conditionExpression = append(conditionExpression, "User2StakeStatus = :expectUser2StakeStatus")
		expressionAttributeValues[":expectUser2StakeStatus"] = &types.AttributeValueMemberS{
			Value: string(*opts.ExpectUser2StakeStatus),
		}
	}

	input := &dynamodb.UpdateItemInput{
		TableName: client.cfg.DuelsTableName,
		Key: map[string]types.AttributeValue{
			"DuelId": &types.AttributeValueMemberS{
				Value: duelId,
			},
		},
		UpdateExpression:          aws.String("SET " + strings.Join(updateExpression, ", ")),
		ExpressionAttributeValues: expressionAttributeValues,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if len(conditionExpression) > 0 {
		input.ConditionExpression = aws.String(strings.Join(conditionExpression, " AND "))
	}
	output, err := client.dynamodb.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailed(err) {
			return entities.Duel{}, ErrConditionFailed
		}
		return entities.Duel{}, err
	}
	var duel entities.Duel
	if err := attributevalue.UnmarshalMap(output.Attributes, &duel); err != nil {
		return entities.Duel{}, err
	}
	return duel, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
