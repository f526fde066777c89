package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
)

// recordKeyTimeLayout is fixed-width with zero-padded nanoseconds, so
// lexicographic key order is chronological order. RFC3339Nano would
// break that: it trims trailing zeros, making "10:00:00Z" sort after
// "10:00:00.5Z".
const recordKeyTimeLayout = "2006-01-02T15:04:05.000000000Z"

// healthDataRecordKey builds the sort key. Leading with the timestamp
// keeps the partition range-scannable by time; the full key makes a
// resubmitted (user, duel, dataType, timestamp) reading overwrite its
// prior value instead of duplicating it.
func healthDataRecordKey(point entities.HealthDataPoint) string {
	return fmt.Sprintf(
		"%s#%s#%s",
		point.Timestamp.UTC().Format(recordKeyTimeLayout),
		point.UserId,
		point.DataType,
	)
}

func (client *Client) PutHealthData(ctx context.Context, point entities.HealthDataPoint) error {
	point.RecordKey = healthDataRecordKey(point)
	av, err := attributevalue.MarshalMap(point)
	if err != nil {
		return fmt.Errorf("failed to marshal health data point: %w", err)
	}
	_, err = client.dynamodb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: client.cfg.HealthDataTableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("failed to put health data point: %w", err)
	}
	return nil
}

// LatestReading returns the most recent cumulative value reported by
// userId for dataType within the duel, or 0 if none was recorded.
// The filter is applied after each page read, so a page can come back
// empty with more data behind it; pages are followed until a match or
// the partition is exhausted.
func (client *Client) LatestReading(
	ctx context.Context,
	duelId string,
	userId string,
	dataType string,
) (float64, error) {
	input := &dynamodb.QueryInput{
		TableName:              client.cfg.HealthDataTableName,
		KeyConditionExpression: aws.String("DuelId = :duelId"),
		FilterExpression:       aws.String("UserId = :userId AND DataType = :dataType"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":duelId":   &types.AttributeValueMemberS{Value: duelId},
			":userId":   &types.AttributeValueMemberS{Value: userId},
			":dataType": &types.AttributeValueMemberS{Value: dataType},
		},
		ScanIndexForward: aws.Bool(false),
	}
	for {
		output, err := client.dynamodb.Query(ctx, input)
		if err != nil {
			return 0, err
		}
		if len(output.Items) > 0 {
			var point entities.HealthDataPoint
			if err := attributevalue.UnmarshalMap(output.Items[0], &point); err != nil {
				return 0, err
			}
			return point.Value, nil
		}
		if output.LastEvaluatedKey == nil {
			return 0, nil
		}
		input.ExclusiveStartKey = output.LastEvaluatedKey
	}
}

// FetchHealthData returns the duel's data points ordered by timestamp.
func (client *Client) FetchHealthData(
	ctx context.Context,
	duelId string,
	lastKey map[string]types.AttributeValue,
	limit int32,
) (
	[]entities.HealthDataPoint,
	map[string]types.AttributeValue,
	error,
) {
	input := &dynamodb.QueryInput{
		TableName:              client.cfg.HealthDataTableName,
		KeyConditionExpression: aws.String("DuelId = :duelId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":duelId": &types.AttributeValueMemberS{Value: duelId},
		},
		ExclusiveStartKey: lastKey,
		ScanIndexForward:  aws.Bool(true),
	}
	if limit > 0 {
		input.Limit = aws.Int32(limit)
	}
	output, err := client.dynamodb.Query(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	var points []entities.HealthDataPoint
	if err := attributevalue.UnmarshalListOfMaps(output.Items, &points); err != nil {
		return nil, nil, err
	}
	return points, output.LastEvaluatedKey, nil
}
