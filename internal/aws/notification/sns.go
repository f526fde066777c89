package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SendPushNotification publishes a title/body pair to the user's
// registered application endpoint. Best effort: duel transitions never
// block on push delivery.
func (client *Client) SendPushNotification(
	ctx context.Context,
	endpointArn,
	title,
	body string,
) error {
	message, err := json.Marshal(map[string]string{
		"default": body,
		"GCM":     fmt.Sprintf(`{"notification":{"title":%q,"body":%q}}`, title, body),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push message: %w", err)
	}
	_, err = client.sns.Publish(ctx, &sns.PublishInput{
		Message:          aws.String(string(message)),
		MessageStructure: aws.String("json"),
		TargetArn:        aws.String(endpointArn),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}
