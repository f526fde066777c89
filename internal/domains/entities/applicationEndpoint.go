package entities

// ApplicationEndpoint maps a user to the SNS platform endpoint their
// mobile app registered for push notifications.
type ApplicationEndpoint struct {
	UserId      string `dynamodbav:"UserId"`
	EndpointArn string `dynamodbav:"EndpointArn"`
	Platform    string `dynamodbav:"Platform"`
}
