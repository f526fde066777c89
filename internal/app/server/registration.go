package server

import (
	"context"

	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"github.com/fitduel-vn/fitduel/pkg/utils"
	"go.uber.org/zap"
)

var recognizedUnits = map[string]bool{
	entities.UnitSteps:    true,
	entities.UnitCalories: true,
	entities.UnitDistance: true,
}

// RegisterChallenge stores a challenge template duels can be fought
// over. A missing id is generated.
func (c *Coordinator) RegisterChallenge(
	ctx context.Context,
	challenge entities.Challenge,
) (entities.Challenge, error) {
	if challenge.Name == "" {
		return entities.Challenge{}, newValidationError("Missing name", "challenge name is required")
	}
	if !recognizedUnits[challenge.Unit] {
		return entities.Challenge{}, newValidationError("Unknown unit", "unit must be steps, calories or distance")
	}
	if challenge.TargetValue <= 0 {
		return entities.Challenge{}, newValidationError("Invalid target", "target value must be positive")
	}
	if challenge.StakeAmount < 0 {
		return entities.Challenge{}, newValidationError("Invalid stake", "stake amount cannot be negative")
	}
	if challenge.Duration < 0 {
		return entities.Challenge{}, newValidationError("Invalid duration", "duration cannot be negative")
	}
	if challenge.Id == "" {
		challenge.Id = utils.GenerateUUID()
	}
	if err := c.store.PutChallenge(ctx, challenge); err != nil {
		return entities.Challenge{}, newDependencyError("Record store unavailable", err)
	}
	logging.Info("challenge registered",
		zap.String("challenge_id", challenge.Id),
		zap.String("unit", challenge.Unit),
		zap.Float64("target_value", challenge.TargetValue),
	)
	return challenge, nil
}

// RegisterPushEndpoint records the SNS endpoint the user's app created,
// so lifecycle pushes can reach them while offline. Re-registration
// overwrites the previous endpoint.
func (c *Coordinator) RegisterPushEndpoint(
	ctx context.Context,
	userId string,
	endpointArn string,
	platform string,
) error {
	if userId == "" {
		return newValidationError("Missing user", "requester identity is required")
	}
	if endpointArn == "" {
		return newValidationError("Missing endpoint", "endpoint arn is required")
	}
	err := c.store.PutApplicationEndpoint(ctx, entities.ApplicationEndpoint{
		UserId:      userId,
		EndpointArn: endpointArn,
		Platform:    platform,
	})
	if err != nil {
		return newDependencyError("Record store unavailable", err)
	}
	logging.Info("push endpoint registered", zap.String("user_id", userId))
	return nil
}
