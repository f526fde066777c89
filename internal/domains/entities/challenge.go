package entities

import "time"

// Challenge is a template defining what a duel is fought over: the unit
// of measure, the target value and the stake required from each side.
type Challenge struct {
	Id          string        `dynamodbav:"ChallengeId" json:"challengeId"`
	Name        string        `dynamodbav:"Name" json:"name"`
	Unit        string        `dynamodbav:"Unit" json:"unit"`
	TargetValue float64       `dynamodbav:"TargetValue" json:"targetValue"`
	StakeAmount float64       `dynamodbav:"StakeAmount" json:"stakeAmount"`
	Duration    time.Duration `dynamodbav:"Duration" json:"duration"`
}

const (
	UnitSteps    = "steps"
	UnitCalories = "calories"
	UnitDistance = "distance"
)
