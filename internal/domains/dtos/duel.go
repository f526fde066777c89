package dtos

import "time"

type SearchOpponentRequest struct {
	ChallengeId      string `json:"challengeId"`
	ConnectionHandle string `json:"connectionHandle"`
}

type ConfirmMatchRequest struct {
	DuelId string `json:"duelId"`
	Answer string `json:"answer"`
}

type StakeObservedRequest struct {
	DuelId string `json:"duelId"`
	UserId string `json:"userId"`
}

type StartMonitoringRequest struct {
	DuelId string `json:"duelId"`
}

type CancelDuelRequest struct {
	DuelId string `json:"duelId"`
}

type SubmitHealthDataRequest struct {
	DuelId    string    `json:"duelId"`
	DataType  string    `json:"dataType"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// UpdateDuelRequest is the legacy single-score-field update path.
type UpdateDuelRequest struct {
	DuelId string  `json:"duelId"`
	NewVal float64 `json:"newVal"`
}

type RegisterChallengeRequest struct {
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	TargetValue     float64 `json:"targetValue"`
	StakeAmount     float64 `json:"stakeAmount"`
	DurationSeconds int64   `json:"durationSeconds"`
}

type RegisterPushEndpointRequest struct {
	EndpointArn string `json:"endpointArn"`
	Platform    string `json:"platform"`
}
