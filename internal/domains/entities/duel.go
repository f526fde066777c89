package entities

import "time"

type DuelStatus string

const (
	DuelSearching        DuelStatus = "searching"
	DuelConfirming       DuelStatus = "confirming"
	DuelWaitingForStakes DuelStatus = "waiting_for_stakes"
	DuelAccepted         DuelStatus = "accepted"
	DuelActive           DuelStatus = "active"
	DuelMonitoringHealth DuelStatus = "monitoring_health"
	DuelCompleted        DuelStatus = "completed"
	DuelCancelled        DuelStatus = "cancelled"
	DuelStakingTimeout   DuelStatus = "staking_timeout"
)

type StakeStatus string

const (
	StakeUnstaked StakeStatus = "unstaked"
	StakePlaced   StakeStatus = "staked"
	StakeRefunded StakeStatus = "refunded"
)

// Duel is the canonical dueling session. The record store copy is the
// source of truth once the duel is no longer purely ephemeral.
type Duel struct {
	Id               string      `dynamodbav:"DuelId" json:"duelId"`
	User1            string      `dynamodbav:"User1" json:"user1"`
	User2            string      `dynamodbav:"User2,omitempty" json:"user2,omitempty"`
	ChallengeId      string      `dynamodbav:"ChallengeId" json:"challengeId"`
	Status           DuelStatus  `dynamodbav:"DuelStatus" json:"status"`
	User1Score       float64     `dynamodbav:"User1Score" json:"user1Score"`
	User2Score       float64     `dynamodbav:"User2Score" json:"user2Score"`
	Winner           string      `dynamodbav:"Winner,omitempty" json:"winner,omitempty"`
	StakingDeadline  *time.Time  `dynamodbav:"StakingDeadline,omitempty" json:"stakingDeadline,omitempty"`
	DuelStartTime    *time.Time  `dynamodbav:"DuelStartTime,omitempty" json:"duelStartTime,omitempty"`
	DuelEndTime      *time.Time  `dynamodbav:"DuelEndTime,omitempty" json:"duelEndTime,omitempty"`
	User1StakeStatus StakeStatus `dynamodbav:"User1StakeStatus" json:"user1StakeStatus"`
	User2StakeStatus StakeStatus `dynamodbav:"User2StakeStatus" json:"user2StakeStatus"`
	CreatedAt        time.Time   `dynamodbav:"CreatedAt" json:"createdAt"`
}

func (s DuelStatus) Terminal() bool {
	switch s {
	case DuelCompleted, DuelCancelled, DuelStakingTimeout:
		return true
	}
	return false
}

// ScoringOpen reports whether scores may still be mutated.
func (s DuelStatus) ScoringOpen() bool {
	return s == DuelActive || s == DuelMonitoringHealth
}

func (d Duel) HasParticipant(userId string) bool {
	return userId != "" && (d.User1 == userId || d.User2 == userId)
}

// Opponent returns the other participant, or empty if userId is not one
// of the two sides.
func (d Duel) Opponent(userId string) string {
	switch userId {
	case d.User1:
		return d.User2
	case d.User2:
		return d.User1
	}
	return ""
}
