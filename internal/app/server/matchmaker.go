package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"github.com/fitduel-vn/fitduel/pkg/utils"
	"go.uber.org/zap"
)

type Role string

const (
	RoleCreator Role = "creator"
	RoleJoiner  Role = "joiner"
)

type MatchResult struct {
	DuelId string `json:"duelId"`
	Role   Role   `json:"role"`
}

// Events fanned out to the duel room.
const (
	EventWaitingForOpponent = "waiting_for_opponent"
	EventMatchFound         = "match_found_start_staking"
	EventParticipantConfirm = "participant_confirmed"
	EventMatchConfirmed     = "match_confirmed"
	EventDuelCancelled      = "duel_cancelled"
	EventDuelStarted        = "duel_started"
	EventMonitoringStarted  = "monitoring_started"
	EventScoreUpdate        = "score_update"
	EventDuelCompleted      = "duel_completed"
)

type matchFoundPayload struct {
	DuelId          string    `json:"duelId"`
	User1           string    `json:"user1"`
	User2           string    `json:"user2"`
	ChallengeId     string    `json:"challengeId"`
	Unit            string    `json:"unit"`
	TargetValue     float64   `json:"targetValue"`
	StakeAmount     float64   `json:"stakeAmount"`
	StakingDeadline time.Time `json:"stakingDeadline"`
}

// SearchOpponent pairs the requesting user against a waiting opponent on
// the challenge, or enqueues them to wait. Claiming a waiting entry goes
// through an atomic pop: exactly one concurrent joiner wins, losers must
// retry as new searchers.
func (c *Coordinator) SearchOpponent(
	ctx context.Context,
	challengeId string,
	participantHandle string,
	userId string,
) (MatchResult, error) {
	if userId == "" {
		return MatchResult{}, newValidationError("Missing user", "requester identity is required")
	}
	if participantHandle == "" {
		return MatchResult{}, newValidationError("Missing connection", "a live connection handle is required")
	}
	if _, ok := c.channel.Lookup(participantHandle); !ok {
		return MatchResult{}, newValidationError("Stale connection", "connection handle is no longer live")
	}
	if challengeId == "" {
		return MatchResult{}, newValidationError("Missing challenge", "challenge id is required")
	}

	challenge, err := c.store.GetChallenge(ctx, challengeId)
	if err != nil {
		if errors.Is(err, storage.ErrChallengeNotFound) {
			return MatchResult{}, newNotFoundError("Unknown challenge", "no challenge with id "+challengeId)
		}
		return MatchResult{}, newDependencyError("Record store unavailable", err)
	}

	waiting, err := c.cache.HasWaiting(ctx, challengeId)
	if err != nil {
		return MatchResult{}, newDependencyError("Match store unavailable", err)
	}
	if !waiting {
		return c.enqueueSearcher(ctx, challenge, participantHandle, userId)
	}

	entry, err := c.cache.PopEntry(ctx, challengeId)
	if err != nil {
		return MatchResult{}, newDependencyError("Match store unavailable", err)
	}
	if entry == nil {
		// The entry observed by the existence check was claimed by a
		// concurrent joiner first.
		return MatchResult{}, newNotFoundError("No opponent available", "the waiting opponent was just claimed, search again")
	}
	if entry.User1 == userId {
		if err := c.cache.PushEntry(ctx, challengeId, *entry); err != nil {
			logging.Error("failed to requeue own entry", zap.String("duel_id", entry.DuelId), zap.Error(err))
		}
		return MatchResult{}, newConflictError("Already searching", "you are already waiting on this challenge")
	}

	return c.claimEntry(ctx, challenge, *entry, participantHandle, userId)
}

func (c *Coordinator) enqueueSearcher(
	ctx context.Context,
	challenge entities.Challenge,
	participantHandle string,
	userId string,
) (MatchResult, error) {
	now := time.Now()
	duel := entities.Duel{
		Id:               utils.GenerateUUID(),
		User1:            userId,
		ChallengeId:      challenge.Id,
		Status:           entities.DuelSearching,
		User1StakeStatus: entities.StakeUnstaked,
		User2StakeStatus: entities.StakeUnstaked,
		CreatedAt:        now,
	}
	if err := c.store.CreateDuel(ctx, duel); err != nil {
		return MatchResult{}, newDependencyError("Record store unavailable", err)
	}
	entry := entities.MatchEntry{
		DuelId:       duel.Id,
		User1:        userId,
		ChallengeId:  challenge.Id,
		WinningScore: challenge.TargetValue,
	}
	if err := c.cache.PushEntry(ctx, challenge.Id, entry); err != nil {
		// The durable record exists but is invisible to joiners; the
		// searcher can safely search again.
		return MatchResult{}, newDependencyError("Match store unavailable", err)
	}

	if err := c.channel.Join(participantHandle, duelRoom(duel.Id)); err != nil {
		logging.Error("failed to join duel room", zap.String("duel_id", duel.Id), zap.Error(err))
	}
	c.channel.Emit(duelRoom(duel.Id), EventWaitingForOpponent, map[string]interface{}{
		"duelId":      duel.Id,
		"challengeId": challenge.Id,
		"message":     "waiting for opponent, please confirm when matched",
	})
	logging.Info("searcher enqueued",
		zap.String("duel_id", duel.Id),
		zap.String("user_id", userId),
		zap.String("challenge_id", challenge.Id),
	)
	return MatchResult{DuelId: duel.Id, Role: RoleCreator}, nil
}

func (c *Coordinator) claimEntry(
	ctx context.Context,
	challenge entities.Challenge,
	entry entities.MatchEntry,
	participantHandle string,
	userId string,
) (MatchResult, error) {
	deadline := time.Now().Add(c.cfg.StakingWindow)
	status := entities.DuelWaitingForStakes
	duel, err := c.store.UpdateDuel(ctx, entry.DuelId, storage.DuelUpdateOptions{
		User2:           &userId,
		Status:          &status,
		StakingDeadline: &deadline,
		ExpectStatus:    []entities.DuelStatus{entities.DuelSearching},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// The popped duel moved on without us (e.g. cancelled while
			// waiting). Same outcome as losing the pop race.
			return MatchResult{}, newNotFoundError("No opponent available", "the waiting duel is no longer open, search again")
		}
		return MatchResult{}, newDependencyError("Record store unavailable", err)
	}

	entry.User2 = userId
	if err := c.cache.SetDuelEntry(ctx, entry); err != nil {
		logging.Error("failed to mirror duel entry", zap.String("duel_id", duel.Id), zap.Error(err))
	}
	if err := c.cache.OpenConfirmation(ctx, duel.Id, duel.User1, userId); err != nil {
		logging.Error("failed to open confirmation record", zap.String("duel_id", duel.Id), zap.Error(err))
	}
	if err := c.cache.SetStakingMarker(ctx, duel.Id, c.cfg.StakingWindow); err != nil {
		logging.Error("failed to set staking marker", zap.String("duel_id", duel.Id), zap.Error(err))
	}

	if err := c.channel.Join(participantHandle, duelRoom(duel.Id)); err != nil {
		logging.Error("failed to join duel room", zap.String("duel_id", duel.Id), zap.Error(err))
	}
	c.channel.Emit(duelRoom(duel.Id), EventMatchFound, matchFoundPayload{
		DuelId:          duel.Id,
		User1:           duel.User1,
		User2:           userId,
		ChallengeId:     challenge.Id,
		Unit:            challenge.Unit,
		TargetValue:     challenge.TargetValue,
		StakeAmount:     challenge.StakeAmount,
		StakingDeadline: deadline,
	})
	c.armStakingTimer(duel.Id, c.cfg.StakingWindow)
	c.pushToUser(ctx, duel.User1, "Match found", fmt.Sprintf("An opponent joined your %s duel, confirm and stake now", challenge.Name))

	logging.Info("match found",
		zap.String("duel_id", duel.Id),
		zap.String("user1", duel.User1),
		zap.String("user2", userId),
		zap.Time("staking_deadline", deadline),
	)
	return MatchResult{DuelId: duel.Id, Role: RoleJoiner}, nil
}
