package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

const (
	LeaderUser1 = "user1"
	LeaderUser2 = "user2"
	LeaderTie   = "tie"
)

type ScoreResult struct {
	Accepted   bool    `json:"accepted"`
	User1Score float64 `json:"user1Score"`
	User2Score float64 `json:"user2Score"`
	Leader     string  `json:"leader"`
	Completed  bool    `json:"completed"`
	Winner     string  `json:"winner,omitempty"`
}

type scoreUpdatePayload struct {
	DuelId     string  `json:"duelId"`
	User1Score float64 `json:"user1Score"`
	User2Score float64 `json:"user2Score"`
	Leader     string  `json:"leader"`
}

// SubmitScore ingests one cumulative device reading, refreshes the
// reporting participant's running score and settles the duel if the
// challenge target was crossed.
func (c *Coordinator) SubmitScore(
	ctx context.Context,
	duelId string,
	userId string,
	dataType string,
	value float64,
	timestamp time.Time,
) (ScoreResult, error) {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return ScoreResult{}, err
	}
	if !duel.Status.ScoringOpen() {
		// Includes completed duels: further submissions are rejected,
		// never silently ignored.
		return ScoreResult{}, newStateError(
			"Duel not running",
			fmt.Sprintf("scores are not accepted while the duel is %s", duel.Status),
		)
	}
	if !duel.HasParticipant(userId) {
		return ScoreResult{}, newForbiddenError("Not a participant", "you are not part of this duel")
	}

	challenge, err := c.store.GetChallenge(ctx, duel.ChallengeId)
	if err != nil {
		return ScoreResult{}, newDependencyError("Record store unavailable", err)
	}
	if dataType != challenge.Unit {
		return ScoreResult{}, newValidationError(
			"Wrong data type",
			fmt.Sprintf("this duel is measured in %s, got %s", challenge.Unit, dataType),
		)
	}
	if duel.DuelStartTime != nil && timestamp.Before(*duel.DuelStartTime) {
		return ScoreResult{}, newValidationError("Timestamp out of bounds", "reading predates the duel start")
	}
	if duel.DuelEndTime != nil && timestamp.After(*duel.DuelEndTime) {
		return ScoreResult{}, newValidationError("Timestamp out of bounds", "reading is past the duel end")
	}
	if timestamp.After(time.Now().Add(c.cfg.ForwardSkewTolerance)) {
		return ScoreResult{}, newValidationError("Timestamp out of bounds", "reading is too far in the future")
	}

	// Same (user, duel, dataType, timestamp) replaces the prior value
	// and resets the revalidation flag.
	point := entities.HealthDataPoint{
		DuelId:     duelId,
		UserId:     userId,
		DataType:   dataType,
		Value:      value,
		Timestamp:  timestamp,
		Revalidate: false,
	}
	if err := c.store.PutHealthData(ctx, point); err != nil {
		return ScoreResult{}, newDependencyError("Record store unavailable", err)
	}

	// Devices report running totals: the score is the latest cumulative
	// reading, not a sum of deltas.
	latest, err := c.store.LatestReading(ctx, duelId, userId, dataType)
	if err != nil {
		return ScoreResult{}, newDependencyError("Record store unavailable", err)
	}

	opts := storage.DuelUpdateOptions{
		ExpectStatus: []entities.DuelStatus{entities.DuelActive, entities.DuelMonitoringHealth},
	}
	if userId == duel.User1 {
		opts.User1Score = &latest
	} else {
		opts.User2Score = &latest
	}
	updated, err := c.store.UpdateDuel(ctx, duelId, opts)
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return ScoreResult{}, newStateError("Duel not running", "the duel settled while this reading was in flight")
		}
		return ScoreResult{}, newDependencyError("Record store unavailable", err)
	}
	c.mirrorScores(ctx, updated)

	leader := LeaderTie
	if updated.User1Score > updated.User2Score {
		leader = LeaderUser1
	} else if updated.User2Score > updated.User1Score {
		leader = LeaderUser2
	}
	c.channel.Emit(duelRoom(duelId), EventScoreUpdate, scoreUpdatePayload{
		DuelId:     duelId,
		User1Score: updated.User1Score,
		User2Score: updated.User2Score,
		Leader:     leader,
	})

	result := ScoreResult{
		Accepted:   true,
		User1Score: updated.User1Score,
		User2Score: updated.User2Score,
		Leader:     leader,
	}

	// Completion is evaluated against the consistent post-write read of
	// both fields. The participant who crosses the target wins.
	var winner string
	if updated.User1Score > challenge.TargetValue {
		winner = updated.User1
	} else if updated.User2Score > challenge.TargetValue {
		winner = updated.User2
	}
	if winner != "" {
		completed, err := c.completeDuel(ctx, updated, winner)
		if err != nil {
			return ScoreResult{}, err
		}
		result.Completed = completed
		if completed {
			result.Winner = winner
		}
	}
	return result, nil
}

// UpdateDuelScore is the legacy single-score-field update path: the
// reading is assumed to be in the challenge's unit, stamped now.
func (c *Coordinator) UpdateDuelScore(
	ctx context.Context,
	duelId string,
	userId string,
	newVal float64,
) (ScoreResult, error) {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return ScoreResult{}, err
	}
	challenge, err := c.store.GetChallenge(ctx, duel.ChallengeId)
	if err != nil {
		return ScoreResult{}, newDependencyError("Record store unavailable", err)
	}
	return c.SubmitScore(ctx, duelId, userId, challenge.Unit, newVal, time.Now())
}

// completeDuel settles the duel exactly once; a concurrent settlement
// makes this a no-op.
func (c *Coordinator) completeDuel(
	ctx context.Context,
	duel entities.Duel,
	winner string,
) (bool, error) {
	status := entities.DuelCompleted
	_, err := c.store.UpdateDuel(ctx, duel.Id, storage.DuelUpdateOptions{
		Status:       &status,
		Winner:       &winner,
		ExpectStatus: []entities.DuelStatus{entities.DuelActive, entities.DuelMonitoringHealth},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return false, nil
		}
		return false, newDependencyError("Record store unavailable", err)
	}

	c.channel.Emit(duelRoom(duel.Id), EventDuelCompleted, map[string]interface{}{
		"duelId": duel.Id,
		"winner": winner,
	})
	c.pushToUser(ctx, winner, "You won!", "You crossed the target first, the pot is yours")
	c.pushToUser(ctx, duel.Opponent(winner), "Duel over", "Your opponent crossed the target first")
	logging.Info("duel completed",
		zap.String("duel_id", duel.Id),
		zap.String("winner", winner),
	)
	c.cleanupEphemeral(ctx, duel.Id)
	return true, nil
}

// mirrorScores refreshes the ephemeral projection. Best effort: the
// record store is authoritative for scores.
func (c *Coordinator) mirrorScores(ctx context.Context, duel entities.Duel) {
	entry, err := c.cache.GetDuelEntry(ctx, duel.Id)
	if err != nil || entry == nil {
		if err != nil {
			logging.Error("failed to read duel entry", zap.String("duel_id", duel.Id), zap.Error(err))
		}
		return
	}
	entry.User1Score = duel.User1Score
	entry.User2Score = duel.User2Score
	if err := c.cache.SetDuelEntry(ctx, *entry); err != nil {
		logging.Error("failed to mirror scores", zap.String("duel_id", duel.Id), zap.Error(err))
	}
}
