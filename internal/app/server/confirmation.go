package server

import (
	"context"
	"errors"

	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

// ConfirmMatch records one participant's yes/no for a paired duel. The
// answer write is an atomic hash-field set and the both-answered check
// re-reads the freshly merged record, so the two participants'
// concurrent confirmations cannot double-settle or miss a no.
func (c *Coordinator) ConfirmMatch(
	ctx context.Context,
	duelId string,
	userId string,
	answer string,
) error {
	if answer != entities.AnswerYes && answer != entities.AnswerNo {
		return newValidationError("Invalid answer", "answer must be exactly yes or no")
	}

	confirms, err := c.cache.GetConfirmations(ctx, duelId)
	if err != nil {
		return newDependencyError("Match store unavailable", err)
	}
	if len(confirms) == 0 {
		return newNotFoundError("No open confirmation", "no confirmation is pending for duel "+duelId)
	}
	if _, ok := confirms[userId]; !ok {
		return newForbiddenError("Not a participant", "you are not part of this duel")
	}

	if answer == entities.AnswerNo {
		logging.Info("match declined", zap.String("duel_id", duelId), zap.String("user_id", userId))
		return c.cancelDuel(ctx, duelId, "participant_declined", userId)
	}

	if err := c.cache.RecordAnswer(ctx, duelId, userId, entities.AnswerYes); err != nil {
		return newDependencyError("Match store unavailable", err)
	}
	merged, err := c.cache.GetConfirmations(ctx, duelId)
	if err != nil {
		return newDependencyError("Match store unavailable", err)
	}
	if len(merged) == 0 {
		// Record cleared underneath us: the other side declined or the
		// deadline fired while our answer was in flight.
		return nil
	}

	answered := 0
	sawNo := false
	for _, a := range merged {
		if a != entities.AnswerPending {
			answered++
		}
		if a == entities.AnswerNo {
			sawNo = true
		}
	}
	if sawNo {
		return c.cancelDuel(ctx, duelId, "participant_declined", "")
	}
	// The confirmation deadline runs from the first recorded answer,
	// independent of the staking deadline.
	if answered == 1 {
		c.armConfirmationTimer(duelId, c.cfg.ConfirmationWindow)
		c.channel.Emit(duelRoom(duelId), EventParticipantConfirm, map[string]interface{}{
			"duelId": duelId,
			"userId": userId,
		})
		return nil
	}

	return c.acceptDuel(ctx, duelId)
}

// acceptDuel advances both-yes duels to accepted exactly once.
func (c *Coordinator) acceptDuel(ctx context.Context, duelId string) error {
	status := entities.DuelAccepted
	duel, err := c.store.UpdateDuel(ctx, duelId, storage.DuelUpdateOptions{
		Status:       &status,
		ExpectStatus: []entities.DuelStatus{entities.DuelWaitingForStakes},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// A concurrent confirmation or cancellation won; accepted is
			// only ever produced once.
			return nil
		}
		return newDependencyError("Record store unavailable", err)
	}

	if err := c.cache.ClearConfirmation(ctx, duelId); err != nil {
		logging.Error("failed to clear confirmation record", zap.String("duel_id", duelId), zap.Error(err))
	}
	c.stopConfirmationTimer(duelId)
	c.channel.Emit(duelRoom(duelId), EventMatchConfirmed, map[string]interface{}{
		"duelId": duelId,
		"status": entities.DuelAccepted,
	})
	logging.Info("match confirmed", zap.String("duel_id", duelId))

	// Stakes may have landed while confirmation was still open; they are
	// gated on accepted, so activate now if both are already in.
	if duel.User1StakeStatus == entities.StakePlaced && duel.User2StakeStatus == entities.StakePlaced {
		return c.activateDuel(ctx, duelId)
	}
	return nil
}

func (c *Coordinator) handleConfirmationTimeout(ctx context.Context, duelId string) {
	confirms, err := c.cache.GetConfirmations(ctx, duelId)
	if err != nil {
		logging.Error("failed to read confirmation record", zap.String("duel_id", duelId), zap.Error(err))
		return
	}
	if len(confirms) == 0 {
		return
	}
	answered := 0
	for _, a := range confirms {
		if a != entities.AnswerPending {
			answered++
		}
	}
	if answered >= 2 {
		// Both answers landed; the acceptance path owns this duel now.
		return
	}
	logging.Info("confirmation deadline expired", zap.String("duel_id", duelId))
	if err := c.cancelDuel(ctx, duelId, "no response in time", ""); err != nil {
		logging.Error("failed to cancel unconfirmed duel", zap.String("duel_id", duelId), zap.Error(err))
	}
}

// cancelDuel forces a non-terminal duel to cancelled exactly once and
// clears its coordination state. Cancelling an already-terminal duel is
// a no-op.
func (c *Coordinator) cancelDuel(ctx context.Context, duelId, reason, declinedBy string) error {
	status := entities.DuelCancelled
	_, err := c.store.UpdateDuel(ctx, duelId, storage.DuelUpdateOptions{
		Status:       &status,
		ExpectStatus: nonTerminalStatuses,
	})
	if err != nil && !errors.Is(err, storage.ErrConditionFailed) {
		return newDependencyError("Record store unavailable", err)
	}
	if err == nil {
		payload := map[string]interface{}{
			"duelId": duelId,
			"reason": reason,
		}
		if declinedBy != "" {
			payload["declinedBy"] = declinedBy
		}
		c.channel.Emit(duelRoom(duelId), EventDuelCancelled, payload)
		logging.Info("duel cancelled", zap.String("duel_id", duelId), zap.String("reason", reason))
	}
	c.cleanupEphemeral(ctx, duelId)
	return nil
}
