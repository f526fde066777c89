package server

import (
	"context"
	"errors"
	"time"

	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

const EventStakeObserved = "stake_observed"

// OnStakeObserved is invoked by the external ledger-event listener when
// a participant's stake lands on-chain. Marking is conditional on the
// current stake status, so replayed ledger events are idempotent.
func (c *Coordinator) OnStakeObserved(ctx context.Context, duelId, userId string) error {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return err
	}
	if !duel.HasParticipant(userId) {
		return newForbiddenError("Not a participant", "you are not part of this duel")
	}

	staked := entities.StakePlaced
	unstaked := entities.StakeUnstaked
	opts := storage.DuelUpdateOptions{}
	if userId == duel.User1 {
		opts.User1StakeStatus = &staked
		opts.ExpectUser1StakeStatus = &unstaked
	} else {
		opts.User2StakeStatus = &staked
		opts.ExpectUser2StakeStatus = &unstaked
	}
	updated, err := c.store.UpdateDuel(ctx, duelId, opts)
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// Duplicate ledger event; the stake is already recorded.
			return nil
		}
		return newDependencyError("Record store unavailable", err)
	}

	c.channel.Emit(duelRoom(duelId), EventStakeObserved, map[string]interface{}{
		"duelId": duelId,
		"userId": userId,
	})
	logging.Info("stake observed", zap.String("duel_id", duelId), zap.String("user_id", userId))

	// Stakes only advance the duel once the confirmation gate has
	// produced accepted; earlier stakes stay recorded but gated.
	if updated.Status == entities.DuelAccepted &&
		updated.User1StakeStatus == entities.StakePlaced &&
		updated.User2StakeStatus == entities.StakePlaced {
		return c.activateDuel(ctx, duelId)
	}
	return nil
}

func (c *Coordinator) activateDuel(ctx context.Context, duelId string) error {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return err
	}
	challenge, err := c.store.GetChallenge(ctx, duel.ChallengeId)
	if err != nil {
		return newDependencyError("Record store unavailable", err)
	}
	duration := challenge.Duration
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	start := time.Now()
	end := start.Add(duration)
	status := entities.DuelActive
	_, err = c.store.UpdateDuel(ctx, duelId, storage.DuelUpdateOptions{
		Status:        &status,
		DuelStartTime: &start,
		DuelEndTime:   &end,
		ExpectStatus:  []entities.DuelStatus{entities.DuelAccepted},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return nil
		}
		return newDependencyError("Record store unavailable", err)
	}

	c.stopStakingTimer(duelId)
	if err := c.cache.ClearStakingMarker(ctx, duelId); err != nil {
		logging.Error("failed to clear staking marker", zap.String("duel_id", duelId), zap.Error(err))
	}
	c.channel.Emit(duelRoom(duelId), EventDuelStarted, map[string]interface{}{
		"duelId":        duelId,
		"duelStartTime": start,
		"duelEndTime":   end,
	})
	c.pushToUser(ctx, duel.User1, "Duel on", "Both stakes are in, your duel has started")
	c.pushToUser(ctx, duel.User2, "Duel on", "Both stakes are in, your duel has started")
	logging.Info("duel started", zap.String("duel_id", duelId), zap.Time("ends_at", end))
	return nil
}

// StartMonitoring is the external health-monitoring start signal.
func (c *Coordinator) StartMonitoring(ctx context.Context, duelId string) error {
	status := entities.DuelMonitoringHealth
	_, err := c.store.UpdateDuel(ctx, duelId, storage.DuelUpdateOptions{
		Status:       &status,
		ExpectStatus: []entities.DuelStatus{entities.DuelActive},
	})
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return newStateError("Not active", "health monitoring can only start on an active duel")
		}
		return newDependencyError("Record store unavailable", err)
	}
	c.channel.Emit(duelRoom(duelId), EventMonitoringStarted, map[string]interface{}{
		"duelId": duelId,
	})
	logging.Info("health monitoring started", zap.String("duel_id", duelId))
	return nil
}

// HandleStakingTimeout applies the staking window policy. Stale fires
// re-check the durable status and no-op instead of trusting captured
// state. Exported so a reconciliation sweep can drive overdue duels
// through the same path.
func (c *Coordinator) HandleStakingTimeout(ctx context.Context, duelId string) {
	duel, err := c.store.GetDuel(ctx, duelId)
	if err != nil {
		logging.Error("failed to read duel at staking deadline",
			zap.String("duel_id", duelId),
			zap.Error(err),
		)
		return
	}
	if duel.Status != entities.DuelWaitingForStakes {
		// Already progressed or settled; the timeout is stale.
		return
	}

	user1Staked := duel.User1StakeStatus == entities.StakePlaced
	user2Staked := duel.User2StakeStatus == entities.StakePlaced
	switch {
	case user1Staked && user2Staked:
		// A concurrent stake-completion path owns this duel.
		return
	case user1Staked:
		c.expireWithRefund(ctx, duel, duel.User1, true)
	case user2Staked:
		c.expireWithRefund(ctx, duel, duel.User2, false)
	default:
		status := entities.DuelStakingTimeout
		_, err := c.store.UpdateDuel(ctx, duelId, storage.DuelUpdateOptions{
			Status:       &status,
			ExpectStatus: []entities.DuelStatus{entities.DuelWaitingForStakes},
		})
		if err != nil && !errors.Is(err, storage.ErrConditionFailed) {
			// Stakes are not held here, but the duel must not stay stuck.
			logging.Error("failed to expire unstaked duel, needs reconciliation",
				zap.String("duel_id", duelId),
				zap.Error(err),
			)
			return
		}
		if err == nil {
			c.channel.Emit(duelRoom(duelId), EventDuelCancelled, map[string]interface{}{
				"duelId": duelId,
				"reason": "staking_timeout",
			})
			logging.Info("staking window expired, no stakes", zap.String("duel_id", duelId))
		}
	}
	c.cleanupEphemeral(ctx, duelId)
}

// expireWithRefund times out a half-staked duel and marks the staked
// side refunded in one conditional write, keyed by duel and participant
// so the ledger refund is never double-issued. Refund execution itself
// is delegated to the external ledger.
func (c *Coordinator) expireWithRefund(
	ctx context.Context,
	duel entities.Duel,
	refundedUser string,
	isUser1 bool,
) {
	status := entities.DuelStakingTimeout
	refunded := entities.StakeRefunded
	staked := entities.StakePlaced
	opts := storage.DuelUpdateOptions{
		Status:       &status,
		ExpectStatus: []entities.DuelStatus{entities.DuelWaitingForStakes},
	}
	if isUser1 {
		opts.User1StakeStatus = &refunded
		opts.ExpectUser1StakeStatus = &staked
	} else {
		opts.User2StakeStatus = &refunded
		opts.ExpectUser2StakeStatus = &staked
	}
	_, err := c.store.UpdateDuel(ctx, duel.Id, opts)
	if err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			// Another path already resolved the duel or the refund.
			return
		}
		// A held stake must never be silently stuck.
		logging.Error("failed to expire half-staked duel, needs reconciliation",
			zap.String("duel_id", duel.Id),
			zap.String("refund_user", refundedUser),
			zap.Error(err),
		)
		return
	}

	c.channel.Emit(duelRoom(duel.Id), EventDuelCancelled, map[string]interface{}{
		"duelId":   duel.Id,
		"reason":   "partial_stake_timeout",
		"refunded": refundedUser,
	})
	c.pushToUser(ctx, refundedUser, "Duel cancelled", "Your opponent never staked, your stake is being refunded")
	logging.Info("staking window expired, one stake refunded",
		zap.String("duel_id", duel.Id),
		zap.String("refund_user", refundedUser),
	)
}

// CancelDuel is the explicit participant cancellation path.
func (c *Coordinator) CancelDuel(ctx context.Context, duelId, userId string) error {
	duel, err := c.getDuel(ctx, duelId)
	if err != nil {
		return err
	}
	if !duel.HasParticipant(userId) {
		return newForbiddenError("Not a participant", "you are not part of this duel")
	}
	if !canTransition(duel.Status, entities.DuelCancelled) {
		return newStateError("Already settled", "this duel has already reached a terminal state")
	}
	return c.cancelDuel(ctx, duelId, "cancelled_by_user", userId)
}

func (c *Coordinator) getDuel(ctx context.Context, duelId string) (entities.Duel, error) {
	duel, err := c.store.GetDuel(ctx, duelId)
	if err != nil {
		if errors.Is(err, storage.ErrDuelNotFound) {
			return entities.Duel{}, newNotFoundError("Unknown duel", "no duel with id "+duelId)
		}
		return entities.Duel{}, newDependencyError("Record store unavailable", err)
	}
	return duel, nil
}
