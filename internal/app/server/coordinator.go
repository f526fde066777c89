package server

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/fitduel-vn/fitduel/internal/aws/storage"
	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/fitduel-vn/fitduel/internal/realtime"
	"github.com/fitduel-vn/fitduel/pkg/logging"
	"go.uber.org/zap"
)

// DuelStore is the durable record store: the source of truth for a duel
// once it is no longer purely ephemeral. *storage.Client satisfies it.
type DuelStore interface {
	CreateDuel(ctx context.Context, duel entities.Duel) error
	GetDuel(ctx context.Context, duelId string) (entities.Duel, error)
	UpdateDuel(ctx context.Context, duelId string, opts storage.DuelUpdateOptions) (entities.Duel, error)
	GetChallenge(ctx context.Context, challengeId string) (entities.Challenge, error)
	PutChallenge(ctx context.Context, challenge entities.Challenge) error
	PutHealthData(ctx context.Context, point entities.HealthDataPoint) error
	LatestReading(ctx context.Context, duelId, userId, dataType string) (float64, error)
	FetchHealthData(ctx context.Context, duelId string, lastKey map[string]types.AttributeValue, limit int32) ([]entities.HealthDataPoint, map[string]types.AttributeValue, error)
	GetApplicationEndpoint(ctx context.Context, userId string) (entities.ApplicationEndpoint, error)
	PutApplicationEndpoint(ctx context.Context, endpoint entities.ApplicationEndpoint) error
}

// MatchCache is the ephemeral match store holding pre-commit, racy,
// short-lived coordination state. *cache.Client satisfies it.
type MatchCache interface {
	HasWaiting(ctx context.Context, challengeId string) (bool, error)
	PushEntry(ctx context.Context, challengeId string, entry entities.MatchEntry) error
	PopEntry(ctx context.Context, challengeId string) (*entities.MatchEntry, error)
	SetDuelEntry(ctx context.Context, entry entities.MatchEntry) error
	GetDuelEntry(ctx context.Context, duelId string) (*entities.MatchEntry, error)
	DeleteDuelEntry(ctx context.Context, duelId string) error
	OpenConfirmation(ctx context.Context, duelId, user1, user2 string) error
	RecordAnswer(ctx context.Context, duelId, userId, answer string) error
	GetConfirmations(ctx context.Context, duelId string) (map[string]string, error)
	ClearConfirmation(ctx context.Context, duelId string) error
	SetStakingMarker(ctx context.Context, duelId string, ttl time.Duration) error
	HasStakingMarker(ctx context.Context, duelId string) (bool, error)
	ClearStakingMarker(ctx context.Context, duelId string) error
}

// Pusher delivers out-of-band push notifications. May be nil.
type Pusher interface {
	SendPushNotification(ctx context.Context, endpointArn, title, body string) error
}

type CoordinatorConfig struct {
	StakingWindow        time.Duration
	ConfirmationWindow   time.Duration
	ForwardSkewTolerance time.Duration
}

// Coordinator owns the duel lifecycle: matchmaking, the confirmation
// gate, the staking window and score-driven settlement. All shared
// state lives in the two stores; per-duel serialization comes from the
// atomicity of individual store operations, not application locks.
type Coordinator struct {
	store   DuelStore
	cache   MatchCache
	channel realtime.Channel
	pusher  Pusher
	cfg     CoordinatorConfig

	stakingTimers sync.Map // duelId -> *time.Timer
	confirmTimers sync.Map // duelId -> *time.Timer
}

func NewCoordinator(
	store DuelStore,
	matchCache MatchCache,
	channel realtime.Channel,
	pusher Pusher,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.StakingWindow <= 0 {
		cfg.StakingWindow = 60 * time.Second
	}
	if cfg.ConfirmationWindow <= 0 {
		cfg.ConfirmationWindow = 30 * time.Second
	}
	if cfg.ForwardSkewTolerance <= 0 {
		cfg.ForwardSkewTolerance = 5 * time.Minute
	}
	return &Coordinator{
		store:   store,
		cache:   matchCache,
		channel: channel,
		pusher:  pusher,
		cfg:     cfg,
	}
}

func duelRoom(duelId string) string {
	return "duel:" + duelId
}

// armStakingTimer arms the single-shot staking deadline. Advancing past
// the phase does not cancel the timer; the fire handler re-checks the
// durable status and no-ops when stale.
func (c *Coordinator) armStakingTimer(duelId string, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.stakingTimers.Delete(duelId)
		c.HandleStakingTimeout(context.Background(), duelId)
	})
	if prev, loaded := c.stakingTimers.Swap(duelId, timer); loaded {
		prev.(*time.Timer).Stop()
	}
}

func (c *Coordinator) stopStakingTimer(duelId string) {
	if timer, loaded := c.stakingTimers.LoadAndDelete(duelId); loaded {
		timer.(*time.Timer).Stop()
	}
}

func (c *Coordinator) armConfirmationTimer(duelId string, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.confirmTimers.Delete(duelId)
		c.handleConfirmationTimeout(context.Background(), duelId)
	})
	if prev, loaded := c.confirmTimers.Swap(duelId, timer); loaded {
		prev.(*time.Timer).Stop()
	}
}

func (c *Coordinator) stopConfirmationTimer(duelId string) {
	if timer, loaded := c.confirmTimers.LoadAndDelete(duelId); loaded {
		timer.(*time.Timer).Stop()
	}
}

// pushToUser delivers a push notification to the user's registered app
// endpoint, if push is wired and the user has one. Best effort.
func (c *Coordinator) pushToUser(ctx context.Context, userId, title, body string) {
	if c.pusher == nil || userId == "" {
		return
	}
	endpoint, err := c.store.GetApplicationEndpoint(ctx, userId)
	if err != nil {
		logging.Debug("no application endpoint",
			zap.String("user_id", userId),
			zap.Error(err),
		)
		return
	}
	if err := c.pusher.SendPushNotification(ctx, endpoint.EndpointArn, title, body); err != nil {
		logging.Error("failed to push notification",
			zap.String("user_id", userId),
			zap.Error(err),
		)
	}
}

// cleanupEphemeral drops every coordination key a settled duel held.
// Ephemeral writes are best-effort; failures are logged and safe to
// leave for TTL expiry.
func (c *Coordinator) cleanupEphemeral(ctx context.Context, duelId string) {
	if err := c.cache.ClearConfirmation(ctx, duelId); err != nil {
		logging.Error("failed to clear confirmation record", zap.String("duel_id", duelId), zap.Error(err))
	}
	if err := c.cache.ClearStakingMarker(ctx, duelId); err != nil {
		logging.Error("failed to clear staking marker", zap.String("duel_id", duelId), zap.Error(err))
	}
	if err := c.cache.DeleteDuelEntry(ctx, duelId); err != nil {
		logging.Error("failed to delete duel entry", zap.String("duel_id", duelId), zap.Error(err))
	}
	c.stopStakingTimer(duelId)
	c.stopConfirmationTimer(duelId)
}
