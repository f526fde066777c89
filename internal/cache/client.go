package cache

import (
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps the ephemeral match store. It is the only writer and
// reader of duel-related keys; everything it holds is short-lived
// coordination state, reconciled into the record store at transitions.
type Client struct {
	redis *redis.Client
}

func NewClient(redisClient *redis.Client) *Client {
	return &Client{
		redis: redisClient,
	}
}

func waitingSetKey(challengeId string) string {
	return "matchmaking:challenge:" + challengeId
}

func duelEntryKey(duelId string) string {
	return "duel:" + duelId + ":entry"
}

func confirmationKey(duelId string) string {
	return "duel:" + duelId + ":confirm"
}

func stakingTimerKey(duelId string) string {
	return "duel:" + duelId + ":staking_timer"
}

// ErrBadEntryPayload wraps a deserialization failure of an ephemeral
// payload, so callers can classify it as a dependency fault instead of
// crashing on malformed cache contents.
type ErrBadEntryPayload struct {
	Key string
	Err error
}

func (e ErrBadEntryPayload) Error() string {
	return fmt.Sprintf("bad ephemeral payload at %s: %v", e.Key, e.Err)
}

func (e ErrBadEntryPayload) Unwrap() error {
	return e.Err
}
