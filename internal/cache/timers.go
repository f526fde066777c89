package cache

import (
	"context"
	"time"
)

// SetStakingMarker records that a staking timer is armed for the duel.
// The key's existence is the signal: if the process dies before the
// in-memory timer fires, a reconciliation sweep can find duels whose
// marker expired while the record is still in waiting_for_stakes.
func (client *Client) SetStakingMarker(ctx context.Context, duelId string, ttl time.Duration) error {
	return client.redis.SetEx(ctx, stakingTimerKey(duelId), "armed", ttl).Err()
}

func (client *Client) HasStakingMarker(ctx context.Context, duelId string) (bool, error) {
	n, err := client.redis.Exists(ctx, stakingTimerKey(duelId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (client *Client) ClearStakingMarker(ctx context.Context, duelId string) error {
	return client.redis.Del(ctx, stakingTimerKey(duelId)).Err()
}
