package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fitduel-vn/fitduel/internal/domains/entities"
	"github.com/redis/go-redis/v9"
)

// HasWaiting reports whether any opponent is waiting on the challenge.
// Advisory only: the sole claim primitive is PopEntry.
func (client *Client) HasWaiting(ctx context.Context, challengeId string) (bool, error) {
	n, err := client.redis.Exists(ctx, waitingSetKey(challengeId)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PushEntry registers a searching duel under the challenge key.
func (client *Client) PushEntry(
	ctx context.Context,
	challengeId string,
	entry entities.MatchEntry,
) error {
	entry.SchemaVersion = entities.MatchEntrySchemaVersion
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal match entry: %w", err)
	}
	return client.redis.SAdd(ctx, waitingSetKey(challengeId), payload).Err()
}

// PopEntry atomically removes and returns one waiting entry, or nil if
// none is waiting. Exactly one concurrent caller can claim a given
// entry; there is no separate check-then-delete window.
func (client *Client) PopEntry(
	ctx context.Context,
	challengeId string,
) (*entities.MatchEntry, error) {
	key := waitingSetKey(challengeId)
	payload, err := client.redis.SPop(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	entry, err := decodeEntry(key, []byte(payload))
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// SetDuelEntry mirrors the paired duel's entry under its duel key so
// score updates can be reflected without touching the waiting set.
func (client *Client) SetDuelEntry(ctx context.Context, entry entities.MatchEntry) error {
	entry.SchemaVersion = entities.MatchEntrySchemaVersion
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal match entry: %w", err)
	}
	return client.redis.Set(ctx, duelEntryKey(entry.DuelId), payload, 0).Err()
}

func (client *Client) GetDuelEntry(
	ctx context.Context,
	duelId string,
) (*entities.MatchEntry, error) {
	key := duelEntryKey(duelId)
	payload, err := client.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeEntry(key, []byte(payload))
}

func (client *Client) DeleteDuelEntry(ctx context.Context, duelId string) error {
	return client.redis.Del(ctx, duelEntryKey(duelId)).Err()
}

func decodeEntry(key string, payload []byte) (*entities.MatchEntry, error) {
	var entry entities.MatchEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, ErrBadEntryPayload{Key: key, Err: err}
	}
	if entry.SchemaVersion != entities.MatchEntrySchemaVersion {
		return nil, ErrBadEntryPayload{
			Key: key,
			Err: fmt.Errorf("unsupported schema version %d", entry.SchemaVersion),
		}
	}
	return &entry, nil
}
