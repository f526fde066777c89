package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// OpenConfirmation creates the per-duel confirmation record with both
// participants pending. HSet on a hash field is atomic, so the two
// participants' answers never clobber each other.
func (client *Client) OpenConfirmation(ctx context.Context, duelId, user1, user2 string) error {
	return client.redis.HSet(
		ctx,
		confirmationKey(duelId),
		user1, "pending",
		user2, "pending",
	).Err()
}

// recordAnswerScript writes the answer only while the record still
// exists. A bare HSET would silently recreate a record a concurrent
// cancellation just deleted, leaving an orphan key with no TTL.
var recordAnswerScript = redis.NewScript(`
if redis.call("exists", KEYS[1]) == 1 then
	redis.call("hset", KEYS[1], ARGV[1], ARGV[2])
	return 1
end
return 0
`)

// RecordAnswer stores one participant's answer, if the confirmation is
// still open. A write that lost to a concurrent clear is dropped; the
// caller's re-read with GetConfirmations observes the empty record. The
// both-answered check must use that re-read, not in-handler state.
func (client *Client) RecordAnswer(ctx context.Context, duelId, userId, answer string) error {
	return recordAnswerScript.Run(ctx, client.redis, []string{confirmationKey(duelId)}, userId, answer).Err()
}

// GetConfirmations returns the participant -> answer map, or an empty
// map if no confirmation record is open for the duel.
func (client *Client) GetConfirmations(ctx context.Context, duelId string) (map[string]string, error) {
	return client.redis.HGetAll(ctx, confirmationKey(duelId)).Result()
}

func (client *Client) ClearConfirmation(ctx context.Context, duelId string) error {
	return client.redis.Del(ctx, confirmationKey(duelId)).Err()
}
