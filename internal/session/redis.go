package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	contextutils "quizengine/internal/utils"
)

const (
	hintKeyPrefix    = "quizengine:hints"
	sessionKeyPrefix = "quizengine:session"

	// casMaxRetries bounds the optimistic-locking loop in Update
	casMaxRetries = 5
)

// hintIncrScript performs a bounded check-and-increment in a single atomic
// step. Returns -1 when the counter already sits at the limit, otherwise the
// incremented value.
var hintIncrScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
  return -1
end
return redis.call('INCR', KEYS[1])
`)

// RedisHintStore is a redis-backed HintUsageStore for multi-instance
// deployments. All instances sharing the redis see one counter per key.
type RedisHintStore struct {
	client *redis.Client
}

// NewRedisHintStore creates a hint usage store backed by the given client
func NewRedisHintStore(client *redis.Client) *RedisHintStore {
	return &RedisHintStore{client: client}
}

func redisHintKey(userID, questionID int) string {
	return fmt.Sprintf("%s:%d:%d", hintKeyPrefix, userID, questionID)
}

// Increment implements HintUsageStore
func (r *RedisHintStore) Increment(ctx context.Context, userID, questionID, max int) (int, bool, error) {
	result, err := hintIncrScript.Run(ctx, r.client, []string{redisHintKey(userID, questionID)}, max).Int()
	if err != nil {
		return 0, false, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to increment hint counter", "", err)
	}
	if result < 0 {
		return max, false, nil
	}
	return result, true, nil
}

// Usage implements HintUsageStore
func (r *RedisHintStore) Usage(ctx context.Context, userID, questionID int) (int, error) {
	count, err := r.client.Get(ctx, redisHintKey(userID, questionID)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to read hint counter", "", err)
	}
	return count, nil
}

// Reset implements HintUsageStore
func (r *RedisHintStore) Reset(ctx context.Context, userID, questionID int) error {
	if err := r.client.Del(ctx, redisHintKey(userID, questionID)).Err(); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to reset hint counter", "", err)
	}
	return nil
}

// RedisStore is a redis-backed adaptive session Store. Update uses WATCH
// based optimistic locking so concurrent writers for the same session key
// retry instead of clobbering each other.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a session store backed by the given client
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisSessionKey(userID, quizID int) string {
	return fmt.Sprintf("%s:%d:%d", sessionKeyPrefix, userID, quizID)
}

// Put implements Store
func (r *RedisStore) Put(ctx context.Context, userID, quizID int, state *State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return contextutils.WrapError(err, "failed to marshal session state")
	}
	if err := r.client.Set(ctx, redisSessionKey(userID, quizID), payload, 0).Err(); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to store session state", "", err)
	}
	return nil
}

// Get implements Store
func (r *RedisStore) Get(ctx context.Context, userID, quizID int) (*State, error) {
	payload, err := r.client.Get(ctx, redisSessionKey(userID, quizID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, contextutils.ErrSessionNotFound
	}
	if err != nil {
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to read session state", "", err)
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, contextutils.WrapError(err, "failed to unmarshal session state")
	}
	return &state, nil
}

// Update implements Store
func (r *RedisStore) Update(ctx context.Context, userID, quizID int, fn func(*State) error) (*State, error) {
	key := redisSessionKey(userID, quizID)

	var updated *State
	txn := func(tx *redis.Tx) error {
		payload, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return contextutils.ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var state State
		if err := json.Unmarshal(payload, &state); err != nil {
			return err
		}
		if err := fn(&state); err != nil {
			return err
		}
		next, err := json.Marshal(&state)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		updated = &state
		return nil
	}

	for i := 0; i < casMaxRetries; i++ {
		err := r.client.Watch(ctx, txn, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		// Errors raised by fn (or the missing-session sentinel) pass through
		// unwrapped so callers can match on their codes
		var appErr *contextutils.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to update session state", "", err)
	}
	return nil, contextutils.NewAppError(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "session update contention, retries exhausted", "")
}

// Delete implements Store
func (r *RedisStore) Delete(ctx context.Context, userID, quizID int) error {
	if err := r.client.Del(ctx, redisSessionKey(userID, quizID)).Err(); err != nil {
		return contextutils.NewAppErrorWithCause(contextutils.ErrorCodeStoreUnavailable, contextutils.SeverityError, "failed to delete session state", "", err)
	}
	return nil
}
