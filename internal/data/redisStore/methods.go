package redisStore

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

func (s *Store) IsNil(err error) bool {
	return errors.Is(err, redis.Nil)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	count, err := s.client.Exists(ctx, key).Result()
	return count > 0, err
}

// ListReplace swaps the whole list stored at key in one MULTI block and sets its TTL.
func (s *Store) ListReplace(ctx context.Context, key string, values []interface{}, expiration time.Duration) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.RPush(ctx, key, values...)
			pipe.Expire(ctx, key, expiration)
		}
		return nil
	})
	return err
}

// ListGetLast returns up to n trailing elements, oldest first.
func (s *Store) ListGetLast(ctx context.Context, key string, n int64) ([]string, error) {
	if n <= 0 {
		return s.ListGetAll(ctx, key)
	}
	return s.client.LRange(ctx, key, -n, -1).Result()
}

func (s *Store) ListGetAll(ctx context.Context, key string) ([]string, error) {
	return s.client.LRange(ctx, key, 0, -1).Result()
}

// IncrWithTTL increments the counter at key and refreshes its TTL.
func (s *Store) IncrWithTTL(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, expiration)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetInt64 reads a counter; a missing key reads as 0.
func (s *Store) GetInt64(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// KEYS[1] list, KEYS[2] guard counter; ARGV[1] expected guard, ARGV[2] ttl ms, ARGV[3..] values
var listReplaceIfScript = redis.NewScript(`
local current = redis.call("GET", KEYS[2]) or "0"
if current ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
redis.call("RPUSH", KEYS[1], unpack(ARGV, 3))
redis.call("PEXPIRE", KEYS[1], ARGV[2])
return 1
`)

// ListReplaceIf does what ListReplace does, but only while the counter at guardKey still
// equals guard. It reports whether the list was written.
func (s *Store) ListReplaceIf(ctx context.Context, key string, guardKey string, guard int64, values []interface{}, expiration time.Duration) (bool, error) {
	if len(values) == 0 {
		return false, nil
	}
	args := make([]interface{}, 0, len(values)+2)
	args = append(args, strconv.FormatInt(guard, 10), expiration.Milliseconds())
	args = append(args, values...)
	written, err := listReplaceIfScript.Run(ctx, s.client, []string{key, guardKey}, args...).Int()
	if err != nil {
		return false, err
	}
	return written == 1, nil
}
