package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// RedisEventLog implements EventLog with one sorted set per identifier.
// Members are scored by their timestamp in microseconds; keys expire after
// ttl without traffic.
type RedisEventLog struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisEventLog creates an EventLog on client. ttl should be at least
// twice the longest window of the policy in use.
func NewRedisEventLog(client redis.UniversalClient, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, ttl: ttl}
}

func redisKey(identifier string) string {
	return redisKeyPrefix + identifier
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMicro(), 10)
}

func (l *RedisEventLog) Count(ctx context.Context, identifier string, since time.Time) (int, error) {
	n, err := l.client.ZCount(ctx, redisKey(identifier), "("+score(since), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("counting rate limit events: %w", err)
	}
	return int(n), nil
}

func (l *RedisEventLog) Oldest(ctx context.Context, identifier string, since time.Time) (time.Time, bool, error) {
	res, err := l.client.ZRangeByScoreWithScores(ctx, redisKey(identifier), &redis.ZRangeBy{
		Min:   "(" + score(since),
		Max:   "+inf",
		Count: 1,
	}).Result()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("querying oldest rate limit event: %w", err)
	}
	if len(res) == 0 {
		return time.Time{}, false, nil
	}
	return time.UnixMicro(int64(res[0].Score)), true, nil
}

func (l *RedisEventLog) Record(ctx context.Context, identifier string, at time.Time) error {
	key := redisKey(identifier)
	member := score(at) + "-" + uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMicro()), Member: member})
	pipe.Expire(ctx, key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording rate limit event: %w", err)
	}
	return nil
}

func (l *RedisEventLog) Prune(ctx context.Context, identifier string, before time.Time) error {
	upper := "(" + score(before)

	if identifier != "" {
		if err := l.client.ZRemRangeByScore(ctx, redisKey(identifier), "-inf", upper).Err(); err != nil {
			return fmt.Errorf("pruning rate limit events: %w", err)
		}
		return nil
	}

	iter := l.client.Scan(ctx, 0, redisKeyPrefix+"*", 256).Iterator()
	for iter.Next(ctx) {
		if err := l.client.ZRemRangeByScore(ctx, iter.Val(), "-inf", upper).Err(); err != nil {
			return fmt.Errorf("pruning rate limit events for %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scanning rate limit keys: %w", err)
	}
	return nil
}
