package dedup

import (
	"context"

	apperrors "github.com/dealmungchi/freegameworker/pkg/errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps announced ids in a Redis set
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to Redis and checks it is reachable
func NewRedisStore(ctx context.Context, addr string, db int, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperrors.NewStore("redis", "failed to reach "+addr, err)
	}

	return &RedisStore{
		client: client,
		key:    key,
	}, nil
}

func (s *RedisStore) Contains(ctx context.Context, id string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.key, id).Result()
	if err != nil {
		return false, apperrors.NewStore("redis", "lookup "+id, err)
	}
	return ok, nil
}

func (s *RedisStore) AddAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := s.client.SAdd(ctx, s.key, members...).Err(); err != nil {
		return apperrors.NewStore("redis", "add ids", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
