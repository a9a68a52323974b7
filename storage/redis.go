package storage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps processed lead ids in one Redis set. Deal ids go to a
// companion hash at "<key>:deals".
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, redisURL, key string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStoreWithClient(client, key), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Load(ctx context.Context) (map[string]struct{}, error) {
	members, err := s.client.SMembers(ctx, s.key).Result()
	if err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(members))
	for _, m := range members {
		ids[m] = struct{}{}
	}
	return ids, nil
}

func (s *RedisStore) Append(ctx context.Context, e Entry) error {
	if e.DealID <= 0 {
		return s.client.SAdd(ctx, s.key, e.LeadID).Err()
	}

	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, s.key, e.LeadID)
	pipe.HSet(ctx, s.key+":deals", e.LeadID, strconv.Itoa(e.DealID))
	_, err := pipe.Exec(ctx)
	return err
}
