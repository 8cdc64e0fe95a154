package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanBatch = 256

// RedisLinkStore keeps links as plain string keys under a namespace prefix.
type RedisLinkStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLinkStore(client redis.UniversalClient, prefix string) *RedisLinkStore {
	return &RedisLinkStore{client: client, prefix: prefix}
}

// OpenRedisLinkStore parses a redis:// URL and waits for the server to answer PING.
func OpenRedisLinkStore(ctx context.Context, redisURL, prefix string) (*RedisLinkStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := retryConnect(ctx, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisLinkStore(client, prefix), nil
}

func (s *RedisLinkStore) key(code string) string {
	return s.prefix + code
}

func (s *RedisLinkStore) Get(ctx context.Context, code string) (*ShortLink, error) {
	val, err := s.client.Get(ctx, s.key(code)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ShortLink{Code: code, Destination: val}, nil
}

func (s *RedisLinkStore) Put(ctx context.Context, link *ShortLink) error {
	return s.client.Set(ctx, s.key(link.Code), link.Destination, 0).Err()
}

func (s *RedisLinkStore) PutIfAbsent(ctx context.Context, link *ShortLink) (bool, error) {
	return s.client.SetNX(ctx, s.key(link.Code), link.Destination, 0).Result()
}

func (s *RedisLinkStore) Delete(ctx context.Context, code string) error {
	return s.client.Del(ctx, s.key(code)).Err()
}

func (s *RedisLinkStore) List(ctx context.Context) ([]string, error) {
	var codes []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		codes = append(codes, strings.TrimPrefix(iter.Val(), s.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return codes, nil
}

func (s *RedisLinkStore) Close() error {
	return s.client.Close()
}

var _ LinkStore = (*RedisLinkStore)(nil)
