package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisPendingAuthStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPendingAuthStore(client redis.UniversalClient, prefix string) *RedisPendingAuthStore {
	if prefix == "" {
		prefix = "pending_auth"
	}
	return &RedisPendingAuthStore{client: client, prefix: prefix}
}

func (s *RedisPendingAuthStore) Create(ctx context.Context, id string, pa PendingAuth, ttl time.Duration) error {
	payload, err := json.Marshal(pa)
	if err != nil {
		return fmt.Errorf("marshal pending auth: %w", err)
	}
	return s.client.Set(ctx, s.key(id), payload, ttl).Err()
}

func (s *RedisPendingAuthStore) Get(ctx context.Context, id string) (PendingAuth, bool, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return PendingAuth{}, false, nil
	}
	if err != nil {
		return PendingAuth{}, false, err
	}
	var pa PendingAuth
	if err := json.Unmarshal([]byte(raw), &pa); err != nil {
		return PendingAuth{}, false, fmt.Errorf("unmarshal pending auth: %w", err)
	}
	return pa, true, nil
}

func (s *RedisPendingAuthStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

func (s *RedisPendingAuthStore) key(id string) string {
	return fmt.Sprintf("%s:%s", s.prefix, id)
}
