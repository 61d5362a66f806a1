package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/candemir/bulkmail/internal/domain"
)

const defaultProgressTTL = time.Hour

// RedisProgressStore persists per-operation bulk send progress so it can
// be polled across API instances. Entries expire on their own; a finished
// run needs no cleanup pass.
type RedisProgressStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewRedisProgressStore(client *goredis.Client, ttl time.Duration) (*RedisProgressStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if ttl <= 0 {
		ttl = defaultProgressTTL
	}

	return &RedisProgressStore{client: client, ttl: ttl}, nil
}

func progressKey(operationID string) (string, error) {
	id := strings.TrimSpace(operationID)
	if id == "" {
		return "", fmt.Errorf("%w: operation id is required", domain.ErrValidation)
	}
	return "bulkmail:progress:" + id, nil
}

func (s *RedisProgressStore) Set(ctx context.Context, progress domain.BulkProgress) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("progress store is not initialized")
	}

	key, err := progressKey(progress.OperationID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Get(ctx context.Context, operationID string) (*domain.BulkProgress, error) {
	if s == nil || s.client == nil {
		return nil, fmt.Errorf("progress store is not initialized")
	}

	key, err := progressKey(operationID)
	if err != nil {
		return nil, err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var progress domain.BulkProgress
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &progress, nil
}
