package identverify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"ctn/pkg/platform/sentinel"
	"ctn/pkg/requestcontext"
)

// validationKeyPrefix namespaces cached registry verdicts.
const validationKeyPrefix = "ive:registry:"

// ValidationCache stores registry verdicts so repeated verification cycles
// for the same registry number within the TTL do not re-call the
// collaborator.
type ValidationCache interface {
	Find(ctx context.Context, registryNumber string) (*ValidationResult, error)
	Save(ctx context.Context, registryNumber string, result *ValidationResult) error
}

// RedisValidationCache is the production cache, shared across instances.
type RedisValidationCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisValidationCache constructs a cache with the given verdict TTL.
func NewRedisValidationCache(client *redis.Client, ttl time.Duration) *RedisValidationCache {
	return &RedisValidationCache{client: client, ttl: ttl}
}

func (c *RedisValidationCache) Find(ctx context.Context, registryNumber string) (*ValidationResult, error) {
	payload, err := c.client.Get(ctx, validationKeyPrefix+registryNumber).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read cached validation: %w", err)
	}
	var result ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("decode cached validation: %w", err)
	}
	return &result, nil
}

func (c *RedisValidationCache) Save(ctx context.Context, registryNumber string, result *ValidationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode validation: %w", err)
	}
	return c.client.Set(ctx, validationKeyPrefix+registryNumber, payload, c.ttl).Err()
}

// MemoryValidationCache is a map-backed cache for tests and single-node
// development, with the same TTL semantics as the Redis cache.
type MemoryValidationCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryVerdict
}

type memoryVerdict struct {
	result    ValidationResult
	expiresAt time.Time
}

// NewMemoryValidationCache constructs an in-memory cache with the given
// verdict TTL.
func NewMemoryValidationCache(ttl time.Duration) *MemoryValidationCache {
	return &MemoryValidationCache{ttl: ttl, entries: make(map[string]memoryVerdict)}
}

func (c *MemoryValidationCache) Find(ctx context.Context, registryNumber string) (*ValidationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[registryNumber]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !requestcontext.Now(ctx).Before(entry.expiresAt) {
		delete(c.entries, registryNumber)
		return nil, sentinel.ErrNotFound
	}
	result := entry.result
	result.Flags = append([]string(nil), entry.result.Flags...)
	return &result, nil
}

func (c *MemoryValidationCache) Save(ctx context.Context, registryNumber string, result *ValidationResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := *result
	stored.Flags = append([]string(nil), result.Flags...)
	c.entries[registryNumber] = memoryVerdict{
		result:    stored,
		expiresAt: requestcontext.Now(ctx).Add(c.ttl),
	}
	return nil
}
