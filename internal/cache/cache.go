package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bharatcrest/hrmatcher/internal/models"
)

// TTL is how long a published result set stays valid
const TTL = time.Hour

// Key returns the cache key for a job requirement's result set
func Key(jobRequirementID string) string {
	return "matched_" + jobRequirementID
}

// ResultCache stores the most recent ranked report per job requirement.
// Each Put replaces the key wholesale; entries are never merged. Writes for
// different keys are independent, so concurrent runs for different job
// requirements do not race.
type ResultCache interface {
	// Put replaces the report for a job requirement
	Put(ctx context.Context, jobRequirementID string, report models.MatchReport) error

	// Get returns the cached report and whether a live entry exists
	Get(ctx context.Context, jobRequirementID string) (models.MatchReport, bool, error)
}

// RedisCache stores result sets in Redis with the fixed TTL
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache wraps an existing Redis client
func NewRedisCache(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

func (c *RedisCache) Put(ctx context.Context, jobRequirementID string, report models.MatchReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := c.rdb.Set(ctx, Key(jobRequirementID), payload, TTL).Err(); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, jobRequirementID string) (models.MatchReport, bool, error) {
	payload, err := c.rdb.Get(ctx, Key(jobRequirementID)).Bytes()
	if err == redis.Nil {
		return models.MatchReport{}, false, nil
	}
	if err != nil {
		return models.MatchReport{}, false, fmt.Errorf("failed to read cached report: %w", err)
	}

	var report models.MatchReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return models.MatchReport{}, false, fmt.Errorf("failed to unmarshal cached report: %w", err)
	}
	return report, true, nil
}

// MemoryCache is an in-process ResultCache used in tests and when no Redis
// address is configured
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	report    models.MatchReport
	expiresAt time.Time
}

// NewMemoryCache creates an empty in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Put(_ context.Context, jobRequirementID string, report models.MatchReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(jobRequirementID)] = memoryEntry{
		report:    report,
		expiresAt: c.now().Add(TTL),
	}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, jobRequirementID string) (models.MatchReport, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[Key(jobRequirementID)]
	c.mu.RUnlock()

	if !ok || c.now().After(entry.expiresAt) {
		return models.MatchReport{}, false, nil
	}
	return entry.report, true, nil
}
