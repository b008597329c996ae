package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/recipex/recipex/internal/model"
)

const (
	searchKeyPrefix = "mealdb:search:"

	// DefaultSearchTTL is the TTL for cached external search results.
	DefaultSearchTTL = 15 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

// searchKey builds the cache key for a search query. Queries differing only
// in case or surrounding whitespace share one entry.
func searchKey(query string) string {
	return searchKeyPrefix + strings.ToLower(strings.TrimSpace(query))
}

// GetSearchResults retrieves cached external search results for a query.
// Returns ErrCacheMiss when the query has no cached entry. An empty cached
// result list is a valid hit: it remembers that the external API had no
// matches for the query.
func (c *Cache) GetSearchResults(ctx context.Context, query string) ([]model.Recipe, error) {
	payload, err := c.client.Get(ctx, searchKey(query)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var recipes []model.Recipe
	if err := json.Unmarshal(payload, &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode cached search results: %w", err)
	}
	return recipes, nil
}

// SetSearchResults caches external search results for a query.
// A non-positive ttl falls back to DefaultSearchTTL.
func (c *Cache) SetSearchResults(ctx context.Context, query string, recipes []model.Recipe, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultSearchTTL
	}

	payload, err := json.Marshal(recipes)
	if err != nil {
		return fmt.Errorf("failed to encode search results: %w", err)
	}

	if err := c.client.Set(ctx, searchKey(query), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache search results: %w", err)
	}
	return nil
}
