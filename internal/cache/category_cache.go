package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicseva/civic-complaints/internal/domain"
)

const categoriesKey = "civic:categories:v1"

// CategoryCache keeps the last good category list in Redis.
type CategoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCategoryCache builds the cache. A zero ttl keeps entries until overwritten.
func NewCategoryCache(client redis.Cmdable, ttl time.Duration) *CategoryCache {
	return &CategoryCache{client: client, ttl: ttl}
}

type cachedCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Get returns the cached list. found is false on a cache miss.
func (c *CategoryCache) Get(ctx context.Context) ([]domain.Category, bool, error) {
	raw, err := c.client.Get(ctx, categoriesKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	cats, err := decodeCategories(raw)
	if err != nil {
		return nil, false, err
	}
	return cats, true, nil
}

// Set replaces the cached list.
func (c *CategoryCache) Set(ctx context.Context, categories []domain.Category) error {
	raw, err := encodeCategories(categories)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, categoriesKey, raw, c.ttl).Err()
}

func encodeCategories(categories []domain.Category) ([]byte, error) {
	payload := make([]cachedCategory, 0, len(categories))
	for _, cat := range categories {
		payload = append(payload, cachedCategory{ID: cat.ID, Name: cat.Name, Icon: cat.Icon})
	}
	return json.Marshal(payload)
}

func decodeCategories(raw []byte) ([]domain.Category, error) {
	var payload []cachedCategory
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	result := make([]domain.Category, 0, len(payload))
	for _, cat := range payload {
		result = append(result, domain.Category{ID: cat.ID, Name: cat.Name, Icon: cat.Icon})
	}
	return result, nil
}
