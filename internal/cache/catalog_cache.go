package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cuestionarios/internal/model"
)

// CatalogCache handles Redis operations for questionnaire catalogs
type CatalogCache interface {
	Get(ctx context.Context, id int) (*model.Questionnaire, error)
	Set(ctx context.Context, q *model.Questionnaire) error
	Invalidate(ctx context.Context, id int) error
}

type catalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache creates a new catalog cache
func NewCatalogCache(client *redis.Client, ttl time.Duration) CatalogCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &catalogCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *catalogCache) key(id int) string {
	return fmt.Sprintf("cuestionario:%d", id)
}

// Get returns nil, nil on a cache miss
func (c *catalogCache) Get(ctx context.Context, id int) (*model.Questionnaire, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var q model.Questionnaire
	if err := json.Unmarshal(data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *catalogCache) Set(ctx context.Context, q *model.Questionnaire) error {
	data, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(q.ID), data, c.ttl).Err()
}

func (c *catalogCache) Invalidate(ctx context.Context, id int) error {
	return c.client.Del(ctx, c.key(id)).Err()
}
