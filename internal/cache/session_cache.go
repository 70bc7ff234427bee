package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"cuestionarios/internal/model"
)

// SessionCache keeps session metadata so sessions survive a server restart
type SessionCache interface {
	Set(ctx context.Context, meta *model.SessionMeta) error
	Get(ctx context.Context, id string) (*model.SessionMeta, error)
	FindByUser(ctx context.Context, usuario, cuestionario int) (string, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, meta *model.SessionMeta) error
}

type sessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionCache creates a new session cache
func NewSessionCache(client *redis.Client, ttl time.Duration) SessionCache {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *sessionCache) key(id string) string {
	return fmt.Sprintf("session:%s", id)
}

func (c *sessionCache) userKey(usuario, cuestionario int) string {
	return fmt.Sprintf("session:user:%d:%d", usuario, cuestionario)
}

func (c *sessionCache) Set(ctx context.Context, meta *model.SessionMeta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.key(meta.ID), data, c.ttl)
	pipe.Set(ctx, c.userKey(meta.Usuario, meta.Cuestionario), meta.ID, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Get returns nil, nil when the session expired or never existed
func (c *sessionCache) Get(ctx context.Context, id string) (*model.SessionMeta, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta model.SessionMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// FindByUser returns the open session id for a user and questionnaire, "" when none
func (c *sessionCache) FindByUser(ctx context.Context, usuario, cuestionario int) (string, error) {
	id, err := c.client.Get(ctx, c.userKey(usuario, cuestionario)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return id, err
}

// Touch extends the session expiry
func (c *sessionCache) Touch(ctx context.Context, id string) error {
	return c.client.Expire(ctx, c.key(id), c.ttl).Err()
}

func (c *sessionCache) Delete(ctx context.Context, meta *model.SessionMeta) error {
	return c.client.Del(ctx, c.key(meta.ID), c.userKey(meta.Usuario, meta.Cuestionario)).Err()
}
