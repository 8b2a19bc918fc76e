package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/gaming-workshop/backend/internal/models"
)

const (
	redisKeyPrefix  = "workshop:"
	redisMaxRetries = 5
)

// Redis stores each collection as one JSON blob. Update* uses WATCH/MULTI so a
// concurrent writer forces a re-read instead of a lost update.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing go-redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func redisKey(key string) string { return redisKeyPrefix + key }

func (r *Redis) get(ctx context.Context, key string, out interface{}) error {
	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (r *Redis) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// update runs the optimistic WATCH transaction, retrying on write conflicts.
func (r *Redis) update(ctx context.Context, key string, apply func(data []byte) ([]byte, error)) error {
	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, redisKey(key)).Bytes()
		if err != nil && err != redis.Nil {
			return fmt.Errorf("redis get %s: %w", key, err)
		}
		next, err := apply(data)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey(key), next, 0)
			return nil
		})
		return err
	}
	for i := 0; i < redisMaxRetries; i++ {
		err := r.client.Watch(ctx, txn, redisKey(key))
		if err == redis.TxFailedErr {
			continue
		}
		return err
	}
	return fmt.Errorf("redis update %s: too many write conflicts", key)
}

func (r *Redis) Registrations(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	if err := r.get(ctx, KeyRegistrations, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *Redis) PutRegistrations(ctx context.Context, regs []models.Registration) error {
	return r.put(ctx, KeyRegistrations, regs)
}

func (r *Redis) UpdateRegistrations(ctx context.Context, fn func([]models.Registration) ([]models.Registration, error)) error {
	return r.update(ctx, KeyRegistrations, func(data []byte) ([]byte, error) {
		var regs []models.Registration
		if len(data) > 0 {
			if err := json.Unmarshal(data, &regs); err != nil {
				return nil, fmt.Errorf("decode %s: %w", KeyRegistrations, err)
			}
		}
		next, err := fn(regs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
}

func (r *Redis) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := r.get(ctx, KeySessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *Redis) PutSessions(ctx context.Context, sessions []models.Session) error {
	return r.put(ctx, KeySessions, sessions)
}

func (r *Redis) UpdateSessions(ctx context.Context, fn func([]models.Session) ([]models.Session, error)) error {
	return r.update(ctx, KeySessions, func(data []byte) ([]byte, error) {
		var sessions []models.Session
		if len(data) > 0 {
			if err := json.Unmarshal(data, &sessions); err != nil {
				return nil, fmt.Errorf("decode %s: %w", KeySessions, err)
			}
		}
		next, err := fn(sessions)
		if err != nil {
			return nil, err
		}
		return json.Marshal(next)
	})
}
