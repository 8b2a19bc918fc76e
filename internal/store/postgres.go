package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gaming-workshop/backend/internal/models"
)

// Postgres stores each collection as one jsonb row in the collections table.
// Update* takes a row lock (SELECT ... FOR UPDATE) inside a transaction, so
// concurrent registrations from multiple instances serialize on the row.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pgx pool. The collections table is created by
// the embedded migrations (pkg/database).
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) get(ctx context.Context, key string, out interface{}) error {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM collections WHERE key = $1`, key).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("select %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	const q = `INSERT INTO collections (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := p.pool.Exec(ctx, q, key, data); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (p *Postgres) update(ctx context.Context, key string, apply func(data []byte) ([]byte, error)) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var data []byte
	err = tx.QueryRow(ctx, `SELECT data FROM collections WHERE key = $1 FOR UPDATE`, key).Scan(&data)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("select %s for update: %w", key, err)
	}
	next, err := apply(data)
	if err != nil {
		return err
	}
	const q = `INSERT INTO collections (key, data, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`
	if _, err := tx.Exec(ctx, q, key, next); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Registrations(ctx context.Context) ([]models.Registration, error) {
	var regs []models.Registration
	if err := p.get(ctx, KeyRegistrations, &regs); err != nil {
		return nil, err
	}
	return regs, nil
}

func (p *Postgres) PutRegistrations(ctx context.Context, regs []models.Registration) error {
	return p.put(ctx, KeyRegistrations, regs)
}

func (p *Postgres) UpdateRegistrations(ctx context.Context, fn func([]models.Registration) ([]models.Registration, error)) error {
	return p.update(ctx, KeyRegistrations, func(data []byte) ([]byte, error) {
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

func (p *Postgres) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := p.get(ctx, KeySessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (p *Postgres) PutSessions(ctx context.Context, sessions []models.Session) error {
	return p.put(ctx, KeySessions, sessions)
}

func (p *Postgres) UpdateSessions(ctx context.Context, fn func([]models.Session) ([]models.Session, error)) error {
	return p.update(ctx, KeySessions, func(data []byte) ([]byte, error) {
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
