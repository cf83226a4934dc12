package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/coursecart/internal/port"
)

const (
	loadStateSQL = `SELECT payload FROM cart_states WHERE key = $1`

	saveStateSQL = `
INSERT INTO cart_states (key, payload, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE
    SET payload    = EXCLUDED.payload,
        updated_at = EXCLUDED.updated_at`
)

type postgresStorage struct {
	pool *pgxpool.Pool
	key  string
}

func NewPostgresStorage(pool *pgxpool.Pool, key string) (port.CartStorage, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	return &postgresStorage{
		pool: pool,
		key:  key,
	}, nil
}

func (s *postgresStorage) Load(ctx context.Context) ([]byte, error) {
	var payload []byte

	err := s.pool.QueryRow(ctx, loadStateSQL, s.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pool.QueryRow: %w", err)
	}

	return payload, nil
}

func (s *postgresStorage) Save(ctx context.Context, data []byte) error {
	if _, err := s.pool.Exec(ctx, saveStateSQL, s.key, data); err != nil {
		return fmt.Errorf("pool.Exec: %w", err)
	}

	return nil
}
