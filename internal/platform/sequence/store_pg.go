package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/klinik/klinik/internal/platform/db"
)

// PostgresStore keeps counters in the sequence_counter table. The upsert
// takes a row lock, so concurrent callers are serialized by the database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Next(ctx context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("sequence key is required")
	}
	var v int64
	err := db.Conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO sequence_counter (key, value) VALUES ($1, 1)
		ON CONFLICT (key) DO UPDATE SET value = sequence_counter.value + 1, updated_at = NOW()
		RETURNING value`, key).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next value for %s: %w", key, err)
	}
	return v, nil
}

func (s *PostgresStore) Seed(ctx context.Context, key string, value int64) error {
	_, err := db.Conn(ctx, s.pool).Exec(ctx, `
		INSERT INTO sequence_counter (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = GREATEST(sequence_counter.value, EXCLUDED.value), updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	return nil
}
