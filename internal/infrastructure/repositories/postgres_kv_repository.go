package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresKeyValueRepository імплементує KeyValueStore для PostgreSQL
type PostgresKeyValueRepository struct {
	db *sql.DB
}

// OpenPostgresKeyValueRepository відкриває з'єднання за dbURL та готує схему
func OpenPostgresKeyValueRepository(ctx context.Context, dbURL string) (*PostgresKeyValueRepository, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	repo := NewPostgresKeyValueRepository(db)
	if err := repo.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// NewPostgresKeyValueRepository створює новий екземпляр PostgresKeyValueRepository
func NewPostgresKeyValueRepository(db *sql.DB) *PostgresKeyValueRepository {
	return &PostgresKeyValueRepository{
		db: db,
	}
}

// InitializeSchema створює таблицю mission_kv, якщо вона не існує
func (r *PostgresKeyValueRepository) InitializeSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS mission_kv (
			key TEXT PRIMARY KEY,
			value BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create mission_kv table: %w", err)
	}
	return nil
}

func (r *PostgresKeyValueRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	query := `
        SELECT value
        FROM mission_kv
        WHERE key = $1
    `

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read key %q: %w", key, err)
	}

	return value, true, nil
}

func (r *PostgresKeyValueRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `
        INSERT INTO mission_kv (key, value, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (key) DO UPDATE
        SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
    `

	result, err := r.db.ExecContext(ctx, query, key, value)
	if err != nil {
		return fmt.Errorf("failed to write key %q: %w", key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("key %q was not written", key)
	}

	return nil
}

func (r *PostgresKeyValueRepository) Close() error {
	return r.db.Close()
}
