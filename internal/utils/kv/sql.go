package kv

import (
	"context"
	"database/sql"
	"errors"
)

const createTable = `CREATE TABLE IF NOT EXISTS kv_store (
	name VARCHAR(191) NOT NULL PRIMARY KEY,
	value LONGTEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
)`

type sqlStore struct {
	db *sql.DB
}

// NewSQL stores every key as one row of the kv_store table (MySQL dialect).
func NewSQL(ctx context.Context, db *sql.DB) (Store, error) {
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return nil, err
	}
	return &sqlStore{db: db}, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE name = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *sqlStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv_store (name, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		key, value)
	return err
}
