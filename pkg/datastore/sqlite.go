package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const kCacheTableName = "cache_entries"

type SQLiteStore struct {
	DB *sql.DB
}

// NewSQLiteStore opens the sqlite file and creates the cache table if needed.
func NewSQLiteStore(dbName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbName)
	if err != nil {
		return nil, err
	}
	// Every pooled connection to ":memory:" would get its own empty database.
	db.SetMaxOpenConns(1)

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key text not null primary key, value text);", kCacheTableName)
	if _, err := db.Exec(stmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table %s: %w", kCacheTableName, err)
	}
	return &SQLiteStore{DB: db}, nil
}

func (ds *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := ds.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+kCacheTableName).Scan(&n)
	return n, err
}

func (ds *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := ds.DB.QueryRowContext(ctx, "SELECT 1 FROM "+kCacheTableName+" WHERE key = ?", key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (ds *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var result string
	err := ds.DB.QueryRowContext(ctx, "SELECT value FROM "+kCacheTableName+" WHERE key = ?", key).Scan(&result)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return result, nil
}

func (ds *SQLiteStore) Set(ctx context.Context, key string, value string) error {
	_, err := ds.DB.ExecContext(ctx, "INSERT OR REPLACE INTO "+kCacheTableName+" (key, value) VALUES (?, ?)", key, value)
	return err
}

func (ds *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := ds.DB.ExecContext(ctx, "DELETE FROM "+kCacheTableName+" WHERE key = ?", key)
	return err
}

func (ds *SQLiteStore) Ping(ctx context.Context) error {
	return ds.DB.PingContext(ctx)
}

func (ds *SQLiteStore) Close() error {
	return ds.DB.Close()
}
