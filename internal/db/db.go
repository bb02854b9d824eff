// Package db provides PostgreSQL persistence for match groups and match
// responses.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned by mutations whose target row does not exist
var ErrNotFound = errors.New("not found")

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Options tunes the connection pool
type Options struct {
	MaxConns        int32
	MinConns        int32
	ConnectTimeout  time.Duration
	MaxConnLifetime time.Duration
	// SimpleProtocol disables prepared statement caching, which transaction
	// pooling proxies such as PgBouncer do not support.
	SimpleProtocol bool
}

// DefaultOptions returns a pool of 15 connections (10 steady plus 5 burst)
// with a 30 second connect timeout.
func DefaultOptions() Options {
	return Options{
		MaxConns:        15,
		MinConns:        2,
		ConnectTimeout:  30 * time.Second,
		MaxConnLifetime: time.Hour,
	}
}

// PoolConfig parses databaseURL and applies opts
func PoolConfig(databaseURL string, opts Options) (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.ConnectTimeout > 0 {
		config.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.SimpleProtocol {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec
	}

	return config, nil
}

// Connect establishes a connection pool with DefaultOptions
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	return ConnectWithOptions(ctx, databaseURL, DefaultOptions())
}

// ConnectWithOptions establishes a connection pool and verifies it
func ConnectWithOptions(ctx context.Context, databaseURL string, opts Options) (*DB, error) {
	config, err := PoolConfig(databaseURL, opts)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}
