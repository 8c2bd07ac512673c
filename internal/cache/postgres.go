package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Houeta/batch-geocoder/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database abstracts the pgx pool methods used by the store, which lets tests
// substitute a pgxmock pool.
type Database interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists cache entries in a Postgres table, one row per
// normalized query. Inserts are durable immediately via upsert, so Flush has
// nothing left to do.
type PostgresStore struct {
	db  Database
	log *slog.Logger
}

const createCacheTableQuery = `
	CREATE TABLE IF NOT EXISTS geocode_cache (
		query TEXT PRIMARY KEY,
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		formatted_address TEXT NOT NULL,
		geocoded_at TEXT NOT NULL
	);
`

// NewDatabase creates a pgx connection pool for the given connection details
// and verifies the connection with a ping.
func NewDatabase(ctx context.Context, host, port, user, password, name string) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s", user, password, host, port, name)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgresStore creates a Postgres-backed cache store and ensures the
// cache table exists.
func NewPostgresStore(ctx context.Context, db Database, log *slog.Logger) (*PostgresStore, error) {
	if _, err := db.Exec(ctx, createCacheTableQuery); err != nil {
		return nil, fmt.Errorf("failed to create cache table: %w", err)
	}

	return &PostgresStore{db: db, log: log}, nil
}

// Lookup returns the cached entry for key, or nil when no row exists.
func (ps *PostgresStore) Lookup(ctx context.Context, key string) (*models.CacheEntry, error) {
	query := `
		SELECT latitude, longitude, formatted_address, geocoded_at
		FROM geocode_cache
		WHERE query = $1;
	`

	var entry models.CacheEntry
	err := ps.db.QueryRow(ctx, query, key).
		Scan(&entry.Latitude, &entry.Longitude, &entry.FormattedAddress, &entry.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query cache entry: %w", err)
	}

	return &entry, nil
}

// Insert upserts a successful entry. The row is durable as soon as this
// returns, which keeps interrupted runs resumable without a flush.
func (ps *PostgresStore) Insert(ctx context.Context, key string, entry models.CacheEntry) error {
	query := `
		INSERT INTO geocode_cache (query, latitude, longitude, formatted_address, geocoded_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			formatted_address = EXCLUDED.formatted_address,
			geocoded_at = EXCLUDED.geocoded_at;
	`

	_, err := ps.db.Exec(ctx, query, key, entry.Latitude, entry.Longitude, entry.FormattedAddress, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}

	ps.log.DebugContext(ctx, "Cached geocoding result", "query", key)
	return nil
}

// Flush is a no-op: every insert is already persisted.
func (ps *PostgresStore) Flush(_ context.Context) error {
	return nil
}

// Len reports the number of cached rows.
func (ps *PostgresStore) Len(ctx context.Context) (int, error) {
	var count int
	err := ps.db.QueryRow(ctx, `SELECT COUNT(*) FROM geocode_cache;`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}

	return count, nil
}
