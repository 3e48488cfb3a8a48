// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/LoiUTC2/Social-Commerce-Platform-sub003/internal/recommend"
)

// DuckDBConfig configures the catalog database.
type DuckDBConfig struct {
	// Path is the database file, or ":memory:".
	Path string

	// Threads is DuckDB's worker count; 0 means NumCPU.
	Threads int

	// MaxMemory caps DuckDB's memory use, e.g. "1GB".
	MaxMemory string

	// QueryTimeout bounds a single statement.
	QueryTimeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS actors (
	actor_type VARCHAR NOT NULL,
	actor_id   VARCHAR NOT NULL,
	PRIMARY KEY (actor_type, actor_id)
);
CREATE TABLE IF NOT EXISTS items (
	item_type     VARCHAR NOT NULL,
	item_id       VARCHAR NOT NULL,
	owner_id      VARCHAR NOT NULL DEFAULT '',
	name          VARCHAR NOT NULL DEFAULT '',
	description   VARCHAR NOT NULL DEFAULT '',
	hashtags      VARCHAR NOT NULL DEFAULT '[]',
	category_path VARCHAR NOT NULL DEFAULT '[]',
	created_at    TIMESTAMP,
	starts_at     TIMESTAMP,
	expires_at    TIMESTAMP,
	hidden        BOOLEAN NOT NULL DEFAULT false,
	PRIMARY KEY (item_type, item_id)
);`

// DuckDB is a catalog stored in a DuckDB database that an external sync
// job keeps up to date. Hashtags and category paths are stored as JSON
// arrays.
type DuckDB struct {
	conn    *sql.DB
	timeout time.Duration
	logger  zerolog.Logger
}

// OpenDuckDB opens (or creates) the catalog database and applies the schema.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func OpenDuckDB(ctx context.Context, cfg DuckDBConfig, logger zerolog.Logger) (*DuckDB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}
	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	if dir := filepath.Dir(cfg.Path); cfg.Path != ":memory:" && dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory %s: %w", dir, err)
		}
	}

	// Extensions are not needed; disabling autoload avoids network access.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog database: %w", err)
	}

	d := &DuckDB{
		conn:    conn,
		timeout: timeout,
		logger:  logger.With().Str("component", "catalog-duckdb").Logger(),
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(initCtx, schema); err != nil {
		_ = conn.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("failed to apply catalog schema: %w", err)
	}

	d.logger.Info().Str("path", cfg.Path).Int("threads", threads).Msg("catalog database opened")
	return d, nil
}

// Close closes the database.
func (d *DuckDB) Close() error {
	return d.conn.Close()
}

// Ping checks the connection.
func (d *DuckDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.conn.PingContext(ctx)
}

// PutActor registers an actor.
func (d *DuckDB) PutActor(ctx context.Context, actorType recommend.ActorType, id string) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, err := d.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO actors (actor_type, actor_id) VALUES (?, ?)`,
		string(actorType), id)
	if err != nil {
		return fmt.Errorf("failed to insert actor %s: %w", recommend.ActorKey(actorType, id), err)
	}
	return nil
}

// PutItem inserts or replaces an item.
func (d *DuckDB) PutItem(ctx context.Context, item *recommend.Item) error {
	hashtags, err := json.Marshal(nonNil(item.Hashtags))
	if err != nil {
		return fmt.Errorf("failed to encode hashtags: %w", err)
	}
	path, err := json.Marshal(nonNil(item.CategoryPath))
	if err != nil {
		return fmt.Errorf("failed to encode category path: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	_, err = d.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO items
			(item_type, item_id, owner_id, name, description, hashtags, category_path,
			 created_at, starts_at, expires_at, hidden)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(item.Type), item.ID, item.OwnerID, item.Name, item.Description,
		string(hashtags), string(path),
		nullTime(item.CreatedAt), nullTime(item.StartsAt), nullTime(item.ExpiresAt), item.Hidden)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.Key(), err)
	}
	return nil
}

// ActorExists reports whether the actor is registered.
func (d *DuckDB) ActorExists(ctx context.Context, actorType recommend.ActorType, id string) (bool, error) {
	return d.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM actors WHERE actor_type = ? AND actor_id = ?)`,
		string(actorType), id)
}

// ItemExists reports whether the item is in the catalog.
func (d *DuckDB) ItemExists(ctx context.Context, targetType recommend.TargetType, id string) (bool, error) {
	return d.exists(ctx,
		`SELECT EXISTS (SELECT 1 FROM items WHERE item_type = ? AND item_id = ?)`,
		string(targetType), id)
}

func (d *DuckDB) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	var found bool
	if err := d.conn.QueryRowContext(ctx, query, args...).Scan(&found); err != nil {
		return false, fmt.Errorf("existence query failed: %w", err)
	}
	return found, nil
}

// Items lists the items of t ordered by ID.
func (d *DuckDB) Items(ctx context.Context, t recommend.TargetType) ([]recommend.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rows, err := d.conn.QueryContext(ctx, `
		SELECT item_id, owner_id, name, description, hashtags, category_path,
		       created_at, starts_at, expires_at, hidden
		FROM items
		WHERE item_type = ?
		ORDER BY item_id`, string(t))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s items: %w", t, err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var items []recommend.Item
	for rows.Next() {
		it := recommend.Item{Type: t}
		var hashtags, path string
		var created, starts, expires sql.NullTime
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.Name, &it.Description, &hashtags, &path,
			&created, &starts, &expires, &it.Hidden); err != nil {
			return nil, fmt.Errorf("failed to scan %s item: %w", t, err)
		}
		if err := json.Unmarshal([]byte(hashtags), &it.Hashtags); err != nil {
			d.logger.Warn().Err(err).Str("item", it.Key()).Msg("ignoring malformed hashtags")
		}
		if err := json.Unmarshal([]byte(path), &it.CategoryPath); err != nil {
			d.logger.Warn().Err(err).Str("item", it.Key()).Msg("ignoring malformed category path")
		}
		it.CreatedAt = fromNull(created)
		it.StartsAt = fromNull(starts)
		it.ExpiresAt = fromNull(expires)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s items: %w", t, err)
	}
	return items, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func fromNull(t sql.NullTime) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time.UTC()
}
