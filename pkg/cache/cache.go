// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package cache memoizes validated agent responses on disk, keyed by a
// content-addressed SHA-256 of (provider, tier, schema, prompt,
// temperature bucket). Process-local; safe for concurrent use.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/madspark-labs/madspark/pkg/types"
)

const (
	// DefaultTTL is how long entries stay valid.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultMaxBytes is the byte budget before LRU eviction.
	DefaultMaxBytes = 100 << 20
)

// CacheTypeError reports an attempt to cache a value that cannot be
// serialized; the affected call degrades to no-cache.
type CacheTypeError struct {
	Err error
}

func (e *CacheTypeError) Error() string {
	return fmt.Sprintf("value is not cacheable: %v", e.Err)
}

func (e *CacheTypeError) Unwrap() error { return e.Err }

// Entry is one cached validated record plus its token counts.
type Entry struct {
	Value     json.RawMessage
	Usage     types.Usage
	CreatedAt time.Time
	// ServedBy names the provider that produced the value. The key is
	// addressed by the configured primary, so with fallback enabled the
	// two can differ.
	ServedBy string
}

// Decode unmarshals the cached value into out.
func (e *Entry) Decode(out any) error {
	return json.Unmarshal(e.Value, out)
}

// Config configures a Cache.
type Config struct {
	// Dir is the cache root directory. The database lives at
	// Dir/responses.db.
	Dir string
	// TTL for entries; DefaultTTL when zero.
	TTL time.Duration
	// MaxBytes is the byte budget; DefaultMaxBytes when zero.
	MaxBytes int64
	Logger   *zap.Logger
}

// Cache is the disk-backed response cache.
type Cache struct {
	db       *sql.DB
	ttl      time.Duration
	maxBytes int64
	logger   *zap.Logger

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// Open creates the cache directory and database if needed.
func Open(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(cfg.Dir, "responses.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	// WAL mode for concurrent readers alongside the single writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	c := &Cache{
		db:       db,
		ttl:      cfg.TTL,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
		inflight: make(map[string]*sync.Mutex),
	}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			key         TEXT PRIMARY KEY,
			value       BLOB NOT NULL,
			served_by   TEXT NOT NULL DEFAULT '',
			tokens_in   INTEGER NOT NULL DEFAULT 0,
			tokens_out  INTEGER NOT NULL DEFAULT 0,
			size        INTEGER NOT NULL,
			created_at  INTEGER NOT NULL,
			last_access INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_last_access ON entries(last_access);
		CREATE INDEX IF NOT EXISTS idx_entries_created_at ON entries(created_at);
	`)
	return err
}

// Key computes the content-addressed cache key. The prompt is whitespace
// normalized so trivial formatting differences still hit.
func Key(provider string, tier types.ModelTier, schemaID, prompt string, temperature float64) string {
	h := sha256.New()
	for _, part := range []string{
		provider,
		string(tier),
		schemaID,
		normalizePrompt(prompt),
		fmt.Sprintf("%.1f", temperature),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func normalizePrompt(p string) string {
	return strings.Join(strings.Fields(p), " ")
}

// Get returns the cached entry for key, if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	now := time.Now()
	cutoff := now.Add(-c.ttl).Unix()

	var (
		value     []byte
		servedBy  string
		tokensIn  int
		tokensOut int
		createdAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT value, served_by, tokens_in, tokens_out, created_at FROM entries WHERE key = ? AND created_at >= ?`,
		key, cutoff,
	).Scan(&value, &servedBy, &tokensIn, &tokensOut, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get failed: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE entries SET last_access = ? WHERE key = ?`, now.Unix(), key); err != nil {
		c.logger.Warn("failed to touch cache entry", zap.Error(err))
	}

	return &Entry{
		Value: value,
		Usage: types.Usage{
			InputTokens:  tokensIn,
			OutputTokens: tokensOut,
			TotalTokens:  tokensIn + tokensOut,
		},
		CreatedAt: time.Unix(createdAt, 0),
		ServedBy:  servedBy,
	}, true, nil
}

// Put stores a validated record, tagged with the provider that served
// it. The value must serialize to JSON; anything else fails with
// CacheTypeError and the caller degrades to no-cache for the request.
func (c *Cache) Put(ctx context.Context, key string, value any, usage types.Usage, servedBy string) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &CacheTypeError{Err: err}
	}

	now := time.Now().Unix()
	if _, err := c.db.ExecContext(ctx,
		`INSERT INTO entries (key, value, served_by, tokens_in, tokens_out, size, created_at, last_access)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   served_by = excluded.served_by,
		   tokens_in = excluded.tokens_in,
		   tokens_out = excluded.tokens_out,
		   size = excluded.size,
		   created_at = excluded.created_at,
		   last_access = excluded.last_access`,
		key, data, servedBy, usage.InputTokens, usage.OutputTokens, len(data), now, now,
	); err != nil {
		return fmt.Errorf("cache put failed: %w", err)
	}

	if err := c.evict(ctx); err != nil {
		c.logger.Warn("cache eviction failed", zap.Error(err))
	}
	return nil
}

// evict removes expired entries, then trims LRU until the byte budget
// holds.
func (c *Cache) evict(ctx context.Context) error {
	cutoff := time.Now().Add(-c.ttl).Unix()
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM entries WHERE created_at < ?`, cutoff); err != nil {
		return err
	}

	var total sql.NullInt64
	if err := c.db.QueryRowContext(ctx,
		`SELECT SUM(size) FROM entries`).Scan(&total); err != nil {
		return err
	}
	for total.Valid && total.Int64 > c.maxBytes {
		res, err := c.db.ExecContext(ctx,
			`DELETE FROM entries WHERE key IN (
				SELECT key FROM entries ORDER BY last_access ASC LIMIT 16
			)`)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			break
		}
		if err := c.db.QueryRowContext(ctx,
			`SELECT SUM(size) FROM entries`).Scan(&total); err != nil {
			return err
		}
	}
	return nil
}

// Lock acquires the per-key in-flight lock used for stampede control:
// only one fill per key runs at a time. The returned func releases it.
func (c *Cache) Lock(key string) func() {
	c.mu.Lock()
	m, ok := c.inflight[key]
	if !ok {
		m = &sync.Mutex{}
		c.inflight[key] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Len returns the number of live entries; used by tests and metrics.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n)
	return n, err
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
