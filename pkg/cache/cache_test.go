// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/madspark-labs/madspark/pkg/types"
)

func openTestCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	cfg.Logger = zaptest.NewLogger(t)
	c, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyNormalizesWhitespace(t *testing.T) {
	a := Key("ollama", types.TierBalanced, "idea@v1", "generate   ideas\n\tabout farming", 0.3)
	b := Key("ollama", types.TierBalanced, "idea@v1", "generate ideas about farming", 0.3)
	assert.Equal(t, a, b)
}

func TestKeyComponentsAreSignificant(t *testing.T) {
	base := Key("ollama", types.TierBalanced, "idea@v1", "prompt", 0.3)

	assert.NotEqual(t, base, Key("gemini", types.TierBalanced, "idea@v1", "prompt", 0.3))
	assert.NotEqual(t, base, Key("ollama", types.TierQuality, "idea@v1", "prompt", 0.3))
	assert.NotEqual(t, base, Key("ollama", types.TierBalanced, "idea@v2", "prompt", 0.3))
	assert.NotEqual(t, base, Key("ollama", types.TierBalanced, "idea@v1", "other", 0.3))
	assert.NotEqual(t, base, Key("ollama", types.TierBalanced, "idea@v1", "prompt", 0.7))
}

func TestKeyBucketsTemperature(t *testing.T) {
	// Temperatures that round to the same 0.1 bucket share a key.
	assert.Equal(t,
		Key("ollama", types.TierBalanced, "idea@v1", "prompt", 0.70),
		Key("ollama", types.TierBalanced, "idea@v1", "prompt", 0.72))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t, Config{})
	ctx := context.Background()

	key := Key("mock", types.TierBalanced, "evaluation@v1", "evaluate", 0.3)
	value := map[string]any{"score": 8.0, "critique": "feasible"}
	usage := types.Usage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140}

	require.NoError(t, c.Put(ctx, key, value, usage, "mock"))

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, entry.Usage.InputTokens)
	assert.Equal(t, "mock", entry.ServedBy)

	var got map[string]any
	require.NoError(t, entry.Decode(&got))
	assert.Equal(t, value, got)
}

func TestEntryRecordsServingProvider(t *testing.T) {
	// The key is addressed by the configured primary; the entry still
	// names whichever provider produced the value.
	c := openTestCache(t, Config{})
	ctx := context.Background()

	key := Key("ollama", types.TierBalanced, "evaluation@v1", "evaluate", 0.3)
	require.NoError(t, c.Put(ctx, key, map[string]any{"score": 8.0}, types.Usage{}, "gemini"))

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gemini", entry.ServedBy)
}

func TestGetMissesUnknownKey(t *testing.T) {
	c := openTestCache(t, Config{})
	_, ok, err := c.Get(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesExisting(t *testing.T) {
	c := openTestCache(t, Config{})
	ctx := context.Background()
	key := Key("mock", types.TierBalanced, "idea@v1", "p", 0.3)

	require.NoError(t, c.Put(ctx, key, map[string]any{"v": 1.0}, types.Usage{}, "mock"))
	require.NoError(t, c.Put(ctx, key, map[string]any{"v": 2.0}, types.Usage{}, "mock"))

	entry, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	var got map[string]any
	require.NoError(t, entry.Decode(&got))
	assert.Equal(t, 2.0, got["v"])

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTTLExpiry(t *testing.T) {
	// A tiny negative-margin TTL: entries are expired as soon as written.
	c := openTestCache(t, Config{TTL: time.Nanosecond})
	ctx := context.Background()
	key := Key("mock", types.TierBalanced, "idea@v1", "p", 0.3)

	require.NoError(t, c.Put(ctx, key, map[string]any{"v": 1.0}, types.Usage{}, "mock"))
	time.Sleep(1100 * time.Millisecond)

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLRUEvictionUnderByteBudget(t *testing.T) {
	c := openTestCache(t, Config{MaxBytes: 4096})
	ctx := context.Background()

	big := strings.Repeat("x", 256)
	for i := 0; i < 64; i++ {
		key := Key("mock", types.TierBalanced, "idea@v1", fmt.Sprintf("prompt %d", i), 0.3)
		require.NoError(t, c.Put(ctx, key, map[string]any{"pad": big, "i": float64(i)}, types.Usage{}, "mock"))
	}

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Less(t, n, 64)
	assert.Greater(t, n, 0)
}

func TestPutUnserializableValueIsTypeError(t *testing.T) {
	c := openTestCache(t, Config{})

	err := c.Put(context.Background(), "key", map[string]any{"bad": make(chan int)}, types.Usage{}, "mock")
	require.Error(t, err)

	var typeErr *CacheTypeError
	assert.True(t, errors.As(err, &typeErr))
}

func TestLockSerializesPerKey(t *testing.T) {
	c := openTestCache(t, Config{})

	unlock := c.Lock("k")
	acquired := make(chan struct{})
	go func() {
		u := c.Lock("k")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second Lock acquired while first still held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second Lock never acquired after release")
	}

	// A different key is independent.
	u2 := c.Lock("other")
	u2()
}
