// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package router is the single request-scoped facade for all LLM access.
// It owns provider selection, timeouts, retries, fallback, response
// caching, and the per-request metrics. A Router is created per request
// and discarded at request exit; it never mutates process-wide state.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/llm"
	"github.com/madspark-labs/madspark/pkg/parser"
	"github.com/madspark-labs/madspark/pkg/schema"
	"github.com/madspark-labs/madspark/pkg/types"
)

// Config is the immutable router configuration.
type Config struct {
	PrimaryProvider    string
	ModelTier          types.ModelTier
	FallbackEnabled    bool
	CacheEnabled       bool
	MaxRetries         int
	RetryInitialDelay  time.Duration
	RetryBackoffFactor float64
	RetryMaxDelay      time.Duration
	RequestTimeout     time.Duration
}

// DefaultConfig returns the documented retry and timeout defaults.
func DefaultConfig() Config {
	return Config{
		PrimaryProvider:    "ollama",
		ModelTier:          types.TierBalanced,
		FallbackEnabled:    true,
		CacheEnabled:       true,
		MaxRetries:         3,
		RetryInitialDelay:  time.Second,
		RetryBackoffFactor: 2.0,
		RetryMaxDelay:      60 * time.Second,
		RequestTimeout:     120 * time.Second,
	}
}

// AllProvidersFailedError reports that every configured provider was
// exhausted for one call.
type AllProvidersFailedError struct {
	Attempted []string
	LastErr   error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all providers failed (attempted %s): %v",
		strings.Join(e.Attempted, ", "), e.LastErr)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.LastErr }

// Router routes structured-output calls through cache, providers, and
// parser. Safe for concurrent calls from sibling workflow tasks; metrics
// are guarded by an internal mutex.
type Router struct {
	cfg      Config
	primary  llm.Provider
	fallback llm.Provider
	parser   *parser.Parser
	cache    *cache.Cache
	logger   *zap.Logger

	metrics metrics
}

// New creates a Router. fallback and store may be nil.
func New(cfg Config, primary, fallback llm.Provider, p *parser.Parser, store *cache.Cache, logger *zap.Logger) *Router {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryInitialDelay == 0 {
		cfg.RetryInitialDelay = time.Second
	}
	if cfg.RetryBackoffFactor == 0 {
		cfg.RetryBackoffFactor = 2.0
	}
	if cfg.RetryMaxDelay == 0 {
		cfg.RetryMaxDelay = 60 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if p == nil {
		p = parser.New(logger)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		parser:   p,
		cache:    store,
		logger:   logger,
	}
}

// Parser exposes the router's parser, mainly for telemetry.
func (r *Router) Parser() *parser.Parser { return r.parser }

// GenerateStructured runs one schema-constrained call and returns the
// validated record.
func (r *Router) GenerateStructured(ctx context.Context, prompt string, s *schema.Schema, temperature float64) (map[string]any, types.Usage, error) {
	val, usage, err := r.call(ctx, prompt, s, temperature, func(text string) (any, error) {
		return r.parser.Parse(text, s)
	})
	if err != nil {
		return nil, usage, err
	}
	rec, ok := val.(map[string]any)
	if !ok {
		return nil, usage, fmt.Errorf("unexpected record shape %T for %s", val, s.Identifier())
	}
	return rec, usage, nil
}

// GenerateStructuredBatch runs one batched call and returns exactly
// expected validated records, padding with parse sentinels on shortfall.
// A total parse failure is retried like a provider failure first.
func (r *Router) GenerateStructuredBatch(ctx context.Context, prompt string, item *schema.Schema, expected int, temperature float64) ([]map[string]any, types.Usage, error) {
	listSchema := schema.List(item)
	val, usage, err := r.call(ctx, prompt, listSchema, temperature, func(text string) (any, error) {
		items, err := r.parser.ParseList(text, item)
		if err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		return nil, usage, err
	}
	items, ok := val.([]map[string]any)
	if !ok {
		// A cache round-trip decodes as []any of maps.
		raw, isSlice := val.([]any)
		if !isSlice {
			return nil, usage, fmt.Errorf("unexpected batch shape %T for %s", val, item.Identifier())
		}
		items = make([]map[string]any, 0, len(raw))
		for _, v := range raw {
			if m, isMap := v.(map[string]any); isMap {
				items = append(items, m)
			}
		}
	}

	if len(items) > expected {
		items = items[:expected]
	}
	for len(items) < expected {
		items = append(items, parser.Sentinel(""))
	}
	return items, usage, nil
}

// call implements the per-call protocol: cache get, stampede lock,
// provider invocation with retries and backoff, fallback, parse, cache
// put, metrics.
func (r *Router) call(ctx context.Context, prompt string, s *schema.Schema, temperature float64, decode func(string) (any, error)) (any, types.Usage, error) {
	var zero types.Usage
	// The key is addressed by the configured primary so a rerun hits
	// regardless of which provider ends up serving; the stored entry
	// carries the serving provider's name.
	key := cache.Key(r.primary.Name(), r.cfg.ModelTier, s.Identifier(), prompt, temperature)

	if r.cacheUsable() {
		if val, hit := r.cacheGet(ctx, key, decode); hit {
			return val, zero, nil
		}

		// Stampede control: one in-flight fill per key. Re-check after
		// acquiring in case a sibling filled it.
		unlock := r.cache.Lock(key)
		defer unlock()
		if val, hit := r.cacheGet(ctx, key, decode); hit {
			return val, zero, nil
		}
	}

	providers := []llm.Provider{r.primary}
	if r.cfg.FallbackEnabled && r.fallback != nil {
		providers = append(providers, r.fallback)
	}

	var lastErr error
	attempted := make([]string, 0, len(providers))

	for _, prov := range providers {
		attempted = append(attempted, prov.Name())
		val, usage, err := r.callProvider(ctx, prov, prompt, s, temperature, decode)
		if err == nil {
			if r.cacheUsable() {
				r.cachePut(ctx, key, val, usage, prov.Name())
			}
			return val, usage, nil
		}
		if ctx.Err() != nil {
			return nil, zero, ctx.Err()
		}
		lastErr = err
		r.logger.Warn("provider exhausted, trying next",
			zap.String("provider", prov.Name()),
			zap.String("schema", s.Identifier()),
			zap.Error(err))
	}

	return nil, zero, &AllProvidersFailedError{Attempted: attempted, LastErr: lastErr}
}

// callProvider retries a single provider with exponential backoff. Parse
// failures count as provider failures.
func (r *Router) callProvider(ctx context.Context, prov llm.Provider, prompt string, s *schema.Schema, temperature float64, decode func(string) (any, error)) (any, types.Usage, error) {
	var lastErr error
	delay := r.cfg.RetryInitialDelay

	for attempt := 0; attempt < r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, delay); err != nil {
				return nil, types.Usage{}, err
			}
			delay = time.Duration(float64(delay) * r.cfg.RetryBackoffFactor)
			if delay > r.cfg.RetryMaxDelay {
				delay = r.cfg.RetryMaxDelay
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, types.Usage{}, err
		}

		callCtx, cancel := context.WithTimeout(ctx, r.cfg.RequestTimeout)
		resp, err := prov.GenerateStructured(callCtx, &llm.GenerateRequest{
			Prompt:      prompt,
			Schema:      s,
			Temperature: temperature,
		})
		cancel()

		r.metrics.recordCall(prov.Name())
		if err != nil {
			r.metrics.recordFailure()
			lastErr = err
			continue
		}

		val, err := decode(resp.Text)
		if err != nil {
			r.metrics.recordFailure()
			lastErr = fmt.Errorf("structured parse failed: %w", err)
			continue
		}

		r.metrics.recordUsage(resp.Usage)
		return val, resp.Usage, nil
	}

	return nil, types.Usage{}, fmt.Errorf("%s failed after %d attempts: %w", prov.Name(), r.cfg.MaxRetries, lastErr)
}

func (r *Router) cacheUsable() bool {
	return r.cfg.CacheEnabled && r.cache != nil && !r.metrics.cacheDegraded()
}

func (r *Router) cacheGet(ctx context.Context, key string, decode func(string) (any, error)) (any, bool) {
	entry, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache get failed, continuing without cache", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	val, err := decode(string(entry.Value))
	if err != nil {
		// A cached value that no longer parses means the schema moved
		// underneath it; treat as a miss.
		r.logger.Warn("cached value failed validation, refetching", zap.Error(err))
		return nil, false
	}
	r.metrics.recordCacheHit()
	return val, true
}

// cachePut stores the value under the primary-addressed key, tagging the
// entry with the provider that actually served it so fallback-produced
// content stays attributable.
func (r *Router) cachePut(ctx context.Context, key string, val any, usage types.Usage, servedBy string) {
	err := r.cache.Put(ctx, key, val, usage, servedBy)
	if err == nil {
		return
	}
	var typeErr *cache.CacheTypeError
	if asCacheTypeError(err, &typeErr) {
		// Unsupported value shape: degrade to no-cache for the rest of
		// this request only.
		r.metrics.degradeCache()
		r.logger.Warn("value not cacheable, disabling cache for request", zap.Error(err))
		return
	}
	r.logger.Warn("cache put failed", zap.Error(err))
}

// MetricsSnapshot returns a copy of the per-request counters.
func (r *Router) MetricsSnapshot() types.RouterMetrics {
	return r.metrics.snapshot()
}

// RecordStageLatency adds one stage's wall time to the metrics.
func (r *Router) RecordStageLatency(stage string, d time.Duration) {
	r.metrics.recordStageLatency(stage, d)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
