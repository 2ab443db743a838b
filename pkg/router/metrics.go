// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"errors"
	"sync"
	"time"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/types"
)

// metrics holds the per-request counters behind a mutex. Sibling
// executor tasks update them concurrently.
type metrics struct {
	mu             sync.Mutex
	apiCalls       int64
	failedRequests int64
	cacheHits      int64
	tokensIn       int64
	tokensOut      int64
	costEstimate   float64
	providerCalls  map[string]int64
	stageLatencyMS map[string]int64
	degraded       bool
}

func (m *metrics) recordCall(provider string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiCalls++
	if m.providerCalls == nil {
		m.providerCalls = make(map[string]int64)
	}
	m.providerCalls[provider]++
}

func (m *metrics) recordFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failedRequests++
}

func (m *metrics) recordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *metrics) recordUsage(u types.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokensIn += int64(u.InputTokens)
	m.tokensOut += int64(u.OutputTokens)
	m.costEstimate += u.CostUSD
}

func (m *metrics) recordStageLatency(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stageLatencyMS == nil {
		m.stageLatencyMS = make(map[string]int64)
	}
	m.stageLatencyMS[stage] += d.Milliseconds()
}

func (m *metrics) degradeCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = true
}

func (m *metrics) cacheDegraded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *metrics) snapshot() types.RouterMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := types.RouterMetrics{
		APICalls:       m.apiCalls,
		FailedRequests: m.failedRequests,
		CacheHits:      m.cacheHits,
		TokensIn:       m.tokensIn,
		TokensOut:      m.tokensOut,
		CostEstimate:   m.costEstimate,
	}
	if len(m.providerCalls) > 0 {
		out.ProviderCalls = make(map[string]int64, len(m.providerCalls))
		for k, v := range m.providerCalls {
			out.ProviderCalls[k] = v
		}
	}
	if len(m.stageLatencyMS) > 0 {
		out.StageLatencyMS = make(map[string]int64, len(m.stageLatencyMS))
		for k, v := range m.stageLatencyMS {
			out.StageLatencyMS[k] = v
		}
	}
	return out
}

func asCacheTypeError(err error, target **cache.CacheTypeError) bool {
	return errors.As(err, target)
}
