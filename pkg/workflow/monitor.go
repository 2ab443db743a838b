// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/madspark-labs/madspark/pkg/types"
)

var (
	tokenEncoder     *tiktoken.Tiktoken
	tokenEncoderOnce sync.Once
)

// estimateTokens counts tokens with the cl100k_base encoding, falling
// back to a bytes/4 estimate when the encoding tables are unavailable.
func estimateTokens(text string) int {
	tokenEncoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			tokenEncoder = enc
		}
	})
	if tokenEncoder == nil {
		return len(text) / 4
	}
	return len(tokenEncoder.Encode(text, nil, nil))
}

// Telemetry is a snapshot of one run's accumulated bookkeeping.
type Telemetry struct {
	Usage          types.Usage      `json:"usage"`
	Warnings       []string         `json:"warnings,omitempty"`
	StageLatencyMS map[string]int64 `json:"stage_latency_ms,omitempty"`
	ElapsedMS      int64            `json:"elapsed_ms"`
}

// Monitor accumulates token usage, warnings, and stage latencies for one
// workflow run. Sibling executor tasks update it concurrently.
type Monitor struct {
	mu           sync.Mutex
	usage        types.Usage
	warnings     []string
	stageLatency map[string]time.Duration
	started      time.Time
}

// NewMonitor starts the run clock.
func NewMonitor() *Monitor {
	return &Monitor{
		stageLatency: make(map[string]time.Duration),
		started:      time.Now(),
	}
}

// AddUsage accumulates a provider-reported usage record. When the
// provider omitted token counts, call EstimateUsage instead.
func (m *Monitor) AddUsage(u types.Usage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.Add(u)
}

// EstimateUsage accumulates a tiktoken-estimated record for a call whose
// provider returned no usage metadata.
func (m *Monitor) EstimateUsage(prompt, response string) {
	in := estimateTokens(prompt)
	out := estimateTokens(response)
	m.AddUsage(types.Usage{
		InputTokens:  in,
		OutputTokens: out,
		TotalTokens:  in + out,
	})
}

// Warn records a non-fatal degradation for the final report.
func (m *Monitor) Warn(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warnings = append(m.warnings, msg)
}

// RecordStage adds one stage's wall time.
func (m *Monitor) RecordStage(stage string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stageLatency[stage] += d
}

// Snapshot returns a copy of the accumulated telemetry.
func (m *Monitor) Snapshot() Telemetry {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Telemetry{
		Usage:     m.usage,
		ElapsedMS: time.Since(m.started).Milliseconds(),
	}
	if len(m.warnings) > 0 {
		t.Warnings = append([]string(nil), m.warnings...)
	}
	if len(m.stageLatency) > 0 {
		t.StageLatencyMS = make(map[string]int64, len(m.stageLatency))
		for k, v := range m.stageLatency {
			t.StageLatencyMS[k] = v.Milliseconds()
		}
	}
	return t
}
