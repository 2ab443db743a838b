// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/madspark-labs/madspark/pkg/types"
)

func TestMonitorAccumulatesUsage(t *testing.T) {
	m := NewMonitor()
	m.AddUsage(types.Usage{InputTokens: 100, OutputTokens: 40, TotalTokens: 140, CostUSD: 0.002})
	m.AddUsage(types.Usage{InputTokens: 50, OutputTokens: 10, TotalTokens: 60, CostUSD: 0.001})

	tel := m.Snapshot()
	assert.Equal(t, 150, tel.Usage.InputTokens)
	assert.Equal(t, 200, tel.Usage.TotalTokens)
	assert.InDelta(t, 0.003, tel.Usage.CostUSD, 1e-9)
}

func TestMonitorEstimatesWhenUsageAbsent(t *testing.T) {
	m := NewMonitor()
	m.EstimateUsage("describe three urban farming ideas", "rooftop gardens, vertical walls, window boxes")

	tel := m.Snapshot()
	assert.Greater(t, tel.Usage.InputTokens, 0)
	assert.Greater(t, tel.Usage.OutputTokens, 0)
	assert.Equal(t, tel.Usage.InputTokens+tel.Usage.OutputTokens, tel.Usage.TotalTokens)
}

func TestMonitorStageLatencyAndWarnings(t *testing.T) {
	m := NewMonitor()
	m.RecordStage(StageGenerate, 120*time.Millisecond)
	m.RecordStage(StageGenerate, 80*time.Millisecond)
	m.Warn("advocacy unavailable for candidate 1")

	tel := m.Snapshot()
	assert.Equal(t, int64(200), tel.StageLatencyMS[StageGenerate])
	assert.Equal(t, []string{"advocacy unavailable for candidate 1"}, tel.Warnings)
}

func TestMonitorConcurrentUpdates(t *testing.T) {
	m := NewMonitor()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddUsage(types.Usage{TotalTokens: 1})
			m.Warn("w")
		}()
	}
	wg.Wait()

	tel := m.Snapshot()
	assert.Equal(t, 32, tel.Usage.TotalTokens)
	assert.Len(t, tel.Warnings, 32)
}
