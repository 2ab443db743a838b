// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterDeliversInOrder(t *testing.T) {
	e := NewEmitter()
	e.Emit(Event{Type: EventProgress, Stage: "generate", Progress: 0.1})
	e.Emit(Event{Type: EventProgress, Stage: "evaluate", Progress: 0.2})
	e.Close()

	var stages []string
	for ev := range e.Events() {
		stages = append(stages, ev.Stage)
		assert.NotZero(t, ev.TimestampMS)
	}
	assert.Equal(t, []string{"generate", "evaluate"}, stages)
	assert.Zero(t, e.Dropped())
}

func TestEmitterDropsOldestWhenFull(t *testing.T) {
	e := NewEmitter()
	total := eventBuffer + 10
	for i := 0; i < total; i++ {
		e.Emit(Event{Type: EventProgress, Message: fmt.Sprint(i)})
	}
	e.Close()

	var got []string
	for ev := range e.Events() {
		got = append(got, ev.Message)
	}
	require.Len(t, got, eventBuffer)
	// The newest events survive; the oldest were evicted.
	assert.Equal(t, fmt.Sprint(total-1), got[len(got)-1])
	assert.Equal(t, fmt.Sprint(total-eventBuffer), got[0])
	assert.Equal(t, int64(10), e.Dropped())
}

func TestEmitterAfterCloseIsNoOp(t *testing.T) {
	e := NewEmitter()
	e.Close()
	e.Emit(Event{Type: EventDone})

	_, open := <-e.Events()
	assert.False(t, open)
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e *Emitter
	e.Emit(Event{Type: EventDone})
	e.Close()
}
