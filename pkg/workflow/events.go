// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType classifies progress events.
type EventType string

const (
	EventProgress EventType = "progress"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one progress notification from a running workflow.
type Event struct {
	Type        EventType `json:"type"`
	Stage       string    `json:"stage"`
	Progress    float64   `json:"progress"`
	Message     string    `json:"message,omitempty"`
	TimestampMS int64     `json:"timestamp_ms"`
}

const eventBuffer = 64

// Emitter fans progress events out to one consumer over a bounded
// channel. When the consumer falls behind the oldest event is dropped,
// never the producer blocked; drops are counted.
type Emitter struct {
	mu      sync.Mutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewEmitter creates an Emitter with the standard buffer.
func NewEmitter() *Emitter {
	return &Emitter{ch: make(chan Event, eventBuffer)}
}

// Emit queues an event, evicting the oldest buffered event if full.
func (e *Emitter) Emit(ev Event) {
	if e == nil {
		return
	}
	if ev.TimestampMS == 0 {
		ev.TimestampMS = time.Now().UnixMilli()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for {
		select {
		case e.ch <- ev:
			return
		default:
		}
		select {
		case <-e.ch:
			e.dropped.Add(1)
		default:
		}
	}
}

// Events returns the consumer side of the stream.
func (e *Emitter) Events() <-chan Event { return e.ch }

// Dropped returns how many events were evicted unread.
func (e *Emitter) Dropped() int64 { return e.dropped.Load() }

// Close ends the stream. Emit becomes a no-op afterwards.
func (e *Emitter) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
