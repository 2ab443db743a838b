// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package mock provides a deterministic in-process Provider used by the
// CLI's mock mode and the test suites. Responses are canned per schema
// name; repeated calls against the same schema advance through a fixed
// sequence so re-evaluation rounds see distinct answers.
package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/madspark-labs/madspark/pkg/llm"
	"github.com/madspark-labs/madspark/pkg/types"
)

// Client implements llm.Provider with canned responses.
type Client struct {
	mu        sync.Mutex
	name      string
	calls     map[string]int
	overrides map[string][]string
	failLeft  int
	failErr   error
}

// Option configures the mock client.
type Option func(*Client)

// WithResponses installs a response sequence for a schema name. The last
// response repeats once the sequence is exhausted.
func WithResponses(schemaName string, texts ...string) Option {
	return func(c *Client) {
		c.overrides[schemaName] = texts
	}
}

// WithName overrides the provider name, letting a test distinguish two
// mock instances in router metrics.
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithFailures makes the first n calls fail with err.
func WithFailures(n int, err error) Option {
	return func(c *Client) {
		c.failLeft = n
		c.failErr = err
	}
}

// WithError makes every call fail with err.
func WithError(err error) Option {
	return func(c *Client) {
		c.failLeft = -1
		c.failErr = err
	}
}

// New creates a mock provider.
func New(opts ...Option) *Client {
	c := &Client{
		name:      "mock",
		calls:     make(map[string]int),
		overrides: make(map[string][]string),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.name }

// Model returns the model identifier.
func (c *Client) Model() string { return "mock-model" }

// CallCount returns how many calls were made against a schema name.
func (c *Client) CallCount(schemaName string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[schemaName]
}

// GenerateStructured returns the canned response for the request schema.
func (c *Client) GenerateStructured(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	name := schemaName(req)

	c.mu.Lock()
	call := c.calls[name]
	c.calls[name]++
	if c.failErr != nil && (c.failLeft < 0 || c.failLeft > 0) {
		if c.failLeft > 0 {
			c.failLeft--
		}
		err := c.failErr
		c.mu.Unlock()
		return nil, err
	}
	seq, ok := c.overrides[name]
	c.mu.Unlock()

	var text string
	if ok && len(seq) > 0 {
		if call >= len(seq) {
			call = len(seq) - 1
		}
		text = seq[call]
	} else {
		text = canned(name, call)
	}

	return &llm.GenerateResponse{
		Text: text,
		Usage: types.Usage{
			InputTokens:  len(req.Prompt) / 4,
			OutputTokens: len(text) / 4,
			TotalTokens:  len(req.Prompt)/4 + len(text)/4,
		},
	}, nil
}

func schemaName(req *llm.GenerateRequest) string {
	if req.Schema == nil {
		return "text"
	}
	s := req.Schema
	if s.Name == "" && s.Items != nil {
		s = s.Items
	}
	if s.Name != "" {
		return s.Name
	}
	return s.Type
}

// Healthy always succeeds; the mock provider is always available.
func (c *Client) Healthy(ctx context.Context) error { return nil }

// canned returns the fixed response for a schema. Critic responses
// advance with the call index so the re-evaluation round scores higher.
func canned(name string, call int) string {
	switch {
	case strings.HasPrefix(name, "idea"):
		return cannedIdeas
	case strings.HasPrefix(name, "evaluation"):
		if call == 0 {
			return cannedEvaluations
		}
		return cannedReEvaluations
	case name == "advocacy":
		return cannedAdvocacy
	case name == "skepticism":
		return cannedSkepticism
	case strings.HasPrefix(name, "improved"):
		return cannedImprovedIdea
	case strings.HasPrefix(name, "dimension"):
		return cannedDimensions
	case strings.HasPrefix(name, "logical"):
		return cannedInference
	}
	return "{}"
}

// Ensure Client implements the Provider and HealthChecker interfaces.
var (
	_ llm.Provider      = (*Client)(nil)
	_ llm.HealthChecker = (*Client)(nil)
)
