// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package llm defines the provider interface for structured LLM output
// and the knobs shared by every provider client.
package llm

import (
	"context"

	"github.com/madspark-labs/madspark/pkg/schema"
	"github.com/madspark-labs/madspark/pkg/types"
)

// GenerateRequest asks a provider for schema-constrained JSON output.
type GenerateRequest struct {
	Prompt      string
	Schema      *schema.Schema
	Temperature float64
}

// GenerateResponse carries the raw text and token usage of one call.
// The text still has to go through the parser; providers do not decode.
type GenerateResponse struct {
	Text  string
	Usage types.Usage
}

// Provider is a structured-output LLM backend. Implementations must be
// safe for concurrent calls.
type Provider interface {
	// Name returns the provider name ("gemini", "ollama", "mock").
	Name() string

	// Model returns the model identifier in use.
	Model() string

	// GenerateStructured sends one prompt constrained by the request
	// schema and returns the raw response text plus usage.
	GenerateStructured(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// HealthChecker is implemented by providers that can be probed before
// selection (the local provider).
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// ClampTemperature bounds a temperature to a provider's documented
// maximum. Presets are passed through unclamped otherwise; the "wild"
// preset (1.2) is within range for both gemini and ollama.
func ClampTemperature(t, max float64) float64 {
	if t < 0 {
		return 0
	}
	if t > max {
		return max
	}
	return t
}
