// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package ollama implements the Provider interface for a local Ollama
// server, using the chat API's `format` parameter for structured output.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/madspark-labs/madspark/pkg/llm"
	"github.com/madspark-labs/madspark/pkg/types"
)

// maxTemperature is the ceiling Ollama accepts without degrading badly.
const maxTemperature = 2.0

// Client implements llm.Provider for Ollama.
type Client struct {
	endpoint   string
	model      string
	maxTokens  int
	httpClient *http.Client
}

// Config holds configuration for the Ollama client.
type Config struct {
	Endpoint  string        // Default: http://localhost:11434
	Model     string        // Default: llama3.1
	MaxTokens int           // Default: 4096
	Timeout   time.Duration // Default: 120s
}

// NewClient creates a new Ollama client.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.1"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string { return "ollama" }

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// GenerateStructured sends one prompt with the schema as the chat
// `format` constraint.
func (c *Client) GenerateStructured(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	apiReq := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: req.Prompt},
		},
		Stream: false,
		Options: map[string]any{
			"temperature": llm.ClampTemperature(req.Temperature, maxTemperature),
			"num_predict": c.maxTokens,
		},
	}
	if req.Schema != nil {
		apiReq.Format = req.Schema.JSONSchema()
	}

	resp, err := c.callAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("ollama API call failed: %w", err)
	}

	return &llm.GenerateResponse{
		Text: resp.Message.Content,
		Usage: types.Usage{
			InputTokens:  resp.PromptEvalCount,
			OutputTokens: resp.EvalCount,
			TotalTokens:  resp.PromptEvalCount + resp.EvalCount,
			CostUSD:      0, // local models are free
		},
	}, nil
}

// Healthy probes the local server's tag list. Model entries are read via
// both the "model" and "name" keys to tolerate Ollama version skew.
func (c *Client) Healthy(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed (status %d)", httpResp.StatusCode)
	}

	var tags struct {
		Models []map[string]any `json:"models"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}

	for _, m := range tags.Models {
		id, _ := m["model"].(string)
		if id == "" {
			id, _ = m["name"].(string)
		}
		if id != "" {
			return nil
		}
	}
	return fmt.Errorf("ollama reports no models")
}

func (c *Client) callAPI(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

// Ollama API types.

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   map[string]any `json:"format,omitempty"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Ensure Client implements the Provider and HealthChecker interfaces.
var (
	_ llm.Provider      = (*Client)(nil)
	_ llm.HealthChecker = (*Client)(nil)
)
