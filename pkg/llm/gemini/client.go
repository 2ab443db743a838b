// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package gemini implements the Provider interface for Google Gemini
// using the generateContent REST API with structured-output constraints.
package gemini

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

// maxTemperature is the documented ceiling for Gemini sampling.
const maxTemperature = 2.0

// Client implements llm.Provider for Google Gemini.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
}

// Config holds configuration for the Gemini client.
type Config struct {
	// Required: Gemini API key.
	APIKey string

	// Model to use (default: "gemini-2.5-flash").
	Model string

	// BaseURL overrides the API endpoint; tests point this at a stub.
	BaseURL string

	MaxTokens int           // Default: 8192
	Timeout   time.Duration // Default: 60s
}

// NewClient creates a new Gemini client. The API key is captured at
// construction and never re-read.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &Client{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.MaxTokens,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name returns the provider name.
func (c *Client) Name() string { return "gemini" }

// Model returns the model identifier.
func (c *Client) Model() string { return c.model }

// GenerateStructured sends one prompt with a response schema attached.
func (c *Client) GenerateStructured(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	apiReq := &generateContentRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: req.Prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      llm.ClampTemperature(req.Temperature, maxTemperature),
			MaxOutputTokens:  c.maxTokens,
			ResponseMimeType: "application/json",
		},
		SafetySettings: llm.SafetySettings(),
	}
	if req.Schema != nil {
		apiReq.GenerationConfig.ResponseSchema = req.Schema.GeminiSchema()
	}

	resp, err := c.callAPI(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates (finish reason: %s)", resp.finishReason())
	}

	var text string
	for _, p := range resp.Candidates[0].Content.Parts {
		text += p.Text
	}

	usage := types.Usage{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  resp.UsageMetadata.TotalTokenCount,
	}
	usage.CostUSD = estimateCost(c.model, usage)

	return &llm.GenerateResponse{Text: text, Usage: usage}, nil
}

func (c *Client) callAPI(ctx context.Context, req *generateContentRequest) (*generateContentResponse, error) {
	apiURL := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
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

	var resp generateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

// estimateCost approximates USD cost from published per-1M-token rates.
func estimateCost(model string, u types.Usage) float64 {
	inRate, outRate := 0.30, 2.50 // gemini-2.5-flash
	switch model {
	case "gemini-2.5-pro":
		inRate, outRate = 1.25, 10.0
	case "gemini-2.5-flash-lite":
		inRate, outRate = 0.10, 0.40
	}
	return float64(u.InputTokens)/1e6*inRate + float64(u.OutputTokens)/1e6*outRate
}

// Gemini API types.

type generateContentRequest struct {
	Contents         []content           `json:"contents"`
	GenerationConfig generationConfig    `json:"generationConfig"`
	SafetySettings   []llm.SafetySetting `json:"safetySettings,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type generationConfig struct {
	Temperature      float64        `json:"temperature"`
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func (r *generateContentResponse) finishReason() string {
	if len(r.Candidates) > 0 {
		return r.Candidates[0].FinishReason
	}
	return "none"
}

// Ensure Client implements the Provider interface.
var _ llm.Provider = (*Client)(nil)
