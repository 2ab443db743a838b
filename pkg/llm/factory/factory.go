// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package factory builds LLM providers from router configuration.
// Environment is read once through ReadEnv at program start and passed
// in explicitly; nothing here re-reads it afterwards.
package factory

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/llm"
	"github.com/madspark-labs/madspark/pkg/llm/gemini"
	"github.com/madspark-labs/madspark/pkg/llm/mock"
	"github.com/madspark-labs/madspark/pkg/llm/ollama"
	"github.com/madspark-labs/madspark/pkg/types"
)

// Env holds the construction-time environment values.
type Env struct {
	GeminiAPIKey   string
	OllamaEndpoint string
	CacheDir       string
}

// ReadEnv captures provider credentials and paths from the environment.
// Call once at program start.
func ReadEnv() Env {
	return Env{
		GeminiAPIKey:   os.Getenv("MADSPARK_GEMINI_API_KEY"),
		OllamaEndpoint: os.Getenv("MADSPARK_OLLAMA_HOST"),
		CacheDir:       os.Getenv("MADSPARK_CACHE_DIR"),
	}
}

// Config selects and parameterizes the providers for one request.
type Config struct {
	// Provider is one of ollama, gemini, auto, mock.
	Provider string
	Tier     types.ModelTier
	Env      Env
	Timeout  time.Duration
	Logger   *zap.Logger
}

// geminiModels maps tiers to Gemini model identifiers.
var geminiModels = map[types.ModelTier]string{
	types.TierFast:     "gemini-2.5-flash-lite",
	types.TierBalanced: "gemini-2.5-flash",
	types.TierQuality:  "gemini-2.5-pro",
}

// ollamaModels maps tiers to Ollama model identifiers.
var ollamaModels = map[types.ModelTier]string{
	types.TierFast:     "llama3.2",
	types.TierBalanced: "llama3.1",
	types.TierQuality:  "qwen2.5:32b",
}

// New builds the primary and fallback providers for the configuration.
// fallback is nil when the policy has none. Configuration errors (a
// cloud provider explicitly selected without a credential) fail fast
// here, before any workflow starts.
func New(ctx context.Context, cfg Config) (primary, fallback llm.Provider, err error) {
	if cfg.Tier == "" {
		cfg.Tier = types.TierBalanced
	}
	if !cfg.Tier.Valid() {
		return nil, nil, fmt.Errorf("unknown model tier %q", cfg.Tier)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "mock":
		return mock.New(), nil, nil

	case "gemini":
		g, err := newGemini(cfg)
		if err != nil {
			return nil, nil, err
		}
		return g, nil, nil

	case "ollama", "":
		local := newOllama(cfg)
		// The cloud fallback is best-effort: available only when a key
		// was present at construction.
		if g, err := newGemini(cfg); err == nil {
			return local, g, nil
		}
		return local, nil, nil

	case "auto":
		local := newOllama(cfg)
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := local.Healthy(probeCtx); err == nil {
			if g, gerr := newGemini(cfg); gerr == nil {
				return local, g, nil
			}
			return local, nil, nil
		} else {
			logger.Info("local provider unavailable, preferring cloud", zap.Error(err))
		}
		g, err := newGemini(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("auto selection found no usable provider: %w", err)
		}
		return g, nil, nil
	}

	return nil, nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
}

func newGemini(cfg Config) (*gemini.Client, error) {
	if cfg.Env.GeminiAPIKey == "" {
		return nil, fmt.Errorf("gemini API key not configured (set MADSPARK_GEMINI_API_KEY)")
	}
	return gemini.NewClient(gemini.Config{
		APIKey:  cfg.Env.GeminiAPIKey,
		Model:   geminiModels[cfg.Tier],
		Timeout: cfg.Timeout,
	})
}

func newOllama(cfg Config) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		Endpoint: cfg.Env.OllamaEndpoint,
		Model:    ollamaModels[cfg.Tier],
		Timeout:  cfg.Timeout,
	})
}
