// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/madspark-labs/madspark/pkg/types"
)

func TestMockSelection(t *testing.T) {
	primary, fallback, err := New(context.Background(), Config{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", primary.Name())
	assert.Nil(t, fallback)
}

func TestGeminiRequiresAPIKey(t *testing.T) {
	_, _, err := New(context.Background(), Config{Provider: "gemini"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MADSPARK_GEMINI_API_KEY")
}

func TestGeminiWithKey(t *testing.T) {
	primary, fallback, err := New(context.Background(), Config{
		Provider: "gemini",
		Env:      Env{GeminiAPIKey: "test-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gemini", primary.Name())
	assert.Nil(t, fallback)
}

func TestOllamaWithoutKeyHasNoFallback(t *testing.T) {
	primary, fallback, err := New(context.Background(), Config{Provider: "ollama"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", primary.Name())
	assert.Nil(t, fallback)
}

func TestOllamaWithKeyGetsGeminiFallback(t *testing.T) {
	primary, fallback, err := New(context.Background(), Config{
		Provider: "ollama",
		Env:      Env{GeminiAPIKey: "test-key"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", primary.Name())
	require.NotNil(t, fallback)
	assert.Equal(t, "gemini", fallback.Name())
}

func TestEmptyProviderDefaultsToOllama(t *testing.T) {
	primary, _, err := New(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, "ollama", primary.Name())
}

func TestUnknownProviderRejected(t *testing.T) {
	_, _, err := New(context.Background(), Config{Provider: "bard"})
	require.Error(t, err)
}

func TestUnknownTierRejected(t *testing.T) {
	_, _, err := New(context.Background(), Config{Provider: "mock", Tier: types.ModelTier("ultra")})
	require.Error(t, err)
}
