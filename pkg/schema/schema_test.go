// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evaluationSchema() *Schema {
	return &Schema{
		Name:    "evaluation",
		Version: "v1",
		Type:    "object",
		Properties: map[string]*Schema{
			"score":    {Type: "number", Minimum: F64(0), Maximum: F64(10)},
			"critique": {Type: "string"},
		},
		Required: []string{"score", "critique"},
	}
}

func TestIdentifier(t *testing.T) {
	s := evaluationSchema()
	assert.Equal(t, "evaluation@v1", s.Identifier())

	unnamed := &Schema{Type: "object"}
	assert.Equal(t, "object", unnamed.Identifier())

	list := List(s)
	assert.Equal(t, "list(evaluation@v1)", list.Identifier())
}

func TestIdentifierDefaultsVersion(t *testing.T) {
	s := &Schema{Name: "idea", Type: "object"}
	assert.Equal(t, "idea@v1", s.Identifier())
}

func TestJSONSchemaShape(t *testing.T) {
	s := evaluationSchema()
	tree := s.JSONSchema()

	assert.Equal(t, "object", tree["type"])
	assert.ElementsMatch(t, []string{"score", "critique"}, tree["required"])

	props, ok := tree["properties"].(map[string]any)
	require.True(t, ok)
	score, ok := props["score"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "number", score["type"])
	assert.Equal(t, 0.0, score["minimum"])
	assert.Equal(t, 10.0, score["maximum"])
}

func TestGeminiSchemaUppercasesTypes(t *testing.T) {
	tree := List(evaluationSchema()).GeminiSchema()
	assert.Equal(t, "ARRAY", tree["type"])

	item, ok := tree["items"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "OBJECT", item["type"])

	// Range keywords are draft-07 only; Gemini rejects them.
	props := item["properties"].(map[string]any)
	score := props["score"].(map[string]any)
	_, hasMin := score["minimum"]
	assert.False(t, hasMin)
}

func TestValidate(t *testing.T) {
	s := evaluationSchema()

	require.NoError(t, Validate(map[string]any{"score": 7.5, "critique": "fine"}, s))

	err := Validate(map[string]any{"score": 7.5}, s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "evaluation@v1")

	err = Validate(map[string]any{"score": "high", "critique": "fine"}, s)
	require.Error(t, err)
}

func TestNormalizeClampsScores(t *testing.T) {
	s := evaluationSchema()

	rec := map[string]any{"score": -3.0, "critique": "x"}
	n := Normalize(rec, s)
	assert.Equal(t, 1, n.Clamped)
	assert.Equal(t, 0.0, rec["score"])

	// Values still out of range after the scale repair get clamped.
	rec = map[string]any{"score": 120.0, "critique": "x"}
	n = Normalize(rec, s)
	assert.Equal(t, 1, n.Rescaled)
	assert.Equal(t, 1, n.Clamped)
	assert.Equal(t, 10.0, rec["score"])
}

func TestNormalizeRescalesPercentages(t *testing.T) {
	s := evaluationSchema()

	// A 0-100 scale answer on a 0-10 field divides by 10.
	rec := map[string]any{"score": 85.0, "critique": "x"}
	n := Normalize(rec, s)
	assert.Equal(t, 1, n.Rescaled)
	assert.InDelta(t, 8.5, rec["score"].(float64), 1e-9)

	// A percentage on a 0-1 field divides by 100.
	conf := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"confidence": {Type: "number", Minimum: F64(0), Maximum: F64(1)},
		},
	}
	rec = map[string]any{"confidence": 85.0}
	n = Normalize(rec, conf)
	assert.Equal(t, 1, n.Rescaled)
	assert.InDelta(t, 0.85, rec["confidence"].(float64), 1e-9)
}

func TestNormalizeTruncatesLongStrings(t *testing.T) {
	s := evaluationSchema()
	long := strings.Repeat("a", MaxStringRunes+100)
	rec := map[string]any{"score": 5.0, "critique": long}

	n := Normalize(rec, s)
	assert.Equal(t, 1, n.Truncated)
	got := rec["critique"].(string)
	assert.LessOrEqual(t, len([]rune(got)), MaxStringRunes)
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestNormalizeRecursesIntoLists(t *testing.T) {
	list := List(evaluationSchema())
	recs := []any{
		map[string]any{"score": -1.0, "critique": "a"},
		map[string]any{"score": 5.0, "critique": "b"},
	}
	n := Normalize(recs, list)
	assert.Equal(t, 1, n.Clamped)
	assert.Equal(t, 0.0, recs[0].(map[string]any)["score"])
}
