// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/madspark-labs/madspark/pkg/llm/mock"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
)

func testRouter(t *testing.T, prov *mock.Client) *router.Router {
	t.Helper()
	cfg := router.DefaultConfig()
	cfg.PrimaryProvider = "mock"
	cfg.CacheEnabled = false
	cfg.RetryInitialDelay = time.Millisecond
	return router.New(cfg, prov, nil, nil, nil, zaptest.NewLogger(t))
}

func sampleCandidate() *types.Candidate {
	return &types.Candidate{
		Text:     "Solar rooftop garden: modular planters for city roofs.",
		Score:    8.0,
		Critique: "feasible",
		Topic:    "urban farming",
		Context:  "small spaces",
	}
}

func TestPromptsCarryLanguageDirective(t *testing.T) {
	c := sampleCandidate()
	prompts := []string{
		GeneratorPrompt("urban farming", "small spaces", 5),
		CriticPrompt("urban farming", "", []string{"idea one"}),
		AdvocatePrompt(c),
		SkepticPrompt(c),
		ImproverPrompt(c),
		DimensionPrompt("urban farming", "", []string{"idea one"}),
		InferencePrompt(c, types.InferenceCausal),
	}
	for _, p := range prompts {
		assert.Contains(t, p, languageDirective)
	}
}

func TestImproverPromptIncludesFullPayload(t *testing.T) {
	c := sampleCandidate()
	c.Advocacy = &types.Advocacy{
		Strengths: []types.Bullet{{Title: "Clear value", Body: "direct mechanism"}},
	}
	c.Skepticism = &types.Skepticism{
		CriticalFlaws: []types.Bullet{{Title: "Adoption risk", Body: "habit change"}},
	}

	p := ImproverPrompt(c)
	assert.Contains(t, p, "urban farming")
	assert.Contains(t, p, "small spaces")
	assert.Contains(t, p, "feasible")
	assert.Contains(t, p, "Clear value")
	assert.Contains(t, p, "Adoption risk")
}

func TestGenerateIdeasReindexes(t *testing.T) {
	// Three usable ideas with messy indices plus one unusable record.
	raw := `[
		{"index":7,"title":"A","description":"first","key_features":[],"category":"x"},
		{"title":"","description":"discarded"},
		{"index":2,"title":"B","description":"second","key_features":[],"category":"x"},
		{"index":2,"title":"C","description":"third","key_features":[],"category":"x"}
	]`
	prov := mock.New(mock.WithResponses("idea", raw))
	rt := testRouter(t, prov)

	ideas, err := GenerateIdeas(context.Background(), rt, "topic", "", 4, 0.3)
	require.NoError(t, err)
	require.Len(t, ideas, 3)
	for i, idea := range ideas {
		assert.Equal(t, i, idea.Index)
	}
	assert.Equal(t, "A", ideas[0].Title)
	assert.Equal(t, "C", ideas[2].Title)
}

func TestGenerateIdeasFailsWhenNothingUsable(t *testing.T) {
	prov := mock.New(mock.WithResponses("idea", `[{"description":"no title"}]`))
	rt := testRouter(t, prov)

	_, err := GenerateIdeas(context.Background(), rt, "topic", "", 3, 0.3)
	require.Error(t, err)
}

func TestEvaluateTextsAlignsByPosition(t *testing.T) {
	// The model returns drifted indices; position wins.
	raw := `[
		{"idea_index":9,"score":7.0,"critique":"first"},
		{"idea_index":0,"score":5.0,"critique":"second"}
	]`
	prov := mock.New(mock.WithResponses("evaluation", raw))
	rt := testRouter(t, prov)

	evals, err := EvaluateTexts(context.Background(), rt, "topic", "", []string{"a", "b"}, 0.3)
	require.NoError(t, err)
	require.Len(t, evals, 2)
	assert.Equal(t, 0, evals[0].IdeaIndex)
	assert.Equal(t, "first", evals[0].Critique)
	assert.Equal(t, 1, evals[1].IdeaIndex)
	assert.Equal(t, "second", evals[1].Critique)
}

func TestEvaluateTextsPadsMissingWithZeroScore(t *testing.T) {
	raw := `[{"idea_index":0,"score":7.0,"critique":"only one"}]`
	prov := mock.New(mock.WithResponses("evaluation", raw))
	rt := testRouter(t, prov)

	evals, err := EvaluateTexts(context.Background(), rt, "topic", "", []string{"a", "b", "c"}, 0.3)
	require.NoError(t, err)
	require.Len(t, evals, 3)
	assert.Equal(t, 7.0, evals[0].Score)
	assert.Equal(t, 0.0, evals[1].Score)
	assert.Equal(t, "evaluation unavailable", evals[1].Critique)
}

func TestImproveIdeaRequiresTopic(t *testing.T) {
	prov := mock.New()
	rt := testRouter(t, prov)

	c := sampleCandidate()
	c.Topic = "  "
	_, err := ImproveIdea(context.Background(), rt, c, 0.3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
	assert.Equal(t, 0, prov.CallCount("improved_idea"))
}

func TestImproveIdea(t *testing.T) {
	rt := testRouter(t, mock.New())

	imp, err := ImproveIdea(context.Background(), rt, sampleCandidate(), 0.3)
	require.NoError(t, err)
	assert.NotEmpty(t, imp.Title)
	assert.NotEmpty(t, imp.KeyImprovements)
}

func TestScoreDimensionsNilOnUnparseableItem(t *testing.T) {
	raw := `[
		{"feasibility":8,"innovation":7,"impact":8,"cost_effectiveness":7,"scalability":8,"risk_assessment":7,"timeline":6},
		{"feasibility":"broken"}
	]`
	prov := mock.New(mock.WithResponses("dimension_scores", raw))
	rt := testRouter(t, prov)

	dims, err := ScoreDimensions(context.Background(), rt, "topic", "", []string{"a", "b"}, 0.3)
	require.NoError(t, err)
	require.Len(t, dims, 2)
	require.NotNil(t, dims[0])
	assert.Equal(t, 8.0, dims[0].Feasibility)
	assert.Nil(t, dims[1])
}

func TestInferLogicallySetsVariant(t *testing.T) {
	rt := testRouter(t, mock.New())

	res, err := InferLogically(context.Background(), rt, sampleCandidate(), types.InferenceConstraint, 0.3)
	require.NoError(t, err)
	assert.Equal(t, types.InferenceConstraint, res.Variant)
	assert.GreaterOrEqual(t, res.Confidence, 0.0)
	assert.LessOrEqual(t, res.Confidence, 1.0)
}

func TestAdvocateAndSkeptic(t *testing.T) {
	rt := testRouter(t, mock.New())
	c := sampleCandidate()

	adv, err := AdvocateFor(context.Background(), rt, c, 0.3)
	require.NoError(t, err)
	assert.NotEmpty(t, adv.Strengths)

	sk, err := ExamineSkeptically(context.Background(), rt, c, 0.3)
	require.NoError(t, err)
	assert.NotEmpty(t, sk.CriticalFlaws)
}

func TestSchemaNamesAreStable(t *testing.T) {
	// Cache keys embed these identifiers; renames invalidate every cache.
	for schema, want := range map[string]string{
		IdeaSchema.Identifier():         "idea@v1",
		EvaluationSchema.Identifier():   "evaluation@v1",
		AdvocacySchema.Identifier():     "advocacy@v1",
		SkepticismSchema.Identifier():   "skepticism@v1",
		ImprovedIdeaSchema.Identifier(): "improved_idea@v1",
		DimensionSchema.Identifier():    "dimension_scores@v1",
		InferenceSchema.Identifier():    "logical_inference@v1",
	} {
		assert.Equal(t, want, schema)
	}
	assert.True(t, strings.HasPrefix(IdeaSchema.Identifier(), "idea@"))
}
