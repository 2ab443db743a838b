// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/madspark-labs/madspark/pkg/cache"
	"github.com/madspark-labs/madspark/pkg/llm"
	"github.com/madspark-labs/madspark/pkg/llm/mock"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
)

func testRouter(t *testing.T, primary, fallback llm.Provider, store *cache.Cache) *router.Router {
	t.Helper()
	cfg := router.DefaultConfig()
	cfg.PrimaryProvider = primary.Name()
	cfg.CacheEnabled = store != nil
	cfg.RetryInitialDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return router.New(cfg, primary, fallback, nil, store, zaptest.NewLogger(t))
}

func baseRequest() types.Request {
	return types.Request{
		Topic:             "urban farming",
		Context:           "small spaces",
		NumTopCandidates:  1,
		TemperaturePreset: types.PresetConservative,
		MultiDimensional:  true,
	}
}

func runPipeline(t *testing.T, req types.Request, prov llm.Provider) *Result {
	t.Helper()
	coord := New(Config{Router: testRouter(t, prov, nil, nil), Logger: zaptest.NewLogger(t)})
	result, err := coord.Run(context.Background(), req)
	require.NoError(t, err)
	return result
}

func TestHappyPath(t *testing.T) {
	result := runPipeline(t, baseRequest(), mock.New())
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Equal(t, 8.0, c.Score)
	assert.Equal(t, "feasible", c.Critique)
	assert.Equal(t, "urban farming", c.Topic)

	require.NotNil(t, c.ImprovedScore)
	assert.Equal(t, 9.0, *c.ImprovedScore)
	assert.Equal(t, "stronger after revision", c.ImprovedCritique)
	assert.NotEmpty(t, c.ImprovedText)

	require.NotNil(t, c.DimensionScores)
	require.NotNil(t, c.ImprovedDimensionScores)
	assert.Len(t, types.DimensionNames, 7)
	for _, name := range types.DimensionNames {
		assert.Greater(t, c.DimensionScores.ByName(name), 0.0, name)
	}

	// Optional stages were not requested.
	assert.Nil(t, c.Advocacy)
	assert.Nil(t, c.Skepticism)
	assert.Nil(t, c.LogicalInference)
}

func TestEnhancedAddsAdvocacyAndSkepticism(t *testing.T) {
	req := baseRequest()
	req.Enhanced = true
	prov := mock.New()
	result := runPipeline(t, req, prov)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	require.NotNil(t, c.Advocacy)
	assert.NotEmpty(t, c.Advocacy.Strengths)
	require.NotNil(t, c.Skepticism)
	assert.NotEmpty(t, c.Skepticism.CriticalFlaws)

	// With one candidate the enhanced stages cost one call each.
	assert.Equal(t, 1, prov.CallCount("advocacy"))
	assert.Equal(t, 1, prov.CallCount("skepticism"))
}

func TestLogicalInference(t *testing.T) {
	req := baseRequest()
	req.Logical = true
	req.InferenceVariant = types.InferenceCausal
	result := runPipeline(t, req, mock.New())

	require.Len(t, result.Candidates, 1)
	inf := result.Candidates[0].LogicalInference
	require.NotNil(t, inf)
	assert.Equal(t, types.InferenceCausal, inf.Variant)
	assert.GreaterOrEqual(t, inf.Confidence, 0.0)
	assert.LessOrEqual(t, inf.Confidence, 1.0)
	assert.NotEmpty(t, inf.Chain)
}

func TestPrimaryFailsFallbackSucceeds(t *testing.T) {
	primary := mock.New(mock.WithName("primary"), mock.WithError(fmt.Errorf("transport: unreachable")))
	fallback := mock.New(mock.WithName("fallback"))

	coord := New(Config{Router: testRouter(t, primary, fallback, nil), Logger: zaptest.NewLogger(t)})
	result, err := coord.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.Equal(t, 8.0, c.Score)
	require.NotNil(t, c.ImprovedScore)

	m := result.Metrics
	assert.GreaterOrEqual(t, m.FailedRequests, int64(3))
	assert.Greater(t, m.ProviderCalls["primary"], int64(0))
	assert.Greater(t, m.ProviderCalls["fallback"], int64(0))
}

func TestNoveltyFilterCollapsesDuplicates(t *testing.T) {
	cluster := `{"index":%d,"title":"Solar rooftop garden","description":"Grow vegetables on city rooftops using modular solar powered planter beds, variant %s.","key_features":["modular"],"category":"farming"}`
	distinct := `{"index":5,"title":"Basement mushroom farm","description":"Convert unused basements into climate controlled chambers producing gourmet mushrooms year round.","key_features":["climate control"],"category":"farming"}`
	items := []string{
		fmt.Sprintf(cluster, 0, "one"),
		fmt.Sprintf(cluster, 1, "two"),
		fmt.Sprintf(cluster, 2, "three"),
		fmt.Sprintf(cluster, 3, "four"),
		fmt.Sprintf(cluster, 4, "five"),
		distinct,
	}
	prov := mock.New(mock.WithResponses("idea", "["+strings.Join(items, ",")+"]"))

	req := baseRequest()
	req.NumTopCandidates = 2
	req.NoveltyThreshold = 0.8
	result := runPipeline(t, req, prov)

	require.Len(t, result.Candidates, 2)
	texts := []string{result.Candidates[0].Text, result.Candidates[1].Text}

	mushroom := 0
	rooftop := 0
	for _, text := range texts {
		if strings.Contains(text, "mushroom") {
			mushroom++
		}
		if strings.Contains(text, "rooftop") {
			rooftop++
		}
	}
	assert.Equal(t, 1, mushroom, "the distinct idea must survive selection")
	assert.Equal(t, 1, rooftop, "exactly one cluster representative must survive")
}

func TestCancellationReturnsPartialResult(t *testing.T) {
	// The blocking provider stalls advocacy calls until the context dies,
	// simulating a cancel arriving mid-S4.
	prov := &blockingProvider{
		inner:       mock.New(),
		blockSchema: "advocacy",
		started:     make(chan struct{}),
	}

	req := baseRequest()
	req.Enhanced = true

	ctx, cancel := context.WithCancel(context.Background())
	coord := New(Config{Router: testRouter(t, prov, nil, nil), Logger: zaptest.NewLogger(t)})

	go func() {
		<-prov.started
		cancel()
	}()

	start := time.Now()
	result, err := coord.Run(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Canceled)
	assert.Less(t, time.Since(start), DefaultTimeouts().Advocate+time.Second)

	// Everything through S3 is populated; S4 output may be missing.
	require.Len(t, result.Candidates, 1)
	c := result.Candidates[0]
	assert.NotEmpty(t, c.Text)
	assert.Equal(t, 8.0, c.Score)
	assert.NotNil(t, c.DimensionScores)
	assert.Nil(t, c.Advocacy)
}

func TestDeterministicAtConservativePreset(t *testing.T) {
	run := func() []byte {
		result := runPipeline(t, baseRequest(), mock.New())
		data, err := json.Marshal(result.Candidates)
		require.NoError(t, err)
		return data
	}
	assert.Equal(t, string(run()), string(run()))
}

func TestDimensionPreservation(t *testing.T) {
	req := baseRequest()
	req.NumTopCandidates = 3
	result := runPipeline(t, req, mock.New())

	require.Len(t, result.Candidates, 3)
	for _, c := range result.Candidates {
		if c.DimensionScores == nil {
			continue
		}
		if c.ImprovedText != "" {
			assert.NotNil(t, c.ImprovedDimensionScores)
		}
		// The initial scores survive S9 untouched.
		assert.Equal(t, 8.0, c.DimensionScores.Feasibility)
	}
}

func TestImprovedDimensionsRequireInitialScores(t *testing.T) {
	// The initial dimension batch burns every retry on unparseable
	// output; a later valid response must not produce improved scores
	// with no initial counterpart.
	valid := `[{"feasibility":8,"innovation":7,"impact":8,"cost_effectiveness":7,"scalability":8,"risk_assessment":7,"timeline":6}]`
	prov := mock.New(mock.WithResponses("dimension_scores",
		"no scores here", "no scores here", "no scores here", valid))

	result := runPipeline(t, baseRequest(), prov)
	require.Len(t, result.Candidates, 1)

	c := result.Candidates[0]
	assert.Nil(t, c.DimensionScores)
	assert.Nil(t, c.ImprovedDimensionScores,
		"improved scores must never exist without initial scores")
	assert.NotEmpty(t, result.Telemetry.Warnings)

	// The improved pass had nothing to score, so only the three failed
	// initial attempts reached the provider.
	assert.Equal(t, 3, prov.CallCount("dimension_scores"))
}

func TestGenerateFailureAbortsRun(t *testing.T) {
	prov := mock.New(mock.WithError(fmt.Errorf("provider down")))
	coord := New(Config{Router: testRouter(t, prov, nil, nil), Logger: zaptest.NewLogger(t)})

	_, err := coord.Run(context.Background(), baseRequest())
	require.Error(t, err)

	var werr *WorkflowError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, StageGenerate, werr.Stage)
}

func TestEvaluateTotalFailureYieldsEmptyResult(t *testing.T) {
	prov := mock.New(mock.WithResponses("evaluation", "not parseable at all"))
	coord := New(Config{Router: testRouter(t, prov, nil, nil), Logger: zaptest.NewLogger(t)})

	result, err := coord.Run(context.Background(), baseRequest())
	require.NoError(t, err)
	assert.Empty(t, result.Candidates)
	assert.NotEmpty(t, result.Telemetry.Warnings)
}

func TestInvalidRequestRejectedBeforeAnyCall(t *testing.T) {
	prov := mock.New()
	coord := New(Config{Router: testRouter(t, prov, nil, nil), Logger: zaptest.NewLogger(t)})

	req := baseRequest()
	req.NumTopCandidates = 9
	_, err := coord.Run(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, 0, prov.CallCount("idea"))
}

func TestCachedRerunMakesNoProviderCalls(t *testing.T) {
	store, err := cache.Open(cache.Config{Dir: t.TempDir(), Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	defer store.Close()

	first := mock.New()
	coord1 := New(Config{Router: testRouter(t, first, nil, store), Logger: zaptest.NewLogger(t)})
	res1, err := coord1.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	second := mock.New()
	coord2 := New(Config{Router: testRouter(t, second, nil, store), Logger: zaptest.NewLogger(t)})
	res2, err := coord2.Run(context.Background(), baseRequest())
	require.NoError(t, err)

	for _, name := range []string{"idea", "evaluation", "improved_idea", "dimension_scores"} {
		assert.Zero(t, second.CallCount(name), name)
	}
	assert.Equal(t, res1.Candidates, res2.Candidates)
	assert.Equal(t, res2.Metrics.CacheHits, res1.Metrics.APICalls)
}

// blockingProvider delegates to the mock but stalls calls for one schema
// until the context is canceled.
type blockingProvider struct {
	inner       *mock.Client
	blockSchema string
	once        sync.Once
	started     chan struct{}
}

func (b *blockingProvider) Name() string  { return "blocking" }
func (b *blockingProvider) Model() string { return "blocking-model" }

func (b *blockingProvider) GenerateStructured(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	name := ""
	if req.Schema != nil {
		s := req.Schema
		if s.Name == "" && s.Items != nil {
			s = s.Items
		}
		name = s.Name
	}
	if name == b.blockSchema {
		b.once.Do(func() { close(b.started) })
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return b.inner.GenerateStructured(ctx, req)
}
