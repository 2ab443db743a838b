// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package agents holds the five agent functions of the pipeline:
// generator, critic, advocate, skeptic, and improver, plus the
// multi-dimensional evaluator and the logical-inference analyst. Each is
// a stateless function over a Router; prompts and output schemas live
// alongside them.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/madspark-labs/madspark/pkg/parser"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
)

// decodeInto converts a validated record into a typed struct via a JSON
// round trip.
func decodeInto(rec map[string]any, out any) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// GenerateIdeas runs the generator once and returns at least one idea.
// Unparseable items are dropped; surviving ideas are reindexed 0..len-1
// so downstream stages can rely on positional indices.
func GenerateIdeas(ctx context.Context, rt *router.Router, topic, contextStr string, n int, temperature float64) ([]types.Idea, error) {
	prompt := GeneratorPrompt(topic, contextStr, n)
	recs, _, err := rt.GenerateStructuredBatch(ctx, prompt, IdeaSchema, n, temperature)
	if err != nil {
		return nil, fmt.Errorf("idea generation: %w", err)
	}

	ideas := make([]types.Idea, 0, len(recs))
	for _, rec := range recs {
		if parser.IsSentinel(rec) {
			continue
		}
		var idea types.Idea
		if err := decodeInto(rec, &idea); err != nil {
			continue
		}
		if strings.TrimSpace(idea.Title) == "" {
			continue
		}
		idea.Index = len(ideas)
		ideas = append(ideas, idea)
	}
	if len(ideas) == 0 {
		return nil, fmt.Errorf("idea generation: no usable ideas in response")
	}
	return ideas, nil
}

// EvaluateTexts runs the critic over idea texts and returns one
// evaluation per text, aligned by position. An unparseable item becomes a
// zero-score evaluation rather than failing the batch.
func EvaluateTexts(ctx context.Context, rt *router.Router, topic, contextStr string, texts []string, temperature float64) ([]types.Evaluation, error) {
	prompt := CriticPrompt(topic, contextStr, texts)
	recs, _, err := rt.GenerateStructuredBatch(ctx, prompt, EvaluationSchema, len(texts), temperature)
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}

	evals := make([]types.Evaluation, len(texts))
	for i, rec := range recs {
		if parser.IsSentinel(rec) {
			evals[i] = types.Evaluation{IdeaIndex: i, Score: 0, Critique: "evaluation unavailable"}
			continue
		}
		var ev types.Evaluation
		if err := decodeInto(rec, &ev); err != nil {
			evals[i] = types.Evaluation{IdeaIndex: i, Score: 0, Critique: "evaluation unavailable"}
			continue
		}
		// Positional order is authoritative; models drift on indices.
		ev.IdeaIndex = i
		evals[i] = ev
	}
	return evals, nil
}

// AdvocateFor runs the advocate for one candidate.
func AdvocateFor(ctx context.Context, rt *router.Router, c *types.Candidate, temperature float64) (*types.Advocacy, error) {
	rec, _, err := rt.GenerateStructured(ctx, AdvocatePrompt(c), AdvocacySchema, temperature)
	if err != nil {
		return nil, fmt.Errorf("advocacy: %w", err)
	}
	var adv types.Advocacy
	if err := decodeInto(rec, &adv); err != nil {
		return nil, fmt.Errorf("advocacy decode: %w", err)
	}
	return &adv, nil
}

// ExamineSkeptically runs the skeptic for one candidate.
func ExamineSkeptically(ctx context.Context, rt *router.Router, c *types.Candidate, temperature float64) (*types.Skepticism, error) {
	rec, _, err := rt.GenerateStructured(ctx, SkepticPrompt(c), SkepticismSchema, temperature)
	if err != nil {
		return nil, fmt.Errorf("skepticism: %w", err)
	}
	var sk types.Skepticism
	if err := decodeInto(rec, &sk); err != nil {
		return nil, fmt.Errorf("skepticism decode: %w", err)
	}
	return &sk, nil
}

// ImproveIdea runs the improver for one candidate. The candidate must
// carry its topic: an improvement without the original topic would let
// the rewrite drift off-subject.
func ImproveIdea(ctx context.Context, rt *router.Router, c *types.Candidate, temperature float64) (*types.ImprovedIdea, error) {
	if strings.TrimSpace(c.Topic) == "" {
		return nil, fmt.Errorf("improvement: candidate has no topic")
	}
	rec, _, err := rt.GenerateStructured(ctx, ImproverPrompt(c), ImprovedIdeaSchema, temperature)
	if err != nil {
		return nil, fmt.Errorf("improvement: %w", err)
	}
	var imp types.ImprovedIdea
	if err := decodeInto(rec, &imp); err != nil {
		return nil, fmt.Errorf("improvement decode: %w", err)
	}
	if strings.TrimSpace(imp.Title) == "" && strings.TrimSpace(imp.Description) == "" {
		return nil, fmt.Errorf("improvement: empty rewrite")
	}
	return &imp, nil
}

// ScoreDimensions runs the multi-dimensional evaluator over idea texts.
// The result is positionally aligned; an unparseable item yields a nil
// entry, never a failed batch.
func ScoreDimensions(ctx context.Context, rt *router.Router, topic, contextStr string, texts []string, temperature float64) ([]*types.DimensionScores, error) {
	prompt := DimensionPrompt(topic, contextStr, texts)
	recs, _, err := rt.GenerateStructuredBatch(ctx, prompt, DimensionSchema, len(texts), temperature)
	if err != nil {
		return nil, fmt.Errorf("dimension scoring: %w", err)
	}

	out := make([]*types.DimensionScores, len(texts))
	for i, rec := range recs {
		if parser.IsSentinel(rec) {
			continue
		}
		var d types.DimensionScores
		if err := decodeInto(rec, &d); err != nil {
			continue
		}
		out[i] = &d
	}
	return out, nil
}

// InferLogically runs one logical-inference analysis for a candidate.
func InferLogically(ctx context.Context, rt *router.Router, c *types.Candidate, v types.InferenceVariant, temperature float64) (*types.InferenceResult, error) {
	if v == "" {
		v = types.InferenceFullChain
	}
	rec, _, err := rt.GenerateStructured(ctx, InferencePrompt(c, v), InferenceSchema, temperature)
	if err != nil {
		return nil, fmt.Errorf("logical inference: %w", err)
	}
	var res types.InferenceResult
	if err := decodeInto(rec, &res); err != nil {
		return nil, fmt.Errorf("logical inference decode: %w", err)
	}
	res.Variant = v
	return &res, nil
}
