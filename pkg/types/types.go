// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types defines the records carried through the idea-refinement
// pipeline. All entities live inside a single request; nothing here is
// shared across requests.
package types

import (
	"fmt"
	"strings"
)

// TemperaturePreset names a base sampling temperature.
type TemperaturePreset string

const (
	PresetConservative TemperaturePreset = "conservative"
	PresetBalanced     TemperaturePreset = "balanced"
	PresetCreative     TemperaturePreset = "creative"
	PresetWild         TemperaturePreset = "wild"
)

// Value returns the sampling temperature for the preset. Unknown presets
// fall back to balanced.
func (p TemperaturePreset) Value() float64 {
	switch p {
	case PresetConservative:
		return 0.3
	case PresetBalanced:
		return 0.7
	case PresetCreative:
		return 0.9
	case PresetWild:
		return 1.2
	default:
		return 0.7
	}
}

// Valid reports whether the preset is one of the four known presets.
func (p TemperaturePreset) Valid() bool {
	switch p {
	case PresetConservative, PresetBalanced, PresetCreative, PresetWild:
		return true
	}
	return false
}

// ModelTier is the coarse quality/speed knob mapped to provider model IDs.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierBalanced ModelTier = "balanced"
	TierQuality  ModelTier = "quality"
)

// Valid reports whether the tier is known.
func (t ModelTier) Valid() bool {
	switch t {
	case TierFast, TierBalanced, TierQuality:
		return true
	}
	return false
}

// InferenceVariant selects a logical-inference analysis type.
type InferenceVariant string

const (
	InferenceFullChain     InferenceVariant = "full_chain"
	InferenceCausal        InferenceVariant = "causal"
	InferenceConstraint    InferenceVariant = "constraint"
	InferenceContradiction InferenceVariant = "contradiction"
	InferenceImplication   InferenceVariant = "implication"
)

// Valid reports whether the variant is known.
func (v InferenceVariant) Valid() bool {
	switch v {
	case InferenceFullChain, InferenceCausal, InferenceConstraint,
		InferenceContradiction, InferenceImplication:
		return true
	}
	return false
}

// Attachment is a multi-modal input: either a URL or a local file handle.
type Attachment struct {
	URL       string `json:"url,omitempty"`
	Path      string `json:"path,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// MaxTopicBytes bounds the request topic length.
const MaxTopicBytes = 4096

// Request is the immutable input to one workflow run.
type Request struct {
	Topic             string            `json:"topic"`
	Context           string            `json:"context,omitempty"`
	NumTopCandidates  int               `json:"num_top_candidates"`
	TemperaturePreset TemperaturePreset `json:"temperature_preset"`

	Enhanced         bool `json:"enhanced"`
	Logical          bool `json:"logical"`
	MultiDimensional bool `json:"multidimensional"`

	InferenceVariant InferenceVariant `json:"inference_variant,omitempty"`
	NoveltyThreshold float64          `json:"novelty_threshold,omitempty"`

	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate checks the request before any LLM call is made.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return fmt.Errorf("topic is required")
	}
	if len(r.Topic) > MaxTopicBytes {
		return fmt.Errorf("topic exceeds %d bytes", MaxTopicBytes)
	}
	if r.NumTopCandidates < 1 || r.NumTopCandidates > 5 {
		return fmt.Errorf("num_top_candidates must be in [1,5], got %d", r.NumTopCandidates)
	}
	if r.TemperaturePreset != "" && !r.TemperaturePreset.Valid() {
		return fmt.Errorf("unknown temperature preset %q", r.TemperaturePreset)
	}
	if r.Logical && r.InferenceVariant != "" && !r.InferenceVariant.Valid() {
		return fmt.Errorf("unknown inference variant %q", r.InferenceVariant)
	}
	if r.NoveltyThreshold < 0 || r.NoveltyThreshold > 1 {
		return fmt.Errorf("novelty_threshold must be in [0,1], got %g", r.NoveltyThreshold)
	}
	return nil
}

// Idea is one generated idea. Index is 0-based and unique within a batch.
type Idea struct {
	Index       int      `json:"index"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	KeyFeatures []string `json:"key_features"`
	Category    string   `json:"category"`
}

// Text renders the idea as the single string carried by a Candidate.
func (i Idea) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + ": " + i.Description
}

// Evaluation is the critic's verdict on one idea.
type Evaluation struct {
	IdeaIndex int     `json:"idea_index"`
	Score     float64 `json:"score"`
	Critique  string  `json:"critique"`
}

// DimensionScores holds the seven evaluation dimensions, each in [0,10].
// For risk_assessment higher means safer (lower risk), so the weighted mean
// needs no inversion.
type DimensionScores struct {
	Feasibility       float64 `json:"feasibility"`
	Innovation        float64 `json:"innovation"`
	Impact            float64 `json:"impact"`
	CostEffectiveness float64 `json:"cost_effectiveness"`
	Scalability       float64 `json:"scalability"`
	RiskAssessment    float64 `json:"risk_assessment"`
	Timeline          float64 `json:"timeline"`
}

// DimensionNames lists the dimensions in canonical order.
var DimensionNames = []string{
	"feasibility",
	"innovation",
	"impact",
	"cost_effectiveness",
	"scalability",
	"risk_assessment",
	"timeline",
}

// ByName returns the score for a canonical dimension name.
func (d DimensionScores) ByName(name string) float64 {
	switch name {
	case "feasibility":
		return d.Feasibility
	case "innovation":
		return d.Innovation
	case "impact":
		return d.Impact
	case "cost_effectiveness":
		return d.CostEffectiveness
	case "scalability":
		return d.Scalability
	case "risk_assessment":
		return d.RiskAssessment
	case "timeline":
		return d.Timeline
	}
	return 0
}

// Bullet is one titled point in an advocacy or skepticism record.
type Bullet struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Advocacy is the advocate's case for a candidate.
type Advocacy struct {
	Strengths         []Bullet `json:"strengths"`
	Opportunities     []Bullet `json:"opportunities"`
	AddressedConcerns []Bullet `json:"addressed_concerns"`
}

// Skepticism is the skeptic's case against a candidate.
type Skepticism struct {
	CriticalFlaws           []Bullet `json:"critical_flaws"`
	Risks                   []Bullet `json:"risks"`
	QuestionableAssumptions []Bullet `json:"questionable_assumptions"`
	MissingConsiderations   []Bullet `json:"missing_considerations"`
}

// ImprovedIdea is the improver's rewrite of a candidate.
type ImprovedIdea struct {
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	KeyImprovements     []string `json:"key_improvements"`
	ImplementationSteps []string `json:"implementation_steps"`
	Differentiators     []string `json:"differentiators"`
}

// Text renders the improved idea into the improved_text field.
func (i ImprovedIdea) Text() string {
	if i.Description == "" {
		return i.Title
	}
	return i.Title + ": " + i.Description
}

// InferenceResult is the outcome of one logical-inference analysis.
// On failure Confidence is 0 and Conclusion carries the error message.
type InferenceResult struct {
	Variant    InferenceVariant `json:"variant"`
	Conclusion string           `json:"conclusion"`
	Confidence float64          `json:"confidence"`
	Chain      []string         `json:"chain,omitempty"`

	CausalLinks    []string `json:"causal_links,omitempty"`
	Constraints    []string `json:"constraints,omitempty"`
	Contradictions []string `json:"contradictions,omitempty"`
	Implications   []string `json:"implications,omitempty"`
}

// Candidate is the unit the pipeline carries forward after selection.
// Optional fields are nil/empty when the corresponding stage was not
// requested; when present the stage succeeded or produced its documented
// fallback value.
type Candidate struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Critique string  `json:"critique"`
	Topic    string  `json:"topic"`
	Context  string  `json:"context,omitempty"`

	Advocacy   *Advocacy   `json:"advocacy,omitempty"`
	Skepticism *Skepticism `json:"skepticism,omitempty"`

	ImprovedText     string   `json:"improved_text,omitempty"`
	ImprovedScore    *float64 `json:"improved_score,omitempty"`
	ImprovedCritique string   `json:"improved_critique,omitempty"`

	DimensionScores         *DimensionScores `json:"dimension_scores,omitempty"`
	ImprovedDimensionScores *DimensionScores `json:"improved_dimension_scores,omitempty"`

	LogicalInference *InferenceResult `json:"logical_inference,omitempty"`
}

// Usage tracks token consumption and estimated cost for one or more calls.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
	u.CostUSD += other.CostUSD
}

// RouterMetrics are the running counters owned by one Router instance.
type RouterMetrics struct {
	APICalls       int64            `json:"api_calls"`
	FailedRequests int64            `json:"failed_requests"`
	CacheHits      int64            `json:"cache_hits"`
	TokensIn       int64            `json:"tokens_in"`
	TokensOut      int64            `json:"tokens_out"`
	CostEstimate   float64          `json:"cost_estimate"`
	ProviderCalls  map[string]int64 `json:"provider_calls,omitempty"`
	StageLatencyMS map[string]int64 `json:"per_stage_latency_ms,omitempty"`
}
