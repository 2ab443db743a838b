// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package workflow drives the idea-refinement pipeline: generate,
// evaluate, select, then per-candidate advocacy, skepticism, logical
// inference, improvement, and re-evaluation. Stages run behind barriers;
// within a stage, per-candidate work fans out under a bounded semaphore.
package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/madspark-labs/madspark/pkg/agents"
	"github.com/madspark-labs/madspark/pkg/reasoning"
	"github.com/madspark-labs/madspark/pkg/router"
	"github.com/madspark-labs/madspark/pkg/types"
)

// Stage names, used for timeouts, latency metrics, and progress events.
const (
	StageGenerate   = "generate"
	StageEvaluate   = "evaluate"
	StageSelect     = "select"
	StageMultiDim   = "multidim"
	StageAdvocate   = "advocate"
	StageSkeptic    = "skeptic"
	StageLogical    = "logical"
	StageImprove    = "improve"
	StageReEvaluate = "reeval"
	StageAssemble   = "assemble"
)

// Timeouts is the central per-stage timeout table.
type Timeouts struct {
	Generate   time.Duration
	Evaluate   time.Duration
	Advocate   time.Duration
	Skeptic    time.Duration
	Improve    time.Duration
	ReEvaluate time.Duration
	MultiDim   time.Duration
	Logical    time.Duration
}

// DefaultTimeouts returns the documented stage timeouts.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Generate:   60 * time.Second,
		Evaluate:   60 * time.Second,
		Advocate:   90 * time.Second,
		Skeptic:    90 * time.Second,
		Improve:    120 * time.Second,
		ReEvaluate: 60 * time.Second,
		MultiDim:   120 * time.Second,
		Logical:    90 * time.Second,
	}
}

// DefaultMaxParallel bounds per-candidate fan-out within a stage.
const DefaultMaxParallel = 4

// WorkflowError reports a stage failure that terminated the run.
type WorkflowError struct {
	Stage string
	Err   error
}

func (e *WorkflowError) Error() string {
	return fmt.Sprintf("workflow stage %s failed: %v", e.Stage, e.Err)
}

func (e *WorkflowError) Unwrap() error { return e.Err }

// Config wires a Coordinator. Router is required; everything else has a
// usable default.
type Config struct {
	Router      *router.Router
	Logger      *zap.Logger
	Monitor     *Monitor
	Emitter     *Emitter
	Timeouts    Timeouts
	MaxParallel int
}

// Result is the assembled output of one run. Canceled results carry the
// candidates populated through their last completed stage.
type Result struct {
	Candidates  []types.Candidate   `json:"candidates"`
	Metrics     types.RouterMetrics `json:"metrics"`
	Telemetry   Telemetry           `json:"telemetry"`
	ParserStats map[string]int64    `json:"parser_stats,omitempty"`
	Canceled    bool                `json:"canceled,omitempty"`
}

// Coordinator runs the pipeline once per request. It holds no state
// between runs beyond its configuration.
type Coordinator struct {
	rt   *router.Router
	log  *zap.Logger
	mon  *Monitor
	emit *Emitter
	tmo  Timeouts
	par  int
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Monitor == nil {
		cfg.Monitor = NewMonitor()
	}
	if cfg.Timeouts == (Timeouts{}) {
		cfg.Timeouts = DefaultTimeouts()
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	return &Coordinator{
		rt:   cfg.Router,
		log:  cfg.Logger,
		mon:  cfg.Monitor,
		emit: cfg.Emitter,
		tmo:  cfg.Timeouts,
		par:  cfg.MaxParallel,
	}
}

// Run executes the full pipeline for one request.
func (c *Coordinator) Run(ctx context.Context, req types.Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	temp := req.TemperaturePreset.Value()
	threshold := req.NoveltyThreshold
	if threshold == 0 {
		threshold = DefaultNoveltyThreshold
	}

	// S0 Generate. The only stage whose failure aborts the run.
	numIdeas := 2 * req.NumTopCandidates
	if numIdeas < 10 {
		numIdeas = 10
	}
	var ideas []types.Idea
	err := c.stage(ctx, StageGenerate, c.tmo.Generate, 0.1, func(sctx context.Context) error {
		var gerr error
		ideas, gerr = agents.GenerateIdeas(sctx, c.rt, req.Topic, req.Context, numIdeas, temp)
		return gerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return c.partial(nil), nil
		}
		c.event(EventError, StageGenerate, 0.1, err.Error())
		return nil, &WorkflowError{Stage: StageGenerate, Err: err}
	}

	// S1 Evaluate. Total failure short-circuits to an empty result.
	texts := make([]string, len(ideas))
	for i, idea := range ideas {
		texts[i] = idea.Text()
	}
	var evals []types.Evaluation
	err = c.stage(ctx, StageEvaluate, c.tmo.Evaluate, 0.2, func(sctx context.Context) error {
		var eerr error
		evals, eerr = agents.EvaluateTexts(sctx, c.rt, req.Topic, req.Context, texts, temp)
		return eerr
	})
	if err != nil {
		if ctx.Err() != nil {
			return c.partial(nil), nil
		}
		c.mon.Warn("evaluation failed for all ideas: " + err.Error())
		c.log.Warn("evaluation stage failed, returning empty result", zap.Error(err))
		return c.assemble(nil, false), nil
	}

	// S2 Select: rank by score desc, ties by original index, then apply
	// the novelty filter with refill.
	candidates := c.selectCandidates(&req, ideas, evals, threshold)
	c.event(EventProgress, StageSelect, 0.3, fmt.Sprintf("selected %d candidates", len(candidates)))

	// S3 MultiDimInitial: one batched call over the selected texts.
	if req.MultiDimensional {
		if done := c.scoreDimensions(ctx, &req, candidates, temp, false); done != nil {
			return done, nil
		}
	}

	// S4 Advocate and S5 Skeptic: per-candidate fan-out, one barrier each.
	if req.Enhanced {
		if done := c.fanOut(ctx, StageAdvocate, c.tmo.Advocate, 0.45, candidates, func(sctx context.Context, cand *types.Candidate) {
			adv, aerr := agents.AdvocateFor(sctx, c.rt, cand, temp)
			if aerr != nil {
				c.mon.Warn("advocacy unavailable: " + aerr.Error())
				return
			}
			cand.Advocacy = adv
		}); done != nil {
			return done, nil
		}
		if done := c.fanOut(ctx, StageSkeptic, c.tmo.Skeptic, 0.55, candidates, func(sctx context.Context, cand *types.Candidate) {
			sk, serr := agents.ExamineSkeptically(sctx, c.rt, cand, temp)
			if serr != nil {
				c.mon.Warn("skepticism unavailable: " + serr.Error())
				return
			}
			cand.Skepticism = sk
		}); done != nil {
			return done, nil
		}
	}

	// S6 LogicalInference: per-candidate; failure degrades to a
	// confidence-0 result instead of an absent field.
	if req.Logical {
		variant := req.InferenceVariant
		if done := c.fanOut(ctx, StageLogical, c.tmo.Logical, 0.65, candidates, func(sctx context.Context, cand *types.Candidate) {
			res, ierr := agents.InferLogically(sctx, c.rt, cand, variant, temp)
			if ierr != nil {
				c.mon.Warn("logical inference degraded: " + ierr.Error())
				v := variant
				if v == "" {
					v = types.InferenceFullChain
				}
				cand.LogicalInference = reasoning.FailedInference(v, ierr)
				return
			}
			cand.LogicalInference = res
		}); done != nil {
			return done, nil
		}
	}

	// S7 Improve: per-candidate with the full accumulated payload.
	if done := c.fanOut(ctx, StageImprove, c.tmo.Improve, 0.75, candidates, func(sctx context.Context, cand *types.Candidate) {
		imp, ierr := agents.ImproveIdea(sctx, c.rt, cand, temp)
		if ierr != nil {
			c.mon.Warn("improvement unavailable: " + ierr.Error())
			return
		}
		cand.ImprovedText = imp.Text()
	}); done != nil {
		return done, nil
	}

	// S8 ReEvaluate: one batched critic call over the improved texts.
	// The improved text stands in for the original during the call; the
	// original is restored in the stored record.
	if done := c.reEvaluate(ctx, &req, candidates, temp); done != nil {
		return done, nil
	}

	// S9 MultiDimImproved: batched dimensions over improved texts. The
	// initial scores from S3 are never overwritten.
	if req.MultiDimensional {
		if done := c.scoreDimensions(ctx, &req, candidates, temp, true); done != nil {
			return done, nil
		}
	}

	res := c.assemble(candidates, false)
	c.event(EventDone, StageAssemble, 1.0, fmt.Sprintf("%d candidates", len(res.Candidates)))
	return res, nil
}

// selectCandidates implements S2.
func (c *Coordinator) selectCandidates(req *types.Request, ideas []types.Idea, evals []types.Evaluation, threshold float64) []*types.Candidate {
	order := make([]int, len(ideas))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if evals[order[a]].Score != evals[order[b]].Score {
			return evals[order[a]].Score > evals[order[b]].Score
		}
		return order[a] < order[b]
	})

	ranked := make([]string, len(order))
	for i, idx := range order {
		ranked[i] = ideas[idx].Text()
	}
	picked := selectNovel(ranked, req.NumTopCandidates, threshold)

	out := make([]*types.Candidate, 0, len(picked))
	for _, i := range picked {
		idx := order[i]
		out = append(out, &types.Candidate{
			Text:     ideas[idx].Text(),
			Score:    evals[idx].Score,
			Critique: evals[idx].Critique,
			Topic:    req.Topic,
			Context:  req.Context,
		})
	}
	return out
}

// scoreDimensions runs S3 or S9 as one batched call. Returns a non-nil
// partial result only on cancellation.
func (c *Coordinator) scoreDimensions(ctx context.Context, req *types.Request, candidates []*types.Candidate, temp float64, improved bool) *Result {
	targets := make([]*types.Candidate, 0, len(candidates))
	texts := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		text := cand.Text
		if improved {
			// Improved scores are only recorded alongside initial ones;
			// a candidate whose initial pass failed stays unscored on
			// both sides.
			if cand.ImprovedText == "" || cand.DimensionScores == nil {
				continue
			}
			text = cand.ImprovedText
		}
		targets = append(targets, cand)
		texts = append(texts, text)
	}
	if len(targets) == 0 {
		return nil
	}

	frac := 0.4
	if improved {
		frac = 0.95
	}
	err := c.stage(ctx, StageMultiDim, c.tmo.MultiDim, frac, func(sctx context.Context) error {
		dims, derr := agents.ScoreDimensions(sctx, c.rt, req.Topic, req.Context, texts, temp)
		if derr != nil {
			return derr
		}
		for i, d := range dims {
			if d == nil {
				c.mon.Warn("dimension scores unavailable for one candidate")
				continue
			}
			if improved {
				targets[i].ImprovedDimensionScores = d
			} else {
				targets[i].DimensionScores = d
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return c.partial(candidates)
		}
		c.mon.Warn("dimension scoring failed: " + err.Error())
		c.log.Warn("dimension stage degraded", zap.Bool("improved", improved), zap.Error(err))
	}
	return nil
}

// reEvaluate runs S8 as one batched call over candidates that were
// improved. improved_score and improved_critique are set together or not
// at all.
func (c *Coordinator) reEvaluate(ctx context.Context, req *types.Request, candidates []*types.Candidate, temp float64) *Result {
	targets := make([]*types.Candidate, 0, len(candidates))
	texts := make([]string, 0, len(candidates))
	for _, cand := range candidates {
		if cand.ImprovedText == "" {
			continue
		}
		targets = append(targets, cand)
		texts = append(texts, cand.ImprovedText)
	}
	if len(targets) == 0 {
		return nil
	}

	err := c.stage(ctx, StageReEvaluate, c.tmo.ReEvaluate, 0.85, func(sctx context.Context) error {
		evals, eerr := agents.EvaluateTexts(sctx, c.rt, req.Topic, req.Context, texts, temp)
		if eerr != nil {
			return eerr
		}
		for i, ev := range evals {
			if ev.Critique == "evaluation unavailable" && ev.Score == 0 {
				c.mon.Warn("re-evaluation unavailable for one candidate")
				continue
			}
			score := ev.Score
			targets[i].ImprovedScore = &score
			targets[i].ImprovedCritique = ev.Critique
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return c.partial(candidates)
		}
		c.mon.Warn("re-evaluation failed: " + err.Error())
		c.log.Warn("re-evaluation stage degraded", zap.Error(err))
	}
	return nil
}

// fanOut runs fn once per candidate under the parallelism bound and a
// stage timeout. Per-candidate failures are absorbed by fn; the only
// error out of here is cancellation, returned as a partial result.
func (c *Coordinator) fanOut(ctx context.Context, name string, timeout time.Duration, frac float64, candidates []*types.Candidate, fn func(context.Context, *types.Candidate)) *Result {
	_ = c.stage(ctx, name, timeout, frac, func(sctx context.Context) error {
		g, gctx := errgroup.WithContext(sctx)
		g.SetLimit(c.par)
		for _, cand := range candidates {
			cand := cand
			g.Go(func() error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				fn(gctx, cand)
				return nil
			})
		}
		return g.Wait()
	})
	// Per-candidate failures are absorbed above, so cancellation is
	// checked on the request context itself.
	if ctx.Err() != nil {
		return c.partial(candidates)
	}
	return nil
}

// stage wraps one stage: timeout, latency bookkeeping, token
// accounting deltas, and a progress event.
func (c *Coordinator) stage(ctx context.Context, name string, timeout time.Duration, frac float64, fn func(context.Context) error) error {
	c.event(EventProgress, name, frac, "")
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	before := c.rt.MetricsSnapshot()
	start := time.Now()
	err := fn(sctx)
	elapsed := time.Since(start)

	c.mon.RecordStage(name, elapsed)
	c.rt.RecordStageLatency(name, elapsed)
	after := c.rt.MetricsSnapshot()
	c.mon.AddUsage(types.Usage{
		InputTokens:  int(after.TokensIn - before.TokensIn),
		OutputTokens: int(after.TokensOut - before.TokensOut),
		TotalTokens:  int(after.TokensIn - before.TokensIn + after.TokensOut - before.TokensOut),
		CostUSD:      after.CostEstimate - before.CostEstimate,
	})
	return err
}

// partial assembles a canceled result from whatever completed.
func (c *Coordinator) partial(candidates []*types.Candidate) *Result {
	c.event(EventError, StageAssemble, 1.0, "canceled")
	return c.assemble(candidates, true)
}

func (c *Coordinator) assemble(candidates []*types.Candidate, canceled bool) *Result {
	out := make([]types.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		out = append(out, *cand)
	}
	metrics := c.rt.MetricsSnapshot()
	tel := c.mon.Snapshot()
	if tel.Usage.TotalTokens == 0 && metrics.APICalls > 0 {
		// Provider returned no usage metadata; estimate a floor from the
		// texts that flowed through.
		for _, cand := range out {
			c.mon.EstimateUsage(cand.Topic, cand.Text)
		}
		tel = c.mon.Snapshot()
	}
	return &Result{
		Candidates:  out,
		Metrics:     metrics,
		Telemetry:   tel,
		ParserStats: c.rt.Parser().Stats(),
		Canceled:    canceled,
	}
}

func (c *Coordinator) event(t EventType, stage string, progress float64, msg string) {
	if c.emit == nil {
		return
	}
	c.emit.Emit(Event{Type: t, Stage: stage, Progress: progress, Message: msg})
}
