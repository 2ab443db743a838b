// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/madspark-labs/madspark/pkg/reasoning"
	"github.com/madspark-labs/madspark/pkg/types"
	"github.com/madspark-labs/madspark/pkg/workflow"
)

func renderResult(w io.Writer, result *workflow.Result, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	renderText(w, result)
	return nil
}

func renderText(w io.Writer, result *workflow.Result) {
	if result.Canceled {
		fmt.Fprintln(w, "Run canceled; showing partial results.")
	}
	if len(result.Candidates) == 0 {
		fmt.Fprintln(w, "No candidates produced.")
	}

	for i, c := range result.Candidates {
		fmt.Fprintf(w, "=== Candidate %d (score %.1f) ===\n", i+1, c.Score)
		fmt.Fprintf(w, "%s\n", c.Text)
		fmt.Fprintf(w, "Critique: %s\n", c.Critique)
		if c.DimensionScores != nil {
			renderDimensions(w, "Dimensions", c.DimensionScores)
		}
		if c.Advocacy != nil {
			fmt.Fprintln(w, "Advocacy:")
			renderBullets(w, "strength", c.Advocacy.Strengths)
			renderBullets(w, "opportunity", c.Advocacy.Opportunities)
			renderBullets(w, "addressed", c.Advocacy.AddressedConcerns)
		}
		if c.Skepticism != nil {
			fmt.Fprintln(w, "Skepticism:")
			renderBullets(w, "flaw", c.Skepticism.CriticalFlaws)
			renderBullets(w, "risk", c.Skepticism.Risks)
			renderBullets(w, "assumption", c.Skepticism.QuestionableAssumptions)
			renderBullets(w, "missing", c.Skepticism.MissingConsiderations)
		}
		if c.LogicalInference != nil {
			fmt.Fprintf(w, "Logical inference (%s, confidence %.2f): %s\n",
				c.LogicalInference.Variant, c.LogicalInference.Confidence, c.LogicalInference.Conclusion)
		}
		if c.ImprovedText != "" {
			fmt.Fprintf(w, "--- Improved ---\n%s\n", c.ImprovedText)
			if c.ImprovedScore != nil {
				fmt.Fprintf(w, "Re-evaluated score: %.1f (%s)\n", *c.ImprovedScore, c.ImprovedCritique)
			}
			if c.ImprovedDimensionScores != nil {
				renderDimensions(w, "Improved dimensions", c.ImprovedDimensionScores)
			}
		}
		fmt.Fprintln(w)
	}

	m := result.Metrics
	fmt.Fprintf(w, "API calls: %d  failed: %d  cache hits: %d  tokens: %d in / %d out  est. cost: $%.4f\n",
		m.APICalls, m.FailedRequests, m.CacheHits, m.TokensIn, m.TokensOut, m.CostEstimate)
	for _, warning := range result.Telemetry.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

func renderDimensions(w io.Writer, label string, d *types.DimensionScores) {
	fmt.Fprintf(w, "%s (overall %.1f):", label, reasoning.Overall(*d))
	for _, name := range types.DimensionNames {
		fmt.Fprintf(w, " %s=%.1f", name, d.ByName(name))
	}
	fmt.Fprintln(w)
}

func renderBullets(w io.Writer, kind string, bullets []types.Bullet) {
	for _, b := range bullets {
		fmt.Fprintf(w, "  [%s] %s: %s\n", kind, b.Title, b.Body)
	}
}
