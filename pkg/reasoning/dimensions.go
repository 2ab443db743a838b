// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package reasoning holds the multi-dimensional scoring model and the
// logical-inference variants used by the evaluator agents.
package reasoning

import (
	"fmt"
	"strings"

	"github.com/madspark-labs/madspark/pkg/types"
)

// DimensionWeights are the aggregation weights for the overall score.
// risk_assessment scores higher-is-safer, so no inversion is applied.
var DimensionWeights = map[string]float64{
	"feasibility":        1.2,
	"innovation":         1.0,
	"impact":             1.2,
	"cost_effectiveness": 1.0,
	"scalability":        0.9,
	"risk_assessment":    0.8,
	"timeline":           0.9,
}

// Overall returns the weighted mean of the seven dimensions, in [0,10].
func Overall(d types.DimensionScores) float64 {
	var sum, weight float64
	for _, name := range types.DimensionNames {
		w := DimensionWeights[name]
		sum += d.ByName(name) * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return sum / weight
}

// Rubric renders the dimension definitions for evaluator prompts.
func Rubric() string {
	var b strings.Builder
	descriptions := map[string]string{
		"feasibility":        "how realistic it is to build with current resources and technology",
		"innovation":         "how novel the approach is compared to existing solutions",
		"impact":             "the magnitude of the benefit if it succeeds",
		"cost_effectiveness": "expected value relative to the required investment",
		"scalability":        "how well it grows beyond the initial deployment",
		"risk_assessment":    "overall safety of the plan; higher means lower risk",
		"timeline":           "how quickly it can realistically be delivered",
	}
	for _, name := range types.DimensionNames {
		fmt.Fprintf(&b, "- %s: %s (0-10)\n", name, descriptions[name])
	}
	return b.String()
}
