// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package reasoning

import "github.com/madspark-labs/madspark/pkg/types"

// VariantInstruction returns the analysis directions for one
// logical-inference variant.
func VariantInstruction(v types.InferenceVariant) string {
	switch v {
	case types.InferenceFullChain:
		return "Build the complete reasoning chain from premises to conclusion. Populate `chain` with every step in order."
	case types.InferenceCausal:
		return "Trace cause-and-effect relationships. Populate `causal_links` with each cause->effect pair and `chain` with the supporting steps."
	case types.InferenceConstraint:
		return "Identify the binding constraints and whether the idea satisfies them. Populate `constraints` with each constraint and its status."
	case types.InferenceContradiction:
		return "Search for internal contradictions between the idea's claims and assumptions. Populate `contradictions` with each conflict found, or leave it empty."
	case types.InferenceImplication:
		return "Derive the non-obvious implications if the idea succeeds. Populate `implications` with each consequence."
	default:
		return VariantInstruction(types.InferenceFullChain)
	}
}

// FailedInference builds the documented fallback result: confidence 0
// and the error message as the conclusion.
func FailedInference(v types.InferenceVariant, err error) *types.InferenceResult {
	return &types.InferenceResult{
		Variant:    v,
		Conclusion: err.Error(),
		Confidence: 0,
	}
}
