// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package mock

import (
	"fmt"
	"strings"
)

// Canned payloads. Kept as raw JSON so the full router → parser →
// validator path is exercised exactly as with a live provider.

var cannedIdeas = func() string {
	items := make([]string, 10)
	for i := 0; i < 10; i++ {
		items[i] = fmt.Sprintf(`{"index":%d,"title":"Idea %d","description":"A concrete approach, variant %d.","key_features":["feature a","feature b"],"category":"general"}`, i, i+1, i+1)
	}
	return "[" + strings.Join(items, ",") + "]"
}()

var cannedEvaluations = func() string {
	items := make([]string, 10)
	for i := 0; i < 10; i++ {
		items[i] = fmt.Sprintf(`{"idea_index":%d,"score":8.0,"critique":"feasible"}`, i)
	}
	return "[" + strings.Join(items, ",") + "]"
}()

var cannedReEvaluations = func() string {
	items := make([]string, 10)
	for i := 0; i < 10; i++ {
		items[i] = fmt.Sprintf(`{"idea_index":%d,"score":9.0,"critique":"stronger after revision"}`, i)
	}
	return "[" + strings.Join(items, ",") + "]"
}()

var cannedDimensions = func() string {
	item := `{"feasibility":8.0,"innovation":7.0,"impact":8.5,"cost_effectiveness":7.5,"scalability":8.0,"risk_assessment":7.0,"timeline":6.5}`
	items := make([]string, 10)
	for i := range items {
		items[i] = item
	}
	return "[" + strings.Join(items, ",") + "]"
}()

const cannedAdvocacy = `{
  "strengths": [{"title": "Clear value", "body": "Addresses a concrete need with a direct mechanism."}],
  "opportunities": [{"title": "Adjacent markets", "body": "The same approach transfers to related settings."}],
  "addressed_concerns": [{"title": "Cost", "body": "Initial outlay is small and scales with adoption."}]
}`

const cannedSkepticism = `{
  "critical_flaws": [{"title": "Adoption risk", "body": "Assumes users change habits quickly."}],
  "risks": [{"title": "Operating cost", "body": "Maintenance burden may grow faster than revenue."}],
  "questionable_assumptions": [{"title": "Demand", "body": "Market size estimate is unvalidated."}],
  "missing_considerations": [{"title": "Regulation", "body": "Local rules may constrain deployment."}]
}`

const cannedImprovedIdea = `{
  "title": "Refined approach",
  "description": "The original concept tightened around its strongest use case, with the main objections addressed.",
  "key_improvements": ["narrowed scope", "phased rollout"],
  "implementation_steps": ["pilot with a small cohort", "measure and expand"],
  "differentiators": ["lower entry cost than alternatives"]
}`

const cannedInference = `{
  "conclusion": "The idea holds under the stated conditions.",
  "confidence": 0.85,
  "chain": ["premise: the need exists", "mechanism addresses the need", "therefore adoption is plausible"],
  "causal_links": ["need -> mechanism -> adoption"],
  "constraints": ["requires local buy-in"],
  "contradictions": [],
  "implications": ["scale depends on early results"]
}`
