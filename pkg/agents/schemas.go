// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agents

import "github.com/madspark-labs/madspark/pkg/schema"

// Schema versions participate in cache keys, so bumping a version here
// invalidates cached responses for that agent automatically.

var bulletSchema = &schema.Schema{
	Type: "object",
	Properties: map[string]*schema.Schema{
		"title": {Type: "string"},
		"body":  {Type: "string"},
	},
	Required: []string{"title", "body"},
}

// IdeaSchema describes one generated idea.
var IdeaSchema = &schema.Schema{
	Name:    "idea",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"index":        {Type: "integer", Minimum: schema.F64(0)},
		"title":        {Type: "string"},
		"description":  {Type: "string"},
		"key_features": {Type: "array", Items: &schema.Schema{Type: "string"}},
		"category":     {Type: "string"},
	},
	Required: []string{"index", "title", "description"},
}

// EvaluationSchema describes one critic verdict.
var EvaluationSchema = &schema.Schema{
	Name:    "evaluation",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"idea_index": {Type: "integer", Minimum: schema.F64(0)},
		"score":      {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"critique":   {Type: "string"},
	},
	Required: []string{"score", "critique"},
}

// AdvocacySchema describes the advocate's bullet-list record.
var AdvocacySchema = &schema.Schema{
	Name:    "advocacy",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"strengths":          {Type: "array", Items: bulletSchema},
		"opportunities":      {Type: "array", Items: bulletSchema},
		"addressed_concerns": {Type: "array", Items: bulletSchema},
	},
	Required: []string{"strengths", "opportunities", "addressed_concerns"},
}

// SkepticismSchema describes the skeptic's bullet-list record.
var SkepticismSchema = &schema.Schema{
	Name:    "skepticism",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"critical_flaws":           {Type: "array", Items: bulletSchema},
		"risks":                    {Type: "array", Items: bulletSchema},
		"questionable_assumptions": {Type: "array", Items: bulletSchema},
		"missing_considerations":   {Type: "array", Items: bulletSchema},
	},
	Required: []string{"critical_flaws", "risks", "questionable_assumptions", "missing_considerations"},
}

// ImprovedIdeaSchema describes the improver's rewrite.
var ImprovedIdeaSchema = &schema.Schema{
	Name:    "improved_idea",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"title":                {Type: "string"},
		"description":          {Type: "string"},
		"key_improvements":     {Type: "array", Items: &schema.Schema{Type: "string"}},
		"implementation_steps": {Type: "array", Items: &schema.Schema{Type: "string"}},
		"differentiators":      {Type: "array", Items: &schema.Schema{Type: "string"}},
	},
	Required: []string{"title", "description", "key_improvements"},
}

// DimensionSchema describes one seven-dimension score record.
var DimensionSchema = &schema.Schema{
	Name:    "dimension_scores",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"feasibility":        {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"innovation":         {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"impact":             {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"cost_effectiveness": {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"scalability":        {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"risk_assessment":    {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
		"timeline":           {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(10)},
	},
	Required: []string{
		"feasibility", "innovation", "impact", "cost_effectiveness",
		"scalability", "risk_assessment", "timeline",
	},
}

// InferenceSchema describes a logical-inference result.
var InferenceSchema = &schema.Schema{
	Name:    "logical_inference",
	Version: "v1",
	Type:    "object",
	Properties: map[string]*schema.Schema{
		"conclusion":     {Type: "string"},
		"confidence":     {Type: "number", Minimum: schema.F64(0), Maximum: schema.F64(1)},
		"chain":          {Type: "array", Items: &schema.Schema{Type: "string"}},
		"causal_links":   {Type: "array", Items: &schema.Schema{Type: "string"}},
		"constraints":    {Type: "array", Items: &schema.Schema{Type: "string"}},
		"contradictions": {Type: "array", Items: &schema.Schema{Type: "string"}},
		"implications":   {Type: "array", Items: &schema.Schema{Type: "string"}},
	},
	Required: []string{"conclusion", "confidence"},
}
