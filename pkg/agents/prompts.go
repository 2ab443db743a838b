// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package agents

import (
	"fmt"
	"strings"

	"github.com/madspark-labs/madspark/pkg/reasoning"
	"github.com/madspark-labs/madspark/pkg/types"
)

// Every prompt carries this so a non-English topic gets a non-English
// answer instead of defaulting to English.
const languageDirective = "Respond in the same natural language as the topic."

func contextBlock(context string) string {
	if strings.TrimSpace(context) == "" {
		return ""
	}
	return "\nAdditional context:\n" + context + "\n"
}

// GeneratorPrompt asks for n distinct ideas on a topic.
func GeneratorPrompt(topic, context string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d distinct, concrete ideas for the following topic.\n", n)
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	b.WriteString(contextBlock(context))
	b.WriteString("\nEach idea needs a short title, a one-paragraph description, and its key features.\n")
	b.WriteString("Number ideas with a 0-based `index`. Make the ideas meaningfully different from each other.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// CriticPrompt asks for one evaluation per idea text, in order. It is
// used both for the initial evaluation and for re-evaluating improved
// ideas, so the caller controls which texts go in.
func CriticPrompt(topic, context string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a rigorous critic. Evaluate each of the following %d ideas for the topic below.\n", len(texts))
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	b.WriteString(contextBlock(context))
	b.WriteString("\nIdeas:\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i, t)
	}
	b.WriteString("\nFor each idea return its `idea_index`, a `score` from 0 to 10, and a concise `critique`.\n")
	b.WriteString("Return one evaluation per idea, in the same order.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// AdvocatePrompt asks for the strongest possible case for a candidate.
func AdvocatePrompt(c *types.Candidate) string {
	var b strings.Builder
	b.WriteString("You are the advocate. Make the strongest honest case for this idea.\n")
	fmt.Fprintf(&b, "Topic: %s\n", c.Topic)
	b.WriteString(contextBlock(c.Context))
	fmt.Fprintf(&b, "\nIdea: %s\n", c.Text)
	fmt.Fprintf(&b, "Critic's assessment (score %.1f): %s\n", c.Score, c.Critique)
	b.WriteString("\nList its strengths, the opportunities it opens, and how the critic's concerns can be addressed.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// SkepticPrompt asks for the strongest possible case against a candidate.
func SkepticPrompt(c *types.Candidate) string {
	var b strings.Builder
	b.WriteString("You are the skeptic. Stress-test this idea and surface what could go wrong.\n")
	fmt.Fprintf(&b, "Topic: %s\n", c.Topic)
	b.WriteString(contextBlock(c.Context))
	fmt.Fprintf(&b, "\nIdea: %s\n", c.Text)
	fmt.Fprintf(&b, "Critic's assessment (score %.1f): %s\n", c.Score, c.Critique)
	b.WriteString("\nList its critical flaws, risks, questionable assumptions, and missing considerations.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// ImproverPrompt asks for a rewrite that keeps the idea's strengths and
// answers the accumulated criticism.
func ImproverPrompt(c *types.Candidate) string {
	var b strings.Builder
	b.WriteString("Rewrite this idea into a stronger version. Preserve what works; fix what does not.\n")
	fmt.Fprintf(&b, "Topic: %s\n", c.Topic)
	b.WriteString(contextBlock(c.Context))
	fmt.Fprintf(&b, "\nOriginal idea: %s\n", c.Text)
	fmt.Fprintf(&b, "Critic's assessment (score %.1f): %s\n", c.Score, c.Critique)
	if c.Advocacy != nil {
		b.WriteString("\nAdvocate's case:\n")
		writeBullets(&b, "Strengths", c.Advocacy.Strengths)
		writeBullets(&b, "Opportunities", c.Advocacy.Opportunities)
		writeBullets(&b, "Addressed concerns", c.Advocacy.AddressedConcerns)
	}
	if c.Skepticism != nil {
		b.WriteString("\nSkeptic's case:\n")
		writeBullets(&b, "Critical flaws", c.Skepticism.CriticalFlaws)
		writeBullets(&b, "Risks", c.Skepticism.Risks)
		writeBullets(&b, "Questionable assumptions", c.Skepticism.QuestionableAssumptions)
		writeBullets(&b, "Missing considerations", c.Skepticism.MissingConsiderations)
	}
	if c.LogicalInference != nil && c.LogicalInference.Confidence > 0 {
		fmt.Fprintf(&b, "\nLogical analysis (%s, confidence %.2f): %s\n",
			c.LogicalInference.Variant, c.LogicalInference.Confidence, c.LogicalInference.Conclusion)
	}
	b.WriteString("\nReturn the improved idea with its title, description, and the key improvements made.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// DimensionPrompt asks for seven-dimension scores for each idea text.
func DimensionPrompt(topic, context string, texts []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score each of the following %d ideas on seven dimensions.\n", len(texts))
	fmt.Fprintf(&b, "Topic: %s\n", topic)
	b.WriteString(contextBlock(context))
	b.WriteString("\nDimensions:\n")
	b.WriteString(reasoning.Rubric())
	b.WriteString("\nIdeas:\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i, t)
	}
	b.WriteString("\nReturn one score record per idea, in the same order.\n")
	b.WriteString(languageDirective)
	return b.String()
}

// InferencePrompt asks for one logical-inference analysis of a candidate.
func InferencePrompt(c *types.Candidate, v types.InferenceVariant) string {
	var b strings.Builder
	b.WriteString("Perform a formal logical analysis of this idea.\n")
	fmt.Fprintf(&b, "Topic: %s\n", c.Topic)
	b.WriteString(contextBlock(c.Context))
	fmt.Fprintf(&b, "\nIdea: %s\n", c.Text)
	b.WriteString("\n")
	b.WriteString(reasoning.VariantInstruction(v))
	b.WriteString("\nReturn your conclusion and a confidence between 0 and 1.\n")
	b.WriteString(languageDirective)
	return b.String()
}

func writeBullets(b *strings.Builder, heading string, bullets []types.Bullet) {
	if len(bullets) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", heading)
	for _, bl := range bullets {
		fmt.Fprintf(b, "- %s: %s\n", bl.Title, bl.Body)
	}
}
