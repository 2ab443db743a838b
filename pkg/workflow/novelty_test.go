// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccard(t *testing.T) {
	assert.Equal(t, 1.0, jaccard("solar rooftop garden", "solar rooftop garden"))
	assert.Equal(t, 0.0, jaccard("solar rooftop garden", "basement mushroom farm"))
	assert.Equal(t, 1.0, jaccard("", ""))

	// Case and edge punctuation are ignored.
	assert.Equal(t, 1.0, jaccard("Solar rooftop, garden!", "solar rooftop garden"))

	// One word in four differs.
	sim := jaccard("a b c d", "a b c e")
	assert.InDelta(t, 0.6, sim, 1e-9)
}

func TestSelectNovelSkipsNearDuplicates(t *testing.T) {
	ranked := []string{
		"solar rooftop garden with modular planters",
		"solar rooftop garden with modular planters too",
		"basement mushroom farm with climate control",
	}
	picked := selectNovel(ranked, 2, 0.8)
	assert.Equal(t, []int{0, 2}, picked)
}

func TestSelectNovelRefillsFromSkipped(t *testing.T) {
	ranked := []string{
		"solar rooftop garden with modular planters",
		"solar rooftop garden with modular planters too",
		"solar rooftop garden with modular planters three",
	}
	// Everything is one cluster; refill keeps the requested count.
	picked := selectNovel(ranked, 2, 0.8)
	assert.Equal(t, []int{0, 1}, picked)
}

func TestSelectNovelFewerThanRequested(t *testing.T) {
	picked := selectNovel([]string{"only one idea"}, 3, 0.8)
	assert.Equal(t, []int{0}, picked)
}

func TestSelectNovelZeroThresholdUsesDefault(t *testing.T) {
	ranked := []string{"alpha beta gamma", "alpha beta gamma", "delta epsilon zeta"}
	picked := selectNovel(ranked, 2, 0)
	assert.Equal(t, []int{0, 2}, picked)
}
