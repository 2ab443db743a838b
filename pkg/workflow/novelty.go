// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package workflow

import "strings"

// DefaultNoveltyThreshold is the Jaccard similarity above which two idea
// texts are treated as near-duplicates.
const DefaultNoveltyThreshold = 0.8

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.Fields(strings.ToLower(s)) {
		f = strings.Trim(f, ".,;:!?\"'()[]{}")
		if f != "" {
			out[f] = struct{}{}
		}
	}
	return out
}

// jaccard returns the token-set Jaccard similarity of two texts in [0,1].
// Two empty texts are identical by convention.
func jaccard(a, b string) float64 {
	sa, sb := tokenSet(a), tokenSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	inter := 0
	for t := range sa {
		if _, ok := sb[t]; ok {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// selectNovel picks up to n indices from ranked (best first), skipping
// entries too similar to an already-picked one. If the skip pass leaves
// fewer than n, the skipped entries refill the shortfall in rank order so
// the caller always gets min(n, len(ranked)) picks.
func selectNovel(ranked []string, n int, threshold float64) []int {
	if threshold <= 0 {
		threshold = DefaultNoveltyThreshold
	}
	picked := make([]int, 0, n)
	skipped := make([]int, 0, len(ranked))

	for i := range ranked {
		if len(picked) >= n {
			break
		}
		dup := false
		for _, j := range picked {
			if jaccard(ranked[i], ranked[j]) >= threshold {
				dup = true
				break
			}
		}
		if dup {
			skipped = append(skipped, i)
			continue
		}
		picked = append(picked, i)
	}

	for _, i := range skipped {
		if len(picked) >= n {
			break
		}
		picked = append(picked, i)
	}
	return picked
}
