// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package schema

import (
	"encoding/json"
	"unicode/utf8"
)

// MaxStringRunes bounds any single string field; longer values are
// truncated with an ellipsis.
const MaxStringRunes = 2000

// NormalizeResult counts the repairs applied to a record. Each non-zero
// counter corresponds to a warning the caller should record.
type NormalizeResult struct {
	Clamped   int
	Rescaled  int
	Truncated int
}

// Total returns the number of warnings the normalization produced.
func (n NormalizeResult) Total() int { return n.Clamped + n.Rescaled + n.Truncated }

func (n *NormalizeResult) add(other NormalizeResult) {
	n.Clamped += other.Clamped
	n.Rescaled += other.Rescaled
	n.Truncated += other.Truncated
}

// Normalize repairs a decoded record in place against the schema:
// numeric fields outside [min,max] are clamped; scores returned on a
// 0-100 scale (value > 10 against a max of 10) are divided by 10 first;
// confidence-style fields (max 1) above 1 are treated as percentages;
// over-long strings are truncated with an ellipsis. Returns counters for
// every repair so callers can surface warnings.
func Normalize(record any, s *Schema) NormalizeResult {
	var res NormalizeResult
	switch v := record.(type) {
	case map[string]any:
		if s.Type != "object" {
			return res
		}
		for name, prop := range s.Properties {
			raw, ok := v[name]
			if !ok {
				continue
			}
			switch prop.Type {
			case "number", "integer":
				if f, ok := toFloat(raw); ok {
					nf, r := normalizeNumber(f, prop)
					res.add(r)
					v[name] = nf
				}
			case "string":
				if str, ok := raw.(string); ok {
					if utf8.RuneCountInString(str) > MaxStringRunes {
						v[name] = truncate(str, MaxStringRunes)
						res.Truncated++
					}
				}
			default:
				res.add(Normalize(raw, prop))
			}
		}
	case []any:
		if s.Type != "array" || s.Items == nil {
			return res
		}
		for i, item := range v {
			switch s.Items.Type {
			case "number", "integer":
				if f, ok := toFloat(item); ok {
					nf, r := normalizeNumber(f, s.Items)
					res.add(r)
					v[i] = nf
				}
			case "string":
				if str, ok := item.(string); ok && utf8.RuneCountInString(str) > MaxStringRunes {
					v[i] = truncate(str, MaxStringRunes)
					res.Truncated++
				}
			default:
				res.add(Normalize(item, s.Items))
			}
		}
	}
	return res
}

func normalizeNumber(f float64, s *Schema) (float64, NormalizeResult) {
	var res NormalizeResult
	// Scale repair before clamping: 0-100 scores against a 0-10 schema,
	// percentage confidences against a 0-1 schema.
	if s.Maximum != nil {
		switch *s.Maximum {
		case 10:
			if f > 10 {
				f /= 10
				res.Rescaled++
			}
		case 1:
			if f > 1 {
				f /= 100
				res.Rescaled++
			}
		}
	}
	if s.Minimum != nil && f < *s.Minimum {
		f = *s.Minimum
		res.Clamped++
	}
	if s.Maximum != nil && f > *s.Maximum {
		f = *s.Maximum
		res.Clamped++
	}
	return f, res
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
