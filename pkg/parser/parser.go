// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package parser converts raw LLM text into schema-validated records.
// Strategies are attempted in a fixed order; the first success wins and
// every attempt is recorded in a per-strategy telemetry counter.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/madspark-labs/madspark/pkg/schema"
)

// Strategy names, in attempt order.
const (
	StrategyDirect       = "direct"
	StrategyArrayExtract = "array_extraction"
	StrategyLineByLine   = "line_by_line"
	StrategyObjectScan   = "object_scan"
	StrategyScoreComment = "score_comment"
)

var strategyOrder = []string{
	StrategyDirect,
	StrategyArrayExtract,
	StrategyLineByLine,
	StrategyObjectScan,
	StrategyScoreComment,
}

// ParseError reports that every strategy was exhausted.
type ParseError struct {
	Kind      string // "object" or "list"
	Attempted []string
	LastErr   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed for %s after strategies %v: %v", e.Kind, e.Attempted, e.LastErr)
}

func (e *ParseError) Unwrap() error { return e.LastErr }

// Parser decodes LLM responses. It is immutable after construction; all
// patterns are compiled once and it is safe for concurrent use.
type Parser struct {
	logger *zap.Logger

	scoreRe   *regexp.Regexp
	commentRe *regexp.Regexp

	counters map[string]*atomic.Int64
	warnings atomic.Int64
}

// New creates a Parser. logger may be nil.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	counters := make(map[string]*atomic.Int64, len(strategyOrder)+1)
	for _, s := range strategyOrder {
		counters[s] = &atomic.Int64{}
	}
	counters["exhausted"] = &atomic.Int64{}
	return &Parser{
		logger:    logger,
		scoreRe:   regexp.MustCompile(`(?im)"?score"?\s*[:=]\s*"?(-?\d+(?:\.\d+)?)"?`),
		commentRe: regexp.MustCompile(`(?im)"?(?:comment|critique)"?\s*[:=]\s*"?([^"\n]+)"?`),
		counters:  counters,
	}
}

// Stats returns a snapshot of the per-strategy success counters plus the
// "exhausted" counter, and the normalization warning count under
// "normalize_warnings".
func (p *Parser) Stats() map[string]int64 {
	out := make(map[string]int64, len(p.counters)+1)
	for name, c := range p.counters {
		out[name] = c.Load()
	}
	out["normalize_warnings"] = p.warnings.Load()
	return out
}

// Warnings returns the number of normalization repairs (clamps, rescales,
// truncations) applied so far.
func (p *Parser) Warnings() int64 { return p.warnings.Load() }

// Parse decodes a single record matching an object schema.
func (p *Parser) Parse(raw string, s *schema.Schema) (map[string]any, error) {
	cleaned := stripFences(raw)
	var lastErr error
	attempted := make([]string, 0, len(strategyOrder))

	for _, strategy := range strategyOrder {
		attempted = append(attempted, strategy)
		rec, err := p.tryObject(strategy, cleaned, s)
		if err != nil {
			lastErr = err
			continue
		}
		p.counters[strategy].Add(1)
		return rec, nil
	}

	p.counters["exhausted"].Add(1)
	return nil, &ParseError{Kind: "object", Attempted: attempted, LastErr: lastErr}
}

// ParseList decodes a list of records matching an item schema. Items that
// decode but fail validation become sentinel records; the list fails only
// when no strategy yields any item at all.
func (p *Parser) ParseList(raw string, item *schema.Schema) ([]map[string]any, error) {
	cleaned := stripFences(raw)
	var lastErr error
	attempted := make([]string, 0, len(strategyOrder))

	for _, strategy := range strategyOrder {
		attempted = append(attempted, strategy)
		items, err := p.tryList(strategy, cleaned, item)
		if err != nil {
			lastErr = err
			continue
		}
		p.counters[strategy].Add(1)
		return items, nil
	}

	p.counters["exhausted"].Add(1)
	return nil, &ParseError{Kind: "list", Attempted: attempted, LastErr: lastErr}
}

// ParseBatch decodes a list and guarantees exactly expected records,
// padding with sentinels on shortfall and truncating on overflow. A total
// parse failure yields a full batch of sentinels carrying the raw text.
func (p *Parser) ParseBatch(raw string, item *schema.Schema, expected int) []map[string]any {
	items, err := p.ParseList(raw, item)
	if err != nil {
		p.logger.Warn("batch parse failed, padding with sentinels",
			zap.String("schema", item.Identifier()),
			zap.Int("expected", expected),
			zap.Error(err))
		items = nil
	}
	if len(items) > expected {
		items = items[:expected]
	}
	for len(items) < expected {
		items = append(items, Sentinel(snippet(raw)))
	}
	return items
}

// Sentinel builds the documented placeholder record for a failed item.
func Sentinel(partial string) map[string]any {
	return map[string]any{
		"error":        "parse_failure",
		"partial_text": partial,
	}
}

// IsSentinel reports whether a record is a parse-failure placeholder.
func IsSentinel(rec map[string]any) bool {
	_, ok := rec["error"]
	_, ok2 := rec["partial_text"]
	return ok && ok2
}

func (p *Parser) tryObject(strategy, raw string, s *schema.Schema) (map[string]any, error) {
	switch strategy {
	case StrategyDirect:
		return p.finishObject(raw, s)
	case StrategyArrayExtract:
		// An object schema can still arrive wrapped in a one-element array.
		body, ok := extractBalanced(raw, '[', ']')
		if !ok {
			return nil, fmt.Errorf("no balanced array found")
		}
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(body), &arr); err != nil {
			return nil, err
		}
		if len(arr) == 0 {
			return nil, fmt.Errorf("empty array")
		}
		return p.finishObject(string(arr[0]), s)
	case StrategyLineByLine:
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if rec, err := p.finishObject(line, s); err == nil {
				return rec, nil
			}
		}
		return nil, fmt.Errorf("no line decoded as %s", s.Identifier())
	case StrategyObjectScan:
		for _, body := range scanObjects(raw) {
			if rec, err := p.finishObject(body, s); err == nil {
				return rec, nil
			}
		}
		return nil, fmt.Errorf("no balanced object matched %s", s.Identifier())
	case StrategyScoreComment:
		recs := p.scoreCommentRecords(raw, s)
		if len(recs) == 0 {
			return nil, fmt.Errorf("no score/comment patterns found")
		}
		return recs[0], nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

func (p *Parser) tryList(strategy, raw string, item *schema.Schema) ([]map[string]any, error) {
	switch strategy {
	case StrategyDirect:
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &arr); err != nil {
			return nil, err
		}
		return p.finishList(arr, raw, item)
	case StrategyArrayExtract:
		body, ok := extractBalanced(raw, '[', ']')
		if !ok {
			return nil, fmt.Errorf("no balanced array found")
		}
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(body), &arr); err != nil {
			return nil, err
		}
		return p.finishList(arr, raw, item)
	case StrategyLineByLine:
		var out []map[string]any
		for _, line := range strings.Split(raw, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || !strings.HasPrefix(line, "{") {
				continue
			}
			rec, err := p.finishObject(line, item)
			if err != nil {
				out = append(out, Sentinel(snippet(line)))
				continue
			}
			out = append(out, rec)
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no lines decoded as %s", item.Identifier())
		}
		return out, nil
	case StrategyObjectScan:
		bodies := scanObjects(raw)
		if len(bodies) == 0 {
			return nil, fmt.Errorf("no balanced objects found")
		}
		var out []map[string]any
		ok := false
		for _, body := range bodies {
			rec, err := p.finishObject(body, item)
			if err != nil {
				out = append(out, Sentinel(snippet(body)))
				continue
			}
			ok = true
			out = append(out, rec)
		}
		if !ok {
			return nil, fmt.Errorf("no balanced object matched %s", item.Identifier())
		}
		return out, nil
	case StrategyScoreComment:
		recs := p.scoreCommentRecords(raw, item)
		if len(recs) == 0 {
			return nil, fmt.Errorf("no score/comment patterns found")
		}
		return recs, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", strategy)
}

// finishObject decodes, normalizes, and validates one record.
func (p *Parser) finishObject(body string, s *schema.Schema) (map[string]any, error) {
	var rec map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &rec); err != nil {
		return nil, err
	}
	if n := schema.Normalize(rec, s); n.Total() > 0 {
		p.warnings.Add(int64(n.Total()))
		p.logger.Warn("normalized out-of-range fields",
			zap.String("schema", s.Identifier()),
			zap.Int("clamped", n.Clamped),
			zap.Int("rescaled", n.Rescaled),
			zap.Int("truncated", n.Truncated))
	}
	if err := schema.Validate(rec, s); err != nil {
		return nil, err
	}
	return rec, nil
}

// finishList validates each raw item independently; invalid items become
// sentinels so the batch continues.
func (p *Parser) finishList(arr []json.RawMessage, raw string, item *schema.Schema) ([]map[string]any, error) {
	if len(arr) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	out := make([]map[string]any, 0, len(arr))
	ok := false
	for _, itemRaw := range arr {
		rec, err := p.finishObject(string(itemRaw), item)
		if err != nil {
			out = append(out, Sentinel(snippet(string(itemRaw))))
			continue
		}
		ok = true
		out = append(out, rec)
	}
	if !ok {
		return nil, fmt.Errorf("no list item matched %s", item.Identifier())
	}
	return out, nil
}

// scoreCommentRecords is the domain-specific last resort for degraded
// critic responses shaped like "score: 7.5" / "comment: too vague".
func (p *Parser) scoreCommentRecords(raw string, s *schema.Schema) []map[string]any {
	scores := p.scoreRe.FindAllStringSubmatch(raw, -1)
	comments := p.commentRe.FindAllStringSubmatch(raw, -1)
	if len(scores) == 0 {
		return nil
	}

	critiqueField := "comment"
	if _, ok := s.Properties["critique"]; ok {
		critiqueField = "critique"
	}

	out := make([]map[string]any, 0, len(scores))
	for i, m := range scores {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		rec := map[string]any{"score": f}
		if i < len(comments) {
			rec[critiqueField] = strings.TrimSpace(comments[i][1])
		} else {
			rec[critiqueField] = ""
		}
		if _, ok := s.Properties["idea_index"]; ok {
			rec["idea_index"] = float64(i)
		}
		if n := schema.Normalize(rec, s); n.Total() > 0 {
			p.warnings.Add(int64(n.Total()))
		}
		if err := schema.Validate(rec, s); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out
}

const snippetLen = 200

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= snippetLen {
		return s
	}
	return s[:snippetLen]
}
