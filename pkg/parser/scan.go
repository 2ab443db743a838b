// Copyright © 2026 MadSpark Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package parser

import "strings"

// stripFences removes markdown code fences and the "json" language marker
// that local models habitually wrap responses in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasPrefix(s, "json") {
		rest := s[4:]
		if rest == "" || rest[0] == '\n' || rest[0] == '\r' || rest[0] == ' ' || rest[0] == '\t' {
			s = strings.TrimSpace(rest)
		}
	}
	// Single backtick wrapping, same repair the providers apply to tool
	// arguments.
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

// extractBalanced returns the first balanced open...close region in s,
// honoring JSON string quoting and escapes. Regular expressions cannot
// express this; the scan is a simple depth counter.
func extractBalanced(s string, open, close byte) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// scanObjects returns every top-level balanced {...} region in s.
func scanObjects(s string) []string {
	var out []string
	rest := s
	for {
		body, ok := extractBalanced(rest, '{', '}')
		if !ok {
			break
		}
		out = append(out, body)
		idx := strings.Index(rest, body)
		rest = rest[idx+len(body):]
	}
	return out
}
