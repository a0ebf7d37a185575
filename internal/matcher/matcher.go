// Package matcher implements the `*`-glob matching used for tenant model
// allow-lists and pricing table keys. `*` matches any run of characters,
// including the empty run; every other character is literal. Matching is
// case-insensitive.
package matcher

import (
	"regexp"
	"strings"
	"sync"
)

var compiled sync.Map // pattern string -> *regexp.Regexp

func compile(pattern string) *regexp.Regexp {
	if v, ok := compiled.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}

	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		if r == '*' {
			b.WriteString(".*")
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	b.WriteString("$")

	re := regexp.MustCompile(b.String())
	compiled.Store(pattern, re)
	return re
}

// Match reports whether text matches the `*`-glob pattern.
func Match(pattern, text string) bool {
	return compile(pattern).MatchString(text)
}

// FindFirst returns the first pattern in patterns that matches text, with an
// exact (non-wildcard) match preferred over a wildcard match regardless of
// position. The second return value is false if nothing matches.
func FindFirst(patterns []string, text string) (string, bool) {
	lowerText := strings.ToLower(text)

	for _, p := range patterns {
		if !strings.Contains(p, "*") && strings.ToLower(p) == lowerText {
			return p, true
		}
	}

	for _, p := range patterns {
		if Match(p, text) {
			return p, true
		}
	}

	return "", false
}
