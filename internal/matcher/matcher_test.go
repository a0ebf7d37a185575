package matcher_test

import (
	"testing"

	"github.com/ccgate/ccgate/internal/matcher"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern, text string
		want          bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"*sonnet*", "claude-3-5-sonnet-20241022", true},
		{"*haiku*", "claude-sonnet-4", false},
		{"claude-3-5-haiku-20241022", "claude-3-5-haiku-20241022", true},
		{"claude-3-5-haiku-20241022", "claude-3-5-haiku-20241023", false},
		{"CLAUDE-*", "claude-opus-4", true},
	}

	for _, c := range cases {
		got := matcher.Match(c.pattern, c.text)
		if got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.text, got, c.want)
		}
	}
}

func TestFindFirstPrefersExact(t *testing.T) {
	patterns := []string{"*sonnet*", "claude-3-5-sonnet-20241022", "*"}
	got, ok := matcher.FindFirst(patterns, "claude-3-5-sonnet-20241022")
	if !ok {
		t.Fatalf("expected a match")
	}
	if got != "claude-3-5-sonnet-20241022" {
		t.Errorf("expected exact match to win, got %q", got)
	}
}

func TestFindFirstSequenceOrder(t *testing.T) {
	patterns := []string{"*haiku*", "*sonnet*"}
	got, ok := matcher.FindFirst(patterns, "claude-3-5-sonnet-20241022")
	if !ok {
		t.Fatalf("expected a match")
	}
	if got != "*sonnet*" {
		t.Errorf("expected *sonnet* to match first, got %q", got)
	}
}

func TestFindFirstNoMatch(t *testing.T) {
	_, ok := matcher.FindFirst([]string{"*haiku*"}, "claude-sonnet-4")
	if ok {
		t.Errorf("expected no match")
	}
}
