package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		name      string
		extracted []string
		reference []string
		want      []string
	}{
		{
			name:      "keeps extraction order",
			extracted: []string{"TCS", "INFY", "FOO"},
			reference: []string{"TCS", "RELIANCE", "INFY"},
			want:      []string{"TCS", "INFY"},
		},
		{
			name:      "order follows extracted not reference",
			extracted: []string{"INFY", "TCS"},
			reference: []string{"TCS", "INFY"},
			want:      []string{"INFY", "TCS"},
		},
		{
			name:      "case sensitive",
			extracted: []string{"tcs", "TCS"},
			reference: []string{"TCS"},
			want:      []string{"TCS"},
		},
		{
			name:      "duplicates in extracted retained",
			extracted: []string{"TCS", "INFY", "TCS"},
			reference: []string{"TCS", "TCS"},
			want:      []string{"TCS", "TCS"},
		},
		{
			name:      "no normalization of suffixes",
			extracted: []string{"TCS-EQ", "M&M"},
			reference: []string{"TCS", "M&M"},
			want:      []string{"M&M"},
		},
		{
			name:      "empty reference",
			extracted: []string{"TCS"},
			reference: nil,
			want:      []string{},
		},
		{
			name:      "empty extracted",
			extracted: nil,
			reference: []string{"TCS"},
			want:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(tt.extracted, tt.reference)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Match() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestMatch_Idempotent(t *testing.T) {
	extracted := []string{"ZEEL", "TCS", "INFY", "FOO", "TCS"}
	reference := []string{"TCS", "RELIANCE", "INFY", "ZEEL"}

	first := Match(extracted, reference)
	second := Match(extracted, reference)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
	// Feeding the result back in is a fixed point.
	if diff := cmp.Diff(first, Match(first, reference)); diff != "" {
		t.Errorf("Match is not a fixed point on its output:\n%s", diff)
	}
}

func TestMatch_IsOrderedFilter(t *testing.T) {
	extracted := []string{"A", "B", "C", "D", "E", "B"}
	reference := []string{"E", "B", "X"}

	got := Match(extracted, reference)

	// Every match appears in extracted at a strictly later position than
	// the previous one.
	pos := 0
	for _, sym := range got {
		found := false
		for pos < len(extracted) {
			pos++
			if extracted[pos-1] == sym {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("%q out of order in %v", sym, got)
		}
	}
	if diff := cmp.Diff([]string{"B", "E", "B"}, got); diff != "" {
		t.Errorf("Match() mismatch (-want +got):\n%s", diff)
	}
}
