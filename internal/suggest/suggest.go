// Package suggest offers "did you mean" candidates for mistyped names using
// Levenshtein distance.
package suggest

import (
	"sort"
	"strings"
)

// levenshtein calculates the edit distance between two strings
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// Closest returns up to limit candidates within edit range of unknown,
// best match first. Comparison ignores case and leading dashes.
func Closest(unknown string, candidates []string, limit int) []string {
	norm := func(s string) string { return strings.ToLower(strings.TrimLeft(s, "-")) }
	unknown = norm(unknown)

	type scored struct {
		name  string
		score int
	}
	var matches []scored
	maxDist := max(2, len(unknown)/2)
	for _, c := range candidates {
		n := norm(c)
		dist := levenshtein(unknown, n)
		if strings.HasPrefix(n, unknown) && unknown != "" {
			dist = min(dist, 1)
		}
		if dist <= maxDist {
			matches = append(matches, scored{c, dist})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score < matches[j].score })

	var out []string
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, matches[i].name)
	}
	return out
}

// Hint formats a "did you mean" suffix for the closest candidate, or returns
// "" when nothing is near.
func Hint(unknown string, candidates []string) string {
	best := Closest(unknown, candidates, 1)
	if len(best) == 0 {
		return ""
	}
	return "did you mean " + best[0] + "?"
}
