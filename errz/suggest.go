package errz

import (
	"sort"
	"strings"
)

// MaxSuggestions is the maximum number of names Suggest returns.
const MaxSuggestions = 3

// Suggest returns the candidates closest to name by edit distance, closest
// first. Case is ignored. Short names tolerate fewer edits.
func Suggest(name string, candidates []string) []string {
	if name == "" {
		return nil
	}
	target := strings.ToUpper(name)
	threshold := 3
	switch {
	case len(target) <= 3:
		threshold = 1
	case len(target) <= 5:
		threshold = 2
	}

	type match struct {
		name     string
		distance int
	}
	var matches []match
	for _, candidate := range candidates {
		upper := strings.ToUpper(candidate)
		if candidate == "" || upper == target {
			continue
		}
		if d := editDistance(target, upper); d <= threshold {
			matches = append(matches, match{candidate, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// DidYouMean formats suggestions as a hint, or returns "" when there are
// none.
func DidYouMean(suggestions []string) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "did you mean " + suggestions[0] + "?"
	default:
		return "did you mean one of " + strings.Join(suggestions, ", ") + "?"
	}
}

// editDistance is the Levenshtein distance between a and b, computed with
// two rows.
func editDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) > len(br) {
		ar, br = br, ar
	}
	if len(ar) == 0 {
		return len(br)
	}
	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}
