package alerr

import "fmt"

// maxSuggestDistance catches a missing, extra or swapped character in a column name
// without matching unrelated names.
const maxSuggestDistance = 3

// levenshteinDistance computes the edit distance between two strings.
func levenshteinDistance(s1, s2 string) int {
	if s1 == s2 {
		return 0
	}
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two rows instead of the full matrix.
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}

// FindClosestMatch returns the option nearest to input, if it is within maxSuggestDistance.
func FindClosestMatch(input string, options []string) (string, bool) {
	bestMatch := ""
	bestDist := maxSuggestDistance + 1

	for _, opt := range options {
		if d := levenshteinDistance(input, opt); d < bestDist {
			bestDist = d
			bestMatch = opt
		}
	}

	if bestDist <= maxSuggestDistance {
		return bestMatch, true
	}
	return "", false
}

// SuggestSimilar returns a "did you mean 'X'?" string if a close match is found,
// or an empty string otherwise.
func SuggestSimilar(input string, options []string) string {
	if match, ok := FindClosestMatch(input, options); ok {
		return fmt.Sprintf("did you mean '%s'?", match)
	}
	return ""
}

// WithSuggestion attaches a did-you-mean help line when name is close to one of options.
func (e *Error) WithSuggestion(name string, options []string) *Error {
	if s := SuggestSimilar(name, options); s != "" {
		return e.WithHelp(s)
	}
	return e
}
