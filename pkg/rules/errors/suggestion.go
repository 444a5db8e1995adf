package errors

import (
	"fmt"
	"strings"
)

// Suggest returns a "did you mean" hint for unknown among valid, or a list of
// valid names when nothing is close.
func Suggest(unknown string, valid []string) string {
	if len(valid) == 0 {
		return ""
	}

	minDistance := 1000
	var bestMatch string
	for _, candidate := range valid {
		dist := levenshteinDistance(strings.ToLower(unknown), strings.ToLower(candidate))
		if dist < minDistance {
			minDistance = dist
			bestMatch = candidate
		}
	}

	if minDistance <= 3 {
		return fmt.Sprintf("did you mean '%s'?", bestMatch)
	}
	return fmt.Sprintf("expected one of: %s", strings.Join(valid, ", "))
}

func levenshteinDistance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

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
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(s2)]
}
