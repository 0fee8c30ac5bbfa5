package searcher

import "unicode/utf8"

// MaxEditDistance returns the fuzzy tolerance for a term: one edit for short
// words, two otherwise.
func MaxEditDistance(term string) int {
	if utf8.RuneCountInString(term) <= 4 {
		return 1
	}
	return 2
}

// WithinDistance reports whether a and b are at most limit edits apart
func WithinDistance(a, b string, limit int) bool {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	if la-lb > limit || lb-la > limit {
		return false
	}
	return Levenshtein(a, b) <= limit
}

// Levenshtein computes the edit distance between two strings over runes
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
