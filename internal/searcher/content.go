package searcher

import (
	"strings"
	"unicode/utf8"

	"github.com/dshills/codexref/pkg/types"
)

// ContextLines is the number of lines kept on each side of a content match
const ContextLines = 2

// contentSearch scans record bodies line by line for phrases and original
// terms. Each matching line is reported once with its surrounding context.
func contentSearch(records []*types.Record, q *types.ParsedQuery, hits map[string]*hit) {
	phrases := lowerAll(q.Phrases)
	terms := lowerAll(q.OriginalTerms)
	if len(phrases) == 0 && len(terms) == 0 {
		return
	}

	for _, rec := range records {
		if rec.Body == "" {
			continue
		}
		score, matches := scanBody(rec, phrases, terms)
		if score == 0 {
			continue
		}
		h := hits[rec.Key()]
		if h == nil {
			h = &hit{}
			hits[rec.Key()] = h
		}
		h.score += score
		h.matches = append(h.matches, matches...)
	}
}

func scanBody(rec *types.Record, phrases, terms []string) (float64, []types.ContentMatch) {
	lines := strings.Split(rec.Body, "\n")
	var score float64
	var matches []types.ContentMatch

	for i, line := range lines {
		lower := strings.ToLower(line)
		column := -1
		var found []string

		check := func(needle string, weight float64) {
			n := strings.Count(lower, needle)
			if n == 0 {
				return
			}
			score += weight * float64(n)
			found = append(found, needle)
			if idx := strings.Index(lower, needle); column < 0 || idx < column {
				column = idx
			}
		}
		for _, p := range phrases {
			check(p, ContentPhraseWeight)
		}
		for _, t := range terms {
			check(t, ContentTermWeight)
		}
		if len(found) == 0 {
			continue
		}

		matches = append(matches, types.ContentMatch{
			Line:    rec.LineNumber + i,
			Column:  utf8.RuneCountInString(lower[:column]) + 1,
			Text:    line,
			Terms:   found,
			Context: contextWindow(lines, i),
		})
	}
	return score, matches
}

// contextWindow returns the lines within ContextLines of line i, inclusive
func contextWindow(lines []string, i int) []string {
	from := i - ContextLines
	if from < 0 {
		from = 0
	}
	to := i + ContextLines + 1
	if to > len(lines) {
		to = len(lines)
	}
	return append([]string(nil), lines[from:to]...)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
