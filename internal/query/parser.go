// Package query turns free-text search strings into structured queries.
//
// Parsing is a single pass in five steps: operator extraction, phrase
// extraction, tokenization, classification and deduplication.
//
//	q := query.Parse(`type:ts "user service" -deprecated complexity:1-5`)
//	// q.Filters.FileType == "ts"
//	// q.Phrases == ["user service"]
//	// q.ExcludedTerms contains "deprecated"
//	// q.Filters.Complexity == {1, 5}
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dshills/codexref/internal/normalizer"
	"github.com/dshills/codexref/pkg/types"
)

// ErrInvalidOperator is returned by ParseStrict for malformed operator values
var ErrInvalidOperator = errors.New("invalid operator value")

// Parser parses query strings. The zero value is ready to use.
type Parser struct {
	// Now is the reference time for relative since: values; nil means time.Now
	Now func() time.Time
}

var defaultParser Parser

// Parse parses q and never fails. Malformed operator values are kept as plain text.
func Parse(q string) *types.ParsedQuery {
	return defaultParser.Parse(q)
}

// ParseStrict parses q and reports every malformed operator value
func ParseStrict(q string) (*types.ParsedQuery, error) {
	return defaultParser.ParseStrict(q)
}

// Parse parses q and never fails
func (p Parser) Parse(q string) *types.ParsedQuery {
	parsed, _ := p.parse(q)
	return parsed
}

// ParseStrict parses q; the returned query is complete even when err is non-nil
func (p Parser) ParseStrict(q string) (*types.ParsedQuery, error) {
	parsed, problems := p.parse(q)
	if len(problems) > 0 {
		return parsed, errors.Join(problems...)
	}
	return parsed, nil
}

func (p Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p Parser) parse(q string) (*types.ParsedQuery, []error) {
	parsed := &types.ParsedQuery{
		Terms:         []string{},
		OriginalTerms: []string{},
		Phrases:       []string{},
		ExcludedTerms: []string{},
	}
	if strings.TrimSpace(q) == "" {
		parsed.SearchFields = append([]types.SearchField(nil), types.DefaultSearchFields...)
		return parsed, nil
	}

	working := []rune(q)
	problems := p.extractOperators(working, parsed)
	extractPhrases(working, parsed)
	classify(strings.Fields(string(working)), parsed)

	parsed.Terms = dedupe(parsed.Terms)
	parsed.OriginalTerms = dedupe(parsed.OriginalTerms)
	parsed.Phrases = dedupe(parsed.Phrases)
	parsed.ExcludedTerms = dedupe(parsed.ExcludedTerms)
	if len(parsed.SearchFields) == 0 {
		parsed.SearchFields = append([]types.SearchField(nil), types.DefaultSearchFields...)
	}
	return parsed, problems
}

// extractOperators finds `word:value` spans whose word is a known operator,
// applies them to parsed and blanks them out of working.
func (p Parser) extractOperators(working []rune, parsed *types.ParsedQuery) []error {
	var problems []error

	for i := 0; i < len(working); i++ {
		if !atBoundary(working, i) || !isOperatorRune(working[i]) {
			continue
		}

		// Read the operator word up to the colon
		j := i
		for j < len(working) && isOperatorRune(working[j]) {
			j++
		}
		if j >= len(working) || working[j] != ':' {
			i = j
			continue
		}
		name := strings.ToLower(string(working[i:j]))
		apply, known := operators[name]
		if !known {
			i = j
			continue
		}

		value, end := readValue(working, j+1)
		if err := apply(p, strings.TrimSpace(value), parsed); err != nil {
			// Left in place as plain text
			problems = append(problems, fmt.Errorf("%w: %s:%s: %v", ErrInvalidOperator, name, value, err))
			i = end
			continue
		}

		blank(working, i, end)
		i = end
	}
	return problems
}

// readValue reads an operator value starting at pos: a quoted string with
// backslash escapes, or everything up to the next whitespace or the next
// operator. A following operator must come after a separator (",;|&"), so
// "lang:go,type:ts" holds two operators while paths and timestamps that
// contain colons stay intact. The separator is not part of the value.
func readValue(working []rune, pos int) (string, int) {
	if pos >= len(working) {
		return "", pos
	}
	if q := working[pos]; q == '"' || q == '\'' {
		value, end, _ := readQuoted(working, pos)
		return value, end
	}
	end := pos
	for end < len(working) && !unicode.IsSpace(working[end]) {
		if end > pos && isValueSeparator(working[end]) && operatorAt(working, end+1) {
			value := string(working[pos:end])
			// Blank the separator so the next operator starts at a boundary
			working[end] = ' '
			return value, end
		}
		end++
	}
	return string(working[pos:end]), end
}

func isValueSeparator(r rune) bool {
	return strings.ContainsRune(",;|&", r)
}

// operatorAt reports whether a known `word:` starts at i
func operatorAt(working []rune, i int) bool {
	j := i
	for j < len(working) && isOperatorRune(working[j]) {
		j++
	}
	if j == i || j >= len(working) || working[j] != ':' {
		return false
	}
	_, known := operators[strings.ToLower(string(working[i:j]))]
	return known
}

// readQuoted reads a quoted span starting at the opening quote. It returns
// the unescaped content, the index just past the span and whether a closing
// quote was found. An unterminated quote consumes the rest of the input.
func readQuoted(working []rune, pos int) (string, int, bool) {
	quote := working[pos]
	var b strings.Builder
	for i := pos + 1; i < len(working); i++ {
		r := working[i]
		if r == '\\' && i+1 < len(working) && (working[i+1] == quote || working[i+1] == '\\') {
			b.WriteRune(working[i+1])
			i++
			continue
		}
		if r == quote {
			return b.String(), i + 1, true
		}
		b.WriteRune(r)
	}
	return b.String(), len(working), false
}

// extractPhrases records quoted spans that open at a token boundary and
// blanks them out of working.
func extractPhrases(working []rune, parsed *types.ParsedQuery) {
	for i := 0; i < len(working); i++ {
		r := working[i]
		if (r != '"' && r != '\'') || !atBoundary(working, i) {
			continue
		}
		phrase, end, _ := readQuoted(working, i)
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			parsed.Phrases = append(parsed.Phrases, phrase)
		}
		blank(working, i, end)
		i = end - 1
	}
}

// classify sorts whitespace-separated tokens into terms, exclusions and flags
func classify(tokens []string, parsed *types.ParsedQuery) {
	for _, tok := range tokens {
		lower := strings.ToLower(tok)
		switch lower {
		case "~", "fuzzy":
			parsed.Fuzzy = true
			continue
		case "stem", "stemming":
			parsed.Stemming = true
			continue
		case "unused-imports":
			parsed.Filters.HasUnusedImports = true
			continue
		case "dead-imports":
			parsed.Filters.HasDeadImports = true
			continue
		}

		if strings.HasPrefix(tok, "-") {
			excluded := strings.TrimLeft(lower, "-")
			if excluded == "" {
				continue
			}
			parsed.ExcludedTerms = append(parsed.ExcludedTerms, expand(excluded)...)
			continue
		}

		parsed.OriginalTerms = append(parsed.OriginalTerms, tok)
		parsed.Terms = append(parsed.Terms, expand(lower)...)
		for _, sub := range SubTokens(tok) {
			parsed.Terms = append(parsed.Terms, expand(sub)...)
		}
	}
}

// SubTokens returns the lowercase camelCase/snake_case parts of a compound
// token, or nil when the token has only one part.
func SubTokens(tok string) []string {
	parts := normalizer.SplitIdentifier(tok)
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(part))
	}
	return out
}

// expand returns word followed by its synonyms
func expand(word string) []string {
	return append([]string{word}, Synonyms(word)...)
}

func atBoundary(working []rune, i int) bool {
	return i == 0 || unicode.IsSpace(working[i-1])
}

func isOperatorRune(r rune) bool {
	return unicode.IsLetter(r) || r == '-'
}

func blank(working []rune, from, to int) {
	for k := from; k < to && k < len(working); k++ {
		working[k] = ' '
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// operatorFunc applies an operator value to a query
type operatorFunc func(p Parser, value string, q *types.ParsedQuery) error

var operators = map[string]operatorFunc{
	"type":           opFileType,
	"lang":           opLanguage,
	"language":       opLanguage,
	"complexity":     opComplexity,
	"since":          opSince,
	"component":      opComponent,
	"hook":           stringOp(func(f *types.Filters, v string) { f.Hook = v }),
	"dep":            stringOp(func(f *types.Filters, v string) { f.Dependency = v }),
	"calls":          stringOp(func(f *types.Filters, v string) { f.Calls = v }),
	"calledby":       stringOp(func(f *types.Filters, v string) { f.CalledBy = v }),
	"file":           stringOp(func(f *types.Filters, v string) { f.FilePath = v }),
	"path":           stringOp(func(f *types.Filters, v string) { f.FilePath = v }),
	"jsdoc":          opDocBlock,
	"doc":            opDocBlock,
	"kind":           opKind,
	"entity":         opKind,
	"in":             opFields,
	"meta":           opExtension,
	"unused-imports": boolOp(func(f *types.Filters, v bool) { f.HasUnusedImports = v }),
	"dead-imports":   boolOp(func(f *types.Filters, v bool) { f.HasDeadImports = v }),
}

func stringOp(set func(*types.Filters, string)) operatorFunc {
	return func(_ Parser, value string, q *types.ParsedQuery) error {
		if value == "" {
			return errors.New("empty value")
		}
		set(&q.Filters, value)
		return nil
	}
}

func boolOp(set func(*types.Filters, bool)) operatorFunc {
	return func(_ Parser, value string, q *types.ParsedQuery) error {
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		set(&q.Filters, b)
		return nil
	}
}

func opFileType(_ Parser, value string, q *types.ParsedQuery) error {
	value = strings.TrimPrefix(strings.ToLower(value), ".")
	if value == "" {
		return errors.New("empty file type")
	}
	q.Filters.FileType = value
	return nil
}

func opLanguage(_ Parser, value string, q *types.ParsedQuery) error {
	if value == "" {
		return errors.New("empty language")
	}
	q.Filters.Language = strings.ToLower(value)
	return nil
}

func opComplexity(_ Parser, value string, q *types.ParsedQuery) error {
	r, err := ParseRange(value)
	if err != nil {
		return err
	}
	q.Filters.Complexity = r
	return nil
}

func opSince(p Parser, value string, q *types.ParsedQuery) error {
	t, err := ParseSince(value, p.now())
	if err != nil {
		return err
	}
	q.Filters.Since = &t
	return nil
}

// component:<type> selects components of that type; component:true any component
func opComponent(_ Parser, value string, q *types.ParsedQuery) error {
	if value == "" {
		return errors.New("empty component type")
	}
	q.Filters.EntityType = types.KindComponent
	if b, err := parseBool(value); err == nil {
		if !b {
			q.Filters.EntityType = types.KindFunction
		}
		return nil
	}
	q.Filters.ComponentType = value
	return nil
}

func opDocBlock(_ Parser, value string, q *types.ParsedQuery) error {
	b, err := parseBool(value)
	if err != nil {
		return err
	}
	q.Filters.HasDocBlock = &b
	return nil
}

func opKind(_ Parser, value string, q *types.ParsedQuery) error {
	switch kind := types.EntityKind(strings.ToLower(value)); kind {
	case types.KindFunction, types.KindComponent:
		q.Filters.EntityType = kind
		return nil
	default:
		return fmt.Errorf("unknown entity kind %q", value)
	}
}

func opFields(_ Parser, value string, q *types.ParsedQuery) error {
	var fields []types.SearchField
	for _, part := range strings.Split(value, ",") {
		f := types.SearchField(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if f == "doc" || f == "docs" {
			f = types.FieldDocumentation
		}
		if !types.ValidSearchField(f) {
			return fmt.Errorf("unknown search field %q", part)
		}
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return errors.New("no search fields")
	}
	for _, f := range fields {
		if !containsField(q.SearchFields, f) {
			q.SearchFields = append(q.SearchFields, f)
		}
	}
	return nil
}

// meta:key=value matches an analyzer extension field
func opExtension(_ Parser, value string, q *types.ParsedQuery) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return errors.New("expected key=value")
	}
	if q.Filters.Extensions == nil {
		q.Filters.Extensions = make(map[string]string)
	}
	q.Filters.Extensions[strings.TrimSpace(key)] = strings.TrimSpace(val)
	return nil
}

func containsField(fields []types.SearchField, f types.SearchField) bool {
	for _, existing := range fields {
		if existing == f {
			return true
		}
	}
	return false
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "1", "y", "on":
		return true, nil
	case "false", "no", "0", "n", "off":
		return false, nil
	}
	return false, fmt.Errorf("expected a boolean, got %q", value)
}

// ParseRange parses a complexity range: "a-b", "a", ">a", ">=a", "<b", "<=b"
func ParseRange(value string) (*types.Range, error) {
	value = strings.TrimSpace(value)
	atoi := func(s string) (int, error) {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, fmt.Errorf("expected a number, got %q", s)
		}
		return n, nil
	}

	switch {
	case strings.HasPrefix(value, ">="):
		n, err := atoi(value[2:])
		if err != nil {
			return nil, err
		}
		return &types.Range{Min: &n}, nil
	case strings.HasPrefix(value, ">"):
		n, err := atoi(value[1:])
		if err != nil {
			return nil, err
		}
		n++
		return &types.Range{Min: &n}, nil
	case strings.HasPrefix(value, "<="):
		n, err := atoi(value[2:])
		if err != nil {
			return nil, err
		}
		return &types.Range{Max: &n}, nil
	case strings.HasPrefix(value, "<"):
		n, err := atoi(value[1:])
		if err != nil {
			return nil, err
		}
		n--
		return &types.Range{Max: &n}, nil
	}

	if lo, hi, ok := strings.Cut(value, "-"); ok {
		from, err := atoi(lo)
		if err != nil {
			return nil, err
		}
		to, err := atoi(hi)
		if err != nil {
			return nil, err
		}
		if from > to {
			return nil, fmt.Errorf("range %d-%d is empty", from, to)
		}
		return types.NewRange(from, to), nil
	}

	n, err := atoi(value)
	if err != nil {
		return nil, err
	}
	return types.NewRange(n, n), nil
}

// ParseSince parses an absolute date (YYYY-MM-DD or RFC 3339) or a relative
// age such as 7d, 2w or 12h measured back from now.
func ParseSince(value string, now time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	if len(value) >= 2 {
		n, err := strconv.Atoi(value[:len(value)-1])
		if err == nil && n >= 0 {
			switch value[len(value)-1] {
			case 'h':
				return now.Add(-time.Duration(n) * time.Hour), nil
			case 'd':
				return now.AddDate(0, 0, -n), nil
			case 'w':
				return now.AddDate(0, 0, -7*n), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("expected a date or age like 7d, got %q", value)
}
