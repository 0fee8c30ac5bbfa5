package storage

import (
	"strings"
	"unicode"

	"github.com/dshills/codexref/pkg/types"
)

// fieldColumns maps search fields to FTS columns. The name field also covers
// the tokenized name so that sub-words of identifiers match.
var fieldColumns = map[types.SearchField][]string{
	types.FieldName:          {"name", "tokens"},
	types.FieldSignature:     {"signature"},
	types.FieldDocumentation: {"documentation"},
	types.FieldPurpose:       {"purpose"},
	types.FieldContext:       {"context"},
}

// ProjectRecord derives the full-text document of a record
func ProjectRecord(rec *types.Record) Document {
	doc := []string{rec.Documentation.Summary, rec.Documentation.Description}
	doc = append(doc, rec.Documentation.Examples...)

	return Document{
		Key:           rec.Key(),
		FilePath:      rec.FilePath,
		Name:          rec.Name,
		Tokens:        strings.Join(rec.TokenizedName, " "),
		Signature:     rec.Signature,
		Purpose:       rec.Purpose,
		Context:       rec.Context,
		Documentation: strings.TrimSpace(strings.Join(doc, "\n")),
	}
}

// Searchable reports whether s contains anything the FTS tokenizer will index
func Searchable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// Quote renders s as an FTS5 string (phrase) literal
func Quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// AnyOf builds an OR expression over quoted terms. Unsearchable terms are skipped.
func AnyOf(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if !Searchable(t) {
			continue
		}
		parts = append(parts, Quote(t))
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " OR ") + ")"
	}
}

// AllOf builds an AND expression over quoted terms
func AllOf(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if !Searchable(t) {
			continue
		}
		parts = append(parts, Quote(t))
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, " AND ") + ")"
	}
}

// Restrict limits expr to the columns of the given search fields.
// Unknown fields are ignored; no valid field means all default fields.
func Restrict(fields []types.SearchField, expr string) string {
	if expr == "" {
		return ""
	}
	if len(fields) == 0 {
		fields = types.DefaultSearchFields
	}

	seen := make(map[string]bool)
	cols := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		for _, c := range fieldColumns[f] {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	if len(cols) == 0 {
		return Restrict(types.DefaultSearchFields, expr)
	}
	return "{" + strings.Join(cols, " ") + "} : " + expr
}
