package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

func TestParse_CombinedQuery(t *testing.T) {
	q := Parse(`type:ts "user service" -deprecated complexity:1-5`)

	assert.Equal(t, "ts", q.Filters.FileType)
	assert.Equal(t, []string{"user service"}, q.Phrases)
	assert.Contains(t, q.ExcludedTerms, "deprecated")
	require.NotNil(t, q.Filters.Complexity)
	require.NotNil(t, q.Filters.Complexity.Min)
	require.NotNil(t, q.Filters.Complexity.Max)
	assert.Equal(t, 1, *q.Filters.Complexity.Min)
	assert.Equal(t, 5, *q.Filters.Complexity.Max)
	assert.Empty(t, q.OriginalTerms)
	assert.Empty(t, q.Terms)
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		q := Parse(input)
		assert.True(t, q.IsEmpty())
		assert.Empty(t, q.ExcludedTerms)
		assert.True(t, q.Filters.IsZero())
		assert.Equal(t, types.DefaultSearchFields, q.SearchFields)
	}
}

func TestParse_TermsAndSynonyms(t *testing.T) {
	q := Parse("get user")

	assert.Equal(t, []string{"get", "user"}, q.OriginalTerms)
	assert.Contains(t, q.Terms, "get")
	assert.Contains(t, q.Terms, "fetch")
	assert.Contains(t, q.Terms, "retrieve")
	assert.Contains(t, q.Terms, "user")
	assert.Contains(t, q.Terms, "account")
	assert.Equal(t, types.DefaultSearchFields, q.SearchFields)
}

func TestParse_CompoundTokens(t *testing.T) {
	q := Parse("getUserData load_config")

	assert.Equal(t, []string{"getUserData", "load_config"}, q.OriginalTerms)
	for _, want := range []string{"getuserdata", "get", "user", "data", "load_config", "load", "config", "settings"} {
		assert.Contains(t, q.Terms, want)
	}
}

func TestParse_Deduplicates(t *testing.T) {
	q := Parse(`fetch fetch "a b" "a b" -old -old`)

	assert.Equal(t, []string{"fetch"}, q.OriginalTerms)
	assert.Equal(t, []string{"a b"}, q.Phrases)
	assert.Equal(t, []string{"old"}, q.ExcludedTerms)

	seen := map[string]int{}
	for _, term := range q.Terms {
		seen[term]++
	}
	for term, n := range seen {
		assert.Equal(t, 1, n, "term %q repeated", term)
	}
}

func TestParse_ExcludedSynonyms(t *testing.T) {
	q := Parse("-delete")
	assert.Contains(t, q.ExcludedTerms, "delete")
	assert.Contains(t, q.ExcludedTerms, "remove")
	assert.Empty(t, q.OriginalTerms)
}

func TestParse_Flags(t *testing.T) {
	q := Parse("parse ~ stemming unused-imports dead-imports")
	assert.True(t, q.Fuzzy)
	assert.True(t, q.Stemming)
	assert.True(t, q.Filters.HasUnusedImports)
	assert.True(t, q.Filters.HasDeadImports)
	assert.Equal(t, []string{"parse"}, q.OriginalTerms)

	q = Parse("fuzzy stem")
	assert.True(t, q.Fuzzy)
	assert.True(t, q.Stemming)
	assert.True(t, q.IsEmpty())
}

func TestParse_Phrases(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		phrases []string
		terms   []string
	}{
		{"double quotes", `"load user" save`, []string{"load user"}, []string{"save"}},
		{"single quotes", `'load user'`, []string{"load user"}, []string{}},
		{"escaped quote", `"say \"hi\""`, []string{`say "hi"`}, []string{}},
		{"unterminated", `find "rest of it`, []string{"rest of it"}, []string{"find"}},
		{"apostrophe inside word", `don't stop`, []string{}, []string{"don't", "stop"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Parse(tt.input)
			assert.Equal(t, tt.phrases, q.Phrases)
			assert.Equal(t, tt.terms, q.OriginalTerms)
		})
	}
}

func TestParse_Operators(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	p := Parser{Now: func() time.Time { return now }}

	q := p.Parse(`lang:TypeScript hook:useState dep:react calls:"src/api.ts#fetch" calledby:main file:src/*.ts jsdoc:true kind:component in:name,signature meta:layer=ui since:7d`)

	assert.Equal(t, "typescript", q.Filters.Language)
	assert.Equal(t, "useState", q.Filters.Hook)
	assert.Equal(t, "react", q.Filters.Dependency)
	assert.Equal(t, "src/api.ts#fetch", q.Filters.Calls)
	assert.Equal(t, "main", q.Filters.CalledBy)
	assert.Equal(t, "src/*.ts", q.Filters.FilePath)
	require.NotNil(t, q.Filters.HasDocBlock)
	assert.True(t, *q.Filters.HasDocBlock)
	assert.Equal(t, types.KindComponent, q.Filters.EntityType)
	assert.Equal(t, []types.SearchField{types.FieldName, types.FieldSignature}, q.SearchFields)
	assert.Equal(t, map[string]string{"layer": "ui"}, q.Filters.Extensions)
	require.NotNil(t, q.Filters.Since)
	assert.Equal(t, now.AddDate(0, 0, -7), *q.Filters.Since)
	assert.True(t, q.IsEmpty())
}

func TestParse_AdjacentOperators(t *testing.T) {
	q := Parse("lang:go,type:ts;complexity:1-5 file:src/a.go|calls:parse in:name,signature")

	assert.Equal(t, "go", q.Filters.Language)
	assert.Equal(t, "ts", q.Filters.FileType)
	require.NotNil(t, q.Filters.Complexity)
	assert.True(t, q.Filters.Complexity.Contains(3))
	assert.Equal(t, "src/a.go", q.Filters.FilePath)
	assert.Equal(t, "parse", q.Filters.Calls)
	assert.Equal(t, []types.SearchField{types.FieldName, types.FieldSignature}, q.SearchFields)
	assert.True(t, q.IsEmpty())

	// Colons inside a value do not start a new operator
	q = Parse("file:c:/src/type:x.go since:2024-01-02T10:00:00Z")
	assert.Equal(t, "c:/src/type:x.go", q.Filters.FilePath)
	require.NotNil(t, q.Filters.Since)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC), q.Filters.Since.UTC())

	// A leading dash does not negate an operator
	q = Parse("-complexity:>10")
	assert.Nil(t, q.Filters.Complexity)
}

func TestParse_ComponentOperator(t *testing.T) {
	q := Parse("component:functional button")
	assert.Equal(t, types.KindComponent, q.Filters.EntityType)
	assert.Equal(t, "functional", q.Filters.ComponentType)
	assert.Equal(t, []string{"button"}, q.OriginalTerms)

	q = Parse("component:true")
	assert.Equal(t, types.KindComponent, q.Filters.EntityType)
	assert.Empty(t, q.Filters.ComponentType)
}

func TestParse_UnknownOperatorIsText(t *testing.T) {
	q := Parse("http://example todo:later")
	assert.Equal(t, []string{"http://example", "todo:later"}, q.OriginalTerms)
	assert.True(t, q.Filters.IsZero())
}

func TestParse_MalformedOperatorIsText(t *testing.T) {
	q := Parse("complexity:abc parse")
	assert.Nil(t, q.Filters.Complexity)
	assert.Equal(t, []string{"complexity:abc", "parse"}, q.OriginalTerms)
}

func TestParseStrict(t *testing.T) {
	_, err := ParseStrict("complexity:abc kind:widget")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOperator)
	assert.Contains(t, err.Error(), "complexity:abc")
	assert.Contains(t, err.Error(), "kind:widget")

	q, err := ParseStrict("complexity:>3 lang:go")
	require.NoError(t, err)
	require.NotNil(t, q.Filters.Complexity.Min)
	assert.Equal(t, 4, *q.Filters.Complexity.Min)
	assert.Nil(t, q.Filters.Complexity.Max)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		input    string
		min, max *int
		wantErr  bool
	}{
		{input: "5-10", min: intPtr(5), max: intPtr(10)},
		{input: "5", min: intPtr(5), max: intPtr(5)},
		{input: ">=3", min: intPtr(3)},
		{input: ">3", min: intPtr(4)},
		{input: "<=7", max: intPtr(7)},
		{input: "<7", max: intPtr(6)},
		{input: "10-5", wantErr: true},
		{input: "x", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			r, err := ParseRange(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.min, r.Min)
			assert.Equal(t, tt.max, r.Max)
		})
	}
}

func TestParseSince(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := ParseSince("2024-01-02", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseSince("2w", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -14), got)

	got, err = ParseSince("12h", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-12*time.Hour), got)

	_, err = ParseSince("yesterday", now)
	assert.Error(t, err)
}

func intPtr(n int) *int { return &n }
