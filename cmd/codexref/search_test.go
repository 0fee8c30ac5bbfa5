package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/internal/query"
)

// Every operator example in the search help must parse as a filter
func TestSearchHelpExamplesParse(t *testing.T) {
	lines := strings.Split(searchCmd.Long, "\n")
	var examples []string
	for _, line := range lines {
		if strings.HasPrefix(line, "  ") {
			examples = append(examples, strings.Fields(line)...)
		}
	}
	require.NotEmpty(t, examples)

	for _, ex := range examples {
		t.Run(ex, func(t *testing.T) {
			parsed, err := query.ParseStrict(ex)
			require.NoError(t, err)
			assert.True(t, parsed.IsEmpty(), "example left plain terms: %v", parsed.OriginalTerms)
		})
	}

	assert.NotContains(t, searchCmd.Long, "-complexity")
}
