package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynonyms_Symmetric(t *testing.T) {
	assert.Contains(t, Synonyms("auth"), "authentication")
	assert.Contains(t, Synonyms("authentication"), "auth")
}

func TestSynonyms_Siblings(t *testing.T) {
	got := Synonyms("fetch")
	assert.Contains(t, got, "get")
	assert.Contains(t, got, "retrieve")
	assert.NotContains(t, got, "fetch")
}

func TestSynonyms_EveryEntryIsSymmetric(t *testing.T) {
	for key, values := range synonymTable {
		for _, v := range values {
			assert.Contains(t, Synonyms(key), v)
			assert.Contains(t, Synonyms(v), key)
		}
	}
}

func TestSynonyms_Unknown(t *testing.T) {
	assert.Empty(t, Synonyms("zebra"))
	assert.Contains(t, Synonyms("  GET "), "fetch")
}

func TestSynonyms_ReturnsCopy(t *testing.T) {
	got := Synonyms("get")
	got[0] = "mutated"
	assert.NotContains(t, Synonyms("get"), "mutated")
}
