package normalizer

import (
	"strings"
	"unicode"
)

// SplitIdentifier splits an identifier on camelCase, PascalCase, acronym and
// snake/kebab-case boundaries. Case is preserved; separators are dropped.
//
//	SplitIdentifier("getUserData")   // [get User Data]
//	SplitIdentifier("HTTPServer")    // [HTTP Server]
//	SplitIdentifier("load_v2_items") // [load v2 items]
func SplitIdentifier(s string) []string {
	chunks := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, splitCase(chunk)...)
	}
	return parts
}

// splitCase splits a run of letters and digits on case transitions
func splitCase(s string) []string {
	runes := []rune(s)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := false
		switch {
		case unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			// fooBar, v2Handler
			boundary = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// HTTPServer: the S starts a new word
			boundary = true
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

// TokenizeName returns the lowercase sub-words of name followed by the
// original name, with duplicates removed.
func TokenizeName(name string) []string {
	parts := SplitIdentifier(name)
	tokens := make([]string, 0, len(parts)+1)
	seen := make(map[string]bool, len(parts)+1)
	for _, p := range parts {
		lp := strings.ToLower(p)
		if lp == "" || seen[lp] {
			continue
		}
		seen[lp] = true
		tokens = append(tokens, lp)
	}
	if name != "" && !seen[name] {
		tokens = append(tokens, name)
	}
	return tokens
}
