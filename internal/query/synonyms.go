package query

import (
	"sort"
	"strings"
)

// synonymTable maps common programming vocabulary to related words.
// Lookups are bidirectional: a value resolves to its key and its siblings.
var synonymTable = map[string][]string{
	"get":       {"fetch", "retrieve", "query", "load", "read", "find"},
	"set":       {"update", "assign", "put", "write"},
	"create":    {"make", "new", "build", "add", "insert"},
	"delete":    {"remove", "destroy", "drop", "erase", "del"},
	"auth":      {"authentication", "authenticate", "login", "signin", "authorize"},
	"user":      {"account", "member", "profile"},
	"config":    {"configuration", "settings", "options", "preferences", "cfg"},
	"error":     {"err", "exception", "failure", "fault"},
	"handle":    {"handler", "process", "manage"},
	"validate":  {"validation", "check", "verify", "ensure"},
	"parse":     {"decode", "unmarshal", "deserialize"},
	"serialize": {"encode", "marshal", "stringify"},
	"init":      {"initialize", "setup", "bootstrap", "start"},
	"test":      {"spec", "check"},
	"send":      {"emit", "dispatch", "publish", "post"},
	"receive":   {"listen", "subscribe", "consume"},
	"db":        {"database", "storage", "store", "repository"},
	"request":   {"req", "call"},
	"response":  {"res", "resp", "reply", "result"},
	"util":      {"utility", "utils", "helper", "helpers"},
	"calc":      {"calculate", "compute", "count"},
	"convert":   {"transform", "map", "format"},
	"cache":     {"memo", "memoize"},
	"log":       {"logger", "logging", "trace"},
	"async":     {"promise", "await", "concurrent"},
	"component": {"widget", "view", "element"},
	"render":    {"draw", "display", "paint"},
	"route":     {"router", "path", "endpoint"},
	"message":   {"msg"},
}

// related is the symmetric closure of synonymTable, built once
var related = buildRelated(synonymTable)

func buildRelated(table map[string][]string) map[string][]string {
	sets := make(map[string]map[string]bool)
	link := func(a, b string) {
		if a == b {
			return
		}
		if sets[a] == nil {
			sets[a] = make(map[string]bool)
		}
		sets[a][b] = true
	}

	for key, values := range table {
		for _, v := range values {
			link(key, v)
			link(v, key)
			for _, sibling := range values {
				link(v, sibling)
			}
		}
	}

	out := make(map[string][]string, len(sets))
	for word, set := range sets {
		words := make([]string, 0, len(set))
		for w := range set {
			words = append(words, w)
		}
		sort.Strings(words)
		out[word] = words
	}
	return out
}

// Synonyms returns the words related to word, excluding word itself.
// The lookup is case-insensitive; unknown words have no synonyms.
func Synonyms(word string) []string {
	words := related[strings.ToLower(strings.TrimSpace(word))]
	if len(words) == 0 {
		return nil
	}
	return append([]string(nil), words...)
}
