package extractor

import (
	"fmt"
	"strings"
)

// Role patterns recorded in the "pattern" extension of Go entities
const (
	PatternConstructor = "constructor"
	PatternTest        = "test"
	PatternBenchmark   = "benchmark"
	PatternRepository  = "repository"
	PatternService     = "service"
	PatternHandler     = "handler"
	PatternCommand     = "command"
	PatternQuery       = "query"
	PatternAccessor    = "accessor"
)

// detectPattern identifies the role of a function based on naming conventions
// of the function and its receiver
func detectPattern(name, receiver string) string {
	switch {
	case strings.HasPrefix(name, "Test") && receiver == "":
		return PatternTest
	case strings.HasPrefix(name, "Benchmark") && receiver == "":
		return PatternBenchmark
	case strings.HasPrefix(name, "New") && receiver == "":
		return PatternConstructor
	}

	switch {
	case hasAnySuffix(receiver, "Repository", "Repo", "Store"):
		return PatternRepository
	case hasAnySuffix(receiver, "Service"):
		return PatternService
	case hasAnySuffix(receiver, "Handler") || hasAnySuffix(name, "Handler") || name == "ServeHTTP":
		return PatternHandler
	case hasAnySuffix(receiver, "Command", "Cmd"):
		return PatternCommand
	case hasAnySuffix(receiver, "Query"):
		return PatternQuery
	}

	if receiver != "" && (strings.HasPrefix(name, "Get") || strings.HasPrefix(name, "Set")) {
		return PatternAccessor
	}
	return ""
}

func hasAnySuffix(s string, suffixes ...string) bool {
	if s == "" {
		return false
	}
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

// describe produces a purpose line for undocumented functions
func describe(name, receiver, pattern string) string {
	switch pattern {
	case PatternConstructor:
		return fmt.Sprintf("creates a new %s", strings.TrimPrefix(name, "New"))
	case PatternTest:
		return fmt.Sprintf("tests %s", strings.TrimPrefix(name, "Test"))
	case PatternBenchmark:
		return fmt.Sprintf("benchmarks %s", strings.TrimPrefix(name, "Benchmark"))
	}
	if receiver != "" {
		return fmt.Sprintf("%s method of %s", name, receiver)
	}
	return ""
}
