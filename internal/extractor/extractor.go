package extractor

import (
	"context"
	"fmt"
	"sync"

	"github.com/dshills/codexref/pkg/types"
)

// Extractor reports the code entities found in one source file
type Extractor interface {
	// Name identifies the extractor in logs
	Name() string
	// Supports reports whether the extractor handles filePath
	Supports(filePath string) bool
	// Extract parses content, which was read from filePath
	Extract(ctx context.Context, filePath string, content []byte) ([]types.Entity, error)
}

// Registry dispatches files to the first extractor that supports them
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
}

// NewRegistry creates a registry holding the given extractors in priority order
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// DefaultRegistry returns a registry with every built-in extractor
func DefaultRegistry() *Registry {
	return NewRegistry(NewGoExtractor())
}

// Register appends an extractor with the lowest priority
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors = append(r.extractors, e)
}

// For returns the extractor responsible for filePath
func (r *Registry) For(filePath string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.extractors {
		if e.Supports(filePath) {
			return e, true
		}
	}
	return nil, false
}

// Supports reports whether any extractor handles filePath
func (r *Registry) Supports(filePath string) bool {
	_, ok := r.For(filePath)
	return ok
}

// Extract runs the responsible extractor, or fails with types.ErrUnsupported
func (r *Registry) Extract(ctx context.Context, filePath string, content []byte) ([]types.Entity, error) {
	e, ok := r.For(filePath)
	if !ok {
		return nil, fmt.Errorf("%s: %w", filePath, types.ErrUnsupported)
	}
	return e.Extract(ctx, filePath, content)
}
