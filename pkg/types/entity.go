package types

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// EntityKind represents the kind of code entity held in the index
type EntityKind string

const (
	KindFunction  EntityKind = "function"
	KindComponent EntityKind = "component"
)

// MetadataSchemaVersion is bumped whenever the shape of Metadata changes
const MetadataSchemaVersion = 1

// Parameter describes a single function or component parameter
type Parameter struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Default  string `json:"default,omitempty"`
}

// Documentation holds the human-readable documentation of an entity
type Documentation struct {
	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	HasDocBlock bool     `json:"hasDocBlock,omitempty"`
}

// Entity is a raw code entity as reported by an extractor.
// Only Name, FilePath and LineNumber are mandatory; everything else is
// filled with defaults by the normalizer.
type Entity struct {
	Name         string   `json:"name"`
	FilePath     string   `json:"filePath"`
	LineNumber   int      `json:"lineNumber"`
	Language     string   `json:"language,omitempty"`
	Purpose      string   `json:"purpose,omitempty"`
	Context      string   `json:"context,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`

	Signature     string         `json:"signature,omitempty"`
	Parameters    []Parameter    `json:"parameters,omitempty"`
	ReturnType    string         `json:"returnType,omitempty"`
	Documentation *Documentation `json:"documentation,omitempty"`
	Complexity    int            `json:"complexity,omitempty"`
	Body          string         `json:"body,omitempty"`

	Kind          EntityKind `json:"kind,omitempty"`
	Receiver      string     `json:"receiver,omitempty"`
	Exported      bool       `json:"exported,omitempty"`
	Async         bool       `json:"async,omitempty"`
	ComponentType string     `json:"componentType,omitempty"`
	Hooks         []string   `json:"hooks,omitempty"`
	Props         []string   `json:"props,omitempty"`

	FunctionCalls []string       `json:"functionCalls,omitempty"`
	UsedImports   []string       `json:"usedImports,omitempty"`
	UnusedImports []string       `json:"unusedImports,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Validate checks the minimal ingestion contract
func (e *Entity) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.Join(ErrInvalidEntity, errors.New("name is required"))
	}
	if strings.TrimSpace(e.FilePath) == "" {
		return errors.Join(ErrInvalidEntity, errors.New("file path is required"))
	}
	if e.LineNumber <= 0 {
		return errors.Join(ErrInvalidEntity, errors.New("line number must be positive"))
	}
	switch e.Kind {
	case "", KindFunction, KindComponent:
	default:
		return errors.Join(ErrInvalidEntity, errors.New("invalid entity kind"))
	}
	return nil
}

// Identity is the composite key of a record
type Identity struct {
	Name       string `json:"name"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`
}

// Key returns a stable string form of the identity, used as the index document key
func (id Identity) Key() string {
	return id.FilePath + "\x00" + id.Name + "\x00" + strconv.Itoa(id.LineNumber)
}

// String returns a readable form of the identity
func (id Identity) String() string {
	return id.FilePath + ":" + strconv.Itoa(id.LineNumber) + " " + id.Name
}

// FunctionInfo holds the function-specific arm of Metadata
type FunctionInfo struct {
	Receiver string `json:"receiver,omitempty"`
	Exported bool   `json:"exported,omitempty"`
	Async    bool   `json:"async,omitempty"`
}

// ComponentInfo holds the component-specific arm of Metadata
type ComponentInfo struct {
	ComponentType string   `json:"componentType,omitempty"`
	Hooks         []string `json:"hooks,omitempty"`
	Props         []string `json:"props,omitempty"`
}

// Metadata is a tagged union over entity kinds. EntityType selects which of
// Function or Component is populated. The call-graph and import fields are
// shared by both kinds; Extensions is reserved for analyzer-specific data.
type Metadata struct {
	SchemaVersion int        `json:"schemaVersion"`
	EntityType    EntityKind `json:"entityType"`

	Function  *FunctionInfo  `json:"function,omitempty"`
	Component *ComponentInfo `json:"component,omitempty"`

	FunctionCalls   []string `json:"functionCalls,omitempty"`
	CalledBy        []string `json:"calledBy,omitempty"`
	UsedImports     []string `json:"usedImports,omitempty"`
	UnusedImports   []string `json:"unusedImports,omitempty"`
	DependencyDepth *int     `json:"dependencyDepth,omitempty"`

	Extensions map[string]any `json:"extensions,omitempty"`
}

// Record is the canonical, indexable form of a code entity
type Record struct {
	Name       string `json:"name"`
	FilePath   string `json:"filePath"`
	LineNumber int    `json:"lineNumber"`

	Language      string        `json:"language,omitempty"`
	Signature     string        `json:"signature"`
	Parameters    []Parameter   `json:"parameters"`
	ReturnType    string        `json:"returnType,omitempty"`
	Purpose       string        `json:"purpose,omitempty"`
	Context       string        `json:"context,omitempty"`
	Documentation Documentation `json:"documentation"`
	Complexity    int           `json:"complexity,omitempty"`
	Dependencies  []string      `json:"dependencies,omitempty"`
	Body          string        `json:"body,omitempty"`
	TokenizedName []string      `json:"tokenizedName"`
	ModifiedAt    time.Time     `json:"modifiedAt,omitempty"`

	Metadata Metadata `json:"metadata"`
}

// Identity returns the composite identity of the record
func (r *Record) Identity() Identity {
	return Identity{Name: r.Name, FilePath: r.FilePath, LineNumber: r.LineNumber}
}

// Key is shorthand for r.Identity().Key()
func (r *Record) Key() string {
	return r.Identity().Key()
}

// QualifiedName returns the file-scoped call-graph name of the record
func (r *Record) QualifiedName() string {
	return QualifiedName(r.FilePath, r.Name)
}

// IsComponent reports whether the record describes a UI component
func (r *Record) IsComponent() bool {
	return r.Metadata.EntityType == KindComponent
}

// Clone returns a deep copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Parameters = append([]Parameter(nil), r.Parameters...)
	c.Documentation.Examples = cloneStrings(r.Documentation.Examples)
	c.Dependencies = cloneStrings(r.Dependencies)
	c.TokenizedName = cloneStrings(r.TokenizedName)

	m := r.Metadata
	if m.Function != nil {
		f := *m.Function
		m.Function = &f
	}
	if m.Component != nil {
		comp := *m.Component
		comp.Hooks = cloneStrings(comp.Hooks)
		comp.Props = cloneStrings(comp.Props)
		m.Component = &comp
	}
	m.FunctionCalls = cloneStrings(m.FunctionCalls)
	m.CalledBy = cloneStrings(m.CalledBy)
	m.UsedImports = cloneStrings(m.UsedImports)
	m.UnusedImports = cloneStrings(m.UnusedImports)
	if m.DependencyDepth != nil {
		d := *m.DependencyDepth
		m.DependencyDepth = &d
	}
	if m.Extensions != nil {
		ext := make(map[string]any, len(m.Extensions))
		for k, v := range m.Extensions {
			ext[k] = v
		}
		m.Extensions = ext
	}
	c.Metadata = m
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
