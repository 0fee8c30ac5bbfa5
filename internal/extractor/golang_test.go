package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

const userSource = `package testpkg

import (
	"fmt"
	"strings"
)

// User represents a user in the system
type User struct {
	ID   int
	Name string
}

// GetName returns the user's name. It never fails.
//
// Example:
//
//	u.GetName()
func (u *User) GetName() string {
	return u.Name
}

// NewUser creates a new user
func NewUser(id int, name string) *User {
	if id < 0 || name == "" {
		return nil
	}
	return &User{ID: id, Name: normalize(name)}
}

func normalize(s string) string {
	return strings.TrimSpace(s)
}

func describeUser(u *User) string {
	fmt.Println(u.GetName())
	return u.GetName()
}
`

func extract(t *testing.T, src string) map[string]types.Entity {
	t.Helper()
	entities, err := NewGoExtractor().Extract(context.Background(), "pkg/user.go", []byte(src))
	require.NoError(t, err)
	byName := make(map[string]types.Entity, len(entities))
	for _, e := range entities {
		byName[e.Name] = e
	}
	return byName
}

func TestGoExtractor_Functions(t *testing.T) {
	entities := extract(t, userSource)
	require.Len(t, entities, 4)

	getName := entities["GetName"]
	assert.Equal(t, "User", getName.Receiver)
	assert.True(t, getName.Exported)
	assert.Equal(t, "func (*User) GetName() string", getName.Signature)
	assert.Equal(t, "string", getName.ReturnType)
	assert.Equal(t, LanguageGo, getName.Language)
	assert.Equal(t, types.KindFunction, getName.Kind)
	assert.Equal(t, 19, getName.LineNumber)
	assert.Equal(t, PatternAccessor, getName.Extensions["pattern"])
	assert.Equal(t, "testpkg", getName.Extensions["package"])

	newUser := entities["NewUser"]
	assert.Equal(t, "func NewUser(id int, name string) *User", newUser.Signature)
	require.Len(t, newUser.Parameters, 2)
	assert.Equal(t, types.Parameter{Name: "id", Type: "int"}, newUser.Parameters[0])
	assert.Equal(t, PatternConstructor, newUser.Extensions["pattern"])
	assert.Equal(t, "function in package testpkg", newUser.Context)

	assert.False(t, entities["normalize"].Exported)
}

func TestGoExtractor_Documentation(t *testing.T) {
	entities := extract(t, userSource)

	doc := entities["GetName"].Documentation
	require.NotNil(t, doc)
	assert.True(t, doc.HasDocBlock)
	assert.Equal(t, "GetName returns the user's name.", doc.Summary)
	assert.Equal(t, []string{"u.GetName()"}, doc.Examples)
	assert.Equal(t, doc.Summary, entities["GetName"].Purpose)

	undocumented := entities["normalize"].Documentation
	require.NotNil(t, undocumented)
	assert.False(t, undocumented.HasDocBlock)
}

func TestGoExtractor_Body(t *testing.T) {
	entities := extract(t, userSource)
	body := entities["normalize"].Body
	assert.True(t, len(body) > 0)
	assert.Contains(t, body, "func normalize(s string) string {")
	assert.Contains(t, body, "strings.TrimSpace(s)")
}

func TestGoExtractor_Complexity(t *testing.T) {
	entities := extract(t, userSource)
	assert.Equal(t, 1, entities["GetName"].Complexity)
	// one if plus one ||
	assert.Equal(t, 3, entities["NewUser"].Complexity)
}

func TestGoExtractor_Calls(t *testing.T) {
	entities := extract(t, userSource)

	assert.Equal(t, []string{"pkg/user.go#normalize"}, entities["NewUser"].FunctionCalls)
	assert.Equal(t, []string{"strings.TrimSpace"}, entities["normalize"].FunctionCalls)
	assert.ElementsMatch(t, []string{"fmt.Println", "GetName"}, entities["describeUser"].FunctionCalls)
}

func TestGoExtractor_Imports(t *testing.T) {
	entities := extract(t, userSource)

	for _, e := range entities {
		assert.ElementsMatch(t, []string{"fmt", "strings"}, e.Dependencies)
		assert.Empty(t, e.UnusedImports)
	}
	assert.Equal(t, []string{"strings"}, entities["normalize"].UsedImports)
	assert.Equal(t, []string{"fmt"}, entities["describeUser"].UsedImports)
	assert.Empty(t, entities["GetName"].UsedImports)
}

func TestGoExtractor_UnusedImports(t *testing.T) {
	src := `package p

import (
	"os"
	str "strings"
	_ "embed"
)

func Trim(s string) string {
	return str.TrimSpace(s)
}
`
	entities := extract(t, src)
	assert.Equal(t, []string{"os"}, entities["Trim"].UnusedImports)
	assert.Equal(t, []string{"strings"}, entities["Trim"].UsedImports)
}

func TestGoExtractor_SyntaxError(t *testing.T) {
	_, err := NewGoExtractor().Extract(context.Background(), "bad.go", []byte("package p\nfunc broken( {"))
	assert.Error(t, err)
}

func TestGoExtractor_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGoExtractor().Extract(ctx, "a.go", []byte("package p"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"fmt", "fmt"},
		{"net/http", "http"},
		{"github.com/hashicorp/golang-lru/v2", "golang_lru"},
		{"gopkg.in/yaml.v3", "yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, importName(tt.path))
		})
	}
}

func TestDetectPattern(t *testing.T) {
	tests := []struct {
		name     string
		receiver string
		want     string
	}{
		{"NewServer", "", PatternConstructor},
		{"TestParse", "", PatternTest},
		{"BenchmarkSearch", "", PatternBenchmark},
		{"Save", "UserRepository", PatternRepository},
		{"Run", "BillingService", PatternService},
		{"ServeHTTP", "api", PatternHandler},
		{"Execute", "CreateUserCommand", PatternCommand},
		{"GetID", "Order", PatternAccessor},
		{"helper", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, detectPattern(tt.name, tt.receiver))
		})
	}
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.True(t, r.Supports("main.go"))
	assert.False(t, r.Supports("README.md"))

	_, err := r.Extract(context.Background(), "README.md", nil)
	assert.ErrorIs(t, err, types.ErrUnsupported)

	entities, err := r.Extract(context.Background(), "a.go", []byte("package p\nfunc A() {}\n"))
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "A", entities[0].Name)
}
