package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codexref/pkg/types"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"getUserData", []string{"get", "User", "Data"}},
		{"GetUserData", []string{"Get", "User", "Data"}},
		{"get_user_data", []string{"get", "user", "data"}},
		{"HTTPServer", []string{"HTTP", "Server"}},
		{"parseJSON", []string{"parse", "JSON"}},
		{"v2Handler", []string{"v2", "Handler"}},
		{"use-auth-hook", []string{"use", "auth", "hook"}},
		{"simple", []string{"simple"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.input))
		})
	}
}

func TestTokenizeName(t *testing.T) {
	assert.Equal(t, []string{"get", "user", "data", "getUserData"}, TokenizeName("getUserData"))
	assert.Equal(t, []string{"render"}, TokenizeName("render"), "single lowercase word is not repeated")
	assert.Equal(t, []string{"user", "user_user"}, TokenizeName("user_user"))
}

func TestNormalize_Defaults(t *testing.T) {
	rec := Normalize(types.Entity{
		Name:       "getUserData",
		FilePath:   "src/users.ts",
		LineNumber: 12,
		Language:   "typescript",
		Purpose:    "Loads the user profile",
	})

	require.NotNil(t, rec)
	assert.Equal(t, "getUserData()", rec.Signature)
	assert.NotNil(t, rec.Parameters)
	assert.Empty(t, rec.Parameters)
	assert.Equal(t, "Loads the user profile", rec.Documentation.Summary)
	assert.Contains(t, rec.TokenizedName, "user")
	assert.Contains(t, rec.TokenizedName, "getUserData")
	assert.Equal(t, types.KindFunction, rec.Metadata.EntityType)
	assert.NotNil(t, rec.Metadata.Function)
	assert.Nil(t, rec.Metadata.Component)
	assert.Equal(t, types.MetadataSchemaVersion, rec.Metadata.SchemaVersion)
}

func TestNormalize_SignatureFromParameters(t *testing.T) {
	rec := Normalize(types.Entity{
		Name:       "fetchOrders",
		FilePath:   "orders.ts",
		LineNumber: 3,
		Parameters: []types.Parameter{
			{Name: "userId", Type: "string"},
			{Name: "opts", Type: "Options", Optional: true},
		},
		ReturnType: "Promise<Order[]>",
	})

	assert.Equal(t, "fetchOrders(userId: string, opts?: Options): Promise<Order[]>", rec.Signature)
}

func TestNormalize_KeepsExplicitFields(t *testing.T) {
	doc := &types.Documentation{Summary: "Custom summary", Examples: []string{"foo()"}, HasDocBlock: true}
	e := types.Entity{
		Name:          "UserCard",
		FilePath:      "components/UserCard.tsx",
		LineNumber:    1,
		Signature:     "UserCard(props: Props)",
		Documentation: doc,
		Kind:          types.KindComponent,
		ComponentType: "functional",
		Hooks:         []string{"useState", "useEffect", "useState"},
		FunctionCalls: []string{"formatName", "formatName"},
	}

	rec := Normalize(e)
	assert.Equal(t, "UserCard(props: Props)", rec.Signature)
	assert.Equal(t, "Custom summary", rec.Documentation.Summary)
	assert.True(t, rec.Documentation.HasDocBlock)
	require.NotNil(t, rec.Metadata.Component)
	assert.Nil(t, rec.Metadata.Function)
	assert.Equal(t, []string{"useState", "useEffect"}, rec.Metadata.Component.Hooks)
	assert.Equal(t, []string{"formatName"}, rec.Metadata.FunctionCalls)

	// The record must not alias the entity's slices
	rec.Documentation.Examples[0] = "changed"
	assert.Equal(t, "foo()", doc.Examples[0])
}

func TestNormalize_EmptySummaryFallsBackToPurpose(t *testing.T) {
	rec := Normalize(types.Entity{
		Name:          "save",
		FilePath:      "a.go",
		LineNumber:    1,
		Purpose:       "Persists the draft",
		Documentation: &types.Documentation{Description: "long text"},
	})
	assert.Equal(t, "Persists the draft", rec.Documentation.Summary)
	assert.Equal(t, "long text", rec.Documentation.Description)
}

func TestNormalizeAll(t *testing.T) {
	recs := NormalizeAll([]types.Entity{
		{Name: "a", FilePath: "x.go", LineNumber: 1},
		{Name: "b", FilePath: "x.go", LineNumber: 2},
	})
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].Name)
	assert.Equal(t, "b", recs[1].Name)
}
