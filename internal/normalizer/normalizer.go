// Package normalizer converts raw extractor output into canonical index records.
package normalizer

import (
	"strings"

	"github.com/dshills/codexref/pkg/types"
)

// Normalize converts a raw entity into a canonical record. It never fails:
// missing optional fields are filled with safe defaults. The input is not
// modified and the returned record shares no slices with it.
func Normalize(e types.Entity) *types.Record {
	rec := &types.Record{
		Name:         strings.TrimSpace(e.Name),
		FilePath:     e.FilePath,
		LineNumber:   e.LineNumber,
		Language:     e.Language,
		Signature:    strings.TrimSpace(e.Signature),
		ReturnType:   e.ReturnType,
		Purpose:      e.Purpose,
		Context:      e.Context,
		Complexity:   e.Complexity,
		Dependencies: dedupe(e.Dependencies),
		Body:         e.Body,
	}

	rec.Parameters = make([]types.Parameter, 0, len(e.Parameters))
	rec.Parameters = append(rec.Parameters, e.Parameters...)

	if rec.Signature == "" {
		rec.Signature = defaultSignature(rec.Name, rec.Parameters, rec.ReturnType)
	}

	if e.Documentation != nil {
		rec.Documentation = *e.Documentation
		rec.Documentation.Examples = append([]string(nil), e.Documentation.Examples...)
	}
	if strings.TrimSpace(rec.Documentation.Summary) == "" {
		rec.Documentation.Summary = e.Purpose
	}

	rec.TokenizedName = TokenizeName(rec.Name)
	rec.Metadata = buildMetadata(e)

	return rec
}

// NormalizeAll normalizes a batch of entities, preserving order
func NormalizeAll(entities []types.Entity) []*types.Record {
	records := make([]*types.Record, 0, len(entities))
	for i := range entities {
		records = append(records, Normalize(entities[i]))
	}
	return records
}

func buildMetadata(e types.Entity) types.Metadata {
	m := types.Metadata{
		SchemaVersion: types.MetadataSchemaVersion,
		EntityType:    e.Kind,
		FunctionCalls: dedupe(e.FunctionCalls),
		UsedImports:   dedupe(e.UsedImports),
		UnusedImports: dedupe(e.UnusedImports),
	}
	if m.EntityType == "" {
		m.EntityType = types.KindFunction
	}

	switch m.EntityType {
	case types.KindComponent:
		m.Component = &types.ComponentInfo{
			ComponentType: e.ComponentType,
			Hooks:         dedupe(e.Hooks),
			Props:         dedupe(e.Props),
		}
	default:
		m.Function = &types.FunctionInfo{
			Receiver: e.Receiver,
			Exported: e.Exported,
			Async:    e.Async,
		}
	}

	if len(e.Extensions) > 0 {
		m.Extensions = make(map[string]any, len(e.Extensions))
		for k, v := range e.Extensions {
			m.Extensions[k] = v
		}
	}
	return m
}

// defaultSignature renders name(a, b): ret from the parameter list
func defaultSignature(name string, params []types.Parameter, returnType string) string {
	var sig strings.Builder
	sig.WriteString(name)
	sig.WriteString("(")
	for i, p := range params {
		if i > 0 {
			sig.WriteString(", ")
		}
		sig.WriteString(p.Name)
		if p.Optional {
			sig.WriteString("?")
		}
		if p.Type != "" {
			sig.WriteString(": ")
			sig.WriteString(p.Type)
		}
	}
	sig.WriteString(")")
	if returnType != "" {
		sig.WriteString(": ")
		sig.WriteString(returnType)
	}
	return sig.String()
}

// dedupe removes empty and repeated entries, keeping first-seen order
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
