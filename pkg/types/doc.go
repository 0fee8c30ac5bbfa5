// Package types provides shared type definitions for the codexref index.
//
// This package defines the domain types used across the engine: raw entities
// reported by extractors, canonical records held by the document store,
// parsed queries, search results and the result types of batch operations.
//
// # Entities and Records
//
// Entity is the ingestion contract. Extractors fill in what they know:
//
//	entity := types.Entity{
//	    Name:       "getUserData",
//	    FilePath:   "src/api/users.ts",
//	    LineNumber: 42,
//	    Language:   "typescript",
//	    Purpose:    "Loads a user profile",
//	}
//
// The normalizer turns an Entity into a Record, the canonical unit of the
// index. A record is identified by (Name, FilePath, LineNumber):
//
//	id := record.Identity()
//	key := id.Key() // stable document key
//
// # Metadata
//
// Record metadata is a tagged union. EntityType selects the populated arm:
//
//	switch rec.Metadata.EntityType {
//	case types.KindFunction:
//	    _ = rec.Metadata.Function.Receiver
//	case types.KindComponent:
//	    _ = rec.Metadata.Component.Hooks
//	}
//
// Call-graph edges are stored as qualified names ("file#name"):
//
//	types.QualifiedName("a.ts", "foo") // "a.ts#foo"
//
// # Queries
//
// ParsedQuery is produced by the query parser and consumed by the searcher.
// Filters carry the structured predicates extracted from query operators.
package types
