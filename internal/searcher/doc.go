// Package searcher implements multi-strategy search over the document store.
//
// The searcher provides three search modes:
//   - Metadata: full-text strategies over the indexed fields (default)
//   - Content: line scan over record bodies with match positions
//   - Both: union of the two with scores summed per record
//
// # Basic Usage
//
//	s := searcher.New(store, searcher.Options{})
//
//	result, err := s.Search(ctx, searcher.Request{
//	    Query: `"user service" lang:typescript -deprecated`,
//	    Limit: 10,
//	})
//
//	for _, r := range result.Results {
//	    fmt.Printf("%s:%d %s (score: %.0f)\n",
//	        r.Record.FilePath, r.Record.LineNumber, r.Record.Name, r.Score)
//	}
//
// # Strategies
//
// Metadata mode runs every strategy and sums the scores:
//
//   - Phrase: +100 for each quoted phrase found in the search fields
//   - Conjunctive: +80 when every query term (or a synonym) matches,
//     plus +15 name, +10 signature, +8 purpose/summary, +5 long docs
//   - Disjunctive: +40 +10 per distinct matching expanded term
//   - Fuzzy (~): +30 when an indexed word is within edit distance 1
//     (words up to four letters) or 2 of a term
//
// Content mode adds +100 per phrase and +20 per term occurrence in the body.
//
// # Filtering and Paging
//
// Records containing an excluded term are dropped, then filters apply.
// A query with only filters returns every matching record with score 1.
// Results are sorted by score, then file, line and name; TotalCount is
// taken before Offset and Limit are applied.
//
// # Caching
//
// Results are cached in an LRU keyed by a SHA-256 hash of the parsed query,
// filters, mode, paging and the store generation, so any store mutation
// makes earlier entries unreachable. Entries also expire after CacheTTL.
package searcher
