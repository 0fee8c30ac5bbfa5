package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codexref/internal/query"
	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

const (
	DefaultLimit     = 50
	MaxLimit         = 1000
	DefaultCacheSize = 1000
	DefaultCacheTTL  = 5 * time.Minute
)

// Request contains parameters for a search operation.
// Parsed takes precedence over Query when both are set.
type Request struct {
	Query    string
	Parsed   *types.ParsedQuery
	Filters  *types.Filters
	Limit    int
	Offset   int
	Mode     types.SearchMode
	UseCache bool // Whether to use query cache
	CacheTTL time.Duration
}

// Options configures a Searcher
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Logger    *slog.Logger
}

// cacheEntry represents a cached search result with expiration time
type cacheEntry struct {
	result    *types.SearchResult
	expiresAt time.Time
}

// Searcher runs multi-strategy searches over a document store
type Searcher struct {
	store    storage.Store
	log      *slog.Logger
	cacheTTL time.Duration
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// New creates a new Searcher instance
func New(store storage.Store, opts Options) *Searcher {
	size := opts.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, *cacheEntry](size)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		store:    store,
		log:      logger.With("component", "searcher"),
		cacheTTL: ttl,
		cache:    cache,
	}
}

// hit accumulates the score of one record across strategies
type hit struct {
	score   float64
	matches []types.ContentMatch
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req Request) (*types.SearchResult, error) {
	startTime := time.Now()

	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	parsed := resolveQuery(req)
	filters := parsed.Filters.Merge(req.Filters)

	// The store generation is part of the key so any mutation invalidates old entries
	hash := computeQueryHash(parsed, filters, req, s.store.Generation())
	if req.UseCache {
		if cached := s.checkCache(hash); cached != nil {
			cached.CacheHit = true
			cached.ExecutionTime = time.Since(startTime)
			return cached, nil
		}
	}

	records, err := s.store.All()
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]*types.Record, len(records))
	for _, rec := range records {
		byKey[rec.Key()] = rec
	}

	hits := make(map[string]*hit)
	if parsed.IsEmpty() {
		// Pure filter browsing
		for key := range byKey {
			hits[key] = &hit{score: BaselineScore}
		}
	} else {
		if req.Mode == types.ModeMetadata || req.Mode == types.ModeBoth {
			if err := s.metadataSearch(ctx, parsed, byKey, hits); err != nil {
				return nil, err
			}
		}
		if req.Mode == types.ModeContent || req.Mode == types.ModeBoth {
			contentSearch(records, parsed, hits)
		}
	}

	excluded, err := s.excludedKeys(ctx, parsed, records, req.Mode)
	if err != nil {
		return nil, err
	}

	results := make([]types.ScoredRecord, 0, len(hits))
	for key, h := range hits {
		rec, ok := byKey[key]
		if !ok || excluded[key] || !MatchFilters(rec, filters) {
			continue
		}
		results = append(results, types.ScoredRecord{Record: rec, Score: h.score, Matches: h.matches})
	}
	sortResults(results)

	result := &types.SearchResult{
		TotalCount: len(results),
		Mode:       req.Mode,
		Results:    paginate(results, req.Offset, req.Limit),
	}
	result.ExecutionTime = time.Since(startTime)

	s.log.Debug("search complete",
		slog.String("mode", string(req.Mode)),
		slog.Int("total", result.TotalCount),
		slog.Duration("duration", result.ExecutionTime))

	if req.UseCache {
		s.storeInCache(hash, result, req.CacheTTL)
	}
	return result, nil
}

// resolveQuery returns a private copy of the parsed query of req
func resolveQuery(req Request) *types.ParsedQuery {
	if req.Parsed == nil {
		return query.Parse(req.Query)
	}
	q := *req.Parsed
	if len(q.SearchFields) == 0 {
		q.SearchFields = types.DefaultSearchFields
	}
	return &q
}

// validateRequest ensures search request is valid
func (s *Searcher) validateRequest(req *Request) error {
	if req.Mode == "" {
		req.Mode = types.ModeMetadata // Default mode
	}
	if !types.ValidSearchMode(req.Mode) {
		return fmt.Errorf("%w: %s", types.ErrInvalidMode, req.Mode)
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit // Default limit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit // Max limit
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	if req.CacheTTL <= 0 {
		req.CacheTTL = s.cacheTTL // Default TTL
	}
	return nil
}

// sortResults orders by score descending, then by file, line and name
func sortResults(results []types.ScoredRecord) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Record.FilePath != b.Record.FilePath {
			return a.Record.FilePath < b.Record.FilePath
		}
		if a.Record.LineNumber != b.Record.LineNumber {
			return a.Record.LineNumber < b.Record.LineNumber
		}
		return a.Record.Name < b.Record.Name
	})
}

func paginate(results []types.ScoredRecord, offset, limit int) []types.ScoredRecord {
	if offset >= len(results) {
		return []types.ScoredRecord{}
	}
	end := offset + limit
	if end > len(results) {
		end = len(results)
	}
	return results[offset:end]
}

// checkCache looks up a cached search result, nil on miss or expiry
func (s *Searcher) checkCache(hash [32]byte) *types.SearchResult {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	// Check if entry has expired while holding read lock to avoid race condition
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		// Remove expired entry - need write lock
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	result := copySearchResult(entry.result)
	s.cacheMu.RUnlock()
	return result
}

// storeInCache saves search results to cache
func (s *Searcher) storeInCache(hash [32]byte, result *types.SearchResult, ttl time.Duration) {
	entry := &cacheEntry{
		result:    copySearchResult(result),
		expiresAt: time.Now().Add(ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached result
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached results
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResult creates a deep copy of a SearchResult
func copySearchResult(src *types.SearchResult) *types.SearchResult {
	if src == nil {
		return nil
	}
	dst := *src
	dst.Results = make([]types.ScoredRecord, len(src.Results))
	for i, r := range src.Results {
		dst.Results[i] = types.ScoredRecord{
			Record: r.Record.Clone(),
			Score:  r.Score,
		}
		if r.Matches != nil {
			dst.Results[i].Matches = make([]types.ContentMatch, len(r.Matches))
			for j, m := range r.Matches {
				m.Terms = append([]string(nil), m.Terms...)
				m.Context = append([]string(nil), m.Context...)
				dst.Results[i].Matches[j] = m
			}
		}
	}
	return &dst
}

// computeQueryHash computes a unique hash for a normalized search request
func computeQueryHash(parsed *types.ParsedQuery, filters types.Filters, req Request, generation uint64) [32]byte {
	key := struct {
		Query      *types.ParsedQuery
		Filters    types.Filters
		Mode       types.SearchMode
		Limit      int
		Offset     int
		Generation uint64
	}{parsed, filters, req.Mode, req.Limit, req.Offset, generation}

	// encoding/json sorts map keys, so equal requests hash equally
	data, err := json.Marshal(key)
	if err != nil {
		data = []byte(fmt.Sprintf("%+v|%+v|%s|%d|%d|%d", *parsed, filters, req.Mode, req.Limit, req.Offset, generation))
	}
	return sha256.Sum256(data)
}
