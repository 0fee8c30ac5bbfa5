package searcher

import (
	"context"
	"strings"

	"github.com/dshills/codexref/internal/query"
	"github.com/dshills/codexref/internal/storage"
	"github.com/dshills/codexref/pkg/types"
)

// Strategy weights. Scores from every strategy are summed per record.
const (
	PhraseWeight          = 100.0
	ConjunctiveWeight     = 80.0
	DisjunctiveWeight     = 40.0
	DisjunctivePerTerm    = 10.0
	FuzzyWeight           = 30.0
	ContentPhraseWeight   = 100.0
	ContentTermWeight     = 20.0
	BaselineScore         = 1.0
	NameBonus             = 15.0
	SignatureBonus        = 10.0
	SummaryBonus          = 8.0
	DocumentationBonus    = 5.0
	maxFuzzyTermsPerQuery = 200
)

// metadataSearch runs the phrase, conjunctive, disjunctive and fuzzy
// strategies against the full-text index.
func (s *Searcher) metadataSearch(ctx context.Context, q *types.ParsedQuery, byKey map[string]*types.Record, hits map[string]*hit) error {
	index := s.store.Index()
	if index == nil {
		return types.ErrNotInitialized
	}

	add := func(key string, score float64) {
		if _, ok := byKey[key]; !ok {
			return
		}
		h := hits[key]
		if h == nil {
			h = &hit{}
			hits[key] = h
		}
		h.score += score
	}

	if err := phraseStrategy(ctx, index, q, add); err != nil {
		return err
	}
	if err := conjunctiveStrategy(ctx, index, q, byKey, add); err != nil {
		return err
	}
	if err := disjunctiveStrategy(ctx, index, q, add); err != nil {
		return err
	}
	if q.Fuzzy {
		if err := fuzzyStrategy(ctx, index, q, add); err != nil {
			return err
		}
	}
	return nil
}

// phraseStrategy adds PhraseWeight per phrase a document matches exactly
func phraseStrategy(ctx context.Context, index storage.FullTextIndex, q *types.ParsedQuery, add func(string, float64)) error {
	for _, phrase := range q.Phrases {
		if !storage.Searchable(phrase) {
			continue
		}
		keys, err := index.Match(ctx, storage.Restrict(q.SearchFields, storage.Quote(phrase)))
		if err != nil {
			return err
		}
		for _, key := range keys {
			add(key, PhraseWeight)
		}
	}
	return nil
}

// conjunctiveStrategy requires every original term, or one of its synonyms,
// to match. Matching documents get ConjunctiveWeight plus field bonuses.
func conjunctiveStrategy(ctx context.Context, index storage.FullTextIndex, q *types.ParsedQuery, byKey map[string]*types.Record, add func(string, float64)) error {
	var matched map[string]bool
	for _, term := range q.OriginalTerms {
		expr := orGroup(term)
		if expr == "" {
			continue
		}
		keys, err := index.Match(ctx, storage.Restrict(q.SearchFields, expr))
		if err != nil {
			return err
		}

		group := make(map[string]bool, len(keys))
		for _, key := range keys {
			if matched == nil || matched[key] {
				group[key] = true
			}
		}
		matched = group
		if len(matched) == 0 {
			return nil
		}
	}

	for key := range matched {
		add(key, ConjunctiveWeight+fieldBonus(byKey[key], q.Terms))
	}
	return nil
}

// orGroup builds the expression for one original term: the term, any of its
// synonyms, or all of its compound sub-tokens.
func orGroup(term string) string {
	lower := strings.ToLower(term)
	alternatives := []string{}
	if e := storage.AnyOf(append([]string{lower}, query.Synonyms(lower)...)); e != "" {
		alternatives = append(alternatives, e)
	}
	if subs := query.SubTokens(term); len(subs) > 0 {
		if e := storage.AllOf(subs); e != "" {
			alternatives = append(alternatives, e)
		}
	}
	switch len(alternatives) {
	case 0:
		return ""
	case 1:
		return alternatives[0]
	default:
		return "(" + strings.Join(alternatives, " OR ") + ")"
	}
}

// fieldBonus rewards records whose prominent fields contain a query term
func fieldBonus(rec *types.Record, terms []string) float64 {
	if rec == nil {
		return 0
	}
	var bonus float64
	if containsAny(strings.ToLower(rec.Name+" "+strings.Join(rec.TokenizedName, " ")), terms) {
		bonus += NameBonus
	}
	if containsAny(strings.ToLower(rec.Signature), terms) {
		bonus += SignatureBonus
	}
	if containsAny(strings.ToLower(rec.Purpose+" "+rec.Documentation.Summary), terms) {
		bonus += SummaryBonus
	}
	long := rec.Documentation.Description + " " + strings.Join(rec.Documentation.Examples, " ")
	if containsAny(strings.ToLower(long), terms) {
		bonus += DocumentationBonus
	}
	return bonus
}

func containsAny(text string, terms []string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

// disjunctiveStrategy matches any expanded term and rewards breadth
func disjunctiveStrategy(ctx context.Context, index storage.FullTextIndex, q *types.ParsedQuery, add func(string, float64)) error {
	counts := make(map[string]int)
	for _, term := range q.Terms {
		if !storage.Searchable(term) {
			continue
		}
		keys, err := index.Match(ctx, storage.Restrict(q.SearchFields, storage.Quote(term)))
		if err != nil {
			return err
		}
		for _, key := range keys {
			counts[key]++
		}
	}
	for key, n := range counts {
		add(key, DisjunctiveWeight+DisjunctivePerTerm*float64(n))
	}
	return nil
}

// fuzzyStrategy expands every term to the indexed words within a small edit
// distance and matches any of them.
func fuzzyStrategy(ctx context.Context, index storage.FullTextIndex, q *types.ParsedQuery, add func(string, float64)) error {
	vocab, err := index.Vocabulary(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	var variants []string
	for _, term := range q.Terms {
		term = strings.ToLower(term)
		limit := MaxEditDistance(term)
		for _, word := range vocab {
			if seen[word] {
				continue
			}
			if WithinDistance(term, word, limit) {
				seen[word] = true
				variants = append(variants, word)
			}
		}
	}

	matched := make(map[string]bool)
	for start := 0; start < len(variants); start += maxFuzzyTermsPerQuery {
		end := start + maxFuzzyTermsPerQuery
		if end > len(variants) {
			end = len(variants)
		}
		expr := storage.AnyOf(variants[start:end])
		if expr == "" {
			continue
		}
		keys, err := index.Match(ctx, storage.Restrict(q.SearchFields, expr))
		if err != nil {
			return err
		}
		for _, key := range keys {
			matched[key] = true
		}
	}
	for key := range matched {
		add(key, FuzzyWeight)
	}
	return nil
}

// excludedKeys returns the records to drop because they contain an excluded
// term: in their indexed text, and for content searches in their body.
func (s *Searcher) excludedKeys(ctx context.Context, q *types.ParsedQuery, records []*types.Record, mode types.SearchMode) (map[string]bool, error) {
	excluded := make(map[string]bool)
	if len(q.ExcludedTerms) == 0 {
		return excluded, nil
	}

	if expr := storage.AnyOf(q.ExcludedTerms); expr != "" {
		index := s.store.Index()
		if index == nil {
			return nil, types.ErrNotInitialized
		}
		keys, err := index.Match(ctx, expr)
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			excluded[key] = true
		}
	}

	if mode == types.ModeContent || mode == types.ModeBoth {
		for _, rec := range records {
			if containsAny(strings.ToLower(rec.Body), q.ExcludedTerms) {
				excluded[rec.Key()] = true
			}
		}
	}
	return excluded, nil
}
