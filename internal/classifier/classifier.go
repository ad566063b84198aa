// Package classifier maps raw category labels and food display names to
// canonical category ids using exact, substring, and multi-word heuristics
// with a safe default. A Classifier is pure and immutable after construction.
package classifier

import (
	"sort"
	"strconv"
	"strings"
)

// MatchMethod records which heuristic produced a classification. Collected
// for diagnostics only, never stored.
type MatchMethod string

const (
	// MatchDirectID means the raw label was a known numeric category id
	MatchDirectID MatchMethod = "direct_id"
	// MatchExact means the normalized label equaled a known term
	MatchExact MatchMethod = "exact_match"
	// MatchName means a known term appeared as a substring of the food name
	MatchName MatchMethod = "name_match"
	// MatchMultiWord means every word of a multi-word variant appeared in the
	// food name
	MatchMultiWord MatchMethod = "multi_word_match"
	// MatchDefault means no heuristic matched
	MatchDefault MatchMethod = "default"
)

// Methods lists every match method in priority order
var Methods = []MatchMethod{MatchDirectID, MatchExact, MatchName, MatchMultiWord, MatchDefault}

type variantTerm struct {
	term       string
	words      []string
	categoryID int64
}

// Classifier resolves food rows to category ids. Construct with New; safe
// for concurrent use.
type Classifier struct {
	defaultID int64
	validIDs  map[int64]struct{}
	// termToID backs exact_match lookups: normalized category names plus
	// every variant and brand term
	termToID map[string]int64
	// scanOrder fixes the term iteration order for name_match so
	// classification is deterministic
	scanOrder []string
	variants  []variantTerm
}

// New builds a Classifier from cfg. Variant and brand terms of categories not
// present in cfg.Categories are ignored.
func New(cfg Config) *Classifier {
	c := &Classifier{
		defaultID: cfg.DefaultCategoryID,
		validIDs:  make(map[int64]struct{}, len(cfg.Categories)),
		termToID:  make(map[string]int64),
	}

	// Canonical names first, ordered by id
	ids := make([]int64, 0, len(cfg.Categories))
	nameToID := make(map[string]int64, len(cfg.Categories))
	for id, name := range cfg.Categories {
		c.validIDs[id] = struct{}{}
		ids = append(ids, id)
		nameToID[Normalize(name)] = id
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		c.addTerm(Normalize(cfg.Categories[id]), id)
	}

	// Then variant and brand terms, category names in sorted order so the
	// name_match scan order is stable across runs
	for _, table := range []map[string][]string{cfg.Variants, cfg.Brands} {
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			id, ok := nameToID[Normalize(name)]
			if !ok {
				continue
			}
			for _, term := range table[name] {
				norm := Normalize(term)
				if norm == "" {
					continue
				}
				c.addTerm(norm, id)
				c.variants = append(c.variants, variantTerm{
					term:       norm,
					words:      strings.Fields(norm),
					categoryID: id,
				})
			}
		}
	}

	return c
}

func (c *Classifier) addTerm(term string, id int64) {
	if _, ok := c.termToID[term]; !ok {
		c.scanOrder = append(c.scanOrder, term)
	}
	c.termToID[term] = id
}

// DefaultCategoryID returns the configured fallback category
func (c *Classifier) DefaultCategoryID() int64 {
	return c.defaultID
}

// Classify resolves a food to a category id. Heuristics in priority order:
// numeric label that is a known id, exact term match on the label, substring
// term match on the food name, order-independent multi-word variant match on
// the food name, configured default.
func (c *Classifier) Classify(foodName, rawLabel string) (int64, MatchMethod) {
	label := strings.TrimSpace(rawLabel)
	if id, err := strconv.ParseInt(label, 10, 64); err == nil {
		if _, ok := c.validIDs[id]; ok {
			return id, MatchDirectID
		}
	}

	normLabel := Normalize(label)
	normName := Normalize(foodName)

	if id, ok := c.termToID[normLabel]; ok && normLabel != "" {
		return id, MatchExact
	}

	for _, term := range c.scanOrder {
		if strings.Contains(normName, term) {
			return c.termToID[term], MatchName
		}
	}

	nameWords := make(map[string]struct{})
	for _, w := range strings.Fields(normName) {
		nameWords[w] = struct{}{}
	}
	for _, v := range c.variants {
		if allWordsPresent(v.words, nameWords) {
			return v.categoryID, MatchMultiWord
		}
	}

	return c.defaultID, MatchDefault
}

func allWordsPresent(words []string, set map[string]struct{}) bool {
	for _, w := range words {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return len(words) > 0
}

// Normalize lowercases s, replaces every character outside [a-z0-9 ] with a
// space, and collapses runs of whitespace
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Stats accumulates per-method classification counts during a food import
type Stats struct {
	counts map[MatchMethod]int64
	total  int64
}

// NewStats creates an empty Stats
func NewStats() *Stats {
	return &Stats{counts: make(map[MatchMethod]int64)}
}

// Record counts one classification outcome
func (s *Stats) Record(m MatchMethod) {
	s.counts[m]++
	s.total++
}

// Count returns the number of classifications for one method
func (s *Stats) Count(m MatchMethod) int64 {
	return s.counts[m]
}

// Total returns the number of classifications recorded
func (s *Stats) Total() int64 {
	return s.total
}

// Counts returns a copy of the per-method counts
func (s *Stats) Counts() map[MatchMethod]int64 {
	out := make(map[MatchMethod]int64, len(s.counts))
	for m, n := range s.counts {
		out[m] = n
	}
	return out
}
