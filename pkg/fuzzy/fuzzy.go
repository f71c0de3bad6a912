// Package fuzzy ranks entry names against a partial query.
//
// Scoring is fzf's V2 algorithm: every query rune must appear in the name
// in order, and consecutive runs, word boundaries and camelCase humps
// score higher than scattered hits. Names and query are compared
// case-insensitively after folding accents, so "cafe" finds "Café".
//
// Ranking rules:
//
//   - a query equal to exactly one name (case-sensitive) returns only
//     that name, whatever else would have matched
//   - a name is a candidate when its score reaches MinScorePerRune for
//     every rune of the query
//   - candidates are ordered by descending score, then by their position
//     in the input, so equal inputs always produce equal output
package fuzzy

import (
	"cmp"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinScorePerRune is half of fzf's score for a single matched
// character. A query whose matches are spread so thinly that gap
// penalties eat more than half the score is not considered a match.
const DefaultMinScorePerRune = 8

var initAlgo sync.Once

// Match is a ranked candidate.
type Match struct {
	Name  string
	Index int // position in the slice passed to Rank
	Score int
	Exact bool
}

// Matcher ranks names against queries.
type Matcher struct {
	minScorePerRune int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMinScorePerRune sets the per-rune threshold. Values below 1 are
// raised to 1 so that a name without every query rune never matches.
func WithMinScorePerRune(n int) Option {
	return func(m *Matcher) { m.minScorePerRune = max(n, 1) }
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	initAlgo.Do(func() { algo.Init("default") })

	m := &Matcher{minScorePerRune: DefaultMinScorePerRune}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Threshold returns the minimum score for a query.
func (m *Matcher) Threshold(query string) int {
	return m.minScorePerRune * len([]rune(fold(query)))
}

// Rank returns the names matching query, best first.
func (m *Matcher) Rank(query string, names []string) []Match {
	if query == "" {
		return nil
	}

	if index, ok := exactIndex(query, names); ok {
		return []Match{{
			Name:  names[index],
			Index: index,
			Score: m.Score(query, names[index]),
			Exact: true,
		}}
	}

	threshold := m.Threshold(query)
	pattern := []rune(strings.ToLower(fold(query)))
	slab := util.MakeSlab(100*1024, 2048)

	var matches []Match
	for index, name := range names {
		value := score(name, pattern, slab)
		if value < threshold {
			continue
		}
		matches = append(matches, Match{Name: name, Index: index, Score: value})
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return matches
}

// Score returns the fzf score of query against a single name, or 0 when
// the name does not contain every query rune in order.
func (m *Matcher) Score(query, name string) int {
	pattern := []rune(strings.ToLower(fold(query)))
	if len(pattern) == 0 {
		return 0
	}
	return score(name, pattern, nil)
}

func score(name string, pattern []rune, slab *util.Slab) int {
	chars := util.ToChars([]byte(fold(name)))
	result, _ := algo.FuzzyMatchV2(false, false, true, &chars, pattern, false, slab)
	if result.Start < 0 {
		return 0
	}
	return result.Score
}

// exactIndex reports the position of the only name equal to query.
func exactIndex(query string, names []string) (int, bool) {
	found := -1
	for i, name := range names {
		if name != query {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = i
	}
	return found, found >= 0
}

// fold strips combining marks and recomposes, so accented letters compare
// equal to their base letter.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}
