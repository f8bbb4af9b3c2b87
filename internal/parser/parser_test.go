package parser

import (
	"testing"

	lru "github.com/hashicorp/golang-lru"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentshield/blockset/internal/automaton"
	"github.com/contentshield/blockset/internal/domain"
)

func TestParsePatternLiteral(t *testing.T) {
	terms, status := ParsePattern("ab", true)
	require.Equal(t, Ok, status)
	require.Len(t, terms, 3, "unanchored patterns get an implicit universal prefix")

	assert.Equal(t, automaton.QuantifierZeroOrMore, terms[0].Quantifier)
	assert.True(t, terms[0].Set.IsUniversal())

	assert.True(t, terms[1].Set.Contains('a'))
	assert.False(t, terms[1].Set.Contains('A'), "case sensitive literals do not fold")
	assert.True(t, terms[2].Set.Contains('b'))
}

func TestParsePatternCaseInsensitive(t *testing.T) {
	terms, status := ParsePattern("^a", false)
	require.Equal(t, Ok, status)
	require.Len(t, terms, 1, "anchored patterns get no universal prefix")
	assert.True(t, terms[0].Set.Contains('a'))
	assert.True(t, terms[0].Set.Contains('A'))
}

func TestParsePatternAnchors(t *testing.T) {
	terms, status := ParsePattern("^abc$", true)
	require.Equal(t, Ok, status)
	require.Len(t, terms, 4)
	last := terms[len(terms)-1]
	assert.True(t, last.Set.Contains(automaton.EndOfLine), "$ compiles to a sentinel transition")
	assert.False(t, last.Set.Contains('a'))
}

func TestParsePatternQuantifiers(t *testing.T) {
	terms, status := ParsePattern("^ab*c+d?", true)
	require.Equal(t, Ok, status)
	require.Len(t, terms, 4)
	assert.Equal(t, automaton.QuantifierOne, terms[0].Quantifier)
	assert.Equal(t, automaton.QuantifierZeroOrMore, terms[1].Quantifier)
	assert.Equal(t, automaton.QuantifierOneOrMore, terms[2].Quantifier)
	assert.Equal(t, automaton.QuantifierZeroOrOne, terms[3].Quantifier)
}

func TestParsePatternCharacterClass(t *testing.T) {
	terms, status := ParsePattern("^[a-c]", true)
	require.Equal(t, Ok, status)
	require.Len(t, terms, 1)
	for _, b := range []byte{'a', 'b', 'c'} {
		assert.True(t, terms[0].Set.Contains(b))
	}
	assert.False(t, terms[0].Set.Contains('d'))

	terms, status = ParsePattern("^[^a]", true)
	require.Equal(t, Ok, status)
	assert.False(t, terms[0].Set.Contains('a'))
	assert.True(t, terms[0].Set.Contains('b'))
	assert.False(t, terms[0].Set.Contains(automaton.EndOfLine), "negated classes never match the sentinel")
}

func TestParsePatternBuiltinClasses(t *testing.T) {
	terms, status := ParsePattern(`^\d`, true)
	require.Equal(t, Ok, status)
	assert.True(t, terms[0].Set.Contains('5'))
	assert.False(t, terms[0].Set.Contains('a'))

	terms, status = ParsePattern(`^\.`, true)
	require.Equal(t, Ok, status)
	assert.True(t, terms[0].Set.Contains('.'))
	assert.False(t, terms[0].Set.Contains('a'), "escaped dot is a literal, not the universal set")
}

func TestParsePatternMatchesEverything(t *testing.T) {
	for _, pattern := range []string{".*", "a*", ".?", "a*b?", "^.*", ".*$"} {
		_, status := ParsePattern(pattern, true)
		assert.Equal(t, MatchesEverything, status, pattern)
	}

	// Anchored at both ends, a zero-minimum pattern only matches tiny
	// subjects, not everything.
	_, status := ParsePattern("^a?$", true)
	assert.Equal(t, Ok, status)
}

func TestParsePatternErrors(t *testing.T) {
	cases := map[string]Status{
		"":        EmptyPattern,
		"a(b)c":   Group,
		"a|b":     Disjunction,
		"a{2,3}":  CountedRepetition,
		`a\1`:     BackReference,
		`a\b`:     WordBoundary,
		"*a":      MisplacedQuantifier,
		"a^b":     MisplacedStartOfLine,
		"a$b":     MisplacedEndOfLine,
		"[abc":    UnclosedCharacterClass,
		"[z-a]":   InvalidCharacterRange,
		`a\qb`:    InvalidEscape,
		"caf\xc3": NonASCII,
	}
	for pattern, want := range cases {
		_, status := ParsePattern(pattern, true)
		assert.Equal(t, want, status, "%q", pattern)
	}
}

func TestAddPatternInsertsIntoFilters(t *testing.T) {
	filters := automaton.NewCombinedURLFilters()
	p := New(filters, nil)

	status := p.AddPattern("^abc", true, domain.PackActionLocation(0, 7))
	require.Equal(t, Ok, status)
	assert.False(t, filters.IsEmpty())
}

func TestAddPatternMatchesEverythingLeavesFiltersUntouched(t *testing.T) {
	filters := automaton.NewCombinedURLFilters()
	p := New(filters, nil)

	status := p.AddPattern(".*", true, domain.PackActionLocation(0, 7))
	assert.Equal(t, MatchesEverything, status)
	assert.True(t, filters.IsEmpty())
}

func TestAddPatternUsesCache(t *testing.T) {
	cache, err := lru.New(8)
	require.NoError(t, err)

	filters := automaton.NewCombinedURLFilters()
	p := New(filters, cache)

	require.Equal(t, Ok, p.AddPattern("^abc", true, domain.PackActionLocation(0, 1)))
	assert.Equal(t, 1, cache.Len())
	require.Equal(t, Ok, p.AddPattern("^abc", true, domain.PackActionLocation(0, 2)))
	assert.Equal(t, 1, cache.Len())

	// Case sensitivity is part of the cache key.
	require.Equal(t, Ok, p.AddPattern("^abc", false, domain.PackActionLocation(0, 3)))
	assert.Equal(t, 2, cache.Len())
}
