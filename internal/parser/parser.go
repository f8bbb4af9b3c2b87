// Package parser turns url-filter pattern strings into the term sequences
// consumed by the automaton package. The grammar is a restricted regex
// subset: literals, escapes, ".", character classes, the quantifiers
// "*" "+" "?", and the anchors "^" "$". Everything else is rejected with a
// status naming the unsupported construct.
package parser

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/contentshield/blockset/internal/automaton"
	"github.com/contentshield/blockset/internal/domain"
)

// Parser parses patterns and inserts the results into one CombinedURLFilters
// accumulator. An optional LRU cache memoizes parse results across the two
// accumulators of a compilation; the cache belongs to the compilation, never
// to the package.
type Parser struct {
	filters *automaton.CombinedURLFilters
	cache   *lru.Cache
}

// New returns a parser feeding the given accumulator. cache may be nil.
func New(filters *automaton.CombinedURLFilters, cache *lru.Cache) *Parser {
	return &Parser{filters: filters, cache: cache}
}

// AddPattern parses one pattern and, on success, inserts its term sequence
// with the given action value. MatchesEverything is returned without
// touching the accumulator; the caller routes those actions around the
// automaton entirely.
func (p *Parser) AddPattern(pattern string, caseSensitive bool, action domain.ActionLocationAndFlags) Status {
	terms, status := p.parse(pattern, caseSensitive)
	if status != Ok {
		return status
	}
	p.filters.AddPattern(terms, action)
	return Ok
}

type cachedParse struct {
	terms  []automaton.Term
	status Status
}

func (p *Parser) parse(pattern string, caseSensitive bool) ([]automaton.Term, Status) {
	if p.cache == nil {
		return ParsePattern(pattern, caseSensitive)
	}
	key := pattern
	if caseSensitive {
		key = "s\x00" + pattern
	} else {
		key = "i\x00" + pattern
	}
	if value, ok := p.cache.Get(key); ok {
		cached := value.(cachedParse)
		return cached.terms, cached.status
	}
	terms, status := ParsePattern(pattern, caseSensitive)
	p.cache.Add(key, cachedParse{terms: terms, status: status})
	return terms, status
}

// ParsePattern parses a pattern into a term sequence. Unanchored patterns
// receive an implicit leading ".*" term; "$" compiles to a transition on the
// end-of-line sentinel. Patterns whose minimum match length is zero match
// every URL (a zero-length match succeeds somewhere on any subject) unless
// they are anchored at both ends, and report MatchesEverything instead of
// producing terms.
func ParsePattern(pattern string, caseSensitive bool) ([]automaton.Term, Status) {
	if pattern == "" {
		return nil, EmptyPattern
	}
	pp := &patternParser{pattern: pattern, caseSensitive: caseSensitive}
	if status := pp.run(); status != Ok {
		return nil, status
	}

	minLength := 0
	for _, term := range pp.terms {
		minLength += term.MinLength()
	}
	if len(pp.terms) == 0 && !pp.startAnchored && !pp.endAnchored {
		return nil, EmptyPattern
	}
	if minLength == 0 && !(pp.startAnchored && pp.endAnchored) {
		return nil, MatchesEverything
	}

	terms := pp.terms
	if pp.endAnchored {
		terms = append(terms, automaton.NewEndOfLineTerm())
	}
	if !pp.startAnchored {
		prefix := automaton.NewUniversalTerm()
		prefix.Quantify(automaton.QuantifierZeroOrMore)
		terms = append([]automaton.Term{prefix}, terms...)
	}
	return terms, Ok
}

type patternParser struct {
	pattern       string
	caseSensitive bool
	pos           int
	terms         []automaton.Term
	startAnchored bool
	endAnchored   bool
}

func (p *patternParser) run() Status {
	if p.pattern[0] == '^' {
		p.startAnchored = true
		p.pos = 1
	}
	for p.pos < len(p.pattern) {
		c := p.pattern[p.pos]
		switch {
		case c >= 0x80:
			return NonASCII
		case c == '^':
			return MisplacedStartOfLine
		case c == '$':
			if p.pos != len(p.pattern)-1 {
				return MisplacedEndOfLine
			}
			p.endAnchored = true
			p.pos++
		case c == '*' || c == '+' || c == '?':
			return MisplacedQuantifier
		case c == '(' || c == ')':
			return Group
		case c == '|':
			return Disjunction
		case c == '{':
			return CountedRepetition
		default:
			term, status := p.parseAtom()
			if status != Ok {
				return status
			}
			p.applyQuantifier(&term)
			p.terms = append(p.terms, term)
		}
	}
	return Ok
}

func (p *patternParser) applyQuantifier(term *automaton.Term) {
	if p.pos >= len(p.pattern) {
		return
	}
	switch p.pattern[p.pos] {
	case '*':
		term.Quantify(automaton.QuantifierZeroOrMore)
	case '+':
		term.Quantify(automaton.QuantifierOneOrMore)
	case '?':
		term.Quantify(automaton.QuantifierZeroOrOne)
	default:
		return
	}
	p.pos++
}

func (p *patternParser) parseAtom() (automaton.Term, Status) {
	c := p.pattern[p.pos]
	switch c {
	case '.':
		p.pos++
		return automaton.NewUniversalTerm(), Ok
	case '[':
		p.pos++
		return p.parseCharacterClass()
	case '\\':
		p.pos++
		set, status := p.parseEscape()
		if status != Ok {
			return automaton.Term{}, status
		}
		return automaton.Term{Set: set}, Ok
	default:
		p.pos++
		return automaton.NewLiteralTerm(c, p.caseSensitive), Ok
	}
}

// parseEscape consumes the character after a backslash and returns the set
// it denotes. Built-in classes \d \D \w \W \s \S are supported; escaped
// punctuation is a literal.
func (p *patternParser) parseEscape() (automaton.CharSet, Status) {
	var set automaton.CharSet
	if p.pos >= len(p.pattern) {
		return set, InvalidEscape
	}
	c := p.pattern[p.pos]
	p.pos++
	switch {
	case c >= 0x80:
		return set, NonASCII
	case c >= '1' && c <= '9':
		return set, BackReference
	case c == 'b' || c == 'B':
		return set, WordBoundary
	case c == 'd' || c == 'D':
		set.AddRange('0', '9')
		if c == 'D' {
			set.Invert()
		}
		return set, Ok
	case c == 'w' || c == 'W':
		set.AddRange('0', '9')
		set.AddRange('A', 'Z')
		set.AddRange('a', 'z')
		set.Add('_')
		if c == 'W' {
			set.Invert()
		}
		return set, Ok
	case c == 's' || c == 'S':
		for _, b := range []byte{' ', '\t', '\n', '\v', '\f', '\r'} {
			set.Add(b)
		}
		if c == 'S' {
			set.Invert()
		}
		return set, Ok
	case c == '0' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		return set, InvalidEscape
	default:
		p.addFolded(&set, c)
		return set, Ok
	}
}

func (p *patternParser) parseCharacterClass() (automaton.Term, Status) {
	var set automaton.CharSet
	inverted := false
	if p.pos < len(p.pattern) && p.pattern[p.pos] == '^' {
		inverted = true
		p.pos++
	}
	for {
		if p.pos >= len(p.pattern) {
			return automaton.Term{}, UnclosedCharacterClass
		}
		c := p.pattern[p.pos]
		if c >= 0x80 {
			return automaton.Term{}, NonASCII
		}
		if c == ']' {
			p.pos++
			break
		}

		var lo byte
		literal := false
		if c == '\\' {
			p.pos++
			escaped, status := p.parseEscape()
			if status != Ok {
				return automaton.Term{}, status
			}
			// A multi-character class escape cannot form a range.
			single, ok := singleMember(escaped)
			if !ok {
				set = unionSets(set, escaped)
				continue
			}
			lo = single
		} else {
			lo = c
			literal = true
			p.pos++
		}

		// Range if the next characters are "-x" with x not closing the class.
		if literal && p.pos+1 < len(p.pattern) && p.pattern[p.pos] == '-' && p.pattern[p.pos+1] != ']' {
			p.pos++
			hi := p.pattern[p.pos]
			if hi >= 0x80 {
				return automaton.Term{}, NonASCII
			}
			if hi == '\\' {
				p.pos++
				escaped, status := p.parseEscape()
				if status != Ok {
					return automaton.Term{}, status
				}
				single, ok := singleMember(escaped)
				if !ok {
					return automaton.Term{}, InvalidCharacterRange
				}
				hi = single
			} else {
				p.pos++
			}
			if hi < lo {
				return automaton.Term{}, InvalidCharacterRange
			}
			for b := lo; ; b++ {
				p.addFolded(&set, b)
				if b == hi {
					break
				}
			}
			continue
		}
		p.addFolded(&set, lo)
	}
	if inverted {
		set.Invert()
	}
	if set.IsEmpty() {
		return automaton.Term{}, UnclosedCharacterClass
	}
	return automaton.Term{Set: set}, Ok
}

// addFolded adds a byte to the set, folding ASCII letter case when the
// pattern is case-insensitive.
func (p *patternParser) addFolded(set *automaton.CharSet, b byte) {
	set.Add(b)
	if p.caseSensitive {
		return
	}
	switch {
	case b >= 'a' && b <= 'z':
		set.Add(b - 'a' + 'A')
	case b >= 'A' && b <= 'Z':
		set.Add(b - 'A' + 'a')
	}
}

// singleMember returns the set's only byte, if it has exactly one.
func singleMember(set automaton.CharSet) (byte, bool) {
	var member byte
	count := 0
	for b := 0; b < automaton.AlphabetSize; b++ {
		if set.Contains(byte(b)) {
			member = byte(b)
			count++
			if count > 1 {
				return 0, false
			}
		}
	}
	return member, count == 1
}

func unionSets(a, b automaton.CharSet) automaton.CharSet {
	for i := 0; i < automaton.AlphabetSize; i++ {
		if b.Contains(byte(i)) {
			a.Add(byte(i))
		}
	}
	return a
}
