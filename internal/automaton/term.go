package automaton

// AlphabetSize is the size of the input alphabet. URL filters operate on
// ASCII only; canonicalized URLs never contain bytes above 127.
const AlphabetSize = 128

// EndOfLine is the sentinel byte appended to every subject string by the
// interpreter. End-of-line assertions compile to a transition on it.
const EndOfLine byte = 0

// CharSet is a set of input symbols, one bit per ASCII byte. The zero value
// is the empty set. CharSet is comparable, so terms can be compared directly
// when looking up prefix tree edges.
type CharSet struct {
	bits [2]uint64
}

// Add inserts one symbol into the set.
func (s *CharSet) Add(b byte) {
	if b >= AlphabetSize {
		panic("automaton: symbol outside the ASCII alphabet")
	}
	s.bits[b>>6] |= 1 << (b & 63)
}

// AddRange inserts every symbol in [lo, hi] into the set.
func (s *CharSet) AddRange(lo, hi byte) {
	for b := lo; ; b++ {
		s.Add(b)
		if b == hi {
			break
		}
	}
}

// Contains reports whether the symbol is in the set.
func (s CharSet) Contains(b byte) bool {
	if b >= AlphabetSize {
		return false
	}
	return s.bits[b>>6]&(1<<(b&63)) != 0
}

// IsEmpty reports whether the set contains no symbols.
func (s CharSet) IsEmpty() bool {
	return s.bits[0] == 0 && s.bits[1] == 0
}

// Invert replaces the set with its complement relative to the matchable
// alphabet (bytes 1-127; the end-of-line sentinel is never matchable by a
// character class).
func (s *CharSet) Invert() {
	s.bits[0] = ^s.bits[0] &^ 1
	s.bits[1] = ^s.bits[1]
}

// UniversalCharSet returns the set matched by "." in a pattern: every byte
// except the end-of-line sentinel.
func UniversalCharSet() CharSet {
	var s CharSet
	s.AddRange(1, AlphabetSize-1)
	return s
}

// IsUniversal reports whether the set matches every non-sentinel byte.
func (s CharSet) IsUniversal() bool {
	return s == UniversalCharSet()
}

// Quantifier is the repetition count attached to a term.
type Quantifier uint8

const (
	// QuantifierOne matches the term exactly once.
	QuantifierOne Quantifier = iota
	// QuantifierZeroOrOne matches the term at most once ("?").
	QuantifierZeroOrOne
	// QuantifierZeroOrMore matches the term any number of times ("*").
	QuantifierZeroOrMore
	// QuantifierOneOrMore matches the term at least once ("+").
	QuantifierOneOrMore
)

// Term is one quantified character set of a parsed pattern. Patterns lower
// to term sequences; term sequences are the edges of the prefix tree inside
// CombinedURLFilters. Term is comparable.
type Term struct {
	Set        CharSet
	Quantifier Quantifier
}

// NewLiteralTerm returns a term matching exactly one byte. With caseSensitive
// false, ASCII letters match both cases.
func NewLiteralTerm(b byte, caseSensitive bool) Term {
	var t Term
	t.Set.Add(b)
	if !caseSensitive {
		switch {
		case b >= 'a' && b <= 'z':
			t.Set.Add(b - 'a' + 'A')
		case b >= 'A' && b <= 'Z':
			t.Set.Add(b - 'A' + 'a')
		}
	}
	return t
}

// NewUniversalTerm returns a term matching any single non-sentinel byte.
func NewUniversalTerm() Term {
	return Term{Set: UniversalCharSet()}
}

// NewEndOfLineTerm returns the term compiled from a "$" assertion.
func NewEndOfLineTerm() Term {
	var t Term
	t.Set.Add(EndOfLine)
	return t
}

// Quantify applies a quantifier to the term. Double quantification is a
// parser bug.
func (t *Term) Quantify(q Quantifier) {
	if t.Quantifier != QuantifierOne {
		panic("automaton: term quantified twice")
	}
	t.Quantifier = q
}

// MinLength returns the minimum number of bytes the term consumes.
func (t Term) MinLength() int {
	switch t.Quantifier {
	case QuantifierZeroOrOne, QuantifierZeroOrMore:
		return 0
	default:
		return 1
	}
}

// generateGraph adds the term's states to the NFA, continuing from the given
// state, and returns the state reached after matching the term.
func (t Term) generateGraph(nfa *NFA, from uint32) uint32 {
	switch t.Quantifier {
	case QuantifierOne:
		end := nfa.addNode()
		nfa.addTransition(from, t.Set, end)
		return end
	case QuantifierZeroOrOne:
		end := nfa.addNode()
		nfa.addTransition(from, t.Set, end)
		nfa.addEpsilon(from, end)
		return end
	case QuantifierZeroOrMore:
		loop := nfa.addNode()
		nfa.addEpsilon(from, loop)
		nfa.addTransition(loop, t.Set, loop)
		return loop
	case QuantifierOneOrMore:
		loop := nfa.addNode()
		nfa.addTransition(from, t.Set, loop)
		nfa.addTransition(loop, t.Set, loop)
		return loop
	}
	panic("automaton: unknown quantifier")
}
