package parser

// Status reports the outcome of parsing one url-filter pattern.
type Status int

const (
	// Ok means the pattern parsed into a usable term sequence.
	Ok Status = iota
	// MatchesEverything means the pattern trivially matches every URL and
	// must be handled outside the automaton.
	MatchesEverything
	// EmptyPattern rejects patterns with no atoms and no anchors.
	EmptyPattern
	// NonASCII rejects patterns containing bytes above 127.
	NonASCII
	// Group rejects grouping parentheses.
	Group
	// Disjunction rejects alternation.
	Disjunction
	// CountedRepetition rejects {n,m} repetition.
	CountedRepetition
	// BackReference rejects numbered back references.
	BackReference
	// WordBoundary rejects \b and \B assertions.
	WordBoundary
	// MisplacedQuantifier rejects quantifiers with nothing to quantify.
	MisplacedQuantifier
	// MisplacedStartOfLine rejects "^" anywhere but the first position.
	MisplacedStartOfLine
	// MisplacedEndOfLine rejects "$" anywhere but the last position.
	MisplacedEndOfLine
	// UnclosedCharacterClass rejects "[" without a matching "]".
	UnclosedCharacterClass
	// InvalidCharacterRange rejects classes like [z-a].
	InvalidCharacterRange
	// InvalidEscape rejects unsupported escape sequences.
	InvalidEscape
)

var statusStrings = map[Status]string{
	Ok:                     "ok",
	MatchesEverything:      "matches everything",
	EmptyPattern:           "empty pattern",
	NonASCII:               "non-ASCII character",
	Group:                  "groups are not supported",
	Disjunction:            "disjunctions are not supported",
	CountedRepetition:      "counted repetition is not supported",
	BackReference:          "back references are not supported",
	WordBoundary:           "word boundary assertions are not supported",
	MisplacedQuantifier:    "quantifier without a preceding atom",
	MisplacedStartOfLine:   "start of line assertion in the middle of the pattern",
	MisplacedEndOfLine:     "end of line assertion in the middle of the pattern",
	UnclosedCharacterClass: "unclosed character class",
	InvalidCharacterRange:  "invalid character range",
	InvalidEscape:          "invalid escape sequence",
}

// String returns a human-readable description of the status.
func (s Status) String() string {
	if str, ok := statusStrings[s]; ok {
		return str
	}
	return "unknown parse status"
}
