package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentshield/blockset/internal/automaton"
	"github.com/contentshield/blockset/internal/domain"
	"github.com/contentshield/blockset/internal/parser"
)

// interpret runs a compiled blob against a subject the way the runtime
// matcher would: start at offset 0, feed subject bytes plus the sentinel,
// collect action-table offsets. A zero requestFlags collects every action;
// otherwise flagged actions are kept only when the flag words intersect.
func interpret(t *testing.T, blob []byte, subject string, requestFlags uint32) []uint32 {
	t.Helper()

	input := append([]byte(subject), automaton.EndOfLine)
	pos := 0
	pc := uint32(0)
	var actions []uint32
	for {
		require.Less(t, int(pc), len(blob), "program counter escaped the blob")
		switch Opcode(blob[pc]) {
		case OpTerminate:
			return actions
		case OpAppendAction:
			actions = append(actions, byteOrder.Uint32(blob[pc+1:]))
			pc += appendActionSize
		case OpTestFlagsAndAppendAction:
			flags := byteOrder.Uint32(blob[pc+1:])
			location := byteOrder.Uint32(blob[pc+5:])
			if requestFlags == 0 || flags&requestFlags != 0 {
				actions = append(actions, location)
			}
			pc += testFlagsAndAppendActionSize
		case OpCheckValue:
			if pos < len(input) && input[pos] == blob[pc+1] {
				pc = byteOrder.Uint32(blob[pc+2:])
				pos++
			} else {
				pc += checkValueSize
			}
		case OpCheckRange:
			if pos < len(input) && input[pos] >= blob[pc+1] && input[pos] <= blob[pc+2] {
				pc = byteOrder.Uint32(blob[pc+3:])
				pos++
			} else {
				pc += checkRangeSize
			}
		default:
			t.Fatalf("unknown opcode %d at offset %d", blob[pc], pc)
		}
	}
}

func compilePatterns(t *testing.T, actions map[string]domain.ActionLocationAndFlags) []byte {
	t.Helper()
	filters := automaton.NewCombinedURLFilters()
	for pattern, action := range actions {
		terms, status := parser.ParsePattern(pattern, true)
		require.Equal(t, parser.Ok, status, pattern)
		filters.AddPattern(terms, action)
	}
	nfa, ok := filters.NextNFA(1 << 20)
	require.True(t, ok)
	return Compile(automaton.Determinize(nfa))
}

func TestCompileAnchoredPattern(t *testing.T) {
	blob := compilePatterns(t, map[string]domain.ActionLocationAndFlags{
		"^abc$": domain.PackActionLocation(0, 42),
	})

	assert.Equal(t, []uint32{42}, interpret(t, blob, "abc", 0))
	assert.Empty(t, interpret(t, blob, "abd", 0))
	assert.Empty(t, interpret(t, blob, "ab", 0))
	assert.Empty(t, interpret(t, blob, "abcd", 0))
}

func TestCompileUnanchoredPattern(t *testing.T) {
	blob := compilePatterns(t, map[string]domain.ActionLocationAndFlags{
		"abc": domain.PackActionLocation(0, 7),
	})

	assert.Equal(t, []uint32{7}, interpret(t, blob, "xxabcyy", 0))
	assert.Empty(t, interpret(t, blob, "xxab", 0))
}

func TestCompileCharacterRangeUsesCheckRange(t *testing.T) {
	blob := compilePatterns(t, map[string]domain.ActionLocationAndFlags{
		"^[a-z]x$": domain.PackActionLocation(0, 3),
	})

	assert.Contains(t, blob, byte(OpCheckRange))
	assert.Equal(t, []uint32{3}, interpret(t, blob, "qx", 0))
	assert.Empty(t, interpret(t, blob, "9x", 0))
}

func TestCompileFlaggedActionTestsRequestFlags(t *testing.T) {
	flags := domain.ResourceTypeImage | domain.LoadTypeThirdParty
	blob := compilePatterns(t, map[string]domain.ActionLocationAndFlags{
		"^ads$": domain.PackActionLocation(flags, 11),
	})

	assert.Contains(t, blob, byte(OpTestFlagsAndAppendAction))
	assert.Equal(t, []uint32{11}, interpret(t, blob, "ads", uint32(domain.ResourceTypeImage)))
	assert.Empty(t, interpret(t, blob, "ads", uint32(domain.ResourceTypeScript)))
}

func TestCompileRootActionsComeFirst(t *testing.T) {
	dfa := automaton.EmptyDFA()
	dfa.SetRootActions([]domain.ActionLocationAndFlags{domain.PackActionLocation(0, 5)})
	blob := Compile(dfa)

	require.NotEmpty(t, blob)
	assert.Equal(t, byte(OpAppendAction), blob[0], "execution starts at offset 0 with the root's actions")
	assert.Equal(t, []uint32{5}, interpret(t, blob, "anything at all", 0))
}

func TestCompileEmptyDFA(t *testing.T) {
	blob := Compile(automaton.EmptyDFA())

	assert.Equal(t, []byte{byte(OpTerminate)}, blob)
	assert.Empty(t, interpret(t, blob, "x", 0))
}

func TestCompileMultiplePatternsShareOneBlob(t *testing.T) {
	blob := compilePatterns(t, map[string]domain.ActionLocationAndFlags{
		"^left$":  domain.PackActionLocation(0, 1),
		"^right$": domain.PackActionLocation(0, 2),
	})

	assert.Equal(t, []uint32{1}, interpret(t, blob, "left", 0))
	assert.Equal(t, []uint32{2}, interpret(t, blob, "right", 0))
	assert.Empty(t, interpret(t, blob, "middle", 0))
}
