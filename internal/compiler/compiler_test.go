package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentshield/blockset/internal/bytecode"
	"github.com/contentshield/blockset/internal/domain"
)

// mockClient records every write and the order the interface methods were
// called in.
type mockClient struct {
	calls             []string
	actions           []byte
	withoutConditions [][]byte
	withConditions    [][]byte
	conditioned       [][]byte
	finalized         bool
}

func (c *mockClient) WriteActions(actions []byte) {
	c.calls = append(c.calls, "actions")
	c.actions = actions
}

func (c *mockClient) WriteFiltersWithoutConditionsBytecode(blob []byte) {
	c.calls = append(c.calls, "without-conditions")
	c.withoutConditions = append(c.withoutConditions, blob)
}

func (c *mockClient) WriteFiltersWithConditionsBytecode(blob []byte) {
	c.calls = append(c.calls, "with-conditions")
	c.withConditions = append(c.withConditions, blob)
}

func (c *mockClient) WriteConditionedFiltersBytecode(blob []byte) {
	c.calls = append(c.calls, "conditioned")
	c.conditioned = append(c.conditioned, blob)
}

func (c *mockClient) Finalize() {
	c.calls = append(c.calls, "finalize")
	c.finalized = true
}

func TestCompileEmptyRuleList(t *testing.T) {
	client := &mockClient{}
	require.NoError(t, Compile(nil, client, Options{}))

	// Both unconditioned groups still emit one degenerate machine each; the
	// conditioned group only exists when some rule has conditions.
	assert.Equal(t, []string{"actions", "without-conditions", "with-conditions", "finalize"}, client.calls)
	assert.Empty(t, client.actions)
	require.Len(t, client.withoutConditions, 1)
	assert.Equal(t, []byte{byte(bytecode.OpTerminate)}, client.withoutConditions[0])
	require.Len(t, client.withConditions, 1)
	assert.Equal(t, []byte{byte(bytecode.OpTerminate)}, client.withConditions[0])
	assert.Empty(t, client.conditioned)
	assert.True(t, client.finalized)
}

func TestCompileUniversalBlockRule(t *testing.T) {
	client := &mockClient{}
	err := Compile([]domain.Rule{blockRule(".*", 0)}, client, Options{})
	require.NoError(t, err)

	assert.Equal(t, []byte{byte(domain.ActionTypeBlockLoad)}, client.actions)

	// A match-everything pattern lives as a root action on the group's
	// single degenerate machine.
	require.Len(t, client.withoutConditions, 1)
	blob := client.withoutConditions[0]
	require.Len(t, blob, 6)
	assert.Equal(t, byte(bytecode.OpAppendAction), blob[0])
	assert.Equal(t, []byte{0, 0, 0, 0}, blob[1:5], "the action lives at offset 0")
	assert.Equal(t, byte(bytecode.OpTerminate), blob[5])
}

func TestCompileSimpleBlockRule(t *testing.T) {
	client := &mockClient{}
	err := Compile([]domain.Rule{blockRule("^ads", 0)}, client, Options{})
	require.NoError(t, err)

	require.Len(t, client.withoutConditions, 1)
	assert.Greater(t, len(client.withoutConditions[0]), 1)
	require.Len(t, client.withConditions, 1)
	assert.Equal(t, []byte{byte(bytecode.OpTerminate)}, client.withConditions[0])
	assert.True(t, client.finalized)
}

func TestCompileInvalidPatternFails(t *testing.T) {
	client := &mockClient{}
	err := Compile([]domain.Rule{blockRule("a|b", 0)}, client, Options{})

	require.Error(t, err)
	assert.True(t, domain.IsInvalidRegex(err))
	assert.Contains(t, err.Error(), "a|b")
	assert.False(t, client.finalized, "a failed compilation never finalizes")
}

func TestCompileMergedCSSSelectors(t *testing.T) {
	client := &mockClient{}
	err := Compile([]domain.Rule{
		cssRule("example", ".ad"),
		cssRule("example", ".promo"),
	}, client, Options{})
	require.NoError(t, err)

	assert.Equal(t, selectorRecord(".ad,.promo"), client.actions)
	require.Len(t, client.withoutConditions, 1)
}

func TestCompileConditionedRule(t *testing.T) {
	client := &mockClient{}
	rule := withConditions(blockRule("^track", 0), domain.ConditionTypeIfDomain, "example.com", "other.com")
	err := Compile([]domain.Rule{rule}, client, Options{})
	require.NoError(t, err)

	// The pattern goes to the with-conditions group, the domains to the
	// conditioned group; the without-conditions group stays degenerate.
	require.Len(t, client.withoutConditions, 1)
	assert.Equal(t, []byte{byte(bytecode.OpTerminate)}, client.withoutConditions[0])
	require.Len(t, client.withConditions, 1)
	assert.Greater(t, len(client.withConditions[0]), 1)
	require.NotEmpty(t, client.conditioned)
	assert.True(t, client.finalized)
}

func TestCompileInjectsUniversalActionsOnFirstMachineOnly(t *testing.T) {
	client := &mockClient{}
	err := Compile([]domain.Rule{
		blockRule(".*", 0),
		blockRule("^aaaa$", domain.ResourceTypeImage),
		blockRule("^bbbb$", domain.ResourceTypeScript),
	}, client, Options{MaxNFASize: 3, SmallDFASize: 2})
	require.NoError(t, err)

	require.Len(t, client.withoutConditions, 2, "the tiny NFA bound splits the patterns into two machines")
	first, second := client.withoutConditions[0], client.withoutConditions[1]
	assert.Equal(t, byte(bytecode.OpAppendAction), first[0], "the universal action rides on the first machine's root")
	assert.NotEqual(t, byte(bytecode.OpAppendAction), second[0])
	assert.NotEqual(t, byte(bytecode.OpTestFlagsAndAppendAction), second[0])
}

func TestOptionsWithDefaults(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, DefaultMaxNFASize, opts.MaxNFASize)
	assert.Equal(t, DefaultSmallDFASize, opts.SmallDFASize)
	assert.Equal(t, DefaultPatternCacheSize, opts.PatternCacheSize)

	opts = Options{MaxNFASize: 10, SmallDFASize: 5, PatternCacheSize: 32}.withDefaults()
	assert.Equal(t, 10, opts.MaxNFASize)
	assert.Equal(t, 5, opts.SmallDFASize)
	assert.Equal(t, 32, opts.PatternCacheSize)
}
