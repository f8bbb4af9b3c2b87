package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerKeyEquality(t *testing.T) {
	a := Trigger{
		URLFilter:     "example\\.com",
		Flags:         ResourceTypeImage,
		Conditions:    []string{"news.example.com"},
		ConditionType: ConditionTypeIfDomain,
	}
	b := Trigger{
		URLFilter:     "example\\.com",
		Flags:         ResourceTypeImage,
		Conditions:    []string{"news.example.com"},
		ConditionType: ConditionTypeIfDomain,
	}

	assert.Equal(t, a.Key(), b.Key())
}

func TestTriggerKeyDistinguishesEveryField(t *testing.T) {
	base := Trigger{URLFilter: "example", Flags: ResourceTypeImage}

	cases := map[string]Trigger{
		"different filter":     {URLFilter: "other", Flags: ResourceTypeImage},
		"different case flag":  {URLFilter: "example", URLFilterIsCaseSensitive: true, Flags: ResourceTypeImage},
		"different flags":      {URLFilter: "example", Flags: ResourceTypeScript},
		"added condition":      {URLFilter: "example", Flags: ResourceTypeImage, Conditions: []string{"a.test"}, ConditionType: ConditionTypeIfDomain},
		"different polarity":   {URLFilter: "example", Flags: ResourceTypeImage, Conditions: []string{"a.test"}, ConditionType: ConditionTypeUnlessDomain},
		"different conditions": {URLFilter: "example", Flags: ResourceTypeImage, Conditions: []string{"b.test"}, ConditionType: ConditionTypeIfDomain},
	}
	for name, other := range cases {
		assert.NotEqual(t, base.Key(), other.Key(), name)
	}
}

func TestParseActionType(t *testing.T) {
	for name, want := range map[string]ActionType{
		"block":                 ActionTypeBlockLoad,
		"block-cookies":         ActionTypeBlockCookies,
		"css-display-none":      ActionTypeCSSDisplayNoneSelector,
		"ignore-previous-rules": ActionTypeIgnorePreviousRules,
		"make-https":            ActionTypeMakeHTTPS,
	} {
		got, err := ParseActionType(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseActionType("nonsense")
	assert.Error(t, err)
	_, err = ParseActionType("invalid")
	assert.Error(t, err, "the invalid marker is not an accepted input name")
}

func TestParseResourceAndLoadTypes(t *testing.T) {
	flag, err := ParseResourceType("image")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeImage, flag)

	flag, err = ParseLoadType("third-party")
	require.NoError(t, err)
	assert.Equal(t, LoadTypeThirdParty, flag)

	_, err = ParseResourceType("third-party")
	assert.Error(t, err, "load types are not resource types")
}
