package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionType identifies the effect a rule applies when its trigger matches.
type ActionType uint8

const (
	// ActionTypeCSSDisplayNoneSelector hides elements matching a CSS selector.
	ActionTypeCSSDisplayNoneSelector ActionType = iota
	// ActionTypeCSSDisplayNoneStyleSheet is a legacy action kind that must
	// never reach compilation; it exists so decoded rule lists can name it.
	ActionTypeCSSDisplayNoneStyleSheet
	// ActionTypeIgnorePreviousRules stops processing of earlier rules.
	ActionTypeIgnorePreviousRules
	// ActionTypeBlockLoad blocks the network load.
	ActionTypeBlockLoad
	// ActionTypeBlockCookies strips cookies from the request.
	ActionTypeBlockCookies
	// ActionTypeMakeHTTPS upgrades the request to HTTPS.
	ActionTypeMakeHTTPS
	// ActionTypeInvalid marks an unrecognized action.
	ActionTypeInvalid
)

var actionTypeNames = map[ActionType]string{
	ActionTypeCSSDisplayNoneSelector:   "css-display-none",
	ActionTypeCSSDisplayNoneStyleSheet: "css-display-none-style-sheet",
	ActionTypeIgnorePreviousRules:      "ignore-previous-rules",
	ActionTypeBlockLoad:                "block",
	ActionTypeBlockCookies:             "block-cookies",
	ActionTypeMakeHTTPS:                "make-https",
	ActionTypeInvalid:                  "invalid",
}

// String returns the rule-list name of the action type.
func (t ActionType) String() string {
	if name, ok := actionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ActionType(%d)", uint8(t))
}

// ParseActionType maps a rule-list action name to its ActionType.
func ParseActionType(name string) (ActionType, error) {
	for t, n := range actionTypeNames {
		if n == name && t != ActionTypeInvalid {
			return t, nil
		}
	}
	return ActionTypeInvalid, fmt.Errorf("unknown action type %q", name)
}

// ConditionType selects the polarity of a trigger's domain conditions.
type ConditionType uint8

const (
	// ConditionTypeNone means the trigger has no domain conditions.
	ConditionTypeNone ConditionType = iota
	// ConditionTypeIfDomain applies the rule only on the listed domains.
	ConditionTypeIfDomain
	// ConditionTypeUnlessDomain applies the rule everywhere but the listed domains.
	ConditionTypeUnlessDomain
)

// String returns the rule-list name of the condition type.
func (t ConditionType) String() string {
	switch t {
	case ConditionTypeIfDomain:
		return "if-domain"
	case ConditionTypeUnlessDomain:
		return "unless-domain"
	default:
		return "none"
	}
}

// ResourceFlags is a bitmask of resource types and load contexts a trigger
// applies to. The zero value means the trigger applies to every request.
//
// The flag word is packed into the high half of ActionLocationAndFlags, so
// all bits must stay below bit 31 (reserved for the if-condition marker).
type ResourceFlags uint32

const (
	ResourceTypeDocument    ResourceFlags = 1 << 0
	ResourceTypeImage       ResourceFlags = 1 << 1
	ResourceTypeStyleSheet  ResourceFlags = 1 << 2
	ResourceTypeScript      ResourceFlags = 1 << 3
	ResourceTypeFont        ResourceFlags = 1 << 4
	ResourceTypeRaw         ResourceFlags = 1 << 5
	ResourceTypeSVGDocument ResourceFlags = 1 << 6
	ResourceTypeMedia       ResourceFlags = 1 << 7
	ResourceTypePopup       ResourceFlags = 1 << 8

	LoadTypeFirstParty ResourceFlags = 1 << 16
	LoadTypeThirdParty ResourceFlags = 1 << 17
)

var resourceTypeNames = map[string]ResourceFlags{
	"document":     ResourceTypeDocument,
	"image":        ResourceTypeImage,
	"style-sheet":  ResourceTypeStyleSheet,
	"script":       ResourceTypeScript,
	"font":         ResourceTypeFont,
	"raw":          ResourceTypeRaw,
	"svg-document": ResourceTypeSVGDocument,
	"media":        ResourceTypeMedia,
	"popup":        ResourceTypePopup,
}

var loadTypeNames = map[string]ResourceFlags{
	"first-party": LoadTypeFirstParty,
	"third-party": LoadTypeThirdParty,
}

// ParseResourceType maps a rule-list resource-type name to its flag bit.
func ParseResourceType(name string) (ResourceFlags, error) {
	if f, ok := resourceTypeNames[name]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown resource type %q", name)
}

// ParseLoadType maps a rule-list load-type name to its flag bit.
func ParseLoadType(name string) (ResourceFlags, error) {
	if f, ok := loadTypeNames[name]; ok {
		return f, nil
	}
	return 0, fmt.Errorf("unknown load type %q", name)
}

// Trigger is the matching condition of one rule: a URL filter pattern plus
// optional resource-type flags and domain conditions.
//
// Invariant: Conditions is non-empty if and only if ConditionType is not
// ConditionTypeNone. The rule-list loader enforces this before compilation.
type Trigger struct {
	URLFilter                string
	URLFilterIsCaseSensitive bool
	Flags                    ResourceFlags
	Conditions               []string
	ConditionType            ConditionType
}

// Key returns a value usable as a map key for exact trigger equality.
// Two triggers with equal keys are interchangeable for action merging.
func (t *Trigger) Key() string {
	var b strings.Builder
	b.WriteString(t.URLFilter)
	b.WriteByte(0)
	if t.URLFilterIsCaseSensitive {
		b.WriteByte(1)
	} else {
		b.WriteByte(0)
	}
	b.WriteString(strconv.FormatUint(uint64(t.Flags), 16))
	b.WriteByte(0)
	b.WriteByte(byte(t.ConditionType))
	for _, condition := range t.Conditions {
		b.WriteByte(0)
		b.WriteString(condition)
	}
	return b.String()
}

// Action is the effect applied when a trigger matches. Selector is set only
// for ActionTypeCSSDisplayNoneSelector.
type Action struct {
	Type     ActionType
	Selector string
}

// Rule pairs one trigger with one action. Rules are immutable once built;
// the compiler never mutates its input list.
type Rule struct {
	Trigger Trigger
	Action  Action
}
