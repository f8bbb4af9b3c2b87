package compiler

import (
	"encoding/binary"
	"math"
	"strings"
	"unicode/utf16"

	"github.com/contentshield/blockset/internal/domain"
)

// pendingLocation marks a rule whose CSS action has been accumulated but not
// yet serialized. Every sentinel is replaced when the pending actions
// resolve at a blocking-window boundary.
const pendingLocation = math.MaxUint32

// pendingDisplayNoneActions accumulates the selectors of every CSS rule
// sharing one exact trigger. A combined selector list is behaviorally
// equivalent to N separate display:none rules, so the selectors serialize as
// one comma-joined record.
type pendingDisplayNoneActions struct {
	selectors   []string
	ruleIndexes []int
}

// SerializeActions flattens the rule list's actions into one byte buffer and
// returns, per rule, the byte offset of its serialized action.
//
// Order only matters because of ignore-previous-rules: identical actions may
// share one record only within the same blocking window. An
// ignore-previous-rules rule therefore resets the dedup maps of every other
// action kind, while any other rule resets the ignore-previous-rules map.
// Rules carrying domain conditions are appended individually (conditions are
// too rare to be worth merging), except CSS rules, which still merge on
// exact trigger equality.
//
// This stage cannot fail: the rule list was validated upstream.
func SerializeActions(rules []domain.Rule) ([]uint32, []byte) {
	var actions []byte
	actionLocations := make([]uint32, 0, len(rules))

	blockLoadActions := map[domain.ResourceFlags]uint32{}
	blockCookiesActions := map[domain.ResourceFlags]uint32{}
	makeHTTPSActions := map[domain.ResourceFlags]uint32{}
	ignorePreviousRuleActions := map[domain.ResourceFlags]uint32{}
	cssPending := map[string]*pendingDisplayNoneActions{}
	var cssPendingOrder []string

	resolvePending := func() {
		for _, key := range cssPendingOrder {
			pending := cssPending[key]
			location := uint32(len(actions))
			actions = serializeSelector(actions, strings.Join(pending.selectors, ","))
			for _, ruleIndex := range pending.ruleIndexes {
				actionLocations[ruleIndex] = location
			}
		}
		cssPending = map[string]*pendingDisplayNoneActions{}
		cssPendingOrder = nil
	}

	for ruleIndex := range rules {
		rule := &rules[ruleIndex]
		actionType := rule.Action.Type

		if actionType == domain.ActionTypeIgnorePreviousRules {
			// Earlier rules are no longer visible past this point, so
			// nothing after it may merge with anything before it.
			resolvePending()
			blockLoadActions = map[domain.ResourceFlags]uint32{}
			blockCookiesActions = map[domain.ResourceFlags]uint32{}
			makeHTTPSActions = map[domain.ResourceFlags]uint32{}
		} else {
			ignorePreviousRuleActions = map[domain.ResourceFlags]uint32{}
		}

		switch actionType {
		case domain.ActionTypeCSSDisplayNoneStyleSheet, domain.ActionTypeInvalid:
			panic("compiler: unserializable action type reached serialization")

		case domain.ActionTypeCSSDisplayNoneSelector:
			key := rule.Trigger.Key()
			pending, ok := cssPending[key]
			if !ok {
				pending = &pendingDisplayNoneActions{}
				cssPending[key] = pending
				cssPendingOrder = append(cssPendingOrder, key)
			}
			pending.selectors = append(pending.selectors, rule.Action.Selector)
			pending.ruleIndexes = append(pending.ruleIndexes, ruleIndex)
			actionLocations = append(actionLocations, pendingLocation)

		default:
			if len(rule.Trigger.Conditions) > 0 {
				actionLocations = append(actionLocations, uint32(len(actions)))
				actions = append(actions, byte(actionType))
				continue
			}
			var dedup map[domain.ResourceFlags]uint32
			switch actionType {
			case domain.ActionTypeIgnorePreviousRules:
				dedup = ignorePreviousRuleActions
			case domain.ActionTypeBlockLoad:
				dedup = blockLoadActions
			case domain.ActionTypeBlockCookies:
				dedup = blockCookiesActions
			case domain.ActionTypeMakeHTTPS:
				dedup = makeHTTPSActions
			}
			location, ok := dedup[rule.Trigger.Flags]
			if !ok {
				location = uint32(len(actions))
				actions = append(actions, byte(actionType))
				dedup[rule.Trigger.Flags] = location
			}
			actionLocations = append(actionLocations, location)
		}
	}
	resolvePending()
	return actionLocations, actions
}

// serializeSelector appends one CSS selector record: a one-byte type tag, a
// four-byte character count, a one-byte wide flag, then the characters as
// raw 8-bit or 16-bit code units.
func serializeSelector(actions []byte, selector string) []byte {
	units := utf16.Encode([]rune(selector))
	wide := false
	for _, unit := range units {
		if unit > 0xFF {
			wide = true
			break
		}
	}
	actions = append(actions, byte(domain.ActionTypeCSSDisplayNoneSelector))
	actions = binary.LittleEndian.AppendUint32(actions, uint32(len(units)))
	if wide {
		actions = append(actions, 1)
		for _, unit := range units {
			actions = binary.LittleEndian.AppendUint16(actions, unit)
		}
	} else {
		actions = append(actions, 0)
		for _, unit := range units {
			actions = append(actions, byte(unit))
		}
	}
	return actions
}
