package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/contentshield/blockset/internal/domain"
)

// wireRule is the on-disk shape of one rule. The compiler core only accepts
// already-structured rules, so the mechanical decode and validation happens
// here, in the CLI.
type wireRule struct {
	Trigger wireTrigger `json:"trigger" yaml:"trigger" validate:"required"`
	Action  wireAction  `json:"action" yaml:"action" validate:"required"`
}

type wireTrigger struct {
	URLFilter                string   `json:"url-filter" yaml:"url-filter" validate:"required,min=1,max=4096"`
	URLFilterIsCaseSensitive bool     `json:"url-filter-is-case-sensitive" yaml:"url-filter-is-case-sensitive"`
	ResourceType             []string `json:"resource-type,omitempty" yaml:"resource-type,omitempty"`
	LoadType                 []string `json:"load-type,omitempty" yaml:"load-type,omitempty"`
	IfDomain                 []string `json:"if-domain,omitempty" yaml:"if-domain,omitempty"`
	UnlessDomain             []string `json:"unless-domain,omitempty" yaml:"unless-domain,omitempty"`
}

type wireAction struct {
	Type     string `json:"type" yaml:"type" validate:"required,oneof=block block-cookies css-display-none ignore-previous-rules make-https"`
	Selector string `json:"selector,omitempty" yaml:"selector,omitempty" validate:"max=102400"`
}

// loadRuleList reads, validates, and converts a rule-list file. JSON and
// YAML are selected by file extension.
func loadRuleList(path string) ([]domain.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read rule list: %w", err)
	}

	var wireRules []wireRule
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &wireRules)
	default:
		err = json.Unmarshal(data, &wireRules)
	}
	if err != nil {
		return nil, domain.NewAppErrorWithCause(domain.ErrInvalidInput, "cannot decode rule list", err, path)
	}
	if len(wireRules) == 0 {
		return nil, domain.NewAppError(domain.ErrInvalidInput, "rule list is empty", path)
	}

	validate := validator.New()
	rules := make([]domain.Rule, 0, len(wireRules))
	for i := range wireRules {
		rule, err := convertRule(validate, &wireRules[i])
		if err != nil {
			return nil, domain.NewAppErrorWithCause(
				domain.ErrValidationFailed,
				fmt.Sprintf("rule %d is invalid", i),
				err,
				nil,
			)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func convertRule(validate *validator.Validate, wire *wireRule) (domain.Rule, error) {
	var rule domain.Rule

	if err := validate.Struct(wire); err != nil {
		return rule, err
	}

	actionType, err := domain.ParseActionType(wire.Action.Type)
	if err != nil {
		return rule, err
	}
	if actionType == domain.ActionTypeCSSDisplayNoneSelector && wire.Action.Selector == "" {
		return rule, fmt.Errorf("action %q requires a selector", wire.Action.Type)
	}
	if actionType != domain.ActionTypeCSSDisplayNoneSelector && wire.Action.Selector != "" {
		return rule, fmt.Errorf("action %q does not take a selector", wire.Action.Type)
	}
	rule.Action = domain.Action{Type: actionType, Selector: wire.Action.Selector}

	rule.Trigger.URLFilter = wire.Trigger.URLFilter
	rule.Trigger.URLFilterIsCaseSensitive = wire.Trigger.URLFilterIsCaseSensitive

	for _, name := range wire.Trigger.ResourceType {
		flag, err := domain.ParseResourceType(name)
		if err != nil {
			return rule, err
		}
		rule.Trigger.Flags |= flag
	}
	for _, name := range wire.Trigger.LoadType {
		flag, err := domain.ParseLoadType(name)
		if err != nil {
			return rule, err
		}
		rule.Trigger.Flags |= flag
	}

	if len(wire.Trigger.IfDomain) > 0 && len(wire.Trigger.UnlessDomain) > 0 {
		return rule, fmt.Errorf("trigger cannot combine if-domain and unless-domain")
	}
	switch {
	case len(wire.Trigger.IfDomain) > 0:
		rule.Trigger.ConditionType = domain.ConditionTypeIfDomain
		rule.Trigger.Conditions = wire.Trigger.IfDomain
	case len(wire.Trigger.UnlessDomain) > 0:
		rule.Trigger.ConditionType = domain.ConditionTypeUnlessDomain
		rule.Trigger.Conditions = wire.Trigger.UnlessDomain
	}
	for _, condition := range rule.Trigger.Conditions {
		if err := validateDomain(condition); err != nil {
			return rule, err
		}
	}
	return rule, nil
}

// validateDomain checks a condition domain: lowercase ASCII, optionally with
// a leading "*" for subdomain matching.
func validateDomain(domainString string) error {
	name := strings.TrimPrefix(domainString, "*")
	if name == "" {
		return fmt.Errorf("invalid condition domain %q", domainString)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '-' || c == '_':
		default:
			return fmt.Errorf("invalid condition domain %q: domains must be lowercase ASCII", domainString)
		}
	}
	return nil
}
