// Package compiler orchestrates the full rule-list compilation pipeline:
// action serialization, pattern partitioning into filter groups, bounded
// NFA emission, determinization, minimization or combining, and bytecode
// lowering. Compile is a pure function of its inputs; all intermediate
// state dies with the call.
package compiler

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/contentshield/blockset/internal/automaton"
	"github.com/contentshield/blockset/internal/bytecode"
	"github.com/contentshield/blockset/internal/domain"
	"github.com/contentshield/blockset/internal/parser"
)

// Default pipeline thresholds. Smaller NFA bounds risk high compile and
// interpretation cost from too many machines; larger bounds raise peak
// memory during the worst-case-exponential determinization step.
const (
	DefaultMaxNFASize       = 75000
	DefaultSmallDFASize     = 100
	DefaultPatternCacheSize = 512
)

// Options tunes the pipeline thresholds. The zero value selects defaults.
type Options struct {
	// MaxNFASize caps the state count of each NFA emitted by an
	// accumulator.
	MaxNFASize int
	// SmallDFASize is the threshold below which DFAs are deferred to the
	// combiner instead of being minimized and emitted directly.
	SmallDFASize int
	// PatternCacheSize bounds the parsed-pattern memo cache.
	PatternCacheSize int
}

func (o Options) withDefaults() Options {
	if o.MaxNFASize <= 0 {
		o.MaxNFASize = DefaultMaxNFASize
	}
	if o.SmallDFASize <= 0 {
		o.SmallDFASize = DefaultSmallDFASize
	}
	if o.PatternCacheSize <= 0 {
		o.PatternCacheSize = DefaultPatternCacheSize
	}
	return o
}

// Compile compiles a validated rule list and streams the output to the
// client. On error nothing after the offending rule has been processed and
// the client must discard any partial writes; there is no partial success.
func Compile(rules []domain.Rule, client Client, opts Options) error {
	opts = opts.withDefaults()
	logger := log.With().Str("compilation_id", uuid.New().String()).Logger()

	actionLocations, actions := SerializeActions(rules)
	client.WriteActions(actions)

	universalActionsWithoutConditions := map[domain.ActionLocationAndFlags]struct{}{}
	universalActionsWithConditions := map[domain.ActionLocationAndFlags]struct{}{}

	filtersWithoutConditions := automaton.NewCombinedURLFilters()
	filtersWithConditions := automaton.NewCombinedURLFilters()
	conditionFilters := automaton.NewCombinedURLFilters()

	// One parse cache for the whole compilation; identical patterns are
	// common across rules within a list.
	cache, err := lru.New(opts.PatternCacheSize)
	if err != nil {
		return domain.NewAppErrorWithCause(domain.ErrInvalidInput, "invalid pattern cache size", err, opts.PatternCacheSize)
	}
	filtersWithoutConditionsParser := parser.New(filtersWithoutConditions, cache)
	filtersWithConditionsParser := parser.New(filtersWithConditions, cache)

	partitioningStart := time.Now()
	for ruleIndex := range rules {
		trigger := &rules[ruleIndex].Trigger
		actionLocationAndFlags := domain.PackActionLocation(trigger.Flags, actionLocations[ruleIndex])

		if len(trigger.Conditions) == 0 {
			status := filtersWithoutConditionsParser.AddPattern(trigger.URLFilter, trigger.URLFilterIsCaseSensitive, actionLocationAndFlags)
			if status == parser.MatchesEverything {
				universalActionsWithoutConditions[actionLocationAndFlags] = struct{}{}
				status = parser.Ok
			}
			if status != parser.Ok {
				return patternError(trigger.URLFilter, status)
			}
			continue
		}

		if trigger.ConditionType == domain.ConditionTypeIfDomain {
			actionLocationAndFlags = actionLocationAndFlags.WithIfCondition()
		}
		status := filtersWithConditionsParser.AddPattern(trigger.URLFilter, trigger.URLFilterIsCaseSensitive, actionLocationAndFlags)
		if status == parser.MatchesEverything {
			universalActionsWithConditions[actionLocationAndFlags] = struct{}{}
			status = parser.Ok
		}
		if status != parser.Ok {
			return patternError(trigger.URLFilter, status)
		}
		for _, condition := range trigger.Conditions {
			conditionFilters.AddDomain(actionLocationAndFlags, condition)
		}
	}
	logger.Debug().
		Dur("elapsed", time.Since(partitioningStart)).
		Int("rules", len(rules)).
		Msg("partitioned rules into filter groups")

	loweringStart := time.Now()

	withoutConditions := &filterGroupCompiler{
		universalActions: sortedActionSet(universalActionsWithoutConditions),
		write:            client.WriteFiltersWithoutConditionsBytecode,
	}
	compileFilterGroup(filtersWithoutConditions, withoutConditions, opts)
	withoutConditions.report(logger, "filters without conditions")

	withConditions := &filterGroupCompiler{
		universalActions: sortedActionSet(universalActionsWithConditions),
		write:            client.WriteFiltersWithConditionsBytecode,
	}
	compileFilterGroup(filtersWithConditions, withConditions, opts)
	withConditions.report(logger, "filters with conditions")

	// Condition automata are tree shaped and every action value is unique,
	// so neither minimizing nor combining them pays for itself.
	conditioned := &filterGroupCompiler{
		write:     client.WriteConditionedFiltersBytecode,
		firstSeen: true,
	}
	for {
		nfa, ok := conditionFilters.NextNFA(opts.MaxNFASize)
		if !ok {
			break
		}
		conditioned.lower(automaton.Determinize(nfa))
	}
	if !conditionFilters.IsEmpty() {
		panic("compiler: condition filter accumulator not drained")
	}
	conditioned.report(logger, "conditioned filters")

	logger.Debug().
		Dur("elapsed", time.Since(loweringStart)).
		Msg("built and compiled the DFAs")

	client.Finalize()
	return nil
}

func patternError(pattern string, status parser.Status) error {
	return domain.NewAppError(
		domain.ErrInvalidRegex,
		fmt.Sprintf("error while parsing %q: %s", pattern, status),
		nil,
	)
}

// filterGroupCompiler lowers the DFAs of one filter group, injecting the
// group's universal actions onto the root of exactly the first machine.
type filterGroupCompiler struct {
	universalActions []domain.ActionLocationAndFlags
	write            func([]byte)
	firstSeen        bool
	machines         int
	bytecodeSize     int
}

func (g *filterGroupCompiler) lower(dfa *automaton.DFA) {
	if len(dfa.NodeActions(dfa.Root)) != 0 {
		panic("compiler: DFA root actions must come from patterns that match everything")
	}
	if !g.firstSeen {
		dfa.SetRootActions(g.universalActions)
		g.firstSeen = true
	}
	blob := bytecode.Compile(dfa)
	g.write(blob)
	g.machines++
	g.bytecodeSize += len(blob)
}

func (g *filterGroupCompiler) report(logger zerolog.Logger, group string) {
	logger.Debug().
		Str("group", group).
		Int("machines", g.machines).
		Int("bytecode_bytes", g.bytecodeSize).
		Msg("lowered filter group")
}

// compileFilterGroup drains one accumulator: large DFAs are minimized and
// emitted immediately, small ones deferred to the combiner. A group that
// produced no machine at all still emits one degenerate DFA so the
// interpreter always finds at least one table, and so the group's universal
// actions have a root to live on.
func compileFilterGroup(filters *automaton.CombinedURLFilters, g *filterGroupCompiler, opts Options) {
	combiner := automaton.NewCombiner()
	for {
		nfa, ok := filters.NextNFA(opts.MaxNFASize)
		if !ok {
			break
		}
		dfa := automaton.Determinize(nfa)
		if dfa.GraphSize() < opts.SmallDFASize {
			combiner.AddDFA(dfa)
		} else {
			dfa.Minimize()
			g.lower(dfa)
		}
	}
	combiner.Combine(opts.SmallDFASize, g.lower)
	if !filters.IsEmpty() {
		panic("compiler: filter accumulator not drained")
	}
	if !g.firstSeen {
		g.lower(automaton.EmptyDFA())
	}
}

func sortedActionSet(set map[domain.ActionLocationAndFlags]struct{}) []domain.ActionLocationAndFlags {
	actions := make([]domain.ActionLocationAndFlags, 0, len(set))
	for action := range set {
		actions = append(actions, action)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}
