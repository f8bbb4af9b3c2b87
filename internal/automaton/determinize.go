package automaton

import (
	"encoding/binary"
	"sort"

	"github.com/contentshield/blockset/internal/domain"
)

// Determinize converts an NFA into an equivalent DFA by subset construction.
// The actions of a DFA state are the deduplicated union of the actions of
// its member NFA states, sorted so equal subsets always serialize the same
// way.
func Determinize(nfa *NFA) *DFA {
	dfa := &DFA{}
	startSet := epsilonClosure(nfa, []uint32{nfa.Root()})
	ids := map[string]uint32{}

	worklist := [][]uint32{startSet}
	ids[setKey(startSet)] = 0
	allocated := uint32(1)

	// Nodes must be appended in id order, so targets are resolved through
	// the id map before their nodes exist.
	for len(worklist) > 0 {
		set := worklist[0]
		worklist = worklist[1:]

		var table [AlphabetSize]int32
		for b := 0; b < AlphabetSize; b++ {
			move := moveSet(nfa, set, byte(b))
			if len(move) == 0 {
				table[b] = noTarget
				continue
			}
			key := setKey(move)
			id, ok := ids[key]
			if !ok {
				id = allocated
				allocated++
				ids[key] = id
				worklist = append(worklist, move)
			}
			table[b] = int32(id)
		}
		dfa.appendNode(unionActions(nfa, set), &table)
	}
	return dfa
}

// epsilonClosure returns the sorted set of states reachable from the given
// states through epsilon transitions alone.
func epsilonClosure(nfa *NFA, states []uint32) []uint32 {
	seen := map[uint32]bool{}
	stack := append([]uint32(nil), states...)
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[s] {
			continue
		}
		seen[s] = true
		stack = append(stack, nfa.nodes[s].epsilons...)
	}
	closure := make([]uint32, 0, len(seen))
	for s := range seen {
		closure = append(closure, s)
	}
	sort.Slice(closure, func(i, j int) bool { return closure[i] < closure[j] })
	return closure
}

// moveSet returns the epsilon closure of every state reachable from the set
// on one input byte.
func moveSet(nfa *NFA, set []uint32, b byte) []uint32 {
	var targets []uint32
	for _, s := range set {
		for _, t := range nfa.nodes[s].transitions {
			if t.set.Contains(b) {
				targets = append(targets, t.target)
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}
	return epsilonClosure(nfa, targets)
}

// unionActions merges the action sets of the member states, deduplicated and
// sorted.
func unionActions(nfa *NFA, set []uint32) []domain.ActionLocationAndFlags {
	seen := map[domain.ActionLocationAndFlags]bool{}
	var actions []domain.ActionLocationAndFlags
	for _, s := range set {
		for _, a := range nfa.nodes[s].actions {
			if !seen[a] {
				seen[a] = true
				actions = append(actions, a)
			}
		}
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// setKey canonically encodes a sorted state set for map lookup.
func setKey(set []uint32) string {
	buf := make([]byte, 4*len(set))
	for i, s := range set {
		binary.BigEndian.PutUint32(buf[4*i:], s)
	}
	return string(buf)
}
