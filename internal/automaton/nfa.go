package automaton

import (
	"github.com/contentshield/blockset/internal/domain"
)

// NFA is a nondeterministic finite automaton over the ASCII alphabet with
// epsilon transitions. Accepting states carry the action values of every
// pattern ending there. NFAs exist only between prefix tree emission and
// determinization; nothing downstream ever sees one.
type NFA struct {
	nodes []nfaNode
}

type nfaNode struct {
	transitions []nfaTransition
	epsilons    []uint32
	actions     []domain.ActionLocationAndFlags
}

type nfaTransition struct {
	set    CharSet
	target uint32
}

// newNFA returns an NFA holding only its root state.
func newNFA() *NFA {
	nfa := &NFA{}
	nfa.addNode()
	return nfa
}

// Root returns the start state. It is always state zero.
func (n *NFA) Root() uint32 {
	return 0
}

// Size returns the number of states.
func (n *NFA) Size() int {
	return len(n.nodes)
}

func (n *NFA) addNode() uint32 {
	n.nodes = append(n.nodes, nfaNode{})
	return uint32(len(n.nodes) - 1)
}

func (n *NFA) addTransition(from uint32, set CharSet, to uint32) {
	node := &n.nodes[from]
	// Merge into an existing edge to the same target so self-loops built
	// term by term stay a single transition.
	for i := range node.transitions {
		if node.transitions[i].target == to {
			node.transitions[i].set.bits[0] |= set.bits[0]
			node.transitions[i].set.bits[1] |= set.bits[1]
			return
		}
	}
	node.transitions = append(node.transitions, nfaTransition{set: set, target: to})
}

func (n *NFA) addEpsilon(from, to uint32) {
	n.nodes[from].epsilons = append(n.nodes[from].epsilons, to)
}

func (n *NFA) addActions(state uint32, actions []domain.ActionLocationAndFlags) {
	n.nodes[state].actions = append(n.nodes[state].actions, actions...)
}
