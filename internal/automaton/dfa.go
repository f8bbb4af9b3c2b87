package automaton

import (
	"math"

	"github.com/contentshield/blockset/internal/domain"
)

// noTarget marks the absence of a transition in a dense transition table.
const noTarget int32 = -1

// DFA is a deterministic finite automaton with flattened storage: nodes
// reference contiguous runs of the shared Transitions and Actions slices.
// Accepting states are exactly the nodes with a non-zero actions length.
type DFA struct {
	Nodes       []DFANode
	Transitions []DFATransition
	Actions     []domain.ActionLocationAndFlags
	Root        uint32
}

// DFANode references the node's transitions and actions in the DFA's shared
// slices.
type DFANode struct {
	ActionsStart      uint32
	ActionsLength     uint16
	TransitionsStart  uint32
	TransitionsLength uint16
}

// DFATransition moves to Target on any input byte in [First, Last].
type DFATransition struct {
	First  byte
	Last   byte
	Target uint32
}

// EmptyDFA returns a degenerate DFA with a single root state and no
// transitions. It exists so a filter group that produced no automata can
// still carry its universal actions in one bytecode blob.
func EmptyDFA() *DFA {
	return &DFA{Nodes: make([]DFANode, 1)}
}

// GraphSize returns the number of states.
func (d *DFA) GraphSize() int {
	return len(d.Nodes)
}

// NodeActions returns the action values of one state.
func (d *DFA) NodeActions(id uint32) []domain.ActionLocationAndFlags {
	node := &d.Nodes[id]
	return d.Actions[node.ActionsStart : node.ActionsStart+uint32(node.ActionsLength)]
}

// NodeTransitions returns the outgoing transition ranges of one state.
func (d *DFA) NodeTransitions(id uint32) []DFATransition {
	node := &d.Nodes[id]
	return d.Transitions[node.TransitionsStart : node.TransitionsStart+uint32(node.TransitionsLength)]
}

// Target returns the state reached from the given state on one input byte.
func (d *DFA) Target(id uint32, b byte) (uint32, bool) {
	for _, t := range d.NodeTransitions(id) {
		if b >= t.First && b <= t.Last {
			return t.Target, true
		}
	}
	return 0, false
}

// SetRootActions attaches actions to the root state. Only universal actions
// ever land on a root, and only once per DFA; a root that already carries
// actions is a pipeline bug.
func (d *DFA) SetRootActions(actions []domain.ActionLocationAndFlags) {
	if len(actions) == 0 {
		return
	}
	root := &d.Nodes[d.Root]
	if root.ActionsLength != 0 {
		panic("automaton: root state already carries actions")
	}
	if len(actions) >= math.MaxUint16 {
		panic("automaton: too many uncombined actions that match everything")
	}
	root.ActionsStart = uint32(len(d.Actions))
	root.ActionsLength = uint16(len(actions))
	d.Actions = append(d.Actions, actions...)
}

// appendNode adds a node built from a dense transition table, compressing
// adjacent symbols with equal targets into ranges.
func (d *DFA) appendNode(actions []domain.ActionLocationAndFlags, table *[AlphabetSize]int32) uint32 {
	node := DFANode{
		ActionsStart:     uint32(len(d.Actions)),
		TransitionsStart: uint32(len(d.Transitions)),
	}
	if len(actions) >= math.MaxUint16 {
		panic("automaton: action list exceeds node capacity")
	}
	node.ActionsLength = uint16(len(actions))
	d.Actions = append(d.Actions, actions...)

	transitions := 0
	for b := 0; b < AlphabetSize; {
		target := table[b]
		if target == noTarget {
			b++
			continue
		}
		first := b
		for b < AlphabetSize && table[b] == target {
			b++
		}
		d.Transitions = append(d.Transitions, DFATransition{
			First:  byte(first),
			Last:   byte(b - 1),
			Target: uint32(target),
		})
		transitions++
	}
	node.TransitionsLength = uint16(transitions)
	d.Nodes = append(d.Nodes, node)
	return uint32(len(d.Nodes) - 1)
}

// transitionTable expands one node's ranges back into a dense table.
func (d *DFA) transitionTable(id uint32) [AlphabetSize]int32 {
	var table [AlphabetSize]int32
	for i := range table {
		table[i] = noTarget
	}
	for _, t := range d.NodeTransitions(id) {
		for b := int(t.First); b <= int(t.Last); b++ {
			table[b] = int32(t.Target)
		}
	}
	return table
}
