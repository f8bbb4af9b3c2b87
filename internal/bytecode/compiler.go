package bytecode

import (
	"github.com/contentshield/blockset/internal/automaton"
)

// Compile lowers one DFA into a bytecode blob. The root state's block is
// always first, so execution can start at offset 0.
//
// Lowering is two-pass: the first pass sizes every state block to resolve
// jump targets, the second emits the instructions.
func Compile(dfa *automaton.DFA) []byte {
	order := stateOrder(dfa)

	offsets := make([]uint32, dfa.GraphSize())
	total := uint32(0)
	for _, state := range order {
		offsets[state] = total
		total += blockSize(dfa, state)
	}

	out := make([]byte, 0, total)
	for _, state := range order {
		out = emitBlock(out, dfa, state, offsets)
	}
	return out
}

// stateOrder lists states root first, the rest in id order.
func stateOrder(dfa *automaton.DFA) []uint32 {
	order := make([]uint32, 0, dfa.GraphSize())
	order = append(order, dfa.Root)
	for id := uint32(0); id < uint32(dfa.GraphSize()); id++ {
		if id != dfa.Root {
			order = append(order, id)
		}
	}
	return order
}

func blockSize(dfa *automaton.DFA, state uint32) uint32 {
	size := uint32(0)
	for _, action := range dfa.NodeActions(state) {
		if action.FlagWord() == 0 {
			size += appendActionSize
		} else {
			size += testFlagsAndAppendActionSize
		}
	}
	for _, t := range dfa.NodeTransitions(state) {
		if t.First == t.Last {
			size += checkValueSize
		} else {
			size += checkRangeSize
		}
	}
	return size + terminateSize
}

func emitBlock(out []byte, dfa *automaton.DFA, state uint32, offsets []uint32) []byte {
	for _, action := range dfa.NodeActions(state) {
		if action.FlagWord() == 0 {
			out = append(out, byte(OpAppendAction))
			out = byteOrder.AppendUint32(out, action.Location())
		} else {
			out = append(out, byte(OpTestFlagsAndAppendAction))
			out = byteOrder.AppendUint32(out, action.FlagWord())
			out = byteOrder.AppendUint32(out, action.Location())
		}
	}
	for _, t := range dfa.NodeTransitions(state) {
		if t.First == t.Last {
			out = append(out, byte(OpCheckValue), t.First)
		} else {
			out = append(out, byte(OpCheckRange), t.First, t.Last)
		}
		out = byteOrder.AppendUint32(out, offsets[t.Target])
	}
	return append(out, byte(OpTerminate))
}
