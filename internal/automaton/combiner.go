package automaton

import (
	"sort"

	"github.com/contentshield/blockset/internal/domain"
)

// Combiner accumulates DFAs that fell below the small-DFA threshold and
// merges them pairwise into fewer, larger machines. Every DFA carries a
// fixed bytecode overhead at interpretation time, so many tiny machines
// cost more than one merged machine of the same total size.
type Combiner struct {
	dfas []*DFA
}

// NewCombiner returns an empty combiner.
func NewCombiner() *Combiner {
	return &Combiner{}
}

// AddDFA defers one small DFA for merging.
func (c *Combiner) AddDFA(dfa *DFA) {
	c.dfas = append(c.dfas, dfa)
}

// Combine merges the deferred DFAs two at a time, emitting each merged
// machine once its state count reaches minSize, and drains the combiner.
// Merging two already-large DFAs is itself expensive, which is why results
// are emitted as soon as they cross the threshold instead of being merged
// further.
func (c *Combiner) Combine(minSize int, emit func(*DFA)) {
	for len(c.dfas) > 0 {
		if len(c.dfas) == 1 {
			emit(c.dfas[0])
			c.dfas = nil
			return
		}
		a := c.dfas[len(c.dfas)-1]
		b := c.dfas[len(c.dfas)-2]
		c.dfas = c.dfas[:len(c.dfas)-2]
		merged := mergeDFAs(a, b)
		if merged.GraphSize() >= minSize {
			emit(merged)
		} else {
			c.dfas = append(c.dfas, merged)
		}
	}
}

// mergeDFAs builds the union of two DFAs by product construction: each
// merged state simulates one state of each input (or the dead state, once
// one side has no transition). Accepting states union the two action sets.
func mergeDFAs(a, b *DFA) *DFA {
	// Pair encoding: id+1 per side, zero for the dead side.
	const dead = uint32(0)
	pairKey := func(sa, sb uint32) uint64 {
		return uint64(sa)<<32 | uint64(sb)
	}

	tablesA := make([][AlphabetSize]int32, len(a.Nodes))
	for i := range a.Nodes {
		tablesA[i] = a.transitionTable(uint32(i))
	}
	tablesB := make([][AlphabetSize]int32, len(b.Nodes))
	for i := range b.Nodes {
		tablesB[i] = b.transitionTable(uint32(i))
	}

	merged := &DFA{}
	start := pairKey(a.Root+1, b.Root+1)
	ids := map[uint64]uint32{start: 0}
	worklist := []uint64{start}
	allocated := uint32(1)

	for len(worklist) > 0 {
		pair := worklist[0]
		worklist = worklist[1:]
		sa := uint32(pair >> 32)
		sb := uint32(pair & 0xFFFFFFFF)

		var table [AlphabetSize]int32
		for sym := 0; sym < AlphabetSize; sym++ {
			ta, tb := int32(noTarget), int32(noTarget)
			if sa != dead {
				ta = tablesA[sa-1][sym]
			}
			if sb != dead {
				tb = tablesB[sb-1][sym]
			}
			if ta == noTarget && tb == noTarget {
				table[sym] = noTarget
				continue
			}
			var na, nb uint32
			if ta != noTarget {
				na = uint32(ta) + 1
			}
			if tb != noTarget {
				nb = uint32(tb) + 1
			}
			key := pairKey(na, nb)
			id, ok := ids[key]
			if !ok {
				id = allocated
				allocated++
				ids[key] = id
				worklist = append(worklist, key)
			}
			table[sym] = int32(id)
		}
		merged.appendNode(mergedActions(a, b, sa, sb), &table)
	}
	return merged
}

func mergedActions(a, b *DFA, sa, sb uint32) []domain.ActionLocationAndFlags {
	var actions []domain.ActionLocationAndFlags
	if sa != 0 {
		actions = append(actions, a.NodeActions(sa-1)...)
	}
	if sb != 0 {
		actions = append(actions, b.NodeActions(sb-1)...)
	}
	if len(actions) == 0 {
		return nil
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	deduped := actions[:1]
	for _, action := range actions[1:] {
		if action != deduped[len(deduped)-1] {
			deduped = append(deduped, action)
		}
	}
	return deduped
}
