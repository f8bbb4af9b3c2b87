package automaton

import (
	"strconv"
	"strings"
)

// Minimize merges equivalent states in place by partition refinement: the
// initial partition distinguishes states by their action signature, then
// classes are split by per-symbol target classes until a fixpoint. The
// rebuilt DFA keeps the root at state zero.
//
// Minimization never moves actions onto the root: the root's class contains
// only action-free states unless the root itself was accepting.
func (d *DFA) Minimize() {
	n := len(d.Nodes)
	if n <= 1 {
		return
	}

	tables := make([][AlphabetSize]int32, n)
	for i := 0; i < n; i++ {
		tables[i] = d.transitionTable(uint32(i))
	}

	// Initial partition by action signature.
	class := make([]int32, n)
	classCount := assignClasses(class, func(i int) string {
		return actionSignature(d, uint32(i))
	})

	// Refine until no class splits.
	for {
		next := make([]int32, n)
		nextCount := assignClasses(next, func(i int) string {
			var b strings.Builder
			b.WriteString(strconv.Itoa(int(class[i])))
			for sym := 0; sym < AlphabetSize; sym++ {
				target := tables[i][sym]
				b.WriteByte(',')
				if target == noTarget {
					b.WriteByte('.')
				} else {
					b.WriteString(strconv.Itoa(int(class[target])))
				}
			}
			return b.String()
		})
		if nextCount == classCount {
			class = next
			break
		}
		class, classCount = next, nextCount
	}

	if classCount == n {
		return
	}

	// Rebuild with one node per class. Class ids were assigned in first-
	// occurrence order scanning from the root's side of the node list, but
	// the root is not necessarily in class 0; remap so it is.
	remap := make([]int32, classCount)
	for i := range remap {
		remap[i] = noTarget
	}
	nextID := int32(0)
	order := make([]uint32, 0, classCount)
	assign := func(node uint32) {
		c := class[node]
		if remap[c] == noTarget {
			remap[c] = nextID
			nextID++
			order = append(order, node)
		}
	}
	assign(d.Root)
	for i := 0; i < n; i++ {
		assign(uint32(i))
	}

	rebuilt := &DFA{}
	for _, representative := range order {
		var table [AlphabetSize]int32
		for sym := 0; sym < AlphabetSize; sym++ {
			target := tables[representative][sym]
			if target == noTarget {
				table[sym] = noTarget
			} else {
				table[sym] = remap[class[target]]
			}
		}
		rebuilt.appendNode(d.NodeActions(representative), &table)
	}
	*d = *rebuilt
}

// assignClasses groups indices by signature, giving equal signatures equal
// class ids in first-occurrence order, and returns the class count.
func assignClasses(class []int32, signature func(int) string) int {
	ids := map[string]int32{}
	for i := range class {
		sig := signature(i)
		id, ok := ids[sig]
		if !ok {
			id = int32(len(ids))
			ids[sig] = id
		}
		class[i] = id
	}
	return len(ids)
}

// actionSignature canonically encodes a state's action set. Determinization
// and merging keep action slices sorted, so equal sets encode equally.
func actionSignature(d *DFA, id uint32) string {
	actions := d.NodeActions(id)
	var b strings.Builder
	for _, a := range actions {
		b.WriteString(strconv.FormatUint(uint64(a), 16))
		b.WriteByte(',')
	}
	return b.String()
}
