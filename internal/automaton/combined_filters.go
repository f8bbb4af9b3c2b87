package automaton

import (
	"strings"

	"github.com/contentshield/blockset/internal/domain"
)

// CombinedURLFilters accumulates the term sequences of many patterns in a
// prefix tree, sharing common prefixes, and emits the accumulated patterns
// as a finite sequence of size-bounded NFAs.
//
// Determinization is worst-case exponential in NFA size, so the tree is
// never lowered to a single automaton; NextNFA carves off subtrees whose
// estimated state count fits the caller's bound.
type CombinedURLFilters struct {
	root *prefixTreeVertex
}

type prefixTreeVertex struct {
	edges   []prefixTreeEdge
	actions []domain.ActionLocationAndFlags
}

type prefixTreeEdge struct {
	term  Term
	child *prefixTreeVertex
}

// NewCombinedURLFilters returns an empty accumulator.
func NewCombinedURLFilters() *CombinedURLFilters {
	return &CombinedURLFilters{root: &prefixTreeVertex{}}
}

// IsEmpty reports whether every accumulated pattern has been emitted.
func (c *CombinedURLFilters) IsEmpty() bool {
	return len(c.root.edges) == 0
}

// AddPattern inserts one parsed pattern, associating the action value with
// the pattern's accepting vertex. The term sequence must be non-empty;
// patterns that match everything never reach the tree.
func (c *CombinedURLFilters) AddPattern(terms []Term, action domain.ActionLocationAndFlags) {
	if len(terms) == 0 {
		panic("automaton: empty term sequence added to combined filters")
	}
	vertex := c.root
	for _, term := range terms {
		vertex = vertex.childForTerm(term)
	}
	vertex.actions = append(vertex.actions, action)
}

// AddDomain inserts a domain-condition string for the given action value.
// Domains are matched anchored at both ends. A leading "*" also matches
// every subdomain: "*example.com" inserts both "example.com" and
// ".*\.example.com".
func (c *CombinedURLFilters) AddDomain(action domain.ActionLocationAndFlags, domainString string) {
	if sub, ok := strings.CutPrefix(domainString, "*"); ok {
		c.AddPattern(domainTerms(sub, true), action)
		domainString = sub
	}
	c.AddPattern(domainTerms(domainString, false), action)
}

func domainTerms(domainString string, subdomains bool) []Term {
	terms := make([]Term, 0, len(domainString)+3)
	if subdomains {
		prefix := NewUniversalTerm()
		prefix.Quantify(QuantifierZeroOrMore)
		terms = append(terms, prefix, NewLiteralTerm('.', true))
	}
	for i := 0; i < len(domainString); i++ {
		terms = append(terms, NewLiteralTerm(domainString[i], true))
	}
	return append(terms, NewEndOfLineTerm())
}

func (v *prefixTreeVertex) childForTerm(term Term) *prefixTreeVertex {
	for i := range v.edges {
		if v.edges[i].term == term {
			return v.edges[i].child
		}
	}
	child := &prefixTreeVertex{}
	v.edges = append(v.edges, prefixTreeEdge{term: term, child: child})
	return child
}

// subtreeSize estimates the NFA state count of the subtree hanging off an
// edge: one state per term.
func subtreeSize(v *prefixTreeVertex) int {
	size := 0
	for i := range v.edges {
		size += 1 + subtreeSize(v.edges[i].child)
	}
	return size
}

// NextNFA emits the next batch of accumulated patterns as an NFA of at most
// maxSize states, removing the emitted patterns from the tree. It returns
// ok=false once the tree is drained. Branches larger than maxSize are split
// by descending the tree and emitting one sub-branch per call, so a single
// emitted NFA can exceed the bound only by the length of one shared prefix
// chain.
func (c *CombinedURLFilters) NextNFA(maxSize int) (*NFA, bool) {
	if c.IsEmpty() {
		return nil, false
	}
	if maxSize < 1 {
		maxSize = 1
	}

	nfa := newNFA()
	budget := maxSize

	type pathEntry struct {
		vertex *prefixTreeVertex
		edge   int
	}
	var path []pathEntry

	vertex := c.root
	state := nfa.Root()
	for {
		// Take every branch that fits the remaining budget.
		took := false
		kept := vertex.edges[:0]
		for i := range vertex.edges {
			edge := vertex.edges[i]
			size := 1 + subtreeSize(edge.child)
			if size <= budget {
				end := edge.term.generateGraph(nfa, state)
				emitSubtree(nfa, end, edge.child)
				budget -= size
				took = true
			} else {
				kept = append(kept, edge)
			}
		}
		vertex.edges = append([]prefixTreeEdge(nil), kept...)

		if took || len(vertex.edges) == 0 {
			break
		}

		// Nothing fits: descend into the first oversized branch, keeping
		// its prefix term in both the NFA and the tree.
		path = append(path, pathEntry{vertex: vertex, edge: 0})
		edge := &vertex.edges[0]
		state = edge.term.generateGraph(nfa, state)
		vertex = edge.child
		budget--

		// A pattern ending on the shared prefix is emitted with the first
		// batch that walks through it.
		if len(vertex.actions) > 0 {
			nfa.addActions(state, vertex.actions)
			vertex.actions = nil
		}
	}

	// Prune emptied vertices along the descent path, bottom up.
	for i := len(path) - 1; i >= 0; i-- {
		entry := path[i]
		child := entry.vertex.edges[entry.edge].child
		if len(child.edges) == 0 && len(child.actions) == 0 {
			entry.vertex.edges = append(entry.vertex.edges[:entry.edge], entry.vertex.edges[entry.edge+1:]...)
		}
	}
	return nfa, true
}

// emitSubtree lowers a whole subtree into the NFA, consuming its actions.
func emitSubtree(nfa *NFA, state uint32, v *prefixTreeVertex) {
	if len(v.actions) > 0 {
		nfa.addActions(state, v.actions)
		v.actions = nil
	}
	for i := range v.edges {
		end := v.edges[i].term.generateGraph(nfa, state)
		emitSubtree(nfa, end, v.edges[i].child)
	}
	v.edges = nil
}
