package domain

import "fmt"

// RootScope is the scope id of the top-level workflow region.
const RootScope = "ROOT"

// PseudoKind tags the four kinds of synthetic scope-boundary marker
// (spec.md §3, §9). The CFG builder inserts an Entry node for every scope
// and Done/NextIter nodes for loops only; it never inserts End nodes.
// Pseudo-nodes are never
// runnable steps; they exist only to give control-flow edges somewhere
// to point during CFG construction, and are resolved away by the time
// the Plan Compiler assigns step ids (spec.md §4.6).
type PseudoKind int

const (
	NotPseudo PseudoKind = iota
	Entry
	End
	Done
	NextIter
)

// PseudoNode is the tagged-variant representation of a scope boundary
// marker: Entry(scope), End(scope), Done(scope), NextIter(scope). Real
// DSL nodes are represented directly by their DSL id string instead of
// going through this type (design note, spec.md §9: "Real(id)" is simply
// the bare node id elsewhere in this package).
type PseudoNode struct {
	Kind  PseudoKind
	Scope string
}

// Encode renders a PseudoNode as the canonical internal string literal
// (e.g. "__ENTRY__:ROOT"). This is the only place these literals are
// constructed; they must never leak into a Step (invariant 4, spec.md §3).
func (p PseudoNode) Encode() string {
	switch p.Kind {
	case Entry:
		return "__ENTRY__:" + p.Scope
	case End:
		return "__END__:" + p.Scope
	case Done:
		return "__DONE__:" + p.Scope
	case NextIter:
		return "__NEXT_ITER__:" + p.Scope
	default:
		return ""
	}
}

// ParsePseudoNode decodes a CFG node id back into a PseudoNode, reporting
// false if id does not carry one of the four reserved prefixes (i.e. it is
// a real DSL node id).
func ParsePseudoNode(id string) (PseudoNode, bool) {
	for _, prefix := range []struct {
		kind PseudoKind
		lit  string
	}{
		{Entry, "__ENTRY__:"},
		{End, "__END__:"},
		{Done, "__DONE__:"},
		{NextIter, "__NEXT_ITER__:"},
	} {
		if len(id) > len(prefix.lit) && id[:len(prefix.lit)] == prefix.lit {
			return PseudoNode{Kind: prefix.kind, Scope: id[len(prefix.lit):]}, true
		}
	}
	return PseudoNode{}, false
}

func entryOf(scope string) string    { return PseudoNode{Kind: Entry, Scope: scope}.Encode() }
func endOf(scope string) string      { return PseudoNode{Kind: End, Scope: scope}.Encode() }
func doneOf(scope string) string     { return PseudoNode{Kind: Done, Scope: scope}.Encode() }
func nextIterOf(scope string) string { return PseudoNode{Kind: NextIter, Scope: scope}.Encode() }

// EntryNodeID, EndNodeID, DoneNodeID, NextIterNodeID are exported
// constructors for the CFG builder and plan compiler, which live in a
// different package.
func EntryNodeID(scope string) string    { return entryOf(scope) }
func EndNodeID(scope string) string      { return endOf(scope) }
func DoneNodeID(scope string) string     { return doneOf(scope) }
func NextIterNodeID(scope string) string { return nextIterOf(scope) }

// CFGEdge is one directed edge of the control-flow graph.
type CFGEdge struct {
	From     string
	FromPort string
	To       string
}

// CFG is the flat control-flow graph produced by the CFG Builder
// (spec.md §3, §4.2): every DSL node (real or pseudo) plus the edges
// between them, along with adjacency maps and the scope each node
// belongs to.
type CFG struct {
	NodeIDs  map[string]struct{}
	Edges    []CFGEdge
	Succ     map[string][]CFGEdge
	Pred     map[string][]CFGEdge
	NodesByID map[string]*DSLNode // real nodes only; pseudo/container ids are absent
	ScopeOf  map[string]string
}

// NewCFG returns an empty CFG ready for incremental construction.
func NewCFG() *CFG {
	return &CFG{
		NodeIDs:   make(map[string]struct{}),
		NodesByID: make(map[string]*DSLNode),
		ScopeOf:   make(map[string]string),
		Succ:      make(map[string][]CFGEdge),
		Pred:      make(map[string][]CFGEdge),
	}
}

// AddNode registers a node id (real or pseudo) and its owning scope.
func (c *CFG) AddNode(id, scope string) {
	c.NodeIDs[id] = struct{}{}
	c.ScopeOf[id] = scope
}

// AddRealNode registers a real DSL node and its owning scope.
func (c *CFG) AddRealNode(node *DSLNode, scope string) {
	c.AddNode(node.ID, scope)
	c.NodesByID[node.ID] = node
}

// AddEdge appends an edge to the CFG. It does not check its endpoints:
// the builder adds edges to nodes it registers later, and to
// EndSentinel, which is never registered as a node.
func (c *CFG) AddEdge(from, fromPort, to string) {
	e := CFGEdge{From: from, FromPort: fromPort, To: to}
	c.Edges = append(c.Edges, e)
}

// Finalize computes Succ/Pred adjacency from the accumulated Edges. Call
// once after all edges (including rewrites) have been added.
func (c *CFG) Finalize() {
	c.Succ = make(map[string][]CFGEdge, len(c.NodeIDs))
	c.Pred = make(map[string][]CFGEdge, len(c.NodeIDs))
	for _, e := range c.Edges {
		c.Succ[e.From] = append(c.Succ[e.From], e)
		c.Pred[e.To] = append(c.Pred[e.To], e)
	}
}

// RewriteTargets replaces every edge whose target equals oldTarget with
// one targeting newTarget, preserving From/FromPort. The CFG Builder uses
// it to turn a loop's NextIter target into the loop's own Entry
// pseudo-node (the back-edge).
func (c *CFG) RewriteTargets(oldTarget, newTarget string) {
	for i := range c.Edges {
		if c.Edges[i].To == oldTarget {
			c.Edges[i].To = newTarget
		}
	}
}

// RewriteEdge retargets the single edge matching (from, fromPort, oldTo)
// to newTo. Used for try/catch error-edge redirection (spec.md §4.2),
// which must only touch one specific edge rather than every edge sharing
// a target.
func (c *CFG) RewriteEdge(from, fromPort, oldTo, newTo string) bool {
	for i := range c.Edges {
		e := &c.Edges[i]
		if e.From == from && e.FromPort == fromPort && e.To == oldTo {
			e.To = newTo
			return true
		}
	}
	return false
}

// IsReal reports whether id names a real DSL node (as opposed to a
// pseudo-node or a container scope id with no corresponding leaf step).
func (c *CFG) IsReal(id string) bool {
	_, ok := c.NodesByID[id]
	return ok
}

func (c *CFG) String() string {
	return fmt.Sprintf("CFG{nodes=%d edges=%d}", len(c.NodeIDs), len(c.Edges))
}
