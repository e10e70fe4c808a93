// Package hypergraph implements the proof hypergraph: a theorem-keyed node
// store, tactic hyperedges with child multisets, cycle detection over a
// current-best-edge projection, solved/dead propagation by worklist, and
// minimal-proof extraction.
//
// Nodes live in an arena indexed by a stable NodeID; a separate
// parent-edges multimap is rebuilt lazily as edges are added and is never
// an owning reference — an arena of nodes plus parent back-refs, append-only.
package hypergraph

import (
	"github.com/sorgfresser/htps-go/internal/errs"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// NodeID identifies a node within a single Graph.
type NodeID int

// Invalid is returned where no node applies.
const Invalid NodeID = -1

// HyperEdge is one surviving tactic for a node: applying Tactic to the
// node's theorem is claimed to reduce it to the AND of Children (in
// insertion order, duplicates preserved).
type HyperEdge struct {
	Tactic   theorem.Tactic
	Children []NodeID
	Prior    float64

	W            float64
	N            int
	VirtualCount int

	// IsCycle marks an edge whose current-best-edge projection reaches its
	// own owning node; such edges are masked from selection but not deleted.
	IsCycle bool
}

// Node is the hypergraph's per-theorem state.
type Node struct {
	ID      NodeID
	Theorem theorem.Theorem
	Edges   []*HyperEdge

	Solved         bool
	InMinimalProof bool
	IsTerminal     bool
	LogCritic      float64
	VisitCount     int
	IsExpanded     bool
	ExpansionError *errs.ExpansionError

	// PolicyPriorMass is the sum of Edges[i].Prior after duplicate tactics
	// have collapsed to a single edge; used by policies that need to know
	// how much prior mass survived deduplication.
	PolicyPriorMass float64
}

type parentRef struct {
	Parent    NodeID
	EdgeIndex int
}

// Graph is the arena-backed proof hypergraph for a single search.
type Graph struct {
	nodes       []*Node
	index       map[string]NodeID
	parentEdges map[NodeID][]parentRef
	root        NodeID

	// Effects accumulates every EnvEffect reported by every expansion, in
	// the order observed, for the sample harvester to dedupe/subsample.
	Effects []theorem.EnvEffect
}

// New creates a Graph rooted at root.
func New(root theorem.Theorem) *Graph {
	g := &Graph{
		index:       make(map[string]NodeID),
		parentEdges: make(map[NodeID][]parentRef),
	}
	_, id := g.GetOrCreate(root)
	g.root = id
	return g
}

// Root returns the root node's ID.
func (g *Graph) Root() NodeID { return g.root }

// Get returns the node for id. Panics if id is out of range, matching the
// arena's "caller owns valid IDs" contract.
func (g *Graph) Get(id NodeID) *Node { return g.nodes[id] }

// Len returns the number of interned nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Lookup returns the node for a theorem's unique string, if interned.
func (g *Graph) Lookup(uniqueString string) (*Node, bool) {
	id, ok := g.index[uniqueString]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// GetOrCreate interns a theorem by UniqueString. A theorem seen for the
// first time becomes a new node; a theorem seen again returns the existing
// node with only its Metadata refreshed (first-seen object wins for every
// other field).
func (g *Graph) GetOrCreate(th theorem.Theorem) (*Node, NodeID) {
	if id, ok := g.index[th.UniqueString]; ok {
		node := g.nodes[id]
		node.Theorem.Metadata = th.Metadata
		return node, id
	}

	id := NodeID(len(g.nodes))
	node := &Node{ID: id, Theorem: th}
	g.nodes = append(g.nodes, node)
	g.index[th.UniqueString] = id
	return node, id
}

// AllIDs returns every interned node ID, in creation order.
func (g *Graph) AllIDs() []NodeID {
	ids := make([]NodeID, len(g.nodes))
	for i := range g.nodes {
		ids[i] = NodeID(i)
	}
	return ids
}

// AddExpansion transitions a node from unexpanded to expanded. It is a
// no-op if the node is already expanded (idempotence: an EnvExpansion for
// an already-expanded target changes nothing). On success it materializes
// one edge per surviving tactic (duplicate UniqueStrings collapse to the
// first occurrence), interns every child theorem, records parent back-refs,
// runs cycle detection, and propagates solved/dead status. On error it
// marks the node terminal, records the failure message, and propagates dead
// status to its parents.
func (g *Graph) AddExpansion(id NodeID, exp theorem.EnvExpansion) {
	node := g.nodes[id]
	if node.IsExpanded {
		return
	}

	g.Effects = append(g.Effects, exp.Effects...)

	if exp.IsError {
		node.ExpansionError = errs.NewExpansion(node.Theorem.UniqueString, exp.Error)
		node.IsExpanded = true
		node.IsTerminal = true
		g.propagateDead(id)
		return
	}

	node.LogCritic = exp.LogCritic
	node.IsExpanded = true

	seen := make(map[string]bool, len(exp.Tactics))
	priorMass := 0.0
	for i, tac := range exp.Tactics {
		if seen[tac.UniqueString] {
			continue
		}
		seen[tac.UniqueString] = true

		children := exp.ChildrenForTactic[i]
		childIDs := make([]NodeID, len(children))
		for j, c := range children {
			_, cid := g.GetOrCreate(c)
			childIDs[j] = cid
		}

		edge := &HyperEdge{Tactic: tac, Children: childIDs, Prior: exp.Priors[i]}
		node.Edges = append(node.Edges, edge)
		priorMass += edge.Prior

		edgeIndex := len(node.Edges) - 1
		recorded := make(map[NodeID]bool, len(childIDs))
		for _, cid := range childIDs {
			if recorded[cid] {
				continue
			}
			recorded[cid] = true
			g.parentEdges[cid] = append(g.parentEdges[cid], parentRef{Parent: id, EdgeIndex: edgeIndex})
		}
	}
	node.PolicyPriorMass = priorMass

	if len(node.Edges) == 0 {
		node.IsTerminal = true
	}

	g.detectCycles(id)
	g.propagateSolved(id)
	g.propagateDead(id)
}

// bestEdge picks the current-best outgoing edge of a node for the purposes
// of the cycle-detection projection: the non-cycle edge with the highest
// visit count, ties broken by highest prior then by insertion order. Returns
// nil if the node has no eligible edge.
func bestEdge(node *Node) *HyperEdge {
	var best *HyperEdge
	for _, e := range node.Edges {
		if e.IsCycle {
			continue
		}
		if best == nil || e.N > best.N || (e.N == best.N && e.Prior > best.Prior) {
			best = e
		}
	}
	return best
}

// reaches reports whether target is reachable from start by repeatedly
// following each visited node's current-best edge. A node already visited
// in this walk returns false instead of being walked again, so a cyclic
// best-edge projection terminates rather than looping forever; the first
// visit of that node is the one that explores its children.
func (g *Graph) reaches(start, target NodeID) bool {
	visited := make(map[NodeID]bool)
	var walk func(cur NodeID) bool
	walk = func(cur NodeID) bool {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		be := bestEdge(g.nodes[cur])
		if be == nil {
			return false
		}
		for _, c := range be.Children {
			if walk(c) {
				return true
			}
		}
		return false
	}
	return walk(start)
}

// detectCycles recomputes the IsCycle flag for every edge of node id: an
// edge is a cycle if any of its children can reach id via the current-best
// projection (or is id itself).
func (g *Graph) detectCycles(id NodeID) {
	node := g.nodes[id]
	for _, e := range node.Edges {
		isCycle := false
		for _, c := range e.Children {
			if c == id || g.reaches(c, id) {
				isCycle = true
				break
			}
		}
		e.IsCycle = isCycle
	}
}

// propagateSolved runs the solved-propagation worklist starting at id: a
// node becomes solved once some non-cycle edge has every child solved
// (vacuously true for a zero-child edge); propagation repeats over parent
// edges to a fixed point. Solved is monotone — never reset to false.
func (g *Graph) propagateSolved(id NodeID) {
	queue := []NodeID{id}
	queued := map[NodeID]bool{id: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		queued[cur] = false

		node := g.nodes[cur]
		if node.Solved {
			continue
		}

		solved := false
		for _, e := range node.Edges {
			if e.IsCycle {
				continue
			}
			allSolved := true
			for _, c := range e.Children {
				if !g.nodes[c].Solved {
					allSolved = false
					break
				}
			}
			if allSolved {
				solved = true
				break
			}
		}

		if solved {
			node.Solved = true
			for _, pr := range g.parentEdges[cur] {
				if !queued[pr.Parent] {
					queue = append(queue, pr.Parent)
					queued[pr.Parent] = true
				}
			}
		}
	}
}

// propagateDead runs the mirror-image worklist for is_terminal: an edge is
// dead if it is a cycle edge or any child is dead (terminal and unsolved); a
// node becomes terminal once every edge is dead (or it has none). Propagates
// upward to a fixed point exactly like propagateSolved.
func (g *Graph) propagateDead(id NodeID) {
	queue := []NodeID{id}
	queued := map[NodeID]bool{id: true}
	if start := g.nodes[id]; start.IsTerminal && !start.Solved {
		// The start node is already dead (an expansion error or no edges),
		// and the loop below skips terminal nodes, so begin at its parents.
		queue = queue[:0]
		queued = map[NodeID]bool{}
		for _, pr := range g.parentEdges[id] {
			if !queued[pr.Parent] {
				queue = append(queue, pr.Parent)
				queued[pr.Parent] = true
			}
		}
	}

	isDeadChild := func(c NodeID) bool {
		cn := g.nodes[c]
		return cn.IsTerminal && !cn.Solved
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		queued[cur] = false

		node := g.nodes[cur]
		if node.Solved || node.IsTerminal || !node.IsExpanded {
			continue
		}

		allDead := true
		for _, e := range node.Edges {
			edgeDead := e.IsCycle
			if !edgeDead {
				for _, c := range e.Children {
					if isDeadChild(c) {
						edgeDead = true
						break
					}
				}
			}
			if !edgeDead {
				allDead = false
				break
			}
		}

		if allDead {
			node.IsTerminal = true
			for _, pr := range g.parentEdges[cur] {
				if !queued[pr.Parent] {
					queue = append(queue, pr.Parent)
					queued[pr.Parent] = true
				}
			}
		}
	}
}

// ParentEdgeCount returns how many (parent, edge) references target id, used
// by the fan-in test.
func (g *Graph) ParentEdgeCount(id NodeID) int {
	return len(g.parentEdges[id])
}

// RestoreParentEdge records a (parent, edgeIndex) back-reference to child
// directly, for callers reconstructing a graph from a serialized snapshot
// where edges are appended without going through AddExpansion.
func (g *Graph) RestoreParentEdge(child, parent NodeID, edgeIndex int) {
	g.parentEdges[child] = append(g.parentEdges[child], parentRef{Parent: parent, EdgeIndex: edgeIndex})
}
