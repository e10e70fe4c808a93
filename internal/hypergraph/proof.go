package hypergraph

import "github.com/sorgfresser/htps-go/internal/params"

// ProofTree is one node of an extracted proof: the tactic applied at this
// step and the subtrees proving each of its children, preserving child
// order and multiplicity exactly as the winning edge recorded them.
type ProofTree struct {
	NodeID   NodeID
	Tactic   string
	Children []*ProofTree
}

// cost is the per-metric accumulator a resolver threads through the
// hypergraph while picking the cheapest solved edge at each node. theorems
// is the set of distinct node IDs (== distinct theorems, by unique_string
// interning) appearing anywhere in this subtree, including the node itself
// — shared descendants across sibling children are only counted once.
type cost struct {
	time     int
	depth    int
	theorems map[NodeID]struct{}
}

func (c cost) value(metric params.Metric) int {
	switch metric {
	case params.MetricDepth:
		return c.depth
	case params.MetricSize:
		return len(c.theorems)
	default:
		return c.time
	}
}

func (c cost) less(other cost, metric params.Metric) bool {
	return c.value(metric) < other.value(metric)
}

func combine(id NodeID, edgeDuration int, children []cost, metric params.Metric) cost {
	sumTime := edgeDuration
	maxDepth := 0
	theorems := map[NodeID]struct{}{id: {}}
	for _, c := range children {
		sumTime += c.time
		if c.depth > maxDepth {
			maxDepth = c.depth
		}
		for t := range c.theorems {
			theorems[t] = struct{}{}
		}
	}
	return cost{time: sumTime, depth: maxDepth + 1, theorems: theorems}
}

// MinimalProof extracts the cheapest proof of root under metric, returning
// ok=false if root is not solved. Every distinct theorem appearing anywhere
// in the tree is marked InMinimalProof on the underlying node. Ties are
// broken by edge insertion order, keeping proof extraction deterministic
// across replays.
func (g *Graph) MinimalProof(root NodeID, metric params.Metric) (*ProofTree, bool) {
	if !g.nodes[root].Solved {
		return nil, false
	}

	memoTree := make(map[NodeID]*ProofTree)
	memoCost := make(map[NodeID]cost)
	inProgress := make(map[NodeID]bool)

	var resolve func(id NodeID) (*ProofTree, cost, bool)
	resolve = func(id NodeID) (*ProofTree, cost, bool) {
		if t, ok := memoTree[id]; ok {
			return t, memoCost[id], true
		}
		node := g.nodes[id]
		if !node.Solved {
			return nil, cost{}, false
		}
		if inProgress[id] {
			// A solved back-edge in the current-best projection: treat as
			// unresolved here so the caller tries the next edge instead of
			// recursing forever.
			return nil, cost{}, false
		}
		inProgress[id] = true
		defer func() { inProgress[id] = false }()

		var bestTree *ProofTree
		var bestCost cost
		found := false

		for _, e := range node.Edges {
			if e.IsCycle {
				continue
			}
			childTrees := make([]*ProofTree, 0, len(e.Children))
			childCosts := make([]cost, 0, len(e.Children))
			ok := true
			for _, c := range e.Children {
				ct, cc, cok := resolve(c)
				if !cok {
					ok = false
					break
				}
				childTrees = append(childTrees, ct)
				childCosts = append(childCosts, cc)
			}
			if !ok {
				continue
			}

			candidateCost := combine(id, e.Tactic.Duration, childCosts, metric)
			if !found || candidateCost.less(bestCost, metric) {
				found = true
				bestCost = candidateCost
				bestTree = &ProofTree{NodeID: id, Tactic: e.Tactic.UniqueString, Children: childTrees}
			}
		}

		if !found {
			return nil, cost{}, false
		}
		memoTree[id] = bestTree
		memoCost[id] = bestCost
		return bestTree, bestCost, true
	}

	tree, _, ok := resolve(root)
	if ok {
		var mark func(t *ProofTree)
		mark = func(t *ProofTree) {
			g.nodes[t.NodeID].InMinimalProof = true
			for _, c := range t.Children {
				mark(c)
			}
		}
		mark(tree)
	}
	return tree, ok
}
