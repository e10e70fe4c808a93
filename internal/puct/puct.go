// Package puct implements the per-edge PUCT statistics, the three policy
// scorer variants, virtual loss, and the Q-value-on-solved conventions used
// by the search driver (component C of the engine this package supports).
package puct

import (
	"math"

	"github.com/sorgfresser/htps-go/internal/hypergraph"
	"github.com/sorgfresser/htps-go/internal/params"
)

// Config bundles the subset of search parameters the scorer needs.
type Config struct {
	Exploration       float64
	PolicyType        params.PolicyType
	DepthPenalty      float64
	TacticInitValue   float64
	QValueSolved      params.QValueSolved
	PolicyTemperature float64
	VirtualLoss       float64
	NoCritic          bool
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// EdgeQ is an edge's raw average value, zero for a never-visited edge.
func EdgeQ(e *hypergraph.HyperEdge) float64 {
	if e.N == 0 {
		return 0
	}
	return e.W / float64(e.N)
}

// VirtualAdjustedQ subtracts the in-flight virtual-loss penalty from an
// edge's Q: `virtual_loss · virtual_count/(N+virtual_count+1)`.
func VirtualAdjustedQ(cfg Config, e *hypergraph.HyperEdge) float64 {
	q := EdgeQ(e)
	if e.VirtualCount == 0 {
		return q
	}
	penalty := cfg.VirtualLoss * float64(e.VirtualCount) / (float64(e.N+e.VirtualCount) + 1)
	return q - penalty
}

// ChildValue is the value a child contributes to its parent edge's
// AND-product: the Q-value-on-solved convention if the child is solved,
// tactic_init_value if it has never been expanded, otherwise the child's
// own best-edge Q.
//
// An unexpanded child's critic score can only ever be observed alongside
// its own expansion in this implementation (there is no separate
// critic-only prescoring channel), so the "exp(log_critic) if available"
// half of this rule is unreachable here by construction; tactic_init_value
// is always used for unexpanded children.
func ChildValue(g *hypergraph.Graph, cfg Config, child hypergraph.NodeID) float64 {
	node := g.Get(child)

	if node.Solved {
		switch cfg.QValueSolved {
		case params.QValueSolvedOne:
			return 1.0
		case params.QValueSolvedOneOverCounts:
			return 1.0 / float64(1+node.VisitCount)
		case params.QValueSolvedCountOverCounts:
			return float64(node.VisitCount) / float64(1+node.VisitCount)
		default: // QValueSolvedNone
			if cfg.NoCritic {
				return 1.0
			}
			return clamp01(math.Exp(node.LogCritic))
		}
	}

	if !node.IsExpanded {
		return cfg.TacticInitValue
	}

	best := BestQ(g, cfg, node)
	return best
}

// BestQ returns the highest virtual-adjusted Q among a node's non-cycle
// edges, or tactic_init_value if the node has no eligible edge (a terminal,
// unsolved dead end).
func BestQ(g *hypergraph.Graph, cfg Config, node *hypergraph.Node) float64 {
	found := false
	best := 0.0
	for _, e := range node.Edges {
		if e.IsCycle {
			continue
		}
		q := VirtualAdjustedQ(cfg, e)
		if !found || q > best {
			found = true
			best = q
		}
	}
	if !found {
		return cfg.TacticInitValue
	}
	return best
}

// EdgeValue is the AND-product value of following e, depth-penalized: the
// product of every child's current value, scaled once by depth_penalty.
func EdgeValue(g *hypergraph.Graph, cfg Config, e *hypergraph.HyperEdge) float64 {
	product := 1.0
	for _, c := range e.Children {
		product *= ChildValue(g, cfg, c)
	}
	return cfg.DepthPenalty * product
}

// Score ranks an edge under the configured policy scorer for selection at a
// node with parentN total visits.
func Score(cfg Config, e *hypergraph.HyperEdge, parentN int) float64 {
	q := VirtualAdjustedQ(cfg, e)

	switch cfg.PolicyType {
	case params.PolicyAlphaZero:
		return q + cfg.Exploration*e.Prior*math.Sqrt(float64(parentN))/(1+float64(e.N))
	case params.PolicyRPO:
		return rpoScore(cfg, e, parentN)
	default: // params.PolicyOther
		if parentN == 0 {
			return e.Prior
		}
		return q
	}
}

// rpoScore implements the regularized-policy-optimization ranking: edges are
// compared by the closed-form policy weight `prior(e)·exp(Q(e)/τ)` minus the
// edge's current visit share, so the edge most under-represented relative to
// its target policy mass is preferred. The weight here is not normalized;
// SelectEdge divides it by the sum over the parent's non-cycle edges.
func rpoScore(cfg Config, e *hypergraph.HyperEdge, parentN int) float64 {
	weight := e.Prior * math.Exp(EdgeQ(e)/cfg.PolicyTemperature)
	return weight - float64(e.N)/(1+float64(parentN))
}

// SelectEdge returns the index of the best-scoring non-cycle edge of node,
// or -1 if node has none (every edge is a cycle, or node has no edges).
func SelectEdge(cfg Config, node *hypergraph.Node) int {
	parentN := node.VisitCount

	// RPO's ranking quantity is a normalized policy weight; precompute the
	// normalizer across eligible edges once.
	var rpoNorm float64
	if cfg.PolicyType == params.PolicyRPO {
		for _, e := range node.Edges {
			if e.IsCycle {
				continue
			}
			rpoNorm += e.Prior * math.Exp(EdgeQ(e)/cfg.PolicyTemperature)
		}
	}

	best := -1
	bestScore := 0.0
	for i, e := range node.Edges {
		if e.IsCycle {
			continue
		}
		var score float64
		if cfg.PolicyType == params.PolicyRPO && rpoNorm > 0 {
			pi := (e.Prior * math.Exp(EdgeQ(e)/cfg.PolicyTemperature)) / rpoNorm
			score = pi - float64(e.N)/(1+float64(parentN))
		} else {
			score = Score(cfg, e, parentN)
		}
		if best == -1 || score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// ApplyVirtualLoss marks e as having one more in-flight descent through it.
func ApplyVirtualLoss(e *hypergraph.HyperEdge) {
	e.VirtualCount++
}

// RevertVirtualLoss reverses one ApplyVirtualLoss call, saturating at zero.
func RevertVirtualLoss(e *hypergraph.HyperEdge) {
	if e.VirtualCount > 0 {
		e.VirtualCount--
	}
}

// Backup records one real visit through e: reverts its virtual loss and
// adds the edge's current AND-product value to its running statistics.
func Backup(g *hypergraph.Graph, cfg Config, e *hypergraph.HyperEdge) {
	RevertVirtualLoss(e)
	e.W += EdgeValue(g, cfg, e)
	e.N++
}

// Allowed reports whether a node may be descended into as an intermediate
// step under the given node mask.
//
// MinimalProofSolving's literal reading (minimal-proof membership and
// unsolved) is unsatisfiable once a minimal proof has been extracted, since
// every node on it is solved by construction; it is kept as a distinct,
// always-empty-until-re-extraction predicate rather than folded into
// MinimalProof, keeping the five-way enum intact.
func Allowed(mask params.NodeMask, node *hypergraph.Node) bool {
	switch mask {
	case params.NodeMaskSolving:
		return !node.Solved
	case params.NodeMaskProof:
		return node.Solved
	case params.NodeMaskMinimalProof:
		return node.InMinimalProof
	case params.NodeMaskMinimalProofSolving:
		return node.InMinimalProof && !node.Solved
	default: // params.NodeMaskNone
		return true
	}
}
