package search

import (
	"log/slog"

	"github.com/sorgfresser/htps-go/internal/hypergraph"
	"github.com/sorgfresser/htps-go/internal/puct"
	"github.com/sorgfresser/htps-go/pkg/logging"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// Reason names why a search stopped.
type Reason string

const (
	ReasonNotDone      Reason = ""
	ReasonProven       Reason = "proven"
	ReasonExhausted    Reason = "exhausted"
	ReasonStuck        Reason = "stuck"
	ReasonSolvedBound  Reason = "solved_lower_bound"
)

// pathStep is one (node, outgoing edge index) hop recorded during a descent,
// so backup can walk it in reverse once the leaf's expansion arrives.
type pathStep struct {
	node hypergraph.NodeID
	edge int
}

type cursorKey struct {
	node hypergraph.NodeID
	edge int
}

// Driver runs the single-threaded cooperative state machine described at
// component D: it owns the hypergraph, hands out unexpanded leaves, and
// consumes expansions into backed-up edge statistics.
type Driver struct {
	graph  *hypergraph.Graph
	params Params
	cfg    puct.Config

	pendingList map[hypergraph.NodeID][][]pathStep
	repeatCount map[hypergraph.NodeID]int
	cursor      map[cursorKey]int

	log *slog.Logger

	done   bool
	reason Reason
	stuck  bool
}

// New constructs a Driver over a freshly-created graph rooted at root.
func New(root theorem.Theorem, p Params) (*Driver, error) {
	log := logging.ForComponent(logging.ComponentSearch)
	if err := p.Validate(); err != nil {
		log.Warn("search params failed validation", "root", root.UniqueString, "err", err)
		return nil, err
	}
	return &Driver{
		graph:  hypergraph.New(root),
		params: p,
		cfg: puct.Config{
			Exploration:       p.Exploration,
			PolicyType:        p.PolicyType,
			DepthPenalty:      p.DepthPenalty,
			TacticInitValue:   p.TacticInitValue,
			QValueSolved:      p.QValueSolved,
			PolicyTemperature: p.PolicyTemperature,
			VirtualLoss:       p.VirtualLoss,
			NoCritic:          p.NoCritic,
		},
		pendingList: make(map[hypergraph.NodeID][][]pathStep),
		repeatCount: make(map[hypergraph.NodeID]int),
		cursor:      make(map[cursorKey]int),
		log:         log,
	}, nil
}

// Graph exposes the underlying hypergraph, read-only by convention, for the
// harvester and for JSON serialization.
func (d *Driver) Graph() *hypergraph.Graph { return d.graph }

// Params returns the search's configuration.
func (d *Driver) Params() Params { return d.params }

// Proven reports whether the root is solved.
func (d *Driver) Proven() bool { return d.graph.Get(d.graph.Root()).Solved }

// IsDone reports whether the search has terminated.
func (d *Driver) IsDone() bool { return d.done }

// Reason returns why the search terminated, or ReasonNotDone if it has not.
func (d *Driver) Reason() Reason { return d.reason }

// TheoremsToExpand runs up to SuccExpansions root-to-leaf descents,
// collecting up to NumExpansions distinct unexpanded leaves. It is a no-op
// once the search is done.
func (d *Driver) TheoremsToExpand() []theorem.Theorem {
	if d.done {
		return nil
	}

	d.pendingList = make(map[hypergraph.NodeID][][]pathStep)
	seen := make(map[hypergraph.NodeID]bool)
	var leaves []theorem.Theorem

	root := d.graph.Get(d.graph.Root())
	if d.params.EarlyStopping && root.Solved {
		return nil
	}

	for attempt := 0; attempt < d.params.SuccExpansions && len(leaves) < d.params.NumExpansions; attempt++ {
		path, leafID, ok := d.descend()
		if !ok {
			continue
		}

		d.pendingList[leafID] = append(d.pendingList[leafID], path)
		if !seen[leafID] {
			seen[leafID] = true
			leaves = append(leaves, d.graph.Get(leafID).Theorem)

			d.repeatCount[leafID]++
			if d.repeatCount[leafID] >= d.params.CountThreshold {
				d.stuck = true
			}
		}
	}

	if d.stuck && !d.done {
		d.done = true
		d.reason = ReasonStuck
		d.log.Info("search terminated", "reason", d.reason, "root", root.Theorem.UniqueString)
	}

	return leaves
}

// descend performs one root-to-leaf walk, applying virtual loss along the
// way. ok is false when the walk could not reach an unexpanded node this
// time (every edge at some point was masked out or cyclic).
func (d *Driver) descend() (path []pathStep, leaf hypergraph.NodeID, ok bool) {
	cur := d.graph.Root()

	for {
		node := d.graph.Get(cur)
		if !node.IsExpanded {
			d.log.Debug("descent reached unexpanded leaf", "goal", node.Theorem.UniqueString, "depth", len(path))
			return path, cur, true
		}
		if !puct.Allowed(d.params.NodeMask, node) {
			return nil, 0, false
		}

		idx := puct.SelectEdge(d.cfg, node)
		if idx == -1 {
			return nil, 0, false
		}

		edge := node.Edges[idx]
		puct.ApplyVirtualLoss(edge)
		path = append(path, pathStep{node: cur, edge: idx})

		cur = d.nextChild(cur, idx, edge)
	}
}

// nextChild round-robins across an edge's children that still need proving,
// so a batch of descents spreads across open subgoals instead of hammering
// the first one. An edge whose children are all already solved (possible
// mid-batch, before solved status has propagated to the parent) falls back
// to its first child.
func (d *Driver) nextChild(parent hypergraph.NodeID, edgeIdx int, edge *hypergraph.HyperEdge) hypergraph.NodeID {
	var open []hypergraph.NodeID
	for _, c := range edge.Children {
		if !d.graph.Get(c).Solved {
			open = append(open, c)
		}
	}
	if len(open) == 0 {
		return edge.Children[0]
	}

	key := cursorKey{node: parent, edge: edgeIdx}
	i := d.cursor[key] % len(open)
	d.cursor[key]++
	return open[i]
}

// ExpandAndBackup consumes one batch of expansions: each materializes its
// node's edges, then backs up every recorded descent path that led to it.
// Already-expanded targets are ignored (idempotence), though their pending
// virtual loss is still reverted.
func (d *Driver) ExpandAndBackup(expansions []theorem.EnvExpansion) {
	if d.done {
		return
	}

	for _, exp := range expansions {
		node, id := d.graph.GetOrCreate(exp.Thm)

		paths := d.pendingList[id]
		delete(d.pendingList, id)

		if node.IsExpanded {
			for _, p := range paths {
				d.revertPath(p)
			}
			continue
		}

		d.graph.AddExpansion(id, exp)
		delete(d.repeatCount, id)

		backupPaths := paths
		onlyOne := d.params.BackupOnce || (d.params.BackupOneForSolved && d.graph.Get(id).Solved)
		if onlyOne && len(paths) > 1 {
			backupPaths = paths[:1]
			for _, extra := range paths[1:] {
				d.revertPath(extra)
			}
		}

		for _, p := range backupPaths {
			d.backup(p)
		}
	}

	d.checkTermination()
}

// backup walks path in reverse, converting each step's virtual loss into a
// real visit with the AND-product value rule.
func (d *Driver) backup(path []pathStep) {
	d.log.Debug("backing up descent", "steps", len(path))
	for i := len(path) - 1; i >= 0; i-- {
		step := path[i]
		node := d.graph.Get(step.node)
		edge := node.Edges[step.edge]
		puct.Backup(d.graph, d.cfg, edge)
		node.VisitCount++
	}
}

// revertPath undoes the virtual loss recorded along a path without
// contributing to W/N, used when a duplicate descent to the same leaf is
// dropped under backup_once / backup_one_for_solved.
func (d *Driver) revertPath(path []pathStep) {
	for i := len(path) - 1; i >= 0; i-- {
		step := path[i]
		edge := d.graph.Get(step.node).Edges[step.edge]
		puct.RevertVirtualLoss(edge)
	}
}

// RecomputeTermination re-evaluates the done/reason state from the current
// graph, for callers that just restored node flags directly (e.g. JSON
// restore) without going through ExpandAndBackup. The stuck reason cannot
// be recovered this way since "stuck" is not part of the serialized schema;
// a restored search that was stuck reports exhausted or not-done instead.
func (d *Driver) RecomputeTermination() {
	d.checkTermination()
}

func (d *Driver) checkTermination() {
	root := d.graph.Get(d.graph.Root())
	wasDone := d.done

	switch {
	case root.Solved:
		d.done = true
		d.reason = ReasonProven
	case root.IsTerminal:
		d.done = true
		d.reason = ReasonExhausted
	case d.stuck:
		d.done = true
		d.reason = ReasonStuck
	case d.params.EarlyStoppingSolvedIfRootNotProven && d.anySolved():
		d.done = true
		d.reason = ReasonSolvedBound
	}

	if d.done && !wasDone {
		d.log.Info("search terminated", "reason", d.reason, "root", root.Theorem.UniqueString)
	}
}

func (d *Driver) anySolved() bool {
	for _, id := range d.graph.AllIDs() {
		if d.graph.Get(id).Solved {
			return true
		}
	}
	return false
}
