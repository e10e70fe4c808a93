// Package harvest implements the training-sample harvester (component E):
// once a search terminates, it walks the hypergraph to emit critic, tactic,
// and effect samples plus the minimal proof tree.
package harvest

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sorgfresser/htps-go/internal/hypergraph"
	"github.com/sorgfresser/htps-go/internal/params"
	"github.com/sorgfresser/htps-go/internal/puct"
	"github.com/sorgfresser/htps-go/pkg/logging"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// CriticSample is one node's critic-training record.
type CriticSample struct {
	Goal       theorem.Theorem
	QEstimate  float64
	Solved     bool
	Bad        bool
	Critic     float64
	VisitCount int
}

// TacticSample is one node's policy-training record.
type TacticSample struct {
	Goal       theorem.Theorem
	Tactics    []theorem.Tactic
	TargetPi   []float64
	InProof    params.InProof
	QEstimates []float64
	VisitCount int
}

// EffectSample is one observed (goal, tactic) -> children transition.
type EffectSample struct {
	Goal     theorem.Theorem
	Tactic   theorem.Tactic
	Children []theorem.Theorem
}

// Result is the harvester's complete output for one terminated search.
type Result struct {
	Proven              bool
	CriticSamples       []CriticSample
	TacticSamples       []TacticSample
	EffectSamples       []EffectSample
	ProofSamplesTactics []TacticSample
	Proof               *hypergraph.ProofTree
}

// badCriticLogThreshold is the log-critic value below which an expanded,
// terminal-and-unsolved node is flagged "bad" for critic training: the
// critic was confident (clamped critic > 0.5) but the goal was never
// proved.
var badCriticLogThreshold = math.Log(0.5)

// keep decides whether a sample survives subsampling at the given rate.
func keep(rate float64) bool {
	if rate >= 1.0 {
		return true
	}
	if rate <= 0.0 {
		return false
	}
	return rand.Float64() < rate
}

// effectKey identifies an EnvEffect for dedup purposes: goal and tactic
// identity plus the children as an order-insensitive multiset — two
// children lists differing only in occurrence count (e.g. [A] vs [A, A])
// must hash differently.
type effectKey struct {
	goal   string
	tactic string
	kids   string
}

func keyFor(e theorem.EnvEffect) effectKey {
	counts := make(map[string]int, len(e.Children))
	for _, c := range e.Children {
		counts[c.UniqueString]++
	}
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sortStrings(names)

	kids := ""
	for _, name := range names {
		kids += fmt.Sprintf("%s\x01%d\x00", name, counts[name])
	}
	return effectKey{goal: e.Goal.UniqueString, tactic: e.Tactic.UniqueString, kids: kids}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Harvest walks g (tolerating cycles via a unique_string visited set) and
// produces a Result. metric selects the minimal-proof extraction cost;
// effectRate/criticRate are the respective subsampling rates.
func Harvest(g *hypergraph.Graph, cfg puct.Config, metric params.Metric, effectRate, criticRate float64) Result {
	root := g.Get(g.Root())
	var proof *hypergraph.ProofTree
	if root.Solved {
		proof, _ = g.MinimalProof(g.Root(), metric)
	}

	result := Result{Proven: root.Solved, Proof: proof}

	visited := make(map[string]bool)
	for _, id := range g.AllIDs() {
		node := g.Get(id)
		if !node.IsExpanded || visited[node.Theorem.UniqueString] {
			continue
		}
		visited[node.Theorem.UniqueString] = true

		if criticRate > 0 && keep(criticRate) {
			result.CriticSamples = append(result.CriticSamples, criticSampleFor(g, cfg, node))
		}

		if ts, ok := tacticSampleFor(g, cfg, node); ok {
			result.TacticSamples = append(result.TacticSamples, ts)
			if ts.InProof == params.InMinimalProof {
				result.ProofSamplesTactics = append(result.ProofSamplesTactics, ts)
			}
		}
	}

	result.EffectSamples = effectSamples(g.Effects, effectRate)

	logging.ForComponent(logging.ComponentHarvest).Info("harvest complete",
		"proven", result.Proven,
		"critic_samples", len(result.CriticSamples),
		"tactic_samples", len(result.TacticSamples),
		"effect_samples", len(result.EffectSamples),
	)
	return result
}

func criticSampleFor(g *hypergraph.Graph, cfg puct.Config, node *hypergraph.Node) CriticSample {
	q := puct.BestQ(g, cfg, node)
	bad := node.IsTerminal && !node.Solved && node.LogCritic > badCriticLogThreshold
	return CriticSample{
		Goal:       node.Theorem,
		QEstimate:  q,
		Solved:     node.Solved,
		Bad:        bad,
		Critic:     node.LogCritic,
		VisitCount: node.VisitCount,
	}
}

func tacticSampleFor(g *hypergraph.Graph, cfg puct.Config, node *hypergraph.Node) (TacticSample, bool) {
	var eligible []*hypergraph.HyperEdge
	for _, e := range node.Edges {
		if !e.IsCycle {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return TacticSample{}, false
	}

	tactics := make([]theorem.Tactic, len(eligible))
	qEstimates := make([]float64, len(eligible))
	targetPi := make([]float64, len(eligible))

	for i, e := range eligible {
		tactics[i] = e.Tactic
		qEstimates[i] = puct.VirtualAdjustedQ(cfg, e)
	}

	if node.Solved {
		fillSolvedTargetPi(g, eligible, targetPi)
	} else {
		fillVisitShareTargetPi(eligible, targetPi)
	}

	inProof := params.NotInProof
	if node.InMinimalProof {
		inProof = params.InMinimalProof
	} else if node.Solved {
		inProof = params.InProofYes
	}

	return TacticSample{
		Goal:       node.Theorem,
		Tactics:    tactics,
		TargetPi:   targetPi,
		InProof:    inProof,
		QEstimates: qEstimates,
		VisitCount: node.VisitCount,
	}, true
}

// fillSolvedTargetPi gives a solved node's one-hot-ish target: every edge
// whose children are all solved gets equal positive mass, every other edge
// gets the sentinel -1.0 marking it irrelevant to the policy target.
func fillSolvedTargetPi(g *hypergraph.Graph, edges []*hypergraph.HyperEdge, out []float64) {
	solvedIdx := make([]int, 0, len(edges))
	for i, e := range edges {
		allSolved := true
		for _, c := range e.Children {
			if !g.Get(c).Solved {
				allSolved = false
				break
			}
		}
		if allSolved {
			solvedIdx = append(solvedIdx, i)
		} else {
			out[i] = -1.0
		}
	}
	if len(solvedIdx) == 0 {
		return
	}
	mass := 1.0 / float64(len(solvedIdx))
	for _, i := range solvedIdx {
		out[i] = mass
	}
}

func fillVisitShareTargetPi(edges []*hypergraph.HyperEdge, out []float64) {
	total := 0
	for _, e := range edges {
		total += e.N
	}
	if total == 0 {
		share := 1.0 / float64(len(edges))
		for i := range out {
			out[i] = share
		}
		return
	}
	for i, e := range edges {
		out[i] = float64(e.N) / float64(total)
	}
}

func effectSamples(effects []theorem.EnvEffect, rate float64) []EffectSample {
	seen := make(map[effectKey]bool)
	var out []EffectSample
	for _, e := range effects {
		k := keyFor(e)
		if seen[k] {
			continue
		}
		seen[k] = true
		if !keep(rate) {
			continue
		}
		out = append(out, EffectSample{Goal: e.Goal, Tactic: e.Tactic, Children: e.Children})
	}
	return out
}
