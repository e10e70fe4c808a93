package htps

import (
	"encoding/json"
	"fmt"

	"github.com/sorgfresser/htps-go/internal/hypergraph"
	"github.com/sorgfresser/htps-go/internal/search"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

type jsonTactic struct {
	UniqueString string `json:"unique_string"`
	IsValid      bool   `json:"is_valid"`
	Duration     int    `json:"duration"`
}

type jsonEdge struct {
	Tactic   jsonTactic `json:"tactic"`
	Prior    float64    `json:"prior"`
	Children []string   `json:"children"`
	W        float64    `json:"w"`
	N        int        `json:"n"`
	IsCycle  bool       `json:"is_cycle"`
}

type jsonEffect struct {
	Goal     jsonTheorem `json:"goal"`
	Tactic   jsonTactic  `json:"tactic"`
	Children []jsonTheorem `json:"children"`
}

type jsonTheorem struct {
	Conclusion   string               `json:"conclusion"`
	UniqueString string               `json:"unique_string"`
	Hypotheses   []theorem.Hypothesis `json:"hypotheses"`
	Ctx          []string             `json:"ctx"`
}

type jsonNode struct {
	jsonTheorem
	LogCritic      float64    `json:"log_critic"`
	VisitCount     int        `json:"visit_count"`
	Solved         bool       `json:"solved"`
	IsTerminal     bool       `json:"is_terminal"`
	InMinimalProof bool       `json:"in_minimal_proof"`
	IsExpanded     bool       `json:"is_expanded"`
	Edges          []jsonEdge `json:"edges"`
}

type jsonDoc struct {
	Params  search.Params `json:"params"`
	Root    string        `json:"root"`
	Nodes   []jsonNode    `json:"nodes"`
	Effects []jsonEffect  `json:"effects"`
}

func toJSONTheorem(t theorem.Theorem) jsonTheorem {
	return jsonTheorem{
		Conclusion:   t.Conclusion,
		UniqueString: t.UniqueString,
		Hypotheses:   t.Hypotheses,
		Ctx:          []string(t.Ctx),
	}
}

func (t jsonTheorem) toTheorem() theorem.Theorem {
	return theorem.New(t.Conclusion, t.UniqueString, t.Hypotheses, theorem.Context(t.Ctx), nil)
}

// GetJSONStr serializes h's params and hypergraph state (metadata omitted)
// to a JSON string, per the round-trip contract at the API boundary.
func (h *HTPS) GetJSONStr() (string, error) {
	g := h.driver.Graph()

	doc := jsonDoc{
		Params: h.driver.Params(),
		Root:   g.Get(g.Root()).Theorem.UniqueString,
	}

	for _, id := range g.AllIDs() {
		node := g.Get(id)
		jn := jsonNode{
			jsonTheorem:    toJSONTheorem(node.Theorem),
			LogCritic:      node.LogCritic,
			VisitCount:     node.VisitCount,
			Solved:         node.Solved,
			IsTerminal:     node.IsTerminal,
			InMinimalProof: node.InMinimalProof,
			IsExpanded:     node.IsExpanded,
		}
		for _, e := range node.Edges {
			je := jsonEdge{
				Tactic: jsonTactic{
					UniqueString: e.Tactic.UniqueString,
					IsValid:      e.Tactic.IsValid,
					Duration:     e.Tactic.Duration,
				},
				Prior:   e.Prior,
				W:       e.W,
				N:       e.N,
				IsCycle: e.IsCycle,
			}
			for _, c := range e.Children {
				je.Children = append(je.Children, g.Get(c).Theorem.UniqueString)
			}
			jn.Edges = append(jn.Edges, je)
		}
		doc.Nodes = append(doc.Nodes, jn)
	}

	for _, e := range g.Effects {
		doc.Effects = append(doc.Effects, jsonEffect{
			Goal: toJSONTheorem(e.Goal),
			Tactic: jsonTactic{
				UniqueString: e.Tactic.UniqueString,
				IsValid:      e.Tactic.IsValid,
				Duration:     e.Tactic.Duration,
			},
			Children: mapSlice(e.Children, toJSONTheorem),
		})
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal htps state: %w", err)
	}
	return string(out), nil
}

func mapSlice[T, U any](in []T, f func(T) U) []U {
	out := make([]U, len(in))
	for i, v := range in {
		out[i] = f(v)
	}
	return out
}

// FromJSONStr restores an HTPS instance from GetJSONStr's output. Metadata
// is intentionally not part of the schema and is absent on every restored
// theorem.
func FromJSONStr(data string) (*HTPS, error) {
	var doc jsonDoc
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal htps state: %w", err)
	}

	var rootNode *jsonNode
	byUS := make(map[string]*jsonNode, len(doc.Nodes))
	for i := range doc.Nodes {
		n := &doc.Nodes[i]
		byUS[n.UniqueString] = n
		if n.UniqueString == doc.Root {
			rootNode = n
		}
	}
	if rootNode == nil {
		return nil, fmt.Errorf("restore htps state: root %q not present in nodes", doc.Root)
	}

	d, err := search.New(rootNode.toTheorem(), doc.Params)
	if err != nil {
		return nil, err
	}
	g := d.Graph()

	for _, n := range doc.Nodes {
		if n.UniqueString == doc.Root {
			continue
		}
		g.GetOrCreate(n.toTheorem())
	}

	for _, n := range doc.Nodes {
		node, id := g.Lookup(n.UniqueString)
		node.LogCritic = n.LogCritic
		node.VisitCount = n.VisitCount
		node.Solved = n.Solved
		node.IsTerminal = n.IsTerminal
		node.InMinimalProof = n.InMinimalProof
		node.IsExpanded = n.IsExpanded

		for edgeIdx, je := range n.Edges {
			tac, err := theorem.NewTactic(je.Tactic.UniqueString, je.Tactic.IsValid, je.Tactic.Duration)
			if err != nil {
				return nil, fmt.Errorf("restore edge tactic %q: %w", je.Tactic.UniqueString, err)
			}

			children := make([]hypergraph.NodeID, len(je.Children))
			for i, cus := range je.Children {
				childNode, ok := g.Lookup(cus)
				if !ok {
					return nil, fmt.Errorf("restore edge: child %q not present in nodes", cus)
				}
				children[i] = childNode.ID
				g.RestoreParentEdge(childNode.ID, id, edgeIdx)
			}

			node.Edges = append(node.Edges, &hypergraph.HyperEdge{
				Tactic:   tac,
				Children: children,
				Prior:    je.Prior,
				W:        je.W,
				N:        je.N,
				IsCycle:  je.IsCycle,
			})
		}
	}

	for _, je := range doc.Effects {
		g.Effects = append(g.Effects, theorem.EnvEffect{
			Goal: je.Goal.toTheorem(),
			Tactic: func() theorem.Tactic {
				t, _ := theorem.NewTactic(je.Tactic.UniqueString, je.Tactic.IsValid, je.Tactic.Duration)
				return t
			}(),
			Children: mapSlice(je.Children, jsonTheorem.toTheorem),
		})
	}

	d.RecomputeTermination()

	return &HTPS{driver: d}, nil
}
