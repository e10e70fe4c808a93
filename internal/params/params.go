// Package params defines the closed sum types shared by the hypergraph,
// PUCT scorer, search driver, and sample harvester. Keeping them in one leaf
// package (no internal imports of its own) lets every other internal
// package depend on the enums without creating an import cycle.
package params

// PolicyType selects the edge-scoring rule used during selection.
type PolicyType string

const (
	PolicyAlphaZero PolicyType = "alpha_zero"
	PolicyRPO       PolicyType = "rpo"
	PolicyOther     PolicyType = "other"
)

// QValueSolved selects how a solved child edge contributes to its parent's Q
// estimate.
type QValueSolved string

const (
	QValueSolvedOne            QValueSolved = "one"
	QValueSolvedOneOverCounts  QValueSolved = "one_over_counts"
	QValueSolvedCountOverCounts QValueSolved = "count_over_counts"
	QValueSolvedNone           QValueSolved = "none"
)

// Metric selects the cost function minimized when extracting a minimal
// proof tree from a solved root.
type Metric string

const (
	MetricTime  Metric = "time"
	MetricDepth Metric = "depth"
	MetricSize  Metric = "size"
)

// NodeMask restricts which non-leaf nodes may be selected as a to-expand
// target during a root-to-leaf descent.
type NodeMask string

const (
	NodeMaskNone                NodeMask = "no_mask"
	NodeMaskSolving             NodeMask = "solving"
	NodeMaskProof               NodeMask = "proof"
	NodeMaskMinimalProof        NodeMask = "minimal_proof"
	NodeMaskMinimalProofSolving NodeMask = "minimal_proof_solving"
)

// InProof labels a tactic sample's membership in the overall proof and in
// the minimal proof tree.
type InProof string

const (
	NotInProof     InProof = "not_in_proof"
	InProofYes     InProof = "in_proof"
	InMinimalProof InProof = "in_minimal_proof"
)
