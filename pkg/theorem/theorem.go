// Package theorem defines the immutable value types the HTPS search core
// operates on: theorems, tactics, hypotheses, contexts, and the
// environment-expansion contract the search driver consumes from its
// caller. Follows a "plain value type, builder-ish constructor" style.
package theorem

import (
	"math"

	"github.com/sorgfresser/htps-go/internal/errs"
)

// priorSumTolerance is the slack allowed when checking that an
// EnvExpansion's priors sum to 1.
const priorSumTolerance = 1e-4

// Hypothesis is a named local assumption available to a theorem.
// Equality is structural (both fields compared by value).
type Hypothesis struct {
	Identifier string
	Value      string
}

// Context is an ordered sequence of namespace strings. Equality is
// structural and order-sensitive.
type Context []string

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	if c == nil {
		return nil
	}
	out := make(Context, len(c))
	copy(out, c)
	return out
}

// Equal reports whether two contexts contain the same namespaces in the
// same order.
func (c Context) Equal(other Context) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if c[i] != other[i] {
			return false
		}
	}
	return true
}

// Tactic is a single proof step: its identity for hashing purposes is
// UniqueString alone; IsValid and Duration are payload, not identity.
type Tactic struct {
	UniqueString string
	IsValid      bool
	Duration     int
}

// NewTactic constructs a Tactic, rejecting a negative duration.
func NewTactic(uniqueString string, isValid bool, duration int) (Tactic, error) {
	if duration < 0 {
		return Tactic{}, errs.NewValidation("tactic %q: duration must be >= 0, got %d", uniqueString, duration)
	}
	return Tactic{UniqueString: uniqueString, IsValid: isValid, Duration: duration}, nil
}

// Theorem is a proof goal. Its identity key is UniqueString; Metadata is an
// opaque, caller-owned side channel that is not part of identity, is never
// serialized, and may be refreshed in place whenever the same UniqueString
// is observed again (see hypergraph.Graph.GetOrCreate).
type Theorem struct {
	Conclusion   string
	UniqueString string
	Hypotheses   []Hypothesis
	Ctx          Context
	PastTactics  []Tactic
	Metadata     map[string]string
}

// New constructs a Theorem with empty metadata.
func New(conclusion, uniqueString string, hypotheses []Hypothesis, ctx Context, pastTactics []Tactic) Theorem {
	return Theorem{
		Conclusion:   conclusion,
		UniqueString: uniqueString,
		Hypotheses:   hypotheses,
		Ctx:          ctx,
		PastTactics:  pastTactics,
	}
}

// WithMetadata returns a copy of the theorem with the given metadata
// attached. Metadata never affects UniqueString-based identity.
func (t Theorem) WithMetadata(md map[string]string) Theorem {
	t.Metadata = md
	return t
}

// EnvEffect is an observed transition the environment reports while
// expanding a goal: applying Tactic to Goal produced Children (in order,
// duplicates preserved — AND-semantics require proving every entry).
type EnvEffect struct {
	Goal     Theorem
	Tactic   Tactic
	Children []Theorem
}

// EnvExpansion is the result of asking the environment+model to expand one
// theorem. Either IsError is true and Error explains the failure, or all of
// Tactics/Priors/ChildrenForTactic are populated in lockstep.
type EnvExpansion struct {
	IsError bool
	Error   string

	Thm                Theorem
	ExpanderDuration   int
	GenerationDuration int
	EnvDurations       []int
	Effects            []EnvEffect
	LogCritic          float64
	Tactics            []Tactic
	ChildrenForTactic  [][]Theorem
	Priors             []float64
}

// NewErrorExpansion builds an EnvExpansion representing a failed expansion.
func NewErrorExpansion(thm Theorem, message string) EnvExpansion {
	return EnvExpansion{IsError: true, Error: message, Thm: thm}
}

// NewExpansion validates and builds a successful EnvExpansion. It enforces:
//   - |tactics| == |priors| == |childrenForTactic|
//   - every prior >= 0
//   - sum(priors) ~= 1, within priorSumTolerance
func NewExpansion(
	thm Theorem,
	expanderDuration, generationDuration int,
	envDurations []int,
	effects []EnvEffect,
	logCritic float64,
	tactics []Tactic,
	childrenForTactic [][]Theorem,
	priors []float64,
) (EnvExpansion, error) {
	if len(tactics) != len(priors) || len(tactics) != len(childrenForTactic) {
		return EnvExpansion{}, errs.NewValidation(
			"expansion of %q: tactics (%d), priors (%d), and children_for_tactic (%d) must have equal length",
			thm.UniqueString, len(tactics), len(priors), len(childrenForTactic),
		)
	}

	sum := 0.0
	for i, p := range priors {
		if p < 0 {
			return EnvExpansion{}, errs.NewValidation("expansion of %q: prior[%d] = %f must be >= 0", thm.UniqueString, i, p)
		}
		sum += p
	}
	if len(priors) > 0 && math.Abs(sum-1.0) > priorSumTolerance {
		return EnvExpansion{}, errs.NewValidation("expansion of %q: priors sum to %f, want 1.0 +/- %g", thm.UniqueString, sum, priorSumTolerance)
	}

	return EnvExpansion{
		Thm:                thm,
		ExpanderDuration:   expanderDuration,
		GenerationDuration: generationDuration,
		EnvDurations:       envDurations,
		Effects:            effects,
		LogCritic:          logCritic,
		Tactics:            tactics,
		ChildrenForTactic:  childrenForTactic,
		Priors:             priors,
	}, nil
}

// ClampedCritic returns exp(LogCritic) clamped to [0, 1].
func (e EnvExpansion) ClampedCritic() float64 {
	v := math.Exp(e.LogCritic)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
