package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sorgfresser/htps-go/pkg/logging"
	"github.com/sorgfresser/htps-go/pkg/retry"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// errTransientOracle is a sentinel the fake oracle returns while a
// theorem's flaky_attempts budget has not yet been exhausted, so retry.Do
// knows to retry it rather than surface it as a real expansion failure.
var errTransientOracle = errors.New("oracle: transient failure, retrying")

// fakeOracle answers theorem expansion requests from a scenario file's
// canned responses, standing in for the policy+critic model a real
// deployment queries over RPC. It is safe for concurrent use.
type fakeOracle struct {
	scenario *scenarioFile

	mu       sync.Mutex
	attempts map[string]int
}

func newFakeOracle(s *scenarioFile) *fakeOracle {
	return &fakeOracle{scenario: s, attempts: make(map[string]int)}
}

// expand queries the oracle for one theorem, retrying transient failures
// per its flaky_attempts budget.
func (o *fakeOracle) expand(ctx context.Context, th theorem.Theorem) (theorem.EnvExpansion, error) {
	log := logging.ForComponent(logging.ComponentOracle)
	cfg := retry.OracleExpansionConfig().WithRetryable(func(err error) bool {
		retrying := errors.Is(err, errTransientOracle)
		if retrying {
			log.Debug("retrying transient oracle failure", "theorem", th.UniqueString)
		}
		return retrying
	})

	var exp theorem.EnvExpansion
	err := retry.Do(ctx, cfg, func() error {
		e, err := o.query(th)
		if err != nil {
			return err
		}
		exp = e
		return nil
	})
	return exp, err
}

func (o *fakeOracle) query(th theorem.Theorem) (theorem.EnvExpansion, error) {
	entry, ok := o.scenario.Theorems[th.UniqueString]
	if !ok {
		return theorem.EnvExpansion{}, fmt.Errorf("oracle: theorem %q has no scenario entry", th.UniqueString)
	}

	if entry.FlakyAttempts > 0 {
		o.mu.Lock()
		seen := o.attempts[th.UniqueString]
		o.attempts[th.UniqueString] = seen + 1
		o.mu.Unlock()
		if seen < entry.FlakyAttempts {
			return theorem.EnvExpansion{}, errTransientOracle
		}
	}

	if entry.IsError {
		return theorem.NewErrorExpansion(th, entry.Error), nil
	}

	tactics := make([]theorem.Tactic, len(entry.Tactics))
	childrenForTactic := make([][]theorem.Theorem, len(entry.Tactics))
	priors := make([]float64, len(entry.Tactics))
	var effects []theorem.EnvEffect

	for i, st := range entry.Tactics {
		tac, err := theorem.NewTactic(st.Name, true, st.Duration)
		if err != nil {
			return theorem.EnvExpansion{}, fmt.Errorf("oracle: theorem %q: %w", th.UniqueString, err)
		}
		tactics[i] = tac
		priors[i] = st.Prior

		children := make([]theorem.Theorem, len(st.Children))
		for j, cus := range st.Children {
			childEntry := o.scenario.Theorems[cus]
			conclusion := childEntry.Conclusion
			if conclusion == "" {
				conclusion = cus
			}
			children[j] = theorem.New(conclusion, cus, nil, nil, nil)
		}
		childrenForTactic[i] = children
		effects = append(effects, theorem.EnvEffect{Goal: th, Tactic: tac, Children: children})
	}

	return theorem.NewExpansion(th, 0, 0, nil, effects, entry.LogCritic, tactics, childrenForTactic, priors)
}
