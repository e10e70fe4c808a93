// Package htps is the public facade over the search core: construct with a
// root theorem and parameters, alternate theorems_to_expand/expand_and_backup
// calls with the caller's own model+environment, then read back a Result
// once the search is done.
package htps

import (
	"github.com/sorgfresser/htps-go/internal/harvest"
	"github.com/sorgfresser/htps-go/internal/search"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// Params is the public name for the search tuning surface; see
// internal/search.Params for the fields and their validation tags.
type Params = search.Params

// Result is the harvester's output, returned once the search has finished.
type Result = harvest.Result

// Default returns the engine's baseline parameter set.
func Default() Params { return search.Default() }

// HTPS drives one proof search to completion.
type HTPS struct {
	driver *search.Driver
}

// New constructs a search over root with the given parameters.
func New(root theorem.Theorem, p Params) (*HTPS, error) {
	d, err := search.New(root, p)
	if err != nil {
		return nil, err
	}
	return &HTPS{driver: d}, nil
}

// TheoremsToExpand returns 0..NumExpansions leaves that need expanding and
// advances the search's internal virtual-loss bookkeeping. Returns nil once
// the search is done.
func (h *HTPS) TheoremsToExpand() []theorem.Theorem {
	return h.driver.TheoremsToExpand()
}

// ExpandAndBackup consumes one batch of expansions, updates node state, and
// may terminate the search. A no-op once the search is done.
func (h *HTPS) ExpandAndBackup(expansions []theorem.EnvExpansion) {
	h.driver.ExpandAndBackup(expansions)
}

// Proven reports whether the root theorem is solved.
func (h *HTPS) Proven() bool { return h.driver.Proven() }

// IsDone reports whether the search has terminated.
func (h *HTPS) IsDone() bool { return h.driver.IsDone() }

// Reason returns why the search terminated, or search.ReasonNotDone if it
// has not.
func (h *HTPS) Reason() search.Reason { return h.driver.Reason() }

// GetResult runs the sample harvester over the terminated search. Returns a
// RuntimeError if the search is not yet done.
func (h *HTPS) GetResult() (Result, error) {
	return h.driver.GetResult()
}
