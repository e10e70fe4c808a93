package search

import (
	"github.com/sorgfresser/htps-go/internal/errs"
	"github.com/sorgfresser/htps-go/internal/harvest"
)

// GetResult runs the sample harvester over the terminated search. It
// returns a RuntimeError if called before IsDone, matching the API's
// get_result()-before-is_done() contract.
func (d *Driver) GetResult() (harvest.Result, error) {
	if !d.done {
		return harvest.Result{}, errs.NewRuntime("get_result called before search is done")
	}
	return harvest.Harvest(d.graph, d.cfg, d.params.Metric, d.params.EffectSubsamplingRate, d.params.CriticSubsamplingRate), nil
}
