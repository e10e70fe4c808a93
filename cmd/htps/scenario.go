package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sorgfresser/htps-go/internal/params"
	"github.com/sorgfresser/htps-go/internal/paramsmap"
	"github.com/sorgfresser/htps-go/pkg/htps"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// scenarioTactic is one tactic entry in a scenario file's oracle response
// for a theorem.
type scenarioTactic struct {
	Name     string   `yaml:"name"`
	Duration int      `yaml:"duration"`
	Prior    float64  `yaml:"prior"`
	Children []string `yaml:"children"`
}

// scenarioTheorem is a canned oracle response: expanding the theorem keyed
// by its map entry yields these tactics, with this critic estimate. A
// theorem with no tactics and IsError unset expands to zero edges (a
// terminal dead end); IsError true instead reports an expansion failure.
type scenarioTheorem struct {
	Conclusion string           `yaml:"conclusion"`
	Tactics    []scenarioTactic `yaml:"tactics"`
	LogCritic  float64          `yaml:"log_critic"`
	IsError    bool             `yaml:"is_error"`
	Error      string           `yaml:"error"`
	// FlakyAttempts is how many times the oracle call for this theorem
	// fails with a transient error before succeeding, to exercise retry.
	FlakyAttempts int `yaml:"flaky_attempts"`
}

// scenarioFile is a fake prover environment: a fixed root goal and a table
// of canned oracle responses keyed by theorem unique string, standing in
// for the policy+critic model a real deployment would query over RPC.
type scenarioFile struct {
	Root     string                     `yaml:"root"`
	Theorems map[string]scenarioTheorem `yaml:"theorems"`
	// Params carries ad-hoc search parameter overrides, layered on top of
	// whatever config.LoadParamsKoanf produced, the way a scenario written
	// for one experiment pins a handful of knobs without a separate config
	// file. Values decode as loosely as a YAML-sourced map allows.
	Params paramsmap.Values `yaml:"params"`
}

// applyOverrides layers the scenario file's params block onto base,
// touching only the fields a caller commonly pins per-scenario.
func applyOverrides(base htps.Params, overrides paramsmap.Values) htps.Params {
	if len(overrides) == 0 {
		return base
	}

	base.NumExpansions = paramsmap.GetInt(overrides, "num_expansions", base.NumExpansions)
	base.SuccExpansions = paramsmap.GetInt(overrides, "succ_expansions", base.SuccExpansions)
	base.Exploration = paramsmap.GetFloat64(overrides, "exploration", base.Exploration)
	base.DepthPenalty = paramsmap.GetFloat64(overrides, "depth_penalty", base.DepthPenalty)
	base.VirtualLoss = paramsmap.GetFloat64(overrides, "virtual_loss", base.VirtualLoss)
	base.NoCritic = paramsmap.GetBool(overrides, "no_critic", base.NoCritic)
	base.EarlyStopping = paramsmap.GetBool(overrides, "early_stopping", base.EarlyStopping)

	base.PolicyType = params.PolicyType(paramsmap.GetString(overrides, "policy_type", string(base.PolicyType)))
	base.Metric = params.Metric(paramsmap.GetString(overrides, "metric", string(base.Metric)))

	return base
}

func loadScenario(path string) (*scenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario file: %w", err)
	}
	var s scenarioFile
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario file: %w", err)
	}
	if s.Root == "" {
		return nil, fmt.Errorf("scenario file: root is required")
	}
	if _, ok := s.Theorems[s.Root]; !ok {
		return nil, fmt.Errorf("scenario file: root %q has no theorems entry", s.Root)
	}
	return &s, nil
}

func (s *scenarioFile) rootTheorem() theorem.Theorem {
	root := s.Theorems[s.Root]
	conclusion := root.Conclusion
	if conclusion == "" {
		conclusion = s.Root
	}
	return theorem.New(conclusion, s.Root, nil, nil, nil)
}
