package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sorgfresser/htps-go/pkg/config"
	"github.com/sorgfresser/htps-go/pkg/htps"
	"github.com/sorgfresser/htps-go/pkg/logging"
	"github.com/sorgfresser/htps-go/pkg/metrics"
	"github.com/sorgfresser/htps-go/pkg/theorem"
)

// ProveCmd drives one HTPS search to completion against a scenario file's
// fake oracle, alternating theorems_to_expand/expand_and_backup batches the
// way a real caller alternates them against its own policy+critic model.
type ProveCmd struct {
	ScenarioFile string `arg:"" help:"YAML scenario file (root theorem + canned oracle responses)." type:"existingfile"`

	ConfigFile string        `help:"YAML file overriding search parameter defaults." type:"existingfile" name:"config-file"`
	LogLevel   string        `help:"Log level (debug, info, warn, error)." default:"info" name:"log-level"`
	LogFormat  string        `help:"Log format (text, json)." default:"text" enum:"text,json" name:"log-format"`
	Timeout    time.Duration `help:"Overall search timeout." default:"1m"`
	Output     string        `help:"File to write the JSON result to; stdout if empty." short:"o"`
	MetricsOut string        `help:"File to write Prometheus-format metrics to." name:"metrics-out"`
}

func (p *ProveCmd) Run() error {
	logging.Configure(logging.ParseLevel(p.LogLevel), p.LogFormat, nil)

	params, err := config.LoadParamsKoanf(p.ConfigFile)
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}

	scenario, err := loadScenario(p.ScenarioFile)
	if err != nil {
		return err
	}
	params = applyOverrides(params, scenario.Params)

	engine, err := htps.New(scenario.rootTheorem(), params)
	if err != nil {
		return fmt.Errorf("construct search: %w", err)
	}

	ctx, cancel := setupProveContext(p.Timeout)
	defer cancel()

	oracle := newFakeOracle(scenario)
	m := &metrics.Metrics{}

	log := logging.ForComponent(logging.ComponentSearch)
	log.Info("search starting", "root", scenario.Root, "policy", params.PolicyType)

	for !engine.IsDone() {
		leaves := engine.TheoremsToExpand()
		if len(leaves) == 0 {
			break
		}

		expansions, err := queryOracle(ctx, oracle, leaves)
		if err != nil {
			return fmt.Errorf("query oracle: %w", err)
		}

		atomic.AddInt64(&m.BatchesSubmitted, 1)
		atomic.AddInt64(&m.ExpansionsTotal, int64(len(expansions)))
		for _, exp := range expansions {
			if exp.IsError {
				atomic.AddInt64(&m.ExpansionsFailed, 1)
			}
		}

		engine.ExpandAndBackup(expansions)
		log.Debug("batch expanded", "leaves", len(leaves))
	}

	switch engine.Reason() {
	case "proven":
		atomic.AddInt64(&m.TheoremsSolved, 1)
	case "exhausted":
		atomic.AddInt64(&m.TheoremsExhausted, 1)
	case "stuck":
		atomic.AddInt64(&m.SearchesStuck, 1)
	}
	log.Info("search finished", "reason", engine.Reason(), "proven", engine.Proven())

	if p.MetricsOut != "" {
		exporter := metrics.NewPrometheusExporter(m)
		if err := os.WriteFile(p.MetricsOut, []byte(exporter.Export()), 0o644); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	return p.writeResult(engine)
}

func (p *ProveCmd) writeResult(engine *htps.HTPS) error {
	result, err := engine.GetResult()
	if err != nil {
		return fmt.Errorf("get result: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	if p.Output == "" {
		fmt.Println(string(out))
		return nil
	}
	return os.WriteFile(p.Output, out, 0o644)
}

// queryOracle fans the batch's leaves out across the oracle concurrently,
// one errgroup branch per leaf; a leaf whose retries are exhausted becomes
// an error expansion rather than failing the whole batch.
func queryOracle(ctx context.Context, oracle *fakeOracle, leaves []theorem.Theorem) ([]theorem.EnvExpansion, error) {
	expansions := make([]theorem.EnvExpansion, len(leaves))

	g, gctx := errgroup.WithContext(ctx)
	for i, leaf := range leaves {
		i, leaf := i, leaf
		g.Go(func() error {
			exp, err := oracle.expand(gctx, leaf)
			if err != nil {
				expansions[i] = theorem.NewErrorExpansion(leaf, err.Error())
				return nil
			}
			expansions[i] = exp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return expansions, nil
}

func setupProveContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(baseCtx, timeout)
	return ctx, func() {
		stop()
		cancel()
	}
}
