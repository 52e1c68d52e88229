package app

import (
	"context"
	"errors"
	"sort"

	"txproxy/internal/config"
	"txproxy/internal/core/apperror"
	appctx "txproxy/internal/core/context"
	"txproxy/internal/core/tx"
	"txproxy/internal/domain/calls"
	"txproxy/pkg/logger"
)

// Scenario names.
const (
	ScenarioSelfInvocation = "self-invocation"
	ScenarioDirectCall     = "direct-call"
	ScenarioDelegation     = "delegation"
	ScenarioNested         = "nested"
	ScenarioFailure        = "failure"
	ScenarioReadOnly       = "read-only"
)

var scenarios = map[string]func(ctx context.Context, c *Container) error{
	ScenarioSelfInvocation: func(ctx context.Context, c *Container) error {
		return c.Calls.External(ctx)
	},
	ScenarioDirectCall: func(ctx context.Context, c *Container) error {
		return c.Calls.Internal(ctx)
	},
	ScenarioDelegation: func(ctx context.Context, c *Container) error {
		return c.Delegating.External(ctx)
	},
	ScenarioNested: func(ctx context.Context, c *Container) error {
		return c.Delegating.Outer(ctx)
	},
	ScenarioFailure: func(ctx context.Context, c *Container) error {
		return c.Internal.Reject(ctx)
	},
	ScenarioReadOnly: func(ctx context.Context, c *Container) error {
		_, err := c.Internal.Snapshot(ctx)
		return err
	},
}

// Scenarios returns the known scenario names, sorted.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report is the outcome of one scenario run.
type Report struct {
	Scenario     string              `json:"scenario"`
	Observations []calls.Observation `json:"observations"`
	// ActiveAfter is the tracker state on the caller's context after return.
	ActiveAfter bool   `json:"active_after"`
	Error       string `json:"error,omitempty"`
}

// Runner executes scenarios against a fresh container per run.
type Runner struct {
	cfg     config.Config
	manager tx.Manager
}

// NewRunner creates a runner. Zero values fall back to container defaults.
func NewRunner(cfg config.Config, manager tx.Manager) *Runner {
	return &Runner{cfg: cfg, manager: manager}
}

// Run executes the named scenario.
// A failure returned by a service is reported in Report.Error, not as err.
func (r *Runner) Run(ctx context.Context, name string) (Report, error) {
	run, ok := scenarios[name]
	if !ok {
		return Report{}, apperror.NewNotFound("scenario", name)
	}

	c, err := New(Options{Config: r.cfg, Manager: r.manager, Journal: calls.NewJournal()})
	if err != nil {
		return Report{}, err
	}

	ctx = appctx.EnsureTrace(ctx)
	logger.Info(ctx, "scenario start", "scenario", name)

	report := Report{Scenario: name}
	if runErr := run(ctx, c); runErr != nil {
		if !errors.Is(runErr, calls.ErrRejected) {
			logger.Warn(ctx, "scenario failed", "scenario", name, "error", runErr)
		}
		report.Error = runErr.Error()
	}
	report.Observations = c.Journal.Entries()
	report.ActiveAfter = tx.IsActive(ctx)

	logger.Info(ctx, "scenario done", "scenario", name, "active_after", report.ActiveAfter)
	return report, nil
}
