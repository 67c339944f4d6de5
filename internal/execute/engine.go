// Package execute runs synthesized fixtures against the warehouse and
// verifies their outcomes.
package execute

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"sqlregress/internal/domain"
)

// Engine executes procedure fixtures: it truncates the tables they touch,
// runs each fixture in isolation, and records one result per fixture.
type Engine struct {
	runner domain.QueryRunner
	logger *slog.Logger
}

// NewEngine creates an execution Engine.
func NewEngine(runner domain.QueryRunner, logger *slog.Logger) *Engine {
	return &Engine{runner: runner, logger: logger.With("component", "engine")}
}

// Execute runs every fixture in the state and appends a FixtureResult for
// each. A fixture's failure never aborts its siblings. Tables referenced by
// the fixtures are truncated exactly once per run; state.Truncated carries
// the set forward so a repeated call issues no additional truncations.
func (e *Engine) Execute(ctx context.Context, state *domain.RunState) {
	logger := e.logger.With("procedure", state.ProcedureSchema+"."+state.ProcedureName)

	if len(state.Fixtures) == 0 {
		logger.Warn("no fixtures available to execute")
		state.Logf("no fixtures available to execute")
		return
	}

	e.truncateOnce(ctx, state, logger)

	for i, fixture := range state.Fixtures {
		state.Results = append(state.Results, e.runFixture(ctx, state, i, fixture, logger))
	}
}

// truncateOnce clears every source and target table referenced by the
// fixtures, skipping tables already truncated earlier in this run. A
// truncation failure is logged and the run continues; affected fixtures may
// report unreliable counts.
func (e *Engine) truncateOnce(ctx context.Context, state *domain.RunState, logger *slog.Logger) {
	tables := make(map[string]struct{})
	for _, f := range state.Fixtures {
		if domain.IsApplicable(f.SourceTable) {
			tables[f.SourceTable] = struct{}{}
		}
		if domain.IsApplicable(f.TargetTable) {
			tables[f.TargetTable] = struct{}{}
		}
	}

	for table := range tables {
		if _, done := state.Truncated[table]; done {
			logger.Info("table already truncated this run", "table", table)
			continue
		}
		stmt := fmt.Sprintf("TRUNCATE TABLE IF EXISTS %s;", table)
		if err := e.runner.Exec(ctx, stmt); err != nil {
			logger.Error("truncate failed", "table", table, "error", err)
			state.Logf("failed to truncate table %s before test execution; subsequent tests using this table may be unreliable", table)
			continue
		}
		state.Truncated[table] = struct{}{}
		state.Logf("truncated %s before test execution", table)
	}
}

func (e *Engine) runFixture(ctx context.Context, state *domain.RunState, idx int, f domain.Fixture, logger *slog.Logger) domain.FixtureResult {
	name := f.TestCase
	if name == "" {
		name = fmt.Sprintf("Unnamed Test %d", idx+1)
	}
	logger = logger.With("fixture", name)

	res := domain.FixtureResult{
		TestCase:        name,
		InsertQuery:     orNA(f.InsertQuery),
		ValidationQuery: orNA(f.ValidationQuery),
		ExpectedCount:   orNA(f.ExpectedCount),
		ActualCount:     domain.NotApplicable,
		Status:          domain.StatusSkipped,
		Details:         "Test not fully executed.",
	}

	if !f.Executable() {
		logger.Warn("skipping fixture with missing required fields")
		state.Logf("skipping test %q due to missing or %s fields", name, domain.NotApplicable)
		res.Details = "Missing required fields for execution."
		return res
	}

	if _, ok := state.Truncated[f.TargetTable]; !ok {
		state.Logf("warning: test %q targets table %s which may not have been truncated; results might be inaccurate", name, f.TargetTable)
	}

	expected, err := strconv.ParseInt(strings.TrimSpace(f.ExpectedCount), 10, 64)
	if err != nil {
		logger.Error("non-integer expected count", "expected_count", f.ExpectedCount)
		res.Status = domain.StatusError
		res.Details = "Invalid format for expected_count."
		return res
	}

	var warnings []string

	if err := e.runner.Exec(ctx, f.InsertQuery); err != nil {
		logger.Error("insert query failed", "error", err)
		res.Status = domain.StatusError
		res.Details = fmt.Sprintf("Failed to execute insert query: %s", f.InsertQuery)
		return res
	}

	if snap, err := e.runner.QueryTable(ctx, "SELECT * FROM "+f.SourceTable+";"); err != nil {
		logger.Warn("failed to capture source table snapshot", "table", f.SourceTable, "error", err)
		warnings = append(warnings, "Warning: Failed to capture source data after insert.")
	} else {
		res.SourceSnapshot = *snap
	}

	call := fmt.Sprintf("CALL %s.%s();", state.ProcedureSchema, state.ProcedureName)
	if err := e.runner.Exec(ctx, call); err != nil {
		logger.Error("procedure call failed", "error", err)
		res.Status = domain.StatusError
		res.Details = appendWarnings(fmt.Sprintf("Failed to execute procedure call: %s", call), warnings)
		return res
	}

	if snap, err := e.runner.QueryTable(ctx, "SELECT * FROM "+f.TargetTable+";"); err != nil {
		logger.Warn("failed to capture target table snapshot", "table", f.TargetTable, "error", err)
		warnings = append(warnings, "Warning: Failed to capture target data after procedure call.")
	} else {
		res.TargetSnapshot = *snap
	}

	actual, err := e.runner.Count(ctx, f.ValidationQuery)
	if err != nil {
		logger.Error("validation query failed", "error", err)
		res.Status = domain.StatusError
		res.Details = appendWarnings(fmt.Sprintf("Failed to execute validation query: %s", f.ValidationQuery), warnings)
		return res
	}
	res.ActualCount = strconv.FormatInt(actual, 10)

	if actual == expected {
		res.Status = domain.StatusPass
		res.Details = appendWarnings("Test passed.", warnings)
	} else {
		res.Status = domain.StatusFail
		res.Details = appendWarnings(fmt.Sprintf("Expected count %d, but got %d.", expected, actual), warnings)
	}
	logger.Info("fixture finished", "status", res.Status, "expected", expected, "actual", actual)
	return res
}

func orNA(s string) string {
	if s == "" {
		return domain.NotApplicable
	}
	return s
}

func appendWarnings(details string, warnings []string) string {
	if len(warnings) == 0 {
		return details
	}
	return details + " " + strings.Join(warnings, " ")
}
