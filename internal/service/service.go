// Package service orchestrates the procedure and pipe test pipelines.
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sqlregress/internal/domain"
	"sqlregress/internal/execute"
	"sqlregress/internal/history"
	"sqlregress/internal/pipe"
	"sqlregress/internal/pipeline"
	"sqlregress/internal/report"
	"sqlregress/internal/resolve"
	"sqlregress/internal/synth"
)

// Deps are the collaborators a Service needs. History may be nil when no
// metastore is configured.
type Deps struct {
	Defs     domain.DefinitionStore
	Resolver *resolve.Resolver
	Synth    *synth.Synthesizer
	Engine   *execute.Engine
	Pipes    *pipe.Resolver
	Feeds    *synth.FeedGenerator
	Verifier *execute.Verifier
	Reports  domain.ReportWriter
	History  *history.Store
	Logger   *slog.Logger
}

// Service exposes the two test operations. Runs against the same object are
// serialized: concurrent invocations would race on the shared warehouse
// tables through the truncation contract.
type Service struct {
	deps Deps

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{
		deps:  deps,
		locks: make(map[string]*sync.Mutex),
	}
}

// ProcedureOutcome is the caller-visible result of a procedure test run.
type ProcedureOutcome struct {
	State      *domain.RunState
	Summary    report.Summary
	ReportPath string
}

// PipeOutcome is the caller-visible result of a pipe test run.
type PipeOutcome struct {
	State      *domain.PipeRunState
	ReportPath string
}

// TestProcedure runs the full procedure pipeline: resolve referenced
// objects, synthesize fixtures, execute and verify them, then write the
// report. A missing procedure or a report-write failure is returned as an
// error; everything else degrades into the report.
func (s *Service) TestProcedure(ctx context.Context, name, schema string) (*ProcedureOutcome, error) {
	unlock := s.lockObject(schema + "." + name)
	defer unlock()

	logger := s.deps.Logger.With("procedure", schema+"."+name)
	started := time.Now()

	ddl, err := s.deps.Defs.ProcedureDefinition(ctx, name, schema)
	if err != nil {
		logger.Error("procedure definition lookup failed", "error", err)
		return nil, err
	}

	state := domain.NewRunState(name, schema)
	state.ProcedureDDL = ddl

	run := pipeline.New("procedure-test", logger,
		pipeline.Stage[domain.RunState]{
			Name: "resolve-objects",
			Run: func(ctx context.Context, st *domain.RunState) error {
				objects, diags := s.deps.Resolver.Resolve(ctx, st.ProcedureDDL)
				st.Objects = objects
				for _, d := range diags {
					st.Logf("%s", d)
				}
				return nil
			},
		},
		pipeline.Stage[domain.RunState]{
			Name: "synthesize-fixtures",
			Run: func(ctx context.Context, st *domain.RunState) error {
				fixtures, diags := s.deps.Synth.Synthesize(ctx, st.ProcedureName, st.ProcedureSchema, st.ProcedureDDL, st.Objects)
				st.Fixtures = fixtures
				for _, d := range diags {
					st.Logf("%s", d)
				}
				return nil
			},
		},
		pipeline.Stage[domain.RunState]{
			Name: "execute-and-verify",
			Run: func(ctx context.Context, st *domain.RunState) error {
				s.deps.Engine.Execute(ctx, st)
				return nil
			},
		},
	)

	// Stages degrade gracefully; the run always reaches reporting.
	_ = run.Run(ctx, state)

	path, err := s.deps.Reports.WriteProcedureReport(state)
	if err != nil {
		logger.Error("report write failed", "error", err)
		return nil, err
	}

	summary := report.Summarize(state.Results)
	s.recordRun(ctx, logger, &history.Run{
		ObjectName: schema + "." + name,
		Kind:       "procedure",
		Status:     overallStatus(summary),
		Passed:     summary.Passed,
		Failed:     summary.Failed,
		Errors:     summary.Errors,
		Skipped:    summary.Skipped,
		ReportPath: path,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	logger.Info("procedure test run finished",
		"passed", summary.Passed, "failed", summary.Failed,
		"errors", summary.Errors, "skipped", summary.Skipped,
		"report", path)
	return &ProcedureOutcome{State: state, Summary: summary, ReportPath: path}, nil
}

// TestPipe runs the full pipe pipeline: resolve pipe details, generate a
// synthetic feed, upload and verify ingestion, then write the report. Hard
// errors flow through the state and into the report; only a report-write
// failure is returned as an error.
func (s *Service) TestPipe(ctx context.Context, name, schema string) (*PipeOutcome, error) {
	unlock := s.lockObject(schema + "." + name)
	defer unlock()

	logger := s.deps.Logger.With("pipe", schema+"."+name)
	started := time.Now()

	state := domain.NewPipeRunState(name, schema)

	run := pipeline.New("pipe-test", logger,
		pipeline.Stage[domain.PipeRunState]{
			Name: "resolve-pipe-details",
			Run: func(ctx context.Context, st *domain.PipeRunState) error {
				s.deps.Pipes.Resolve(ctx, st)
				return nil
			},
		},
		pipeline.Stage[domain.PipeRunState]{
			Name: "generate-feed",
			Run: func(ctx context.Context, st *domain.PipeRunState) error {
				// Requires the extracted details, but tolerates a missing
				// target-table DDL (soft resolver failure).
				if st.PipeDDL == "" || st.TargetTable == "" || st.StagePath == "" {
					logger.Warn("skipping feed generation due to previous errors")
					st.Logf("skipping feed generation due to previous errors")
					return nil
				}
				content, filename, err := s.deps.Feeds.GenerateFeed(ctx, st.PipeName, st.TargetTable, st.PipeDDL, st.TargetTableDDL)
				if err != nil {
					st.SetError(err.Error())
					return nil
				}
				st.CSVContent = content
				st.CSVFilename = filename
				st.Logf("generated feed %s (%d bytes)", filename, len(content))
				return nil
			},
		},
		pipeline.Stage[domain.PipeRunState]{
			Name: "upload-and-verify",
			Run: func(ctx context.Context, st *domain.PipeRunState) error {
				s.deps.Verifier.Verify(ctx, st)
				return nil
			},
		},
	)

	_ = run.Run(ctx, state)

	path, err := s.deps.Reports.WritePipeReport(state)
	if err != nil {
		logger.Error("report write failed", "error", err)
		return nil, err
	}

	status := "completed"
	if state.Failed() {
		status = "error"
	}
	s.recordRun(ctx, logger, &history.Run{
		ObjectName: schema + "." + name,
		Kind:       "pipe",
		Status:     status,
		ReportPath: path,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	logger.Info("pipe test run finished", "status", status, "report", path)
	return &PipeOutcome{State: state, ReportPath: path}, nil
}

// History returns recent run records, newest first. Returns nil when no
// metastore is configured.
func (s *Service) History(ctx context.Context, limit int) ([]history.Run, error) {
	if s.deps.History == nil {
		return nil, nil
	}
	return s.deps.History.List(ctx, limit)
}

func (s *Service) recordRun(ctx context.Context, logger *slog.Logger, run *history.Run) {
	if s.deps.History == nil {
		return
	}
	if err := s.deps.History.Record(ctx, run); err != nil {
		// Best effort: the report file already exists.
		logger.Warn("failed to record run history", "error", err)
	}
}

func (s *Service) lockObject(key string) func() {
	s.mu.Lock()
	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	s.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func overallStatus(sum report.Summary) string {
	switch {
	case sum.Errors > 0:
		return "error"
	case sum.Failed > 0:
		return "fail"
	case sum.Passed > 0:
		return "pass"
	default:
		return "skipped"
	}
}
