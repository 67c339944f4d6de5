// Package pipeline provides the linear stage runner shared by the procedure
// and pipe test workflows.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Stage is one step of a workflow, operating on the shared run state S.
// Stages that can degrade gracefully record diagnostics on the state and
// return nil; a returned error stops the chain.
type Stage[S any] struct {
	Name string
	Run  func(ctx context.Context, state *S) error
}

// Pipeline is a fixed-topology linear chain of stages. Execution is strictly
// sequential, single pass, no branching. A stage failure short-circuits the
// remaining stages but the partial state stays usable for reporting.
type Pipeline[S any] struct {
	name   string
	stages []Stage[S]
	logger *slog.Logger
}

// New creates a pipeline from the given stages.
func New[S any](name string, logger *slog.Logger, stages ...Stage[S]) *Pipeline[S] {
	return &Pipeline[S]{name: name, stages: stages, logger: logger.With("pipeline", name)}
}

// Run executes the stages in order against the shared state.
func (p *Pipeline[S]) Run(ctx context.Context, state *S) error {
	for _, st := range p.stages {
		start := time.Now()
		p.logger.Debug("stage starting", "stage", st.Name)

		if err := st.Run(ctx, state); err != nil {
			p.logger.Warn("stage failed", "stage", st.Name, "error", err,
				"duration", time.Since(start))
			return fmt.Errorf("stage %s: %w", st.Name, err)
		}

		p.logger.Info("stage finished", "stage", st.Name, "duration", time.Since(start))
	}
	return nil
}
