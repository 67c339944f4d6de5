// Package pipe resolves ingestion-pipe details: the target table and the
// external-stage path extracted from the pipe's definition.
package pipe

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"sqlregress/internal/domain"
)

// Pattern matching on the ingestion statement. Regex extraction is more
// reliable than asking the oracle for these fields.
var (
	copyIntoRe    = regexp.MustCompile(`(?is)COPY\s+INTO\s+([a-zA-Z0-9_."$]+)`)
	fromStageRe   = regexp.MustCompile(`(?is)FROM\s+@([a-zA-Z0-9_."$]+)/?([a-zA-Z0-9_./-]*)/?`)
	filePatternRe = regexp.MustCompile(`(?is)pattern\s*=>\s*'([^']*)'`)
)

// Resolver fetches a pipe's definition and extracts its execution details.
type Resolver struct {
	defs   domain.DefinitionStore
	logger *slog.Logger
}

// New creates a pipe Resolver.
func New(defs domain.DefinitionStore, logger *slog.Logger) *Resolver {
	return &Resolver{defs: defs, logger: logger.With("component", "pipe-resolver")}
}

// Resolve populates the run state with the pipe DDL, the target table, and
// the stage-relative upload path. Either extraction failing is a hard error:
// execution cannot proceed without both. A target-table definition fetch
// failure is soft — recorded, but the feed generator is still attempted.
func (r *Resolver) Resolve(ctx context.Context, state *domain.PipeRunState) {
	logger := r.logger.With("pipe", state.PipeSchema+"."+state.PipeName)

	pipeDDL, err := r.defs.PipeDefinition(ctx, state.PipeName, state.PipeSchema)
	if err != nil {
		msg := fmt.Sprintf("failed to get definition for pipe %s.%s: %v", state.PipeSchema, state.PipeName, err)
		logger.Error("pipe definition fetch failed", "error", err)
		state.SetError(msg)
		return
	}
	state.PipeDDL = pipeDDL
	state.Logf("fetched pipe definition for %s.%s", state.PipeSchema, state.PipeName)

	if m := copyIntoRe.FindStringSubmatch(pipeDDL); m != nil {
		state.TargetTable = strings.ReplaceAll(strings.TrimSpace(m[1]), `"`, "")
		logger.Info("extracted target table", "table", state.TargetTable)
	} else {
		msg := "could not extract target table name from pipe definition"
		logger.Error(msg)
		state.SetError(msg)
		return
	}

	if m := fromStageRe.FindStringSubmatch(pipeDDL); m != nil {
		stageName := strings.TrimSpace(m[1])
		state.StagePath = strings.Trim(m[2], "/")
		logger.Info("extracted stage path", "stage", stageName, "path", state.StagePath)

		if pm := filePatternRe.FindStringSubmatch(pipeDDL); pm != nil {
			state.FilePattern = pm[1]
			state.Logf("pipe uses file pattern: %s", state.FilePattern)
		}
	} else {
		msg := "could not extract stage path (FROM @stage/path) from pipe definition"
		logger.Error(msg)
		state.SetError(msg)
		return
	}

	tableDDL, err := r.defs.TableDefinition(ctx, state.TargetTable)
	if err != nil {
		// Soft failure: the feed generator may still produce something useful
		// from the pipe definition alone.
		msg := fmt.Sprintf("failed to get definition for target table %s: %v", state.TargetTable, err)
		logger.Warn("target table definition fetch failed", "error", err)
		state.SetError(msg)
		state.Logf("%s", msg)
		return
	}
	state.TargetTableDDL = tableDDL
	state.Logf("fetched target table definition for %s", state.TargetTable)
}
