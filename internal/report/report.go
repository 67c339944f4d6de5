// Package report materializes run results into durable JSON report files.
package report

import (
	"time"

	"sqlregress/internal/domain"
)

// Summary aggregates fixture outcomes for the report header.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

// Summarize counts fixture results by status.
func Summarize(results []domain.FixtureResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case domain.StatusPass:
			s.Passed++
		case domain.StatusFail:
			s.Failed++
		case domain.StatusError:
			s.Errors++
		case domain.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}

// ObjectDefinition is one entry of the report's definitions section.
type ObjectDefinition struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Role       string `json:"role"`
	Definition string `json:"definition"`
}

// ProcedureReport is the full report document for one procedure run.
type ProcedureReport struct {
	RunID               string                 `json:"run_id"`
	Procedure           string                 `json:"procedure"`
	GeneratedAt         time.Time              `json:"generated_at"`
	Summary             Summary                `json:"summary"`
	ProcedureDefinition string                 `json:"procedure_definition"`
	Objects             []ObjectDefinition     `json:"object_definitions"`
	Results             []domain.FixtureResult `json:"test_results"`
	Diagnostics         []string               `json:"diagnostics"`
}

// PipeReport is the full report document for one pipe run.
type PipeReport struct {
	RunID             string           `json:"run_id"`
	Pipe              string           `json:"pipe"`
	GeneratedAt       time.Time        `json:"generated_at"`
	FinalMessage      string           `json:"final_message"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	PipeDefinition    string           `json:"pipe_definition"`
	TargetTable       string           `json:"target_table"`
	TargetTableDDL    string           `json:"target_table_definition"`
	StagePath         string           `json:"stage_path"`
	FilePattern       string           `json:"file_pattern,omitempty"`
	CSVFilename       string           `json:"generated_csv_filename"`
	CSVContent        string           `json:"generated_csv_content"`
	Uploaded          bool             `json:"upload_status"`
	VerificationQuery string           `json:"verification_query,omitempty"`
	VerificationCount *int64           `json:"verification_count,omitempty"`
	TargetSnapshot    domain.TableData `json:"target_table_data_after_test"`
	Diagnostics       []string         `json:"diagnostics"`
}

// BuildProcedureReport assembles the report document from run state.
func BuildProcedureReport(runID string, state *domain.RunState, at time.Time) *ProcedureReport {
	objects := make([]ObjectDefinition, 0, len(state.Objects))
	for _, o := range state.Objects {
		objects = append(objects, ObjectDefinition{
			Name:       o.Name,
			Kind:       string(o.Kind),
			Role:       string(o.Role),
			Definition: o.Definition,
		})
	}
	return &ProcedureReport{
		RunID:               runID,
		Procedure:           state.ProcedureSchema + "." + state.ProcedureName,
		GeneratedAt:         at,
		Summary:             Summarize(state.Results),
		ProcedureDefinition: state.ProcedureDDL,
		Objects:             objects,
		Results:             state.Results,
		Diagnostics:         state.Log,
	}
}

// BuildPipeReport assembles the report document from pipe run state.
func BuildPipeReport(runID string, state *domain.PipeRunState, at time.Time) *PipeReport {
	return &PipeReport{
		RunID:             runID,
		Pipe:              state.PipeSchema + "." + state.PipeName,
		GeneratedAt:       at,
		FinalMessage:      state.FinalMessage,
		ErrorMessage:      state.ErrMessage,
		PipeDefinition:    state.PipeDDL,
		TargetTable:       state.TargetTable,
		TargetTableDDL:    state.TargetTableDDL,
		StagePath:         state.StagePath,
		FilePattern:       state.FilePattern,
		CSVFilename:       state.CSVFilename,
		CSVContent:        state.CSVContent,
		Uploaded:          state.Uploaded,
		VerificationQuery: state.VerificationQuery,
		VerificationCount: state.VerificationCount,
		TargetSnapshot:    state.TargetSnapshot,
		Diagnostics:       state.Log,
	}
}
