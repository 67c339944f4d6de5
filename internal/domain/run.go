package domain

import "fmt"

// RunState is the shared mutable state of one procedure-test invocation.
// Created at invocation start, mutated by each stage in turn, and discarded
// after the report is produced. Never shared across invocations.
type RunState struct {
	ProcedureName   string
	ProcedureSchema string
	ProcedureDDL    string

	Objects  []ResolvedObject
	Fixtures []Fixture
	Results  []FixtureResult

	// Log is the append-only diagnostic message log surfaced in the report.
	Log []string

	// Truncated tracks tables already truncated in this run so re-entrant
	// setup never double-truncates a shared table.
	Truncated map[string]struct{}
}

// NewRunState creates a run state for the given procedure identity.
func NewRunState(name, schema string) *RunState {
	return &RunState{
		ProcedureName:   name,
		ProcedureSchema: schema,
		Truncated:       make(map[string]struct{}),
	}
}

// Logf appends a diagnostic message to the run log.
func (s *RunState) Logf(format string, args ...interface{}) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// PipeRunState is the shared mutable state of one pipe-test invocation.
// Each stage may set ErrMessage; later stages must check it and, if set,
// skip their own work while still returning well-formed state.
type PipeRunState struct {
	PipeName   string
	PipeSchema string
	PipeDDL    string

	TargetTable    string
	TargetTableDDL string
	StagePath      string // path relative to the external stage
	FilePattern    string // optional, diagnostics only

	CSVContent  string
	CSVFilename string

	Uploaded          bool
	VerificationQuery string
	VerificationCount *int64
	TargetSnapshot    TableData

	FinalMessage string
	ErrMessage   string

	// Log is the append-only diagnostic message log surfaced in the report.
	Log []string
}

// NewPipeRunState creates a pipe run state for the given pipe identity.
func NewPipeRunState(name, schema string) *PipeRunState {
	return &PipeRunState{PipeName: name, PipeSchema: schema}
}

// Logf appends a diagnostic message to the run log.
func (s *PipeRunState) Logf(format string, args ...interface{}) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

// Failed reports whether a hard error has been recorded.
func (s *PipeRunState) Failed() bool { return s.ErrMessage != "" }

// SetError records a hard error, appending when one is already present.
func (s *PipeRunState) SetError(msg string) {
	if s.ErrMessage == "" {
		s.ErrMessage = msg
		return
	}
	s.ErrMessage += "; " + msg
}
