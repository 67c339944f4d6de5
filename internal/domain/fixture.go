package domain

import "strings"

// NotApplicable is the literal marker the oracle uses for fields that do not
// apply to a fixture. Fields are never omitted, only marked.
const NotApplicable = "N/A"

// IsApplicable reports whether an oracle-supplied field is populated with a
// real value rather than empty or the not-applicable marker.
func IsApplicable(field string) bool {
	trimmed := strings.TrimSpace(field)
	return trimmed != "" && !strings.EqualFold(trimmed, NotApplicable)
}

// Fixture is one synthesized test case for a stored procedure: setup SQL,
// the expected outcome, and a validation query.
type Fixture struct {
	TestCase          string `json:"test_case"`
	BriefDescription  string `json:"brief_description"`
	InsertQuery       string `json:"insert_query"`
	SourceTable       string `json:"source_table"`
	ExpectedBehaviour string `json:"expected_behaviour"`
	ValidationQuery   string `json:"validation_query"`
	ExpectedCount     string `json:"expected_count"` // oracle supplies the integer as a string
	TargetTable       string `json:"target_table"`
}

// Executable reports whether every execution-relevant field is populated.
// Partially populated fixtures must be skipped, never executed.
func (f Fixture) Executable() bool {
	return IsApplicable(f.InsertQuery) &&
		IsApplicable(f.SourceTable) &&
		IsApplicable(f.ValidationQuery) &&
		IsApplicable(f.ExpectedCount) &&
		IsApplicable(f.TargetTable)
}

// ResultStatus classifies the outcome of one fixture.
type ResultStatus string

const (
	StatusPass    ResultStatus = "Pass"
	StatusFail    ResultStatus = "Fail"
	StatusError   ResultStatus = "Error"
	StatusSkipped ResultStatus = "Skipped"
)

// TableData is a full tabular snapshot of a table at a point in a run.
type TableData struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Empty reports whether the snapshot holds no rows.
func (t TableData) Empty() bool { return len(t.Rows) == 0 }

// FixtureResult records the outcome of executing one fixture. Immutable once
// appended to the run state; consumed only by the report writer.
type FixtureResult struct {
	TestCase        string       `json:"test_case"`
	InsertQuery     string       `json:"insert_query"`
	ValidationQuery string       `json:"validation_query"`
	ExpectedCount   string       `json:"expected_count"`
	ActualCount     string       `json:"actual_count"`
	Status          ResultStatus `json:"result"`
	Details         string       `json:"details"`
	SourceSnapshot  TableData    `json:"source_data_before_call"`
	TargetSnapshot  TableData    `json:"target_data_after_call"`
}
