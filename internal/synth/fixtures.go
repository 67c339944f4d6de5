// Package synth asks the generation oracle for typed test fixtures and
// synthetic feed payloads, and validates its output defensively.
package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"sqlregress/internal/domain"
)

const fixturePromptTemplate = `You are an expert in writing unit tests for warehouse stored procedures.
Your task is to generate exactly TWO distinct and comprehensive unit test cases for the given procedure based on its DDL and the structured DDLs of related objects provided below.

The related object DDLs are grouped by their inferred role (Source, Target, Master) or type (Other Objects). Use this structure to understand the data flow and dependencies.

Focus on testing:
1. Basic functionality: correct data insertion. Involves inserting into 'Source Tables' and validating results in 'Target Tables'.
2. Basic functionality: correct data update. Involves inserting into 'Source Tables' in order to update the already inserted record in the target table.

Procedure Name: %s
Procedure Schema: %s

Context DDLs (grouped by inferred role/type):
%s

Important instructions:
* Use the structured DDL context above (Source Tables, Target Tables) to infer meaningful test data based on column names and datatypes.
* Generate valid, complete INSERT statements for the necessary Source Tables to set up the test conditions.
* CRITICAL - TARGET TABLE: the insert_query MUST target the actual source table (usually listed under 'Source Tables' in the context), NOT any streams (str_...) or temporary tables (tmp_...). Simulate data before it reaches the stream by inserting into the underlying source table. The source_table field you provide MUST match the table targeted by your insert_query.
* CRITICAL - DATA TYPES: pay strict attention to the column data types and scale defined in the DDL for the specific Source Table you are inserting into.
* The procedure's extraction SELECT may carry WHERE conditions; ensure your sample data would meet them.
* For the update test case, use the same values for the merge/join keys as in the insert test case, but change other values (respecting their data types) to exercise the update logic.
* EXCLUDE METADATA$ACTION from INSERT statements when the target is a regular table, not a stream.
* Use SELECT COUNT(*) queries for validation, usually against Target tables, to verify the expected outcome after the procedure call.
* Provide COMPLETE, valid SQL.
* Provide the EXACT integer expected as a result of your validation query (as a string).
* If a field does not apply, respond with the literal "N/A" — never omit it.
* The target table for validation must be one of the tables listed in the DDL context, ideally identified as a Target Table.

Respond with ONLY a JSON object of the form:
{"test_cases": [{"test_case": "...", "brief_description": "...", "insert_query": "...", "source_table": "...", "expected_behaviour": "...", "validation_query": "...", "expected_count": "...", "target_table": "..."}, {...}]}`

// fixtureFields is the exact field set a generated test case must carry.
var fixtureFields = []string{
	"test_case", "brief_description", "insert_query", "source_table",
	"expected_behaviour", "validation_query", "expected_count", "target_table",
}

// Synthesizer turns resolved definitions into executable fixtures.
type Synthesizer struct {
	oracle domain.Oracle
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer.
func NewSynthesizer(oracle domain.Oracle, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{oracle: oracle, logger: logger.With("component", "synthesizer")}
}

// Synthesize requests two fixtures (insert path and update path) for the
// procedure. A schema violation in the oracle output is a stage failure, not
// a crash: it yields an empty fixture list plus a diagnostic, so the engine
// can report "no fixtures available" instead of aborting the run.
func (s *Synthesizer) Synthesize(ctx context.Context, procedureName, procedureSchema, procedureDDL string,
	objects []domain.ResolvedObject) ([]domain.Fixture, []string) {

	contextBlock := renderContext(procedureName, procedureSchema, procedureDDL, objects)
	prompt := fmt.Sprintf(fixturePromptTemplate, procedureName, procedureSchema, contextBlock)

	response, err := s.oracle.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("fixture generation failed", "error", err)
		return nil, []string{fmt.Sprintf("fixture generation failed: %v", err)}
	}

	fixtures, err := parseFixtures(response)
	if err != nil {
		s.logger.Error("fixture output rejected", "error", err)
		return nil, []string{fmt.Sprintf("failed to parse generated test cases: %v", err)}
	}

	s.logger.Info("fixtures synthesized", "count", len(fixtures))
	return fixtures, nil
}

// parseFixtures validates the oracle response against the fixed fixture
// schema: a test_cases list whose entries each carry the exact field set.
func parseFixtures(response string) ([]domain.Fixture, error) {
	raw := extractJSON(response)

	// First pass: verify each entry carries every required key. json.Unmarshal
	// into the struct alone cannot tell a missing field from an empty one.
	var shape struct {
		TestCases []map[string]json.RawMessage `json:"test_cases"`
	}
	if err := json.Unmarshal([]byte(raw), &shape); err != nil {
		return nil, domain.ErrGeneration("decode test_cases: %v", err)
	}
	if len(shape.TestCases) == 0 {
		return nil, domain.ErrGeneration("response contains no test cases")
	}
	for i, tc := range shape.TestCases {
		for _, field := range fixtureFields {
			if _, ok := tc[field]; !ok {
				return nil, domain.ErrGeneration("test case %d is missing field %q", i, field)
			}
		}
	}

	var parsed struct {
		TestCases []domain.Fixture `json:"test_cases"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, domain.ErrGeneration("decode test_cases: %v", err)
	}
	return parsed.TestCases, nil
}
