package synth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlregress/internal/domain"
)

type stubOracle struct {
	response string
	err      error
	prompts  []string
}

func (o *stubOracle) Generate(_ context.Context, prompt string) (string, error) {
	o.prompts = append(o.prompts, prompt)
	return o.response, o.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const validFixtureJSON = `{"test_cases": [
	{"test_case": "Insert New Plant Record", "brief_description": "insert path",
	 "insert_query": "INSERT INTO DB.DLZ.SALES VALUES (1, 'a')",
	 "source_table": "DB.DLZ.SALES", "expected_behaviour": "one new target row",
	 "validation_query": "SELECT COUNT(*) FROM DB.CUR.SALES_AGG WHERE ID = 1",
	 "expected_count": "1", "target_table": "DB.CUR.SALES_AGG"},
	{"test_case": "Update Existing Plant Record", "brief_description": "update path",
	 "insert_query": "INSERT INTO DB.DLZ.SALES VALUES (1, 'b')",
	 "source_table": "DB.DLZ.SALES", "expected_behaviour": "target row updated",
	 "validation_query": "SELECT COUNT(*) FROM DB.CUR.SALES_AGG WHERE ID = 1",
	 "expected_count": "1", "target_table": "DB.CUR.SALES_AGG"}
]}`

func TestSynthesize_ValidResponse(t *testing.T) {
	oracle := &stubOracle{response: validFixtureJSON}
	s := NewSynthesizer(oracle, testLogger())

	fixtures, diags := s.Synthesize(context.Background(), "MERGE_SALES", "CUR", "CREATE PROCEDURE ...", nil)

	require.Empty(t, diags)
	require.Len(t, fixtures, 2)
	assert.Equal(t, "Insert New Plant Record", fixtures[0].TestCase)
	assert.Equal(t, "insert path", fixtures[0].BriefDescription)
	assert.Equal(t, "one new target row", fixtures[0].ExpectedBehaviour)
	assert.Equal(t, "1", fixtures[0].ExpectedCount)
	assert.True(t, fixtures[0].Executable())
	assert.True(t, fixtures[1].Executable())
}

func TestSynthesize_ResponseWrappedInFence(t *testing.T) {
	oracle := &stubOracle{response: "Here you go:\n```json\n" + validFixtureJSON + "\n```"}
	s := NewSynthesizer(oracle, testLogger())

	fixtures, diags := s.Synthesize(context.Background(), "P", "S", "ddl", nil)

	require.Empty(t, diags)
	assert.Len(t, fixtures, 2)
}

func TestSynthesize_SchemaViolationYieldsEmptyList(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{"not_json", "sorry, I cannot help with that"},
		{"empty_list", `{"test_cases": []}`},
		{"missing_field", `{"test_cases": [{"test_case": "x"}]}`},
		{"wrong_shape", `{"cases": [1, 2]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oracle := &stubOracle{response: tt.response}
			s := NewSynthesizer(oracle, testLogger())

			fixtures, diags := s.Synthesize(context.Background(), "P", "S", "ddl", nil)

			assert.Empty(t, fixtures)
			require.Len(t, diags, 1)
			assert.Contains(t, diags[0], "failed to parse generated test cases")
		})
	}
}

func TestSynthesize_OracleFailure(t *testing.T) {
	oracle := &stubOracle{err: errors.New("connection reset")}
	s := NewSynthesizer(oracle, testLogger())

	fixtures, diags := s.Synthesize(context.Background(), "P", "S", "ddl", nil)

	assert.Empty(t, fixtures)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "fixture generation failed")
}

func TestSynthesize_ContextGroupsByRole(t *testing.T) {
	oracle := &stubOracle{response: validFixtureJSON}
	s := NewSynthesizer(oracle, testLogger())

	objects := []domain.ResolvedObject{
		{Name: "DB.DLZ.SALES", Kind: domain.KindTable, Role: domain.RoleSource, Definition: "CREATE TABLE SALES ..."},
		{Name: "DB.CUR.SALES_AGG", Kind: domain.KindTable, Role: domain.RoleTarget, Definition: "CREATE TABLE SALES_AGG ..."},
		{Name: "DB.REF.PLANTS", Kind: domain.KindTable, Role: domain.RoleMaster, Definition: "CREATE TABLE PLANTS ..."},
		{Name: "DB.CUR.V_SALES", Kind: domain.KindView, Role: domain.RoleNone, Definition: "CREATE VIEW V_SALES ..."},
	}

	_, _ = s.Synthesize(context.Background(), "MERGE_SALES", "CUR", "proc ddl", objects)

	require.Len(t, oracle.prompts, 1)
	prompt := oracle.prompts[0]
	assert.Contains(t, prompt, "**Source Tables:**")
	assert.Contains(t, prompt, "**Target Tables:**")
	assert.Contains(t, prompt, "**Master Tables:**")
	assert.Contains(t, prompt, "-- VIEW")
	assert.Contains(t, prompt, "DB.DLZ.SALES")
}

func TestSynthesize_EmptyContextNotesNoObjects(t *testing.T) {
	oracle := &stubOracle{response: validFixtureJSON}
	s := NewSynthesizer(oracle, testLogger())

	_, _ = s.Synthesize(context.Background(), "P", "S", "ddl", nil)

	require.Len(t, oracle.prompts, 1)
	assert.Contains(t, oracle.prompts[0], "No related object DDLs were found")
}
