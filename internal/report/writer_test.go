package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlregress/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSummarize(t *testing.T) {
	results := []domain.FixtureResult{
		{Status: domain.StatusPass},
		{Status: domain.StatusPass},
		{Status: domain.StatusFail},
		{Status: domain.StatusError},
		{Status: domain.StatusSkipped},
	}
	s := Summarize(results)
	assert.Equal(t, Summary{Total: 5, Passed: 2, Failed: 1, Errors: 1, Skipped: 1}, s)
}

func TestWriteProcedureReport(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, testLogger())

	state := domain.NewRunState("USP_LOAD", "ANALYTICS")
	state.ProcedureDDL = "CREATE PROCEDURE ANALYTICS.USP_LOAD() ..."
	state.Objects = []domain.ResolvedObject{
		{Name: "RAW.CUSTOMERS", Kind: domain.KindTable, Role: domain.RoleSource, Definition: "CREATE TABLE RAW.CUSTOMERS (...)"},
	}
	state.Results = []domain.FixtureResult{
		{TestCase: "insert_new_row", Status: domain.StatusPass, Details: "Test passed."},
	}
	state.Logf("truncated RAW.CUSTOMERS before test execution")

	path, err := w.WriteProcedureReport(state)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Contains(t, filepath.Base(path), "procedure_analytics_usp_load_")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc ProcedureReport
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "ANALYTICS.USP_LOAD", doc.Procedure)
	assert.Equal(t, 1, doc.Summary.Passed)
	require.Len(t, doc.Objects, 1)
	assert.Equal(t, "source", doc.Objects[0].Role)
	require.Len(t, doc.Results, 1)
	assert.Len(t, doc.Diagnostics, 1)
	assert.NotEmpty(t, doc.RunID)
}

func TestWritePipeReport(t *testing.T) {
	dir := t.TempDir()
	w := NewJSONWriter(dir, testLogger())

	state := domain.NewPipeRunState("ORDERS_PIPE", "INGEST")
	state.TargetTable = "INGEST.ORDERS"
	state.Uploaded = true
	count := int64(3)
	state.VerificationCount = &count
	state.FinalMessage = "Test successful: upload OK."

	path, err := w.WritePipeReport(state)
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "pipe_ingest_orders_pipe_")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc PipeReport
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "INGEST.ORDERS_PIPE", doc.Pipe)
	assert.True(t, doc.Uploaded)
	require.NotNil(t, doc.VerificationCount)
	assert.Equal(t, int64(3), *doc.VerificationCount)
}

func TestWriteReportDirectoryFailure(t *testing.T) {
	// A file where the directory should be makes MkdirAll fail.
	base := t.TempDir()
	blocked := filepath.Join(base, "reports")
	require.NoError(t, os.WriteFile(blocked, []byte("x"), 0o644))

	w := NewJSONWriter(blocked, testLogger())
	state := domain.NewRunState("USP_LOAD", "ANALYTICS")

	_, err := w.WriteProcedureReport(state)
	require.Error(t, err)
	var repErr *domain.ReportError
	assert.ErrorAs(t, err, &repErr)
}
