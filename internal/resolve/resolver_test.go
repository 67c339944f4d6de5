package resolve

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
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

type stubDefs struct {
	tables     map[string]string
	procedures map[string]string // keyed schema.name
	failWith   error
}

func (d *stubDefs) TableDefinition(_ context.Context, name string) (string, error) {
	if d.failWith != nil {
		return "", d.failWith
	}
	ddl, ok := d.tables[name]
	if !ok {
		return "", domain.ErrNotFound("table %s not found", name)
	}
	return ddl, nil
}

func (d *stubDefs) ProcedureDefinition(_ context.Context, name, schema string) (string, error) {
	if d.failWith != nil {
		return "", d.failWith
	}
	ddl, ok := d.procedures[schema+"."+name]
	if !ok {
		return "", domain.ErrNotFound("procedure %s.%s not found", schema, name)
	}
	return ddl, nil
}

func (d *stubDefs) PipeDefinition(_ context.Context, name, schema string) (string, error) {
	return "", domain.ErrNotFound("pipe %s.%s not found", schema, name)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolve_WellFormedLines(t *testing.T) {
	oracle := &stubOracle{response: strings.Join([]string{
		"TABLE:DB.DLZ.SALES_RAW:source",
		"TABLE:DB.CUR.SALES_AGG:target",
		"VIEW:DB.CUR.CUSTOMER_VIEW:source", // oracle lied about the role
		"PROCEDURE:DB.CUR.SUB_PROC:target", // same
	}, "\n")}
	defs := &stubDefs{
		tables: map[string]string{
			"DB.DLZ.SALES_RAW":     "CREATE TABLE SALES_RAW (ID INT)",
			"DB.CUR.SALES_AGG":     "CREATE TABLE SALES_AGG (ID INT)",
			"DB.CUR.CUSTOMER_VIEW": "CREATE VIEW CUSTOMER_VIEW AS SELECT 1",
		},
		procedures: map[string]string{
			"CUR.SUB_PROC": "CREATE PROCEDURE SUB_PROC() ...",
		},
	}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "CREATE PROCEDURE ...")

	require.Len(t, objects, 4)
	assert.Equal(t, domain.RoleSource, objects[0].Role)
	assert.Equal(t, domain.RoleTarget, objects[1].Role)
	// Role is forced to N/A for views and procedures regardless of oracle output.
	assert.Equal(t, domain.RoleNone, objects[2].Role)
	assert.Equal(t, domain.RoleNone, objects[3].Role)
	// Insertion order from the response is preserved.
	assert.Equal(t, "DB.DLZ.SALES_RAW", objects[0].Name)
	assert.Equal(t, "DB.CUR.SUB_PROC", objects[3].Name)
	// The forced view role produces a diagnostic, nothing else does.
	require.NotEmpty(t, diags)
	assert.Contains(t, diags[0], "forcing N/A")
}

func TestResolve_SkipsStreamAndTempArtifacts(t *testing.T) {
	oracle := &stubOracle{response: strings.Join([]string{
		"TABLE:DB.DLZ.STR_SALES_01:source",
		"TABLE:DB.DLZ.tmp_str_sales_0:source",
		"TABLE:DB.DLZ.SALES:source",
	}, "\n")}
	defs := &stubDefs{tables: map[string]string{"DB.DLZ.SALES": "CREATE TABLE SALES (ID INT)"}}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	require.Len(t, objects, 1)
	assert.Equal(t, "DB.DLZ.SALES", objects[0].Name)
	assert.Len(t, diags, 2)
	for _, d := range diags {
		assert.Contains(t, d, "stream/temp artifact")
	}
}

func TestResolve_MalformedLinesAreSkipped(t *testing.T) {
	oracle := &stubOracle{response: "TABLE:DB.DLZ.SALES:source\njust some prose\nTABLE:missing_role"}
	defs := &stubDefs{tables: map[string]string{"DB.DLZ.SALES": "ddl"}}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	require.Len(t, objects, 1)
	assert.Len(t, diags, 2)
}

func TestResolve_FetchFailureDropsEntry(t *testing.T) {
	oracle := &stubOracle{response: "TABLE:DB.DLZ.GHOST:source\nTABLE:DB.DLZ.SALES:source"}
	defs := &stubDefs{tables: map[string]string{"DB.DLZ.SALES": "ddl"}}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	require.Len(t, objects, 1)
	assert.Equal(t, "DB.DLZ.SALES", objects[0].Name)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "DB.DLZ.GHOST")
}

func TestResolve_ProcedureWithoutSchemaIsDropped(t *testing.T) {
	oracle := &stubOracle{response: "PROCEDURE:BARE_PROC:N/A"}
	defs := &stubDefs{}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	assert.Empty(t, objects)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "could not parse schema/name")
}

func TestResolve_OracleFailureReturnsDiagnosticOnly(t *testing.T) {
	oracle := &stubOracle{err: errors.New("rate limited")}
	defs := &stubDefs{}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	assert.Empty(t, objects)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "object extraction failed")
}

func TestResolve_UnknownKindIsSkipped(t *testing.T) {
	oracle := &stubOracle{response: "SEQUENCE:DB.DLZ.SEQ_1:N/A"}
	defs := &stubDefs{}

	objects, diags := New(oracle, defs, testLogger()).Resolve(context.Background(), "ddl")

	assert.Empty(t, objects)
	require.Len(t, diags, 1)
	assert.Contains(t, diags[0], "unknown object kind")
}
