package domain

import "context"

// DefinitionStore fetches object definitions from the warehouse.
// Absence of an object is signaled with *NotFoundError rather than an
// in-band error string, so callers can branch with errors.As.
type DefinitionStore interface {
	ProcedureDefinition(ctx context.Context, name, schema string) (string, error)
	TableDefinition(ctx context.Context, qualifiedName string) (string, error)
	PipeDefinition(ctx context.Context, name, schema string) (string, error)
}

// QueryRunner executes statements and queries against the warehouse.
type QueryRunner interface {
	// Count runs a single-value count query. ErrNoRows is returned when the
	// query succeeds but yields no row; any other error means the query failed.
	Count(ctx context.Context, query string) (int64, error)

	// Exec runs a DML/DDL statement.
	Exec(ctx context.Context, stmt string) error

	// QueryTable runs a query and captures the full result set.
	QueryTable(ctx context.Context, query string) (*TableData, error)
}

// BlobStore uploads generated feed files to the external stage backing store.
type BlobStore interface {
	Upload(ctx context.Context, content []byte, folderPath, filename string) error
}

// Oracle is the generative text model behind fixture and feed synthesis.
// It usually returns well-formed structured text per the requested schema but
// never guarantees it; all parsing of its output must be defensive. The core
// performs no retries.
type Oracle interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ReportWriter materializes the durable report artifact for a finished run.
// Failures are *ReportError and always escalate to the caller.
type ReportWriter interface {
	WriteProcedureReport(state *RunState) (path string, err error)
	WritePipeReport(state *PipeRunState) (path string, err error)
}
