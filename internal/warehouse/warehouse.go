// Package warehouse implements the definition-lookup and query-execution
// ports on top of database/sql. The driver is registered by the binaries.
package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sqlregress/internal/domain"
)

const procedureDefinitionQuery = `
SELECT procedure_definition
FROM information_schema.procedures
WHERE procedure_name = ? AND procedure_schema = ?`

// Warehouse provides catalog lookups and query execution against the
// warehouse under test. It implements domain.DefinitionStore and
// domain.QueryRunner.
type Warehouse struct {
	db     *sql.DB
	logger *slog.Logger
}

// New wraps an open warehouse connection.
func New(db *sql.DB, logger *slog.Logger) *Warehouse {
	return &Warehouse{db: db, logger: logger.With("component", "warehouse")}
}

// ProcedureDefinition looks up a stored procedure's body in the catalog.
// Names are matched upper-cased, following warehouse identifier folding.
func (w *Warehouse) ProcedureDefinition(ctx context.Context, name, schema string) (string, error) {
	var def string
	err := w.db.QueryRowContext(ctx, procedureDefinitionQuery,
		strings.ToUpper(name), strings.ToUpper(schema)).Scan(&def)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound("procedure %s.%s not found", schema, name)
	}
	if err != nil {
		return "", fmt.Errorf("fetch procedure definition %s.%s: %w", schema, name, err)
	}
	return def, nil
}

// TableDefinition fetches the DDL for a fully qualified table or view name.
func (w *Warehouse) TableDefinition(ctx context.Context, qualifiedName string) (string, error) {
	clean := strings.ReplaceAll(qualifiedName, `"`, "")
	var ddl string
	err := w.db.QueryRowContext(ctx, "SELECT GET_DDL('TABLE', ?)", clean).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound("table %s not found", clean)
	}
	if err != nil {
		return "", fmt.Errorf("fetch table definition %s: %w", clean, err)
	}
	return ddl, nil
}

// PipeDefinition fetches the DDL for an ingestion pipe.
func (w *Warehouse) PipeDefinition(ctx context.Context, name, schema string) (string, error) {
	full := schema + "." + name
	var ddl string
	err := w.db.QueryRowContext(ctx, "SELECT GET_DDL('PIPE', ?)", full).Scan(&ddl)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound("pipe %s not found", full)
	}
	if err != nil {
		return "", fmt.Errorf("fetch pipe definition %s: %w", full, err)
	}
	if ddl == "" {
		return "", domain.ErrNotFound("pipe %s has no definition", full)
	}
	return ddl, nil
}

// Count runs a query expected to yield a single integer. A query that
// returns no row at all yields domain.ErrNoRows so callers can tell that
// apart from an execution failure.
func (w *Warehouse) Count(ctx context.Context, query string) (int64, error) {
	var n int64
	err := w.db.QueryRowContext(ctx, query).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoRows
	}
	if err != nil {
		return 0, domain.ErrExecution("count query: %v", err)
	}
	return n, nil
}

// Exec runs a DML or DDL statement.
func (w *Warehouse) Exec(ctx context.Context, stmt string) error {
	if _, err := w.db.ExecContext(ctx, stmt); err != nil {
		return domain.ErrExecution("execute statement: %v", err)
	}
	return nil
}

// QueryTable runs a query and renders every value as a string for report
// snapshots. NULLs come back as the literal "NULL".
func (w *Warehouse) QueryTable(ctx context.Context, query string) (*domain.TableData, error) {
	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, domain.ErrExecution("snapshot query: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	data := &domain.TableData{Columns: cols}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = renderValue(v)
		}
		data.Rows = append(data.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func renderValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}
