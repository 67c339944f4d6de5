package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlregress/internal/domain"
)

func openTestWarehouse(t *testing.T) *Warehouse {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, logger)
}

func TestExecAndCount(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Exec(ctx, "CREATE TABLE orders (id INTEGER, amount DOUBLE)"))
	require.NoError(t, w.Exec(ctx, "INSERT INTO orders VALUES (1, 10.5), (2, 7.25)"))

	n, err := w.Count(ctx, "SELECT COUNT(*) FROM orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCountNoRows(t *testing.T) {
	w := openTestWarehouse(t)

	_, err := w.Count(context.Background(), "SELECT 42 WHERE 1 = 0")
	assert.True(t, errors.Is(err, domain.ErrNoRows))
}

func TestCountBadQuery(t *testing.T) {
	w := openTestWarehouse(t)

	_, err := w.Count(context.Background(), "SELECT COUNT(*) FROM no_such_table")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrNoRows))
	var execErr *domain.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestExecFailure(t *testing.T) {
	w := openTestWarehouse(t)

	err := w.Exec(context.Background(), "INSERT INTO no_such_table VALUES (1)")
	require.Error(t, err)
	var execErr *domain.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}

func TestQueryTable(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Exec(ctx, "CREATE TABLE customers (id INTEGER, name VARCHAR)"))
	require.NoError(t, w.Exec(ctx, "INSERT INTO customers VALUES (1, 'ada'), (2, NULL)"))

	data, err := w.QueryTable(ctx, "SELECT * FROM customers ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, data.Columns)
	require.Len(t, data.Rows, 2)
	assert.Equal(t, []string{"1", "ada"}, data.Rows[0])
	assert.Equal(t, "NULL", data.Rows[1][1])
}

func TestQueryTableEmptyResult(t *testing.T) {
	w := openTestWarehouse(t)
	ctx := context.Background()

	require.NoError(t, w.Exec(ctx, "CREATE TABLE empty_t (id INTEGER)"))

	data, err := w.QueryTable(ctx, "SELECT * FROM empty_t")
	require.NoError(t, err)
	assert.True(t, data.Empty())
	assert.Equal(t, []string{"id"}, data.Columns)
}

func TestQueryTableBadQuery(t *testing.T) {
	w := openTestWarehouse(t)

	_, err := w.QueryTable(context.Background(), "SELECT * FROM no_such_table")
	require.Error(t, err)
	var execErr *domain.ExecutionError
	assert.ErrorAs(t, err, &execErr)
}
