package postgres

import (
	"context"
	"fmt"

	"github.com/guillermoBallester/sqlgym/internal/core/port"
	"github.com/jackc/pgx/v5"
)

var _ port.SchemaDescriber = (*Runner)(nil)

// WithSchemas limits DescribeSchema to the given schemas.
func (r *Runner) WithSchemas(schemas []string) *Runner {
	r.schemas = schemas
	return r
}

// DescribeSchema lists the tables and views of the sandbox with their columns.
func (r *Runner) DescribeSchema(ctx context.Context) ([]port.TableSchema, error) {
	conn, err := connect(ctx, r.connConfig)
	if err != nil {
		return nil, err
	}
	defer closeConn(conn)

	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	filter, args := schemaFilter(r.schemas, "c.table_schema", 1)
	rows, err := conn.Query(ctx, fmt.Sprintf(querySchemaColumns, filter), args...)
	if err != nil {
		return nil, fmt.Errorf("describing schema: %w", r.engineError(err))
	}
	defer rows.Close()

	return scanSchema(rows)
}

func scanSchema(rows pgx.Rows) ([]port.TableSchema, error) {
	tables := []port.TableSchema{}
	for rows.Next() {
		var (
			schema, table string
			col           port.ColumnSchema
		)
		if err := rows.Scan(&schema, &table, &col.Name, &col.DataType, &col.Nullable, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scanning column row: %w", err)
		}
		tables = port.AppendColumn(tables, qualifiedName(schema, table), col)
	}
	return tables, rows.Err()
}
