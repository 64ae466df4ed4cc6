package port

import "context"

// ColumnSchema describes one column of a sandbox table.
type ColumnSchema struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key,omitempty"`
}

// TableSchema describes a table or view a learner can query. Name is
// schema-qualified only outside the default schema.
type TableSchema struct {
	Name    string         `json:"name"`
	Columns []ColumnSchema `json:"columns"`
}

// SchemaDescriber is implemented by runners that can list the tables of
// their sandbox.
type SchemaDescriber interface {
	DescribeSchema(ctx context.Context) ([]TableSchema, error)
}

// AppendColumn adds col to the last table when it matches table, otherwise
// starts a new table. Rows must arrive ordered by table.
func AppendColumn(tables []TableSchema, table string, col ColumnSchema) []TableSchema {
	if n := len(tables); n > 0 && tables[n-1].Name == table {
		tables[n-1].Columns = append(tables[n-1].Columns, col)
		return tables
	}
	return append(tables, TableSchema{Name: table, Columns: []ColumnSchema{col}})
}
