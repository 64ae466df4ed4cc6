package postgres

import (
	"fmt"

	"github.com/guillermoBallester/sqlgym/internal/core/domain"
	"github.com/jackc/pgx/v5"
)

// collectRows reads at most maxRows rows. Column names keep their result
// order. truncated reports whether more rows were available.
func collectRows(rows pgx.Rows, maxRows int) (rs *domain.ResultSet, truncated bool, err error) {
	fields := rows.FieldDescriptions()
	rs = &domain.ResultSet{
		Columns: make([]string, len(fields)),
		Rows:    [][]any{},
	}
	for i, fd := range fields {
		rs.Columns[i] = fd.Name
	}

	for rows.Next() {
		if len(rs.Rows) >= maxRows {
			return rs, true, nil
		}
		vals, err := rows.Values()
		if err != nil {
			return nil, false, fmt.Errorf("reading row values: %w", err)
		}
		row := make([]any, len(vals))
		for i, v := range vals {
			row[i] = domain.NormalizeValue(v)
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return rs, false, nil
}
