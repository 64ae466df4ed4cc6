package postgres

import (
	"fmt"
	"strings"
)

// schemaFilter returns a WHERE fragment and args restricting column to
// schemas. paramOffset is the first $N index. With no schemas it excludes the
// system catalogs.
func schemaFilter(schemas []string, column string, paramOffset int) (clause string, args []any) {
	if len(schemas) == 0 {
		return fmt.Sprintf("%s NOT IN ('pg_catalog', 'information_schema')", column), nil
	}
	placeholders := make([]string, len(schemas))
	args = make([]any, len(schemas))
	for i, s := range schemas {
		placeholders[i] = fmt.Sprintf("$%d", paramOffset+i)
		args[i] = s
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// qualifiedName omits the default schema.
func qualifiedName(schema, table string) string {
	if schema == "public" {
		return table
	}
	return schema + "." + table
}
