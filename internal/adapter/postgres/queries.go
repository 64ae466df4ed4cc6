package postgres

// querySchemaColumns has one %s placeholder for the schema filter clause.
const querySchemaColumns = `
	SELECT
		c.table_schema,
		c.table_name,
		c.column_name,
		c.data_type,
		c.is_nullable = 'YES',
		EXISTS (
			SELECT 1
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage k
				ON k.constraint_name = tc.constraint_name
				AND k.table_schema = tc.table_schema
				AND k.table_name = tc.table_name
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = c.table_schema
				AND tc.table_name = c.table_name
				AND k.column_name = c.column_name
		)
	FROM information_schema.columns c
	JOIN information_schema.tables t
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE %s
		AND t.table_type IN ('BASE TABLE', 'VIEW')
	ORDER BY c.table_schema, c.table_name, c.ordinal_position`
