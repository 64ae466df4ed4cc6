package sqldb

import (
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchemaQuery = `
	SELECT
		m.name,
		p.name,
		p.type,
		CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 1 ELSE 0 END,
		CASE WHEN p.pk > 0 THEN 1 ELSE 0 END
	FROM sqlite_master m
	JOIN pragma_table_info(m.name) p
	WHERE m.type IN ('table', 'view') AND m.name NOT LIKE 'sqlite_%'
	ORDER BY m.name, p.cid`

// SQLiteDSN opens path read-only.
func SQLiteDSN(path string) string {
	u := url.URL{Scheme: "file", Opaque: path}
	q := url.Values{}
	q.Set("mode", "ro")
	q.Set("_query_only", "true")
	u.RawQuery = q.Encode()
	return u.String()
}

// NewSQLiteRunner returns a runner for the SQLite database file at path.
func NewSQLiteRunner(path string, maxRows int, connectTimeout, queryTimeout time.Duration) *Runner {
	return newRunner("sqlite3", SQLiteDSN(path), sqliteSchemaQuery, maxRows, connectTimeout, queryTimeout)
}
