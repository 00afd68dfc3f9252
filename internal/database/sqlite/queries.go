package sqlite

// SQL queries for SQLite catalog introspection. SQLite has no
// information_schema; lengths come from the declared type.
const (
	queryGetColumns = `
		SELECT
			name,
			type,
			CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END,
			NULL
		FROM pragma_table_info(?)
		ORDER BY cid`

	queryTableExists = `
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name = ?`
)
