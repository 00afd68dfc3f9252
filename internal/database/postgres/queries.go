package postgres

// SQL queries for PostgreSQL catalog introspection.
const (
	queryGetColumns = `
		SELECT
			column_name,
			data_type,
			is_nullable,
			character_maximum_length
		FROM information_schema.columns
		WHERE table_name = $1
		ORDER BY ordinal_position`

	queryTableExists = `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_name = $1`
)
