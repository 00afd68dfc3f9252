package sqlserver

// SQL queries for SQL Server catalog introspection.
const (
	queryGetColumns = `
		SELECT
			COLUMN_NAME,
			DATA_TYPE,
			IS_NULLABLE,
			CHARACTER_MAXIMUM_LENGTH
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_NAME = @p1
		ORDER BY ORDINAL_POSITION`

	queryTableExists = `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_NAME = @p1`
)
