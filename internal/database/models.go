package database

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ColumnDescriptor describes one column of a table as reported by the catalog.
type ColumnDescriptor struct {
	Name      string
	DataType  string
	Nullable  bool
	MaxLength *int64
}

// ResultTable holds the materialized rows of a query.
type ResultTable struct {
	Columns  []string
	Types    []string
	Rows     [][]any
	RowCount int
	Duration time.Duration
}

// Strings returns every cell formatted for display.
func (t *ResultTable) Strings() [][]string {
	out := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = FormatValue(v)
		}
		out[i] = cells
	}
	return out
}

// FormatValue renders a driver value the way the result views show it.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return "0x" + strings.ToUpper(hex.EncodeToString(val))
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05.999999999")
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// textTypes are the database types whose values some drivers return as
// []byte although they hold text or a decimal literal.
var textTypes = map[string]bool{
	"CHAR":       true,
	"VARCHAR":    true,
	"NCHAR":      true,
	"NVARCHAR":   true,
	"TEXT":       true,
	"NTEXT":      true,
	"XML":        true,
	"DECIMAL":    true,
	"NUMERIC":    true,
	"MONEY":      true,
	"SMALLMONEY": true,
}

// normalizeValue converts driver bytes to a string for text and decimal
// columns. Bytes of any other column type stay []byte.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	if textTypes[baseType(dbType)] {
		return string(b)
	}
	return b
}

// baseType upper-cases a type name and drops its length or precision.
func baseType(dbType string) string {
	if i := strings.IndexByte(dbType, '('); i >= 0 {
		dbType = dbType[:i]
	}
	return strings.ToUpper(strings.TrimSpace(dbType))
}

var declaredLength = regexp.MustCompile(`^\s*([A-Za-z][A-Za-z0-9_ ]*?)\s*\(\s*(\d+)\s*\)\s*$`)

// ColumnFromRow builds a descriptor from a catalog row of
// (name, data type, is-nullable, max length).
func ColumnFromRow(row []any) (ColumnDescriptor, error) {
	if len(row) < 4 {
		return ColumnDescriptor{}, fmt.Errorf("catalog row has %d values, want 4", len(row))
	}

	name, ok := row[0].(string)
	if !ok {
		return ColumnDescriptor{}, fmt.Errorf("column name: unexpected type %T", row[0])
	}
	dataType, ok := row[1].(string)
	if !ok {
		return ColumnDescriptor{}, fmt.Errorf("data type of %s: unexpected type %T", name, row[1])
	}

	col := ColumnDescriptor{
		Name:     name,
		DataType: strings.ToLower(strings.TrimSpace(dataType)),
	}

	switch n := row[2].(type) {
	case string:
		col.Nullable = strings.EqualFold(n, "YES")
	case bool:
		col.Nullable = n
	case int64:
		col.Nullable = n != 0
	}

	if row[3] != nil {
		l, err := toInt64(row[3])
		if err != nil {
			return ColumnDescriptor{}, fmt.Errorf("max length of %s: %w", name, err)
		}
		col.MaxLength = &l
	}

	// Catalogs without a separate length column report it inside the type.
	if m := declaredLength.FindStringSubmatch(col.DataType); m != nil {
		col.DataType = strings.TrimSpace(m[1])
		if col.MaxLength == nil {
			if l, err := strconv.ParseInt(m[2], 10, 64); err == nil {
				col.MaxLength = &l
			}
		}
	}

	return col, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

// Count reads the single integer of a COUNT(*) style result.
func Count(t *ResultTable) (int64, error) {
	if t == nil || len(t.Rows) == 0 || len(t.Rows[0]) == 0 {
		return 0, fmt.Errorf("count: empty result")
	}
	return toInt64(t.Rows[0][0])
}
