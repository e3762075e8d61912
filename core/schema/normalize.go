package schema

import "strings"

// NormalizeType maps a dialect-reported column type onto a canonical type key.
// Matching is by substring because catalogs report parameterized types such as
// VARCHAR(255) or "timestamp with time zone". Unknown types are returned uppercased.
func NormalizeType(raw, dialect string) string {
	t := strings.ToUpper(strings.TrimSpace(raw))

	switch {
	case t == "":
		return t
	case dialect == "mysql" && strings.HasPrefix(t, "TINYINT(1)"):
		return TypeBoolean
	case strings.Contains(t, "BOOL"):
		return TypeBoolean
	case strings.Contains(t, "INTERVAL"), strings.Contains(t, "POINT"):
		return t
	case strings.Contains(t, "BIGINT"), strings.Contains(t, "BIGSERIAL"), t == "INT8":
		return TypeBigInt
	case strings.Contains(t, "SMALLINT"), strings.Contains(t, "TINYINT"), strings.Contains(t, "SMALLSERIAL"), t == "INT2":
		return TypeSmallInt
	case strings.Contains(t, "INT"), strings.Contains(t, "SERIAL"):
		return TypeInteger
	case strings.Contains(t, "JSON"):
		return TypeJSON
	case strings.Contains(t, "CHAR"), strings.Contains(t, "STRING"):
		return TypeString
	case strings.Contains(t, "TEXT"), strings.Contains(t, "CLOB"):
		return TypeText
	case strings.Contains(t, "TIMESTAMP"), strings.Contains(t, "DATETIME"), strings.Contains(t, "DATE"):
		return TypeDate
	case strings.Contains(t, "FLOAT"), strings.Contains(t, "DOUBLE"), strings.Contains(t, "REAL"),
		strings.Contains(t, "DECIMAL"), strings.Contains(t, "NUMERIC"):
		return TypeFloat
	default:
		return t
	}
}
