package sqlsrc

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// normalize converts a scanned value according to its database type name.
// Drivers return text-like columns as []byte; they are turned into proper types
// here so that records do not leak driver details. Zone-less date/time columns
// become civil values so they render the same as BigQuery DATE/DATETIME.
func normalize(driverName, dbType string, v interface{}) interface{} {
	dbType = strings.ToUpper(dbType)

	var text string
	switch x := v.(type) {
	case time.Time:
		switch {
		case isDateType(dbType):
			return civil.DateOf(x)
		case isCivilDateTimeType(driverName, dbType):
			return civil.DateTimeOf(x)
		}
		return x

	case []byte:
		if isBinaryType(dbType) {
			// NOTE: Scanned []byte into *interface{} is already a copy.
			return x
		}
		text = string(x)

	case string:
		text = x

	default:
		return v
	}

	switch {
	case isDecimalType(dbType):
		if d, err := decimal.NewFromString(text); err == nil {
			return d
		}

	case isJSONType(dbType):
		if json.Valid([]byte(text)) {
			return json.RawMessage(text)
		}

	case isIntType(dbType):
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i
		}
		if u, err := strconv.ParseUint(text, 10, 64); err == nil {
			return u
		}

	case isFloatType(dbType):
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	}
	return text
}

func isBinaryType(dbType string) bool {
	return strings.Contains(dbType, "BLOB") ||
		strings.Contains(dbType, "BINARY") ||
		dbType == "BYTEA" ||
		dbType == "BIT" ||
		dbType == "GEOMETRY"
}

func isDecimalType(dbType string) bool {
	return strings.HasPrefix(dbType, "DECIMAL") ||
		strings.HasPrefix(dbType, "NUMERIC") ||
		dbType == "NEWDECIMAL"
}

func isJSONType(dbType string) bool {
	return dbType == "JSON" || dbType == "JSONB"
}

func isIntType(dbType string) bool {
	return strings.Contains(dbType, "INT") || dbType == "YEAR"
}

func isFloatType(dbType string) bool {
	return strings.HasPrefix(dbType, "FLOAT") ||
		strings.HasPrefix(dbType, "DOUBLE") ||
		dbType == "REAL"
}

func isDateType(dbType string) bool {
	return dbType == "DATE"
}

// isCivilDateTimeType reports whether dbType has no time zone. TIMESTAMP is an
// instant in MySQL/SQLite but zone-less in PostgreSQL ("TIMESTAMPTZ" there is
// the instant type).
func isCivilDateTimeType(driverName, dbType string) bool {
	switch dbType {
	case "DATETIME", "TIMESTAMP WITHOUT TIME ZONE":
		return true
	case "TIMESTAMP":
		return driverName == "postgres"
	}
	return false
}
