package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NormalizeValue converts a driver-level cell into a JSON-friendly value.
// Byte slices become text, 16-byte arrays are rendered as UUIDs and
// driver.Valuer implementations (numeric, interval, ...) are unwrapped.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64, time.Time:
		return val
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return fmt.Sprint(val)
		}
		if _, loop := inner.(driver.Valuer); loop {
			return fmt.Sprint(inner)
		}
		return NormalizeValue(inner)
	default:
		return val
	}
}

// CellText is the text form of a cell used when comparing result sets.
func CellText(v any) string {
	switch val := NormalizeValue(v).(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
