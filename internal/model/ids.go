package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceID normalises the shapes a record reference arrives in: a plain
// integer, a float from JSON decoding, a numeric string, or a lookup object
// such as {"Id": 3, "Name": "Work"}. It reports false for anything that is not
// a positive integer id.
func CoerceID(v any) (int64, bool) {
	var id int64
	switch value := v.(type) {
	case int:
		id = int64(value)
	case int32:
		id = int64(value)
	case int64:
		id = value
	case uint:
		id = int64(value)
	case uint32:
		id = int64(value)
	case uint64:
		if value > math.MaxInt64 {
			return 0, false
		}
		id = int64(value)
	case float32:
		return CoerceID(float64(value))
	case float64:
		// MaxInt64 rounds up to 2^63 as a float, which int64 cannot hold.
		if value != math.Trunc(value) || value >= math.MaxInt64 {
			return 0, false
		}
		id = int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0, false
		}
		id = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	case map[string]any:
		for _, key := range []string{"Id", "id", "ID"} {
			if inner, ok := value[key]; ok {
				return CoerceID(inner)
			}
		}
		return 0, false
	default:
		return 0, false
	}
	if id <= 0 {
		return 0, false
	}
	return id, true
}
