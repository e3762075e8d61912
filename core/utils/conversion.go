package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ToInt converts driver and YAML scalars to int. Unparseable input yields 0.
func ToInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case int16:
		return int(v)
	case int8:
		return int(v)
	case uint:
		return int(v)
	case uint64:
		return int(v)
	case uint32:
		return int(v)
	case uint16:
		return int(v)
	case uint8:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(v))
		return i
	case []byte:
		i, _ := strconv.Atoi(strings.TrimSpace(string(v)))
		return i
	case nil:
		return 0
	default:
		i, _ := strconv.Atoi(fmt.Sprintf("%v", v))
		return i
	}
}

// ToFloat converts numeric scalars and numeric strings to float64.
func ToFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		f, err := strconv.ParseFloat(fmt.Sprintf("%v", v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	case []byte:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// ToString converts various types to string.
func ToString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// ToBool converts various types to bool.
// It handles bool, numeric types (1=true), and strings ("1", "true").
func ToBool(val any) bool {
	switch v := val.(type) {
	case bool:
		return v
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8:
		return ToInt(v) == 1
	case float64:
		return v == 1
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	case []byte:
		s := string(v)
		return s == "1" || strings.EqualFold(s, "true")
	default:
		return false
	}
}

// Equal compares a stored column value with a declared one. Stored values come
// back in driver types (int64, []byte, time.Time, 0/1 booleans), so the
// comparison is made in the declared value's terms.
func Equal(stored, declared any) bool {
	if declared == nil || stored == nil {
		return declared == nil && stored == nil
	}
	switch d := declared.(type) {
	case bool:
		return ToBool(stored) == d
	case int, int64, int32, int16, int8, uint, uint64, uint32, uint16, uint8, float32, float64:
		df, _ := ToFloat(d)
		sf, ok := ToFloat(stored)
		return ok && sf == df
	case string:
		if t, ok := stored.(time.Time); ok {
			parsed, err := time.Parse(time.RFC3339, d)
			return err == nil && parsed.Equal(t)
		}
		return ToString(stored) == d
	case map[string]any, []any:
		return JSONEqual(stored, d)
	default:
		return ToString(stored) == ToString(d)
	}
}

// JSONEqual compares a stored JSON document (string or bytes) with a decoded value.
func JSONEqual(stored, declared any) bool {
	var raw []byte
	switch s := stored.(type) {
	case string:
		raw = []byte(s)
	case []byte:
		raw = s
	default:
		b, err := json.Marshal(s)
		if err != nil {
			return false
		}
		raw = b
	}
	var got any
	if err := json.Unmarshal(raw, &got); err != nil {
		return false
	}
	want, err := json.Marshal(declared)
	if err != nil {
		return false
	}
	var norm any
	if err := json.Unmarshal(want, &norm); err != nil {
		return false
	}
	return reflect.DeepEqual(got, norm)
}
