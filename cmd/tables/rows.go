package tables

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

const keySeparator = "\x1f"

// Project returns the values of cols from row, in order.
func Project(row Row, cols []string) []any {
	values := make([]any, len(cols))
	for i, col := range cols {
		values[i] = row[col]
	}
	return values
}

// TupleKey returns a canonical key for a tuple. ok is false when any value
// is null, since such tuples never compare equal.
func TupleKey(values []any) (key string, ok bool) {
	for _, v := range values {
		if v == nil {
			return "", false
		}
	}
	return distinctKey(values), true
}

// distinctKey treats nulls as equal to each other, like SQL DISTINCT.
func distinctKey(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = ValueKey(v)
	}
	return strings.Join(parts, keySeparator)
}

// RowKey returns a canonical key over the full content of a row. Columns
// are visited in name order so two rows with the same content produce the
// same key regardless of how they were built.
func RowKey(row Row) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + ValueKey(row[name])
	}
	return strings.Join(parts, keySeparator)
}

// ValueKey renders a value so that equal values produce equal strings.
// Integer widths are normalized, matching SQL comparison of int32 and int64.
func ValueKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + val
	case []byte:
		return "s:" + string(val)
	case bool:
		return "b:" + strconv.FormatBool(val)
	case int:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int8:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int16:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int32:
		return "i:" + strconv.FormatInt(int64(val), 10)
	case int64:
		return "i:" + strconv.FormatInt(val, 10)
	case uint8:
		return "i:" + strconv.FormatUint(uint64(val), 10)
	case uint16:
		return "i:" + strconv.FormatUint(uint64(val), 10)
	case uint32:
		return "i:" + strconv.FormatUint(uint64(val), 10)
	case uint64:
		return "i:" + strconv.FormatUint(val, 10)
	case float32:
		return "f:" + strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return "f:" + strconv.FormatFloat(val, 'g', -1, 64)
	case time.Time:
		return "t:" + val.UTC().Format(time.RFC3339Nano)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = ValueKey(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]any:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, name := range names {
			parts[i] = name + ":" + ValueKey(val[name])
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
