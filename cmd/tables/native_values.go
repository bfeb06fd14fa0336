package tables

import (
	"math/big"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/deprecated"
	"github.com/parquet-go/parquet-go/format"
)

// convertValue converts a parquet value to a Go value, applying the
// column's logical type (timestamps, dates, decimals).
func convertValue(v parquet.Value, logical *format.LogicalType) any {
	if v.IsNull() {
		return nil
	}

	if logical != nil {
		switch {
		case logical.Timestamp != nil:
			return convertTimestamp(v.Int64(), logical.Timestamp.Unit)
		case logical.Date != nil:
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		case logical.Decimal != nil:
			return convertDecimal(v, int(logical.Decimal.Scale))
		}
	}

	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return v.Int32()
	case parquet.Int64:
		return v.Int64()
	case parquet.Int96:
		return int96Time(v.Int96())
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}

func convertTimestamp(n int64, unit format.TimeUnit) time.Time {
	switch {
	case unit.Millis != nil:
		return time.UnixMilli(n).UTC()
	case unit.Micros != nil:
		return time.UnixMicro(n).UTC()
	default:
		return time.Unix(0, n).UTC()
	}
}

// julianUnixEpoch is the Julian day number of 1970-01-01
const julianUnixEpoch = 2440588

// int96Time decodes a legacy INT96 timestamp: nanoseconds of the day in
// the low 64 bits and the Julian day in the high 32 bits
func int96Time(i deprecated.Int96) time.Time {
	nanos := int64(uint64(i[1])<<32 | uint64(i[0]))
	days := int64(i[2]) - julianUnixEpoch
	return time.Unix(days*86400, nanos).UTC()
}

// convertDecimal renders the unscaled integer with the column scale applied
func convertDecimal(v parquet.Value, scale int) string {
	unscaled := new(big.Int)
	switch v.Kind() {
	case parquet.Int32:
		unscaled.SetInt64(int64(v.Int32()))
	case parquet.Int64:
		unscaled.SetInt64(v.Int64())
	default:
		unscaled = twosComplement(v.ByteArray())
	}
	return formatDecimal(unscaled, scale)
}

// twosComplement decodes a big-endian two's complement integer
func twosComplement(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8)))
	}
	return n
}

func formatDecimal(unscaled *big.Int, scale int) string {
	if scale <= 0 {
		return unscaled.String()
	}

	negative := unscaled.Sign() < 0
	digits := new(big.Int).Abs(unscaled).String()
	if len(digits) <= scale {
		digits = strings.Repeat("0", scale-len(digits)+1) + digits
	}

	point := len(digits) - scale
	out := digits[:point] + "." + digits[point:]
	if negative {
		out = "-" + out
	}
	return out
}

// nodeType renders a schema node as a type string that includes every
// parameter relevant for equality.
func nodeType(node parquet.Node) string {
	if node.Leaf() {
		typ := node.Type().String()
		if node.Repeated() {
			return "ARRAY<" + typ + ">"
		}
		return typ
	}

	var logical *format.LogicalType
	if t := node.Type(); t != nil {
		logical = t.LogicalType()
	}
	fields := node.Fields()

	switch {
	case logical != nil && logical.List != nil && len(fields) == 1:
		element := fields[0]
		if inner := element.Fields(); !element.Leaf() && len(inner) == 1 {
			return "LIST<" + nodeType(inner[0]) + ">"
		}
		return "LIST<" + elementType(element) + ">"
	case logical != nil && logical.Map != nil && len(fields) == 1:
		if kv := fields[0].Fields(); len(kv) == 2 {
			return "MAP<" + nodeType(kv[0]) + ", " + nodeType(kv[1]) + ">"
		}
	}

	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = field.Name() + ": " + nodeType(field)
	}
	typ := "STRUCT<" + strings.Join(parts, ", ") + ">"
	if node.Repeated() {
		return "ARRAY<" + typ + ">"
	}
	return typ
}

// elementType renders a list element without the repetition wrapper
func elementType(node parquet.Node) string {
	typ := nodeType(node)
	if strings.HasPrefix(typ, "ARRAY<") {
		return strings.TrimSuffix(strings.TrimPrefix(typ, "ARRAY<"), ">")
	}
	return typ
}
