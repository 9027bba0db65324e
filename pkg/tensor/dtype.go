package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
)

// DataType names the element type of a tensor using the model server's wire names.
type DataType string

const (
	Half   DataType = "DT_HALF"
	Float  DataType = "DT_FLOAT"
	Double DataType = "DT_DOUBLE"
	Int8   DataType = "DT_INT8"
	Int16  DataType = "DT_INT16"
	Int32  DataType = "DT_INT32"
	Int64  DataType = "DT_INT64"
	Uint8  DataType = "DT_UINT8"
	Uint16 DataType = "DT_UINT16"
	Uint32 DataType = "DT_UINT32"
	Uint64 DataType = "DT_UINT64"
	Bool   DataType = "DT_BOOL"
	String DataType = "DT_STRING"
)

var aliases = map[string]DataType{
	"half":    Half,
	"float16": Half,
	"fp16":    Half,
	"float":   Float,
	"float32": Float,
	"fp32":    Float,
	"double":  Double,
	"float64": Double,
	"fp64":    Double,
	"int8":    Int8,
	"int16":   Int16,
	"int32":   Int32,
	"int":     Int64,
	"int64":   Int64,
	"uint8":   Uint8,
	"uint16":  Uint16,
	"uint32":  Uint32,
	"uint64":  Uint64,
	"bool":    Bool,
	"string":  String,
	"bytes":   String,
}

// ParseDataType accepts both wire names (DT_UINT8) and the usual short
// spellings (uint8, float32, fp16), case-insensitively.
func ParseDataType(name string) (DataType, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.TrimPrefix(key, "dt_")
	if dtype, ok := aliases[key]; ok {
		return dtype, nil
	}
	return "", fmt.Errorf("unsupported dtype %q", name)
}

// Size is the packed width of one element in bytes, 0 for DT_STRING.
func (d DataType) Size() int {
	switch d {
	case Int8, Uint8, Bool:
		return 1
	case Half, Int16, Uint16:
		return 2
	case Float, Int32, Uint32:
		return 4
	case Double, Int64, Uint64:
		return 8
	default:
		return 0
	}
}

func (d DataType) Valid() bool {
	return d == String || d.Size() > 0
}

func (d DataType) IsFloat() bool {
	return d == Half || d == Float || d == Double
}

func (d DataType) IsInteger() bool {
	switch d {
	case Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64:
		return true
	}
	return false
}

func (d DataType) IsNumeric() bool {
	return d.IsFloat() || d.IsInteger() || d == Bool
}

func putFloat64(dtype DataType, b []byte, v float64) {
	switch dtype {
	case Half:
		binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
	case Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case Double:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case Int8:
		b[0] = byte(int8(int64(v)))
	case Uint8:
		b[0] = byte(int64(v))
	case Bool:
		if v != 0 {
			b[0] = 1
		} else {
			b[0] = 0
		}
	case Int16:
		binary.LittleEndian.PutUint16(b, uint16(int16(int64(v))))
	case Uint16:
		binary.LittleEndian.PutUint16(b, uint16(int64(v)))
	case Int32:
		binary.LittleEndian.PutUint32(b, uint32(int32(int64(v))))
	case Uint32:
		binary.LittleEndian.PutUint32(b, uint32(int64(v)))
	case Int64:
		binary.LittleEndian.PutUint64(b, uint64(int64(v)))
	case Uint64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
}

func getFloat64(dtype DataType, b []byte) float64 {
	switch dtype {
	case Half:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	case Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case Double:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case Int8:
		return float64(int8(b[0]))
	case Uint8, Bool:
		return float64(b[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(b)))
	case Uint64:
		return float64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// nativeElement decodes one element into the Go value used for JSON rendering.
func nativeElement(dtype DataType, b []byte) any {
	switch dtype {
	case Bool:
		return b[0] != 0
	case Int8, Int16, Int32:
		return int64(getFloat64(dtype, b))
	case Int64:
		return int64(binary.LittleEndian.Uint64(b))
	case Uint8, Uint16, Uint32:
		return uint64(getFloat64(dtype, b))
	case Uint64:
		return binary.LittleEndian.Uint64(b)
	default:
		return getFloat64(dtype, b)
	}
}
