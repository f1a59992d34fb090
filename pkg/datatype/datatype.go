// Package datatype maps between logical values (words, signed integers,
// floats, strings, timestamps) and the raw 16-bit register sequences the
// wire actually carries.
package datatype

import (
	"fmt"
	"math"
	"strings"
)

// Type is the canonical set of logical data types a register sequence can
// be interpreted as.
type Type string

const (
	Word   Type = "Word"
	Byte   Type = "Byte"
	Int8   Type = "Int8"
	Int16  Type = "Int16"
	Int32  Type = "Int32"
	Float  Type = "Float"
	String Type = "String"
	Array  Type = "Array"
	TCP56  Type = "TCP56"
)

// Canonical case-folds a requested type name to its canonical spelling.
// An empty return means the name is not one of the known types.
func Canonical(name string) Type {
	switch strings.ToLower(name) {
	case "word":
		return Word
	case "byte":
		return Byte
	case "int8":
		return Int8
	case "int16":
		return Int16
	case "int32":
		return Int32
	case "float":
		return Float
	case "string":
		return String
	case "array":
		return Array
	case "tcp56":
		return TCP56
	default:
		return ""
	}
}

// Timestamp is the decoded form of a TCP56 register group.
type Timestamp struct {
	Milliseconds uint16
	Minute       uint8
	Hour         uint8
	Day          uint8
	Month        uint8
	Year         int
}

// ISO8601 renders t as YYYY-MM-DDTHH:MM:SS.mmm.
func (t Timestamp) ISO8601() string {
	seconds := t.Milliseconds / 1000
	ms := t.Milliseconds % 1000
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d.%03d",
		t.Year, t.Month, t.Day, t.Hour, t.Minute, seconds, ms)
}

func registersToBytes(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		out[i*2] = byte(v >> 8)
		out[i*2+1] = byte(v)
	}
	return out
}

// Decode interprets values as dt. stringLength is only consulted for
// String and may be 0 to mean "use the full byte length".
func Decode(values []uint16, dt Type, stringLength int) (any, error) {
	switch dt {
	case Word:
		return values, nil

	case Byte:
		bytes := registersToBytes(values)
		out := make([]uint8, len(bytes))
		for i, b := range bytes {
			out[i] = b
		}
		return out, nil

	case Int8:
		bytes := registersToBytes(values)
		out := make([]int8, len(bytes))
		for i, b := range bytes {
			out[i] = int8(b)
		}
		return out, nil

	case Int16:
		out := make([]int16, len(values))
		for i, v := range values {
			out[i] = int16(v)
		}
		return out, nil

	case Int32:
		bytes := registersToBytes(values)
		if len(bytes) < 4 {
			return nil, fmt.Errorf("Int32 requires at least 2 registers")
		}
		v := int32(bytes[0])<<24 | int32(bytes[1])<<16 | int32(bytes[2])<<8 | int32(bytes[3])
		return v, nil

	case Float:
		bytes := registersToBytes(values)
		if len(bytes) < 4 {
			return nil, fmt.Errorf("Float requires at least 2 registers")
		}
		raw := uint32(bytes[0])<<24 | uint32(bytes[1])<<16 | uint32(bytes[2])<<8 | uint32(bytes[3])
		return math.Float32frombits(raw), nil

	case String:
		bytes := registersToBytes(values)
		length := len(bytes)
		if stringLength > 0 && stringLength < length {
			length = stringLength
		}
		text := bytes[:length]
		if idx := indexZero(text); idx >= 0 {
			text = text[:idx]
		}
		return string(text), nil

	case Array:
		return values, nil

	case TCP56:
		bytes := registersToBytes(values)
		if len(bytes) < 7 {
			return nil, fmt.Errorf("TCP56 requires at least 4 registers")
		}
		return Timestamp{
			Milliseconds: uint16(bytes[0]) | uint16(bytes[1])<<8,
			Minute:       bytes[2] & 0x3F,
			Hour:         bytes[3] & 0x1F,
			Day:          bytes[4] & 0x1F,
			Month:        bytes[5] & 0x0F,
			Year:         2000 + int(bytes[6]&0x7F),
		}, nil

	default:
		return nil, fmt.Errorf("unsupported data type %q", dt)
	}
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}

// Encode produces a register sequence from a logical value for dt.
// stringLength is the target byte length for String before register
// packing; 0 keeps the value's own length. Either way the bytes are then
// padded to an even count.
func Encode(value any, dt Type, stringLength int) ([]uint16, error) {
	switch dt {
	case Word, Array:
		v, ok := value.([]uint16)
		if !ok || len(v) == 0 {
			return nil, fmt.Errorf("NoDataToWrite")
		}
		return v, nil

	case Byte:
		bytes, err := toByteSlice(value)
		if err != nil {
			return nil, err
		}
		for _, b := range bytes {
			if b < 0 || b > 255 {
				return nil, fmt.Errorf("Byte out of range [0,255]: %d", b)
			}
		}
		return packBytesToRegisters(padEven(toUint8Bytes(bytes))), nil

	case Int8:
		ints, err := toIntSlice(value)
		if err != nil {
			return nil, err
		}
		bytes := make([]byte, len(ints))
		for i, v := range ints {
			if v < -128 || v > 127 {
				return nil, fmt.Errorf("Int8 out of range [-128,127]: %d", v)
			}
			bytes[i] = byte(int8(v))
		}
		return packBytesToRegisters(padEven(bytes)), nil

	case Int16:
		ints, err := toIntSlice(value)
		if err != nil {
			return nil, err
		}
		out := make([]uint16, len(ints))
		for i, v := range ints {
			if v < -32768 || v > 32767 {
				return nil, fmt.Errorf("Int16 out of range [-32768,32767]: %d", v)
			}
			out[i] = uint16(int16(v))
		}
		return out, nil

	case Int32:
		v, err := toInt64(value)
		if err != nil {
			return nil, err
		}
		if v < -2147483648 || v > 2147483647 {
			return nil, fmt.Errorf("Int32 out of range: %d", v)
		}
		u := uint32(int32(v))
		return []uint16{uint16(u >> 16), uint16(u)}, nil

	case Float:
		f, err := toFloat64(value)
		if err != nil {
			return nil, err
		}
		raw := math.Float32bits(float32(f))
		return []uint16{uint16(raw >> 16), uint16(raw)}, nil

	case String:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("String requires a string value")
		}
		bytes := []byte(s)
		if stringLength > 0 {
			if len(bytes) < stringLength {
				padded := make([]byte, stringLength)
				copy(padded, bytes)
				bytes = padded
			} else {
				bytes = bytes[:stringLength]
			}
		}
		bytes = padEven(bytes)
		return packBytesToRegisters(bytes), nil

	case TCP56:
		ts, ok := value.(Timestamp)
		if !ok {
			return nil, fmt.Errorf("TCP56 requires a Timestamp value")
		}
		return encodeTCP56(ts)

	default:
		return nil, fmt.Errorf("Unsupported data type %q", dt)
	}
}

func encodeTCP56(ts Timestamp) ([]uint16, error) {
	if ts.Milliseconds > 59999 {
		return nil, fmt.Errorf("TCP56 milliseconds out of range [0,59999]: %d", ts.Milliseconds)
	}
	if ts.Minute > 59 {
		return nil, fmt.Errorf("TCP56 minute out of range [0,59]: %d", ts.Minute)
	}
	if ts.Hour > 23 {
		return nil, fmt.Errorf("TCP56 hour out of range [0,23]: %d", ts.Hour)
	}
	if ts.Day < 1 || ts.Day > 31 {
		return nil, fmt.Errorf("TCP56 day out of range [1,31]: %d", ts.Day)
	}
	if ts.Month < 1 || ts.Month > 12 {
		return nil, fmt.Errorf("TCP56 month out of range [1,12]: %d", ts.Month)
	}
	if ts.Year < 2000 || ts.Year > 2127 {
		return nil, fmt.Errorf("TCP56 year out of range [2000,2127]: %d", ts.Year)
	}

	bytes := make([]byte, 7)
	bytes[0] = byte(ts.Milliseconds)
	bytes[1] = byte(ts.Milliseconds >> 8)
	bytes[2] = ts.Minute & 0x3F
	bytes[3] = ts.Hour & 0x1F
	bytes[4] = ts.Day & 0x1F
	bytes[5] = ts.Month & 0x0F
	bytes[6] = byte(ts.Year - 2000)
	bytes = padEven(bytes)
	return packBytesToRegisters(bytes), nil
}

func packBytesToRegisters(bytes []byte) []uint16 {
	out := make([]uint16, len(bytes)/2)
	for i := range out {
		out[i] = uint16(bytes[i*2])<<8 | uint16(bytes[i*2+1])
	}
	return out
}

func padEven(bytes []byte) []byte {
	if len(bytes)%2 == 0 {
		return bytes
	}
	return append(bytes, 0)
}

func toByteSlice(value any) ([]int, error) {
	switch v := value.(type) {
	case []uint8:
		out := make([]int, len(v))
		for i, b := range v {
			out[i] = int(b)
		}
		return out, nil
	case []int:
		return v, nil
	default:
		return nil, fmt.Errorf("Byte requires a byte/int slice value")
	}
}

func toUint8Bytes(ints []int) []byte {
	out := make([]byte, len(ints))
	for i, v := range ints {
		out[i] = byte(v)
	}
	return out
}

func toIntSlice(value any) ([]int, error) {
	switch v := value.(type) {
	case []int:
		return v, nil
	case []int8:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	case []int16:
		out := make([]int, len(v))
		for i, x := range v {
			out[i] = int(x)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an integer slice value")
	}
}

func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	default:
		return 0, fmt.Errorf("expected an integer value")
	}
}

func toFloat64(value any) (float64, error) {
	switch v := value.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected a numeric value")
	}
}
