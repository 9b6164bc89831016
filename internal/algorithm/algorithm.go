// Package algorithm implements the built-in encoding algorithms that carry
// typed values as octets.
package algorithm

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Built-in algorithm identifiers.
const (
	Hexadecimal = 0
	Base64      = 1
	Short       = 2
	Int         = 3
	Long        = 4
	Boolean     = 5
	Float       = 6
	Double      = 7
	UUID        = 8
	CDATA       = 9

	BuiltinEnd       = 9
	ApplicationStart = 32
	MaxID            = 255
)

// Class partitions the algorithm identifier space.
type Class uint8

const (
	ClassInvalid Class = iota
	ClassBuiltin
	ClassReserved
	ClassApplication
)

// Classify returns the class of identifier id.
func Classify(id int) Class {
	switch {
	case id < 0 || id > MaxID:
		return ClassInvalid
	case id <= BuiltinEnd:
		return ClassBuiltin
	case id < ApplicationStart:
		return ClassReserved
	default:
		return ClassApplication
	}
}

var (
	// ErrLength reports octets whose length is not a multiple of the item size.
	ErrLength = errors.New("octet length does not match item size")
	// ErrType reports a value whose Go type does not match the algorithm.
	ErrType = errors.New("value type does not match algorithm")
	// ErrUTF8 reports CDATA octets that are not valid UTF-8.
	ErrUTF8 = errors.New("invalid UTF-8 in CDATA")
	// ErrUnknown reports an identifier that is not a built-in algorithm.
	ErrUnknown = errors.New("not a built-in algorithm")
)

var names = [...]string{
	Hexadecimal: "hexadecimal",
	Base64:      "base64",
	Short:       "short",
	Int:         "int",
	Long:        "long",
	Boolean:     "boolean",
	Float:       "float",
	Double:      "double",
	UUID:        "uuid",
	CDATA:       "cdata",
}

// Name returns the name of a built-in algorithm.
func Name(id int) string {
	if id < 0 || id > BuiltinEnd {
		return "algorithm(" + strconv.Itoa(id) + ")"
	}
	return names[id]
}

// ItemSize returns the octet size of one value, or 0 for variable-size data.
func ItemSize(id int) int {
	switch id {
	case Short:
		return 2
	case Int, Float:
		return 4
	case Long, Double:
		return 8
	case UUID:
		return 16
	default:
		return 0
	}
}

// Decode converts octets into the Go value of a built-in algorithm:
// []byte for hexadecimal, base64 and cdata, []int16, []int32, []int64,
// []bool, []float32, []float64 or []uuid.UUID otherwise.
func Decode(id int, octets []byte) (any, error) {
	if size := ItemSize(id); size > 0 && len(octets)%size != 0 {
		return nil, fmt.Errorf("%s: %w: %d octets", Name(id), ErrLength, len(octets))
	}
	switch id {
	case Hexadecimal, Base64:
		return append([]byte(nil), octets...), nil
	case CDATA:
		if !utf8.Valid(octets) {
			return nil, ErrUTF8
		}
		return append([]byte(nil), octets...), nil
	case Short:
		out := make([]int16, len(octets)/2)
		for i := range out {
			out[i] = int16(binary.BigEndian.Uint16(octets[i*2:]))
		}
		return out, nil
	case Int:
		out := make([]int32, len(octets)/4)
		for i := range out {
			out[i] = int32(binary.BigEndian.Uint32(octets[i*4:]))
		}
		return out, nil
	case Long:
		out := make([]int64, len(octets)/8)
		for i := range out {
			out[i] = int64(binary.BigEndian.Uint64(octets[i*8:]))
		}
		return out, nil
	case Float:
		out := make([]float32, len(octets)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.BigEndian.Uint32(octets[i*4:]))
		}
		return out, nil
	case Double:
		out := make([]float64, len(octets)/8)
		for i := range out {
			out[i] = math.Float64frombits(binary.BigEndian.Uint64(octets[i*8:]))
		}
		return out, nil
	case UUID:
		out := make([]uuid.UUID, len(octets)/16)
		for i := range out {
			copy(out[i][:], octets[i*16:])
		}
		return out, nil
	case Boolean:
		return decodeBooleans(octets)
	default:
		return nil, ErrUnknown
	}
}

// Append encodes v with a built-in algorithm and appends the octets to dst.
func Append(dst []byte, id int, v any) ([]byte, error) {
	switch id {
	case Hexadecimal, Base64, CDATA:
		b, ok := v.([]byte)
		if !ok {
			if s, isString := v.(string); isString {
				b = []byte(s)
			} else {
				return dst, typeError(id, v)
			}
		}
		if id == CDATA && !utf8.Valid(b) {
			return dst, ErrUTF8
		}
		return append(dst, b...), nil
	case Short:
		vs, ok := v.([]int16)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = binary.BigEndian.AppendUint16(dst, uint16(x))
		}
		return dst, nil
	case Int:
		vs, ok := v.([]int32)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = binary.BigEndian.AppendUint32(dst, uint32(x))
		}
		return dst, nil
	case Long:
		vs, ok := v.([]int64)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = binary.BigEndian.AppendUint64(dst, uint64(x))
		}
		return dst, nil
	case Float:
		vs, ok := v.([]float32)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = binary.BigEndian.AppendUint32(dst, math.Float32bits(x))
		}
		return dst, nil
	case Double:
		vs, ok := v.([]float64)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = binary.BigEndian.AppendUint64(dst, math.Float64bits(x))
		}
		return dst, nil
	case UUID:
		vs, ok := v.([]uuid.UUID)
		if !ok {
			return dst, typeError(id, v)
		}
		for _, x := range vs {
			dst = append(dst, x[:]...)
		}
		return dst, nil
	case Boolean:
		vs, ok := v.([]bool)
		if !ok {
			return dst, typeError(id, v)
		}
		return appendBooleans(dst, vs), nil
	default:
		return dst, ErrUnknown
	}
}

func typeError(id int, v any) error {
	return fmt.Errorf("%s: %w: %T", Name(id), ErrType, v)
}

// appendBooleans writes a 4-bit count of unused trailing bits followed by the
// values, most significant bit first.
func appendBooleans(dst []byte, vs []bool) []byte {
	total := 4 + len(vs)
	n := (total + 7) / 8
	unused := n*8 - total
	start := len(dst)
	dst = append(dst, make([]byte, n)...)
	out := dst[start:]
	out[0] = byte(unused) << 4
	for i, v := range vs {
		if v {
			bit := 4 + i
			out[bit/8] |= 0x80 >> (bit % 8)
		}
	}
	return dst
}

func decodeBooleans(octets []byte) ([]bool, error) {
	if len(octets) == 0 {
		return nil, ErrLength
	}
	unused := int(octets[0] >> 4)
	if unused > 7 {
		return nil, ErrLength
	}
	count := len(octets)*8 - 4 - unused
	if count < 0 {
		return nil, ErrLength
	}
	out := make([]bool, count)
	for i := range out {
		bit := 4 + i
		out[i] = octets[bit/8]&(0x80>>(bit%8)) != 0
	}
	return out, nil
}

// AppendText appends the character rendering of a decoded built-in value.
func AppendText(dst []byte, id int, v any) ([]byte, error) {
	switch id {
	case Hexadecimal:
		b, ok := v.([]byte)
		if !ok {
			return dst, typeError(id, v)
		}
		const digits = "0123456789ABCDEF"
		for _, c := range b {
			dst = append(dst, digits[c>>4], digits[c&0x0F])
		}
		return dst, nil
	case Base64:
		b, ok := v.([]byte)
		if !ok {
			return dst, typeError(id, v)
		}
		return base64.StdEncoding.AppendEncode(dst, b), nil
	case CDATA:
		b, ok := v.([]byte)
		if !ok {
			return dst, typeError(id, v)
		}
		return append(dst, b...), nil
	case Short:
		return appendList(dst, v, id, func(dst []byte, x int16) []byte {
			return strconv.AppendInt(dst, int64(x), 10)
		})
	case Int:
		return appendList(dst, v, id, func(dst []byte, x int32) []byte {
			return strconv.AppendInt(dst, int64(x), 10)
		})
	case Long:
		return appendList(dst, v, id, func(dst []byte, x int64) []byte {
			return strconv.AppendInt(dst, x, 10)
		})
	case Boolean:
		return appendList(dst, v, id, strconv.AppendBool)
	case Float:
		return appendList(dst, v, id, func(dst []byte, x float32) []byte {
			return appendFloat(dst, float64(x), 32)
		})
	case Double:
		return appendList(dst, v, id, func(dst []byte, x float64) []byte {
			return appendFloat(dst, x, 64)
		})
	case UUID:
		return appendList(dst, v, id, func(dst []byte, x uuid.UUID) []byte {
			return append(dst, x.String()...)
		})
	default:
		return dst, ErrUnknown
	}
}

func appendList[T any](dst []byte, v any, id int, appendOne func([]byte, T) []byte) ([]byte, error) {
	vs, ok := v.([]T)
	if !ok {
		return dst, typeError(id, v)
	}
	for i, x := range vs {
		if i > 0 {
			dst = append(dst, ' ')
		}
		dst = appendOne(dst, x)
	}
	return dst, nil
}

func appendFloat(dst []byte, x float64, bitSize int) []byte {
	switch {
	case math.IsNaN(x):
		return append(dst, "NaN"...)
	case math.IsInf(x, 1):
		return append(dst, "INF"...)
	case math.IsInf(x, -1):
		return append(dst, "-INF"...)
	default:
		return strconv.AppendFloat(dst, x, 'E', -1, bitSize)
	}
}
