package record

import (
	"errors"
	"fmt"
	"math"

	"github.com/dashjay/litescan/pkg/utils"
)

var ErrMalformedRecord = errors.New("malformed record")

const (
	TypeNull    = 0
	TypeInt64   = 1
	TypeFloat64 = 2
	TypeText    = 3
	TypeBlob    = 4
)

// Value is one decoded column datum.
type Value struct {
	Type uint32
	I64  int64
	F64  float64
	Str  []byte
}

func NewValueNull() Value {
	return Value{Type: TypeNull}
}

func NewValueInt64(in int64) Value {
	return Value{Type: TypeInt64, I64: in}
}

func NewValueFloat64(in float64) Value {
	return Value{Type: TypeFloat64, F64: in}
}

func NewValueText(in []byte) Value {
	return Value{Type: TypeText, Str: in}
}

func NewValueBlob(in []byte) Value {
	return Value{Type: TypeBlob, Str: in}
}

// Record is a decoded row payload.
// Overflow is set when the column data extends past the payload bytes, i.e.
// the cell spilled to an overflow chain and only a prefix was decodable.
type Record struct {
	Vals     []Value
	Overflow bool
}

// serialWidth returns the data width in bytes for a serial type.
func serialWidth(serial uint64) int {
	switch serial {
	case 0, 8, 9:
		return 0
	case 1:
		return 1
	case 2:
		return 2
	case 3:
		return 3
	case 4:
		return 4
	case 5:
		return 6
	case 6, 7:
		return 8
	default:
		if serial%2 == 0 {
			return int(serial-12) / 2
		}
		return int(serial-13) / 2
	}
}

// Decode parses a record payload: a header-size varint, one serial-type
// varint per column, then the column data in the same order.
func Decode(payload []byte) (Record, error) {
	var rec Record
	headerSize64, n, err := Varint(payload)
	if err != nil {
		return rec, fmt.Errorf("%w: header size: %s", ErrMalformedRecord, err)
	}
	headerSize := int(headerSize64)
	if headerSize < n || headerSize > len(payload) {
		return rec, fmt.Errorf("%w: header size %d out of payload %d", ErrMalformedRecord, headerSize, len(payload))
	}

	headerOff := n
	dataOff := headerSize
	for headerOff < headerSize {
		serial, m, err := Varint(payload[headerOff:headerSize])
		if err != nil {
			return rec, fmt.Errorf("%w: serial type: %s", ErrMalformedRecord, err)
		}
		headerOff += m
		if serial == 10 || serial == 11 {
			return rec, fmt.Errorf("%w: reserved serial type %d", ErrMalformedRecord, serial)
		}
		end := dataOff + serialWidth(serial)
		if end > len(payload) {
			rec.Overflow = true
			return rec, nil
		}
		rec.Vals = append(rec.Vals, decodeValue(serial, payload[dataOff:end]))
		dataOff = end
	}
	return rec, nil
}

func decodeValue(serial uint64, data []byte) Value {
	switch serial {
	case 0:
		return NewValueNull()
	case 1, 2, 3, 4, 5, 6:
		return NewValueInt64(readTwosComplement(data))
	case 7:
		return NewValueFloat64(math.Float64frombits(readUint64(data)))
	case 8:
		return NewValueInt64(0)
	case 9:
		return NewValueInt64(1)
	default:
		utils.Assertf(serial >= 12, "decodeValue: unexpected serial type %d", serial)
		if serial%2 == 0 {
			return NewValueBlob(data)
		}
		return NewValueText(data)
	}
}

// readTwosComplement sign-extends a 1..8 byte big-endian integer.
func readTwosComplement(data []byte) int64 {
	utils.Assertf(len(data) >= 1, "readTwosComplement: empty data")
	value := int64(int8(data[0]))
	for _, b := range data[1:] {
		value = value<<8 | int64(b)
	}
	return value
}

func readUint64(data []byte) uint64 {
	var value uint64
	for _, b := range data {
		value = value<<8 | uint64(b)
	}
	return value
}
