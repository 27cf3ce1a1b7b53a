package protoargs

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one raw, still-encoded wire-format field as found in the message
// bytes. Overrides receive it verbatim and pick the accessor matching the
// declared kind of the field; the accessors reinterpret the payload and do
// not re-validate the wire type.
type Field struct {
	Number FieldNumber
	Type   protowire.Type

	scalar uint64 // payload of varint/fixed32/fixed64 fields
	data   []byte // payload of length-delimited fields
}

// NewScalarField builds a Field carrying a raw scalar payload. Mostly useful
// to tests and overrides; the parser builds fields straight off the wire.
func NewScalarField(num FieldNumber, typ protowire.Type, raw uint64) Field {
	return Field{Number: num, Type: typ, scalar: raw}
}

// NewBytesField builds a length-delimited Field over payload. The payload is
// borrowed, not copied.
func NewBytesField(num FieldNumber, payload []byte) Field {
	return Field{Number: num, Type: protowire.BytesType, data: payload}
}

// Bytes returns the payload of a length-delimited field, borrowed from the
// message buffer.
func (f Field) Bytes() []byte { return f.data }

// Text returns the payload of a length-delimited field as a string.
func (f Field) Text() string { return string(f.data) }

func (f Field) Bool() bool { return f.scalar != 0 }

func (f Field) Int32() int32 { return int32(uint32(f.scalar)) }

func (f Field) Int64() int64 { return int64(f.scalar) }

func (f Field) Sint32() int32 { return int32(protowire.DecodeZigZag(f.scalar)) }

func (f Field) Sint64() int64 { return protowire.DecodeZigZag(f.scalar) }

func (f Field) Uint32() uint32 { return uint32(f.scalar) }

func (f Field) Uint64() uint64 { return f.scalar }

func (f Field) Float() float32 { return math.Float32frombits(uint32(f.scalar)) }

func (f Field) Double() float64 { return math.Float64frombits(f.scalar) }
