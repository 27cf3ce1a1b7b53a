package protoargs

import "google.golang.org/protobuf/encoding/protowire"

// FieldNumber is a protobuf field number.
type FieldNumber int32

// Kind enumerates the declared scalar kind of a schema field.
type Kind int

const (
	KindUnknown Kind = iota
	KindInt32
	KindInt64
	KindSint32
	KindSint64
	KindSfixed32
	KindSfixed64
	KindUint32
	KindUint64
	KindFixed32
	KindFixed64
	KindFloat
	KindDouble
	KindBool
	KindString
	KindBytes
	KindEnum
	KindMessage
)

// wireType returns the scalar wire type a non-packed field of this kind is
// encoded with.
func (k Kind) wireType() protowire.Type {
	switch k {
	case KindSfixed32, KindFixed32, KindFloat:
		return protowire.Fixed32Type
	case KindSfixed64, KindFixed64, KindDouble:
		return protowire.Fixed64Type
	case KindString, KindBytes, KindMessage:
		return protowire.BytesType
	default:
		return protowire.VarintType
	}
}

// packable reports whether repeated fields of this kind may arrive in packed
// encoding (one length-delimited carrier holding many elements).
func (k Kind) packable() bool {
	switch k {
	case KindString, KindBytes, KindMessage, KindUnknown:
		return false
	}
	return true
}

// FieldSchema describes one field of a message type as resolved from a
// SchemaRegistry.
type FieldSchema struct {
	Number   FieldNumber
	Name     string
	Kind     Kind
	Repeated bool
	// TypeName is the fully qualified referenced type for KindMessage and
	// KindEnum fields; empty otherwise.
	TypeName string
}

// SchemaRegistry resolves type names and field numbers to field metadata.
// Implementations must be read-only for the duration of a parse and may then
// be shared by multiple parser instances concurrently; descriptorpool.Pool
// is the descriptor-set backed implementation.
type SchemaRegistry interface {
	// HasMessage reports whether typeName names a known message type.
	HasMessage(typeName string) bool
	// FieldByNumber returns the schema entry for one field of typeName. It
	// covers native fields and registered extension fields alike; the parser
	// does not distinguish the two once resolution succeeds.
	FieldByNumber(typeName string, num FieldNumber) (FieldSchema, bool)
	// EnumValueName resolves a numeric enum value to its symbolic name.
	// Unknown values return ok=false and are not an error.
	EnumValueName(enumName string, value int64) (string, bool)
}
