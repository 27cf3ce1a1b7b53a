package protoargs

// InternedMessage is an opaque view of a message that was registered under a
// small integer id elsewhere in the same data stream. Decoding is left to
// the caller, typically by handing Data back to Parser.ParseMessage.
type InternedMessage struct {
	TypeName string
	Data     []byte
}

// Sink consumes the key/value pairs emitted during a parse and owns the
// per-array bookkeeping that keeps repeated-field indices monotonic across
// ParseMessage calls. Implementations are caller-owned; the parser calls a
// sink only from the decoding goroutine and places no other threading
// requirement on it.
type Sink interface {
	AddInt64(key Key, value int64)
	AddUint64(key Key, value uint64)
	AddString(key Key, value string)
	AddDouble(key Key, value float64)
	AddBool(key Key, value bool)
	// AddPointer records an opaque identity value.
	AddPointer(key Key, value uint64)
	// AddJSON records a JSON text value and reports whether it was
	// structurally accepted.
	AddJSON(key Key, value string) bool

	// NextArrayIndex returns the index the next element of the repeated
	// field identified by flatKey will take. The counter is persistent, so
	// later parses appending to the same logical array continue numbering
	// rather than restarting.
	NextArrayIndex(flatKey string) int
	// AdvanceArrayIndex consumes one index for flatKey and returns the new
	// next index. The parser calls it once per successfully decoded element.
	AdvanceArrayIndex(flatKey string) int

	// ResolveInterned returns the message registered under (fieldID, iid),
	// or nil when absent. Meant to be called from overrides, for field ids
	// that carry interned data.
	ResolveInterned(fieldID FieldNumber, iid uint64) *InternedMessage
}
