// Package argsink provides ready-made protoargs.Sink implementations.
package argsink

import (
	json "github.com/goccy/go-json"

	protoargs "github.com/reoring/protoargs"
)

// Pointer marks a recorded value as an opaque identity rather than a number.
type Pointer uint64

// Entry is one recorded emission, in arrival order.
type Entry struct {
	Key   protoargs.Key
	Value any
}

// Recorder is a Sink that records every emission in order together with the
// per-array index state and an interned-message table. It is the sink to
// reach for in tests and tooling; table-writing callers implement their own.
type Recorder struct {
	Entries []Entry

	indexes  map[string]int
	interned map[internKey]protoargs.InternedMessage
}

type internKey struct {
	field protoargs.FieldNumber
	iid   uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		indexes:  map[string]int{},
		interned: map[internKey]protoargs.InternedMessage{},
	}
}

func (r *Recorder) add(k protoargs.Key, v any) {
	r.Entries = append(r.Entries, Entry{Key: k, Value: v})
}

func (r *Recorder) AddInt64(k protoargs.Key, v int64)    { r.add(k, v) }
func (r *Recorder) AddUint64(k protoargs.Key, v uint64)  { r.add(k, v) }
func (r *Recorder) AddString(k protoargs.Key, v string)  { r.add(k, v) }
func (r *Recorder) AddDouble(k protoargs.Key, v float64) { r.add(k, v) }
func (r *Recorder) AddBool(k protoargs.Key, v bool)      { r.add(k, v) }
func (r *Recorder) AddPointer(k protoargs.Key, v uint64) { r.add(k, Pointer(v)) }

// AddJSON records the value only when it is structurally valid JSON and
// reports the outcome.
func (r *Recorder) AddJSON(k protoargs.Key, v string) bool {
	if !json.Valid([]byte(v)) {
		return false
	}
	r.add(k, json.RawMessage(v))
	return true
}

func (r *Recorder) NextArrayIndex(flatKey string) int { return r.indexes[flatKey] }

func (r *Recorder) AdvanceArrayIndex(flatKey string) int {
	r.indexes[flatKey]++
	return r.indexes[flatKey]
}

// ResetArrayIndexes clears per-array numbering so the next parse starts each
// repeated field at zero again.
func (r *Recorder) ResetArrayIndexes() { clear(r.indexes) }

// Intern registers a message under (fieldID, iid) for later ResolveInterned
// lookups from overrides.
func (r *Recorder) Intern(fieldID protoargs.FieldNumber, iid uint64, msg protoargs.InternedMessage) {
	r.interned[internKey{field: fieldID, iid: iid}] = msg
}

func (r *Recorder) ResolveInterned(fieldID protoargs.FieldNumber, iid uint64) *protoargs.InternedMessage {
	if m, ok := r.interned[internKey{field: fieldID, iid: iid}]; ok {
		return &m
	}
	return nil
}

var _ protoargs.Sink = (*Recorder)(nil)
