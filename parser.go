package protoargs

import (
	"slices"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Override replaces default decoding of the field at one exact dotted schema
// path. It is invoked with the raw, still-encoded field and the sink, after
// the key path has been extended to the field. Returning handled=true skips
// default handling of the field entirely, including recursion into
// submessages; handled=false hands the field back to default decoding. A
// non-nil error aborts the whole parse, though values already emitted to the
// sink stand.
type Override func(f Field, sink Sink) (handled bool, err error)

// Parser decodes serialized protobuf messages into flat key/value args by
// walking the raw bytes with metadata from a SchemaRegistry.
//
// A Parser is long-lived and reusable across many ParseMessage calls, but an
// instance is not safe for concurrent use: the key prefix is mutable state
// shared by the whole call tree of one parse. Construct one parser per
// concurrent decode, or serialize calls.
type Parser struct {
	registry  SchemaRegistry
	overrides map[string]Override

	// Per-call transient state. Both must be back to empty between calls.
	key          Key
	openContexts int
}

func NewParser(registry SchemaRegistry) *Parser {
	return &Parser{registry: registry, overrides: make(map[string]Override)}
}

// RegisterOverride installs fn for the exact dotted field path ("a.b.c",
// never array-indexed — an override applies uniformly to every element of a
// repeated field). Re-registering a path overwrites silently. Not safe to
// call concurrently with an in-flight parse on the same instance.
func (p *Parser) RegisterOverride(path string, fn Override) {
	p.overrides[path] = fn
}

// ParseMessage walks every field physically present in data, in encounter
// order, resolving each field number against the registry entry for
// typeName and emitting decoded leaf values to sink. A leading dot on
// typeName is accepted.
//
// When allowedFields is non-empty, fields outside it are skipped silently.
// Field numbers absent from the schema (and not registered as extensions)
// are skipped silently as well, for forward compatibility with newer
// producers.
//
// The walk stops at the first failure and returns it; everything emitted
// before the failure has already reached the sink and remains valid.
func (p *Parser) ParseMessage(data []byte, typeName string, allowedFields []FieldNumber, sink Sink) error {
	if p.openContexts != 0 {
		panic("protoargs: key context leaked from a previous parse")
	}
	p.key = Key{}
	return p.parseMessageFields(data, typeName, allowedFields, sink)
}

// ParseNestedMessage re-runs the message walker over a submessage's bytes
// with the key path as it currently stands. It exists for overrides, e.g. to
// decode an interned payload resolved through the sink under the shape the
// override has entered. All fields are parsed; there is no allow-list for
// nested messages.
func (p *Parser) ParseNestedMessage(data []byte, typeName string, sink Sink) error {
	return p.parseMessageFields(data, typeName, nil, sink)
}

// parseMessageFields is the recursive walker. Nested messages re-enter it
// with the key prefix already extended by the caller.
func (p *Parser) parseMessageFields(data []byte, typeName string, allowed []FieldNumber, sink Sink) error {
	name := strings.TrimPrefix(typeName, ".")
	if !p.registry.HasMessage(name) {
		return failf(CodeUnknownType, p.key.Key, "unknown message type %q", typeName)
	}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return failf(CodeMalformedField, p.key.Key, "bad field tag: %v", protowire.ParseError(n))
		}
		data = data[n:]

		f := Field{Number: FieldNumber(num), Type: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(data)
			if m < 0 {
				return failf(CodeMalformedField, p.key.Key, "field %d: bad varint: %v", num, protowire.ParseError(m))
			}
			f.scalar, n = v, m
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(data)
			if m < 0 {
				return failf(CodeMalformedField, p.key.Key, "field %d: bad fixed32: %v", num, protowire.ParseError(m))
			}
			f.scalar, n = uint64(v), m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(data)
			if m < 0 {
				return failf(CodeMalformedField, p.key.Key, "field %d: bad fixed64: %v", num, protowire.ParseError(m))
			}
			f.scalar, n = v, m
		case protowire.BytesType:
			b, m := protowire.ConsumeBytes(data)
			if m < 0 {
				return failf(CodeMalformedField, p.key.Key, "field %d: bad length-delimited payload: %v", num, protowire.ParseError(m))
			}
			f.data, n = b, m
		default:
			// Groups are not resolvable through the registry; consume and
			// drop them like any other unknown field.
			m := protowire.ConsumeFieldValue(num, typ, data)
			if m < 0 {
				return failf(CodeMalformedField, p.key.Key, "field %d: bad wire type %d: %v", num, typ, protowire.ParseError(m))
			}
			data = data[m:]
			continue
		}
		data = data[n:]

		if len(allowed) > 0 && !slices.Contains(allowed, f.Number) {
			continue
		}
		entry, ok := p.registry.FieldByNumber(name, f.Number)
		if !ok {
			continue
		}
		if err := p.parseField(entry, f, sink); err != nil {
			return err
		}
	}
	return nil
}

// parseField extends the key path to one resolved field and dispatches it.
// Repeated fields additionally take an array index from the sink, so that
// "x" becomes "x[i]" in the indexed key while the flat key stays "x".
func (p *Parser) parseField(entry FieldSchema, f Field, sink Sink) error {
	dict := p.EnterDictionary(entry.Name)
	defer dict.Reset()

	if !entry.Repeated {
		return p.parseFieldValue(entry, f, sink)
	}
	if f.Type == protowire.BytesType && entry.Kind.packable() {
		return p.parsePacked(entry, f.Bytes(), sink)
	}

	flat := p.key.FlatKey
	arr := p.EnterArray(sink.NextArrayIndex(flat))
	defer arr.Reset()
	if err := p.parseFieldValue(entry, f, sink); err != nil {
		return err
	}
	sink.AdvanceArrayIndex(flat)
	return nil
}

// parsePacked unpacks a packed repeated carrier; every element goes through
// the same per-element path (own index, own contexts, override check) as a
// non-packed occurrence would.
func (p *Parser) parsePacked(entry FieldSchema, payload []byte, sink Sink) error {
	wt := entry.Kind.wireType()
	for len(payload) > 0 {
		el := Field{Number: entry.Number, Type: wt}
		var n int
		switch wt {
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(payload)
			el.scalar, n = uint64(v), m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(payload)
			el.scalar, n = v, m
		default:
			v, m := protowire.ConsumeVarint(payload)
			el.scalar, n = v, m
		}
		if n < 0 {
			return failf(CodeMalformedField, p.key.Key, "field %s: bad packed element: %v", entry.Name, protowire.ParseError(n))
		}
		payload = payload[n:]

		flat := p.key.FlatKey
		arr := p.EnterArray(sink.NextArrayIndex(flat))
		err := p.parseFieldValue(entry, el, sink)
		arr.Reset()
		if err != nil {
			return err
		}
		sink.AdvanceArrayIndex(flat)
	}
	return nil
}

// parseFieldValue runs the override check and then either recurses into a
// submessage or emits one scalar.
func (p *Parser) parseFieldValue(entry FieldSchema, f Field, sink Sink) error {
	if handled, err := p.maybeApplyOverride(f, sink); err != nil {
		return err
	} else if handled {
		return nil
	}
	if entry.Kind == KindMessage {
		if f.Type != protowire.BytesType {
			return failf(CodeMalformedField, p.key.Key, "field %s: message field with wire type %d", entry.Name, f.Type)
		}
		return p.parseMessageFields(f.Bytes(), entry.TypeName, nil, sink)
	}
	return p.parseSimpleField(entry, f, sink)
}

// maybeApplyOverride consults the override registry under the current flat
// key (the shape path, with the current field's name already appended and no
// array indices).
func (p *Parser) maybeApplyOverride(f Field, sink Sink) (bool, error) {
	fn, ok := p.overrides[p.key.FlatKey]
	if !ok {
		return false, nil
	}
	handled, err := fn(f, sink)
	if err != nil {
		if failure, ok := AsFailure(err); ok {
			return false, failure
		}
		return false, &Failure{Code: CodeOverrideFailure, Path: p.key.Key, Message: err.Error(), Cause: err}
	}
	return handled, nil
}

// parseSimpleField emits exactly one sink call for a scalar leaf.
func (p *Parser) parseSimpleField(entry FieldSchema, f Field, sink Sink) error {
	if want := entry.Kind.wireType(); f.Type != want {
		return failf(CodeMalformedField, p.key.Key, "field %s: wire type %d where %d was expected", entry.Name, f.Type, want)
	}
	switch entry.Kind {
	case KindInt32, KindSfixed32:
		sink.AddInt64(p.key, int64(f.Int32()))
	case KindInt64, KindSfixed64:
		sink.AddInt64(p.key, f.Int64())
	case KindSint32:
		sink.AddInt64(p.key, int64(f.Sint32()))
	case KindSint64:
		sink.AddInt64(p.key, f.Sint64())
	case KindUint32, KindFixed32:
		sink.AddUint64(p.key, uint64(f.Uint32()))
	case KindUint64, KindFixed64:
		sink.AddUint64(p.key, f.Uint64())
	case KindFloat:
		sink.AddDouble(p.key, float64(f.Float()))
	case KindDouble:
		sink.AddDouble(p.key, f.Double())
	case KindBool:
		sink.AddBool(p.key, f.Bool())
	case KindString:
		sink.AddString(p.key, f.Text())
	case KindEnum:
		// Unknown enum values keep their numeric form so newer producers
		// still decode.
		v := f.Int64()
		if name, ok := p.registry.EnumValueName(entry.TypeName, v); ok {
			sink.AddString(p.key, name)
		} else {
			sink.AddInt64(p.key, v)
		}
	case KindBytes:
		// TODO: support bytes fields.
		return failf(CodeUnsupportedField, p.key.Key, "bytes field %s is not supported", entry.Name)
	default:
		return failf(CodeUnsupportedField, p.key.Key, "field %s has unsupported kind %d", entry.Name, entry.Kind)
	}
	return nil
}
