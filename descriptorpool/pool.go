// Package descriptorpool provides a protoargs.SchemaRegistry backed by
// protobuf descriptor sets, the binary form produced by
// `protoc --descriptor_set_out`.
package descriptorpool

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"

	protoargs "github.com/reoring/protoargs"
)

// Pool resolves message, enum and extension metadata from registered file
// descriptors. All registration happens up front; during decoding the pool
// is read-only and may be shared by multiple parser instances. Fully
// qualified type names are accepted with or without a leading dot.
type Pool struct {
	protos *descriptorpb.FileDescriptorSet
	files  *protoregistry.Files

	// Extensions declared by loaded files, indexed by extendee type name,
	// rebuilt on every load.
	fileExts map[string]map[protoargs.FieldNumber]protoargs.FieldSchema
	// Extensions registered explicitly through RegisterExtension.
	manualExts map[string]map[protoargs.FieldNumber]protoargs.FieldSchema
}

func NewPool() *Pool {
	return &Pool{
		protos:     &descriptorpb.FileDescriptorSet{},
		files:      &protoregistry.Files{},
		fileExts:   map[string]map[protoargs.FieldNumber]protoargs.FieldSchema{},
		manualExts: map[string]map[protoargs.FieldNumber]protoargs.FieldSchema{},
	}
}

// AddFileDescriptorSet registers every file of a serialized
// descriptorpb.FileDescriptorSet. It may be called repeatedly; files added
// later may depend on files added earlier. Extensions declared anywhere in
// the loaded files are registered against their extendee automatically.
func (p *Pool) AddFileDescriptorSet(raw []byte) error {
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		return fmt.Errorf("descriptorpool: unmarshal descriptor set: %w", err)
	}
	return p.addFiles(fds.File...)
}

// AddFile registers an in-process file descriptor, e.g. one linked into the
// binary by generated code.
func (p *Pool) AddFile(fd protoreflect.FileDescriptor) error {
	return p.addFiles(protodesc.ToFileDescriptorProto(fd))
}

func (p *Pool) addFiles(fdps ...*descriptorpb.FileDescriptorProto) error {
	merged := &descriptorpb.FileDescriptorSet{
		File: append(append([]*descriptorpb.FileDescriptorProto{}, p.protos.File...), fdps...),
	}
	files, err := protodesc.NewFiles(merged)
	if err != nil {
		return fmt.Errorf("descriptorpool: build files: %w", err)
	}
	p.protos = merged
	p.files = files
	p.indexExtensions()
	return nil
}

// RegisterExtension binds an extension field schema to a message type before
// decoding begins. Registering the same (type, number) twice overwrites
// silently. This is the explicit, instance-scoped replacement for global
// extension registration.
func (p *Pool) RegisterExtension(messageType string, fs protoargs.FieldSchema) {
	name := strings.TrimPrefix(messageType, ".")
	m := p.manualExts[name]
	if m == nil {
		m = map[protoargs.FieldNumber]protoargs.FieldSchema{}
		p.manualExts[name] = m
	}
	m[fs.Number] = fs
}

// HasMessage implements protoargs.SchemaRegistry.
func (p *Pool) HasMessage(typeName string) bool {
	_, ok := p.message(typeName)
	return ok
}

// FieldByNumber implements protoargs.SchemaRegistry. Native fields win over
// file-declared extensions, which win over manually registered ones.
func (p *Pool) FieldByNumber(typeName string, num protoargs.FieldNumber) (protoargs.FieldSchema, bool) {
	md, ok := p.message(typeName)
	if !ok {
		return protoargs.FieldSchema{}, false
	}
	if fd := md.Fields().ByNumber(protoreflect.FieldNumber(num)); fd != nil {
		return fieldSchema(fd)
	}
	name := string(md.FullName())
	if fs, ok := p.fileExts[name][num]; ok {
		return fs, true
	}
	if fs, ok := p.manualExts[name][num]; ok {
		return fs, true
	}
	return protoargs.FieldSchema{}, false
}

// EnumValueName implements protoargs.SchemaRegistry.
func (p *Pool) EnumValueName(enumName string, value int64) (string, bool) {
	d, err := p.files.FindDescriptorByName(fullName(enumName))
	if err != nil {
		return "", false
	}
	ed, ok := d.(protoreflect.EnumDescriptor)
	if !ok {
		return "", false
	}
	vd := ed.Values().ByNumber(protoreflect.EnumNumber(int32(value)))
	if vd == nil {
		return "", false
	}
	return string(vd.Name()), true
}

func (p *Pool) message(typeName string) (protoreflect.MessageDescriptor, bool) {
	d, err := p.files.FindDescriptorByName(fullName(typeName))
	if err != nil {
		return nil, false
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	return md, ok
}

func (p *Pool) indexExtensions() {
	p.fileExts = map[string]map[protoargs.FieldNumber]protoargs.FieldSchema{}
	p.files.RangeFiles(func(fd protoreflect.FileDescriptor) bool {
		p.indexExtensionList(fd.Extensions())
		for i := 0; i < fd.Messages().Len(); i++ {
			p.indexMessageExtensions(fd.Messages().Get(i))
		}
		return true
	})
}

func (p *Pool) indexMessageExtensions(md protoreflect.MessageDescriptor) {
	p.indexExtensionList(md.Extensions())
	for i := 0; i < md.Messages().Len(); i++ {
		p.indexMessageExtensions(md.Messages().Get(i))
	}
}

func (p *Pool) indexExtensionList(xds protoreflect.ExtensionDescriptors) {
	for i := 0; i < xds.Len(); i++ {
		xd := xds.Get(i)
		fs, ok := fieldSchema(xd)
		if !ok {
			continue
		}
		extendee := string(xd.ContainingMessage().FullName())
		m := p.fileExts[extendee]
		if m == nil {
			m = map[protoargs.FieldNumber]protoargs.FieldSchema{}
			p.fileExts[extendee] = m
		}
		m[fs.Number] = fs
	}
}

func fullName(typeName string) protoreflect.FullName {
	return protoreflect.FullName(strings.TrimPrefix(typeName, "."))
}

func fieldSchema(fd protoreflect.FieldDescriptor) (protoargs.FieldSchema, bool) {
	kind, ok := kindOf(fd.Kind())
	if !ok {
		return protoargs.FieldSchema{}, false
	}
	fs := protoargs.FieldSchema{
		Number:   protoargs.FieldNumber(fd.Number()),
		Name:     string(fd.Name()),
		Kind:     kind,
		Repeated: fd.Cardinality() == protoreflect.Repeated,
	}
	switch kind {
	case protoargs.KindMessage:
		fs.TypeName = string(fd.Message().FullName())
	case protoargs.KindEnum:
		fs.TypeName = string(fd.Enum().FullName())
	}
	return fs, true
}

func kindOf(k protoreflect.Kind) (protoargs.Kind, bool) {
	switch k {
	case protoreflect.Int32Kind:
		return protoargs.KindInt32, true
	case protoreflect.Int64Kind:
		return protoargs.KindInt64, true
	case protoreflect.Sint32Kind:
		return protoargs.KindSint32, true
	case protoreflect.Sint64Kind:
		return protoargs.KindSint64, true
	case protoreflect.Sfixed32Kind:
		return protoargs.KindSfixed32, true
	case protoreflect.Sfixed64Kind:
		return protoargs.KindSfixed64, true
	case protoreflect.Uint32Kind:
		return protoargs.KindUint32, true
	case protoreflect.Uint64Kind:
		return protoargs.KindUint64, true
	case protoreflect.Fixed32Kind:
		return protoargs.KindFixed32, true
	case protoreflect.Fixed64Kind:
		return protoargs.KindFixed64, true
	case protoreflect.FloatKind:
		return protoargs.KindFloat, true
	case protoreflect.DoubleKind:
		return protoargs.KindDouble, true
	case protoreflect.BoolKind:
		return protoargs.KindBool, true
	case protoreflect.StringKind:
		return protoargs.KindString, true
	case protoreflect.BytesKind:
		return protoargs.KindBytes, true
	case protoreflect.EnumKind:
		return protoargs.KindEnum, true
	case protoreflect.MessageKind:
		return protoargs.KindMessage, true
	default:
		// Groups stay unresolved so the parser skips them.
		return protoargs.KindUnknown, false
	}
}

var _ protoargs.SchemaRegistry = (*Pool)(nil)
