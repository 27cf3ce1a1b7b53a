package descriptorpool_test

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	protoargs "github.com/reoring/protoargs"
	"github.com/reoring/protoargs/argsink"
	"github.com/reoring/protoargs/descriptorpool"
)

func field(name string, num int32, typ descriptorpb.FieldDescriptorProto_Type, label descriptorpb.FieldDescriptorProto_Label, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

// testFileDescriptorSet builds, in memory, the serialized equivalent of:
//
//	package demo;
//	enum Mode { MODE_OFF = 0; MODE_ON = 1; }
//	message Sub  { optional int32 inner = 1; }
//	message Main {
//	  optional int64  count = 1;
//	  optional string name  = 2;
//	  optional Sub    sub   = 3;
//	  optional Mode   mode  = 4;
//	  repeated int32  xs    = 5;
//	  extensions 100 to 199;
//	}
//	extend Main { optional string ext_note = 100; }
func testFileDescriptorSet(t *testing.T) []byte {
	t.Helper()
	optional := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	repeated := descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	fdp := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("demo.proto"),
		Package: proto.String("demo"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: proto.String("Sub"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("inner", 1, descriptorpb.FieldDescriptorProto_TYPE_INT32, optional, ""),
				},
			},
			{
				Name: proto.String("Main"),
				Field: []*descriptorpb.FieldDescriptorProto{
					field("count", 1, descriptorpb.FieldDescriptorProto_TYPE_INT64, optional, ""),
					field("name", 2, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional, ""),
					field("sub", 3, descriptorpb.FieldDescriptorProto_TYPE_MESSAGE, optional, ".demo.Sub"),
					field("mode", 4, descriptorpb.FieldDescriptorProto_TYPE_ENUM, optional, ".demo.Mode"),
					field("xs", 5, descriptorpb.FieldDescriptorProto_TYPE_INT32, repeated, ""),
				},
				ExtensionRange: []*descriptorpb.DescriptorProto_ExtensionRange{
					{Start: proto.Int32(100), End: proto.Int32(200)},
				},
			},
		},
		EnumType: []*descriptorpb.EnumDescriptorProto{
			{
				Name: proto.String("Mode"),
				Value: []*descriptorpb.EnumValueDescriptorProto{
					{Name: proto.String("MODE_OFF"), Number: proto.Int32(0)},
					{Name: proto.String("MODE_ON"), Number: proto.Int32(1)},
				},
			},
		},
		Extension: []*descriptorpb.FieldDescriptorProto{
			func() *descriptorpb.FieldDescriptorProto {
				f := field("ext_note", 100, descriptorpb.FieldDescriptorProto_TYPE_STRING, optional, "")
				f.Extendee = proto.String(".demo.Main")
				return f
			}(),
		},
	}
	raw, err := proto.Marshal(&descriptorpb.FileDescriptorSet{File: []*descriptorpb.FileDescriptorProto{fdp}})
	if err != nil {
		t.Fatalf("marshal descriptor set: %v", err)
	}
	return raw
}

func newTestPool(t *testing.T) *descriptorpool.Pool {
	t.Helper()
	pool := descriptorpool.NewPool()
	if err := pool.AddFileDescriptorSet(testFileDescriptorSet(t)); err != nil {
		t.Fatalf("AddFileDescriptorSet: %v", err)
	}
	return pool
}

func TestPool_ResolvesFields(t *testing.T) {
	pool := newTestPool(t)

	if !pool.HasMessage("demo.Main") || !pool.HasMessage(".demo.Main") {
		t.Fatalf("demo.Main must resolve with and without a leading dot")
	}
	if pool.HasMessage("demo.Nope") {
		t.Fatalf("demo.Nope must not resolve")
	}

	fs, ok := pool.FieldByNumber("demo.Main", 1)
	if !ok || fs.Name != "count" || fs.Kind != protoargs.KindInt64 || fs.Repeated {
		t.Fatalf("field 1: got %+v", fs)
	}
	fs, ok = pool.FieldByNumber("demo.Main", 3)
	if !ok || fs.Kind != protoargs.KindMessage || fs.TypeName != "demo.Sub" {
		t.Fatalf("field 3: got %+v", fs)
	}
	fs, ok = pool.FieldByNumber("demo.Main", 4)
	if !ok || fs.Kind != protoargs.KindEnum || fs.TypeName != "demo.Mode" {
		t.Fatalf("field 4: got %+v", fs)
	}
	fs, ok = pool.FieldByNumber("demo.Main", 5)
	if !ok || !fs.Repeated || fs.Kind != protoargs.KindInt32 {
		t.Fatalf("field 5: got %+v", fs)
	}
	if _, ok := pool.FieldByNumber("demo.Main", 9); ok {
		t.Fatalf("field 9 must not resolve")
	}
}

func TestPool_EnumValueName(t *testing.T) {
	pool := newTestPool(t)
	name, ok := pool.EnumValueName("demo.Mode", 1)
	if !ok || name != "MODE_ON" {
		t.Fatalf("got (%q, %v), want (MODE_ON, true)", name, ok)
	}
	if _, ok := pool.EnumValueName("demo.Mode", 99); ok {
		t.Fatalf("unknown enum value must not resolve")
	}
	if _, ok := pool.EnumValueName("demo.Nope", 0); ok {
		t.Fatalf("unknown enum type must not resolve")
	}
}

func TestPool_FileDeclaredExtension(t *testing.T) {
	pool := newTestPool(t)
	fs, ok := pool.FieldByNumber("demo.Main", 100)
	if !ok || fs.Name != "ext_note" || fs.Kind != protoargs.KindString {
		t.Fatalf("extension 100: got %+v ok=%v", fs, ok)
	}
}

func TestPool_RegisterExtension(t *testing.T) {
	pool := newTestPool(t)
	pool.RegisterExtension(".demo.Main", protoargs.FieldSchema{
		Number: 150, Name: "runtime_ext", Kind: protoargs.KindUint64,
	})
	fs, ok := pool.FieldByNumber("demo.Main", 150)
	if !ok || fs.Name != "runtime_ext" || fs.Kind != protoargs.KindUint64 {
		t.Fatalf("registered extension: got %+v ok=%v", fs, ok)
	}
}

// Extension fields decode exactly like native fields once resolved.
func TestPool_ParseWithExtensionField(t *testing.T) {
	pool := newTestPool(t)
	var raw []byte
	raw = protowire.AppendTag(raw, 100, protowire.BytesType)
	raw = protowire.AppendString(raw, "extended")

	sink := argsink.NewRecorder()
	p := protoargs.NewParser(pool)
	if err := p.ParseMessage(raw, "demo.Main", nil, sink); err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if len(sink.Entries) != 1 || sink.Entries[0].Key.Key != "ext_note" || sink.Entries[0].Value != "extended" {
		t.Fatalf("got %v, want ext_note=extended", sink.Entries)
	}
}

func TestPool_EndToEndWithDynamicMessage(t *testing.T) {
	raw := testFileDescriptorSet(t)
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		t.Fatalf("unmarshal descriptor set: %v", err)
	}
	files, err := protodesc.NewFiles(&fds)
	if err != nil {
		t.Fatalf("protodesc.NewFiles: %v", err)
	}
	d, err := files.FindDescriptorByName("demo.Main")
	if err != nil {
		t.Fatalf("find demo.Main: %v", err)
	}
	mainMD := d.(protoreflect.MessageDescriptor)

	msg := dynamicpb.NewMessage(mainMD)
	fields := mainMD.Fields()
	msg.Set(fields.ByNumber(1), protoreflect.ValueOfInt64(3))
	msg.Set(fields.ByNumber(2), protoreflect.ValueOfString("dyn"))
	sub := dynamicpb.NewMessage(fields.ByNumber(3).Message())
	sub.Set(fields.ByNumber(3).Message().Fields().ByNumber(1), protoreflect.ValueOfInt32(9))
	msg.Set(fields.ByNumber(3), protoreflect.ValueOfMessage(sub))
	msg.Set(fields.ByNumber(4), protoreflect.ValueOfEnum(1))
	xs := msg.Mutable(fields.ByNumber(5)).List()
	xs.Append(protoreflect.ValueOfInt32(1))
	xs.Append(protoreflect.ValueOfInt32(2))

	wire, err := proto.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal dynamic message: %v", err)
	}

	pool := newTestPool(t)
	sink := argsink.NewRecorder()
	p := protoargs.NewParser(pool)
	if err := p.ParseMessage(wire, "demo.Main", nil, sink); err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}

	got := map[string]any{}
	for _, e := range sink.Entries {
		got[e.Key.Key] = e.Value
	}
	want := map[string]any{
		"count":     int64(3),
		"name":      "dyn",
		"sub.inner": int64(9),
		"mode":      "MODE_ON",
		"xs[0]":     int64(1),
		"xs[1]":     int64(2),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v\nwant %v", got, want)
	}
}

func TestPool_AddFile(t *testing.T) {
	raw := testFileDescriptorSet(t)
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(raw, &fds); err != nil {
		t.Fatalf("unmarshal descriptor set: %v", err)
	}
	files, err := protodesc.NewFiles(&fds)
	if err != nil {
		t.Fatalf("protodesc.NewFiles: %v", err)
	}
	var fd protoreflect.FileDescriptor
	files.RangeFiles(func(f protoreflect.FileDescriptor) bool {
		fd = f
		return false
	})

	pool := descriptorpool.NewPool()
	if err := pool.AddFile(fd); err != nil {
		t.Fatalf("AddFile: %v", err)
	}
	if !pool.HasMessage("demo.Main") {
		t.Fatalf("demo.Main must resolve after AddFile")
	}
}
