// Package protoargs turns an arbitrary serialized protobuf message into a
// flat set of key/value "args" by walking the raw wire bytes with schema
// metadata, no generated per-message code required.
//
// It provides:
//
//   - A reusable Parser that walks nested messages, repeated fields and
//     registered extension fields, emitting each leaf value to a caller
//     supplied Sink as it is decoded
//   - A stable key model: Key carries the full indexed path ("a.b[2].c"),
//     FlatKey the same path without indices ("a.b.c"), grouping all elements
//     of one repeated field under one shape
//   - Per-path overrides so callers can replace default decoding of a single
//     field or submessage while sibling fields keep default handling
//   - A best-effort contract: decoding stops at the first failure, but every
//     value emitted before it remains valid at the sink
//
// Design policy:
//   - Keep only public APIs in the root package; concrete collaborators live
//     in subpackages (descriptorpool for the schema registry, argsink for
//     ready-made sinks) and the CLI under cmd/protoargs.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	pool := descriptorpool.NewPool()
//	_ = pool.AddFileDescriptorSet(descriptorSetBytes)
//	parser := protoargs.NewParser(pool)
//	sink := argsink.NewRecorder()
//	err := parser.ParseMessage(raw, "my.pkg.MainMessage", nil, sink)
package protoargs
