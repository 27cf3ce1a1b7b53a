package main

import (
	"flag"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	protoargs "github.com/reoring/protoargs"
	"github.com/reoring/protoargs/argsink"
	"github.com/reoring/protoargs/descriptorpool"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "decode":
		decodeCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "protoargs CLI\n\nUsage:\n  protoargs decode -descriptor set.binpb -type pkg.Message -in msg.bin [-config cfg.yaml] [-format text|json]\n\nNotes:\n  - Decoding is best effort: args decoded before a failure are still printed.")
}

// config mirrors the decode flags so invocations can be kept in a file.
// Flags win over config values.
type config struct {
	Descriptor    string  `yaml:"descriptor"`
	Type          string  `yaml:"type"`
	AllowedFields []int32 `yaml:"allowed_fields"`
}

func decodeCmd(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var descriptor, typeName, in, cfgPath, format string
	fs.StringVar(&descriptor, "descriptor", "", "binary FileDescriptorSet path")
	fs.StringVar(&typeName, "type", "", "fully qualified message type name")
	fs.StringVar(&in, "in", "", "serialized message path")
	fs.StringVar(&cfgPath, "config", "", "optional YAML config path")
	fs.StringVar(&format, "format", "text", "output format: text or json")
	_ = fs.Parse(args)

	var cfg config
	if cfgPath != "" {
		raw, err := os.ReadFile(cfgPath)
		if err != nil {
			fatal(err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			fatal(fmt.Errorf("config: %w", err))
		}
	}
	if descriptor == "" {
		descriptor = cfg.Descriptor
	}
	if typeName == "" {
		typeName = cfg.Type
	}
	if descriptor == "" || typeName == "" || in == "" {
		fs.Usage()
		os.Exit(2)
	}

	pool := descriptorpool.NewPool()
	rawSet, err := os.ReadFile(descriptor)
	if err != nil {
		fatal(err)
	}
	if err := pool.AddFileDescriptorSet(rawSet); err != nil {
		fatal(err)
	}
	msg, err := os.ReadFile(in)
	if err != nil {
		fatal(err)
	}

	var allowed []protoargs.FieldNumber
	for _, n := range cfg.AllowedFields {
		allowed = append(allowed, protoargs.FieldNumber(n))
	}

	sink := argsink.NewRecorder()
	parser := protoargs.NewParser(pool)
	perr := parser.ParseMessage(msg, typeName, allowed, sink)

	switch format {
	case "json":
		type arg struct {
			Key     string `json:"key"`
			FlatKey string `json:"flat_key"`
			Value   any    `json:"value"`
		}
		out := make([]arg, 0, len(sink.Entries))
		for _, e := range sink.Entries {
			out = append(out, arg{Key: e.Key.Key, FlatKey: e.Key.FlatKey, Value: e.Value})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatal(err)
		}
	default:
		for _, e := range sink.Entries {
			fmt.Printf("%s=%v\n", e.Key.Key, e.Value)
		}
	}
	if perr != nil {
		fmt.Fprintln(os.Stderr, "decode failed:", perr)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
