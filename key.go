package protoargs

import "strconv"

// Key identifies the destination of one emitted value. Key is the full path
// including array indices ("a.b[2].c"); FlatKey is the same path with
// indices omitted ("a.b.c"), so every element of a repeated field shares one
// flat key. Both strings are owned by the Parser and mutated in place with a
// stack discipline; sinks that retain a Key must copy it.
type Key struct {
	FlatKey string
	Key     string
}

// ScopedKeyContext restores the parser's key prefix to its pre-entry state
// when Reset is called. Contexts must be released in strict LIFO order; the
// parser relies on construction discipline (defer at the entry site) rather
// than runtime checks, and releasing out of order corrupts the path.
type ScopedKeyContext struct {
	parser   *Parser
	flatLen  int
	keyLen   int
	released bool
}

// Reset truncates the key prefix back to the lengths recorded on entry.
// Calling it a second time is a no-op, so a context can be reset early and
// its slot reused for a sibling without re-entering.
func (c *ScopedKeyContext) Reset() {
	if c.released || c.parser == nil {
		return
	}
	c.parser.key.FlatKey = c.parser.key.FlatKey[:c.flatLen]
	c.parser.key.Key = c.parser.key.Key[:c.keyLen]
	c.parser.openContexts--
	c.released = true
}

// Key returns the parser's key prefix as extended by this context. Valid
// until the context is reset.
func (c *ScopedKeyContext) Key() Key { return c.parser.key }

// EnterDictionary appends ".<name>" (bare <name> at depth zero) to both the
// flat and the indexed key. Exposed so overrides can synthesize nested
// shapes of their own choosing.
func (p *Parser) EnterDictionary(name string) ScopedKeyContext {
	c := ScopedKeyContext{parser: p, flatLen: len(p.key.FlatKey), keyLen: len(p.key.Key)}
	p.openContexts++
	if len(p.key.FlatKey) > 0 {
		p.key.FlatKey += "."
	}
	p.key.FlatKey += name
	if len(p.key.Key) > 0 {
		p.key.Key += "."
	}
	p.key.Key += name
	return c
}

// EnterArray appends "[<index>]" to the indexed key only; the flat key keeps
// grouping all elements of the repeated field under one name.
func (p *Parser) EnterArray(index int) ScopedKeyContext {
	c := ScopedKeyContext{parser: p, flatLen: len(p.key.FlatKey), keyLen: len(p.key.Key)}
	p.openContexts++
	p.key.Key += "[" + strconv.Itoa(index) + "]"
	return c
}
