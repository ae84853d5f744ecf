// Package testutil builds ISO 2709 byte streams for tests.
package testutil

import (
	"bytes"
	"fmt"
)

const (
	recordTerminator = 0x1D
	fieldTerminator  = 0x1E
	subfieldDelim    = 0x1F
)

// RecordBuilder assembles one well-formed binary record. Tests damage the
// produced bytes directly when they need a malformed one.
type RecordBuilder struct {
	encodingFlag byte
	fields       []builtField
}

type builtField struct {
	tag  string
	data []byte
}

// NewRecord returns a builder with a blank leader encoding flag (MARC-8).
func NewRecord() *RecordBuilder {
	return &RecordBuilder{encodingFlag: ' '}
}

// EncodingFlag sets leader position 9 ('a' marks Unicode).
func (b *RecordBuilder) EncodingFlag(c byte) *RecordBuilder {
	b.encodingFlag = c
	return b
}

// Control appends a control field. The value may carry arbitrary encoded
// bytes.
func (b *RecordBuilder) Control(tag, value string) *RecordBuilder {
	b.fields = append(b.fields, builtField{tag: tag, data: append([]byte(value), fieldTerminator)})
	return b
}

// Data appends a data field. Pairs alternate subfield code and value, so
// Data("245", '1', '0', "a", "Title") yields one $a subfield.
func (b *RecordBuilder) Data(tag string, ind1, ind2 byte, pairs ...string) *RecordBuilder {
	if len(pairs)%2 != 0 {
		panic("testutil: Data wants code/value pairs")
	}
	data := []byte{ind1, ind2}
	for i := 0; i < len(pairs); i += 2 {
		data = append(data, subfieldDelim)
		data = append(data, pairs[i]...)
		data = append(data, pairs[i+1]...)
	}
	data = append(data, fieldTerminator)
	b.fields = append(b.fields, builtField{tag: tag, data: data})
	return b
}

// Bytes assembles leader, directory, and data area.
func (b *RecordBuilder) Bytes() []byte {
	var dir, data bytes.Buffer
	for _, f := range b.fields {
		fmt.Fprintf(&dir, "%3s%04d%05d", f.tag, len(f.data), data.Len())
		data.Write(f.data)
	}
	dir.WriteByte(fieldTerminator)

	base := 24 + dir.Len()
	total := base + data.Len() + 1

	var out bytes.Buffer
	fmt.Fprintf(&out, "%05dnam ", total)
	out.WriteByte(b.encodingFlag)
	fmt.Fprintf(&out, "22%05d", base)
	out.WriteString(" a 4500")
	out.Write(dir.Bytes())
	out.Write(data.Bytes())
	out.WriteByte(recordTerminator)
	return out.Bytes()
}

// Stream concatenates prebuilt records into one byte stream.
func Stream(records ...[]byte) []byte {
	var out bytes.Buffer
	for _, r := range records {
		out.Write(r)
	}
	return out.Bytes()
}
