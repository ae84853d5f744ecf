// Package marcxml reads MARCXML documents one record element at a time over
// the encoding/xml token stream. Text arrives from the XML layer already in
// Unicode, so no transcoding happens here, and there is no permissive mode:
// an ill-formed document is always fatal.
package marcxml

import (
	"encoding/xml"
	"io"

	"github.com/cockroachdb/errors"
)

// ErrMalformed marks XML well-formedness and MARCXML structure faults.
var ErrMalformed = errors.New("malformed MARCXML")

// ControlField is a tag/value pair without subfield structure.
type ControlField struct {
	Tag   string
	Value string
}

// DataField carries two indicators and ordered subfields.
type DataField struct {
	Tag        string
	Ind1, Ind2 byte
	Subfields  []Subfield
}

// Subfield is a one-character code plus text value.
type Subfield struct {
	Code  byte
	Value string
}

// Record is the low-level representation of one record element.
type Record struct {
	Leader        string
	ControlFields []ControlField
	DataFields    []DataField
}

// Reader pulls record elements from an XML document, wrapped in a
// collection element or not. It owns the stream exclusively and is not safe
// for concurrent use.
type Reader struct {
	d *xml.Decoder
}

// NewReader wraps r for record-at-a-time reading.
func NewReader(r io.Reader) *Reader {
	return &Reader{d: xml.NewDecoder(r)}
}

// Next returns the next record element, io.EOF after the document ends
// cleanly, or an ErrMalformed-marked error. Underlying stream errors pass
// through unchanged. Elements are matched by local name so any namespace
// prefix works.
func (r *Reader) Next() (*Record, error) {
	for {
		tok, err := r.d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, classify(err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local == "record" {
			return r.readRecord()
		}
		// collection wrappers descend, anything else skips whole
		if start.Name.Local != "collection" {
			if err := r.d.Skip(); err != nil {
				return nil, classify(err)
			}
		}
	}
}

func (r *Reader) readRecord() (*Record, error) {
	rec := &Record{}
	for {
		tok, err := r.d.Token()
		if err != nil {
			return nil, classify(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "leader":
				text, err := r.text()
				if err != nil {
					return nil, err
				}
				rec.Leader = text
			case "controlfield":
				tag, ok := attr(t, "tag")
				if !ok {
					return nil, errors.Wrap(ErrMalformed, "controlfield without tag attribute")
				}
				text, err := r.text()
				if err != nil {
					return nil, err
				}
				rec.ControlFields = append(rec.ControlFields, ControlField{Tag: tag, Value: text})
			case "datafield":
				df, err := r.readDataField(t)
				if err != nil {
					return nil, err
				}
				rec.DataFields = append(rec.DataFields, df)
			default:
				if err := r.d.Skip(); err != nil {
					return nil, classify(err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "record" {
				return rec, nil
			}
		}
	}
}

func (r *Reader) readDataField(start xml.StartElement) (DataField, error) {
	tag, ok := attr(start, "tag")
	if !ok {
		return DataField{}, errors.Wrap(ErrMalformed, "datafield without tag attribute")
	}
	df := DataField{Tag: tag, Ind1: indicator(start, "ind1"), Ind2: indicator(start, "ind2")}
	for {
		tok, err := r.d.Token()
		if err != nil {
			return DataField{}, classify(err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "subfield" {
				if err := r.d.Skip(); err != nil {
					return DataField{}, classify(err)
				}
				continue
			}
			code, ok := attr(t, "code")
			if !ok || code == "" {
				return DataField{}, errors.Wrapf(ErrMalformed, "datafield %s: subfield without code attribute", tag)
			}
			text, err := r.text()
			if err != nil {
				return DataField{}, err
			}
			df.Subfields = append(df.Subfields, Subfield{Code: code[0], Value: text})
		case xml.EndElement:
			if t.Name.Local == "datafield" {
				return df, nil
			}
		}
	}
}

// text collects the character data of the element just opened, up to its
// end tag. Child elements are a structure violation.
func (r *Reader) text() (string, error) {
	var out []byte
	for {
		tok, err := r.d.Token()
		if err != nil {
			return "", classify(err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			out = append(out, t...)
		case xml.EndElement:
			return string(out), nil
		case xml.StartElement:
			return "", errors.Wrapf(ErrMalformed, "unexpected element %s inside text content", t.Name.Local)
		}
	}
}

// classify turns tokenizer errors into structural faults while letting
// transport errors pass through unchanged. A premature end of input inside
// a record is a well-formedness violation, not a clean EOF.
func classify(err error) error {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return errors.Mark(err, ErrMalformed)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errors.Wrap(ErrMalformed, "unexpected end of document")
	}
	return err
}

func attr(e xml.StartElement, name string) (string, bool) {
	for _, a := range e.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func indicator(e xml.StartElement, name string) byte {
	v, ok := attr(e, name)
	if !ok || v == "" {
		return ' '
	}
	return v[0]
}
