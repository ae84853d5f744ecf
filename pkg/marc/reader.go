// Package marc decodes bibliographic records from MARC binary (ISO 2709)
// or MARCXML byte streams into one normalized record model, transcoding
// all text to UTF-8.
package marc

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/trln/gomarc/internal/charenc"
	"github.com/trln/gomarc/internal/iso2709"
	"github.com/trln/gomarc/internal/marcxml"
)

// Reader yields records from a byte stream one at a time. It is a lazy,
// finite, single-pass sequence: the underlying stream cannot be re-read
// once consumed. The Reader takes exclusive ownership of the stream at
// construction; using one Reader from multiple goroutines is unsupported.
type Reader struct {
	bin    *iso2709.Scanner
	xml    *marcxml.Reader
	scheme charenc.Scheme
	mode   iso2709.Mode
	retain bool
	err    error
}

// NewReader constructs a Reader over r per opts. An unrecognized format or
// encoding fails here, before any byte is read.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	scheme, err := opts.scheme()
	if err != nil {
		return nil, err
	}
	rd := &Reader{scheme: scheme, mode: opts.mode(), retain: opts.RetainRaw}
	switch opts.Format {
	case FormatBinary:
		rd.bin = iso2709.NewScanner(r, rd.mode)
	case FormatXML:
		rd.xml = marcxml.NewReader(r)
	case "":
		return nil, errors.Wrap(ErrConfiguration, "source format not set")
	default:
		return nil, errors.Wrapf(ErrConfiguration, "unknown source format %q", opts.Format)
	}
	return rd, nil
}

// Next blocks until one full record has been read and decoded and returns
// it, or returns io.EOF once the stream is exhausted. Any other error is
// fatal: the Reader is poisoned and every later call returns the same
// error. There is no skipping past a fatally malformed record.
func (r *Reader) Next() (*Record, error) {
	if r.err != nil {
		return nil, r.err
	}
	var rec *Record
	var err error
	if r.bin != nil {
		rec, err = r.nextBinary()
	} else {
		rec, err = r.nextXML()
	}
	if err != nil {
		r.err = err
		return nil, err
	}
	return rec, nil
}

// IsStructural reports whether err is a structural decode fault (binary
// leader/directory/terminator violation or XML well-formedness violation),
// as opposed to a configuration or transport error.
func IsStructural(err error) bool {
	return errors.Is(err, iso2709.ErrStructure) || errors.Is(err, marcxml.ErrMalformed)
}

func (r *Reader) nextBinary() (*Record, error) {
	raw, err := r.bin.Next()
	if err != nil {
		return nil, identify(raw, err)
	}
	fields := make([][]byte, len(raw.Fields))
	for i, f := range raw.Fields {
		fields[i] = f.Raw
	}
	dec := r.scheme.DecoderFor(raw.Leader[:], fields)

	rec := &Record{Leader: charenc.DecodeUTF8(raw.Leader[:])}
	for _, f := range raw.Fields {
		if isControlTag(f.Tag) {
			rec.ControlFields = append(rec.ControlFields, ControlField{Tag: f.Tag, Value: dec(f.Raw)})
			continue
		}
		ind, subs, err := f.ParseData(r.mode)
		if err != nil {
			return nil, identify(raw, err)
		}
		df := DataField{Tag: f.Tag, Ind1: ind[0], Ind2: ind[1]}
		for _, s := range subs {
			df.Subfields = append(df.Subfields, Subfield{Code: s.Code, Value: dec(s.Value)})
		}
		rec.DataFields = append(rec.DataFields, df)
	}
	if r.retain {
		rec.Raw = raw
	}
	return rec, nil
}

func (r *Reader) nextXML() (*Record, error) {
	raw, err := r.xml.Next()
	if err != nil {
		return nil, err
	}
	rec := &Record{Leader: raw.Leader}
	for _, f := range raw.ControlFields {
		rec.ControlFields = append(rec.ControlFields, ControlField{Tag: f.Tag, Value: f.Value})
	}
	for _, f := range raw.DataFields {
		df := DataField{Tag: f.Tag, Ind1: f.Ind1, Ind2: f.Ind2}
		for _, s := range f.Subfields {
			df.Subfields = append(df.Subfields, Subfield{Code: s.Code, Value: s.Value})
		}
		rec.DataFields = append(rec.DataFields, df)
	}
	if r.retain {
		rec.Raw = raw
	}
	return rec, nil
}

// identify annotates a structural fault with the 001 control number when
// the partially parsed record got far enough to carry one.
func identify(raw *iso2709.Record, err error) error {
	if raw == nil || !errors.Is(err, iso2709.ErrStructure) {
		return err
	}
	for _, f := range raw.Fields {
		if f.Tag == "001" {
			if id := strings.TrimRight(charenc.DecodeUTF8(f.Raw), " "); id != "" {
				return errors.Wrapf(err, "record %s", id)
			}
			break
		}
	}
	return err
}

func isControlTag(tag string) bool {
	return strings.HasPrefix(tag, "00")
}
