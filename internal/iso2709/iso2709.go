// Package iso2709 reads MARC binary records: a 24-byte leader, a directory
// of fixed-width (tag, length, offset) entries, and a data area of
// terminator-delimited variable fields. Field bytes are handed out still in
// their source encoding; transcoding happens in the layer above.
package iso2709

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cockroachdb/errors"
)

const (
	LeaderLen = 24

	dirEntryLen      = 12
	recordTerminator = 0x1D
	fieldTerminator  = 0x1E
	subfieldDelim    = 0x1F

	// Smallest conceivable record: leader, directory terminator, record
	// terminator.
	minRecordLen = LeaderLen + 2
)

// Mode selects how structural anomalies are handled.
type Mode int

const (
	// Strict faults on any leader, directory, or terminator inconsistency.
	Strict Mode = iota
	// Permissive corrects bounded anomalies: record lengths are re-derived
	// from the record terminator, fields missing their terminator are re-cut
	// at the nearest one, and a missing final record terminator at end of
	// stream is tolerated. Anomalies that cannot be re-derived from the
	// bytes remain fatal.
	Permissive
)

// ErrStructure marks all structural decode faults.
var ErrStructure = errors.New("malformed record structure")

// DirEntry is one directory row: where a field's bytes live in the data
// area. Length includes the field terminator.
type DirEntry struct {
	Tag    string
	Length int
	Start  int
}

// Field is one variable field as cut from the data area, field terminator
// stripped, bytes still in the source encoding.
type Field struct {
	Tag string
	Raw []byte
}

// Subfield is a code/value pair cut from a data field. The value is still
// in the source encoding.
type Subfield struct {
	Code  byte
	Value []byte
}

// Record is the low-level representation of one binary record.
type Record struct {
	Leader  [LeaderLen]byte
	Entries []DirEntry
	Fields  []Field
}

// ParseData splits a data field's raw bytes into its two indicators and its
// ordered subfields. In strict mode the payload must be exactly two
// indicator bytes followed by delimiter-prefixed subfields; permissive mode
// pads short payloads with blank indicators and drops stray bytes between
// the indicators and the first delimiter.
func (f Field) ParseData(mode Mode) ([2]byte, []Subfield, error) {
	ind := [2]byte{' ', ' '}
	raw := f.Raw
	if len(raw) < 2 {
		if mode == Strict {
			return ind, nil, errors.Wrapf(ErrStructure, "field %s: %d bytes, need two indicators", f.Tag, len(raw))
		}
		copy(ind[:], raw)
		return ind, nil, nil
	}
	ind[0], ind[1] = raw[0], raw[1]
	rest := raw[2:]
	if len(rest) == 0 {
		return ind, nil, nil
	}
	if rest[0] != subfieldDelim {
		if mode == Strict {
			return ind, nil, errors.Wrapf(ErrStructure, "field %s: expected subfield delimiter after indicators, got 0x%02X", f.Tag, rest[0])
		}
		i := bytes.IndexByte(rest, subfieldDelim)
		if i < 0 {
			return ind, nil, nil
		}
		rest = rest[i:]
	}
	var subs []Subfield
	for _, chunk := range bytes.Split(rest[1:], []byte{subfieldDelim}) {
		if len(chunk) == 0 {
			if mode == Strict {
				return ind, nil, errors.Wrapf(ErrStructure, "field %s: subfield without code", f.Tag)
			}
			continue
		}
		subs = append(subs, Subfield{Code: chunk[0], Value: chunk[1:]})
	}
	return ind, subs, nil
}

// Scanner reads consecutive binary records from a byte stream. It owns the
// stream exclusively and is not safe for concurrent use.
type Scanner struct {
	r    *bufio.Reader
	mode Mode
}

// NewScanner wraps r for record-at-a-time reading in the given mode.
func NewScanner(r io.Reader, mode Mode) *Scanner {
	return &Scanner{r: bufio.NewReader(r), mode: mode}
}

// Next reads and parses one record. It returns io.EOF at a clean end of
// stream, underlying stream errors unchanged, and ErrStructure-marked
// errors for structural faults. On a structural fault the partially parsed
// record is returned alongside the error so the caller can pull diagnostics
// from it.
func (s *Scanner) Next() (*Record, error) {
	if s.mode == Permissive {
		if err := s.skipPadding(); err != nil {
			return nil, err
		}
	}
	buf, err := s.frame()
	if err != nil {
		return nil, err
	}
	return parse(buf, s.mode)
}

// skipPadding discards the NUL, SUB, and line-break bytes some MARC dumps
// leave between records.
func (s *Scanner) skipPadding() error {
	for {
		c, err := s.r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch c {
		case 0x00, 0x1A, '\r', '\n':
			continue
		default:
			return s.r.UnreadByte()
		}
	}
}

// frame cuts the next record's bytes out of the stream, leader included.
// Strict mode trusts the leader's declared record length and demands the
// record terminator at its end; permissive mode scans to the terminator,
// which re-derives inconsistent declared lengths from the bytes actually
// present.
func (s *Scanner) frame() ([]byte, error) {
	leader := make([]byte, LeaderLen)
	n, err := io.ReadFull(s.r, leader)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrapf(ErrStructure, "truncated leader: %d of %d bytes", n, LeaderLen)
		}
		return nil, err
	}

	if s.mode == Permissive {
		body, err := s.r.ReadBytes(recordTerminator)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		// A partial body at EOF is kept: the missing final terminator is a
		// tolerated anomaly.
		return append(leader, body...), nil
	}

	recLen, ok := atoi(leader[0:5])
	if !ok {
		return nil, errors.Wrapf(ErrStructure, "leader record length %q is not numeric", leader[0:5])
	}
	if recLen < minRecordLen {
		return nil, errors.Wrapf(ErrStructure, "declared record length %d below minimum %d", recLen, minRecordLen)
	}
	body := make([]byte, recLen-LeaderLen)
	if _, err := io.ReadFull(s.r, body); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrapf(ErrStructure, "record truncated: declared length %d exceeds stream", recLen)
		}
		return nil, err
	}
	if body[len(body)-1] != recordTerminator {
		return nil, errors.Wrapf(ErrStructure, "no record terminator at declared length %d", recLen)
	}
	return append(leader, body...), nil
}

// parse decodes leader, directory, and fields from one framed record.
func parse(buf []byte, mode Mode) (*Record, error) {
	rec := &Record{}
	copy(rec.Leader[:], buf)

	base, err := baseAddress(buf, mode)
	if err != nil {
		return rec, err
	}

	dir := buf[LeaderLen : base-1]
	if len(dir)%dirEntryLen != 0 {
		return rec, errors.Wrapf(ErrStructure, "directory length %d is not a multiple of %d", len(dir), dirEntryLen)
	}

	data := buf[base:]
	if n := len(data); n > 0 && data[n-1] == recordTerminator {
		data = data[:n-1]
	} else if mode == Strict {
		return rec, errors.Wrap(ErrStructure, "missing record terminator")
	}

	declared := 0
	for off := 0; off < len(dir); off += dirEntryLen {
		e := dir[off : off+dirEntryLen]
		entry := DirEntry{Tag: string(e[0:3])}
		var ok bool
		if entry.Length, ok = atoi(e[3:7]); !ok {
			return rec, errors.Wrapf(ErrStructure, "directory entry %s: field length %q is not numeric", entry.Tag, e[3:7])
		}
		if entry.Start, ok = atoi(e[7:12]); !ok {
			return rec, errors.Wrapf(ErrStructure, "directory entry %s: field offset %q is not numeric", entry.Tag, e[7:12])
		}
		rec.Entries = append(rec.Entries, entry)
		declared += entry.Length

		raw, err := cutField(data, entry, mode)
		if err != nil {
			return rec, err
		}
		rec.Fields = append(rec.Fields, Field{Tag: entry.Tag, Raw: raw})
	}

	if mode == Strict && declared != len(data) {
		return rec, errors.Wrapf(ErrStructure, "directory declares %d data bytes, record carries %d", declared, len(data))
	}
	return rec, nil
}

// baseAddress returns the data-area offset from leader positions 12-16. In
// permissive mode an unusable declared base is re-derived from the position
// of the directory's field terminator; a record where neither works has no
// locatable directory and is fatal in both modes.
func baseAddress(buf []byte, mode Mode) (int, error) {
	base, ok := atoi(buf[12:17])
	if ok && base > LeaderLen && base <= len(buf) && buf[base-1] == fieldTerminator {
		return base, nil
	}
	if mode == Strict {
		if !ok {
			return 0, errors.Wrapf(ErrStructure, "leader base address %q is not numeric", buf[12:17])
		}
		if base <= LeaderLen || base > len(buf) {
			return 0, errors.Wrapf(ErrStructure, "base address %d outside record of %d bytes", base, len(buf))
		}
		return 0, errors.Wrapf(ErrStructure, "no directory terminator at base address %d", base)
	}
	i := bytes.IndexByte(buf[LeaderLen:], fieldTerminator)
	if i < 0 {
		return 0, errors.Wrap(ErrStructure, "cannot locate directory terminator")
	}
	return LeaderLen + i + 1, nil
}

// cutField slices one field out of the data area. Strict mode demands the
// declared extent end in a field terminator; permissive mode re-cuts at the
// nearest terminator, or end of data when none remains.
func cutField(data []byte, e DirEntry, mode Mode) ([]byte, error) {
	if e.Start < 0 || e.Start >= len(data) {
		return nil, errors.Wrapf(ErrStructure, "field %s: offset %d outside data area of %d bytes", e.Tag, e.Start, len(data))
	}
	end := e.Start + e.Length
	if mode == Strict {
		if end > len(data) {
			return nil, errors.Wrapf(ErrStructure, "field %s: extent %d..%d overruns data area of %d bytes", e.Tag, e.Start, end, len(data))
		}
		if e.Length < 1 || data[end-1] != fieldTerminator {
			return nil, errors.Wrapf(ErrStructure, "field %s: missing field terminator", e.Tag)
		}
		return data[e.Start : end-1], nil
	}
	if end > len(data) || e.Length < 1 || data[end-1] != fieldTerminator {
		if i := bytes.IndexByte(data[e.Start:], fieldTerminator); i >= 0 {
			return data[e.Start : e.Start+i], nil
		}
		return data[e.Start:], nil
	}
	return data[e.Start : end-1], nil
}

// atoi parses a fixed-width ASCII decimal. MARC pads these with zeros, so
// only digits are accepted.
func atoi(b []byte) (int, bool) {
	v := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
	}
	return v, true
}
