package charenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding/charmap"
)

// Scheme identifies a source character encoding for binary records.
type Scheme int

const (
	// BestGuess inspects each record and picks one of the concrete schemes.
	BestGuess Scheme = iota
	Latin1
	UTF8
	MARC8
)

// ErrUnknownEncoding reports an encoding name outside the recognized set.
var ErrUnknownEncoding = errors.New("unrecognized source encoding")

// Resolve maps a configured encoding name to a Scheme. An empty name
// resolves to BestGuess. Names are matched case-insensitively against the
// common spellings of each encoding.
func Resolve(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "best-guess", "bestguess", "guess":
		return BestGuess, nil
	case "latin1", "latin-1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	case "utf8", "utf-8", "unicode":
		return UTF8, nil
	case "marc8", "marc-8", "ansel":
		return MARC8, nil
	default:
		return 0, errors.Wrapf(ErrUnknownEncoding, "%q", name)
	}
}

// String returns the canonical name of the scheme.
func (s Scheme) String() string {
	switch s {
	case Latin1:
		return "latin1"
	case UTF8:
		return "utf-8"
	case MARC8:
		return "marc8"
	default:
		return "best-guess"
	}
}

// Decoder converts raw field bytes into UTF-8 text. The result is always
// valid UTF-8; undecodable units come out as U+FFFD.
type Decoder func([]byte) string

// DecoderFor returns the decoder to use for one record. Fixed schemes ignore
// the arguments. BestGuess inspects the leader's character coding flag
// (position 9, 'a' means Unicode) and the record's field bytes: an escape
// byte selects MARC-8, otherwise valid UTF-8 stays UTF-8 and anything else
// falls back to Latin-1. The choice is made per record, never cached across
// records, since degenerate streams mix encodings.
func (s Scheme) DecoderFor(leader []byte, fields [][]byte) Decoder {
	switch s {
	case Latin1:
		return DecodeLatin1
	case UTF8:
		return DecodeUTF8
	case MARC8:
		return DecodeMARC8
	default:
		return guess(leader, fields)
	}
}

func guess(leader []byte, fields [][]byte) Decoder {
	if len(leader) > 9 && leader[9] == 'a' {
		return DecodeUTF8
	}
	sawHigh := false
	for _, f := range fields {
		if bytes.IndexByte(f, esc) >= 0 {
			return DecodeMARC8
		}
		if !sawHigh {
			for _, c := range f {
				if c >= 0x80 {
					sawHigh = true
					break
				}
			}
		}
	}
	if !sawHigh {
		return DecodeUTF8
	}
	for _, f := range fields {
		if !utf8.Valid(f) {
			return DecodeLatin1
		}
	}
	return DecodeUTF8
}

// DecodeUTF8 passes bytes through, replacing invalid sequences.
func DecodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

// DecodeLatin1 transcodes ISO 8859-1 bytes. Every byte value maps, so this
// cannot fail.
func DecodeLatin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return DecodeUTF8(b)
	}
	return string(out)
}
