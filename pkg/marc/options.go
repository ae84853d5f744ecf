package marc

import (
	"github.com/cockroachdb/errors"

	"github.com/trln/gomarc/internal/charenc"
	"github.com/trln/gomarc/internal/iso2709"
)

// Source format selectors. Format is explicit configuration; content is
// never sniffed.
const (
	FormatBinary = "binary"
	FormatXML    = "xml"
)

// ErrConfiguration reports an unusable option combination, raised before
// any record is read.
var ErrConfiguration = errors.New("invalid reader configuration")

// Options configures a Reader.
type Options struct {
	// Format selects the wire serialization: FormatBinary or FormatXML.
	Format string
	// Encoding names the source character encoding of binary records:
	// "best-guess" (the default when empty), "latin1", "utf-8", or "marc8",
	// with common synonyms accepted. XML input is always Unicode, so for
	// FormatXML anything but empty or a utf-8 synonym is rejected.
	Encoding string
	// Permissive lets the binary decoder correct bounded structural
	// anomalies instead of failing. It has no meaning for XML input.
	Permissive bool
	// RetainRaw attaches each decoder's pre-normalization record
	// representation to Record.Raw.
	RetainRaw bool
}

func (o Options) mode() iso2709.Mode {
	if o.Permissive {
		return iso2709.Permissive
	}
	return iso2709.Strict
}

func (o Options) scheme() (charenc.Scheme, error) {
	scheme, err := charenc.Resolve(o.Encoding)
	if err != nil {
		return 0, errors.Mark(err, ErrConfiguration)
	}
	if o.Format == FormatXML && scheme != charenc.BestGuess && scheme != charenc.UTF8 {
		return 0, errors.Wrapf(ErrConfiguration, "encoding %q does not apply to xml input", o.Encoding)
	}
	return scheme, nil
}
