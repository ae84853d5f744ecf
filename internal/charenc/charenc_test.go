package charenc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	cases := map[string]Scheme{
		"":           BestGuess,
		"best-guess": BestGuess,
		"BESTGUESS":  BestGuess,
		"latin1":     Latin1,
		"Latin-1":    Latin1,
		"ISO-8859-1": Latin1,
		"utf8":       UTF8,
		"UTF-8":      UTF8,
		"unicode":    UTF8,
		"marc8":      MARC8,
		"MARC-8":     MARC8,
		"ansel":      MARC8,
	}
	for name, want := range cases {
		got, err := Resolve(name)
		require.NoError(t, err, name)
		require.Equal(t, want, got, name)
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("ebcdic")
	require.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestDecodeLatin1(t *testing.T) {
	require.Equal(t, "café", DecodeLatin1([]byte{'c', 'a', 'f', 0xE9}))
}

func TestDecodeUTF8ReplacesInvalid(t *testing.T) {
	require.Equal(t, "a�b", DecodeUTF8([]byte{'a', 0xFF, 'b'}))
	require.Equal(t, "café", DecodeUTF8([]byte("café")))
}

func TestDecodeMARC8ANSEL(t *testing.T) {
	// Acute accent precedes its base in MARC-8 and follows it in Unicode.
	require.Equal(t, "café", DecodeMARC8([]byte{'c', 'a', 'f', 0xE2, 'e'}))
	require.Equal(t, "Łódź", DecodeMARC8([]byte{0xA1, 0xE2, 'o', 'd', 0xE2, 'z'}))
}

func TestDecodeMARC8Escapes(t *testing.T) {
	// Greek symbol set in G0, then back to ASCII.
	require.Equal(t, "αx", DecodeMARC8([]byte{0x1B, 'g', 'a', 0x1B, 's', 'x'}))
	// Superscript digits.
	require.Equal(t, "m²", DecodeMARC8([]byte{'m', 0x1B, 'p', '2', 0x1B, 's'}))
	// Explicit ANSEL designation for G1 is a no-op relative to the default.
	require.Equal(t, "ø", DecodeMARC8([]byte{0x1B, ')', 'E', 0xB2}))
}

func TestDecodeMARC8UnsupportedSet(t *testing.T) {
	// Basic Cyrillic has no table; characters degrade to replacements
	// instead of failing.
	got := DecodeMARC8([]byte{0x1B, '(', 'N', 0x41})
	require.Equal(t, "�", got)
}

func TestDecodeMARC8DanglingCombining(t *testing.T) {
	// A combining mark with no following base still comes out.
	require.Equal(t, "x́", DecodeMARC8([]byte{'x', 0xE2}))
}

func TestBestGuessLeaderFlag(t *testing.T) {
	leader := []byte("00000nam  22000000a 4500")
	leader[9] = 'a'
	dec := BestGuess.DecoderFor(leader, [][]byte{[]byte("café")})
	require.Equal(t, "café", dec([]byte("café")))
}

func TestBestGuessEscapeMeansMARC8(t *testing.T) {
	leader := []byte("00000nam  2200000 a 4500")
	fields := [][]byte{{0x1B, 'g', 'a', 0x1B, 's'}}
	dec := BestGuess.DecoderFor(leader, fields)
	require.Equal(t, "α", dec(fields[0]))
}

func TestBestGuessFallsBackToLatin1(t *testing.T) {
	leader := []byte("00000nam  2200000 a 4500")
	fields := [][]byte{{'c', 'a', 'f', 0xE9}}
	dec := BestGuess.DecoderFor(leader, fields)
	require.Equal(t, "café", dec(fields[0]))
}

func TestBestGuessKeepsValidUTF8(t *testing.T) {
	leader := []byte("00000nam  2200000 a 4500")
	fields := [][]byte{[]byte("café")}
	dec := BestGuess.DecoderFor(leader, fields)
	require.Equal(t, "café", dec(fields[0]))
}
