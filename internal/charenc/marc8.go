package charenc

import "strings"

// MARC-8 is the pre-Unicode MARC 21 character encoding: 7-bit ASCII in the
// G0 range plus a designated graphic set in the G1 range (ANSEL extended
// Latin by default), with escape sequences switching either half to another
// set. ANSEL diacritics are combining marks that precede their base
// character; Unicode combining marks follow theirs, so decoding buffers
// pending marks and emits them after the next base character.

const esc = 0x1B

// MARC-8 set designation finals.
const (
	setASCII       = 'B'
	setANSEL       = 'E'
	setSubscript   = 'b'
	setGreekSymbol = 'g'
	setSuperscript = 'p'
)

// DecodeMARC8 transcodes MARC-8 bytes to UTF-8. Characters from designated
// sets this decoder does not carry tables for (CJK, Cyrillic, Hebrew,
// Arabic, full Greek) come out as U+FFFD; encoding trouble never fails the
// record.
func DecodeMARC8(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	var pending []rune
	g0, g1 := byte(setASCII), byte(setANSEL)

	emit := func(r rune) {
		sb.WriteRune(r)
		for _, m := range pending {
			sb.WriteRune(m)
		}
		pending = pending[:0]
	}

	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == esc {
			n, ng0, ng1 := designate(b[i:], g0, g1)
			if n == 0 {
				emit('�')
				continue
			}
			i += n - 1
			g0, g1 = ng0, ng1
			continue
		}
		if c < 0x21 || c == 0x7F {
			// Controls and space pass through and terminate any pending
			// combining sequence.
			emit(rune(c))
			continue
		}
		set, idx := g0, c
		if c >= 0x80 {
			set, idx = g1, c
		}
		r, combining := decodeChar(set, idx)
		if combining {
			pending = append(pending, r)
			continue
		}
		emit(r)
	}
	for _, m := range pending {
		sb.WriteRune(m)
	}
	return sb.String()
}

// designate interprets an escape sequence starting at b[0] == ESC and
// returns the bytes consumed plus the updated G0/G1 designations. A zero
// consumed count means the sequence is unrecognized.
func designate(b []byte, g0, g1 byte) (int, byte, byte) {
	if len(b) < 2 {
		return 0, g0, g1
	}
	switch b[1] {
	case setGreekSymbol, setSubscript, setSuperscript:
		return 2, b[1], g1
	case 's':
		return 2, setASCII, g1
	case '(', ',':
		if len(b) < 3 {
			return 0, g0, g1
		}
		return 3, b[2], g1
	case ')', '-':
		if len(b) < 3 {
			return 0, g0, g1
		}
		return 3, g0, b[2]
	case '$':
		// Multibyte designations: ESC $ F, ESC $ , F for G0 and
		// ESC $ ) F, ESC $ - F for G1. The sets themselves (CJK) are not
		// carried, so the designation is honored and the characters decode
		// to replacements.
		if len(b) < 3 {
			return 0, g0, g1
		}
		switch b[2] {
		case ')', '-':
			if len(b) < 4 {
				return 0, g0, g1
			}
			return 4, g0, b[3]
		case ',':
			if len(b) < 4 {
				return 0, g0, g1
			}
			return 4, b[3], g1
		default:
			return 3, b[2], g1
		}
	default:
		return 0, g0, g1
	}
}

func decodeChar(set, c byte) (rune, bool) {
	switch set {
	case setASCII:
		if c < 0x80 {
			return rune(c), false
		}
		return '�', false
	case setANSEL:
		if c < 0x80 {
			return rune(c), false
		}
		if r, ok := anselSpacing[c]; ok {
			return r, false
		}
		if r, ok := anselCombining[c]; ok {
			return r, true
		}
		return '�', false
	case setGreekSymbol:
		switch c & 0x7F {
		case 0x61:
			return 'α', false
		case 0x62:
			return 'β', false
		case 0x63:
			return 'γ', false
		}
		return '�', false
	case setSubscript:
		return scriptRune(c&0x7F, subscriptRunes), false
	case setSuperscript:
		return scriptRune(c&0x7F, superscriptRunes), false
	default:
		return '�', false
	}
}

func scriptRune(c byte, table map[byte]rune) rune {
	if r, ok := table[c]; ok {
		return r
	}
	return '�'
}

// anselSpacing maps the ANSEL spacing graphics (MARC 21 Extended Latin).
var anselSpacing = map[byte]rune{
	0xA1: 'Ł',
	0xA2: 'Ø',
	0xA3: 'Đ',
	0xA4: 'Þ',
	0xA5: 'Æ',
	0xA6: 'Œ',
	0xA7: 'ʹ',
	0xA8: '·',
	0xA9: '♭',
	0xAA: '®',
	0xAB: '±',
	0xAC: 'Ơ',
	0xAD: 'Ư',
	0xAE: 'ʼ',
	0xB0: 'ʻ',
	0xB1: 'ł',
	0xB2: 'ø',
	0xB3: 'đ',
	0xB4: 'þ',
	0xB5: 'æ',
	0xB6: 'œ',
	0xB7: 'ʺ',
	0xB8: 'ı',
	0xB9: '£',
	0xBA: 'ð',
	0xBC: 'ơ',
	0xBD: 'ư',
	0xC0: '°',
	0xC1: 'ℓ',
	0xC2: '℗',
	0xC3: '©',
	0xC4: '♯',
	0xC5: '¿',
	0xC6: '¡',
	0xC7: 'ß',
	0xC8: '€',
}

// anselCombining maps ANSEL diacritics to Unicode combining marks.
var anselCombining = map[byte]rune{
	0xE0: '̉', // hook above
	0xE1: '̀', // grave
	0xE2: '́', // acute
	0xE3: '̂', // circumflex
	0xE4: '̃', // tilde
	0xE5: '̄', // macron
	0xE6: '̆', // breve
	0xE7: '̇', // dot above
	0xE8: '̈', // diaeresis
	0xE9: '̌', // caron
	0xEA: '̊', // ring above
	0xEB: '︠', // ligature, left half
	0xEC: '︡', // ligature, right half
	0xED: '̕', // comma above right
	0xEE: '̋', // double acute
	0xEF: '̐', // candrabindu
	0xF0: '̧', // cedilla
	0xF1: '̨', // ogonek
	0xF2: '̣', // dot below
	0xF3: '̤', // double dot below
	0xF4: '̥', // ring below
	0xF5: '̳', // double low line
	0xF6: '̲', // low line
	0xF7: '̦', // comma below
	0xF8: '̜', // right half ring below
	0xF9: '̮', // breve below
	0xFA: '︢', // double tilde, left half
	0xFB: '︣', // double tilde, right half
	0xFE: '̓', // comma above
}

var subscriptRunes = map[byte]rune{
	0x28: '₍',
	0x29: '₎',
	0x2B: '₊',
	0x2D: '₋',
	0x30: '₀',
	0x31: '₁',
	0x32: '₂',
	0x33: '₃',
	0x34: '₄',
	0x35: '₅',
	0x36: '₆',
	0x37: '₇',
	0x38: '₈',
	0x39: '₉',
}

var superscriptRunes = map[byte]rune{
	0x28: '⁽',
	0x29: '⁾',
	0x2B: '⁺',
	0x2D: '⁻',
	0x30: '⁰',
	0x31: '¹',
	0x32: '²',
	0x33: '³',
	0x34: '⁴',
	0x35: '⁵',
	0x36: '⁶',
	0x37: '⁷',
	0x38: '⁸',
	0x39: '⁹',
}
