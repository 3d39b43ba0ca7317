package derive

import (
	"regexp"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Upstream systems occasionally hand us Cyrillic text whose Windows-1251
// bytes were reinterpreted one-to-one as UTF-16 code units, so "ЗМЕ" arrives
// as "ÇÌÅ". DecodeLegacyText repairs such strings by pushing every code unit
// that fits in a byte back through the Windows-1251 table.

var validCyrillicRe = regexp.MustCompile(`^[А-ЯЁа-яёІіЇїЄєҐґ\s\d]+$`)

// DecodeLegacyText repairs mis-decoded Cyrillic text. Strings that already
// consist solely of valid Cyrillic, ASCII and whitespace are returned
// unchanged; anything the repair cannot handle comes back verbatim. The
// function never fails.
func DecodeLegacyText(s string) string {
	if s == "" {
		return s
	}
	if isAlreadyDecoded(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < 0x80:
			// Plain ASCII passes through.
			b.WriteRune(r)
		case r <= 0xFF:
			b.WriteRune(charmap.Windows1251.DecodeByte(byte(r)))
		default:
			// Already outside the single-byte range; nothing to repair.
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isAlreadyDecoded reports whether every rune is valid Cyrillic, ASCII or
// whitespace, i.e. the string needs no repair.
func isAlreadyDecoded(s string) bool {
	if validCyrillicRe.MatchString(s) {
		return true
	}
	for _, r := range s {
		if r < 0x80 {
			continue
		}
		if !isCyrillicRune(r) {
			return false
		}
	}
	return true
}

func isCyrillicRune(r rune) bool {
	switch {
	case r >= 'А' && r <= 'я':
		return true
	case r == 'Ё' || r == 'ё':
		return true
	case r == 'І' || r == 'і' || r == 'Ї' || r == 'ї' || r == 'Є' || r == 'є' || r == 'Ґ' || r == 'ґ':
		return true
	}
	return false
}
