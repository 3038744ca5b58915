package surface

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// maxClusterBytes is the cluster length cap from §4.1.
const maxClusterBytes = 40

// cluster is one assembled grapheme cluster ready to be placed in a cell.
type cluster struct {
	text  string
	width int // 1 or 2
}

// sanitizeRune applies §4.1's input sanitization: invalid bytes already
// become U+FFFD by the caller's UTF-8 decode; here we additionally replace
// C0/C1 controls and U+007F with space, and force U+00AD to '-'.
func sanitizeRune(r rune) rune {
	switch {
	case r == 0x00AD:
		return '-'
	case r <= 0x1F, r == 0x7F, (r >= 0x80 && r <= 0x9F):
		return ' '
	}
	return r
}

// assembleClusters consumes UTF-8 text and produces the cluster sequence
// per §4.1's write algorithm: the first codepoint sets the cluster and its
// width; further zero-width codepoints append (up to maxClusterBytes); a
// leading zero-width codepoint is prefixed with U+00A0 so the cluster still
// occupies one column; a mid-cluster DEL (0x7F, pre-sanitization) terminates
// the cluster without being stored.
func assembleClusters(s string) []cluster {
	var out []cluster
	var buf []byte
	width := 0
	started := false

	flush := func() {
		if started {
			out = append(out, cluster{text: string(buf), width: width})
		}
		buf = buf[:0]
		width = 0
		started = false
	}

	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		raw := r
		if r == utf8.RuneError && size <= 1 {
			r = 0xFFFD
		}
		s = s[size:]

		if raw == 0x7F && started {
			// Mid-cluster DEL terminates without storing.
			flush()
			continue
		}

		r = sanitizeRune(r)
		rw := runewidth.RuneWidth(r)

		if !started {
			if rw == 0 {
				// Leading zero-width codepoint: prefix with U+00A0 so the
				// cluster occupies exactly one column.
				buf = append(buf, string(rune(0x00A0))...)
				width = 1
			} else {
				width = rw
			}
			started = true
			if len(buf)+utf8.RuneLen(r) > maxClusterBytes {
				flush()
				continue
			}
			buf = append(buf, string(r)...)
			continue
		}

		if rw != 0 {
			// Non-combining codepoint starts a new cluster.
			flush()
			if runewidth.RuneWidth(r) == 0 {
				buf = append(buf, string(rune(0x00A0))...)
				width = 1
			} else {
				width = runewidth.RuneWidth(r)
			}
			started = true
			buf = append(buf, string(r)...)
			continue
		}

		if len(buf)+utf8.RuneLen(r) > maxClusterBytes {
			continue // drop codepoints past the cluster limit
		}
		buf = append(buf, string(r)...)
	}
	flush()
	return out
}
