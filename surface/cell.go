package surface

import "vtcore/color"

// UnderlineStyle selects which of the four underline renderings a cell uses.
type UnderlineStyle uint8

const (
	UnderlineNone UnderlineStyle = iota
	UnderlineSingle
	UnderlineDouble
	UnderlineCurly
)

// StyleFlags is the compact style bitfield from spec.md §3: bold, italic,
// blink, overline, inverse, strike, and a soft-wrap marker. Underline is
// tracked separately (it is a 2-bit variant, not a single flag).
type StyleFlags uint8

const (
	Bold StyleFlags = 1 << iota
	Italic
	Blink
	Overline
	Inverse
	Strike
	SoftWrap
)

func (f StyleFlags) Has(bit StyleFlags) bool { return f&bit != 0 }
func (f StyleFlags) With(bit StyleFlags) StyleFlags { return f | bit }
func (f StyleFlags) Without(bit StyleFlags) StyleFlags { return f &^ bit }

// textKind tags how a cell's cluster text is stored, per §9's suggested
// model: {Inline([u8;8]), Overflow(id), WideRightPadding, Empty}.
type textKind uint8

const (
	textEmpty textKind = iota
	textInline
	textOverflow
	textPadding // right half of a wide cluster
)

const inlineCap = 8

// text is the tagged text slot of a Cell.
type text struct {
	kind      textKind
	inlineLen uint8
	inline    [inlineCap]byte
	overflow  int32 // index into the owning surface's overflow table
}

func textFromInline(s string) text {
	var t text
	t.kind = textInline
	t.inlineLen = uint8(len(s))
	copy(t.inline[:], s)
	return t
}

func textFromOverflow(id int32) text {
	return text{kind: textOverflow, overflow: id}
}

func textPaddingSentinel() text {
	return text{kind: textPadding}
}

// Cell is one terminal cell: colors, style, a patch index, a cluster
// expansion width, and the cluster text (§3).
type Cell struct {
	FG, BG, Deco color.Color
	Style        StyleFlags
	Underline    UnderlineStyle
	Patch        uint8 // 0 = no patch; 1..255 index the patch table
	Expansion    uint8 // 0..15: number of trailing cells in this cluster
	txt          text
}

// Empty returns a blank cell: a single space, default colors, no patch.
func Empty() Cell {
	return Cell{
		FG:  color.Def(),
		BG:  color.Def(),
		Deco: color.Def(),
		txt: textFromInline(" "),
	}
}

// IsWideRightPadding reports whether c is the right half of a wide cluster.
func (c Cell) IsWideRightPadding() bool {
	return c.txt.kind == textPadding
}

// IsOverflow reports whether c's text lives in the overflow table.
func (c Cell) IsOverflow() bool {
	return c.txt.kind == textOverflow
}

// OverflowID returns the overflow-table index. Only valid when IsOverflow.
func (c Cell) OverflowID() int32 {
	return c.txt.overflow
}

// sameAttrs reports whether two cells share colors, style, underline, and
// patch — the invariant required of every cell within one cluster (§3).
func (a Cell) sameAttrs(b Cell) bool {
	return a.FG == b.FG && a.BG == b.BG && a.Deco == b.Deco &&
		a.Style == b.Style && a.Underline == b.Underline && a.Patch == b.Patch
}

// SameAttrs is the exported form of sameAttrs, used by the renderer
// package to diff a cell against its shadow counterpart.
func (a Cell) SameAttrs(b Cell) bool { return a.sameAttrs(b) }
