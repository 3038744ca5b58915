package renderer

import (
	"strconv"
	"strings"

	"vtcore/color"
	"vtcore/surface"
)

// defaultMaxCSIParameters is the batching cap from spec.md §4.6: mlterm requires as
// few as 10, xterm and most others tolerate more; 15 is a safe default that
// still protects against silent truncation on the pickiest terminals.
const defaultMaxCSIParameters = 15

// sgrState is the renderer's running SGR cursor: the fg/bg/deco/style/
// underline/patch combination already believed to be in effect on the
// terminal, so successive cells only need to emit the delta.
type sgrState struct {
	fg, bg, deco color.Color
	style        surface.StyleFlags
	underline    surface.UnderlineStyle
	patch        uint8
	valid        bool
}

func freshSGRState() sgrState {
	return sgrState{fg: color.Def(), bg: color.Def(), deco: color.Def(), valid: true}
}

// sgrBatcher accumulates SGR parameters and flushes them as one or more
// `CSI ... m` sequences, closing and reopening whenever appending one more
// parameter would exceed maxParams (§4.6).
type sgrBatcher struct {
	maxParams int
	params    []string
	out       *strings.Builder
}

func newSGRBatcher(out *strings.Builder, maxParams int) *sgrBatcher {
	if maxParams < 10 {
		maxParams = 10
	}
	return &sgrBatcher{maxParams: maxParams, out: out}
}

func (b *sgrBatcher) add(param string) {
	if len(b.params) >= b.maxParams {
		b.flush()
	}
	b.params = append(b.params, param)
}

// addGroup appends a logically-atomic group of parameters (e.g. the five
// fields of `38;2;r;g;b`) without splitting it across a CSI boundary.
func (b *sgrBatcher) addGroup(params ...string) {
	if len(b.params)+len(params) > b.maxParams && len(b.params) > 0 {
		b.flush()
	}
	b.params = append(b.params, params...)
}

func (b *sgrBatcher) flush() {
	if len(b.params) == 0 {
		return
	}
	b.out.WriteString("\x1b[")
	b.out.WriteString(strings.Join(b.params, ";"))
	b.out.WriteByte('m')
	b.params = b.params[:0]
}

// sgrParams returns the SGR parameter fields needed to move from prev to
// next, per the wire conventions in §6: named colors as 30..37/90..97 and
// 40..47/100..107, indexed as 38;5;n / 48;5;n, RGB as 38;2;r;g;b /
// 48;2;r;g;b (deco uses the colon form 58:2::r:g:b), underline variants as
// 4, 21, 4:3.
func sgrParams(prev, next sgrState) []string {
	var params []string

	if !next.style.Has(surface.Bold) && prev.style.Has(surface.Bold) {
		params = append(params, "22")
	} else if next.style.Has(surface.Bold) && !prev.style.Has(surface.Bold) {
		params = append(params, "1")
	}
	if next.style.Has(surface.Italic) != prev.style.Has(surface.Italic) {
		if next.style.Has(surface.Italic) {
			params = append(params, "3")
		} else {
			params = append(params, "23")
		}
	}
	if next.style.Has(surface.Blink) != prev.style.Has(surface.Blink) {
		if next.style.Has(surface.Blink) {
			params = append(params, "5")
		} else {
			params = append(params, "25")
		}
	}
	if next.style.Has(surface.Overline) != prev.style.Has(surface.Overline) {
		if next.style.Has(surface.Overline) {
			params = append(params, "53")
		} else {
			params = append(params, "55")
		}
	}
	if next.style.Has(surface.Inverse) != prev.style.Has(surface.Inverse) {
		if next.style.Has(surface.Inverse) {
			params = append(params, "7")
		} else {
			params = append(params, "27")
		}
	}
	if next.style.Has(surface.Strike) != prev.style.Has(surface.Strike) {
		if next.style.Has(surface.Strike) {
			params = append(params, "9")
		} else {
			params = append(params, "29")
		}
	}

	if next.underline != prev.underline {
		switch next.underline {
		case surface.UnderlineNone:
			params = append(params, "24")
		case surface.UnderlineSingle:
			params = append(params, "4")
		case surface.UnderlineDouble:
			params = append(params, "21")
		case surface.UnderlineCurly:
			params = append(params, "4:3")
		}
	}

	if !next.fg.Equal(prev.fg) {
		params = append(params, colorParams(next.fg, false)...)
	}
	if !next.bg.Equal(prev.bg) {
		params = append(params, colorParams(next.bg, true)...)
	}
	if !next.deco.Equal(prev.deco) {
		params = append(params, decoParams(next.deco)...)
	}

	return params
}

func colorParams(c color.Color, background bool) []string {
	base := 38
	if background {
		base = 48
	}
	switch c.TagOf() {
	case color.Default:
		if background {
			return []string{"49"}
		}
		return []string{"39"}
	case color.Named:
		n := int(c.IndexOf())
		if n < 8 {
			off := 30
			if background {
				off = 40
			}
			return []string{strconv.Itoa(off + n)}
		}
		off := 90
		if background {
			off = 100
		}
		return []string{strconv.Itoa(off + n - 8)}
	case color.Indexed:
		return []string{strconv.Itoa(base), "5", strconv.Itoa(int(c.IndexOf()))}
	case color.RGB:
		r, g, b := c.RGB()
		return []string{strconv.Itoa(base), "2", strconv.Itoa(int(r)), strconv.Itoa(int(g)), strconv.Itoa(int(b))}
	}
	return nil
}

// decoParams formats the underline-color SGR group, which uses the colon
// sub-parameter form `58:2::r:g:b` / `58:5:n` rather than semicolons so it
// composes unambiguously with a following SGR reset.
func decoParams(c color.Color) []string {
	switch c.TagOf() {
	case color.Default:
		return []string{"59"}
	case color.Indexed, color.Named:
		return []string{"58:5:" + strconv.Itoa(int(c.IndexOf()))}
	case color.RGB:
		r, g, b := c.RGB()
		return []string{"58:2::" + strconv.Itoa(int(r)) + ":" + strconv.Itoa(int(g)) + ":" + strconv.Itoa(int(b))}
	}
	return nil
}
