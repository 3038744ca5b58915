package surface

import "vtcore/color"

// Attr is a detached bag of color/style/patch values an application builds
// once and reuses when writing multiple runs with identical formatting
// (§3's "attribute template"). Writes copy these values into target cells.
type Attr struct {
	FG, BG, Deco color.Color
	Style        StyleFlags
	Underline    UnderlineStyle

	hasPatch        bool
	patchSetup      []byte
	patchCleanup    []byte
	patchOptimize   bool
}

// NewAttr returns a template with default colors and no style.
func NewAttr() Attr {
	return Attr{FG: color.Def(), BG: color.Def(), Deco: color.Def()}
}

func (a Attr) Foreground(c color.Color) Attr { a.FG = c; return a }
func (a Attr) Background(c color.Color) Attr { a.BG = c; return a }
func (a Attr) Decoration(c color.Color) Attr { a.Deco = c; return a }
func (a Attr) WithStyle(f StyleFlags) Attr   { a.Style = a.Style.With(f); return a }
func (a Attr) WithUnderline(u UnderlineStyle) Attr { a.Underline = u; return a }

// SetPatch attaches a raw setup/cleanup escape pair to the template. Per
// §9's open question, if allocating a copy of either string were to fail
// the reference behavior is to drop the patch silently; in Go there is no
// such failure mode for a byte slice copy, so this always succeeds, kept as
// a deliberate no-error API to match that reference behavior.
func (a Attr) SetPatch(optimize bool, setup, cleanup []byte) Attr {
	a.hasPatch = true
	a.patchSetup = append([]byte(nil), setup...)
	a.patchCleanup = append([]byte(nil), cleanup...)
	a.patchOptimize = optimize
	return a
}

// applyTo copies this template's attribute fields (not text) into c.
func (a Attr) applyTo(c *Cell, patches *patchTable, markLive func(func(uint8))) {
	c.FG, c.BG, c.Deco = a.FG, a.BG, a.Deco
	c.Style = a.Style
	c.Underline = a.Underline
	if a.hasPatch {
		c.Patch = patches.request(a.patchSetup, a.patchCleanup, a.patchOptimize, markLive)
	} else {
		c.Patch = 0
	}
}
