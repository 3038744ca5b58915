package detect

// Capability is one of the ~16 flags spec.md §3 says the detector records.
type Capability uint32

const (
	SafePositionReport Capability = 1 << iota
	CSIGreaterThan                // "CSI>"
	CSIEquals                     // "CSI="
	CSIPostfixModifier
	TitleRestore
	MayTryCursorShape
	MayTryCursorShapeBar
	CursorShapeOSC50
	ExtendedCharset
	TruecolorMaybe
	TruecolorYes
	Color88
	ClearedColoring
	SevenBitST
	MayTryTaggedPaste
	ClearedColoringDefaultColor
)

// Set is the capability bitset produced by the detector and consumed by the
// renderer.
type Set uint32

func (s Set) Has(c Capability) bool { return Set(c)&s != 0 }
func (s Set) With(c Capability) Set { return s | Set(c) }
func (s Set) Without(c Capability) Set { return s &^ Set(c) }

// UseTruecolor caches (TruecolorMaybe || TruecolorYes), spec.md §3's
// derived flag.
func (s Set) UseTruecolor() bool {
	return s.Has(TruecolorMaybe) || s.Has(TruecolorYes)
}

// Minimal is the capability set a "too-dumb" or failed detection leaves
// the renderer with: nothing but the bare ability to move the cursor and
// write plain text.
var Minimal = Set(0)
