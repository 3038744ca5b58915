package input

// Kind tags the variant an Event carries (§3's tagged-variant Event model).
type Kind uint8

const (
	KindChar Kind = iota
	KindKey
	KindMouse
	KindPaste
	KindCursorPosition
	KindColorSlotReport
	KindPaletteColorReport
	KindModeReport
	KindRawPrimaryDevAttrib
	KindRawSecondaryDevAttrib
	KindRawTertiaryDevAttrib
	KindRawDecRequestTermParam
	KindRawTermName
	KindRawTerminfoQueryReply
	KindMisc
	KindAutoDetectFinished
	KindRepaintRequested
	KindOverflow
	KindInvalidUTF8
)

// MouseAction is the derived gesture a Mouse event carries, on top of the
// raw button-state bits (§3).
type MouseAction uint8

const (
	MousePress MouseAction = iota
	MouseRelease
	MouseMove
)

// ModeKind distinguishes ANSI vs DEC-private mode reports.
type ModeKind uint8

const (
	ModeANSI ModeKind = iota
	ModeDEC
)

// Event is the single tagged-variant type spec.md §3 describes as a family
// of distinct event shapes; Go has no sum types, so Kind selects which
// fields are meaningful, following the same flattened-event idiom the
// tcell input parser uses for its own Event implementations.
type Event struct {
	Kind Kind

	// KindChar / KindKey
	Atom     Atom
	Rune     rune
	Modifier Modifier

	// KindMouse
	X, Y         int
	RawButtons   uint8
	MouseAction  MouseAction

	// KindPaste
	Text            string
	PasteInitial    bool
	PasteFinal      bool

	// KindCursorPosition
	Safe bool

	// KindColorSlotReport / KindPaletteColorReport
	Slot    int
	Index   int
	ColorRGB [3]uint8

	// KindModeReport
	ModeKind ModeKind
	ModeNum  int
	ModeStat int

	// Raw* / KindMisc / KindRawTermName / KindRawTerminfoQueryReply
	Raw []byte

	// KindOverflow carries no payload.
}
