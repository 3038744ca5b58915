package renderer

import (
	"strconv"
	"strings"

	"vtcore/color"
	"vtcore/restore"
)

// ColorSlot identifies one of the palette/default-fg/default-bg/cursor
// color targets addressable through OSC per §4.2 "Color slots". The numeric
// value is the OSC command number used to query and set it.
type ColorSlot int

const (
	SlotForeground ColorSlot = 10
	SlotBackground ColorSlot = 11
	SlotCursor     ColorSlot = 12
	SlotMouseFG    ColorSlot = 13
	SlotMouseBG    ColorSlot = 14
	SlotTabFG      ColorSlot = 17
	SlotHighlightBG ColorSlot = 19
)

type pendingSlotSet struct {
	slot  ColorSlot
	value color.Color
}

type pendingPaletteSet struct {
	index int
	value color.Color
}

// colorSlotManager implements §4.2's color-slot protocol: a set is recorded,
// a query for the slot's current value is issued so its result can be
// prepended to the restore sequence, and only once that query round-trips
// does the manager consider the slot "owned" for subsequent sets (later sets
// to an already-queried slot skip re-querying).
type colorSlotManager struct {
	queried       map[ColorSlot]bool
	queriedPalette map[int]bool
	pendingSlots  []pendingSlotSet
	pendingPalette []pendingPaletteSet
	restore       *restore.Sequence
}

func newColorSlotManager(r *restore.Sequence) *colorSlotManager {
	return &colorSlotManager{
		queried:        make(map[ColorSlot]bool),
		queriedPalette: make(map[int]bool),
		restore:        r,
	}
}

// RequestSet queues an application request to set a color slot. If this
// slot has never been queried, a query is emitted first (by the caller,
// via NeededQueries) so the prior value can be captured for the restore
// sequence.
func (m *colorSlotManager) RequestSet(slot ColorSlot, c color.Color) {
	m.pendingSlots = append(m.pendingSlots, pendingSlotSet{slot, c})
}

func (m *colorSlotManager) RequestPaletteSet(index int, c color.Color) {
	m.pendingPalette = append(m.pendingPalette, pendingPaletteSet{index, c})
}

// NeededQueries returns the OSC query sequences that must be sent before
// this flush's pending sets, for any slot not yet queried.
func (m *colorSlotManager) NeededQueries() []byte {
	var b strings.Builder
	seen := make(map[ColorSlot]bool)
	for _, p := range m.pendingSlots {
		if m.queried[p.slot] || seen[p.slot] {
			continue
		}
		seen[p.slot] = true
		b.WriteString("\x1b]")
		b.WriteString(strconv.Itoa(int(p.slot)))
		b.WriteString(";?\x07")
	}
	seenPal := make(map[int]bool)
	for _, p := range m.pendingPalette {
		if m.queriedPalette[p.index] || seenPal[p.index] {
			continue
		}
		seenPal[p.index] = true
		b.WriteString("\x1b]4;")
		b.WriteString(strconv.Itoa(p.index))
		b.WriteString(";?\x07")
	}
	return []byte(b.String())
}

// ReportReceived is called by the caller when a ColorSlotReport event
// arrives; it marks the slot as queried and prepends an undo fragment that
// restores the prior value.
func (m *colorSlotManager) ReportReceived(slot ColorSlot, prior color.Color) {
	if m.queried[slot] {
		return
	}
	m.queried[slot] = true
	m.restore.Prepend(slotSetSequence(slot, prior, true))
}

func (m *colorSlotManager) PaletteReportReceived(index int, prior color.Color) {
	if m.queriedPalette[index] {
		return
	}
	m.queriedPalette[index] = true
	m.restore.Prepend(paletteSetSequence(index, prior, true))
}

// Flush emits the accumulated sets as `OSC n ; spec ST` sequences and
// clears the pending queues. sevenBitST selects ESC \ vs BEL as terminator
// per the `7bit-ST` capability (§4.2).
func (m *colorSlotManager) Flush(sevenBitST bool) []byte {
	var b strings.Builder
	for _, p := range m.pendingSlots {
		b.Write(slotSetSequence(p.slot, p.value, sevenBitST))
	}
	for _, p := range m.pendingPalette {
		b.Write(paletteSetSequence(p.index, p.value, sevenBitST))
	}
	m.pendingSlots = m.pendingSlots[:0]
	m.pendingPalette = m.pendingPalette[:0]
	return []byte(b.String())
}

func terminator(sevenBitST bool) string {
	if sevenBitST {
		return "\x1b\\"
	}
	return "\x07"
}

func colorSpec(c color.Color) string {
	switch c.TagOf() {
	case color.RGB:
		r, g, b := c.RGB()
		return "rgb:" + hex2(r) + "/" + hex2(g) + "/" + hex2(b)
	case color.Indexed:
		r, g, b := indexToRGB(c.IndexOf())
		return "rgb:" + hex2(r) + "/" + hex2(g) + "/" + hex2(b)
	case color.Named:
		r, g, b := indexToRGB(c.IndexOf())
		return "rgb:" + hex2(r) + "/" + hex2(g) + "/" + hex2(b)
	default:
		return ""
	}
}

// ansi16 is the standard xterm palette for indices 0..15, used both to
// answer OSC color-slot queries about named colors and as the low end of
// the 256-color table.
var ansi16 = [16][3]uint8{
	{0, 0, 0}, {205, 0, 0}, {0, 205, 0}, {205, 205, 0},
	{0, 0, 238}, {205, 0, 205}, {0, 205, 205}, {229, 229, 229},
	{127, 127, 127}, {255, 0, 0}, {0, 255, 0}, {255, 255, 0},
	{92, 92, 255}, {255, 0, 255}, {0, 255, 255}, {255, 255, 255},
}

// indexToRGB resolves a named (0..15) or indexed (0..255) palette entry to
// its standard xterm RGB value: the fixed ANSI 16, the 6x6x6 color cube, or
// the 24-step grey ramp (the inverse of Quantize256's grid).
func indexToRGB(idx uint8) (r, g, b uint8) {
	if idx < 16 {
		c := ansi16[idx]
		return c[0], c[1], c[2]
	}
	if idx >= 232 {
		v := grey256(int(idx) - 232)
		return v, v, v
	}
	n := int(idx) - 16
	ri, gi, bi := n/36, (n/6)%6, n%6
	return grid256[ri], grid256[gi], grid256[bi]
}

func hex2(v uint8) string {
	const digits = "0123456789abcdef"
	return string([]byte{digits[v>>4], digits[v&0xF]})
}

func slotSetSequence(slot ColorSlot, c color.Color, sevenBitST bool) []byte {
	spec := colorSpec(c)
	if spec == "" {
		return nil
	}
	return []byte("\x1b]" + strconv.Itoa(int(slot)) + ";" + spec + terminator(sevenBitST))
}

func paletteSetSequence(index int, c color.Color, sevenBitST bool) []byte {
	spec := colorSpec(c)
	if spec == "" {
		return nil
	}
	return []byte("\x1b]4;" + strconv.Itoa(index) + ";" + spec + terminator(sevenBitST))
}
