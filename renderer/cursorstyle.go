package renderer

import "strconv"

// CursorShape is the logical cursor appearance the application requests.
// The numeric values match the `CSI n SP q` parameter from §6.
type CursorShape uint8

const (
	CursorShapeDefault CursorShape = 0
	CursorShapeBlock   CursorShape = 2
	CursorShapeUnderline CursorShape = 4
	CursorShapeBar      CursorShape = 6
)

func blinking(base CursorShape) CursorShape {
	if base == CursorShapeDefault {
		return base
	}
	return base - 1
}

// cursorStyleEmitter tracks the last style command actually sent so a
// Flush only re-emits the control sequence when the logical style changes
// (§4.2 "Cursor style").
type cursorStyleEmitter struct {
	last    CursorShape
	blink   bool
	emitted bool
}

// sequence returns the bytes to emit for (shape, blink), remapping bar to
// block when the terminal lacks may-try-cursor-shape-bar, and switching to
// the konsole OSC 50 form when cursor-shape-osc50 is the selected mechanism.
// It returns nil when the style is unchanged since the last call.
func (e *cursorStyleEmitter) sequence(shape CursorShape, blink bool, caps capabilitySet) []byte {
	if shape == CursorShapeBar && !caps.barShape {
		shape = CursorShapeBlock
	}
	if e.emitted && shape == e.last && blink == e.blink {
		return nil
	}
	e.last, e.blink, e.emitted = shape, blink, true

	n := shape
	if blink && n != CursorShapeDefault {
		n = blinking(n)
	}

	if caps.osc50 {
		onOff := "0"
		if blink {
			onOff = "1"
		}
		return []byte("\x1b]50;CursorShape=" + strconv.Itoa(int(shapeToOSC50(shape))) +
			";BlinkingCursorEnabled=" + onOff + "\a")
	}
	return []byte("\x1b[" + strconv.Itoa(int(n)) + " q")
}

// shapeToOSC50 maps the CSI-style shape numbers to konsole's OSC 50 shape
// index (0=block, 1=underline, 2=bar).
func shapeToOSC50(shape CursorShape) int {
	switch shape {
	case CursorShapeUnderline:
		return 1
	case CursorShapeBar:
		return 2
	default:
		return 0
	}
}

// capabilitySet is the subset of detect.Set the renderer needs to decide
// cursor-style and color-slot mechanics, passed in directly so this package
// does not need to import detect for just three booleans.
type capabilitySet struct {
	barShape bool
	osc50    bool
	sevenBitST bool
}
