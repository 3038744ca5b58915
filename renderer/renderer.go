package renderer

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"vtcore/color"
	"vtcore/detect"
	"vtcore/restore"
	"vtcore/surface"
)

// speculationBudget bounds mechanism 2 of cursor speculation (§4.2): the
// renderer prefers relative horizontal motion over an absolute
// cursor-position sequence whenever the hop is this short or shorter.
const speculationBudget = 16

// Options configures a Renderer's behavior; all fields have usable zero
// values matching §4.2/§4.6's defaults.
type Options struct {
	UseTruecolor                bool
	ColorCount                  int // 0 means "unspecified" (256); effectiveColor treats <=88 as 88-color
	MaxCSIParameters            int // 0 defaults to defaultMaxCSIParameters
	ClearedColoring             bool
	ClearedColoringDefaultColor bool
	SevenBitST                  bool
	CursorShapeOSC50            bool
	CursorShapeBar              bool
}

// Renderer implements spec.md §4.2: it diffs a Surface against its shadow
// and writes the minimal escape-sequence stream needed to reconcile the
// terminal, through an Integration.
type Renderer struct {
	integ   Integration
	opts    Options
	bad     bool
	restore *restore.Sequence
	slots   *colorSlotManager
	cursor  cursorStyleEmitter

	pendingShape CursorShape
	pendingBlink bool
	shapePending bool
}

// New creates a Renderer bound to integ with the given options. The
// restore sequence starts empty; callers that need crash-recovery
// persistence should implement renderer.RestoreSequenceObserver on integ.
func New(integ Integration, opts Options) *Renderer {
	if opts.MaxCSIParameters == 0 {
		opts.MaxCSIParameters = defaultMaxCSIParameters
	}
	r := &Renderer{
		integ:   integ,
		opts:    opts,
		restore: restore.New(),
	}
	r.slots = newColorSlotManager(r.restore)
	return r
}

// IsBad reports whether a prior Integration write failed, putting the
// renderer into its permanent no-op state (§4.2 "Failure semantics").
func (r *Renderer) IsBad() bool { return r.bad || r.integ.IsBad() }

// RestoreSequence returns the cumulative undo sequence accumulated so far.
func (r *Renderer) RestoreSequence() []byte { return r.restore.Bytes() }

// ApplyCapabilities adjusts renderer behavior from a detector's capability
// set: truecolor use, cursor-shape mechanism, ST form, cleared-coloring
// fast path.
func (r *Renderer) ApplyCapabilities(caps detect.Set) {
	r.opts.UseTruecolor = caps.UseTruecolor()
	r.opts.SevenBitST = caps.Has(detect.SevenBitST)
	r.opts.CursorShapeOSC50 = caps.Has(detect.CursorShapeOSC50)
	r.opts.CursorShapeBar = caps.Has(detect.MayTryCursorShapeBar)
	r.opts.ClearedColoring = caps.Has(detect.ClearedColoring)
	r.opts.ClearedColoringDefaultColor = caps.Has(detect.ClearedColoringDefaultColor)
	if caps.Has(detect.Color88) {
		r.opts.ColorCount = 88
	}
}

// RequestColorSlotSet queues an application request to set a color slot
// (§4.2 "Color slots").
func (r *Renderer) RequestColorSlotSet(slot ColorSlot, c color.Color) {
	r.slots.RequestSet(slot, c)
}

// RequestPaletteSet queues an application request to set palette entry
// index.
func (r *Renderer) RequestPaletteSet(index int, c color.Color) {
	r.slots.RequestPaletteSet(index, c)
}

// ColorSlotReport feeds back a terminal's reported slot value, captured so
// it can be prepended to the restore sequence (§4.2).
func (r *Renderer) ColorSlotReport(slot ColorSlot, prior color.Color) {
	before := len(r.restore.Bytes())
	r.slots.ReportReceived(slot, prior)
	r.restoreChanged(before)
}

// PaletteColorReport feeds back a terminal's reported palette entry value.
func (r *Renderer) PaletteColorReport(index int, prior color.Color) {
	before := len(r.restore.Bytes())
	r.slots.PaletteReportReceived(index, prior)
	r.restoreChanged(before)
}

// restoreChanged notifies a RestoreSequenceObserver integration when the
// restore sequence's length is no longer before.
func (r *Renderer) restoreChanged(before int) {
	if o, ok := r.integ.(RestoreSequenceObserver); ok && len(r.restore.Bytes()) != before {
		o.RestoreSequenceUpdated(r.restore.Bytes())
	}
}

// RequestCursorShape sets the logical cursor shape/blink the next Flush
// should reconcile.
func (r *Renderer) RequestCursorShape(shape CursorShape, blink bool) {
	r.pendingShape = shape
	r.pendingBlink = blink
	r.shapePending = true
}

// Flush transmits the byte sequence needed to bring the terminal in line
// with surf, assuming surf's shadow accurately reflects on-screen state
// (or forceFull requests a full repaint ignoring the shadow). It is a
// no-op once the renderer has entered its bad state (§4.2, §7).
func (r *Renderer) Flush(surf *surface.Surface, forceFull bool) {
	if r.IsBad() {
		return
	}
	if !surf.HasShadow() {
		return
	}

	var out strings.Builder
	out.WriteString("\x1b[?25l") // hide cursor

	queries := r.slots.NeededQueries()
	if len(queries) > 0 {
		out.Write(queries)
	}

	state := freshSGRState()
	batch := newSGRBatcher(&out, r.opts.MaxCSIParameters)
	lastRow, lastCol := -1, -1

	for y := 0; y < surf.Height(); y++ {
		if !forceFull && !surf.RowDirty(y) {
			continue
		}
		r.flushRow(surf, y, forceFull, &out, batch, &state, &lastRow, &lastCol)
		if lastRow == y && lastCol == surf.Width() && y+1 < surf.Height() && softWrapJoins(surf, y) {
			// The last cell of row y wrapped naturally on the terminal;
			// treat the cursor as already sitting at (0, y+1) rather than
			// emitting a reposition sequence (§4.2 "Soft-wrap").
			lastRow, lastCol = y+1, 0
		}
	}
	batch.flush()

	if r.shapePending {
		if seq := r.cursor.sequence(r.pendingShape, r.pendingBlink, capabilitySet{
			barShape: r.opts.CursorShapeBar, osc50: r.opts.CursorShapeOSC50, sevenBitST: r.opts.SevenBitST,
		}); seq != nil {
			out.Write(seq)
		}
		r.shapePending = false
	}

	if sets := r.slots.Flush(r.opts.SevenBitST); len(sets) > 0 {
		out.Write(sets)
	}

	out.WriteString("\x1b[?25h") // show cursor

	r.integ.Write([]byte(out.String()))
	r.integ.Flush()
	if r.integ.IsBad() {
		r.bad = true
		return
	}
	if len(queries) > 0 {
		if a, ok := r.integ.(AwaitingResponder); ok {
			a.AwaitingResponse()
		}
		if c, ok := r.integ.(RequestCallbacker); ok {
			c.RequestCallback()
		}
	}

	surf.GCOverflow()
	surf.ClearDirtyFlags()
}

// flushRow diffs one row against the shadow and appends the minimal byte
// sequence to reconcile it, updating the running SGR state and cursor
// position trackers. A trailing run of cells that are unchanged except for
// having reverted to "erased" (space, default attrs) is collapsed to
// `ESC [ K` when the cleared-coloring capability is present.
func (r *Renderer) flushRow(surf *surface.Surface, y int, forceFull bool, out *strings.Builder, batch *sgrBatcher, state *sgrState, lastRow, lastCol *int) {
	w := surf.Width()

	if r.opts.ClearedColoring {
		if clearFrom, ok := clearableSuffix(surf, y, forceFull); ok {
			if clearFrom == 0 {
				r.position(out, lastRow, lastCol, 0, y)
				out.WriteString("\x1b[2K")
				syncShadowRow(surf, y, 0, w)
				*lastCol, *lastRow = -1, -1
				return
			}
			r.flushSpan(surf, y, 0, clearFrom, forceFull, out, batch, state, lastRow, lastCol)
			r.position(out, lastRow, lastCol, clearFrom, y)
			out.WriteString("\x1b[K")
			syncShadowRow(surf, y, clearFrom, w)
			*lastCol, *lastRow = -1, -1
			return
		}
	}

	r.flushSpan(surf, y, 0, w, forceFull, out, batch, state, lastRow, lastCol)
}

// softWrapJoins reports whether row y's last column and row y+1's first
// column both carry the soft-wrap marker, the condition under which their
// rows are joined by the terminal's own line wrap (§4.2 "Soft-wrap").
func softWrapJoins(surf *surface.Surface, y int) bool {
	w := surf.Width()
	if w == 0 {
		return false
	}
	return surf.HasSoftWrapMarker(w-1, y) && surf.HasSoftWrapMarker(0, y+1)
}

// syncShadowRow writes the surface's current cells for row y, columns
// [from,to), into the shadow so the next Flush diffs against what is
// actually on screen.
func syncShadowRow(surf *surface.Surface, y, from, to int) {
	w := surf.Width()
	shadow := surf.Shadow()
	for x := from; x < to; x++ {
		shadow[y*w+x] = surf.Get(x, y)
	}
}

// clearableSuffix reports whether row y's cells from some column to the end
// are all "erased" (space, default colors/style, no patch) and differ from
// the shadow, in which case they can be collapsed into a single erase
// sequence instead of individual space writes.
func clearableSuffix(surf *surface.Surface, y int, forceFull bool) (int, bool) {
	w := surf.Width()
	i := w
	for i > 0 {
		c := surf.Get(i-1, y)
		if !isErased(c) || surf.TextOf(c) != " " {
			break
		}
		i--
	}
	if i == w {
		return 0, false // nothing erased at the tail
	}
	// Only worth it if at least a few cells are involved and something in
	// the span actually changed.
	if w-i < 4 {
		return 0, false
	}
	if !forceFull {
		changed := false
		for x := i; x < w; x++ {
			if !surf.Get(x, y).SameAttrs(surf.Shadow()[y*w+x]) || surf.TextOf(surf.Get(x, y)) != surf.TextOf(surf.Shadow()[y*w+x]) {
				changed = true
				break
			}
		}
		if !changed {
			return 0, false
		}
	}
	return i, true
}

func isErased(c surface.Cell) bool {
	return c.FG.IsDefault() && c.BG.IsDefault() && c.Deco.IsDefault() &&
		c.Style == 0 && c.Patch == 0 && c.Expansion == 0
}

func (r *Renderer) flushSpan(surf *surface.Surface, y, from, to int, forceFull bool, out *strings.Builder, batch *sgrBatcher, state *sgrState, lastRow, lastCol *int) {
	w := surf.Width()
	shadow := surf.Shadow()

	x := from
	for x < to {
		cur := surf.Get(x, y)
		prev := shadow[y*w+x]
		if !forceFull && cur.SameAttrs(prev) && surf.TextOf(cur) == surf.TextOf(prev) {
			x++
			continue
		}

		r.position(out, lastRow, lastCol, x, y)

		for x < to {
			cur = surf.Get(x, y)
			prev = shadow[y*w+x]
			if !forceFull && cur.SameAttrs(prev) && surf.TextOf(cur) == surf.TextOf(prev) {
				break
			}
			if cur.IsWideRightPadding() {
				shadow[y*w+x] = cur
				x++
				*lastCol++
				continue
			}
			eff := effState(cur, r.opts)
			params := sgrParams(*state, eff)
			if len(params) > 0 {
				for _, p := range params {
					batch.add(p)
				}
				batch.flush()
				*state = eff
			}
			if cur.Patch != 0 {
				applyPatch(surf, cur.Patch, out)
			}
			out.WriteString(cellGlyph(surf, cur))
			if cur.Patch != 0 {
				out.Write(surf.Patches().Get(cur.Patch).Cleanup)
			}
			shadow[y*w+x] = cur
			x++
			*lastCol++
		}
		*lastRow = y
	}
}

func cellGlyph(surf *surface.Surface, c surface.Cell) string {
	t := surf.TextOf(c)
	if t == "" {
		return " "
	}
	return t
}

func effState(c surface.Cell, opts Options) sgrState {
	return sgrState{
		fg:        effectiveColor(c.FG, opts.UseTruecolor, colorCountOrDefault(opts.ColorCount)),
		bg:        effectiveColor(c.BG, opts.UseTruecolor, colorCountOrDefault(opts.ColorCount)),
		deco:      effectiveColor(c.Deco, opts.UseTruecolor, colorCountOrDefault(opts.ColorCount)),
		style:     c.Style,
		underline: c.Underline,
		patch:     c.Patch,
		valid:     true,
	}
}

func colorCountOrDefault(n int) int {
	if n == 0 {
		return 256
	}
	return n
}

func applyPatch(surf *surface.Surface, idx uint8, out *strings.Builder) {
	p := surf.Patches().Get(idx)
	out.Write(p.Setup)
}

// position emits the cheaper of two cursor-speculation mechanisms from
// §4.2 to move from (lastCol,lastRow) to (x,y): relative horizontal motion
// for a short forward hop on the same row, or an absolute CUP otherwise.
func (r *Renderer) position(out *strings.Builder, lastRow, lastCol *int, x, y int) {
	if *lastRow == y && *lastCol >= 0 && x >= *lastCol && x-*lastCol <= speculationBudget {
		if x > *lastCol {
			out.WriteString(ansi.CursorForward(x - *lastCol))
		}
		*lastCol = x
		return
	}
	out.WriteString(ansi.CursorPosition(x+1, y+1))
	*lastCol, *lastRow = x, y
}
