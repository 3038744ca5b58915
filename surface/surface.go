// Package surface implements the double-buffered cell grid of spec.md §3
// and §4.1: text/attribute writes, clipping, inline/overflow cluster
// storage, and the copy/resize/duplicate/tint family of bulk operations.
package surface

import "vtcore/color"

// TileMode controls how copyRect treats a partial cluster at the edge of
// the copied region (§4.1).
type TileMode uint8

const (
	NoTile TileMode = iota
	Preserve
	Put
)

// Surface is a Width x Height cell grid. A primary surface (created with
// New) carries a shadow — the renderer's diff baseline — and owns the
// overflow string table and patch slot table. An auxiliary surface
// (NewAux, used as a back buffer) omits the shadow.
type Surface struct {
	width, height int
	cells         []Cell
	shadow        []Cell // nil for auxiliary surfaces

	overflow *overflowTable
	patches  *patchTable

	dirtyRows []bool
}

func fillEmpty(cells []Cell) {
	e := Empty()
	for i := range cells {
		cells[i] = e
	}
}

// New creates a primary surface with a shadow, overflow table, and patch
// table of its own.
func New(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s := &Surface{
		width: width, height: height,
		cells:     make([]Cell, width*height),
		shadow:    make([]Cell, width*height),
		overflow:  newOverflowTable(),
		patches:   newPatchTable(),
		dirtyRows: make([]bool, height),
	}
	fillEmpty(s.cells)
	fillEmpty(s.shadow)
	return s
}

// NewAux creates an auxiliary surface (no shadow) with its own overflow and
// patch tables, suitable as an off-screen back buffer.
func NewAux(width, height int) *Surface {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s := &Surface{
		width: width, height: height,
		cells:    make([]Cell, width*height),
		overflow: newOverflowTable(),
		patches:  newPatchTable(),
	}
	fillEmpty(s.cells)
	return s
}

func (s *Surface) Width() int  { return s.width }
func (s *Surface) Height() int { return s.height }

func (s *Surface) inBounds(x, y int) bool {
	return x >= 0 && x < s.width && y >= 0 && y < s.height
}

func (s *Surface) index(x, y int) int { return y*s.width + x }

// HasShadow reports whether this surface carries the renderer's diff
// baseline.
func (s *Surface) HasShadow() bool { return s.shadow != nil }

// Shadow exposes the diff baseline for the renderer package. Returns nil
// for an auxiliary surface.
func (s *Surface) Shadow() []Cell { return s.shadow }

// Cells exposes the live grid for the renderer package.
func (s *Surface) Cells() []Cell { return s.cells }

// Patches exposes the patch table for the renderer package.
func (s *Surface) Patches() *patchTable { return s.patches }

// RowDirty reports whether row y has been written to since the last
// ClearDirtyFlags call (renderer fast path, grounded on the teacher's
// per-row dirty bitmap).
func (s *Surface) RowDirty(y int) bool {
	if y < 0 || y >= len(s.dirtyRows) {
		return false
	}
	return s.dirtyRows[y]
}

// ClearDirtyFlags resets the per-row dirty bitmap; call after a flush.
func (s *Surface) ClearDirtyFlags() {
	for i := range s.dirtyRows {
		s.dirtyRows[i] = false
	}
}

func (s *Surface) markRowDirty(y int) {
	if y >= 0 && y < len(s.dirtyRows) {
		s.dirtyRows[y] = true
	}
}

// markLivePatches walks current and shadow cells marking every patch slot they
// reference, used by the patch table's reclamation pass.
func (s *Surface) markLivePatches(mark func(uint8)) {
	for i := range s.cells {
		if s.cells[i].Patch != 0 {
			mark(s.cells[i].Patch)
		}
	}
	for i := range s.shadow {
		if s.shadow[i].Patch != 0 {
			mark(s.shadow[i].Patch)
		}
	}
}

// markLiveOverflow walks current and shadow cells marking every overflow
// entry they reference (§3's mark-and-sweep invariant).
func (s *Surface) markLiveOverflow() {
	s.overflow.beginMark()
	for i := range s.cells {
		if s.cells[i].IsOverflow() {
			s.overflow.mark(s.cells[i].OverflowID())
		}
	}
	for i := range s.shadow {
		if s.shadow[i].IsOverflow() {
			s.overflow.mark(s.shadow[i].OverflowID())
		}
	}
}

// GCOverflow runs a mark-sweep pass over the overflow table, reclaiming
// any entry no longer referenced by a current or shadow cell. Safe to call
// after any batch of writes; the renderer calls it once per flush.
func (s *Surface) GCOverflow() {
	s.markLiveOverflow()
	s.overflow.sweep()
}

func (s *Surface) internText(cl cluster) text {
	if len(cl.text) <= inlineCap {
		return textFromInline(cl.text)
	}
	id := s.overflow.intern(cl.text)
	return textFromOverflow(id)
}

// PeekText returns the cluster text at (x,y), or "" out of bounds or on the
// right half of a wide cluster.
func (s *Surface) PeekText(x, y int) string {
	if !s.inBounds(x, y) {
		return ""
	}
	c := s.cells[s.index(x, y)]
	return s.cellText(c)
}

// TextOf returns the cluster text carried by an arbitrary Cell belonging to
// this surface (current or shadow), resolving overflow references against
// this surface's own table. Used by the renderer package to compare and
// emit cell text without exposing the overflow table itself.
func (s *Surface) TextOf(c Cell) string {
	return s.cellText(c)
}

func (s *Surface) cellText(c Cell) string {
	switch c.txt.kind {
	case textInline:
		return string(c.txt.inline[:c.txt.inlineLen])
	case textOverflow:
		return s.overflow.text(c.txt.overflow)
	default:
		return ""
	}
}

// Get returns the cell at (x,y), or an empty cell out of bounds.
func (s *Surface) Get(x, y int) Cell {
	if !s.inBounds(x, y) {
		return Empty()
	}
	return s.cells[s.index(x, y)]
}

func (s *Surface) set(x, y int, c Cell) {
	if !s.inBounds(x, y) {
		return
	}
	s.cells[s.index(x, y)] = c
	s.markRowDirty(y)
}

// vanishRun erases any cluster overlapping [lo, hi) in row y, turning every
// cell of that cluster (both the head and any trailing padding cells) into
// a space carrying the OLD attributes (§4.1 "vanish").
func (s *Surface) vanishRun(y, lo, hi int) {
	// First, find clusters whose head lies before lo but which extend into
	// [lo, hi), and clusters whose head lies inside [lo, hi).
	for x := 0; x < s.width; x++ {
		c := s.Get(x, y)
		if c.Expansion == 0 || c.IsWideRightPadding() {
			continue
		}
		end := x + int(c.Expansion) + 1
		if end <= lo || x >= hi {
			continue
		}
		s.vanishCluster(x, y, c)
	}
}

func (s *Surface) vanishCluster(headX, y int, head Cell) {
	space := head
	space.txt = textFromInline(" ")
	space.Expansion = 0
	n := int(head.Expansion) + 1
	for i := 0; i < n; i++ {
		s.set(headX+i, y, space)
	}
}

// clipBounds resolves the optional [clipX0, clipX1) pair; pass -1,-1 for
// "no clip" (the full row width).
func (s *Surface) clipBounds(clipX0, clipX1 int) (int, int) {
	lo, hi := 0, s.width
	if clipX0 >= 0 {
		lo = clipX0
	}
	if clipX1 >= 0 && clipX1 < hi {
		hi = clipX1
	}
	if lo < 0 {
		lo = 0
	}
	if hi > s.width {
		hi = s.width
	}
	return lo, hi
}

// Write places text at (x,y) with the given attribute template, per
// §4.1. clipX0/clipX1 optionally bound the writable columns; pass -1,-1 to
// write unclipped.
func (s *Surface) Write(x, y int, text string, attr Attr, clipX0, clipX1 int) {
	if s.width == 0 || s.height == 0 || !s.inBounds(0, y) {
		return
	}
	lo, hi := s.clipBounds(clipX0, clipX1)
	clusters := assembleClusters(text)

	cx := x
	for _, cl := range clusters {
		if cx >= hi {
			break
		}
		end := cx + cl.width

		// Vanish any pre-existing cluster overlapping [cx, end).
		vlo, vhi := cx, end
		if vlo < 0 {
			vlo = 0
		}
		if vhi > s.width {
			vhi = s.width
		}
		s.vanishRun(y, vlo, vhi)

		if cl.width == 2 && (cx < lo || end > hi) {
			// A 2-wide cluster straddling the clip boundary: only the
			// in-range half is materialized, as a space with the NEW
			// attributes.
			for _, hx := range [2]int{cx, cx + 1} {
				if hx >= lo && hx < hi {
					space := Cell{Expansion: 0}
					attr.applyTo(&space, s.patches, s.markLivePatches)
					space.txt = textFromInline(" ")
					s.set(hx, y, space)
				}
			}
			cx = end
			continue
		}
		if cx < lo || end > hi {
			cx = end
			continue
		}

		head := Cell{Expansion: uint8(cl.width - 1)}
		attr.applyTo(&head, s.patches, s.markLivePatches)
		head.txt = s.internText(cl)
		s.set(cx, y, head)

		for i := 1; i < cl.width; i++ {
			trail := Cell{Expansion: 0}
			attr.applyTo(&trail, s.patches, s.markLivePatches)
			trail.txt = textPaddingSentinel()
			s.set(cx+i, y, trail)
		}
		cx = end
	}
}

// ClearRect clears cells in [x0,x1) x [y0,y1) to spaces with default
// attributes.
func (s *Surface) ClearRect(x0, y0, x1, y1 int) {
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > s.width {
		x1 = s.width
	}
	if y1 > s.height {
		y1 = s.height
	}
	e := Empty()
	for y := y0; y < y1; y++ {
		s.vanishRun(y, x0, x1)
		for x := x0; x < x1; x++ {
			s.set(x, y, e)
		}
	}
}

// Clear clears the whole surface.
func (s *Surface) Clear() {
	s.ClearRect(0, 0, s.width, s.height)
}

// SetFG sets only the foreground color at (x,y), leaving text/other
// attributes untouched.
func (s *Surface) SetFG(x, y int, c color.Color) {
	if !s.inBounds(x, y) {
		return
	}
	idx := s.index(x, y)
	s.cells[idx].FG = c
	s.markRowDirty(y)
}

// SetBG sets only the background color at (x,y).
func (s *Surface) SetBG(x, y int, c color.Color) {
	if !s.inBounds(x, y) {
		return
	}
	idx := s.index(x, y)
	s.cells[idx].BG = c
	s.markRowDirty(y)
}

// SetDeco sets only the decoration color at (x,y).
func (s *Surface) SetDeco(x, y int, c color.Color) {
	if !s.inBounds(x, y) {
		return
	}
	idx := s.index(x, y)
	s.cells[idx].Deco = c
	s.markRowDirty(y)
}

// SetSoftWrapMarker flags (or clears) the soft-wrap marker on the cell at
// (x,y), used by the renderer to join wrapped rows (§4.2).
func (s *Surface) SetSoftWrapMarker(x, y int, on bool) {
	if !s.inBounds(x, y) {
		return
	}
	idx := s.index(x, y)
	if on {
		s.cells[idx].Style = s.cells[idx].Style.With(SoftWrap)
	} else {
		s.cells[idx].Style = s.cells[idx].Style.Without(SoftWrap)
	}
	s.markRowDirty(y)
}

// HasSoftWrapMarker peeks the soft-wrap marker at (x,y).
func (s *Surface) HasSoftWrapMarker(x, y int) bool {
	return s.Get(x, y).Style.Has(SoftWrap)
}

// Resize changes the surface's dimensions. Content is discarded (the
// renderer must be forced to a full repaint on the next flush, per §4.1).
func (s *Surface) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	s.width, s.height = width, height
	s.cells = make([]Cell, width*height)
	fillEmpty(s.cells)
	if s.shadow != nil {
		s.shadow = make([]Cell, width*height)
		fillEmpty(s.shadow)
	}
	s.dirtyRows = make([]bool, height)
	for i := range s.dirtyRows {
		s.dirtyRows[i] = true
	}
	s.overflow = newOverflowTable()
	s.patches = newPatchTable()
}

// Duplicate returns a deep copy of s, including its own overflow and patch
// tables (so the copy does not share GC lifetime with the original). The
// copy has a shadow iff s does.
func (s *Surface) Duplicate() *Surface {
	dup := &Surface{
		width: s.width, height: s.height,
		cells:    append([]Cell(nil), s.cells...),
		overflow: newOverflowTable(),
		patches:  newPatchTable(),
	}
	if s.shadow != nil {
		dup.shadow = append([]Cell(nil), s.shadow...)
	}
	dup.dirtyRows = make([]bool, s.height)
	copy(dup.dirtyRows, s.dirtyRows)

	// Re-intern overflow text and rebuild patch slots so the duplicate's
	// ids are valid against its own tables rather than aliasing s's.
	remapOverflow := make(map[int32]int32)
	remapPatch := make(map[uint8]uint8)
	remap := func(cells []Cell) {
		for i := range cells {
			c := &cells[i]
			if c.IsOverflow() {
				old := c.OverflowID()
				if newID, ok := remapOverflow[old]; ok {
					c.txt = textFromOverflow(newID)
				} else {
					newID := dup.overflow.intern(s.overflow.text(old))
					remapOverflow[old] = newID
					c.txt = textFromOverflow(newID)
				}
			}
			if c.Patch != 0 {
				if newIdx, ok := remapPatch[c.Patch]; ok {
					c.Patch = newIdx
				} else {
					p := s.patches.Get(c.Patch)
					newIdx := dup.patches.request(p.Setup, p.Cleanup, p.Optimize, func(func(uint8)) {})
					remapPatch[c.Patch] = newIdx
					c.Patch = newIdx
				}
			}
		}
	}
	remap(dup.cells)
	if dup.shadow != nil {
		remap(dup.shadow)
	}
	return dup
}

// SameContents reports whether two surfaces have identical dimensions and
// cell-by-cell visible content (text + attributes), independent of
// overflow/patch table layout (§8's duplicate round-trip property).
func (s *Surface) SameContents(other *Surface) bool {
	if s.width != other.width || s.height != other.height {
		return false
	}
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			a, b := s.Get(x, y), other.Get(x, y)
			if !a.sameAttrs(b) || a.Expansion != b.Expansion {
				return false
			}
			if s.cellText(a) != other.cellText(b) {
				return false
			}
		}
	}
	return true
}

// Tint rewrites every cell's colors through recolor, leaving text and
// style untouched.
func (s *Surface) Tint(recolor func(color.Color) color.Color) {
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			idx := s.index(x, y)
			s.cells[idx].FG = recolor(s.cells[idx].FG)
			s.cells[idx].BG = recolor(s.cells[idx].BG)
			s.cells[idx].Deco = recolor(s.cells[idx].Deco)
		}
		s.markRowDirty(y)
	}
}

// Rect is an axis-aligned region used by CopyRect.
type Rect struct {
	X0, Y0, X1, Y1 int
}

func (r Rect) width() int  { return r.X1 - r.X0 }
func (r Rect) height() int { return r.Y1 - r.Y0 }

// CopyRect copies src's content in rect to dst at pos, handling partial
// clusters at the left/right edges per tileLeft/tileRight (§4.1). A
// same-surface copy (src == dst) is routed through a one-cell-padded
// temporary buffer so overlap cannot corrupt the result.
func CopyRect(src *Surface, rect Rect, dst *Surface, pos [2]int, tileLeft, tileRight TileMode) {
	w, h := rect.width(), rect.height()
	if w <= 0 || h <= 0 {
		return
	}

	read := src
	rx0, ry0 := rect.X0, rect.Y0
	if src == dst {
		tmp := NewAux(w+2, h)
		for y := 0; y < h; y++ {
			for x := -1; x <= w; x++ {
				sx, sy := rect.X0+x, rect.Y0+y
				if sx < 0 || sx >= src.width {
					continue
				}
				c := src.Get(sx, sy)
				tmp.set(x+1, y, c)
			}
		}
		read = tmp
		rx0, ry0 = 1, 0
	}

	// Cross-surface copies must re-intern overflow text and re-request patch
	// slots into dst's own tables: a cell's overflow id / patch index is
	// only valid against the table that produced it, and src's tables are
	// not dst's unless this is a same-surface move.
	remapOverflow := make(map[int32]int32)
	remapPatch := make(map[uint8]uint8)
	rehome := func(c Cell) Cell {
		if src == dst {
			return c
		}
		if c.IsOverflow() {
			old := c.OverflowID()
			newID, ok := remapOverflow[old]
			if !ok {
				newID = dst.overflow.intern(src.overflow.text(old))
				remapOverflow[old] = newID
			}
			c.txt = textFromOverflow(newID)
		}
		if c.Patch != 0 {
			newIdx, ok := remapPatch[c.Patch]
			if !ok {
				p := src.patches.Get(c.Patch)
				newIdx = dst.patches.request(p.Setup, p.Cleanup, p.Optimize, func(func(uint8)) {})
				remapPatch[c.Patch] = newIdx
			}
			c.Patch = newIdx
		}
		return c
	}

	dx0, dy0 := pos[0], pos[1]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := rehome(read.Get(rx0+x, ry0+y))
			atLeftEdge := x == 0
			atRightEdge := x == w-1

			if atLeftEdge && c.IsWideRightPadding() {
				switch tileLeft {
				case NoTile:
					c = Empty()
				case Put:
					// Extend the copied region by one cell to carry the
					// full cluster, reading one column to the left.
					full := rehome(read.Get(rx0+x-1, ry0+y))
					dst.set(dx0+x-1, dy0+y, full)
				case Preserve:
					existing := dst.Get(dx0+x, dy0+y)
					if existing.IsWideRightPadding() && dst.Get(dx0+x-1, dy0+y).Expansion == read.Get(rx0+x-1, ry0+y).Expansion {
						continue // leave the matching destination cluster untouched
					}
				}
			}
			if atRightEdge && c.Expansion > 0 {
				switch tileRight {
				case NoTile:
					c = Empty()
				case Put:
					if rx0+x+1 < read.width {
						trail := rehome(read.Get(rx0+x+1, ry0+y))
						dst.set(dx0+x+1, dy0+y, trail)
					}
				case Preserve:
					// fall through, head is copied as-is; trailing cell
					// handled by its own iteration if in range
				}
			}
			dst.set(dx0+x, dy0+y, c)
		}
	}
}
