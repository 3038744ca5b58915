package surface

// maxPatches is the fixed table size (§3: "up to 255 patch slots"; index 0
// is reserved for "no patch").
const maxPatches = 255

// Patch is a pair of raw escape fragments wrapped around a cell's output,
// plus the optimize flag controlling whether adjacent cells sharing this
// patch may keep it active across them (§3).
type Patch struct {
	Setup, Cleanup []byte
	Optimize       bool
	live           bool
}

// patchTable is the fixed 255-entry array described in §3 and §9. Slots are
// reference-garbage-collected: a request that finds the table full reclaims
// every slot not referenced by either the current surface or its shadow.
type patchTable struct {
	slots [maxPatches + 1]Patch // slots[0] is unused (index 0 means "no patch")
	next  int                   // next unused slot, advancing until the table fills; widened past uint8 so it can exceed maxPatches without wrapping back to 0
}

func newPatchTable() *patchTable {
	return &patchTable{next: 1}
}

// request returns a slot index bound to (setup, cleanup, optimize),
// allocating a fresh slot or reclaiming one via the provided mark function
// if the table is full. markLive is called to mark every slot referenced by
// the current surface and its shadow; it must be supplied by the caller
// because only the Surface knows which cells are live.
func (t *patchTable) request(setup, cleanup []byte, optimize bool, markLive func(mark func(slot uint8))) uint8 {
	if t.next <= maxPatches {
		idx := uint8(t.next)
		t.next++
		t.slots[idx] = Patch{Setup: setup, Cleanup: cleanup, Optimize: optimize, live: true}
		return idx
	}
	t.reclaim(markLive)
	for idx := uint8(1); idx <= maxPatches; idx++ {
		if !t.slots[idx].live {
			t.slots[idx] = Patch{Setup: setup, Cleanup: cleanup, Optimize: optimize, live: true}
			return idx
		}
	}
	// Every slot is referenced; degrade to "no patch" rather than corrupt
	// an in-use slot.
	return 0
}

// reclaim frees every slot not marked live by markLive.
func (t *patchTable) reclaim(markLive func(mark func(slot uint8))) {
	marked := make([]bool, maxPatches+1)
	markLive(func(slot uint8) {
		if slot > 0 && slot <= maxPatches {
			marked[slot] = true
		}
	})
	for idx := uint8(1); idx <= maxPatches; idx++ {
		if t.slots[idx].live && !marked[idx] {
			t.slots[idx] = Patch{}
		}
	}
}

// Get returns the patch bound to idx, or the zero Patch for idx==0.
func (t *patchTable) Get(idx uint8) Patch {
	if idx == 0 || idx > maxPatches {
		return Patch{}
	}
	return t.slots[idx]
}
