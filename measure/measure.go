// Package measure implements the restartable text-measurement accumulator
// described in spec.md §4.5: it counts codepoints, grapheme clusters,
// display columns, and code-units while feeding UTF-8/16/32 input, stopping
// early when any configured limit is reached so a caller can wrap text
// against a width without re-scanning from the start.
package measure

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// Limits bounds the accumulator. A zero value means "no limit" for that
// dimension.
type Limits struct {
	Codepoints int
	Clusters   int
	Width      int
	Ref        int // code-units of the original encoding consumed
}

// Counts reports the accumulator's committed totals.
type Counts struct {
	Codepoints int
	Clusters   int
	Width      int
	Ref        int
}

// Accumulator is a restartable counter. Create with New, feed bytes with
// Feed8/Feed16/Feed32, and read committed totals with Last. When a limit is
// hit mid-cluster, the accumulator only commits the last fully completed
// cluster; raising the limit and feeding more resumes from there.
type Accumulator struct {
	limits    Limits
	committed Counts

	pending []rune // codepoints of the cluster currently being assembled
	pendingRef int // ref units consumed by the pending cluster so far
}

// New creates an accumulator with the given limits.
func New(limits Limits) *Accumulator {
	return &Accumulator{limits: limits}
}

// Last returns the counts committed so far.
func (a *Accumulator) Last() Counts {
	return a.committed
}

// SetLimits raises (or lowers) the limits, allowing Feed* to be called again
// after a "limit reached" result.
func (a *Accumulator) SetLimits(limits Limits) {
	a.limits = limits
}

// limitReached reports whether committing one more cluster of width w and
// ref units r would exceed any configured limit.
func (a *Accumulator) limitReached(clusterCPs, w, r int) bool {
	if a.limits.Codepoints > 0 && a.committed.Codepoints+clusterCPs > a.limits.Codepoints {
		return true
	}
	if a.limits.Clusters > 0 && a.committed.Clusters+1 > a.limits.Clusters {
		return true
	}
	if a.limits.Width > 0 && a.committed.Width+w > a.limits.Width {
		return true
	}
	if a.limits.Ref > 0 && a.committed.Ref+r > a.limits.Ref {
		return true
	}
	return false
}

// commitPending closes out the in-progress cluster, if any, and reports
// whether a limit now blocks committing it.
func (a *Accumulator) commitPending() bool {
	if len(a.pending) == 0 {
		return false
	}
	w := clusterWidth(a.pending)
	if a.limitReached(len(a.pending), w, a.pendingRef) {
		return true
	}
	a.committed.Codepoints += len(a.pending)
	a.committed.Clusters++
	a.committed.Width += w
	a.committed.Ref += a.pendingRef
	a.pending = a.pending[:0]
	a.pendingRef = 0
	return false
}

func clusterWidth(cps []rune) int {
	if len(cps) == 0 {
		return 0
	}
	w := runewidth.RuneWidth(cps[0])
	if w == 0 {
		w = 1
	}
	return w
}

// isZeroWidthJoinerish reports whether r is a combining mark or other
// zero-width codepoint that should extend the current cluster rather than
// start a new one, matching surface's cluster-assembly rule (§4.1).
func isZeroWidthJoinerish(r rune) bool {
	return runewidth.RuneWidth(r) == 0
}

// feedRune folds one decoded codepoint (with its ref-unit cost) into the
// pending cluster, closing the previous cluster first if r starts a new one.
// Returns true if a limit now blocks further progress.
func (a *Accumulator) feedRune(r rune, refUnits int) bool {
	if len(a.pending) > 0 && !isZeroWidthJoinerish(r) {
		if a.commitPending() {
			return true
		}
	}
	a.pending = append(a.pending, r)
	a.pendingRef += refUnits
	return false
}

// Feed8 consumes UTF-8 bytes. When final is true, any trailing pending
// cluster is committed (subject to limits) before returning. Returns
// (consumed, limitReached).
func (a *Accumulator) Feed8(b []byte, final bool) (int, bool) {
	i := 0
	for i < len(b) {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			r = 0xFFFD
			size = 1
		}
		if a.feedRune(r, size) {
			return a.dropPending(i), true
		}
		i += size
	}
	if final {
		if a.commitPending() {
			return a.dropPending(i), true
		}
	}
	return i, false
}

// dropPending discards the cluster a limit blocked and returns how many
// input units of this call precede it, so a caller can resume feeding from
// that offset after raising the limit.
func (a *Accumulator) dropPending(i int) int {
	consumed := i - a.pendingRef
	if consumed < 0 {
		consumed = 0
	}
	a.pending = a.pending[:0]
	a.pendingRef = 0
	return consumed
}

// Feed16 consumes UTF-16 code units, handling surrogate pairs.
func (a *Accumulator) Feed16(u []uint16, final bool) (int, bool) {
	i := 0
	for i < len(u) {
		r := rune(u[i])
		n := 1
		if utf16.IsSurrogate(r) {
			if i+1 < len(u) {
				if dec := utf16.DecodeRune(r, rune(u[i+1])); dec != utf8.RuneError {
					r = dec
					n = 2
				} else {
					r = 0xFFFD
				}
			} else {
				break // incomplete pair at the end; wait for more input
			}
		}
		if a.feedRune(r, n) {
			return a.dropPending(i), true
		}
		i += n
	}
	if final {
		if a.commitPending() {
			return a.dropPending(i), true
		}
	}
	return i, false
}

// Feed32 consumes UTF-32 codepoints directly.
func (a *Accumulator) Feed32(u []rune, final bool) (int, bool) {
	i := 0
	for i < len(u) {
		if a.feedRune(u[i], 1) {
			return a.dropPending(i), true
		}
		i++
	}
	if final {
		if a.commitPending() {
			return a.dropPending(i), true
		}
	}
	return i, false
}

// ClusterCount returns the number of grapheme clusters in s per the uniseg
// segmentation rule, used by callers that want a quick width-independent
// cluster count without running the restartable accumulator.
func ClusterCount(s string) int {
	n := 0
	state := -1
	for len(s) > 0 {
		_, rest, _, newState := uniseg.StepString(s, state)
		state = newState
		s = rest
		n++
	}
	return n
}
