// Package restore implements the immutable-by-append restore-sequence
// accumulator of spec.md §6: an undo log for every irreversible action the
// core has taken (mode sets, title push, color changes, mouse enable, wrap
// disable, cursor shape reset, alternate-screen enter). Prepending (rather
// than appending) guarantees the fragments undo in reverse order.
package restore

// Sequence accumulates undo fragments. Each Prepend call pushes bytes to
// the front, so Bytes() always returns "undo the most recent action first".
type Sequence struct {
	data []byte
}

// New returns an empty restore sequence.
func New() *Sequence {
	return &Sequence{}
}

// Prepend pushes undo bytes to the front of the sequence.
func (s *Sequence) Prepend(fragment []byte) {
	next := make([]byte, 0, len(fragment)+len(s.data))
	next = append(next, fragment...)
	next = append(next, s.data...)
	s.data = next
}

// Bytes returns the full restore sequence, oldest-action-undone-last.
func (s *Sequence) Bytes() []byte {
	return s.data
}

// Empty reports whether any fragment has been recorded.
func (s *Sequence) Empty() bool {
	return len(s.data) == 0
}
