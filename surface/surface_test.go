package surface

import (
	"strings"
	"testing"

	"vtcore/color"
)

func TestSimpleTextWrite(t *testing.T) {
	s := New(80, 24)
	s.Clear()
	s.Write(10, 3, "Sample", NewAttr(), -1, -1)

	want := "Sample"
	for i, want := range want {
		c := s.Get(10+i, 3)
		if c.txt.kind != textInline || string(c.txt.inline[:c.txt.inlineLen]) != string(want) {
			t.Fatalf("cell (%d,3): got %q want %q", 10+i, s.PeekText(10+i, 3), string(want))
		}
	}
	if got := s.PeekText(9, 3); got != " " {
		t.Fatalf("expected untouched cell to be space, got %q", got)
	}
}

func TestWideClusterVanish(t *testing.T) {
	s := New(80, 24)
	s.Clear()
	redGreen := NewAttr().Foreground(color.Red).Background(color.Green)
	s.Write(3, 3, "あえ", redGreen, -1, -1)

	yellowBlue := NewAttr().Foreground(color.Yellow).Background(color.Blue)
	s.Write(4, 3, "ab", yellowBlue, -1, -1)

	if got := s.PeekText(3, 3); got != " " {
		t.Fatalf("(3,3): expected vanished space, got %q", got)
	}
	c3 := s.Get(3, 3)
	if c3.FG != color.Red || c3.BG != color.Green {
		t.Fatalf("(3,3): expected old red-on-green attrs, got fg=%v bg=%v", c3.FG, c3.BG)
	}

	if got := s.PeekText(4, 3); got != "a" {
		t.Fatalf("(4,3): got %q", got)
	}
	c4 := s.Get(4, 3)
	if c4.FG != color.Yellow || c4.BG != color.Blue {
		t.Fatalf("(4,3): expected yellow-on-blue, got fg=%v bg=%v", c4.FG, c4.BG)
	}

	if got := s.PeekText(5, 3); got != "b" {
		t.Fatalf("(5,3): got %q", got)
	}

	if got := s.PeekText(6, 3); got != " " {
		t.Fatalf("(6,3): expected vanished space, got %q", got)
	}
	c6 := s.Get(6, 3)
	if c6.FG != color.Red || c6.BG != color.Green {
		t.Fatalf("(6,3): expected old red-on-green attrs, got fg=%v bg=%v", c6.FG, c6.BG)
	}
}

func TestDuplicateSameContents(t *testing.T) {
	s := New(40, 10)
	s.Write(2, 2, "hello world, this needs overflow storage maybe", NewAttr(), -1, -1)
	dup := s.Duplicate()
	if !s.SameContents(dup) {
		t.Fatal("duplicate must have same contents as original")
	}
	// Mutating the duplicate must not affect the original.
	dup.Write(2, 2, "XXXXX", NewAttr(), -1, -1)
	if s.PeekText(2, 2) == dup.PeekText(2, 2) {
		t.Fatal("mutating the duplicate leaked into the original")
	}
}

func TestOverflowTableOnlyHoldsLongText(t *testing.T) {
	s := New(40, 10)
	s.Write(0, 0, "short", NewAttr(), -1, -1)
	if s.overflow.liveCount() != 0 {
		t.Fatalf("expected no overflow entries for short text, got %d", s.overflow.liveCount())
	}
	// A base rune followed by a long run of combining marks assembles into
	// a single cluster (cluster.go appends zero-width codepoints up to
	// maxClusterBytes); past inlineCap (8 bytes) that cluster must spill
	// into the overflow table.
	long := "e" + strings.Repeat("́", 10)
	s.Write(0, 1, long, NewAttr(), -1, -1)
	if s.overflow.liveCount() != 1 {
		t.Fatalf("expected one overflow entry for long combining cluster, got %d", s.overflow.liveCount())
	}
	if got := s.PeekText(0, 1); got != long {
		t.Fatalf("unexpected overflowed cluster text: got %q want %q", got, long)
	}
}

func TestResizeForcesEmptyGrid(t *testing.T) {
	s := New(10, 5)
	s.Write(0, 0, "x", NewAttr(), -1, -1)
	s.Resize(20, 8)
	if s.Width() != 20 || s.Height() != 8 {
		t.Fatalf("unexpected size after resize: %dx%d", s.Width(), s.Height())
	}
	if got := s.PeekText(0, 0); got != " " {
		t.Fatalf("expected cleared content after resize, got %q", got)
	}
}

func TestZeroDimensionSurfaceIsNoop(t *testing.T) {
	s := New(0, 0)
	s.Write(0, 0, "x", NewAttr(), -1, -1) // must not panic
	if s.Width() != 0 || s.Height() != 0 {
		t.Fatal("expected zero dimensions")
	}
}

func TestCopyRectNoTileClearsPartialEdge(t *testing.T) {
	src := New(10, 1)
	src.Write(0, 0, "あb", NewAttr(), -1, -1)
	dst := New(10, 1)
	dst.Write(0, 0, "xy", NewAttr(), -1, -1)
	// The region starts on the right half of あ, so its left edge is cleared.
	CopyRect(src, Rect{X0: 1, Y0: 0, X1: 3, Y1: 1}, dst, [2]int{0, 0}, NoTile, NoTile)
	if got := dst.PeekText(0, 0); got != " " {
		t.Fatalf("got %q", got)
	}
	if got := dst.PeekText(1, 0); got != "b" {
		t.Fatalf("got %q", got)
	}
}
