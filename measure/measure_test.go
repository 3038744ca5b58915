package measure

import "testing"

func TestFeed8Basic(t *testing.T) {
	a := New(Limits{})
	n, limited := a.Feed8([]byte("hello"), true)
	if limited {
		t.Fatal("unexpected limit hit")
	}
	if n != 5 {
		t.Fatalf("expected to consume 5 bytes, got %d", n)
	}
	c := a.Last()
	if c.Codepoints != 5 || c.Clusters != 5 || c.Width != 5 {
		t.Fatalf("unexpected counts: %+v", c)
	}
}

func TestFeed8WideRune(t *testing.T) {
	a := New(Limits{})
	a.Feed8([]byte("あ"), true)
	c := a.Last()
	if c.Width != 2 {
		t.Fatalf("expected width 2 for wide rune, got %d", c.Width)
	}
	if c.Clusters != 1 {
		t.Fatalf("expected 1 cluster, got %d", c.Clusters)
	}
}

func TestFeed8WidthLimitStopsAtClusterBoundary(t *testing.T) {
	a := New(Limits{Width: 3})
	n, limited := a.Feed8([]byte("abcd"), true)
	if !limited {
		t.Fatal("expected limit reached")
	}
	if n != 3 {
		t.Fatalf("expected to consume 3 bytes before hitting the limit, got %d", n)
	}
	c := a.Last()
	if c.Width != 3 {
		t.Fatalf("expected committed width 3, got %d", c.Width)
	}
}

func TestFeed8ResumeAfterRaisingLimit(t *testing.T) {
	a := New(Limits{Width: 2})
	a.Feed8([]byte("abcd"), false)
	a.SetLimits(Limits{Width: 10})
	n, limited := a.Feed8([]byte("cd"), true)
	if limited {
		t.Fatal("unexpected limit after raising it")
	}
	_ = n
	c := a.Last()
	if c.Width != 4 {
		t.Fatalf("expected width 4 after resume, got %d", c.Width)
	}
}

func TestFeed16SurrogatePair(t *testing.T) {
	a := New(Limits{})
	// U+1F600 GRINNING FACE as a surrogate pair.
	units := []uint16{0xD83D, 0xDE00}
	n, limited := a.Feed16(units, true)
	if limited {
		t.Fatal("unexpected limit")
	}
	if n != 2 {
		t.Fatalf("expected to consume both surrogate units, got %d", n)
	}
	c := a.Last()
	if c.Codepoints != 1 {
		t.Fatalf("expected 1 codepoint for surrogate pair, got %d", c.Codepoints)
	}
}

func TestClusterCount(t *testing.T) {
	if got := ClusterCount("abc"); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
