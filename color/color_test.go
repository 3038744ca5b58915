package color

import "testing"

func TestRgbRoundTrip(t *testing.T) {
	c := Rgb(255, 128, 1)
	if c.TagOf() != RGB {
		t.Fatalf("expected RGB tag, got %v", c.TagOf())
	}
	r, g, b := c.RGB()
	if r != 255 || g != 128 || b != 1 {
		t.Fatalf("got (%d,%d,%d)", r, g, b)
	}
}

func TestIndexOutOfRangeNameIsDefault(t *testing.T) {
	c := Name(200)
	if !c.IsDefault() {
		t.Fatalf("expected out-of-range named color to be default, got %v", c)
	}
}

func TestHex(t *testing.T) {
	c := Hex(0xFF5500)
	r, g, b := c.RGB()
	if r != 0xFF || g != 0x55 || b != 0x00 {
		t.Fatalf("got (%x,%x,%x)", r, g, b)
	}
}

func TestEqual(t *testing.T) {
	if !Index(42).Equal(Index(42)) {
		t.Fatal("expected equal indexed colors to compare equal")
	}
	if Index(42).Equal(Index(43)) {
		t.Fatal("expected different indexed colors to compare unequal")
	}
	if Def().Equal(Index(0)) {
		t.Fatal("default and indexed(0) must not collide")
	}
}
