package input

import "testing"

func collect(d *Decoder, data []byte) []Event {
	var got []Event
	d.Emit = func(e Event) { got = append(got, e) }
	d.Feed(data)
	return got
}

func TestArrowUpWithShiftModifier(t *testing.T) {
	// spec.md §8 scenario 3: `CSI 1;2 A` is Shift+ArrowUp.
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b[1;2A"))
	if len(events) != 1 {
		t.Fatalf("expected exactly one event, got %d: %+v", len(events), events)
	}
	e := events[0]
	if e.Kind != KindKey || e.Atom != AtomArrowUp {
		t.Fatalf("expected ArrowUp key event, got %+v", e)
	}
	if !e.Modifier.Has(ModShift) {
		t.Fatalf("expected Shift modifier set, got %v", e.Modifier)
	}
	if e.Modifier.Has(ModAlt) || e.Modifier.Has(ModCtrl) {
		t.Fatalf("expected no other modifiers, got %v", e.Modifier)
	}
}

func TestBareArrowUpHasNoModifier(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b[A"))
	if len(events) != 1 || events[0].Atom != AtomArrowUp || events[0].Modifier != 0 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestPasteGrouping(t *testing.T) {
	// spec.md §8 scenario 4: with handle_paste=true, feeding
	// `CSI 200~AB CSI 201~` yields Paste{"",initial=true,final=false},
	// Paste{"A"}, Paste{"B"}, Paste{"",initial=false,final=true} — plain
	// characters inside the bracket become per-char Paste events, not Char
	// events, and the boundary events carry empty text.
	d := NewDecoder(nil)
	d.HandlePaste(true)
	events := collect(d, []byte("\x1b[200~AB\x1b[201~"))
	if len(events) != 4 {
		t.Fatalf("expected 4 paste events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != KindPaste || events[0].Text != "" || !events[0].PasteInitial || events[0].PasteFinal {
		t.Fatalf("expected begin boundary Paste{\"\",initial=true}, got %+v", events[0])
	}
	if events[1].Kind != KindPaste || events[1].Text != "A" || events[1].PasteInitial || events[1].PasteFinal {
		t.Fatalf("expected Paste{\"A\"}, got %+v", events[1])
	}
	if events[2].Kind != KindPaste || events[2].Text != "B" || events[2].PasteInitial || events[2].PasteFinal {
		t.Fatalf("expected Paste{\"B\"}, got %+v", events[2])
	}
	if events[3].Kind != KindPaste || events[3].Text != "" || events[3].PasteInitial || !events[3].PasteFinal {
		t.Fatalf("expected end boundary Paste{\"\",final=true}, got %+v", events[3])
	}
}

func TestPasteNewlineMapsToLiteralNewline(t *testing.T) {
	// Within a bracketed paste a CR/LF maps to a literal '\n' in the pasted
	// text rather than an Enter key event (§4.3).
	d := NewDecoder(nil)
	d.HandlePaste(true)
	events := collect(d, []byte("\x1b[200~a\r\x1b[201~"))
	if len(events) != 4 {
		t.Fatalf("expected 4 paste events, got %d: %+v", len(events), events)
	}
	if events[2].Kind != KindPaste || events[2].Text != "\n" {
		t.Fatalf("expected Paste{\"\\n\"}, got %+v", events[2])
	}
}

func TestPasteDisabledEmitsBoundaryAtomsAndChars(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b[200~hi\x1b[201~"))
	if len(events) != 4 {
		t.Fatalf("expected 4 events (begin, h, i, end), got %d: %+v", len(events), events)
	}
	if events[0].Atom != AtomPasteBegin {
		t.Fatalf("expected PasteBegin first, got %+v", events[0])
	}
	if events[1].Rune != 'h' || events[2].Rune != 'i' {
		t.Fatalf("expected h, i chars, got %+v %+v", events[1], events[2])
	}
	if events[3].Atom != AtomPasteEnd {
		t.Fatalf("expected PasteEnd last, got %+v", events[3])
	}
}

func TestResyncSentinel(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b[0n"))
	if len(events) != 1 || events[0].Kind != KindMisc || events[0].Atom != AtomResync {
		t.Fatalf("expected resync misc event, got %+v", events)
	}
}

func TestSGRMousePressAndRelease(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b[<0;10;20M\x1b[<0;10;20m"))
	if len(events) != 2 {
		t.Fatalf("expected 2 mouse events, got %d: %+v", len(events), events)
	}
	if events[0].MouseAction != MousePress || events[0].X != 9 || events[0].Y != 19 {
		t.Fatalf("unexpected press event: %+v", events[0])
	}
	if events[1].MouseAction != MouseRelease {
		t.Fatalf("unexpected release event: %+v", events[1])
	}
}

func TestLegacyX10Mouse(t *testing.T) {
	d := NewDecoder(nil)
	// CSI M followed by three raw bytes: button, x+32, y+32 (1-based, offset 32).
	events := collect(d, []byte{0x1b, '[', 'M', byte(' ' + 0), byte(32 + 5), byte(32 + 6)})
	if len(events) != 1 || events[0].Kind != KindMouse {
		t.Fatalf("expected one mouse event, got %+v", events)
	}
	if events[0].X != 4 || events[0].Y != 5 {
		t.Fatalf("unexpected coordinates: %+v", events[0])
	}
}

func TestCursorPositionReport(t *testing.T) {
	d := NewDecoder(nil)
	d.ExpectCursorPositionReport(1)
	events := collect(d, []byte("\x1b[10;5R"))
	if len(events) != 1 || events[0].Kind != KindCursorPosition {
		t.Fatalf("expected cursor position report, got %+v", events)
	}
	if events[0].Y != 9 || events[0].X != 4 {
		t.Fatalf("unexpected 0-based coordinates: %+v", events[0])
	}
}

func TestOverflowOnOversizedFrame(t *testing.T) {
	d := NewDecoder(nil)
	frame := make([]byte, 0, maxFrameBytes+10)
	frame = append(frame, 0x1b, '[')
	for i := 0; i < maxFrameBytes+5; i++ {
		frame = append(frame, '1')
	}
	events := collect(d, frame)
	// The byte that overflows the frame buffer resets the decoder to Base, so
	// the 4 bytes after it decode as plain characters.
	if len(events) != 5 || events[0].Kind != KindOverflow {
		t.Fatalf("expected an overflow event followed by 4 chars, got %+v", events)
	}
	for _, ev := range events[1:] {
		if ev.Kind != KindChar || ev.Rune != '1' {
			t.Fatalf("expected Char '1' after the overflow, got %+v", ev)
		}
	}
}

func TestInvalidUTF8ContinuationByte(t *testing.T) {
	d := NewDecoder(nil)
	// 0xC0 starts a 2-byte sequence; following it with an ASCII byte (not a
	// continuation byte) should report invalid UTF-8 and then reprocess the
	// ASCII byte as its own Char event.
	events := collect(d, []byte{0xC0, 'x'})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != KindInvalidUTF8 {
		t.Fatalf("expected invalid utf8 first, got %+v", events[0])
	}
	if events[1].Kind != KindChar || events[1].Rune != 'x' {
		t.Fatalf("expected reprocessed 'x' char, got %+v", events[1])
	}
}

func TestAltKeyPrefix(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte{0x1b, 'j'})
	if len(events) != 1 || events[0].Rune != 'j' || !events[0].Modifier.Has(ModAlt) {
		t.Fatalf("expected Alt+j, got %+v", events)
	}
}

func TestOSCColorSlotReport(t *testing.T) {
	d := NewDecoder(nil)
	events := collect(d, []byte("\x1b]10;rgb:ff/00/80\x07"))
	if len(events) != 1 || events[0].Kind != KindColorSlotReport {
		t.Fatalf("expected color slot report, got %+v", events)
	}
	e := events[0]
	if e.Slot != 10 || e.ColorRGB != [3]uint8{0xff, 0x00, 0x80} {
		t.Fatalf("unexpected report contents: %+v", e)
	}
}
