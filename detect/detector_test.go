package detect

import (
	"testing"

	"github.com/charmbracelet/colorprofile"
	"github.com/rs/zerolog"

	"vtcore/input"
)

func resyncEvent() input.Event { return input.Event{Kind: input.KindMisc, Atom: input.AtomResync} }

func runWaves(t *testing.T, d *Detector, steps []input.Event) Result {
	t.Helper()
	const maxBarrierEvents = 12
	count := 0
	d.Start()
	var last Transition
	for _, ev := range steps {
		if count > maxBarrierEvents {
			t.Fatalf("detector did not converge within %d barrier events", maxBarrierEvents)
		}
		last = d.OnEvent(ev)
		count++
		if last.Finished {
			return last.Result
		}
	}
	t.Fatalf("detector never finished, last transition: %+v", last)
	return Result{}
}

func TestDetectorIdentifiesVTEviaDA3(t *testing.T) {
	d := New(zerolog.Nop())
	steps := []input.Event{
		resyncEvent(), // wave 1 -> wave 2
		resyncEvent(), // wave 2 -> wave 3
		{Kind: input.KindRawTertiaryDevAttrib, Raw: []byte("7E565445")},
		resyncEvent(), // wave 3 concludes: DA3 resolved family
	}
	res := runWaves(t, d, steps)
	if res.Family != FamilyVTE {
		t.Fatalf("expected vte, got %v", res.Family)
	}
	if !res.Capability.Has(TruecolorYes) {
		t.Fatalf("expected vte to carry truecolor-yes, got %v", res.Capability)
	}
}

func TestDetectorKonsoleViaDoubleDA2(t *testing.T) {
	d := New(zerolog.Nop())
	steps := []input.Event{
		resyncEvent(),
		resyncEvent(),
		resyncEvent(), // fingerprint1 inconclusive, no DA3 matched
		{Kind: input.KindRawSecondaryDevAttrib},
		{Kind: input.KindRawSecondaryDevAttrib},
		resyncEvent(), // fingerprint2: two DA2 replies => konsole
	}
	res := runWaves(t, d, steps)
	if res.Family != FamilyKonsole {
		t.Fatalf("expected konsole, got %v", res.Family)
	}
	if res.Capability.Has(SevenBitST) {
		t.Fatalf("expected konsole to disable 7bit-ST")
	}
}

func TestDetectorAbortsToTooDumbOnUnmatchedEvent(t *testing.T) {
	d := New(zerolog.Nop())
	d.Start()
	// A mouse event is never valid in wave 1's state chart.
	tr := d.OnEvent(input.Event{Kind: input.KindMouse})
	if !tr.Finished || tr.Result.Family != FamilyTooDumb {
		t.Fatalf("expected too-dumb abort, got %+v", tr)
	}
	if tr.Result.Capability != Minimal {
		t.Fatalf("expected minimal capability on abort, got %v", tr.Result.Capability)
	}
}

func TestResultColorProfileMapsTruecolor(t *testing.T) {
	r := Result{Family: FamilyVTE, Capability: Set(0).With(TruecolorYes)}
	if r.ColorProfile() != colorprofile.TrueColor {
		t.Fatalf("expected TrueColor profile for truecolor-yes capability, got %v", r.ColorProfile())
	}
}

func TestDetectorTerminatesWithinBoundedBarrierEvents(t *testing.T) {
	// spec.md §8: detection must terminate in at most K barrier events; the
	// longest real path is wave1 -> wave2 -> wave3 -> wave4 -> wave5 ->
	// urxvt-probe, i.e. 6 resync barriers.
	d := New(zerolog.Nop())
	steps := []input.Event{
		resyncEvent(),
		resyncEvent(),
		resyncEvent(),
		{Kind: input.KindRawSecondaryDevAttrib},
		resyncEvent(),
		{Kind: input.KindRawTermName, Raw: []byte("rxvt-unicode-9.22")},
		resyncEvent(),
	}
	res := runWaves(t, d, steps)
	if res.Family != FamilyURxvt {
		t.Fatalf("expected urxvt, got %v", res.Family)
	}
}
