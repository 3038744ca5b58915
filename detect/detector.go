// Package detect implements spec.md §4.4: a wave-by-wave terminal
// fingerprinting protocol that turns a handful of query/response round
// trips into a Family, a version, and a capability Set.
package detect

import (
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/xo/terminfo"

	"vtcore/input"
)

// wave is the detector's position in the protocol state chart (§4.4); each
// wave issues a bundle of queries and waits for the `i_resync` barrier
// event before advancing.
type wave uint8

const (
	waveBasicCompat wave = iota
	waveMisparse
	waveFingerprint1
	waveFingerprint2
	waveSelfReport
	waveURxvtProbe
	waveDone
)

// Transition is what a Detector produces in response to one input Event:
// bytes to write to the terminal (queries, glitch-patch compensation) and,
// once detection concludes, the final report.
type Transition struct {
	Write    []byte
	Finished bool
	Result   Result
}

// Result is the Detector's final report, delivered via AutoDetectFinished.
type Result struct {
	Family     Family
	Version    int
	Capability Set
}

// Detector runs the protocol purely off events fed to OnEvent; it performs
// no I/O of its own; the caller writes Transition.Write and feeds back
// whatever Events the terminal sends in response.
type Detector struct {
	log zerolog.Logger

	w             wave
	caps          Set
	family        Family
	version       int
	inconclusive  bool
	glitchColumn  int
	cursorY, curX int
	konsoleDA2Count     int
	gotPalette255Reply bool
	da3AliasedToDA1    bool

	done bool
}

// New creates a Detector. Ambient environment probing (COLORTERM, TERM) via
// termenv seeds an initial truecolor guess that the wire protocol can only
// strengthen, never used alone to finish detection.
func New(log zerolog.Logger) *Detector {
	d := &Detector{log: log, family: FamilyUnknown}
	d.seedFromEnvironment()
	return d
}

func (d *Detector) seedFromEnvironment() {
	switch termenv.ColorProfile() {
	case termenv.TrueColor:
		d.caps = d.caps.With(TruecolorMaybe)
	}
	if ti, err := terminfo.LoadFromEnv(); err == nil && ti != nil {
		d.log.Debug().Str("terminfo", ti.Names[0]).Msg("loaded terminfo entry for ambient seed")
	}
}

// Start issues wave 1's query bundle.
func (d *Detector) Start() []byte {
	d.w = waveBasicCompat
	d.log.Debug().Msg("detect: wave 1 basic compatibility")
	return []byte("\x1b[5n\x1b[6n\x1b[>c\x1b[6n\x1b[5n")
}

// OnEvent feeds one decoded input.Event to the detector's state chart and
// returns what the caller should write next (if anything) and whether
// detection has concluded.
func (d *Detector) OnEvent(ev input.Event) Transition {
	if d.done {
		return Transition{}
	}
	switch d.w {
	case waveBasicCompat:
		return d.onBasicCompat(ev)
	case waveMisparse:
		return d.onMisparse(ev)
	case waveFingerprint1:
		return d.onFingerprint1(ev)
	case waveFingerprint2:
		return d.onFingerprint2(ev)
	case waveSelfReport:
		return d.onSelfReport(ev)
	case waveURxvtProbe:
		return d.onURxvtProbe(ev)
	default:
		return d.abort()
	}
}

func (d *Detector) abort() Transition {
	d.log.Warn().Str("wave", strconv.Itoa(int(d.w))).Msg("detect: no matching transition, aborting too-dumb")
	d.family = FamilyTooDumb
	d.caps = Minimal
	d.done = true
	return Transition{Finished: true, Result: Result{Family: d.family, Capability: d.caps}}
}

// onBasicCompat records the cursor-position report and whether a
// secondary-device-attributes reply arrived (CSIGreaterThan). The order of
// the two replies is not examined, so this wave does not classify a terminal
// as too-dumb; only an unexpected event does, through abort.
func (d *Detector) onBasicCompat(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindCursorPosition:
		d.cursorY, d.curX = ev.Y, ev.X
		return Transition{}
	case input.KindRawSecondaryDevAttrib:
		d.caps = d.caps.With(CSIGreaterThan)
		return Transition{}
	case input.KindMisc:
		if ev.Atom == input.AtomResync {
			d.w = waveMisparse
			d.log.Debug().Msg("detect: wave 2 misparse detection")
			return Transition{Write: []byte("\x1b[3!p\x1b[6n\x1b[5n")}
		}
	}
	return d.abort()
}

// onMisparse checks that a known-ignored sequence did not move the cursor;
// if it did, one backspace per column of drift is written, followed by a new
// cursor-position query. The characters the misparse printed are not
// overwritten.
func (d *Detector) onMisparse(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindCursorPosition:
		delta := ev.X - d.curX
		if delta > 0 {
			d.inconclusive = true
			d.glitchColumn = delta
			d.log.Debug().Int("glitch_columns", d.glitchColumn).Msg("detect: patching misparse drift")
			return Transition{Write: []byte(strings.Repeat("\b", delta) + "\x1b[6n")}
		}
		return Transition{}
	case input.KindMisc:
		if ev.Atom == input.AtomResync {
			d.w = waveFingerprint1
			d.log.Debug().Msg("detect: wave 3 fingerprint 1")
			return Transition{Write: []byte("\x1b[=c\x1b[>1c\x1b[?6n\x1b[1x\x1b[5n")}
		}
	}
	return d.abort()
}

func (d *Detector) onFingerprint1(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindRawTertiaryDevAttrib:
		if f, ok := familyFromDA3(strings.ToUpper(string(ev.Raw))); ok {
			d.family = f
		}
		return Transition{}
	case input.KindRawSecondaryDevAttrib:
		return Transition{}
	case input.KindRawPrimaryDevAttrib:
		// The only query in this wave a DA1 reply can answer is CSI =c.
		d.da3AliasedToDA1 = true
		return Transition{}
	case input.KindRawDecRequestTermParam:
		// A DECREQTPARM reply without a DA3 plus DA3 aliased to DA1
		// indicates macOS Terminal.
		if d.family == FamilyUnknown && d.da3AliasedToDA1 {
			d.family = FamilyMacOS
		}
		return Transition{}
	case input.KindModeReport:
		return Transition{}
	case input.KindCursorPosition:
		return Transition{}
	case input.KindMisc:
		if ev.Atom == input.AtomResync {
			return d.concludeFingerprint1()
		}
	}
	return d.abort()
}

func (d *Detector) concludeFingerprint1() Transition {
	if d.family != FamilyUnknown {
		d.finishWithFamily(d.family)
		return d.finishedTransition()
	}
	d.w = waveFingerprint2
	d.log.Debug().Msg("detect: wave 4 fingerprint 2 (inconclusive so far)")
	return Transition{Write: []byte("\x1b[>0;1c\x1b[>0;1c\x1b[5n")}
}

func (d *Detector) onFingerprint2(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindRawSecondaryDevAttrib:
		d.konsoleDA2Count++
		return Transition{}
	case input.KindMisc:
		if ev.Atom == input.AtomResync {
			switch d.konsoleDA2Count {
			case 2:
				d.finishWithFamily(FamilyKonsole)
			case 0:
				d.finishWithFamily(FamilyVTE)
			default:
				d.w = waveSelfReport
				d.log.Debug().Msg("detect: wave 5 self reporting")
				return Transition{Write: []byte("\x1b[>q")}
			}
			return d.finishedTransition()
		}
	}
	return d.abort()
}

func (d *Detector) onSelfReport(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindRawTermName:
		d.classifySelfReport(string(ev.Raw))
		if d.family == FamilyURxvt {
			d.w = waveURxvtProbe
			d.log.Debug().Msg("detect: probing palette 255 to disambiguate urxvt 88 vs 256 color")
			return Transition{Write: []byte("\x1b]4;255;?\x07\x1b[5n")}
		}
		d.finishWithFamily(d.family)
		return d.finishedTransition()
	case input.KindRawTerminfoQueryReply:
		return Transition{}
	}
	return d.abort()
}

func (d *Detector) classifySelfReport(name string) {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "xterm"):
		d.family = FamilyXterm
	case strings.Contains(lower, "mlterm"):
		d.family = FamilyMlterm
	case strings.Contains(lower, "iterm"):
		d.family = FamilyITerm2
	case strings.Contains(lower, "kitty"):
		d.family = FamilyKitty
	case strings.Contains(lower, "mintty"):
		d.family = FamilyMintty
	case strings.Contains(lower, "rxvt"):
		d.family = FamilyURxvt
	default:
		d.family = FamilyUnknown
	}
	if major, minor, patch, ok := parseVersionTriple(name); ok {
		d.version = encodeVersion(major, minor, patch)
	}
}

// onURxvtProbe reads the palette-255 query issued to disambiguate urxvt's
// 88-color mode (no reply) from its 256-color mode (a reply arrives),
// per §4.4.
func (d *Detector) onURxvtProbe(ev input.Event) Transition {
	switch ev.Kind {
	case input.KindPaletteColorReport:
		d.gotPalette255Reply = true
		return Transition{}
	case input.KindMisc:
		if ev.Atom == input.AtomResync {
			d.finishWithFamily(FamilyURxvt)
			if d.gotPalette255Reply {
				d.caps = d.caps.Without(Color88)
			}
			return d.finishedTransition()
		}
	}
	return d.abort()
}

func (d *Detector) finishWithFamily(f Family) {
	d.family = f
	caps := d.caps | familyDefaults(f)
	if d.inconclusive {
		caps = caps.Without(SafePositionReport)
	}
	d.caps = applyVersionAdjustments(f, d.version, caps)
	if env := os.Getenv("TMUX"); env != "" {
		d.caps = d.caps.With(ClearedColoring)
	}
	d.done = true
}

func (d *Detector) finishedTransition() Transition {
	d.log.Info().Str("family", string(d.family)).Int("version", d.version).Msg("detect: finished")
	return Transition{Finished: true, Result: Result{Family: d.family, Version: d.version, Capability: d.caps}}
}

func parseVersionTriple(s string) (major, minor, patch int, ok bool) {
	var numbers []int
	cur := -1
	for i := 0; i <= len(s); i++ {
		if i < len(s) && s[i] >= '0' && s[i] <= '9' {
			if cur < 0 {
				cur = 0
			}
			cur = cur*10 + int(s[i]-'0')
			continue
		}
		if cur >= 0 {
			numbers = append(numbers, cur)
			cur = -1
		}
	}
	if len(numbers) == 0 {
		return 0, 0, 0, false
	}
	for len(numbers) < 3 {
		numbers = append(numbers, 0)
	}
	return numbers[0], numbers[1], numbers[2], true
}
