package input

import (
	"strconv"
	"strings"
)

// state is the tokenizer's byte-oriented state machine (§4.3): Base, Esc,
// SS3, CSI, CmdStr (OSC/DCS/APC contents), CmdStrC1, StrTerminatorEsc, and
// a UTF-8 continuation-byte counter.
type state uint8

const (
	stBase state = iota
	stEsc
	stSS3
	stCSI
	stCmdStr
	stCmdStrC1
	stStrTerminatorEsc
	stUtf8
	stMouseBtn
	stMouseCol
	stMouseRow
)

// maxFrameBytes caps an in-progress escape sequence; exceeding it emits an
// Overflow event and resets to Base (§4.3).
const maxFrameBytes = 1024

// cmdStrKind distinguishes which command-string frame is being accumulated,
// since OSC/DCS/APC share the CmdStr state but classify differently.
type cmdStrKind uint8

const (
	cmdOSC cmdStrKind = iota
	cmdDCS
	cmdAPC
)

// Decoder is the single-threaded, synchronous tokenizer + classifier of
// §4.3: bytes in, Events out via Emit. It performs no I/O and holds no
// timers; ambiguous delayed responses are the caller's problem to schedule.
type Decoder struct {
	Emit func(Event)

	st      state
	cmdKind cmdStrKind
	frame   []byte
	utf8Left int

	pendingEsc bool // a lone ESC deferred one byte to detect ESC-prefixed sequences

	mouseBtn, mouseX, mouseY int
	mouseByteIdx             int

	expectCursorPositionReport int
	expectLegacyMouse          bool
	expectAPCSequences         bool
	handlePaste                bool

	pasteActive bool
}

// NewDecoder creates a Decoder that calls emit for each decoded Event.
func NewDecoder(emit func(Event)) *Decoder {
	return &Decoder{Emit: emit}
}

func (d *Decoder) ExpectCursorPositionReport(delta int) { d.expectCursorPositionReport += delta }
func (d *Decoder) ExpectLegacyMouseReports(on bool)     { d.expectLegacyMouse = on }
func (d *Decoder) ExpectAPCSequences(on bool)           { d.expectAPCSequences = on }
func (d *Decoder) HandlePaste(on bool)                  { d.handlePaste = on }

func (d *Decoder) emit(e Event) {
	if d.Emit != nil {
		d.Emit(e)
	}
}

func (d *Decoder) reset() {
	d.st = stBase
	d.frame = d.frame[:0]
	d.utf8Left = 0
}

func (d *Decoder) overflow() {
	d.emit(Event{Kind: KindOverflow})
	d.reset()
}

func (d *Decoder) appendFrame(b byte) bool {
	d.frame = append(d.frame, b)
	if len(d.frame) > maxFrameBytes {
		d.overflow()
		return false
	}
	return true
}

// Feed consumes raw bytes, emitting zero or more Events through Emit.
func (d *Decoder) Feed(data []byte) {
	for _, b := range data {
		d.feedByte(b)
	}
}

func (d *Decoder) feedByte(b byte) {
	switch d.st {
	case stBase:
		d.feedBase(b)
	case stEsc:
		d.feedEsc(b)
	case stSS3:
		d.feedSS3(b)
	case stCSI:
		d.feedCSI(b)
	case stCmdStr, stCmdStrC1:
		d.feedCmdStr(b)
	case stStrTerminatorEsc:
		d.feedStrTerminatorEsc(b)
	case stUtf8:
		d.feedUtf8(b)
	case stMouseBtn:
		d.mouseBtn = int(b) - 32
		d.st = stMouseCol
	case stMouseCol:
		d.mouseX = int(b) - 32 - 1
		d.st = stMouseRow
	case stMouseRow:
		d.mouseY = int(b) - 32 - 1
		d.emitLegacyMouse()
		d.reset()
	}
}

func (d *Decoder) feedBase(b byte) {
	switch {
	case b == 0x1B:
		if d.pendingEsc {
			// A second ESC arrived before the first resolved: emit the bare
			// Escape key and keep waiting on this new one.
			d.emit(Event{Kind: KindKey, Atom: AtomEscape})
		}
		d.pendingEsc = true
		d.st = stEsc
		d.frame = d.frame[:0]
		d.appendFrame(b)
	case b < 0x20 || b == 0x7F:
		d.emitControl(b)
	case b < 0x80:
		d.deliverRuneOrPaste(rune(b))
	default:
		d.beginUtf8(b)
	}
}

func (d *Decoder) emitControl(b byte) {
	switch b {
	case '\r', '\n':
		// Within a bracketed paste, a carriage return or Ctrl-J maps to a
		// literal newline in the pasted text rather than the Enter key (§4.3).
		if d.pasteActive {
			d.deliverRuneOrPaste('\n')
			return
		}
		d.emit(Event{Kind: KindKey, Atom: AtomEnter})
	case '\t':
		d.emit(Event{Kind: KindKey, Atom: AtomTab})
	case 0x7F, 0x08:
		d.emit(Event{Kind: KindKey, Atom: AtomBackspace})
	case 0x00:
		d.emit(Event{Kind: KindChar, Rune: ' ', Modifier: ModCtrl})
	default:
		// C0 control: report as a Char with the Ctrl modifier and the
		// letter it corresponds to (Ctrl-A == 0x01, etc.)
		d.emit(Event{Kind: KindChar, Rune: rune('a' + int(b) - 1), Modifier: ModCtrl})
	}
}

func (d *Decoder) beginUtf8(first byte) {
	var n int
	switch {
	case first&0xE0 == 0xC0:
		n = 1
	case first&0xF0 == 0xE0:
		n = 2
	case first&0xF8 == 0xF0:
		n = 3
	default:
		d.emit(Event{Kind: KindInvalidUTF8, Raw: []byte{first}})
		return
	}
	d.frame = d.frame[:0]
	d.frame = append(d.frame, first)
	d.utf8Left = n
	d.st = stUtf8
}

func (d *Decoder) feedUtf8(b byte) {
	if b&0xC0 != 0x80 {
		d.emit(Event{Kind: KindInvalidUTF8, Raw: append([]byte(nil), d.frame...)})
		d.reset()
		d.feedByte(b) // reprocess this byte fresh
		return
	}
	d.frame = append(d.frame, b)
	d.utf8Left--
	if d.utf8Left == 0 {
		r := decodeRune(d.frame)
		d.reset()
		d.deliverRuneOrPaste(r)
	}
}

func decodeRune(b []byte) rune {
	var r rune
	switch len(b) {
	case 2:
		r = rune(b[0]&0x1F)<<6 | rune(b[1]&0x3F)
	case 3:
		r = rune(b[0]&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
	case 4:
		r = rune(b[0]&0x07)<<18 | rune(b[1]&0x3F)<<12 | rune(b[2]&0x3F)<<6 | rune(b[3]&0x3F)
	}
	return r
}

func (d *Decoder) deliverRuneOrPaste(r rune) {
	if d.pasteActive {
		d.emit(Event{Kind: KindPaste, Text: string(r)})
		return
	}
	d.emit(Event{Kind: KindChar, Rune: r})
}

func (d *Decoder) feedEsc(b byte) {
	d.pendingEsc = false
	switch b {
	case 0x1B:
		// A second ESC arrived before the first resolved: emit the bare
		// Escape key and keep waiting on this new one.
		d.emit(Event{Kind: KindKey, Atom: AtomEscape})
		d.pendingEsc = true
		return
	case '[':
		d.st = stCSI
		d.frame = d.frame[:0]
	case 'O':
		d.st = stSS3
		d.frame = d.frame[:0]
	case ']':
		d.st = stCmdStr
		d.cmdKind = cmdOSC
		d.frame = d.frame[:0]
	case 'P':
		d.st = stCmdStr
		d.cmdKind = cmdDCS
		d.frame = d.frame[:0]
	case '_':
		if d.expectAPCSequences {
			d.st = stCmdStr
			d.cmdKind = cmdAPC
			d.frame = d.frame[:0]
			return
		}
		d.reset()
	default:
		// Alt+key: the single byte following ESC modifies a base key.
		d.reset()
		if b < 0x80 {
			d.emit(Event{Kind: KindChar, Rune: rune(b), Modifier: ModAlt})
		}
	}
}

func (d *Decoder) feedSS3(b byte) {
	if !d.appendFrame(b) {
		return
	}
	if (b >= '0' && b <= '9') || b == ';' {
		return
	}
	defer d.reset()
	switch b {
	case 'A':
		d.emit(Event{Kind: KindKey, Atom: AtomArrowUp})
	case 'B':
		d.emit(Event{Kind: KindKey, Atom: AtomArrowDown})
	case 'C':
		d.emit(Event{Kind: KindKey, Atom: AtomArrowRight})
	case 'D':
		d.emit(Event{Kind: KindKey, Atom: AtomArrowLeft})
	case 'H':
		d.emit(Event{Kind: KindKey, Atom: AtomHome})
	case 'F':
		d.emit(Event{Kind: KindKey, Atom: AtomEnd})
	case 'M':
		d.emit(Event{Kind: KindKey, Atom: AtomNumpadEnter})
	case 'P', 'Q', 'R', 'S':
		d.emit(Event{Kind: KindKey, Atom: functionKey(int(b - 'P' + 1))})
	case 'p', 'q', 'r', 's', 't', 'u', 'v', 'w', 'x', 'y':
		// Application keypad mode digits 0-9 (SS3 p..y).
		d.emit(Event{Kind: KindKey, Atom: numpadDigit(int(b - 'p'))})
	case 'k':
		d.emit(Event{Kind: KindKey, Atom: AtomNumpadAdd})
	}
}

// csiFinal reports whether b terminates a CSI frame (§4.3: CSI accepts
// '@'..'~' as final bytes).
func csiFinal(b byte) bool { return b >= '@' && b <= '~' }

func (d *Decoder) feedCSI(b byte) {
	// Legacy X10 mouse reports are `CSI M` immediately followed by three raw
	// (non-CSI-param) bytes, not a normal CSI frame; 'M' would otherwise also
	// be read as a valid CSI final byte, so intercept it here before the
	// generic final-byte check.
	if b == 'M' && len(d.frame) == 0 {
		d.reset()
		d.st = stMouseBtn
		return
	}
	if !d.appendFrame(b) {
		return
	}
	if !csiFinal(b) {
		return
	}
	frame := append([]byte(nil), d.frame...)
	d.reset()
	d.classifyCSI(frame)
}

// classifyCSI decomposes a completed CSI frame into {prefix?, args[],
// postfix?, final} and dispatches on the recognized shapes from §4.3.
func (d *Decoder) classifyCSI(frame []byte) {
	final := frame[len(frame)-1]
	body := frame[:len(frame)-1]

	var prefix byte
	i := 0
	if len(body) > 0 && (body[0] == '?' || body[0] == '>' || body[0] == '=' || body[0] == '<') {
		prefix = body[0]
		i = 1
	}

	var postfix byte
	end := len(body)
	if end > i && isPostfixModifier(body[end-1]) {
		postfix = body[end-1]
		end--
	}

	argBytes := body[i:end]
	args := parseCSIArgs(argBytes)

	switch {
	case final == 'n' && prefix == 0 && len(args) == 1 && args[0] == 0:
		d.emit(Event{Kind: KindMisc, Atom: AtomResync})
	case final == 'R':
		d.handleCursorPositionReport(prefix, args)
	case final == '~':
		d.handleTildeFrame(args, postfix)
	case final == 'u':
		d.handleModifyOtherKeysU(args)
	case (final >= 'A' && final <= 'D') || final == 'F' || final == 'H':
		d.handleCursorKey(args, final)
	case final == 'M' || final == 'm':
		d.handleSGRMouse(prefix, args, final)
	case final == 'y' && postfix == '$':
		d.handleModeReport(prefix, args)
	case final == 'c':
		d.handleDeviceAttrib(prefix, args)
	case final == 'x':
		d.emit(Event{Kind: KindRawDecRequestTermParam, Raw: argBytes})
	default:
		d.emit(Event{Kind: KindMisc, Raw: frame})
	}
}

func isPostfixModifier(b byte) bool {
	return b == '$' || b == '\'' || b == '*'
}

func parseCSIArgs(b []byte) []int {
	if len(b) == 0 {
		return nil
	}
	var args []int
	for _, part := range strings.Split(string(b), ";") {
		sub := part
		if idx := strings.IndexByte(part, ':'); idx >= 0 {
			sub = part[:idx]
		}
		n, err := strconv.Atoi(sub)
		if err != nil {
			n = 0
		}
		args = append(args, n)
	}
	return args
}

func modifierFromCSI(n int) Modifier {
	if n <= 1 {
		return 0
	}
	bits := n - 1
	var m Modifier
	if bits&1 != 0 {
		m |= ModShift
	}
	if bits&2 != 0 {
		m |= ModAlt
	}
	if bits&4 != 0 {
		m |= ModCtrl
	}
	if bits&8 != 0 {
		m |= ModAltGr
	}
	return m
}

// handleCursorKey handles `CSI 1;mod {A,B,C,D,F,H}`.
func (d *Decoder) handleCursorKey(args []int, final byte) {
	mod := Modifier(0)
	if len(args) >= 2 {
		mod = modifierFromCSI(args[1])
	}
	var atom Atom
	switch final {
	case 'A':
		atom = AtomArrowUp
	case 'B':
		atom = AtomArrowDown
	case 'C':
		atom = AtomArrowRight
	case 'D':
		atom = AtomArrowLeft
	case 'F':
		atom = AtomEnd
	case 'H':
		atom = AtomHome
	}
	d.emit(Event{Kind: KindKey, Atom: atom, Modifier: mod})
}

// handleCursorPositionReport handles `CSI row;col R`, optionally prefixed
// with '?' to mean "safe".
func (d *Decoder) handleCursorPositionReport(prefix byte, args []int) {
	if len(args) < 2 {
		return
	}
	if d.expectCursorPositionReport > 0 {
		d.expectCursorPositionReport--
	}
	d.emit(Event{Kind: KindCursorPosition, Y: args[0] - 1, X: args[1] - 1, Safe: prefix == '?'})
}

// handleTildeFrame handles `CSI n ~` functional keys and `CSI 27;mod;code~`
// modifyOtherKeys, plus bracketed-paste begin/end (`CSI 200~` / `201~`).
func (d *Decoder) handleTildeFrame(args []int, postfix byte) {
	if postfix != 0 {
		return
	}
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case 200:
		d.beginPaste()
		return
	case 201:
		d.endPaste()
		return
	case 27:
		if len(args) >= 3 {
			mod := modifierFromCSI(args[1])
			d.emit(Event{Kind: KindChar, Rune: rune(args[2]), Modifier: mod})
		}
		return
	}
	mod := Modifier(0)
	if len(args) >= 2 {
		mod = modifierFromCSI(args[1])
	}
	atom, ok := tildeAtoms[args[0]]
	if !ok {
		d.emit(Event{Kind: KindMisc})
		return
	}
	d.emit(Event{Kind: KindKey, Atom: atom, Modifier: mod})
}

var tildeAtoms = map[int]Atom{
	1: AtomHome, 2: AtomInsert, 3: AtomDelete, 4: AtomEnd,
	5: AtomPageUp, 6: AtomPageDown, 7: AtomHome, 8: AtomEnd,
	11: "F1", 12: "F2", 13: "F3", 14: "F4", 15: "F5",
	17: "F6", 18: "F7", 19: "F8", 20: "F9", 21: "F10",
	23: "F11", 24: "F12",
	29: AtomContextMenu,
}

// handleModifyOtherKeysU handles `CSI code;mod u`.
func (d *Decoder) handleModifyOtherKeysU(args []int) {
	if len(args) < 1 {
		return
	}
	mod := Modifier(0)
	if len(args) >= 2 {
		mod = modifierFromCSI(args[1])
	}
	code := args[0]
	switch code {
	case 13:
		d.emit(Event{Kind: KindKey, Atom: AtomEnter, Modifier: mod})
	case 27:
		d.emit(Event{Kind: KindKey, Atom: AtomEscape, Modifier: mod})
	case 9:
		d.emit(Event{Kind: KindKey, Atom: AtomTab, Modifier: mod})
	case 127:
		d.emit(Event{Kind: KindKey, Atom: AtomBackspace, Modifier: mod})
	default:
		d.emit(Event{Kind: KindChar, Rune: rune(code), Modifier: mod})
	}
}

// handleSGRMouse handles `CSI < mod;x;y {M,m}`.
func (d *Decoder) handleSGRMouse(prefix byte, args []int, final byte) {
	if prefix != '<' || len(args) < 3 {
		return
	}
	btn := args[0]
	x, y := args[1]-1, args[2]-1
	action := MousePress
	if final == 'm' {
		action = MouseRelease
	} else if btn&32 != 0 {
		action = MouseMove
	}
	mod := Modifier(0)
	if btn&4 != 0 {
		mod |= ModShift
	}
	if btn&8 != 0 {
		mod |= ModAlt
	}
	if btn&16 != 0 {
		mod |= ModCtrl
	}
	d.emit(Event{Kind: KindMouse, X: x, Y: y, RawButtons: uint8(btn), MouseAction: action, Modifier: mod})
}

func (d *Decoder) emitLegacyMouse() {
	action := MousePress
	if d.mouseBtn&3 == 3 {
		action = MouseRelease
	} else if d.mouseBtn&32 != 0 {
		action = MouseMove
	}
	d.emit(Event{Kind: KindMouse, X: d.mouseX, Y: d.mouseY, RawButtons: uint8(d.mouseBtn), MouseAction: action})
}

// handleModeReport handles `CSI n;m $y` and `CSI ?n;m $y`.
func (d *Decoder) handleModeReport(prefix byte, args []int) {
	if len(args) < 2 {
		return
	}
	kind := ModeANSI
	if prefix == '?' {
		kind = ModeDEC
	}
	d.emit(Event{Kind: KindModeReport, ModeKind: kind, ModeNum: args[0], ModeStat: args[1]})
}

// handleDeviceAttrib handles `CSI >…c` (secondary) and `CSI ?…c` (primary).
func (d *Decoder) handleDeviceAttrib(prefix byte, args []int) {
	_ = args
	switch prefix {
	case '>':
		d.emit(Event{Kind: KindRawSecondaryDevAttrib})
	case '?':
		d.emit(Event{Kind: KindRawPrimaryDevAttrib})
	default:
		d.emit(Event{Kind: KindRawPrimaryDevAttrib})
	}
}

func (d *Decoder) beginPaste() {
	if !d.handlePaste {
		d.emit(Event{Kind: KindMisc, Atom: AtomPasteBegin})
		return
	}
	d.pasteActive = true
	d.emit(Event{Kind: KindPaste, PasteInitial: true})
}

func (d *Decoder) endPaste() {
	if !d.handlePaste {
		d.emit(Event{Kind: KindMisc, Atom: AtomPasteEnd})
		return
	}
	d.pasteActive = false
	d.emit(Event{Kind: KindPaste, PasteFinal: true})
}

func (d *Decoder) feedCmdStr(b byte) {
	if b == 0x1B {
		d.st = stStrTerminatorEsc
		return
	}
	if b == 0x07 {
		frame := append([]byte(nil), d.frame...)
		d.reset()
		d.classifyCmdStr(frame)
		return
	}
	if !d.appendFrame(b) {
		return
	}
}

func (d *Decoder) feedStrTerminatorEsc(b byte) {
	if b == '\\' {
		frame := append([]byte(nil), d.frame...)
		d.reset()
		d.classifyCmdStr(frame)
		return
	}
	// Not a real ST: treat the ESC as the start of a fresh escape sequence
	// and drop the accumulated command string.
	d.reset()
	d.feedByte(0x1B)
	d.feedByte(b)
}

func (d *Decoder) classifyCmdStr(frame []byte) {
	s := string(frame)
	switch d.cmdKind {
	case cmdOSC:
		d.classifyOSC(s)
	case cmdDCS:
		d.classifyDCS(frame)
	case cmdAPC:
		d.emit(Event{Kind: KindMisc, Raw: frame})
	}
}

var colorSlotOSCNumbers = map[int]bool{
	10: true, 11: true, 12: true, 13: true, 14: true, 17: true, 19: true,
	705: true, 706: true, 707: true, 708: true,
}

func (d *Decoder) classifyOSC(s string) {
	semi := strings.IndexByte(s, ';')
	if semi < 0 {
		d.emit(Event{Kind: KindMisc, Raw: []byte(s)})
		return
	}
	num, err := strconv.Atoi(s[:semi])
	if err != nil {
		d.emit(Event{Kind: KindMisc, Raw: []byte(s)})
		return
	}
	rest := s[semi+1:]
	if num == 4 {
		idx, spec, ok := splitIndexedOSC(rest)
		if !ok {
			return
		}
		r, g, b, ok := parseColorSpec(spec)
		if !ok {
			return
		}
		d.emit(Event{Kind: KindPaletteColorReport, Index: idx, ColorRGB: [3]uint8{r, g, b}})
		return
	}
	if colorSlotOSCNumbers[num] {
		r, g, b, ok := parseColorSpec(rest)
		if !ok {
			return
		}
		d.emit(Event{Kind: KindColorSlotReport, Slot: num, ColorRGB: [3]uint8{r, g, b}})
		return
	}
	d.emit(Event{Kind: KindMisc, Raw: []byte(s)})
}

func splitIndexedOSC(s string) (int, string, bool) {
	semi := strings.IndexByte(s, ';')
	if semi < 0 {
		return 0, "", false
	}
	idx, err := strconv.Atoi(s[:semi])
	if err != nil {
		return 0, "", false
	}
	return idx, s[semi+1:], true
}

// parseColorSpec parses the X11 `rgb:rr/gg/bb` form xterm uses to answer
// color queries.
func parseColorSpec(spec string) (r, g, b uint8, ok bool) {
	if !strings.HasPrefix(spec, "rgb:") {
		return 0, 0, 0, false
	}
	parts := strings.Split(spec[4:], "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	vals := [3]uint8{}
	for i, p := range parts {
		if len(p) > 2 {
			p = p[:2]
		}
		n, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = uint8(n)
	}
	return vals[0], vals[1], vals[2], true
}

// classifyDCS handles `DCS !|…ST` (tertiary dev attrib), `DCS >|…ST`
// (terminal name), and `DCS {0|1}+r…ST` (terminfo query reply).
func (d *Decoder) classifyDCS(frame []byte) {
	switch {
	case len(frame) >= 2 && frame[0] == '!' && frame[1] == '|':
		d.emit(Event{Kind: KindRawTertiaryDevAttrib, Raw: frame[2:]})
	case len(frame) >= 2 && frame[0] == '>' && frame[1] == '|':
		d.emit(Event{Kind: KindRawTermName, Raw: frame[2:]})
	case len(frame) >= 2 && (frame[0] == '0' || frame[0] == '1') && frame[1] == '+':
		d.emit(Event{Kind: KindRawTerminfoQueryReply, Raw: frame})
	default:
		d.emit(Event{Kind: KindMisc, Raw: frame})
	}
}
