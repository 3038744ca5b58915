package integration

import (
	"io"
	"os"
	"testing"
	"time"
)

func pipePair(t *testing.T) (r, w *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}

func TestWriteFlushRoundTrip(t *testing.T) {
	r, w := pipePair(t)
	term, err := Open(r, w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	term.Write([]byte("\x1b[2J"))
	term.Write([]byte("hello"))
	term.Flush()
	w.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "\x1b[2Jhello" {
		t.Fatalf("expected buffered writes to appear only after Flush, got %q", got)
	}
	if term.IsBad() {
		t.Fatalf("expected not bad after a clean write/flush")
	}
}

func TestWriteAfterBadIsNoOp(t *testing.T) {
	r, w := pipePair(t)
	term, err := Open(r, w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Force a write failure by closing the write end before flushing.
	w.Close()
	term.Write([]byte("x"))
	term.Flush()
	if !term.IsBad() {
		t.Fatalf("expected bad state after writing to a closed pipe")
	}

	// Further writes must not panic or block once bad.
	term.Write([]byte("y"))
	term.Flush()
}

func TestIsTerminalFalseForPipes(t *testing.T) {
	r, w := pipePair(t)
	term, err := Open(r, w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Pipes are never ttys.
	if term.IsTerminal() {
		t.Fatalf("expected IsTerminal to be false for a pipe pair")
	}
}

func TestStartReadingDeliversBytesAndStopReadingCancels(t *testing.T) {
	inR, inW := pipePair(t)
	_, outW := pipePair(t)

	term, err := Open(inR, outW)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	gotCh := make(chan []byte, 4)
	errCh := make(chan error, 1)
	if err := term.StartReading(func(b []byte) {
		gotCh <- append([]byte(nil), b...)
	}, func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}); err != nil {
		t.Fatalf("StartReading: %v", err)
	}
	defer term.Close()

	if _, err := inW.Write([]byte("abc")); err != nil {
		t.Fatalf("write to input pipe: %v", err)
	}

	select {
	case b := <-gotCh:
		if string(b) != "abc" {
			t.Fatalf("expected 'abc', got %q", b)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for bytes from StartReading")
	}

	term.StopReading()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for read error after StopReading")
	}
}

func TestOpenDefaultsToStdinStdout(t *testing.T) {
	term, err := Open(nil, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if term.in != os.Stdin || term.out != os.Stdout {
		t.Fatalf("expected nil args to default to os.Stdin/os.Stdout")
	}
}

func TestResizeChanIsNonNilAndEmptyInitially(t *testing.T) {
	r, w := pipePair(t)
	term, err := Open(r, w)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	select {
	case sz := <-term.ResizeChan():
		t.Fatalf("expected no resize event before any SIGWINCH, got %+v", sz)
	default:
	}
}
