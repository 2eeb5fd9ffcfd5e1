package tty

import (
	"testing"

	"tty9.dev/ttyd/internal/termios"
)

func TestInProcessEnqueuesLine(t *testing.T) {
	l, _ := newTestLine(t)
	n := l.InProcess([]byte("hi\n"))
	if n != 3 {
		t.Fatalf("consumed = %d, want 3", n)
	}
	if l.In.EOTCount() != 1 {
		t.Fatalf("EOTCount() = %d, want 1", l.In.EOTCount())
	}
	if got := drainRing(l); got != "hi\n" {
		t.Fatalf("ring contents = %q, want %q", got, "hi\n")
	}
}

func TestInProcessErase(t *testing.T) {
	l, be := newTestLine(t)
	l.InProcess([]byte("ab"))
	l.InProcess([]byte{127}) // VERASE
	if got := drainRing(l); got != "a" {
		t.Fatalf("ring contents after erase = %q, want %q", got, "a")
	}
	// ECHOE is on by default, so the erase itself should not be
	// echoed as a literal DEL.
	for _, b := range be.echoed {
		if b == 127 {
			t.Fatalf("erase char was echoed verbatim with ECHOE set: %v", be.echoed)
		}
	}
}

func TestInProcessKillClearsLine(t *testing.T) {
	l, _ := newTestLine(t)
	l.InProcess([]byte("hello"))
	l.InProcess([]byte{21}) // VKILL (^U)
	if l.In.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after kill", l.In.Len())
	}
}

func TestInProcessKillStopsAtEOT(t *testing.T) {
	l, _ := newTestLine(t)
	l.InProcess([]byte("one\n"))
	l.InProcess([]byte("tw"))
	l.InProcess([]byte{21}) // VKILL should only erase "tw", not "one\n"
	if got := drainRing(l); got != "one\n" {
		t.Fatalf("ring contents = %q, want %q", got, "one\n")
	}
}

func TestInProcessEOFWord(t *testing.T) {
	l, _ := newTestLine(t)
	l.InProcess([]byte{4}) // VEOF (^D) on an empty line
	if l.In.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (EOF word queued)", l.In.Len())
	}
	w, _ := l.In.PeekFront()
	if !w.EOF() || !w.EOT() {
		t.Fatal("EOF word should also be tagged EOT")
	}
}

func TestInProcessRawModeTagsEveryByte(t *testing.T) {
	l, _ := newTestLine(t)
	l.Termios.Lflag &^= termios.ICANON
	l.InProcess([]byte("xy"))
	if l.In.EOTCount() != 2 {
		t.Fatalf("EOTCount() = %d, want 2 (every raw byte is its own unit)", l.In.EOTCount())
	}
}

func TestInProcessIXONPause(t *testing.T) {
	l, _ := newTestLine(t)
	l.InProcess([]byte{19}) // VSTOP (^S)
	if !l.Inhibited {
		t.Fatal("^S should set Inhibited")
	}
	l.InProcess([]byte{17}) // VSTART (^Q)
	if l.Inhibited {
		t.Fatal("^Q should clear Inhibited")
	}
}

func TestInProcessSignalClearsRing(t *testing.T) {
	l, _ := newTestLine(t)
	delivered := false
	l.Signal = signalerFunc(func(pgrp int32, sig Signal) error {
		if sig == SIGINT {
			delivered = true
		}
		return nil
	})
	l.InProcess([]byte("abc"))
	l.InProcess([]byte{3}) // VINTR (^C)
	if !delivered {
		t.Fatal("expected SIGINT to be delivered")
	}
	if l.In.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 (NOFLSH unset clears the ring on signal)", l.In.Len())
	}
}

type signalerFunc func(pgrp int32, sig Signal) error

func (f signalerFunc) Kill(pgrp int32, sig Signal) error { return f(pgrp, sig) }
