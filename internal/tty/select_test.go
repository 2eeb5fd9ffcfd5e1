package tty

import (
	"testing"

	"tty9.dev/ttyd/internal/termios"
)

func TestSelectTryHangupReadyAll(t *testing.T) {
	l, _ := newTestLine(t)
	l.Termios.Ospeed = termios.B0
	got := l.selectTry(SelRead | SelWrite)
	if got != SelRead|SelWrite {
		t.Fatalf("selectTry on hangup = %v, want SelRead|SelWrite", got)
	}
}

func TestSelectTryReadReadyWhenReadPending(t *testing.T) {
	l, _ := newTestLine(t)
	l.read.active = true
	if got := l.selectTry(SelRead); got&SelRead == 0 {
		t.Fatalf("selectTry = %v, want SelRead ready for a pending read", got)
	}
}

func TestSelectTryWriteReadyWhenWritePending(t *testing.T) {
	l, _ := newTestLine(t)
	l.write.active = true
	if got := l.selectTry(SelWrite); got&SelWrite == 0 {
		t.Fatalf("selectTry = %v, want SelWrite ready for a pending write", got)
	}
}

func TestSelectTryWriteReadyFromProbeWhenIdle(t *testing.T) {
	l, _ := newTestLine(t)
	if got := l.selectTry(SelWrite); got&SelWrite == 0 {
		t.Fatalf("selectTry = %v, want SelWrite ready from back-end probe", got)
	}
}
