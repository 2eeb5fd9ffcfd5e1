package tty

import (
	"tty9.dev/ttyd/internal/ring"
	"tty9.dev/ttyd/internal/termios"
)

// InProcess cooks one inbound byte at a time out of raw, applying
// iflag/lflag processing, echo, signal generation, and flow control,
// then enqueues the resulting tagged word(s). It returns the number of
// bytes of raw actually consumed: in canonical mode a byte that arrives
// with the ring full is dropped and counted as consumed, and the rest
// of the batch is still processed; in raw mode a full ring stops the
// whole call, and the byte that did not fit is not counted, so the
// back-end can hold it and the remainder for later.
func (l *Line) InProcess(raw []byte) int {
	t := &l.Termios
	consumed := 0
	for _, c := range raw {
		consumed++
		if !l.inProcessOne(t, c) {
			// Raw mode with a full ring: stop consuming further
			// input entirely; canonical drops are per-byte (handled
			// inside inProcessOne) and do not stop the loop.
			if t.Lflag&termios.ICANON == 0 {
				consumed--
				break
			}
		}
	}
	return consumed
}

// inProcessOne cooks a single byte. It returns false only when the
// byte could not be enqueued because the ring is full in raw mode
// (the one case that must halt the whole batch).
func (l *Line) inProcessOne(t *termios.Termios, c byte) bool {
	// 1. ISTRIP
	if t.Iflag&termios.ISTRIP != 0 {
		c &= 0x7f
	}

	// 2. IEXTEN literal-next: the previous byte armed l.Escaped.
	if l.Escaped {
		l.Escaped = false
		l.enqueueEcho(ring.New(c).WithEsc())
		return true
	}
	if t.Lflag&termios.IEXTEN != 0 && t.Cc[termios.VLNEXT] != termios.PosixVdisable &&
		c == t.Cc[termios.VLNEXT] {
		l.Escaped = true
		l.Backend.Echo(l, '^')
		l.Backend.Echo(l, '\b')
		return true
	}

	// 3. IEXTEN reprint
	if t.Lflag&termios.IEXTEN != 0 && t.Cc[termios.VREPRINT] != termios.PosixVdisable &&
		c == t.Cc[termios.VREPRINT] {
		l.reprint()
		return true
	}

	esc := false

	// 5. CR/LF translation.
	if c == '\r' {
		if t.Iflag&termios.IGNCR != 0 {
			return true
		}
		if t.Iflag&termios.ICRNL != 0 {
			c = '\n'
		}
	} else if c == '\n' && t.Iflag&termios.INLCR != 0 {
		c = '\r'
	}

	canon := t.Lflag&termios.ICANON != 0

	if canon {
		switch {
		case t.Cc[termios.VERASE] != termios.PosixVdisable && c == t.Cc[termios.VERASE]:
			l.backOver()
			if t.Lflag&termios.ECHOE == 0 {
				l.rawecho(c)
			}
			return true
		case t.Cc[termios.VKILL] != termios.PosixVdisable && c == t.Cc[termios.VKILL]:
			for {
				if _, ok := l.In.PopBack(); !ok {
					break
				}
			}
			if t.Lflag&termios.ECHOE == 0 {
				l.rawecho(c)
				if t.Lflag&termios.ECHOK != 0 {
					l.rawecho('\n')
				}
			}
			return true
		case t.Cc[termios.VEOF] != termios.PosixVdisable && c == t.Cc[termios.VEOF]:
			l.enqueueEcho(ring.New(c).WithEOF())
			return true
		case c == '\n':
			l.enqueueEcho(ring.New(c).WithEOT())
			return true
		case t.Cc[termios.VEOL] != termios.PosixVdisable && c == t.Cc[termios.VEOL]:
			l.enqueueEcho(ring.New(c).WithEOT())
			return true
		}
	}

	// 7. IXON flow control.
	if t.Iflag&termios.IXON != 0 {
		if t.Cc[termios.VSTOP] != termios.PosixVdisable && c == t.Cc[termios.VSTOP] {
			l.Inhibited = true
			l.raiseEventsLocal()
			return true
		}
		if l.Inhibited {
			if (t.Cc[termios.VSTART] != termios.PosixVdisable && c == t.Cc[termios.VSTART]) ||
				t.Iflag&termios.IXANY != 0 {
				l.Inhibited = false
				l.raiseEventsLocal()
				if t.Cc[termios.VSTART] != termios.PosixVdisable && c == t.Cc[termios.VSTART] {
					return true
				}
			}
		}
	}

	// 8. ISIG.
	if t.Lflag&termios.ISIG != 0 {
		var sig Signal
		switch {
		case t.Cc[termios.VINTR] != termios.PosixVdisable && c == t.Cc[termios.VINTR]:
			sig = SIGINT
		case t.Cc[termios.VQUIT] != termios.PosixVdisable && c == t.Cc[termios.VQUIT]:
			sig = SIGQUIT
		}
		if sig != 0 {
			l.Signal.Kill(l.Pgrp, sig)
			l.ttyEcho(ring.New(c))
			if t.Lflag&termios.NOFLSH == 0 {
				l.In.Clear()
			}
			return true
		}
	}

	// 4. POSIX_VDISABLE protection: a byte equal to PosixVdisable
	// (0xff) must never accidentally match a disabled Cc slot on a
	// later comparison once stored; tag it ESC so any later
	// re-examination of the stored word can never misinterpret it.
	if c == termios.PosixVdisable {
		esc = true
	}

	// 9. Overflow.
	if l.In.Full() {
		if canon {
			return true // drop this byte, keep taking more
		}
		return false // raw mode: stop the whole batch
	}

	w := ring.New(c)
	if esc {
		w = w.WithEsc()
	}
	if !canon {
		w = w.WithEOT()
	}
	l.enqueueEcho(w)
	return true
}

// enqueueEcho echoes a word (if ECHO/ECHONL calls for it), stores the
// resulting echoed width into its LEN field, and pushes it onto the
// ring, draining via in_transfer if the ring is now full.
func (l *Line) enqueueEcho(w ring.Word) {
	w = l.ttyEcho(w)
	if !l.In.Push(w) {
		return // ring full: the word is dropped (the literal-next and line-end paths reach here without checking Full)
	}
	if l.In.Full() {
		l.InTransfer()
	}
	if l.Termios.Lflag&termios.IEXTEN != 0 {
		l.ReprintDirty = true
	}
}

// raiseEventsLocal marks this line's Events flag directly. It is used
// from within InProcess, which already runs on the dispatcher
// goroutine (a back-end's DevRead calls InProcess synchronously from
// inside the event pump), so no cross-goroutine channel hop is needed
// here — only real asynchronous back-end I/O uses the Driver.events
// channel (see dispatch.go).
func (l *Line) raiseEventsLocal() { l.Events = true }
