package tty

import (
	"tty9.dev/ttyd/internal/ring"
	"tty9.dev/ttyd/internal/termios"
)

// ttyEcho renders one newly cooked word to the back-end when ECHO (or,
// for a bare newline, ECHONL) calls for it, and returns w with its LEN
// field set to the number of columns the rendering took — backOver and
// reprint replay that count later without re-deriving it.
func (l *Line) ttyEcho(w ring.Word) ring.Word {
	t := &l.Termios
	c := w.Char()

	echoOn := t.Lflag&termios.ECHO != 0
	echoNL := t.Lflag&termios.ECHONL != 0 && c == '\n' && t.Lflag&termios.ICANON != 0

	if !echoOn && !echoNL {
		return w.WithLen(0)
	}
	if w.EOF() {
		// EOF words are not delivered and are not echoed either,
		// unless the discipline is raw (handled by the caller never
		// tagging EOF outside canonical mode).
		return w.WithLen(0)
	}

	width := l.rawechoWidth(c)
	return w.WithLen(width)
}

// rawechoWidth writes c's on-screen rendering to the back-end and
// returns the number of columns it occupied, tracking l.Position for
// tab math the same way OutProcess does for output.
func (l *Line) rawechoWidth(c byte) int {
	switch {
	case c == '\t':
		n := TabSize - (l.Position & TabMask)
		for i := 0; i < n; i++ {
			l.Backend.Echo(l, ' ')
		}
		l.Position += n
		return n
	case c == '\n' || c == '\r':
		l.Backend.Echo(l, c)
		l.Position = 0
		return 0
	case c == 127: // DEL
		l.Backend.Echo(l, '^')
		l.Backend.Echo(l, '?')
		l.Position += 2
		return 2
	case c < 32 && c != '\t':
		l.Backend.Echo(l, '^')
		l.Backend.Echo(l, c+'@')
		l.Position += 2
		return 2
	}
	l.Backend.Echo(l, c)
	l.Position++
	return 1
}

// rawecho writes c to the back-end without consulting ECHO, used for
// erase/kill's own echo when ECHOE/ECHOK ask for it to be shown
// verbatim rather than backspaced over.
func (l *Line) rawecho(c byte) {
	l.Backend.Echo(l, c)
	if c == '\n' || c == '\r' {
		l.Position = 0
	} else {
		l.Position++
	}
}

// backOver erases the most recently queued (not yet delivered) word:
// pops it, and if ECHOE is set, backspaces over exactly the number of
// columns it was echoed in (its stored LEN), overwriting with spaces
// and backspacing again. It is a no-op if the ring is empty, since
// erase never crosses a line boundary and PopBack already refuses to
// pop past the last EOT.
func (l *Line) backOver() {
	w, ok := l.In.PopBack()
	if !ok {
		return
	}
	if l.Termios.Lflag&termios.ECHOE == 0 {
		return
	}
	n := w.Len()
	for i := 0; i < n; i++ {
		l.Backend.Echo(l, '\b')
	}
	for i := 0; i < n; i++ {
		l.Backend.Echo(l, ' ')
	}
	for i := 0; i < n; i++ {
		l.Backend.Echo(l, '\b')
	}
	if l.Position >= n {
		l.Position -= n
	} else {
		l.Position = 0
	}
}

// reprint re-echoes the undelivered portion of the current line (from
// just after the last EOT boundary to the tail) after printing "^R\r\n",
// recomputing and storing each word's LEN as it goes, and clears
// l.ReprintDirty. It runs only as IEXTEN's VREPRINT action: output
// written while a canonical line is partly typed does not trigger it.
func (l *Line) reprint() {
	l.Backend.Echo(l, '^')
	l.Backend.Echo(l, 'R')
	l.Backend.Echo(l, '\r')
	l.Backend.Echo(l, '\n')
	l.Position = 0

	start := l.In.LastEOTPos() + 1
	l.In.EachFromHead(func(pos int, w ring.Word) bool {
		if pos < start {
			return true
		}
		width := l.rawechoWidth(w.Char())
		l.In.SetAt(pos, w.WithLen(width))
		return true
	})
	l.ReprintDirty = false
}
