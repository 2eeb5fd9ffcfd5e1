// Package backend collects the concrete device back-ends this driver
// can plug into a Line: a local text console, a real serial port, a
// pseudo-terminal pair, and a network-bridged remote peer.
package backend

import (
	"io"
	"sync"

	"github.com/markkurossi/vt100"

	"tty9.dev/ttyd/internal/tty"
)

// Console is the local text-console back-end: it keeps a screen model
// (cursor, scrollback) via vt100.VT100 and reads raw bytes fed to it
// from a real keyboard source (typically the operator's own terminal,
// put in raw mode by cmd/ttyd via golang.org/x/term).
type Console struct {
	mu     sync.Mutex
	screen *vt100.VT100
	in     chan byte
	closed bool
}

// NewConsole returns a Console with a cols x rows screen.
func NewConsole(cols, rows int) *Console {
	return &Console{
		screen: vt100.NewVT100(rows, cols),
		in:     make(chan byte, 4096),
	}
}

// Feed is called by whatever owns the real keyboard source (cmd/ttyd's
// raw-mode read loop) to hand this console one more input byte; it
// buffers the byte and raises the line's events flag so the dispatcher
// picks it up on its next pass.
func (c *Console) Feed(l *tty.Line, raise func(idx int), b byte) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	select {
	case c.in <- b:
		raise(l.Index)
	default:
		// input overrun: drop, matching in_process's own ring-full
		// drop behavior for canonical mode rather than blocking the
		// feeder goroutine.
	}
}

func (c *Console) DevRead(l *tty.Line, probe bool) (int, bool) {
	if probe {
		return 0, len(c.in) > 0
	}
	n := 0
	for {
		select {
		case b := <-c.in:
			l.InProcess([]byte{b})
			n++
		default:
			return n, n > 0
		}
	}
}

func (c *Console) DevWrite(l *tty.Line, buf []byte, probe bool) (int, bool) {
	if probe {
		return 0, true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.screen.Write(buf)
	if err != nil {
		return 0, true
	}
	return n, true
}

func (c *Console) Echo(l *tty.Line, b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.screen.Write([]byte{b})
}

func (c *Console) ICancel(l *tty.Line) {
	for {
		select {
		case <-c.in:
		default:
			return
		}
	}
}

func (c *Console) OCancel(l *tty.Line) {}

func (c *Console) Break(l *tty.Line, duration int) {}

func (c *Console) Close(l *tty.Line) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Console) Ioctl(l *tty.Line) {}

// Screen exposes the underlying emulator for a caller (cmd/ttyd) that
// wants to render the current grid, e.g. after a batch of writes.
func (c *Console) Screen() io.Writer { return c.screen }
