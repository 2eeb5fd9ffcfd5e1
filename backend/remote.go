package backend

import (
	"sync"

	"github.com/gorilla/websocket"

	"tty9.dev/ttyd/internal/tty"
)

// Remote bridges a line to a websocket-connected peer, a network
// transport standing in for a local process holding a PTY's slave fd.
// Bytes written to the line go out as binary websocket frames; frames
// read from the connection are fed through InProcess the way a real
// byte source would be.
type Remote struct {
	conn *websocket.Conn

	mu     sync.Mutex
	in     []byte
	closed bool
}

// NewRemote wraps an already-upgraded websocket connection.
func NewRemote(conn *websocket.Conn) *Remote {
	return &Remote{conn: conn}
}

// Pump reads frames from the connection until it closes, appending
// each to the pending-input buffer and raising the line's events flag.
// Run this in its own goroutine: it never touches Line fields directly,
// only the raise callback and its own buffer.
func (r *Remote) Pump(l *tty.Line, raise func(idx int)) {
	for {
		_, msg, err := r.conn.ReadMessage()
		if err != nil {
			r.mu.Lock()
			r.closed = true
			r.mu.Unlock()
			raise(l.Index)
			return
		}
		r.mu.Lock()
		r.in = append(r.in, msg...)
		r.mu.Unlock()
		raise(l.Index)
	}
}

func (r *Remote) DevRead(l *tty.Line, probe bool) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if probe {
		return 0, len(r.in) > 0
	}
	if len(r.in) == 0 {
		return 0, false
	}
	n := len(r.in)
	l.InProcess(r.in)
	r.in = r.in[:0]
	return n, true
}

func (r *Remote) DevWrite(l *tty.Line, buf []byte, probe bool) (int, bool) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if probe {
		return 0, !closed
	}
	if closed {
		return 0, true
	}
	if err := r.conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
		return 0, true
	}
	return len(buf), true
}

func (r *Remote) Echo(l *tty.Line, b byte) {
	r.conn.WriteMessage(websocket.BinaryMessage, []byte{b})
}

func (r *Remote) ICancel(l *tty.Line) {
	r.mu.Lock()
	r.in = r.in[:0]
	r.mu.Unlock()
}

func (r *Remote) OCancel(l *tty.Line) {}
func (r *Remote) Break(l *tty.Line, duration int) {}

func (r *Remote) Close(l *tty.Line) {
	r.conn.Close()
}

func (r *Remote) Ioctl(l *tty.Line) {}
