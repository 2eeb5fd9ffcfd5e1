package tty

import "testing"

// echoRecorder is a Backend that records every byte Echo renders, for
// asserting the on-screen effect of erase/kill/reprint without a real
// device underneath.
type echoRecorder struct {
	NopBackend
	echoed []byte
}

func (e *echoRecorder) Echo(l *Line, b byte) { e.echoed = append(e.echoed, b) }

func newTestLine(t *testing.T) (*Line, *echoRecorder) {
	t.Helper()
	be := &echoRecorder{}
	mem := NewFlatMem(4096)
	l := NewLine(0, 0, be, mem, NopSignaler{}, 64)
	return l, be
}

func drainRing(l *Line) string {
	var out []byte
	for {
		w, ok := l.In.PopFront()
		if !ok {
			break
		}
		out = append(out, w.Char())
	}
	return string(out)
}
