package tty

import (
	"sync"
	"testing"
	"time"

	"tty9.dev/ttyd/internal/termios"
)

// memBackend is an in-memory Backend whose DevRead delivers a
// preloaded byte slice once, and whose DevWrite records everything it
// is asked to emit, for exercising the dispatcher end to end without a
// real device.
type memBackend struct {
	NopBackend
	toRead   []byte
	consumed bool

	mu      sync.Mutex
	feed    [][]byte
	written []byte
}

func (m *memBackend) DevRead(l *Line, probe bool) (int, bool) {
	m.mu.Lock()
	hasFeed := len(m.feed) > 0
	var chunk []byte
	if hasFeed && !probe {
		chunk = m.feed[0]
		m.feed = m.feed[1:]
	}
	m.mu.Unlock()

	if hasFeed {
		if probe {
			return 0, true
		}
		n := l.InProcess(chunk)
		return n, true
	}
	if m.consumed || len(m.toRead) == 0 {
		return 0, false
	}
	if probe {
		return 0, true
	}
	n := l.InProcess(m.toRead)
	m.consumed = true
	return n, true
}

// push queues a chunk to be delivered on the next DevRead and wakes the
// dispatcher, simulating a byte (or batch) arriving on the wire at an
// arbitrary later time.
func (m *memBackend) push(d *Driver, minor int, b []byte) {
	m.mu.Lock()
	m.feed = append(m.feed, b)
	m.mu.Unlock()
	d.RaiseEvents(minor)
}

func (m *memBackend) DevWrite(l *Line, buf []byte, probe bool) (int, bool) {
	if probe {
		return 0, true
	}
	m.written = append(m.written, buf...)
	return len(buf), true
}

func newTestDriver(t *testing.T, be *memBackend) *Driver {
	t.Helper()
	mem := NewFlatMem(4096)
	d := NewDriver(1, mem, NopSignaler{}, func(minor, index int) Backend { return be }, nil, nil)
	go d.Run()
	t.Cleanup(func() { close(d.requests) })
	return d
}

func TestDriverReadDeliversLine(t *testing.T) {
	be := &memBackend{toRead: []byte("hi\n")}
	d := newTestDriver(t, be)

	reply := d.Submit(Request{Op: OpOpen, Minor: 0, ProcNr: 1})
	<-reply

	d.RaiseEvents(0)

	reply = d.Submit(Request{Op: OpRead, Minor: 0, ProcNr: 1, Addr: 0, Count: 16})
	select {
	case r := <-reply:
		if r.Status != 3 {
			t.Fatalf("read status = %d, want 3", r.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("read never completed")
	}
}

func TestDriverWriteExpandsAndDelivers(t *testing.T) {
	be := &memBackend{}
	d := newTestDriver(t, be)

	mem := d.Lines[0].Mem.(*FlatMem)
	mem.CopyOut(0, []byte("a\nb"))

	reply := d.Submit(Request{Op: OpWrite, Minor: 0, ProcNr: 1, Addr: 0, Count: 3})
	select {
	case r := <-reply:
		if r.Status != 3 {
			t.Fatalf("write status = %d, want 3", r.Status)
		}
	case <-time.After(time.Second):
		t.Fatal("write never completed")
	}
	if string(be.written) != "a\r\nb" {
		t.Fatalf("written = %q, want %q", be.written, "a\r\nb")
	}
}

func TestDriverReadRawPollReturnsImmediately(t *testing.T) {
	be := &memBackend{}
	d := newTestDriver(t, be)

	reply := d.Submit(Request{Op: OpOpen, Minor: 0, ProcNr: 1})
	<-reply

	l := d.Lines[0]
	l.Termios.Lflag &^= termios.ICANON
	l.Termios.Cc[termios.VMIN] = 0
	l.Termios.Cc[termios.VTIME] = 0

	reply = d.Submit(Request{Op: OpRead, Minor: 0, ProcNr: 1, Addr: 0, Count: 16})
	select {
	case r := <-reply:
		if r.Status != 0 {
			t.Fatalf("poll read status = %d, want 0 (nothing queued, returns at once)", r.Status)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("VMIN=0,VTIME=0 read did not return immediately")
	}
}

func TestDriverReadRawPollTimeoutSatisfiedByOneByte(t *testing.T) {
	be := &memBackend{}
	d := newTestDriver(t, be)

	reply := d.Submit(Request{Op: OpOpen, Minor: 0, ProcNr: 1})
	<-reply

	l := d.Lines[0]
	l.Termios.Lflag &^= termios.ICANON
	l.Termios.Cc[termios.VMIN] = 0
	l.Termios.Cc[termios.VTIME] = 10 // 1s, far longer than the byte delay below

	reply = d.Submit(Request{Op: OpRead, Minor: 0, ProcNr: 1, Addr: 0, Count: 16})

	start := time.Now()
	go func() {
		time.Sleep(30 * time.Millisecond)
		be.push(d, 0, []byte("x"))
	}()

	select {
	case r := <-reply:
		if r.Status != 1 {
			t.Fatalf("read status = %d, want 1", r.Status)
		}
		if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
			t.Fatalf("read took %v, want well under VTIME (a single byte satisfies min==1)", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("VMIN=0,VTIME>0 read never completed")
	}
}

func TestDriverReadRawInterByteTimerRearmsOnEachByte(t *testing.T) {
	be := &memBackend{}
	d := newTestDriver(t, be)

	reply := d.Submit(Request{Op: OpOpen, Minor: 0, ProcNr: 1})
	<-reply

	l := d.Lines[0]
	l.Termios.Lflag &^= termios.ICANON
	l.Termios.Cc[termios.VMIN] = 3
	l.Termios.Cc[termios.VTIME] = 2 // 200ms inter-byte timeout

	reply = d.Submit(Request{Op: OpRead, Minor: 0, ProcNr: 1, Addr: 0, Count: 16})

	start := time.Now()
	go func() {
		be.push(d, 0, []byte("a"))
		time.Sleep(120 * time.Millisecond) // under the 200ms timeout
		be.push(d, 0, []byte("b"))
		// If the timer weren't re-armed on "b", it would already have
		// fired ~200ms after "a" lands, i.e. ~80ms from here.
	}()

	select {
	case r := <-reply:
		if r.Status != 2 {
			t.Fatalf("read status = %d, want 2 (\"ab\", still short of VMIN=3)", r.Status)
		}
		elapsed := time.Since(start)
		if elapsed < 300*time.Millisecond {
			t.Fatalf("read completed after %v, want >= ~320ms (timer must restart on the second byte)", elapsed)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("inter-byte timer read never completed")
	}
}

func TestDriverIoctlGetSet(t *testing.T) {
	be := &memBackend{}
	d := newTestDriver(t, be)

	reply := d.Submit(Request{Op: OpIoctl, Minor: 0, ProcNr: 1, IoctlReq: termios.TCGETS})
	r := <-reply
	if r.Termios.Lflag == 0 {
		t.Fatal("TCGETS returned a zero termios")
	}

	next := r.Termios
	next.Cc[termios.VEOL] = 0
	reply = d.Submit(Request{Op: OpIoctl, Minor: 0, ProcNr: 1, IoctlReq: termios.TCSETS, Termios: next})
	r = <-reply
	if r.Status != 0 {
		t.Fatalf("TCSETS status = %d, want 0", r.Status)
	}
}
