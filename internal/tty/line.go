package tty

import (
	"tty9.dev/ttyd/internal/ring"
	"tty9.dev/ttyd/internal/termios"
)

// ReplyCode distinguishes a reply the dispatcher can send immediately
// from one that must wait for a later completion.
type ReplyCode int

const (
	ReplyNone ReplyCode = iota
	ReplyImmediate
	ReplyRevive
)

// SelectOps is a bitmask of the three POSIX select readiness classes.
type SelectOps int

const (
	SelRead SelectOps = 1 << iota
	SelWrite
	SelException
)

// readSlot is the pending-reader continuation: the outstanding read's
// caller, target address, remaining/accumulated counts, and how its
// reply should be delivered once satisfied.
type readSlot struct {
	active   bool
	caller   int32
	procNr   int32
	vir      uintptr
	left     int
	cum      int
	repcode  ReplyCode
	revived  bool
	status   int
	min      int
	nonblock bool
	reply    chan Reply
}

// writeSlot is the pending-writer continuation, mirroring readSlot.
type writeSlot struct {
	active   bool
	caller   int32
	procNr   int32
	vir      uintptr
	left     int
	cum      int
	repcode  ReplyCode
	revived  bool
	status   int
	nonblock bool
	reply    chan Reply
}

// ioctlSlot is the pending drain-before-set continuation for
// TCSETSW/TCSETSF/TCDRAIN.
type ioctlSlot struct {
	active    bool
	caller    int32
	procNr    int32
	req       termios.Request
	vir       uintptr
	flush     bool // TCSETSF: cancel input once output has drained
	drainOnly bool // TCDRAIN: wait for drain, apply no termios change
	reply     chan Reply
}

// selectSlot is the recorded select-watch request.
type selectSlot struct {
	active bool
	ops    SelectOps
	caller int32
}

// Line is the per-line state: identity, termios, the input ring, the
// three pending-request slots, select bookkeeping, and the back-end
// upcall table. Exactly one goroutine — the owning Driver's dispatch
// loop — ever touches a Line.
type Line struct {
	Minor   int
	Index   int
	Backend Backend
	Mem     UserMem
	Signal  Signaler

	Termios  termios.Termios
	Winsize  termios.Winsize
	Position int
	Pgrp     int32
	OpenCt   int

	Inhibited    bool // XOFF: output paused by flow control
	Escaped      bool // literal-next (VLNEXT) latch
	ReprintDirty bool // characters typed since the last reprint

	In *ring.Ring

	read   readSlot
	write  writeSlot
	ioctlP ioctlSlot
	sel    selectSlot

	// pendingTermios holds a TCSETSW/TCSETSF's new value while
	// ioctlP.active waits for the outstanding write to drain.
	pendingTermios termios.Termios

	min int // effective VMIN for the current/next read

	// Events is the edge flag a back-end upcall or timer expiry raises
	// to ask the dispatcher to run the event pump for this line. The
	// Driver, not the Line, owns the channel this flag is delivered
	// over; see dispatch.go.
	Events bool
}

// NewLine returns a line reset to its default (closed) state: default
// termios, an empty input ring of the given capacity, and the given
// back-end.
func NewLine(minor, index int, be Backend, mem UserMem, sig Signaler, ringCap int) *Line {
	if be == nil {
		be = NopBackend{}
	}
	if sig == nil {
		sig = NopSignaler{}
	}
	l := &Line{
		Minor:   minor,
		Index:   index,
		Backend: be,
		Mem:     mem,
		Signal:  sig,
		Termios: termios.Default(),
		In:      ring.NewRing(ringCap),
	}
	l.min = effectiveMin(l.Termios)
	return l
}

// Canonical reports whether the line is in canonical (cooked) mode.
func (l *Line) Canonical() bool { return l.Termios.Lflag&termios.ICANON != 0 }

// ReadActive reports whether a read is currently outstanding.
func (l *Line) ReadActive() bool { return l.read.active }

// WriteActive reports whether a write is currently outstanding.
func (l *Line) WriteActive() bool { return l.write.active }

// reset restores a line to its power-on-equivalent state: default
// termios and winsize, and an emptied input ring. Called when the
// last opener closes the line.
func (l *Line) reset() {
	l.Termios = termios.Default()
	l.Winsize = termios.Winsize{}
	l.Position = 0
	l.Inhibited = false
	l.Escaped = false
	l.ReprintDirty = false
	l.In.Clear()
	l.min = effectiveMin(l.Termios)
}
