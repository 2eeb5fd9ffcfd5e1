package tty

import (
	"log/slog"
	"time"

	"tty9.dev/ttyd/internal/termios"
	"tty9.dev/ttyd/internal/timerq"
)

// OpKind names the operation a Request carries: every request states
// outright what it wants done instead of the dispatcher inferring it
// from which field happens to be non-zero.
type OpKind int

const (
	OpRead OpKind = iota
	OpWrite
	OpIoctl
	OpOpen
	OpClose
	OpSelect
	OpCancel
	OpBreak
	OpDiagnostic
	OpRegisterFuncKey
	OpUnregisterFuncKey
	OpFuncKeyPressed
)

// Request is one message the dispatcher accepts. Reply is a
// capacity-1 channel the dispatcher sends exactly once on: either
// immediately, for a request that completes inline, or later, when a
// suspended read/write/ioctl is revived.
type Request struct {
	Op       OpKind
	Minor    int
	Caller   int32
	ProcNr   int32
	Count    int
	Addr     uintptr
	Nonblock bool

	IoctlReq termios.Request
	Termios  termios.Termios // TCSETS*'s new value, or TCGETS's out param filled by the reply
	Winsize  termios.Winsize
	IntArg   int // TCSBRK/TCXONC/TCFLSH/TIOCG|SPGRP scalar argument

	SelectOps   SelectOps
	SelectWatch bool

	CancelOp OpKind // which outstanding operation to cancel (OpRead, OpWrite, or OpIoctl)

	Message string // diagnostic text (OpDiagnostic)
	FuncKey int    // F1-F12 slot (OpRegisterFuncKey/OpUnregisterFuncKey/OpFuncKeyPressed)

	Reply chan Reply
}

// Reply is what the dispatcher sends back for a Request, whether
// immediately or after a revive.
type Reply struct {
	ProcNr    int32
	Status    int // byte count, or a negative Errno
	Termios   termios.Termios
	Winsize   termios.Winsize
	IntArg    int
	SelectOps SelectOps
}

// Driver owns every line and the single global timer set, and is the
// only thing that ever mutates Line state. Its Run loop selects
// between a channel of pending device activity across every configured
// line, a pending-timer channel, and a channel of incoming Requests.
type Driver struct {
	Lines  []*Line
	Timers *timerq.Set

	events   chan int // back-ends: "line index has pending device activity"
	requests chan Request

	logMinor int
	logRing  []string

	// funcKeys tracks which callers registered interest in which F1-F12
	// slot, keyed by key number.
	funcKeys map[int][]int32

	notify func(caller int32)
	log    *slog.Logger
}

// NewDriver returns a Driver with n lines, each freshly constructed
// with the given back-end factory (called once per line so distinct
// lines can have distinct back-ends, e.g. one console plus several
// pty pairs).
func NewDriver(n int, mem UserMem, sig Signaler, backendFor func(minor, index int) Backend, notify func(caller int32), log *slog.Logger) *Driver {
	if log == nil {
		log = slog.Default()
	}
	d := &Driver{
		Timers:   timerq.NewSet(),
		events:   make(chan int, n+1),
		requests: make(chan Request, 16),
		logMinor: n,
		funcKeys: make(map[int][]int32),
		notify:   notify,
		log:      log,
	}
	d.Lines = make([]*Line, n)
	for i := 0; i < n; i++ {
		d.Lines[i] = NewLine(i, i, backendFor(i, i), mem, sig, DefaultInputRing)
	}
	return d
}

// Submit enqueues a request for the dispatcher and returns the channel
// its reply (immediate or revived) will arrive on. Callers read exactly
// one Reply from the returned channel.
func (d *Driver) Submit(req Request) chan Reply {
	if req.Reply == nil {
		req.Reply = make(chan Reply, 1)
	}
	d.requests <- req
	return req.Reply
}

// RaiseEvents is the back-end upcall: it tells the dispatcher that line
// idx has device activity worth an event-pump pass. It never blocks
// (the events channel is sized to one slot per line plus one, and a
// back-end never raises twice before the dispatcher drains once per
// line in practice); a full channel drops the notification only under
// extreme concurrent load from many back-ends at once, in which case
// the next real I/O activity raises it again.
func (d *Driver) RaiseEvents(idx int) {
	select {
	case d.events <- idx:
	default:
	}
}

// Run is the dispatcher's single goroutine: the only place any Line's
// state is ever read or written. It drains pending back-end events,
// runs the event pump for every line so marked, expires timers, and
// dispatches one request, in a loop, until requests is closed.
func (d *Driver) Run() {
	for {
		d.drainEvents()
		d.pumpDirty()

		var timerC <-chan time.Time
		if next, ok := d.Timers.Next(); ok {
			timerC = time.After(time.Until(next))
		}

		select {
		case idx, ok := <-d.events:
			if !ok {
				return
			}
			d.Lines[idx].Events = true
		case now := <-timerC:
			d.Timers.Expire(now)
		case req, ok := <-d.requests:
			if !ok {
				return
			}
			d.dispatch(req)
		}
	}
}

func (d *Driver) drainEvents() {
	for {
		select {
		case idx := <-d.events:
			d.Lines[idx].Events = true
		default:
			return
		}
	}
}

// pumpDirty runs the event pump for every line with a raised Events
// flag: pull whatever the back-end has to offer, cook it through
// InProcess, try to satisfy a pending read, drive a pending write, and
// re-check any recorded select watch.
func (d *Driver) pumpDirty() {
	for _, l := range d.Lines {
		if !l.Events {
			continue
		}
		l.Events = false
		d.pump(l)
	}
}

func (d *Driver) pump(l *Line) {
	if n, _ := l.Backend.DevRead(l, false); n > 0 {
		l.InTransfer()
		d.armReadTimer(l)
	}
	l.driveWrite()
	if !l.write.active {
		d.finishDrainedIoctl(l)
	}
	if caller, _, ok := l.selectRetry(); ok && d.notify != nil {
		d.notify(caller)
	}
	d.deliverRevives(l)
}

// deliverRevives sends a Reply on the read or write slot's channel
// when InTransfer, expireRead or driveWrite marked it revived, then
// clears the slot so it is not delivered twice. A drained
// TCSETSW/TCSETSF/TCDRAIN is answered by finishDrainedIoctl itself.
func (d *Driver) deliverRevives(l *Line) {
	if l.read.revived {
		if l.read.reply != nil {
			l.read.reply <- Reply{ProcNr: l.read.procNr, Status: l.read.status}
		}
		l.read.reply = nil
		l.read.revived = false
	}
	if l.write.revived {
		if l.write.reply != nil {
			l.write.reply <- Reply{ProcNr: l.write.procNr, Status: l.write.status}
		}
		l.write.reply = nil
		l.write.revived = false
	}
}

func (d *Driver) dispatch(req Request) {
	if req.Minor < 0 || req.Minor >= len(d.Lines) {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(ENXIO)}
		return
	}
	l := d.Lines[req.Minor]

	switch req.Op {
	case OpOpen:
		d.doOpen(l, req)
	case OpClose:
		d.doClose(l, req)
	case OpRead:
		d.doRead(l, req)
	case OpWrite:
		d.doWrite(l, req)
	case OpIoctl:
		d.doIoctl(l, req)
	case OpSelect:
		ready := l.doSelect(req.SelectOps, req.SelectWatch, req.Caller)
		req.Reply <- Reply{ProcNr: req.ProcNr, SelectOps: ready}
	case OpCancel:
		d.doCancel(l, req)
	case OpBreak:
		l.Backend.Break(l, req.IntArg)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
	case OpDiagnostic:
		d.logDiagnostic(req.Message)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
	case OpRegisterFuncKey:
		d.funcKeys[req.FuncKey] = append(d.funcKeys[req.FuncKey], req.Caller)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
	case OpUnregisterFuncKey:
		keys := d.funcKeys[req.FuncKey]
		for i, c := range keys {
			if c == req.Caller {
				d.funcKeys[req.FuncKey] = append(keys[:i], keys[i+1:]...)
				break
			}
		}
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
	case OpFuncKeyPressed:
		for _, caller := range d.funcKeys[req.FuncKey] {
			if d.notify != nil {
				d.notify(caller)
			}
		}
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
	default:
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EINVAL)}
	}
}

func (d *Driver) doOpen(l *Line, req Request) {
	l.OpenCt++
	req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
}

func (d *Driver) doClose(l *Line, req Request) {
	if l.OpenCt > 0 {
		l.OpenCt--
	}
	if l.OpenCt == 0 {
		l.reset()
		l.Backend.Close(l)
		l.cancelSelect()
		d.Timers.Disarm(l.Index)
	}
	req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
}

func (d *Driver) doRead(l *Line, req Request) {
	if l.read.active {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EIO)}
		return
	}
	if req.Count <= 0 {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EINVAL)}
		return
	}
	l.read = readSlot{
		active: true, caller: req.Caller, procNr: req.ProcNr,
		vir: req.Addr, left: req.Count, min: effectiveMin(l.Termios),
		nonblock: req.Nonblock, reply: req.Reply,
	}
	l.min = l.read.min
	l.InTransfer()
	if l.read.active && l.read.nonblock {
		l.read.active = false
		if l.read.cum > 0 {
			req.Reply <- Reply{ProcNr: req.ProcNr, Status: l.read.cum}
		} else {
			req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EAGAIN)}
		}
		return
	}
	if l.read.active {
		d.armReadTimer(l)
	}
	if !l.read.active {
		d.deliverRevives(l)
	}
}

// armReadTimer (re)arms or disarms the VMIN/VTIME read timer for l,
// called after read-start and after every subsequent byte arrival
// while a read is still outstanding. VMIN==0,VTIME>0 (the poll
// timeout) arms right away, since any byte at all satisfies min==1 and
// completes the read through InTransfer before this is even reached.
// VMIN>0,VTIME>0 (the inter-byte timer) defers arming until the ring
// holds at least one byte — with an empty ring at read time there is
// no byte to time from yet — and is re-armed here on every later call,
// so each new byte resets the timeout the way the inter-byte timer is
// supposed to.
func (d *Driver) armReadTimer(l *Line) {
	if !l.read.active || l.Canonical() {
		d.Timers.Disarm(l.Index)
		return
	}
	vmin := int(l.Termios.Cc[termios.VMIN])
	vtime := int(l.Termios.Cc[termios.VTIME])
	if vtime == 0 || (vmin > 0 && l.In.Empty()) {
		d.Timers.Disarm(l.Index)
		return
	}
	d.Timers.Arm(l.Index, time.Duration(vtime)*100*time.Millisecond, func(idx int) {
		d.expireRead(d.Lines[idx])
	})
}

func (d *Driver) expireRead(l *Line) {
	if !l.read.active {
		return
	}
	if err := l.drainReadForced(); err != 0 {
		l.completeRead(err)
	} else {
		l.completeRead(Errno(l.read.cum))
	}
	d.deliverRevives(l)
}

func (d *Driver) doWrite(l *Line, req Request) {
	if l.write.active {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EIO)}
		return
	}
	if req.Count <= 0 {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EINVAL)}
		return
	}
	l.write = writeSlot{
		active: true, caller: req.Caller, procNr: req.ProcNr,
		vir: req.Addr, left: req.Count, nonblock: req.Nonblock, reply: req.Reply,
	}
	l.driveWrite()
	if l.write.active && l.write.nonblock {
		l.write.active = false
		if l.write.cum > 0 {
			req.Reply <- Reply{ProcNr: req.ProcNr, Status: l.write.cum}
		} else {
			req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(EAGAIN)}
		}
		return
	}
	if !l.write.active {
		d.deliverRevives(l)
	}
}

func (d *Driver) doCancel(l *Line, req Request) {
	switch req.CancelOp {
	case OpRead:
		if l.read.active {
			l.Backend.ICancel(l)
			d.Timers.Disarm(l.Index)
			l.read.active = false
			if l.read.reply != nil {
				l.read.reply <- Reply{ProcNr: l.read.procNr, Status: int(EINTR)}
			}
			l.read.reply = nil
		}
	case OpWrite:
		if l.write.active {
			l.Backend.OCancel(l)
			l.write.active = false
			if l.write.reply != nil {
				l.write.reply <- Reply{ProcNr: l.write.procNr, Status: int(EINTR)}
			}
			l.write.reply = nil
		}
	case OpIoctl:
		if l.ioctlP.active {
			if l.ioctlP.reply != nil {
				l.ioctlP.reply <- Reply{ProcNr: l.ioctlP.procNr, Status: int(EINTR)}
			}
			l.ioctlP = ioctlSlot{}
		}
	}
	req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
}

func (d *Driver) doIoctl(l *Line, req Request) {
	if _, known := termios.Param(req.IoctlReq); !known {
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(ENOTTY)}
		return
	}

	switch req.IoctlReq {
	case termios.TCGETS:
		req.Reply <- Reply{ProcNr: req.ProcNr, Termios: l.Termios}
		return
	case termios.TCSETS:
		d.SetAttr(l, req.Termios)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TCSETSW, termios.TCSETSF:
		l.ioctlP = ioctlSlot{active: true, caller: req.Caller, procNr: req.ProcNr,
			req: req.IoctlReq, reply: req.Reply, flush: req.IoctlReq == termios.TCSETSF}
		l.pendingTermios = req.Termios
		if !l.write.active {
			d.finishDrainedIoctl(l)
		}
		return
	case termios.TIOCGWINSZ:
		req.Reply <- Reply{ProcNr: req.ProcNr, Winsize: l.Winsize}
		return
	case termios.TIOCSWINSZ:
		old := l.Winsize
		l.Winsize = req.Winsize
		if old != l.Winsize {
			l.Signal.Kill(l.Pgrp, SIGWINCH)
		}
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TIOCGPGRP:
		req.Reply <- Reply{ProcNr: req.ProcNr, IntArg: int(l.Pgrp)}
		return
	case termios.TIOCSPGRP:
		l.Pgrp = int32(req.IntArg)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TCFLSH:
		switch req.IntArg {
		case termios.TCIFLUSH:
			l.In.Clear()
			l.Backend.ICancel(l)
		case termios.TCOFLUSH:
			l.Backend.OCancel(l)
		case termios.TCIOFLUSH:
			l.In.Clear()
			l.Backend.ICancel(l)
			l.Backend.OCancel(l)
		}
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TCXONC:
		switch req.IntArg {
		case termios.TCOOFF:
			l.Inhibited = true
		case termios.TCOON:
			l.Inhibited = false
			l.raiseEventsLocal()
		case termios.TCIOFF, termios.TCION:
			// input flow control toward the far end: no local action
			// for a driver with no physical wire to assert on.
		}
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TCSBRK:
		l.Backend.Break(l, req.IntArg)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	case termios.TCDRAIN:
		l.ioctlP = ioctlSlot{active: true, caller: req.Caller, procNr: req.ProcNr,
			req: req.IoctlReq, reply: req.Reply, drainOnly: true}
		if !l.write.active {
			d.finishDrainedIoctl(l)
		}
		return
	case termios.KeymapSet, termios.FontSet:
		l.Backend.Ioctl(l)
		req.Reply <- Reply{ProcNr: req.ProcNr, Status: 0}
		return
	}
	req.Reply <- Reply{ProcNr: req.ProcNr, Status: int(ENOTTY)}
}

// finishDrainedIoctl completes a TCSETSW/TCSETSF/TCDRAIN once any
// outstanding write has drained: TCSETSF also discards queued input,
// and both apply the pending termios; TCDRAIN applies no termios
// change at all, it exists only to wait for the drain.
func (d *Driver) finishDrainedIoctl(l *Line) {
	if !l.ioctlP.active {
		return
	}
	if l.ioctlP.flush {
		l.In.Clear()
		l.Backend.ICancel(l)
	}
	if !l.ioctlP.drainOnly {
		d.SetAttr(l, l.pendingTermios)
	}
	if l.ioctlP.reply != nil {
		l.ioctlP.reply <- Reply{ProcNr: l.ioctlP.procNr, Status: 0}
	}
	l.ioctlP = ioctlSlot{}
}

// Diagnostic queues msg for the kernel log device: the dispatcher
// appends it to the in-memory diagnostic ring (the newest 256 messages
// are kept) and logs it through the driver's slog logger. It is not
// written to any console line.
func (d *Driver) Diagnostic(msg string) {
	reply := make(chan Reply, 1)
	d.requests <- Request{Op: OpDiagnostic, Minor: d.logMinor - 1, Message: msg, Reply: reply}
	<-reply
}

// RegisterFuncKey records caller's interest in one of the F1-F12 keys;
// FuncKeyPressed later notifies every registered caller when the
// console back-end reports that key struck.
func (d *Driver) RegisterFuncKey(caller int32, key int) {
	reply := make(chan Reply, 1)
	d.requests <- Request{Op: OpRegisterFuncKey, Minor: 0, Caller: caller, FuncKey: key, Reply: reply}
	<-reply
}

func (d *Driver) UnregisterFuncKey(caller int32, key int) {
	reply := make(chan Reply, 1)
	d.requests <- Request{Op: OpUnregisterFuncKey, Minor: 0, Caller: caller, FuncKey: key, Reply: reply}
	<-reply
}

func (d *Driver) FuncKeyPressed(key int) {
	reply := make(chan Reply, 1)
	d.requests <- Request{Op: OpFuncKeyPressed, Minor: 0, FuncKey: key, Reply: reply}
	<-reply
}

func (d *Driver) logDiagnostic(msg string) {
	d.logRing = append(d.logRing, msg)
	if len(d.logRing) > 256 {
		d.logRing = d.logRing[len(d.logRing)-256:]
	}
	d.log.Info("tty diagnostic", "message", msg)
}
