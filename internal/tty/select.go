package tty

import "tty9.dev/ttyd/internal/termios"

// selectTry computes, without blocking or mutating anything but the
// back-end probe path, which of the requested SelectOps are ready on l
// right now: SelRead if a read is already pending, a read for min==0
// (raw, non-blocking) would return immediately, or the ring already
// holds a deliverable unit; SelWrite if a write is already pending or
// the back-end would currently accept more output; SelException is
// reported only by the hang-up case: a hung-up line (Ospeed==B0)
// reports every requested op ready, SelException included, without
// touching the back-end at all.
//
// The "does this line have a deliverable unit" half reuses the exact
// eotct>=min test InTransfer uses so readiness and delivery never
// disagree.
func (l *Line) selectTry(ops SelectOps) SelectOps {
	if l.Termios.Ospeed == termios.B0 {
		return ops
	}
	var ready SelectOps
	if ops&SelRead != 0 {
		switch {
		case l.read.active:
			ready |= SelRead
		case l.In.EOTCount() >= effectiveMin(l.Termios) && (!l.In.Empty() || effectiveMin(l.Termios) == 0):
			ready |= SelRead
		default:
			if _, ok := l.Backend.DevRead(l, true); ok {
				ready |= SelRead
			}
		}
	}
	if ops&SelWrite != 0 {
		switch {
		case l.write.active:
			ready |= SelWrite
		default:
			if _, ok := l.Backend.DevWrite(l, nil, true); ok {
				ready |= SelWrite
			}
		}
	}
	return ready
}

// doSelect answers one select request: it always computes and returns
// the ready mask immediately, and additionally records a watch slot
// when watch is requested so a later readiness change can notify the
// caller out-of-band (see Driver.notify in dispatch.go). A second
// select call from the same caller replaces any previous watch.
func (l *Line) doSelect(ops SelectOps, watch bool, caller int32) SelectOps {
	ready := l.selectTry(ops)
	if watch {
		l.sel = selectSlot{active: true, ops: ops &^ ready, caller: caller}
	}
	return ready
}

// selectRetry re-checks a line's recorded watch slot after some event
// that might have changed readiness (input arrived, output drained,
// flow control toggled) and reports the caller to notify plus which
// ops newly became ready, clearing the slot's satisfied bits. It
// reports ok=false if there is no active watch or nothing new is
// ready.
func (l *Line) selectRetry() (caller int32, newlyReady SelectOps, ok bool) {
	if !l.sel.active {
		return 0, 0, false
	}
	ready := l.selectTry(l.sel.ops)
	if ready == 0 {
		return 0, 0, false
	}
	l.sel.ops &^= ready
	if l.sel.ops == 0 {
		l.sel.active = false
	}
	return l.sel.caller, ready, true
}

// cancelSelect drops any recorded watch slot for this line, used when
// a line is closed.
func (l *Line) cancelSelect() { l.sel = selectSlot{} }
