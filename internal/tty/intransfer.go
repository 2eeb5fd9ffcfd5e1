package tty

// InTransfer copies queued, ready input to the outstanding reader's
// buffer, bounceSize bytes at a time, and completes (or partially
// advances) the pending readSlot. It is called by the event pump after
// the back-end has fed input through InProcess, by InProcess itself
// when the ring fills, and directly from doRead when a request
// arrives. A VMIN/VTIME timer expiry does not come through here:
// expireRead uses drainReadForced instead.
//
// Delivery readiness is eotct>=min (raw mode with min==0 is always
// ready, even on an empty ring, so a poll-style read returns zero
// bytes immediately rather than waiting).
func (l *Line) InTransfer() {
	if !l.read.active {
		return
	}
	if l.In.EOTCount() < l.min && !(l.min == 0 && l.read.cum == 0) {
		return
	}

	canon := l.Canonical()
	buf := make([]byte, 0, bounceSize)
	delivered := false

	for l.read.left > 0 {
		w, ok := l.In.PeekFront()
		if !ok {
			break
		}
		if w.EOF() {
			l.In.PopFront()
			delivered = true
			break // EOF ends the read without being copied out, canonical only
		}

		buf = append(buf, w.Char())
		atEOT := w.EOT()
		l.In.PopFront()
		l.read.left--

		if len(buf) == cap(buf) || atEOT || l.In.Empty() {
			if err := l.Mem.CopyOut(l.read.vir+uintptr(l.read.cum), buf); err != nil {
				l.completeRead(EFAULT)
				return
			}
			l.read.cum += len(buf)
			buf = buf[:0]
		}
		if canon && atEOT {
			break
		}
		if !canon && l.read.cum >= l.min && l.min > 0 {
			break
		}
	}

	if len(buf) > 0 {
		if err := l.Mem.CopyOut(l.read.vir+uintptr(l.read.cum), buf); err != nil {
			l.completeRead(EFAULT)
			return
		}
		l.read.cum += len(buf)
	}

	if l.read.cum > 0 || delivered || l.read.left == 0 || (l.min == 0 && !canon) {
		l.completeRead(Errno(l.read.cum))
	}
}

// drainReadForced copies whatever is currently queued into the pending
// read's buffer regardless of the eotct>=min threshold InTransfer
// enforces. It is used when the VMIN/VTIME inter-byte timer expires: a
// raw read that never reached VMIN still returns whatever arrived
// before VTIME timed out, rather than nothing.
func (l *Line) drainReadForced() Errno {
	buf := make([]byte, 0, bounceSize)
	for l.read.left > 0 {
		w, ok := l.In.PeekFront()
		if !ok {
			break
		}
		if w.EOF() {
			l.In.PopFront()
			break
		}
		buf = append(buf, w.Char())
		l.In.PopFront()
		l.read.left--
		if len(buf) == cap(buf) || l.In.Empty() {
			if err := l.Mem.CopyOut(l.read.vir+uintptr(l.read.cum), buf); err != nil {
				return EFAULT
			}
			l.read.cum += len(buf)
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if err := l.Mem.CopyOut(l.read.vir+uintptr(l.read.cum), buf); err != nil {
			return EFAULT
		}
		l.read.cum += len(buf)
	}
	return 0
}

// completeRead finishes the outstanding read with the given status
// (a byte count cast to Errno for a success, or a genuine negative
// Errno for a failure) and clears the pending slot.
func (l *Line) completeRead(status Errno) {
	l.read.active = false
	l.read.repcode = ReplyRevive
	l.read.revived = true
	l.read.status = int(status)
}
