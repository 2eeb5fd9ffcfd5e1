package tty

import "tty9.dev/ttyd/internal/termios"

// effectiveMin computes the number of ring entries a read must see
// before it can be satisfied, from VMIN/VTIME/ICANON:
//
//	canonical                      -> 1 (a full line, i.e. one EOT)
//	raw, VMIN==0, VTIME==0         -> 0 (poll: return whatever is queued now)
//	raw, VMIN==0, VTIME>0          -> 1, but the timer forces delivery of 0 on fire
//	raw, VMIN>0,  VTIME==0         -> VMIN
//	raw, VMIN>0,  VTIME>0          -> VMIN (the inter-byte timer only rearms
//	                                   readiness, it does not change the count)
func effectiveMin(t termios.Termios) int {
	if t.Lflag&termios.ICANON != 0 {
		return 1
	}
	vmin := int(t.Cc[termios.VMIN])
	vtime := int(t.Cc[termios.VTIME])
	if vmin == 0 {
		if vtime == 0 {
			return 0
		}
		return 1
	}
	return vmin
}

// SetAttr installs new termios settings, applying the necessary side
// effects: an EOT stamp on every queued word when canonical mode is
// turned off (so already-typed-ahead bytes become immediately
// deliverable instead of waiting for a line that will never come), a
// disarm of any running VMIN/VTIME timer, a recomputed effective min,
// clearing an IXON-driven inhibited flag when IXON is turned off, and a
// hangup signal when the caller asks for speed B0.
func (d *Driver) SetAttr(l *Line, next termios.Termios) {
	wasCanon := l.Canonical()
	wasIXON := l.Termios.Iflag&termios.IXON != 0

	l.Termios = next

	if wasCanon && next.Lflag&termios.ICANON == 0 {
		l.In.StampAllEOT()
	}
	if wasIXON && next.Iflag&termios.IXON == 0 {
		l.Inhibited = false
	}

	d.Timers.Disarm(l.Index)
	l.min = effectiveMin(l.Termios)

	if next.Ospeed == termios.B0 {
		l.Signal.Kill(l.Pgrp, SIGHUP)
	}

	l.Backend.Ioctl(l)
}
