// Package termios holds the POSIX termios data model this driver cooks
// input and output against: the control-character table, the mode flag
// bitfields, and the ioctl request codes the dispatcher understands.
//
// The request codes are the real values golang.org/x/sys/unix binds
// for Linux; this driver's own message protocol reuses them verbatim
// instead of minting a parallel numbering, so a back-end that ends up
// shelling out to a real device node never has to translate.
package termios

import "golang.org/x/sys/unix"

// NCCS is the number of entries in the control-character array.
const NCCS = 20

// Control-character indices into Termios.Cc.
const (
	VINTR = iota
	VQUIT
	VERASE
	VKILL
	VEOF
	VEOL
	VEOL2
	VSTART
	VSTOP
	VSUSP
	VREPRINT
	VDISCARD
	VWERASE
	VLNEXT
	VMIN
	VTIME
)

// PosixVdisable is the "this control function is disabled" sentinel
// byte: a Cc slot set to this value never matches an incoming character.
const PosixVdisable = 0xff

// Input flags (Iflag).
const (
	IGNBRK = 1 << iota
	BRKINT
	IGNPAR
	PARMRK
	INPCK
	ISTRIP
	INLCR
	IGNCR
	ICRNL
	IXON
	IXANY
	IXOFF
)

// Output flags (Oflag).
const (
	OPOST = 1 << iota
	ONLCR
	OCRNL
	ONOCR
	ONLRET
	XTABS // a.k.a. OXTABS / TAB3: expand tabs to spaces on output
)

// Control flags (Cflag) — framing/speed bookkeeping only; this driver
// does not drive UART hardware itself, that is a back-end concern.
const (
	CSIZE  = 0x30
	CS5    = 0x00
	CS6    = 0x10
	CS7    = 0x20
	CS8    = 0x30
	CSTOPB = 1 << 6
	CREAD  = 1 << 7
	PARENB = 1 << 8
	PARODD = 1 << 9
	HUPCL  = 1 << 10
	CLOCAL = 1 << 11
)

// B0 is the "hang up" speed: the special ospeed value that means drop
// DTR / close the connection.
const B0 = 0

// Local flags (Lflag).
const (
	ISIG = 1 << iota
	ICANON
	ECHO
	ECHOE
	ECHOK
	ECHONL
	NOFLSH
	IEXTEN
)

// Termios mirrors POSIX struct termios. Ispeed/Ospeed are stored as
// plain baud values (0 means B0 / hangup); this driver only inspects
// them for hangup and passes them through to the back-end's Ioctl.
type Termios struct {
	Iflag  uint32
	Oflag  uint32
	Cflag  uint32
	Lflag  uint32
	Cc     [NCCS]byte
	Ispeed uint32
	Ospeed uint32
}

// Default returns the termios a freshly opened or freshly closed line
// resets to: canonical, echoing, signal-generating, with the usual
// control characters.
func Default() Termios {
	var t Termios
	t.Iflag = ICRNL | IXON
	t.Oflag = OPOST | ONLCR
	t.Cflag = CS8 | CREAD
	t.Lflag = ISIG | ICANON | ECHO | ECHOE | ECHOK | IEXTEN
	t.Cc[VINTR] = 3     // ^C
	t.Cc[VQUIT] = 28    // ^\
	t.Cc[VERASE] = 127  // DEL
	t.Cc[VKILL] = 21    // ^U
	t.Cc[VEOF] = 4      // ^D
	t.Cc[VEOL] = PosixVdisable
	t.Cc[VEOL2] = PosixVdisable
	t.Cc[VSTART] = 17   // ^Q
	t.Cc[VSTOP] = 19    // ^S
	t.Cc[VSUSP] = 26    // ^Z
	t.Cc[VREPRINT] = 18 // ^R
	t.Cc[VDISCARD] = 15 // ^O
	t.Cc[VWERASE] = 23  // ^W
	t.Cc[VLNEXT] = 22   // ^V
	t.Cc[VMIN] = 1
	t.Cc[VTIME] = 0
	t.Ispeed = 9600
	t.Ospeed = 9600
	return t
}

// Winsize mirrors POSIX struct winsize.
type Winsize struct {
	Row    uint16
	Col    uint16
	Xpixel uint16
	Ypixel uint16
}

// Request is an ioctl request code understood by this driver's
// dispatcher. The termios/window-size/flow codes are the real
// golang.org/x/sys/unix values; KeymapSet and FontSet are
// console-specific requests with no POSIX/Linux analogue, numbered out
// of the way of the unix ioctl namespace.
type Request uintptr

const (
	TCGETS     Request = unix.TCGETS
	TCSETS     Request = unix.TCSETS
	TCSETSW    Request = unix.TCSETSW
	TCSETSF    Request = unix.TCSETSF
	TCSBRK     Request = unix.TCSBRK
	TCXONC     Request = unix.TCXONC
	TCFLSH     Request = unix.TCFLSH
	TCDRAIN    Request = unix.TCSBRK + 0x100 // synthetic: drain with no break
	TIOCGWINSZ Request = unix.TIOCGWINSZ
	TIOCSWINSZ Request = unix.TIOCSWINSZ
	TIOCGPGRP  Request = unix.TIOCGPGRP
	TIOCSPGRP  Request = unix.TIOCSPGRP

	// KeymapSet and FontSet are console-only requests with no
	// POSIX/Linux ioctl analogue, so arbitrary but stable values are
	// fine here.
	KeymapSet Request = 0x6b00 + 3
	FontSet   Request = 0x6b00 + 4
)

// TCFLOW/TCFLSH selector values (the Request's accompanying int arg).
const (
	TCOOFF = iota
	TCOON
	TCIOFF
	TCION
)
const (
	TCIFLUSH = iota
	TCOFLUSH
	TCIOFLUSH
)

// ParamKind classifies an ioctl Request by the shape of its argument:
// a termios struct, a plain int, or a winsize struct.
type ParamKind int

const (
	ParamTermios ParamKind = iota
	ParamInt
	ParamWinsize
	ParamKeymap
	ParamFont
	ParamNone
)

// Param reports the argument shape for a request, and whether the
// request is known at all.
func Param(req Request) (ParamKind, bool) {
	switch req {
	case TCGETS, TCSETS, TCSETSW, TCSETSF:
		return ParamTermios, true
	case TCSBRK, TCXONC, TCFLSH, TIOCGPGRP, TIOCSPGRP:
		return ParamInt, true
	case TIOCGWINSZ, TIOCSWINSZ:
		return ParamWinsize, true
	case KeymapSet:
		return ParamKeymap, true
	case FontSet:
		return ParamFont, true
	case TCDRAIN:
		return ParamNone, true
	default:
		return 0, false
	}
}
