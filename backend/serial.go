package backend

import (
	"golang.org/x/sys/unix"

	"tty9.dev/ttyd/internal/termios"
	"tty9.dev/ttyd/internal/tty"
)

// Serial is the real-hardware back-end: it opens a device node (e.g.
// /dev/ttyS0) and translates this driver's internal Termios into the
// host line discipline's own settings via unix.IoctlSetTermios,
// letting the kernel's UART driver do the actual framing/flow-control
// work.
type Serial struct {
	fd int
}

// OpenSerial opens path (e.g. "/dev/ttyS0") for a Serial back-end.
func OpenSerial(path string) (*Serial, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	return &Serial{fd: fd}, nil
}

func hostSpeed(baud uint32) uint32 {
	switch {
	case baud >= 115200:
		return unix.B115200
	case baud >= 57600:
		return unix.B57600
	case baud >= 38400:
		return unix.B38400
	case baud >= 19200:
		return unix.B19200
	case baud >= 9600:
		return unix.B9600
	case baud >= 2400:
		return unix.B2400
	default:
		return unix.B1200
	}
}

func (s *Serial) applyTermios(t termios.Termios) error {
	host, err := unix.IoctlGetTermios(s.fd, unix.TCGETS)
	if err != nil {
		return err
	}
	host.Iflag = t.Iflag
	host.Oflag = t.Oflag
	host.Cflag = t.Cflag
	host.Lflag = t.Lflag
	speed := hostSpeed(t.Ospeed)
	host.Ispeed = speed
	host.Ospeed = speed
	return unix.IoctlSetTermios(s.fd, unix.TCSETS, host)
}

func (s *Serial) DevRead(l *tty.Line, probe bool) (int, bool) {
	if probe {
		fds := []unix.PollFd{{Fd: int32(s.fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		return 0, err == nil && n > 0
	}
	var buf [256]byte
	n, err := unix.Read(s.fd, buf[:])
	if n <= 0 || err != nil {
		return 0, false
	}
	l.InProcess(buf[:n])
	return n, true
}

func (s *Serial) DevWrite(l *tty.Line, buf []byte, probe bool) (int, bool) {
	if probe {
		return 0, true
	}
	n, err := unix.Write(s.fd, buf)
	if err != nil {
		return 0, true
	}
	return n, true
}

func (s *Serial) Echo(l *tty.Line, b byte) {
	unix.Write(s.fd, []byte{b})
}

func (s *Serial) ICancel(l *tty.Line) {}
func (s *Serial) OCancel(l *tty.Line) {}

func (s *Serial) Break(l *tty.Line, duration int) {
	unix.IoctlSetPointerInt(s.fd, unix.TCSBRK, duration)
}

func (s *Serial) Close(l *tty.Line) {
	unix.Close(s.fd)
}

func (s *Serial) Ioctl(l *tty.Line) {
	s.applyTermios(l.Termios)
}
