package backend

import (
	"os"
	"strconv"

	"golang.org/x/sys/unix"

	"tty9.dev/ttyd/internal/tty"
)

// PTY is the pseudo-terminal back-end: it owns the master side of a
// /dev/ptmx pair, unlocks and names the slave, and shuttles bytes
// between the master fd and the line the way a real PTY driver
// bridges a program's stdio to whatever holds the slave open.
type PTY struct {
	master *os.File
	Slave  string
}

// OpenPTY allocates a new pseudo-terminal pair and returns a PTY
// back-end bound to the master side, plus the slave's device path.
func OpenPTY() (*PTY, error) {
	master, err := os.OpenFile("/dev/ptmx", unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, err
	}
	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, err
	}
	n, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, err
	}
	return &PTY{master: master, Slave: "/dev/pts/" + strconv.Itoa(n)}, nil
}

func (p *PTY) DevRead(l *tty.Line, probe bool) (int, bool) {
	if probe {
		fds := []unix.PollFd{{Fd: int32(p.master.Fd()), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		return 0, err == nil && n > 0
	}
	var buf [256]byte
	n, err := p.master.Read(buf[:])
	if n <= 0 || err != nil {
		return 0, false
	}
	l.InProcess(buf[:n])
	return n, true
}

func (p *PTY) DevWrite(l *tty.Line, buf []byte, probe bool) (int, bool) {
	if probe {
		return 0, true
	}
	n, err := p.master.Write(buf)
	if err != nil {
		return 0, true
	}
	return n, true
}

func (p *PTY) Echo(l *tty.Line, b byte) {
	p.master.Write([]byte{b})
}

func (p *PTY) ICancel(l *tty.Line) {}
func (p *PTY) OCancel(l *tty.Line) {}
func (p *PTY) Break(l *tty.Line, duration int) {}

func (p *PTY) Close(l *tty.Line) {
	p.master.Close()
}

func (p *PTY) Ioctl(l *tty.Line) {}
