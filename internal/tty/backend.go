package tty

// Backend is the device-dependent half of a line: the small capability
// set each line's device must satisfy. It plugs in at line-construction
// time; any method may be the shared no-op. A back-end must never
// block: it runs synchronously inside the dispatcher's event-pump
// iteration.
type Backend interface {
	// DevRead pulls available bytes from the device. If probe is
	// false, it feeds every byte it read through l.InProcess and
	// returns the count consumed. If probe is
	// true, it does no I/O and reports only whether the device
	// currently has bytes ready to read.
	DevRead(l *Line, probe bool) (n int, ready bool)

	// DevWrite emits already-processed output bytes to the device. If
	// probe is true, buf is nil and no I/O happens; DevWrite reports
	// only whether the device would currently accept a write. If probe
	// is false, DevWrite must accept the whole of buf or none of it
	// (n == len(buf) or n == 0) — a back-end that cannot buffer an
	// entire chunk atomically should report not-ready on the
	// preceding probe instead of accepting a partial write, since
	// driveWrite has no way to un-consume the excess.
	DevWrite(l *Line, buf []byte, probe bool) (n int, ready bool)

	// Echo emits a single byte to the device's output path,
	// independent of the output ring (used by tty_echo/rawecho).
	Echo(l *Line, b byte)

	// ICancel discards any input the device is holding on the
	// driver's behalf (e.g. a partially filled read-ahead buffer).
	ICancel(l *Line)

	// OCancel discards any output the device has queued but not yet
	// emitted.
	OCancel(l *Line)

	// Break asserts a break condition for the given duration argument
	// (0 meaning the device's default duration). Optional.
	Break(l *Line, duration int)

	// Close is called when the last opener closes the line, after the
	// driver has reset termios/winsize to defaults. Optional.
	Close(l *Line)

	// Ioctl is called after SetAttr applies a new termios, so the
	// back-end can reconfigure device-level speed/framing. Optional.
	Ioctl(l *Line)
}

// NopBackend implements Backend with every operation a no-op. Embed it
// to get default behavior for operations a concrete back-end doesn't
// care about.
type NopBackend struct{}

func (NopBackend) DevRead(*Line, bool) (int, bool)          { return 0, false }
func (NopBackend) DevWrite(*Line, []byte, bool) (int, bool) { return 0, true }
func (NopBackend) Echo(*Line, byte)                         {}
func (NopBackend) ICancel(*Line)                            {}
func (NopBackend) OCancel(*Line)                            {}
func (NopBackend) Break(*Line, int)                         {}
func (NopBackend) Close(*Line)                              {}
func (NopBackend) Ioctl(*Line)                              {}
