package tty

import "tty9.dev/ttyd/internal/termios"

// OutProcess expands one chunk of raw output bytes from src into dst
// according to Oflag, tracking the line's column position for tab math
// and carriage-return resets. It returns how many input bytes it
// consumed and how many output bytes it produced into dst.
//
// dst must be at least as large as src in the worst case (every byte
// expanding to TabSize columns); callers size their scratch buffer
// accordingly (see driveWrite). OutProcess stops the instant dst has no
// room left for the next byte's full expansion: it never emits a
// partial expansion, so the caller can always resume cleanly at the
// first unconsumed source byte.
//
// src and dst must never alias: driveWrite re-reads src fresh from
// user memory every call, and a partial expansion part-written into a
// dst that overlapped the unconsumed tail of src would corrupt bytes
// OutProcess hasn't looked at yet.
func (l *Line) OutProcess(src []byte, dst []byte) (consumed, produced int) {
	if l.Termios.Oflag&termios.OPOST == 0 {
		n := copy(dst, src)
		l.Position += n // raw output still advances column tracking loosely
		return n, n
	}

	o := &l.Termios
	pos := l.Position

	for consumed < len(src) {
		c := src[consumed]
		var emit [TabSize]byte
		var n int

		switch {
		case c == '\n' && o.Oflag&termios.ONLRET != 0:
			emit[0] = '\n'
			n = 1
			pos = 0
		case c == '\n' && o.Oflag&termios.ONLCR != 0:
			emit[0] = '\r'
			emit[1] = '\n'
			n = 2
			pos = 0
		case c == '\r' && o.Oflag&termios.OCRNL != 0:
			emit[0] = '\n'
			n = 1
			pos = 0
		case c == '\r' && o.Oflag&termios.ONOCR != 0 && pos == 0:
			n = 0
		case c == '\r':
			emit[0] = '\r'
			n = 1
			pos = 0
		case c == '\t' && o.Oflag&termios.XTABS != 0:
			width := TabSize - (pos & TabMask)
			for i := 0; i < width; i++ {
				emit[i] = ' '
			}
			n = width
			pos += width
		case c == '\t':
			emit[0] = c
			n = 1
			pos += TabSize - (pos & TabMask)
		case c == '\b':
			emit[0] = c
			n = 1
			if pos > 0 {
				pos--
			}
		default:
			emit[0] = c
			n = 1
			if c >= 32 || c == '\n' {
				pos++
			}
		}

		if produced+n > len(dst) {
			break
		}
		copy(dst[produced:], emit[:n])
		produced += n
		consumed++
	}

	l.Position = pos
	return consumed, produced
}

// driveWrite pumps the outstanding write slot forward until it is done
// or the back-end's probe reports not-ready: each round fetches a fresh
// chunk directly from the caller's memory at vir+cum, runs OutProcess
// over it, and hands the expanded bytes to the back-end. It advances
// cum only by the number of source bytes OutProcess actually consumed,
// so a dst-exhausted OutProcess stop resumes at the first unconsumed
// byte on the next round. A back-end write that accepts fewer bytes
// than were produced completes the write with EIO.
func (l *Line) driveWrite() {
	if !l.write.active {
		return
	}
	for l.write.left > 0 {
		if _, ready := l.Backend.DevWrite(l, nil, true); !ready {
			return // back-end applied backpressure; resume on next Events
		}

		chunk := bounceSize
		if chunk > l.write.left {
			chunk = l.write.left
		}
		src := make([]byte, chunk)
		if err := l.Mem.CopyIn(l.write.vir+uintptr(l.write.cum), src); err != nil {
			l.completeWrite(EFAULT)
			return
		}

		dst := make([]byte, chunk*TabSize)
		consumed, produced := l.OutProcess(src, dst)
		if consumed == 0 {
			break // dst too small for even one expansion; bounceSize rules this out
		}

		if n, _ := l.Backend.DevWrite(l, dst[:produced], false); n != produced {
			l.completeWrite(EIO)
			return
		}

		l.write.cum += consumed
		l.write.left -= consumed
	}
	if l.write.left == 0 {
		l.completeWrite(Errno(l.write.cum))
	}
}

func (l *Line) completeWrite(status Errno) {
	l.write.active = false
	l.write.repcode = ReplyRevive
	l.write.revived = true
	l.write.status = int(status)
}
