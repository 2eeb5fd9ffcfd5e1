package tty

import "fmt"

// Errno is the status code this driver replies with: a positive byte
// count on success, or one of these negative codes on failure.
type Errno int

// Values match the host's errno numbers (negated), so a back-end that
// forwards a real syscall error can compare directly.
const (
	EINTR  Errno = -4  // request was cancelled while suspended
	EIO    Errno = -5  // another read or write already outstanding
	ENXIO  Errno = -6  // unknown or unconfigured minor device
	EAGAIN Errno = -11 // nonblocking request would otherwise wait
	EACCES Errno = -13 // log device opened for read
	EFAULT Errno = -14 // caller's buffer address could not be mapped
	EINVAL Errno = -22 // non-positive count or bad flag combination
	ENOTTY Errno = -25 // ioctl request unsupported on this line
)

func (e Errno) Error() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Errno(%d)", int(e))
}

var errnoNames = map[Errno]string{
	EIO:    "EIO",
	EINVAL: "EINVAL",
	EFAULT: "EFAULT",
	EAGAIN: "EAGAIN",
	EINTR:  "EINTR",
	ENOTTY: "ENOTTY",
	ENXIO:  "ENXIO",
	EACCES: "EACCES",
}
