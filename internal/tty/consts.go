package tty

// TabSize and TabMask govern echo/output tab expansion and column
// tracking. TabSize must be a power of two for TabMask to work.
const (
	TabSize = 8
	TabMask = TabSize - 1
)

// Default buffer sizes. The input ring holds tagged words.
const (
	DefaultInputRing  = 256
	DefaultOutputRing = 1024

	// bounceSize is the chunk size InTransfer and driveWrite copy to
	// and from the caller's buffer at a time.
	bounceSize = 64
)
