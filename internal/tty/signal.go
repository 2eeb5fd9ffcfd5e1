package tty

// Signal identifies a keyboard- or line-status-generated signal this
// driver may deliver to a foreground process group.
type Signal int

const (
	SIGINT Signal = iota + 1
	SIGQUIT
	SIGHUP
	SIGWINCH
)

func (s Signal) String() string {
	switch s {
	case SIGINT:
		return "SIGINT"
	case SIGQUIT:
		return "SIGQUIT"
	case SIGHUP:
		return "SIGHUP"
	case SIGWINCH:
		return "SIGWINCH"
	default:
		return "SIG?"
	}
}

// Signaler delivers one signal to every member of a process group.
// The driver's callers ignore the error Kill returns: a failed
// delivery is neither retried nor reported, and does not stop the
// driver.
type Signaler interface {
	Kill(pgrp int32, sig Signal) error
}

// NopSignaler discards every signal, whatever process group it is
// addressed to; setting a pgrp via TIOCSPGRP does not change that. It
// suits lines with no controlling process group.
type NopSignaler struct{}

func (NopSignaler) Kill(int32, Signal) error { return nil }

// Registry is a small in-memory Signaler: it holds a set of member
// callbacks per process group and calls every member's callback in
// turn. It never touches process scheduling state — there is no
// process table here, just whoever registered interest.
type Registry struct {
	members map[int32][]func(Signal)
}

// NewRegistry returns an empty signal registry.
func NewRegistry() *Registry {
	return &Registry{members: make(map[int32][]func(Signal))}
}

// Join registers deliver to receive every signal sent to pgrp.
func (r *Registry) Join(pgrp int32, deliver func(Signal)) {
	r.members[pgrp] = append(r.members[pgrp], deliver)
}

// Kill implements Signaler by invoking every member of pgrp's callback.
// An empty or unknown process group is not an error: it simply has no
// one to signal, matching v6's psignal silently doing nothing when no
// process has that controlling tty.
func (r *Registry) Kill(pgrp int32, sig Signal) error {
	for _, deliver := range r.members[pgrp] {
		deliver(sig)
	}
	return nil
}
