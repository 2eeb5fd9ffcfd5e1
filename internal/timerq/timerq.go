// Package timerq implements the driver's single global timer set: a
// sorted collection of absolute expiry times, one per line, each with a
// callback the owner supplies when arming it. It backs the VMIN/VTIME
// read timers and any other per-line delayed work.
//
// Exposed as a heap so the dispatcher can ask "what is the next
// deadline, however many lines have one armed" in O(log n) instead of
// scanning every line.
package timerq

import (
	"container/heap"
	"time"
)

// Callback is invoked when a line's timer expires. It is called
// synchronously by Set.Expire from the dispatcher goroutine, so it
// must not block.
type Callback func(line int)

type entry struct {
	line  int
	at    time.Time
	cb    Callback
	index int // heap.Interface bookkeeping
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *entryHeap) Push(x any) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Set is the global timer set. It is not safe for concurrent use; the
// dispatcher owns it exclusively, the same as every other piece of
// driver state.
type Set struct {
	h      entryHeap
	byLine map[int]*entry
}

// NewSet returns an empty timer set.
func NewSet() *Set {
	return &Set{byLine: make(map[int]*entry)}
}

// Arm (re-)arms the timer for a line to fire after d, replacing any
// timer already armed for that line. A line has at most one
// outstanding timer: the read timer is the only timer a line ever owns.
func (s *Set) Arm(line int, d time.Duration, cb Callback) {
	s.Disarm(line)
	e := &entry{line: line, at: time.Now().Add(d), cb: cb}
	s.byLine[line] = e
	heap.Push(&s.h, e)
}

// Disarm cancels a line's timer, if any.
func (s *Set) Disarm(line int) {
	e, ok := s.byLine[line]
	if !ok {
		return
	}
	delete(s.byLine, line)
	heap.Remove(&s.h, e.index)
}

// Armed reports whether a line currently has a timer outstanding.
func (s *Set) Armed(line int) bool {
	_, ok := s.byLine[line]
	return ok
}

// Next returns the nearest expiry time across all armed timers, and
// whether any timer is armed at all. The dispatcher feeds this to
// time.After to wake up exactly when the next timer fires.
func (s *Set) Next() (time.Time, bool) {
	if len(s.h) == 0 {
		return time.Time{}, false
	}
	return s.h[0].at, true
}

// Expire fires every timer whose expiry is at or before now, removing
// each from the set before invoking its callback (so a callback that
// re-arms its own line's timer is not immediately disarmed by Expire's
// own cleanup).
func (s *Set) Expire(now time.Time) {
	for len(s.h) > 0 && !s.h[0].at.After(now) {
		e := heap.Pop(&s.h).(*entry)
		delete(s.byLine, e.line)
		e.cb(e.line)
	}
}
