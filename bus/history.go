package bus

import "github.com/hupe1980/agentswarm/core"

// ring is a fixed-capacity message buffer; appending beyond capacity evicts
// the oldest entry. Not goroutine-safe: the bus serializes access through
// its own lock.
type ring struct {
	buf  []core.Message
	next int
	full bool
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = defaultHistorySize
	}
	return &ring{buf: make([]core.Message, capacity)}
}

func (r *ring) append(m core.Message) {
	r.buf[r.next] = m
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// snapshot returns the buffered messages oldest first.
func (r *ring) snapshot() []core.Message {
	if !r.full {
		out := make([]core.Message, r.next)
		copy(out, r.buf[:r.next])
		return out
	}
	out := make([]core.Message, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	out = append(out, r.buf[:r.next]...)
	return out
}
