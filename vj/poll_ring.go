package vj

import (
	"vjnet/core"
)

const pollRingSize = 1024

// PollRing lets one consumer goroutine sleep on many flow rings: the
// classifier pushes a FlowRing here when it first moves past the snapshot
// the poller attached at, and wakes the poller's thread handle. The
// consumer pops ready rings and services them.
//
// The object must no longer be attached anywhere when DestroyPoller is
// posted; the MPSC FIFO guarantees every earlier Detach is applied first.
type PollRing struct {
	ring      core.RingSpscWaiter[*FlowRing]
	destroyed bool // classifier thread only
}

func NewPollRing() *PollRing {
	o := new(PollRing)
	o.ring.Init(pollRingSize)
	return o
}

// Pop returns the next ready ring, nil when none is pending.
func (o *PollRing) Pop() *FlowRing {
	var r *FlowRing
	if !o.ring.Pop(&r) {
		return nil
	}
	return r
}

// Wait parks the poller until a ring becomes ready.
func (o *PollRing) Wait() {
	o.ring.WaitForItems()
}

// post is the classifier-thread producer side.
func (o *PollRing) post(r *FlowRing) bool {
	if !o.ring.Push(r) {
		return false
	}
	o.ring.WakeConsumer()
	return true
}
