package vj

import (
	"fmt"
	"unsafe"

	"vjnet/core"
)

const (
	ctlADD = iota
	ctlREMOVE
	ctlATTACH_POLLER
	ctlDETACH_POLLER
	ctlDESTROY_POLLER
)

// controlMsg is the tagged record any thread posts to the classifier to
// change its index or poll registrations. Allocated by the sender, applied
// and released by the classifier thread. The intrusive MPSC link must stay
// the first field.
type controlMsg struct {
	node   core.MpscNode // must be first
	op     uint8
	key    FlowKey
	ring   *FlowRing
	snap   core.RingSpscSnapshot
	poller *PollRing
}

func msgFromNode(n *core.MpscNode) *controlMsg {
	return (*controlMsg)(unsafe.Pointer(n))
}

func (o *controlMsg) apply(c *Classifier) {
	switch o.op {
	case ctlADD:
		c.applyAdd(o.key, o.ring)
	case ctlREMOVE:
		c.applyRemove(o.key)
	case ctlATTACH_POLLER:
		c.applyAttachPoller(o.ring, o.snap, o.poller)
	case ctlDETACH_POLLER:
		c.applyDetachPoller(o.ring, o.poller)
	case ctlDESTROY_POLLER:
		c.applyDestroyPoller(o.poller)
	default:
		panic(fmt.Sprintf(" vj: unknown classification control message %d ", o.op))
	}
}
