package vj

import (
	"vjnet/core"
)

// RCV_RING_SIZE is the fixed per-flow ring capacity.
const RCV_RING_SIZE = 1024

type pollerRef struct {
	poller *PollRing
	snap   core.RingSpscSnapshot
	fired  bool
}

// FlowRing is the per-flow endpoint: a waiter SPSC ring of frame handles,
// produced by the classifier thread and consumed by the single goroutine
// the socket layer registered against the flow.
//
// There is no public constructor; rings come to life inside NewSocket,
// after the socket layer has an owner for them. The classifier holds the
// ring only through its index, guarded by the Add/Remove control-message
// protocol: once a Remove has been applied, the next TryDeliver return is
// the point after which the classifier provably no longer touches the
// ring.
type FlowRing struct {
	ring    core.RingSpscWaiter[*core.Mbuf]
	key     FlowKey
	socket  *Socket
	cls     *Classifier
	pollers []pollerRef // classifier thread only
}

func newFlowRing(s *Socket, cls *Classifier, key FlowKey) *FlowRing {
	o := &FlowRing{key: key, socket: s, cls: cls}
	o.ring.Init(RCV_RING_SIZE)
	return o
}

func (o *FlowRing) Key() FlowKey {
	return o.key
}

func (o *FlowRing) Socket() *Socket {
	return o.socket
}

func (o *FlowRing) Size() uint32 {
	return o.ring.Size()
}

// Snapshot captures the producer index, for poller registration.
func (o *FlowRing) Snapshot() core.RingSpscSnapshot {
	return o.ring.Snapshot()
}

func (o *FlowRing) ModifiedSince(s core.RingSpscSnapshot) bool {
	return o.ring.ModifiedSince(s)
}

// Pop dequeues the oldest delivered frame, nil when the ring is empty.
// Consumer side only; ownership of the frame moves to the caller.
func (o *FlowRing) Pop() *core.Mbuf {
	var m *core.Mbuf
	if !o.ring.Pop(&m) {
		return nil
	}
	return m
}

// Wait parks the consumer until the ring is non-empty.
func (o *FlowRing) Wait() {
	o.ring.WaitForItems()
}

// waitOr parks like Wait but also returns when stop reports true; the
// socket's rx pump uses it so Close can break an idle wait.
func (o *FlowRing) waitOr(stop func() bool) {
	o.ring.WaitForItemsOr(stop)
}

/* classifier-thread side */

func (o *FlowRing) push(m *core.Mbuf) bool {
	return o.ring.Push(m)
}

func (o *FlowRing) wakeConsumer() {
	o.ring.WakeConsumer()
}

// firePollers posts the ring to every attached poller whose snapshot went
// stale. Edge triggered: each attachment fires once until re-armed by a
// fresh AttachPoller.
func (o *FlowRing) firePollers(stats *ClassifierStats) {
	for i := range o.pollers {
		pr := &o.pollers[i]
		if pr.fired || pr.poller.destroyed {
			continue
		}
		if !o.ring.ModifiedSince(pr.snap) {
			continue
		}
		pr.fired = true
		if pr.poller.post(o) {
			stats.pollWake++
		} else {
			stats.pollRingFull++
		}
	}
}

// attachPoller registers p at the given snapshot. If the ring already
// moved past the snapshot the poller is fired at once, reconciling the
// edge the caller would otherwise have missed.
func (o *FlowRing) attachPoller(p *PollRing, snap core.RingSpscSnapshot, stats *ClassifierStats) {
	for i := range o.pollers {
		if o.pollers[i].poller == p {
			o.pollers[i].snap = snap
			o.pollers[i].fired = false
			o.firePollers(stats)
			return
		}
	}
	o.pollers = append(o.pollers, pollerRef{poller: p, snap: snap})
	o.firePollers(stats)
}

func (o *FlowRing) detachPoller(p *PollRing) {
	for i := range o.pollers {
		if o.pollers[i].poller == p {
			o.pollers = append(o.pollers[:i], o.pollers[i+1:]...)
			return
		}
	}
}
