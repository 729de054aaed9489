// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package vj

import (
	"sync/atomic"

	"vjnet/core"
)

/*
Socket is the receive side the flow ring belongs to. It is the strong
owner of the ring; the classifier only ever sees the ring through its
index, and the Add/Remove protocol bounds that access: after Unregister,
once the receive thread has returned from one more TryDeliver, the
classifier provably holds no live reference and the socket may be
abandoned to the collector.

Two consumption styles are offered:

  - direct: Pop/Wait on the flow ring from the single registered consumer
    goroutine, the lowest-latency path;
  - buffered: Start launches an rx pump that drains the ring into a
    receive buffer, and any number of application goroutines block in
    Recv on a waitqueue. Wakeups morph onto the socket mutex, so a burst
    of deliveries never stampedes the readers.
*/
type Socket struct {
	ring *FlowRing
	cls  *Classifier
	key  FlowKey

	mtx    core.Mutex
	wq     core.Waitqueue
	rcv    []*core.Mbuf // guarded by mtx
	closed uint32
}

// NewSocket creates a socket and its flow ring. The ring is not reachable
// by the classifier until Register.
func NewSocket(cls *Classifier, key FlowKey) *Socket {
	o := &Socket{cls: cls, key: key}
	o.ring = newFlowRing(o, cls, key)
	return o
}

func (o *Socket) Ring() *FlowRing {
	return o.ring
}

func (o *Socket) Key() FlowKey {
	return o.key
}

// Register posts the classification; frames matching the swapped key start
// landing on the ring once the receive thread drains control.
func (o *Socket) Register() {
	o.cls.Add(o.key, o.ring)
}

// Unregister posts the deregistration. The ring may still receive frames
// until the receive thread drains control.
func (o *Socket) Unregister() {
	o.cls.Remove(o.key)
}

// Pop takes the oldest frame straight off the flow ring. Single consumer
// goroutine only.
func (o *Socket) Pop() *core.Mbuf {
	return o.ring.Pop()
}

// Wait parks the consumer until the flow ring is non-empty.
func (o *Socket) Wait() {
	o.ring.Wait()
}

func (o *Socket) isClosed() bool {
	return atomic.LoadUint32(&o.closed) == 1
}

// Start launches the rx pump feeding the buffered Recv side. The pump is
// the ring's single consumer; do not mix with direct Pop/Wait.
func (o *Socket) Start() {
	go o.rxPump()
}

func (o *Socket) rxPump() {
	for {
		if o.isClosed() {
			// the pump is the ring's only consumer, so the drain is safe
			for m := o.ring.Pop(); m != nil; m = o.ring.Pop() {
				m.FreeMbuf()
			}
			return
		}
		m := o.ring.Pop()
		if m == nil {
			o.ring.waitOr(o.isClosed)
			continue
		}
		o.mtx.Lock()
		o.rcv = append(o.rcv, m)
		o.wq.WakeOne(&o.mtx)
		o.mtx.Unlock()
	}
}

// Recv blocks until a frame is buffered or the socket closes. Returns nil
// on close. Safe for any number of application goroutines.
func (o *Socket) Recv() *core.Mbuf {
	o.mtx.Lock()
	for len(o.rcv) == 0 {
		if o.isClosed() {
			o.mtx.Unlock()
			return nil
		}
		o.wq.Wait(&o.mtx)
	}
	m := o.rcv[0]
	o.rcv = o.rcv[1:]
	o.mtx.Unlock()
	return m
}

// Close deregisters the flow and releases every blocked reader and the rx
// pump; the pump frees whatever is left on the ring on its way out. In
// direct mode the consumer goroutine must have stopped using the ring
// before Close.
func (o *Socket) Close() {
	o.cls.Remove(o.key)
	atomic.StoreUint32(&o.closed, 1)

	// break the pump out of its idle wait; waitOr rechecks closed after
	// the wakeup even though no frame arrives
	o.ring.wakeConsumer()

	o.mtx.Lock()
	for _, m := range o.rcv {
		m.FreeMbuf()
	}
	o.rcv = nil
	o.wq.WakeAll(&o.mtx)
	o.mtx.Unlock()
}
