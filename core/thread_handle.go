package core

import (
	"sync/atomic"
)

// ThreadHandle is a one-slot parking spot for a single consumer goroutine.
// The consumer arms the handle, rechecks its predicate and then parks; a
// producer wakes the handle after publishing work. The armed flag is read
// and written with sequentially consistent atomics, so either the producer
// observes the armed handle and posts a wakeup, or the consumer's recheck
// observes the producer's publication. The lost-wakeup interleaving does
// not exist.
//
// Only one goroutine may park on a handle at a time.
type ThreadHandle struct {
	armed uint32
	park  chan struct{}
}

func (o *ThreadHandle) Init() {
	o.park = make(chan struct{}, 1)
}

// Arm publishes the consumer's intent to sleep. Any stale wakeup token from
// a previous round is drained first.
func (o *ThreadHandle) Arm() {
	select {
	case <-o.park:
	default:
	}
	atomic.StoreUint32(&o.armed, 1)
}

// Clear revokes an Arm without sleeping.
func (o *ThreadHandle) Clear() {
	atomic.StoreUint32(&o.armed, 0)
}

// Park blocks until a producer calls Wake. Must follow Arm.
func (o *ThreadHandle) Park() {
	<-o.park
	atomic.StoreUint32(&o.armed, 0)
}

// Wake unblocks a parked consumer, if any. Safe to call from any goroutine;
// a wakeup posted to a consumer that already left is drained on its next
// Arm.
func (o *ThreadHandle) Wake() {
	if atomic.LoadUint32(&o.armed) == 0 {
		return
	}
	select {
	case o.park <- struct{}{}:
	default:
	}
}
