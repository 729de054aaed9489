package core

import (
	"sync/atomic"
)

/* lock-free single-producer/single-consumer ring of fixed size.

The producer owns _end, the consumer owns _begin. Both are 32-bit monotonic
counters that wrap; size is computed with unsigned subtraction so the wrap is
harmless as long as the capacity fits in 32 bits. The counters sit on
separate cache lines so the producer and consumer cores do not fight over
one line.

Publication protocol: the producer writes the slot, then stores _end
(release). A consumer that observes the new _end (acquire) is guaranteed to
observe the slot contents. Go's sync/atomic operations are sequentially
consistent, which subsumes the acquire/release pairing.
*/

// RingSpscSnapshot captures the producer index at a point in time. It is an
// opaque token for ModifiedSince.
type RingSpscSnapshot struct {
	producerIdx uint32
}

type RingSpsc[T any] struct {
	begin uint32 // written by the consumer only
	_     [60]byte
	end   uint32 // written by the producer only
	_     [60]byte
	mask  uint32
	ring  []T
}

// Init allocates the ring storage. maxSize must be a power of two.
func (o *RingSpsc[T]) Init(maxSize uint32) {
	if maxSize == 0 || (maxSize&(maxSize-1)) != 0 {
		panic(" RingSpsc size must be a power of two ")
	}
	o.mask = maxSize - 1
	o.ring = make([]T, maxSize)
}

// Push enqueues one element. Returns false when the ring is full.
// Producer side only.
func (o *RingSpsc[T]) Push(element T) bool {
	end := atomic.LoadUint32(&o.end)
	beg := atomic.LoadUint32(&o.begin)

	if end-beg > o.mask {
		return false
	}

	o.ring[end&o.mask] = element
	atomic.StoreUint32(&o.end, end+1)

	return true
}

// Pop dequeues one element into *element. Returns false when the ring is
// empty. Consumer side only.
func (o *RingSpsc[T]) Pop(element *T) bool {
	beg := atomic.LoadUint32(&o.begin)
	end := atomic.LoadUint32(&o.end)

	if beg == end {
		return false
	}

	var zero T
	*element = o.ring[beg&o.mask]
	o.ring[beg&o.mask] = zero // let the GC reclaim the popped element
	atomic.StoreUint32(&o.begin, beg+1)

	return true
}

func (o *RingSpsc[T]) Size() uint32 {
	end := atomic.LoadUint32(&o.end)
	beg := atomic.LoadUint32(&o.begin)
	return end - beg
}

func (o *RingSpsc[T]) Capacity() uint32 {
	return o.mask + 1
}

// Snapshot records the current producer index.
func (o *RingSpsc[T]) Snapshot() RingSpscSnapshot {
	return RingSpscSnapshot{producerIdx: atomic.LoadUint32(&o.end)}
}

// ModifiedSince reports whether any push happened after the snapshot was
// taken.
func (o *RingSpsc[T]) ModifiedSince(s RingSpscSnapshot) bool {
	return s.producerIdx != atomic.LoadUint32(&o.end)
}

// RingSpscWaiter is a RingSpsc with a single parked-consumer handle. The
// producer calls WakeConsumer after every successful Push; the consumer may
// block in WaitForItems when Pop fails.
type RingSpscWaiter[T any] struct {
	RingSpsc[T]
	waiter ThreadHandle
}

func (o *RingSpscWaiter[T]) Init(maxSize uint32) {
	o.RingSpsc.Init(maxSize)
	o.waiter.Init()
}

// WaitForItems blocks the consumer until the ring is non-empty. The handle
// is published before the final emptiness recheck, so a push that lands
// after the park decision is never missed.
func (o *RingSpscWaiter[T]) WaitForItems() {
	for o.Size() == 0 {
		o.waiter.Arm()
		if o.Size() > 0 {
			o.waiter.Clear()
			return
		}
		o.waiter.Park()
	}
}

// WaitForItemsOr parks like WaitForItems but also returns when stop
// reports true, so a consumer can be torn down while the ring is idle.
// The stop flag is rechecked between arming and parking: a waker that
// raises it and then calls WakeConsumer either finds the handle armed and
// unparks us, or we observe the flag on the recheck. Either way the park
// is left.
func (o *RingSpscWaiter[T]) WaitForItemsOr(stop func() bool) {
	for o.Size() == 0 {
		if stop() {
			return
		}
		o.waiter.Arm()
		if o.Size() > 0 || stop() {
			o.waiter.Clear()
			return
		}
		o.waiter.Park()
	}
}

// WakeConsumer wakes the consumer if it is parked. Safe from any
// goroutine; the producer calls it after a successful Push.
func (o *RingSpscWaiter[T]) WakeConsumer() {
	o.waiter.Wake()
}
