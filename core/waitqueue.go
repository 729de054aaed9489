// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package core

import (
	"sync"
	"sync/atomic"
)

/* waitqueue: similar to a condition variable, but relies on a user
supplied mutex for its internal locking, and wakes with "wait morphing":
instead of making a woken thread runnable only to have it immediately block
on the mutex again, the wait record is transferred onto the mutex's own
waiter list and the lock is handed to it directly on a later Unlock. A
wake_all of N waiters therefore produces at most one runnable contender at
a time.
*/

// WaitRecord represents one waiting goroutine. It is designed to live in
// the waiter's stack frame; no allocation beyond its channel is needed.
// A record is woken at most once in its lifetime.
type WaitRecord struct {
	next  *WaitRecord
	ch    chan struct{}
	woken uint32
}

func (o *WaitRecord) Init() {
	o.ch = make(chan struct{}, 1)
}

// Woken reports whether the record has been claimed by a wake path. Once
// true, the record belongs to the mutex hand-off machinery and must not be
// unlinked by Disarm.
func (o *WaitRecord) Woken() bool {
	return atomic.LoadUint32(&o.woken) == 1
}

func (o *WaitRecord) markWoken() {
	atomic.StoreUint32(&o.woken, 1)
}

// handoff posts the single wake token. Called exactly once per record.
func (o *WaitRecord) handoff() {
	o.markWoken()
	o.ch <- struct{}{}
}

func (o *WaitRecord) wait() {
	<-o.ch
}

// Mutex is a FIFO hand-off mutex. An Unlock with queued waiters transfers
// ownership directly to the oldest one; the lock is never released to open
// competition while waiters exist. The internal waiter list is also the
// landing site for wait-morphed waitqueue records.
type Mutex struct {
	lk     sync.Mutex // protects the fields below
	locked bool
	oldest *WaitRecord
	newest *WaitRecord
}

func (o *Mutex) pushWaiter(wr *WaitRecord) {
	wr.next = nil
	if o.oldest == nil {
		o.oldest = wr
	} else {
		o.newest.next = wr
	}
	o.newest = wr
}

func (o *Mutex) popWaiter() *WaitRecord {
	wr := o.oldest
	if wr == nil {
		return nil
	}
	o.oldest = wr.next
	if wr.next == nil {
		o.newest = nil
	}
	wr.next = nil
	return wr
}

func (o *Mutex) Lock() {
	o.lk.Lock()
	if !o.locked {
		o.locked = true
		o.lk.Unlock()
		return
	}
	var wr WaitRecord
	wr.Init()
	o.pushWaiter(&wr)
	o.lk.Unlock()
	wr.wait() // ownership is handed over by Unlock
}

func (o *Mutex) Unlock() {
	o.lk.Lock()
	wr := o.popWaiter()
	if wr == nil {
		o.locked = false
		o.lk.Unlock()
		return
	}
	o.lk.Unlock()
	// the mutex stays locked; ownership moves to wr
	wr.handoff()
}

// morph queues an already-woken waitqueue record as a waiter of this mutex.
func (o *Mutex) morph(wr *WaitRecord) {
	o.lk.Lock()
	o.pushWaiter(wr)
	o.lk.Unlock()
}

// Waitqueue is a FIFO of wait records, oldest first. All methods require
// the associated Mutex to be held by the caller; the queue has no locking
// of its own.
type Waitqueue struct {
	oldest *WaitRecord
	newest *WaitRecord
}

// Arm appends the record to the FIFO. Exposed for poll-style integrations
// that test Woken separately; Wait is the common path.
func (o *Waitqueue) Arm(wr *WaitRecord) {
	wr.next = nil
	if o.oldest == nil {
		o.oldest = wr
	} else {
		o.newest.next = wr
	}
	o.newest = wr
}

// Disarm removes a still-pending record from the FIFO. Idempotent. A record
// that was already woken is owned by the mutex hand-off path and is left
// untouched.
func (o *Waitqueue) Disarm(wr *WaitRecord) {
	if wr.Woken() {
		return
	}
	var prev *WaitRecord
	for p := o.oldest; p != nil; prev, p = p, p.next {
		if p != wr {
			continue
		}
		if prev == nil {
			o.oldest = p.next
		} else {
			prev.next = p.next
		}
		if p.next == nil {
			o.newest = prev
		}
		wr.next = nil
		return
	}
}

func (o *Waitqueue) Empty() bool {
	return o.oldest == nil
}

// Wait releases mtx and suspends the caller until woken. The release and
// the suspension are atomic with respect to any wake: WakeOne/WakeAll run
// under the same mutex, so no wake can slip between them. On return the
// caller holds mtx again, received directly through the hand-off path.
func (o *Waitqueue) Wait(mtx *Mutex) {
	var wr WaitRecord
	wr.Init()
	o.Arm(&wr)
	mtx.Unlock()
	wr.wait()
}

// WakeOne pops the oldest waiter. Rather than waking it to re-contend for
// the mutex, the record is morphed onto the mutex's waiter list; the
// current holder hands the lock to it on release.
func (o *Waitqueue) WakeOne(mtx *Mutex) {
	wr := o.oldest
	if wr == nil {
		return
	}
	o.oldest = wr.next
	if wr.next == nil {
		o.newest = nil
	}
	wr.next = nil
	wr.markWoken()
	mtx.morph(wr)
}

// WakeAll splices the entire FIFO onto the mutex's waiter list. The mutex
// hands the lock to each in turn as it is released.
func (o *Waitqueue) WakeAll(mtx *Mutex) {
	wr := o.oldest
	o.oldest = nil
	o.newest = nil
	for wr != nil {
		next := wr.next
		wr.markWoken()
		mtx.morph(wr)
		wr = next
	}
}
