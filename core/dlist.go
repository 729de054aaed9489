// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package core

/*
DList is a doubly-linked list link embedded inside an object, so a pool or
queue membership costs no extra allocation. The embedding object is
recovered with an unsafe.Pointer cast when the link is the first field:

	type frame struct {
		dlist DList // must be first
		...
	}

	f := (*frame)(unsafe.Pointer(l))

A head node must be initialized with SetSelf; the head itself is not an
element of the list. The surface is deliberately small: the mbuf free
cache only appends at the tail and takes back from the tail.
*/
type DList struct {
	next *DList
	prev *DList
}

// SetSelf points the node at itself, the empty-list state.
func (o *DList) SetSelf() {
	o.next = o
	o.prev = o
}

func (o *DList) IsSelf() bool {
	return o.next == o && o.prev == o
}

// IsEmpty reports whether only the head exists.
func (o *DList) IsEmpty() bool {
	return o.IsSelf()
}

// AddLast appends obj at the end of this list.
func (o *DList) AddLast(obj *DList) {
	obj.next = o
	obj.prev = o.prev
	o.prev.next = obj
	o.prev = obj
}

// RemoveLast unlinks and returns the last element.
func (o *DList) RemoveLast() *DList {
	if o.prev == nil || o.IsEmpty() {
		panic(" DList.RemoveLast on an empty or uninitialized list ")
	}
	prev := o.prev
	o.prev = prev.prev
	prev.prev.next = o
	prev.SetSelf()
	return prev
}
