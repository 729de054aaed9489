// Copyright (c) 2020 Cisco Systems and/or its affiliates.
// Licensed under the Apache License, Version 2.0 (the "License");
// that can be found in the LICENSE file in the root of the source
// tree.

package core

import (
	"strings"
	"testing"
)

func TestCnt1(t *testing.T) {
	var cnt uint64
	var cnt1 float64
	cnt = 17
	cnt1 = 18.1

	c1 := &CCounterRec{
		Counter:  &cnt,
		Name:     "A",
		Help:     "an example",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScINFO}
	c2 := &CCounterRec{
		Counter:  &cnt1,
		Name:     "B",
		Help:     "an example",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScINFO}

	if string(c1.MarshalValue()) != `{"cnt":17}` {
		t.Fatalf(" marshal value %s ", c1.MarshalValue())
	}
	if !strings.Contains(string(c1.MarshalMetaAndVal()), `"name":"A"`) {
		t.Fatalf(" marshal meta %s ", c1.MarshalMetaAndVal())
	}

	db := NewCCounterDb("my db")
	db.Add(c1)
	db.Add(c2)

	m := db.MarshalValues(false)
	if len(m) != 2 {
		t.Fatalf(" values %v ", m)
	}

	db.ClearValues()
	if cnt != 0 || cnt1 != 0.0 {
		t.Fatalf(" clear failed %d %f ", cnt, cnt1)
	}
	if !c1.IsZero() {
		t.Fatalf(" IsZero after clear ")
	}

	m = db.MarshalValues(false)
	if len(m) != 0 {
		t.Fatalf(" zero counters dumped %v ", m)
	}
}

func TestCntDbVec(t *testing.T) {
	var a uint32
	a = 5
	db := NewCCounterDb("da")
	db.Add(&CCounterRec{
		Counter:  &a,
		Name:     "a",
		Help:     "a",
		Unit:     "ops",
		DumpZero: false,
		Info:     ScINFO})

	vec := NewCCounterDbVec("all")
	vec.Add(db)

	defer func() {
		if recover() == nil {
			t.Fatalf(" adding the same db twice should panic ")
		}
	}()
	vec.Add(db)
}
