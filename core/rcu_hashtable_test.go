package core

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
)

func newTestHt() *RcuHashtable[uint32, uint64] {
	ht := new(RcuHashtable[uint32, uint64])
	ht.Init(func(k uint32) uint32 { return k * 2654435761 })
	return ht
}

func TestRcuHashtableBasic(t *testing.T) {
	ht := newTestHt()

	if _, ok := ht.Find(1); ok {
		t.Fatalf(" found in empty table ")
	}

	ht.Insert(1, 100)
	ht.Insert(2, 200)

	if v, ok := ht.Find(1); !ok || v != 100 {
		t.Fatalf(" find(1) = %v,%v ", v, ok)
	}
	if v, ok := ht.Find(2); !ok || v != 200 {
		t.Fatalf(" find(2) = %v,%v ", v, ok)
	}
	if _, ok := ht.Find(3); ok {
		t.Fatalf(" false positive ")
	}

	if !ht.Erase(1) {
		t.Fatalf(" erase(1) failed ")
	}
	if ht.Erase(1) {
		t.Fatalf(" erase(1) twice ")
	}
	if _, ok := ht.Find(1); ok {
		t.Fatalf(" found erased key ")
	}
	if v, ok := ht.Find(2); !ok || v != 200 {
		t.Fatalf(" erase disturbed another key ")
	}
}

func TestRcuHashtableResize(t *testing.T) {
	ht := newTestHt()

	const N = 1000
	for i := uint32(0); i < N; i++ {
		ht.Insert(i, uint64(i)*2)
	}
	if ht.Size() != N {
		t.Fatalf(" size %d want %d ", ht.Size(), N)
	}
	if ht.BucketCount() < N/2 {
		t.Fatalf(" table did not grow: %d buckets for %d elements ",
			ht.BucketCount(), N)
	}
	for i := uint32(0); i < N; i++ {
		if v, ok := ht.Find(i); !ok || v != uint64(i)*2 {
			t.Fatalf(" lost key %d after resize ", i)
		}
	}

	for i := uint32(0); i < N; i++ {
		if !ht.Erase(i) {
			t.Fatalf(" erase %d failed ", i)
		}
	}
	if ht.Size() != 0 {
		t.Fatalf(" size %d after full erase ", ht.Size())
	}
	if ht.BucketCount() > 4 {
		t.Fatalf(" table did not shrink: %d buckets while empty ",
			ht.BucketCount())
	}
}

func TestRcuHashtableForEach(t *testing.T) {
	ht := newTestHt()
	for i := uint32(0); i < 100; i++ {
		ht.Insert(i, uint64(i))
	}
	seen := make(map[uint32]bool)
	ht.ForEach(func(k uint32, v uint64) bool {
		if uint64(k) != v {
			t.Fatalf(" wrong value for %d ", k)
		}
		seen[k] = true
		return true
	})
	if len(seen) != 100 {
		t.Fatalf(" visited %d entries want 100 ", len(seen))
	}
}

// readers running against 1e5 insertions (which force many rebuilds) must
// always find every key already published, with its inserted value
func TestRcuHashtableConcurrentReaders(t *testing.T) {
	ht := newTestHt()

	const N = 100000
	const readers = 4

	var inserted uint32 // highest key published so far
	var stop uint32
	var wg sync.WaitGroup

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rnd := rand.New(rand.NewSource(seed))
			for atomic.LoadUint32(&stop) == 0 {
				high := atomic.LoadUint32(&inserted)
				if high == 0 {
					continue
				}
				k := uint32(rnd.Intn(int(high)))
				v, ok := ht.Find(k)
				if !ok {
					t.Errorf(" key %d below published watermark %d missing ", k, high)
					return
				}
				if v != uint64(k)*3 {
					t.Errorf(" key %d has value %d ", k, v)
					return
				}
			}
		}(int64(r))
	}

	// the owner side: insert, publish the watermark after each insert
	for i := uint32(0); i < N; i++ {
		ht.Insert(i, uint64(i)*3)
		atomic.StoreUint32(&inserted, i+1)
	}

	atomic.StoreUint32(&stop, 1)
	wg.Wait()

	if ht.Size() != N {
		t.Fatalf(" size %d want %d ", ht.Size(), N)
	}
}
