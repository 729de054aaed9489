package core

import (
	"sync"
	"testing"
	"unsafe"
)

type testCtlMsg struct {
	node MpscNode // must be first
	prod int
	seq  int
}

func toTestCtlMsg(n *MpscNode) *testCtlMsg {
	return (*testCtlMsg)(unsafe.Pointer(n))
}

func TestQueueMpscSingle(t *testing.T) {
	var q QueueMpsc
	q.Init()

	if q.Pop() != nil {
		t.Fatalf(" pop on empty queue ")
	}

	for i := 0; i < 10; i++ {
		q.Push(&(&testCtlMsg{seq: i}).node)
	}
	for i := 0; i < 10; i++ {
		n := q.Pop()
		if n == nil {
			t.Fatalf(" queue drained early at %d ", i)
		}
		if m := toTestCtlMsg(n); m.seq != i {
			t.Fatalf(" got %d want %d ", m.seq, i)
		}
	}
	if q.Pop() != nil {
		t.Fatalf(" queue not empty after drain ")
	}
}

// the stub must cycle transparently through alternating push/pop rounds
func TestQueueMpscAlternate(t *testing.T) {
	var q QueueMpsc
	q.Init()

	for i := 0; i < 100; i++ {
		q.Push(&(&testCtlMsg{seq: i}).node)
		n := q.Pop()
		if n == nil || toTestCtlMsg(n).seq != i {
			t.Fatalf(" round %d broken ", i)
		}
		if q.Pop() != nil {
			t.Fatalf(" ghost element at round %d ", i)
		}
	}
}

// many producers, one consumer: everything arrives, FIFO per producer
func TestQueueMpscProducers(t *testing.T) {
	const producers = 8
	const perProd = 10000

	var q QueueMpsc
	q.Init()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProd; i++ {
				q.Push(&(&testCtlMsg{prod: p, seq: i}).node)
			}
		}(p)
	}

	var nextSeq [producers]int
	got := 0
	for got < producers*perProd {
		n := q.Pop()
		if n == nil {
			continue
		}
		m := toTestCtlMsg(n)
		if m.seq != nextSeq[m.prod] {
			t.Fatalf(" producer %d reordered: got %d want %d ",
				m.prod, m.seq, nextSeq[m.prod])
		}
		nextSeq[m.prod]++
		got++
	}
	wg.Wait()

	if q.Pop() != nil {
		t.Fatalf(" queue not empty after full drain ")
	}
}
