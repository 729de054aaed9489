package vj

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vjnet/core"
)

func TestSocketBufferedRecv(t *testing.T) {
	var pool core.MbufPoll
	pool.Init(32)
	cls := NewClassifier()

	sock := NewSocket(cls, testKey())
	sock.Register()
	sock.Start()

	const N = 10
	sent := make([]*core.Mbuf, 0, N)
	for i := 0; i < N; i++ {
		m := matchingFrame(t, &pool)
		require.True(t, cls.TryDeliver(m))
		sent = append(sent, m)
	}

	for i := 0; i < N; i++ {
		m := sock.Recv()
		require.NotNil(t, m)
		assert.Equal(t, sent[i], m)
		m.FreeMbuf()
	}

	sock.Close()
	assert.Nil(t, sock.Recv())
}

func TestSocketCloseWakesReaders(t *testing.T) {
	var pool core.MbufPoll
	pool.Init(32)
	cls := NewClassifier()

	sock := NewSocket(cls, testKey())
	sock.Register()
	sock.Start()

	const readers = 4
	var wg sync.WaitGroup
	results := make(chan *core.Mbuf, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- sock.Recv()
		}()
	}

	time.Sleep(20 * time.Millisecond) // let the readers block
	sock.Close()

	done := make(chan bool)
	go func() {
		wg.Wait()
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf(" readers still blocked after close ")
	}

	for i := 0; i < readers; i++ {
		assert.Nil(t, <-results)
	}

	// frames arriving between close and the drained remove are not
	// deliverable once the next TryDeliver returns
	m := matchingFrame(t, &pool)
	assert.False(t, cls.TryDeliver(m))
	m.FreeMbuf()
}

// closing an idle socket must terminate the rx pump: the wait is broken
// by the close wakeup even though no frame ever arrives
func TestSocketCloseIdlePumpExits(t *testing.T) {
	cls := NewClassifier()
	base := runtime.NumGoroutine()

	sock := NewSocket(cls, testKey())
	sock.Register()
	sock.Start()
	time.Sleep(10 * time.Millisecond) // let the pump park on the empty ring

	sock.Close()

	deadline := time.Now().Add(5 * time.Second)
	for runtime.NumGoroutine() > base && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > base {
		t.Fatalf(" rx pump leaked: %d goroutines, baseline %d ", n, base)
	}
}

func TestSocketRecvAfterDeliver(t *testing.T) {
	var pool core.MbufPoll
	pool.Init(32)
	cls := NewClassifier()

	sock := NewSocket(cls, testKey())
	sock.Register()
	sock.Start()

	// reader blocks first, frame arrives second
	got := make(chan *core.Mbuf)
	go func() {
		got <- sock.Recv()
	}()

	time.Sleep(10 * time.Millisecond)
	m := matchingFrame(t, &pool)
	require.True(t, cls.TryDeliver(m))

	select {
	case r := <-got:
		require.NotNil(t, r)
		assert.Equal(t, m, r)
		r.FreeMbuf()
	case <-time.After(5 * time.Second):
		t.Fatalf(" reader never woke ")
	}
	sock.Close()
}
