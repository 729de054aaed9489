package core

import (
	"encoding/hex"
	"fmt"
	"sync"
	"unsafe"
)

/* mbuf

Frame handle for the receive path: a contiguous byte region carrying an
Ethernet frame, allocated from a per-size pool that caches freed buffers on
an intrusive free list.

Ownership is exclusive at every stage. The driver allocates, the classifier
either pushes the handle onto a flow ring (ownership moves to the ring's
consumer), frees it when that ring is full, or leaves it with the caller;
FreeMbuf returns the buffer to its
pool and the handle must not be touched afterwards.

Allocation happens on the receive thread; frees come back from consumer
goroutines, so the per-size cache takes a short lock around its free list.
*/

const lMBUF_HEADROOM = 64
const lMBUF_INVALID_PORT = 0xffff

// MAX_PACKET_SIZE the maximum frame size
const MAX_PACKET_SIZE uint16 = 9 * 1024

var poolSizes = [...]uint16{128, 256, 512, 1024, 2048, 4096, MAX_PACKET_SIZE}

// MbufPoll is a set of caches, one per frame size class.
type MbufPoll struct {
	pools []MbufPollSize
}

// Init sets up all the size-class pools. maxCacheSize bounds the number of
// buffers cached per class.
func (o *MbufPoll) Init(maxCacheSize uint32) {
	o.pools = make([]MbufPollSize, len(poolSizes))
	for i, s := range poolSizes {
		o.pools[i].Init(maxCacheSize, s)
	}
}

// Alloc returns a frame handle able to hold size bytes.
func (o *MbufPoll) Alloc(size uint16) *Mbuf {
	for i, ps := range poolSizes {
		if size <= ps {
			return o.pools[i].NewMbuf()
		}
	}
	panic(fmt.Sprintf(" MbufPoll.Alloc size is too big %d ", size))
}

// GetStats returns accumulated statistics for all size classes.
func (o *MbufPoll) GetStats() *MbufPollStats {
	var stats MbufPollStats
	for i := range poolSizes {
		stats.Add(&o.pools[i].stats)
	}
	return &stats
}

// MbufPollStats per-pool counters
type MbufPollStats struct {
	CntAlloc      uint64
	CntFree       uint64
	CntCacheAlloc uint64
	CntCacheFree  uint64
}

// Add o = o + obj
func (o *MbufPollStats) Add(obj *MbufPollStats) {
	o.CntAlloc += obj.CntAlloc
	o.CntFree += obj.CntFree
	o.CntCacheAlloc += obj.CntCacheAlloc
	o.CntCacheFree += obj.CntCacheFree
}

// MbufPollSize is the pool of one size class.
type MbufPollSize struct {
	lk           sync.Mutex
	mlist        DList
	cacheSize    uint32
	maxCacheSize uint32
	mbufSize     uint16

	stats MbufPollStats
}

func (o *MbufPollSize) Init(maxCacheSize uint32, mbufSize uint16) {
	o.mlist.SetSelf()
	o.maxCacheSize = maxCacheSize
	o.mbufSize = mbufSize
}

// NewMbuf takes a cached buffer if one exists, allocates otherwise.
func (o *MbufPollSize) NewMbuf() *Mbuf {
	o.lk.Lock()
	if o.cacheSize > 0 {
		o.stats.CntCacheAlloc++
		o.cacheSize--
		m := toMbuf(o.mlist.RemoveLast())
		o.lk.Unlock()
		m.resetMbuf()
		return m
	}
	o.stats.CntAlloc++
	o.lk.Unlock()

	m := new(Mbuf)
	m.bufLen = o.mbufSize + lMBUF_HEADROOM
	m.data = make([]byte, m.bufLen)
	m.pool = o
	m.resetMbuf()
	return m
}

// FreeMbuf returns a buffer to the cache, or drops it for the GC when the
// cache is full.
func (o *MbufPollSize) FreeMbuf(obj *Mbuf) {
	o.lk.Lock()
	if o.cacheSize < o.maxCacheSize {
		o.mlist.AddLast(&obj.dlist)
		o.cacheSize++
		o.stats.CntCacheFree++
	} else {
		o.stats.CntFree++
	}
	o.lk.Unlock()
}

func toMbuf(dlist *DList) *Mbuf {
	return (*Mbuf)(unsafe.Pointer(dlist))
}

// Mbuf is one contiguous received frame.
type Mbuf struct {
	dlist   DList // free-list link, must be first
	pool    *MbufPollSize
	dataLen uint16
	dataOff uint16
	bufLen  uint16
	port    uint16
	data    []byte
}

func (o *Mbuf) resetMbuf() {
	o.dlist.SetSelf()
	o.dataLen = 0
	o.dataOff = lMBUF_HEADROOM
	o.port = lMBUF_INVALID_PORT
}

func (o *Mbuf) SetVPort(vport uint16) {
	o.port = vport
}

func (o *Mbuf) VPort() uint16 {
	return o.port
}

// DataLen returns the number of valid frame bytes.
func (o *Mbuf) DataLen() uint16 {
	return o.dataLen
}

// PktLen returns the frame length; frames are contiguous so this equals
// DataLen.
func (o *Mbuf) PktLen() uint32 {
	return uint32(o.dataLen)
}

// Tailroom returns the bytes left after the data region.
func (o *Mbuf) Tailroom() uint16 {
	return o.bufLen - o.dataOff - o.dataLen
}

// Headroom returns the bytes left before the data region.
func (o *Mbuf) Headroom() uint16 {
	return o.dataOff
}

// GetData returns the frame bytes.
func (o *Mbuf) GetData() []byte {
	return o.data[o.dataOff : o.dataOff+o.dataLen]
}

// Append copies d after the current data. Panics when there is no room;
// check Tailroom first.
func (o *Mbuf) Append(d []byte) {
	size := uint16(len(d))
	if size > o.Tailroom() {
		panic(fmt.Sprintf(" append %d to mbuf remain size %d", size, o.Tailroom()))
	}
	copy(o.data[o.dataOff+o.dataLen:], d)
	o.dataLen += size
}

// Prepend copies d before the current data. Panics when the headroom is
// exhausted.
func (o *Mbuf) Prepend(d []byte) {
	size := uint16(len(d))
	if size > o.dataOff {
		panic(fmt.Sprintf(" prepend %d bytes to mbuf remain size %d", size, o.dataOff))
	}
	o.dataOff -= size
	o.dataLen += size
	copy(o.data[o.dataOff:], d)
}

// Trim removes dlen bytes from the end of the frame.
func (o *Mbuf) Trim(dlen uint16) {
	if dlen > o.dataLen {
		panic(fmt.Sprintf(" trim %d bigger than packet len %d", dlen, o.dataLen))
	}
	o.dataLen -= dlen
}

// Adj removes dlen bytes from the front of the frame.
func (o *Mbuf) Adj(dlen uint16) int {
	if dlen > o.dataLen {
		return -1
	}
	o.dataLen -= dlen
	o.dataOff += dlen
	return 0
}

// FreeMbuf gives the buffer back to its pool. The handle is invalid after
// this call.
func (o *Mbuf) FreeMbuf() {
	o.pool.FreeMbuf(o)
}

// SanityCheck panics when the handle is inconsistent.
func (o *Mbuf) SanityCheck() {
	if o.pool == nil {
		panic(" pool is nil ")
	}
	if o.dataOff > o.bufLen {
		panic(" data offset too big in mbuf ")
	}
	if o.dataOff+o.dataLen > o.bufLen {
		panic(" data length too big in mbuf ")
	}
}

func (o *Mbuf) String() string {
	s := fmt.Sprintf(" pktlen : %d, ", o.dataLen)
	s += fmt.Sprintf(" port : %d, ", o.port)
	s += fmt.Sprintf(" buflen : %d ", o.bufLen)
	if o.dataLen > 0 {
		s += fmt.Sprintf("\n%s\n", hex.Dump(o.GetData()))
	} else {
		s += "\n Empty\n"
	}
	return s
}

// Dump - dump
func (o *Mbuf) Dump() {
	fmt.Println(o)
}
