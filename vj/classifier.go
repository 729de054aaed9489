package vj

import (
	"encoding/binary"

	"vjnet/core"
)

const (
	ETHER_HDR_LEN = 14
	IPV4_MIN_HLEN = 20
	TCP_HDR_LEN   = 20
	IPPROTO_TCP   = 6
)

var log = core.GetLogger()

type ClassifierStats struct {
	pktTooShort    uint64
	pktNotTcp      uint64
	lookupHit      uint64
	lookupMiss     uint64
	delivered      uint64
	deliveredBytes uint64
	dropRingFull   uint64
	pollWake       uint64
	pollRingFull   uint64
	ctlAdd         uint64
	ctlRemove      uint64
	ctlAttach      uint64
	ctlDetach      uint64
	ctlDestroy     uint64
}

func newClassifierStatsDb(o *ClassifierStats) *core.CCounterDb {
	db := core.NewCCounterDb("classifier")
	db.Add(&core.CCounterRec{
		Counter:  &o.pktTooShort,
		Name:     "pktTooShort",
		Help:     "frame shorter than eth+ip headers",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.pktNotTcp,
		Name:     "pktNotTcp",
		Help:     "not tcp or too short for tcp header",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.lookupHit,
		Name:     "lookupHit",
		Help:     "classification found",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.lookupMiss,
		Name:     "lookupMiss",
		Help:     "no classification for tuple",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.delivered,
		Name:     "delivered",
		Help:     "frames pushed to a flow ring",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.deliveredBytes,
		Name:     "deliveredBytes",
		Help:     "bytes pushed to flow rings",
		Unit:     "bytes",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.dropRingFull,
		Name:     "dropRingFull",
		Help:     "claimed frames dropped, consumer not keeping up",
		Unit:     "pkts",
		DumpZero: false,
		Info:     core.ScERROR})

	db.Add(&core.CCounterRec{
		Counter:  &o.pollWake,
		Name:     "pollWake",
		Help:     "poller wakeups fired",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.pollRingFull,
		Name:     "pollRingFull",
		Help:     "poller ring overflow on fire",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScERROR})

	db.Add(&core.CCounterRec{
		Counter:  &o.ctlAdd,
		Name:     "ctlAdd",
		Help:     "add control messages applied",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.ctlRemove,
		Name:     "ctlRemove",
		Help:     "remove control messages applied",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.ctlAttach,
		Name:     "ctlAttach",
		Help:     "attach-poller control messages applied",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.ctlDetach,
		Name:     "ctlDetach",
		Help:     "detach-poller control messages applied",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	db.Add(&core.CCounterRec{
		Counter:  &o.ctlDestroy,
		Name:     "ctlDestroy",
		Help:     "destroy-poller control messages applied",
		Unit:     "ops",
		DumpZero: false,
		Info:     core.ScINFO})

	return db
}

/*
Classifier implements lockless packet classification over a hash of the
flow 5-tuple. One instance exists per network interface. TryDeliver runs
on the single receive thread; any number of goroutines may post control
operations, which are applied at the head of the next TryDeliver.
*/
type Classifier struct {
	index core.RcuHashtable[FlowKey, *FlowRing]
	ctrl  core.QueueMpsc

	stats ClassifierStats
	Cdb   *core.CCounterDb
}

func NewClassifier() *Classifier {
	o := new(Classifier)
	o.index.Init(func(k FlowKey) uint32 { return k.Hash() })
	o.ctrl.Init()
	o.Cdb = newClassifierStatsDb(&o.stats)
	return o
}

// Add registers ring under key. O(1), wait-free; takes effect when the
// receive thread drains the control queue.
func (o *Classifier) Add(key FlowKey, ring *FlowRing) {
	msg := &controlMsg{op: ctlADD, key: key, ring: ring}
	o.ctrl.Push(&msg.node)
}

// Remove deregisters key. After the next TryDeliver on this classifier
// returns, no further push to the ring occurs.
func (o *Classifier) Remove(key FlowKey) {
	msg := &controlMsg{op: ctlREMOVE, key: key}
	o.ctrl.Push(&msg.node)
}

// AttachPoller registers poller on ring at the given snapshot. If the ring
// has already moved past the snapshot the poller fires immediately on
// apply.
func (o *Classifier) AttachPoller(ring *FlowRing, snap core.RingSpscSnapshot, poller *PollRing) {
	msg := &controlMsg{op: ctlATTACH_POLLER, ring: ring, snap: snap, poller: poller}
	o.ctrl.Push(&msg.node)
}

func (o *Classifier) DetachPoller(ring *FlowRing, poller *PollRing) {
	msg := &controlMsg{op: ctlDETACH_POLLER, ring: ring, poller: poller}
	o.ctrl.Push(&msg.node)
}

// DestroyPoller retires the poller. The MPSC FIFO guarantees every earlier
// DetachPoller for it is applied first, so after this is applied the
// classifier holds no reference.
func (o *Classifier) DestroyPoller(poller *PollRing) {
	msg := &controlMsg{op: ctlDESTROY_POLLER, poller: poller}
	o.ctrl.Push(&msg.node)
}

func (o *Classifier) processControl() {
	for {
		n := o.ctrl.Pop()
		if n == nil {
			return
		}
		msgFromNode(n).apply(o)
	}
}

func (o *Classifier) applyAdd(key FlowKey, ring *FlowRing) {
	o.stats.ctlAdd++
	log.Debugf("vj: cls add %v -> %p", key, ring)
	// overwrite semantics: a re-add replaces the previous registration
	o.index.Erase(key)
	o.index.Insert(key, ring)
}

func (o *Classifier) applyRemove(key FlowKey) {
	o.stats.ctlRemove++
	log.Debugf("vj: cls remove %v", key)
	o.index.Erase(key)
}

func (o *Classifier) applyAttachPoller(ring *FlowRing, snap core.RingSpscSnapshot, poller *PollRing) {
	o.stats.ctlAttach++
	ring.attachPoller(poller, snap, &o.stats)
}

func (o *Classifier) applyDetachPoller(ring *FlowRing, poller *PollRing) {
	o.stats.ctlDetach++
	ring.detachPoller(poller)
}

func (o *Classifier) applyDestroyPoller(poller *PollRing) {
	o.stats.ctlDestroy++
	poller.destroyed = true
}

// lookup is reader-side on the RCU index; on the receive thread it is
// simply the owner reading its own table.
func (o *Classifier) lookup(key FlowKey) *FlowRing {
	ring, ok := o.index.Find(key)
	if !ok {
		o.stats.lookupMiss++
		return nil
	}
	o.stats.lookupHit++
	return ring
}

/*
TryDeliver examines one received frame and, when its swapped 5-tuple is
registered, queues it on the flow's ring and wakes the consumer. Called
only from the receive thread.

Returns true when the frame was consumed: delivered, or claimed and
deliberately dropped on ring overflow (the consumer is not keeping up;
dropping is the policy for the flow). Returns false when the frame was not
claimed; the caller still owns it and should fall back to the conventional
stack path.
*/
func (o *Classifier) TryDeliver(m *core.Mbuf) bool {
	// drain control first, unconditionally: a Remove posted before this
	// frame must be honored even when the frame turns out not to be TCP
	o.processControl()

	p := m.GetData()

	if len(p) < ETHER_HDR_LEN+IPV4_MIN_HLEN {
		o.stats.pktTooShort++
		return false
	}

	ip := p[ETHER_HDR_LEN:]
	hlen := int(ip[0]&0x0f) << 2
	ipProto := ip[9]

	// must be tcp, with room for the tcp header behind the ip options
	if ipProto != IPPROTO_TCP || len(p) < ETHER_HDR_LEN+hlen+TCP_HDR_LEN {
		o.stats.pktNotTcp++
		return false
	}

	srcIP := binary.BigEndian.Uint32(ip[12:16])
	dstIP := binary.BigEndian.Uint32(ip[16:20])
	tcp := ip[hlen:]
	srcPort := binary.BigEndian.Uint16(tcp[0:2])
	dstPort := binary.BigEndian.Uint16(tcp[2:4])

	key := FlowKey{SrcIP: srcIP, DstIP: dstIP, IPProto: ipProto,
		SrcPort: srcPort, DstPort: dstPort}
	ring := o.lookup(key.swapped())
	if ring == nil {
		return false
	}

	if !ring.push(m) {
		o.stats.dropRingFull++
		m.FreeMbuf()
		return true
	}

	o.stats.delivered++
	o.stats.deliveredBytes += uint64(len(p))

	// wake up the user in case it is waiting, directly and through any
	// attached poller whose snapshot went stale
	ring.wakeConsumer()
	ring.firePollers(&o.stats)

	return true
}
