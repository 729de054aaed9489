package core

type VethStats struct {
	TxPkts       uint64
	TxBytes      uint64
	TxBatch      uint64
	RxPkts       uint64
	RxBytes      uint64
	RxBatch      uint64
	RxParseErr   uint64
	RxNotClaimed uint64 /* frames the rx handler did not consume */
}

func NewVethStatsDb(o *VethStats) *CCounterDb {
	db := NewCCounterDb("veth")
	db.Add(&CCounterRec{
		Counter:  &o.TxPkts,
		Name:     "txPkts",
		Help:     "tx packets",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.TxBytes,
		Name:     "txBytes",
		Help:     "tx bytes",
		Unit:     "bytes",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.TxBatch,
		Name:     "txBatch",
		Help:     "tx batches",
		Unit:     "ops",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.RxPkts,
		Name:     "rxPkts",
		Help:     "rx packets",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.RxBytes,
		Name:     "rxBytes",
		Help:     "rx bytes",
		Unit:     "bytes",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.RxBatch,
		Name:     "rxBatch",
		Help:     "rx batches",
		Unit:     "ops",
		DumpZero: false,
		Info:     ScINFO})

	db.Add(&CCounterRec{
		Counter:  &o.RxParseErr,
		Name:     "rxParseErr",
		Help:     "rx framing parse error",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScERROR})

	db.Add(&CCounterRec{
		Counter:  &o.RxNotClaimed,
		Name:     "rxNotClaimed",
		Help:     "rx frames not claimed by the handler",
		Unit:     "pkts",
		DumpZero: false,
		Info:     ScINFO})

	return db
}

// RxHandler consumes one received frame. Returns true when the frame was
// claimed (ownership moved); on false the driver still owns it and falls
// back to its legacy path.
type RxHandler func(m *Mbuf) bool

/*
VethIF represents a way to send and receive link-layer frames. The rx
goroutine started by StartRxThread is the receive thread: the handler is
invoked from it only, one frame at a time.
*/
type VethIF interface {

	/* start the rx goroutine */
	StartRxThread()

	/* install the frame handler, before StartRxThread */
	SetRxHandler(h RxHandler)

	/* Flush the tx buffer and send the packets */
	FlushTx()

	/* the mbuf should be ready for sending */
	Send(m *Mbuf)

	// OnRx accounts a received frame and runs the handler
	OnRx(m *Mbuf)

	/* get the veth stats */
	GetStats() *VethStats

	GetCdb() *CCounterDb

	Delete()
}
