package core

/* message format

uint32 - message header

  MAGIC
  uint16 0xBEEF -- MAGIC
  uint16 number of packets

each packet is like this

uint8 0xAA -- MAGIC
uint8 vport
uint16 pkt_size
*/

import (
	"encoding/binary"
	"fmt"

	zmq "github.com/pebbe/zmq4"
)

const (
	ZMQ_PACKET_HEADER_MAGIC = 0xBEEF
	ZMQ_TX_PKT_BURST_SIZE   = 64
	ZMQ_TX_MAX_BUFFER_SIZE  = 32 * 1024
)

// VethIFZmq moves frames over a pair of ZMQ PAIR sockets, one direction
// each. The rx goroutine is the receive thread; frames are handed to the
// installed RxHandler in arrival order.
type VethIFZmq struct {
	rxCtx    *zmq.Context
	txCtx    *zmq.Context
	rxSocket *zmq.Socket
	txSocket *zmq.Socket
	rxPort   uint16 // towards us
	txPort   uint16 // from us

	pool    *MbufPoll
	handler RxHandler
	vec     []*Mbuf
	txSize  uint32
	stats   VethStats
	cdb     *CCounterDb
	buf     []byte
}

func (o *VethIFZmq) createSocket(server string, port uint16) (*zmq.Context, *zmq.Socket) {
	context, err := zmq.NewContext()
	if err != nil || context == nil {
		panic(err)
	}

	socket, err := context.NewSocket(zmq.PAIR)
	if err != nil || socket == nil {
		panic(err)
	}

	err = socket.Connect(fmt.Sprintf("tcp://%s:%d", server, port))
	if err != nil {
		panic(err)
	}
	return context, socket
}

func (o *VethIFZmq) Create(pool *MbufPoll, port uint16, server string) {
	o.rxCtx, o.rxSocket = o.createSocket(server, port)
	o.txCtx, o.txSocket = o.createSocket(server, port+1)

	o.rxPort = port
	o.txPort = port + 1
	o.buf = make([]byte, 0, ZMQ_TX_MAX_BUFFER_SIZE)

	o.pool = pool
	o.vec = make([]*Mbuf, 0)
	o.cdb = NewVethStatsDb(&o.stats)
}

func (o *VethIFZmq) SetRxHandler(h RxHandler) {
	o.handler = h
}

func (o *VethIFZmq) StartRxThread() {
	go o.rxThread()
}

func (o *VethIFZmq) rxThread() {
	for {
		msg, err := o.rxSocket.RecvBytes(0)
		if err != nil {
			log.Errorf("zmq rx: %v", err)
			return
		}
		o.onRxStream(msg)
	}
}

// onRxStream splits one length-framed batch into mbufs.
func (o *VethIFZmq) onRxStream(stream []byte) {
	o.stats.RxBatch++
	blen := uint32(len(stream))
	if blen < 4 {
		o.stats.RxParseErr++
		return
	}
	header := binary.BigEndian.Uint32(stream[0:4])
	if ((header & 0xffff0000) >> 16) != ZMQ_PACKET_HEADER_MAGIC {
		o.stats.RxParseErr++
		return
	}
	pkts := int(header & 0xffff)
	var of uint16
	of = 4
	for i := 0; i < pkts; i++ {
		if blen < uint32(of+4) {
			o.stats.RxParseErr++
			return
		}

		header = binary.BigEndian.Uint32(stream[of : of+4])
		if (header & 0xff000000) != 0xAA000000 {
			o.stats.RxParseErr++
			return
		}

		vport := uint8((header & 0x00ff0000) >> 16)
		pktLen := uint16(header & 0x0000ffff)
		if blen < uint32(of+4+pktLen) {
			o.stats.RxParseErr++
			return
		}

		m := o.pool.Alloc(pktLen)
		m.SetVPort(uint16(vport))
		m.Append(stream[of+4 : of+4+pktLen])
		o.OnRx(m)
		of = of + 4 + pktLen
	}
}

// OnRx accounts the frame and runs the handler; an unclaimed frame is
// freed here, there is no legacy stack behind the daemon.
func (o *VethIFZmq) OnRx(m *Mbuf) {
	o.stats.RxPkts++
	o.stats.RxBytes += uint64(m.PktLen())
	if o.handler != nil && o.handler(m) {
		return
	}
	o.stats.RxNotClaimed++
	m.FreeMbuf()
}

func (o *VethIFZmq) FlushTx() {
	if len(o.vec) == 0 {
		return
	}
	o.buf = o.buf[:0]
	var pkth [4]byte
	o.stats.TxBatch++
	header := (uint32(0xBEEF) << 16) + uint32(len(o.vec))
	binary.BigEndian.PutUint32(pkth[:], header)
	o.buf = append(o.buf, pkth[:]...) // message header

	for _, m := range o.vec {
		pktHeader := (uint32(0xAA) << 24) + uint32(m.VPort()&0xff)<<16 + (m.PktLen() & 0xffff)
		binary.BigEndian.PutUint32(pkth[:], pktHeader)
		o.buf = append(o.buf, pkth[:]...)     // packet header
		o.buf = append(o.buf, m.GetData()...) // packet itself
		m.FreeMbuf()
	}
	o.vec = o.vec[:0]
	o.txSize = 0
	o.txSocket.SendBytes(o.buf, 0)
}

func (o *VethIFZmq) Send(m *Mbuf) {
	pktlen := m.PktLen()
	o.stats.TxPkts++
	o.stats.TxBytes += uint64(pktlen)

	if o.txSize+pktlen >= ZMQ_TX_MAX_BUFFER_SIZE {
		o.FlushTx()
	}

	o.vec = append(o.vec, m)
	o.txSize += pktlen
	if len(o.vec) == ZMQ_TX_PKT_BURST_SIZE {
		o.FlushTx()
	}
}

/* get the veth stats */
func (o *VethIFZmq) GetStats() *VethStats {
	return &o.stats
}

func (o *VethIFZmq) GetCdb() *CCounterDb {
	return o.cdb
}

func (o *VethIFZmq) Delete() {
	for _, m := range o.vec {
		m.FreeMbuf()
	}
	o.vec = nil
	o.rxSocket.Close()
	o.txSocket.Close()
	o.rxCtx.Term()
	o.txCtx.Term()
}
