package core

import (
	"github.com/songgao/water"
)

// VethIFTap moves frames through a kernel TAP device. Useful to point the
// classifier at real traffic without a DPDK-style driver underneath.
type VethIFTap struct {
	ifce    *water.Interface
	pool    *MbufPoll
	handler RxHandler
	vport   uint16
	stats   VethStats
	cdb     *CCounterDb
}

func (o *VethIFTap) Create(pool *MbufPoll, name string, vport uint16) error {
	cfg := water.Config{
		DeviceType: water.TAP,
	}
	cfg.Name = name

	ifce, err := water.New(cfg)
	if err != nil {
		return err
	}
	o.ifce = ifce
	o.pool = pool
	o.vport = vport
	o.cdb = NewVethStatsDb(&o.stats)
	return nil
}

func (o *VethIFTap) SetRxHandler(h RxHandler) {
	o.handler = h
}

func (o *VethIFTap) StartRxThread() {
	go o.rxThread()
}

func (o *VethIFTap) rxThread() {
	buf := make([]byte, MAX_PACKET_SIZE)
	for {
		n, err := o.ifce.Read(buf)
		if err != nil {
			log.Errorf("tap rx: %v", err)
			return
		}
		if n == 0 {
			continue
		}
		m := o.pool.Alloc(uint16(n))
		m.SetVPort(o.vport)
		m.Append(buf[:n])
		o.OnRx(m)
	}
}

func (o *VethIFTap) OnRx(m *Mbuf) {
	o.stats.RxPkts++
	o.stats.RxBytes += uint64(m.PktLen())
	if o.handler != nil && o.handler(m) {
		return
	}
	o.stats.RxNotClaimed++
	m.FreeMbuf()
}

// Send writes one frame to the device. The tap fd has no batching, FlushTx
// is a no-op.
func (o *VethIFTap) Send(m *Mbuf) {
	o.stats.TxPkts++
	o.stats.TxBytes += uint64(m.PktLen())
	if _, err := o.ifce.Write(m.GetData()); err != nil {
		log.Errorf("tap tx: %v", err)
	}
	m.FreeMbuf()
}

func (o *VethIFTap) FlushTx() {
}

func (o *VethIFTap) GetStats() *VethStats {
	return &o.stats
}

func (o *VethIFTap) GetCdb() *CCounterDb {
	return o.cdb
}

func (o *VethIFTap) Delete() {
	o.ifce.Close()
}
