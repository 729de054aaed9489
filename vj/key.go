package vj

import (
	"encoding/binary"
	"fmt"
	"net"
)

// FlowKey is the classification 5-tuple. Addresses and ports are carried
// exactly as they appear on the wire (network byte order, loaded
// big-endian); the classifier never reorders bytes, it only compares.
// Equality is structural.
type FlowKey struct {
	SrcIP   uint32
	DstIP   uint32
	IPProto uint8
	SrcPort uint16
	DstPort uint16
}

// Hash is the xor of all fields widened to uint32.
func (o *FlowKey) Hash() uint32 {
	return o.SrcIP ^ o.DstIP ^ uint32(o.IPProto) ^ uint32(o.SrcPort) ^ uint32(o.DstPort)
}

// swapped returns the key re-oriented for an incoming frame: flows are
// indexed from the local endpoint's perspective, so source and destination
// trade places.
func (o *FlowKey) swapped() FlowKey {
	return FlowKey{
		SrcIP:   o.DstIP,
		DstIP:   o.SrcIP,
		IPProto: o.IPProto,
		SrcPort: o.DstPort,
		DstPort: o.SrcPort,
	}
}

func ipToU32(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		panic(fmt.Sprintf(" not an IPv4 address %v ", ip))
	}
	return binary.BigEndian.Uint32(v4)
}

// NewFlowKey builds a key from the socket layer's view: local address and
// port first, foreign address and port second.
func NewFlowKey(laddr net.IP, faddr net.IP, ipProto uint8, lport uint16, fport uint16) FlowKey {
	return FlowKey{
		SrcIP:   ipToU32(laddr),
		DstIP:   ipToU32(faddr),
		IPProto: ipProto,
		SrcPort: lport,
		DstPort: fport,
	}
}

func u32ToIP(v uint32) net.IP {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return net.IP(b[:])
}

func (o FlowKey) String() string {
	return fmt.Sprintf("(%v,%v,%d,%d,%d)",
		u32ToIP(o.SrcIP), u32ToIP(o.DstIP), o.IPProto, o.SrcPort, o.DstPort)
}
