package vj

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowKeySwapped(t *testing.T) {
	k := NewFlowKey(net.ParseIP("1.2.3.4"), net.ParseIP("5.6.7.8"),
		IPPROTO_TCP, 1234, 80)

	s := k.swapped()
	assert.Equal(t, k.SrcIP, s.DstIP)
	assert.Equal(t, k.DstIP, s.SrcIP)
	assert.Equal(t, k.SrcPort, s.DstPort)
	assert.Equal(t, k.DstPort, s.SrcPort)
	assert.Equal(t, k.IPProto, s.IPProto)

	// swapping twice is the identity, and the xor hash is symmetric
	assert.Equal(t, k, s.swapped())
	assert.Equal(t, k.Hash(), s.Hash())
}

func TestFlowKeyString(t *testing.T) {
	k := NewFlowKey(net.ParseIP("1.2.3.4"), net.ParseIP("5.6.7.8"),
		IPPROTO_TCP, 1234, 80)
	assert.Equal(t, "(1.2.3.4,5.6.7.8,6,1234,80)", k.String())
}
