// Package wsock carries ESP-NOW datagrams over websocket
// connections through a central Hub, so host-side tools can join a
// mesh without radio hardware.
package wsock

import (
	"github.com/robotalks/espnow.go/pkg/espnow"
)

// Hub link frame formats:
//
//	data: 0x00 | dst[6] | src[6] | payload
//	ack:  0x01 | peer[6] | status(1)
const (
	frameData byte = 0x00
	frameAck  byte = 0x01

	dataHdrLen = 1 + 2*espnow.AddrLen
	ackLen     = 1 + espnow.AddrLen + 1
)

func encodeData(dst, src espnow.Addr, payload []byte) []byte {
	f := make([]byte, dataHdrLen+len(payload))
	f[0] = frameData
	copy(f[1:], dst[:])
	copy(f[1+espnow.AddrLen:], src[:])
	copy(f[dataHdrLen:], payload)
	return f
}

func decodeData(f []byte) (dst, src espnow.Addr, payload []byte, ok bool) {
	if len(f) < dataHdrLen || f[0] != frameData ||
		len(f) > dataHdrLen+espnow.MaxDataLen {
		return
	}
	copy(dst[:], f[1:])
	copy(src[:], f[1+espnow.AddrLen:])
	return dst, src, f[dataHdrLen:], true
}

func encodeAck(peer espnow.Addr, delivered bool) []byte {
	f := make([]byte, ackLen)
	f[0] = frameAck
	copy(f[1:], peer[:])
	if delivered {
		f[ackLen-1] = 1
	}
	return f
}

func decodeAck(f []byte) (peer espnow.Addr, delivered bool, ok bool) {
	if len(f) != ackLen || f[0] != frameAck {
		return
	}
	copy(peer[:], f[1:])
	return peer, f[ackLen-1] != 0, true
}
