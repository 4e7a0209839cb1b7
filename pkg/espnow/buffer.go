package espnow

import (
	"sync/atomic"
	"time"

	"github.com/robotalks/espnow.go/pkg/ringbuf"
)

// pollInterval is the sleep between polls while waiting for a packet.
const pollInterval = time.Millisecond

// PacketBuffer presents a byte ring buffer as a framed packet queue
// for one producer (the link driver's delivery context) and one
// consumer (the application). The producer side never blocks: frames
// that do not fit are dropped and counted.
type PacketBuffer struct {
	ring    *ringbuf.RingBuffer
	scratch [MaxFrameLen]byte // producer-owned frame staging
	dropped atomic.Uint32
}

// NewPacketBuffer creates a PacketBuffer storing up to capacity
// bytes of framed packets. One extra byte is allocated for the
// ring's reserved slot.
func NewPacketBuffer(capacity int) (*PacketBuffer, error) {
	ring, err := ringbuf.New(capacity + 1)
	if err != nil {
		return nil, err
	}
	return &PacketBuffer{ring: ring}, nil
}

// PutPacket frames peer and msg into the buffer. It must only be
// called from the producer side, and it never blocks: if the whole
// frame does not fit it is dropped, the drop counter is bumped and
// ErrOverflow returned, leaving the buffer byte-for-byte unchanged.
//
// The frame is staged in scratch storage and committed with a single
// bulk write, so the consumer sees either the whole frame or nothing.
func (b *PacketBuffer) PutPacket(peer Addr, msg []byte) error {
	if len(msg) > MaxDataLen {
		return ErrMessageLength
	}
	total := hdrLen + AddrLen + len(msg)
	if b.ring.Free() < total {
		b.dropped.Add(1)
		return ErrOverflow
	}
	b.scratch[0] = Magic
	b.scratch[1] = byte(len(msg))
	copy(b.scratch[hdrLen:], peer[:])
	copy(b.scratch[hdrLen+AddrLen:], msg)
	b.ring.Write(b.scratch[:total])
	return nil
}

// PeekLength returns the payload length of the next buffered packet
// without consuming anything. It returns ErrNoPacket while the header
// is not fully buffered yet, and ErrCorrupt if the header fails
// validation.
func (b *PacketBuffer) PeekLength() (int, error) {
	hdr, err := b.ring.Peek16()
	if err != nil {
		return 0, ErrNoPacket
	}
	return checkHeader(hdr)
}

// GetPacket waits until a packet is buffered, or timeout elapses
// (ErrTimeout), then copies the payload into msg and returns the
// sending peer and the payload length. A negative timeout waits
// forever.
//
// If msg cannot hold the payload, ErrShortBuffer is returned before
// any byte is consumed. ErrCorrupt is fatal: the caller should Reset
// and treat all buffered data as lost.
func (b *PacketBuffer) GetPacket(msg []byte, timeout time.Duration) (Addr, int, error) {
	var peer Addr
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	var n int
	var err error
	for {
		if n, err = b.PeekLength(); err == nil {
			break
		}
		if err != ErrNoPacket {
			return peer, 0, err
		}
		if timeout >= 0 && !time.Now().Before(deadline) {
			return peer, 0, ErrTimeout
		}
		time.Sleep(pollInterval)
	}
	if len(msg) < n {
		return peer, 0, ErrShortBuffer
	}
	// The header is valid and frames are committed whole, so peer and
	// payload must be right behind it. A short read here means the
	// producer discipline was violated.
	b.ring.Get16()
	if b.ring.Read(peer[:]) != AddrLen || b.ring.Read(msg[:n]) != n {
		return peer, 0, ErrCorrupt
	}
	return peer, n, nil
}

// Readable checks if any packet bytes are buffered.
func (b *PacketBuffer) Readable() bool {
	return b.ring.Available() > 0
}

// Dropped returns the number of packets dropped on overflow.
func (b *PacketBuffer) Dropped() uint32 {
	return b.dropped.Load()
}

// Free returns the number of frame bytes that currently fit.
func (b *PacketBuffer) Free() int {
	return b.ring.Free()
}

// Reset drops all buffered bytes. Consumer side only.
func (b *PacketBuffer) Reset() {
	b.ring.Reset()
}
