package espnow

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testPeer = Addr{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

func mustBuffer(t *testing.T, capacity int) *PacketBuffer {
	b, err := NewPacketBuffer(capacity)
	require.NoError(t, err)
	return b
}

func TestPacketRoundTrip(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	for _, size := range []int{0, 1, 249, 250} {
		msg := bytes.Repeat([]byte{0xa5}, size)
		require.NoError(t, b.PutPacket(testPeer, msg))

		out := make([]byte, MaxDataLen)
		peer, n, err := b.GetPacket(out, 0)
		require.NoError(t, err)
		require.Equal(t, testPeer, peer)
		require.Equal(t, size, n)
		require.Equal(t, msg, out[:n])
	}
	_, err := b.PeekLength()
	require.Equal(t, ErrNoPacket, err)
}

func TestPacketHello(t *testing.T) {
	// smallest buffer that fits the frame
	b := mustBuffer(t, hdrLen+AddrLen+5)
	require.NoError(t, b.PutPacket(testPeer, []byte("hello")))

	out := make([]byte, MaxDataLen)
	peer, n, err := b.GetPacket(out, 0)
	require.NoError(t, err)
	require.Equal(t, testPeer, peer)
	require.Equal(t, []byte("hello"), out[:n])

	_, err = b.PeekLength()
	require.Equal(t, ErrNoPacket, err)
}

func TestPeekLength(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	_, err := b.PeekLength()
	require.Equal(t, ErrNoPacket, err)

	require.NoError(t, b.PutPacket(testPeer, []byte{1, 2, 3}))
	for i := 0; i < 3; i++ {
		n, err := b.PeekLength()
		require.NoError(t, err)
		require.Equal(t, 3, n)
	}
	require.Equal(t, hdrLen+AddrLen+3, b.ring.Available())
}

func TestOverflowDrop(t *testing.T) {
	// room for exactly two full-length frames
	b := mustBuffer(t, 2*MaxFrameLen)
	big := bytes.Repeat([]byte{0x11}, MaxDataLen)
	require.NoError(t, b.PutPacket(testPeer, big))
	require.NoError(t, b.PutPacket(testPeer, big))

	avail := b.ring.Available()
	require.Equal(t, ErrOverflow, b.PutPacket(testPeer, big))
	require.Equal(t, uint32(1), b.Dropped())
	// the buffer is byte-for-byte unchanged
	require.Equal(t, avail, b.ring.Available())

	// both buffered packets are still intact
	out := make([]byte, MaxDataLen)
	for i := 0; i < 2; i++ {
		peer, n, err := b.GetPacket(out, 0)
		require.NoError(t, err)
		require.Equal(t, testPeer, peer)
		require.Equal(t, big, out[:n])
	}
}

func TestOversizeMessage(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	err := b.PutPacket(testPeer, make([]byte, MaxDataLen+1))
	require.Equal(t, ErrMessageLength, err)
	require.Equal(t, uint32(0), b.Dropped())
	require.False(t, b.Readable())
}

func TestGetPacketTimeout(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	start := time.Now()
	_, _, err := b.GetPacket(make([]byte, MaxDataLen), 50*time.Millisecond)
	require.Equal(t, ErrTimeout, err)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	require.Equal(t, 0, b.ring.Available())
}

func TestGetPacketWaits(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	go func() {
		time.Sleep(20 * time.Millisecond)
		b.PutPacket(testPeer, []byte("late"))
	}()
	out := make([]byte, MaxDataLen)
	peer, n, err := b.GetPacket(out, time.Second)
	require.NoError(t, err)
	require.Equal(t, testPeer, peer)
	require.Equal(t, []byte("late"), out[:n])
}

func TestShortBuffer(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	require.NoError(t, b.PutPacket(testPeer, []byte("hello")))

	_, _, err := b.GetPacket(make([]byte, 4), 0)
	require.Equal(t, ErrShortBuffer, err)
	// nothing consumed: a big enough buffer still gets the packet
	out := make([]byte, 5)
	peer, n, err := b.GetPacket(out, 0)
	require.NoError(t, err)
	require.Equal(t, testPeer, peer)
	require.Equal(t, []byte("hello"), out[:n])
}

func TestCorruptStream(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	// a raw byte write into the shared ring desynchronizes framing
	b.ring.Write([]byte{0x42, 0x03, 1, 2, 3})

	_, err := b.PeekLength()
	require.Equal(t, ErrCorrupt, err)
	_, _, err = b.GetPacket(make([]byte, MaxDataLen), 0)
	require.Equal(t, ErrCorrupt, err)

	b.Reset()
	require.False(t, b.Readable())
	require.NoError(t, b.PutPacket(testPeer, []byte("ok")))
	out := make([]byte, MaxDataLen)
	_, n, err := b.GetPacket(out, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), out[:n])
}

func TestCorruptLength(t *testing.T) {
	b := mustBuffer(t, DefaultBufferSize)
	// valid magic but impossible length
	b.ring.Write([]byte{Magic, 0xfb})
	_, err := b.PeekLength()
	require.Equal(t, ErrCorrupt, err)
}
