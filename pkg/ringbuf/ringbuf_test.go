package ringbuf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, size int) *RingBuffer {
	r, err := New(size)
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	r := mustNew(t, 8)
	require.Equal(t, 8, r.Cap())
	require.Equal(t, 0, r.Available())
	require.Equal(t, 7, r.Free())

	_, err := New(-1)
	require.Equal(t, ErrSize, err)
}

func TestUselessSizes(t *testing.T) {
	for _, size := range []int{0, 1} {
		r := mustNew(t, size)
		require.Equal(t, 0, r.Free())
		require.Equal(t, ErrFull, r.PutByte(1))
		_, err := r.GetByte()
		require.Equal(t, ErrEmpty, err)
		require.Equal(t, 0, r.Write([]byte{1, 2}))
		require.Equal(t, 0, r.Read(make([]byte, 2)))
	}
}

func TestByteOps(t *testing.T) {
	r := mustNew(t, 4)
	require.NoError(t, r.PutByte(0x11))
	require.NoError(t, r.PutByte(0x22))
	require.NoError(t, r.PutByte(0x33))
	require.Equal(t, ErrFull, r.PutByte(0x44))
	require.Equal(t, 3, r.Available())

	b, err := r.PeekByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x11), b)
	// peek must not consume
	require.Equal(t, 3, r.Available())

	for _, expect := range []byte{0x11, 0x22, 0x33} {
		b, err = r.GetByte()
		require.NoError(t, err)
		require.Equal(t, expect, b)
	}
	_, err = r.GetByte()
	require.Equal(t, ErrEmpty, err)
}

// available+free must stay at cap-1 through any sequence of puts
// and gets.
func TestAccountingInvariant(t *testing.T) {
	r := mustNew(t, 7)
	check := func() {
		require.Equal(t, r.Cap()-1, r.Available()+r.Free())
	}
	check()
	for i := 0; i < 50; i++ {
		if r.PutByte(byte(i)) == nil {
			check()
		}
		if i%3 == 0 {
			if _, err := r.GetByte(); err == nil {
				check()
			}
		}
	}
	for r.Available() > 0 {
		_, err := r.GetByte()
		require.NoError(t, err)
		check()
	}
}

func Test16BitOps(t *testing.T) {
	r := mustNew(t, 5)
	require.NoError(t, r.Put16(0x1234))
	v, err := r.Peek16()
	require.NoError(t, err)
	require.Equal(t, uint16(0x1234), v)
	require.Equal(t, 2, r.Available())

	// big-endian byte order
	b, err := r.GetByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x12), b)
	b, err = r.GetByte()
	require.NoError(t, err)
	require.Equal(t, byte(0x34), b)

	_, err = r.Get16()
	require.Equal(t, ErrEmpty, err)
}

func Test16BitAtomicity(t *testing.T) {
	r := mustNew(t, 4)
	require.NoError(t, r.PutByte(1))
	require.NoError(t, r.PutByte(2))
	require.Equal(t, 1, r.Free())

	// a 2-byte put must not leak a single byte
	require.Equal(t, ErrFull, r.Put16(0xbeef))
	require.Equal(t, 2, r.Available())
	require.Equal(t, 1, r.Free())

	// a 2-byte get/peek must not fire on a single byte
	_, err := r.GetByte()
	require.NoError(t, err)
	_, err = r.Peek16()
	require.Equal(t, ErrEmpty, err)
	_, err = r.Get16()
	require.Equal(t, ErrEmpty, err)
	require.Equal(t, 1, r.Available())
}

func TestPeekIdempotence(t *testing.T) {
	r := mustNew(t, 8)
	require.NoError(t, r.Put16(0xcafe))
	for i := 0; i < 3; i++ {
		b, err := r.PeekByte()
		require.NoError(t, err)
		require.Equal(t, byte(0xca), b)
		v, err := r.Peek16()
		require.NoError(t, err)
		require.Equal(t, uint16(0xcafe), v)
		require.Equal(t, 2, r.Available())
	}
}

// Scenario from the wrap-around bulk copy: capacity 11 stores 10
// bytes; interleaved writes and reads keep byte order across the
// backing array boundary.
func TestBulkWrapAround(t *testing.T) {
	r := mustNew(t, 11)
	require.Equal(t, 4, r.Write([]byte{1, 2, 3, 4}))
	out := make([]byte, 2)
	require.Equal(t, 2, r.Read(out))
	require.Equal(t, []byte{1, 2}, out)
	require.Equal(t, 2, r.Available())

	// only 8 bytes fit now; the write exactly fills the buffer
	require.Equal(t, 8, r.Free())
	require.Equal(t, 8, r.Write([]byte{5, 6, 7, 8, 9, 10, 11, 12}))
	require.Equal(t, 0, r.Free())

	out = make([]byte, 10)
	require.Equal(t, 10, r.Read(out))
	require.Equal(t, []byte{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, out)
}

func TestBulkRoundTrip(t *testing.T) {
	r := mustNew(t, 17)
	// drive head across the boundary repeatedly
	for i := 0; i < 8; i++ {
		data := make([]byte, 11)
		for j := range data {
			data[j] = byte(i*16 + j)
		}
		require.Equal(t, len(data), r.Write(data))
		out := make([]byte, len(data))
		require.Equal(t, len(out), r.Read(out))
		require.Equal(t, data, out)
	}
}

func TestBulkPartial(t *testing.T) {
	r := mustNew(t, 6)
	require.Equal(t, 5, r.Write([]byte{1, 2, 3, 4, 5, 6, 7}))
	out := make([]byte, 8)
	require.Equal(t, 5, r.Read(out))
	require.Equal(t, []byte{1, 2, 3, 4, 5}, out[:5])
}

func TestReadWaitTimeout(t *testing.T) {
	r := mustNew(t, 8)
	start := time.Now()
	n := r.ReadWait(make([]byte, 4), 50*time.Millisecond)
	require.Equal(t, 0, n)
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestReadWaitPartialAtTimeout(t *testing.T) {
	r := mustNew(t, 8)
	require.NoError(t, r.PutByte(9))
	out := make([]byte, 4)
	// only 1 of 4 requested bytes ever shows up
	n := r.ReadWait(out, 20*time.Millisecond)
	require.Equal(t, 1, n)
	require.Equal(t, byte(9), out[0])
}

func TestWriteWaitWakesUp(t *testing.T) {
	r := mustNew(t, 5)
	require.Equal(t, 4, r.Write([]byte{1, 2, 3, 4}))

	done := make(chan int)
	go func() {
		done <- r.WriteWait([]byte{5, 6, 7}, time.Second)
	}()
	time.Sleep(10 * time.Millisecond)
	out := make([]byte, 3)
	require.Equal(t, 3, r.Read(out))

	require.Equal(t, 3, <-done)
	require.Equal(t, 4, r.Read(make([]byte, 8)))
}

// One producer goroutine, one consumer goroutine, byte order and
// accounting must survive concurrent access.
func TestConcurrentSPSC(t *testing.T) {
	const total = 64 * 1024
	r := mustNew(t, 61) // odd size to exercise wrapping
	go func() {
		data := make([]byte, total)
		for i := range data {
			data[i] = byte(i)
		}
		for len(data) > 0 {
			n := r.Write(data)
			data = data[n:]
		}
	}()

	got := 0
	buf := make([]byte, 37)
	deadline := time.Now().Add(10 * time.Second)
	for got < total {
		require.True(t, time.Now().Before(deadline), "consumer stalled")
		n := r.Read(buf)
		for i := 0; i < n; i++ {
			require.Equal(t, byte(got+i), buf[i])
		}
		got += n
	}
	require.Equal(t, 0, r.Available())
}
