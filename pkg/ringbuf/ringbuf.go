package ringbuf

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	// ErrSize indicates an invalid buffer size.
	ErrSize = errors.New("invalid buffer size")
	// ErrFull indicates no room for the requested write.
	ErrFull = errors.New("buffer full")
	// ErrEmpty indicates no data for the requested read.
	ErrEmpty = errors.New("buffer empty")
)

// pollInterval is the default sleep between polls in blocking calls.
const pollInterval = time.Millisecond

// RingBuffer is a circular byte buffer safe for exactly one producer
// and one consumer without locking. The producer only advances head,
// the consumer only advances tail, and each index is published after
// the data copy it covers.
//
// One slot is always kept unused to tell a full buffer from an empty
// one, so a buffer created with size N stores at most N-1 bytes.
type RingBuffer struct {
	// Yield is called on every iteration of a blocking wait to hand
	// control back to the scheduler. Defaults to a 1ms sleep.
	Yield func()

	buf  []byte
	head atomic.Uint32 // next write index, in [0, len(buf))
	tail atomic.Uint32 // next read index, in [0, len(buf))
}

// New creates a RingBuffer with size bytes of backing storage,
// including the reserved slot. Sizes 0 and 1 are legal but such a
// buffer can never store data.
func New(size int) (*RingBuffer, error) {
	if size < 0 || size > 1<<30 {
		return nil, ErrSize
	}
	return &RingBuffer{buf: make([]byte, size)}, nil
}

// Cap returns the size of the backing storage, including the
// reserved slot.
func (r *RingBuffer) Cap() int {
	return len(r.buf)
}

// Available returns the number of bytes ready to read.
func (r *RingBuffer) Available() int {
	size := len(r.buf)
	if size == 0 {
		return 0
	}
	h, t := int(r.head.Load()), int(r.tail.Load())
	return (h - t + size) % size
}

// Free returns the number of bytes that can be written without
// overwriting unread data.
func (r *RingBuffer) Free() int {
	size := len(r.buf)
	if size <= 1 {
		return 0
	}
	return size - 1 - r.Available()
}

// Reset drops all buffered bytes. It must be called from the
// consumer side only, as it advances tail.
func (r *RingBuffer) Reset() {
	r.tail.Store(r.head.Load())
}

// PutByte writes a single byte, or fails with ErrFull.
func (r *RingBuffer) PutByte(b byte) error {
	if r.Free() < 1 {
		return ErrFull
	}
	h := int(r.head.Load())
	r.buf[h] = b
	r.head.Store(uint32((h + 1) % len(r.buf)))
	return nil
}

// GetByte reads a single byte, or fails with ErrEmpty.
func (r *RingBuffer) GetByte() (byte, error) {
	if r.Available() < 1 {
		return 0, ErrEmpty
	}
	t := int(r.tail.Load())
	b := r.buf[t]
	r.tail.Store(uint32((t + 1) % len(r.buf)))
	return b, nil
}

// PeekByte returns the next byte without consuming it.
func (r *RingBuffer) PeekByte() (byte, error) {
	if r.Available() < 1 {
		return 0, ErrEmpty
	}
	return r.buf[r.tail.Load()], nil
}

// Put16 writes a 16-bit value in big-endian order. The write is
// all-or-nothing: if fewer than 2 bytes are free it fails with
// ErrFull and no byte is committed.
func (r *RingBuffer) Put16(v uint16) error {
	if r.Free() < 2 {
		return ErrFull
	}
	size := len(r.buf)
	h := int(r.head.Load())
	r.buf[h] = byte(v >> 8)
	r.buf[(h+1)%size] = byte(v)
	r.head.Store(uint32((h + 2) % size))
	return nil
}

// Get16 reads a 16-bit big-endian value. It fails with ErrEmpty
// unless 2 bytes are buffered, and consumes nothing on failure.
func (r *RingBuffer) Get16() (uint16, error) {
	v, err := r.Peek16()
	if err != nil {
		return 0, err
	}
	t := int(r.tail.Load())
	r.tail.Store(uint32((t + 2) % len(r.buf)))
	return v, nil
}

// Peek16 returns the next 16-bit big-endian value without
// consuming it.
func (r *RingBuffer) Peek16() (uint16, error) {
	if r.Available() < 2 {
		return 0, ErrEmpty
	}
	size := len(r.buf)
	t := int(r.tail.Load())
	return uint16(r.buf[t])<<8 | uint16(r.buf[(t+1)%size]), nil
}

// Write copies up to min(len(p), Free()) bytes into the buffer in at
// most two block copies and returns the number of bytes written. The
// write index is published once, after all bytes are in place, so a
// consumer sees either none or all of a single Write.
func (r *RingBuffer) Write(p []byte) int {
	n := min(len(p), r.Free())
	if n == 0 {
		return 0
	}
	size := len(r.buf)
	h := int(r.head.Load())
	first := min(n, size-h)
	copy(r.buf[h:], p[:first])
	copy(r.buf, p[first:n])
	r.head.Store(uint32((h + n) % size))
	return n
}

// Read copies up to min(len(p), Available()) bytes out of the buffer
// in at most two block copies and returns the number of bytes read.
func (r *RingBuffer) Read(p []byte) int {
	n := min(len(p), r.Available())
	if n == 0 {
		return 0
	}
	size := len(r.buf)
	t := int(r.tail.Load())
	first := min(n, size-t)
	copy(p[:first], r.buf[t:])
	copy(p[first:n], r.buf)
	r.tail.Store(uint32((t + n) % size))
	return n
}

// WriteWait waits until the buffer has room for all of p, then writes
// it in one shot. If timeout elapses first it falls back to a
// non-blocking Write of whatever currently fits, possibly nothing.
// A negative timeout waits forever.
func (r *RingBuffer) WriteWait(p []byte, timeout time.Duration) int {
	r.wait(timeout, func() bool { return r.Free() >= len(p) })
	return r.Write(p)
}

// ReadWait waits until all len(p) bytes are buffered, then reads them
// in one shot. If timeout elapses first it falls back to a
// non-blocking Read of whatever is currently available, possibly
// nothing. A negative timeout waits forever.
func (r *RingBuffer) ReadWait(p []byte, timeout time.Duration) int {
	r.wait(timeout, func() bool { return r.Available() >= len(p) })
	return r.Read(p)
}

func (r *RingBuffer) wait(timeout time.Duration, ready func() bool) bool {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for !ready() {
		if timeout >= 0 && !time.Now().Before(deadline) {
			return false
		}
		if y := r.Yield; y != nil {
			y()
		} else {
			time.Sleep(pollInterval)
		}
	}
	return true
}
