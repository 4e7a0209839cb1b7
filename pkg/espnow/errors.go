package espnow

import "errors"

var (
	// ErrNoPacket indicates no complete packet header is buffered yet.
	ErrNoPacket = errors.New("no packet")
	// ErrTimeout indicates a receive wait elapsed before a packet
	// arrived. This is the normal idle case, not a failure.
	ErrTimeout = errors.New("receive timeout")
	// ErrOverflow indicates a packet was dropped because the receive
	// buffer could not hold it.
	ErrOverflow = errors.New("receive buffer overflow")
	// ErrCorrupt indicates the buffered byte stream is
	// desynchronized. The buffer contents cannot be trusted anymore
	// and must be dropped wholesale.
	ErrCorrupt = errors.New("corrupt packet stream")
	// ErrShortBuffer indicates the destination buffer cannot hold the
	// next payload. Nothing is consumed.
	ErrShortBuffer = errors.New("buffer too small for packet")
	// ErrMessageLength indicates a payload over MaxDataLen.
	ErrMessageLength = errors.New("message too long")
	// ErrAddrFormat indicates a malformed or wrong-length peer address.
	ErrAddrFormat = errors.New("bad peer address")
	// ErrDriverBusy is returned by a Driver when its internal
	// transmit buffers are full. Send retries it with backoff.
	ErrDriverBusy = errors.New("driver busy")
	// ErrSyncTimeout indicates pending send responses did not drain
	// within SendTimeout.
	ErrSyncTimeout = errors.New("send timeout on sync")
	// ErrNoPeers indicates a send-to-all with no registered peers.
	ErrNoPeers = errors.New("no registered peers")
	// ErrClosed indicates the transport has been closed.
	ErrClosed = errors.New("transport closed")
)
