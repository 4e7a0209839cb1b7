package espnow

// Buffered packet format:
//
//	byte     magic    (= Magic)
//	byte     length   (0..=MaxDataLen)
//	byte[6]  peer
//	byte[n]  payload
const (
	// Magic is the sentinel byte opening every buffered frame.
	Magic byte = 0x99
	// MaxDataLen is the maximum payload length of a datagram.
	MaxDataLen = 250

	hdrLen = 2

	// MaxFrameLen is the buffered size of a full-length frame.
	MaxFrameLen = hdrLen + AddrLen + MaxDataLen

	// DefaultBufferSize holds two full-length frames.
	DefaultBufferSize = 2 * MaxFrameLen
)

// checkHeader validates a peeked 2-byte header and extracts the
// payload length. A bad magic or oversize length means the byte
// stream itself is broken: scanning for a 1-byte magic cannot
// reliably resynchronize, so this is fatal for the whole buffer.
func checkHeader(hdr uint16) (int, error) {
	if byte(hdr>>8) != Magic || byte(hdr) > MaxDataLen {
		return 0, ErrCorrupt
	}
	return int(byte(hdr)), nil
}
