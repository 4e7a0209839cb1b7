package espnow

import (
	"encoding/hex"
	"strings"
)

// AddrLen is the length of a peer address in bytes.
const AddrLen = 6

// Addr is the link-layer address of a peer.
type Addr [AddrLen]byte

// Broadcast is the address reaching all peers in range.
var Broadcast = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// String formats the address in the usual colon-separated form.
func (a Addr) String() string {
	var w strings.Builder
	for i, b := range a {
		if i > 0 {
			w.WriteByte(':')
		}
		w.WriteString(hex.EncodeToString([]byte{b}))
	}
	return w.String()
}

// Hex formats the address as 12 hex digits with no separators,
// suitable for topic names and URLs.
func (a Addr) Hex() string {
	return hex.EncodeToString(a[:])
}

// IsBroadcast checks if it's the broadcast address.
func (a Addr) IsBroadcast() bool {
	return a == Broadcast
}

// IsZero checks if the address is all-zero (unset).
func (a Addr) IsZero() bool {
	return a == Addr{}
}

// ParseAddr parses an address in colon/dash-separated or plain hex
// form.
func ParseAddr(s string) (Addr, error) {
	s = strings.ReplaceAll(strings.ReplaceAll(s, ":", ""), "-", "")
	var a Addr
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != AddrLen {
		return a, ErrAddrFormat
	}
	copy(a[:], b)
	return a, nil
}

// AddrOf copies a raw 6-byte address.
func AddrOf(b []byte) (Addr, error) {
	var a Addr
	if len(b) != AddrLen {
		return a, ErrAddrFormat
	}
	copy(a[:], b)
	return a, nil
}
