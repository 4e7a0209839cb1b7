// Package env derives node identity from the host environment.
package env

import (
	"crypto/sha256"

	"github.com/denisbrodbeck/machineid"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

// LocalAddr derives a stable unicast address for this host from the
// machine identity. The locally-administered bit is set and the
// multicast bit cleared so the result never collides with real
// vendor-assigned hardware addresses.
func LocalAddr() espnow.Addr {
	id, err := machineid.ProtectedID("espnow.go")
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256([]byte(id))
	var a espnow.Addr
	copy(a[:], sum[:espnow.AddrLen])
	a[0] = a[0]&^0x01 | 0x02
	return a
}
