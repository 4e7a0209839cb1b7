package espnow

import "sync"

// peerSet is the registry of known peers. Registration order is kept
// so send-to-all fans out deterministically.
type peerSet struct {
	lock  sync.RWMutex
	addrs []Addr
}

func (p *peerSet) add(addr Addr) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, a := range p.addrs {
		if a == addr {
			return false
		}
	}
	p.addrs = append(p.addrs, addr)
	return true
}

func (p *peerSet) del(addr Addr) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	for i, a := range p.addrs {
		if a == addr {
			p.addrs = append(p.addrs[:i], p.addrs[i+1:]...)
			return true
		}
	}
	return false
}

func (p *peerSet) has(addr Addr) bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	for _, a := range p.addrs {
		if a == addr {
			return true
		}
	}
	return false
}

// list returns registered peers, optionally without the broadcast
// entry.
func (p *peerSet) list(skipBroadcast bool) []Addr {
	p.lock.RLock()
	defer p.lock.RUnlock()
	addrs := make([]Addr, 0, len(p.addrs))
	for _, a := range p.addrs {
		if skipBroadcast && a.IsBroadcast() {
			continue
		}
		addrs = append(addrs, a)
	}
	return addrs
}

// AddPeer registers a peer address. Registering the broadcast
// address enables broadcasting but never counts toward send-to-all.
func (t *Transport) AddPeer(addr Addr) {
	t.peers.add(addr)
}

// DelPeer unregisters a peer address.
func (t *Transport) DelPeer(addr Addr) {
	t.peers.del(addr)
}

// HasPeer checks if a peer address is registered.
func (t *Transport) HasPeer(addr Addr) bool {
	return t.peers.has(addr)
}

// Peers returns all registered peer addresses.
func (t *Transport) Peers() []Addr {
	return t.peers.list(false)
}

// PeerCount returns the number of registered peers, excluding the
// broadcast address.
func (t *Transport) PeerCount() int {
	return len(t.peers.list(true))
}
