// Package sim provides an in-memory radio bus so multiple ESP-NOW
// nodes can run and be tested inside one process.
package sim

import (
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

// queueDepth is the per-port in-flight frame limit. A full queue
// behaves like a busy receiver: the frame is lost in the air.
const queueDepth = 64

// Bus connects simulated radio ports. Frames sent on one port are
// delivered to the destination port's handler from a dedicated
// delivery goroutine, standing in for the interrupt context of real
// hardware.
type Bus struct {
	// Drop, if set, is consulted per unicast frame; returning true
	// loses the frame in flight.
	Drop func(src, dst espnow.Addr) bool

	lock  sync.Mutex
	ports map[espnow.Addr]*Port
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{ports: make(map[espnow.Addr]*Port)}
}

// Port returns the port with the given address, creating it if
// needed. The result implements espnow.Driver.
func (b *Bus) Port(addr espnow.Addr) *Port {
	b.lock.Lock()
	defer b.lock.Unlock()
	p := b.ports[addr]
	if p == nil {
		p = &Port{
			bus:   b,
			addr:  addr,
			queue: make(chan frame, queueDepth),
			done:  make(chan struct{}),
		}
		b.ports[addr] = p
	}
	return p
}

func (b *Bus) port(addr espnow.Addr) *Port {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.ports[addr]
}

func (b *Bus) others(except espnow.Addr) []*Port {
	b.lock.Lock()
	defer b.lock.Unlock()
	ports := make([]*Port, 0, len(b.ports))
	for addr, p := range b.ports {
		if addr != except {
			ports = append(ports, p)
		}
	}
	return ports
}

func (b *Bus) remove(addr espnow.Addr) {
	b.lock.Lock()
	defer b.lock.Unlock()
	delete(b.ports, addr)
}

type frame struct {
	src  espnow.Addr
	data []byte
}

// Port is one radio endpoint on a Bus. It implements espnow.Driver.
type Port struct {
	bus   *Bus
	addr  espnow.Addr
	queue chan frame
	done  chan struct{}

	lock    sync.Mutex
	handler espnow.Handler
	closed  bool
}

// Attach implements espnow.Driver and starts the delivery goroutine.
func (p *Port) Attach(h espnow.Handler) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return espnow.ErrClosed
	}
	start := p.handler == nil
	p.handler = h
	if start {
		go p.pump()
	}
	return nil
}

// LocalAddr implements espnow.Driver.
func (p *Port) LocalAddr() espnow.Addr {
	return p.addr
}

// Send implements espnow.Driver. Unicast frames are acknowledged
// with the actual delivery outcome; broadcast frames reach every
// other attached port and always report success, as the real link
// layer does for unacknowledged broadcasts.
func (p *Port) Send(peer espnow.Addr, data []byte) error {
	if len(data) > espnow.MaxDataLen {
		return espnow.ErrMessageLength
	}
	f := frame{src: p.addr, data: append([]byte(nil), data...)}
	if peer.IsBroadcast() {
		for _, dst := range p.bus.others(p.addr) {
			dst.enqueue(f)
		}
		p.ack(peer, true)
		return nil
	}
	delivered := false
	if dst := p.bus.port(peer); dst != nil {
		if drop := p.bus.Drop; drop == nil || !drop(p.addr, peer) {
			delivered = dst.enqueue(f)
		}
	}
	p.ack(peer, delivered)
	return nil
}

// Close implements espnow.Driver and takes the port off the bus.
func (p *Port) Close() error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	p.bus.remove(p.addr)
	return nil
}

func (p *Port) enqueue(f frame) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.closed || p.handler == nil {
		return false
	}
	select {
	case p.queue <- f:
		return true
	default:
		glog.V(2).Infof("sim: %s receiver busy, frame from %s lost", p.addr, f.src)
		return false
	}
}

func (p *Port) ack(peer espnow.Addr, delivered bool) {
	p.lock.Lock()
	h := p.handler
	p.lock.Unlock()
	if h != nil {
		h.HandleSendStatus(peer, delivered)
	}
}

func (p *Port) pump() {
	for {
		select {
		case f := <-p.queue:
			p.lock.Lock()
			h := p.handler
			p.lock.Unlock()
			h.HandleReceive(f.src, f.data)
		case <-p.done:
			return
		}
	}
}
