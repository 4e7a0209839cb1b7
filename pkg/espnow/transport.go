package espnow

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
)

const (
	// DefaultRecvTimeout is the default wait for incoming packets.
	DefaultRecvTimeout = 5 * time.Minute
	// DefaultSendTimeout bounds waits for send responses and retries
	// on a busy driver.
	DefaultSendTimeout = 2 * time.Second

	// busyWait is the per-iteration sleep while polling for send
	// responses or retrying a busy driver.
	busyWait = 25 * time.Millisecond
)

// Config carries transport construction options. The zero value
// selects all defaults.
type Config struct {
	// BufferSize is the usable receive buffer capacity in bytes.
	// Default is DefaultBufferSize (two full-length frames).
	BufferSize int
	// RecvTimeout is the default wait in Recv/RecvInto. A negative
	// value waits forever. Default is DefaultRecvTimeout.
	RecvTimeout time.Duration
	// SendTimeout bounds the response drain of synchronous sends and
	// retries on ErrDriverBusy. Default is DefaultSendTimeout.
	SendTimeout time.Duration
	// OnReceive, if set, is notified after each packet is buffered.
	// It runs in the driver's delivery context and must not block.
	OnReceive func()
}

// Stats is the counter snapshot returned by Transport.Stats.
type Stats struct {
	TxPackets   uint32 // datagrams handed to the driver
	TxResponses uint32 // per-peer delivery responses received
	TxFailures  uint32 // responses reporting non-delivery
	RxPackets   uint32 // datagrams buffered for the application
	RxDropped   uint32 // datagrams dropped on receive buffer overflow
}

// Transport frames datagrams between a link Driver and the
// application. Create instances with New; each instance owns its
// receive buffer and counters, so independent transports can coexist
// in one process.
type Transport struct {
	conf   Config
	driver Driver
	buf    *PacketBuffer
	peers  peerSet
	closed atomic.Bool

	// Counters are increment-only and read without coordination:
	// readers tolerate staleness, mirroring the original callback
	// contract.
	txPackets   atomic.Uint32
	txResponses atomic.Uint32
	txFailures  atomic.Uint32
	rxPackets   atomic.Uint32
}

// New creates a Transport over driver and attaches to it.
func New(driver Driver, conf Config) (*Transport, error) {
	if conf.BufferSize == 0 {
		conf.BufferSize = DefaultBufferSize
	}
	if conf.RecvTimeout == 0 {
		conf.RecvTimeout = DefaultRecvTimeout
	}
	if conf.SendTimeout == 0 {
		conf.SendTimeout = DefaultSendTimeout
	}
	buf, err := NewPacketBuffer(conf.BufferSize)
	if err != nil {
		return nil, err
	}
	t := &Transport{conf: conf, driver: driver, buf: buf}
	if err := driver.Attach(transportHandler{t}); err != nil {
		return nil, err
	}
	glog.V(1).Infof("espnow: %s attached, rxbuf=%d", driver.LocalAddr(), conf.BufferSize)
	return t, nil
}

// transportHandler adapts driver events onto the transport without
// exposing Handler methods on the public API.
type transportHandler struct {
	t *Transport
}

func (h transportHandler) HandleReceive(peer Addr, data []byte) {
	if err := h.t.buf.PutPacket(peer, data); err != nil {
		return // overflow is counted by the buffer
	}
	h.t.rxPackets.Add(1)
	if cb := h.t.conf.OnReceive; cb != nil {
		cb()
	}
}

func (h transportHandler) HandleSendStatus(peer Addr, delivered bool) {
	h.t.txResponses.Add(1)
	if !delivered {
		h.t.txFailures.Add(1)
	}
}

// LocalAddr returns the driver's local address.
func (t *Transport) LocalAddr() Addr {
	return t.driver.LocalAddr()
}

// Close detaches from the driver. Responses that will never arrive
// are written off so Writable does not stay false forever.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := t.driver.Close()
	t.txPackets.Store(t.txResponses.Load())
	glog.V(1).Infof("espnow: %s detached", t.driver.LocalAddr())
	return err
}

// waitPendingResponses polls until every handed-off datagram got its
// delivery response. The send timeout is only a fallback: in normal
// operation the driver responds once per send.
func (t *Transport) waitPendingResponses() error {
	start := time.Now()
	for t.txResponses.Load() < t.txPackets.Load() &&
		time.Since(start) <= t.conf.SendTimeout {
		time.Sleep(busyWait)
	}
	if t.txResponses.Load() < t.txPackets.Load() {
		return ErrSyncTimeout
	}
	return nil
}

// rawSend retries a busy driver within the send timeout window.
func (t *Transport) rawSend(peer Addr, msg []byte) error {
	start := time.Now()
	for {
		err := t.driver.Send(peer, msg)
		if !errors.Is(err, ErrDriverBusy) || time.Since(start) > t.conf.SendTimeout {
			return err
		}
		time.Sleep(busyWait)
	}
}

// Send transmits msg to peer, or to every registered non-broadcast
// peer when peer is nil.
//
// With sync true, Send first drains responses still pending from
// earlier asynchronous sends, transmits, then waits for this send's
// own responses; the result reports whether every expected peer
// acknowledged delivery. With sync false the result is always true
// once the datagram is handed to the driver.
func (t *Transport) Send(peer *Addr, msg []byte, sync bool) (bool, error) {
	if t.closed.Load() {
		return false, ErrClosed
	}
	if len(msg) > MaxDataLen {
		return false, ErrMessageLength
	}
	if sync {
		// Flush responses of previous async sends so their failures
		// don't bleed into this send's window.
		if err := t.waitPendingResponses(); err != nil {
			return false, err
		}
	}
	saved := t.txFailures.Load()

	targets := []Addr{}
	if peer != nil {
		targets = append(targets, *peer)
	} else if targets = t.peers.list(true); len(targets) == 0 {
		return false, ErrNoPeers
	}
	for _, dst := range targets {
		if err := t.rawSend(dst, msg); err != nil {
			return false, err
		}
		t.txPackets.Add(1)
	}

	if sync {
		if err := t.waitPendingResponses(); err != nil {
			return false, err
		}
		return t.txFailures.Load() == saved, nil
	}
	return true, nil
}

// Recv waits for the next packet and returns the sending peer and a
// copy of the payload. A negative timeout selects the configured
// RecvTimeout. Timing out returns ErrTimeout, the normal idle case.
func (t *Transport) Recv(timeout time.Duration) (Addr, []byte, error) {
	var scratch [MaxDataLen]byte
	peer, n, err := t.RecvInto(scratch[:], timeout)
	if err != nil {
		return peer, nil, err
	}
	msg := make([]byte, n)
	copy(msg, scratch[:n])
	return peer, msg, nil
}

// RecvInto is the allocation-free variant of Recv: the payload is
// copied into msg and its length returned. msg must hold MaxDataLen
// bytes unless the caller knows the expected payload size.
//
// On ErrCorrupt the receive buffer is unconditionally reset: framing
// desynchronization cannot be recovered locally, so all buffered
// packets are dropped.
func (t *Transport) RecvInto(msg []byte, timeout time.Duration) (Addr, int, error) {
	if t.closed.Load() {
		return Addr{}, 0, ErrClosed
	}
	if timeout < 0 {
		timeout = t.conf.RecvTimeout
	}
	peer, n, err := t.buf.GetPacket(msg, timeout)
	if err == ErrCorrupt {
		glog.Errorf("espnow: corrupt receive buffer, dropping %d bytes", t.buf.ring.Available())
		t.buf.Reset()
	}
	return peer, n, err
}

// Readable checks if a received packet is waiting. Readiness query
// for event-loop integration.
func (t *Transport) Readable() bool {
	return t.buf.Readable()
}

// Writable checks if all sent datagrams have been responded to,
// i.e. a synchronous send would not wait on earlier traffic.
func (t *Transport) Writable() bool {
	return t.txResponses.Load() >= t.txPackets.Load()
}

// Stats returns a snapshot of the transport counters.
func (t *Transport) Stats() Stats {
	return Stats{
		TxPackets:   t.txPackets.Load(),
		TxResponses: t.txResponses.Load(),
		TxFailures:  t.txFailures.Load(),
		RxPackets:   t.rxPackets.Load(),
		RxDropped:   t.buf.Dropped(),
	}
}
