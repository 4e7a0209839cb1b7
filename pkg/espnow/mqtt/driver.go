package mqtt

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

// ErrConnectTimeout indicates the broker did not answer in time.
var ErrConnectTimeout = errors.New("mqtt connect timeout")

// ackTimeout bounds the wait for broker confirmation of a publish.
const ackTimeout = 2 * time.Second

// Driver implements espnow.Driver over MQTT topics. Every node owns
// the topic <prefix><addr-hex>; datagrams to it carry the sender in
// the first 6 payload bytes. Broker confirmation of a publish stands
// in for the link-level acknowledgement.
type Driver struct {
	queue   *Queue
	addr    espnow.Addr
	handler espnow.Handler
	closed  atomic.Bool
}

// NewDriver creates a Driver for the broker URL. The connection is
// made on Attach.
func NewDriver(brokerURL string, addr espnow.Addr) (*Driver, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if opts.ClientID == "" {
		opts.SetClientID("espnow-" + addr.Hex())
	}
	return &Driver{queue: NewQueue(opts, topicPrefix), addr: addr}, nil
}

// Queue exposes the underlying Queue for tools sharing the
// connection.
func (d *Driver) Queue() *Queue {
	return d.queue
}

// Attach implements espnow.Driver: connect and subscribe the node's
// own topic plus the broadcast topic.
func (d *Driver) Attach(h espnow.Handler) error {
	d.handler = h
	if err := d.queue.Connect(); err != nil {
		return err
	}
	recv := func(topic string, payload []byte) {
		src, data, ok := DecodeFrame(payload)
		if !ok || src == d.addr {
			return // malformed, or our own broadcast echoed back
		}
		h.HandleReceive(src, data)
	}
	if err := d.queue.Sub(d.addr.Hex(), recv); err != nil {
		return err
	}
	return d.queue.Sub(espnow.Broadcast.Hex(), recv)
}

// Send implements espnow.Driver. The delivery status is reported
// once the broker confirms (or fails) the publish.
func (d *Driver) Send(peer espnow.Addr, data []byte) error {
	if len(data) > espnow.MaxDataLen {
		return espnow.ErrMessageLength
	}
	if d.closed.Load() {
		return espnow.ErrClosed
	}
	token := d.queue.Pub(peer.Hex(), EncodeFrame(d.addr, data))
	go func() {
		ok := token.WaitTimeout(ackTimeout) && token.Error() == nil
		d.handler.HandleSendStatus(peer, ok)
	}()
	return nil
}

// LocalAddr implements espnow.Driver.
func (d *Driver) LocalAddr() espnow.Addr {
	return d.addr
}

// Close implements espnow.Driver.
func (d *Driver) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	return d.queue.Close()
}

// EncodeFrame prepends the sender address to the payload.
func EncodeFrame(src espnow.Addr, data []byte) []byte {
	f := make([]byte, espnow.AddrLen+len(data))
	copy(f, src[:])
	copy(f[espnow.AddrLen:], data)
	return f
}

// DecodeFrame splits a datagram payload into sender and data.
func DecodeFrame(f []byte) (src espnow.Addr, data []byte, ok bool) {
	if len(f) < espnow.AddrLen || len(f) > espnow.AddrLen+espnow.MaxDataLen {
		return
	}
	copy(src[:], f)
	return src, f[espnow.AddrLen:], true
}
