package wsock

import (
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

// Driver implements espnow.Driver over a Hub connection.
type Driver struct {
	addr espnow.Addr
	ws   *websocket.Conn

	writeLock sync.Mutex
	handler   espnow.Handler
	closed    atomic.Bool
}

// Dial connects to a Hub. hubURL uses the ws or wss scheme; the
// local address is announced in the addr query parameter.
func Dial(hubURL string, addr espnow.Addr) (*Driver, error) {
	u, err := url.Parse(hubURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("addr", addr.Hex())
	u.RawQuery = q.Encode()
	ws, err := websocket.Dial(u.String(), "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return &Driver{addr: addr, ws: ws}, nil
}

// Attach implements espnow.Driver and starts the read loop.
func (d *Driver) Attach(h espnow.Handler) error {
	if d.closed.Load() {
		return espnow.ErrClosed
	}
	d.handler = h
	go d.readLoop()
	return nil
}

// Send implements espnow.Driver. The delivery status arrives
// asynchronously as an ack frame from the hub.
func (d *Driver) Send(peer espnow.Addr, data []byte) error {
	if len(data) > espnow.MaxDataLen {
		return espnow.ErrMessageLength
	}
	if d.closed.Load() {
		return espnow.ErrClosed
	}
	d.writeLock.Lock()
	defer d.writeLock.Unlock()
	return websocket.Message.Send(d.ws, encodeData(peer, d.addr, data))
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
	return d.ws.Close()
}

func (d *Driver) readLoop() {
	for {
		var f []byte
		if err := websocket.Message.Receive(d.ws, &f); err != nil {
			if !d.closed.Load() {
				glog.Warningf("wsock: %s hub link lost: %v", d.addr, err)
			}
			return
		}
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case frameData:
			dst, src, payload, ok := decodeData(f)
			if ok && (dst == d.addr || dst.IsBroadcast()) {
				d.handler.HandleReceive(src, payload)
			}
		case frameAck:
			if peer, delivered, ok := decodeAck(f); ok {
				d.handler.HandleSendStatus(peer, delivered)
			}
		}
	}
}
