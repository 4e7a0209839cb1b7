package wsock

import (
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/espnow.go/pkg/espnow"
)

// Hub switches data frames between connected nodes and answers each
// with an ack frame carrying the delivery outcome, mirroring the
// per-peer acknowledgement of the radio link.
type Hub struct {
	lock  sync.Mutex
	conns map[espnow.Addr]*hubConn
}

type hubConn struct {
	ws   *websocket.Conn
	lock sync.Mutex // serializes writes
}

func (c *hubConn) send(f []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return websocket.Message.Send(c.ws, f)
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[espnow.Addr]*hubConn)}
}

// Handler returns the http.Handler accepting node connections. A
// node identifies itself with the addr query parameter.
func (h *Hub) Handler() http.Handler {
	return websocket.Handler(h.serve)
}

func (h *Hub) serve(ws *websocket.Conn) {
	addr, err := espnow.ParseAddr(ws.Request().URL.Query().Get("addr"))
	if err != nil || addr.IsBroadcast() || addr.IsZero() {
		glog.Warningf("hub: rejected connection with addr %q", ws.Request().URL.Query().Get("addr"))
		ws.Close()
		return
	}
	conn := &hubConn{ws: ws}
	h.lock.Lock()
	old := h.conns[addr]
	h.conns[addr] = conn
	h.lock.Unlock()
	if old != nil {
		old.ws.Close()
	}
	glog.Infof("hub: %s joined", addr)
	defer func() {
		h.lock.Lock()
		if h.conns[addr] == conn {
			delete(h.conns, addr)
		}
		h.lock.Unlock()
		glog.Infof("hub: %s left", addr)
	}()

	for {
		var f []byte
		if err := websocket.Message.Receive(ws, &f); err != nil {
			return
		}
		dst, src, _, ok := decodeData(f)
		if !ok || src != addr {
			glog.V(1).Infof("hub: dropping malformed frame from %s", addr)
			continue
		}
		conn.send(encodeAck(dst, h.forward(dst, addr, f)))
	}
}

// forward routes one data frame and reports unicast delivery.
// Broadcast always reports success, as the radio link does.
func (h *Hub) forward(dst, src espnow.Addr, f []byte) bool {
	if dst.IsBroadcast() {
		h.lock.Lock()
		conns := make([]*hubConn, 0, len(h.conns))
		for addr, c := range h.conns {
			if addr != src {
				conns = append(conns, c)
			}
		}
		h.lock.Unlock()
		for _, c := range conns {
			c.send(f)
		}
		return true
	}
	h.lock.Lock()
	c := h.conns[dst]
	h.lock.Unlock()
	return c != nil && c.send(f) == nil
}
