package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell/v2"

	"github.com/robotalks/espnow.go/pkg/espnow"
	"github.com/robotalks/espnow.go/pkg/espnow/wsock"
)

// Shell provides the ishell backed interactive shell.
type Shell struct {
	HubURL string
	Addr   espnow.Addr

	Shell *ishell.Shell
	Conn  *espnow.Transport
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// NewShell creates a shell with all commands registered.
func NewShell(hubURL string, addr espnow.Addr) *Shell {
	s := &Shell{
		HubURL: hubURL,
		Addr:   addr,
		Shell:  ishell.New(),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range []*ishell.Cmd{
		&connectCmd, &disconnectCmd,
		&addPeerCmd, &delPeerCmd, &peersCmd,
		&sendCmd, &recvCmd, &pollCmd, &statsCmd,
	} {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// shellFrom gets Shell from ishell context.
func shellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// mustBeConnected wraps a command func requiring a connection.
func mustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if shellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

var connectCmd = ishell.Cmd{
	Name: "connect",
	Help: "connect [HUB-URL]",
	Func: func(c *ishell.Context) {
		s := shellFrom(c)
		if s.Conn != nil {
			c.Err(fmt.Errorf("already connected"))
			return
		}
		hubURL := s.HubURL
		if len(c.Args) > 0 {
			hubURL = c.Args[0]
		}
		drv, err := wsock.Dial(hubURL, s.Addr)
		if err != nil {
			c.Err(err)
			return
		}
		conn, err := espnow.New(drv, espnow.Config{})
		if err != nil {
			drv.Close()
			c.Err(err)
			return
		}
		s.Conn = conn
		s.Shell.SetPrompt("[" + s.Addr.String() + "] > ")
	},
}

var disconnectCmd = ishell.Cmd{
	Name: "disconnect",
	Help: "disconnect from the hub",
	Func: mustBeConnected(func(c *ishell.Context) {
		s := shellFrom(c)
		if err := s.Conn.Close(); err != nil {
			c.Err(err)
		}
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}),
}

var addPeerCmd = ishell.Cmd{
	Name: "addpeer",
	Help: "addpeer ADDR",
	Func: mustBeConnected(func(c *ishell.Context) {
		peer, err := peerArg(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		shellFrom(c).Conn.AddPeer(peer)
	}),
}

var delPeerCmd = ishell.Cmd{
	Name: "delpeer",
	Help: "delpeer ADDR",
	Func: mustBeConnected(func(c *ishell.Context) {
		peer, err := peerArg(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		shellFrom(c).Conn.DelPeer(peer)
	}),
}

var peersCmd = ishell.Cmd{
	Name: "peers",
	Help: "list registered peers",
	Func: mustBeConnected(func(c *ishell.Context) {
		for _, peer := range shellFrom(c).Conn.Peers() {
			c.Println(peer.String())
		}
	}),
}

var sendCmd = ishell.Cmd{
	Name: "send",
	Help: "send [-sync] ADDR|all TEXT...",
	Func: mustBeConnected(func(c *ishell.Context) {
		args := c.Args
		var sync bool
		if len(args) > 0 && args[0] == "-sync" {
			sync = true
			args = args[1:]
		}
		if len(args) < 2 {
			c.Err(fmt.Errorf("usage: send [-sync] ADDR|all TEXT..."))
			return
		}
		var peer *espnow.Addr
		if args[0] != "all" {
			addr, err := espnow.ParseAddr(args[0])
			if err != nil {
				c.Err(err)
				return
			}
			peer = &addr
		}
		msg := []byte(strings.Join(args[1:], " "))
		ok, err := shellFrom(c).Conn.Send(peer, msg, sync)
		if err != nil {
			c.Err(err)
			return
		}
		if sync && !ok {
			c.Println("not delivered")
		}
	}),
}

var recvCmd = ishell.Cmd{
	Name: "recv",
	Help: "recv [TIMEOUT], e.g. recv 3s",
	Func: mustBeConnected(func(c *ishell.Context) {
		timeout := 5 * time.Second
		if len(c.Args) > 0 {
			d, err := time.ParseDuration(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			timeout = d
		}
		peer, msg, err := shellFrom(c).Conn.Recv(timeout)
		if err != nil {
			c.Err(err)
			return
		}
		c.Printf("%s: %q\n", peer, msg)
	}),
}

var pollCmd = ishell.Cmd{
	Name: "poll",
	Help: "show readable/writable state",
	Func: mustBeConnected(func(c *ishell.Context) {
		conn := shellFrom(c).Conn
		c.Printf("readable %v\n", conn.Readable())
		c.Printf("writable %v\n", conn.Writable())
	}),
}

var statsCmd = ishell.Cmd{
	Name: "stats",
	Help: "show transport counters",
	Func: mustBeConnected(func(c *ishell.Context) {
		st := shellFrom(c).Conn.Stats()
		c.Printf("tx_packets   %d\n", st.TxPackets)
		c.Printf("tx_responses %d\n", st.TxResponses)
		c.Printf("tx_failures  %d\n", st.TxFailures)
		c.Printf("rx_packets   %d\n", st.RxPackets)
		c.Printf("rx_dropped   %d\n", st.RxDropped)
	}),
}

func peerArg(args []string) (espnow.Addr, error) {
	if len(args) != 1 {
		return espnow.Addr{}, fmt.Errorf("exactly one ADDR expected")
	}
	return espnow.ParseAddr(args[0])
}
