package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/espnow"
	"github.com/robotalks/espnow.go/pkg/espnow/env"
)

var (
	hubURL   = "ws://localhost:6053"
	nodeAddr = ""
	evalOnly bool
)

func init() {
	if val := os.Getenv("ESPNOW_HUB_URL"); val != "" {
		hubURL = val
	}
	flag.StringVar(&hubURL, "hub", hubURL, "Websocket hub URL.")
	flag.StringVar(&nodeAddr, "addr", nodeAddr, "Node address, derived from machine identity if unset.")
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluate arguments only, no interactive shell.")
}

func main() {
	flag.Parse()

	addr := env.LocalAddr()
	if nodeAddr != "" {
		var err error
		if addr, err = espnow.ParseAddr(nodeAddr); err != nil {
			glog.Exit(err)
		}
	}

	s := NewShell(hubURL, addr)
	defer func() {
		if s.Conn != nil {
			s.Conn.Close()
		}
	}()
	if evalOnly || len(flag.Args()) > 0 {
		if err := s.Shell.Process(flag.Args()...); err != nil {
			glog.Exit(err)
		}
		return
	}
	s.Shell.Println("espnowcli as", addr.String())
	s.Shell.Run()
}
