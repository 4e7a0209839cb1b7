package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/espnow/wsock"
	"github.com/robotalks/espnow.go/pkg/framework"
)

var listenAddr = ":6053"

func init() {
	if val := os.Getenv("ESPNOW_HUB_LISTEN"); val != "" {
		listenAddr = val
	}
	flag.StringVar(&listenAddr, "listen", listenAddr, "Listening address of the hub.")
}

func main() {
	flag.Parse()

	hub := wsock.NewHub()
	server := &http.Server{Addr: listenAddr, Handler: hub.Handler()}
	err := framework.NewRunner().HandleSignals().
		Go(framework.NamedRun("hub", framework.RunnableFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, server, func() error {
				glog.Infof("hub listening on %s", listenAddr)
				if err := server.ListenAndServe(); err != http.ErrServerClosed {
					return err
				}
				return nil
			})
		}))).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
