package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/espnow.go/pkg/espnow"
	"github.com/robotalks/espnow.go/pkg/espnow/mqtt"
	"github.com/robotalks/espnow.go/pkg/espnow/wsock"
	"github.com/robotalks/espnow.go/pkg/framework"
)

var configFile = ""

func init() {
	if val := os.Getenv("ESPNOW_BRIDGE_CONF"); val != "" {
		configFile = val
	}
	flag.StringVar(&configFile, "config", configFile, "Bridge configuration file.")
}

// relay re-broadcasts datagrams from one link onto the other. The
// source address is rewritten to the bridge's own, like a repeater.
func relay(ctx context.Context, from, to *espnow.Transport) error {
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		default:
		}
		peer, msg, err := from.Recv(time.Second)
		if errors.Is(err, espnow.ErrTimeout) {
			continue
		}
		if errors.Is(err, espnow.ErrClosed) {
			return nil
		}
		if err != nil {
			return err
		}
		glog.V(2).Infof("relay %d bytes from %s", len(msg), peer)
		if _, err = to.Send(&espnow.Broadcast, msg, false); err != nil &&
			!errors.Is(err, espnow.ErrClosed) {
			return err
		}
	}
}

func main() {
	flag.Parse()

	conf, err := LoadConfig(configFile)
	if err != nil {
		glog.Exit(err)
	}
	addr, err := conf.NodeAddr()
	if err != nil {
		glog.Exit(err)
	}
	glog.Infof("bridge address %s", addr)

	hubDrv, err := wsock.Dial(conf.Hub.URL, addr)
	if err != nil {
		glog.Exit(err)
	}
	hub, err := espnow.New(hubDrv, espnow.Config{})
	if err != nil {
		glog.Exit(err)
	}
	mqttDrv, err := mqtt.NewDriver(conf.MQTT.URL, addr)
	if err != nil {
		glog.Exit(err)
	}
	broker, err := espnow.New(mqttDrv, espnow.Config{})
	if err != nil {
		glog.Exit(err)
	}

	err = framework.NewRunner().HandleSignals().
		Go(framework.NamedRun("hub-to-mqtt", framework.RunnableFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, hub, func() error {
				return relay(ctx, hub, broker)
			})
		}))).
		Go(framework.NamedRun("mqtt-to-hub", framework.RunnableFunc(func(ctx context.Context) error {
			return framework.RunWithContextCloser(ctx, broker, func() error {
				return relay(ctx, broker, hub)
			})
		}))).
		Wait()
	if err != nil {
		glog.Exit(err)
	}
}
