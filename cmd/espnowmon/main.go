package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/espnow.go/pkg/espnow"
	"github.com/robotalks/espnow.go/pkg/espnow/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/espnow/"
)

func init() {
	if val := os.Getenv("ESPNOW_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = q.Connect(); err != nil {
		log.Fatalln(err)
	}

	err = q.Sub("#", mqtt.Handler(func(topic string, payload []byte) {
		dst, err := espnow.ParseAddr(topic)
		if err != nil {
			log.Printf("%s: not a datagram topic", topic)
			return
		}
		src, data, ok := mqtt.DecodeFrame(payload)
		if !ok {
			log.Printf("%s: bad datagram (%d bytes)", topic, len(payload))
			return
		}
		label := dst.String()
		if dst.IsBroadcast() {
			label = "broadcast"
		}
		log.Printf("%s -> %s: %q", src, label, data)
	}))
	if err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
