package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/minut.go/pkg/frames"
	"github.com/robotalks/minut.go/pkg/link/mqtt"
	"github.com/robotalks/minut.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/minut/"
	node    = "+"
)

func init() {
	if val := os.Getenv("MINUT_TELEMETRY_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&node, "node", node, "Node ID to watch, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err := q.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	q.Sub(telemetry.Topic(node, "+"), func(topic string, payload []byte) {
		r, err := telemetry.Decode(payload)
		if err != nil {
			log.Printf("%s: bad record: %v", topic, err)
			return
		}
		switch {
		case r.Frame != nil:
			dir := "RX"
			if r.Frame.Transmit {
				dir = "TX"
			}
			fr := r.Frame.Frame()
			log.Printf("%s t=%d %s %s %s", r.Node, r.Time, dir, frames.Name(fr.Command), fr)
		case r.Stats != nil:
			log.Printf("%s t=%d %s node=%s %s", r.Node, r.Time, r.Stats.Sequencer,
				frames.StateName(byte(r.Stats.NodeState)), strings.TrimSpace(r.Stats.String()))
		default:
			log.Printf("%s: %s", topic, r)
		}
	})
	<-(chan struct{})(nil)
}
