package main

import (
	"flag"
	"log"
	"os"
	"strings"

	"github.com/robotalks/dualcore/pkg/monitor"
	"github.com/robotalks/dualcore/pkg/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/dualcore/"
)

func init() {
	if val := os.Getenv("DUALCORE_MONITOR_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.Dial(mqttURL, "framemon")
	if err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	handler := func(topic string, payload []byte) {
		core, dir, err := monitor.ParseTopic(topic)
		if err != nil {
			log.Printf("%s: %v", topic, err)
			return
		}
		frame, err := monitor.Decode(payload)
		if err != nil {
			log.Printf("%s: bad frame: %v", topic, err)
			return
		}
		log.Printf("%s %s %3d %q", core, strings.ToUpper(dir.String()), len(frame), frame)
	}
	for _, topic := range []string{"+/tx", "+/rx"} {
		if _, err := q.Sub(topic, handler); err != nil {
			log.Fatalln(err)
		}
	}
	<-(chan struct{})(nil)
}
