package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/dualcore/pkg/framework"
	"github.com/robotalks/dualcore/pkg/monitor"
	"github.com/robotalks/dualcore/pkg/mqtt"
	"github.com/robotalks/dualcore/pkg/node"
	"github.com/robotalks/dualcore/pkg/shm"
	"github.com/robotalks/dualcore/pkg/transport"

	_ "github.com/robotalks/dualcore/pkg/transport/mqtt"
	_ "github.com/robotalks/dualcore/pkg/transport/websocket"
)

func init() {
	node.SetupFlags()
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := node.NewConfig()
	if err := conf.Validate(); err != nil {
		log.Fatalln(err)
	}
	region, err := shm.Map(conf.SHMPath, conf.Map.Size())
	if err != nil {
		log.Fatalf("map %s: %v", conf.SHMPath, err)
	}
	defer region.Close()

	conn, err := transport.Open(conf.ConsoleURL)
	if err != nil {
		log.Fatalf("console %s: %v", conf.ConsoleURL, err)
	}
	core, err := node.New(conf, region, conn)
	if err != nil {
		conn.Close()
		log.Fatalln(err)
	}
	defer core.Close()

	runner := framework.NewRunner().HandleSignals()
	if conf.MonitorURL != "" {
		q, err := mqtt.Dial(conf.MonitorURL, conf.Core)
		if err != nil {
			log.Fatalf("monitor %s: %v", conf.MonitorURL, err)
		}
		defer q.Close()
		pub := monitor.NewPublisher(q)
		core.Tap = pub
		runner.Go(framework.NamedRun("monitor", pub))
	}
	runner.Go(framework.NamedRun(conf.Core, core))
	if err := runner.Wait(); err != nil {
		glog.Errorf("%s: %v", conf.Core, err)
	}
}
