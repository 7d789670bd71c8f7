package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/minut.go/pkg/framework"
	"github.com/robotalks/minut.go/pkg/node"
)

var takeOffAfter time.Duration

func init() {
	node.SetupFlags()
	flag.DurationVar(&takeOffAfter, "takeoff-after", takeOffAfter, "Raise the simulated take-off input after this delay, 0 to never.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	hw := node.NewSimHardware()
	n, err := node.New(node.NewConfig(), hw.Hardware())
	if err != nil {
		log.Fatalln(err)
	}
	defer n.Close()
	if takeOffAfter > 0 {
		time.AfterFunc(takeOffAfter, func() {
			glog.Info("simulated take-off")
			hw.TakeOff.Set(true)
		})
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("node", n))
	if err := runner.Wait(); err != nil {
		glog.Errorf("node stopped: %v", err)
	}
}
