package main

import (
	"github.com/robotalks/minut.go/pkg/cli/sh"
	"github.com/robotalks/minut.go/pkg/node"

	_ "github.com/robotalks/minut.go/pkg/cli/cmds/frames"
)

//go-build: CGO_ENABLED=0

func init() {
	node.SetupFlags()
}

func main() {
	sh.Main()
}
