package main

import (
	"github.com/robotalks/dualcore/pkg/cli/sh"
	"github.com/robotalks/dualcore/pkg/node"

	_ "github.com/robotalks/dualcore/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	node.SetupFlags()
}

func main() {
	sh.Main()
}
