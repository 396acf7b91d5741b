package main

import (
	"github.com/boreq/guinea"

	"github.com/openkad/kadroute/cmd/kadroute/commands"
)

func main() {
	guinea.Run(&commands.MainCmd)
}
