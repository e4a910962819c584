package main

import (
	"github.com/luma/pktgen/cmd"
)

func main() {
	cmd.Execute()
}
