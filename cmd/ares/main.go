package main

import (
	"os"

	"github.com/rudirid/ares-master-control-program-sub000/cmd/ares/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
