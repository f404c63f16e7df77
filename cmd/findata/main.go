package main

import (
	"os"

	"github.com/izgi-a/findata-adapter/cmd/findata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
