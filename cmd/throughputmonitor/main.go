package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "throughputmonitor",
		Usage: "Monitor transaction, gas and byte throughput of EVM networks",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Poll every configured network and report rolling 60s rates",
				Flags:  runFlags(),
				Action: run,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
