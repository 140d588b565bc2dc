// Command titanic trains, validates and serves the survival model.
package main

import (
	"fmt"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

var cmd = &commander.Command{
	UsageLine: "titanic",
	Short:     "Titanic survival model operations",
	Flag:      *flag.NewFlagSet("titanic", flag.ExitOnError),
	Subcommands: []*commander.Command{
		TrainCmd(),
		ValidationCmd(),
		RecommendCmd(),
		RunsCmd(),
		MonitorCmd(),
		PredictCmd(),
		RunSQLCmd(),
		TestCmd(),
	},
}

func main() {
	if err := cmd.Dispatch(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "**err**: %v\n", err)
		os.Exit(1)
	}
}
