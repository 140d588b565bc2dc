package main

import (
	"context"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/logging"
	"github.com/titanic-mlops/titanic-survival/pkg/makerunner"
)

var testCoverage bool

func testTarget(coverage bool) string {
	if coverage {
		return "test-coverage"
	}
	return "test"
}

// Test runs the test suite through make
func Test(cmd *commander.Command, args []string) error {
	runner := makerunner.New(logging.Discard())
	return runner.Run(context.Background(), testTarget(testCoverage))
}

// TestCmd returns the test command
func TestCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Test,
		UsageLine: "test [-c]",
		Short:     "run the tests",
		Flag:      *flag.NewFlagSet("test", flag.ExitOnError),
	}
	cmd.Flag.BoolVar(&testCoverage, "c", false, "run the tests with coverage")
	return cmd
}
