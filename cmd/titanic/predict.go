package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/client"
	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
)

var (
	predictAPI     string
	predictCSV     string
	predictTimeout time.Duration
)

// Predict sends the passengers in a CSV file to the inference API
func Predict(cmd *commander.Command, args []string) error {
	if predictCSV == "" {
		return fmt.Errorf("-csv is required")
	}
	frame, err := dataset.LoadCSV(predictCSV)
	if err != nil {
		return err
	}
	reqs, err := client.PassengersFromFrame(frame)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), predictTimeout)
	defer cancel()

	c := client.NewClient(predictAPI)
	labels, err := c.PredictBatch(ctx, reqs)
	if err != nil {
		return err
	}

	out := make([]any, len(labels))
	for i, label := range labels {
		out[i] = label
	}
	result, err := frame.WithColumn("Survived", out)
	if err != nil {
		return err
	}
	return dataset.WriteCSV(os.Stdout, result)
}

// PredictCmd returns the predict command
func PredictCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Predict,
		UsageLine: "predict -csv <passengers file> [-api url]",
		Short:     "score passengers with the inference API",
		Long: `
send every passenger in a CSV file to the inference API and print the file
with a Survived column

	$ titanic predict -csv data/test.csv -api http://localhost:8000
`,
		Flag: *flag.NewFlagSet("predict", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&predictAPI, "api", "http://localhost:8000", "inference API base URL")
	cmd.Flag.StringVar(&predictCSV, "csv", "", "passengers CSV file")
	cmd.Flag.DurationVar(&predictTimeout, "timeout", time.Minute, "request timeout")
	return cmd
}
