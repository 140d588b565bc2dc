package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/makerunner"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

var validationThreshold string

type targetRunner interface {
	Run(ctx context.Context, target string) error
}

// retrainIfBelow runs the train target when the validation score misses the
// threshold
func retrainIfBelow(ctx context.Context, w io.Writer, score float64, threshold *float64, runner targetRunner) error {
	if threshold == nil || score >= *threshold {
		return nil
	}
	fmt.Fprintln(w, "The model is not good enough. training a new model.")
	return runner.Run(ctx, "train")
}

// Validation scores the registered model on the validation data
func Validation(cmd *commander.Command, args []string) error {
	threshold, err := parseThreshold(validationThreshold)
	if err != nil {
		fmt.Println(err)
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	run, err := e.service.Validate(ctx)
	if run != nil {
		printRun(os.Stdout, run)
	}
	if err != nil {
		return err
	}
	if run.Status != models.RunStatusValidated {
		return fmt.Errorf("validation ended with status %s", run.Status)
	}
	return retrainIfBelow(ctx, os.Stdout, run.BestScore, threshold, makerunner.New(e.logger))
}

// ValidationCmd returns the validation command
func ValidationCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Validation,
		UsageLine: "validation [-th threshold]",
		Short:     "validate the model",
		Long: `
score the registered model on the validation data and write the report

	$ titanic validation -th 0.8

When the accuracy is below the threshold the train make target is run.
`,
		Flag: *flag.NewFlagSet("validation", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&validationThreshold, "th", "", "accuracy threshold for retraining the model (between 0 and 1)")
	return cmd
}
