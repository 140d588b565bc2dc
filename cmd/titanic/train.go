package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

var (
	trainModels    modelList
	trainThreshold string
	recommendCount int
)

// Train fits the requested catalogue models and registers the best one
func Train(cmd *commander.Command, args []string) error {
	threshold, err := parseThreshold(trainThreshold)
	if err != nil {
		fmt.Println(err)
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	names := []string(trainModels)
	if len(names) == 0 {
		rec, err := e.service.Recommend(recommendCount)
		if err != nil {
			return err
		}
		fmt.Printf("No model given, training the recommended models: %s\n", strings.Join(rec.Models, ", "))
		names = rec.Models
	}
	if err := checkModels(e.catalog, names); err != nil {
		return err
	}

	run, err := e.service.Train(context.Background(), &models.TrainRequest{Models: names, Threshold: threshold})
	if run != nil {
		printRun(os.Stdout, run)
	}
	return err
}

// TrainCmd returns the train command
func TrainCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Train,
		UsageLine: "train [-m model]... [-th threshold]",
		Short:     "train the model",
		Long: `
train the requested catalogue models and register the best one

	$ titanic train -m random_forest -m gradient_boosting -th 0.8

Without -m the models recommended for the training data are trained.
`,
		Flag: *flag.NewFlagSet("train", flag.ExitOnError),
	}
	cmd.Flag.Var(&trainModels, "m", "model to train (repeatable)")
	cmd.Flag.StringVar(&trainThreshold, "th", "", "accuracy threshold for the model to be registered (between 0 and 1)")
	cmd.Flag.IntVar(&recommendCount, "n", 3, "number of recommended models to train when -m is omitted")
	return cmd
}

func printRun(w io.Writer, run *models.TrainingRun) {
	fmt.Fprintf(w, "Run %s (%s): %s\n", run.ID, run.Kind, run.Status)
	if len(run.Scores) > 0 {
		names := make([]string, 0, len(run.Scores))
		for name := range run.Scores {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-22s %.4f\n", name, run.Scores[name])
		}
	}
	if run.BestModel != "" {
		fmt.Fprintf(w, "Best model: %s (%.4f)\n", run.BestModel, run.BestScore)
	}
	if run.Metrics != nil {
		fmt.Fprintf(w, "Accuracy %.4f, precision %.4f, recall %.4f, F1 %.4f\n",
			run.Metrics.Accuracy, run.Metrics.Precision, run.Metrics.Recall, run.Metrics.F1Score)
	}
	if run.ModelArtifactPath != "" {
		fmt.Fprintf(w, "Model saved to %s\n", run.ModelArtifactPath)
	}
	if run.ReportPath != "" {
		fmt.Fprintf(w, "Report written to %s\n", run.ReportPath)
	}
	if run.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", run.Error)
	}
}
