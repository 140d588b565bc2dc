package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

var (
	runsKind   string
	runsID     string
	runsDelete string
)

// Runs lists the recorded training and validation runs
func Runs(cmd *commander.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if runsDelete != "" {
		if err := e.service.DeleteRun(runsDelete); err != nil {
			return err
		}
		fmt.Printf("Deleted run %s\n", runsDelete)
		return nil
	}
	if runsID != "" {
		run, err := e.service.GetRun(runsID)
		if err != nil {
			return err
		}
		printRun(os.Stdout, run)
		return nil
	}

	kind := models.RunKind(runsKind)
	switch kind {
	case "", models.RunKindTraining, models.RunKindValidation:
	default:
		return fmt.Errorf("kind must be %s or %s", models.RunKindTraining, models.RunKindValidation)
	}
	runs, err := e.service.ListRuns(kind)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTATUS\tBEST MODEL\tSCORE\tSTARTED")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%s\n",
			run.ID, run.Kind, run.Status, run.BestModel, run.BestScore, run.StartedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// RunsCmd returns the runs command
func RunsCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Runs,
		UsageLine: "runs [-kind training|validation] [-id run] [-delete run]",
		Short:     "list recorded runs",
		Long: `
list recorded training and validation runs, newest first

	$ titanic runs -kind training
	$ titanic runs -id <run id>
	$ titanic runs -delete <run id>
`,
		Flag: *flag.NewFlagSet("runs", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&runsKind, "kind", "", "only list runs of this kind")
	cmd.Flag.StringVar(&runsID, "id", "", "show a single run")
	cmd.Flag.StringVar(&runsDelete, "delete", "", "delete a run from the history")
	return cmd
}
