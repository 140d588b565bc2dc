package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
	"github.com/titanic-mlops/titanic-survival/pkg/scheduler"
)

var (
	monitorSchedule  string
	monitorThreshold string
	monitorModels    modelList
	monitorNow       bool
)

// Monitor validates the registered model on a schedule and retrains it when
// the accuracy drops below the threshold
func Monitor(cmd *commander.Command, args []string) error {
	threshold, err := parseThreshold(monitorThreshold)
	if err != nil {
		fmt.Println(err)
		return err
	}

	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	if threshold == nil {
		threshold = &e.cfg.RetrainThreshold
	}
	schedule := monitorSchedule
	if schedule == "" {
		schedule = e.cfg.ValidationSchedule
	}
	if schedule == "" {
		return fmt.Errorf("no schedule given, pass -cron or set VALIDATION_SCHEDULE")
	}
	if err := checkModels(e.catalog, monitorModels); err != nil {
		return err
	}

	monitor := scheduler.NewService(e.service, e.logger)
	monitor.OnRetrain = func(run *models.TrainingRun) {
		printRun(os.Stdout, run)
	}
	job, err := monitor.AddJob(schedule, *threshold, monitorModels)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if monitorNow {
		if err := monitor.RunNow(ctx, job.ID); err != nil {
			e.logger.Error("validation failed", "job_id", job.ID, "error", err)
		}
	}

	monitor.Start()
	fmt.Printf("Validating on %q with threshold %.2f, next run at %s\n", schedule, *threshold, job.NextRun.Format(time.RFC3339))
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	monitor.Stop(stopCtx)
	return nil
}

// MonitorCmd returns the monitor command
func MonitorCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Monitor,
		UsageLine: "monitor [-cron expr] [-th threshold] [-m model]... [-now]",
		Short:     "validate on a schedule and retrain below threshold",
		Long: `
validate the registered model on a cron schedule and retrain it when the
accuracy drops below the threshold

	$ titanic monitor -cron "0 3 * * *" -th 0.8 -m random_forest
`,
		Flag: *flag.NewFlagSet("monitor", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&monitorSchedule, "cron", "", "five-field cron expression (default VALIDATION_SCHEDULE)")
	cmd.Flag.StringVar(&monitorThreshold, "th", "", "accuracy threshold for retraining (default RETRAIN_THRESHOLD)")
	cmd.Flag.Var(&monitorModels, "m", "model to retrain with (repeatable, default all)")
	cmd.Flag.BoolVar(&monitorNow, "now", false, "validate once immediately")
	return cmd
}
