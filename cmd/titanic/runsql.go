package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/database"
	"github.com/titanic-mlops/titanic-survival/pkg/logging"
)

var sqlFile string

// runSQLFile executes the query in path and prints the rows it returns
func runSQLFile(ctx context.Context, w io.Writer, db database.Manager, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file '%s' does not exist", path)
	}
	query, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := db.FetchResults(ctx, string(query))
	if err != nil {
		return fmt.Errorf("error executing SQL: %w", err)
	}
	fmt.Fprintf(w, "Successfully executed SQL from '%s'.\n", path)
	return result.Format(w)
}

// RunSQL runs a SQL file against the prediction database
func RunSQL(cmd *commander.Command, args []string) error {
	if sqlFile == "" {
		return fmt.Errorf("-sql-file is required")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled() {
		return fmt.Errorf("POSTGRES_HOST is not set")
	}

	ctx := context.Background()
	db := database.NewPostgresManager(cfg.Postgres, logging.New(cfg))
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Close()

	return runSQLFile(ctx, os.Stdout, db, sqlFile)
}

// RunSQLCmd returns the run-sql command
func RunSQLCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       RunSQL,
		UsageLine: "run-sql -sql-file <file>",
		Short:     "run a SQL file against the PostgreSQL database",
		Long: `
run the query in a SQL file against the prediction database and print the
result table

	$ titanic run-sql -sql-file queries/survival_by_class.sql
`,
		Flag: *flag.NewFlagSet("run-sql", flag.ExitOnError),
	}
	cmd.Flag.StringVar(&sqlFile, "sql-file", "", "the path of the sql file")
	return cmd
}
