package main

import (
	"fmt"

	"github.com/gonuts/commander"
	"github.com/gonuts/flag"
)

var recommendTop int

// Recommend ranks the catalogue models for the training data
func Recommend(cmd *commander.Command, args []string) error {
	e, err := openEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	rec, err := e.service.Recommend(recommendTop)
	if err != nil {
		return err
	}
	fmt.Printf("%d records, %d features (%s dataset)\n", rec.Data.RecordCount, rec.Data.FeatureCount, rec.Data.Size)
	for i, name := range rec.Models {
		fmt.Printf("%d. %s (score %d)\n", i+1, name, rec.Scores[name])
	}
	fmt.Println(rec.Reasoning)
	return nil
}

// RecommendCmd returns the recommend command
func RecommendCmd() *commander.Command {
	cmd := &commander.Command{
		Run:       Recommend,
		UsageLine: "recommend [-n count]",
		Short:     "recommend models for the training data",
		Long: `
rank the catalogue models by how well they suit the training data

	$ titanic recommend -n 3
`,
		Flag: *flag.NewFlagSet("recommend", flag.ExitOnError),
	}
	cmd.Flag.IntVar(&recommendTop, "n", 3, "number of models to recommend")
	return cmd
}
