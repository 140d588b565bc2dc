package database

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cast"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
)

// Result holds the rows returned by a query
type Result struct {
	Columns []string
	Rows    [][]any
}

// Frame converts the result into a dataset frame
func (r *Result) Frame() (*dataset.Frame, error) {
	return dataset.New(r.Columns, r.Rows)
}

// Format writes the result as an aligned text table
func (r *Result) Format(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(r.Columns, "\t"))
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				cells[i] = "NULL"
				continue
			}
			cells[i] = cast.ToString(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	fmt.Fprintf(tw, "(%d rows)\n", len(r.Rows))
	return tw.Flush()
}
