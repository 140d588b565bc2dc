package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// missingTokens are the cell values read as missing.
var missingTokens = map[string]bool{
	"":    true,
	"NA":  true,
	"NaN": true,
	"nan": true,
}

// ReadCSV parses a CSV document with a header row. Numeric cells become
// float64, missing tokens become nil, everything else stays a string.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.New("csv has no header row")
		}
		return nil, errors.Wrap(err, "failed to read csv header")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows [][]any
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read csv row %d", len(rows)+1)
		}
		row := make([]any, len(record))
		for j, cell := range record {
			row[j] = parseCell(cell)
		}
		rows = append(rows, row)
	}

	return New(header, rows)
}

// LoadCSV reads a CSV file from disk.
func LoadCSV(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	frame, err := ReadCSV(file)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return frame, nil
}

// WriteCSV writes the frame with a header row. Missing cells are empty.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns()); err != nil {
		return err
	}
	for _, row := range f.Records() {
		record := make([]string, len(row))
		for j, v := range row {
			if !IsMissing(v) {
				record[j] = cast.ToString(v)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseCell(raw string) any {
	cell := strings.TrimSpace(raw)
	if missingTokens[cell] {
		return nil
	}
	if x, err := cast.ToFloat64E(cell); err == nil {
		return x
	}
	return cell
}
