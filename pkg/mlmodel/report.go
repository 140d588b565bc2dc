package mlmodel

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/stat"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// FeatureDrift compares one numeric feature between training and validation data
type FeatureDrift struct {
	Feature   string
	TrainMean float64
	TrainStd  float64
	ValMean   float64
	ValStd    float64
	// Shift of the validation mean in training standard deviations
	Shift float64
}

// ValidationReport is the markdown summary written by a validation run
type ValidationReport struct {
	RunID       string
	Model       string
	Kind        string
	Metrics     *models.PerformanceMetrics
	Drift       []FeatureDrift
	GeneratedAt time.Time
	// Training is the run that registered the model, when it is on record
	Training *models.TrainingRun
}

// ComputeDrift returns one entry per column present in both frames. Missing
// cells are ignored; a column with no observed values is skipped.
func ComputeDrift(train, validation *dataset.Frame, columns []string) []FeatureDrift {
	out := make([]FeatureDrift, 0, len(columns))
	for _, name := range columns {
		tv, ok := observed(train, name)
		if !ok {
			continue
		}
		vv, ok := observed(validation, name)
		if !ok {
			continue
		}
		d := FeatureDrift{Feature: name}
		d.TrainMean, d.TrainStd = stat.PopMeanStdDev(tv, nil)
		d.ValMean, d.ValStd = stat.PopMeanStdDev(vv, nil)
		if d.TrainStd > 0 {
			d.Shift = (d.ValMean - d.TrainMean) / d.TrainStd
		}
		out = append(out, d)
	}
	return out
}

func observed(f *dataset.Frame, name string) ([]float64, bool) {
	column, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	values := make([]float64, 0, len(column))
	for _, v := range column {
		if dataset.IsMissing(v) {
			continue
		}
		x, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, false
		}
		values = append(values, x)
	}
	return values, len(values) > 0
}

// Markdown renders the report
func (r *ValidationReport) Markdown(w io.Writer) error {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Validation report\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", r.RunID)
	fmt.Fprintf(&b, "- Model: `%s` (%s)\n", r.Model, r.Kind)
	if t := r.Training; t != nil {
		fmt.Fprintf(&b, "- Trained by: `%s` on %s, held-out accuracy %.4f\n",
			t.ID, t.StartedAt.Format(time.RFC3339), t.BestScore)
	}
	fmt.Fprintf(&b, "- Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	if m := r.Metrics; m != nil {
		fmt.Fprintf(&b, "## Metrics\n\n")
		fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Accuracy | %.4f |\n", m.Accuracy)
		fmt.Fprintf(&b, "| Precision | %.4f |\n", m.Precision)
		fmt.Fprintf(&b, "| Recall | %.4f |\n", m.Recall)
		fmt.Fprintf(&b, "| F1 | %.4f |\n", m.F1Score)
		fmt.Fprintf(&b, "| Samples | %d |\n\n", m.Samples)

		if len(m.ConfusionMatrix) == 2 {
			fmt.Fprintf(&b, "### Confusion matrix\n\n")
			fmt.Fprintf(&b, "| | Predicted 0 | Predicted 1 |\n|---|---|---|\n")
			fmt.Fprintf(&b, "| Actual 0 | %d | %d |\n", m.ConfusionMatrix[0][0], m.ConfusionMatrix[0][1])
			fmt.Fprintf(&b, "| Actual 1 | %d | %d |\n\n", m.ConfusionMatrix[1][0], m.ConfusionMatrix[1][1])
		}
	}

	if len(r.Drift) > 0 {
		fmt.Fprintf(&b, "## Feature drift\n\n")
		fmt.Fprintf(&b, "| Feature | Train mean | Train std | Validation mean | Validation std | Shift (std) |\n")
		fmt.Fprintf(&b, "|---|---|---|---|---|---|\n")
		for _, d := range r.Drift {
			fmt.Fprintf(&b, "| %s | %.4f | %.4f | %.4f | %.4f | %s |\n",
				d.Feature, d.TrainMean, d.TrainStd, d.ValMean, d.ValStd, formatShift(d.Shift))
		}
	}

	_, err := w.Write(b.Bytes())
	return err
}

// WriteFile renders the report to path, creating parent directories
func (r *ValidationReport) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Markdown(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatShift(shift float64) string {
	if math.Abs(shift) >= 1 {
		return fmt.Sprintf("**%+.2f**", shift)
	}
	return fmt.Sprintf("%+.2f", shift)
}
