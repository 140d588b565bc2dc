package estimators

import (
	"github.com/pkg/errors"
)

// Metrics summarises binary classification quality, with label 1 as the
// positive class.
type Metrics struct {
	Accuracy        float64   `json:"accuracy"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	F1Score         float64   `json:"f1_score"`
	ConfusionMatrix [2][2]int `json:"confusion_matrix"`
	Samples         int       `json:"samples"`
}

// Accuracy is the share of predictions equal to the true label.
func Accuracy(predicted, actual []float64) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, errors.Wrapf(ErrShape, "%d predictions for %d labels", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, ErrEmptyData
	}
	correct := 0
	for i := range predicted {
		if predicted[i] == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual)), nil
}

// Evaluate computes accuracy, precision, recall and F1. The confusion matrix
// is indexed [actual][predicted] with 0 for negative and 1 for positive.
// Precision and recall are 0 when undefined.
func Evaluate(predicted, actual []float64) (*Metrics, error) {
	acc, err := Accuracy(predicted, actual)
	if err != nil {
		return nil, err
	}
	m := &Metrics{Accuracy: acc, Samples: len(actual)}
	for i := range actual {
		a, p := 0, 0
		if actual[i] == 1 {
			a = 1
		}
		if predicted[i] == 1 {
			p = 1
		}
		m.ConfusionMatrix[a][p]++
	}

	tp := float64(m.ConfusionMatrix[1][1])
	fp := float64(m.ConfusionMatrix[0][1])
	fn := float64(m.ConfusionMatrix[1][0])
	if tp+fp > 0 {
		m.Precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		m.Recall = tp / (tp + fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1Score = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m, nil
}
