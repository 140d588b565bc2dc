package dataset

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// IdentifierColumns carry no signal for the model and are dropped before
// training and inference.
var IdentifierColumns = []string{"PassengerId", "Name", "Cabin", "Ticket"}

// PreprocessFeatures drops identifier columns and derives FamilySize
// (SibSp + Parch) and IsAlone (1 when FamilySize is 0).
func PreprocessFeatures(f *Frame) (*Frame, error) {
	sibsp, ok := f.Column("SibSp")
	if !ok {
		return nil, errors.Wrap(ErrUnknownColumn, "SibSp")
	}
	parch, ok := f.Column("Parch")
	if !ok {
		return nil, errors.Wrap(ErrUnknownColumn, "Parch")
	}

	familySize := make([]any, f.NumRows())
	isAlone := make([]any, f.NumRows())
	for i := range familySize {
		if IsMissing(sibsp[i]) || IsMissing(parch[i]) {
			continue
		}
		s, err := cast.ToFloat64E(sibsp[i])
		if err != nil {
			return nil, errors.Wrapf(err, "SibSp row %d", i)
		}
		p, err := cast.ToFloat64E(parch[i])
		if err != nil {
			return nil, errors.Wrapf(err, "Parch row %d", i)
		}
		familySize[i] = s + p
		if s+p == 0 {
			isAlone[i] = 1.0
		} else {
			isAlone[i] = 0.0
		}
	}

	out := f.Drop(IdentifierColumns...)
	out, err := out.WithColumn("FamilySize", familySize)
	if err != nil {
		return nil, err
	}
	return out.WithColumn("IsAlone", isAlone)
}

// SplitTarget separates the target column from the features.
func SplitTarget(f *Frame, target string) (*Frame, []float64, error) {
	y, err := f.Float64s(target)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid target")
	}
	return f.Drop(target), y, nil
}

// LoadData reads a CSV file, preprocesses its features and splits off the
// target column.
func LoadData(path, target string) (*Frame, []float64, error) {
	raw, err := LoadCSV(path)
	if err != nil {
		return nil, nil, err
	}
	X, y, err := SplitTarget(raw, target)
	if err != nil {
		return nil, nil, err
	}
	X, err = PreprocessFeatures(X)
	if err != nil {
		return nil, nil, err
	}
	return X, y, nil
}

// TrainTestSplit shuffles rows with the given seed and holds out
// ceil(n*testRatio) of them.
func TrainTestSplit(X *Frame, y []float64, testRatio float64, seed int64) (xTrain, xTest *Frame, yTrain, yTest []float64, err error) {
	if X.NumRows() != len(y) {
		return nil, nil, nil, nil, errors.Errorf("X has %d rows but y has %d", X.NumRows(), len(y))
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, nil, nil, errors.Errorf("test ratio must be in (0, 1), got %v", testRatio)
	}

	n := len(y)
	nTest := int(math.Ceil(float64(n) * testRatio))
	if nTest >= n {
		return nil, nil, nil, nil, errors.Errorf("test ratio %v leaves no training rows out of %d", testRatio, n)
	}

	perm := rand.New(rand.NewSource(seed)).Perm(n)
	testIdx, trainIdx := perm[:nTest], perm[nTest:]

	yTrain = make([]float64, len(trainIdx))
	for k, i := range trainIdx {
		yTrain[k] = y[i]
	}
	yTest = make([]float64, len(testIdx))
	for k, i := range testIdx {
		yTest[k] = y[i]
	}
	return X.Take(trainIdx), X.Take(testIdx), yTrain, yTest, nil
}
