package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
)

func passengerFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	zeros := []any{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	f, err := dataset.FromColumns(
		[]string{"Parch", "Pclass", "SibSp", "Fare", "Age", "Sex",
			"Embarked0", "Embarked1", "Embarked2", "FamilySize0", "FamilySize1", "FamilySize2"},
		[][]any{
			{0, 1, 1, 0, 0, 1, 1, 0, 0, 1},
			{1, 0, 1, 0, 0, 1, 1, 0, 0, 1},
			{1, 1, 0, 0, 0, 1, 1, 0, 0, 1},
			{1, 1, 1, 1, 0, 1, 1, 0, 0, 1},
			zeros, zeros, zeros, zeros, zeros, zeros, zeros, zeros,
		},
	)
	require.NoError(t, err)
	return f
}

func TestFitTransformDropsConstantColumns(t *testing.T) {
	X := passengerFrame(t)
	y := []float64{1, 1, 1, 0, 0, 1, 1, 0, 0, 1}

	selector := NewFeatureSelector(X.Columns(), true)
	out, err := selector.FitTransform(X, y)
	require.NoError(t, err)

	assert.Equal(t, []string{"Parch", "Pclass", "SibSp", "Fare"}, out.Columns())
	assert.Equal(t, 10, out.NumRows())
}

func TestUnlistedColumnsPassThrough(t *testing.T) {
	X := passengerFrame(t)

	selector := NewFeatureSelector([]string{"Parch", "Age", "NotInFrame"}, false)
	out, err := selector.FitTransform(X, nil)
	require.NoError(t, err)

	assert.NotContains(t, out.Columns(), "Age")
	assert.Contains(t, out.Columns(), "Sex")
	assert.Contains(t, out.Columns(), "Parch")
	assert.Equal(t, X.NumCols()-1, out.NumCols())
}

func TestAllConstantYieldsEmptyFrame(t *testing.T) {
	X, err := dataset.FromColumns([]string{"a", "b"}, [][]any{{1, 1, 1}, {"x", "x", "x"}})
	require.NoError(t, err)

	out, err := NewFeatureSelector(nil, false).FitTransform(X, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumCols())
	assert.Equal(t, 3, out.NumRows())
}

func TestMissingCellsCountAsValues(t *testing.T) {
	X, err := dataset.FromColumns([]string{"a", "b"}, [][]any{{1, nil, 1}, {nil, nil, nil}})
	require.NoError(t, err)

	out, err := NewFeatureSelector(nil, false).FitTransform(X, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, out.Columns())
}

func TestDecisionIgnoresTarget(t *testing.T) {
	X := passengerFrame(t)

	a, err := NewFeatureSelector(nil, false).FitTransform(X, []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err)
	b, err := NewFeatureSelector(nil, false).FitTransform(X, []float64{1, 0, 1, 0, 1, 0, 1, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, a.Columns(), b.Columns())
}

func TestTransformBeforeFit(t *testing.T) {
	_, err := NewFeatureSelector(nil, false).Transform(passengerFrame(t))
	assert.Error(t, err)
}
