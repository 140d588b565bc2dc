package estimators

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// separable returns two well separated clusters; both features carry the
// signal.
func separable() (*mat.Dense, []float64) {
	X := mat.NewDense(8, 2, []float64{
		-2.0, -1.0,
		-1.8, -0.9,
		-1.6, -0.8,
		-1.4, -0.7,
		1.4, 0.7,
		1.6, 0.8,
		1.8, 0.9,
		2.0, 1.0,
	})
	return X, []float64{0, 0, 0, 0, 1, 1, 1, 1}
}

func TestEveryKindFitsSeparableData(t *testing.T) {
	X, y := separable()
	params := Params{"n_estimators": 25, "k": 3, "max_iter": 500}

	for _, kind := range Kinds() {
		if kind == KindDummy {
			continue
		}
		t.Run(kind, func(t *testing.T) {
			model, err := New(kind, params, 42)
			require.NoError(t, err)
			require.NoError(t, model.Fit(X, y))

			pred, err := model.Predict(X)
			require.NoError(t, err)
			acc, err := Accuracy(pred, y)
			require.NoError(t, err)
			assert.Equal(t, 1.0, acc)

			query := mat.NewDense(2, 2, []float64{-1.7, -0.85, 1.7, 0.85})
			pred, err = model.Predict(query)
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1}, pred)
		})
	}
}

func TestPredictBeforeFit(t *testing.T) {
	X, _ := separable()
	for _, kind := range Kinds() {
		model, err := New(kind, nil, 1)
		require.NoError(t, err)
		_, err = model.Predict(X)
		assert.ErrorIs(t, err, ErrNotFitted, kind)
	}
}

func TestUnknownKind(t *testing.T) {
	_, err := New("svm", nil, 0)
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.False(t, IsKnown("svm"))
	assert.True(t, IsKnown(KindRandomForest))
}

func TestDummyPredictsMajority(t *testing.T) {
	X := mat.NewDense(5, 1, []float64{1, 2, 3, 4, 5})
	d := NewDummy()
	require.NoError(t, d.Fit(X, []float64{1, 1, 1, 1, 0}))

	pred, err := d.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1, 1}, pred)
}

func TestRandomForestIsSeeded(t *testing.T) {
	X, y := separable()
	a := NewRandomForest(10, 3, 2, 1, 7)
	b := NewRandomForest(10, 3, 2, 1, 7)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.TreeFeatures, b.TreeFeatures)
}

func TestKNeighborsBreaksTiesToLowestLabel(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 10, 11})
	kn := NewKNeighbors(2)
	require.NoError(t, kn.Fit(X, []float64{0, 1, 0, 1}))

	query := mat.NewDense(1, 1, []float64{0.5})
	for i := 0; i < 200; i++ {
		pred, err := kn.Predict(query)
		require.NoError(t, err)
		require.Equal(t, []float64{0}, pred, "run %d", i)
	}

	X = mat.NewDense(3, 1, []float64{-1, 1, 1})
	kn = NewKNeighbors(3)
	require.NoError(t, kn.Fit(X, []float64{2, 1, 0}))
	pred, err := kn.Predict(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, pred)
}

func TestShapeMismatch(t *testing.T) {
	X, y := separable()
	tree := NewDecisionTree(0, 0, 0)
	require.NoError(t, tree.Fit(X, y))

	_, err := tree.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrShape)

	assert.ErrorIs(t, tree.Fit(X, y[:3]), ErrShape)
}

func TestGradientBoostingRejectsMulticlass(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	err := NewGradientBoosting(0, 0, 0).Fit(X, []float64{0, 1, 2})
	assert.ErrorIs(t, err, ErrTooManyClass)
}

type envelope struct {
	Model Classifier
}

func TestGobRoundTripKeepsPredictions(t *testing.T) {
	X, y := separable()
	for _, kind := range Kinds() {
		t.Run(kind, func(t *testing.T) {
			model, err := New(kind, Params{"n_estimators": 5, "k": 3, "max_iter": 50}, 3)
			require.NoError(t, err)
			require.NoError(t, model.Fit(X, y))
			want, err := model.Predict(X)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, gob.NewEncoder(&buf).Encode(envelope{Model: model}))
			var back envelope
			require.NoError(t, gob.NewDecoder(&buf).Decode(&back))

			got, err := back.Model.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEvaluate(t *testing.T) {
	m, err := Evaluate([]float64{1, 1, 0, 0}, []float64{1, 0, 1, 0})
	require.NoError(t, err)
	assert.Equal(t, 0.5, m.Accuracy)
	assert.Equal(t, 0.5, m.Precision)
	assert.Equal(t, 0.5, m.Recall)
	assert.Equal(t, 0.5, m.F1Score)
	assert.Equal(t, [2][2]int{{1, 1}, {1, 1}}, m.ConfusionMatrix)

	_, err = Accuracy(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyData)
}
