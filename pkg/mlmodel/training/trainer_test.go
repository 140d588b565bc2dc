package training

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
)

// fixedClassifier predicts a canned label sequence.
type fixedClassifier struct {
	predictions []float64
	fitErr      error
}

func (c *fixedClassifier) Fit(mat.Matrix, []float64) error { return c.fitErr }

func (c *fixedClassifier) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	return append([]float64(nil), c.predictions[:r]...), nil
}

func sampleData(t *testing.T) (*dataset.Frame, []float64) {
	t.Helper()
	X, err := dataset.FromColumns(
		[]string{"num1", "ord1", "cat1"},
		[][]any{
			{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
			{1, 3, 4, 5, 6, 1, 3, 4, 5, 6},
			{"a", "b", "a", "b", "a", "b", "a", "b", "a", "b"},
		},
	)
	require.NoError(t, err)
	return X, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
}

func sampleBuilder(t *testing.T) *pipeline.Builder {
	t.Helper()
	attrs, err := pipeline.NewAttributeTypeMap(
		pipeline.Attribute{Name: "num1", Type: pipeline.Numeric},
		pipeline.Attribute{Name: "ord1", Type: pipeline.Ordinal, Categories: []string{"1", "3", "4", "5", "6"}},
		pipeline.Attribute{Name: "cat1", Type: pipeline.Categorical},
	)
	require.NoError(t, err)
	catalogue := append(pipeline.DefaultCatalogue(),
		pipeline.ModelSpec{Name: "model1", Kind: "dummy"},
		pipeline.ModelSpec{Name: "model2", Kind: "dummy"},
	)
	b, err := pipeline.NewBuilder(attrs, catalogue, 42)
	require.NoError(t, err)
	return b
}

// stubTrainer builds a trainer whose pipelines predict fixed labels, so
// each model's accuracy on an all-ones target equals its share of ones.
func stubTrainer(t *testing.T, predictions map[string][]float64, order ...string) *ModelTrainer {
	t.Helper()
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), order)
	require.NoError(t, err)
	for _, name := range order {
		p, err := trainer.Registry().Get(name)
		require.NoError(t, err)
		p.Estimator = &fixedClassifier{predictions: predictions[name]}
	}
	return trainer
}

func TestTrainModels(t *testing.T) {
	X, y := sampleData(t)
	y[9] = 0
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy", "decision_tree"})
	require.NoError(t, err)
	assert.Equal(t, StateConstructed, trainer.State())

	models, err := trainer.TrainModels()
	require.NoError(t, err)
	assert.Equal(t, 2, models.Len())
	for _, name := range models.Names() {
		p, err := models.Get(name)
		require.NoError(t, err)
		assert.True(t, p.Fitted(), name)
		pred, err := p.Predict(X)
		require.NoError(t, err)
		assert.Len(t, pred, X.NumRows())
	}
	assert.Equal(t, StateTrained, trainer.State())

	_, err = trainer.TrainModels()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestGenerateScores(t *testing.T) {
	X, y := sampleData(t)
	y[9] = 0
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy", "logistic_regression"})
	require.NoError(t, err)
	_, err = trainer.TrainModels()
	require.NoError(t, err)

	scores, err := trainer.GenerateScores(X, y)
	require.NoError(t, err)
	assert.Equal(t, 2, scores.Len())
	for _, s := range scores.Entries() {
		assert.GreaterOrEqual(t, s.Value, 0.0)
		assert.LessOrEqual(t, s.Value, 1.0)
	}
	dummy, ok := scores.Get("dummy")
	require.True(t, ok)
	assert.InDelta(t, 0.9, dummy, 1e-12)
	assert.Equal(t, StateScored, trainer.State())
}

func TestGenerateScoresBeforeTraining(t *testing.T) {
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy"})
	require.NoError(t, err)

	_, err = trainer.GenerateScores(X, y)
	assert.ErrorIs(t, err, pipeline.ErrNotFitted)
}

func TestBestModel(t *testing.T) {
	trainer := stubTrainer(t, map[string][]float64{
		"model1": {1, 1, 1, 0, 0, 0, 0, 0, 0, 0},
		"model2": {1, 1, 1, 1, 1, 1, 1, 1, 1, 0},
	}, "model1", "model2")
	_, err := trainer.TrainModels()
	require.NoError(t, err)

	X, y := sampleData(t)
	best, err := trainer.BestModel(X, y)
	require.NoError(t, err)
	assert.Equal(t, "model2", best)
	assert.Equal(t, StateSelected, trainer.State())

	scores := trainer.Scores().Map()
	assert.InDelta(t, 0.3, scores["model1"], 1e-12)
	assert.InDelta(t, 0.9, scores["model2"], 1e-12)
}

func TestBestModelTieGoesToFirstRegistered(t *testing.T) {
	same := []float64{1, 1, 1, 1, 1, 0, 0, 0, 0, 0}
	trainer := stubTrainer(t, map[string][]float64{"model2": same, "model1": same}, "model2", "model1")
	_, err := trainer.TrainModels()
	require.NoError(t, err)

	X, y := sampleData(t)
	best, err := trainer.BestModel(X, y)
	require.NoError(t, err)
	assert.Equal(t, "model2", best)
}

func TestEmptyCatalogue(t *testing.T) {
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), nil)
	require.NoError(t, err)

	models, err := trainer.TrainModels()
	require.NoError(t, err)
	assert.Equal(t, 0, models.Len())

	scores, err := trainer.GenerateScores(X, y)
	require.NoError(t, err)
	assert.Equal(t, 0, scores.Len())

	_, err = trainer.BestModel(X, y)
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestFitErrorAbortsRun(t *testing.T) {
	boom := errors.New("boom")
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"model1", "model2"})
	require.NoError(t, err)
	p, err := trainer.Registry().Get("model1")
	require.NoError(t, err)
	p.Estimator = &fixedClassifier{fitErr: boom}

	_, err = trainer.TrainModels()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "model1")

	second, err := trainer.Registry().Get("model2")
	require.NoError(t, err)
	assert.False(t, second.Fitted())
	assert.Equal(t, StateConstructed, trainer.State())
}

func TestConstructionErrors(t *testing.T) {
	X, y := sampleData(t)

	_, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy", "svm"})
	assert.ErrorIs(t, err, pipeline.ErrUnknownModel)

	_, err = NewModelTrainer(X.Drop("cat1"), y, sampleBuilder(t), []string{"dummy"})
	assert.ErrorIs(t, err, pipeline.ErrMissingColumn)

	_, err = NewModelTrainer(X, y[:3], sampleBuilder(t), []string{"dummy"})
	assert.Error(t, err)
}

func TestSaveModel(t *testing.T) {
	X, y := sampleData(t)
	y[0] = 0
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"random_forest"})
	require.NoError(t, err)
	_, err = trainer.TrainModels()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model1.gob")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0644))
	require.NoError(t, trainer.SaveModel("random_forest", path))

	loaded, err := pipeline.Load(path)
	require.NoError(t, err)
	original, err := trainer.Registry().Get("random_forest")
	require.NoError(t, err)

	want, err := original.Predict(X)
	require.NoError(t, err)
	got, err := loaded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveModelUnknownNameWritesNothing(t *testing.T) {
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy"})
	require.NoError(t, err)
	_, err = trainer.TrainModels()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "missing.gob")
	err = trainer.SaveModel("model9", path)
	assert.ErrorIs(t, err, pipeline.ErrModelNotFound)
	assert.NoFileExists(t, path)
}

func TestSaveModelReturnsIOErrorUnmodified(t *testing.T) {
	X, y := sampleData(t)
	trainer, err := NewModelTrainer(X, y, sampleBuilder(t), []string{"dummy"})
	require.NoError(t, err)
	_, err = trainer.TrainModels()
	require.NoError(t, err)

	err = trainer.SaveModel("dummy", filepath.Join(t.TempDir(), "no", "such", "dir", "m.gob"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestScoreTableBest(t *testing.T) {
	table := NewScoreTable()
	_, _, ok := table.Best()
	assert.False(t, ok)

	table.Set("model1", 0.3)
	table.Set("model2", 0.9)
	table.Set("model3", 0.9)
	name, value, ok := table.Best()
	assert.True(t, ok)
	assert.Equal(t, "model2", name)
	assert.Equal(t, 0.9, value)
	assert.Equal(t, []Score{{"model1", 0.3}, {"model2", 0.9}, {"model3", 0.9}}, table.Entries())
}
