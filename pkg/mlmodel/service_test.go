package mlmodel

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/logging"
	"github.com/titanic-mlops/titanic-survival/pkg/metadatastore"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

var ports = []string{"S", "C", "Q"}

// writePassengers writes n synthetic passengers where exactly the women
// survive. flip inverts the labels.
func writePassengers(t *testing.T, path string, n, offset int, flip bool) {
	t.Helper()
	columns := []string{"PassengerId", "Survived", "Pclass", "Name", "Sex", "Age", "SibSp", "Parch", "Ticket", "Fare", "Cabin", "Embarked"}
	rows := make([][]any, 0, n)
	for k := 0; k < n; k++ {
		i := k + offset
		sex, survived := "male", 0
		if i%2 == 0 {
			sex, survived = "female", 1
		}
		if flip {
			survived = 1 - survived
		}
		var age any = 20 + i%30
		if i%7 == 0 {
			age = nil
		}
		var port any = ports[i%3]
		if i%11 == 0 {
			port = nil
		}
		rows = append(rows, []any{
			i, survived, 1 + i%3, fmt.Sprintf("Passenger %d", i), sex, age,
			i % 4, 0, fmt.Sprintf("T%d", i), 5 + float64(i), nil, port,
		})
	}
	frame, err := dataset.New(columns, rows)
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, dataset.WriteCSV(f, frame))
}

func testCatalog() *config.TrainingConfig {
	return &config.TrainingConfig{
		Target:    "Survived",
		TestRatio: 0.2,
		Seed:      42,
		Attributes: []pipeline.Attribute{
			{Name: "Age", Type: pipeline.Numeric, Strategy: "median"},
			{Name: "Fare", Type: pipeline.Numeric},
			{Name: "SibSp", Type: pipeline.Numeric},
			{Name: "Parch", Type: pipeline.Numeric},
			{Name: "FamilySize", Type: pipeline.Numeric},
			{Name: "IsAlone", Type: pipeline.Numeric},
			{Name: "Pclass", Type: pipeline.Ordinal, Categories: []string{"1", "2", "3"}},
			{Name: "Sex", Type: pipeline.Categorical},
			{Name: "Embarked", Type: pipeline.Categorical},
		},
		Models: []pipeline.ModelSpec{
			{Name: "dummy", Kind: "dummy"},
			{Name: "decision_tree", Kind: "decision_tree"},
			{Name: "logistic_regression", Kind: "logistic_regression"},
		},
	}
}

type fixture struct {
	svc   *Service
	store *metadatastore.SQLiteStore
	paths Paths
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	paths := Paths{
		TrainData:      filepath.Join(dir, "train.csv"),
		ValidationData: filepath.Join(dir, "validation.csv"),
		Model:          filepath.Join(dir, "models", "best_model.gob"),
		Report:         filepath.Join(dir, "reports", "validation.md"),
	}
	writePassengers(t, paths.TrainData, 60, 0, false)
	writePassengers(t, paths.ValidationData, 20, 1000, false)

	store, err := metadatastore.NewSQLiteStore(filepath.Join(dir, "metadata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &fixture{
		svc:   NewService(store, testCatalog(), paths, logging.Discard()),
		store: store,
		paths: paths,
	}
}

func threshold(v float64) *float64 { return &v }

func TestTrainRegistersBestModel(t *testing.T) {
	fx := newFixture(t)

	run, err := fx.svc.Train(context.Background(), &models.TrainRequest{
		Models:    []string{"dummy", "decision_tree"},
		Threshold: threshold(0.9),
	})
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusRegistered, run.Status)
	assert.Equal(t, "decision_tree", run.BestModel)
	assert.Equal(t, 1.0, run.BestScore)
	assert.Len(t, run.Scores, 2)
	require.NotNil(t, run.Metrics)
	assert.Equal(t, 12, run.Metrics.Samples)
	assert.FileExists(t, fx.paths.Model)

	saved, err := fx.store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRegistered, saved.Status)
	assert.NotNil(t, saved.FinishedAt)

	// The constant Parch column is not part of the saved pipeline
	model, err := pipeline.Load(fx.paths.Model)
	require.NoError(t, err)
	_, ok := model.Attributes.Get("Parch")
	assert.False(t, ok)
	_, ok = model.Attributes.Get("Sex")
	assert.True(t, ok)
}

func TestTrainBelowThresholdIsRejected(t *testing.T) {
	fx := newFixture(t)

	run, err := fx.svc.Train(context.Background(), &models.TrainRequest{
		Models:    []string{"dummy"},
		Threshold: threshold(0.99),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRejected, run.Status)
	assert.NoFileExists(t, fx.paths.Model)
}

func TestTrainRejectsUnknownModel(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.svc.Train(context.Background(), &models.TrainRequest{Models: []string{"svm"}})
	assert.ErrorIs(t, err, pipeline.ErrUnknownModel)

	runs, err := fx.svc.ListRuns("")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTrainRecordsFailure(t *testing.T) {
	fx := newFixture(t)
	require.NoError(t, os.Remove(fx.paths.TrainData))

	run, err := fx.svc.Train(context.Background(), &models.TrainRequest{Models: []string{"dummy"}})
	require.Error(t, err)
	require.NotNil(t, run)

	saved, err := fx.store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, saved.Status)
	assert.NotEmpty(t, saved.Error)
}

func TestValidateWritesReport(t *testing.T) {
	fx := newFixture(t)
	trained, err := fx.svc.Train(context.Background(), &models.TrainRequest{Models: []string{"decision_tree"}})
	require.NoError(t, err)

	run, err := fx.svc.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusValidated, run.Status)
	assert.Equal(t, models.RunKindValidation, run.Kind)
	assert.Equal(t, 1.0, run.BestScore)

	report, err := os.ReadFile(fx.paths.Report)
	require.NoError(t, err)
	assert.Contains(t, string(report), "# Validation report")
	assert.Contains(t, string(report), "| Accuracy | 1.0000 |")
	assert.Contains(t, string(report), "## Feature drift")
	assert.Contains(t, string(report), "| Fare |")
	assert.Contains(t, string(report), "- Trained by: `"+trained.ID+"`")
}

func TestDeleteRun(t *testing.T) {
	fx := newFixture(t)
	run, err := fx.svc.Train(context.Background(), &models.TrainRequest{Models: []string{"dummy"}})
	require.NoError(t, err)

	require.NoError(t, fx.svc.DeleteRun(run.ID))
	_, err = fx.svc.GetRun(run.ID)
	assert.ErrorIs(t, err, metadatastore.ErrRunNotFound)
	assert.ErrorIs(t, fx.svc.DeleteRun(run.ID), metadatastore.ErrRunNotFound)
	assert.FileExists(t, fx.paths.Model)
}

func TestValidateWithoutModelFails(t *testing.T) {
	fx := newFixture(t)

	run, err := fx.svc.Validate(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.RunStatusFailed, run.Status)
}

func TestValidateAndRetrain(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.svc.Train(context.Background(), &models.TrainRequest{Models: []string{"decision_tree"}})
	require.NoError(t, err)

	validation, retrain, err := fx.svc.ValidateAndRetrain(context.Background(), 0.8, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, validation.BestScore)
	assert.Nil(t, retrain)

	// Inverted validation labels push accuracy to zero
	writePassengers(t, fx.paths.ValidationData, 20, 1000, true)
	validation, retrain, err = fx.svc.ValidateAndRetrain(context.Background(), 0.8, []string{"decision_tree"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, validation.BestScore)
	require.NotNil(t, retrain)
	assert.Equal(t, models.RunKindTraining, retrain.Kind)

	_, _, err = fx.svc.ValidateAndRetrain(context.Background(), 1.5, nil)
	assert.Error(t, err)
}

func TestServiceRecommend(t *testing.T) {
	fx := newFixture(t)

	rec, err := fx.svc.Recommend(2)
	require.NoError(t, err)
	assert.Len(t, rec.Models, 2)
	assert.Equal(t, 60, rec.Data.RecordCount)
	assert.NotContains(t, rec.Models, "dummy")
}

func TestComputeDrift(t *testing.T) {
	train, err := dataset.FromColumns([]string{"Age", "Sex"}, [][]any{{10, 20, 30, nil}, {"a", "b", "a", "b"}})
	require.NoError(t, err)
	val, err := dataset.FromColumns([]string{"Age"}, [][]any{{40, 40}})
	require.NoError(t, err)

	drift := ComputeDrift(train, val, []string{"Age", "Sex", "Missing"})
	require.Len(t, drift, 1)
	assert.Equal(t, "Age", drift[0].Feature)
	assert.InDelta(t, 20, drift[0].TrainMean, 1e-9)
	assert.InDelta(t, 40, drift[0].ValMean, 1e-9)
	assert.InDelta(t, 0, drift[0].ValStd, 1e-9)
	assert.Greater(t, drift[0].Shift, 1.0)
}
