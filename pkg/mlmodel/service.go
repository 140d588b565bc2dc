// Package mlmodel runs the training and validation workflows end to end:
// data loading, feature selection, training, selection, registration and
// validation reporting.
package mlmodel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/titanic-mlops/titanic-survival/pkg/config"
	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/metadatastore"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/features"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/training"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// Paths locates the files the workflows read and write
type Paths struct {
	TrainData      string
	ValidationData string
	Model          string
	Report         string
}

// PathsFromConfig takes the workflow paths from the application config
func PathsFromConfig(cfg *config.Config) Paths {
	return Paths{
		TrainData:      cfg.TrainDataPath,
		ValidationData: cfg.ValidationDataPath,
		Model:          cfg.ModelPath,
		Report:         cfg.ReportPath,
	}
}

// Service manages training and validation runs
type Service struct {
	store                metadatastore.MetadataStore
	catalog              *config.TrainingConfig
	paths                Paths
	logger               *slog.Logger
	recommendationEngine *RecommendationEngine
}

// NewService creates a new ML model service
func NewService(
	store metadatastore.MetadataStore,
	catalog *config.TrainingConfig,
	paths Paths,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:                store,
		catalog:              catalog,
		paths:                paths,
		logger:               logger.With("component", "mlmodel"),
		recommendationEngine: NewRecommendationEngine(),
	}
}

// Train fits every requested model on the training data, picks the best one
// on a held-out split and saves it when it meets the threshold. The run is
// recorded whatever its outcome.
func (s *Service) Train(ctx context.Context, req *models.TrainRequest) (*models.TrainingRun, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	for _, name := range req.Models {
		if !s.catalog.HasModel(name) {
			return nil, fmt.Errorf("%w: %s (available: %v)", pipeline.ErrUnknownModel, name, s.catalog.ModelNames())
		}
	}

	run := &models.TrainingRun{
		ID:        uuid.New().String(),
		Kind:      models.RunKindTraining,
		Status:    models.RunStatusRunning,
		Models:    req.Models,
		Threshold: req.Threshold,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to record training run: %w", err)
	}

	if err := s.train(ctx, run); err != nil {
		return run, s.fail(run, err)
	}
	return run, s.finish(run)
}

func (s *Service) train(ctx context.Context, run *models.TrainingRun) error {
	logger := s.logger.With("run_id", run.ID)

	X, y, err := dataset.LoadData(s.paths.TrainData, s.catalog.Target)
	if err != nil {
		return fmt.Errorf("failed to load training data: %w", err)
	}

	builder, X, err := s.selectFeatures(X, y)
	if err != nil {
		return err
	}

	xTrain, xTest, yTrain, yTest, err := dataset.TrainTestSplit(X, y, s.catalog.TestRatio, s.catalog.Seed)
	if err != nil {
		return fmt.Errorf("failed to split training data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	trainer, err := training.NewModelTrainer(xTrain, yTrain, builder, run.Models)
	if err != nil {
		return fmt.Errorf("failed to create trainer: %w", err)
	}
	trainer.WithLogger(logger)

	if _, err := trainer.TrainModels(); err != nil {
		return fmt.Errorf("failed to train models: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	best, err := trainer.BestModel(xTest, yTest)
	if err != nil {
		return fmt.Errorf("failed to select best model: %w", err)
	}
	run.Scores = trainer.Scores().Map()
	run.BestModel = best
	run.BestScore, _ = trainer.Scores().Get(best)

	bestPipeline, err := trainer.Registry().Get(best)
	if err != nil {
		return err
	}
	metrics, err := evaluate(bestPipeline, xTest, yTest)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", best, err)
	}
	run.Metrics = metrics

	if run.Threshold != nil && run.BestScore < *run.Threshold {
		logger.Warn("best model below threshold, not registered",
			"model", best, "accuracy", run.BestScore, "threshold", *run.Threshold)
		run.Status = models.RunStatusRejected
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.paths.Model), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	if err := trainer.SaveModel(best, s.paths.Model); err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	logger.Info("model registered", "model", best, "accuracy", run.BestScore, "path", s.paths.Model)
	run.Status = models.RunStatusRegistered
	run.ModelArtifactPath = s.paths.Model
	return nil
}

// selectFeatures drops constant numeric columns and narrows the attribute
// map to what survived, so that every pipeline sees the same columns.
func (s *Service) selectFeatures(X *dataset.Frame, y []float64) (*pipeline.Builder, *dataset.Frame, error) {
	attrs, err := s.catalog.AttributeMap()
	if err != nil {
		return nil, nil, err
	}
	if err := attrs.CheckCoverage(X.Columns()); err != nil {
		return nil, nil, fmt.Errorf("training data does not match the catalogue: %w", err)
	}

	selector := features.NewFeatureSelector(attrs.NamesOfType(pipeline.Numeric), false)
	selected, err := selector.FitTransform(X, y)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to select features: %w", err)
	}
	if dropped := selector.Dropped(X); len(dropped) > 0 {
		s.logger.Info("dropping constant features", "columns", dropped)
	}
	X = selected

	kept := make([]pipeline.Attribute, 0, attrs.Len())
	for _, a := range attrs.Attributes() {
		if X.Has(a.Name) {
			kept = append(kept, a)
		}
	}
	narrowed, err := pipeline.NewAttributeTypeMap(kept...)
	if err != nil {
		return nil, nil, fmt.Errorf("no usable features: %w", err)
	}
	builder, err := pipeline.NewBuilder(narrowed, s.catalog.Models, s.catalog.Seed)
	if err != nil {
		return nil, nil, err
	}
	return builder, X, nil
}

// Validate scores the registered model on the validation data and writes a
// markdown report. The run carries the accuracy as BestScore.
func (s *Service) Validate(ctx context.Context) (*models.TrainingRun, error) {
	run := &models.TrainingRun{
		ID:        uuid.New().String(),
		Kind:      models.RunKindValidation,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.SaveRun(run); err != nil {
		return nil, fmt.Errorf("failed to record validation run: %w", err)
	}

	if err := s.validate(ctx, run); err != nil {
		return run, s.fail(run, err)
	}
	run.Status = models.RunStatusValidated
	return run, s.finish(run)
}

func (s *Service) validate(ctx context.Context, run *models.TrainingRun) error {
	model, err := pipeline.Load(s.paths.Model)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	run.BestModel = model.Name
	run.ModelArtifactPath = s.paths.Model

	xVal, yVal, err := dataset.LoadData(s.paths.ValidationData, s.catalog.Target)
	if err != nil {
		return fmt.Errorf("failed to load validation data: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	metrics, err := evaluate(model, xVal, yVal)
	if err != nil {
		return fmt.Errorf("failed to evaluate %s: %w", model.Name, err)
	}
	run.Metrics = metrics
	run.BestScore = metrics.Accuracy
	run.Scores = map[string]float64{model.Name: metrics.Accuracy}

	report := &ValidationReport{
		RunID:       run.ID,
		Model:       model.Name,
		Kind:        model.Kind,
		Metrics:     metrics,
		GeneratedAt: time.Now().UTC(),
	}
	if training, err := s.store.LatestRegistered(); err == nil {
		report.Training = training
	} else if !errors.Is(err, metadatastore.ErrRunNotFound) {
		s.logger.Warn("failed to look up training run", "error", err)
	}
	// Drift needs the training data; a missing file only skips the table
	if xTrain, _, err := dataset.LoadData(s.paths.TrainData, s.catalog.Target); err == nil {
		report.Drift = ComputeDrift(xTrain, xVal, model.Attributes.NamesOfType(pipeline.Numeric))
	} else {
		s.logger.Warn("skipping drift table", "error", err)
	}

	if err := report.WriteFile(s.paths.Report); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	run.ReportPath = s.paths.Report
	s.logger.Info("model validated", "run_id", run.ID, "model", model.Name, "accuracy", metrics.Accuracy)
	return nil
}

// ValidateAndRetrain validates the registered model and retrains the given
// models when its accuracy falls below threshold. The retraining run is nil
// when no retraining was needed.
func (s *Service) ValidateAndRetrain(ctx context.Context, threshold float64, modelNames []string) (*models.TrainingRun, *models.TrainingRun, error) {
	if err := models.ValidateThreshold(&threshold); err != nil {
		return nil, nil, err
	}
	validation, err := s.Validate(ctx)
	if err != nil {
		return validation, nil, err
	}
	if validation.BestScore >= threshold {
		return validation, nil, nil
	}

	s.logger.Warn("model below threshold, retraining",
		"accuracy", validation.BestScore, "threshold", threshold)
	if len(modelNames) == 0 {
		modelNames = s.catalog.ModelNames()
	}
	retrain, err := s.Train(ctx, &models.TrainRequest{Models: modelNames, Threshold: &threshold})
	return validation, retrain, err
}

// Recommend ranks the catalogue models for the training data and returns
// the best n
func (s *Service) Recommend(n int) (*ModelRecommendation, error) {
	X, _, err := dataset.LoadData(s.paths.TrainData, s.catalog.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load training data: %w", err)
	}
	attrs, err := s.catalog.AttributeMap()
	if err != nil {
		return nil, err
	}
	analysis := s.recommendationEngine.AnalyzeData(X, attrs)
	recommendation, err := s.recommendationEngine.Recommend(analysis, s.catalog.Models, n)
	if err != nil {
		return nil, fmt.Errorf("failed to recommend models: %w", err)
	}
	return recommendation, nil
}

// ListRuns lists recorded runs of one kind, newest first
func (s *Service) ListRuns(kind models.RunKind) ([]*models.TrainingRun, error) {
	runs, err := s.store.ListRuns(kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun retrieves a recorded run
func (s *Service) GetRun(id string) (*models.TrainingRun, error) {
	run, err := s.store.GetRun(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// DeleteRun removes a recorded run. The model file it registered is kept.
func (s *Service) DeleteRun(id string) error {
	if err := s.store.DeleteRun(id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	s.logger.Info("run deleted", "run_id", id)
	return nil
}

func (s *Service) finish(run *models.TrainingRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.store.SaveRun(run); err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	return nil
}

// fail records the failure and returns cause
func (s *Service) fail(run *models.TrainingRun, cause error) error {
	run.Status = models.RunStatusFailed
	run.Error = cause.Error()
	s.logger.Error("run failed", "run_id", run.ID, "kind", run.Kind, "error", cause)
	if err := s.finish(run); err != nil {
		s.logger.Error("failed to record run failure", "run_id", run.ID, "error", err)
	}
	return cause
}

func evaluate(p *pipeline.Pipeline, X *dataset.Frame, y []float64) (*models.PerformanceMetrics, error) {
	labels, err := p.Predict(X)
	if err != nil {
		return nil, err
	}
	predicted := make([]float64, len(labels))
	for i, l := range labels {
		predicted[i] = float64(l)
	}
	m, err := estimators.Evaluate(predicted, y)
	if err != nil {
		return nil, err
	}
	return &models.PerformanceMetrics{
		Accuracy:  m.Accuracy,
		Precision: m.Precision,
		Recall:    m.Recall,
		F1Score:   m.F1Score,
		ConfusionMatrix: [][]int{
			{m.ConfusionMatrix[0][0], m.ConfusionMatrix[0][1]},
			{m.ConfusionMatrix[1][0], m.ConfusionMatrix[1][1]},
		},
		Samples: m.Samples,
	}, nil
}
