// Package predictor serves survival predictions from a saved pipeline and
// logs every prediction through the database manager.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/titanic-mlops/titanic-survival/pkg/database"
	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// ErrNoModel is returned by predictions made before any model is loaded
var ErrNoModel = errors.New("model not loaded")

// LoadModel reads a pipeline artifact written by the trainer
func LoadModel(path string) (*pipeline.Pipeline, error) {
	model, err := pipeline.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load model from %s: %w", path, err)
	}
	return model, nil
}

// Config holds everything a Predictor needs. The model path is always passed
// in by the caller.
type Config struct {
	ModelPath string
	// Table receives one row per prediction. Logging is skipped when DB is nil.
	Table  string
	DB     database.Manager
	Logger *slog.Logger
}

// Predictor scores passengers with a loaded pipeline
type Predictor struct {
	cfg    Config
	logger *slog.Logger

	mu    sync.RWMutex
	model *pipeline.Pipeline
}

// New loads the model at cfg.ModelPath
func New(cfg Config) (*Predictor, error) {
	model, err := LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	return NewWithModel(model, cfg), nil
}

// NewWithModel wraps an already loaded pipeline. A nil model gives a
// predictor that returns ErrNoModel until Reload finds an artifact.
func NewWithModel(model *pipeline.Pipeline, cfg Config) *Predictor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = "titanic"
	}
	return &Predictor{
		cfg:    cfg,
		model:  model,
		logger: logger.With("component", "predictor"),
	}
}

// Reload replaces the served model with the artifact at the configured path
func (p *Predictor) Reload() error {
	model, err := LoadModel(p.cfg.ModelPath)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.model = model
	p.mu.Unlock()
	p.logger.Info("model reloaded", "path", p.cfg.ModelPath, "model", model.Name)
	return nil
}

// Model returns the pipeline currently served
func (p *Predictor) Model() *pipeline.Pipeline {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.model
}

// Predict returns the survival label for one passenger
func (p *Predictor) Predict(ctx context.Context, req models.PredictionRequest) (int, error) {
	labels, err := p.predictRows(ctx, []models.PredictionRequest{req})
	if err != nil {
		return 0, err
	}
	return labels[0], nil
}

// predictRows scores passengers as one frame and logs them in one insert.
// Negative labels are clamped to 0.
func (p *Predictor) predictRows(ctx context.Context, reqs []models.PredictionRequest) ([]int, error) {
	raw, err := RequestFrame(reqs)
	if err != nil {
		return nil, err
	}
	features, err := dataset.PreprocessFeatures(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess request: %w", err)
	}

	model := p.Model()
	if model == nil {
		return nil, ErrNoModel
	}
	labels, err := model.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	for i, label := range labels {
		labels[i] = max(label, 0)
	}

	p.logPredictions(ctx, raw, labels)
	return labels, nil
}

// logPredictions writes the raw request rows with their labels. Failures are
// logged by the manager and do not fail the prediction.
func (p *Predictor) logPredictions(ctx context.Context, raw *dataset.Frame, labels []int) {
	if p.cfg.DB == nil {
		return
	}
	values := make([]any, len(labels))
	for i, label := range labels {
		values[i] = label
	}
	rows, err := raw.WithColumn(database.PredictionColumn, values)
	if err != nil {
		p.logger.Warn("failed to attach predictions", "error", err)
		return
	}
	if err := p.cfg.DB.LogPrediction(ctx, rows, p.cfg.Table); err != nil {
		p.logger.Warn("prediction served without log entry", "rows", len(labels))
	}
}

// passengerTypes fixes the logged column types regardless of batch content
var passengerTypes = map[string]dataset.ColumnType{
	"PassengerId": dataset.Numeric,
	"Pclass":      dataset.Numeric,
	"Name":        dataset.Text,
	"Sex":         dataset.Text,
	"Age":         dataset.Numeric,
	"SibSp":       dataset.Numeric,
	"Parch":       dataset.Numeric,
	"Ticket":      dataset.Text,
	"Fare":        dataset.Numeric,
	"Cabin":       dataset.Text,
	"Embarked":    dataset.Text,
}

// RequestFrame converts passengers into a frame in PassengerColumns order
func RequestFrame(reqs []models.PredictionRequest) (*dataset.Frame, error) {
	rows := make([][]any, len(reqs))
	for i := range reqs {
		rows[i] = reqs[i].Row()
	}
	frame, err := dataset.New(models.PassengerColumns, rows)
	if err != nil {
		return nil, err
	}
	return frame.WithTypes(passengerTypes)
}
