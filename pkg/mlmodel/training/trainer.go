package training

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
)

var (
	// ErrInvalidState is returned when an operation is called out of
	// lifecycle order.
	ErrInvalidState = errors.New("invalid trainer state")
	// ErrNoModels is returned when a selection is requested from an empty
	// registry.
	ErrNoModels = errors.New("no models to select from")
)

// State is a step of the trainer lifecycle. A trainer only moves forward:
// constructed, trained, scored, selected.
type State int

const (
	StateConstructed State = iota
	StateTrained
	StateScored
	StateSelected
)

func (s State) String() string {
	switch s {
	case StateConstructed:
		return "constructed"
	case StateTrained:
		return "trained"
	case StateScored:
		return "scored"
	case StateSelected:
		return "selected"
	default:
		return "unknown"
	}
}

// ModelTrainer owns one training run: the registry of pipelines built for the
// requested models, their fit against a single (X, y) pair, their scores and
// the selected winner. Instances are not safe for concurrent use and are not
// reusable; start a new run with a new trainer.
type ModelTrainer struct {
	X        *dataset.Frame
	y        []float64
	builder  *pipeline.Builder
	registry *pipeline.Registry
	scores   *ScoreTable
	state    State
	logger   *slog.Logger
}

// NewModelTrainer builds one pipeline per name with builder. Unknown names and
// attributes absent from X are configuration errors.
func NewModelTrainer(X *dataset.Frame, y []float64, builder *pipeline.Builder, names []string) (*ModelTrainer, error) {
	if builder == nil {
		return nil, errors.New("nil pipeline builder")
	}
	if err := checkData(X, y); err != nil {
		return nil, err
	}
	if err := builder.Attributes().CheckCoverage(X.Columns()); err != nil {
		return nil, err
	}
	registry, err := builder.Build(names)
	if err != nil {
		return nil, err
	}
	return &ModelTrainer{X: X, y: y, builder: builder, registry: registry, logger: slog.Default()}, nil
}

func checkData(X *dataset.Frame, y []float64) error {
	if X == nil {
		return errors.New("nil feature frame")
	}
	if X.NumRows() != len(y) {
		return errors.Errorf("X has %d rows but y has %d labels", X.NumRows(), len(y))
	}
	return nil
}

// WithLogger replaces the logger used for progress messages.
func (t *ModelTrainer) WithLogger(logger *slog.Logger) *ModelTrainer {
	if logger != nil {
		t.logger = logger
	}
	return t
}

// State returns the current lifecycle step.
func (t *ModelTrainer) State() State { return t.state }

// Registry returns the pipelines owned by this run.
func (t *ModelTrainer) Registry() *pipeline.Registry { return t.registry }

// Scores returns the table computed by the last GenerateScores call, or nil.
func (t *ModelTrainer) Scores() *ScoreTable { return t.scores }

// TrainModels fits every registered pipeline on the same data, one after
// another, and stops at the first failure. It may only be called once.
func (t *ModelTrainer) TrainModels() (*pipeline.Registry, error) {
	if t.state != StateConstructed {
		return nil, errors.Wrapf(ErrInvalidState, "train called in state %s", t.state)
	}
	for _, name := range t.registry.Names() {
		p, err := t.registry.Get(name)
		if err != nil {
			return nil, err
		}
		t.logger.Info("training model", "model", name, "kind", p.Kind, "rows", t.X.NumRows())
		if err := p.Fit(t.X, t.y); err != nil {
			return nil, errors.Wrapf(err, "fit %s", name)
		}
	}
	t.state = StateTrained
	return t.registry, nil
}

// GenerateScores computes the accuracy of every registered pipeline on the
// held-out pair. Pipelines that were never fitted report their own error.
func (t *ModelTrainer) GenerateScores(Xtest *dataset.Frame, ytest []float64) (*ScoreTable, error) {
	if err := checkData(Xtest, ytest); err != nil {
		return nil, err
	}
	table := NewScoreTable()
	for _, name := range t.registry.Names() {
		p, err := t.registry.Get(name)
		if err != nil {
			return nil, err
		}
		score, err := p.Score(Xtest, ytest)
		if err != nil {
			return nil, errors.Wrapf(err, "score %s", name)
		}
		t.logger.Info("model scored", "model", name, "accuracy", score)
		table.Set(name, score)
	}
	t.scores = table
	if t.state == StateTrained {
		t.state = StateScored
	}
	return table, nil
}

// BestModel scores every pipeline and returns the name with the highest
// score. The model registered first wins a tie.
func (t *ModelTrainer) BestModel(Xtest *dataset.Frame, ytest []float64) (string, error) {
	table, err := t.GenerateScores(Xtest, ytest)
	if err != nil {
		return "", err
	}
	name, _, ok := table.Best()
	if !ok {
		return "", ErrNoModels
	}
	if t.state == StateScored {
		t.state = StateSelected
	}
	return name, nil
}

// SaveModel writes the named fitted pipeline to path, replacing any file
// already there. Nothing is written for an unknown name.
func (t *ModelTrainer) SaveModel(name, path string) error {
	p, err := t.registry.Get(name)
	if err != nil {
		return err
	}
	return pipeline.Save(p, path)
}
