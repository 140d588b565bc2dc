package metadatastore

import (
	"errors"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// ErrRunNotFound is returned when a run ID is not in the store
var ErrRunNotFound = errors.New("training run not found")

// MetadataStore is the interface for training-run bookkeeping.
// Model artifacts themselves live on disk; the store records which run
// produced them, its scores and its outcome.
type MetadataStore interface {
	SaveRun(run *models.TrainingRun) error
	GetRun(id string) (*models.TrainingRun, error)
	ListRuns(kind models.RunKind) ([]*models.TrainingRun, error)
	LatestRegistered() (*models.TrainingRun, error)
	DeleteRun(id string) error
	Close() error
}
