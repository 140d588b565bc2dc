package pipeline

import "github.com/pkg/errors"

// Configuration errors are raised while a pipeline or registry is being
// built. Lookup errors are raised when a model name is not registered.
var (
	ErrUnknownModel     = errors.New("unknown model")
	ErrMissingColumn    = errors.New("column missing from frame")
	ErrInvalidAttribute = errors.New("invalid attribute")
	ErrModelNotFound    = errors.New("model not found")
	ErrNotFitted        = errors.New("pipeline is not fitted")
	ErrArtifactVersion  = errors.New("unsupported artifact version")
)
