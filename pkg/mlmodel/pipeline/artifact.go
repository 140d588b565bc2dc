package pipeline

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
)

// ArtifactVersion is written into every saved pipeline.
const ArtifactVersion = 1

type artifact struct {
	Version     int
	Name        string
	Kind        string
	Attributes  []Attribute
	Transformer *ColumnTransformer
	Estimator   estimators.Classifier
}

// Encode writes a fitted pipeline to w.
func Encode(w io.Writer, p *Pipeline) error {
	if !p.fitted {
		return errors.Wrap(ErrNotFitted, p.Name)
	}
	return gob.NewEncoder(w).Encode(artifact{
		Version:     ArtifactVersion,
		Name:        p.Name,
		Kind:        p.Kind,
		Attributes:  p.Attributes.Attributes(),
		Transformer: p.Transformer,
		Estimator:   p.Estimator,
	})
}

// Decode reads a pipeline written by Encode.
func Decode(r io.Reader) (*Pipeline, error) {
	var a artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(err, "decode artifact")
	}
	if a.Version != ArtifactVersion {
		return nil, errors.Wrapf(ErrArtifactVersion, "got %d, want %d", a.Version, ArtifactVersion)
	}
	attrs, err := NewAttributeTypeMap(a.Attributes...)
	if err != nil {
		return nil, err
	}
	if a.Transformer == nil || a.Estimator == nil {
		return nil, errors.New("artifact is missing its transformer or estimator")
	}
	return &Pipeline{
		Name:        a.Name,
		Kind:        a.Kind,
		Attributes:  attrs,
		Transformer: a.Transformer,
		Estimator:   a.Estimator,
		fitted:      true,
	}, nil
}

// Save writes a fitted pipeline to path, replacing any existing file. The
// artifact is written to a temporary file in the same directory and renamed
// into place, so a failed save leaves the previous file intact.
// Filesystem errors are returned as they are.
func Save(p *Pipeline, path string) error {
	if !p.fitted {
		return errors.Wrap(ErrNotFitted, p.Name)
	}
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := Encode(f, p); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Load reads a pipeline saved with Save.
func Load(path string) (*Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
