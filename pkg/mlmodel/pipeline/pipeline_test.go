package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
)

func passengerAttributes(t *testing.T) *AttributeTypeMap {
	t.Helper()
	attrs, err := NewAttributeTypeMap(
		Attribute{Name: "Age", Type: Numeric, Strategy: "median"},
		Attribute{Name: "Fare", Type: Numeric},
		Attribute{Name: "Pclass", Type: Ordinal, Categories: []string{"1", "2", "3"}},
		Attribute{Name: "Sex", Type: Categorical},
		Attribute{Name: "Embarked", Type: Categorical},
	)
	require.NoError(t, err)
	return attrs
}

func passengers(t *testing.T) (*dataset.Frame, []float64) {
	t.Helper()
	X, err := dataset.New(
		[]string{"Age", "Fare", "Pclass", "Sex", "Embarked", "Extra"},
		[][]any{
			{22, 7.25, 3, "male", "S", "x"},
			{38, 71.28, 1, "female", "C", "x"},
			{26, 7.92, 3, "female", "S", "x"},
			{35, 53.1, 1, "female", "S", "x"},
			{nil, 8.05, 3, "male", nil, "x"},
			{54, 51.86, 1, "male", "S", "x"},
			{2, 21.07, 3, "male", "S", "x"},
			{27, 11.13, 3, "female", "S", "x"},
		},
	)
	require.NoError(t, err)
	return X, []float64{0, 1, 1, 1, 0, 0, 0, 1}
}

func TestNewAttributeTypeMapValidation(t *testing.T) {
	_, err := NewAttributeTypeMap()
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	_, err = NewAttributeTypeMap(Attribute{Name: "a", Type: "text"})
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	_, err = NewAttributeTypeMap(Attribute{Name: "a", Type: Numeric}, Attribute{Name: "a", Type: Numeric})
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	_, err = NewAttributeTypeMap(Attribute{Name: "a", Type: Categorical, Strategy: "mean"})
	assert.ErrorIs(t, err, ErrInvalidAttribute)

	attrs := passengerAttributes(t)
	assert.Equal(t, []string{"Age", "Fare", "Pclass", "Sex", "Embarked"}, attrs.Names())
	assert.Equal(t, []string{"Sex", "Embarked"}, attrs.NamesOfType(Categorical))
}

func TestBuildKeepsRequestedOrder(t *testing.T) {
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)

	reg, err := b.Build([]string{"random_forest", "dummy", "logistic_regression"})
	require.NoError(t, err)
	assert.Equal(t, []string{"random_forest", "dummy", "logistic_regression"}, reg.Names())

	p, err := reg.Get("dummy")
	require.NoError(t, err)
	assert.False(t, p.Fitted())

	_, err = reg.Get("svm")
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestBuildRejectsUnknownModel(t *testing.T) {
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)

	_, err = b.Build([]string{"dummy", "svm"})
	assert.ErrorIs(t, err, ErrUnknownModel)

	_, err = NewBuilder(passengerAttributes(t), []ModelSpec{{Name: "m", Kind: "svm"}}, 1)
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestFitPredictAndFeatureLayout(t *testing.T) {
	X, y := passengers(t)
	b, err := NewBuilder(passengerAttributes(t), []ModelSpec{
		{Name: "tree", Kind: estimators.KindDecisionTree, Params: estimators.Params{"max_depth": 4}},
	}, 1)
	require.NoError(t, err)
	p, err := b.BuildOne("tree")
	require.NoError(t, err)

	_, err = p.Predict(X)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, p.Fit(X, y))
	assert.Equal(t,
		[]string{"Age", "Fare", "Pclass", "Sex_female", "Sex_male", "Embarked_C", "Embarked_S"},
		p.FeatureNames())

	pred, err := p.Predict(X)
	require.NoError(t, err)
	assert.Len(t, pred, X.NumRows())

	score, err := p.Score(X, y)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestUnknownCategoryEncodesToZeros(t *testing.T) {
	X, y := passengers(t)
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)
	p, err := b.BuildOne("dummy")
	require.NoError(t, err)
	require.NoError(t, p.Fit(X, y))

	query, err := dataset.New(
		[]string{"Age", "Fare", "Pclass", "Sex", "Embarked"},
		[][]any{{30, 10, 2, "unknown", "Q"}},
	)
	require.NoError(t, err)

	features, err := p.Transformer.Transform(query)
	require.NoError(t, err)
	row := features.RawRowView(0)
	// Sex and Embarked indicators.
	assert.Equal(t, []float64{0, 0, 0, 0}, row[3:])
	// Pclass "2" is the second caller-ordered category.
	assert.Equal(t, 1.0, row[2])

	pred, err := p.Predict(query)
	require.NoError(t, err)
	assert.Len(t, pred, 1)
}

func TestMissingColumnIsConfigurationError(t *testing.T) {
	X, y := passengers(t)
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)
	p, err := b.BuildOne("dummy")
	require.NoError(t, err)

	assert.ErrorIs(t, p.Fit(X.Drop("Fare"), y), ErrMissingColumn)
}

func TestNonNumericValueFailsFit(t *testing.T) {
	X, err := dataset.New([]string{"Age"}, [][]any{{"old"}, {3}})
	require.NoError(t, err)
	attrs, err := NewAttributeTypeMap(Attribute{Name: "Age", Type: Numeric})
	require.NoError(t, err)
	b, err := NewBuilder(attrs, DefaultCatalogue(), 1)
	require.NoError(t, err)
	p, err := b.BuildOne("dummy")
	require.NoError(t, err)

	assert.Error(t, p.Fit(X, []float64{0, 1}))
	assert.False(t, p.Fitted())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	X, y := passengers(t)
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 5)
	require.NoError(t, err)

	for _, name := range b.Models() {
		t.Run(name, func(t *testing.T) {
			p, err := b.BuildOne(name)
			require.NoError(t, err)
			require.NoError(t, p.Fit(X, y))
			want, err := p.Predict(X)
			require.NoError(t, err)

			path := filepath.Join(t.TempDir(), name+".gob")
			require.NoError(t, Save(p, path))
			// Saving again overwrites.
			require.NoError(t, Save(p, path))

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, name, loaded.Name)
			assert.True(t, loaded.Fitted())

			got, err := loaded.Predict(X)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSaveUnfitted(t *testing.T) {
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)
	p, err := b.BuildOne("dummy")
	require.NoError(t, err)

	assert.ErrorIs(t, Save(p, filepath.Join(t.TempDir(), "m.gob")), ErrNotFitted)
}

// unregistered is a classifier gob has never been told about.
type unregistered struct{}

func (unregistered) Fit(mat.Matrix, []float64) error { return nil }

func (unregistered) Predict(X mat.Matrix) ([]float64, error) {
	r, _ := X.Dims()
	return make([]float64, r), nil
}

func TestFailedSaveKeepsPreviousFile(t *testing.T) {
	X, y := passengers(t)
	b, err := NewBuilder(passengerAttributes(t), DefaultCatalogue(), 1)
	require.NoError(t, err)
	p, err := b.BuildOne("dummy")
	require.NoError(t, err)
	require.NoError(t, p.Fit(X, y))

	dir := t.TempDir()
	path := filepath.Join(dir, "model.gob")
	require.NoError(t, Save(p, path))

	p.Estimator = unregistered{}
	require.Error(t, Save(p, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "dummy", loaded.Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "model.gob", entries[0].Name())
}
