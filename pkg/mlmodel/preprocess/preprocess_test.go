package preprocess

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericImputerStrategies(t *testing.T) {
	values := []float64{1, math.NaN(), 3, 8}

	mean, err := NewNumericImputer(StrategyMean)
	require.NoError(t, err)
	require.NoError(t, mean.Fit(values))
	out, err := mean.Transform(values)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4, 3, 8}, out)

	median, err := NewNumericImputer(StrategyMedian)
	require.NoError(t, err)
	require.NoError(t, median.Fit(values))
	assert.Equal(t, 3.0, median.Value)

	_, err = NewNumericImputer("mode")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNumericImputerAllMissing(t *testing.T) {
	im, err := NewNumericImputer("")
	require.NoError(t, err)
	assert.ErrorIs(t, im.Fit([]float64{math.NaN()}), ErrNoObservations)

	_, err = im.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestCategoryImputerMostFrequent(t *testing.T) {
	im, err := NewCategoryImputer("")
	require.NoError(t, err)

	values := []string{"S", "C", "", "S", "Q"}
	missing := []bool{false, false, true, false, false}
	require.NoError(t, im.Fit(values, missing))

	out, err := im.Transform(values, missing)
	require.NoError(t, err)
	assert.Equal(t, []string{"S", "C", "S", "S", "Q"}, out)

	_, err = NewCategoryImputer(StrategyMean)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestStandardScaler(t *testing.T) {
	var s StandardScaler
	require.NoError(t, s.Fit([]float64{1, 3}))
	out, err := s.Transform([]float64{1, 3, 2})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{-1, 1, 0}, out, 1e-12)

	var constant StandardScaler
	require.NoError(t, constant.Fit([]float64{5, 5, 5}))
	out, err = constant.Transform([]float64{5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1}, out)
}

func TestOrdinalEncoderKeepsCallerOrder(t *testing.T) {
	e := OrdinalEncoder{Categories: []string{"3", "2", "1"}}
	require.NoError(t, e.Fit([]string{"1", "2"}))

	out, err := e.Transform([]string{"1", "3", "4"})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 0, UnknownOrdinal}, out)
}

func TestOneHotEncoderUnknownIsAllZero(t *testing.T) {
	var e OneHotEncoder
	require.NoError(t, e.Fit([]string{"male", "female", "male"}))
	assert.Equal(t, []string{"female", "male"}, e.Categories)

	out, err := e.Transform([]string{"male", "other"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {0, 0}}, out)
	assert.Equal(t, []string{"Sex_female", "Sex_male"}, e.FeatureNames("Sex"))
}
