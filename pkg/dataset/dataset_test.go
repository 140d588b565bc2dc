package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]any{{1, 2}, {3}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRaggedRows))
}

func TestNewNormalizesNumbers(t *testing.T) {
	f, err := New([]string{"i", "s", "b"}, [][]any{{3, "x", true}})
	require.NoError(t, err)

	assert.Equal(t, 3.0, f.Value(0, "i"))
	assert.Equal(t, "x", f.Value(0, "s"))
	assert.Equal(t, 1.0, f.Value(0, "b"))
}

func TestSelectAndDrop(t *testing.T) {
	f, err := New([]string{"a", "b", "c"}, [][]any{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)

	sel, err := f.Select("c", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, sel.Columns())
	assert.Equal(t, 6.0, sel.Value(1, "c"))

	_, err = f.Select("missing")
	assert.True(t, errors.Is(err, ErrUnknownColumn))

	dropped := f.Drop("b", "not-there")
	assert.Equal(t, []string{"a", "c"}, dropped.Columns())
	assert.Equal(t, 2, dropped.NumRows())
}

func TestColumnTypes(t *testing.T) {
	f, err := New([]string{"Age", "Cabin", "Fare", "Sex"}, [][]any{
		{nil, nil, 7.25, "male"},
		{nil, nil, nil, "female"},
	})
	require.NoError(t, err)
	assert.Equal(t, Text, f.Type("Age"))
	assert.Equal(t, Numeric, f.Type("Fare"))
	assert.Equal(t, Text, f.Type("Sex"))

	typed, err := f.WithTypes(map[string]ColumnType{"Age": Numeric})
	require.NoError(t, err)
	assert.Equal(t, Numeric, typed.Type("Age"))
	assert.Equal(t, Text, f.Type("Age"))

	sel, err := typed.Select("Age", "Sex")
	require.NoError(t, err)
	assert.Equal(t, Numeric, sel.Type("Age"))
	assert.Equal(t, Numeric, typed.Drop("Cabin").Type("Age"))
	assert.Equal(t, Numeric, typed.Take([]int{1}).Type("Age"))
	with, err := typed.WithColumn("prediction", []any{0, 1})
	require.NoError(t, err)
	assert.Equal(t, Numeric, with.Type("Age"))

	_, err = f.WithTypes(map[string]ColumnType{"Missing": Numeric})
	assert.True(t, errors.Is(err, ErrUnknownColumn))
}

func TestReadCSV(t *testing.T) {
	doc := "PassengerId,Name,Age,Embarked\n1,John,22,S\n2,Jane,,NA\n"
	f, err := ReadCSV(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"PassengerId", "Name", "Age", "Embarked"}, f.Columns())
	assert.Equal(t, 2, f.NumRows())
	assert.Equal(t, 22.0, f.Value(0, "Age"))
	assert.Equal(t, "S", f.Value(0, "Embarked"))
	assert.Nil(t, f.Value(1, "Age"))
	assert.Nil(t, f.Value(1, "Embarked"))
}

func TestWriteCSVRoundTrip(t *testing.T) {
	f, err := New([]string{"a", "b"}, [][]any{{1.5, "x"}, {nil, "y"}})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, f))
	assert.Equal(t, "a,b\n1.5,x\n,y\n", buf.String())

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, f.Records(), back.Records())
}

func TestPreprocessFeatures(t *testing.T) {
	f, err := FromColumns(
		[]string{"PassengerId", "Name", "Cabin", "Ticket", "SibSp", "Parch"},
		[][]any{
			{1, 2, 3},
			{"John", "Jane", "Alice"},
			{"A123", "B456", "C789"},
			{"T123", "T456", "T789"},
			{0, 1, 2},
			{0, 0, 1},
		},
	)
	require.NoError(t, err)

	out, err := PreprocessFeatures(f)
	require.NoError(t, err)

	assert.Equal(t, []string{"SibSp", "Parch", "FamilySize", "IsAlone"}, out.Columns())
	familySize, _ := out.Column("FamilySize")
	isAlone, _ := out.Column("IsAlone")
	assert.Equal(t, []any{0.0, 1.0, 3.0}, familySize)
	assert.Equal(t, []any{1.0, 0.0, 0.0}, isAlone)
}

func TestLoadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.csv")
	doc := "PassengerId,Name,Cabin,Ticket,SibSp,Parch,Survived\n1,a,c,t,0,0,1\n2,b,c,t,1,1,0\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	X, y, err := LoadData(path, "Survived")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, y)
	assert.Equal(t, []string{"SibSp", "Parch", "FamilySize", "IsAlone"}, X.Columns())
}

func TestTrainTestSplitIsDeterministic(t *testing.T) {
	rows := make([][]any, 10)
	y := make([]float64, 10)
	for i := range rows {
		rows[i] = []any{i}
		y[i] = float64(i)
	}
	X, err := New([]string{"id"}, rows)
	require.NoError(t, err)

	xTrain, xTest, yTrain, yTest, err := TrainTestSplit(X, y, 0.25, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, xTrain.NumRows())
	assert.Equal(t, 3, xTest.NumRows())
	assert.Len(t, yTrain, 7)
	assert.Len(t, yTest, 3)

	for i := 0; i < xTest.NumRows(); i++ {
		assert.Equal(t, yTest[i], xTest.Value(i, "id"))
	}

	_, again, _, _, err := TrainTestSplit(X, y, 0.25, 7)
	require.NoError(t, err)
	assert.Equal(t, xTest.Records(), again.Records())

	_, _, _, _, err = TrainTestSplit(X, y, 1.5, 7)
	assert.Error(t, err)
}
