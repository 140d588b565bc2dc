package pipeline

import (
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/mat"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/preprocess"
)

// ColumnTransform is the fitted chain for one attribute. Only the steps that
// belong to the attribute's type are set.
type ColumnTransform struct {
	Attribute       Attribute
	NumericImputer  *preprocess.NumericImputer
	Scaler          *preprocess.StandardScaler
	CategoryImputer *preprocess.CategoryImputer
	Ordinal         *preprocess.OrdinalEncoder
	OneHot          *preprocess.OneHotEncoder
}

// ColumnTransformer applies one ColumnTransform per attribute and
// concatenates the outputs, in attribute order, into a dense matrix.
// Frame columns without an attribute are ignored.
type ColumnTransformer struct {
	Columns []*ColumnTransform
}

func newColumnTransformer(attrs *AttributeTypeMap) (*ColumnTransformer, error) {
	ct := &ColumnTransformer{}
	for _, a := range attrs.Attributes() {
		col := &ColumnTransform{Attribute: a}
		switch a.Type {
		case Numeric:
			im, err := preprocess.NewNumericImputer(a.Strategy)
			if err != nil {
				return nil, errors.Wrap(ErrInvalidAttribute, err.Error())
			}
			col.NumericImputer = im
			col.Scaler = &preprocess.StandardScaler{}
		case Ordinal:
			im, err := preprocess.NewCategoryImputer(a.Strategy)
			if err != nil {
				return nil, errors.Wrap(ErrInvalidAttribute, err.Error())
			}
			col.CategoryImputer = im
			col.Ordinal = &preprocess.OrdinalEncoder{Categories: a.Categories}
		case Categorical:
			im, err := preprocess.NewCategoryImputer(a.Strategy)
			if err != nil {
				return nil, errors.Wrap(ErrInvalidAttribute, err.Error())
			}
			col.CategoryImputer = im
			col.OneHot = &preprocess.OneHotEncoder{Categories: a.Categories}
		}
		ct.Columns = append(ct.Columns, col)
	}
	return ct, nil
}

// Fit learns every column's statistics from f.
func (ct *ColumnTransformer) Fit(f *dataset.Frame) error {
	for _, col := range ct.Columns {
		if err := col.fit(f); err != nil {
			return err
		}
	}
	return nil
}

// Transform produces the feature matrix for f.
func (ct *ColumnTransformer) Transform(f *dataset.Frame) (*mat.Dense, error) {
	blocks := make([][][]float64, len(ct.Columns))
	width := 0
	for k, col := range ct.Columns {
		block, err := col.transform(f)
		if err != nil {
			return nil, err
		}
		blocks[k] = block
		if len(block) > 0 {
			width += len(block[0])
		}
	}
	rows := f.NumRows()
	if rows == 0 || width == 0 {
		return nil, errors.Errorf("cannot build a %dx%d feature matrix", rows, width)
	}

	out := mat.NewDense(rows, width, nil)
	offset := 0
	for _, block := range blocks {
		for i, row := range block {
			for j, v := range row {
				out.Set(i, offset+j, v)
			}
		}
		offset += len(block[0])
	}
	return out, nil
}

// FeatureNames returns the names of the output columns in order.
func (ct *ColumnTransformer) FeatureNames() []string {
	var names []string
	for _, col := range ct.Columns {
		if col.OneHot != nil {
			names = append(names, col.OneHot.FeatureNames(col.Attribute.Name)...)
		} else {
			names = append(names, col.Attribute.Name)
		}
	}
	return names
}

func (col *ColumnTransform) fit(f *dataset.Frame) error {
	name := col.Attribute.Name
	switch col.Attribute.Type {
	case Numeric:
		values, err := numericColumn(f, name)
		if err != nil {
			return err
		}
		if err := col.NumericImputer.Fit(values); err != nil {
			return errors.Wrapf(err, "impute %q", name)
		}
		filled, err := col.NumericImputer.Transform(values)
		if err != nil {
			return err
		}
		return errors.Wrapf(col.Scaler.Fit(filled), "scale %q", name)
	default:
		labels, missing, err := labelColumn(f, name)
		if err != nil {
			return err
		}
		if err := col.CategoryImputer.Fit(labels, missing); err != nil {
			return errors.Wrapf(err, "impute %q", name)
		}
		filled, err := col.CategoryImputer.Transform(labels, missing)
		if err != nil {
			return err
		}
		if col.Ordinal != nil {
			return col.Ordinal.Fit(filled)
		}
		return col.OneHot.Fit(filled)
	}
}

// transform returns one output row per frame row.
func (col *ColumnTransform) transform(f *dataset.Frame) ([][]float64, error) {
	name := col.Attribute.Name
	switch col.Attribute.Type {
	case Numeric:
		values, err := numericColumn(f, name)
		if err != nil {
			return nil, err
		}
		filled, err := col.NumericImputer.Transform(values)
		if err != nil {
			return nil, errors.Wrapf(err, "impute %q", name)
		}
		scaled, err := col.Scaler.Transform(filled)
		if err != nil {
			return nil, errors.Wrapf(err, "scale %q", name)
		}
		return asColumn(scaled), nil
	default:
		labels, missing, err := labelColumn(f, name)
		if err != nil {
			return nil, err
		}
		filled, err := col.CategoryImputer.Transform(labels, missing)
		if err != nil {
			return nil, errors.Wrapf(err, "impute %q", name)
		}
		if col.Ordinal != nil {
			codes, err := col.Ordinal.Transform(filled)
			if err != nil {
				return nil, errors.Wrapf(err, "encode %q", name)
			}
			return asColumn(codes), nil
		}
		out, err := col.OneHot.Transform(filled)
		return out, errors.Wrapf(err, "encode %q", name)
	}
}

// numericColumn reads a column as float64 with NaN for missing cells. Text
// that does not parse as a number is a fit error.
func numericColumn(f *dataset.Frame, name string) ([]float64, error) {
	cells, ok := f.Column(name)
	if !ok {
		return nil, errors.Wrap(ErrMissingColumn, name)
	}
	out := make([]float64, len(cells))
	for i, v := range cells {
		if dataset.IsMissing(v) {
			out[i] = math.NaN()
			continue
		}
		x, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q row %d is not numeric", name, i)
		}
		out[i] = x
	}
	return out, nil
}

// labelColumn reads a column as category labels with a missing mask.
func labelColumn(f *dataset.Frame, name string) ([]string, []bool, error) {
	cells, ok := f.Column(name)
	if !ok {
		return nil, nil, errors.Wrap(ErrMissingColumn, name)
	}
	labels := make([]string, len(cells))
	missing := make([]bool, len(cells))
	for i, v := range cells {
		if dataset.IsMissing(v) {
			missing[i] = true
			continue
		}
		labels[i] = cast.ToString(v)
	}
	return labels, missing, nil
}

func asColumn(values []float64) [][]float64 {
	out := make([][]float64, len(values))
	for i, v := range values {
		out[i] = []float64{v}
	}
	return out
}
