package pipeline

import (
	"github.com/pkg/errors"

	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/preprocess"
)

// AttributeType selects the preprocessing chain applied to a column.
type AttributeType string

const (
	Numeric     AttributeType = "numeric"
	Ordinal     AttributeType = "ordinal"
	Categorical AttributeType = "categorical"
)

// Attribute describes one input column. Categories fixes the code order of
// an ordinal column or the indicator order of a categorical one; when empty
// the sorted observed labels are used. Strategy names the imputation
// strategy, defaulting to mean for numeric columns and most_frequent
// otherwise.
type Attribute struct {
	Name       string        `yaml:"name" json:"name"`
	Type       AttributeType `yaml:"type" json:"type"`
	Categories []string      `yaml:"categories,omitempty" json:"categories,omitempty"`
	Strategy   string        `yaml:"strategy,omitempty" json:"strategy,omitempty"`
}

// AttributeTypeMap is an ordered, immutable mapping from column name to
// attribute. Its order is the order of the pipeline's output features.
type AttributeTypeMap struct {
	attrs []Attribute
	index map[string]int
}

// NewAttributeTypeMap validates attrs and builds the map.
func NewAttributeTypeMap(attrs ...Attribute) (*AttributeTypeMap, error) {
	if len(attrs) == 0 {
		return nil, errors.Wrap(ErrInvalidAttribute, "attribute map is empty")
	}
	m := &AttributeTypeMap{
		attrs: make([]Attribute, len(attrs)),
		index: make(map[string]int, len(attrs)),
	}
	for i, a := range attrs {
		if a.Name == "" {
			return nil, errors.Wrapf(ErrInvalidAttribute, "attribute %d has no name", i)
		}
		if _, dup := m.index[a.Name]; dup {
			return nil, errors.Wrapf(ErrInvalidAttribute, "attribute %q listed twice", a.Name)
		}
		if err := validateAttribute(a); err != nil {
			return nil, err
		}
		a.Categories = append([]string(nil), a.Categories...)
		m.attrs[i] = a
		m.index[a.Name] = i
	}
	return m, nil
}

func validateAttribute(a Attribute) error {
	switch a.Type {
	case Numeric:
		switch a.Strategy {
		case "", preprocess.StrategyMean, preprocess.StrategyMedian,
			preprocess.StrategyMostFrequent, preprocess.StrategyConstant:
		default:
			return errors.Wrapf(ErrInvalidAttribute, "attribute %q: strategy %q not valid for numeric columns", a.Name, a.Strategy)
		}
	case Ordinal, Categorical:
		switch a.Strategy {
		case "", preprocess.StrategyMostFrequent, preprocess.StrategyConstant:
		default:
			return errors.Wrapf(ErrInvalidAttribute, "attribute %q: strategy %q not valid for %s columns", a.Name, a.Strategy, a.Type)
		}
		seen := make(map[string]bool, len(a.Categories))
		for _, c := range a.Categories {
			if seen[c] {
				return errors.Wrapf(ErrInvalidAttribute, "attribute %q: category %q listed twice", a.Name, c)
			}
			seen[c] = true
		}
	default:
		return errors.Wrapf(ErrInvalidAttribute, "attribute %q: unknown type %q", a.Name, a.Type)
	}
	return nil
}

func (m *AttributeTypeMap) Len() int { return len(m.attrs) }

// Attributes returns a copy of the attributes in order.
func (m *AttributeTypeMap) Attributes() []Attribute {
	out := make([]Attribute, len(m.attrs))
	for i, a := range m.attrs {
		a.Categories = append([]string(nil), a.Categories...)
		out[i] = a
	}
	return out
}

// Names returns the column names in order.
func (m *AttributeTypeMap) Names() []string {
	out := make([]string, len(m.attrs))
	for i, a := range m.attrs {
		out[i] = a.Name
	}
	return out
}

// Get returns the attribute for a column.
func (m *AttributeTypeMap) Get(name string) (Attribute, bool) {
	i, ok := m.index[name]
	if !ok {
		return Attribute{}, false
	}
	return m.attrs[i], true
}

// NamesOfType returns, in order, the columns of the given type.
func (m *AttributeTypeMap) NamesOfType(t AttributeType) []string {
	var out []string
	for _, a := range m.attrs {
		if a.Type == t {
			out = append(out, a.Name)
		}
	}
	return out
}

// CheckCoverage returns ErrMissingColumn naming the first mapped column that
// is not among columns.
func (m *AttributeTypeMap) CheckCoverage(columns []string) error {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, a := range m.attrs {
		if !present[a.Name] {
			return errors.Wrap(ErrMissingColumn, a.Name)
		}
	}
	return nil
}
