package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
)

// TrainingConfig is the training catalogue: the schema of the training data
// and the models that may be requested by name.
type TrainingConfig struct {
	Target     string               `yaml:"target"`
	TestRatio  float64              `yaml:"test_ratio"`
	Seed       int64                `yaml:"seed"`
	Attributes []pipeline.Attribute `yaml:"attributes"`
	Models     []pipeline.ModelSpec `yaml:"models"`
}

// LoadTrainingConfig reads and validates a YAML training catalogue
func LoadTrainingConfig(path string) (*TrainingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read training config: %w", err)
	}

	cfg := &TrainingConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse training config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid training config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *TrainingConfig) applyDefaults() {
	if c.Target == "" {
		c.Target = "Survived"
	}
	if c.TestRatio == 0 {
		c.TestRatio = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
}

// Validate checks the catalogue
func (c *TrainingConfig) Validate() error {
	if c.TestRatio <= 0 || c.TestRatio >= 1 {
		return fmt.Errorf("test_ratio must be in (0, 1), got %v", c.TestRatio)
	}
	if _, err := c.AttributeMap(); err != nil {
		return err
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	seen := make(map[string]bool, len(c.Models))
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model without a name")
		}
		if seen[m.Name] {
			return fmt.Errorf("model %q listed twice", m.Name)
		}
		seen[m.Name] = true
		if !estimators.IsKnown(m.Kind) {
			return fmt.Errorf("model %q has unknown kind %q (supported: %v)", m.Name, m.Kind, estimators.Kinds())
		}
	}
	return nil
}

// AttributeMap builds the attribute type map declared by the catalogue
func (c *TrainingConfig) AttributeMap() (*pipeline.AttributeTypeMap, error) {
	return pipeline.NewAttributeTypeMap(c.Attributes...)
}

// ModelNames returns the catalogue model names in declaration order
func (c *TrainingConfig) ModelNames() []string {
	names := make([]string, len(c.Models))
	for i, m := range c.Models {
		names[i] = m.Name
	}
	return names
}

// HasModel reports whether name is declared in the catalogue
func (c *TrainingConfig) HasModel(name string) bool {
	for _, m := range c.Models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// Builder returns a pipeline builder for the catalogue
func (c *TrainingConfig) Builder() (*pipeline.Builder, error) {
	attrs, err := c.AttributeMap()
	if err != nil {
		return nil, err
	}
	return pipeline.NewBuilder(attrs, c.Models, c.Seed)
}
