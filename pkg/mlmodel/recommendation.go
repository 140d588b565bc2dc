package mlmodel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/estimators"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
)

// DataAnalysis summarises a training frame for model recommendation
type DataAnalysis struct {
	Size             string  `json:"size"` // small, medium or large
	RecordCount      int     `json:"record_count"`
	FeatureCount     int     `json:"feature_count"`
	NumericalRatio   float64 `json:"numerical_ratio"`
	CategoricalRatio float64 `json:"categorical_ratio"`
	MissingRatio     float64 `json:"missing_ratio"`
}

// ModelRecommendation ranks catalogue models for a dataset
type ModelRecommendation struct {
	Models    []string       `json:"models"`
	Scores    map[string]int `json:"scores"`
	Reasoning string         `json:"reasoning"`
	Data      *DataAnalysis  `json:"data"`
}

// RecommendationEngine analyzes training data to recommend catalogue models
type RecommendationEngine struct{}

// NewRecommendationEngine creates a new recommendation engine
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{}
}

// AnalyzeData summarises the attribute columns of X
func (re *RecommendationEngine) AnalyzeData(X *dataset.Frame, attrs *pipeline.AttributeTypeMap) *DataAnalysis {
	numerical, categorical, missing, cells := 0, 0, 0, 0
	for _, a := range attrs.Attributes() {
		column, ok := X.Column(a.Name)
		if !ok {
			continue
		}
		if a.Type == pipeline.Numeric {
			numerical++
		} else {
			categorical++
		}
		for _, v := range column {
			cells++
			if dataset.IsMissing(v) {
				missing++
			}
		}
	}

	analysis := &DataAnalysis{
		RecordCount:  X.NumRows(),
		FeatureCount: numerical + categorical,
		Size:         "small",
	}
	if total := numerical + categorical; total > 0 {
		analysis.NumericalRatio = float64(numerical) / float64(total)
		analysis.CategoricalRatio = float64(categorical) / float64(total)
	}
	if cells > 0 {
		analysis.MissingRatio = float64(missing) / float64(cells)
	}
	switch {
	case X.NumRows() >= 10000:
		analysis.Size = "large"
	case X.NumRows() >= 1000:
		analysis.Size = "medium"
	}
	return analysis
}

// Recommend scores every catalogue model for the data and returns the top n
// names, best first. Equal scores keep catalogue order. n <= 0 returns all.
func (re *RecommendationEngine) Recommend(data *DataAnalysis, catalogue []pipeline.ModelSpec, n int) (*ModelRecommendation, error) {
	if len(catalogue) == 0 {
		return nil, fmt.Errorf("empty model catalogue")
	}
	kindScores := re.scoreKinds(data)

	scores := make(map[string]int, len(catalogue))
	ranked := make([]string, 0, len(catalogue))
	for _, m := range catalogue {
		scores[m.Name] = kindScores[m.Kind]
		ranked = append(ranked, m.Name)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i]] > scores[ranked[j]]
	})
	if n > 0 && n < len(ranked) {
		ranked = ranked[:n]
	}

	return &ModelRecommendation{
		Models:    ranked,
		Scores:    scores,
		Reasoning: re.generateReasoning(data, ranked, scores),
		Data:      data,
	}, nil
}

func (re *RecommendationEngine) scoreKinds(data *DataAnalysis) map[string]int {
	scores := map[string]int{
		estimators.KindLogisticRegression: 0,
		estimators.KindDecisionTree:       0,
		estimators.KindRandomForest:       0,
		estimators.KindGradientBoosting:   0,
		estimators.KindKNeighbors:         0,
		estimators.KindDummy:              -1, // the baseline never wins on merit
	}

	// Scoring based on data size
	switch data.Size {
	case "small":
		scores[estimators.KindDecisionTree] += 2
		scores[estimators.KindLogisticRegression] += 1
		scores[estimators.KindKNeighbors] += 1
	case "medium":
		scores[estimators.KindRandomForest] += 2
		scores[estimators.KindGradientBoosting] += 2
		scores[estimators.KindLogisticRegression] += 1
	case "large":
		scores[estimators.KindGradientBoosting] += 3
		scores[estimators.KindRandomForest] += 1
		scores[estimators.KindLogisticRegression] += 1
	}

	// Scoring based on feature types
	if data.NumericalRatio > 0.7 {
		scores[estimators.KindLogisticRegression] += 3
		scores[estimators.KindKNeighbors] += 1
	} else if data.NumericalRatio < 0.3 {
		scores[estimators.KindDecisionTree] += 2
		scores[estimators.KindRandomForest] += 2
	} else {
		scores[estimators.KindRandomForest] += 1
		scores[estimators.KindGradientBoosting] += 1
	}

	// Imputed cells favour ensembles over distance-based models
	if data.MissingRatio > 0.1 {
		scores[estimators.KindRandomForest] += 1
		scores[estimators.KindGradientBoosting] += 1
		scores[estimators.KindKNeighbors] -= 1
	}

	if data.FeatureCount > 10 {
		scores[estimators.KindRandomForest] += 1
		scores[estimators.KindGradientBoosting] += 1
	}

	return scores
}

// generateReasoning creates a human-readable explanation for the recommendation
func (re *RecommendationEngine) generateReasoning(data *DataAnalysis, ranked []string, scores map[string]int) string {
	reasons := []string{fmt.Sprintf("Recommended %s based on:", strings.Join(ranked, ", "))}
	reasons = append(reasons, fmt.Sprintf("- %s dataset (%d records, %d features)", data.Size, data.RecordCount, data.FeatureCount))
	reasons = append(reasons, fmt.Sprintf("- %.1f%% numerical features", data.NumericalRatio*100))
	if data.MissingRatio > 0.1 {
		reasons = append(reasons, fmt.Sprintf("- %.1f%% missing cells imputed", data.MissingRatio*100))
	}
	for _, name := range ranked {
		reasons = append(reasons, fmt.Sprintf("  %s: %d", name, scores[name]))
	}
	return strings.Join(reasons, "\n")
}
