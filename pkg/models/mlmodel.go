package models

import (
	"fmt"
	"time"
)

// RunStatus represents the outcome of a training or validation run
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"    // Run started
	RunStatusRegistered RunStatus = "registered" // Best model met the threshold and was saved
	RunStatusRejected   RunStatus = "rejected"   // Best model scored below the threshold
	RunStatusValidated  RunStatus = "validated"  // Validation run completed
	RunStatusFailed     RunStatus = "failed"     // Run aborted with an error
)

// RunKind distinguishes training runs from validation runs
type RunKind string

const (
	RunKindTraining   RunKind = "training"
	RunKindValidation RunKind = "validation"
)

// TrainingRun records one training or validation invocation
type TrainingRun struct {
	ID                string              `json:"id"`
	Kind              RunKind             `json:"kind"`
	Status            RunStatus           `json:"status"`
	Models            []string            `json:"models,omitempty"`
	Scores            map[string]float64  `json:"scores,omitempty"`
	BestModel         string              `json:"best_model,omitempty"`
	BestScore         float64             `json:"best_score,omitempty"`
	Threshold         *float64            `json:"threshold,omitempty"`
	ModelArtifactPath string              `json:"model_artifact_path,omitempty"`
	ReportPath        string              `json:"report_path,omitempty"`
	Metrics           *PerformanceMetrics `json:"metrics,omitempty"`
	Error             string              `json:"error,omitempty"`
	StartedAt         time.Time           `json:"started_at"`
	FinishedAt        *time.Time          `json:"finished_at,omitempty"`
}

// PerformanceMetrics holds classification metrics on a held-out set
type PerformanceMetrics struct {
	Accuracy        float64 `json:"accuracy"`
	Precision       float64 `json:"precision"`
	Recall          float64 `json:"recall"`
	F1Score         float64 `json:"f1_score"`
	ConfusionMatrix [][]int `json:"confusion_matrix,omitempty"`
	Samples         int     `json:"samples"`
}

// TrainRequest asks for a training run over the named catalogue models
type TrainRequest struct {
	Models    []string `json:"models"`
	Threshold *float64 `json:"threshold,omitempty"` // Minimum accuracy for the best model to be saved
}

// Validate checks if the TrainRequest is valid
func (r *TrainRequest) Validate() error {
	if len(r.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	return ValidateThreshold(r.Threshold)
}

// ValidateThreshold accepts nil or a value in [0, 1]
func ValidateThreshold(threshold *float64) error {
	if threshold == nil {
		return nil
	}
	if *threshold < 0 || *threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1, got %v", *threshold)
	}
	return nil
}
