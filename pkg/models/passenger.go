package models

import (
	"fmt"
)

// Sex is the passenger sex as accepted by the prediction API.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Embarked is the port of embarkation.
type Embarked string

const (
	EmbarkedSouthampton Embarked = "S"
	EmbarkedCherbourg   Embarked = "C"
	EmbarkedQueenstown  Embarked = "Q"
)

// PassengerColumns is the column order of a passenger row.
var PassengerColumns = []string{
	"PassengerId", "Pclass", "Name", "Sex", "Age", "SibSp",
	"Parch", "Ticket", "Fare", "Cabin", "Embarked",
}

// PredictionRequest describes one passenger to score.
type PredictionRequest struct {
	PassengerId float64  `json:"PassengerId"`
	Pclass      int      `json:"Pclass"`
	Name        string   `json:"Name"`
	Sex         Sex      `json:"Sex"`
	Age         int      `json:"Age"`
	SibSp       int      `json:"SibSp"`
	Parch       int      `json:"Parch"`
	Ticket      string   `json:"Ticket"`
	Fare        float64  `json:"Fare"`
	Cabin       string   `json:"Cabin"`
	Embarked    Embarked `json:"Embarked"`
}

// ValidationError reports a request field that failed validation. Enum is
// set when the value is outside a closed set of allowed values.
type ValidationError struct {
	Field   string
	Message string
	Enum    bool
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the request fields
func (r *PredictionRequest) Validate() error {
	switch r.Sex {
	case SexMale, SexFemale:
	default:
		return &ValidationError{Field: "Sex", Message: fmt.Sprintf("value %q is not one of male, female", r.Sex), Enum: true}
	}
	switch r.Embarked {
	case EmbarkedSouthampton, EmbarkedCherbourg, EmbarkedQueenstown:
	default:
		return &ValidationError{Field: "Embarked", Message: fmt.Sprintf("value %q is not one of S, C, Q", r.Embarked), Enum: true}
	}
	if r.Pclass < 1 || r.Pclass > 3 {
		return &ValidationError{Field: "Pclass", Message: "must be 1, 2 or 3"}
	}
	if r.Age < 0 {
		return &ValidationError{Field: "Age", Message: "must not be negative"}
	}
	if r.SibSp < 0 {
		return &ValidationError{Field: "SibSp", Message: "must not be negative"}
	}
	if r.Parch < 0 {
		return &ValidationError{Field: "Parch", Message: "must not be negative"}
	}
	if r.Fare < 0 {
		return &ValidationError{Field: "Fare", Message: "must not be negative"}
	}
	return nil
}

// Row returns the request as cells in PassengerColumns order.
func (r *PredictionRequest) Row() []any {
	return []any{
		r.PassengerId, r.Pclass, r.Name, string(r.Sex), r.Age, r.SibSp,
		r.Parch, r.Ticket, r.Fare, r.Cabin, string(r.Embarked),
	}
}

// BatchPredictionRequest carries several passengers scored in one call.
type BatchPredictionRequest struct {
	BatchData []PredictionRequest `json:"batch_data"`
}

// Validate checks every passenger and reports the index of the first
// failure.
func (r *BatchPredictionRequest) Validate() error {
	if len(r.BatchData) == 0 {
		return &ValidationError{Field: "batch_data", Message: "must contain at least one passenger"}
	}
	for i := range r.BatchData {
		if err := r.BatchData[i].Validate(); err != nil {
			ve := err.(*ValidationError)
			return &ValidationError{
				Field:   fmt.Sprintf("batch_data[%d].%s", i, ve.Field),
				Message: ve.Message,
				Enum:    ve.Enum,
			}
		}
	}
	return nil
}

// PredictionResponse is the survival label for one passenger.
type PredictionResponse struct {
	Survived int `json:"Survived"`
}

// BatchPredictionResponse holds one label per requested passenger, in
// request order.
type BatchPredictionResponse struct {
	Survived []int `json:"Survived"`
}
