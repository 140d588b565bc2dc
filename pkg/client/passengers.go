package client

import (
	"fmt"
	"math"

	"github.com/spf13/cast"

	"github.com/titanic-mlops/titanic-survival/pkg/dataset"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// PassengersFromFrame converts frame rows into prediction requests. Missing
// numeric cells become zero and missing text cells become empty strings.
// Columns outside models.PassengerColumns are ignored.
func PassengersFromFrame(f *dataset.Frame) ([]models.PredictionRequest, error) {
	for _, name := range []string{"Pclass", "Sex", "Embarked"} {
		if !f.Has(name) {
			return nil, fmt.Errorf("passenger file has no %s column", name)
		}
	}

	out := make([]models.PredictionRequest, f.NumRows())
	for i := range out {
		row := f.Row(i)
		out[i] = models.PredictionRequest{
			PassengerId: number(row["PassengerId"]),
			Pclass:      int(number(row["Pclass"])),
			Name:        text(row["Name"]),
			Sex:         models.Sex(text(row["Sex"])),
			Age:         int(math.Round(number(row["Age"]))),
			SibSp:       int(number(row["SibSp"])),
			Parch:       int(number(row["Parch"])),
			Ticket:      text(row["Ticket"]),
			Fare:        number(row["Fare"]),
			Cabin:       text(row["Cabin"]),
			Embarked:    models.Embarked(text(row["Embarked"])),
		}
	}
	return out, nil
}

func number(v any) float64 {
	if dataset.IsMissing(v) {
		return 0
	}
	return cast.ToFloat64(v)
}

func text(v any) string {
	if dataset.IsMissing(v) {
		return ""
	}
	return cast.ToString(v)
}
