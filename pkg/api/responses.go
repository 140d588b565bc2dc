package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	render.Status(r, code)
	render.JSON(w, r, resp)
}

// validationStatus maps a request validation error onto its status code:
// 422 for values outside an enumeration, 400 otherwise.
func validationStatus(err error) int {
	var ve *models.ValidationError
	if errors.As(err, &ve) && ve.Enum {
		return http.StatusUnprocessableEntity
	}
	return http.StatusBadRequest
}
