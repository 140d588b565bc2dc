package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/titanic-mlops/titanic-survival/pkg/metadatastore"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel"
	"github.com/titanic-mlops/titanic-survival/pkg/mlmodel/pipeline"
	"github.com/titanic-mlops/titanic-survival/pkg/models"
	"github.com/titanic-mlops/titanic-survival/pkg/predictor"
)

// ModelInfo describes the model being served
type ModelInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
}

// MLModelHandler exposes the served model and the recorded training runs
type MLModelHandler struct {
	service   *mlmodel.Service
	predictor *predictor.Predictor
}

// NewMLModelHandler creates a new ML model handler. Either argument may be nil.
func NewMLModelHandler(service *mlmodel.Service, p *predictor.Predictor) *MLModelHandler {
	return &MLModelHandler{service: service, predictor: p}
}

// HandleModel handles GET /v1/model
func (h *MLModelHandler) HandleModel(w http.ResponseWriter, r *http.Request) {
	var model *pipeline.Pipeline
	if h.predictor != nil {
		model = h.predictor.Model()
	}
	if model == nil {
		writeError(w, r, http.StatusServiceUnavailable, fmt.Errorf("model not loaded"))
		return
	}
	render.JSON(w, r, ModelInfo{Name: model.Name, Kind: model.Kind, Features: model.FeatureNames()})
}

// HandleListRuns handles GET /v1/runs, optionally filtered with ?kind=training|validation
func (h *MLModelHandler) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("run history not available"))
		return
	}
	kind := models.RunKind(r.URL.Query().Get("kind"))
	switch kind {
	case "", models.RunKindTraining, models.RunKindValidation:
	default:
		writeError(w, r, http.StatusBadRequest, fmt.Errorf("unknown run kind %q", kind))
		return
	}

	runs, err := h.service.ListRuns(kind)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, runs)
}

// HandleGetRun handles GET /v1/runs/{id}
func (h *MLModelHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("run history not available"))
		return
	}
	run, err := h.service.GetRun(chi.URLParam(r, "id"))
	if errors.Is(err, metadatastore.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	render.JSON(w, r, run)
}

// HandleDeleteRun handles DELETE /v1/runs/{id}
func (h *MLModelHandler) HandleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("run history not available"))
		return
	}
	err := h.service.DeleteRun(chi.URLParam(r, "id"))
	if errors.Is(err, metadatastore.ErrRunNotFound) {
		writeError(w, r, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
