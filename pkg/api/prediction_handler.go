package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/titanic-mlops/titanic-survival/pkg/models"
	"github.com/titanic-mlops/titanic-survival/pkg/predictor"
)

// PredictionHandler handles single and batch prediction requests
type PredictionHandler struct {
	batch   *predictor.BatchPredictor
	metrics *Metrics
	logger  *slog.Logger
}

// NewPredictionHandler creates a new prediction handler. batch may be nil
// until a model is available.
func NewPredictionHandler(batch *predictor.BatchPredictor, metrics *Metrics, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{batch: batch, metrics: metrics, logger: logger}
}

// HandlePrediction handles POST /v1/prediction
func (h *PredictionHandler) HandlePrediction(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/prediction"
	if h.batch == nil {
		h.fail(w, r, route, http.StatusServiceUnavailable, fmt.Errorf("model not loaded"))
		return
	}

	var req models.PredictionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, route, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, route, validationStatus(err), err)
		return
	}

	start := time.Now()
	label, err := h.batch.Predict(r.Context(), req)
	if errors.Is(err, predictor.ErrNoModel) {
		h.fail(w, r, route, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		h.logger.Error("prediction failed", "error", err)
		h.fail(w, r, route, http.StatusInternalServerError, fmt.Errorf("prediction failed"))
		return
	}
	h.metrics.observePrediction(route, start, []int{label})
	h.metrics.observeRequest(route, http.StatusOK)

	render.JSON(w, r, models.PredictionResponse{Survived: label})
}

// HandleBatchPrediction handles POST /v1/batch_prediction
func (h *PredictionHandler) HandleBatchPrediction(w http.ResponseWriter, r *http.Request) {
	const route = "/v1/batch_prediction"
	if h.batch == nil {
		h.fail(w, r, route, http.StatusServiceUnavailable, fmt.Errorf("model not loaded"))
		return
	}

	var req models.BatchPredictionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.fail(w, r, route, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, route, validationStatus(err), err)
		return
	}

	start := time.Now()
	labels, err := h.batch.PredictBatch(r.Context(), req.BatchData)
	if errors.Is(err, predictor.ErrNoModel) {
		h.fail(w, r, route, http.StatusServiceUnavailable, predictor.ErrNoModel)
		return
	}
	if err != nil {
		h.logger.Error("batch prediction failed", "size", len(req.BatchData), "error", err)
		h.fail(w, r, route, http.StatusInternalServerError, fmt.Errorf("prediction failed"))
		return
	}
	h.metrics.observePrediction(route, start, labels)
	h.metrics.observeRequest(route, http.StatusOK)

	render.JSON(w, r, models.BatchPredictionResponse{Survived: labels})
}

func (h *PredictionHandler) fail(w http.ResponseWriter, r *http.Request, route string, code int, err error) {
	h.metrics.observeRequest(route, code)
	writeError(w, r, code, err)
}
