package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"startype/ml"
	"startype/monitoring"
	"startype/predict"
)

const (
	// RootMessage 存活检查消息
	RootMessage = "Star Type Prediction API is running"

	bulkFormField     = "file"
	bulkFormMaxMemory = 8 << 20
)

// Handler 预测接口处理器
type Handler struct {
	service *predict.Service
	metrics *monitoring.PredictionMetrics
	logger  *zap.Logger
}

// NewHandler 创建处理器
func NewHandler(service *predict.Service, metrics *monitoring.PredictionMetrics, logger *zap.Logger) *Handler {
	if metrics == nil {
		metrics = monitoring.NewPredictionMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, metrics: metrics, logger: logger}
}

// RegisterHandlers 注册所有处理器
func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleRoot)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /model", h.handleModel)
	mux.HandleFunc("GET /metrics", h.handleMetrics)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("POST /bulk_predict", h.handleBulkPredict)
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleModel(w http.ResponseWriter, r *http.Request) {
	pipeline := h.service.Pipeline()
	info := map[string]interface{}{
		"classes":       pipeline.Classes(),
		"feature_names": pipeline.FeatureNames(),
	}
	if v, ok := pipeline.(ml.Versioned); ok {
		info["version"] = v.Version()
	}
	respondJSON(w, http.StatusOK, info)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	record, err := predict.DecodeRequest(r.Body)
	if err != nil {
		if isTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.writePredictError(w, r, err)
		return
	}

	result, err := h.service.Predict(r.Context(), record)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}

	h.metrics.RecordPrediction(result.PredictedType)
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleBulkPredict(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(bulkFormMaxMemory); err != nil {
		if isTooLarge(err) {
			respondError(w, http.StatusRequestEntityTooLarge, "uploaded file too large")
			return
		}
		respondError(w, http.StatusBadRequest, "expected a multipart form with a file field")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(bulkFormField)
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	table, err := h.service.BulkPredict(r.Context(), header.Filename, file)
	if err != nil {
		h.writePredictError(w, r, err)
		return
	}

	labels := make([]string, len(table.Rows))
	for i, row := range table.Rows {
		labels[i] = row[len(row)-1]
	}
	h.metrics.RecordBulk(labels)

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=predictions.csv")
	w.WriteHeader(http.StatusOK)
	if err := table.WriteCSV(w); err != nil {
		h.logger.Error("failed to stream bulk predictions",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		return
	}

	h.logger.Debug("bulk predictions streamed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Int("rows", len(table.Rows)),
		zap.Duration("elapsed", time.Since(GetStartTime(r.Context()))))
}

// writePredictError 将预测错误映射为HTTP状态码
func (h *Handler) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *predict.Error
	if !errors.As(err, &perr) {
		h.logger.Error("unexpected error", zap.String("request_id", GetRequestID(r.Context())), zap.Error(err))
		h.metrics.RecordError("internal")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.metrics.RecordError(perr.Kind.String())
	status := StatusForKind(perr.Kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Stringer("kind", perr.Kind),
			zap.Error(perr.Err))
	} else {
		h.logger.Info("rejected prediction input",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Stringer("kind", perr.Kind),
			zap.String("detail", perr.Detail))
	}
	respondError(w, status, perr.Detail)
}

// StatusForKind 错误类型对应的HTTP状态码
func StatusForKind(kind predict.Kind) int {
	if kind.IsClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Detail string `json:"detail"`
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, ErrorResponse{Detail: detail})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
