// Package ui serves the browser front end of the star type predictor. Pages
// are rendered on the server and every prediction goes through APIClient.
package ui

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"startype/ml"
	"startype/predict"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	maxPreviewRows = 100
	uploadMaxBytes = 10 << 20
	uploadMaxMem   = 8 << 20
)

// DefaultForm holds the single predictor's initial values.
var DefaultForm = SingleForm{
	Temperature:       "5000",
	Luminosity:        "1.0",
	Radius:            "1.0",
	AbsoluteMagnitude: "5.0",
}

// SingleForm is the raw text of the single predictor inputs.
type SingleForm struct {
	Temperature       string
	Luminosity        string
	Radius            string
	AbsoluteMagnitude string
}

// TableView is a table rendered on a page, cut to maxPreviewRows.
type TableView struct {
	Header    []string
	Rows      [][]string
	Truncated int
}

type pageData struct {
	Title       string
	Active      string
	Background  template.CSS
	Error       string
	Form        SingleForm
	Result      *predict.Result
	Uploaded    *TableView
	Predictions *TableView
	DownloadURL template.URL
}

type Handler struct {
	client      *APIClient
	backgrounds *Backgrounds
	samplePath  string
	templates   *template.Template
	logger      *zap.Logger
}

func NewHandler(client *APIClient, backgrounds *Backgrounds, samplePath string, logger *zap.Logger) (*Handler, error) {
	if client == nil {
		return nil, errors.New("api client is required")
	}
	if backgrounds == nil {
		var err error
		if backgrounds, err = NewBackgrounds(nil, "", 0); err != nil {
			return nil, err
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Handler{
		client:      client,
		backgrounds: backgrounds,
		samplePath:  samplePath,
		templates:   templates,
		logger:      logger,
	}, nil
}

func (h *Handler) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIntro)
	mux.HandleFunc("GET /single", h.handleSingleForm)
	mux.HandleFunc("POST /single", h.handleSinglePredict)
	mux.HandleFunc("GET /bulk", h.handleBulkForm)
	mux.HandleFunc("POST /bulk", h.handleBulkPredict)
	mux.HandleFunc("GET /sample.csv", h.handleSample)
}

func (h *Handler) handleIntro(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "intro", h.page("Introduction", "intro"))
}

func (h *Handler) handleSingleForm(w http.ResponseWriter, r *http.Request) {
	data := h.page("Single Star Type Predictor", "single")
	data.Form = DefaultForm
	h.render(w, http.StatusOK, "single", data)
}

func (h *Handler) handleSinglePredict(w http.ResponseWriter, r *http.Request) {
	data := h.page("Single Star Type Predictor", "single")
	if err := r.ParseForm(); err != nil {
		data.Form = DefaultForm
		data.Error = "Error: " + err.Error()
		h.render(w, http.StatusBadRequest, "single", data)
		return
	}

	data.Form = SingleForm{
		Temperature:       strings.TrimSpace(r.PostForm.Get("temperature")),
		Luminosity:        strings.TrimSpace(r.PostForm.Get("luminosity")),
		Radius:            strings.TrimSpace(r.PostForm.Get("radius")),
		AbsoluteMagnitude: strings.TrimSpace(r.PostForm.Get("absolute_magnitude")),
	}
	record, err := data.Form.Record()
	if err != nil {
		data.Error = "Error: " + err.Error()
		h.render(w, http.StatusBadRequest, "single", data)
		return
	}

	result, err := h.client.Predict(r.Context(), record)
	if err != nil {
		status := h.apiFailure(&data, err)
		h.render(w, status, "single", data)
		return
	}

	data.Result = result
	if uri, err := h.backgrounds.For(result.PredictedType); err != nil {
		h.logger.Warn("background unavailable", zap.String("label", result.PredictedType), zap.Error(err))
	} else if uri != "" {
		data.Background = backgroundStyle(uri)
	}
	h.render(w, http.StatusOK, "single", data)
}

func (h *Handler) handleBulkForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "bulk", h.page("Multiple Star Type Predictor", "bulk"))
}

func (h *Handler) handleBulkPredict(w http.ResponseWriter, r *http.Request) {
	data := h.page("Multiple Star Type Predictor", "bulk")

	r.Body = http.MaxBytesReader(w, r.Body, uploadMaxBytes)
	if err := r.ParseMultipartForm(uploadMaxMem); err != nil {
		data.Error = "Error: expected a CSV file upload"
		h.render(w, http.StatusBadRequest, "bulk", data)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		data.Error = "Error: choose a CSV file to upload"
		h.render(w, http.StatusBadRequest, "bulk", data)
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		data.Error = "Error processing file: " + err.Error()
		h.render(w, http.StatusBadRequest, "bulk", data)
		return
	}

	uploaded, err := predict.ReadTable(bytes.NewReader(content))
	if err != nil {
		data.Error = "Error processing file: " + err.Error()
		h.render(w, http.StatusBadRequest, "bulk", data)
		return
	}
	data.Uploaded = newTableView(uploaded)

	annotated, err := h.client.BulkPredict(r.Context(), header.Filename, content)
	if err != nil {
		status := h.apiFailure(&data, err)
		h.render(w, status, "bulk", data)
		return
	}

	predictions, err := predict.ReadTable(bytes.NewReader(annotated))
	if err != nil {
		data.Error = "Error processing file: " + err.Error()
		h.render(w, http.StatusBadGateway, "bulk", data)
		return
	}
	data.Predictions = newTableView(predictions)
	data.DownloadURL = template.URL("data:text/csv;base64," + base64.StdEncoding.EncodeToString(annotated))
	h.render(w, http.StatusOK, "bulk", data)
}

func (h *Handler) handleSample(w http.ResponseWriter, r *http.Request) {
	file, err := os.Open(h.samplePath)
	if err != nil {
		h.logger.Error("sample dataset unavailable", zap.String("path", h.samplePath), zap.Error(err))
		http.Error(w, "sample dataset unavailable", http.StatusNotFound)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=sample_dataset.csv")
	if _, err := io.Copy(w, file); err != nil {
		h.logger.Warn("sample dataset copy interrupted", zap.Error(err))
	}
}

// apiFailure puts the service error on the page and picks the status to
// render with.
func (h *Handler) apiFailure(data *pageData, err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		data.Error = "Error: " + apiErr.Detail
		return apiErr.Status
	}
	h.logger.Error("prediction service unreachable", zap.Error(err))
	data.Error = "Error: " + err.Error()
	return http.StatusBadGateway
}

func (h *Handler) page(title, active string) pageData {
	data := pageData{Title: title, Active: active}
	uri, err := h.backgrounds.Default()
	if err != nil {
		h.logger.Warn("default background unavailable", zap.Error(err))
	} else if uri != "" {
		data.Background = backgroundStyle(uri)
	}
	return data
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("template render failed", zap.String("template", name), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// Record parses the form into a FeatureRecord. Luminosity and radius must not
// be negative.
func (f SingleForm) Record() (ml.FeatureRecord, error) {
	temperature, err := strconv.Atoi(f.Temperature)
	if err != nil || temperature < 0 {
		return ml.FeatureRecord{}, fmt.Errorf("%s must be a non-negative integer", ml.ColumnTemperature)
	}
	luminosity, err := parseNumber(ml.ColumnLuminosity, f.Luminosity, true)
	if err != nil {
		return ml.FeatureRecord{}, err
	}
	radius, err := parseNumber(ml.ColumnRadius, f.Radius, true)
	if err != nil {
		return ml.FeatureRecord{}, err
	}
	magnitude, err := parseNumber(ml.ColumnAbsoluteMagnitude, f.AbsoluteMagnitude, false)
	if err != nil {
		return ml.FeatureRecord{}, err
	}
	return ml.FeatureRecord{
		Temperature:       temperature,
		Luminosity:        luminosity,
		Radius:            radius,
		AbsoluteMagnitude: magnitude,
	}, nil
}

func parseNumber(name, raw string, nonNegative bool) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	if nonNegative && v < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	return v, nil
}

func newTableView(t *predict.Table) *TableView {
	view := &TableView{Header: t.Header, Rows: t.Rows}
	if len(view.Rows) > maxPreviewRows {
		view.Truncated = len(view.Rows) - maxPreviewRows
		view.Rows = view.Rows[:maxPreviewRows]
	}
	return view
}

func backgroundStyle(uri string) template.CSS {
	return template.CSS(`background-image: url("` + uri + `")`)
}
