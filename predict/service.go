// Package predict turns feature records and uploaded CSV tables into star
// type predictions using an ml.Pipeline.
package predict

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"startype/ml"
)

// PredictedTypeColumn is appended to bulk results.
const PredictedTypeColumn = "Predicted Type"

// Result is the outcome of a single prediction.
type Result struct {
	PredictedType        string  `json:"predicted_type"`
	PredictedProbability float64 `json:"predicted_probability"`
}

type Service struct {
	pipeline ml.Pipeline
	logger   *zap.Logger
}

// NewService wraps pipeline. The pipeline must expect the columns of
// ml.FeatureNames in that order.
func NewService(pipeline ml.Pipeline, logger *zap.Logger) (*Service, error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if got := pipeline.FeatureNames(); !slices.Equal(got, ml.FeatureNames()) {
		return nil, fmt.Errorf("pipeline expects columns %q, want %q", got, ml.FeatureNames())
	}
	return &Service{pipeline: pipeline, logger: logger}, nil
}

func (s *Service) Pipeline() ml.Pipeline {
	return s.pipeline
}

// snapshot pins one model for the duration of a request.
func (s *Service) snapshot() ml.Pipeline {
	if sn, ok := s.pipeline.(ml.Snapshotter); ok {
		return sn.Current()
	}
	return s.pipeline
}

// Predict classifies one record and returns the top label with its
// probability.
func (s *Service) Predict(ctx context.Context, record ml.FeatureRecord) (*Result, error) {
	pipeline := s.snapshot()
	rows := [][]float64{ml.FeatureVector(record)}

	labels, err := pipeline.Predict(ctx, rows)
	if err != nil {
		return nil, newError(KindModelInvocation, err, "Prediction error: %v", err)
	}
	probas, err := pipeline.PredictProba(ctx, rows)
	if err != nil {
		return nil, newError(KindModelInvocation, err, "Prediction error: %v", err)
	}
	if len(labels) != 1 || len(probas) != 1 || len(probas[0]) == 0 {
		err := fmt.Errorf("pipeline returned %d labels and %d distributions for 1 row", len(labels), len(probas))
		return nil, newError(KindModelInvocation, err, "Prediction error: %v", err)
	}

	probability := slices.Max(probas[0])
	if math.IsNaN(probability) || probability < 0 || probability > 1 {
		err := fmt.Errorf("probability %v outside [0, 1]", probability)
		return nil, newError(KindModelInvocation, err, "Prediction error: %v", err)
	}

	s.logger.Debug("prediction",
		zap.String("predicted_type", labels[0]),
		zap.Float64("predicted_probability", probability))

	return &Result{PredictedType: labels[0], PredictedProbability: probability}, nil
}

// BulkPredict reads a CSV upload, predicts every row and returns the
// required columns in pipeline order plus a PredictedTypeColumn. Any failing
// row fails the whole request.
func (s *Service) BulkPredict(ctx context.Context, filename string, r io.Reader) (*Table, error) {
	if !strings.HasSuffix(filename, ".csv") {
		return nil, newError(KindInvalidFileType, nil, "Only CSV files are supported.")
	}

	table, err := ReadTable(r)
	if err != nil {
		return nil, newError(KindUnparsableFile, err, "Error reading file: %v", err)
	}

	required := ml.FeatureNames()
	if missing := table.Missing(required); len(missing) > 0 {
		perr := newError(KindMissingColumns, nil,
			"The file must contain the following columns: %s. Missing: %s",
			quoteList(required), quoteList(missing))
		perr.Missing = missing
		return nil, perr
	}
	if len(table.Rows) == 0 {
		return nil, newError(KindUnparsableFile, nil, "Error reading file: no data rows")
	}

	selected, err := table.Select(required)
	if err != nil {
		return nil, newError(KindUnparsableFile, err, "Error reading file: %v", err)
	}

	rows, err := parseMatrix(selected)
	if err != nil {
		return nil, newError(KindUnparsableFile, err, "Error reading file: %v", err)
	}

	labels, err := s.snapshot().Predict(ctx, rows)
	if err != nil {
		return nil, newError(KindModelInvocation, err, "Bulk prediction error: %v", err)
	}
	if err := selected.AppendColumn(PredictedTypeColumn, labels); err != nil {
		return nil, newError(KindModelInvocation, err, "Bulk prediction error: %v", err)
	}

	s.logger.Info("bulk prediction",
		zap.String("filename", filename),
		zap.Int("rows", len(rows)))
	return selected, nil
}

// parseMatrix converts the raw cells of a table to floats. Row numbers in
// errors are 1-based data rows.
func parseMatrix(table *Table) ([][]float64, error) {
	rows := make([][]float64, len(table.Rows))
	for i, raw := range table.Rows {
		row := make([]float64, len(raw))
		for j, cell := range raw {
			value, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("row %d: column %q has non-numeric value %q", i+1, table.Header[j], cell)
			}
			row[j] = value
		}
		rows[i] = row
	}
	return rows, nil
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
