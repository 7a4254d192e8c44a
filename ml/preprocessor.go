package ml

import (
	"errors"
	"fmt"
	"math"
)

const (
	StepLog10          = "log10"
	StepStandardScaler = "standard_scaler"
	StepMinMaxScaler   = "min_max_scaler"
)

// Step is one preprocessing stage of a pipeline artifact. Which fields are
// used depends on Type.
type Step struct {
	Type    string    `json:"type"`
	Columns []int     `json:"columns,omitempty"`
	Mean    []float64 `json:"mean,omitempty"`
	Scale   []float64 `json:"scale,omitempty"`
	Min     []float64 `json:"min,omitempty"`
	Max     []float64 `json:"max,omitempty"`
}

func (s Step) validate(featureCount int) error {
	switch s.Type {
	case StepLog10:
		if len(s.Columns) == 0 {
			return errors.New("log10 step has no columns")
		}
		for _, col := range s.Columns {
			if col < 0 || col >= featureCount {
				return fmt.Errorf("log10 column %d out of range", col)
			}
		}
	case StepStandardScaler:
		if len(s.Mean) != featureCount || len(s.Scale) != featureCount {
			return fmt.Errorf("standard_scaler needs %d means and scales", featureCount)
		}
	case StepMinMaxScaler:
		if len(s.Min) != featureCount || len(s.Max) != featureCount {
			return fmt.Errorf("min_max_scaler needs %d mins and maxs", featureCount)
		}
	default:
		return fmt.Errorf("unsupported step type %q", s.Type)
	}
	return nil
}

// Apply transforms one feature vector in place.
func (s Step) Apply(values []float64) error {
	switch s.Type {
	case StepLog10:
		for _, col := range s.Columns {
			if values[col] <= 0 {
				return fmt.Errorf("log10 of non-positive value %v in column %d", values[col], col)
			}
			values[col] = math.Log10(values[col])
		}
	case StepStandardScaler:
		for i := range values {
			scale := s.Scale[i]
			if scale == 0 {
				scale = 1
			}
			values[i] = (values[i] - s.Mean[i]) / scale
		}
	case StepMinMaxScaler:
		normalized, err := NormalizeVector(values, s.Min, s.Max)
		if err != nil {
			return err
		}
		copy(values, normalized)
	default:
		return fmt.Errorf("unsupported step type %q", s.Type)
	}
	return nil
}

func NormalizeFeature(value, min, max float64) float64 {
	if max == min {
		return 0
	}
	return (value - min) / (max - min)
}

func NormalizeVector(values []float64, mins []float64, maxs []float64) ([]float64, error) {
	if len(values) != len(mins) || len(values) != len(maxs) {
		return nil, errors.New("values/mins/maxs length mismatch")
	}
	result := make([]float64, len(values))
	for i := range values {
		result[i] = NormalizeFeature(values[i], mins[i], maxs[i])
	}
	return result, nil
}
