package ml

import "context"

// Pipeline is a fitted preprocessing + classification artifact. Rows are
// feature vectors ordered as FeatureNames. Implementations are read-only
// after construction and must be safe for concurrent use.
type Pipeline interface {
	Predict(ctx context.Context, rows [][]float64) ([]string, error)
	PredictProba(ctx context.Context, rows [][]float64) ([][]float64, error)
	Classes() []string
	FeatureNames() []string
}

// Versioned is implemented by pipelines that know their artifact version.
type Versioned interface {
	Version() string
}
