package ml

const (
	ColumnTemperature       = "Temperature (K)"
	ColumnLuminosity        = "Luminosity(L/Lo)"
	ColumnRadius            = "Radius(R/Ro)"
	ColumnAbsoluteMagnitude = "Absolute magnitude(Mv)"
)

// FeatureRecord is one star's physical measurements. The JSON keys are the
// column names the pipeline was trained on.
type FeatureRecord struct {
	Temperature       int     `json:"Temperature (K)"`
	Luminosity        float64 `json:"Luminosity(L/Lo)"`
	Radius            float64 `json:"Radius(R/Ro)"`
	AbsoluteMagnitude float64 `json:"Absolute magnitude(Mv)"`
}

// FeatureNames returns the required columns in pipeline order.
func FeatureNames() []string {
	return []string{
		ColumnTemperature,
		ColumnLuminosity,
		ColumnRadius,
		ColumnAbsoluteMagnitude,
	}
}

func FeatureVector(record FeatureRecord) []float64 {
	return []float64{
		float64(record.Temperature),
		record.Luminosity,
		record.Radius,
		record.AbsoluteMagnitude,
	}
}
