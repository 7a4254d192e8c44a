package ml

import (
	"math"
	"testing"
)

func TestStepApply(t *testing.T) {
	tests := []struct {
		name string
		step Step
		in   []float64
		want []float64
	}{
		{
			name: "log10 selected columns",
			step: Step{Type: StepLog10, Columns: []int{1}},
			in:   []float64{5, 1000},
			want: []float64{5, 3},
		},
		{
			name: "standard scaler",
			step: Step{Type: StepStandardScaler, Mean: []float64{10, 0}, Scale: []float64{2, 0}},
			in:   []float64{14, 3},
			want: []float64{2, 3},
		},
		{
			name: "min max scaler",
			step: Step{Type: StepMinMaxScaler, Min: []float64{0, 10}, Max: []float64{4, 10}},
			in:   []float64{1, 10},
			want: []float64{0.25, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := append([]float64(nil), tt.in...)
			if err := tt.step.Apply(values); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i := range values {
				if math.Abs(values[i]-tt.want[i]) > 1e-9 {
					t.Fatalf("got %v, want %v", values, tt.want)
				}
			}
		})
	}
}

func TestLog10RejectsNonPositive(t *testing.T) {
	step := Step{Type: StepLog10, Columns: []int{0}}
	if err := step.Apply([]float64{0}); err == nil {
		t.Fatal("expected error for log10(0)")
	}
}

func TestStepValidate(t *testing.T) {
	if err := (Step{Type: StepStandardScaler, Mean: []float64{1}}).validate(2); err == nil {
		t.Fatal("expected dimension error")
	}
	if err := (Step{Type: "pca"}).validate(2); err == nil {
		t.Fatal("expected unsupported step error")
	}
	if err := (Step{Type: StepMinMaxScaler, Min: []float64{0, 0}, Max: []float64{1, 1}}).validate(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalizeVectorLengthMismatch(t *testing.T) {
	if _, err := NormalizeVector([]float64{1, 2}, []float64{0}, []float64{1, 2}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
