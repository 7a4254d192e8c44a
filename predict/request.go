package predict

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"startype/ml"
)

var validate = newValidator()

// Request is the JSON body of a single prediction. Pointer fields let the
// validator tell a missing key from an explicit zero.
type Request struct {
	Temperature       *float64 `json:"Temperature (K)" validate:"required"`
	Luminosity        *float64 `json:"Luminosity(L/Lo)" validate:"required"`
	Radius            *float64 `json:"Radius(R/Ro)" validate:"required"`
	AbsoluteMagnitude *float64 `json:"Absolute magnitude(Mv)" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeRequest reads a Request from r and converts it to a FeatureRecord.
// Missing, null or non-numeric fields and a fractional temperature are
// reported as KindInvalidRecord.
func DecodeRequest(r io.Reader) (ml.FeatureRecord, error) {
	var req Request
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return ml.FeatureRecord{}, newError(KindInvalidRecord, err, "%s must be a number", typeErr.Field)
		}
		return ml.FeatureRecord{}, newError(KindInvalidRecord, err, "invalid JSON body: %v", err)
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			names := make([]string, len(fieldErrs))
			for i, fe := range fieldErrs {
				names[i] = fe.Field()
			}
			return ml.FeatureRecord{}, newError(KindInvalidRecord, err, "missing required fields: %s", strings.Join(names, ", "))
		}
		return ml.FeatureRecord{}, newError(KindInvalidRecord, err, "invalid request: %v", err)
	}

	return req.Record()
}

// Record converts a validated request. Temperature must be integral.
func (req Request) Record() (ml.FeatureRecord, error) {
	values := []*float64{req.Temperature, req.Luminosity, req.Radius, req.AbsoluteMagnitude}
	for i, v := range values {
		if v == nil {
			return ml.FeatureRecord{}, newError(KindInvalidRecord, nil, "missing required fields: %s", ml.FeatureNames()[i])
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return ml.FeatureRecord{}, newError(KindInvalidRecord, nil, "%s must be a finite number", ml.FeatureNames()[i])
		}
	}
	temperature := *req.Temperature
	if temperature != math.Trunc(temperature) || math.Abs(temperature) > math.MaxInt32 {
		return ml.FeatureRecord{}, newError(KindInvalidRecord, nil, "%s must be an integer", ml.ColumnTemperature)
	}
	return ml.FeatureRecord{
		Temperature:       int(temperature),
		Luminosity:        *req.Luminosity,
		Radius:            *req.Radius,
		AbsoluteMagnitude: *req.AbsoluteMagnitude,
	}, nil
}
