package domain

import (
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// Diagnostic records a feed value that could not be read as a number and was
// replaced with 0.
type Diagnostic struct {
	ItemCode int    `json:"item_code"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

// Coerce converts a loosely typed feed value (number, numeric string,
// json.Number, bool) to a float64. Values that cannot be interpreted, NaN
// and infinities come back as 0 with ok=false. nil is a valid 0.
func Coerce(v any) (f float64, ok bool) {
	if v == nil {
		return 0, true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CoerceField is Coerce that appends a Diagnostic for malformed input.
func CoerceField(itemCode int, field string, v any, diags *[]Diagnostic) float64 {
	f, ok := Coerce(v)
	if !ok && diags != nil {
		*diags = append(*diags, Diagnostic{
			ItemCode: itemCode,
			Field:    field,
			Value:    fmt.Sprint(v),
		})
	}
	return f
}
