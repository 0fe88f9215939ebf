// Package service holds the transport-independent user rules: request field
// normalization, field validation and the error kinds shared by the command
// and query services.
package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/userdir/user-service/shared/models"
)

// Fields is the normalized form of a raw request body.
type Fields struct {
	models.UserPatch
	// AgeInvalid is set when age was supplied but is not an integer.
	AgeInvalid bool
}

// Normalize keeps the recognized keys that are present and non-empty.
// Text fields are trimmed and age is coerced to an integer. Unknown keys are
// dropped.
func Normalize(raw map[string]any) Fields {
	var f Fields
	f.Name = textField(raw, "name")
	f.Email = textField(raw, "email")
	f.Address = textField(raw, "address")

	v, ok := raw["age"]
	if !ok {
		return f
	}
	if s, isString := v.(string); isString && s == "" {
		return f
	}
	if age, ok := parseAge(v); ok {
		f.Age = &age
	} else {
		f.AgeInvalid = true
	}
	return f
}

func textField(raw map[string]any, key string) *string {
	v, ok := raw[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case bool:
		if !t {
			return nil
		}
		s = "true"
	case float64:
		if t == 0 {
			return nil
		}
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		return nil
	default:
		s = fmt.Sprint(t)
	}
	if s == "" {
		return nil
	}
	s = strings.TrimSpace(s)
	return &s
}

// parseAge coerces v to an integer age. Values outside the int32 range, the
// width of the stored column, are not integers for this purpose.
func parseAge(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t > math.MaxInt32 || t < math.MinInt32 {
			return 0, false
		}
		return int(math.Trunc(t)), true
	case int:
		return int32Age(int64(t))
	case int64:
		return int32Age(t)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 32)
		if err != nil {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func int32Age(n int64) (int, bool) {
	if n > math.MaxInt32 || n < math.MinInt32 {
		return 0, false
	}
	return int(n), true
}
