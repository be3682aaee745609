package catalog

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// ParsePrice reads a peso amount the way staff type it: "$" and spaces are
// ignored, "." groups thousands and "," separates decimals.
func ParsePrice(s string) (float64, error) {
	clean := strings.NewReplacer("$", "", " ", "", ".", "").Replace(strings.TrimSpace(s))
	clean = strings.ReplaceAll(clean, ",", ".")
	if clean == "" {
		return 0, &ValidationError{Field: "price", Reason: "required"}
	}
	v, err := cast.ToFloat64E(clean)
	if err != nil {
		return 0, &ValidationError{Field: "price", Reason: "not a number"}
	}
	if v < 0 {
		return 0, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return v, nil
}

// ParseQuantity reads a whole, non-negative unit count.
func ParseQuantity(s string) (int, error) {
	clean := strings.TrimSpace(s)
	if clean == "" {
		return 0, &ValidationError{Field: "quantity", Reason: "required"}
	}
	// Base 10 only; "010" is ten.
	v, err := strconv.Atoi(clean)
	if err != nil {
		return 0, &ValidationError{Field: "quantity", Reason: "must be a whole number"}
	}
	if v < 0 {
		return 0, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return v, nil
}

func priceOf(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, &ValidationError{Field: "price", Reason: "required"}
	case string:
		return ParsePrice(t)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &ValidationError{Field: "price", Reason: "not a number"}
	}
	if f < 0 {
		return 0, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return f, nil
}

func quantityOf(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, &ValidationError{Field: "quantity", Reason: "required"}
	case string:
		return ParseQuantity(t)
	case float64:
		// JSON numbers decode as float64; reject fractions rather than truncate.
		if t != float64(int(t)) {
			return 0, &ValidationError{Field: "quantity", Reason: "must be a whole number"}
		}
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, &ValidationError{Field: "quantity", Reason: "must be a whole number"}
	}
	if n < 0 {
		return 0, &ValidationError{Field: "quantity", Reason: "must not be negative"}
	}
	return n, nil
}

// storedQuantity reads a quantity persisted by any client. Anything that is
// not a finite whole number in range reads as zero.
func storedQuantity(v any) int {
	switch t := v.(type) {
	case string:
		n, err := ParseQuantity(t)
		if err != nil {
			return 0
		}
		return n
	case float32:
		return storedQuantity(float64(t))
	case float64:
		if math.IsNaN(t) || t >= math.MaxInt || t <= math.MinInt {
			return 0
		}
		return max(0, int(t))
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return max(0, n)
}
