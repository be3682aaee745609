package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var colombia = message.NewPrinter(language.MustParse("es-CO"))

// COP renders an amount of Colombian pesos the way the storefront shows
// prices: a leading "$" and locale digit grouping, decimals only when the
// amount has cents.
func COP(value float64) string {
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	if value == math.Trunc(value) {
		return sign + "$" + colombia.Sprintf("%d", int64(value))
	}
	return sign + "$" + colombia.Sprintf("%.2f", value)
}
