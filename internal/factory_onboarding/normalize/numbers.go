package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxDurationHours bounds a step duration so it always fits an int.
const MaxDurationHours = math.MaxInt32

// maxMagnitude bounds the decimal order of magnitude of a parsed number.
// decimal.NewFromString accepts exponents up to 2^31, and rounding,
// comparing or converting such a value materializes 10^exp.
const maxMagnitude = 18

// maxDueTimeHour is the largest due time accepted as written.
var maxDueTimeHour = decimal.New(1, maxMagnitude)

var rxNumber = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)

// toDecimal reads a number out of a loosely typed value. Strings such as
// "1.5", "2 hours" or "1,5h" are accepted; NaN and infinities are not.
// The result is always bounded, see bounded.
func toDecimal(v any) (decimal.Decimal, bool) {
	d, ok := parseDecimal(v)
	if !ok {
		return decimal.Decimal{}, false
	}
	return bounded(d), true
}

func parseDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return finiteDecimal(t)
	case float32:
		return finiteDecimal(float64(t))
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	case int32:
		return decimal.NewFromInt(int64(t)), true
	case uint64:
		d, err := decimal.NewFromString(strconv.FormatUint(t, 10))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case string:
		s := strings.TrimSpace(t)
		if d, err := decimal.NewFromString(s); err == nil {
			return d, true
		}
		m := rxNumber.FindString(s)
		if m == "" {
			return decimal.Decimal{}, false
		}
		m = strings.TrimPrefix(strings.Replace(m, ",", ".", 1), "+")
		d, err := decimal.NewFromString(m)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

// bounded saturates d to ±10^(maxMagnitude+1) when it is larger than
// 10^maxMagnitude in magnitude and flushes it to zero when it is smaller than
// 10^-maxMagnitude. Only the exponent and digit count are inspected.
func bounded(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	order := int64(d.Exponent()) + int64(d.NumDigits()) - 1
	switch {
	case order > maxMagnitude:
		return decimal.New(int64(d.Sign()), maxMagnitude+1)
	case order < -maxMagnitude:
		return decimal.Zero
	}
	return d
}

func finiteDecimal(f float64) (decimal.Decimal, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, false
	}
	return decimal.NewFromFloat(f), true
}

// roundHalfUp rounds to the nearest integer with ties going up: 1.5 -> 2,
// 2.5 -> 3. Ties are never sent to the even neighbour. decimal.Round breaks
// ties away from zero, which is the same thing for the non-negative values
// that survive clamping.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// clampDuration forces a rounded duration into [1, MaxDurationHours].
func clampDuration(d decimal.Decimal) int {
	switch {
	case d.LessThan(decimal.NewFromInt(1)):
		return 1
	case d.GreaterThan(decimal.NewFromInt(MaxDurationHours)):
		return MaxDurationHours
	default:
		return int(d.IntPart())
	}
}
