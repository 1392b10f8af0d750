package amount

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidFormat = errors.New("invalid amount format")

var suffixes = map[byte]float64{
	'k': 1e3,
	'm': 1e6,
	'b': 1e9,
}

// Parse reads a wager amount such as "250", "1.5k" or "-2M". A single
// trailing k/m/b scales the numeric prefix. No rounding is applied.
func Parse(s string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return 0, ErrInvalidFormat
	}

	mult := 1.0
	if m, ok := suffixes[v[len(v)-1]]; ok {
		mult = m
		v = v[:len(v)-1]
	}
	if v == "" {
		return 0, ErrInvalidFormat
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return f * mult, nil
}

// Format renders v with thousands separators and at most two decimals,
// half-even rounded, dropping trailing zeros ("1,234.5").
func Format(v float64) string {
	s := decimal.NewFromFloat(v).RoundBank(2).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Compact scales by k/m/b and keeps two decimals, trimming a bare ".00".
// Negative values scale by magnitude.
func Compact(v float64) string {
	scaled, suffix := scale(v, math.Abs(v))
	out := strconv.FormatFloat(scaled, 'f', 2, 64)
	out = strings.TrimSuffix(out, ".00")
	return out + suffix
}

// Short is the display form used on the live board: "$950", "$1.5k", "$2m".
func Short(v float64) string {
	if v < 1_000 {
		return "$" + Format(v)
	}
	scaled, suffix := scale(v, v)
	out := strconv.FormatFloat(scaled, 'f', 1, 64)
	out = strings.TrimSuffix(out, ".0")
	return "$" + out + suffix
}

// Multiplier formats a multiplier to two decimals without the trailing x.
func Multiplier(m float64) string {
	return strconv.FormatFloat(m, 'f', 2, 64)
}

func scale(v, magnitude float64) (float64, string) {
	switch {
	case magnitude >= 1e9:
		return v / 1e9, "b"
	case magnitude >= 1e6:
		return v / 1e6, "m"
	case magnitude >= 1e3:
		return v / 1e3, "k"
	}
	return v, ""
}
