package report

import (
	"errors"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotANumber is returned for input that is not a plain integer.
	ErrNotANumber = errors.New("not a number")
	// ErrNegative is returned for negative counts or amounts.
	ErrNegative = errors.New("negative value")
	// ErrTooLarge is returned for values above the configured ceiling.
	ErrTooLarge = errors.New("value too large")
)

// ParseCount parses a non-negative integer field value. It never coerces:
// fractions, signs, stray characters and out-of-range values are all rejected.
func ParseCount(text string, max int) (int, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrNotANumber
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrNotANumber
	}
	if n < 0 {
		return 0, ErrNegative
	}
	if max > 0 && n > max {
		return 0, ErrTooLarge
	}
	return n, nil
}

// ParseAmount parses a monetary value with decimal-safe arithmetic. Comma is
// accepted as the decimal separator. Negative, non-numeric and
// above-ceiling amounts are rejected.
func ParseAmount(text string, max decimal.Decimal) (decimal.Decimal, error) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, ErrNotANumber
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrNotANumber
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegative
	}
	if !max.IsZero() && d.GreaterThan(max) {
		return decimal.Zero, ErrTooLarge
	}
	return d, nil
}

// CodeValid reports whether text is a syntactically valid one-time linking
// code: exactly length digits, nothing else.
func CodeValid(text string, length int) bool {
	s := strings.TrimSpace(text)
	if len(s) != length {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// FormatDate renders a report date the way all bot prompts do.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// Minutes renders a duration as whole minutes with a Russian plural suffix,
// rounding up so "14m59s left" reads as 15 minutes.
func Minutes(d time.Duration) string {
	m := int((d + time.Minute - 1) / time.Minute)
	if m < 1 {
		m = 1
	}
	switch {
	case m%10 == 1 && m%100 != 11:
		return strconv.Itoa(m) + " минуту"
	case m%10 >= 2 && m%10 <= 4 && (m%100 < 10 || m%100 >= 20):
		return strconv.Itoa(m) + " минуты"
	default:
		return strconv.Itoa(m) + " минут"
	}
}
