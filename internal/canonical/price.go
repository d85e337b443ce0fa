package canonical

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	amountExpr = regexp.MustCompile(`[0-9][0-9,.]*`)
	hundred    = decimal.NewFromInt(100)
)

// maxAmountDigits bounds integer digits so minor units fit in int64.
const maxAmountDigits = 15

// ParsePrice extracts the first amount in raw and returns it in minor units.
// Currency symbols, labels ("Rs.") and thousands separators are ignored.
// ok is false when raw holds no number.
func ParsePrice(raw string) (int64, bool) {
	match := amountExpr.FindString(raw)
	if match == "" {
		return 0, false
	}

	match = strings.ReplaceAll(match, ",", "")
	match = strings.TrimRight(match, ".")
	if i := strings.LastIndexByte(match, '.'); i >= 0 {
		// Only the last dot can be a decimal point; earlier ones group thousands.
		match = strings.ReplaceAll(match[:i], ".", "") + match[i:]
	}

	intPart, _, _ := strings.Cut(match, ".")
	if len(strings.TrimLeft(intPart, "0")) > maxAmountDigits {
		return 0, false
	}

	amount, err := decimal.NewFromString(match)
	if err != nil {
		return 0, false
	}
	return amount.Mul(hundred).Round(0).IntPart(), true
}

// FormatMinor renders minor units as a plain two-decimal amount.
func FormatMinor(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2)
}
