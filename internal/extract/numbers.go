package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// brNumberRe matches Brazilian-formatted decimals like "1.234,56" or "987,00".
var brNumberRe = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)

// ParseBRNumber converts a "1.234,56" style string into a float64 rounded to
// two digits. Returns false when the string does not parse.
func ParseBRNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return Round2(v), true
}

// Round2 rounds to two decimal places, matching the ledger's cell precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// findBRNumbers returns every BR-formatted number in the text, in order.
func findBRNumbers(s string) []string {
	return brNumberRe.FindAllString(s, -1)
}

// firstBRNumber parses the first BR-formatted number in s, if any.
func firstBRNumber(s string) (float64, bool) {
	if m := brNumberRe.FindString(s); m != "" {
		return ParseBRNumber(m)
	}
	return 0, false
}

// lastBRNumber parses the last BR-formatted number in s, if any.
func lastBRNumber(s string) (float64, bool) {
	all := findBRNumbers(s)
	if len(all) == 0 {
		return 0, false
	}
	return ParseBRNumber(all[len(all)-1])
}
