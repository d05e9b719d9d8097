package series

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
)

// ParseDecimal reads a number written with either '.' or ',' as decimal separator.
// Blank, unparseable, non-finite and hexadecimal cells report false.
func ParseDecimal(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || isHex(s) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isHex(s string) bool {
	s = strings.TrimLeft(s, "+-")
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

// NormalizeColumn converts raw cells to nullable numbers
func NormalizeColumn(cells []string) []sql.NullFloat64 {
	out := make([]sql.NullFloat64, len(cells))
	for i, cell := range cells {
		if v, ok := ParseDecimal(cell); ok {
			out[i] = sql.NullFloat64{Float64: v, Valid: true}
		}
	}
	return out
}

// FormatDecimal renders a value for text output, blank when null
func FormatDecimal(v sql.NullFloat64) string {
	if !v.Valid {
		return ""
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}
