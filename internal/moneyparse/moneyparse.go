// Package moneyparse converts the numeric-string spellings used by the
// upstream price feeds into canonical float64 values.
//
// The feeds are inconsistent about numeral conventions: the same field may
// arrive as "5.923,01" (dot thousands, comma decimal), "49,8670" (comma
// decimal, no grouping), "5923.01" (already canonical) or as a plain JSON
// number. Parsing is total: anything unparseable becomes 0 rather than an
// error, because this code runs directly on untrusted payloads.
package moneyparse

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Parse accepts whatever a decoded JSON field may hold (string, float64,
// json.Number, nil) and returns its numeric value, or 0.
func Parse(v interface{}) float64 {
	switch n := v.(type) {
	case nil:
		return 0
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		return ParseString(n)
	default:
		return 0
	}
}

// ParseString parses a single numeric string.
//
// Heuristic: when both separators occur, the last-occurring one is the
// decimal point and the other is grouping; a lone comma is a decimal comma;
// multiple dots with no comma are pure grouping.
func ParseString(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0
	}

	commas := strings.Count(s, ",")
	dots := strings.Count(s, ".")

	switch {
	case commas > 0 && dots > 0:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case commas > 0:
		// No dots at all: treat the comma as a decimal comma.
		s = strings.Replace(s, ",", ".", 1)
	case dots > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
