// Package report renders run results: the final summary, per-iteration
// lines, the memory chart and file exports.
package report

import (
	"math"
	"strconv"
	"strings"
)

// NumberFormat renders v with precision decimals and comma-grouped thousands.
func NumberFormat(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + b.String() + frac
}

// TimeUnits renders a number of seconds in the largest unit of seconds,
// minutes or hours that keeps the value at or above 1, e.g. "2.00 minutes".
func TimeUnits(secs float64) string {
	v := secs
	unit := plural(v, "second")
	if math.Abs(v) >= 60 {
		v /= 60
		unit = plural(v, "minute")
	}
	if math.Abs(v) >= 60 {
		v /= 60
		unit = plural(v, "hour")
	}
	return NumberFormat(v, 2) + " " + unit
}

func plural(v float64, unit string) string {
	if v == 1 {
		return unit
	}
	return unit + "s"
}

// percent is count/total as a percentage with one decimal; 0 when total is 0.
func percent(count, total uint64) string {
	if total == 0 {
		return "0.0%"
	}
	return NumberFormat(float64(count)/float64(total)*100, 1) + "%"
}
