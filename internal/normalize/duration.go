package normalize

import (
	"strconv"
	"strings"
)

// ParseDuration coerces a remote duration value into whole seconds.
//
// Accepted inputs: plain JSON numbers, "MM:SS" strings (minutes may
// exceed 59), bare digit strings, and the literal "0". Anything else
// yields (0, false); callers warn but never fail the record.
func ParseDuration(v any) (int, bool) {
	switch d := v.(type) {
	case nil:
		return 0, false
	case int:
		return nonNegative(d), true
	case int64:
		return nonNegative(int(d)), true
	case float64:
		return nonNegative(int(d)), true
	case string:
		return parseDurationString(d)
	default:
		return 0, false
	}
}

func parseDurationString(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if mm, ss, ok := strings.Cut(s, ":"); ok {
		m, errM := strconv.Atoi(strings.TrimSpace(mm))
		sec, errS := strconv.Atoi(strings.TrimSpace(ss))
		if errM != nil || errS != nil || m < 0 || sec < 0 {
			return 0, false
		}
		return m*60 + sec, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return nonNegative(n), true
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
