package timeutil

import (
	"strconv"
	"strings"
)

// ParseDurationSeconds normalizes a duration value into whole seconds.
// Numeric inputs are assumed to already be seconds. Strings may be
// "HH:MM:SS", "MM:SS" or "SS". Anything else falls back to 0 rather than
// erroring, so a bad duration never blocks a content write.
func ParseDurationSeconds(v any) int {
	switch d := v.(type) {
	case nil:
		return 0
	case int:
		return d
	case int64:
		return int(d)
	case float64:
		return int(d)
	case string:
		return parseClockString(d)
	default:
		return 0
	}
}

func parseClockString(s string) int {
	if s == "" {
		return 0
	}

	segments := strings.Split(s, ":")
	parts := make([]int, 0, len(segments))
	for _, seg := range segments {
		n, err := strconv.Atoi(strings.TrimSpace(seg))
		if err != nil {
			return 0
		}
		parts = append(parts, n)
	}

	switch len(parts) {
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2]
	case 2:
		return parts[0]*60 + parts[1]
	case 1:
		return parts[0]
	}
	return 0
}
