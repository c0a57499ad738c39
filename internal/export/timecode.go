package export

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseTimecode converts "HH:MM:SS[.fff]", "MM:SS[.fff]" or plain seconds to
// milliseconds.
func ParseTimecode(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timecode")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("timecode %q has too many fields", s)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil || seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return 0, fmt.Errorf("invalid seconds in timecode %q", s)
	}
	if len(parts) > 1 && seconds >= 60 {
		return 0, fmt.Errorf("seconds out of range in timecode %q", s)
	}

	total := seconds
	multiplier := 60.0
	for i := len(parts) - 2; i >= 0; i-- {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid field %q in timecode %q", parts[i], s)
		}
		if i == len(parts)-2 && len(parts) == 3 && n >= 60 {
			return 0, fmt.Errorf("minutes out of range in timecode %q", s)
		}
		total += float64(n) * multiplier
		multiplier *= 60
	}

	return int(math.Round(total * 1000)), nil
}
