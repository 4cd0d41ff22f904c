package bench

import (
	"regexp"
	"strconv"
	"strings"
)

var fpsRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*fps`)

// Throughput returns the last line containing marker, or "" when none does.
func Throughput(lines []string, marker string) string {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], marker) {
			return strings.TrimRight(lines[i], "\r")
		}
	}
	return ""
}

// ParseFPS extracts a frames-per-second figure such as "(487fps)" or
// "312.5 fps" from a throughput line.
func ParseFPS(line string) (float64, bool) {
	m := fpsRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
