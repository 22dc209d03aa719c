package sandbox

import (
	"fmt"
	"strconv"
	"strings"
)

// Duration 以秒为单位的时长，可以是纯数字（秒）或带单位的字符串，如 "30s"、"5m"、"2h"、"1d"。
type Duration string

// Seconds 构造一个以秒为单位的 Duration。
func Seconds(n int64) Duration {
	return Duration(strconv.FormatInt(n, 10))
}

var durationUnits = map[byte]int64{
	's': 1,
	'm': 60,
	'h': 60 * 60,
	'd': 24 * 60 * 60,
}

// ParseDuration 将时长字符串解析为秒数，空字符串返回 0。
func ParseDuration(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	value, multiplier := s, int64(1)
	if unit, ok := durationUnits[s[len(s)-1]]; ok {
		value, multiplier = s[:len(s)-1], unit
	}
	if value == "" || strings.IndexFunc(value, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return n * multiplier, nil
}

// Seconds 返回秒数。
func (d Duration) Seconds() (int64, error) {
	return ParseDuration(string(d))
}

func (d Duration) String() string {
	return string(d)
}
