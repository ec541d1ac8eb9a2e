package util

import (
	"strconv"
)

// ParseInt parses s, returning defaultValue on failure
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(s); err == nil {
		return val
	}
	return defaultValue
}

// ClampInt bounds v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParsePagination reads limit/offset query values with a default and cap
func ParsePagination(limitStr, offsetStr string, defaultLimit, maxLimit int) (int, int) {
	limit := ClampInt(ParseInt(limitStr, defaultLimit), 1, maxLimit)
	offset := ParseInt(offsetStr, 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
