package util

import "strconv"

const MaxPageSize = 100

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// LimitOffset parses ?limit= and ?offset=, falling back to the configured
// defaults for missing or unparsable values.
func LimitOffset(limitStr, offsetStr string, defLimit, defOffset int) (limit, offset int) {
	limit = ParseIntDefault(limitStr, defLimit)
	offset = ParseIntDefault(offsetStr, defOffset)
	if limit <= 0 {
		limit = defLimit
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
