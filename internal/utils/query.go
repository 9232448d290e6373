package utils

import (
	"net/url"
	"strconv"
)

// QueryInt64 safely parses an integer from query parameters.
// If missing or invalid, returns the provided default.
func QueryInt64(q url.Values, key string, def int64) int64 {
	v := q.Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

// PathID parses a positive numeric route parameter.
func PathID(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
