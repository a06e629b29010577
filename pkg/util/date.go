package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// steamLayout is the market's history timestamp without the zone suffix,
// e.g. "Jan 02 2024 01:" (hour resolution, trailing colon).
const steamLayout = "Jan 02 2006 15:"

// ParseSteamTime parses a market price-history timestamp such as
// "Jan 02 2024 01: +0". The suffix is a whole-hour UTC offset. The result
// is in UTC.
func ParseSteamTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	offset := 0
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		suffix := s[i+1:]
		if len(suffix) > 0 && (suffix[0] == '+' || suffix[0] == '-') {
			h, err := strconv.Atoi(suffix)
			if err != nil {
				return time.Time{}, fmt.Errorf("parse steam time %q: bad offset: %w", s, err)
			}
			offset = h
			s = strings.TrimSpace(s[:i])
		}
	}
	t, err := time.Parse(steamLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse steam time: %w", err)
	}
	return t.Add(-time.Duration(offset) * time.Hour).UTC(), nil
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseInt64Default parses s or returns def if empty/invalid. Market volumes
// arrive as strings.
func ParseInt64Default(s string, def int64) int64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return def
	}
	return v
}
