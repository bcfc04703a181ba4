package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Captures "N [units] ago", e.g. "2 years ago" or "1 week ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day|hour|minute)s?\s+ago$`)

// Captures "N [units]", e.g. "3 days".
var humanDurationRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day|hour|minute)s?$`)

// ParseRelativeTime converts strings like "2 years ago" into a time.Time in the past.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	switch matches[2] {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	default:
		return now.Add(-time.Duration(value) * unitDuration(matches[2])), nil
	}
}

// ParseDuration converts strings like "10m", "24h" or "3 days" into a time.Duration.
// Go duration syntax is tried first. Zero is accepted.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return 0, errors.New("duration cannot be negative")
		}
		return d, nil
	}

	matches := humanDurationRe.FindStringSubmatch(strings.ToLower(s))
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %q. Expected Go syntax like '10m' or 'N [units]'", s)
	}
	value, _ := strconv.Atoi(matches[1])
	return time.Duration(value) * unitDuration(matches[2]), nil
}

// ParseTimeBound parses an absolute date (RFC3339 or YYYY-MM-DD) or a relative
// "N [units] ago" expression. An empty string returns the zero time.
func ParseTimeBound(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(DateTimeFormat, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q. Expected ISO8601, YYYY-MM-DD or 'N [units] ago'", s)
	}
	return t, nil
}

// unitDuration approximates calendar units: a month is 30 days and a year is 365 days.
func unitDuration(unit string) time.Duration {
	switch unit {
	case "year":
		return 365 * 24 * time.Hour
	case "month":
		return 30 * 24 * time.Hour
	case "week":
		return 7 * 24 * time.Hour
	case "day":
		return 24 * time.Hour
	case "hour":
		return time.Hour
	default:
		return time.Minute
	}
}
