// Package timeutil parses the relative cutoff syntax shared by the admin API
// and the CLI.
package timeutil

import (
	"fmt"
	"strconv"
	"time"
)

// ParseCutoff turns an "older than" value into an absolute cutoff instant.
// Accepted forms: "<n>{m|h|d|w}", an ISO date, or an RFC3339 timestamp.
func ParseCutoff(value string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("a duration or date is required")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}

	unit := value[len(value)-1]
	n, err := strconv.Atoi(value[:len(value)-1])
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("invalid duration %q: expected <n>{m|h|d|w} or a date", value)
	}

	var d time.Duration
	switch unit {
	case 'm':
		d = time.Duration(n) * time.Minute
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	case 'w':
		d = time.Duration(n) * 7 * 24 * time.Hour
	default:
		return time.Time{}, fmt.Errorf("invalid duration unit %q: expected m, h, d or w", string(unit))
	}
	return now.Add(-d), nil
}
