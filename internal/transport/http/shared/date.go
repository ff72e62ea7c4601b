package shared

import (
	"net/http"
	"time"
)

const dateOnly = "2006-01-02"

// ParseDate accepts RFC3339 or YYYY-MM-DD. Empty input is the zero time.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse(dateOnly, value)
}

// DateRange reads a [from, to) window from two query parameters. A bare
// date for the upper bound covers that whole day.
func DateRange(r *http.Request, fromKey, toKey string) (from, to time.Time, err error) {
	q := r.URL.Query()
	if from, err = ParseDate(q.Get(fromKey)); err != nil {
		return time.Time{}, time.Time{}, err
	}
	raw := q.Get(toKey)
	if to, err = ParseDate(raw); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if len(raw) == len(dateOnly) {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}
