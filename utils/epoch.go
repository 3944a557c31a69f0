package utils

import (
	"fmt"
	"time"
)

// EpochID returns the identifier for the matching epoch containing t,
// formatted as an ISO week, e.g. "2026-W35".
func EpochID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseEpochID parses an epoch identifier produced by EpochID.
func ParseEpochID(epochID string) (year, week int, err error) {
	if _, err = fmt.Sscanf(epochID, "%d-W%d", &year, &week); err != nil {
		return 0, 0, fmt.Errorf("invalid epoch id %q: %w", epochID, err)
	}
	if week < 1 || week > 53 {
		return 0, 0, fmt.Errorf("invalid epoch id %q: week out of range", epochID)
	}
	return year, week, nil
}

// epochMonday returns the Monday of the given ISO week. January 4th is
// always in ISO week 1.
func epochMonday(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekday := int(jan4.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	week1Monday := jan4.AddDate(0, 0, 1-weekday)
	return week1Monday.AddDate(0, 0, (week-1)*7)
}

// PreviousEpochID returns the identifier of the epoch immediately before
// epochID.
func PreviousEpochID(epochID string) (string, error) {
	year, week, err := ParseEpochID(epochID)
	if err != nil {
		return "", err
	}
	return EpochID(epochMonday(year, week).AddDate(0, 0, -7)), nil
}

// EpochsBetween returns how many epochs elapsed from a to b (negative when
// a is later than b).
func EpochsBetween(a, b string) (int, error) {
	ay, aw, err := ParseEpochID(a)
	if err != nil {
		return 0, err
	}
	by, bw, err := ParseEpochID(b)
	if err != nil {
		return 0, err
	}
	days := epochMonday(by, bw).Sub(epochMonday(ay, aw)).Hours() / 24
	return int(days) / 7, nil
}
