package models

import (
	"fmt"
	"time"
)

const monthIDLayout = "2006-01"

// ParseMonthID validates a "YYYY-MM" month id.
func ParseMonthID(id string) (time.Time, error) {
	t, err := time.Parse(monthIDLayout, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month id %q: %w", id, err)
	}
	return t, nil
}

// NextMonthID returns the "YYYY-MM" period following the given one.
func NextMonthID(id string) (string, error) {
	t, err := ParseMonthID(id)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 1, 0).Format(monthIDLayout), nil
}

// CurrentMonthID returns the month id for the given instant.
func CurrentMonthID(now time.Time) string {
	return now.Format(monthIDLayout)
}
