package utils

import (
	"strings"
	"time"
)

// DateLayout is the calendar-day format used on the wire and in cache keys.
const DateLayout = "2006-01-02"

func ParseDate(dateStr string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(dateStr))
}

func FormatDate(date time.Time) string {
	return date.Format(DateLayout)
}

// TruncateDay drops the clock part of t, keeping its calendar day in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
