package domain

import (
	"fmt"
	"time"
)

// WeekID formats the ISO-8601 week of t (in UTC) as YYYY-WW.
func WeekID(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%04d-%02d", year, week)
}
