package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var weekIDExpr = regexp.MustCompile(`^\d{4}-(0[1-9]|[1-4]\d|5[0-3])$`)

func TestWeekID(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"mid year", time.Date(2025, time.November, 8, 12, 0, 0, 0, time.UTC), "2025-45"},
		{"jan 1 on friday belongs to previous year", time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC), "2020-53"},
		{"jan 1 on sunday belongs to previous year", time.Date(2023, time.January, 1, 10, 0, 0, 0, time.UTC), "2022-52"},
		{"jan 1 on thursday is week one", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), "2026-01"},
		{"dec 29 can be next year", time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), "2026-01"},
		{"single digit week padded", time.Date(2025, time.February, 3, 0, 0, 0, 0, time.UTC), "2025-06"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := WeekID(tc.at)
			assert.Equal(t, tc.want, got)
			assert.Regexp(t, weekIDExpr, got)
		})
	}
}

func TestWeekIDUsesUTC(t *testing.T) {
	t.Parallel()

	// Monday 00:30 in Paris is still Sunday in UTC.
	paris := time.FixedZone("CET", 3600)
	local := time.Date(2025, time.November, 10, 0, 30, 0, 0, paris)

	assert.Equal(t, "2025-45", WeekID(local))
}

func TestWeekIDStableWithinWeek(t *testing.T) {
	t.Parallel()

	monday := time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, time.November, 9, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, WeekID(monday), WeekID(sunday))
}

func TestIdentityKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, IdentityKey("Ratboys", "Singin' to an Empty Chair"), IdentityKey("  RATBOYS ", "singin'  to an empty chair"))
	assert.NotEqual(t, IdentityKey("Ratboys", "GN"), IdentityKey("Ratboy", "sGN"))
}
