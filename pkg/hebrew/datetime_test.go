package hebrew

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustLocation(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Jerusalem")
	require.NoError(t, err)
	return loc
}

// TestParseTomorrowRoundTrip is the property-based law in spec.md §8:
// parse_date("מחר", user_zone, now) returns the day after now in
// user_zone, regardless of current hour.
func TestParseTomorrowRoundTrip(t *testing.T) {
	loc := mustLocation(t)
	for _, hour := range []int{0, 9, 13, 23} {
		now := time.Date(2025, 10, 10, hour, 0, 0, 0, loc)
		q := Parse("מחר", loc, now)
		require.True(t, q.Success)
		got := q.InstantUTC.In(loc)
		require.Equal(t, now.AddDate(0, 0, 1).Day(), got.Day())
	}
}

// TestScenario1SimpleEventCreation matches spec.md §8 scenario 1.
func TestScenario1SimpleEventCreation(t *testing.T) {
	loc := mustLocation(t)
	now := time.Date(2025, 10, 10, 10, 0, 0, 0, loc)
	q := Parse("מחר ב-3", loc, now)
	require.True(t, q.Success)
	require.Equal(t, "2025-10-11T12:00:00Z", q.InstantUTC.Format(time.RFC3339))
}

// TestScenario2BareNumberDisambiguation matches spec.md §8 scenario 2.
func TestScenario2BareNumberDisambiguation(t *testing.T) {
	loc := mustLocation(t)
	now := time.Date(2025, 10, 10, 10, 0, 0, 0, loc)
	q := Parse("ב 21", loc, now)
	require.True(t, q.Success)
	require.Equal(t, "2025-10-10T18:00:00Z", q.InstantUTC.Format(time.RFC3339))
}

// TestParseWeekRange covers spec.md §8's week-range law (Sunday
// 00:00 to Saturday 24:00 local). The boundary instants are computed
// against the real Asia/Jerusalem IANA rules in effect on 2025-10-10
// (IDT, UTC+3; DST does not end until 2025-10-26), which places
// Sunday 2025-10-05 00:00 local at 2025-10-04T21:00:00Z — one day
// earlier than the illustrative UTC strings in spec.md §8 scenario 3,
// which appear to assume a different offset.
func TestParseWeekRange(t *testing.T) {
	loc := mustLocation(t)
	now := time.Date(2025, 10, 10, 10, 0, 0, 0, loc)
	q := Parse("מה יש לי השבוע", loc, now)
	require.True(t, q.Success)
	require.True(t, q.IsWeekRange)
	require.Equal(t, "2025-10-04T21:00:00Z", q.RangeStartUTC.Format(time.RFC3339))
	require.Equal(t, "2025-10-11T21:00:00Z", q.RangeEndUTC.Format(time.RFC3339))
}

func TestLeadTimeMinutes(t *testing.T) {
	cases := map[string]int{
		"יום לפני":     1440,
		"שעה לפני":     60,
		"שעתיים לפני":   120,
		"חצי שעה לפני":  30,
		"שבוע לפני":    10080,
		"5 שעות לפני":   300,
	}
	for phrase, want := range cases {
		got, ok := LeadTimeMinutes(phrase)
		require.True(t, ok, phrase)
		require.Equal(t, want, got, phrase)
	}
}

func TestDayOfMonthRollsToNextMonth(t *testing.T) {
	loc := mustLocation(t)
	now := time.Date(2025, 10, 30, 10, 0, 0, 0, loc)
	got := DayOfMonth(now, loc, 5)
	require.Equal(t, time.November, got.Month())
	require.Equal(t, 5, got.Day())
}
