package hebrew

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateQuery is the parser's output shape, matching spec.md §4.4.2.
type DateQuery struct {
	Success        bool
	Error          string
	InstantUTC     *time.Time
	RangeStartUTC  *time.Time
	RangeEndUTC    *time.Time
	IsWeekRange    bool
	IsMonthRange   bool
	Description    string
}

var weekdayNames = map[string]time.Weekday{
	"ראשון": time.Sunday, "שני": time.Monday, "שלישי": time.Tuesday,
	"רביעי": time.Wednesday, "חמישי": time.Thursday, "שישי": time.Friday,
	"שבת": time.Saturday,
}

var explicitDateRe = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})(?:[./-](\d{2,4}))?`)
var relativeDaysRe = regexp.MustCompile(`(?:עוד\s*(\d+)\s*ימים|in\s+(\d+)\s+days?)`)
var hhmmRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
var bareHourRe = regexp.MustCompile(`(?:ב[-\s]?|לשעה\s+|ל\s+)?\b(\d{1,2})\b`)

var wordTimes = map[string]int{
	"שמונה בערב":          20,
	"שלוש אחרי הצהריים":    15,
	"תשע בבוקר":           9,
}

// sundayMidnight returns 00:00 of the Sunday on/before d, in loc.
func sundayMidnight(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	offset := int(d.Weekday())
	y, m, day := d.Date()
	midnight := time.Date(y, m, day, 0, 0, 0, 0, loc)
	return midnight.AddDate(0, 0, -offset)
}

func monthStart(d time.Time, loc *time.Location) time.Time {
	d = d.In(loc)
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, loc)
}

// Parse interprets a free Hebrew-or-English date/time expression
// relative to now (already in loc), per spec.md §4.4.2.
func Parse(text string, loc *time.Location, now time.Time) DateQuery {
	now = now.In(loc)
	norm := strings.TrimSpace(text)
	lower := strings.ToLower(norm)

	switch {
	case strings.Contains(norm, "היום") || strings.Contains(lower, "today"):
		return dayQuery(now, norm, "today")
	case strings.Contains(norm, "מחר") || strings.Contains(lower, "tomorrow"):
		return dayQuery(now.AddDate(0, 0, 1), norm, "tomorrow")
	case strings.Contains(norm, "אתמול") || strings.Contains(lower, "yesterday"):
		return dayQuery(now.AddDate(0, 0, -1), norm, "yesterday")
	case strings.Contains(norm, "שבוע הבא"):
		start := sundayMidnight(now, loc).AddDate(0, 0, 7)
		return weekRangeQuery(start, loc, "next week")
	case strings.Contains(norm, "השבוע") || strings.Contains(norm, "בשבוע") || strings.Contains(norm, "שבוע"):
		start := sundayMidnight(now, loc)
		return weekRangeQuery(start, loc, "this week")
	case strings.Contains(norm, "חודש הבא"):
		start := monthStart(now, loc).AddDate(0, 1, 0)
		return monthRangeQuery(start, loc, "next month")
	case strings.Contains(norm, "החודש") || strings.Contains(norm, "בחודש"):
		start := monthStart(now, loc)
		return monthRangeQuery(start, loc, "this month")
	}

	if m := relativeDaysRe.FindStringSubmatch(norm); m != nil {
		nStr := m[1]
		if nStr == "" {
			nStr = m[2]
		}
		n, err := strconv.Atoi(nStr)
		if err == nil && n >= 0 && n <= 365 {
			target := now.AddDate(0, 0, n)
			return dayQuery(target, norm, fmt.Sprintf("in %d days", n))
		}
	}

	if wd, ok := matchWeekday(norm); ok {
		target := nextWeekday(now, wd)
		return dayQuery(target, norm, "weekday")
	}

	if m := explicitDateRe.FindStringSubmatch(norm); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := now.Year()
		if m[3] != "" {
			y, _ := strconv.Atoi(m[3])
			if y < 100 {
				y += 2000
			}
			year = y
		}
		candidate := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
		if m[3] == "" && candidate.Before(truncateToDay(now)) {
			candidate = candidate.AddDate(1, 0, 0)
		}
		hour, minute, hasTime := findTime(norm)
		if hasTime {
			candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, loc)
		}
		return instantQuery(candidate, fmt.Sprintf("%02d/%02d/%04d", day, month, year))
	}

	if hour, minute, ok := findTime(norm); ok {
		target := applyBareNumberRule(now, loc, hour, minute, norm)
		return instantQuery(target, "time-only")
	}

	return DateQuery{Success: false, Error: "could not parse date/time expression"}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func matchWeekday(norm string) (time.Weekday, bool) {
	for name, wd := range weekdayNames {
		if strings.Contains(norm, "יום "+name) || strings.Contains(norm, "ביום "+name) || strings.Contains(norm, "ימי "+name) || strings.Contains(norm, name) {
			return wd, true
		}
	}
	return 0, false
}

// nextWeekday returns the first date strictly after now whose weekday
// matches wd; when now already falls on wd, the result is the same
// weekday one week later, never today.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	d := now
	for i := 0; i < 8; i++ {
		if d.Weekday() == wd && i > 0 {
			return d
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// applyBareNumberRule implements spec.md's explicit ambiguity rules
// for a bare integer with no surrounding date token: 0-23 is a time
// today (rolling to tomorrow if already past); 24-31 would be a day
// of month, but that disambiguation belongs to the caller holding
// the full text context, so here we only handle the in-range time case.
func applyBareNumberRule(now time.Time, loc *time.Location, hour, minute int, norm string) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, loc)
	if !candidate.After(now) && strings.TrimSpace(norm) != "" && isBareNumber(norm) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

func isBareNumber(norm string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(norm, "ב-"), "ב"))
	_, err := strconv.Atoi(trimmed)
	return err == nil
}

// findTime extracts an explicit time from norm: HH:MM first, word
// times next, then a bare 0-23 integer (noon special-cased to 12:00
// never midnight per spec.md).
func findTime(norm string) (hour, minute int, ok bool) {
	if m := hhmmRe.FindStringSubmatch(norm); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h >= 0 && h <= 23 && mi >= 0 && mi <= 59 {
			return h, mi, true
		}
	}
	for phrase, h := range wordTimes {
		if strings.Contains(norm, phrase) {
			return h, 0, true
		}
	}
	if m := bareHourRe.FindStringSubmatch(norm); m != nil {
		h, err := strconv.Atoi(m[1])
		if err == nil && h >= 0 && h <= 23 {
			// Colloquial Hebrew meeting times in 1-7 without an
			// explicit morning marker mean the afternoon/evening hour.
			if h >= 1 && h <= 7 && !strings.Contains(norm, "בבוקר") {
				h += 12
			}
			return h, 0, true
		}
	}
	return 0, 0, false
}

func dayQuery(t time.Time, norm string, desc string) DateQuery {
	hour, minute, _ := findTime(norm)
	target := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
	return instantQuery(target, desc)
}

func instantQuery(t time.Time, desc string) DateQuery {
	utc := t.UTC()
	return DateQuery{
		Success:     true,
		InstantUTC:  &utc,
		Description: desc,
	}
}

func weekRangeQuery(start time.Time, loc *time.Location, desc string) DateQuery {
	end := start.AddDate(0, 0, 7)
	su, eu := start.UTC(), end.UTC()
	return DateQuery{
		Success:       true,
		RangeStartUTC: &su,
		RangeEndUTC:   &eu,
		IsWeekRange:   true,
		Description:   desc,
	}
}

func monthRangeQuery(start time.Time, loc *time.Location, desc string) DateQuery {
	end := start.AddDate(0, 1, 0)
	su, eu := start.UTC(), end.UTC()
	return DateQuery{
		Success:       true,
		RangeStartUTC: &su,
		RangeEndUTC:   &eu,
		IsMonthRange:  true,
		Description:   desc,
	}
}

// LeadTimeMinutes parses a lead-time phrase relative to a quoted
// event per spec.md §4.4.2's table, returning ok=false if none match.
func LeadTimeMinutes(norm string) (int, bool) {
	switch {
	case strings.Contains(norm, "יום לפני"):
		return 1440, true
	case strings.Contains(norm, "שבוע לפני"):
		return 10080, true
	case strings.Contains(norm, "שעתיים לפני"):
		return 120, true
	case strings.Contains(norm, "חצי שעה לפני"):
		return 30, true
	case strings.Contains(norm, "שעה לפני"):
		return 60, true
	}
	if m := regexp.MustCompile(`(\d+)\s*שעות\s*לפני`).FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 24 {
			return n * 60, true
		}
	}
	if m := regexp.MustCompile(`(\d+)\s*דקות\s*לפני`).FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	return 0, false
}

// DayOfMonth implements the bare-integer 24-31 ambiguity rule: day X
// of the current month, rolling to next month if X has already
// passed this month.
func DayOfMonth(now time.Time, loc *time.Location, day int) time.Time {
	now = now.In(loc)
	candidate := time.Date(now.Year(), now.Month(), day, 0, 0, 0, 0, loc)
	if candidate.Before(truncateToDay(now)) {
		candidate = candidate.AddDate(0, 1, 0)
	}
	return candidate
}
