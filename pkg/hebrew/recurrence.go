package hebrew

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// weekdayCodes maps Go's time.Weekday to RFC 5545 BYDAY codes.
var weekdayCodes = [...]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

var hebrewWeekdayToGo = map[string]time.Weekday{
	"ראשון": time.Sunday, "שני": time.Monday, "שלישי": time.Tuesday,
	"רביעי": time.Wednesday, "חמישי": time.Thursday, "שישי": time.Friday,
	"שבת": time.Saturday,
}

// GenerateRRULE translates a Hebrew/English recurrence phrase into an
// iCalendar-style RRULE string, per spec.md §4.4.3.
func GenerateRRULE(text string) (string, bool) {
	norm := Normalize(text)
	for name, wd := range hebrewWeekdayToGo {
		if strings.Contains(norm, "כל יום "+name) || strings.Contains(norm, "כל "+name) {
			return fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s", weekdayCodes[wd]), true
		}
	}
	switch {
	case strings.Contains(norm, "כל יום"), strings.Contains(norm, "מידי יום"), strings.Contains(norm, "every day"):
		return "FREQ=DAILY", true
	}
	if m := regexp.MustCompile(`every\s+(\w+)`).FindStringSubmatch(norm); m != nil {
		if wd, ok := englishWeekday(m[1]); ok {
			return fmt.Sprintf("FREQ=WEEKLY;BYDAY=%s", weekdayCodes[wd]), true
		}
	}
	if m := regexp.MustCompile(`ב[-\s]?(\d{1,2})\s*לכל\s*חודש`).FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 31 {
			return fmt.Sprintf("FREQ=MONTHLY;BYMONTHDAY=%d", n), true
		}
	}
	if m := regexp.MustCompile(`every\s+(\d{1,2})(?:st|nd|rd|th)?\s+of\s+the\s+month`).FindStringSubmatch(norm); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= 31 {
			return fmt.Sprintf("FREQ=MONTHLY;BYMONTHDAY=%d", n), true
		}
	}
	return "", false
}

func englishWeekday(word string) (time.Weekday, bool) {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	wd, ok := names[word]
	return wd, ok
}

// ExpandRRULE enumerates concrete UTC instants on or after from,
// strictly before until, anchored at anchor's time-of-day, for the
// FREQ=DAILY/WEEKLY/MONTHLY subset GenerateRRULE produces.
func ExpandRRULE(rrule string, anchor time.Time, from, until time.Time) ([]time.Time, error) {
	fields := parseRRULEFields(rrule)
	freq := fields["FREQ"]

	hour, minute, sec := anchor.Clock()
	loc := anchor.Location()

	var out []time.Time
	cursor := anchor
	guard := 0
	for cursor.Before(until) && guard < 100000 {
		guard++
		if !cursor.Before(from) {
			out = append(out, cursor)
		}
		switch freq {
		case "DAILY":
			cursor = cursor.AddDate(0, 0, 1)
		case "WEEKLY":
			byday, ok := fields["BYDAY"]
			if !ok {
				cursor = cursor.AddDate(0, 0, 7)
				continue
			}
			target := codeToWeekday(byday)
			next := cursor.AddDate(0, 0, 1)
			for next.Weekday() != target {
				next = next.AddDate(0, 0, 1)
			}
			cursor = time.Date(next.Year(), next.Month(), next.Day(), hour, minute, sec, 0, loc)
		case "MONTHLY":
			dayStr, ok := fields["BYMONTHDAY"]
			if !ok {
				cursor = cursor.AddDate(0, 1, 0)
				continue
			}
			day, _ := strconv.Atoi(dayStr)
			next := cursor.AddDate(0, 1, 0)
			cursor = time.Date(next.Year(), next.Month(), day, hour, minute, sec, 0, loc)
		default:
			return out, fmt.Errorf("unsupported RRULE FREQ: %s", freq)
		}
	}
	return out, nil
}

func parseRRULEFields(rrule string) map[string]string {
	fields := map[string]string{}
	for _, part := range strings.Split(rrule, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) == 2 {
			fields[kv[0]] = kv[1]
		}
	}
	return fields
}

func codeToWeekday(code string) time.Weekday {
	for i, c := range weekdayCodes {
		if c == code {
			return time.Weekday(i)
		}
	}
	return time.Sunday
}
