package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order when reading free-form date cells
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"2006-1-2",
}

// ParseDate reads a calendar date in any of the common layouts
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// ParseDateValue is ParseDate for a table cell
func ParseDateValue(v Value) (time.Time, error) {
	if d, ok := v.Date(); ok {
		return d, nil
	}
	s, ok := v.Str()
	if !ok {
		return time.Time{}, fmt.Errorf("cannot read %s cell %q as a date", v.Kind(), v.String())
	}
	return ParseDate(s)
}

// splitYearWeek reads "YYYY-Www" or "YYYY-ww" into its year and week number
func splitYearWeek(s string) (year, week int, err error) {
	s = strings.TrimSpace(s)
	y, w, ok := strings.Cut(s, "-")
	if !ok || len(y) != 4 {
		return 0, 0, fmt.Errorf("malformed year-week %q", s)
	}
	w = strings.TrimPrefix(strings.TrimPrefix(w, "W"), "w")
	if w == "" || len(w) > 2 {
		return 0, 0, fmt.Errorf("malformed year-week %q", s)
	}
	if year, err = strconv.Atoi(y); err != nil {
		return 0, 0, fmt.Errorf("malformed year in %q", s)
	}
	if week, err = strconv.Atoi(w); err != nil || week < 0 || week > 53 {
		return 0, 0, fmt.Errorf("malformed week in %q", s)
	}
	return year, week, nil
}

// ISOWeekMonday returns the Monday of ISO-8601 week (year, week)
func ISOWeekMonday(year, week int) time.Time {
	// week 1 is the week holding January 4th
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+7*(week-1))
}

// ParseISOWeek reads an ISO week such as "2021-W05" and returns its Monday.
// Week numbers that do not exist in the given ISO year are rejected.
func ParseISOWeek(s string) (time.Time, error) {
	year, week, err := splitYearWeek(s)
	if err != nil {
		return time.Time{}, err
	}
	if week < 1 {
		return time.Time{}, fmt.Errorf("week %d out of range in %q", week, s)
	}
	monday := ISOWeekMonday(year, week)
	if y, w := monday.ISOWeek(); y != year || w != week {
		return time.Time{}, fmt.Errorf("week %d does not exist in ISO year %d", week, year)
	}
	return monday, nil
}

// ParseISOWeekValue is ParseISOWeek for a table cell
func ParseISOWeekValue(v Value) (time.Time, error) {
	s, ok := v.Str()
	if !ok {
		return time.Time{}, fmt.Errorf("cannot read %s cell %q as a year-week", v.Kind(), v.String())
	}
	return ParseISOWeek(s)
}

// ISOWeekToken formats the ISO year and week of d as "YYYY-WW"
func ISOWeekToken(d time.Time) string {
	y, w := d.ISOWeek()
	return fmt.Sprintf("%04d-%02d", y, w)
}

// MondayWeekStart returns the Monday of week number week counted with
// Monday as the first day and week 1 starting on the year's first Monday.
// Week 0 is the partial week before it, whose Monday may fall in the
// previous year.
func MondayWeekStart(year, week int) time.Time {
	jan1 := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	weekdayMon0 := (int(jan1.Weekday()) + 6) % 7
	if week == 0 {
		return jan1.AddDate(0, 0, -weekdayMon0)
	}
	firstMonday := (7 - weekdayMon0) % 7
	return jan1.AddDate(0, 0, firstMonday+7*(week-1))
}

// SundayWeekNumber returns the week of the year of d counted with Sunday as
// the first day; days before the first Sunday are week 0.
func SundayWeekNumber(d time.Time) int {
	return (d.YearDay() - 1 + 7 - int(d.Weekday())) / 7
}

// USWeekToken reads "YYYY-Www" with Monday-first week numbering and
// renumbers the resulting Monday with Sunday-first week numbering, as
// "YYYY-UU". The returned date is the Monday-first week start named by the
// new token, which can drift by a week from the input.
func USWeekToken(s string) (token string, date time.Time, err error) {
	year, week, err := splitYearWeek(s)
	if err != nil {
		return "", time.Time{}, err
	}
	monday := MondayWeekStart(year, week)
	u := SundayWeekNumber(monday)
	token = fmt.Sprintf("%04d-%02d", monday.Year(), u)
	return token, MondayWeekStart(monday.Year(), u), nil
}

// MonthLabel formats d as "YYYY-MM"
func MonthLabel(d time.Time) string {
	return d.Format("2006-01")
}

// QuarterLabel formats d as "YYYYQn"
func QuarterLabel(d time.Time) string {
	return fmt.Sprintf("%dQ%d", d.Year(), (int(d.Month())-1)/3+1)
}
