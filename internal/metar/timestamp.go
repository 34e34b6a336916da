package metar

import (
	"regexp"
	"strconv"
	"time"
)

var (
	stationRe = regexp.MustCompile(`(?:^|\s)([A-Z]{4})(?:\s|$)`)
	timeRe    = regexp.MustCompile(`\b(\d{2})(\d{2})(\d{2})Z\b`)
)

// LooksLikeReport reports whether text carries a station-like token and a
// DDHHMMZ observation time token. It says nothing about the remaining groups.
func LooksLikeReport(text string) bool {
	return stationRe.MatchString(text) && timeRe.MatchString(text)
}

// ObservationTime resolves the DDHHMMZ token of a report against now.
// The token is read as a day of the current UTC month; when that instant lies
// in the future, or the day does not exist in the current month, the previous
// month is used instead (December of the previous year in January).
func ObservationTime(text string, now time.Time) (time.Time, bool) {
	m := timeRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[1])
	hour, _ := strconv.Atoi(m[2])
	minute, _ := strconv.Atoi(m[3])
	if day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	now = now.UTC()
	if ts, ok := dayInMonth(now.Year(), now.Month(), day, hour, minute); ok && !ts.After(now) {
		return ts, true
	}

	year, month := now.Year(), now.Month()-1
	if month < time.January {
		month = time.December
		year--
	}
	return dayInMonth(year, month, day, hour, minute)
}

// dayInMonth builds the instant and rejects days time.Date would normalise
// into the following month.
func dayInMonth(year int, month time.Month, day, hour, minute int) (time.Time, bool) {
	ts := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if ts.Month() != month || ts.Day() != day {
		return time.Time{}, false
	}
	return ts, true
}
