// Package calendar maps appointment records onto a month grid and carries the
// small amount of date arithmetic the console needs (slot previews, working
// days, end-time calculation, iCalendar export).
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel returns the timestamp used for empty or unparseable start values:
// 1970-01-01 00:00:00 in loc. It sorts before every real appointment.
func Sentinel(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(1970, time.January, 1, 0, 0, 0, 0, loc)
}

// isoLayouts are tried for values containing a literal 'T'. The zone-less
// forms are interpreted in the display location.
var isoLayouts = []struct {
	layout string
	zoned  bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04Z07:00", true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04:05", false},
	{"2006-01-02T15:04", false},
}

// ParseStartAt converts a producer-supplied start value into a time in loc.
// See ParseStartAtOK for the rules; invalid input yields Sentinel(loc).
func ParseStartAt(value string, loc *time.Location) time.Time {
	t, _ := ParseStartAtOK(value, loc)
	return t
}

// ParseStartAtOK parses value and reports whether it was a usable timestamp.
//
//   - A value containing 'T' is parsed as ISO 8601; zoned values are converted
//     into loc, zone-less ones are taken as wall-clock time in loc.
//   - Otherwise the value is split on spaces into a "Y-M-D" date part and an
//     optional "H:M:S" time part (default 00:00:00), and a local date is built.
//     Missing or zero month/day default to 1, missing time components to 0.
//     This avoids the day shift a date-only ISO parse would cause.
//   - Empty or unparseable input returns (Sentinel(loc), false).
func ParseStartAtOK(value string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Sentinel(loc), false
	}

	if strings.Contains(value, "T") {
		for _, l := range isoLayouts {
			if l.zoned {
				if t, err := time.Parse(l.layout, value); err == nil {
					return t.In(loc), true
				}
				continue
			}
			if t, err := time.ParseInLocation(l.layout, value, loc); err == nil {
				return t, true
			}
		}
		return Sentinel(loc), false
	}

	parts := strings.Fields(value)
	datePart := parts[0]
	timePart := "00:00:00"
	if len(parts) > 1 {
		timePart = parts[1]
	}

	ymd := strings.Split(datePart, "-")
	year, err := strconv.Atoi(strings.TrimSpace(ymd[0]))
	if err != nil {
		return Sentinel(loc), false
	}
	month := componentOr(ymd, 1, 1)
	day := componentOr(ymd, 2, 1)

	hms := strings.Split(timePart, ":")
	hour := componentOr(hms, 0, 0)
	minute := componentOr(hms, 1, 0)
	second := componentOr(hms, 2, 0)

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), true
}

// componentOr returns the integer at parts[i], or def when it is missing,
// non-numeric or zero.
func componentOr(parts []string, i, def int) int {
	if i >= len(parts) {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
	if err != nil || n == 0 {
		return def
	}
	return n
}

// DateKey returns the zero-padded local "YYYY-MM-DD" key of t. The key is
// taken in t's own location, never UTC, so 23:30 local stays on its day.
func DateKey(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// FormatTime renders the "HH:MM" label shown next to an appointment title.
func FormatTime(value string, loc *time.Location) string {
	t := ParseStartAt(value, loc)
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
