package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"agendaconsole/internal/model"
)

const minutesPerDay = 24 * 60

// AddMinutesToTime adds minutes to a "HH:MM" wall-clock value and wraps
// around midnight. Negative minutes are treated as zero. Input that is not
// "HH:MM" is returned unchanged.
func AddMinutesToTime(hhmm string, minutes int) string {
	hour, minute, ok := parseClock(hhmm)
	if !ok {
		return hhmm
	}
	total := hour*60 + minute + max(0, minutes)
	total = ((total % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func parseClock(v string) (int, int, bool) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 {
		return 0, 0, false
	}
	hour, err := atoiEmptyZero(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minute, err := atoiEmptyZero(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return hour, minute, true
}

func atoiEmptyZero(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// Overlaps reports whether [aStart, aStart+aDur) and [bStart, bStart+bDur)
// intersect. Zero-length intervals never overlap anything.
func Overlaps(aStart time.Time, aDur time.Duration, bStart time.Time, bDur time.Duration) bool {
	if aDur <= 0 || bDur <= 0 {
		return false
	}
	aEnd := aStart.Add(aDur)
	bEnd := bStart.Add(bDur)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Conflicts returns the existing appointments of the same professional that
// overlap candidate. Inactive appointments and candidate itself (same ID) are
// ignored. The booking API remains the authority; this only feeds a warning.
func Conflicts(candidate model.Appointment, existing []model.Appointment, loc *time.Location) []model.Appointment {
	start, ok := ParseStartAtOK(candidate.StartAt, loc)
	if !ok {
		return nil
	}
	dur := time.Duration(candidate.DurationMinutes) * time.Minute

	var out []model.Appointment
	for _, a := range existing {
		if a.ProfessionalID != candidate.ProfessionalID {
			continue
		}
		if candidate.ID != 0 && a.ID == candidate.ID {
			continue
		}
		if a.Active != nil && !*a.Active {
			continue
		}
		other, ok := ParseStartAtOK(a.StartAt, loc)
		if !ok {
			continue
		}
		if Overlaps(start, dur, other, time.Duration(a.DurationMinutes)*time.Minute) {
			out = append(out, a)
		}
	}
	return out
}

// CandidateSlots lists the "HH:MM" start times between start and end (both
// "HH:MM") every slotMinutes, keeping only slots that finish by end. It is a
// preview of the public booking grid; availability is decided upstream.
func CandidateSlots(start, end string, slotMinutes int) []string {
	if slotMinutes <= 0 {
		return nil
	}
	sh, sm, ok := parseClock(start)
	if !ok {
		return nil
	}
	eh, em, ok := parseClock(end)
	if !ok {
		return nil
	}
	from := sh*60 + sm
	to := eh*60 + em

	var out []string
	for t := from; t+slotMinutes <= to; t += slotMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d", t/60, t%60))
	}
	return out
}

// isoWeekdays maps the settings encoding (1=Monday ... 7=Sunday).
var isoWeekdays = map[string]rrule.Weekday{
	"1": rrule.MO,
	"2": rrule.TU,
	"3": rrule.WE,
	"4": rrule.TH,
	"5": rrule.FR,
	"6": rrule.SA,
	"7": rrule.SU,
}

// ParseWorkingDays decodes a "1,2,3" working-days value. Empty input means
// every day of the week.
func ParseWorkingDays(v string) ([]rrule.Weekday, error) {
	var days []rrule.Weekday
	seen := make(map[string]bool)
	for _, tok := range strings.Split(v, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		wd, ok := isoWeekdays[tok]
		if !ok {
			return nil, fmt.Errorf("calendar: invalid working day %q", tok)
		}
		if seen[tok] {
			continue
		}
		seen[tok] = true
		days = append(days, wd)
	}
	if len(days) == 0 {
		days = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA, rrule.SU}
	}
	return days, nil
}

// WorkingDates returns every date in [from, to] (day granularity, in from's
// location) that falls on one of the configured working days.
func WorkingDates(from, to time.Time, workingDays string) ([]time.Time, error) {
	days, err := ParseWorkingDays(workingDays)
	if err != nil {
		return nil, err
	}
	loc := from.Location()
	start := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	end := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, loc)
	if end.Before(start) {
		return nil, nil
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.DAILY,
		Dtstart:   start,
		Byweekday: days,
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: build working-day rule: %w", err)
	}
	return r.Between(start, end, true), nil
}
