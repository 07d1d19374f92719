package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"agendaconsole/internal/model"
)

const defaultMaxVisible = 3

var (
	weekdayLabels = [7]string{"Dom", "Seg", "Ter", "Qua", "Qui", "Sex", "Sáb"}
	monthNames    = [12]string{
		"janeiro", "fevereiro", "março", "abril", "maio", "junho",
		"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
	}
)

// Options controls how BuildMonth lays out the grid.
type Options struct {
	// Location is the display zone used for parsing and day keys.
	// If nil, the location of the month argument is used.
	Location *time.Location

	// WeekStart is the weekday drawn in the first column (default Sunday).
	WeekStart time.Weekday

	// MaxVisible caps items drawn per cell. Zero means 3.
	MaxVisible int

	// Now marks the "today" cell. Zero means time.Now().
	Now time.Time
}

// Entry is an appointment placed on the grid together with its parsed time.
type Entry struct {
	model.CalendarAppointment
	At    time.Time
	Time  string
	Valid bool
}

// Day is one populated cell of the month grid.
type Day struct {
	Date    time.Time
	Key     string
	Items   []Entry
	Visible []Entry
	Hidden  int
	Today   bool
}

// Empty reports whether the day has no appointments.
func (d *Day) Empty() bool { return len(d.Items) == 0 }

// Cell is either a leading blank (Day == nil) or a day of the month.
type Cell struct {
	Day *Day
}

// Month is a derived, non-persistent view; build a fresh one per render.
type Month struct {
	First     time.Time
	WeekStart time.Weekday
	Cells     []Cell

	// Unscheduled counts input items whose start value could not be parsed.
	// They are grouped under the 1970-01-01 sentinel and so only appear in
	// that month's grid.
	Unscheduled int
}

// BuildMonth lays out the month containing month and distributes items over
// its days. Items are grouped by local DateKey, sorted ascending by parsed
// start (stable for ties) and split into Visible/Hidden. items is not
// modified.
func BuildMonth(month time.Time, items []model.CalendarAppointment, opts Options) Month {
	loc := opts.Location
	if loc == nil {
		loc = month.Location()
	}
	maxVisible := opts.MaxVisible
	if maxVisible <= 0 {
		maxVisible = defaultMaxVisible
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	todayKey := DateKey(now.In(loc))

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc)
	daysInMonth := time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, loc).Day()

	out := Month{First: first, WeekStart: opts.WeekStart}

	buckets := make(map[string][]Entry)
	for _, it := range items {
		e := newEntry(it, loc)
		if !e.Valid {
			out.Unscheduled++
		}
		key := DateKey(e.At)
		buckets[key] = append(buckets[key], e)
	}

	leading := (int(first.Weekday()) - int(opts.WeekStart) + 7) % 7
	out.Cells = make([]Cell, 0, leading+daysInMonth)
	for i := 0; i < leading; i++ {
		out.Cells = append(out.Cells, Cell{})
	}

	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, loc)
		key := DateKey(date)
		day := &Day{
			Date:  date,
			Key:   key,
			Today: key == todayKey,
		}
		if entries := buckets[key]; len(entries) > 0 {
			sortEntries(entries)
			day.Items = entries
			day.Visible = entries[:min(maxVisible, len(entries))]
			day.Hidden = len(entries) - len(day.Visible)
		}
		out.Cells = append(out.Cells, Cell{Day: day})
	}

	return out
}

// ItemsForDate returns the items whose start falls on date's local day,
// sorted ascending. It backs the day detail view.
func ItemsForDate(date time.Time, items []model.CalendarAppointment, loc *time.Location) []Entry {
	if loc == nil {
		loc = date.Location()
	}
	key := DateKey(date.In(loc))
	var out []Entry
	for _, it := range items {
		e := newEntry(it, loc)
		if DateKey(e.At) == key {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

func newEntry(it model.CalendarAppointment, loc *time.Location) Entry {
	at, ok := ParseStartAtOK(it.StartAt, loc)
	return Entry{
		CalendarAppointment: it,
		At:                  at,
		Time:                fmt.Sprintf("%02d:%02d", at.Hour(), at.Minute()),
		Valid:               ok,
	}
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].At.Before(entries[j].At)
	})
}

// Days returns only the populated cells, in date order.
func (m Month) Days() []*Day {
	out := make([]*Day, 0, len(m.Cells))
	for _, c := range m.Cells {
		if c.Day != nil {
			out = append(out, c.Day)
		}
	}
	return out
}

// Weeks splits the cells into rows of seven, padding the last row.
func (m Month) Weeks() [][]Cell {
	var weeks [][]Cell
	for i := 0; i < len(m.Cells); i += 7 {
		end := min(i+7, len(m.Cells))
		row := make([]Cell, 7)
		copy(row, m.Cells[i:end])
		weeks = append(weeks, row)
	}
	return weeks
}

// WeekdayLabels returns the column headers rotated to WeekStart.
func (m Month) WeekdayLabels() []string {
	out := make([]string, 7)
	for i := range out {
		out[i] = weekdayLabels[(int(m.WeekStart)+i)%7]
	}
	return out
}

// Label is the heading, e.g. "fevereiro de 2026".
func (m Month) Label() string {
	return fmt.Sprintf("%s de %d", monthNames[m.First.Month()-1], m.First.Year())
}

// Param is the "YYYY-MM" query value for this month.
func (m Month) Param() string {
	return m.First.Format("2006-01")
}

func (m Month) Prev() time.Time {
	return time.Date(m.First.Year(), m.First.Month()-1, 1, 0, 0, 0, 0, m.First.Location())
}

func (m Month) Next() time.Time {
	return time.Date(m.First.Year(), m.First.Month()+1, 1, 0, 0, 0, 0, m.First.Location())
}

// Range returns [first day 00:00, first day of next month 00:00).
func (m Month) Range() (time.Time, time.Time) {
	return m.First, m.Next()
}

// ParseMonthParam parses a "YYYY-MM" query value in loc. Empty or invalid
// input yields the month containing now.
func ParseMonthParam(v string, loc *time.Location, now time.Time) time.Time {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01", strings.TrimSpace(v), loc); err == nil {
		return t
	}
	now = now.In(loc)
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
}

// ParseWeekStart maps the config value to a weekday; anything but "monday"
// is Sunday.
func ParseWeekStart(v string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(v), "monday") {
		return time.Monday
	}
	return time.Sunday
}
