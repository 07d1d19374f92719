package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendaconsole/internal/model"
)

func TestAddMinutesToTime(t *testing.T) {
	assert.Equal(t, "10:45", AddMinutesToTime("10:00", 45))
	assert.Equal(t, "00:15", AddMinutesToTime("23:30", 45))
	assert.Equal(t, "09:00", AddMinutesToTime("09:00", -30))
	assert.Equal(t, "banana", AddMinutesToTime("banana", 30))
	assert.Equal(t, "xx:10", AddMinutesToTime("xx:10", 30))
}

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)
	hour := time.Hour

	assert.True(t, Overlaps(base, hour, base.Add(30*time.Minute), hour))
	assert.False(t, Overlaps(base, hour, base.Add(hour), hour), "back-to-back is not an overlap")
	assert.False(t, Overlaps(base, 0, base, hour))
}

func TestConflictsSameProfessionalOnly(t *testing.T) {
	loc := time.UTC
	inactive := false
	existing := []model.Appointment{
		{ID: 1, ProfessionalID: 7, StartAt: "2026-02-14 09:00", DurationMinutes: 60},
		{ID: 2, ProfessionalID: 8, StartAt: "2026-02-14 09:00", DurationMinutes: 60},
		{ID: 3, ProfessionalID: 7, StartAt: "2026-02-14T09:30:00", DurationMinutes: 30, Active: &inactive},
		{ID: 4, ProfessionalID: 7, StartAt: "2026-02-14 10:00", DurationMinutes: 30},
		{ID: 5, ProfessionalID: 7, StartAt: "2026-02-14 09:15", DurationMinutes: 15},
	}
	candidate := model.Appointment{ID: 5, ProfessionalID: 7, StartAt: "2026-02-14 09:15", DurationMinutes: 30}

	got := Conflicts(candidate, existing, loc)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)

	assert.Nil(t, Conflicts(model.Appointment{StartAt: ""}, existing, loc))
}

func TestCandidateSlots(t *testing.T) {
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, CandidateSlots("09:00", "11:00", 30))
	assert.Equal(t, []string{"08:00"}, CandidateSlots("08:00", "08:50", 45))
	assert.Nil(t, CandidateSlots("09:00", "11:00", 0))
	assert.Nil(t, CandidateSlots("nine", "11:00", 30))
	assert.Nil(t, CandidateSlots("12:00", "11:00", 30))
}

func TestWorkingDates(t *testing.T) {
	loc := time.UTC
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, loc)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, loc)

	got, err := WorkingDates(from, to, "1, 3,3")
	require.NoError(t, err)
	var keys []string
	for _, d := range got {
		keys = append(keys, DateKey(d))
	}
	assert.Equal(t, []string{
		"2026-02-02", "2026-02-04", "2026-02-09", "2026-02-11",
		"2026-02-16", "2026-02-18", "2026-02-23", "2026-02-25",
	}, keys)

	all, err := WorkingDates(from, to, "")
	require.NoError(t, err)
	assert.Len(t, all, 28)

	_, err = WorkingDates(from, to, "1,8")
	assert.Error(t, err)

	none, err := WorkingDates(to, from, "1")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestExportICS(t *testing.T) {
	loc := time.UTC
	appts := []model.Appointment{
		{ID: 1, StartAt: "2026-02-14 09:00", DurationMinutes: 45, Notes: "primeira visita"},
		{ID: 2, StartAt: "", DurationMinutes: 30},
		{ID: 3, StartAt: "2026-02-15T10:00:00Z"},
	}

	var buf bytes.Buffer
	err := ExportICS(&buf, appts, ExportOptions{
		Name:     "Studio",
		Location: loc,
		Title:    func(a model.Appointment) string { return "Corte" },
		Now:      time.Date(2026, 2, 1, 0, 0, 0, 0, loc),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(buf.String(), "BEGIN:VCALENDAR"))

	cal, err := ical.ParseCalendar(strings.NewReader(buf.String()))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2)

	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	end, err := events[0].GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, end.Sub(start))
	assert.Equal(t, "Corte", events[0].GetProperty(ical.ComponentPropertySummary).Value)

	start, _ = events[1].GetStartAt()
	end, _ = events[1].GetEndAt()
	assert.Equal(t, 30*time.Minute, end.Sub(start))
}
