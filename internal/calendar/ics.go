package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
)

// ExportOptions tunes the iCalendar feed.
type ExportOptions struct {
	Name     string
	Location *time.Location
	// Title renders the event summary; defaults to "Agendamento #<id>".
	Title func(model.Appointment) string
	// Now stamps DTSTAMP; zero means time.Now().
	Now time.Time
}

// ExportICS writes appointments as a VCALENDAR feed. Appointments whose start
// cannot be parsed are skipped and logged.
func ExportICS(w io.Writer, appts []model.Appointment, opts ExportOptions) error {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	title := opts.Title
	if title == nil {
		title = func(a model.Appointment) string { return fmt.Sprintf("Agendamento #%d", a.ID) }
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//agendaconsole//agenda//PT")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	skipped := 0
	for _, a := range appts {
		start, ok := ParseStartAtOK(a.StartAt, loc)
		if !ok {
			skipped++
			continue
		}
		dur := time.Duration(a.DurationMinutes) * time.Minute
		if dur <= 0 {
			dur = 30 * time.Minute
		}

		ev := cal.AddEvent(fmt.Sprintf("appointment-%d@agendaconsole", a.ID))
		ev.SetDtStampTime(now.UTC())
		ev.SetStartAt(start.UTC())
		ev.SetEndAt(start.Add(dur).UTC())
		ev.SetSummary(title(a))
		if a.Notes != "" {
			ev.SetDescription(a.Notes)
		}
	}
	if skipped > 0 {
		appLog.Warn("ics export skipped appointments without a valid start", "skipped", skipped)
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}
