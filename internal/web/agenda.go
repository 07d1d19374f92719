package web

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"agendaconsole/internal/api"
	"agendaconsole/internal/calendar"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/segment"
	"agendaconsole/internal/spreadsheet"
)

// directory holds the lookups needed to title appointments.
type directory struct {
	Appointments  []model.Appointment
	Clients       []model.Client
	Professionals []model.Professional
	Services      []model.Service

	clientNames       map[int64]string
	professionalNames map[int64]string
	serviceNames      map[int64]string
}

func (s *Server) loadDirectory(ctx context.Context, c *api.Client, companyID int64) (*directory, error) {
	d := &directory{}
	var err error
	if d.Appointments, err = c.AppointmentsByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if d.Clients, err = c.Clients(ctx); err != nil {
		return nil, err
	}
	if d.Professionals, err = c.ProfessionalsByCompany(ctx, companyID); err != nil {
		return nil, err
	}
	if d.Services, err = c.ServicesByCompany(ctx, companyID); err != nil {
		return nil, err
	}

	d.clientNames = make(map[int64]string, len(d.Clients))
	for _, cl := range d.Clients {
		d.clientNames[cl.ID] = cl.Name
	}
	d.professionalNames = make(map[int64]string, len(d.Professionals))
	for _, p := range d.Professionals {
		d.professionalNames[p.ID] = p.Name
	}
	d.serviceNames = make(map[int64]string, len(d.Services))
	for _, sv := range d.Services {
		d.serviceNames[sv.ID] = sv.Name
	}
	return d, nil
}

// Title is the label drawn in calendar cells: client and service.
func (d *directory) Title(a model.Appointment) string {
	parts := make([]string, 0, 2)
	if n := d.clientNames[a.ClientID]; n != "" {
		parts = append(parts, n)
	}
	if n := d.serviceNames[a.ServiceID]; n != "" {
		parts = append(parts, n)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("Agendamento #%d", a.ID)
	}
	return strings.Join(parts, " · ")
}

func (d *directory) appointment(id int64) *model.Appointment {
	for i := range d.Appointments {
		if d.Appointments[i].ID == id {
			return &d.Appointments[i]
		}
	}
	return nil
}

// calendarItems projects the active appointments for the month grid.
func (d *directory) calendarItems() []model.CalendarAppointment {
	out := make([]model.CalendarAppointment, 0, len(d.Appointments))
	for _, a := range d.Appointments {
		if a.Active != nil && !*a.Active {
			continue
		}
		id := a.ID
		out = append(out, model.CalendarAppointment{ID: &id, StartAt: a.StartAt, Title: d.Title(a)})
	}
	return out
}

func (s *Server) monthOptions() calendar.Options {
	return calendar.Options{
		Location:   s.loc,
		WeekStart:  calendar.ParseWeekStart(s.cfg.WeekStart),
		MaxVisible: s.cfg.MaxVisiblePerDay,
		Now:        s.now(),
	}
}

type agendaView struct {
	Month   calendar.Month
	Weeks   [][]calendar.Cell
	Days    []string
	Prev    string
	Next    string
	Dir     *directory
	Editing *model.Appointment
	Form    appointmentForm
}

type appointmentForm struct {
	Date     string
	Time     string
	Duration int
}

func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	first := calendar.ParseMonthParam(r.URL.Query().Get("month"), s.loc, s.now())

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar agendamentos")
	if stop {
		return
	}
	if dir == nil {
		dir = &directory{}
	}

	m := calendar.BuildMonth(first, dir.calendarItems(), s.monthOptions())
	view := &agendaView{
		Month: m,
		Weeks: m.Weeks(),
		Days:  m.WeekdayLabels(),
		Prev:  m.Prev().Format("2006-01"),
		Next:  m.Next().Format("2006-01"),
		Dir:   dir,
		Form:  appointmentForm{Date: s.now().In(s.loc).Format("2006-01-02"), Time: "09:00", Duration: 30},
	}
	if id := queryID(r, "edit"); id > 0 {
		if a := dir.appointment(id); a != nil {
			view.Editing = a
			at := calendar.ParseStartAt(a.StartAt, s.loc)
			view.Form = appointmentForm{Date: at.Format("2006-01-02"), Time: at.Format("15:04"), Duration: a.DurationMinutes}
		}
	}

	p, ok := s.page(w, r, m.Label(), "agenda", view)
	if !ok {
		return
	}
	p.Notice = notice
	if m.Unscheduled > 0 && notice == "" {
		p.Notice = fmt.Sprintf("%d agendamento(s) sem data válida foram ignorados.", m.Unscheduled)
	}
	s.render(w, http.StatusOK, "agenda.html", "layout", p)
}

type dayRow struct {
	calendar.Entry
	Appointment  *model.Appointment
	End          string
	Client       string
	Professional string
	Service      string
}

type dayView struct {
	Date  time.Time
	Label string
	Month string
	Rows  []dayRow
}

func (s *Server) handleAgendaDay(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), s.loc)
	if err != nil {
		http.Error(w, "data inválida", http.StatusBadRequest)
		return
	}

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar agendamentos")
	if stop {
		return
	}
	if dir == nil {
		dir = &directory{}
	}

	view := dayView{Date: date, Label: date.Format("02/01/2006"), Month: date.Format("2006-01")}
	for _, e := range calendar.ItemsForDate(date, dir.calendarItems(), s.loc) {
		row := dayRow{Entry: e}
		if e.ID != nil {
			if a := dir.appointment(*e.ID); a != nil {
				row.Appointment = a
				row.End = calendar.AddMinutesToTime(e.Time, a.DurationMinutes)
				row.Client = dir.clientNames[a.ClientID]
				row.Professional = dir.professionalNames[a.ProfessionalID]
				row.Service = dir.serviceNames[a.ServiceID]
			}
		}
		view.Rows = append(view.Rows, row)
	}

	p, ok := s.page(w, r, view.Label, "agenda", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "day.html", "layout", p)
}

// handleAgendaPrint renders the standalone print layout. It marks itself
// data-ready once drawn, which the snapshot job waits for.
func (s *Server) handleAgendaPrint(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	first := calendar.ParseMonthParam(r.URL.Query().Get("month"), s.loc, s.now())

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar agendamentos")
	if stop {
		return
	}
	if dir == nil {
		dir = &directory{}
	}

	opts := s.monthOptions()
	opts.MaxVisible = 6
	m := calendar.BuildMonth(first, dir.calendarItems(), opts)
	p, ok := s.page(w, r, m.Label(), "agenda", &agendaView{Month: m, Weeks: m.Weeks(), Days: m.WeekdayLabels()})
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "print.html", "print", p)
}

// monthAppointments returns the active appointments starting within the
// month of first, sorted by start.
func (s *Server) monthAppointments(dir *directory, first time.Time) []model.Appointment {
	from, to := first, first.AddDate(0, 1, 0)
	var out []model.Appointment
	for _, a := range dir.Appointments {
		if a.Active != nil && !*a.Active {
			continue
		}
		at, ok := calendar.ParseStartAtOK(a.StartAt, s.loc)
		if !ok || at.Before(from) || !at.Before(to) {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return calendar.ParseStartAt(out[i].StartAt, s.loc).Before(calendar.ParseStartAt(out[j].StartAt, s.loc))
	})
	return out
}

func (s *Server) handleAgendaICS(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	first := calendar.ParseMonthParam(r.URL.Query().Get("month"), s.loc, s.now())

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	if notice, stop := s.check(w, r, err, "Falha ao carregar agendamentos"); stop {
		return
	} else if err != nil {
		http.Error(w, notice, http.StatusBadGateway)
		return
	}

	settings, _ := s.tenantSettings(r.Context(), sess)
	name := s.themeFor(settings).Title

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="agenda-%s.ics"`, first.Format("2006-01")))
	err = calendar.ExportICS(w, s.monthAppointments(dir, first), calendar.ExportOptions{
		Name:     name,
		Location: s.loc,
		Title:    dir.Title,
		Now:      s.now(),
	})
	if err != nil {
		appLog.Error("ics export failed", err, "company", sess.CompanyID)
	}
}

func (s *Server) handleAgendaXLSX(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	first := calendar.ParseMonthParam(r.URL.Query().Get("month"), s.loc, s.now())

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	if notice, stop := s.check(w, r, err, "Falha ao carregar agendamentos"); stop {
		return
	} else if err != nil {
		http.Error(w, notice, http.StatusBadGateway)
		return
	}

	settings, _ := s.tenantSettings(r.Context(), sess)
	labels := segment.For(settingStr(settingsSegment(settings)))
	headers := []string{"Data", "Início", "Fim", labels.Clients.Singular, labels.Professionals.Singular, labels.Services.Singular, "Minutos", "Notas"}

	appts := s.monthAppointments(dir, first)
	rows := make([]spreadsheet.AppointmentRow, 0, len(appts))
	for _, a := range appts {
		at := calendar.ParseStartAt(a.StartAt, s.loc)
		start := at.Format("15:04")
		rows = append(rows, spreadsheet.AppointmentRow{
			Date:         at.Format("2006-01-02"),
			Start:        start,
			End:          calendar.AddMinutesToTime(start, a.DurationMinutes),
			Client:       dir.clientNames[a.ClientID],
			Professional: dir.professionalNames[a.ProfessionalID],
			Service:      dir.serviceNames[a.ServiceID],
			Minutes:      a.DurationMinutes,
			Notes:        a.Notes,
		})
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="agenda-%s.xlsx"`, first.Format("2006-01")))
	if err := spreadsheet.WriteAgenda(w, first.Format("2006-01"), headers, rows); err != nil {
		appLog.Error("xlsx export failed", err, "company", sess.CompanyID)
	}
}

func (s *Server) handleAppointmentSave(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	id := pathID(r)

	date, errDate := time.ParseInLocation("2006-01-02", formStr(r, "date"), s.loc)
	back := "/agenda"
	if errDate == nil {
		back = "/agenda?month=" + date.Format("2006-01")
	}
	clock := formStr(r, "time")
	a := model.Appointment{
		CompanyID:       sess.CompanyID,
		ProfessionalID:  formInt64(r, "professionalId"),
		ClientID:        formInt64(r, "clientId"),
		ServiceID:       formInt64(r, "serviceId"),
		DurationMinutes: formInt(r, "durationMinutes"),
		Notes:           formStr(r, "notes"),
	}
	if a.DurationMinutes <= 0 {
		a.DurationMinutes = 30
	}
	if errDate != nil || !validClock(clock) || a.ProfessionalID == 0 || a.ClientID == 0 || a.ServiceID == 0 {
		s.done(w, r, back, "Preencha data, horário, cliente, profissional e serviço.")
		return
	}
	a.StartAt = date.Format("2006-01-02") + "T" + clock + ":00"
	a.ID = id

	existing, err := c.AppointmentsByCompany(r.Context(), sess.CompanyID)
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar agendamento", back)
		return
	}
	conflicts := calendar.Conflicts(a, existing, s.loc)

	if id > 0 {
		_, err = c.UpdateAppointment(r.Context(), id, a)
	} else {
		_, err = c.CreateAppointment(r.Context(), a)
	}
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar agendamento", back)
		return
	}

	msg := "Agendamento criado"
	if id > 0 {
		msg = "Agendamento atualizado"
	}
	if len(conflicts) > 0 {
		msg += fmt.Sprintf(". Atenção: conflita com %d agendamento(s) do mesmo profissional.", len(conflicts))
	}
	s.done(w, r, back, msg)
}

func validClock(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

func (s *Server) handleAppointmentDelete(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	back := "/agenda"
	if m := r.PostFormValue("month"); m != "" {
		back += "?month=" + calendar.ParseMonthParam(m, s.loc, s.now()).Format("2006-01")
	}
	if err := c.DeleteAppointment(r.Context(), pathID(r)); err != nil {
		s.fail(w, r, err, "Falha ao excluir agendamento", back)
		return
	}
	s.done(w, r, back, "Agendamento excluído")
}

type calendarJSON struct {
	Month       string        `json:"month"`
	Label       string        `json:"label"`
	WeekStart   string        `json:"weekStart"`
	Weekdays    []string      `json:"weekdays"`
	Leading     int           `json:"leading"`
	Days        []calendarDay `json:"days"`
	Unscheduled int           `json:"unscheduled"`
}

type calendarDay struct {
	Date   string             `json:"date"`
	Today  bool               `json:"today"`
	Items  []calendarItemJSON `json:"items"`
	Hidden int                `json:"hidden"`
}

type calendarItemJSON struct {
	ID      *int64 `json:"id,omitempty"`
	StartAt string `json:"startAt"`
	Time    string `json:"time"`
	Title   string `json:"title"`
}

func (s *Server) handleCalendarJSON(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	first := calendar.ParseMonthParam(r.URL.Query().Get("month"), s.loc, s.now())

	dir, err := s.loadDirectory(r.Context(), c, sess.CompanyID)
	if notice, stop := s.check(w, r, err, "upstream unavailable"); stop {
		return
	} else if err != nil {
		writeError(w, http.StatusBadGateway, notice)
		return
	}

	m := calendar.BuildMonth(first, dir.calendarItems(), s.monthOptions())
	out := calendarJSON{
		Month:       m.Param(),
		Label:       m.Label(),
		WeekStart:   strings.ToLower(m.WeekStart.String()),
		Weekdays:    m.WeekdayLabels(),
		Leading:     len(m.Cells) - len(m.Days()),
		Unscheduled: m.Unscheduled,
	}
	for _, d := range m.Days() {
		day := calendarDay{Date: d.Key, Today: d.Today, Hidden: d.Hidden, Items: []calendarItemJSON{}}
		for _, e := range d.Visible {
			day.Items = append(day.Items, calendarItemJSON{ID: e.ID, StartAt: e.StartAt, Time: e.Time, Title: e.Title})
		}
		out.Days = append(out.Days, day)
	}
	writeJSON(w, http.StatusOK, out)
}
