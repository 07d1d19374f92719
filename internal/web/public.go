package web

import (
	"net/http"
	"strconv"
	"strings"

	"agendaconsole/internal/calendar"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
)

// publicWindow is how far ahead visitors may book.
const publicWindow = 30

type publicDate struct {
	Key   string
	Label string
}

type publicView struct {
	Companies []model.PublicCompany
	Company   *model.PublicCompany
	Dates     []publicDate
	Date      string
	Slots     []string
	Form      model.PublicAppointmentRequest
	Error     string
	Success   bool
}

var weekdayShort = [7]string{"dom", "seg", "ter", "qua", "qui", "sex", "sáb"}

func publicSettings(c *model.PublicCompany) *model.Settings {
	if c == nil {
		return nil
	}
	name := c.Settings.BrandName
	if model.Str(name) == "" && c.Name != "" {
		n := c.Name
		name = &n
	}
	return &model.Settings{BrandName: name}
}

// loadPublic fills the company, bookable dates and free slots for the view.
// The returned status is what the page should be served with.
func (s *Server) loadPublic(r *http.Request, companyID int64, date string, view *publicView) int {
	ctx := r.Context()
	if companyID <= 0 {
		companies, err := s.api.PublicCompanies(ctx)
		if err != nil {
			appLog.Error("public companies unavailable", err)
			view.Error = "Não foi possível carregar as empresas. Tente novamente mais tarde."
			return http.StatusBadGateway
		}
		view.Companies = companies
		return http.StatusOK
	}

	company, err := s.api.PublicCompany(ctx, companyID)
	if err != nil {
		appLog.Error("public company unavailable", err, "company", companyID)
		view.Error = "Não foi possível carregar a agenda. Tente novamente mais tarde."
		return http.StatusBadGateway
	}
	if company == nil {
		view.Error = "Empresa não encontrada."
		return http.StatusNotFound
	}
	view.Company = company
	view.Form.CompanyID = company.ID

	today := s.now().In(s.loc)
	dates, err := calendar.WorkingDates(today, today.AddDate(0, 0, publicWindow), model.Str(company.Settings.PublicWorkingDays))
	if err != nil {
		appLog.Warn("invalid public working days; offering every day", "company", companyID, "error", err)
		dates, _ = calendar.WorkingDates(today, today.AddDate(0, 0, publicWindow), "")
	}
	for _, d := range dates {
		view.Dates = append(view.Dates, publicDate{
			Key:   d.Format("2006-01-02"),
			Label: weekdayShort[d.Weekday()] + " " + d.Format("02/01"),
		})
	}

	if date == "" {
		return http.StatusOK
	}
	if !bookable(view.Dates, date) {
		view.Error = "Data indisponível para agendamento."
		return http.StatusBadRequest
	}
	view.Date = date
	view.Form.Date = date
	slots, err := s.api.AvailableSlots(ctx, company.ID, date)
	if err != nil {
		appLog.Error("public availability unavailable", err, "company", companyID, "date", date)
		view.Error = "Não foi possível consultar os horários disponíveis."
		return http.StatusBadGateway
	}
	view.Slots = slots
	return http.StatusOK
}

func bookable(dates []publicDate, key string) bool {
	for _, d := range dates {
		if d.Key == key {
			return true
		}
	}
	return false
}

func (s *Server) handlePublicPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, _ := strconv.ParseInt(strings.TrimSpace(q.Get("company")), 10, 64)
	view := &publicView{}
	status := s.loadPublic(r, companyID, strings.TrimSpace(q.Get("date")), view)
	s.render(w, status, "public.html", "layout", s.publicPage(r, "Agendar horário", publicSettings(view.Company), view))
}

func (s *Server) handlePublicSubmit(w http.ResponseWriter, r *http.Request) {
	req := model.PublicAppointmentRequest{
		CompanyID:      formInt64(r, "company"),
		ServiceID:      formInt64(r, "serviceId"),
		ProfessionalID: formInt64(r, "professionalId"),
		Date:           formStr(r, "date"),
		Time:           formStr(r, "time"),
		Name:           formStr(r, "name"),
		Email:          strings.ToLower(formStr(r, "email")),
		Phone:          formStr(r, "phone"),
		Notes:          formStr(r, "notes"),
	}

	view := &publicView{}
	status := s.loadPublic(r, req.CompanyID, req.Date, view)
	view.Form = req
	render := func(status int) {
		s.render(w, status, "public.html", "layout", s.publicPage(r, "Agendar horário", publicSettings(view.Company), view))
	}
	if status != http.StatusOK || view.Company == nil {
		if view.Error == "" {
			view.Error = "Escolha uma empresa."
			status = http.StatusBadRequest
		}
		render(status)
		return
	}

	switch {
	case req.Name == "" || req.Phone == "":
		view.Error = "Informe nome e telefone."
	case req.Date == "" || !validClock(req.Time):
		view.Error = "Escolha data e horário."
	case !offered(view.Slots, req.Time):
		view.Error = "Esse horário não está mais disponível."
	}
	if view.Error != "" {
		render(http.StatusBadRequest)
		return
	}

	if err := s.api.CreatePublicRequest(r.Context(), req); err != nil {
		appLog.Error("public request failed", err, "company", req.CompanyID)
		view.Error = "Não foi possível enviar sua solicitação. Tente novamente."
		render(http.StatusBadGateway)
		return
	}
	appLog.Info("public appointment requested", "company", req.CompanyID, "date", req.Date, "time", req.Time)
	view.Success = true
	render(http.StatusCreated)
}

func offered(slots []string, hhmm string) bool {
	for _, s := range slots {
		if strings.HasPrefix(s, hhmm) {
			return true
		}
	}
	return false
}
