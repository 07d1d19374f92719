package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"agendaconsole/internal/api"
	"agendaconsole/internal/branding"
	"agendaconsole/internal/calendar"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/segment"
)

// Permissions

type permissionRow struct {
	model.Permission
	Granted bool
}

type permissionsView struct {
	Professional model.Professional
	Rows         []permissionRow
}

func (s *Server) handlePermissions(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	id := pathID(r)
	view := permissionsView{}

	pro, err := c.Professional(r.Context(), id)
	var all []model.Permission
	var granted []string
	if err == nil {
		view.Professional = pro
		if all, err = c.Permissions(r.Context()); err == nil {
			granted, err = c.ProfessionalPermissions(r.Context(), id)
		}
	}
	notice, stop := s.check(w, r, err, "Falha ao carregar permissões")
	if stop {
		return
	}

	has := make(map[string]bool, len(granted))
	for _, k := range granted {
		has[k] = true
	}
	for _, p := range all {
		view.Rows = append(view.Rows, permissionRow{Permission: p, Granted: has[p.Key]})
	}

	p, ok := s.page(w, r, "Permissões", "professionals", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "permissions.html", "layout", p)
}

func (s *Server) handlePermissionsSave(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	id := pathID(r)
	back := fmt.Sprintf("/professionals/%d/permissions", id)
	if err := r.ParseForm(); err != nil {
		s.done(w, r, back, "Formulário inválido.")
		return
	}

	keys := make([]string, 0, len(r.PostForm["permission"]))
	for _, k := range r.PostForm["permission"] {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if err := c.SetProfessionalPermissions(r.Context(), id, keys); err != nil {
		s.fail(w, r, err, "Falha ao salvar permissões", back)
		return
	}
	s.done(w, r, back, "Permissões atualizadas")
}

// Billing

type billingView struct {
	Status   model.PlanStatus
	Usage    model.UsageStats
	Invoices []model.Invoice
	Month    string
	Plans    []string
}

func (s *Server) handleBilling(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	view := billingView{Plans: api.Plans}
	if m := strings.TrimSpace(r.URL.Query().Get("month")); m != "" {
		view.Month = calendar.ParseMonthParam(m, s.loc, s.now()).Format("2006-01")
	}

	var err error
	if view.Status, err = c.PlanStatus(r.Context()); err == nil {
		if view.Usage, err = c.Usage(r.Context()); err == nil {
			view.Invoices, err = c.Invoices(r.Context(), view.Month)
		}
	}
	notice, stop := s.check(w, r, err, "Falha ao carregar faturamento")
	if stop {
		return
	}

	p, ok := s.page(w, r, "Assinatura", "billing", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "billing.html", "layout", p)
}

// handleCheckout starts a checkout session and sends the browser to the
// payment provider.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	plan := formStr(r, "plan")
	res, err := c.Checkout(r.Context(), plan, sess.CompanyID)
	if err != nil {
		s.fail(w, r, err, "Não foi possível iniciar o pagamento", "/billing")
		return
	}
	appLog.Info("checkout started", "company", sess.CompanyID, "plan", plan)
	http.Redirect(w, r, res.URL, http.StatusSeeOther)
}

func (s *Server) handleInvoiceDownload(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	dl, err := c.DownloadInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Falha ao baixar fatura", "/billing")
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Body)))
	_, _ = w.Write(dl.Body)
}

// Settings

type segmentOption struct {
	Key  string
	Name string
}

type contrastRow struct {
	Name       string
	Background string
	Foreground string
	Ratio      string
	OK         bool
}

type settingsView struct {
	Settings     model.Settings
	Segments     []segmentOption
	Contrast     []contrastRow
	PublicLink   string
	SlotPreview  []string
	PreviewDates []string
	PreviewError string
	Stale        bool
	UpdatedAt    time.Time
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	res, err := s.settings.Get(r.Context(), c, sess.CompanyID)
	notice, stop := s.check(w, r, err, "Falha ao carregar configurações")
	if stop {
		return
	}

	view := s.settingsView(r, sess.CompanyID, res.Settings)
	view.Stale = res.Stale
	view.UpdatedAt = res.UpdatedAt
	p, ok := s.page(w, r, "Configurações", "settings", view)
	if !ok {
		return
	}
	p.Notice = notice
	if notice == "" && res.Stale {
		p.Notice = "API indisponível; exibindo a última configuração conhecida."
	}
	s.render(w, http.StatusOK, "settings.html", "layout", p)
}

func (s *Server) settingsView(r *http.Request, companyID int64, st model.Settings) settingsView {
	view := settingsView{Settings: st, PublicLink: s.publicLink(r, companyID)}
	for _, k := range segment.Keys {
		view.Segments = append(view.Segments, segmentOption{Key: k, Name: segment.Name(k)})
	}

	theme := branding.Apply(&st)
	for _, pair := range []struct{ name, bg, fg string }{
		{"Primária", "--primary", "--primary-foreground"},
		{"Secundária", "--secondary", "--secondary-foreground"},
		{"Destaque", "--accent", "--accent-foreground"},
	} {
		bg, fg := theme.Var(pair.bg, ""), theme.Var(pair.fg, "")
		if bg == "" || fg == "" {
			continue
		}
		ratio, _ := branding.ContrastRatio(bg, fg)
		view.Contrast = append(view.Contrast, contrastRow{
			Name:       pair.name,
			Background: bg,
			Foreground: fg,
			Ratio:      fmt.Sprintf("%.2f:1", ratio),
			OK:         ratio >= 4.5,
		})
	}

	slotMinutes := 30
	if st.PublicSlotMinutes != nil && *st.PublicSlotMinutes > 0 {
		slotMinutes = *st.PublicSlotMinutes
	}
	start, end := settingStr(st.PublicStartTime), settingStr(st.PublicEndTime)
	if start == "" {
		start = "09:00"
	}
	if end == "" {
		end = "18:00"
	}
	view.SlotPreview = calendar.CandidateSlots(start, end, slotMinutes)

	today := s.now().In(s.loc)
	dates, err := calendar.WorkingDates(today, today.AddDate(0, 0, 13), settingStr(st.PublicWorkingDays))
	if err != nil {
		view.PreviewError = "Dias de atendimento inválidos: use números de 1 (segunda) a 7 (domingo) separados por vírgula."
	}
	for _, d := range dates {
		view.PreviewDates = append(view.PreviewDates, d.Format("02/01"))
	}
	return view
}

// publicLink is the shareable booking address for the tenant.
func (s *Server) publicLink(r *http.Request, companyID int64) string {
	base := strings.TrimSuffix(s.cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil || s.cfg.SecureCookies {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return fmt.Sprintf("%s/public/appointment?company=%d", base, companyID)
}

func (s *Server) handleSettingsSave(w http.ResponseWriter, r *http.Request) {
	c, sess := s.client(r)
	st := model.Settings{
		BrandName:         formOpt(r, "brand_name"),
		PrimaryColor:      formOpt(r, "primary_color"),
		SecondaryColor:    formOpt(r, "secondary_color"),
		LogoURL:           formOpt(r, "logo_url"),
		FaviconURL:        formOpt(r, "favicon_url"),
		CustomDomain:      formOpt(r, "custom_domain"),
		EmailFromName:     formOpt(r, "email_from_name"),
		EmailFromAddress:  formOpt(r, "email_from_address"),
		PublicStartTime:   formOpt(r, "public_start_time"),
		PublicEndTime:     formOpt(r, "public_end_time"),
		PublicSlotMinutes: formIntOpt(r, "public_slot_minutes"),
		PublicWorkingDays: formOpt(r, "public_working_days"),
		Segment:           formOpt(r, "segment"),
		Phone:             formOpt(r, "phone"),
		Email:             formOpt(r, "email"),
	}
	st = st.Clean()

	for _, p := range []*string{st.PrimaryColor, st.SecondaryColor} {
		if p != nil {
			if _, ok := branding.NormalizeHex(*p); !ok {
				s.done(w, r, "/settings", fmt.Sprintf("Cor inválida: %s. Use o formato #RRGGBB.", *p))
				return
			}
		}
	}
	if st.Segment != nil && !segment.Known(*st.Segment) {
		s.done(w, r, "/settings", "Segmento desconhecido.")
		return
	}
	if _, err := calendar.ParseWorkingDays(settingStr(st.PublicWorkingDays)); err != nil {
		s.done(w, r, "/settings", "Dias de atendimento inválidos.")
		return
	}

	saved, err := c.UpdateSettings(r.Context(), st)
	if err != nil {
		s.fail(w, r, err, "Falha ao salvar configurações", "/settings")
		return
	}
	if saved == (model.Settings{}) {
		saved = st
	}
	s.settings.Put(sess.CompanyID, saved)
	appLog.Info("settings updated", "company", sess.CompanyID)
	s.done(w, r, "/settings", "Configurações salvas")
}

// Dashboard

type dashboardView struct {
	Metrics model.DashboardMetrics
	Status  model.PlanStatus
	Usage   model.UsageStats
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	view := dashboardView{}

	var err error
	if view.Metrics, err = c.DashboardMetrics(r.Context()); err == nil {
		if view.Status, err = c.PlanStatus(r.Context()); err == nil {
			view.Usage, err = c.Usage(r.Context())
		}
	}
	notice, stop := s.check(w, r, err, "Falha ao carregar indicadores")
	if stop {
		return
	}

	p, ok := s.page(w, r, "Painel", "dashboard", view)
	if !ok {
		return
	}
	p.Notice = notice
	s.render(w, http.StatusOK, "dashboard.html", "layout", p)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	c, _ := s.client(r)
	items, err := c.Notifications(r.Context())
	if notice, stop := s.check(w, r, err, "Falha ao carregar notificações"); stop {
		return
	} else if err != nil {
		writeError(w, http.StatusBadGateway, notice)
		return
	}
	if items == nil {
		items = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

type themeJSON struct {
	Title      string            `json:"title"`
	FaviconURL string            `json:"faviconUrl,omitempty"`
	LogoURL    string            `json:"logoUrl,omitempty"`
	Vars       map[string]string `json:"vars"`
	CSS        string            `json:"css"`
}

func (s *Server) handleThemeJSON(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r.Context())
	settings, err := s.tenantSettings(r.Context(), sess)
	if notice, stop := s.check(w, r, err, "settings unavailable"); stop {
		return
	} else if err != nil {
		appLog.Warn("theme falls back to configured branding", "error", notice)
	}
	theme := s.themeFor(settings)
	writeJSON(w, http.StatusOK, themeJSON{
		Title:      theme.Title,
		FaviconURL: theme.FaviconURL,
		LogoURL:    theme.LogoURL,
		Vars:       theme.Vars,
		CSS:        theme.CSS(),
	})
}
