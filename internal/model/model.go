package model

import "strings"

// CalendarAppointment is the display projection drawn in the month grid.
// StartAt is either ISO 8601 ("2026-02-14T09:30:00") or the space-separated
// "2026-02-14 09:30[:00]" form; producers are not consistent.
type CalendarAppointment struct {
	ID      *int64 `json:"id,omitempty"`
	StartAt string `json:"startAt"`
	Title   string `json:"title"`
}

// Appointment as stored by the booking API.
type Appointment struct {
	ID              int64  `json:"id,omitempty"`
	CompanyID       int64  `json:"companyId"`
	ProfessionalID  int64  `json:"professionalId"`
	ClientID        int64  `json:"clientId"`
	ServiceID       int64  `json:"serviceId"`
	StartAt         string `json:"startAt"`
	DurationMinutes int    `json:"durationMinutes"`
	Notes           string `json:"notes,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

type Client struct {
	ID        int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CnpjCpf   string `json:"cnpjcpf,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
	Active    *bool  `json:"active,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type Professional struct {
	ID             int64  `json:"id,omitempty"`
	CompanyID      int64  `json:"companyId"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Available      *bool  `json:"available,omitempty"`
	Active         *bool  `json:"active,omitempty"`
}

type Service struct {
	ID              int64   `json:"id,omitempty"`
	CompanyID       int64   `json:"companyId"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price"`
	DurationMinutes int     `json:"durationMinutes"`
	Active          *bool   `json:"active,omitempty"`
}

type Product struct {
	ID          int64    `json:"id,omitempty"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Active      *bool    `json:"active,omitempty"`
}

type Stock struct {
	ID              int64  `json:"id,omitempty"`
	CompanyID       int64  `json:"companyId"`
	ProductName     string `json:"productName"`
	SKU             string `json:"sku,omitempty"`
	Description     string `json:"description,omitempty"`
	Quantity        int    `json:"quantity"`
	MinimumQuantity *int   `json:"minimumQuantity,omitempty"`
	Active          *bool  `json:"active,omitempty"`
}

// Low reports whether the stock is at or below its configured minimum.
func (s Stock) Low() bool {
	return s.MinimumQuantity != nil && s.Quantity <= *s.MinimumQuantity
}

const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

type StockMovement struct {
	ID           int64  `json:"id,omitempty"`
	CompanyID    int64  `json:"companyId"`
	StockID      int64  `json:"stockId"`
	Quantity     int    `json:"quantity"`
	MovementType string `json:"movementType"`
	Notes        string `json:"notes,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// Case is a legal matter; only tenants in the "law" segment have them.
// The API uses snake_case here, unlike the other resources.
type Case struct {
	ID             int64  `json:"id,omitempty"`
	CompanyID      *int64 `json:"company_id,omitempty"`
	ClientID       *int64 `json:"client_id,omitempty"`
	ProfessionalID *int64 `json:"professional_id,omitempty"`
	Title          string `json:"title"`
	CaseNumber     string `json:"case_number,omitempty"`
	Area           string `json:"area,omitempty"`
	Status         string `json:"status,omitempty"`
	Priority       string `json:"priority,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// CasePayload is the write shape for cases (camelCase on the way in).
type CasePayload struct {
	ClientID       *int64  `json:"clientId,omitempty"`
	ProfessionalID *int64  `json:"professionalId,omitempty"`
	Title          string  `json:"title"`
	CaseNumber     *string `json:"caseNumber,omitempty"`
	Area           *string `json:"area,omitempty"`
	Status         *string `json:"status,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

type Permission struct {
	ID          int64  `json:"id"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// Settings is the tenant configuration, including branding.
type Settings struct {
	CompanyID         *int64  `json:"company_id,omitempty"`
	BrandName         *string `json:"brand_name"`
	PrimaryColor      *string `json:"primary_color"`
	SecondaryColor    *string `json:"secondary_color"`
	LogoURL           *string `json:"logo_url"`
	FaviconURL        *string `json:"favicon_url"`
	CustomDomain      *string `json:"custom_domain"`
	EmailFromName     *string `json:"email_from_name"`
	EmailFromAddress  *string `json:"email_from_address"`
	PublicStartTime   *string `json:"public_start_time"`
	PublicEndTime     *string `json:"public_end_time"`
	PublicSlotMinutes *int    `json:"public_slot_minutes"`
	PublicWorkingDays *string `json:"public_working_days"`
	Segment           *string `json:"segment"`
	Phone             *string `json:"phone"`
	Email             *string `json:"email"`
}

type PlanStatus struct {
	Plan *struct {
		PlanCode         string  `json:"plan_code,omitempty"`
		Status           string  `json:"status,omitempty"`
		CurrentPeriodEnd *string `json:"current_period_end,omitempty"`
	} `json:"plan"`
}

// Active reports whether the tenant has a usable plan.
func (p PlanStatus) Active() bool {
	if p.Plan == nil {
		return false
	}
	switch p.Plan.Status {
	case "active", "trialing":
		return true
	}
	return false
}

type UsageLimit struct {
	Limit     int `json:"limit"`
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
}

type UsageStats struct {
	Plan          string      `json:"plan"`
	Limit         int         `json:"limit"`
	Used          int         `json:"used"`
	Remaining     int         `json:"remaining"`
	Percentage    float64     `json:"percentage"`
	Professionals *UsageLimit `json:"professionals,omitempty"`
}

type Invoice struct {
	ID        string  `json:"id"`
	Number    string  `json:"number,omitempty"`
	Status    string  `json:"status,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type PublicCompanySettings struct {
	BrandName         *string `json:"brand_name,omitempty"`
	PublicStartTime   *string `json:"public_start_time,omitempty"`
	PublicEndTime     *string `json:"public_end_time,omitempty"`
	PublicSlotMinutes *int    `json:"public_slot_minutes,omitempty"`
	PublicWorkingDays *string `json:"public_working_days,omitempty"`
}

type PublicCompany struct {
	ID       int64                 `json:"id"`
	Name     string                `json:"name"`
	Settings PublicCompanySettings `json:"settings"`
}

// PublicAppointmentRequest is what an anonymous visitor submits from the
// public booking page.
type PublicAppointmentRequest struct {
	CompanyID      int64  `json:"companyId"`
	ServiceID      int64  `json:"serviceId,omitempty"`
	ProfessionalID int64  `json:"professionalId,omitempty"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone"`
	Notes          string `json:"notes,omitempty"`
}

type DashboardMetrics struct {
	AppointmentsToday int `json:"appointmentsToday"`
	NewClientsToday   int `json:"newClientsToday"`
	LowStock          []struct {
		ID            int64  `json:"id"`
		Name          string `json:"name"`
		StockQuantity int    `json:"stock_quantity"`
	} `json:"lowStock"`
	TopServices []struct {
		ServiceID   int64  `json:"service_id"`
		ServiceName string `json:"service_name"`
		Total       int    `json:"total"`
	} `json:"topServices"`
	CancelRate struct {
		Total    int     `json:"total"`
		Canceled int     `json:"canceled"`
		Rate     float64 `json:"rate"`
	} `json:"cancelRate"`
}

type Notification struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	CreatedAt   string         `json:"createdAt,omitempty"`
	Meta        map[string]any `json:"meta,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	EmpresaID *int64 `json:"empresaId,omitempty"`
	TipoConta string `json:"tipoConta,omitempty"`
}

// CompanyID returns the tenant id for the user, or 0 if unknown.
func (u User) CompanyID() int64 {
	if u.EmpresaID == nil {
		return 0
	}
	return *u.EmpresaID
}

// RegisterPayload creates a new account upstream.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	CnpjCpf  string `json:"cnpjcpf"`
	Phone    string `json:"phone"`
}

// Str dereferences an optional string.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Clean trims every string field and turns empty ones into nil, which is
// how the API expects "unset" on save.
func (s Settings) Clean() Settings {
	for _, p := range []**string{
		&s.BrandName, &s.PrimaryColor, &s.SecondaryColor, &s.LogoURL,
		&s.FaviconURL, &s.CustomDomain, &s.EmailFromName, &s.EmailFromAddress,
		&s.PublicStartTime, &s.PublicEndTime, &s.PublicWorkingDays,
		&s.Segment, &s.Phone, &s.Email,
	} {
		*p = trimmedOrNil(*p)
	}
	if s.PublicSlotMinutes != nil && *s.PublicSlotMinutes <= 0 {
		s.PublicSlotMinutes = nil
	}
	return s
}

func trimmedOrNil(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}
