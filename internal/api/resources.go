package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"agendaconsole/internal/model"
)

func idPath(prefix string, id int64) string {
	return prefix + "/" + strconv.FormatInt(id, 10)
}

// Appointments

func (c *Client) AppointmentsByCompany(ctx context.Context, companyID int64) ([]model.Appointment, error) {
	return list[model.Appointment](ctx, c, idPath("Appointments/company", companyID), nil)
}

func (c *Client) Appointment(ctx context.Context, id int64) (model.Appointment, error) {
	return get[model.Appointment](ctx, c, idPath("Appointments", id))
}

func (c *Client) CreateAppointment(ctx context.Context, a model.Appointment) (model.Appointment, error) {
	a.ID, a.Active = 0, nil
	var out model.Appointment
	err := c.call(ctx, http.MethodPost, "Appointments", nil, a, &out)
	return out, err
}

func (c *Client) UpdateAppointment(ctx context.Context, id int64, a model.Appointment) (model.Appointment, error) {
	a.ID, a.Active = 0, nil
	var out model.Appointment
	err := c.call(ctx, http.MethodPut, idPath("Appointments", id), nil, a, &out)
	return out, err
}

func (c *Client) DeleteAppointment(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("Appointments", id), nil, nil, nil)
}

// Clients

func (c *Client) Clients(ctx context.Context) ([]model.Client, error) {
	return list[model.Client](ctx, c, "Clients", nil)
}

func (c *Client) Client(ctx context.Context, id int64) (model.Client, error) {
	return get[model.Client](ctx, c, idPath("Clients", id))
}

func (c *Client) CreateClient(ctx context.Context, cl model.Client) (model.Client, error) {
	var out model.Client
	err := c.call(ctx, http.MethodPost, "Clients", nil, clientPayload(cl), &out)
	return out, err
}

func (c *Client) UpdateClient(ctx context.Context, id int64, cl model.Client) (model.Client, error) {
	var out model.Client
	err := c.call(ctx, http.MethodPut, idPath("Clients", id), nil, clientPayload(cl), &out)
	return out, err
}

func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("Clients", id), nil, nil, nil)
}

func clientPayload(cl model.Client) model.Client {
	cl.ID, cl.Active, cl.CreatedAt, cl.UpdatedAt = 0, nil, "", ""
	return cl
}

// Professionals

func (c *Client) ProfessionalsByCompany(ctx context.Context, companyID int64) ([]model.Professional, error) {
	return list[model.Professional](ctx, c, idPath("Professionals/company", companyID), nil)
}

func (c *Client) Professional(ctx context.Context, id int64) (model.Professional, error) {
	return get[model.Professional](ctx, c, idPath("Professionals", id))
}

func (c *Client) CreateProfessional(ctx context.Context, p model.Professional) (model.Professional, error) {
	p.ID, p.Active, p.Available = 0, nil, nil
	var out model.Professional
	err := c.call(ctx, http.MethodPost, "Professionals", nil, p, &out)
	return out, err
}

func (c *Client) UpdateProfessional(ctx context.Context, id int64, p model.Professional) (model.Professional, error) {
	p.ID, p.Active, p.Available = 0, nil, nil
	var out model.Professional
	err := c.call(ctx, http.MethodPut, idPath("Professionals", id), nil, p, &out)
	return out, err
}

func (c *Client) DeleteProfessional(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("Professionals", id), nil, nil, nil)
}

// Services

func (c *Client) ServicesByCompany(ctx context.Context, companyID int64) ([]model.Service, error) {
	return list[model.Service](ctx, c, idPath("Services/company", companyID), nil)
}

func (c *Client) Service(ctx context.Context, id int64) (model.Service, error) {
	return get[model.Service](ctx, c, idPath("Services", id))
}

func (c *Client) CreateService(ctx context.Context, s model.Service) (model.Service, error) {
	s.ID, s.Active = 0, nil
	var out model.Service
	err := c.call(ctx, http.MethodPost, "Services", nil, s, &out)
	return out, err
}

func (c *Client) UpdateService(ctx context.Context, id int64, s model.Service) (model.Service, error) {
	s.ID, s.Active = 0, nil
	var out model.Service
	err := c.call(ctx, http.MethodPut, idPath("Services", id), nil, s, &out)
	return out, err
}

func (c *Client) DeleteService(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("Services", id), nil, nil, nil)
}

// Products

func (c *Client) Products(ctx context.Context) ([]model.Product, error) {
	return list[model.Product](ctx, c, "produtos", nil)
}

func (c *Client) CreateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.ID, p.Active = 0, nil
	var out model.Product
	err := c.call(ctx, http.MethodPost, "produtos", nil, p, &out)
	return out, err
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, p model.Product) (model.Product, error) {
	p.ID = 0
	var out model.Product
	err := c.call(ctx, http.MethodPut, idPath("produtos", id), nil, p, &out)
	return out, err
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("produtos", id), nil, nil, nil)
}

// Stocks

func (c *Client) StocksByCompany(ctx context.Context, companyID int64) ([]model.Stock, error) {
	return list[model.Stock](ctx, c, idPath("Stocks/company", companyID), nil)
}

func (c *Client) CreateStock(ctx context.Context, s model.Stock) (model.Stock, error) {
	s.ID, s.Active = 0, nil
	var out model.Stock
	err := c.call(ctx, http.MethodPost, "Stocks", nil, s, &out)
	return out, err
}

func (c *Client) UpdateStock(ctx context.Context, id int64, s model.Stock) (model.Stock, error) {
	s.ID = 0
	var out model.Stock
	err := c.call(ctx, http.MethodPut, idPath("Stocks", id), nil, s, &out)
	return out, err
}

func (c *Client) DeleteStock(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("Stocks", id), nil, nil, nil)
}

// Stock movements

func (c *Client) MovementsByCompany(ctx context.Context, companyID int64) ([]model.StockMovement, error) {
	return list[model.StockMovement](ctx, c, idPath("StockMovements/company", companyID), nil)
}

func (c *Client) MovementsByStock(ctx context.Context, stockID int64) ([]model.StockMovement, error) {
	return list[model.StockMovement](ctx, c, idPath("StockMovements/stock", stockID), nil)
}

func (c *Client) CreateMovement(ctx context.Context, m model.StockMovement) (model.StockMovement, error) {
	if m.MovementType != model.MovementIn && m.MovementType != model.MovementOut {
		return model.StockMovement{}, fmt.Errorf("invalid movement type %q", m.MovementType)
	}
	m.ID, m.CreatedAt = 0, ""
	var out model.StockMovement
	err := c.call(ctx, http.MethodPost, "StockMovements", nil, m, &out)
	return out, err
}

func (c *Client) DeleteMovement(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("StockMovements", id), nil, nil, nil)
}

// Cases

func (c *Client) Cases(ctx context.Context) ([]model.Case, error) {
	return list[model.Case](ctx, c, "cases", nil)
}

func (c *Client) CreateCase(ctx context.Context, p model.CasePayload) (model.Case, error) {
	var out model.Case
	err := c.call(ctx, http.MethodPost, "cases", nil, p, &out)
	return out, err
}

func (c *Client) UpdateCase(ctx context.Context, id int64, p model.CasePayload) error {
	return c.call(ctx, http.MethodPut, idPath("cases", id), nil, p, nil)
}

func (c *Client) DeleteCase(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, idPath("cases", id), nil, nil, nil)
}

// Permissions

func (c *Client) Permissions(ctx context.Context) ([]model.Permission, error) {
	return list[model.Permission](ctx, c, "permissions", nil)
}

// ProfessionalPermissions returns the permission keys granted to a
// professional. The answer is {"permissions": [...]} either bare or wrapped.
func (c *Client) ProfessionalPermissions(ctx context.Context, professionalID int64) ([]string, error) {
	var out struct {
		Permissions []string `json:"permissions"`
	}
	if err := c.call(ctx, http.MethodGet, idPath("profissionals", professionalID)+"/permissions", nil, nil, &out); err != nil {
		return nil, err
	}
	if out.Permissions == nil {
		return []string{}, nil
	}
	return out.Permissions, nil
}

func (c *Client) SetProfessionalPermissions(ctx context.Context, professionalID int64, keys []string) error {
	if keys == nil {
		keys = []string{}
	}
	body := map[string][]string{"permissions": keys}
	return c.call(ctx, http.MethodPut, idPath("profissionals", professionalID)+"/permissions", nil, body, nil)
}

// Settings

func (c *Client) Settings(ctx context.Context) (model.Settings, error) {
	return get[model.Settings](ctx, c, "settings")
}

func (c *Client) UpdateSettings(ctx context.Context, s model.Settings) (model.Settings, error) {
	var out model.Settings
	err := c.call(ctx, http.MethodPut, "settings", nil, s, &out)
	return out, err
}

// Dashboard & notifications

func (c *Client) DashboardMetrics(ctx context.Context) (model.DashboardMetrics, error) {
	return get[model.DashboardMetrics](ctx, c, "dashboard/metrics")
}

func (c *Client) Notifications(ctx context.Context) ([]model.Notification, error) {
	return list[model.Notification](ctx, c, "notifications", nil)
}

// Public booking

func (c *Client) PublicCompanies(ctx context.Context) ([]model.PublicCompany, error) {
	return list[model.PublicCompany](ctx, c, "public/companies", nil)
}

// PublicCompany returns nil when the API answers with an empty payload.
func (c *Client) PublicCompany(ctx context.Context, id int64) (*model.PublicCompany, error) {
	var out *model.PublicCompany
	if err := c.call(ctx, http.MethodGet, idPath("public/companies", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AvailableSlots lists the free "HH:MM" slots of a company on date
// ("YYYY-MM-DD"). The upstream owns availability.
func (c *Client) AvailableSlots(ctx context.Context, companyID int64, date string) ([]string, error) {
	q := url.Values{}
	q.Set("companyId", strconv.FormatInt(companyID, 10))
	q.Set("date", date)
	return list[string](ctx, c, "appointment-requests/public/availability", q)
}

func (c *Client) CreatePublicRequest(ctx context.Context, r model.PublicAppointmentRequest) error {
	return c.call(ctx, http.MethodPost, "appointment-requests/public", nil, r, nil)
}
